package screening

import (
	"fmt"
	"strings"

	"talent-scout-go/internal/types"
)

const notProvided = "not yet provided"

// baseRules 每一轮都会带上的固定系统规则
const baseRules = `You are the TalentScout Hiring Assistant, the screening chatbot of TalentScout, a technology recruitment agency. Your ONLY job is to screen technology candidates through a structured conversation.

CORE RULES (always apply):
1. Stay on topic. If the candidate asks about anything unrelated to the hiring process, politely steer back to the screening.
2. Be warm, professional and encouraging.
3. Ask exactly ONE question per reply. Never stack several questions together.
4. If an answer is unclear or off-topic, acknowledge it gently and ask again.
5. Never produce harmful, discriminatory or biased content. Treat every candidate equally.
6. Keep replies short (3-6 sentences) unless you are listing technical questions.
7. Use what the candidate already told you; never ask for information listed in the candidate context.
8. If the candidate skips a required detail, briefly explain why it matters and ask again.

FALLBACK: if you still cannot understand the candidate after two attempts, reply "I'm having trouble understanding. Could you rephrase that?" and move on to the next item.`

// fieldPrompts 信息收集阶段每个字段对应的提问指令
var fieldPrompts = map[types.ProfileField]string{
	types.FieldFullName:        "Ask for their full name.",
	types.FieldEmail:           "Ask for their email address.",
	types.FieldPhone:           "Ask for their phone number and mention it is used to schedule interviews.",
	types.FieldYearsExperience: "Ask how many years of professional experience they have.",
	types.FieldDesiredPosition: "Ask which position or positions they are applying for.",
	types.FieldLocation:        "Ask for their current city or location.",
}

// fieldLabels 上下文回顾中使用的字段名称
var fieldLabels = map[types.ProfileField]string{
	types.FieldFullName:        "Full Name",
	types.FieldEmail:           "Email",
	types.FieldPhone:           "Phone",
	types.FieldYearsExperience: "Years of Experience",
	types.FieldDesiredPosition: "Desired Position",
	types.FieldLocation:        "Location",
}

// Render 生成下一次模型调用的系统指令：固定规则 + 阶段指令 + 上下文回顾
func Render(stage Stage, profile *types.CandidateProfile, questions QuestionSet) string {
	return strings.Join([]string{
		baseRules,
		stageDirective(stage, profile, questions),
		contextRecap(profile, questions),
	}, "\n\n")
}

func stageDirective(stage Stage, profile *types.CandidateProfile, questions QuestionSet) string {
	switch stage {
	case StageGreeting:
		return greetingDirective(profile)
	case StageGatheringInfo:
		return gatheringDirective(profile)
	case StageTechStack:
		return techStackDirective
	case StageTechnicalQuestions:
		return technicalDirective(profile, questions)
	case StageClosing:
		return closingDirective
	default:
		return "Help the candidate through the screening process."
	}
}

func greetingDirective(profile *types.CandidateProfile) string {
	if profile.Has(types.FieldFullName) {
		return `CURRENT STAGE: Greeting
The candidate has already given their name. Acknowledge it warmly and ask for their email address next.`
	}
	return `CURRENT STAGE: Greeting
Welcome the candidate and ask for their full name.`
}

func gatheringDirective(profile *types.CandidateProfile) string {
	missing := profile.MissingFields()
	if len(missing) == 0 {
		return `CURRENT STAGE: Gathering Info (complete)
Every basic detail has been collected. Tell the candidate so, then ask them to list their tech stack: programming languages, frameworks, databases and tools they are proficient in. Be specific about what you want.`
	}

	names := make([]string, len(missing))
	for i, f := range missing {
		names[i] = string(f)
	}
	next := fieldPrompts[missing[0]]
	if next == "" {
		next = fmt.Sprintf("Ask for their %s.", missing[0])
	}
	return fmt.Sprintf(`CURRENT STAGE: Gathering Info
You are collecting candidate details. Missing fields: %s.
Next action: %s
Acknowledge anything the candidate just shared before asking.`, strings.Join(names, ", "), next)
}

const techStackDirective = `CURRENT STAGE: Tech Stack
The candidate is describing their tech stack.
- Encourage a complete picture: languages, frameworks, databases, DevOps tooling, cloud platforms.
- When they have listed something, summarise what you understood and confirm it with them.
- Once confirmed, move on by telling them you will now ask a few technical questions tailored to their stack.
- Do NOT write any technical questions yet. Only make the transition.`

func technicalDirective(profile *types.CandidateProfile, questions QuestionSet) string {
	total := questions.Total()
	switch {
	case total == 0:
		return fmt.Sprintf(`CURRENT STAGE: Technical Questions (generate now)
The candidate's tech stack is: %s

Write exactly 3-5 technical interview questions about that stack:
- Each question must target technologies the candidate listed.
- Mix difficulty: 1-2 foundational, 1-2 intermediate, 1 advanced.
- Questions must be open-ended, never yes/no.
- Label every question explicitly as "Question 1:", "Question 2:" and so on.
- After the full list, invite the candidate to answer Question 1.

Example layout:
Here are your technical questions:

**Question 1:** ...
**Question 2:** ...

Please answer **Question 1** whenever you are ready!`, strings.Join(profile.TechStack, ", "))
	case questions.Remaining() > 0:
		return fmt.Sprintf(`CURRENT STAGE: Technical Questions (in progress)
Questions generated: %d. Answered so far: %d. Remaining: %d.
- Briefly and constructively acknowledge the answer to the current question.
- Then prompt Question %d.
- If the answer was very short or vague you may ask ONE follow-up before moving on.
- Never repeat a question that has already been answered.`, total, questions.Answered, questions.Remaining(), questions.Answered+1)
	default:
		return `CURRENT STAGE: Technical Questions (complete)
All technical questions are answered. Move to closing:
- Thank the candidate for their time and answers.
- Summarise what was collected: name, desired position and tech stack.
- Explain the next steps: recruiter review and the expected timeline.
- Ask whether they have any questions for TalentScout before wrapping up.`
	}
}

const closingDirective = `CURRENT STAGE: Closing
Wrap up the conversation gracefully and answer any final questions about the process. Remind the candidate they can type 'exit' or 'bye' to end the session. Stay warm and encouraging.`

// contextRecap 已收集信息回顾，避免模型重复提问
func contextRecap(profile *types.CandidateProfile, questions QuestionSet) string {
	var b strings.Builder
	b.WriteString("CANDIDATE CONTEXT (already collected, do NOT ask again):\n")
	for _, f := range types.RequiredFields {
		fmt.Fprintf(&b, "- %s: %s\n", fieldLabels[f], orNotProvided(profile.Get(f)))
	}
	fmt.Fprintf(&b, "- Tech Stack: %s\n", orNotProvided(strings.Join(profile.TechStack, ", ")))
	fmt.Fprintf(&b, "- Technical Questions Generated: %d\n", questions.Total())
	fmt.Fprintf(&b, "- Questions Answered: %d", questions.Answered)
	return b.String()
}

func orNotProvided(v string) string {
	if v == "" {
		return notProvided
	}
	return v
}
