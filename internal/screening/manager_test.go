package screening

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"talent-scout-go/internal/types"
)

const threeQuestions = "Question 1: How do goroutines differ from threads?\n" +
	"Question 2: Explain context cancellation in Go.\n" +
	"Question 3: How would you design a rate limiter?"

// turn 模拟一轮：先抽取，再根据模型回复评估
func turn(m *Manager, utterance, reply string) {
	m.Observe(utterance)
	m.Evaluate(reply, utterance)
}

func fillRequired(m *Manager) {
	m.profile = types.CandidateProfile{
		FullName:        "Jane Doe",
		Email:           "jane@example.com",
		Phone:           "555-123-4567",
		YearsExperience: "5 years",
		DesiredPosition: "Backend Engineer",
		Location:        "Berlin",
	}
}

func TestManager_GreetingToGatheringOnName(t *testing.T) {
	m := NewManager()
	turn(m, "Jane Doe", "Nice to meet you, Jane! What's your email?")

	assert.Equal(t, StageGatheringInfo, m.Stage())
	assert.Equal(t, "Jane Doe", m.Profile().FullName)
}

func TestManager_GreetingStaysOnLongHelpRequest(t *testing.T) {
	m := NewManager()
	turn(m, "hello there, can you help me understand this process first?", "Sure! Could you tell me your name?")

	assert.Equal(t, StageGreeting, m.Stage())
	assert.Empty(t, m.Profile().FullName)
}

func TestManager_GreetingKeywordIsSubstringMatch(t *testing.T) {
	m := NewManager()
	// 短句但包含 "hi"（this），且未识别到姓名：不推进
	m.Evaluate("", "what is this about")
	assert.Equal(t, StageGreeting, m.Stage())
}

func TestManager_GatheringToTechStackWhenComplete(t *testing.T) {
	m := NewManager()
	m.Advance(StageGatheringInfo)
	fillRequired(m)

	assert.True(t, m.Evaluate("Thanks! Now tell me about your tech stack.", "Berlin"))
	assert.Equal(t, StageTechStack, m.Stage())
}

func TestManager_GatheringStaysWhileFieldsMissing(t *testing.T) {
	m := NewManager()
	m.Advance(StageGatheringInfo)
	turn(m, "I have 5 years of experience with Python and Docker", "Great. What position are you interested in?")

	assert.Equal(t, StageGatheringInfo, m.Stage())
	assert.Equal(t, "5 years", m.Profile().YearsExperience)
	assert.Equal(t, []string{"Python", "Docker"}, m.Profile().TechStack)
}

func TestManager_TechStackNeedsStackAndSignal(t *testing.T) {
	m := NewManager()
	m.Advance(StageTechStack)

	m.Evaluate("Let me now ask a few technical questions.", "nothing yet")
	assert.Equal(t, StageTechStack, m.Stage(), "技术栈为空时不应推进")

	turn(m, "Go, Kafka and PostgreSQL", "Thanks, could you confirm that list?")
	assert.Equal(t, StageTechStack, m.Stage(), "没有过渡信号时不应推进")

	m.Evaluate("Great! Based on your stack, let's test your knowledge.", "yes that's right")
	assert.Equal(t, StageTechnicalQuestions, m.Stage())
}

func TestManager_TechnicalQuestionsFlow(t *testing.T) {
	m := NewManager()
	m.profile.TechStack = []string{"GO"}
	m.Advance(StageTechnicalQuestions)

	// 生成问题的这一轮不计为回答
	m.Evaluate(threeQuestions, "ok, ready for the questions")
	require.Equal(t, 3, m.Questions().Total())
	assert.Equal(t, types.QAProgress{Total: 3, Answered: 0}, m.QAProgress())

	m.Evaluate("Good answer. Question 2 next.", "Goroutines are multiplexed onto threads by the runtime.")
	assert.Equal(t, 1, m.QAProgress().Answered)

	m.Evaluate("Please elaborate.", "not sure")
	assert.Equal(t, 1, m.QAProgress().Answered, "短回复不计为回答")

	m.Evaluate("Thanks.", "Cancellation propagates through the context tree.")
	assert.Equal(t, StageTechnicalQuestions, m.Stage())

	changed := m.Evaluate("Thanks.", "A token bucket guarded by a mutex would work.")
	assert.True(t, changed)
	assert.Equal(t, StageClosing, m.Stage(), "最后一题回答后的同一轮进入 closing")
	assert.Equal(t, types.QAProgress{Total: 3, Answered: 3}, m.QAProgress())

	// 问题只生成一次
	m.Evaluate("Question 1: a brand new question here?", "another long reply here")
	assert.Equal(t, 3, m.Questions().Total())
}

func TestManager_UnparseableQuestionsKeepStage(t *testing.T) {
	m := NewManager()
	m.profile.TechStack = []string{"GO"}
	m.Advance(StageTechnicalQuestions)

	m.Evaluate("Sure, let me think about some questions.", "ready when you are")
	assert.Equal(t, 0, m.Questions().Total())
	assert.Equal(t, StageTechnicalQuestions, m.Stage())

	m.Evaluate(threeQuestions, "still ready")
	assert.Equal(t, 3, m.Questions().Total())
}

func TestManager_AdvanceIsMonotonic(t *testing.T) {
	m := NewManager()
	assert.True(t, m.Advance(StageTechStack))
	assert.False(t, m.Advance(StageGatheringInfo))
	assert.False(t, m.Advance(StageTechStack))
	assert.False(t, m.Advance(Stage(42)))
	assert.Equal(t, StageTechStack, m.Stage())
}

func TestManager_StageNeverDecreasesAcrossTurns(t *testing.T) {
	m := NewManager()
	script := []struct{ utterance, reply string }{
		{"Jane Doe", "Nice to meet you! What's your email?"},
		{"jane@example.com", "Thanks. Your phone number?"},
		{"555-123-4567", "How many years of experience?"},
		{"5 years", "Which position?"},
		{"Backend Engineer", "Where are you located?"},
		{"Berlin", "Great, what's your tech stack?"},
		{"Go, Kafka, PostgreSQL", "Now I'll ask a few questions based on your stack."},
		{"sure", threeQuestions},
		{"Goroutines are cheap green threads managed by the runtime.", "Next one."},
		{"hi", "Please answer Question 2."},
		{"Context carries deadlines and cancellation signals.", "Last one."},
		{"A token bucket refilled at a fixed rate.", "Thanks! Any questions for us?"},
	}

	prev := m.Stage()
	for _, s := range script {
		turn(m, s.utterance, s.reply)
		require.GreaterOrEqual(t, int(m.Stage()), int(prev), "阶段不应回退: %q", s.utterance)
		prev = m.Stage()
	}
	assert.Equal(t, StageClosing, m.Stage())

	profile := m.Profile()
	assert.Equal(t, "Jane Doe", profile.FullName)
	assert.Equal(t, "Berlin", profile.Location)
	assert.Equal(t, []string{"GO", "Kafka", "Postgresql"}, profile.TechStack)
}

func TestManager_Status(t *testing.T) {
	m := NewManager()
	turn(m, "Jane Doe", "Hi Jane, your email please?")

	st := m.Status()
	assert.Equal(t, "gathering_info", st.Stage)
	assert.Equal(t, "Gathering Info", st.Label)
	assert.Equal(t, 33, st.Percent)
	assert.True(t, st.Fields[types.FieldFullName])
	assert.False(t, st.Fields[types.FieldEmail])
	assert.Equal(t, types.QAProgress{}, st.QA)
}

func TestManager_PrefillSkipsName(t *testing.T) {
	m := NewManager()
	m.Prefill("Jane Doe\njane@example.com\n4 years of Rust")

	p := m.Profile()
	assert.Empty(t, p.FullName)
	assert.Equal(t, "jane@example.com", p.Email)
	assert.Equal(t, "4 years", p.YearsExperience)
	assert.Equal(t, []string{"Rust"}, p.TechStack)
	assert.Equal(t, StageGreeting, m.Stage())
}
