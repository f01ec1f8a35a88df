package screening

import (
	"strings"
	"unicode/utf8"

	"talent-scout-go/internal/types"
)

// minAnswerLen 回复超过该长度才视为回答了一道技术问题
const minAnswerLen = 10

// maxNameLikeTokens 问候阶段回复不超过该词数时视为给出了姓名
const maxNameLikeTokens = 5

var (
	greetingKeywords  = []string{"hello", "hi", "hey", "help"}
	transitionSignals = []string{
		"technical question",
		"few questions",
		"based on your stack",
		"assess your",
		"let's test",
		"now ask",
	}
)

// QuestionSet 已生成的技术问题及回答进度
type QuestionSet struct {
	Questions []string
	Answered  int
}

// Total 问题数量
func (q QuestionSet) Total() int { return len(q.Questions) }

// Remaining 尚未回答的数量
func (q QuestionSet) Remaining() int { return len(q.Questions) - q.Answered }

// Complete 至少有一道题且全部回答完毕
func (q QuestionSet) Complete() bool {
	return len(q.Questions) > 0 && q.Answered >= len(q.Questions)
}

// Progress 转换为展示用的进度
func (q QuestionSet) Progress() types.QAProgress {
	return types.QAProgress{Total: len(q.Questions), Answered: q.Answered}
}

// Manager 对话状态机：持有阶段、候选人资料和技术问题，负责每轮的抽取与阶段推进。
// 非并发安全，调用方保证同一会话一次只处理一轮。
type Manager struct {
	stage     Stage
	profile   types.CandidateProfile
	questions QuestionSet
}

// NewManager 创建处于 greeting 阶段、资料为空的状态机
func NewManager() *Manager {
	return &Manager{stage: StageGreeting}
}

// Stage 当前阶段
func (m *Manager) Stage() Stage { return m.stage }

// Profile 返回资料的副本
func (m *Manager) Profile() types.CandidateProfile { return m.profile.Clone() }

// Questions 返回问题集的副本
func (m *Manager) Questions() QuestionSet {
	return QuestionSet{
		Questions: append([]string(nil), m.questions.Questions...),
		Answered:  m.questions.Answered,
	}
}

// QAProgress 技术问答进度
func (m *Manager) QAProgress() types.QAProgress { return m.questions.Progress() }

// Advance 尝试推进到目标阶段，只有严格向后的推进才会生效，返回是否发生变化
func (m *Manager) Advance(target Stage) bool {
	next := advance(m.stage, target)
	if next == m.stage {
		return false
	}
	m.stage = next
	return true
}

// Observe 在调用模型前从用户输入中抽取字段
func (m *Manager) Observe(utterance string) []types.ProfileField {
	return Extract(utterance, &m.profile, m.stage)
}

// Prefill 用简历等外部文本补全资料，不做姓名推断
func (m *Manager) Prefill(text string) []types.ProfileField {
	return ExtractDocument(text, &m.profile)
}

// SystemPrompt 当前阶段的系统指令
func (m *Manager) SystemPrompt() string {
	return Render(m.stage, &m.profile, m.questions)
}

// Evaluate 根据模型回复和用户输入重新评估阶段，返回是否推进了阶段
func (m *Manager) Evaluate(reply, utterance string) bool {
	switch m.stage {
	case StageGreeting:
		if looksLikeNameReply(utterance) || m.profile.Has(types.FieldFullName) {
			return m.Advance(StageGatheringInfo)
		}
	case StageGatheringInfo:
		if len(m.profile.MissingFields()) == 0 {
			return m.Advance(StageTechStack)
		}
	case StageTechStack:
		if len(m.profile.TechStack) > 0 && containsAny(strings.ToLower(reply), transitionSignals) {
			return m.Advance(StageTechnicalQuestions)
		}
	case StageTechnicalQuestions:
		if m.questions.Total() == 0 {
			m.questions.Questions = ParseQuestions(reply)
		} else if utf8.RuneCountInString(utterance) > minAnswerLen && m.questions.Answered < m.questions.Total() {
			m.questions.Answered++
		}
		if m.questions.Complete() {
			return m.Advance(StageClosing)
		}
	}
	return false
}

// looksLikeNameReply 简短且不含问候/求助词的回复视为自我介绍（子串匹配，"this" 也包含 "hi"）
func looksLikeNameReply(utterance string) bool {
	if len(strings.Fields(utterance)) > maxNameLikeTokens {
		return false
	}
	return !containsAny(strings.ToLower(utterance), greetingKeywords)
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
