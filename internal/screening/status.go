package screening

import "talent-scout-go/internal/types"

// Status 展示层需要的会话状态快照
type Status struct {
	Stage     string                      `json:"stage"`
	Label     string                      `json:"label"`
	Percent   int                         `json:"percent"`
	Fields    map[types.ProfileField]bool `json:"fields"`
	TechStack []string                    `json:"tech_stack"`
	QA        types.QAProgress            `json:"qa_progress"`
	Ended     bool                        `json:"ended"`
}

// Status 当前阶段、各字段是否已填写以及问答进度
func (m *Manager) Status() Status {
	fields := make(map[types.ProfileField]bool, len(types.RequiredFields))
	for _, f := range types.RequiredFields {
		fields[f] = m.profile.Has(f)
	}
	return Status{
		Stage:     m.stage.String(),
		Label:     m.stage.Label(),
		Percent:   m.stage.Percent(),
		Fields:    fields,
		TechStack: append([]string{}, m.profile.TechStack...),
		QA:        m.questions.Progress(),
	}
}
