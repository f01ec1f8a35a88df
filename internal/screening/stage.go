package screening

// Stage 筛选对话所处阶段，按声明顺序全序
type Stage int

const (
	StageGreeting Stage = iota
	StageGatheringInfo
	StageTechStack
	StageTechnicalQuestions
	StageClosing
)

// Stages 全部阶段，顺序即推进顺序
var Stages = []Stage{
	StageGreeting,
	StageGatheringInfo,
	StageTechStack,
	StageTechnicalQuestions,
	StageClosing,
}

var stageNames = map[Stage]string{
	StageGreeting:           "greeting",
	StageGatheringInfo:      "gathering_info",
	StageTechStack:          "tech_stack",
	StageTechnicalQuestions: "technical_questions",
	StageClosing:            "closing",
}

// stageLabels 展示层使用的阶段名称和完成百分比
var stageLabels = map[Stage]struct {
	label   string
	percent int
}{
	StageGreeting:           {"Greeting", 10},
	StageGatheringInfo:      {"Gathering Info", 33},
	StageTechStack:          {"Tech Stack", 60},
	StageTechnicalQuestions: {"Technical Questions", 80},
	StageClosing:            {"Closing", 100},
}

// String 使得 Stage 可以被打印
func (s Stage) String() string {
	if name, ok := stageNames[s]; ok {
		return name
	}
	return "unknown"
}

// Valid 是否为已定义的阶段
func (s Stage) Valid() bool {
	_, ok := stageNames[s]
	return ok
}

// Label 展示用名称
func (s Stage) Label() string {
	if l, ok := stageLabels[s]; ok {
		return l.label
	}
	return "Active"
}

// Percent 展示用进度百分比
func (s Stage) Percent() int {
	if l, ok := stageLabels[s]; ok {
		return l.percent
	}
	return 50
}

// ParseStage 由名称解析阶段
func ParseStage(name string) (Stage, bool) {
	for s, n := range stageNames {
		if n == name {
			return s, true
		}
	}
	return StageGreeting, false
}

// advance 仅当目标阶段严格靠后时才推进，否则静默忽略
func advance(current, target Stage) Stage {
	if !target.Valid() || !current.Valid() {
		return current
	}
	if target > current {
		return target
	}
	return current
}
