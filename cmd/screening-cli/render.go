package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"

	"talent-scout-go/internal/session"
	"talent-scout-go/internal/types"
)

var (
	stageStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	doneMark   = color.New(color.FgGreen).Sprint("✓")
	todoMark   = color.New(color.FgHiBlack).Sprint("·")
	userPrompt = color.New(color.FgCyan, color.Bold).Sprint("You › ")
	errorColor = color.New(color.FgRed)
	infoColor  = color.New(color.FgYellow)
)

var fieldShortNames = map[types.ProfileField]string{
	types.FieldFullName:        "name",
	types.FieldEmail:           "email",
	types.FieldPhone:           "phone",
	types.FieldYearsExperience: "experience",
	types.FieldDesiredPosition: "position",
	types.FieldLocation:        "location",
}

// renderer 助手回复按 Markdown 渲染，失败时原样输出
type renderer struct {
	md *glamour.TermRenderer
}

func newRenderer(width int, plain bool) *renderer {
	if plain {
		return &renderer{}
	}
	if width <= 0 || width > 100 {
		width = 100
	}
	md, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(width-4))
	if err != nil {
		return &renderer{}
	}
	return &renderer{md: md}
}

func (r *renderer) reply(text string) string {
	if r.md == nil {
		return text + "\n"
	}
	out, err := r.md.Render(text)
	if err != nil {
		return text + "\n"
	}
	return out
}

// statusLine 一行会话状态：阶段、进度、各字段是否已收集、问答进度
func statusLine(st session.Status) string {
	var b strings.Builder
	b.WriteString(stageStyle.Render(fmt.Sprintf("[%s %d%%]", st.Label, st.Percent)))

	parts := make([]string, 0, len(types.RequiredFields))
	for _, f := range types.RequiredFields {
		mark := todoMark
		if st.Fields[f] {
			mark = doneMark
		}
		parts = append(parts, fieldShortNames[f]+" "+mark)
	}
	b.WriteString(" ")
	b.WriteString(strings.Join(parts, "  "))

	if len(st.TechStack) > 0 {
		b.WriteString(dimStyle.Render(" | stack: " + strings.Join(st.TechStack, ", ")))
	}
	if st.QA.Total > 0 {
		b.WriteString(dimStyle.Render(fmt.Sprintf(" | Q&A %d/%d", st.QA.Answered, st.QA.Total)))
	}
	if st.Ended {
		b.WriteString(dimStyle.Render(" | ended"))
	}
	return b.String()
}

const helpText = `Commands:
  /status   show collected details and progress
  /new      discard this session and start over
  /help     show this help
Type exit, quit or bye to finish the screening.`
