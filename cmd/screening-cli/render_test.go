package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"talent-scout-go/internal/bootstrap"
	"talent-scout-go/internal/config"
	"talent-scout-go/internal/screening"
	"talent-scout-go/internal/session"
	"talent-scout-go/internal/types"
)

func init() {
	color.NoColor = true
}

func TestStatusLine(t *testing.T) {
	st := session.Status{Status: screening.Status{
		Label:   "Technical Questions",
		Percent: 80,
		Fields: map[types.ProfileField]bool{
			types.FieldFullName: true,
			types.FieldEmail:    true,
		},
		TechStack: []string{"GO", "Redis"},
		QA:        types.QAProgress{Total: 3, Answered: 1},
	}}

	line := statusLine(st)
	assert.Contains(t, line, "[Technical Questions 80%]")
	assert.Contains(t, line, "name ✓")
	assert.Contains(t, line, "phone ·")
	assert.Contains(t, line, "stack: GO, Redis")
	assert.Contains(t, line, "Q&A 1/3")
	assert.NotContains(t, line, "ended")
}

func TestRendererPlain(t *testing.T) {
	r := newRenderer(80, true)
	assert.Equal(t, "**hi**\n", r.reply("**hi**"))
}

func TestCLILoop(t *testing.T) {
	cfg := &config.Config{}
	cfg.Storage.DataDir = t.TempDir()
	cfg.Session.MemoryBackend = "memory"
	cfg.LLM.MaxTokens = 1024

	ctx := context.Background()
	a, err := bootstrap.New(ctx, cfg)
	require.NoError(t, err)
	defer a.Close(ctx)

	var out bytes.Buffer
	c := &cli{app: a, out: &out, renderer: newRenderer(80, true)}
	require.NoError(t, c.startSession(ctx))
	first := c.current

	input := strings.Join([]string{"/status", "Jane Doe", "/new", "bye", "more?"}, "\n")
	require.NoError(t, c.loop(ctx, strings.NewReader(input)))

	s := out.String()
	assert.Contains(t, s, "Welcome to the TalentScout")
	assert.Contains(t, s, "API key not found")
	assert.Contains(t, s, "Thank you, there!")
	assert.Contains(t, s, "This session has ended")
	assert.True(t, first.Ended(), "/new 丢弃旧会话")
	assert.NotSame(t, first, c.current)
	assert.NotEmpty(t, c.current.SessionID())
}
