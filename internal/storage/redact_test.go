package storage

import (
	"strings"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"talent-scout-go/internal/types"
)

func TestHashValue(t *testing.T) {
	// sha256("")
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", HashValue(""))
	assert.Len(t, HashValue("jane@x.io"), 64)
	assert.Equal(t, HashValue("a"), HashValue("a"))
}

func TestGenerateSessionID(t *testing.T) {
	id := GenerateSessionID("jane@x.io", "2025-01-02T03:04:05Z")

	assert.True(t, strings.HasPrefix(id, "ts_"))
	assert.Len(t, id, 15)
	assert.Equal(t, "ts_"+HashValue("jane@x.io2025-01-02T03:04:05Z")[:12], id)
	assert.NotEqual(t, id, GenerateSessionID("jane@x.io", "2025-01-02T03:04:06Z"))
}

func TestRedactTranscript(t *testing.T) {
	profile := types.CandidateProfile{Email: "jane@x.io", Phone: "+1 555 123 4567"}
	msgs := []*schema.Message{
		schema.UserMessage("my email is jane@x.io and phone +1 555 123 4567"),
		nil,
		schema.AssistantMessage("Thanks, I noted jane@x.io.", nil),
	}

	entries := RedactTranscript(msgs, profile)

	require.Len(t, entries, 2)
	assert.Equal(t, TranscriptEntry{Role: "user", Content: "my email is [REDACTED] and phone [REDACTED]"}, entries[0])
	assert.Equal(t, TranscriptEntry{Role: "assistant", Content: "Thanks, I noted [REDACTED]."}, entries[1])
}

func TestRedactTranscript_NoSensitiveFields(t *testing.T) {
	msgs := []*schema.Message{schema.UserMessage("hello there")}

	entries := RedactTranscript(msgs, types.CandidateProfile{})

	require.Len(t, entries, 1)
	assert.Equal(t, "hello there", entries[0].Content)
	assert.NotNil(t, RedactTranscript(nil, types.CandidateProfile{}))
}
