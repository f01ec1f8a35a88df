package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/cloudwego/eino/schema"

	"talent-scout-go/internal/constants"
	"talent-scout-go/internal/types"
)

// HashValue 返回 SHA-256 十六进制摘要，用于去标识化而非加密保护
func HashValue(v string) string {
	sum := sha256.Sum256([]byte(v))
	return hex.EncodeToString(sum[:])
}

// GenerateSessionID "ts_" + sha256(email + timestamp) 的前 12 位
func GenerateSessionID(email, timestamp string) string {
	return constants.SessionIDPrefix + HashValue(email+timestamp)[:constants.SessionIDHashLen]
}

// RedactTranscript 将对话中出现的邮箱和电话原文替换为占位符，其余内容原样保留
func RedactTranscript(messages []*schema.Message, profile types.CandidateProfile) []TranscriptEntry {
	var sensitive []string
	for _, v := range []string{profile.Email, profile.Phone} {
		if v != "" {
			sensitive = append(sensitive, v)
		}
	}

	entries := make([]TranscriptEntry, 0, len(messages))
	for _, msg := range messages {
		if msg == nil {
			continue
		}
		content := msg.Content
		for _, s := range sensitive {
			content = strings.ReplaceAll(content, s, constants.RedactedPlaceholder)
		}
		entries = append(entries, TranscriptEntry{Role: string(msg.Role), Content: content})
	}
	return entries
}
