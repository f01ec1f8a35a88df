package storage

import (
	"time"

	"github.com/cloudwego/eino/schema"

	"talent-scout-go/internal/types"
)

// TranscriptEntry 持久化后的单条对话
type TranscriptEntry struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ScreeningRecord 一次结束的筛选会话，各存储后端共用的写入载体。
// Transcript 已经脱敏，Profile 含完整 PII，只应写入受限位置。
type ScreeningRecord struct {
	SessionID       string
	Timestamp       string // UTC，RFC3339Nano
	CreatedAt       time.Time
	Profile         types.CandidateProfile
	CandidateIDHash string
	MessageCount    int
	Transcript      []TranscriptEntry
}

// NewScreeningRecord 生成会话ID、计算邮箱哈希并脱敏对话记录
func NewScreeningRecord(profile types.CandidateProfile, transcript []*schema.Message, now time.Time) *ScreeningRecord {
	now = now.UTC()
	ts := now.Format(time.RFC3339Nano)
	return &ScreeningRecord{
		SessionID:       GenerateSessionID(profile.Email, ts),
		Timestamp:       ts,
		CreatedAt:       now,
		Profile:         profile.Clone(),
		CandidateIDHash: HashValue(profile.Email),
		MessageCount:    len(transcript),
		Transcript:      RedactTranscript(transcript, profile),
	}
}

// CandidateFields 候选人资料，未提供的字段序列化为 null
type CandidateFields struct {
	FullName        *string  `json:"full_name"`
	Email           *string  `json:"email"`
	Phone           *string  `json:"phone"`
	YearsExperience *string  `json:"years_experience"`
	DesiredPosition *string  `json:"desired_position"`
	Location        *string  `json:"location"`
	TechStack       []string `json:"tech_stack"`
}

// CandidateDocument candidates/<id>.json 的内容（含 PII）
type CandidateDocument struct {
	SessionID string          `json:"session_id"`
	Timestamp string          `json:"timestamp"`
	Candidate CandidateFields `json:"candidate"`
}

// SessionDocument sessions/<id>_session.json 的内容（不含 PII）
type SessionDocument struct {
	SessionID       string            `json:"session_id"`
	Timestamp       string            `json:"timestamp"`
	CandidateIDHash string            `json:"candidate_id_hash"`
	TechStack       []string          `json:"tech_stack"`
	MessageCount    int               `json:"message_count"`
	Transcript      []TranscriptEntry `json:"transcript"`
}

// CandidateDocument 构建候选人资料文档
func (r *ScreeningRecord) CandidateDocument() CandidateDocument {
	p := r.Profile
	return CandidateDocument{
		SessionID: r.SessionID,
		Timestamp: r.Timestamp,
		Candidate: CandidateFields{
			FullName:        optional(p.FullName),
			Email:           optional(p.Email),
			Phone:           optional(p.Phone),
			YearsExperience: optional(p.YearsExperience),
			DesiredPosition: optional(p.DesiredPosition),
			Location:        optional(p.Location),
			TechStack:       r.techStack(),
		},
	}
}

// SessionDocument 构建脱敏会话文档
func (r *ScreeningRecord) SessionDocument() SessionDocument {
	transcript := r.Transcript
	if transcript == nil {
		transcript = []TranscriptEntry{}
	}
	return SessionDocument{
		SessionID:       r.SessionID,
		Timestamp:       r.Timestamp,
		CandidateIDHash: r.CandidateIDHash,
		TechStack:       r.techStack(),
		MessageCount:    r.MessageCount,
		Transcript:      transcript,
	}
}

// techStack 空技术栈序列化为 [] 而不是 null
func (r *ScreeningRecord) techStack() []string {
	if r.Profile.TechStack == nil {
		return []string{}
	}
	return r.Profile.TechStack
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
