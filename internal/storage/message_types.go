package storage

import "talent-scout-go/internal/types"

// EventScreeningCompleted 筛选结束事件类型，同时作为默认路由键
const EventScreeningCompleted = "screening.completed"

// ScreeningCompletedMessage 筛选结束事件，不含任何 PII
type ScreeningCompletedMessage struct {
	EventType        string   `json:"event_type"`
	SessionID        string   `json:"session_id"`
	Timestamp        string   `json:"timestamp"`
	CandidateIDHash  string   `json:"candidate_id_hash"`
	TechStack        []string `json:"tech_stack"`
	MessageCount     int      `json:"message_count"`
	FieldsCollected  int      `json:"fields_collected"`
	TranscriptObject string   `json:"transcript_object,omitempty"` // MinIO 对象路径
}

// NewScreeningCompletedMessage 从会话记录构建事件
func NewScreeningCompletedMessage(record *ScreeningRecord, transcriptObject string) ScreeningCompletedMessage {
	collected := len(types.RequiredFields) - len(record.Profile.MissingFields())
	return ScreeningCompletedMessage{
		EventType:        EventScreeningCompleted,
		SessionID:        record.SessionID,
		Timestamp:        record.Timestamp,
		CandidateIDHash:  record.CandidateIDHash,
		TechStack:        record.techStack(),
		MessageCount:     record.MessageCount,
		FieldsCollected:  collected,
		TranscriptObject: transcriptObject,
	}
}
