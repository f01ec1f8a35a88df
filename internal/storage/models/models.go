package models

import (
	"time"

	"gorm.io/datatypes"
)

// ScreeningSession 筛选会话结果表，含候选人 PII，访问应受限
type ScreeningSession struct {
	SessionID        string         `gorm:"type:varchar(32);primaryKey"`
	CandidateIDHash  string         `gorm:"type:char(64);index:idx_ss_candidate_id_hash"`
	FullName         *string        `gorm:"type:varchar(255)"`
	Email            *string        `gorm:"type:varchar(255)"`
	Phone            *string        `gorm:"type:varchar(50)"`
	YearsExperience  *string        `gorm:"type:varchar(50)"`
	DesiredPosition  *string        `gorm:"type:varchar(255)"`
	Location         *string        `gorm:"type:varchar(255)"`
	TechStackJSON    datatypes.JSON `gorm:"type:json"`
	MessageCount     int            `gorm:"not null;default:0"`
	TranscriptObject string         `gorm:"type:varchar(1024)"` // MinIO 中脱敏对话记录的对象路径，未归档时为空
	ScreenedAt       time.Time      `gorm:"type:datetime(6);index:idx_ss_screened_at"`
	CreatedAt        time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
	UpdatedAt        time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);autoUpdateTime"`
}

func (ScreeningSession) TableName() string {
	return "screening_sessions"
}
