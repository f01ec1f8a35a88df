package constants

import "time"

const (
	// Application-level constants
	ServiceName = "talent-scout"

	// 会话与持久化相关常量
	SessionIDPrefix     = "ts_"        // 持久化会话ID前缀
	SessionIDHashLen    = 12           // 会话ID中哈希部分的长度
	RedactedPlaceholder = "[REDACTED]" // 脱敏占位符

	CandidatesDir = "candidates"
	SessionsDir   = "sessions"

	// LLM 调用默认参数
	DefaultLLMModel       = "llama-3.3-70b-versatile"
	DefaultLLMAPIURL      = "https://api.groq.com/openai/v1/chat/completions"
	DefaultLLMTemperature = 0.7
	DefaultLLMMaxTokens   = 1024
	DefaultLLMQPM         = 30

	// 简历上传限制
	MaxResumeUploadBytes = 10 << 20

	DefaultHistoryTTL = 24 * time.Hour
	// ExternalSinkTimeout 外部存储（MySQL/MinIO/RabbitMQ）单次写入超时
	ExternalSinkTimeout = 10 * time.Second
)
