package agent

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrMissingAPIKey 未配置模型 API 密钥
var ErrMissingAPIKey = errors.New("LLM API key not configured")

// maxErrorBodyLen 错误信息中保留的响应体长度
const maxErrorBodyLen = 512

// APIError 补全接口返回非 200 状态码时的错误
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	body := e.Body
	if len(body) > maxErrorBodyLen {
		body = body[:maxErrorBodyLen] + "..."
	}
	return fmt.Sprintf("LLM API 请求失败 (status %d): %s", e.StatusCode, body)
}

// ErrorKind 面向用户的错误分类
type ErrorKind int

const (
	ErrorKindGeneric ErrorKind = iota
	ErrorKindAuth
	ErrorKindRateLimit
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorKindAuth:
		return "auth"
	case ErrorKindRateLimit:
		return "rate_limit"
	default:
		return "generic"
	}
}

// ClassifyError 先看状态码，再看错误文本
func ClassifyError(err error) ErrorKind {
	if err == nil {
		return ErrorKindGeneric
	}
	if errors.Is(err, ErrMissingAPIKey) {
		return ErrorKindAuth
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusUnauthorized:
			return ErrorKindAuth
		case http.StatusTooManyRequests:
			return ErrorKindRateLimit
		}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "invalid_api_key") || strings.Contains(msg, "401"):
		return ErrorKindAuth
	case strings.Contains(msg, "rate_limit") || strings.Contains(msg, "429"):
		return ErrorKindRateLimit
	default:
		return ErrorKindGeneric
	}
}

// UserFacingMessage 把补全失败转换为可直接作为助手回复的文本
func UserFacingMessage(err error) string {
	if errors.Is(err, ErrMissingAPIKey) {
		return "❌ API key not found. Please restart and enter your API key."
	}
	switch ClassifyError(err) {
	case ErrorKindAuth:
		return "❌ Invalid API key. Please restart and enter a valid API key."
	case ErrorKindRateLimit:
		return "⚠️ Rate limit hit. Please wait a moment and try again."
	default:
		return fmt.Sprintf("⚠️ Error: %v", err)
	}
}
