package agent

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"401 状态码", &APIError{StatusCode: 401, Body: "unauthorized"}, ErrorKindAuth},
		{"包装后的 429", fmt.Errorf("调用失败: %w", &APIError{StatusCode: 429}), ErrorKindRateLimit},
		{"文本 invalid_api_key", errors.New(`{"error":{"code":"invalid_api_key"}}`), ErrorKindAuth},
		{"文本 rate_limit", errors.New("rate_limit_exceeded"), ErrorKindRateLimit},
		{"缺少密钥", ErrMissingAPIKey, ErrorKindAuth},
		{"500", &APIError{StatusCode: 500, Body: "boom"}, ErrorKindGeneric},
		{"网络错误", errors.New("connection refused"), ErrorKindGeneric},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ClassifyError(tc.err))
		})
	}
}

func TestUserFacingMessage(t *testing.T) {
	assert.Equal(t, "❌ API key not found. Please restart and enter your API key.", UserFacingMessage(ErrMissingAPIKey))
	assert.Equal(t, "❌ Invalid API key. Please restart and enter a valid API key.", UserFacingMessage(&APIError{StatusCode: 401}))
	assert.Equal(t, "⚠️ Rate limit hit. Please wait a moment and try again.", UserFacingMessage(&APIError{StatusCode: 429}))

	msg := UserFacingMessage(errors.New("connection refused"))
	assert.Equal(t, "⚠️ Error: connection refused", msg)
}

func TestAPIError_TruncatesBody(t *testing.T) {
	long := make([]byte, 2000)
	for i := range long {
		long[i] = 'x'
	}
	err := &APIError{StatusCode: 500, Body: string(long)}
	assert.Less(t, len(err.Error()), 600)
}
