package agent

import (
	"context"
	"errors"
	"sync"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"talent-scout-go/internal/logger"
)

// MockResponse 定义了 MockChatClient 的单次预期响应
type MockResponse struct {
	Content string
	Error   error
}

// MockChatClient 是一个用于测试的 model.BaseChatModel 模拟实现，按顺序返回预设响应
type MockChatClient struct {
	mu        sync.Mutex
	responses []MockResponse
	index     int
	calls     [][]*schema.Message
	options   []*model.Options
}

// NewMockChatClient 创建一个总是返回同一响应的 MockChatClient
func NewMockChatClient(content string, err error) *MockChatClient {
	return &MockChatClient{responses: []MockResponse{{Content: content, Error: err}}}
}

// NewMockChatClientSequential 创建一个按顺序返回不同响应的 MockChatClient，
// 用完后重复最后一个响应
func NewMockChatClientSequential(responses ...MockResponse) *MockChatClient {
	if len(responses) == 0 {
		responses = []MockResponse{{Error: errors.New("mock client has no responses configured")}}
	}
	return &MockChatClient{responses: responses}
}

// Generate 模拟 LLM 的 Generate 方法
func (m *MockChatClient) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	received := make([]*schema.Message, len(input))
	copy(received, input)
	m.calls = append(m.calls, received)
	m.options = append(m.options, model.GetCommonOptions(&model.Options{}, opts...))

	resp := m.responses[m.index]
	if m.index < len(m.responses)-1 {
		m.index++
	}
	logger.Debug().Int("call", len(m.calls)).Int("messages", len(input)).Bool("error", resp.Error != nil).Msg("[MockChatClient] Generate")

	if resp.Error != nil {
		return nil, resp.Error
	}
	return schema.AssistantMessage(resp.Content, nil), nil
}

// Stream 模拟 LLM 的 Stream 方法
func (m *MockChatClient) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

// Calls 返回每次调用收到的消息
func (m *MockChatClient) Calls() [][]*schema.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]*schema.Message, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount 调用次数
func (m *MockChatClient) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// LastOptions 最近一次调用解析后的通用选项
func (m *MockChatClient) LastOptions() *model.Options {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.options) == 0 {
		return nil
	}
	return m.options[len(m.options)-1]
}

var _ model.BaseChatModel = (*MockChatClient)(nil)
