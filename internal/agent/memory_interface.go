package agent

import (
	"context"
	"fmt"
	"sync"

	"github.com/cloudwego/eino/schema"
)

// ChatMemory 会话对话记录存储，按会话句柄区分
type ChatMemory interface {
	// GetHistory 获取会话的全部消息，会话不存在时返回空切片和 nil
	GetHistory(ctx context.Context, conversationID string) ([]*schema.Message, error)

	// AddMessage 追加一条消息
	AddMessage(ctx context.Context, conversationID string, message *schema.Message) error

	// AddMessages 批量追加，任一消息为 nil 时整体失败
	AddMessages(ctx context.Context, conversationID string, messages []*schema.Message) error

	// ClearHistory 删除会话记录，会话不存在时静默成功
	ClearHistory(ctx context.Context, conversationID string) error
}

// InMemoryChatMemory 进程内实现，不持久化
type InMemoryChatMemory struct {
	mu        sync.RWMutex
	histories map[string][]*schema.Message
}

// NewInMemoryChatMemory 创建一个新的 InMemoryChatMemory 实例。
func NewInMemoryChatMemory() *InMemoryChatMemory {
	return &InMemoryChatMemory{
		histories: make(map[string][]*schema.Message),
	}
}

// GetHistory 返回副本，调用方不应修改消息内容
func (m *InMemoryChatMemory) GetHistory(_ context.Context, conversationID string) ([]*schema.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	history := m.histories[conversationID]
	cpy := make([]*schema.Message, len(history))
	copy(cpy, history)
	return cpy, nil
}

// AddMessage 实现 ChatMemory 接口
func (m *InMemoryChatMemory) AddMessage(ctx context.Context, conversationID string, message *schema.Message) error {
	return m.AddMessages(ctx, conversationID, []*schema.Message{message})
}

// AddMessages 实现 ChatMemory 接口
func (m *InMemoryChatMemory) AddMessages(_ context.Context, conversationID string, messages []*schema.Message) error {
	for _, msg := range messages {
		if msg == nil {
			return fmt.Errorf("cannot add nil message to chat history for conversation %s", conversationID)
		}
	}
	if len(messages) == 0 {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.histories[conversationID] = append(m.histories[conversationID], messages...)
	return nil
}

// ClearHistory 实现 ChatMemory 接口
func (m *InMemoryChatMemory) ClearHistory(_ context.Context, conversationID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.histories, conversationID)
	return nil
}
