package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/redis/go-redis/v9"

	"talent-scout-go/internal/constants"
)

// RedisChatMemory 使用 Redis LIST 保存对话记录，每个元素是一条 JSON 编码的 schema.Message
type RedisChatMemory struct {
	client    redis.UniversalClient
	keyPrefix string
	ttl       time.Duration // 0 表示不过期
}

// NewRedisChatMemory 创建实例并 Ping 一次确认连通性。keyPrefix 为空时使用默认前缀
func NewRedisChatMemory(ctx context.Context, client redis.UniversalClient, keyPrefix string, ttl time.Duration) (*RedisChatMemory, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client cannot be nil")
	}
	if keyPrefix == "" {
		keyPrefix = constants.KeyChatMemoryPrefix
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return &RedisChatMemory{client: client, keyPrefix: keyPrefix, ttl: ttl}, nil
}

func (r *RedisChatMemory) buildKey(conversationID string) string {
	return r.keyPrefix + conversationID
}

// GetHistory 实现 ChatMemory 接口
func (r *RedisChatMemory) GetHistory(ctx context.Context, conversationID string) ([]*schema.Message, error) {
	raw, err := r.client.LRange(ctx, r.buildKey(conversationID), 0, -1).Result()
	if errors.Is(err, redis.Nil) {
		return []*schema.Message{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get messages from redis for conversation %s: %w", conversationID, err)
	}

	messages := make([]*schema.Message, 0, len(raw))
	for i, item := range raw {
		var msg schema.Message
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal message %d for conversation %s: %w", i, conversationID, err)
		}
		messages = append(messages, &msg)
	}
	return messages, nil
}

// AddMessage 实现 ChatMemory 接口
func (r *RedisChatMemory) AddMessage(ctx context.Context, conversationID string, message *schema.Message) error {
	return r.AddMessages(ctx, conversationID, []*schema.Message{message})
}

// AddMessages RPUSH 与 EXPIRE 放在同一个事务管道中
func (r *RedisChatMemory) AddMessages(ctx context.Context, conversationID string, messages []*schema.Message) error {
	if len(messages) == 0 {
		return nil
	}
	encoded := make([]interface{}, 0, len(messages))
	for _, msg := range messages {
		if msg == nil {
			return fmt.Errorf("cannot add nil message to chat history for conversation %s", conversationID)
		}
		data, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("failed to marshal message for conversation %s: %w", conversationID, err)
		}
		encoded = append(encoded, data)
	}

	key := r.buildKey(conversationID)
	pipe := r.client.TxPipeline()
	pipe.RPush(ctx, key, encoded...)
	if r.ttl > 0 {
		pipe.Expire(ctx, key, r.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to add messages to redis for conversation %s: %w", conversationID, err)
	}
	return nil
}

// ClearHistory 实现 ChatMemory 接口
func (r *RedisChatMemory) ClearHistory(ctx context.Context, conversationID string) error {
	if err := r.client.Del(ctx, r.buildKey(conversationID)).Err(); err != nil {
		return fmt.Errorf("failed to clear chat history from redis for conversation %s: %w", conversationID, err)
	}
	return nil
}
