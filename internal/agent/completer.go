package agent

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"talent-scout-go/internal/constants"
)

// ChatCompleter 把一轮对话组装成 system + 历史 + 新输入，交给底层模型生成回复
type ChatCompleter struct {
	model       model.BaseChatModel
	temperature float32
	maxTokens   int
}

// CompleterOption 配置选项
type CompleterOption func(*ChatCompleter)

// WithTemperature 采样温度
func WithTemperature(t float32) CompleterOption {
	return func(c *ChatCompleter) { c.temperature = t }
}

// WithMaxTokens 最大输出 token 数
func WithMaxTokens(n int) CompleterOption {
	return func(c *ChatCompleter) {
		if n > 0 {
			c.maxTokens = n
		}
	}
}

// NewChatCompleter 创建补全器。chatModel 为 nil 表示未配置密钥，每次调用都返回 ErrMissingAPIKey
func NewChatCompleter(chatModel model.BaseChatModel, opts ...CompleterOption) *ChatCompleter {
	c := &ChatCompleter{
		model:       chatModel,
		temperature: constants.DefaultLLMTemperature,
		maxTokens:   constants.DefaultLLMMaxTokens,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Complete 调用模型。history 不包含本轮的 user 输入
func (c *ChatCompleter) Complete(ctx context.Context, system string, history []*schema.Message, user string) (string, error) {
	if c.model == nil {
		return "", ErrMissingAPIKey
	}

	messages := make([]*schema.Message, 0, len(history)+2)
	messages = append(messages, schema.SystemMessage(system))
	for _, msg := range history {
		if msg != nil {
			messages = append(messages, msg)
		}
	}
	messages = append(messages, schema.UserMessage(user))

	resp, err := c.model.Generate(ctx, messages,
		model.WithTemperature(c.temperature),
		model.WithMaxTokens(c.maxTokens),
	)
	if err != nil {
		return "", fmt.Errorf("LLM 生成回复失败: %w", err)
	}
	if resp == nil {
		return "", fmt.Errorf("LLM 返回了空消息")
	}
	return resp.Content, nil
}
