package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"talent-scout-go/internal/constants"
	"talent-scout-go/internal/logger"
)

// OpenAICompatibleChatModel 通过 OpenAI 兼容的 chat/completions 接口（默认 Groq）生成回复，
// 实现 eino 的 model.BaseChatModel。
type OpenAICompatibleChatModel struct {
	apiKey      string
	modelName   string
	apiURL      string
	temperature float32
	maxTokens   int
	httpClient  *http.Client
}

// ChatModelOption 配置选项
type ChatModelOption func(*OpenAICompatibleChatModel)

// WithModelName 指定模型名称
func WithModelName(name string) ChatModelOption {
	return func(m *OpenAICompatibleChatModel) {
		if strings.TrimSpace(name) != "" {
			m.modelName = name
		}
	}
}

// WithAPIURL 指定 chat/completions 完整地址
func WithAPIURL(url string) ChatModelOption {
	return func(m *OpenAICompatibleChatModel) {
		if strings.TrimSpace(url) != "" {
			m.apiURL = url
		}
	}
}

// WithDefaultTemperature 调用未显式指定时使用的温度
func WithDefaultTemperature(t float32) ChatModelOption {
	return func(m *OpenAICompatibleChatModel) { m.temperature = t }
}

// WithDefaultMaxTokens 调用未显式指定时使用的最大输出 token 数
func WithDefaultMaxTokens(n int) ChatModelOption {
	return func(m *OpenAICompatibleChatModel) {
		if n > 0 {
			m.maxTokens = n
		}
	}
}

// WithHTTPClient 替换 HTTP 客户端，主要用于测试。客户端本身不设置超时
func WithHTTPClient(c *http.Client) ChatModelOption {
	return func(m *OpenAICompatibleChatModel) {
		if c != nil {
			m.httpClient = c
		}
	}
}

// NewOpenAICompatibleChatModel 创建模型客户端。apiKey 为空时返回 ErrMissingAPIKey
func NewOpenAICompatibleChatModel(apiKey string, opts ...ChatModelOption) (*OpenAICompatibleChatModel, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrMissingAPIKey
	}
	m := &OpenAICompatibleChatModel{
		apiKey:      apiKey,
		modelName:   constants.DefaultLLMModel,
		apiURL:      constants.DefaultLLMAPIURL,
		temperature: constants.DefaultLLMTemperature,
		maxTokens:   constants.DefaultLLMMaxTokens,
		httpClient:  &http.Client{},
	}
	for _, opt := range opts {
		opt(m)
	}
	logger.Info().Str("api_url", m.apiURL).Str("model", m.modelName).Msg("初始化 OpenAI 兼容 LLM 客户端")
	return m, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature *float32      `json:"temperature,omitempty"`
	MaxTokens   *int          `json:"max_tokens,omitempty"`
	TopP        *float32      `json:"top_p,omitempty"`
	Stop        []string      `json:"stop,omitempty"`
}

type chatCompletionResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string  `json:"role"`
			Content *string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// Generate 实现 model.BaseChatModel
func (m *OpenAICompatibleChatModel) Generate(ctx context.Context, messages []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	options := model.GetCommonOptions(&model.Options{
		Model:       &m.modelName,
		Temperature: &m.temperature,
		MaxTokens:   &m.maxTokens,
	}, opts...)

	req := chatCompletionRequest{
		Model:       m.modelName,
		Messages:    make([]chatMessage, 0, len(messages)),
		Temperature: options.Temperature,
		MaxTokens:   options.MaxTokens,
		TopP:        options.TopP,
		Stop:        options.Stop,
	}
	if options.Model != nil && *options.Model != "" {
		req.Model = *options.Model
	}
	for _, msg := range messages {
		if msg == nil {
			continue
		}
		req.Messages = append(req.Messages, chatMessage{Role: string(msg.Role), Content: msg.Content})
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("序列化请求体失败: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, m.apiURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("创建 HTTP 请求失败: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+m.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	httpResp, err := m.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("发送 HTTP 请求失败: %w", err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取响应体失败: %w", err)
	}

	// 只记录元数据，请求和响应内容可能包含候选人个人信息
	logger.Debug().
		Str("model", req.Model).
		Int("status", httpResp.StatusCode).
		Int("messages", len(req.Messages)).
		Dur("latency", time.Since(start)).
		Msg("LLM 补全请求完成")

	if httpResp.StatusCode != http.StatusOK {
		return nil, &APIError{StatusCode: httpResp.StatusCode, Body: string(body)}
	}

	var resp chatCompletionResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("反序列化 API 响应失败: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("API 响应中没有 choices")
	}

	content := ""
	if c := resp.Choices[0].Message.Content; c != nil {
		content = *c
	}
	return schema.AssistantMessage(content, nil), nil
}

// Stream 以单个分片返回完整回复
func (m *OpenAICompatibleChatModel) Stream(ctx context.Context, messages []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.Generate(ctx, messages, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

var _ model.BaseChatModel = (*OpenAICompatibleChatModel)(nil)
