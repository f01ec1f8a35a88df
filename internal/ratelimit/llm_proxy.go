package ratelimit

import (
	"context"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// RateLimitedChatModel 在调用底层模型前等待令牌。失败直接返回，不重试
type RateLimitedChatModel struct {
	original    model.BaseChatModel
	rateLimiter *TokenBucket
	onWait      func(time.Duration)
}

// ProxyOption 配置 RateLimitedChatModel
type ProxyOption func(*RateLimitedChatModel)

// WithQueueWaitObserver 每次取得令牌后回调等待时长
func WithQueueWaitObserver(fn func(time.Duration)) ProxyOption {
	return func(rl *RateLimitedChatModel) { rl.onWait = fn }
}

// NewRateLimitedChatModel qpm <= 0 时使用默认值 30
func NewRateLimitedChatModel(original model.BaseChatModel, qpm int, opts ...ProxyOption) *RateLimitedChatModel {
	if qpm <= 0 {
		qpm = 30
	}
	rl := &RateLimitedChatModel{
		original:    original,
		rateLimiter: NewTokenBucket(qpm, qpm/2),
	}
	for _, opt := range opts {
		opt(rl)
	}
	return rl
}

// wait 桶内有令牌时直接放行，否则排队等待
func (rl *RateLimitedChatModel) wait(ctx context.Context) error {
	if rl.rateLimiter.Allow() {
		if rl.onWait != nil {
			rl.onWait(0)
		}
		return nil
	}
	start := time.Now()
	if err := rl.rateLimiter.Wait(ctx); err != nil {
		return err
	}
	if rl.onWait != nil {
		rl.onWait(time.Since(start))
	}
	return nil
}

// Generate 等待令牌后调用底层模型
func (rl *RateLimitedChatModel) Generate(ctx context.Context, messages []*schema.Message, options ...model.Option) (*schema.Message, error) {
	if err := rl.wait(ctx); err != nil {
		return nil, err
	}
	return rl.original.Generate(ctx, messages, options...)
}

// Stream 等待令牌后调用底层模型
func (rl *RateLimitedChatModel) Stream(ctx context.Context, messages []*schema.Message, options ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	if err := rl.wait(ctx); err != nil {
		return nil, err
	}
	return rl.original.Stream(ctx, messages, options...)
}

var _ model.BaseChatModel = (*RateLimitedChatModel)(nil)
