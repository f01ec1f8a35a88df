package session

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"talent-scout-go/internal/logger"
	"talent-scout-go/internal/storage"
)

// Factory 按会话句柄创建 Orchestrator
type Factory func(conversationID string) *Orchestrator

// Components 创建会话所需的共享依赖
type Components struct {
	Completer Completer
	Saver     storage.Saver
	Options   []Option
}

// Factory 基于共享依赖生成会话工厂
func (c Components) Factory() Factory {
	return func(conversationID string) *Orchestrator {
		opts := append([]Option{WithConversationID(conversationID)}, c.Options...)
		return New(c.Completer, c.Saver, opts...)
	}
}

// Registry 按句柄保存进行中的会话，空闲超过 idleTimeout 的会话被清理
type Registry struct {
	cache   *gocache.Cache
	factory Factory
}

// NewRegistry 创建会话注册表
func NewRegistry(factory Factory, idleTimeout time.Duration) *Registry {
	if idleTimeout <= 0 {
		idleTimeout = time.Hour
	}
	cleanup := idleTimeout / 2
	if cleanup < time.Minute {
		cleanup = time.Minute
	}

	c := gocache.New(idleTimeout, cleanup)
	c.OnEvicted(func(id string, v any) {
		if o, ok := v.(*Orchestrator); ok {
			o.Discard(context.Background())
			logger.Debug().Str("conversation_id", id).Msg("会话已移出注册表")
		}
	})
	return &Registry{cache: c, factory: factory}
}

// Create 创建新会话并返回欢迎语
func (r *Registry) Create(ctx context.Context) (*Orchestrator, string, error) {
	id, err := newConversationID()
	if err != nil {
		return nil, "", err
	}
	o := r.factory(id)
	greeting, err := o.Start(ctx)
	if err != nil {
		return nil, "", err
	}
	r.cache.SetDefault(o.ConversationID(), o)
	return o, greeting, nil
}

// Get 查找会话并刷新其空闲时间
func (r *Registry) Get(id string) (*Orchestrator, error) {
	v, ok := r.cache.Get(id)
	if !ok {
		return nil, ErrSessionNotFound
	}
	o := v.(*Orchestrator)
	r.cache.SetDefault(id, o)
	return o, nil
}

// Delete 丢弃会话
func (r *Registry) Delete(id string) error {
	if _, ok := r.cache.Get(id); !ok {
		return ErrSessionNotFound
	}
	r.cache.Delete(id)
	return nil
}

// Count 当前会话数（含尚未被清理的过期会话）
func (r *Registry) Count() int {
	return r.cache.ItemCount()
}

// Flush 丢弃所有会话
func (r *Registry) Flush() {
	for id := range r.cache.Items() {
		r.cache.Delete(id)
	}
}
