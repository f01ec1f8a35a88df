// Package bootstrap 组装服务端和命令行共用的依赖：存储、模型、对话记录、指标与追踪。
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cloudwego/eino/components/model"

	"talent-scout-go/internal/agent"
	"talent-scout-go/internal/config"
	"talent-scout-go/internal/constants"
	"talent-scout-go/internal/logger"
	"talent-scout-go/internal/metrics"
	"talent-scout-go/internal/outbox"
	"talent-scout-go/internal/parser"
	"talent-scout-go/internal/ratelimit"
	"talent-scout-go/internal/session"
	"talent-scout-go/internal/storage"
	"talent-scout-go/internal/tracing"
)

// App 已初始化的依赖集合
type App struct {
	Config     *config.Config
	Storage    *storage.Storage
	Recorder   metrics.Recorder
	Memory     agent.ChatMemory
	Completer  *agent.ChatCompleter
	Saver      *storage.CompositeSaver
	Extractor  parser.TextExtractor // 初始化失败时为 nil
	Relay      *outbox.MessageRelay // 仅 MySQL 与 RabbitMQ 同时可用时存在
	HasAPIKey  bool
	shutdownFn func(context.Context) error
}

// New 按配置初始化所有依赖。只有本地存储是必需的，其余组件失败时降级并记录警告
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	shutdown, err := tracing.InitProvider(ctx, cfg.Tracing)
	if err != nil {
		logger.Warn().Err(err).Msg("初始化链路追踪失败，继续运行")
		shutdown = func(context.Context) error { return nil }
	}

	a := &App{Config: cfg, shutdownFn: shutdown, Recorder: metrics.Nop{}}
	if cfg.Metrics.Enabled {
		a.Recorder = metrics.NewPrometheusRecorder(nil)
	}

	if a.Storage, err = storage.NewStorage(ctx, cfg); err != nil {
		_ = shutdown(ctx)
		return nil, fmt.Errorf("初始化存储失败: %w", err)
	}
	a.Saver = a.Storage.NewSaver(a.Recorder)

	a.Memory = newMemory(ctx, cfg, a.Storage)

	chatModel, err := NewChatModel(&cfg.LLM, a.Recorder)
	switch {
	case errors.Is(err, agent.ErrMissingAPIKey):
		logger.Warn().Msg("未配置 LLM API Key，所有回复将提示缺少密钥")
	case err != nil:
		a.Close(ctx)
		return nil, err
	default:
		a.HasAPIKey = true
	}
	a.Completer = agent.NewChatCompleter(chatModel,
		agent.WithTemperature(float32(cfg.LLM.Temperature)),
		agent.WithMaxTokens(cfg.LLM.MaxTokens),
	)

	if extractor, err := parser.NewEinoPDFTextExtractor(ctx); err != nil {
		logger.Warn().Err(err).Msg("初始化PDF解析器失败，简历预填不可用")
	} else {
		a.Extractor = extractor
	}

	if a.Storage.MySQL != nil && a.Storage.RabbitMQ != nil {
		a.Relay = outbox.NewMessageRelay(a.Storage.MySQL.DB(), a.Storage.RabbitMQ)
		a.Relay.Start()
	}
	return a, nil
}

// NewChatModel 创建带限流的模型客户端；密钥为空时返回 agent.ErrMissingAPIKey
func NewChatModel(cfg *config.LLMConfig, recorder metrics.Recorder) (model.BaseChatModel, error) {
	m, err := agent.NewOpenAICompatibleChatModel(cfg.APIKey,
		agent.WithModelName(cfg.Model),
		agent.WithAPIURL(cfg.APIURL),
		agent.WithDefaultTemperature(float32(cfg.Temperature)),
		agent.WithDefaultMaxTokens(cfg.MaxTokens),
	)
	if err != nil {
		return nil, err
	}
	if cfg.QPM <= 0 {
		return m, nil
	}
	return ratelimit.NewRateLimitedChatModel(m, cfg.QPM, ratelimit.WithQueueWaitObserver(recorder.ObserveQueueWait)), nil
}

func newMemory(ctx context.Context, cfg *config.Config, s *storage.Storage) agent.ChatMemory {
	if cfg.Session.MemoryBackend != "redis" {
		return agent.NewInMemoryChatMemory()
	}
	if s.Redis == nil {
		logger.Warn().Msg("Redis 不可用，对话记录改用进程内存")
		return agent.NewInMemoryChatMemory()
	}
	m, err := agent.NewRedisChatMemory(ctx, s.Redis.Client, constants.KeyChatMemoryPrefix, cfg.HistoryTTL())
	if err != nil {
		logger.Warn().Err(err).Msg("创建 Redis 对话记录失败，改用进程内存")
		return agent.NewInMemoryChatMemory()
	}
	return m
}

// Components 会话工厂所需的依赖
func (a *App) Components() session.Components {
	return session.Components{
		Completer: a.Completer,
		Saver:     a.Saver,
		Options: []session.Option{
			session.WithMemory(a.Memory),
			session.WithRecorder(a.Recorder),
		},
	}
}

// NewSession 创建单个会话，供命令行使用
func (a *App) NewSession() *session.Orchestrator {
	return a.Components().Factory()("")
}

// NewRegistry 创建会话注册表，供 HTTP 服务使用
func (a *App) NewRegistry() *session.Registry {
	return session.NewRegistry(a.Components().Factory(), a.Config.Session.IdleTimeoutDuration())
}

// Close 依次停止中继、关闭存储连接、刷新追踪数据
func (a *App) Close(ctx context.Context) {
	if a.Relay != nil {
		a.Relay.Stop()
		drainCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := a.Relay.Drain(drainCtx); err != nil {
			logger.Warn().Err(err).Msg("退出前投递 outbox 消息失败")
		}
		cancel()
	}
	if a.Storage != nil {
		a.Storage.Close()
	}
	if a.shutdownFn != nil {
		if err := a.shutdownFn(ctx); err != nil {
			logger.Warn().Err(err).Msg("关闭追踪导出器失败")
		}
	}
}
