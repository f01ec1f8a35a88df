package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/gofrs/uuid/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"talent-scout-go/internal/agent"
	"talent-scout-go/internal/logger"
	"talent-scout-go/internal/metrics"
	"talent-scout-go/internal/screening"
	"talent-scout-go/internal/storage"
	"talent-scout-go/internal/tracing"
	"talent-scout-go/internal/types"
)

// Completer 生成助手回复。history 不包含本轮输入
type Completer interface {
	Complete(ctx context.Context, system string, history []*schema.Message, user string) (string, error)
}

var _ Completer = (*agent.ChatCompleter)(nil)

// Status 会话状态快照
type Status struct {
	screening.Status
	ConversationID string `json:"conversation_id"`
	SessionID      string `json:"session_id,omitempty"` // 持久化后的会话ID
}

// Orchestrator 驱动单个筛选会话：退出检测、字段抽取、生成指令、调用模型、推进阶段、结束时持久化。
// 同一会话的轮次串行执行。
type Orchestrator struct {
	mu sync.Mutex

	conversationID string
	manager        *screening.Manager
	completer      Completer
	saver          storage.Saver
	memory         agent.ChatMemory
	recorder       metrics.Recorder

	started   bool
	ended     bool
	sessionID string
}

// Option 配置 Orchestrator
type Option func(*Orchestrator)

// WithMemory 指定对话记录存储，默认进程内存
func WithMemory(m agent.ChatMemory) Option {
	return func(o *Orchestrator) {
		if m != nil {
			o.memory = m
		}
	}
}

// WithRecorder 设置指标记录器
func WithRecorder(r metrics.Recorder) Option {
	return func(o *Orchestrator) {
		if r != nil {
			o.recorder = r
		}
	}
}

// WithConversationID 指定会话句柄，默认生成 UUIDv7
func WithConversationID(id string) Option {
	return func(o *Orchestrator) {
		if id != "" {
			o.conversationID = id
		}
	}
}

// New 创建处于 greeting 阶段的会话
func New(completer Completer, saver storage.Saver, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		manager:   screening.NewManager(),
		completer: completer,
		saver:     saver,
		memory:    agent.NewInMemoryChatMemory(),
		recorder:  metrics.Nop{},
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.conversationID == "" {
		o.conversationID = uuid.Must(uuid.NewV7()).String()
	}
	return o
}

// newConversationID 生成按时间有序的会话句柄
func newConversationID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("生成会话ID失败: %w", err)
	}
	return id.String(), nil
}

// ConversationID 会话句柄
func (o *Orchestrator) ConversationID() string { return o.conversationID }

// Start 写入欢迎语作为第一条助手消息并返回；重复调用只返回欢迎语
func (o *Orchestrator) Start(ctx context.Context) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.started {
		return screening.Greeting, nil
	}
	if err := o.memory.AddMessage(ctx, o.conversationID, schema.AssistantMessage(screening.Greeting, nil)); err != nil {
		return "", newMemoryError(o.conversationID, "start", err)
	}
	o.started = true
	o.recorder.ObserveSessionStarted()
	logger.Info().Str("conversation_id", o.conversationID).Msg("筛选会话开始")
	return screening.Greeting, nil
}

// HandleTurn 处理一条候选人输入并返回助手回复。
// 补全失败不会返回 error，而是把面向用户的错误提示作为回复。
func (o *Orchestrator) HandleTurn(ctx context.Context, utterance string) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.ended {
		return "", ErrSessionEnded
	}
	if strings.TrimSpace(utterance) == "" {
		return "", ErrEmptyUtterance
	}

	ctx, span := tracing.Tracer().Start(ctx, "session.HandleTurn")
	defer span.End()
	stage := o.manager.Stage()
	span.SetAttributes(
		attribute.String("session.conversation_id", o.conversationID),
		attribute.String("session.stage", stage.String()),
	)
	o.recorder.ObserveTurn(stage.String())

	if screening.IsExitRequest(utterance) {
		return o.finish(ctx, utterance)
	}

	o.manager.Observe(utterance)
	system := o.manager.SystemPrompt()

	history, err := o.memory.GetHistory(ctx, o.conversationID)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeRedis)
		return "", newMemoryError(o.conversationID, "get_history", err)
	}

	start := time.Now()
	reply, err := o.completer.Complete(ctx, system, history, utterance)
	if err != nil {
		kind := agent.ClassifyError(err)
		o.recorder.ObserveCompletion(kind.String(), time.Since(start))
		tracing.RecordErrorWithInfo(span, err, tracing.ErrorTypeLLM, attribute.String("llm.error_kind", kind.String()))
		logger.Warn().Err(err).
			Str("conversation_id", o.conversationID).
			Str("kind", kind.String()).
			Msg("补全调用失败")
		reply = agent.UserFacingMessage(err)
	} else {
		o.recorder.ObserveCompletion("", time.Since(start))
		if o.manager.Evaluate(reply, utterance) {
			next := o.manager.Stage()
			o.recorder.ObserveStageTransition(stage.String(), next.String())
			span.SetAttributes(attribute.String("session.next_stage", next.String()))
			logger.Info().
				Str("conversation_id", o.conversationID).
				Str("from", stage.String()).
				Str("to", next.String()).
				Msg("会话阶段推进")
		}
	}

	if err := o.memory.AddMessages(ctx, o.conversationID, []*schema.Message{
		schema.UserMessage(utterance),
		schema.AssistantMessage(reply, nil),
	}); err != nil {
		return "", newMemoryError(o.conversationID, "add_messages", err)
	}
	return reply, nil
}

// finish 结束会话：记录退出输入、持久化一次、追加结束语。持久化失败只记录日志
func (o *Orchestrator) finish(ctx context.Context, utterance string) (string, error) {
	o.ended = true

	if err := o.memory.AddMessage(ctx, o.conversationID, schema.UserMessage(utterance)); err != nil {
		logger.Warn().Err(err).Str("conversation_id", o.conversationID).Msg("记录退出输入失败")
	}
	transcript, err := o.memory.GetHistory(ctx, o.conversationID)
	if err != nil {
		logger.Warn().Err(err).Str("conversation_id", o.conversationID).Msg("读取对话记录失败，仅保存资料")
	}

	profile := o.manager.Profile()
	if span := trace.SpanFromContext(ctx); span.IsRecording() {
		span.SetAttributes(
			attribute.String("candidate.email", tracing.SafeAttributeValue("candidate.email", profile.Email, tracing.DefaultMaxLength)),
			attribute.String("candidate.desired_position", tracing.SafeAttributeValue("candidate.desired_position", profile.DesiredPosition, tracing.DefaultMaxLength)),
		)
	}
	if o.saver != nil {
		id, err := o.saver.Save(ctx, profile, transcript)
		if err != nil {
			logger.Error().Err(err).Str("conversation_id", o.conversationID).Msg("保存筛选结果失败")
		} else {
			o.sessionID = id
		}
	}

	farewell := screening.Farewell(profile.FirstName())
	if err := o.memory.AddMessage(ctx, o.conversationID, schema.AssistantMessage(farewell, nil)); err != nil {
		logger.Warn().Err(err).Str("conversation_id", o.conversationID).Msg("记录结束语失败")
	}

	o.recorder.ObserveSessionEnded(o.manager.Stage().String())
	logger.Info().
		Str("conversation_id", o.conversationID).
		Str("session_id", o.sessionID).
		Str("final_stage", o.manager.Stage().String()).
		Msg("筛选会话结束")
	return farewell, nil
}

// Prefill 用简历文本补全尚未填写的字段
func (o *Orchestrator) Prefill(text string) ([]types.ProfileField, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.ended {
		return nil, ErrSessionEnded
	}
	updated := o.manager.Prefill(text)
	if len(updated) > 0 {
		logger.Info().
			Str("conversation_id", o.conversationID).
			Int("fields", len(updated)).
			Msg("简历预填资料")
	}
	return updated, nil
}

// Status 当前状态快照
func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()

	st := o.manager.Status()
	st.Ended = o.ended
	return Status{Status: st, ConversationID: o.conversationID, SessionID: o.sessionID}
}

// Ended 会话是否已结束
func (o *Orchestrator) Ended() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.ended
}

// SessionID 持久化后的会话ID，未结束或保存失败时为空
func (o *Orchestrator) SessionID() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.sessionID
}

// Transcript 当前对话记录
func (o *Orchestrator) Transcript(ctx context.Context) ([]*schema.Message, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	history, err := o.memory.GetHistory(ctx, o.conversationID)
	if err != nil {
		return nil, newMemoryError(o.conversationID, "get_history", err)
	}
	return history, nil
}

// Discard 丢弃会话的对话记录，不做持久化
func (o *Orchestrator) Discard(ctx context.Context) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.started && !o.ended {
		o.recorder.ObserveSessionEnded(o.manager.Stage().String())
	}
	o.ended = true
	if err := o.memory.ClearHistory(ctx, o.conversationID); err != nil {
		logger.Warn().Err(err).Str("conversation_id", o.conversationID).Msg("清理对话记录失败")
	}
}
