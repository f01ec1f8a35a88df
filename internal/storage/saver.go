package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudwego/eino/schema"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"talent-scout-go/internal/constants"
	"talent-scout-go/internal/logger"
	"talent-scout-go/internal/metrics"
	"talent-scout-go/internal/tracing"
	"talent-scout-go/internal/types"
)

// Saver 持久化一次结束的筛选会话，返回会话ID
type Saver interface {
	Save(ctx context.Context, profile types.CandidateProfile, transcript []*schema.Message) (string, error)
}

// Sink 一个持久化后端
type Sink interface {
	Name() string
	Write(ctx context.Context, record *ScreeningRecord) error
}

// CompositeSaver 先写主存储（失败即返回错误），再并发写入可选的外部存储。
// 外部存储失败只记录日志和指标，不影响返回值。
type CompositeSaver struct {
	primary     Sink
	sinks       []Sink
	now         func() time.Time
	recorder    metrics.Recorder
	sinkTimeout time.Duration
}

var _ Saver = (*CompositeSaver)(nil)

// SaverOption 配置 CompositeSaver
type SaverOption func(*CompositeSaver)

// WithSinks 追加外部存储，nil 会被忽略
func WithSinks(sinks ...Sink) SaverOption {
	return func(s *CompositeSaver) {
		for _, sink := range sinks {
			if sink != nil {
				s.sinks = append(s.sinks, sink)
			}
		}
	}
}

// WithClock 注入时钟，测试中用于固定会话ID
func WithClock(now func() time.Time) SaverOption {
	return func(s *CompositeSaver) { s.now = now }
}

// WithRecorder 设置指标记录器
func WithRecorder(r metrics.Recorder) SaverOption {
	return func(s *CompositeSaver) { s.recorder = r }
}

// WithSinkTimeout 单个外部存储的写入超时
func WithSinkTimeout(d time.Duration) SaverOption {
	return func(s *CompositeSaver) { s.sinkTimeout = d }
}

// NewCompositeSaver 创建组合存储
func NewCompositeSaver(primary Sink, opts ...SaverOption) *CompositeSaver {
	s := &CompositeSaver{
		primary:     primary,
		now:         time.Now,
		recorder:    metrics.Nop{},
		sinkTimeout: constants.ExternalSinkTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save 实现 Saver
func (s *CompositeSaver) Save(ctx context.Context, profile types.CandidateProfile, transcript []*schema.Message) (string, error) {
	ctx, span := tracing.Tracer().Start(ctx, "storage.Save")
	defer span.End()

	record := NewScreeningRecord(profile, transcript, s.now())
	span.SetAttributes(
		attribute.String("session.id", record.SessionID),
		attribute.Int("transcript.messages", record.MessageCount),
		attribute.Int("storage.sinks", len(s.sinks)),
	)

	err := s.primary.Write(ctx, record)
	s.recorder.ObserveSave(s.primary.Name(), err)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeStorage)
		return "", fmt.Errorf("持久化会话失败: %w", err)
	}

	if len(s.sinks) > 0 {
		s.fanOut(ctx, record)
	}

	logger.Info().
		Str("session_id", record.SessionID).
		Str("candidate_id_hash", record.CandidateIDHash).
		Int("message_count", record.MessageCount).
		Msg("筛选会话已持久化")
	return record.SessionID, nil
}

func (s *CompositeSaver) fanOut(ctx context.Context, record *ScreeningRecord) {
	var g errgroup.Group
	for _, sink := range s.sinks {
		sink := sink
		g.Go(func() error {
			sinkCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.sinkTimeout)
			defer cancel()

			err := sink.Write(sinkCtx, record)
			s.recorder.ObserveSave(sink.Name(), err)
			if err != nil {
				logger.Warn().Err(err).
					Str("sink", sink.Name()).
					Str("session_id", record.SessionID).
					Msg("外部存储写入失败")
				return fmt.Errorf("%s: %w", sink.Name(), err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		logger.Warn().Err(err).Str("session_id", record.SessionID).Msg("部分外部存储写入失败，本地记录已保存")
	}
}
