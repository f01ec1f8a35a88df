package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"talent-scout-go/internal/config"
	"talent-scout-go/internal/logger"
	"talent-scout-go/internal/storage/models"
	"talent-scout-go/internal/tracing"
)

var mysqlTracer = otel.Tracer("talent-scout-go/storage/mysql")

type gormSpanKey struct{}

// GormTracingPlugin 是一个GORM插件，用于向OpenTelemetry中添加数据库操作的追踪点
type GormTracingPlugin struct {
	tracer trace.Tracer
	dbName string
}

// NewGormTracingPlugin 创建一个新的GORM追踪插件
func NewGormTracingPlugin(dbName string) *GormTracingPlugin {
	return &GormTracingPlugin{tracer: mysqlTracer, dbName: dbName}
}

// Name 返回插件名称
func (p *GormTracingPlugin) Name() string {
	return "GormOpenTelemetryPlugin"
}

// Initialize 注册GORM回调以启用追踪
func (p *GormTracingPlugin) Initialize(db *gorm.DB) error {
	cb := db.Callback()
	hooks := []struct {
		register func(name string, fn func(*gorm.DB)) error
		name     string
		fn       func(*gorm.DB)
	}{
		{cb.Create().Before("gorm:create").Register, "otel:before_create", p.before("CREATE")},
		{cb.Create().After("gorm:create").Register, "otel:after_create", p.after},
		{cb.Query().Before("gorm:query").Register, "otel:before_query", p.before("SELECT")},
		{cb.Query().After("gorm:query").Register, "otel:after_query", p.after},
		{cb.Update().Before("gorm:update").Register, "otel:before_update", p.before("UPDATE")},
		{cb.Update().After("gorm:update").Register, "otel:after_update", p.after},
		{cb.Delete().Before("gorm:delete").Register, "otel:before_delete", p.before("DELETE")},
		{cb.Delete().After("gorm:delete").Register, "otel:after_delete", p.after},
	}
	for _, h := range hooks {
		if err := h.register(h.name, h.fn); err != nil {
			return err
		}
	}
	return nil
}

func (p *GormTracingPlugin) before(operation string) func(db *gorm.DB) {
	return func(db *gorm.DB) {
		ctx := db.Statement.Context
		if ctx == nil {
			ctx = context.Background()
		}
		tableName := db.Statement.Table
		if tableName == "" {
			tableName = "unknown"
		}

		// 不记录 SQL 语句本身，其中可能含有候选人 PII
		newCtx, span := p.tracer.Start(ctx, fmt.Sprintf("%s %s", operation, tableName),
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(
				semconv.DBSystemMySQL,
				attribute.String("db.name", p.dbName),
				attribute.String("db.operation", operation),
				attribute.String("db.sql.table", tableName),
			),
		)
		db.Statement.Context = context.WithValue(newCtx, gormSpanKey{}, span)
	}
}

func (p *GormTracingPlugin) after(db *gorm.DB) {
	span, ok := db.Statement.Context.Value(gormSpanKey{}).(trace.Span)
	if !ok {
		return
	}
	defer span.End()

	span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))
	switch {
	case db.Error == nil:
		span.SetStatus(codes.Ok, "")
	case errors.Is(db.Error, gorm.ErrRecordNotFound):
		span.SetAttributes(attribute.String("error.type", "record_not_found"))
	default:
		tracing.RecordError(span, db.Error, tracing.ErrorTypeDB)
	}
}

// OutboxTarget 会话结果写入时一并登记的事件目标
type OutboxTarget struct {
	Exchange   string
	RoutingKey string
}

// MySQL 会话结果存储，可选地在同一事务中写入 outbox 事件
type MySQL struct {
	db            *gorm.DB
	cfg           *config.MySQLConfig
	outbox        *OutboxTarget
	archiveBucket string
}

var _ Sink = (*MySQL)(nil)

// MySQLOption 配置 MySQL sink
type MySQLOption func(*MySQL)

// WithOutbox 启用发件箱：每条会话结果同时登记一条 screening.completed 事件
func WithOutbox(exchange, routingKey string) MySQLOption {
	return func(m *MySQL) { m.outbox = &OutboxTarget{Exchange: exchange, RoutingKey: routingKey} }
}

// WithTranscriptArchive 记录 MinIO 中脱敏对话记录的对象路径
func WithTranscriptArchive(bucket string) MySQLOption {
	return func(m *MySQL) { m.archiveBucket = bucket }
}

// NewMySQL 连接数据库并迁移表结构
func NewMySQL(cfg *config.MySQLConfig, opts ...MySQLOption) (*MySQL, error) {
	if cfg == nil {
		return nil, fmt.Errorf("MySQL配置不能为空")
	}

	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC&timeout=%ds",
		cfg.Username, cfg.Password, cfg.Host, cfg.Port, cfg.Database, cfg.ConnectTimeoutSeconds)

	gormConfig := &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   gormlogger.Default.LogMode(gormLogLevel(cfg.LogLevel)),
		PrepareStmt:                              true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}

	db, err := gorm.Open(mysql.Open(dsn), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("连接MySQL失败: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取底层 sql.DB 失败: %w", err)
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)

	if err := db.Use(NewGormTracingPlugin(cfg.Database)); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("注册追踪插件失败: %w", err)
	}

	if err := db.Session(&gorm.Session{Logger: gormlogger.Discard}).
		AutoMigrate(&models.ScreeningSession{}, &models.OutboxMessage{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("自动迁移数据库结构失败: %w", err)
	}

	m := &MySQL{db: db, cfg: cfg}
	for _, opt := range opts {
		opt(m)
	}
	logger.Info().Str("host", cfg.Host).Str("database", cfg.Database).Msg("成功连接到MySQL并完成表结构迁移")
	return m, nil
}

func gormLogLevel(level int) gormlogger.LogLevel {
	switch level {
	case 1:
		return gormlogger.Silent
	case 2:
		return gormlogger.Error
	case 3:
		return gormlogger.Warn
	case 4:
		return gormlogger.Info
	default:
		return gormlogger.Error
	}
}

// Name 实现 Sink
func (m *MySQL) Name() string { return "mysql" }

// DB 返回GORM数据库连接实例
func (m *MySQL) DB() *gorm.DB {
	return m.db
}

// Close 关闭数据库连接
func (m *MySQL) Close() error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return fmt.Errorf("获取底层 sql.DB 失败: %w", err)
	}
	return sqlDB.Close()
}

// Write 以 session_id 幂等写入会话结果；启用发件箱时事件与结果同事务提交
func (m *MySQL) Write(ctx context.Context, record *ScreeningRecord) error {
	transcriptObject := ""
	if m.archiveBucket != "" {
		transcriptObject = m.archiveBucket + "/" + TranscriptObjectKey(record.SessionID)
	}

	row, err := newScreeningSessionRow(record, transcriptObject)
	if err != nil {
		return err
	}

	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(row).Error; err != nil {
			return fmt.Errorf("写入 screening_sessions 失败: %w", err)
		}
		if m.outbox == nil {
			return nil
		}
		msg, err := newOutboxMessage(record, *m.outbox, transcriptObject)
		if err != nil {
			return err
		}
		if err := tx.Create(msg).Error; err != nil {
			return fmt.Errorf("写入 outbox_messages 失败: %w", err)
		}
		return nil
	})
}

func newScreeningSessionRow(record *ScreeningRecord, transcriptObject string) (*models.ScreeningSession, error) {
	techJSON, err := json.Marshal(record.techStack())
	if err != nil {
		return nil, fmt.Errorf("技术栈序列化失败: %w", err)
	}
	p := record.Profile
	return &models.ScreeningSession{
		SessionID:        record.SessionID,
		CandidateIDHash:  record.CandidateIDHash,
		FullName:         optional(p.FullName),
		Email:            optional(p.Email),
		Phone:            optional(p.Phone),
		YearsExperience:  optional(p.YearsExperience),
		DesiredPosition:  optional(p.DesiredPosition),
		Location:         optional(p.Location),
		TechStackJSON:    datatypes.JSON(techJSON),
		MessageCount:     record.MessageCount,
		TranscriptObject: transcriptObject,
		ScreenedAt:       record.CreatedAt,
	}, nil
}

func newOutboxMessage(record *ScreeningRecord, target OutboxTarget, transcriptObject string) (*models.OutboxMessage, error) {
	payload, err := json.Marshal(NewScreeningCompletedMessage(record, transcriptObject))
	if err != nil {
		return nil, fmt.Errorf("事件序列化失败: %w", err)
	}
	return &models.OutboxMessage{
		AggregateID:      record.SessionID,
		EventType:        EventScreeningCompleted,
		Payload:          string(payload),
		TargetExchange:   target.Exchange,
		TargetRoutingKey: target.RoutingKey,
		Status:           models.OutboxStatusPending,
	}, nil
}
