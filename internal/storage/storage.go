package storage

import (
	"context"
	"fmt"

	"talent-scout-go/internal/config"
	"talent-scout-go/internal/logger"
	"talent-scout-go/internal/metrics"
)

// Storage 存储管理器，聚合所有存储相关依赖。
// Local 必定存在；其余后端按配置启用，初始化失败只记录警告，不阻止启动。
type Storage struct {
	Local    *LocalStore
	MySQL    *MySQL
	MinIO    *MinIO
	RabbitMQ *RabbitMQ
	Redis    *Redis
}

// NewStorage 创建存储管理器
func NewStorage(ctx context.Context, cfg *config.Config) (*Storage, error) {
	if cfg == nil {
		return nil, fmt.Errorf("配置不能为空")
	}

	local, err := NewLocalStore(cfg.Storage.DataDir)
	if err != nil {
		return nil, fmt.Errorf("初始化本地存储失败: %w", err)
	}
	s := &Storage{Local: local}

	if cfg.MinIO.Enabled {
		if s.MinIO, err = NewMinIO(ctx, &cfg.MinIO); err != nil {
			logger.Warn().Err(err).Msg("初始化MinIO失败，对话记录不会归档")
		}
	}

	if cfg.RabbitMQ.Enabled {
		if s.RabbitMQ, err = NewRabbitMQ(&cfg.RabbitMQ); err != nil {
			logger.Warn().Err(err).Msg("初始化RabbitMQ失败，筛选结束事件不会发布")
		}
	}

	if cfg.MySQL.Enabled {
		var opts []MySQLOption
		if s.RabbitMQ != nil {
			opts = append(opts, WithOutbox(s.RabbitMQ.Exchange(), s.RabbitMQ.RoutingKey()))
		}
		if s.MinIO != nil {
			opts = append(opts, WithTranscriptArchive(s.MinIO.Bucket()))
		}
		if s.MySQL, err = NewMySQL(&cfg.MySQL, opts...); err != nil {
			logger.Warn().Err(err).Msg("初始化MySQL失败，会话结果只写入本地")
		}
	}

	if cfg.Redis.Enabled || cfg.Session.MemoryBackend == "redis" {
		if s.Redis, err = NewRedisAdapter(ctx, &cfg.Redis); err != nil {
			logger.Warn().Err(err).Msg("初始化Redis失败，对话记录改用进程内存")
		}
	}

	return s, nil
}

// Sinks 返回已启用的外部存储。
// MySQL 启用发件箱时事件由 outbox 中继投递，此时不再直接发布到 RabbitMQ。
func (s *Storage) Sinks() []Sink {
	var sinks []Sink
	if s.MySQL != nil {
		sinks = append(sinks, s.MySQL)
	}
	if s.MinIO != nil {
		sinks = append(sinks, s.MinIO)
	}
	if s.RabbitMQ != nil && (s.MySQL == nil || s.MySQL.outbox == nil) {
		sinks = append(sinks, s.RabbitMQ)
	}
	return sinks
}

// NewSaver 以本地存储为主、外部存储为辅组装 Saver
func (s *Storage) NewSaver(recorder metrics.Recorder) *CompositeSaver {
	return NewCompositeSaver(s.Local, WithSinks(s.Sinks()...), WithRecorder(recorder))
}

// Close 关闭所有连接
func (s *Storage) Close() {
	if s.RabbitMQ != nil {
		if err := s.RabbitMQ.Close(); err != nil {
			logger.Warn().Err(err).Msg("关闭RabbitMQ连接失败")
		}
	}
	if s.MySQL != nil {
		if err := s.MySQL.Close(); err != nil {
			logger.Warn().Err(err).Msg("关闭MySQL连接失败")
		}
	}
	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			logger.Warn().Err(err).Msg("关闭Redis连接失败")
		}
	}
}
