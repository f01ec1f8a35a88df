package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"talent-scout-go/internal/constants"
	"talent-scout-go/internal/logger"
)

// LocalStore 本地 JSON 持久化。
// <data_dir>/candidates 存放含 PII 的资料（仅属主可读），<data_dir>/sessions 存放脱敏会话记录。
type LocalStore struct {
	dataDir string
}

var _ Sink = (*LocalStore)(nil)

// NewLocalStore 创建目录结构
func NewLocalStore(dataDir string) (*LocalStore, error) {
	if dataDir == "" {
		return nil, fmt.Errorf("数据目录不能为空")
	}
	if err := os.MkdirAll(filepath.Join(dataDir, constants.CandidatesDir), 0o700); err != nil {
		return nil, fmt.Errorf("创建候选人目录失败: %w", err)
	}
	if err := os.MkdirAll(filepath.Join(dataDir, constants.SessionsDir), 0o755); err != nil {
		return nil, fmt.Errorf("创建会话目录失败: %w", err)
	}
	return &LocalStore{dataDir: dataDir}, nil
}

// Name 实现 Sink
func (l *LocalStore) Name() string { return "local" }

// CandidatePath 候选人资料文件路径
func (l *LocalStore) CandidatePath(sessionID string) string {
	return filepath.Join(l.dataDir, constants.CandidatesDir, sessionID+".json")
}

// SessionPath 脱敏会话文件路径
func (l *LocalStore) SessionPath(sessionID string) string {
	return filepath.Join(l.dataDir, constants.SessionsDir, sessionID+"_session.json")
}

// Write 先写候选人资料，再写会话记录
func (l *LocalStore) Write(ctx context.Context, record *ScreeningRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := writeJSON(l.CandidatePath(record.SessionID), record.CandidateDocument(), 0o600); err != nil {
		return fmt.Errorf("写入候选人资料失败: %w", err)
	}
	if err := writeJSON(l.SessionPath(record.SessionID), record.SessionDocument(), 0o644); err != nil {
		return fmt.Errorf("写入会话记录失败: %w", err)
	}
	logger.Debug().
		Str("session_id", record.SessionID).
		Str("dir", l.dataDir).
		Msg("本地会话文件已写入")
	return nil
}

// writeJSON 缩进 2 空格，非 ASCII 字符原样输出
func writeJSON(path string, v any, perm os.FileMode) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("JSON序列化失败: %w", err)
	}
	return os.WriteFile(path, buf.Bytes(), perm)
}
