package session

import (
	"errors"
	"fmt"
)

// 会话层基础错误
var (
	ErrSessionEnded    = errors.New("会话已结束")
	ErrEmptyUtterance  = errors.New("输入不能为空")
	ErrSessionNotFound = errors.New("会话不存在或已过期")
	ErrMemoryFailed    = errors.New("对话记录读写失败")
)

// Error 带会话句柄和操作名的错误
type Error struct {
	ConversationID string
	Op             string
	BaseErr        error
	Detail         string
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s (操作:%s, 会话:%s): %s", e.BaseErr, e.Op, e.ConversationID, e.Detail)
	}
	return fmt.Sprintf("%s (操作:%s, 会话:%s)", e.BaseErr, e.Op, e.ConversationID)
}

func (e *Error) Unwrap() error {
	return e.BaseErr
}

func newMemoryError(conversationID, op string, err error) error {
	return &Error{
		ConversationID: conversationID,
		Op:             op,
		BaseErr:        ErrMemoryFailed,
		Detail:         err.Error(),
	}
}
