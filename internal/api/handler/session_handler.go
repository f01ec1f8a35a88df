package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/go-playground/validator/v10"

	"talent-scout-go/internal/constants"
	"talent-scout-go/internal/logger"
	"talent-scout-go/internal/parser"
	"talent-scout-go/internal/session"
	"talent-scout-go/internal/types"
)

var validate = validator.New()

// MessageRequest 候选人的一条输入
type MessageRequest struct {
	Message string `json:"message" validate:"required,max=4000"`
}

// CreateSessionResponse 创建会话响应
type CreateSessionResponse struct {
	ConversationID string         `json:"conversation_id"`
	Greeting       string         `json:"greeting"`
	Status         session.Status `json:"status"`
}

// MessageResponse 助手回复
type MessageResponse struct {
	Reply  string         `json:"reply"`
	Status session.Status `json:"status"`
}

// ResumeResponse 简历预填结果
type ResumeResponse struct {
	UpdatedFields []types.ProfileField `json:"updated_fields"`
	Status        session.Status       `json:"status"`
}

// SessionHandler 筛选会话的 HTTP 接口
type SessionHandler struct {
	registry  *session.Registry
	extractor parser.TextExtractor
}

// NewSessionHandler extractor 为 nil 时简历上传接口返回 503
func NewSessionHandler(registry *session.Registry, extractor parser.TextExtractor) *SessionHandler {
	return &SessionHandler{registry: registry, extractor: extractor}
}

// CreateSession POST /api/v1/sessions
func (h *SessionHandler) CreateSession(c context.Context, ctx *app.RequestContext) {
	o, greeting, err := h.registry.Create(c)
	if err != nil {
		writeError(c, ctx, err)
		return
	}
	ctx.JSON(consts.StatusCreated, CreateSessionResponse{
		ConversationID: o.ConversationID(),
		Greeting:       greeting,
		Status:         o.Status(),
	})
}

// SendMessage POST /api/v1/sessions/:id/messages
func (h *SessionHandler) SendMessage(c context.Context, ctx *app.RequestContext) {
	o, ok := h.lookup(c, ctx)
	if !ok {
		return
	}

	var req MessageRequest
	if err := ctx.Bind(&req); err != nil {
		ctx.JSON(consts.StatusBadRequest, utils.H{"error": "请求格式错误"})
		return
	}
	if err := validate.Struct(&req); err != nil {
		ctx.JSON(consts.StatusBadRequest, utils.H{"error": validationMessage(err)})
		return
	}

	reply, err := o.HandleTurn(c, req.Message)
	if err != nil {
		writeError(c, ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, MessageResponse{Reply: reply, Status: o.Status()})
}

// GetStatus GET /api/v1/sessions/:id/status
func (h *SessionHandler) GetStatus(c context.Context, ctx *app.RequestContext) {
	o, ok := h.lookup(c, ctx)
	if !ok {
		return
	}
	ctx.JSON(consts.StatusOK, o.Status())
}

// UploadResume POST /api/v1/sessions/:id/resume，multipart 字段 file
func (h *SessionHandler) UploadResume(c context.Context, ctx *app.RequestContext) {
	if h.extractor == nil {
		ctx.JSON(consts.StatusServiceUnavailable, utils.H{"error": "简历解析未启用"})
		return
	}
	o, ok := h.lookup(c, ctx)
	if !ok {
		return
	}

	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		ctx.JSON(consts.StatusBadRequest, utils.H{"error": "文件未找到"})
		return
	}
	if fileHeader.Size > constants.MaxResumeUploadBytes {
		ctx.JSON(consts.StatusRequestEntityTooLarge, utils.H{"error": "文件过大"})
		return
	}
	if !strings.EqualFold(filepath.Ext(fileHeader.Filename), ".pdf") {
		ctx.JSON(consts.StatusUnsupportedMediaType, utils.H{"error": "仅支持PDF简历"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		ctx.JSON(consts.StatusInternalServerError, utils.H{"error": "打开文件失败"})
		return
	}
	defer file.Close()

	text, err := h.extractor.ExtractText(c, io.LimitReader(file, constants.MaxResumeUploadBytes), fileHeader.Filename)
	if err != nil {
		logger.Ctx(c).Warn().Err(err).Str("conversation_id", o.ConversationID()).Msg("简历解析失败")
		ctx.JSON(consts.StatusUnprocessableEntity, utils.H{"error": "无法解析简历内容"})
		return
	}

	updated, err := o.Prefill(text)
	if err != nil {
		writeError(c, ctx, err)
		return
	}
	if updated == nil {
		updated = []types.ProfileField{}
	}
	ctx.JSON(consts.StatusOK, ResumeResponse{UpdatedFields: updated, Status: o.Status()})
}

// DeleteSession DELETE /api/v1/sessions/:id，丢弃会话且不持久化
func (h *SessionHandler) DeleteSession(c context.Context, ctx *app.RequestContext) {
	if err := h.registry.Delete(ctx.Param("id")); err != nil {
		writeError(c, ctx, err)
		return
	}
	ctx.SetStatusCode(consts.StatusNoContent)
}

// Health GET /api/v1/health
func (h *SessionHandler) Health(_ context.Context, ctx *app.RequestContext) {
	ctx.JSON(consts.StatusOK, utils.H{"status": "ok", "active_sessions": h.registry.Count()})
}

func (h *SessionHandler) lookup(c context.Context, ctx *app.RequestContext) (*session.Orchestrator, bool) {
	o, err := h.registry.Get(ctx.Param("id"))
	if err != nil {
		writeError(c, ctx, err)
		return nil, false
	}
	return o, true
}

// writeError 把会话层错误映射为 HTTP 状态码
func writeError(c context.Context, ctx *app.RequestContext, err error) {
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		ctx.JSON(consts.StatusNotFound, utils.H{"error": err.Error()})
	case errors.Is(err, session.ErrSessionEnded):
		ctx.JSON(consts.StatusConflict, utils.H{"error": err.Error()})
	case errors.Is(err, session.ErrEmptyUtterance):
		ctx.JSON(consts.StatusBadRequest, utils.H{"error": err.Error()})
	default:
		logger.Ctx(c).Error().Err(err).Str("path", string(ctx.Path())).Msg("处理请求失败")
		ctx.JSON(consts.StatusInternalServerError, utils.H{"error": "内部错误"})
	}
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err.Error()
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s 不能为空", strings.ToLower(fe.Field()))
	case "max":
		return fmt.Sprintf("%s 长度不能超过 %s", strings.ToLower(fe.Field()), fe.Param())
	default:
		return fmt.Sprintf("%s 校验失败: %s", strings.ToLower(fe.Field()), fe.Tag())
	}
}
