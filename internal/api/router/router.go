package router

import (
	"context"
	"crypto/subtle"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/adaptor"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/hertz-contrib/keyauth"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"talent-scout-go/internal/api/handler"
	"talent-scout-go/internal/logger"
)

// APIKeyHeader 客户端携带 API Key 的请求头
const APIKeyHeader = "X-API-Key"

// Options 路由配置
type Options struct {
	APIKeys     []string // 为空时不校验
	MetricsPath string   // 为空时不暴露指标
	Gatherer    prometheus.Gatherer
}

// RegisterRoutes 注册 API 路由
func RegisterRoutes(h *server.Hertz, sessionHandler *handler.SessionHandler, opts Options) {
	if opts.MetricsPath != "" {
		gatherer := opts.Gatherer
		if gatherer == nil {
			gatherer = prometheus.DefaultGatherer
		}
		h.GET(opts.MetricsPath, adaptor.HertzHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	api := h.Group("/api/v1")
	api.GET("/health", sessionHandler.Health)

	sessions := api.Group("/sessions")
	if len(opts.APIKeys) > 0 {
		sessions.Use(APIKeyAuth(opts.APIKeys))
	}
	sessions.POST("", sessionHandler.CreateSession)
	sessions.POST("/:id/messages", sessionHandler.SendMessage)
	sessions.GET("/:id/status", sessionHandler.GetStatus)
	sessions.POST("/:id/resume", sessionHandler.UploadResume)
	sessions.DELETE("/:id", sessionHandler.DeleteSession)
}

// APIKeyAuth 校验 X-API-Key 请求头
func APIKeyAuth(keys []string) app.HandlerFunc {
	allowed := make([][]byte, 0, len(keys))
	for _, k := range keys {
		if k != "" {
			allowed = append(allowed, []byte(k))
		}
	}

	return keyauth.New(
		keyauth.WithKeyLookUp("header:"+APIKeyHeader, ""),
		keyauth.WithValidator(func(_ context.Context, _ *app.RequestContext, key string) (bool, error) {
			for _, k := range allowed {
				if subtle.ConstantTimeCompare(k, []byte(key)) == 1 {
					return true, nil
				}
			}
			return false, nil
		}),
		keyauth.WithErrorHandler(func(c context.Context, ctx *app.RequestContext, err error) {
			logger.Warn().Err(err).Str("path", string(ctx.Path())).Msg("API Key 校验失败")
			ctx.AbortWithStatusJSON(consts.StatusUnauthorized, utils.H{"error": "unauthorized"})
		}),
	)
}
