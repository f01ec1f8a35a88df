package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	hertzconfig "github.com/cloudwego/hertz/pkg/common/config"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	hertztracing "github.com/hertz-contrib/obs-opentelemetry/tracing"
	"github.com/spf13/pflag"

	"talent-scout-go/internal/api/handler"
	"talent-scout-go/internal/api/router"
	"talent-scout-go/internal/bootstrap"
	"talent-scout-go/internal/config"
	"talent-scout-go/internal/logger"
)

func main() {
	var configPath string
	pflag.StringVarP(&configPath, "config", "c", "", "Path to config file")
	pflag.Parse()

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		hlog.Fatalf("加载配置失败: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		hlog.Fatalf("配置校验失败: %v", err)
	}

	logger.Init(cfg.Logger)
	logger.InstallHertzLogger()
	hlog.Info("配置加载成功")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := bootstrap.New(ctx, cfg)
	if err != nil {
		hlog.Fatalf("初始化失败: %v", err)
	}
	if a.Relay != nil {
		hlog.Info("消息中继服务已启动")
	}

	registry := a.NewRegistry()
	sessionHandler := handler.NewSessionHandler(registry, a.Extractor)

	serverOpts := []hertzconfig.Option{
		server.WithHostPorts(cfg.Server.Address),
		server.WithHandleMethodNotAllowed(true),
		server.WithMaxRequestBodySize(12 << 20),
	}
	var tracerCfg *hertztracing.Config
	if cfg.Tracing.Enabled {
		var tracerOpt hertzconfig.Option
		tracerOpt, tracerCfg = hertztracing.NewServerTracer()
		serverOpts = append(serverOpts, tracerOpt)
	}

	h := server.New(serverOpts...)
	if tracerCfg != nil {
		h.Use(hertztracing.ServerMiddleware(tracerCfg))
	}
	h.Use(func(c context.Context, ctx *app.RequestContext) {
		c = logger.WithContext(c)
		start := time.Now()
		ctx.Next(c)
		logger.Info().
			Str("method", string(ctx.Method())).
			Str("path", string(ctx.Path())).
			Int("status", ctx.Response.StatusCode()).
			Dur("latency", time.Since(start)).
			Msg("HTTP 请求")
	})

	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	router.RegisterRoutes(h, sessionHandler, router.Options{
		APIKeys:     cfg.Server.APIKeys,
		MetricsPath: metricsPath,
	})
	hlog.Infof("HTTP 服务器启动中，监听地址: %s", cfg.Server.Address)

	go func() {
		if err := h.Run(); err != nil {
			hlog.Fatalf("启动HTTP服务器失败: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	hlog.Info("接收到终止信号，正在优雅退出...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := h.Shutdown(shutdownCtx); err != nil {
		hlog.Errorf("服务器关闭失败: %v", err)
	}
	// 未结束的会话直接丢弃，不做持久化
	registry.Flush()
	a.Close(shutdownCtx)
	hlog.Info("优雅退出完成")
}
