package api

import (
	"context"
	"fmt"
	"os"

	hertzapp "github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	hertzslog "github.com/hertz-contrib/logger/slog"
	"github.com/hertz-contrib/obs-opentelemetry/provider"
	hertztracing "github.com/hertz-contrib/obs-opentelemetry/tracing"
	"go.opentelemetry.io/otel/trace"

	"agent-chat/internal/api/http"
	"agent-chat/internal/api/http/middleware"
	"agent-chat/internal/app"
	"agent-chat/internal/runtime/eino"
	"agent-chat/pkg/config"
	"agent-chat/pkg/redaction"
)

// otelProviderShutdown 用于优雅关闭时关闭 OpenTelemetry provider
type otelProviderShutdown interface {
	Shutdown(ctx context.Context) error
}

// App API 应用（装配 eino Engine、HTTP Router、Handler、Middleware）
type App struct {
	config       *app.Bootstrap
	engine       *eino.Engine
	router       *http.Router
	hertz        *server.Hertz
	otelProvider otelProviderShutdown
}

// NewApp 创建 API 应用（由 cmd/api 调用）；opts 透传给 eino.NewEngine
func NewApp(ctx context.Context, bootstrap *app.Bootstrap, opts ...eino.EngineOption) (*App, error) {
	cfg := bootstrap.Config
	opts = append([]eino.EngineOption{eino.WithSecrets(bootstrap.Secrets)}, opts...)
	engine, err := eino.NewEngine(ctx, cfg, bootstrap.Logger, opts...)
	if err != nil {
		return nil, fmt.Errorf("初始化 eino 引擎失败: %w", err)
	}

	handler := http.NewHandler(engine, bootstrap.Logger)
	handler.SetRequestTimeout(config.ParseDuration(cfg.API.RequestTimeout, 0))
	handler.SetTranscriptRedactor(redaction.NewEngine(redaction.PolicyFromConfig(cfg.Log.Transcript)))

	mw := middleware.NewMiddleware(bootstrap.Logger, cfg.API.CORS.AllowOrigins)
	router := http.NewRouter(handler, mw)
	router.SetUIDir(cfg.API.UIDir)
	router.SetCORSEnabled(cfg.API.CORS.Enable)
	router.SetMetricsEnabled(cfg.Monitoring.Prometheus.Enable)

	if cfg.Tools.RunCommand.Enabled && len(cfg.Tools.RunCommand.AllowedPrefixes) == 0 {
		bootstrap.Logger.Warn("run_command 未配置白名单，模型可执行任意 shell 命令", "shell", cfg.Tools.RunCommand.Shell)
	}

	return &App{
		config: bootstrap,
		engine: engine,
		router: router,
	}, nil
}

// Engine eino 引擎
func (a *App) Engine() *eino.Engine {
	return a.engine
}

// Build 配置 Hertz 日志与可选链路追踪，并创建 Hertz 服务
func (a *App) Build(addr string) *server.Hertz {
	// 使用 Hertz slog 扩展，与 bootstrap 日志的输出和级别一致
	hlog.SetLogger(hertzslog.NewLogger(
		hertzslog.WithOutput(a.config.Logger.Output()),
		hertzslog.WithLevel(a.config.Logger.Level()),
	))

	tracingCfg := a.config.Config.Monitoring.Tracing
	if !tracingCfg.Enable {
		a.hertz = a.router.Build(addr)
		return a.hertz
	}
	serviceName := tracingCfg.ServiceName
	if serviceName == "" {
		serviceName = http.ServiceName
	}
	exportEndpoint := tracingCfg.ExportEndpoint
	if exportEndpoint == "" {
		exportEndpoint = os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	}
	if exportEndpoint == "" {
		a.config.Logger.Warn("链路追踪已开启但未配置 export_endpoint，跳过")
		a.hertz = a.router.Build(addr)
		return a.hertz
	}

	opts := []provider.Option{
		provider.WithServiceName(serviceName),
		provider.WithExportEndpoint(exportEndpoint),
	}
	if tracingCfg.Insecure {
		opts = append(opts, provider.WithInsecure())
	}
	a.otelProvider = provider.NewOpenTelemetryProvider(opts...)
	tracerOpt, cfg := hertztracing.NewServerTracer(hertztracing.WithCustomResponseHandler(echoTraceID))
	a.router.SetLeadingMiddleware(hertztracing.ServerMiddleware(cfg))
	a.hertz = a.router.Build(addr, tracerOpt)
	a.config.Logger.Info("链路追踪已启用", "service_name", serviceName, "endpoint", exportEndpoint)
	return a.hertz
}

// echoTraceID 把服务端 span 的 trace id 写回响应头，便于按请求检索链路
func echoTraceID(ctx context.Context, c *hertzapp.RequestContext) {
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		c.Response.Header.Set(middleware.HeaderTraceID, sc.TraceID().String())
	}
}

// Run 启动 HTTP 服务，addr 如 ":3000"
func (a *App) Run(addr string) error {
	a.config.Logger.Info("API 服务启动", "addr", addr)
	if a.hertz == nil {
		a.Build(addr)
	}
	return a.hertz.Run()
}

// Shutdown 优雅关闭（传入 ctx 以支持超时，如 cmd 层 WithTimeout）
func (a *App) Shutdown(ctx context.Context) error {
	if a.otelProvider != nil {
		_ = a.otelProvider.Shutdown(ctx)
	}
	if a.hertz != nil {
		if err := a.hertz.Shutdown(ctx); err != nil {
			return err
		}
	}
	return nil
}
