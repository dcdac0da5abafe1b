package http

import (
	"os"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/config"

	"agent-chat/internal/api/http/middleware"
)

// Router HTTP 路由器
type Router struct {
	handler        *Handler
	middleware     *middleware.Middleware
	uiDir          string
	corsEnabled    bool
	metricsEnabled bool
	leading        []app.HandlerFunc
}

// NewRouter 创建新的 HTTP 路由器
func NewRouter(handler *Handler, middleware *middleware.Middleware) *Router {
	return &Router{
		handler:    handler,
		middleware: middleware,
	}
}

// SetUIDir 静态页面目录；目录不存在时不挂载
func (r *Router) SetUIDir(dir string) {
	r.uiDir = dir
}

// SetCORSEnabled 是否启用 CORS 中间件
func (r *Router) SetCORSEnabled(enabled bool) {
	r.corsEnabled = enabled
}

// SetMetricsEnabled 是否暴露 GET /metrics
func (r *Router) SetMetricsEnabled(enabled bool) {
	r.metricsEnabled = enabled
}

// SetLeadingMiddleware 在所有内置中间件与路由之前注册（如链路追踪）；重复调用会替换
func (r *Router) SetLeadingMiddleware(mws ...app.HandlerFunc) {
	r.leading = mws
}

// Build 创建 Hertz 服务并注册路由；Hertz 在注册路由时固定处理链，中间件必须先于路由挂载
func (r *Router) Build(addr string, opts ...config.Option) *server.Hertz {
	opts = append([]config.Option{server.WithHostPorts(addr)}, opts...)
	h := server.Default(opts...)

	if len(r.leading) > 0 {
		h.Use(r.leading...)
	}
	h.Use(r.middleware.RequestID(), r.middleware.AccessLog())
	if r.corsEnabled {
		h.Use(r.middleware.CORS())
	}

	api := h.Group("/api")
	api.GET("/health", r.handler.HealthCheck)
	api.POST("/chat", r.handler.Chat)

	if r.metricsEnabled {
		h.GET("/metrics", r.handler.Metrics)
	}

	if r.uiDir != "" {
		if fi, err := os.Stat(r.uiDir); err == nil && fi.IsDir() {
			h.StaticFS("/", &app.FS{
				Root:       r.uiDir,
				IndexNames: []string{"app.html", "index.html"},
			})
		}
	}
	return h
}
