package middleware

import (
	"context"
	"strings"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/google/uuid"

	"agent-chat/pkg/log"
)

const (
	// HeaderRequestID 请求 ID 头，客户端传入则沿用，否则生成
	HeaderRequestID = "X-Request-ID"
	// HeaderTraceID 开启链路追踪时回写的 trace id
	HeaderTraceID = "X-Trace-ID"

	requestIDKey = "request_id"
)

// Middleware 中间件管理器
type Middleware struct {
	logger       *log.Logger
	allowOrigins []string
}

// NewMiddleware 创建新的中间件管理器；allowOrigins 为空时允许任意来源
func NewMiddleware(logger *log.Logger, allowOrigins []string) *Middleware {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Middleware{logger: logger, allowOrigins: allowOrigins}
}

// RequestID 为每个请求确定 X-Request-ID，写入上下文与响应头
func (m *Middleware) RequestID() app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		id := strings.TrimSpace(string(c.GetHeader(HeaderRequestID)))
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Response.Header.Set(HeaderRequestID, id)
		c.Next(ctx)
	}
}

// GetRequestID 读取 RequestID 中间件设置的请求 ID；未经过中间件时返回空串
func GetRequestID(c *app.RequestContext) string {
	return c.GetString(requestIDKey)
}

// AccessLog 请求结束后记录方法、路径、状态码与耗时
func (m *Middleware) AccessLog() app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		start := time.Now()
		c.Next(ctx)

		status := c.Response.StatusCode()
		attrs := []any{
			"request_id", GetRequestID(c),
			"method", string(c.Method()),
			"path", string(c.Path()),
			"status", status,
			"duration", time.Since(start),
			"client_ip", c.ClientIP(),
		}
		if status >= consts.StatusInternalServerError {
			m.logger.Warn("http 请求", attrs...)
			return
		}
		m.logger.Info("http 请求", attrs...)
	}
}

// CORS CORS 中间件
func (m *Middleware) CORS() app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		origin := string(c.GetHeader("Origin"))
		if allowed := m.allowOrigin(origin); allowed != "" {
			c.Header("Access-Control-Allow-Origin", allowed)
			c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, "+HeaderRequestID)
			c.Header("Access-Control-Expose-Headers", "Content-Length, "+HeaderRequestID)
			c.Header("Access-Control-Max-Age", "86400")
		}

		if string(c.Method()) == consts.MethodOptions {
			c.AbortWithStatus(consts.StatusNoContent)
			return
		}

		c.Next(ctx)
	}
}

func (m *Middleware) allowOrigin(origin string) string {
	if len(m.allowOrigins) == 0 {
		return "*"
	}
	for _, o := range m.allowOrigins {
		if o == "*" || strings.EqualFold(o, origin) {
			if origin == "" {
				return o
			}
			return origin
		}
	}
	return ""
}
