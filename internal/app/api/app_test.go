package api

import (
	"bytes"
	"context"
	"net"
	nethttp "net/http"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/cloudwego/hertz/pkg/common/ut"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agent-chat/internal/api/http/middleware"
	"agent-chat/internal/app"
	"agent-chat/internal/runtime/eino"
	"agent-chat/pkg/config"
)

type fixedModel struct {
	reply string
}

func (m fixedModel) Generate(context.Context, []*schema.Message, ...model.Option) (*schema.Message, error) {
	return schema.AssistantMessage(m.reply, nil), nil
}

func (m fixedModel) Stream(context.Context, []*schema.Message, ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return schema.StreamReaderFromArray([]*schema.Message{schema.AssistantMessage(m.reply, nil)}), nil
}

func (m fixedModel) WithTools([]*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	return m, nil
}

func newTestApp(t *testing.T, mutate func(*config.Config)) *App {
	t.Helper()
	cfg := config.Default()
	cfg.Log.Level = "error"
	cfg.Secrets.Provider = "memory"
	cfg.API.UIDir = ""
	if mutate != nil {
		mutate(cfg)
	}
	b, err := app.NewBootstrap(cfg)
	require.NoError(t, err)
	a, err := NewApp(context.Background(), b, eino.WithChatModel(fixedModel{reply: "4"}))
	require.NoError(t, err)
	return a
}

func TestApp_ChatRoute(t *testing.T) {
	a := newTestApp(t, nil)
	h := a.Build(":0")

	body := []byte(`{"content":"What is 2+2?","history":[]}`)
	w := ut.PerformRequest(h.Engine, "POST", "/api/chat", &ut.Body{Body: bytes.NewReader(body), Len: len(body)})
	require.Equal(t, 200, w.Result().StatusCode())
	assert.JSONEq(t, `{"success":true,"result":"4"}`, string(w.Result().Body()))

	assert.Equal(t, []string{"run_command"}, a.Engine().Tools().Names())
}

func TestApp_HealthAndMetrics(t *testing.T) {
	a := newTestApp(t, func(c *config.Config) { c.Monitoring.Prometheus.Enable = false })
	h := a.Build(":0")

	w := ut.PerformRequest(h.Engine, "GET", "/api/health", &ut.Body{Body: bytes.NewReader(nil), Len: 0})
	assert.Equal(t, 200, w.Result().StatusCode())

	w = ut.PerformRequest(h.Engine, "GET", "/metrics", &ut.Body{Body: bytes.NewReader(nil), Len: 0})
	assert.Equal(t, 404, w.Result().StatusCode())
}

func TestApp_TracingWithoutEndpoint(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	a := newTestApp(t, func(c *config.Config) { c.Monitoring.Tracing.Enable = true })
	h := a.Build(":0")
	require.NotNil(t, h)
	assert.Nil(t, a.otelProvider)
}

func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}

// 服务端 tracer 只在真实监听的请求上触发，因此这里启动服务而不是用 ut
func TestApp_TracingMiddlewareRuns(t *testing.T) {
	a := newTestApp(t, func(c *config.Config) {
		c.Monitoring.Tracing.Enable = true
		c.Monitoring.Tracing.ExportEndpoint = "127.0.0.1:4317"
		c.Monitoring.Tracing.Insecure = true
	})
	addr := freeAddr(t)
	a.Build(addr)
	require.NotNil(t, a.otelProvider)
	go func() { _ = a.Run(addr) }()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = a.Shutdown(ctx)
	})

	const traceID = "4bf92f3577b34da6a3ce929d0e0e4736"
	var resp *nethttp.Response
	require.Eventually(t, func() bool {
		req, err := nethttp.NewRequest(nethttp.MethodGet, "http://"+addr+"/api/health", nil)
		if err != nil {
			return false
		}
		req.Header.Set("traceparent", "00-"+traceID+"-00f067aa0ba902b7-01")
		r, err := nethttp.DefaultClient.Do(req)
		if err != nil {
			return false
		}
		_ = r.Body.Close()
		resp = r
		return true
	}, 3*time.Second, 50*time.Millisecond)

	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, traceID, resp.Header.Get(middleware.HeaderTraceID))
}

func TestApp_ShutdownBeforeRun(t *testing.T) {
	a := newTestApp(t, nil)
	assert.NoError(t, a.Shutdown(context.Background()))
}

func TestNewApp_ModelNotConfigured(t *testing.T) {
	cfg := config.Default()
	cfg.Secrets.Provider = "memory"
	cfg.Model.Defaults.LLM = "missing.model"
	b, err := app.NewBootstrap(cfg)
	require.NoError(t, err)

	_, err = NewApp(context.Background(), b)
	require.Error(t, err)
}
