package http

import (
	"bytes"
	"context"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"agent-chat/internal/api/http/middleware"
	"agent-chat/internal/runtime/eino"
	"agent-chat/pkg/errors"
	"agent-chat/pkg/log"
	"agent-chat/pkg/metrics"
	"agent-chat/pkg/redaction"
	"agent-chat/pkg/tracing"
)

// ServiceName 健康检查返回的服务名
const ServiceName = "agent-chat"

// Chatter 运行一次对话（由 eino.Engine 实现）
type Chatter interface {
	Chat(ctx context.Context, history []eino.HistoryItem, content string) (*eino.Result, error)
}

// Handler HTTP 处理器
type Handler struct {
	chat           Chatter
	logger         *log.Logger
	requestTimeout time.Duration
	redactor       *redaction.Engine
}

// NewHandler 创建新的 HTTP 处理器
func NewHandler(chat Chatter, logger *log.Logger) *Handler {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Handler{chat: chat, logger: logger}
}

// SetRequestTimeout 单次对话总时长上限；<=0 不限制
func (h *Handler) SetRequestTimeout(d time.Duration) {
	h.requestTimeout = d
}

// SetTranscriptRedactor 开启最终消息序列的内容记录，内容按策略脱敏；nil 只记录摘要
func (h *Handler) SetTranscriptRedactor(e *redaction.Engine) {
	h.redactor = e
}

// ChatResponse 成功响应
type ChatResponse struct {
	Success bool   `json:"success"`
	Result  string `json:"result"`
}

// ErrorResponse 失败响应；Details 仅在请求校验失败时出现
type ErrorResponse struct {
	Success bool    `json:"success"`
	Error   string  `json:"error"`
	Details []Issue `json:"details,omitempty"`
}

// HealthCheck 健康检查
func (h *Handler) HealthCheck(ctx context.Context, c *app.RequestContext) {
	c.JSON(consts.StatusOK, map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().Unix(),
		"service":   ServiceName,
	})
}

// Metrics Prometheus 文本格式指标
func (h *Handler) Metrics(ctx context.Context, c *app.RequestContext) {
	var buf bytes.Buffer
	if err := metrics.WritePrometheus(&buf); err != nil {
		c.JSON(consts.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	c.Data(consts.StatusOK, metrics.ContentType(), buf.Bytes())
}

// Chat POST /api/chat
func (h *Handler) Chat(ctx context.Context, c *app.RequestContext) {
	start := time.Now()
	requestID := middleware.GetRequestID(c)

	// 不用 c.BindAndValidate：Hertz 绑定遇到第一个错误即返回，details 需要列出全部问题及其路径
	req, err := ParseChatRequest(c.Request.Body())
	if err != nil {
		var verr *ValidationError
		if !errors.As(err, &verr) {
			verr = &ValidationError{}
		}
		metrics.ChatRequestTotal.WithLabelValues("invalid").Inc()
		h.logger.Info("chat 请求校验失败", "request_id", requestID, "issues", len(verr.Issues))
		c.JSON(consts.StatusBadRequest, ErrorResponse{
			Success: false,
			Error:   "Invalid request format",
			Details: verr.Issues,
		})
		return
	}

	if h.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.requestTimeout)
		defer cancel()
	}
	ctx, span := tracing.StartChatSpan(ctx, requestID, len(req.History))
	res, err := h.chat.Chat(ctx, req.History, req.Content)
	tracing.EndSpan(span, err)
	metrics.ChatDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.ChatRequestTotal.WithLabelValues("error").Inc()
		h.logger.Error("chat 失败", "request_id", requestID, "history", len(req.History), "error", err, "duration", time.Since(start))
		c.JSON(consts.StatusInternalServerError, ErrorResponse{
			Success: false,
			Error:   err.Error(),
		})
		return
	}

	metrics.ChatRequestTotal.WithLabelValues("success").Inc()
	h.logger.Info("chat 完成",
		"request_id", requestID,
		"history", len(req.History),
		"turns", res.Turns,
		"messages", len(res.Messages),
		"duration", time.Since(start),
	)
	h.logger.Debug("chat 最终消息序列", "request_id", requestID, "transcript", describeTranscript(res.Messages, h.redactor))
	c.JSON(consts.StatusOK, ChatResponse{Success: true, Result: res.Reply()})
}

// describeTranscript 最终消息序列的日志摘要：角色、内容长度、工具调用。
// redactor 非 nil 时附带内容与工具参数，并按角色脱敏
func describeTranscript(msgs []*schema.Message, redactor *redaction.Engine) []map[string]any {
	out := make([]map[string]any, 0, len(msgs))
	for _, m := range msgs {
		entry := map[string]any{
			"role":        string(m.Role),
			"content_len": len(m.Content),
		}
		if m.ToolCallID != "" {
			entry["tool_call_id"] = m.ToolCallID
		}
		var args []string
		if len(m.ToolCalls) > 0 {
			calls := make([]string, 0, len(m.ToolCalls))
			for _, tc := range m.ToolCalls {
				calls = append(calls, tc.Function.Name)
				args = append(args, tc.Function.Arguments)
			}
			entry["tool_calls"] = calls
		}
		if redactor != nil {
			entry["content"] = m.Content
			if len(args) > 0 {
				entry["arguments"] = strings.Join(args, "\n")
			}
			redactor.Apply(string(m.Role), entry)
		}
		out = append(out, entry)
	}
	return out
}
