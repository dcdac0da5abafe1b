// Copyright 2026 fanjia1024
// OpenTelemetry spans for the agent loop

package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "agent-chat"

func tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// StartChatSpan 开始一次对话请求 span
func StartChatSpan(ctx context.Context, requestID string, historyLen int) (context.Context, trace.Span) {
	return tracer().Start(ctx, "chat.request",
		trace.WithAttributes(
			attribute.String("chat.request_id", requestID),
			attribute.Int("chat.history_len", historyLen),
		),
	)
}

// StartModelSpan 开始模型调用 span
func StartModelSpan(ctx context.Context, messages int) (context.Context, trace.Span) {
	return tracer().Start(ctx, "model.generate",
		trace.WithAttributes(
			attribute.Int("model.input_messages", messages),
		),
	)
}

// StartToolSpan 开始 tool invocation span
func StartToolSpan(ctx context.Context, toolName string) (context.Context, trace.Span) {
	return tracer().Start(ctx, "tool.invoke",
		trace.WithAttributes(
			attribute.String("tool.name", toolName),
		),
	)
}

// EndSpan 结束 span，err 非空时记录错误状态
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
