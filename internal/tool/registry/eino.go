package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	einotool "github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"

	"agent-chat/internal/tool"
	"agent-chat/pkg/log"
	"agent-chat/pkg/metrics"
	"agent-chat/pkg/tracing"
)

// EinoTools 将注册表中的工具适配为 eino InvokableTool，供 ToolsNode 使用
func (r *Registry) EinoTools(logger *log.Logger) []einotool.BaseTool {
	list := r.List()
	out := make([]einotool.BaseTool, 0, len(list))
	for _, t := range list {
		out = append(out, NewEinoTool(t, logger))
	}
	return out
}

// ToolInfos 返回绑定到模型的工具声明
func (r *Registry) ToolInfos() []*schema.ToolInfo {
	list := r.List()
	out := make([]*schema.ToolInfo, 0, len(list))
	for _, t := range list {
		out = append(out, ToolInfo(t))
	}
	return out
}

// ToolInfo 由 tool.Schema 生成 eino ToolInfo
func ToolInfo(t tool.Tool) *schema.ToolInfo {
	s := t.Schema()
	required := make(map[string]bool, len(s.Required))
	for _, name := range s.Required {
		required[name] = true
	}
	params := make(map[string]*schema.ParameterInfo, len(s.Properties))
	for name, prop := range s.Properties {
		params[name] = &schema.ParameterInfo{
			Type:     schema.DataType(prop.Type),
			Desc:     prop.Description,
			Required: required[name],
		}
	}
	return &schema.ToolInfo{
		Name:        t.Name(),
		Desc:        t.Description(),
		ParamsOneOf: schema.NewParamsOneOfByParams(params),
	}
}

// einoTool 工具失败（参数错误、执行错误）一律转为 tool 消息内容返回，
// 只有 context 取消才作为 error 终止整个图
type einoTool struct {
	t      tool.Tool
	logger *log.Logger
}

var _ einotool.InvokableTool = (*einoTool)(nil)

// NewEinoTool 包装单个工具
func NewEinoTool(t tool.Tool, logger *log.Logger) einotool.InvokableTool {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &einoTool{t: t, logger: logger}
}

func (e *einoTool) Info(_ context.Context) (*schema.ToolInfo, error) {
	return ToolInfo(e.t), nil
}

func (e *einoTool) InvokableRun(ctx context.Context, argumentsInJSON string, _ ...einotool.Option) (string, error) {
	name := e.t.Name()
	input := map[string]any{}
	if argumentsInJSON != "" {
		if err := json.Unmarshal([]byte(argumentsInJSON), &input); err != nil {
			metrics.ToolFailTotal.WithLabelValues(name).Inc()
			return ErrorContent(fmt.Errorf("invalid arguments for %s: %v", name, err)), nil
		}
	}

	ctx, span := tracing.StartToolSpan(ctx, name)
	start := time.Now()
	res, err := e.t.Execute(ctx, input)
	metrics.ToolDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	tracing.EndSpan(span, err)

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		metrics.ToolFailTotal.WithLabelValues(name).Inc()
		e.logger.Warn("工具执行失败", "tool", name, "error", err, "duration", time.Since(start))
		return ErrorContent(err), nil
	}
	if res.Err != "" {
		metrics.ToolFailTotal.WithLabelValues(name).Inc()
		e.logger.Warn("工具返回错误", "tool", name, "error", res.Err)
		return "Error: " + res.Err, nil
	}
	e.logger.Debug("工具执行完成", "tool", name, "output_bytes", len(res.Content), "duration", time.Since(start))
	return res.Content, nil
}
