package metrics

import (
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// 全局 Registry，供 API 注册与暴露
var DefaultRegistry = prometheus.NewRegistry()

func init() {
	DefaultRegistry.MustRegister(
		ChatRequestTotal, ChatDuration, AgentTurns,
		ModelDuration, ToolDuration, ToolFailTotal,
	)
}

// ChatRequestTotal 对话请求总数（按结果）
var ChatRequestTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "agent_chat_request_total",
		Help: "对话请求总数（按结果）",
	},
	[]string{"outcome"}, // success | invalid | error
)

// ChatDuration 对话请求耗时（秒）
var ChatDuration = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "agent_chat_duration_seconds",
		Help:    "对话请求耗时（秒）",
		Buckets: prometheus.DefBuckets,
	},
)

// AgentTurns 单次请求内模型调用次数
var AgentTurns = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "agent_chat_turns",
		Help:    "单次请求内模型调用次数",
		Buckets: []float64{1, 2, 3, 5, 8, 13, 21},
	},
)

// ModelDuration 模型调用耗时（秒）
var ModelDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "agent_chat_model_duration_seconds",
		Help:    "模型调用耗时（秒）",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"status"}, // ok | error
)

// ToolDuration 工具调用耗时（秒）
var ToolDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "agent_chat_tool_duration_seconds",
		Help:    "工具调用耗时（秒）",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"tool"},
)

// ToolFailTotal 工具失败次数（失败结果已回传给模型，不终止请求）
var ToolFailTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "agent_chat_tool_fail_total",
		Help: "工具失败次数",
	},
	[]string{"tool"},
)

// WritePrometheus 将 Prometheus 文本格式写入 w（供 Hertz 等复用）
func WritePrometheus(w io.Writer) error {
	metrics, err := DefaultRegistry.Gather()
	if err != nil {
		return err
	}
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range metrics {
		if err := enc.Encode(mf); err != nil {
			return err
		}
	}
	return nil
}

// ContentType Prometheus 文本格式的 Content-Type
func ContentType() string {
	return string(expfmt.NewFormat(expfmt.TypeTextPlain))
}
