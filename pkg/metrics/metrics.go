package metrics

import (
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// 全局 Registry，API 层注册与暴露
var DefaultRegistry = prometheus.NewRegistry()

func init() {
	DefaultRegistry.MustRegister(
		TurnDuration, TurnTotal,
		NodeTotal, NodeDuration,
		ToolDuration, ToolFailTotal,
		LLMTokensTotal, LLMRateLimitWaitSeconds,
		ConstraintViolationTotal,
	)
}

// TurnDuration 单轮对话处理耗时（秒）
var TurnDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "trip_turn_duration_seconds",
		Help:    "单轮对话处理耗时（秒）",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"terminal_node"},
)

// TurnTotal 处理轮次总数（按结果）
var TurnTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "trip_turn_total",
		Help: "处理轮次总数（按结果）",
	},
	[]string{"status"}, // completed | clarify | violated | failed
)

// NodeTotal 图节点执行总数
var NodeTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "trip_node_total",
		Help: "图节点执行总数",
	},
	[]string{"node", "status"}, // status: ok | error
)

// NodeDuration 图节点执行耗时（秒）
var NodeDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "trip_node_duration_seconds",
		Help:    "图节点执行耗时（秒）",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"node"},
)

// ToolDuration 工具调用耗时（秒）
var ToolDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "trip_tool_duration_seconds",
		Help:    "工具调用耗时（秒）",
		Buckets: []float64{.1, .5, 1, 2.5, 5, 10, 30, 60, 120, 300},
	},
	[]string{"tool"},
)

// ToolFailTotal 工具调用失败总数
var ToolFailTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "trip_tool_fail_total",
		Help: "工具调用失败总数",
	},
	[]string{"tool"},
)

// LLMTokensTotal LLM 调用 token 数（估算值）
var LLMTokensTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "trip_llm_tokens_total",
		Help: "LLM 调用 token 总数（估算值）",
	},
	[]string{"provider", "model"},
)

// LLMRateLimitWaitSeconds LLM 限流等待时间（秒），仅记录超过 100ms 的等待
var LLMRateLimitWaitSeconds = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "trip_llm_rate_limit_wait_seconds",
		Help:    "LLM 限流等待时间（秒）",
		Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10},
	},
	[]string{"provider"},
)

// ConstraintViolationTotal 时间约束校验失败总数
var ConstraintViolationTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "trip_constraint_violation_total",
		Help: "时间约束校验失败总数",
	},
)

// WritePrometheus 将 Prometheus 文本格式写入 w（供 Hertz 复用）
func WritePrometheus(w io.Writer) error {
	metrics, err := DefaultRegistry.Gather()
	if err != nil {
		return err
	}
	enc := expfmt.NewEncoder(w, expfmt.FmtText)
	for _, mf := range metrics {
		if err := enc.Encode(mf); err != nil {
			return err
		}
	}
	return nil
}
