package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRegistry 创建自定义 Prometheus Registry，并注册常用采集器
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler 返回 Prometheus 指标 HTTP 处理器
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// AppMetrics 自定义业务指标
type AppMetrics struct {
	CommandsTotal  *prometheus.CounterVec // labels: cmd
	ResponsesTotal *prometheus.CounterVec // labels: result=ok|timeout|malformed
	BytesWritten   prometheus.Counter
	KeepaliveTotal prometheus.Counter // 保活握手成功计数
	ReconnectTotal prometheus.Counter // 保活期间重连尝试计数
	ConnectedGauge prometheus.Gauge   // 当前串口连接状态 0/1
}

// NewAppMetrics 注册并返回业务指标
func NewAppMetrics(reg *prometheus.Registry) *AppMetrics {
	m := &AppMetrics{
		CommandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tpse_commands_total",
			Help: "Commands written to the device by type.",
		}, []string{"cmd"}),
		ResponsesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tpse_responses_total",
			Help: "Command exchange outcomes.",
		}, []string{"result"}),
		BytesWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tpse_bytes_written_total",
			Help: "Total frame bytes written to the serial port.",
		}),
		KeepaliveTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tpse_keepalive_total",
			Help: "Successful keepalive handshakes.",
		}),
		ReconnectTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tpse_reconnect_total",
			Help: "Reconnect attempts during keepalive.",
		}),
		ConnectedGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tpse_connected",
			Help: "Whether the serial session is connected.",
		}),
	}
	reg.MustRegister(
		m.CommandsTotal,
		m.ResponsesTotal,
		m.BytesWritten,
		m.KeepaliveTotal,
		m.ReconnectTotal,
		m.ConnectedGauge,
	)
	return m
}
