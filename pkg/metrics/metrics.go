// Package metrics 提供 Prometheus helper，包含 HTTP 与业务 counter/histogram 模板
package metrics

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/wyfcoding/scholarpay/pkg/logger"
)

// Metrics 指标集合
type Metrics struct {
	// HTTP 请求计数
	HTTPRequestsTotal prometheus.Counter
	// HTTP 请求耗时
	HTTPRequestDuration prometheus.Histogram

	// 报名提交成功计数
	ApplicationsSubmitted prometheus.Counter
	// 重复报名被拒计数
	ApplicationsDuplicate prometheus.Counter

	// 支付发起成功计数
	PaymentsInitiated prometheus.Counter
	// 支付完成计数
	PaymentsCompleted prometheus.Counter
	// 支付失败计数
	PaymentsFailed prometheus.Counter

	// 网关调用计数
	GatewayRequestsTotal prometheus.Counter
	// 网关调用失败计数
	GatewayErrorsTotal prometheus.Counter
	// 无法识别的网关状态计数
	GatewayUnrecognizedStates prometheus.Counter

	// 通知发送成功计数
	NotificationsSent prometheus.Counter
	// 通知发送失败计数
	NotificationsFailed prometheus.Counter
}

// New 创建指标实例
func New(serviceName string) *Metrics {
	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "scholarpay",
			Subsystem: serviceName,
			Name:      name,
			Help:      help,
		})
	}

	return &Metrics{
		HTTPRequestsTotal: counter("http_requests_total", "Total HTTP requests"),
		HTTPRequestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "scholarpay",
			Subsystem: serviceName,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),

		ApplicationsSubmitted: counter("applications_submitted_total", "Applications persisted"),
		ApplicationsDuplicate: counter("applications_duplicate_total", "Submissions rejected as duplicates"),

		PaymentsInitiated: counter("payments_initiated_total", "Payment orders created at the gateway"),
		PaymentsCompleted: counter("payments_completed_total", "Payment orders reconciled as completed"),
		PaymentsFailed:    counter("payments_failed_total", "Payment orders reconciled as failed"),

		GatewayRequestsTotal:      counter("gateway_requests_total", "Outbound gateway calls"),
		GatewayErrorsTotal:        counter("gateway_errors_total", "Failed outbound gateway calls"),
		GatewayUnrecognizedStates: counter("gateway_unrecognized_states_total", "Gateway states outside the known vocabulary"),

		NotificationsSent:   counter("notifications_sent_total", "Confirmation notifications sent"),
		NotificationsFailed: counter("notifications_failed_total", "Confirmation notifications failed"),
	}
}

// Register 注册全部指标
func (m *Metrics) Register() error {
	collectors := []prometheus.Collector{
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.ApplicationsSubmitted,
		m.ApplicationsDuplicate,
		m.PaymentsInitiated,
		m.PaymentsCompleted,
		m.PaymentsFailed,
		m.GatewayRequestsTotal,
		m.GatewayErrorsTotal,
		m.GatewayUnrecognizedStates,
		m.NotificationsSent,
		m.NotificationsFailed,
	}

	for _, c := range collectors {
		if err := prometheus.Register(c); err != nil {
			return fmt.Errorf("failed to register collector: %w", err)
		}
	}
	return nil
}

// StartHTTPServer 启动独立的指标 HTTP 服务
func StartHTTPServer(port int, path string) error {
	mux := http.NewServeMux()
	mux.Handle(path, promhttp.Handler())

	addr := fmt.Sprintf(":%d", port)
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			logger.Error(context.Background(), "Metrics HTTP server error", "error", err)
		}
	}()

	logger.Info(context.Background(), "Metrics HTTP server started", "addr", addr, "path", path)
	return nil
}
