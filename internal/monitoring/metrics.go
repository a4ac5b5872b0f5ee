// Package monitoring 暴露 Prometheus 指标。
package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 汇集服务的业务和 HTTP 指标。
// 指标注册在私有 registry 上，多个实例互不冲突。
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	EmailsFetched     prometheus.Counter
	FetchFailures     prometheus.Counter
	SummariesCreated  *prometheus.CounterVec
	SummaryFailures   prometheus.Counter
	EmailsSent        prometheus.Counter
	SendFailures      prometheus.Counter
	ActiveSessions    prometheus.Gauge
	AttachmentsStored prometheus.Counter
}

// NewMetrics 创建指标集合
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,

		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mailsuite_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mailsuite_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		EmailsFetched: factory.NewCounter(prometheus.CounterOpts{
			Name: "mailsuite_emails_fetched_total",
			Help: "Total number of emails fetched and stored",
		}),
		FetchFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "mailsuite_fetch_failures_total",
			Help: "Total number of emails that failed to fetch or parse",
		}),
		SummariesCreated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mailsuite_summaries_created_total",
				Help: "Total number of summaries generated",
			},
			[]string{"scope"},
		),
		SummaryFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "mailsuite_summary_failures_total",
			Help: "Total number of failed summarization attempts",
		}),
		EmailsSent: factory.NewCounter(prometheus.CounterOpts{
			Name: "mailsuite_emails_sent_total",
			Help: "Total number of emails sent",
		}),
		SendFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "mailsuite_send_failures_total",
			Help: "Total number of failed send attempts",
		}),
		ActiveSessions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "mailsuite_active_sessions",
			Help: "Number of active mail sessions",
		}),
		AttachmentsStored: factory.NewCounter(prometheus.CounterOpts{
			Name: "mailsuite_attachments_stored_total",
			Help: "Total number of attachments saved to disk",
		}),
	}
}

// Handler 返回 /metrics 的 HTTP 处理器
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// GinMiddleware 记录每个请求的计数和耗时
func (m *Metrics) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		m.HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		m.HTTPRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}
