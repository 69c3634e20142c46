package metrics

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 未匹配任何路由的请求统一归入该标签，避免任意 URL 撑爆时间序列。
const unmatchedRoute = "unmatched"

var (
	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "magicyan",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP 请求耗时分布（秒），按功能面与路由分类。",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"surface", "method", "route", "status"},
	)

	requestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "magicyan",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP 请求总数。",
		},
		[]string{"surface", "method", "route", "status"},
	)

	requestsInFlight = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "magicyan",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "当前正在处理的 HTTP 请求数量（预览 websocket 会长期占用）。",
		},
		[]string{"surface"},
	)
)

// Surface 把路由模板映射到功能面：/v1/preview/:id/ws -> preview，/health -> health。
func Surface(route string) string {
	if route == "" {
		return unmatchedRoute
	}
	parts := strings.Split(strings.Trim(route, "/"), "/")
	if len(parts) > 1 && parts[0] == "v1" {
		return parts[1]
	}
	if parts[0] == "" {
		return "root"
	}
	return parts[0]
}

// GinMiddleware 为 Gin 路由注册 Prometheus 指标采集逻辑。
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		route := c.FullPath()
		surface := Surface(route)
		if route == "" {
			route = unmatchedRoute
		}

		inFlight := requestsInFlight.WithLabelValues(surface)
		inFlight.Inc()
		defer inFlight.Dec()

		c.Next()

		status := strconv.Itoa(c.Writer.Status())
		requestDuration.WithLabelValues(surface, c.Request.Method, route, status).Observe(time.Since(start).Seconds())
		requestTotal.WithLabelValues(surface, c.Request.Method, route, status).Inc()
	}
}
