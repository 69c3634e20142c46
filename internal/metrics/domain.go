package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	iconResolutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "magicyan",
			Subsystem: "icons",
			Name:      "resolutions_total",
			Help:      "图标解析次数，按结果分类。",
		},
		[]string{"outcome"},
	)

	handshakes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "magicyan",
			Subsystem: "channel",
			Name:      "handshakes_total",
			Help:      "预览窗口握手次数，按结果分类。",
		},
		[]string{"outcome"},
	)

	rendersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "magicyan",
			Subsystem: "render",
			Name:      "documents_total",
			Help:      "渲染文档次数，按目标分类。",
		},
		[]string{"target"},
	)
)

// 图标解析结果。
const (
	IconInline  = "inline"
	IconCached  = "cached"
	IconFetched = "fetched"
	IconFailed  = "failed"
	IconInvalid = "invalid"
)

// 握手结果。
const (
	HandshakeInline    = "inline"
	HandshakeDelivered = "delivered"
	HandshakeTimedOut  = "timed_out"
	HandshakeCancelled = "cancelled"
)

// ObserveIconResolution 记录一次图标解析。
func ObserveIconResolution(outcome string) {
	iconResolutions.WithLabelValues(outcome).Inc()
}

// ObserveHandshake 记录一次跨窗口握手结果。
func ObserveHandshake(outcome string) {
	handshakes.WithLabelValues(outcome).Inc()
}

// ObserveRender 记录一次渲染，target 为 preview 或 paged。
func ObserveRender(target string) {
	rendersTotal.WithLabelValues(target).Inc()
}
