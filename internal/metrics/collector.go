package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/BaSui01/storefront/cache"
)

// =============================================================================
// 📊 指标收集器
// =============================================================================

// Collector 指标收集器
type Collector struct {
	namespace string
	registry  prometheus.Registerer

	// HTTP 指标
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpResponseSize    *prometheus.HistogramVec

	// 缓存指标
	cacheHits      *prometheus.CounterVec
	cacheMisses    *prometheus.CounterVec
	cacheFallbacks *prometheus.CounterVec
	cacheEvictions *prometheus.CounterVec

	logger *zap.Logger
}

var _ cache.Recorder = (*Collector)(nil)

// NewCollector 创建指标收集器并注册到 registry，registry 为 nil 时使用默认注册表
func NewCollector(namespace string, registry prometheus.Registerer, logger *zap.Logger) *Collector {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	factory := promauto.With(registry)
	c := &Collector{
		namespace: namespace,
		registry:  registry,
		logger:    logger.With(zap.String("component", "metrics")),
	}

	// HTTP 指标
	c.httpRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	c.httpRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	c.httpResponseSize = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_response_size_bytes",
			Help:      "HTTP response size in bytes",
			Buckets:   prometheus.ExponentialBuckets(100, 10, 8),
		},
		[]string{"method", "path"},
	)

	// 缓存指标
	c.cacheHits = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "hits_total",
			Help:      "Total number of cache hits",
		},
		[]string{"backend"},
	)

	c.cacheMisses = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "misses_total",
			Help:      "Total number of cache misses",
		},
		[]string{"backend"},
	)

	c.cacheFallbacks = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "fallbacks_total",
			Help:      "Remote cache operations served by the in-process cache",
		},
		[]string{"op"},
	)

	c.cacheEvictions = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "evictions_total",
			Help:      "Entries removed by capacity or expiry",
		},
		[]string{"reason"},
	)

	return c
}

// =============================================================================
// 🎯 HTTP 指标记录
// =============================================================================

// RecordHTTPRequest 记录 HTTP 请求
func (c *Collector) RecordHTTPRequest(method, path string, status int, duration time.Duration, responseSize int64) {
	c.httpRequestsTotal.WithLabelValues(method, path, statusCode(status)).Inc()
	c.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	c.httpResponseSize.WithLabelValues(method, path).Observe(float64(responseSize))
}

// =============================================================================
// 💾 缓存指标记录
// =============================================================================

// RecordCacheHit 记录缓存命中
func (c *Collector) RecordCacheHit(backend string) {
	c.cacheHits.WithLabelValues(backend).Inc()
}

// RecordCacheMiss 记录缓存未命中
func (c *Collector) RecordCacheMiss(backend string) {
	c.cacheMisses.WithLabelValues(backend).Inc()
}

// RecordCacheFallback 记录一次远程回退
func (c *Collector) RecordCacheFallback(op string) {
	c.cacheFallbacks.WithLabelValues(op).Inc()
}

// RecordCacheEviction 记录被动移除
func (c *Collector) RecordCacheEviction(reason string) {
	c.cacheEvictions.WithLabelValues(reason).Inc()
}

// EvictionHook 返回可交给 cache.WithEvictionHook 的回调
func (c *Collector) EvictionHook() func(key string, reason cache.EvictReason) {
	return func(_ string, reason cache.EvictReason) {
		c.RecordCacheEviction(string(reason))
	}
}

// RegisterCacheGauges 注册进程内缓存的条目数与容量，采集时调用 stats 读取
func (c *Collector) RegisterCacheGauges(backend string, stats func() cache.MemoryStats) error {
	labels := prometheus.Labels{"backend": backend}

	size := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace:   c.namespace,
		Subsystem:   "cache",
		Name:        "entries",
		Help:        "Number of entries currently held",
		ConstLabels: labels,
	}, func() float64 { return float64(stats().Size) })

	capacity := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace:   c.namespace,
		Subsystem:   "cache",
		Name:        "capacity",
		Help:        "Maximum number of entries",
		ConstLabels: labels,
	}, func() float64 { return float64(stats().Capacity) })

	for _, g := range []prometheus.Collector{size, capacity} {
		if err := c.registry.Register(g); err != nil {
			return fmt.Errorf("register cache gauge: %w", err)
		}
	}

	c.logger.Debug("cache gauges registered", zap.String("backend", backend))
	return nil
}

// =============================================================================
// 🔧 辅助函数
// =============================================================================

// statusCode 将 HTTP 状态码转换为字符串
func statusCode(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}
