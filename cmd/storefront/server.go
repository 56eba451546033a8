package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/BaSui01/storefront/api/handlers"
	"github.com/BaSui01/storefront/cache"
	"github.com/BaSui01/storefront/config"
	"github.com/BaSui01/storefront/internal/metrics"
	"github.com/BaSui01/storefront/internal/rediscache"
	"github.com/BaSui01/storefront/internal/server"
	"github.com/BaSui01/storefront/internal/telemetry"
)

const (
	metricsNamespace = "storefront"
	cacheTracerName  = "github.com/BaSui01/storefront/cache"
	httpTracerName   = "github.com/BaSui01/storefront/http"
)

// =============================================================================
// 🖥️ Server
// =============================================================================

// Server 组装统一缓存、运维接口与指标接口
type Server struct {
	cfg       *config.Config
	logger    *zap.Logger
	providers *telemetry.Providers
	registry  *prometheus.Registry

	local     *cache.Memory
	redis     *rediscache.Manager
	unified   *cache.Unified
	collector *metrics.Collector

	httpManager    *server.Manager
	metricsManager *server.Manager

	rateLimiterCancel context.CancelFunc
	shutdownOnce      sync.Once
	shutdownErr       error
}

// NewServer 创建服务器实例，registry 为 nil 时使用新的独立注册表
func NewServer(cfg *config.Config, logger *zap.Logger, providers *telemetry.Providers, registry *prometheus.Registry) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	return &Server{
		cfg:       cfg,
		logger:    logger,
		providers: providers,
		registry:  registry,
	}
}

// Start 初始化缓存并启动 HTTP 与指标服务器（非阻塞）
func (s *Server) Start() error {
	if err := s.initCache(); err != nil {
		return err
	}

	rlCtx, cancel := context.WithCancel(context.Background())
	s.rateLimiterCancel = cancel

	s.httpManager = server.NewManager(s.buildHandler(rlCtx), server.Config{
		Name:            "http",
		Addr:            fmt.Sprintf(":%d", s.cfg.Server.HTTPPort),
		ReadTimeout:     s.cfg.Server.ReadTimeout,
		WriteTimeout:    s.cfg.Server.WriteTimeout,
		IdleTimeout:     2 * s.cfg.Server.ReadTimeout,
		MaxHeaderBytes:  1 << 20,
		ShutdownTimeout: s.cfg.Server.ShutdownTimeout,
	}, s.logger)
	if err := s.httpManager.Start(); err != nil {
		return err
	}

	// metrics_port 为 0 时 /metrics 挂在主端口上
	if s.cfg.Server.MetricsPort == 0 {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", s.metricsHandler())
	s.metricsManager = server.NewManager(mux, server.Config{
		Name:            "metrics",
		Addr:            fmt.Sprintf(":%d", s.cfg.Server.MetricsPort),
		ReadTimeout:     s.cfg.Server.ReadTimeout,
		WriteTimeout:    s.cfg.Server.WriteTimeout,
		ShutdownTimeout: s.cfg.Server.ShutdownTimeout,
	}, s.logger)
	return s.metricsManager.Start()
}

// initCache 按配置组装 Memory、可选的 Redis 与 Unified
func (s *Server) initCache() error {
	s.collector = metrics.NewCollector(metricsNamespace, s.registry, s.logger)

	s.local = cache.NewMemory(cache.MemoryConfig{
		Capacity:        s.cfg.Cache.Capacity,
		DefaultTTL:      s.cfg.Cache.DefaultTTL,
		CleanupInterval: s.cfg.Cache.CleanupInterval,
	},
		cache.WithEvictionHook(s.collector.EvictionHook()),
		cache.WithMemoryLogger(s.logger),
	)
	if err := s.collector.RegisterCacheGauges(cache.BackendMemory, s.local.Stats); err != nil {
		return fmt.Errorf("register cache gauges: %w", err)
	}

	opts := []cache.UnifiedOption{
		cache.WithLogger(s.logger),
		cache.WithRecorder(s.collector),
		cache.WithTracer(s.providers.Tracer(cacheTracerName)),
	}

	if s.cfg.Redis.Enabled() {
		rc := s.cfg.Redis
		mgr, err := rediscache.NewManager(rediscache.Config{
			URL:                 rc.URL,
			KeyPrefix:           rc.KeyPrefix,
			PoolSize:            rc.PoolSize,
			MinIdleConns:        rc.MinIdleConns,
			MaxRetries:          rc.MaxRetries,
			DialTimeout:         rc.DialTimeout,
			HealthCheckInterval: rc.HealthCheckInterval,
		}, s.logger)
		if err != nil {
			return fmt.Errorf("init redis cache: %w", err)
		}
		s.redis = mgr
		opts = append(opts, cache.WithRemote(mgr))
	} else {
		s.logger.Info("redis not configured, using memory cache only")
	}

	s.unified = cache.NewUnified(s.local, cache.UnifiedConfig{
		RemoteTimeout:       s.cfg.Cache.RemoteTimeout,
		FallbackLogInterval: s.cfg.Cache.FallbackLogInterval,
	}, opts...)
	return nil
}

// buildHandler 注册路由并包装中间件链
func (s *Server) buildHandler(ctx context.Context) http.Handler {
	health := handlers.NewHealthHandler(s.logger)
	if s.redis != nil {
		health.RegisterCheck(handlers.NewPingCheck("redis", s.redis.Ping), false)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", health.HandleHealth)
	mux.HandleFunc("GET /healthz", health.HandleHealth)
	mux.HandleFunc("GET /ready", health.HandleReady)
	mux.HandleFunc("GET /readyz", health.HandleReady)
	mux.HandleFunc("GET /version", health.HandleVersion(Version, BuildTime, GitCommit))
	if s.cfg.Server.MetricsPort == 0 {
		mux.Handle("GET /metrics", s.metricsHandler())
	}

	handlers.NewCacheHandler(s.unified, s.logger).Register(mux)

	return Chain(mux,
		Recovery(s.logger),
		RequestID(),
		SecurityHeaders(),
		OTelTracing(s.providers.Tracer(httpTracerName)),
		RequestLogger(s.logger),
		RateLimiter(ctx, s.cfg.Server.RateLimitRPS, s.cfg.Server.RateLimitBurst, s.logger),
		MetricsMiddleware(s.collector),
	)
}

func (s *Server) metricsHandler() http.Handler {
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{Registry: s.registry})
}

// =============================================================================
// 🛑 运行与关闭
// =============================================================================

// Run 阻塞直到 ctx 结束或任一服务器异常退出，随后优雅关闭
func (s *Server) Run(ctx context.Context) error {
	var metricsErrs <-chan error
	if s.metricsManager != nil {
		metricsErrs = s.metricsManager.Errors()
	}

	var runErr error
	select {
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
	case err := <-s.httpManager.Errors():
		runErr = fmt.Errorf("http server: %w", err)
	case err := <-metricsErrs:
		runErr = fmt.Errorf("metrics server: %w", err)
	}

	return errors.Join(runErr, s.Shutdown(context.Background()))
}

// Shutdown 依次关闭服务器、缓存与遥测；重复调用返回首次结果
func (s *Server) Shutdown(ctx context.Context) error {
	s.shutdownOnce.Do(func() {
		s.logger.Info("starting graceful shutdown")
		var errs []error

		if s.rateLimiterCancel != nil {
			s.rateLimiterCancel()
		}
		if s.httpManager != nil {
			errs = append(errs, s.httpManager.Shutdown(ctx))
		}
		if s.metricsManager != nil {
			errs = append(errs, s.metricsManager.Shutdown(ctx))
		}
		if s.local != nil {
			errs = append(errs, s.local.Close())
		}
		if s.redis != nil {
			errs = append(errs, s.redis.Close())
		}
		if s.providers != nil {
			errs = append(errs, s.providers.Shutdown(ctx))
		}

		s.shutdownErr = errors.Join(errs...)
		if s.shutdownErr != nil {
			s.logger.Error("graceful shutdown finished with errors", zap.Error(s.shutdownErr))
			return
		}
		s.logger.Info("graceful shutdown completed")
	})
	return s.shutdownErr
}

// HTTPAddr 返回主服务器实际监听地址
func (s *Server) HTTPAddr() string {
	if s.httpManager == nil {
		return ""
	}
	return s.httpManager.Addr()
}
