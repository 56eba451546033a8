package rediscache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/BaSui01/storefront/cache"
	"github.com/BaSui01/storefront/internal/tlsutil"
)

// ErrClosed Manager 已关闭
var ErrClosed = errors.New("redis cache is closed")

// scanBatch 每次 SCAN / DEL 的批量大小
const scanBatch = 256

// =============================================================================
// 💾 Redis 远程后端
// =============================================================================

// Config Redis 配置
type Config struct {
	// 连接串，如 redis://:password@localhost:6379/0；为空表示不启用远程缓存
	URL string `yaml:"url" json:"url"`

	// 键前缀
	KeyPrefix string `yaml:"key_prefix" json:"key_prefix"`

	// 连接池大小
	PoolSize int `yaml:"pool_size" json:"pool_size"`

	// 最小空闲连接数
	MinIdleConns int `yaml:"min_idle_conns" json:"min_idle_conns"`

	// 最大重试次数
	MaxRetries int `yaml:"max_retries" json:"max_retries"`

	// 建连超时
	DialTimeout time.Duration `yaml:"dial_timeout" json:"dial_timeout"`

	// 健康检查间隔，<= 0 关闭
	HealthCheckInterval time.Duration `yaml:"health_check_interval" json:"health_check_interval"`
}

// DefaultConfig 返回默认配置（URL 为空，即默认不启用）
func DefaultConfig() Config {
	return Config{
		KeyPrefix:           "storefront:",
		PoolSize:            10,
		MinIdleConns:        2,
		MaxRetries:          1,
		DialTimeout:         2 * time.Second,
		HealthCheckInterval: 30 * time.Second,
	}
}

// Manager Redis 远程缓存
type Manager struct {
	client *redis.Client
	config Config
	logger *zap.Logger

	healthy atomic.Bool
	closed  atomic.Bool

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closeOnce sync.Once
}

var _ cache.Remote = (*Manager)(nil)

// NewManager 解析连接串并创建客户端。
// 首次 Ping 失败只记录告警，调用方仍然拿到可用的 Manager。
func NewManager(config Config, logger *zap.Logger) (*Manager, error) {
	if config.URL == "" {
		return nil, errors.New("redis url is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	opts, err := redis.ParseURL(config.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if config.PoolSize > 0 {
		opts.PoolSize = config.PoolSize
	}
	if config.MinIdleConns > 0 {
		opts.MinIdleConns = config.MinIdleConns
	}
	if config.MaxRetries != 0 {
		opts.MaxRetries = config.MaxRetries
	}
	if config.DialTimeout > 0 {
		opts.DialTimeout = config.DialTimeout
	}
	// rediss:// 时 ParseURL 已填充 TLSConfig
	if opts.TLSConfig != nil {
		opts.TLSConfig = tlsutil.Harden(opts.TLSConfig)
	}

	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		client: redis.NewClient(opts),
		config: config,
		logger: logger.With(zap.String("component", "redis_cache")),
		cancel: cancel,
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, opts.DialTimeout)
	if err := m.Ping(pingCtx); err != nil {
		m.logger.Warn("redis not reachable at startup, cache will fall back to memory",
			zap.String("addr", opts.Addr),
			zap.Error(err),
		)
	}
	pingCancel()

	if config.HealthCheckInterval > 0 {
		m.wg.Add(1)
		go m.healthCheckLoop(ctx)
	}

	m.logger.Info("redis cache initialized",
		zap.String("addr", opts.Addr),
		zap.Int("db", opts.DB),
		zap.String("key_prefix", config.KeyPrefix),
		zap.Int("pool_size", opts.PoolSize),
	)

	return m, nil
}

// =============================================================================
// 🎯 cache.Remote 实现
// =============================================================================

// Get 读取原始值，不存在时返回 cache.ErrCacheMiss
func (m *Manager) Get(ctx context.Context, key string) ([]byte, error) {
	if m.closed.Load() {
		return nil, ErrClosed
	}

	val, err := m.client.Get(ctx, m.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, cache.ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %q: %w", key, err)
	}
	return val, nil
}

// SetEx 写入带过期时间的值；ttl <= 0 时删除该键
func (m *Manager) SetEx(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if m.closed.Load() {
		return ErrClosed
	}
	if ttl <= 0 {
		_, err := m.Del(ctx, key)
		return err
	}

	if err := m.client.Set(ctx, m.key(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %q: %w", key, err)
	}
	return nil
}

// Del 删除若干键，返回实际删除数量
func (m *Manager) Del(ctx context.Context, keys ...string) (int64, error) {
	if m.closed.Load() {
		return 0, ErrClosed
	}
	if len(keys) == 0 {
		return 0, nil
	}

	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = m.key(k)
	}
	n, err := m.client.Del(ctx, full...).Result()
	if err != nil {
		return 0, fmt.Errorf("redis del: %w", err)
	}
	return n, nil
}

// Keys 以 SCAN 枚举匹配 pattern 的键，返回值不含前缀
func (m *Manager) Keys(ctx context.Context, pattern string) ([]string, error) {
	if m.closed.Load() {
		return nil, ErrClosed
	}

	var keys []string
	iter := m.client.Scan(ctx, 0, m.key(pattern), scanBatch).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, strings.TrimPrefix(iter.Val(), m.config.KeyPrefix))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis scan %q: %w", pattern, err)
	}
	return keys, nil
}

// Clear 删除本前缀下的所有键；未配置前缀时清空当前库
func (m *Manager) Clear(ctx context.Context) error {
	if m.closed.Load() {
		return ErrClosed
	}

	if m.config.KeyPrefix == "" {
		if err := m.client.FlushDB(ctx).Err(); err != nil {
			return fmt.Errorf("redis flushdb: %w", err)
		}
		return nil
	}

	batch := make([]string, 0, scanBatch)
	iter := m.client.Scan(ctx, 0, m.config.KeyPrefix+"*", scanBatch).Iterator()
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == scanBatch {
			if err := m.client.Del(ctx, batch...).Err(); err != nil {
				return fmt.Errorf("redis clear: %w", err)
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis clear: %w", err)
	}
	if len(batch) > 0 {
		if err := m.client.Del(ctx, batch...).Err(); err != nil {
			return fmt.Errorf("redis clear: %w", err)
		}
	}
	return nil
}

// Ping 检查连接，并刷新健康状态
func (m *Manager) Ping(ctx context.Context) error {
	if m.closed.Load() {
		return ErrClosed
	}

	err := m.client.Ping(ctx).Err()
	m.healthy.Store(err == nil)
	if err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// Healthy 最近一次 Ping 是否成功
func (m *Manager) Healthy() bool {
	return m.healthy.Load() && !m.closed.Load()
}

// Close 停止健康检查并关闭连接，可重复调用
func (m *Manager) Close() error {
	var err error
	m.closeOnce.Do(func() {
		m.closed.Store(true)
		m.cancel()
		m.wg.Wait()
		m.logger.Info("closing redis cache")
		err = m.client.Close()
	})
	return err
}

func (m *Manager) key(k string) string {
	return m.config.KeyPrefix + k
}

// =============================================================================
// 🏥 健康检查
// =============================================================================

func (m *Manager) healthCheckLoop(ctx context.Context) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.config.HealthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.checkHealth(ctx)
		}
	}
}

func (m *Manager) checkHealth(ctx context.Context) {
	if m.closed.Load() {
		return
	}
	was := m.healthy.Load()

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	err := m.Ping(ctx)

	switch {
	case err != nil && was:
		m.logger.Error("redis health check failed", zap.Error(err))
	case err == nil && !was:
		m.logger.Info("redis health check recovered")
	case err == nil:
		m.logger.Debug("redis health check passed")
	}
}
