package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/BaSui01/storefront/internal/pool"
)

const tracerName = "github.com/BaSui01/storefront/cache"

// encodeBuffers 远程写入的序列化缓冲区，SetEx 返回后即可复用
var encodeBuffers = pool.NewBufferPool()

// ErrInvalidDest GetInto 的 dest 不是非 nil 指针（调用方使用错误）
var ErrInvalidDest = errors.New("cache: dest must be a non-nil pointer")

// =============================================================================
// 🔀 统一缓存门面
// =============================================================================

// UnifiedConfig 统一缓存配置
type UnifiedConfig struct {
	// 单次远程调用超时，超时等同远程故障并回退到进程内缓存
	RemoteTimeout time.Duration `yaml:"remote_timeout" json:"remote_timeout"`

	// 回退告警日志的最小间隔，<= 0 表示每次回退都记录
	FallbackLogInterval time.Duration `yaml:"fallback_log_interval" json:"fallback_log_interval"`
}

// DefaultUnifiedConfig 返回默认配置
func DefaultUnifiedConfig() UnifiedConfig {
	return UnifiedConfig{
		RemoteTimeout:       500 * time.Millisecond,
		FallbackLogInterval: 10 * time.Second,
	}
}

// UnifiedOption 统一缓存可选项
type UnifiedOption func(*Unified)

// WithRemote 配置远程后端；nil 表示仅使用进程内缓存
func WithRemote(r Remote) UnifiedOption {
	return func(u *Unified) {
		u.remote = r
	}
}

// WithLogger 设置日志
func WithLogger(logger *zap.Logger) UnifiedOption {
	return func(u *Unified) {
		if logger != nil {
			u.logger = logger
		}
	}
}

// WithRecorder 设置指标上报
func WithRecorder(r Recorder) UnifiedOption {
	return func(u *Unified) {
		if r != nil {
			u.recorder = r
		}
	}
}

// WithTracer 设置远程调用的 tracer，默认使用全局 TracerProvider
func WithTracer(t trace.Tracer) UnifiedOption {
	return func(u *Unified) {
		if t != nil {
			u.tracer = t
		}
	}
}

// UnifiedStats 统一缓存统计
type UnifiedStats struct {
	Backend          string      `json:"backend"`
	RemoteConfigured bool        `json:"remote_configured"`
	RemoteHealthy    bool        `json:"remote_healthy"`
	Fallbacks        uint64      `json:"fallbacks"`
	Local            MemoryStats `json:"local"`
}

// Unified 在可选的远程缓存与进程内缓存之间路由。
//
// 配置了远程后端时优先访问远程；远程的任何故障（连接、超时、协议、序列化）
// 都会被吞掉并记录，同一操作改由进程内缓存完成，后端错误永远不会返回给调用方。
// 进程内缓存保存原始值，远程缓存保存 JSON。
type Unified struct {
	local    *Memory
	remote   Remote
	config   UnifiedConfig
	logger   *zap.Logger
	recorder Recorder
	tracer   trace.Tracer

	fallbacks   atomic.Uint64
	fallbackLog *rate.Sometimes
	loads       singleflight.Group
}

// NewUnified 创建统一缓存
func NewUnified(local *Memory, config UnifiedConfig, opts ...UnifiedOption) *Unified {
	if local == nil {
		local = NewMemory(MemoryConfig{})
	}

	u := &Unified{
		local:    local,
		config:   config,
		logger:   zap.NewNop(),
		recorder: NopRecorder{},
		tracer:   otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(u)
	}
	u.logger = u.logger.With(zap.String("component", "unified_cache"))

	if config.FallbackLogInterval > 0 {
		u.fallbackLog = &rate.Sometimes{First: 1, Interval: config.FallbackLogInterval}
	}

	u.logger.Info("unified cache initialized",
		zap.String("backend", u.backend()),
		zap.Int("local_capacity", local.capacity),
		zap.Duration("remote_timeout", config.RemoteTimeout),
	)

	return u
}

// Local 返回进程内缓存
func (u *Unified) Local() *Memory {
	return u.local
}

// RemoteConfigured 是否配置了远程后端
func (u *Unified) RemoteConfigured() bool {
	return u.remote != nil
}

// =============================================================================
// 🎯 核心方法
// =============================================================================

// Get 读取缓存。远程命中的值以 JSON 解码为 any（map[string]any、float64 等），
// 需要具体类型时使用 GetInto 或 Fetch。
func (u *Unified) Get(ctx context.Context, key string) (any, bool) {
	if u.remote != nil {
		raw, err := u.remoteGet(ctx, key)
		switch {
		case err == nil:
			var out any
			decodeErr := json.Unmarshal(raw, &out)
			if decodeErr == nil {
				return out, true
			}
			u.fallback("get", key, fmt.Errorf("decode value: %w", decodeErr))
		case IsCacheMiss(err):
			return nil, false
		default:
			u.fallback("get", key, err)
		}
	}

	return u.localGet(key)
}

// GetInto 读取缓存并写入 dest（非 nil 指针）。
// 只有 dest 非法时返回错误；后端故障与类型不匹配都按未命中处理。
func (u *Unified) GetInto(ctx context.Context, key string, dest any) (bool, error) {
	rv := reflect.ValueOf(dest)
	if !rv.IsValid() || rv.Kind() != reflect.Pointer || rv.IsNil() {
		return false, ErrInvalidDest
	}

	if u.remote != nil {
		raw, err := u.remoteGet(ctx, key)
		switch {
		case err == nil:
			decodeErr := json.Unmarshal(raw, dest)
			if decodeErr == nil {
				return true, nil
			}
			rv.Elem().SetZero()
			// 远程值合法但与 dest 类型不符：Redis 本身健康，不能退回旧的本地值
			var typeErr *json.UnmarshalTypeError
			if errors.As(decodeErr, &typeErr) {
				u.logger.Warn("cached value does not fit destination",
					zap.String("key", key),
					zap.String("dest", rv.Elem().Type().String()),
					zap.Error(decodeErr),
				)
				return false, nil
			}
			u.fallback("get", key, fmt.Errorf("decode value: %w", decodeErr))
		case IsCacheMiss(err):
			return false, nil
		default:
			u.fallback("get", key, err)
		}
	}

	v, ok := u.localGet(key)
	if !ok {
		return false, nil
	}
	if err := assign(rv.Elem(), v); err != nil {
		rv.Elem().SetZero()
		u.logger.Warn("cached value does not fit destination",
			zap.String("key", key),
			zap.String("dest", rv.Elem().Type().String()),
			zap.Error(err),
		)
		return false, nil
	}
	return true, nil
}

// Set 使用进程内缓存的默认 TTL 写入
func (u *Unified) Set(ctx context.Context, key string, value any) {
	u.SetWithTTL(ctx, key, value, u.local.ttl)
}

// SetWithTTL 写入缓存。远程写入失败时记录并改写进程内缓存，
// 保证至少本进程内的调用方随后能读到该值。
func (u *Unified) SetWithTTL(ctx context.Context, key string, value any, ttl time.Duration) {
	if u.remote != nil {
		err := u.remoteSet(ctx, key, value, ttl)
		if err == nil {
			// 远程已是最新值，丢弃回退期间写入的本地副本
			u.local.Delete(key)
			return
		}
		u.fallback("set", key, err)
	}

	u.local.SetWithTTL(key, value, ttl)
}

// Delete 同时删除远程与本地条目，任一后端删除成功即返回 true
func (u *Unified) Delete(ctx context.Context, key string) bool {
	removed := false

	if u.remote != nil {
		var n int64
		err := u.remoteCall(ctx, "delete", key, func(ctx context.Context) error {
			var err error
			n, err = u.remote.Del(ctx, key)
			return err
		})
		if err != nil {
			u.fallback("delete", key, err)
		} else if n > 0 {
			removed = true
		}
	}

	if u.local.Delete(key) {
		removed = true
	}
	return removed
}

// Clear 尽力清空两个后端
func (u *Unified) Clear(ctx context.Context) {
	if u.remote != nil {
		err := u.remoteCall(ctx, "clear", "", func(ctx context.Context) error {
			return u.remote.Clear(ctx)
		})
		if err != nil {
			u.fallback("clear", "", err)
		}
	}
	u.local.Clear()
}

// InvalidateByPattern 按 glob 模式失效缓存，返回移除的条目数。
//
// 远程后端只删除匹配的键；进程内缓存不做模式匹配，而是整体清空。
// 宁可多清也不留下陈旧数据。
func (u *Unified) InvalidateByPattern(ctx context.Context, pattern string) int {
	removed := 0

	if u.remote != nil {
		var keys []string
		err := u.remoteCall(ctx, "invalidate", pattern, func(ctx context.Context) error {
			var err error
			keys, err = u.remote.Keys(ctx, pattern)
			if err != nil || len(keys) == 0 {
				return err
			}
			n, err := u.remote.Del(ctx, keys...)
			removed += int(n)
			return err
		})
		if err != nil {
			u.fallback("invalidate", pattern, err)
		}
	}

	removed += u.local.Len()
	u.local.Clear()

	u.logger.Info("cache invalidated by pattern",
		zap.String("pattern", pattern),
		zap.Int("removed", removed),
	)
	return removed
}

// Stats 返回统计信息。配置了远程后端时会执行一次 Ping。
func (u *Unified) Stats(ctx context.Context) UnifiedStats {
	stats := UnifiedStats{
		Backend:          u.backend(),
		RemoteConfigured: u.remote != nil,
		Fallbacks:        u.fallbacks.Load(),
		Local:            u.local.Stats(),
	}
	if u.remote != nil {
		err := u.remoteCall(ctx, "ping", "", u.remote.Ping)
		stats.RemoteHealthy = err == nil
	}
	return stats
}

// =============================================================================
// 🔧 内部方法
// =============================================================================

func (u *Unified) backend() string {
	if u.remote != nil {
		return BackendRedis
	}
	return BackendMemory
}

func (u *Unified) localGet(key string) (any, bool) {
	v, ok := u.local.Get(key)
	if ok {
		u.recorder.RecordCacheHit(BackendMemory)
	} else {
		u.recorder.RecordCacheMiss(BackendMemory)
	}
	return v, ok
}

func (u *Unified) remoteGet(ctx context.Context, key string) ([]byte, error) {
	var raw []byte
	err := u.remoteCall(ctx, "get", key, func(ctx context.Context) error {
		var err error
		raw, err = u.remote.Get(ctx, key)
		return err
	})
	switch {
	case err == nil:
		u.recorder.RecordCacheHit(BackendRedis)
	case IsCacheMiss(err):
		u.recorder.RecordCacheMiss(BackendRedis)
	}
	return raw, err
}

func (u *Unified) remoteSet(ctx context.Context, key string, value any, ttl time.Duration) error {
	if ttl <= 0 {
		return u.remoteCall(ctx, "set", key, func(ctx context.Context) error {
			_, err := u.remote.Del(ctx, key)
			return err
		})
	}

	buf := encodeBuffers.Get()
	defer encodeBuffers.Put(buf)
	if err := json.NewEncoder(buf).Encode(value); err != nil {
		return fmt.Errorf("encode value: %w", err)
	}
	// Encode 追加换行
	data := bytes.TrimSuffix(buf.Bytes(), []byte("\n"))
	return u.remoteCall(ctx, "set", key, func(ctx context.Context) error {
		return u.remote.SetEx(ctx, key, data, ttl)
	})
}

// remoteCall 为远程调用加上超时与 span
func (u *Unified) remoteCall(ctx context.Context, op, key string, fn func(ctx context.Context) error) error {
	ctx, span := u.tracer.Start(ctx, "cache.remote."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("cache.backend", BackendRedis),
			attribute.String("cache.key", key),
		),
	)
	defer span.End()

	if u.config.RemoteTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, u.config.RemoteTimeout)
		defer cancel()
	}

	err := fn(ctx)
	if err != nil && !IsCacheMiss(err) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

// fallback 记录一次远程回退：计数、指标与限频日志
func (u *Unified) fallback(op, key string, err error) {
	total := u.fallbacks.Add(1)
	u.recorder.RecordCacheFallback(op)

	log := func() {
		u.logger.Warn("remote cache unavailable, falling back to memory",
			zap.String("op", op),
			zap.String("key", key),
			zap.Uint64("fallbacks_total", total),
			zap.Error(err),
		)
	}
	if u.fallbackLog == nil {
		log()
		return
	}
	u.fallbackLog.Do(log)
}

// assign 将进程内缓存中的值写入 dst，类型不一致时经 JSON 转换
func assign(dst reflect.Value, v any) error {
	if v == nil {
		dst.Set(reflect.Zero(dst.Type()))
		return nil
	}

	src := reflect.ValueOf(v)
	if src.Type().AssignableTo(dst.Type()) {
		dst.Set(src)
		return nil
	}
	if src.Kind() == reflect.Pointer && !src.IsNil() && src.Elem().Type().AssignableTo(dst.Type()) {
		dst.Set(src.Elem())
		return nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dst.Addr().Interface())
}
