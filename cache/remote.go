package cache

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss 远程缓存中不存在该键。未命中不是故障，不会触发回退。
var ErrCacheMiss = errors.New("cache miss")

// IsCacheMiss 判断是否为缓存未命中错误
func IsCacheMiss(err error) bool {
	return errors.Is(err, ErrCacheMiss)
}

// Remote 可选的远程共享缓存（Redis 等），值由调用方序列化为字节。
//
// 除 ErrCacheMiss 之外的任何错误都被 Unified 视为“远程本次不可用”。
type Remote interface {
	// Get 读取原始值，不存在时返回 ErrCacheMiss
	Get(ctx context.Context, key string) ([]byte, error)

	// SetEx 写入带过期时间的值，返回后不得继续持有 value
	SetEx(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Del 删除若干键，返回实际删除数量
	Del(ctx context.Context, keys ...string) (int64, error)

	// Keys 按 glob 模式枚举键
	Keys(ctx context.Context, pattern string) ([]string, error)

	// Clear 清空本应用写入的所有键
	Clear(ctx context.Context) error

	// Ping 健康检查
	Ping(ctx context.Context) error
}

// Recorder 缓存指标上报
type Recorder interface {
	RecordCacheHit(backend string)
	RecordCacheMiss(backend string)
	RecordCacheFallback(op string)
	RecordCacheEviction(reason string)
}

// NopRecorder 不上报任何指标
type NopRecorder struct{}

func (NopRecorder) RecordCacheHit(string)      {}
func (NopRecorder) RecordCacheMiss(string)     {}
func (NopRecorder) RecordCacheFallback(string) {}
func (NopRecorder) RecordCacheEviction(string) {}

var _ Recorder = NopRecorder{}

// 后端名称，用于指标 label 与统计
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)
