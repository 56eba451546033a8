package cache

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// LoadFunc 从数据源重新计算值
type LoadFunc[T any] func(ctx context.Context) (T, error)

// Fetch 读取类型为 T 的缓存值
func Fetch[T any](ctx context.Context, u *Unified, key string) (T, bool) {
	var out T
	ok, err := u.GetInto(ctx, key, &out)
	if err != nil || !ok {
		var zero T
		return zero, false
	}
	return out, true
}

// GetOrLoad 读取缓存，未命中时调用 load 计算并以 ttl 写回。
//
// 同一进程内对同一个键的并发未命中只会触发一次 load。
// load 返回的错误会原样返回且不写缓存；缓存后端的错误不会返回。
func GetOrLoad[T any](ctx context.Context, u *Unified, key string, ttl time.Duration, load LoadFunc[T]) (T, error) {
	if v, ok := Fetch[T](ctx, u, key); ok {
		return v, nil
	}

	v, err, shared := u.loads.Do(key, func() (any, error) {
		// 排队期间其他调用方可能已经写入
		if v, ok := Fetch[T](ctx, u, key); ok {
			return v, nil
		}
		v, err := load(ctx)
		if err != nil {
			return nil, err
		}
		u.SetWithTTL(ctx, key, v, ttl)
		return v, nil
	})
	if err != nil {
		var zero T
		return zero, fmt.Errorf("load %q: %w", key, err)
	}
	if shared {
		u.logger.Debug("cache load shared", zap.String("key", key))
	}

	out, ok := v.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("load %q: unexpected value type %T", key, v)
	}
	return out, nil
}
