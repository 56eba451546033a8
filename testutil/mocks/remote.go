// =============================================================================
// 🗄️ MockRemote - 远程缓存模拟实现
// =============================================================================
// 实现 cache.Remote 的内存版本，支持错误注入、延迟与调用计数
//
// 使用方法:
//
//	remote := mocks.NewMockRemote()
//	u := cache.NewUnified(local, cfg, cache.WithRemote(remote))
//	remote.WithError(errors.New("connection refused")) // 模拟宕机
// =============================================================================
package mocks

import (
	"context"
	"path"
	"sort"
	"sync"
	"time"

	"github.com/BaSui01/storefront/cache"
)

var _ cache.Remote = (*MockRemote)(nil)

type remoteEntry struct {
	value     []byte
	expiresAt time.Time
}

// MockRemote 是 cache.Remote 的模拟实现，TTL 按真实时间计算
type MockRemote struct {
	mu sync.Mutex

	data map[string]remoteEntry

	// 错误注入，对所有操作生效
	err   error
	delay time.Duration

	calls map[string]int
}

// NewMockRemote 创建新的 MockRemote
func NewMockRemote() *MockRemote {
	return &MockRemote{
		data:  make(map[string]remoteEntry),
		calls: make(map[string]int),
	}
}

// WithError 设置后续操作返回的错误，nil 表示恢复
func (m *MockRemote) WithError(err error) *MockRemote {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

// WithDelay 为每次操作增加延迟，延迟期间 ctx 结束则返回 ctx.Err()
func (m *MockRemote) WithDelay(d time.Duration) *MockRemote {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
	return m
}

// =============================================================================
// 🎯 cache.Remote 接口实现
// =============================================================================

// Get 读取原始值，不存在或已过期返回 cache.ErrCacheMiss
func (m *MockRemote) Get(ctx context.Context, key string) ([]byte, error) {
	if err := m.begin(ctx, "get"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.data[key]
	if !ok || m.expired(e) {
		delete(m.data, key)
		return nil, cache.ErrCacheMiss
	}
	return append([]byte(nil), e.value...), nil
}

// SetEx 写入并设置过期时间，ttl <= 0 视为删除
func (m *MockRemote) SetEx(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := m.begin(ctx, "setex"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if ttl <= 0 {
		delete(m.data, key)
		return nil
	}
	m.data[key] = remoteEntry{value: append([]byte(nil), value...), expiresAt: time.Now().Add(ttl)}
	return nil
}

// Del 删除键并返回实际删除数
func (m *MockRemote) Del(ctx context.Context, keys ...string) (int64, error) {
	if err := m.begin(ctx, "del"); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for _, k := range keys {
		if e, ok := m.data[k]; ok && !m.expired(e) {
			n++
		}
		delete(m.data, k)
	}
	return n, nil
}

// Keys 按 glob 模式列出未过期的键，结果有序
func (m *MockRemote) Keys(ctx context.Context, pattern string) ([]string, error) {
	if err := m.begin(ctx, "keys"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []string
	for k, e := range m.data {
		if m.expired(e) {
			continue
		}
		if ok, _ := path.Match(pattern, k); ok {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out, nil
}

// Clear 清空全部数据
func (m *MockRemote) Clear(ctx context.Context) error {
	if err := m.begin(ctx, "clear"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = make(map[string]remoteEntry)
	return nil
}

// Ping 返回注入的错误
func (m *MockRemote) Ping(ctx context.Context) error {
	return m.begin(ctx, "ping")
}

// =============================================================================
// 📊 调用记录
// =============================================================================

// Calls 返回某个操作的调用次数，op 取 get/setex/del/keys/clear/ping
func (m *MockRemote) Calls(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

// Raw 绕过错误注入直接读取存储的字节
func (m *MockRemote) Raw(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.data[key]
	if !ok || m.expired(e) {
		return nil, false
	}
	return e.value, true
}

// Len 未过期的键数量
func (m *MockRemote) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.data {
		if !m.expired(e) {
			n++
		}
	}
	return n
}

func (m *MockRemote) begin(ctx context.Context, op string) error {
	m.mu.Lock()
	m.calls[op]++
	err, delay := m.err, m.delay
	m.mu.Unlock()

	if delay > 0 {
		t := time.NewTimer(delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
	return err
}

func (m *MockRemote) expired(e remoteEntry) bool {
	return !e.expiresAt.IsZero() && time.Now().After(e.expiresAt)
}
