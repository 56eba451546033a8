package cache

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultCapacity 默认最大条目数
	DefaultCapacity = 1000

	// DefaultTTL 默认过期时间
	DefaultTTL = time.Hour

	// DefaultCleanupInterval 默认过期清理间隔
	DefaultCleanupInterval = 5 * time.Minute
)

// =============================================================================
// 💾 进程内 LRU 缓存（哨兵双向链表 + map，O(1) 操作）
// =============================================================================

// EvictReason 条目被动移除的原因
type EvictReason string

const (
	EvictCapacity EvictReason = "capacity"
	EvictExpired  EvictReason = "expired"
)

// MemoryConfig 进程内缓存配置
type MemoryConfig struct {
	// 最大条目数，<= 0 时使用 DefaultCapacity
	Capacity int `yaml:"capacity" json:"capacity"`

	// Set 未指定 TTL 时使用，<= 0 时使用 DefaultTTL
	DefaultTTL time.Duration `yaml:"default_ttl" json:"default_ttl"`

	// 后台清理间隔，<= 0 关闭后台清理（惰性过期仍然生效）
	CleanupInterval time.Duration `yaml:"cleanup_interval" json:"cleanup_interval"`
}

// MemoryStats 进程内缓存统计
type MemoryStats struct {
	Size         int     `json:"size"`
	Capacity     int     `json:"capacity"`
	UsagePercent float64 `json:"usage_percent"`
	Hits         uint64  `json:"hits"`
	Misses       uint64  `json:"misses"`
	Evictions    uint64  `json:"evictions"`
	Expirations  uint64  `json:"expirations"`
}

// MemoryOption 进程内缓存可选项
type MemoryOption func(*Memory)

// WithClock 替换时间源，测试中用于推进时间
func WithClock(now func() time.Time) MemoryOption {
	return func(m *Memory) {
		if now != nil {
			m.now = now
		}
	}
}

// WithEvictionHook 注册被动移除回调（容量淘汰 / 过期清理）。
// 回调在持锁状态下执行，不能回调 Memory 自身。
func WithEvictionHook(hook func(key string, reason EvictReason)) MemoryOption {
	return func(m *Memory) {
		m.onEvict = hook
	}
}

// WithMemoryLogger 设置日志
func WithMemoryLogger(logger *zap.Logger) MemoryOption {
	return func(m *Memory) {
		if logger != nil {
			m.logger = logger
		}
	}
}

type memoryEntry struct {
	key       string
	value     any
	expiresAt time.Time
	prev      *memoryEntry
	next      *memoryEntry
}

// Memory 容量受限、带 TTL 的进程内 LRU 缓存。
//
// head.next 为最近使用，tail.prev 为最久未使用；head/tail 为哨兵节点，
// 因此插入和摘除都不需要处理空链表的边界情况。
// 进程内只应创建一个实例，由启动代码注入到各个调用方。
type Memory struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	items    map[string]*memoryEntry
	head     *memoryEntry
	tail     *memoryEntry

	hits        uint64
	misses      uint64
	evictions   uint64
	expirations uint64

	now     func() time.Time
	onEvict func(key string, reason EvictReason)
	logger  *zap.Logger

	// 后台清理 goroutine 归属
	cleanupEvery time.Duration
	cancel       context.CancelFunc
	wg           sync.WaitGroup
	closeOnce    sync.Once
}

// NewMemory 创建进程内缓存，并在配置了清理间隔时启动后台清理
func NewMemory(cfg MemoryConfig, opts ...MemoryOption) *Memory {
	if cfg.Capacity <= 0 {
		cfg.Capacity = DefaultCapacity
	}
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = DefaultTTL
	}

	m := &Memory{
		capacity:     cfg.Capacity,
		ttl:          cfg.DefaultTTL,
		items:        make(map[string]*memoryEntry, cfg.Capacity),
		head:         &memoryEntry{},
		tail:         &memoryEntry{},
		now:          time.Now,
		logger:       zap.NewNop(),
		cleanupEvery: cfg.CleanupInterval,
	}
	m.head.next = m.tail
	m.tail.prev = m.head

	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.With(zap.String("component", "memory_cache"))

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	if m.cleanupEvery > 0 {
		m.wg.Add(1)
		go m.cleanupLoop(ctx)
	}

	return m
}

// Get 读取缓存。过期条目会被直接移除且不会被提升为最近使用。
func (m *Memory) Get(key string) (any, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.items[key]
	if !ok {
		m.misses++
		return nil, false
	}

	if m.expired(e, m.now()) {
		m.expireLocked(e)
		m.misses++
		return nil, false
	}

	m.moveToFront(e)
	m.hits++
	return e.value, true
}

// Set 使用默认 TTL 写入
func (m *Memory) Set(key string, value any) {
	m.SetWithTTL(key, value, m.ttl)
}

// SetWithTTL 写入缓存。
//
// 已存在的键原地更新并提升，不触发容量淘汰；新键在满容量时先淘汰最久未使用的条目。
// ttl <= 0 表示立即过期：删除已有条目，不写入新条目。
func (m *Memory) SetWithTTL(key string, value any, ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ttl <= 0 {
		if e, ok := m.items[key]; ok {
			m.removeLocked(e)
		}
		return
	}

	expiresAt := m.now().Add(ttl)

	if e, ok := m.items[key]; ok {
		e.value = value
		e.expiresAt = expiresAt
		m.moveToFront(e)
		return
	}

	if len(m.items) >= m.capacity {
		m.evictOldest()
	}

	e := &memoryEntry{key: key, value: value, expiresAt: expiresAt}
	m.items[key] = e
	m.pushFront(e)
}

// Delete 删除缓存，返回是否确实删除了条目
func (m *Memory) Delete(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.items[key]
	if !ok {
		return false
	}
	m.removeLocked(e)
	return true
}

// Clear 清空缓存
func (m *Memory) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, e := range m.items {
		e.prev, e.next = nil, nil
	}
	m.items = make(map[string]*memoryEntry, m.capacity)
	m.head.next = m.tail
	m.tail.prev = m.head
}

// Cleanup 移除所有已过期条目（与最近使用顺序无关），返回移除数量
func (m *Memory) Cleanup() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for e := m.head.next; e != m.tail; {
		next := e.next
		if m.expired(e, now) {
			m.expireLocked(e)
			removed++
		}
		e = next
	}
	return removed
}

// Len 当前条目数（包含尚未清理的过期条目）
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

// Keys 按最近使用到最久未使用的顺序返回所有键
func (m *Memory) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]string, 0, len(m.items))
	for e := m.head.next; e != m.tail; e = e.next {
		out = append(out, e.key)
	}
	return out
}

// Stats 返回统计信息，无副作用
func (m *Memory) Stats() MemoryStats {
	m.mu.Lock()
	defer m.mu.Unlock()

	size := len(m.items)
	return MemoryStats{
		Size:         size,
		Capacity:     m.capacity,
		UsagePercent: float64(size) / float64(m.capacity) * 100,
		Hits:         m.hits,
		Misses:       m.misses,
		Evictions:    m.evictions,
		Expirations:  m.expirations,
	}
}

// Close 停止后台清理，可重复调用。Close 之后缓存仍可读写。
func (m *Memory) Close() error {
	m.closeOnce.Do(func() {
		m.cancel()
		m.wg.Wait()
	})
	return nil
}

// =============================================================================
// 🔧 链表操作（调用方必须持有 m.mu）
// =============================================================================

func (m *Memory) expired(e *memoryEntry, now time.Time) bool {
	return now.After(e.expiresAt)
}

func (m *Memory) pushFront(e *memoryEntry) {
	e.prev = m.head
	e.next = m.head.next
	m.head.next.prev = e
	m.head.next = e
}

func (m *Memory) unlink(e *memoryEntry) {
	e.prev.next = e.next
	e.next.prev = e.prev
	e.prev, e.next = nil, nil
}

func (m *Memory) moveToFront(e *memoryEntry) {
	if m.head.next == e {
		return
	}
	m.unlink(e)
	m.pushFront(e)
}

func (m *Memory) removeLocked(e *memoryEntry) {
	m.unlink(e)
	delete(m.items, e.key)
}

// expireLocked 移除过期条目；Get 的惰性过期与 Cleanup 共用
func (m *Memory) expireLocked(e *memoryEntry) {
	m.removeLocked(e)
	m.expirations++
	if m.onEvict != nil {
		m.onEvict(e.key, EvictExpired)
	}
}

func (m *Memory) evictOldest() {
	oldest := m.tail.prev
	if oldest == m.head {
		return
	}
	m.removeLocked(oldest)
	m.evictions++
	if m.onEvict != nil {
		m.onEvict(oldest.key, EvictCapacity)
	}
}
