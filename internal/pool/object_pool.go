// Package pool 提供基于 sync.Pool 的泛型对象池。
package pool

import (
	"bytes"
	"sync"
	"sync/atomic"
)

// maxPooledBuffer 超过该容量的缓冲区不回池，避免个别大值长期占用内存
const maxPooledBuffer = 64 << 10

// Pool 泛型对象池
type Pool[T any] struct {
	pool  sync.Pool
	reset func(*T) bool

	gets atomic.Int64
	puts atomic.Int64
	news atomic.Int64
}

// NewPool 创建对象池。reset 返回 false 时对象被丢弃而不回池。
func NewPool[T any](newFunc func() T, reset func(*T) bool) *Pool[T] {
	p := &Pool[T]{reset: reset}
	p.pool.New = func() any {
		p.news.Add(1)
		return newFunc()
	}
	return p
}

// Get 取出对象
func (p *Pool[T]) Get() T {
	p.gets.Add(1)
	return p.pool.Get().(T)
}

// Put 归还对象
func (p *Pool[T]) Put(obj T) {
	if p.reset != nil && !p.reset(&obj) {
		return
	}
	p.puts.Add(1)
	p.pool.Put(obj)
}

// Stats 返回统计信息
func (p *Pool[T]) Stats() PoolStats {
	return PoolStats{
		Gets: p.gets.Load(),
		Puts: p.puts.Load(),
		News: p.news.Load(),
	}
}

// PoolStats 对象池统计
type PoolStats struct {
	Gets int64 `json:"gets"`
	Puts int64 `json:"puts"`
	News int64 `json:"news"`
}

// HitRate 复用率
func (s PoolStats) HitRate() float64 {
	if s.Gets == 0 {
		return 0
	}
	return float64(s.Gets-s.News) / float64(s.Gets)
}

// NewBufferPool 创建 bytes.Buffer 池，归还时重置，超过 64KiB 的缓冲区直接丢弃
func NewBufferPool() *Pool[*bytes.Buffer] {
	return NewPool(
		func() *bytes.Buffer {
			return bytes.NewBuffer(make([]byte, 0, 512))
		},
		func(b **bytes.Buffer) bool {
			if (*b).Cap() > maxPooledBuffer {
				return false
			}
			(*b).Reset()
			return true
		},
	)
}
