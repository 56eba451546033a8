package cache

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// cleanupLoop 按固定间隔扫描并移除过期条目，直到 ctx 被取消。
// 只依赖惰性过期时，写入后再也不被读取的键会一直占用容量。
func (m *Memory) cleanupLoop(ctx context.Context) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.cleanupEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			start := time.Now()
			if removed := m.Cleanup(); removed > 0 {
				m.logger.Debug("expired entries removed",
					zap.Int("removed", removed),
					zap.Duration("took", time.Since(start)),
				)
			}
		}
	}
}
