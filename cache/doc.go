// 版权所有 2024 Storefront Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 cache 提供店铺后台解析器与数据访问层使用的统一缓存：
进程内 LRU 作为兜底，Redis 作为可选的跨实例共享缓存。

# 概述

缓存只是性能优化，不是数据源。任何条目都可能随时被淘汰或过期，
调用方在未命中时必须能够重新计算。因此本包从不把后端故障返回给调用方：
远程故障一律降级为进程内缓存，未命中一律表示为普通的 (零值, false)。

# 核心类型

  - Memory：容量受限、带 TTL 的进程内 LRU，map + 哨兵双向链表，
    Get/Set/Delete/淘汰均为 O(1)；后台按固定间隔清理过期条目。
  - Unified：统一门面，优先访问 Remote，失败时回退到 Memory，
    并提供按模式失效、统计信息与类型化读取。
  - Remote：远程后端的最小 KV 协议（GET / SETEX / DEL / KEYS）。
  - Recorder：命中、未命中、回退与淘汰的指标上报。

# 主要能力

  - LRU + TTL：过期条目在读取时惰性删除，不会被提升为最近使用。
  - 回退：远程调用带超时，超时与错误都会计数、记录 span 与限频告警日志。
  - 键规范：ProductKey / UserProductsKey / CategoriesKey / SearchKey
    以及对应的失效模式。
  - 防击穿：GetOrLoad 使用 singleflight 合并同一键的并发加载。

# 使用方式

	local := cache.NewMemory(cache.MemoryConfig{Capacity: 1000, CleanupInterval: 5 * time.Minute})
	defer local.Close()
	uc := cache.NewUnified(local, cache.DefaultUnifiedConfig(), cache.WithRemote(redisManager))
	product, err := cache.GetOrLoad(ctx, uc, cache.ProductKey(id), time.Hour, loadProduct)
*/
package cache
