// Copyright (c) Storefront Authors.
// Licensed under the MIT License.

/*
Package handlers 提供缓存服务运维 HTTP 接口的请求处理器。

# 核心类型

  - HealthHandler：存活、就绪与版本接口（/health, /ready, /version）
  - CacheHandler：缓存统计、按键删除、按模式失效与清空
  - HealthCheck：可插拔健康检查接口，PingCheck 为通用实现
  - Response：统一 JSON 响应结构（success + data + error + timestamp）
  - ResponseWriter：包装 http.ResponseWriter 以捕获状态码与字节数

# 主要能力

  - 统一响应格式：WriteSuccess / WriteError / WriteJSON
  - 请求验证：DecodeJSONBody（1 MB 限制 + 严格模式）
  - 就绪分级：关键检查失败返回 503，非关键检查（如 Redis）失败只降级为 degraded，
    因为统一缓存会自动回退到进程内缓存。
*/
package handlers
