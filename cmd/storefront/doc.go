// 版权所有 2024 Storefront Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
Package main 提供 Storefront 统一缓存服务的程序入口。

# 概述

cmd/storefront 组装进程内缓存、可选的 Redis 远程缓存与 cache.Unified，
并对外暴露运维 HTTP 接口与 Prometheus 指标。Redis 不可用时服务照常运行，
读写自动回退到进程内缓存，就绪探针报告 degraded。

# 核心类型

  - Server：组装缓存与 HTTP/Metrics 双端口，负责优雅关闭
  - Middleware：HTTP 中间件函数签名 func(http.Handler) http.Handler

# 主要能力

  - 子命令：serve、version、health（--ready 查询就绪探针）
  - 中间件链：Recovery、RequestID、SecurityHeaders、OTelTracing、
    RequestLogger、RateLimiter（基于 IP）、MetricsMiddleware
  - Metrics：metrics_port 非 0 时独立端口暴露 /metrics，否则挂在主端口
  - 优雅关闭：SIGINT/SIGTERM → 关闭 HTTP → 关闭 Metrics → 关闭缓存 → 刷新遥测
  - 构建注入：Version、BuildTime、GitCommit 通过 ldflags 设置
*/
package main
