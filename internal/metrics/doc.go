// 版权所有 2024 Storefront Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 metrics 提供基于 Prometheus 的指标采集，覆盖运维 HTTP 接口与统一缓存。

# 概述

Collector 在调用方传入的 Registerer 上注册全部指标（nil 时使用默认注册表），
测试可以使用独立的 Registry 互不干扰。Collector 实现 cache.Recorder，
直接交给 cache.WithRecorder 使用。

# 主要能力

  - HTTP 指标：请求总数、耗时与响应体大小，状态码归类为 2xx/3xx/4xx/5xx。
  - 缓存指标：按 backend 统计命中/未命中，按 op 统计远程回退，
    按 reason 统计淘汰，以及进程内缓存的条目数与容量 Gauge。
*/
package metrics
