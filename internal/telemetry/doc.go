// Package telemetry 封装 OpenTelemetry SDK 初始化逻辑，
// 为 Storefront 提供 TracerProvider 与 MeterProvider，统一缓存的远程调用 span 由此导出。
// 遥测禁用时使用 noop 实现，不连接任何外部服务。
package telemetry
