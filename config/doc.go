// Package config 提供 Storefront 缓存服务的配置管理功能。
//
// 配置按 默认值 → YAML 文件 → 环境变量 的顺序叠加，
// 环境变量名由 STOREFRONT_ 前缀与 env 标签拼接而成，
// 例如 STOREFRONT_CACHE_CAPACITY、STOREFRONT_REDIS_URL。
package config
