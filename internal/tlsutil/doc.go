// Package tlsutil 集中维护出站连接的 TLS 配置。
// rediss:// 连接与 health 子命令的 HTTP 客户端都经由此处收紧到 TLS 1.2+ 与 AEAD 套件。
package tlsutil
