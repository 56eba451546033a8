// 版权所有 2024 Storefront Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 server 管理 HTTP 服务器的生命周期：非阻塞启动、异常退出上报与优雅关闭。

运维接口与 Prometheus 指标接口各自使用一个 Manager，由 Config.Name 区分日志。
信号处理不在本包内，由 cmd/storefront 通过 context 统一编排。
*/
package server
