// 版权所有 2024 Storefront Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 rediscache 提供统一缓存的 Redis 远程后端。

# 概述

Manager 封装 go-redis 客户端并实现 cache.Remote。值以调用方序列化好的
字节读写，键统一加上 KeyPrefix，多个应用共用一个 Redis 时互不干扰。
连接失败不会阻止启动：统一缓存在每次调用时自行回退到进程内缓存。

# 核心类型

  - Manager：持有 Redis 客户端，提供 Get/SetEx/Del/Keys/Clear/Ping，
    后台定时 Ping 并维护 Healthy 状态。
  - Config：连接串、键前缀、连接池与健康检查参数。

# 主要能力

  - 模式枚举：Keys 使用 SCAN 游标遍历，不会像 KEYS 一样阻塞 Redis。
  - 范围清理：Clear 只删除本前缀下的键，未配置前缀时清空当前库。
  - 错误语义：未命中返回 cache.ErrCacheMiss，关闭后返回 ErrClosed。
*/
package rediscache
