/*
Package testutil 提供 Storefront 测试的共享工具和辅助函数。

# 核心能力

  - 上下文辅助: TestContext / TestContextWithTimeout / CancelledContext，
    自动注册 Cleanup 防止泄漏
  - 异步断言: AssertEventuallyTrue / WaitFor，超时轮询等待条件满足
  - 数据工具: MustJSON

# 子包

  - testutil/mocks: MockRemote，内存版 cache.Remote，支持错误注入、延迟与调用计数
  - testutil/fixtures: 商品与分类样例数据

cache 包自身的测试不能导入 testutil/mocks（会形成导入环），
其余包测试 Unified 的远程行为时优先使用 MockRemote。
*/
package testutil
