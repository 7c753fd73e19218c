// Package crawlers 提供基于浏览器会话的列表页抓取和目标页动作执行
//
// # 概述
//
// 所有页面都通过已登录的浏览器用户数据访问,因此抓取完全在浏览器中进行。
// 上层只依赖Browser/Page能力接口,默认实现基于go-rod。
//
// # 核心组件
//
// ## SessionProvider (会话提供者)
//
// 按优先级探测候选浏览器的远程调试端口,可达则直接连接(reused),
// 否则启动新实例(provisioned)。Release只终止自己启动的浏览器。
//
//	provider := NewSessionProvider(cfg.Session)
//	if err := provider.Prepare(ctx); err != nil { /* 致命错误 */ }
//	session, err := provider.Acquire(ctx)
//	if err != nil { /* 致命错误 */ }
//	defer provider.Release(session)
//
// ## Extractor (列表页提取器)
//
// 打开列表页,等待内容标记出现,读取一次DOM并解析出子文件夹、
// 版本历史链接和下一页链接。提取器本身不递归。
//
// ## Crawler (递归抓取器)
//
// 用semaphore限制同时打开的标签页数量,令牌只在单个页面的读取期间持有。
// 下一页和子文件夹用errgroup并发展开,全部完成后汇总计数。
//
//	sink, _ := NewFileSink("links.txt")
//	defer sink.Close()
//	crawler := NewCrawler(NewExtractor(session.Browser, cfg.Collect), sink, 15)
//	total := crawler.Crawl(ctx, startURL)
//
// ## ActionRunner (动作执行器)
//
// 对每个目标链接打开标签页,自动接受确认弹窗,调用页面内的动作函数(默认deleteOnClick)。
//
// ## ResourceMonitor (资源监控器)
//
// 启动时根据可用内存检查并发上限,内存不足时调低上限。
//
// # 错误处理
//
// 会话不可用和用户数据复制失败是致命错误;单个页面的超时、读取失败、动作失败
// 只记录日志并计入失败列表,不影响其他分支。
package crawlers
