package crawlers

import (
	"context"
	"time"
)

// Browser 浏览器能力接口
// 抓取器和动作执行器只依赖这个接口,测试时可用假实现替换
type Browser interface {
	// OpenPage 打开一个新的标签页,ctx取消后该标签页上的操作全部中止
	OpenPage(ctx context.Context) (Page, error)
}

// Page 单个标签页
// 由打开它的一方持有,在任何退出路径上都必须Close,关闭后不得再使用
type Page interface {
	// Navigate 导航到url并等待DOMContentLoaded
	Navigate(url string, timeout time.Duration) error

	// WaitMarker 等待selector匹配的元素出现
	WaitMarker(selector string, timeout time.Duration) error

	// HTML 读取当前渲染后的HTML
	HTML() (string, error)

	// Eval 执行一个JS函数表达式,例如 "() => deleteOnClick()"
	Eval(js string) error

	// AcceptDialogs 自动接受此后弹出的所有对话框,处理失败时回调onFailure
	AcceptDialogs(onFailure func(error))

	// Close 关闭标签页
	Close() error
}
