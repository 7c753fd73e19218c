package crawlers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/RecoveryAshes/sphistory/internal/models"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/rs/zerolog/log"
)

// RodBrowser 基于go-rod的Browser实现
type RodBrowser struct {
	browser *rod.Browser
}

// NewRodBrowser 包装已连接的rod浏览器
func NewRodBrowser(browser *rod.Browser) *RodBrowser {
	return &RodBrowser{browser: browser}
}

// OpenPage 创建新标签页
func (b *RodBrowser) OpenPage(ctx context.Context) (Page, error) {
	pageCtx, cancel := context.WithCancel(ctx)

	page, err := b.browser.Context(pageCtx).Page(proto.TargetCreateTarget{})
	if err != nil {
		cancel()
		// 浏览器可能已崩溃或连接断开
		return nil, fmt.Errorf("创建标签页失败(浏览器可能已崩溃): %w", err)
	}

	return &rodPage{page: page, cancel: cancel}, nil
}

// rodPage 基于rod.Page的Page实现
type rodPage struct {
	page   *rod.Page
	cancel context.CancelFunc
}

func (p *rodPage) Navigate(url string, timeout time.Duration) error {
	page := p.page.Timeout(timeout)
	defer page.CancelTimeout()

	wait := page.WaitNavigation(proto.PageLifecycleEventNameDOMContentLoaded)
	if err := page.Navigate(url); err != nil {
		return classifyTimeout(err, "导航失败")
	}
	wait()

	// WaitNavigation超时不返回错误,只能通过context判断
	if err := page.GetContext().Err(); err != nil {
		return classifyTimeout(err, "等待DOMContentLoaded失败")
	}
	return nil
}

func (p *rodPage) WaitMarker(selector string, timeout time.Duration) error {
	page := p.page.Timeout(timeout)
	defer page.CancelTimeout()

	if _, err := page.Element(selector); err != nil {
		return classifyTimeout(err, fmt.Sprintf("等待元素 %q 失败", selector))
	}
	return nil
}

func (p *rodPage) HTML() (string, error) {
	return p.page.HTML()
}

func (p *rodPage) Eval(js string) error {
	_, err := p.page.Evaluate(&rod.EvalOptions{JS: js})
	return err
}

func (p *rodPage) AcceptDialogs(onFailure func(error)) {
	page := p.page
	go page.EachEvent(func(e *proto.PageJavascriptDialogOpening) {
		// 在事件回调里不能阻塞,另起goroutine处理
		go func() {
			err := proto.PageHandleJavaScriptDialog{Accept: true}.Call(page)
			if err != nil && onFailure != nil {
				onFailure(fmt.Errorf("%w: %w", models.ErrActionDialogRace, err))
				return
			}
			log.Debug().Str("type", string(e.Type)).Str("message", e.Message).Msg("已自动接受弹窗")
		}()
	})()
}

func (p *rodPage) Close() error {
	// 外层context可能已被取消,关闭时不再受其约束
	err := p.page.Context(context.Background()).Close()
	p.cancel()
	return err
}

// classifyTimeout 将超时类错误归入ErrNavigationTimeout
func classifyTimeout(err error, msg string) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s: %w", models.ErrNavigationTimeout, msg, err)
	}
	return fmt.Errorf("%s: %w", msg, err)
}
