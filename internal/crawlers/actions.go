package crawlers

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/RecoveryAshes/sphistory/internal/models"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// ProgressFunc 每处理完一个URL回调一次,err为nil表示成功
type ProgressFunc func(url string, err error)

// ActionRunner 目标页动作执行器
// 对每个URL: 打开标签页,自动接受弹窗,触发页面内的动作函数,等待生效后关闭
type ActionRunner struct {
	browser    Browser
	config     models.CleanConfig
	sem        *semaphore.Weighted
	onProgress ProgressFunc

	// 测试时替换
	sleep func(ctx context.Context, d time.Duration) error

	failuresMu sync.Mutex
	failures   []models.FailedLink
}

// NewActionRunner 创建动作执行器
func NewActionRunner(browser Browser, config models.CleanConfig) *ActionRunner {
	concurrency := config.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	return &ActionRunner{
		browser: browser,
		config:  config,
		sem:     semaphore.NewWeighted(int64(concurrency)),
		sleep:   sleepContext,
	}
}

// OnProgress 设置进度回调
func (r *ActionRunner) OnProgress(fn ProgressFunc) {
	r.onProgress = fn
}

// RunAll 并发处理所有URL,返回成功数量
func (r *ActionRunner) RunAll(ctx context.Context, urls []string) int {
	var succeeded atomic.Int64
	var g errgroup.Group

	for _, u := range urls {
		g.Go(func() error {
			var err error
			if err = r.sem.Acquire(ctx, 1); err != nil {
				err = fmt.Errorf("%w: 任务已取消: %w", models.ErrAction, err)
			} else {
				err = r.Run(ctx, u)
				r.sem.Release(1)
			}

			if err != nil {
				r.recordFailure(u, err)
			} else {
				succeeded.Add(1)
				log.Info().Str("url", u).Msg("处理成功")
			}

			if r.onProgress != nil {
				r.onProgress(u, err)
			}
			return nil
		})
	}
	_ = g.Wait()

	return int(succeeded.Load())
}

// Run 处理单个URL,标签页在任何路径上都会关闭
func (r *ActionRunner) Run(ctx context.Context, targetURL string) error {
	page, err := r.browser.OpenPage(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", models.ErrAction, err)
	}
	defer func() {
		if closeErr := page.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Str("url", targetURL).Msg("关闭标签页失败")
		}
	}()

	// 弹窗可能在处理前已经消失,只记警告
	page.AcceptDialogs(func(err error) {
		log.Warn().Err(err).Str("url", targetURL).Msg("处理弹窗时出错")
	})

	if err := page.Navigate(targetURL, r.config.NavTimeout); err != nil {
		return fmt.Errorf("%w: %w", models.ErrAction, err)
	}

	js := fmt.Sprintf("() => %s()", r.config.Action)
	if err := page.Eval(js); err != nil {
		return fmt.Errorf("%w: 执行 %s 失败: %w", models.ErrAction, r.config.Action, err)
	}

	if err := r.sleep(ctx, r.config.Settle); err != nil {
		return fmt.Errorf("%w: 等待动作生效时中断: %w", models.ErrAction, err)
	}
	return nil
}

func (r *ActionRunner) recordFailure(targetURL string, err error) {
	log.Error().Err(err).Str("url", targetURL).Msg("处理失败")

	r.failuresMu.Lock()
	r.failures = append(r.failures, models.NewFailedLink(targetURL, err))
	r.failuresMu.Unlock()
}

// Failures 返回失败记录
func (r *ActionRunner) Failures() []models.FailedLink {
	r.failuresMu.Lock()
	defer r.failuresMu.Unlock()
	return append([]models.FailedLink(nil), r.failures...)
}

// sleepContext 可被ctx打断的等待
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
