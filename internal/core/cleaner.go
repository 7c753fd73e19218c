package core

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/RecoveryAshes/sphistory/internal/crawlers"
	"github.com/RecoveryAshes/sphistory/internal/models"
	"github.com/RecoveryAshes/sphistory/internal/utils"
	"github.com/schollz/progressbar/v3"
)

// Cleaner 版本历史删除任务
type Cleaner struct {
	config   *Config
	sessions SessionSource
	monitor  *crawlers.ResourceMonitor

	showProgress bool
	out          io.Writer
}

// NewCleaner 创建删除任务
func NewCleaner(config *Config, sessions SessionSource, showProgress bool) *Cleaner {
	return &Cleaner{
		config:       config,
		sessions:     sessions,
		monitor:      crawlers.NewResourceMonitor(config.Resource),
		showProgress: showProgress,
		out:          os.Stdout,
	}
}

// Run 对输入文件中的每个链接执行页面动作
// 输入文件为空时不启动浏览器,直接返回
func (c *Cleaner) Run(ctx context.Context) (*models.CleanStats, error) {
	cfg := c.config.Clean

	links, err := utils.ReadLinks(cfg.Input)
	if err != nil {
		return nil, fmt.Errorf("读取链接文件 %s 失败: %w", cfg.Input, err)
	}

	stats := &models.CleanStats{InputFile: cfg.Input, Total: len(links)}
	if len(links) == 0 {
		utils.Warnf("文件 '%s' 为空,没有需要处理的链接", cfg.Input)
		return stats, nil
	}

	cfg.Concurrency = c.monitor.SafeCeiling(cfg.Concurrency)
	stats.Concurrency = cfg.Concurrency
	utils.Infof("共 %d 个链接,并发上限 %d", len(links), cfg.Concurrency)

	session, release, err := openSession(ctx, c.sessions)
	if err != nil {
		return nil, err
	}
	defer release()

	start := time.Now()
	runner := crawlers.NewActionRunner(session.Browser, cfg)
	var bar *progressbar.ProgressBar
	if c.showProgress {
		bar = utils.NewProgressBar(len(links), "删除版本历史")
		runner.OnProgress(func(string, error) {
			_ = bar.Add(1)
		})
	}

	stats.Succeeded = runner.RunAll(ctx, links)
	if bar != nil {
		_ = bar.Finish()
		fmt.Fprintln(c.out)
	}
	stats.Failed = stats.Total - stats.Succeeded
	stats.Failures = runner.Failures()
	stats.Duration = time.Since(start)

	fmt.Fprintf(c.out, "[%s] 总共成功处理了 %d / %d 个链接\n",
		time.Now().Format("2006-01-02 15:04:05"), stats.Succeeded, stats.Total)

	if err := ctx.Err(); err != nil {
		return stats, err
	}
	return stats, nil
}
