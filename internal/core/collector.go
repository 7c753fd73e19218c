package core

import (
	"context"
	"fmt"
	"time"

	"github.com/RecoveryAshes/sphistory/internal/crawlers"
	"github.com/RecoveryAshes/sphistory/internal/models"
	"github.com/RecoveryAshes/sphistory/internal/utils"
)

// SessionSource 浏览器会话来源,默认为crawlers.SessionProvider
type SessionSource interface {
	Prepare(ctx context.Context) error
	Acquire(ctx context.Context) (*crawlers.Session, error)
	Release(session *crawlers.Session) error
}

// Collector 版本历史链接收集任务
type Collector struct {
	config   *Config
	sessions SessionSource
	monitor  *crawlers.ResourceMonitor
}

// NewCollector 创建收集任务
func NewCollector(config *Config, sessions SessionSource) *Collector {
	return &Collector{
		config:   config,
		sessions: sessions,
		monitor:  crawlers.NewResourceMonitor(config.Resource),
	}
}

// Run 从startURL开始收集,链接实时写入输出文件
// 会话获取失败为致命错误;ctx取消时返回已收集的统计和ctx的错误
func (c *Collector) Run(ctx context.Context, startURL string) (*models.CollectStats, error) {
	cfg := c.config.Collect
	if err := models.ValidateURL(startURL); err != nil {
		return nil, fmt.Errorf("起始URL无效: %w", err)
	}

	concurrency := c.monitor.SafeCeiling(cfg.Concurrency)
	utils.Infof("起始 URL: %s", startURL)
	utils.Infof("并发标签页上限设置为: %d", concurrency)

	session, release, err := openSession(ctx, c.sessions)
	if err != nil {
		return nil, err
	}
	defer release()

	sink, err := crawlers.NewFileSink(cfg.Output)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := sink.Close(); err != nil {
			utils.Warnf("关闭输出文件失败: %v", err)
		}
	}()
	utils.Infof("将实时写入链接到 %s", cfg.Output)

	start := time.Now()
	crawler := crawlers.NewCrawler(crawlers.NewExtractor(session.Browser, cfg), sink, concurrency)
	total := crawler.Crawl(ctx, startURL)

	stats := &models.CollectStats{
		StartURL:    startURL,
		OutputFile:  cfg.Output,
		Concurrency: concurrency,
		Duration:    time.Since(start),
	}
	crawler.FillStats(stats)

	if err := ctx.Err(); err != nil {
		utils.Warnf("任务被中断,已写入 %d 个链接", total)
		return stats, err
	}

	utils.Infof("爬取完成。总共找到并写入 %d 个链接 (页面 %d, 失败 %d, 耗时 %s)",
		total, stats.PagesVisited, stats.PagesFailed, stats.Duration.Round(time.Second))
	return stats, nil
}

// openSession 准备并获取会话,返回的release在任何退出路径上都应调用
func openSession(ctx context.Context, sessions SessionSource) (*crawlers.Session, func(), error) {
	if err := sessions.Prepare(ctx); err != nil {
		return nil, nil, err
	}

	session, err := sessions.Acquire(ctx)
	if err != nil {
		return nil, nil, err
	}
	utils.Infof("浏览器会话已获取 (%s, %s)", session.Candidate.Name, session.Kind)

	release := func() {
		if err := sessions.Release(session); err != nil {
			utils.Warnf("释放浏览器会话失败: %v", err)
		}
	}
	return session, release, nil
}
