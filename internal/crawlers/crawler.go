package crawlers

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/RecoveryAshes/sphistory/internal/models"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// Crawler 有界并发的递归抓取器
//
// 每个列表页只在打开、导航、读取期间持有一个并发令牌,
// 令牌在递归展开之前释放,因此任意时刻打开的标签页数量不超过上限。
// 下一页和所有子文件夹作为同级分支并发执行,全部结束后再汇总返回。
type Crawler struct {
	source ListingSource
	sink   LinkSink
	sem    *semaphore.Weighted

	pagesVisited atomic.Int64
	pagesFailed  atomic.Int64
	linksFound   atomic.Int64

	failuresMu sync.Mutex
	failures   []models.FailedLink
}

// NewCrawler 创建抓取器,concurrency为同时打开的标签页上限
func NewCrawler(source ListingSource, sink LinkSink, concurrency int) *Crawler {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Crawler{
		source: source,
		sink:   sink,
		sem:    semaphore.NewWeighted(int64(concurrency)),
	}
}

// Crawl 从pageURL开始递归抓取,返回该分支写入的目标链接数
// 单个页面失败只记录日志并返回0,不影响其他分支
func (c *Crawler) Crawl(ctx context.Context, pageURL string) int {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		log.Debug().Str("url", pageURL).Err(err).Msg("任务已取消,跳过页面")
		return 0
	}
	listing, err := c.source.Extract(ctx, pageURL)
	c.sem.Release(1)

	if err != nil {
		c.recordFailure(pageURL, err)
		return 0
	}
	c.pagesVisited.Add(1)

	count := 0
	if len(listing.Targets) > 0 {
		if err := c.sink.Write(listing.Targets); err != nil {
			log.Error().Err(err).Str("url", pageURL).Int("links", len(listing.Targets)).Msg("写入链接失败")
		} else {
			count += len(listing.Targets)
			c.linksFound.Add(int64(len(listing.Targets)))
			log.Info().Str("url", pageURL).Msgf("找到 %d 个链接并已写入", len(listing.Targets))
		}
	}

	branches := make([]string, 0, len(listing.Children)+1)
	if listing.Next != "" {
		log.Debug().Str("url", pageURL).Str("next", listing.Next).Msg("找到下一页")
		branches = append(branches, listing.Next)
	}
	branches = append(branches, listing.Children...)

	if len(branches) == 0 {
		return count
	}

	// 分支失败不取消兄弟分支,因此不用WithContext
	results := make([]int, len(branches))
	var g errgroup.Group
	for i, branch := range branches {
		g.Go(func() error {
			results[i] = c.Crawl(ctx, branch)
			return nil
		})
	}
	_ = g.Wait()

	for _, n := range results {
		count += n
	}

	log.Debug().Str("url", pageURL).Int("links", count).Msg("页面及其子项处理完成")
	return count
}

func (c *Crawler) recordFailure(pageURL string, err error) {
	c.pagesFailed.Add(1)
	log.Error().Err(err).Str("url", pageURL).Str("kind", models.ErrorKind(err)).Msg("处理页面时出错")

	c.failuresMu.Lock()
	c.failures = append(c.failures, models.NewFailedLink(pageURL, err))
	c.failuresMu.Unlock()
}

// FillStats 将运行统计写入stats
func (c *Crawler) FillStats(stats *models.CollectStats) {
	stats.PagesVisited = int(c.pagesVisited.Load())
	stats.PagesFailed = int(c.pagesFailed.Load())
	stats.LinksFound = int(c.linksFound.Load())

	c.failuresMu.Lock()
	stats.Failures = append([]models.FailedLink(nil), c.failures...)
	c.failuresMu.Unlock()
}
