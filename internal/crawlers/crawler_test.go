package crawlers

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/RecoveryAshes/sphistory/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildTree 深度3、每层2个子文件夹,共5个目标链接
//
//	R(1) -> A(0) -> A1(1), A2(1)
//	     -> B(0) -> B1(1), B2(1)
func buildTree(site *fakeSite) string {
	r, a, b := folderURL("R"), folderURL("A"), folderURL("B")
	site.pages[r] = listingHTML("R", []string{a, b}, 1, "")
	site.pages[a] = listingHTML("A", []string{folderURL("A1"), folderURL("A2")}, 0, "")
	site.pages[b] = listingHTML("B", []string{folderURL("B1"), folderURL("B2")}, 0, "")
	for _, leaf := range []string{"A1", "A2", "B1", "B2"} {
		site.pages[folderURL(leaf)] = listingHTML(leaf, nil, 1, "")
	}
	return r
}

func TestCrawler_Tree(t *testing.T) {
	site := newFakeSite()
	root := buildTree(site)
	sink := &memorySink{}

	crawler := NewCrawler(NewExtractor(site, testCollectConfig()), sink, 15)
	total := crawler.Crawl(context.Background(), root)

	assert.Equal(t, 5, total)
	assert.Len(t, sink.snapshot(), 5)
	assert.ElementsMatch(t, []string{
		historyURL("R", 0), historyURL("A1", 0), historyURL("A2", 0), historyURL("B1", 0), historyURL("B2", 0),
	}, sink.snapshot())

	open, _, opened, closed := site.stats()
	assert.Equal(t, 0, open, "所有标签页都应该关闭")
	assert.Equal(t, 7, opened)
	assert.Equal(t, opened, closed)

	var stats models.CollectStats
	crawler.FillStats(&stats)
	assert.Equal(t, 7, stats.PagesVisited)
	assert.Equal(t, 0, stats.PagesFailed)
	assert.Equal(t, 5, stats.LinksFound)
}

func TestCrawler_TimeoutLosesOnlySubtree(t *testing.T) {
	site := newFakeSite()
	root := buildTree(site)
	site.timeouts[folderURL("A")] = true
	sink := &memorySink{}

	crawler := NewCrawler(NewExtractor(site, testCollectConfig()), sink, 15)
	total := crawler.Crawl(context.Background(), root)

	assert.Equal(t, 3, total)
	assert.ElementsMatch(t, []string{historyURL("R", 0), historyURL("B1", 0), historyURL("B2", 0)}, sink.snapshot())

	var stats models.CollectStats
	crawler.FillStats(&stats)
	assert.Equal(t, 4, stats.PagesVisited)
	assert.Equal(t, 1, stats.PagesFailed)
	require.Len(t, stats.Failures, 1)
	assert.Equal(t, folderURL("A"), stats.Failures[0].URL)
	assert.Equal(t, "navigation_timeout", stats.Failures[0].ErrorType)

	open, _, opened, closed := site.stats()
	assert.Equal(t, 0, open)
	assert.Equal(t, opened, closed, "超时的页面也必须关闭")
}

func TestCrawler_NextPage(t *testing.T) {
	site := newFakeSite()
	r, r2, c := folderURL("R"), folderURL("R-page2"), folderURL("C")
	site.pages[r] = listingHTML("R", nil, 1, r2)
	site.pages[r2] = listingHTML("R2", []string{c}, 2, "")
	site.pages[c] = listingHTML("C", nil, 1, "")
	sink := &memorySink{}

	total := NewCrawler(NewExtractor(site, testCollectConfig()), sink, 2).Crawl(context.Background(), r)

	assert.Equal(t, 4, total)
	assert.Len(t, sink.snapshot(), 4)
}

func TestCrawler_TerminalPage(t *testing.T) {
	site := newFakeSite()
	r := folderURL("empty")
	site.pages[r] = listingHTML("empty", nil, 0, "")
	sink := &memorySink{}

	total := NewCrawler(NewExtractor(site, testCollectConfig()), sink, 1).Crawl(context.Background(), r)

	assert.Equal(t, 0, total)
	assert.Empty(t, sink.snapshot())
}

func TestCrawler_DuplicatesAreKept(t *testing.T) {
	site := newFakeSite()
	r, x := folderURL("R"), folderURL("X")
	site.pages[r] = listingHTML("R", []string{x, x}, 0, "")
	site.pages[x] = listingHTML("X", nil, 1, "")
	sink := &memorySink{}

	total := NewCrawler(NewExtractor(site, testCollectConfig()), sink, 4).Crawl(context.Background(), r)

	assert.Equal(t, 2, total)
	assert.Equal(t, []string{historyURL("X", 0), historyURL("X", 0)}, sink.snapshot())
}

func TestCrawler_RespectsCeiling(t *testing.T) {
	tests := []struct {
		name        string
		concurrency int
	}{
		{"上限为1", 1},
		{"上限为3", 3},
		{"上限为8", 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			site := newFakeSite()
			site.delay = 5 * time.Millisecond

			root := folderURL("root")
			children := make([]string, 0, 30)
			for i := 0; i < 30; i++ {
				child := folderURL(fmt.Sprintf("c%d", i))
				children = append(children, child)
				site.pages[child] = listingHTML(fmt.Sprintf("c%d", i), nil, 1, "")
			}
			site.pages[root] = listingHTML("root", children, 0, "")

			total := NewCrawler(NewExtractor(site, testCollectConfig()), &memorySink{}, tt.concurrency).
				Crawl(context.Background(), root)

			open, maxOpen, opened, closed := site.stats()
			assert.Equal(t, 30, total)
			assert.LessOrEqual(t, maxOpen, tt.concurrency)
			assert.Equal(t, 0, open)
			assert.Equal(t, 31, opened)
			assert.Equal(t, 31, closed)
		})
	}
}

func TestCrawler_CancelledContext(t *testing.T) {
	site := newFakeSite()
	root := buildTree(site)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	total := NewCrawler(NewExtractor(site, testCollectConfig()), &memorySink{}, 2).Crawl(ctx, root)

	assert.Equal(t, 0, total)
	_, _, opened, _ := site.stats()
	assert.Equal(t, 0, opened)
}

func TestFileSink_ConcurrentWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "links.txt")
	sink, err := NewFileSink(path)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, sink.Write([]string{historyURL("w", i*2), historyURL("w", i*2+1)}))
		}(i)
	}
	wg.Wait()
	require.NoError(t, sink.Close())
	require.NoError(t, sink.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	assert.Len(t, lines, 40)
	assert.Equal(t, 40, sink.Lines())

	assert.Error(t, sink.Write([]string{"https://late"}), "关闭后写入应该报错")
}

func TestFileSink_Truncates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "links.txt")
	require.NoError(t, os.WriteFile(path, []byte("old\n"), 0644))

	sink, err := NewFileSink(path)
	require.NoError(t, err)
	require.NoError(t, sink.Write([]string{"https://new"}))
	require.NoError(t, sink.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "https://new\n", string(data))
}
