package crawlers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/RecoveryAshes/sphistory/internal/models"
)

// fakeSite 内存中的假浏览器,按URL返回预置的HTML
type fakeSite struct {
	mu sync.Mutex

	pages    map[string]string
	timeouts map[string]bool
	evalErrs map[string]bool
	races    map[string]bool // 动作触发的弹窗在处理前已消失
	delay    time.Duration

	open      int
	maxOpen   int
	opened    int
	closed    int
	dialogs   int
	raced     int
	evaluated []string
}

func newFakeSite() *fakeSite {
	return &fakeSite{
		pages:    make(map[string]string),
		timeouts: make(map[string]bool),
		evalErrs: make(map[string]bool),
		races:    make(map[string]bool),
	}
}

func (s *fakeSite) OpenPage(ctx context.Context) (Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.open++
	s.opened++
	if s.open > s.maxOpen {
		s.maxOpen = s.open
	}
	return &fakePage{site: s}, nil
}

func (s *fakeSite) stats() (open, maxOpen, opened, closed int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open, s.maxOpen, s.opened, s.closed
}

type fakePage struct {
	site     *fakeSite
	url      string
	closed   bool
	onDialog func(error)
}

func (p *fakePage) Navigate(url string, timeout time.Duration) error {
	if p.closed {
		return errors.New("page used after close")
	}
	p.url = url
	if p.site.delay > 0 {
		time.Sleep(p.site.delay)
	}

	p.site.mu.Lock()
	defer p.site.mu.Unlock()
	if p.site.timeouts[url] {
		return fmt.Errorf("%w: %s: %w", models.ErrNavigationTimeout, url, context.DeadlineExceeded)
	}
	return nil
}

func (p *fakePage) WaitMarker(selector string, timeout time.Duration) error {
	if p.closed {
		return errors.New("page used after close")
	}
	return nil
}

func (p *fakePage) HTML() (string, error) {
	if p.closed {
		return "", errors.New("page used after close")
	}
	p.site.mu.Lock()
	defer p.site.mu.Unlock()
	return p.site.pages[p.url], nil
}

func (p *fakePage) Eval(js string) error {
	if p.closed {
		return errors.New("page used after close")
	}
	p.site.mu.Lock()
	p.site.evaluated = append(p.site.evaluated, js)
	failed := p.site.evalErrs[p.url]
	raced := p.site.races[p.url] && p.onDialog != nil
	if raced {
		p.site.raced++
	}
	p.site.mu.Unlock()

	if failed {
		return errors.New("deleteOnClick is not defined")
	}
	if raced {
		p.onDialog(fmt.Errorf("%w: %w", models.ErrActionDialogRace, errors.New("No dialog is showing")))
	}
	return nil
}

func (p *fakePage) AcceptDialogs(onFailure func(error)) {
	p.onDialog = onFailure
	p.site.mu.Lock()
	p.site.dialogs++
	p.site.mu.Unlock()
}

func (p *fakePage) Close() error {
	p.site.mu.Lock()
	defer p.site.mu.Unlock()
	if p.closed {
		return errors.New("page closed twice")
	}
	p.closed = true
	p.site.open--
	p.site.closed++
	return nil
}

// memorySink 内存输出端
type memorySink struct {
	mu    sync.Mutex
	lines []string
}

func (s *memorySink) Write(links []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = append(s.lines, links...)
	return nil
}

func (s *memorySink) snapshot() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.lines...)
}

const testHost = "https://sp.example.com"

func folderURL(name string) string {
	return testHost + "/_layouts/15/storman.aspx?root=Docs/" + name
}

func historyURL(page string, i int) string {
	return fmt.Sprintf("%s/_layouts/15/Versions.aspx?id=%s-%d", testHost, page, i)
}

// listingHTML 生成一个列表页: 每个子文件夹和每个目标各占一行
func listingHTML(name string, children []string, targets int, next string) string {
	var sb strings.Builder
	sb.WriteString("<html><body><table>")
	sb.WriteString("<tr><th>类型</th><th>名称</th><th>操作</th></tr>")
	for _, child := range children {
		fmt.Fprintf(&sb, `<tr><td>📁</td><td><a href="%s">%s</a></td><td></td></tr>`, child, child)
	}
	for i := 0; i < targets; i++ {
		fmt.Fprintf(&sb, `<tr><td>📄</td><td>file%d.mkv</td><td><a href="%s">版本历史记录</a></td></tr>`, i, historyURL(name, i))
	}
	sb.WriteString("</table>")
	if next != "" {
		fmt.Fprintf(&sb, `<a href="%s">下一个 &gt;</a>`, next)
	}
	sb.WriteString("</body></html>")
	return sb.String()
}

func testCollectConfig() models.CollectConfig {
	return models.CollectConfig{
		Output:             "links.txt",
		Concurrency:        15,
		NavTimeout:         time.Second,
		MarkerTimeout:      time.Second,
		MarkerSelector:     "tr",
		FolderLinkContains: "/storman.aspx?root=",
		TargetLabel:        "版本历史记录",
		NextLabel:          "下一个",
	}
}
