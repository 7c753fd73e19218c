package core

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/RecoveryAshes/sphistory/internal/crawlers"
	"github.com/RecoveryAshes/sphistory/internal/models"
	"github.com/stretchr/testify/require"
)

// stubBrowser 按URL返回固定HTML的假浏览器
type stubBrowser struct {
	mu     sync.Mutex
	pages  map[string]string
	fail   map[string]bool
	opened int
	closed int
}

func newStubBrowser() *stubBrowser {
	return &stubBrowser{pages: map[string]string{}, fail: map[string]bool{}}
}

func (b *stubBrowser) OpenPage(ctx context.Context) (crawlers.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.opened++
	return &stubPage{b: b}, nil
}

type stubPage struct {
	b   *stubBrowser
	url string
}

func (p *stubPage) Navigate(url string, timeout time.Duration) error {
	p.url = url
	return nil
}

func (p *stubPage) WaitMarker(selector string, timeout time.Duration) error { return nil }

func (p *stubPage) HTML() (string, error) {
	p.b.mu.Lock()
	defer p.b.mu.Unlock()
	return p.b.pages[p.url], nil
}

func (p *stubPage) Eval(js string) error {
	p.b.mu.Lock()
	defer p.b.mu.Unlock()
	if p.b.fail[p.url] {
		return errors.New("Uncaught ReferenceError: deleteOnClick is not defined")
	}
	return nil
}

func (p *stubPage) AcceptDialogs(onFailure func(error)) {}

func (p *stubPage) Close() error {
	p.b.mu.Lock()
	defer p.b.mu.Unlock()
	p.b.closed++
	return nil
}

// stubSessions 总是返回同一个假浏览器的会话
type stubSessions struct {
	browser    crawlers.Browser
	prepareErr error
	acquireErr error

	prepared int
	acquired int
	released int
}

func (s *stubSessions) Prepare(ctx context.Context) error {
	s.prepared++
	return s.prepareErr
}

func (s *stubSessions) Acquire(ctx context.Context) (*crawlers.Session, error) {
	if s.acquireErr != nil {
		return nil, s.acquireErr
	}
	s.acquired++
	return &crawlers.Session{
		Kind:      crawlers.SessionReused,
		Candidate: models.BrowserCandidate{Name: "stub", Port: 9222},
		Browser:   s.browser,
	}, nil
}

func (s *stubSessions) Release(session *crawlers.Session) error {
	s.released++
	return nil
}

// loadTestConfig 从临时配置文件加载,关闭资源检查并把输出放到临时目录
func loadTestConfig(t *testing.T) *Config {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("resource:\n  enabled: false\nclean:\n  settle: 0s\n"), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	cfg.Collect.Output = filepath.Join(dir, "links.txt")
	cfg.Clean.Input = filepath.Join(dir, "links.txt")
	cfg.Filter.Input = filepath.Join(dir, "links.txt")
	return cfg
}
