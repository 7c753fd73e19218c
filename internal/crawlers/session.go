package crawlers

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/RecoveryAshes/sphistory/internal/models"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/rs/zerolog/log"
)

// SessionKind 会话来源
type SessionKind int

const (
	// SessionReused 连接到已在运行的浏览器,结束时不关闭
	SessionReused SessionKind = iota
	// SessionProvisioned 由本程序启动的浏览器,结束时终止
	SessionProvisioned
)

func (k SessionKind) String() string {
	switch k {
	case SessionReused:
		return "reused"
	case SessionProvisioned:
		return "provisioned"
	default:
		return "unknown"
	}
}

// Session 已连接的浏览器会话
type Session struct {
	Kind       SessionKind
	Candidate  models.BrowserCandidate
	ControlURL string
	Browser    Browser

	process Process
}

// SessionProvider 浏览器会话提供者
//
// 状态: Disconnected -> Connected(reused | provisioned)。
// 先按优先级探测各候选浏览器的调试端口,都不可达时再按优先级启动。
type SessionProvider struct {
	config models.SessionConfig

	// 以下钩子默认使用rod launcher,测试时替换
	probe    func(endpoint string) (string, error)
	connect  func(ctx context.Context, controlURL string) (Browser, error)
	launch   func(cand models.BrowserCandidate) (Process, error)
	exists   func(path string) bool
	sleep    func(ctx context.Context, d time.Duration) error
	waitExit func(ctx context.Context, pid int, timeout time.Duration) error
}

// NewSessionProvider 创建会话提供者
func NewSessionProvider(config models.SessionConfig) *SessionProvider {
	if config.Host == "" {
		config.Host = "127.0.0.1"
	}
	return &SessionProvider{
		config:   config,
		probe:    launcher.ResolveURL,
		connect:  connectRod,
		launch:   launchRod,
		exists:   fileExists,
		sleep:    sleepContext,
		waitExit: waitProcessExit,
	}
}

// Prepare 为第一个已安装的候选浏览器准备用户数据目录副本,可重复调用
// 只有它会被优先启动,其余候选浏览器在真正启动前才复制
func (p *SessionProvider) Prepare(ctx context.Context) error {
	for _, cand := range p.config.Candidates {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !p.installed(cand) {
			log.Debug().Str("browser", cand.Name).Msg("可执行文件不存在,跳过")
			continue
		}
		return p.prepareProfile(cand)
	}
	return nil
}

// prepareProfile 启动前确保候选浏览器的用户数据目录副本存在
func (p *SessionProvider) prepareProfile(cand models.BrowserCandidate) error {
	if !cand.HasProfileCopy() {
		return nil
	}
	if !p.exists(cand.ProfileDir) {
		warnIfRunning(cand.Executable)
	}
	return EnsureProfileCopy(cand.ProfileSource, cand.ProfileDir)
}

func (p *SessionProvider) installed(cand models.BrowserCandidate) bool {
	return cand.Executable != "" && p.exists(cand.Executable)
}

// Acquire 获取浏览器会话
func (p *SessionProvider) Acquire(ctx context.Context) (*Session, error) {
	if len(p.config.Candidates) == 0 {
		return nil, fmt.Errorf("%w: 没有配置候选浏览器", models.ErrSessionUnavailable)
	}

	// 1. 优先连接已在运行的浏览器
	for _, cand := range p.config.Candidates {
		endpoint := p.endpoint(cand)
		log.Info().Str("browser", cand.Name).Str("endpoint", endpoint).Msg("正在尝试连接浏览器")

		controlURL, err := p.probe(endpoint)
		if err != nil {
			log.Debug().Err(err).Str("endpoint", endpoint).Msg("调试端口不可达")
			continue
		}
		browser, err := p.connect(ctx, controlURL)
		if err != nil {
			log.Warn().Err(err).Str("endpoint", endpoint).Msg("连接浏览器失败")
			continue
		}

		log.Info().Str("browser", cand.Name).Msg("连接成功,将使用已打开的浏览器实例")
		return &Session{
			Kind:       SessionReused,
			Candidate:  cand,
			ControlURL: controlURL,
			Browser:    browser,
		}, nil
	}

	// 2. 启动新实例
	var tried []string
	for _, cand := range p.config.Candidates {
		if !p.installed(cand) {
			log.Debug().Str("browser", cand.Name).Str("path", cand.Executable).Msg("可执行文件不存在")
			continue
		}
		tried = append(tried, cand.Name)

		session, err := p.provision(ctx, cand)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if errors.Is(err, models.ErrProfileCopy) {
				return nil, err
			}
			log.Warn().Err(err).Str("browser", cand.Name).Msg("启动浏览器失败")
			continue
		}
		return session, nil
	}

	if len(tried) == 0 {
		return nil, fmt.Errorf("%w: 调试端口均不可达,且未找到任何候选浏览器的可执行文件", models.ErrSessionUnavailable)
	}
	return nil, fmt.Errorf("%w: 启动 %s 均失败", models.ErrSessionUnavailable, strings.Join(tried, ", "))
}

func (p *SessionProvider) provision(ctx context.Context, cand models.BrowserCandidate) (*Session, error) {
	log.Info().
		Str("browser", cand.Name).
		Int("port", cand.Port).
		Str("user_data_dir", cand.ProfileDir).
		Msg("正在启动新的浏览器实例")

	if err := p.prepareProfile(cand); err != nil {
		return nil, err
	}

	proc, err := p.launch(cand)
	if err != nil {
		return nil, err
	}

	session, err := p.attach(ctx, cand, proc)
	if err != nil {
		proc.Kill()
		if waitErr := p.waitExit(context.Background(), proc.PID(), p.config.ExitTimeout); waitErr != nil {
			log.Warn().Err(waitErr).Msg("等待浏览器退出失败")
		}
		return nil, err
	}

	log.Info().Str("browser", cand.Name).Int("pid", proc.PID()).Msg("新实例连接成功")
	return session, nil
}

func (p *SessionProvider) attach(ctx context.Context, cand models.BrowserCandidate, proc Process) (*Session, error) {
	log.Info().Dur("grace", p.config.LaunchGrace).Msg("等待浏览器启动...")
	if err := p.sleep(ctx, p.config.LaunchGrace); err != nil {
		return nil, err
	}

	controlURL, err := p.probe(p.endpoint(cand))
	if err != nil {
		return nil, fmt.Errorf("启动后调试端口仍不可达: %w", err)
	}
	browser, err := p.connect(ctx, controlURL)
	if err != nil {
		return nil, err
	}

	return &Session{
		Kind:       SessionProvisioned,
		Candidate:  cand,
		ControlURL: controlURL,
		Browser:    browser,
		process:    proc,
	}, nil
}

// Release 释放会话: 自己启动的浏览器终止并等待退出,连接的浏览器保持不动
func (p *SessionProvider) Release(s *Session) error {
	if s == nil {
		return nil
	}
	if s.Kind != SessionProvisioned || s.process == nil {
		log.Info().Msg("任务结束,连接的是现有浏览器实例,不关闭浏览器")
		return nil
	}

	log.Info().Str("browser", s.Candidate.Name).Msg("任务结束,正在关闭由本程序启动的浏览器...")
	pid := s.process.PID()
	s.process.Kill()

	if err := p.waitExit(context.Background(), pid, p.config.ExitTimeout); err != nil {
		return fmt.Errorf("关闭浏览器失败: %w", err)
	}
	log.Info().Msg("浏览器已关闭")
	return nil
}

func (p *SessionProvider) endpoint(cand models.BrowserCandidate) string {
	return fmt.Sprintf("http://%s:%d", p.config.Host, cand.Port)
}

func connectRod(ctx context.Context, controlURL string) (Browser, error) {
	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("连接浏览器失败: %w", err)
	}
	return NewRodBrowser(browser.Context(ctx)), nil
}

func launchRod(cand models.BrowserCandidate) (Process, error) {
	l := launcher.NewUserMode().
		Bin(cand.Executable).
		RemoteDebuggingPort(cand.Port).
		Leakless(false)
	if cand.ProfileDir != "" {
		l = l.UserDataDir(cand.ProfileDir)
	}

	if _, err := l.Launch(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("启动 %s 失败: %w", cand.Executable, err)
	}
	return l, nil
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return !errors.Is(err, fs.ErrNotExist)
}
