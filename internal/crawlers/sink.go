package crawlers

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// LinkSink 目标链接的输出端
// Write必须可并发调用,同一批链接整体写入,不同批之间不交错
type LinkSink interface {
	Write(links []string) error
}

// FileSink 每行一个URL的文本文件输出
type FileSink struct {
	mu    sync.Mutex
	path  string
	file  *os.File
	lines int
}

// NewFileSink 创建(并清空)输出文件
func NewFileSink(path string) (*FileSink, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("创建输出目录失败: %w", err)
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("创建输出文件失败: %w", err)
	}

	return &FileSink{path: path, file: file}, nil
}

// Write 追加一批链接,每批直接落盘
func (s *FileSink) Write(links []string) error {
	if len(links) == 0 {
		return nil
	}

	var sb strings.Builder
	for _, link := range links {
		sb.WriteString(link)
		sb.WriteByte('\n')
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return fmt.Errorf("输出文件已关闭: %s", s.path)
	}
	if _, err := s.file.WriteString(sb.String()); err != nil {
		return fmt.Errorf("写入输出文件失败: %w", err)
	}
	s.lines += len(links)
	return nil
}

// Lines 已写入的行数
func (s *FileSink) Lines() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lines
}

// Path 输出文件路径
func (s *FileSink) Path() string {
	return s.path
}

// Close 关闭文件,可重复调用
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}
