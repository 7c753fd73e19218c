package models

import (
	"fmt"
	"time"
)

// MaxConcurrency 并发标签页上限的最大允许值
const MaxConcurrency = 100

// CollectConfig 收集版本历史链接的配置
type CollectConfig struct {
	StartURL           string        `mapstructure:"start_url" json:"start_url"`                       // 起始列表页URL
	Output             string        `mapstructure:"output" json:"output"`                             // 输出文件 (默认:links.txt)
	Concurrency        int           `mapstructure:"concurrency" json:"concurrency"`                   // 并发标签页上限 (默认:15)
	NavTimeout         time.Duration `mapstructure:"nav_timeout" json:"nav_timeout"`                   // 导航超时 (默认:120s)
	MarkerTimeout      time.Duration `mapstructure:"marker_timeout" json:"marker_timeout"`             // 等待内容标记超时 (默认:120s)
	MarkerSelector     string        `mapstructure:"marker_selector" json:"marker_selector"`           // 内容标记选择器 (默认:tr)
	FolderLinkContains string        `mapstructure:"folder_link_contains" json:"folder_link_contains"` // 文件夹链接必须包含的片段
	TargetLabel        string        `mapstructure:"target_label" json:"target_label"`                 // 目标链接文本(完全匹配)
	NextLabel          string        `mapstructure:"next_label" json:"next_label"`                     // 下一页链接文本(包含匹配)
}

// Validate 验证配置
func (c *CollectConfig) Validate() error {
	if c.StartURL != "" {
		if err := ValidateURL(c.StartURL); err != nil {
			return fmt.Errorf("起始URL无效: %w", err)
		}
	}
	if c.Output == "" {
		return fmt.Errorf("输出文件不能为空")
	}
	if c.Concurrency < 1 || c.Concurrency > MaxConcurrency {
		return fmt.Errorf("并发数必须在1-%d之间", MaxConcurrency)
	}
	if c.NavTimeout <= 0 || c.MarkerTimeout <= 0 {
		return fmt.Errorf("超时时间必须大于0")
	}
	if c.MarkerSelector == "" {
		return fmt.Errorf("内容标记选择器不能为空")
	}
	if c.TargetLabel == "" || c.NextLabel == "" {
		return fmt.Errorf("目标链接和下一页链接文本不能为空")
	}
	return nil
}

// CleanConfig 删除版本历史的配置
type CleanConfig struct {
	Input       string        `mapstructure:"input" json:"input"`             // 链接文件 (默认:links.txt)
	Concurrency int           `mapstructure:"concurrency" json:"concurrency"` // 并发标签页上限 (默认:15)
	NavTimeout  time.Duration `mapstructure:"nav_timeout" json:"nav_timeout"` // 导航超时 (默认:60s)
	Action      string        `mapstructure:"action" json:"action"`           // 页面内的动作函数名 (默认:deleteOnClick)
	Settle      time.Duration `mapstructure:"settle" json:"settle"`           // 触发动作后等待时间 (默认:3s)
}

// Validate 验证配置
func (c *CleanConfig) Validate() error {
	if c.Input == "" {
		return fmt.Errorf("链接文件不能为空")
	}
	if c.Concurrency < 1 || c.Concurrency > MaxConcurrency {
		return fmt.Errorf("并发数必须在1-%d之间", MaxConcurrency)
	}
	if c.NavTimeout <= 0 {
		return fmt.Errorf("导航超时必须大于0")
	}
	if c.Settle < 0 {
		return fmt.Errorf("等待时间不能为负数")
	}
	if c.Action == "" {
		return fmt.Errorf("动作函数名不能为空")
	}
	return nil
}

// FilterConfig 链接过滤配置
type FilterConfig struct {
	Input    string   `mapstructure:"input" json:"input"`
	Excluded []string `mapstructure:"excluded" json:"excluded"` // 需要过滤的扩展名(区分大小写)
}

// BrowserCandidate 候选浏览器,按优先级排列
type BrowserCandidate struct {
	Name          string `mapstructure:"name" json:"name"`
	Executable    string `mapstructure:"executable" json:"executable"`
	Port          int    `mapstructure:"port" json:"port"`                     // 远程调试端口
	ProfileSource string `mapstructure:"profile_source" json:"profile_source"` // 需要复制的用户数据目录(可选)
	ProfileDir    string `mapstructure:"profile_dir" json:"profile_dir"`       // 启动时使用的用户数据目录(可选)
}

// HasProfileCopy 是否需要在启动前复制用户数据目录
func (c BrowserCandidate) HasProfileCopy() bool {
	return c.ProfileSource != "" && c.ProfileDir != ""
}

// SessionConfig 浏览器会话配置
type SessionConfig struct {
	Host        string             `mapstructure:"host" json:"host"`                 // 调试端口所在主机 (默认:127.0.0.1)
	Candidates  []BrowserCandidate `mapstructure:"candidates" json:"candidates"`     // 候选浏览器
	LaunchGrace time.Duration      `mapstructure:"launch_grace" json:"launch_grace"` // 启动后等待时间 (默认:3s)
	ExitTimeout time.Duration      `mapstructure:"exit_timeout" json:"exit_timeout"` // 等待浏览器退出的最长时间
}

// Validate 验证配置
func (c *SessionConfig) Validate() error {
	if len(c.Candidates) == 0 {
		return fmt.Errorf("至少需要一个候选浏览器")
	}
	for i, cand := range c.Candidates {
		if cand.Port < 1 || cand.Port > 65535 {
			return fmt.Errorf("候选浏览器 #%d (%s) 端口无效: %d", i+1, cand.Name, cand.Port)
		}
		if (cand.ProfileSource == "") != (cand.ProfileDir == "") {
			return fmt.Errorf("候选浏览器 #%d (%s) 的 profile_source 与 profile_dir 必须同时设置", i+1, cand.Name)
		}
	}
	if c.LaunchGrace < 0 {
		return fmt.Errorf("启动等待时间不能为负数")
	}
	return nil
}

// ResourceConfig 标签页资源保护配置
type ResourceConfig struct {
	Enabled         bool  `mapstructure:"enabled" json:"enabled"`
	TabMemoryMB     int64 `mapstructure:"tab_memory_mb" json:"tab_memory_mb"`         // 单个标签页平均内存消耗
	SafetyReserveMB int64 `mapstructure:"safety_reserve_mb" json:"safety_reserve_mb"` // 保留给系统的内存
}
