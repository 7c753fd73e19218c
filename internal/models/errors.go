package models

import (
	"errors"
	"fmt"
)

// 错误分类
// 会话和配置目录复制失败为致命错误,其余均在单个URL范围内恢复
var (
	ErrSessionUnavailable = errors.New("浏览器会话不可用")
	ErrProfileCopy        = errors.New("复制浏览器用户数据目录失败")
	ErrNavigationTimeout  = errors.New("页面加载超时")
	ErrExtraction         = errors.New("提取页面链接失败")
	ErrActionDialogRace   = errors.New("弹窗已消失")
	ErrAction             = errors.New("执行页面动作失败")
)

// ErrorKind 返回错误所属分类的简短名称(用于报告)
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrSessionUnavailable):
		return "session_unavailable"
	case errors.Is(err, ErrProfileCopy):
		return "profile_copy_failure"
	case errors.Is(err, ErrNavigationTimeout):
		return "navigation_timeout"
	case errors.Is(err, ErrExtraction):
		return "extraction_error"
	case errors.Is(err, ErrActionDialogRace):
		return "action_dialog_race"
	case errors.Is(err, ErrAction):
		return "action_error"
	default:
		return "unknown"
	}
}

// ConfigError 配置文件错误
type ConfigError struct {
	// FilePath 配置文件路径
	FilePath string

	// Cause 底层错误
	Cause error
}

// Error 实现error接口
func (e *ConfigError) Error() string {
	return fmt.Sprintf("配置文件错误 [%s]: %v", e.FilePath, e.Cause)
}

// Unwrap 支持errors.Unwrap
func (e *ConfigError) Unwrap() error {
	return e.Cause
}
