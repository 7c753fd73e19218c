package main

import (
	"fmt"

	"github.com/RecoveryAshes/sphistory/internal/models"
)

// ValidateURL 验证URL格式
func ValidateURL(urlStr string) error {
	return models.ValidateURL(urlStr)
}

// ValidateFlags 验证命令行标志
// concurrency为0、settle为负数表示未指定
func ValidateFlags(startURL string, concurrency int, settle int) error {
	// 验证URL
	if startURL != "" {
		if err := ValidateURL(startURL); err != nil {
			return fmt.Errorf("无效的起始URL: %w", err)
		}
	}

	// 验证并发数
	if concurrency != 0 && (concurrency < 1 || concurrency > models.MaxConcurrency) {
		return fmt.Errorf("并发数必须在1-%d之间,当前值: %d", models.MaxConcurrency, concurrency)
	}

	// 验证等待时间
	if settle > 60 {
		return fmt.Errorf("等待时间必须在0-60秒之间,当前值: %d", settle)
	}

	return nil
}
