package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	appconfig "github.com/RecoveryAshes/sphistory/internal/config"
	"github.com/RecoveryAshes/sphistory/internal/core"
	"github.com/RecoveryAshes/sphistory/internal/crawlers"
	"github.com/RecoveryAshes/sphistory/internal/models"
	"github.com/RecoveryAshes/sphistory/internal/utils"
	"github.com/spf13/cobra"
)

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "递归收集版本历史链接到links.txt",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := ValidateFlags(startURL, collectConcurrency, -1); err != nil {
			return err
		}
		appConfig.MergeCollectFlags(startURL, outputFile, collectConcurrency)

		if appConfig.Collect.StartURL == "" {
			input, err := promptStartURL(os.Stdin, os.Stdout)
			if err != nil {
				return err
			}
			appConfig.Collect.StartURL = input
		}
		if err := appConfig.Validate("collect"); err != nil {
			return err
		}

		ctx, stop := signalContext()
		defer stop()

		report := models.NewRunReport("collect", time.Now())
		collector := core.NewCollector(appConfig, crawlers.NewSessionProvider(appConfig.Session))
		stats, err := collector.Run(ctx, appConfig.Collect.StartURL)
		if stats != nil {
			report.Collect = stats
			saveReport(report)
			reportFailures(len(stats.Failures), "列表页")
		}
		if errors.Is(err, context.Canceled) {
			utils.Warn("收到中断信号,任务已停止")
			return nil
		}
		if err != nil {
			return fmt.Errorf("收集失败: %w", err)
		}

		utils.Info("✨ 收集任务完成!")
		return nil
	},
}

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "逐个打开links.txt中的链接并删除版本历史",
	RunE: func(cmd *cobra.Command, args []string) error {
		settle := -1
		if cmd.Flags().Changed("settle") {
			settle = settleSeconds
		}
		if err := ValidateFlags("", cleanConcurrency, settle); err != nil {
			return err
		}
		appConfig.MergeCleanFlags(inputFile, cleanConcurrency)
		if settle >= 0 {
			appConfig.Clean.Settle = time.Duration(settle) * time.Second
		}
		if err := appConfig.Validate("clean"); err != nil {
			return err
		}

		if _, err := os.Stat(appConfig.Clean.Input); err != nil {
			return fmt.Errorf("找不到链接文件 '%s',请先运行 collect 生成该文件", appConfig.Clean.Input)
		}

		ctx, stop := signalContext()
		defer stop()

		report := models.NewRunReport("clean", time.Now())
		cleaner := core.NewCleaner(appConfig, crawlers.NewSessionProvider(appConfig.Session), !noProgress)
		stats, err := cleaner.Run(ctx)
		if stats != nil {
			report.Clean = stats
			saveReport(report)
			reportFailures(len(stats.Failures), "链接")
		}
		if errors.Is(err, context.Canceled) {
			utils.Warn("收到中断信号,任务已停止")
			return nil
		}
		if err != nil {
			return fmt.Errorf("删除失败: %w", err)
		}
		return nil
	},
}

var filterCmd = &cobra.Command{
	Use:   "filter",
	Short: "按扩展名过滤links.txt",
	RunE: func(cmd *cobra.Command, args []string) error {
		appConfig.MergeFilterFlags(filterInput, excluded)
		if err := appConfig.Validate("filter"); err != nil {
			return err
		}
		path := appConfig.Filter.Input

		if survey {
			lines, err := utils.ReadLines(path)
			if err != nil {
				return fmt.Errorf("读取文件 %s 失败: %w", path, err)
			}
			for _, ending := range core.SuffixSurvey(lines) {
				fmt.Println(ending)
			}
			return nil
		}

		report := models.NewRunReport("filter", time.Now())
		stats, err := core.FilterFile(path, appConfig.Filter.Excluded)
		if err != nil {
			return fmt.Errorf("过滤失败: %w", err)
		}
		report.Filter = stats
		saveReport(report)

		fmt.Printf("过滤完成: %s 保留 %d 行,删除 %d 行\n", path, stats.After, stats.Dropped())
		return nil
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "生成默认配置文件",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configFile
		if path == "" {
			path = appconfig.DefaultConfigFile
		}
		created, err := appconfig.EnsureConfigExists(path)
		if err != nil {
			return err
		}
		if created {
			fmt.Printf("已生成配置文件: %s\n", path)
		} else {
			fmt.Printf("配置文件已存在: %s\n", path)
		}
		return nil
	},
}

// signalContext Ctrl+C或SIGTERM时取消任务,已打开的浏览器仍会被释放
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// promptStartURL 交互读取起始URL
func promptStartURL(in io.Reader, out io.Writer) (string, error) {
	fmt.Fprint(out, "请输入起始 URL: ")
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("读取输入失败: %w", err)
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return "", fmt.Errorf("未提供起始URL")
	}
	if err := ValidateURL(line); err != nil {
		return "", fmt.Errorf("无效的起始URL: %w", err)
	}
	return line, nil
}

// saveReport 保存运行报告,失败只记录警告
func saveReport(report *models.RunReport) {
	if appConfig.Output.ReportsDir == "" {
		return
	}
	report.Finish(time.Now())
	path, err := utils.SaveRunReport(appConfig.Output.ReportsDir, report)
	if err != nil {
		utils.Warnf("保存运行报告失败: %v", err)
		return
	}
	utils.Infof("运行报告已保存: %s", path)
}

// reportFailures 失败汇总写入错误日志
func reportFailures(n int, what string) {
	if n == 0 {
		return
	}
	if appConfig.Output.ReportsDir != "" {
		utils.Errorf("%d 个%s处理失败,详见 %s 中的运行报告", n, what, appConfig.Output.ReportsDir)
		return
	}
	utils.Errorf("%d 个%s处理失败,详见日志", n, what)
}
