package main

import (
	"fmt"
	"os"

	"github.com/RecoveryAshes/sphistory/internal/core"
	"github.com/RecoveryAshes/sphistory/internal/utils"
	"github.com/spf13/cobra"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

// 命令行参数
var (
	// 全局参数
	configFile string
	verbose    bool
	logLevel   string

	// collect参数
	startURL           string
	outputFile         string
	collectConcurrency int

	// clean参数
	inputFile        string
	cleanConcurrency int
	settleSeconds    int
	noProgress       bool

	// filter参数
	filterInput string
	excluded    []string
	survey      bool
)

// appConfig 在PersistentPreRunE中加载
var appConfig *core.Config

var rootCmd = &cobra.Command{
	Use:   "sphistory",
	Short: "SharePoint 文档库版本历史清理工具",
	Long: `sphistory - SharePoint 文档库版本历史清理工具 (Go版本)

借助已登录的浏览器会话自动完成以下工作:
  • collect  递归遍历文件夹列表页,收集每个文件的"版本历史记录"链接
  • clean    逐个打开收集到的链接,调用页面中的删除动作并自动确认对话框
  • filter   按扩展名从链接文件中剔除不需要处理的文件

浏览器会话:
  优先连接已开启远程调试端口的浏览器,否则按配置顺序启动候选浏览器。
  首次运行会把浏览器用户数据目录复制一份,请先关闭浏览器。

示例:
  sphistory init
  sphistory collect -u "https://tenant.sharepoint.com/sites/x/_layouts/15/storman.aspx?root=Documents"
  sphistory filter --survey
  sphistory filter
  sphistory clean --concurrency 10

版本: ` + Version + `
构建时间: ` + BuildTime,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// 加载配置
		config, err := core.LoadConfig(configFile)
		if err != nil {
			return fmt.Errorf("加载配置失败: %w", err)
		}

		// 初始化日志系统
		logConfig := utils.LogConfig{
			Level:      config.LogLevel(logLevel),
			LogDir:     config.Logging.LogDir,
			MaxSize:    config.Logging.Rotation.MaxSize,
			MaxBackups: config.Logging.Rotation.MaxBackups,
			MaxAge:     config.Logging.Rotation.MaxAge,
			Compress:   config.Logging.Rotation.Compress,
		}
		if verbose && logLevel == "" {
			logConfig.Level = "debug"
		}

		if err := utils.InitLogger(logConfig); err != nil {
			return fmt.Errorf("初始化日志系统失败: %w", err)
		}

		if verbose {
			utils.Info("详细模式已启用")
		}

		appConfig = config
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "显示版本信息",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("sphistory %s\n", Version)
		fmt.Printf("构建时间: %s\n", BuildTime)
	},
}

func init() {
	// 全局参数
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "配置文件路径")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "详细输出模式")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "日志级别 (trace|debug|info|warn|error)")

	// collect参数
	collectCmd.Flags().StringVarP(&startURL, "url", "u", "", "起始文件夹列表页URL (未指定时交互输入)")
	collectCmd.Flags().StringVarP(&outputFile, "output", "o", "", "链接输出文件 (默认: links.txt)")
	collectCmd.Flags().IntVar(&collectConcurrency, "concurrency", 0, "并发标签页上限 (默认: 15)")

	// clean参数
	cleanCmd.Flags().StringVarP(&inputFile, "input", "i", "", "链接文件 (默认: links.txt)")
	cleanCmd.Flags().IntVar(&cleanConcurrency, "concurrency", 0, "并发标签页上限 (默认: 15)")
	cleanCmd.Flags().IntVar(&settleSeconds, "settle", 3, "触发动作后等待时间(秒)")
	cleanCmd.Flags().BoolVar(&noProgress, "no-progress", false, "不显示进度条")

	// filter参数
	filterCmd.Flags().StringVarP(&filterInput, "input", "i", "", "要过滤的链接文件 (默认: links.txt)")
	filterCmd.Flags().StringSliceVar(&excluded, "exclude", nil, "排除的扩展名,逗号分隔,可多次指定 (覆盖配置)")
	filterCmd.Flags().BoolVar(&survey, "survey", false, "只列出文件中出现的结尾字符,不修改文件")

	// 添加子命令
	rootCmd.AddCommand(collectCmd, cleanCmd, filterCmd, initCmd, versionCmd)
}

func main() {
	err := rootCmd.Execute()
	utils.CloseLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}
