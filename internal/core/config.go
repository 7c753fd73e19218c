package core

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	appconfig "github.com/RecoveryAshes/sphistory/internal/config"
	"github.com/RecoveryAshes/sphistory/internal/models"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/spf13/viper"
)

// Config 应用程序配置
type Config struct {
	Collect  models.CollectConfig  `mapstructure:"collect"`
	Clean    models.CleanConfig    `mapstructure:"clean"`
	Filter   models.FilterConfig   `mapstructure:"filter"`
	Session  models.SessionConfig  `mapstructure:"session"`
	Resource models.ResourceConfig `mapstructure:"resource"`
	Logging  LoggingConfig         `mapstructure:"logging"`
	Output   OutputConfig          `mapstructure:"output"`
}

// LoggingConfig 日志配置
type LoggingConfig struct {
	Level    string         `mapstructure:"level"`
	LogDir   string         `mapstructure:"log_dir"`
	Rotation RotationConfig `mapstructure:"rotation"`
}

// RotationConfig 日志轮转配置
type RotationConfig struct {
	MaxSize    int  `mapstructure:"max_size"`
	MaxBackups int  `mapstructure:"max_backups"`
	MaxAge     int  `mapstructure:"max_age"`
	Compress   bool `mapstructure:"compress"`
}

// OutputConfig 输出配置
type OutputConfig struct {
	ReportsDir string `mapstructure:"reports_dir"` // 运行报告目录,为空时不保存报告
}

// LoadConfig 加载配置文件
// configPath为空时按 ./configs、.、~/.sphistory 的顺序搜索config.yaml,找不到则使用默认值
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		if err := appconfig.ValidateFileSize(configPath); err != nil {
			return nil, err
		}
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")

		v.AddConfigPath("./configs")
		v.AddConfigPath(".")

		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".sphistory"))
		}
	}

	// 环境变量覆盖,例如 SPHISTORY_COLLECT_CONCURRENCY=5
	v.SetEnvPrefix("SPHISTORY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, &models.ConfigError{FilePath: configFileName(v, configPath), Cause: err}
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, &models.ConfigError{FilePath: configFileName(v, configPath), Cause: fmt.Errorf("解析配置文件失败: %w", err)}
	}

	return &config, nil
}

func configFileName(v *viper.Viper, configPath string) string {
	if used := v.ConfigFileUsed(); used != "" {
		return used
	}
	if configPath != "" {
		return configPath
	}
	return "config.yaml"
}

// setDefaults 设置默认配置值
func setDefaults(v *viper.Viper) {
	// 收集
	v.SetDefault("collect.start_url", "")
	v.SetDefault("collect.output", "links.txt")
	v.SetDefault("collect.concurrency", 15)
	v.SetDefault("collect.nav_timeout", 120*time.Second)
	v.SetDefault("collect.marker_timeout", 120*time.Second)
	v.SetDefault("collect.marker_selector", "tr")
	v.SetDefault("collect.folder_link_contains", "/storman.aspx?root=")
	v.SetDefault("collect.target_label", "版本历史记录")
	v.SetDefault("collect.next_label", "下一个")

	// 删除
	v.SetDefault("clean.input", "links.txt")
	v.SetDefault("clean.concurrency", 15)
	v.SetDefault("clean.nav_timeout", 60*time.Second)
	v.SetDefault("clean.action", "deleteOnClick")
	v.SetDefault("clean.settle", 3*time.Second)

	// 过滤
	v.SetDefault("filter.input", "links.txt")
	v.SetDefault("filter.excluded", DefaultExcludedSuffixes)

	// 浏览器会话
	v.SetDefault("session.host", "127.0.0.1")
	v.SetDefault("session.candidates", candidateMaps(DefaultCandidates(runtime.GOOS)))
	v.SetDefault("session.launch_grace", 3*time.Second)
	v.SetDefault("session.exit_timeout", 10*time.Second)

	// 资源检查
	v.SetDefault("resource.enabled", true)
	v.SetDefault("resource.tab_memory_mb", 100)
	v.SetDefault("resource.safety_reserve_mb", 1024)

	// 日志
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.log_dir", "logs")
	v.SetDefault("logging.rotation.max_size", 10)
	v.SetDefault("logging.rotation.max_backups", 3)
	v.SetDefault("logging.rotation.max_age", 28)
	v.SetDefault("logging.rotation.compress", true)

	// 输出
	v.SetDefault("output.reports_dir", "reports")
}

// DefaultCandidates 返回默认的候选浏览器列表
//
// Windows: 先Thorium(9222),再Chrome(9223,使用复制出的 User Data2)。
// 其他系统: 由rod查找本机的Chrome/Chromium。
func DefaultCandidates(goos string) []models.BrowserCandidate {
	if goos != "windows" {
		bin, _ := launcher.LookPath()
		return []models.BrowserCandidate{
			{Name: "chrome", Executable: bin, Port: 9222},
		}
	}

	localAppData := os.Getenv("LOCALAPPDATA")
	if localAppData == "" {
		home, _ := os.UserHomeDir()
		localAppData = filepath.Join(home, "AppData", "Local")
	}
	programFiles := os.Getenv("ProgramFiles")
	if programFiles == "" {
		programFiles = `C:\Program Files`
	}
	chromeData := filepath.Join(localAppData, "Google", "Chrome")

	return []models.BrowserCandidate{
		{
			Name:       "thorium",
			Executable: filepath.Join(localAppData, "Thorium", "Application", "thorium.exe"),
			Port:       9222,
		},
		{
			Name:          "chrome",
			Executable:    filepath.Join(programFiles, "Google", "Chrome", "Application", "chrome.exe"),
			Port:          9223,
			ProfileSource: filepath.Join(chromeData, "User Data"),
			ProfileDir:    filepath.Join(chromeData, "User Data2"),
		},
	}
}

// candidateMaps viper的默认值需要是map形式才能被环境变量和配置文件整体覆盖
func candidateMaps(cands []models.BrowserCandidate) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(cands))
	for _, c := range cands {
		out = append(out, map[string]interface{}{
			"name":           c.Name,
			"executable":     c.Executable,
			"port":           c.Port,
			"profile_source": c.ProfileSource,
			"profile_dir":    c.ProfileDir,
		})
	}
	return out
}

// Validate 按命令验证需要用到的配置段
func (c *Config) Validate(command string) error {
	switch command {
	case "collect":
		if err := c.Collect.Validate(); err != nil {
			return fmt.Errorf("collect配置无效: %w", err)
		}
		if err := c.Session.Validate(); err != nil {
			return fmt.Errorf("session配置无效: %w", err)
		}
	case "clean":
		if err := c.Clean.Validate(); err != nil {
			return fmt.Errorf("clean配置无效: %w", err)
		}
		if err := c.Session.Validate(); err != nil {
			return fmt.Errorf("session配置无效: %w", err)
		}
	case "filter":
		if c.Filter.Input == "" {
			return fmt.Errorf("filter配置无效: 输入文件不能为空")
		}
	}
	return nil
}

// MergeCollectFlags 合并collect命令行参数,零值表示未指定
func (c *Config) MergeCollectFlags(startURL, output string, concurrency int) {
	if startURL != "" {
		c.Collect.StartURL = startURL
	}
	if output != "" {
		c.Collect.Output = output
	}
	if concurrency > 0 {
		c.Collect.Concurrency = concurrency
	}
}

// MergeCleanFlags 合并clean命令行参数,零值表示未指定
func (c *Config) MergeCleanFlags(input string, concurrency int) {
	if input != "" {
		c.Clean.Input = input
	}
	if concurrency > 0 {
		c.Clean.Concurrency = concurrency
	}
}

// MergeFilterFlags 合并filter命令行参数,零值表示未指定
func (c *Config) MergeFilterFlags(input string, excluded []string) {
	if input != "" {
		c.Filter.Input = input
	}
	if len(excluded) > 0 {
		c.Filter.Excluded = excluded
	}
}

// LogLevel 命令行指定的日志级别优先
func (c *Config) LogLevel(override string) string {
	if override != "" {
		return override
	}
	return c.Logging.Level
}
