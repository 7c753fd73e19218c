package main

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/RecoveryAshes/sphistory/internal/core"
	"github.com/go-rod/rod/lib/launcher"
)

func main() {
	fmt.Println("==============================================")
	fmt.Println("  sphistory 环境验证")
	fmt.Println("==============================================")
	fmt.Println()

	allOK := true

	// 检查Go版本
	goVersion := runtime.Version()
	fmt.Printf("✅ Go版本: %s\n", goVersion)
	if !strings.HasPrefix(goVersion, "go1.23") && !strings.HasPrefix(goVersion, "go1.24") {
		fmt.Println("⚠️  警告: 建议使用Go 1.23+版本")
	}

	// 检查操作系统
	fmt.Printf("✅ 操作系统: %s/%s\n", runtime.GOOS, runtime.GOARCH)

	// 检查浏览器候选
	fmt.Println()
	fmt.Println("检查浏览器...")
	config, err := core.LoadConfig("")
	if err != nil {
		fmt.Printf("❌ 加载配置失败: %v\n", err)
		os.Exit(1)
	}

	usable := 0
	for _, cand := range config.Session.Candidates {
		endpoint := fmt.Sprintf("%s:%d", config.Session.Host, cand.Port)
		if _, err := launcher.ResolveURL(endpoint); err == nil {
			fmt.Printf("✅ %s: 调试端口 %d 已开启,将直接复用\n", cand.Name, cand.Port)
			usable++
			continue
		}

		if _, err := os.Stat(cand.Executable); err != nil {
			fmt.Printf("⚠️  %s: 未找到可执行文件 %s\n", cand.Name, cand.Executable)
			continue
		}
		fmt.Printf("✅ %s: %s\n", cand.Name, cand.Executable)
		usable++

		if cand.HasProfileCopy() {
			if _, err := os.Stat(cand.ProfileDir); err == nil {
				fmt.Printf("   用户数据副本已存在: %s\n", cand.ProfileDir)
			} else if _, err := os.Stat(cand.ProfileSource); err == nil {
				fmt.Printf("   首次运行将复制用户数据 %s -> %s (请先关闭浏览器)\n", cand.ProfileSource, cand.ProfileDir)
			} else {
				fmt.Printf("⚠️  找不到用户数据目录: %s\n", cand.ProfileSource)
			}
		}
	}
	if usable == 0 {
		fmt.Println("❌ 没有可用的浏览器 - 请安装Chromium内核浏览器或在配置中指定session.candidates")
		allOK = false
	}

	// 检查项目依赖
	fmt.Println()
	fmt.Println("检查Go模块依赖...")
	if _, err := os.Stat("go.mod"); err == nil {
		fmt.Println("✅ go.mod文件存在")

		fmt.Println("正在下载依赖...")
		cmd := exec.Command("go", "mod", "download")
		if err := cmd.Run(); err != nil {
			fmt.Printf("❌ go mod download失败: %v\n", err)
			allOK = false
		} else {
			fmt.Println("✅ 依赖下载完成")
		}
	} else {
		fmt.Println("❌ go.mod文件不存在")
		allOK = false
	}

	// 检查项目结构
	fmt.Println()
	fmt.Println("检查项目结构...")
	requiredDirs := []string{
		"cmd/sphistory",
		"internal/config",
		"internal/core",
		"internal/crawlers",
		"internal/utils",
		"internal/models",
	}

	for _, dir := range requiredDirs {
		if _, err := os.Stat(dir); err == nil {
			fmt.Printf("✅ %s/\n", dir)
		} else {
			fmt.Printf("❌ %s/ 不存在\n", dir)
			allOK = false
		}
	}

	fmt.Println()
	fmt.Println("==============================================")
	if allOK {
		fmt.Println("✅ 环境验证通过!")
		fmt.Println()
		fmt.Println("下一步:")
		fmt.Println("  1. 运行 'go build ./cmd/sphistory' 构建项目")
		fmt.Println("  2. 运行 './sphistory init' 生成配置文件")
		fmt.Println("  3. 运行 './sphistory collect -u <列表页URL>' 收集链接")
		os.Exit(0)
	}
	fmt.Println("❌ 环境验证失败,请解决上述问题。")
	os.Exit(1)
}
