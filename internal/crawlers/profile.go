package crawlers

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/RecoveryAshes/sphistory/internal/models"
	"github.com/otiai10/copy"
	"github.com/rs/zerolog/log"
)

// partialSuffix 未完成的复制目标目录后缀
const partialSuffix = ".partial"

// EnsureProfileCopy 确保dst处存在src用户数据目录的副本
//
// dst已存在时直接返回。否则先复制到 dst+".partial",完成后再重命名为dst,
// 中断的复制不会留下看似完整的目录。复制时跳过lockfile和*.lock。
func EnsureProfileCopy(src, dst string) error {
	if _, err := os.Stat(dst); err == nil {
		log.Info().Str("dir", dst).Msg("已找到用户数据目录副本,将直接使用")
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return profileCopyError(dst, err)
	}

	info, err := os.Stat(src)
	if err != nil {
		return profileCopyError(dst, fmt.Errorf("源目录不可用: %w", err))
	}
	if !info.IsDir() {
		return profileCopyError(dst, fmt.Errorf("源路径不是目录: %s", src))
	}

	partial := dst + partialSuffix
	if err := os.RemoveAll(partial); err != nil {
		return profileCopyError(partial, fmt.Errorf("清理上次未完成的复制失败: %w", err))
	}

	log.Info().Str("src", src).Str("dst", dst).Msg("正在复制用户数据目录,这可能需要几分钟时间...")
	start := time.Now()

	if err := copyTree(src, partial); err != nil {
		return profileCopyError(partial, err)
	}
	if err := os.Rename(partial, dst); err != nil {
		return profileCopyError(partial, fmt.Errorf("重命名失败: %w", err))
	}

	log.Info().Str("dst", dst).Msgf("复制完成,耗时: %.2f 秒", time.Since(start).Seconds())
	return nil
}

func profileCopyError(dir string, err error) error {
	return fmt.Errorf("%w: %w (请确保浏览器已完全关闭,删除 %s 后重试)", models.ErrProfileCopy, err, dir)
}

// skipProfileEntry 浏览器运行时持有的锁文件不复制
func skipProfileEntry(name string) bool {
	return name == "lockfile" || strings.HasSuffix(name, ".lock")
}

// copyTree 复制整个目录树,符号链接按链接本身复制
func copyTree(src, dst string) error {
	return copy.Copy(src, dst, copy.Options{
		OnSymlink: func(string) copy.SymlinkAction {
			return copy.Shallow
		},
		Skip: func(info os.FileInfo, path, _ string) (bool, error) {
			return path != src && skipProfileEntry(info.Name()), nil
		},
		PreserveTimes: true,
	})
}

// warnIfRunning 浏览器仍在运行时复制出的目录可能不完整
func warnIfRunning(executable string) {
	pids, err := runningProcesses(executable)
	if err != nil {
		log.Debug().Err(err).Msg("获取进程列表失败")
		return
	}
	if len(pids) > 0 {
		log.Warn().
			Str("executable", executable).
			Int("processes", len(pids)).
			Msg("浏览器仍在运行,复制的用户数据可能不完整,建议先完全关闭浏览器(包括后台进程)")
	}
}
