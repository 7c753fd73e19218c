package core

import (
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/RecoveryAshes/sphistory/internal/models"
	"github.com/RecoveryAshes/sphistory/internal/utils"
)

// DefaultExcludedSuffixes 默认过滤的扩展名(区分大小写)
// 字幕、图片、说明文件等不需要清理版本历史
var DefaultExcludedSuffixes = []string{
	"nfo", "NFO", "jpg", "JPG", "png", "PNG", "sh", "SH", "json", "JSON",
	"ini", "INI", "js", "JS", "ass", "ASS", "srt", "SRT", "ssa", "SSA",
	"ttf", "TTF", "sfv", "SFV", "sup", "SUP", "svg", "SVG", "doc", "DOC",
	"webvtt", "WEBVTT", "md", "MD", "Atmos", "xml",
}

// LinkSuffix 返回链接解码后最后一个"."之后的部分,没有"."时返回整行
func LinkSuffix(line string) string {
	s := percentDecode(strings.TrimSpace(line))
	if idx := strings.LastIndex(s, "."); idx >= 0 {
		return s[idx+1:]
	}
	return s
}

// percentDecode 逐个解码%XX,无效的转义保留原文
func percentDecode(s string) string {
	if !strings.Contains(s, "%") {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '%' && i+2 < len(s) {
			if v, err := hex.DecodeString(s[i+1 : i+3]); err == nil {
				b.WriteByte(v[0])
				i += 2
				continue
			}
		}
		b.WriteByte(s[i])
	}
	return strings.ToValidUTF8(b.String(), "\uFFFD")
}

// FilterLinks 去掉扩展名在excluded中的行,其余行原样保留
func FilterLinks(lines []string, excluded []string) []string {
	set := make(map[string]struct{}, len(excluded))
	for _, ext := range excluded {
		set[ext] = struct{}{}
	}

	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		if _, drop := set[LinkSuffix(line)]; drop {
			continue
		}
		kept = append(kept, line)
	}
	return kept
}

// FilterFile 过滤文件并原地重写
func FilterFile(path string, excluded []string) (*models.FilterStats, error) {
	lines, err := utils.ReadLines(path)
	if err != nil {
		return nil, err
	}

	kept := FilterLinks(lines, excluded)
	if err := utils.WriteLines(path, kept); err != nil {
		return nil, fmt.Errorf("重写 %s 失败: %w", path, err)
	}

	stats := &models.FilterStats{InputFile: path, Before: len(lines), After: len(kept)}
	utils.Infof("过滤完成: %s 共 %d 行,保留 %d 行,过滤 %d 行", path, stats.Before, stats.After, stats.Dropped())
	return stats, nil
}

// SuffixSurvey 统计各行末尾4个字符的种类,用于调整过滤列表
// 不足4个字符的行不计入
func SuffixSurvey(lines []string) []string {
	seen := make(map[string]struct{})
	for _, line := range lines {
		r := []rune(strings.TrimSpace(line))
		if len(r) < 4 {
			continue
		}
		seen[string(r[len(r)-4:])] = struct{}{}
	}

	endings := make([]string, 0, len(seen))
	for e := range seen {
		endings = append(endings, e)
	}
	sort.Strings(endings)
	return endings
}
