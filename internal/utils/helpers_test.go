package utils

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/RecoveryAshes/sphistory/internal/models"
)

func TestReadLinks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "links.txt")
	content := strings.Join([]string{
		"https://sp.example.com/v?id=1",
		"",
		"# 注释",
		"  https://sp.example.com/v?id=2  ",
		"not-a-url",
		"https://sp.example.com/v?id=3\r",
	}, "\n")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	links, err := ReadLinks(path)
	if err != nil {
		t.Fatalf("ReadLinks() error = %v", err)
	}

	want := []string{
		"https://sp.example.com/v?id=1",
		"https://sp.example.com/v?id=2",
		"https://sp.example.com/v?id=3",
	}
	if strings.Join(links, "|") != strings.Join(want, "|") {
		t.Errorf("ReadLinks() = %v, want %v", links, want)
	}
}

func TestReadLinks_EmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "links.txt")
	if err := os.WriteFile(path, nil, 0644); err != nil {
		t.Fatal(err)
	}

	links, err := ReadLinks(path)
	if err != nil {
		t.Fatalf("空文件不应报错: %v", err)
	}
	if len(links) != 0 {
		t.Errorf("期望0个链接, 得到 %d", len(links))
	}
}

func TestReadLinks_MissingFile(t *testing.T) {
	if _, err := ReadLinks(filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Error("文件不存在时应该报错")
	}
}

func TestWriteLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "links.txt")
	if err := os.WriteFile(path, []byte("old\n"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := WriteLines(path, []string{"a", "b"}); err != nil {
		t.Fatalf("WriteLines() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "a\nb\n" {
		t.Errorf("文件内容 = %q, want %q", data, "a\nb\n")
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("不应残留临时文件, 目录中有 %d 个文件", len(entries))
	}
}

func TestSaveRunReport(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports")
	start := time.Now()
	report := models.NewRunReport("filter", start)
	report.Filter = &models.FilterStats{InputFile: "links.txt", Before: 3, After: 1}
	report.Finish(start.Add(time.Second))

	path, err := SaveRunReport(dir, report)
	if err != nil {
		t.Fatalf("SaveRunReport() error = %v", err)
	}

	if filepath.Base(path) != "filter_"+report.RunID+".json" {
		t.Errorf("报告文件名错误: %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"before": 3`) {
		t.Errorf("报告内容缺少统计: %s", data)
	}
}
