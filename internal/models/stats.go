package models

import "time"

// FailedLink 处理失败的URL
type FailedLink struct {
	URL       string `json:"url"`
	ErrorType string `json:"error_type"` // navigation_timeout, extraction_error, action_error等
	ErrorMsg  string `json:"error_msg"`
}

// NewFailedLink 根据错误构造失败记录
func NewFailedLink(url string, err error) FailedLink {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return FailedLink{
		URL:       url,
		ErrorType: ErrorKind(err),
		ErrorMsg:  msg,
	}
}

// CollectStats 收集任务统计
type CollectStats struct {
	StartURL     string        `json:"start_url"`
	OutputFile   string        `json:"output_file"`
	Concurrency  int           `json:"concurrency"`
	PagesVisited int           `json:"pages_visited"` // 成功读取的列表页数
	PagesFailed  int           `json:"pages_failed"`  // 加载或读取失败的列表页数
	LinksFound   int           `json:"links_found"`   // 写入的目标链接数
	Duration     time.Duration `json:"duration"`
	Failures     []FailedLink  `json:"failures,omitempty"`
}

// CleanStats 删除任务统计
type CleanStats struct {
	InputFile   string        `json:"input_file"`
	Concurrency int           `json:"concurrency"`
	Total       int           `json:"total"`
	Succeeded   int           `json:"succeeded"`
	Failed      int           `json:"failed"`
	Duration    time.Duration `json:"duration"`
	Failures    []FailedLink  `json:"failures,omitempty"`
}

// FilterStats 过滤任务统计
type FilterStats struct {
	InputFile string `json:"input_file"`
	Before    int    `json:"before"`
	After     int    `json:"after"`
}

// Dropped 返回被过滤掉的行数
func (s FilterStats) Dropped() int {
	return s.Before - s.After
}
