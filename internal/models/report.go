package models

import (
	"encoding/json"
	"time"
)

// RunReport 单次运行报告
type RunReport struct {
	RunID     string    `json:"run_id"`
	Command   string    `json:"command"` // collect, clean, filter
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Duration  float64   `json:"duration"` // 秒

	Collect *CollectStats `json:"collect,omitempty"`
	Clean   *CleanStats   `json:"clean,omitempty"`
	Filter  *FilterStats  `json:"filter,omitempty"`
}

// NewRunReport 创建运行报告
func NewRunReport(command string, start time.Time) *RunReport {
	return &RunReport{
		RunID:     NewRunID(),
		Command:   command,
		StartTime: start,
	}
}

// Finish 记录结束时间
func (r *RunReport) Finish(end time.Time) {
	r.EndTime = end
	r.Duration = end.Sub(r.StartTime).Seconds()
}

// ToJSON 序列化为JSON
func (r *RunReport) ToJSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}
