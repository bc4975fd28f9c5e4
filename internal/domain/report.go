package domain

import (
	"encoding/json"
	"sort"
	"time"
)

const (
	StatusUnchanged     = "unchanged"
	StatusReformatted   = "reformatted"
	StatusWouldReformat = "would_reformat"
	StatusSkipped       = "skipped"
	StatusFailed        = "failed"
)

const (
	ErrCodeParseFailed     = "parse_failed"
	ErrCodeUnsupportedRoot = "unsupported_root"
	ErrCodeIOFailed        = "io_failed"
	ErrCodeTargetConflict  = "target_conflict"
	ErrCodeLossyRewrite    = "lossy_rewrite"
	ErrCodeCanceled        = "canceled"
	ErrCodeConfigInvalid   = "config_invalid"
	ErrCodePathNotFound    = "path_not_found"
)

// RunReport 是对外稳定输出（stdout JSON）的结构。
type RunReport struct {
	Path   string `json:"path"`
	DryRun bool   `json:"dry_run"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Summary ReportSummary `json:"summary"`
	Items   []ItemResult  `json:"items"`
}

type ReportSummary struct {
	Total         int `json:"total"`
	Unchanged     int `json:"unchanged"`
	Reformatted   int `json:"reformatted"`
	WouldReformat int `json:"would_reformat"`
	Skipped       int `json:"skipped"`
	Failed        int `json:"failed"`
}

// ItemResult 是单个 NFO 文件的处理结果。Path 为空表示与具体文件无关的合成项（例如配置错误）。
type ItemResult struct {
	Path string `json:"path"`
	Root string `json:"root,omitempty"`
	// Dropped 是重排会丢失的输入内容（仅在 skipped 时出现）。
	Dropped []string `json:"dropped,omitempty"`

	Status    string `json:"status"`
	ErrorCode string `json:"error_code"`
	ErrorMsg  string `json:"error_msg"`

	BytesBefore int `json:"bytes_before"`
	BytesAfter  int `json:"bytes_after"`
}

// Finalize 做三件事：
// 1) 时间统一为 UTC（确保 JSON 为 RFC3339 且后缀 Z）
// 2) items 稳定排序：按 path 字典序；path=="" 的条目排在最后
// 3) summary 由 items 计算得出
func (r *RunReport) Finalize() {
	r.StartedAt = r.StartedAt.UTC()
	r.FinishedAt = r.FinishedAt.UTC()

	sort.SliceStable(r.Items, func(i, j int) bool {
		a := r.Items[i].Path
		b := r.Items[j].Path
		if a == "" {
			return false
		}
		if b == "" {
			return true
		}
		return a < b
	})

	s := ReportSummary{Total: len(r.Items)}
	for _, it := range r.Items {
		switch it.Status {
		case StatusUnchanged:
			s.Unchanged++
		case StatusReformatted:
			s.Reformatted++
		case StatusWouldReformat:
			s.WouldReformat++
		case StatusSkipped:
			s.Skipped++
		case StatusFailed:
			s.Failed++
		}
	}
	r.Summary = s
}

// MarshalJSON 集中约束输出的稳定性：items 为 nil 时也输出 []。
func (r RunReport) MarshalJSON() ([]byte, error) {
	type Alias RunReport
	a := Alias(r)
	if a.Items == nil {
		a.Items = []ItemResult{}
	}
	return json.Marshal(a)
}

// NFOFile 描述一次扫描得到的 NFO 文件（只做 stat，不读内容）。
//
// 不变量（实现必须遵守）：
// - AbsPath 必须是 clean + absolute
// - RelPath 相对扫描根目录
type NFOFile struct {
	AbsPath string
	RelPath string
	Size    int64
}
