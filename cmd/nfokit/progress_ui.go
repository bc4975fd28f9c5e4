package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/John-Robertt/nfokit/internal/app/reformat"
	"github.com/John-Robertt/nfokit/internal/config"
	"github.com/John-Robertt/nfokit/internal/domain"
)

var _ reformat.Observer = (*progressUI)(nil)

// progressUI 是交互终端下的进度输出。
//
// - 所有过程信息写到 stderr（或 fallback 到 stdout），不污染 stdout 的 JSON 输出契约
// - 事件驱动：reformat 只发事件，CLI 决定如何展示
// - 只逐行打印有变化或失败的文件；unchanged 只计数
type progressUI struct {
	w io.Writer

	mu        sync.Mutex
	startedAt time.Time
	unchanged int
}

func newProgressUI(w io.Writer) *progressUI {
	return &progressUI{w: w}
}

func (p *progressUI) OnStart(eff config.EffectiveConfig) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()
	p.startedAt = now

	mode := "dry-run"
	modeHint := " (不写入)"
	if eff.Apply {
		mode = "apply"
		modeHint = ""
	}

	fmt.Fprintf(p.w, "[%s] nfokit fmt (%s)\n", now.Format("15:04:05"), mode)
	fmt.Fprintln(p.w, "配置（生效）:")
	fmt.Fprintf(p.w, "  path: %s\n", eff.Path)
	if eff.File != "" {
		fmt.Fprintf(p.w, "  config: %s\n", eff.File)
	}
	fmt.Fprintf(p.w, "  mode: %s%s\n", mode, modeHint)
	fmt.Fprintf(p.w, "  concurrency: %d\n", eff.Concurrency)
	fmt.Fprintf(p.w, "  exclude_dirs: %s\n", formatStringListJSON(eff.ExcludeDirs))
	s := eff.Serialize
	fmt.Fprintf(p.w, "  format: encoding=%s indent=%q newline=%q short_empty=%s declaration=%s\n",
		s.Encoding, s.Indent, s.Newline, onOff(s.ShortEmptyElements), onOff(s.XMLDeclaration),
	)
	fmt.Fprintln(p.w)
}

func (p *progressUI) OnPhaseDone(name string, fields map[string]any, dur time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch name {
	case "scan":
		fmt.Fprintf(p.w, "扫描: files=%d (%s)\n", intField(fields, "files"), formatShortDuration(dur))
	case "exec":
		fmt.Fprintf(p.w, "执行: workers=%d total_items=%d\n\n", intField(fields, "workers"), intField(fields, "total_items"))
	default:
		fmt.Fprintf(p.w, "%s (%s)\n", name, formatShortDuration(dur))
	}
}

func (p *progressUI) OnItemDone(idx, total int, res domain.ItemResult, dur time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch res.Status {
	case domain.StatusUnchanged:
		p.unchanged++
	case domain.StatusFailed, domain.StatusSkipped:
		fmt.Fprintf(p.w, "[%d/%d] %s %s %s: %s (%s)\n",
			idx, total, res.Path, statusLabel(res.Status), res.ErrorCode, truncate(res.ErrorMsg, 160), formatShortDuration(dur),
		)
	default:
		fmt.Fprintf(p.w, "[%d/%d] %s %s %s %dB -> %dB (%s)\n",
			idx, total, res.Path, statusLabel(res.Status), res.Root, res.BytesBefore, res.BytesAfter, formatShortDuration(dur),
		)
	}

	if idx >= total && p.unchanged > 0 {
		fmt.Fprintf(p.w, "unchanged=%d elapsed=%s\n", p.unchanged, formatElapsed(time.Since(p.startedAt)))
	}
}

func statusLabel(s string) string {
	switch s {
	case domain.StatusReformatted:
		return "FIXED"
	case domain.StatusWouldReformat:
		return "DIFF"
	case domain.StatusSkipped:
		return "SKIP"
	case domain.StatusFailed:
		return "FAIL"
	default:
		return strings.ToUpper(s)
	}
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}

func formatStringListJSON(xs []string) string {
	// json.Marshal(nil slice) => "null"；对用户更友好的是 "[]"
	if xs == nil {
		xs = []string{}
	}
	b, err := json.Marshal(xs)
	if err != nil {
		return "[]"
	}
	return string(b)
}

// truncate 按 rune 截断，避免切坏多字节字符。
func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if max <= 0 || len(r) <= max {
		return s
	}
	if max <= 3 {
		return string(r[:max])
	}
	return string(r[:max-3]) + "..."
}

func formatShortDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

func formatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	sec := int(d.Seconds())
	return fmt.Sprintf("%02d:%02d:%02d", sec/3600, (sec%3600)/60, sec%60)
}

func intField(fields map[string]any, key string) int {
	switch x := fields[key].(type) {
	case int:
		return x
	case int64:
		return int(x)
	default:
		return 0
	}
}
