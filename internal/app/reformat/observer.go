package reformat

import (
	"time"

	"github.com/John-Robertt/nfokit/internal/config"
	"github.com/John-Robertt/nfokit/internal/domain"
)

// Observer 把“运行进度/阶段/条目结果”从核心执行流程中解耦出来。
//
// 约束：
// - reformat 包只负责发事件，不做任何输出（避免污染 stdout 的 JSON 契约）。
// - Observer 的实现必须并发安全：事件可能来自多个 goroutine。
type Observer interface {
	// OnStart 在 ExecuteWithObserver 开始时调用。
	OnStart(eff config.EffectiveConfig)
	// OnPhaseDone 在阶段结束时调用（用于打印阶段统计与耗时）。
	OnPhaseDone(name string, fields map[string]any, dur time.Duration)
	// OnItemDone 在某个文件处理完成时调用；idx 从 1 开始，按完成顺序递增。
	OnItemDone(idx, total int, res domain.ItemResult, dur time.Duration)
}
