package reformat

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/John-Robertt/nfokit/internal/config"
	"github.com/John-Robertt/nfokit/internal/domain"
	"github.com/John-Robertt/nfokit/internal/infra/fsx"
	"github.com/John-Robertt/nfokit/internal/model"
	"github.com/John-Robertt/nfokit/internal/scan"
	"github.com/John-Robertt/nfokit/internal/serialize"
	"github.com/John-Robertt/nfokit/internal/sortkey"
)

// Execute 执行一次 fmt（dry-run/apply），并返回对外稳定的 RunReport。
// 错误尽量“降级”为 item 级失败（单个文件失败不影响其他）。
func Execute(ctx context.Context, eff config.EffectiveConfig, log *zap.Logger) domain.RunReport {
	return ExecuteWithObserver(ctx, eff, log, nil)
}

// ExecuteWithObserver 与 Execute 相同，但允许传入 Observer 以输出进度/阶段信息。
func ExecuteWithObserver(ctx context.Context, eff config.EffectiveConfig, log *zap.Logger, obs Observer) domain.RunReport {
	if log == nil {
		log = zap.NewNop()
	}
	if obs != nil {
		obs.OnStart(eff)
	}

	rr := domain.RunReport{
		Path:      eff.Path,
		DryRun:    !eff.Apply,
		StartedAt: time.Now().UTC(),
	}
	finish := func() domain.RunReport {
		rr.FinishedAt = time.Now().UTC()
		rr.Finalize()
		return rr
	}

	// 重排总是覆盖原文件。
	sc := eff.Serialize
	sc.Overwrite = true
	ser, err := serialize.New(sc, log)
	if err != nil {
		rr.Items = append(rr.Items, syntheticFailed(domain.ErrCodeConfigInvalid, err.Error()))
		return finish()
	}

	scanStarted := time.Now()
	files, err := scan.ScanNFO(eff.Path, eff.ExcludeDirs)
	if err != nil {
		rr.Items = append(rr.Items, syntheticFailed(domain.ErrCodeIOFailed, fmt.Sprintf("扫描失败：%v", err)))
		return finish()
	}
	if obs != nil {
		obs.OnPhaseDone("scan", map[string]any{"files": len(files)}, time.Since(scanStarted))
	}

	workers := eff.Concurrency
	if workers < 1 {
		workers = 1
	}
	if obs != nil {
		obs.OnPhaseDone("exec", map[string]any{
			"workers":     workers,
			"total_items": len(files),
		}, 0)
	}

	opt := options{apply: eff.Apply, fillSortTitle: eff.FillSortTitle}
	results := make([]domain.ItemResult, len(files))
	var (
		mu   sync.Mutex
		done int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range files {
		i := i
		g.Go(func() error {
			started := time.Now()
			res := processOne(gctx, ser, opt, files[i])
			results[i] = res

			log.Debug("处理 NFO",
				zap.String("path", res.Path),
				zap.String("status", res.Status),
				zap.String("error_code", res.ErrorCode),
			)
			if obs != nil {
				mu.Lock()
				done++
				obs.OnItemDone(done, len(files), res, time.Since(started))
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait() // 单项失败已记入 results

	rr.Items = append(rr.Items, results...)
	out := finish()
	log.Info("fmt 完成",
		zap.String("path", out.Path),
		zap.Bool("dry_run", out.DryRun),
		zap.Int("total", out.Summary.Total),
		zap.Int("reformatted", out.Summary.Reformatted+out.Summary.WouldReformat),
		zap.Int("failed", out.Summary.Failed),
	)
	return out
}

type options struct {
	apply         bool
	fillSortTitle bool
}

// processOne 读取、解析、重新编码一个文件；只有 apply 且内容有变化时才写回。
func processOne(ctx context.Context, ser *serialize.Serializer, opt options, f domain.NFOFile) domain.ItemResult {
	item := domain.ItemResult{Path: f.RelPath, BytesBefore: int(f.Size)}

	if err := ctx.Err(); err != nil {
		return fail(item, domain.ErrCodeCanceled, err)
	}

	before, err := os.ReadFile(f.AbsPath)
	if err != nil {
		return fail(item, domain.ErrCodeIOFailed, err)
	}
	item.BytesBefore = len(before)

	d, err := ser.Inspect(bytes.NewReader(before))
	if err != nil {
		if errors.Is(err, model.ErrUnsupportedRootTag) {
			return fail(item, domain.ErrCodeUnsupportedRoot, err)
		}
		return fail(item, domain.ErrCodeParseFailed, err)
	}
	item.Root = d.Record.RootTag()

	// 重新写出会丢失内容（未建模元素、重复的单值字段、属性、注释等）的文件原样保留。
	if len(d.Dropped) > 0 {
		item.Status = domain.StatusSkipped
		item.ErrorCode = domain.ErrCodeLossyRewrite
		item.ErrorMsg = fmt.Sprintf("重排会丢失内容：%s", strings.Join(d.Dropped, ", "))
		item.Dropped = d.Dropped
		item.BytesAfter = item.BytesBefore
		return item
	}

	if opt.fillSortTitle {
		fillSortTitle(d.Record)
	}

	after, err := ser.Encode(d.Record)
	if err != nil {
		return fail(item, domain.ErrCodeIOFailed, err)
	}
	item.BytesAfter = len(after)

	switch {
	case bytes.Equal(before, after):
		item.Status = domain.StatusUnchanged
	case !opt.apply:
		item.Status = domain.StatusWouldReformat
	default:
		if err := ser.Serialize(d.Record, filepath.Dir(f.AbsPath), filepath.Base(f.AbsPath)); err != nil {
			if fsx.IsPathTypeConflict(err) {
				return fail(item, domain.ErrCodeTargetConflict, err)
			}
			return fail(item, domain.ErrCodeIOFailed, err)
		}
		item.Status = domain.StatusReformatted
	}
	return item
}

// fillSortTitle 为缺少 sorttitle 且标题含汉字的 tvshow/movie 补上拼音 sorttitle。
func fillSortTitle(r model.Record) {
	switch v := r.(type) {
	case *model.Show:
		fillSort(&v.SortTitle, v.Title)
	case *model.Movie:
		fillSort(&v.SortTitle, v.Title)
	}
}

func fillSort(dst **string, title *string) {
	if *dst != nil || title == nil || !sortkey.HasHan(*title) {
		return
	}
	*dst = model.String(sortkey.Key(*title))
}

func fail(item domain.ItemResult, code string, err error) domain.ItemResult {
	item.Status = domain.StatusFailed
	item.ErrorCode = code
	item.ErrorMsg = err.Error()
	return item
}

func syntheticFailed(code, msg string) domain.ItemResult {
	return domain.ItemResult{
		Status:    domain.StatusFailed,
		ErrorCode: code,
		ErrorMsg:  msg,
	}
}
