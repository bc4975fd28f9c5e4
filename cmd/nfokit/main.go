package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/alexflint/go-arg"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/John-Robertt/nfokit/internal/app/reformat"
	"github.com/John-Robertt/nfokit/internal/config"
	"github.com/John-Robertt/nfokit/internal/domain"
	"github.com/John-Robertt/nfokit/internal/model"
	"github.com/John-Robertt/nfokit/internal/normalize"
	"github.com/John-Robertt/nfokit/internal/serialize"
	"github.com/John-Robertt/nfokit/internal/sortkey"
)

type fmtCmd struct {
	Path  string `arg:"positional" help:"媒体库根目录（未指定则读配置文件；最终默认当前目录）"`
	Apply *bool  `arg:"--apply" help:"写回重排后的文件（默认 dry-run）；支持 --apply=false 覆盖配置中的 apply=true"`
	Check bool   `arg:"--check" help:"存在需要重排的文件时以 1 退出"`
}

type dumpCmd struct {
	Files []string `arg:"positional,required" help:"要解析的 NFO 文件"`
}

type normalizeCmd struct {
	Text string `arg:"positional" help:"要规范化的文本（未指定则读 stdin）"`
}

type sortkeyCmd struct {
	Text string `arg:"positional" help:"要生成排序键的标题（未指定则读 stdin）"`
}

type cliArgs struct {
	Fmt       *fmtCmd       `arg:"subcommand:fmt" help:"按统一格式重排目录下的 NFO（默认 dry-run）"`
	Dump      *dumpCmd      `arg:"subcommand:dump" help:"解析 NFO 并以 JSON 输出记录"`
	Normalize *normalizeCmd `arg:"subcommand:normalize" help:"规范化一段元数据文本"`
	SortKey   *sortkeyCmd   `arg:"subcommand:sortkey" help:"把标题转成拼音 sorttitle"`

	Debug   bool   `arg:"-d,--debug" help:"输出 debug 日志到 stderr"`
	LogFile string `arg:"--log-file" help:"额外把 JSON 日志写到该文件（按大小轮转）"`
}

func (cliArgs) Description() string {
	return "nfokit：媒体中心 NFO 元数据的读写与重排工具\n"
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run 是可测试的入口；返回进程退出码。
func run(ctx context.Context, argv []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var a cliArgs
	p, err := arg.NewParser(arg.Config{Program: "nfokit"}, &a)
	if err != nil {
		fmt.Fprintf(stderr, "初始化参数解析失败：%v\n", err)
		return 2
	}

	if err := p.Parse(argv); err != nil {
		if errors.Is(err, arg.ErrHelp) {
			_ = p.WriteHelpForSubcommand(stdout, p.SubcommandNames()...)
			return 0
		}
		fmt.Fprintf(stderr, "参数错误：%v\n\n", err)
		_ = p.WriteUsageForSubcommand(stderr, p.SubcommandNames()...)
		return 2
	}

	log, closeLog := newLogger(stderr, a.Debug, a.LogFile)
	defer closeLog()

	switch {
	case a.Fmt != nil:
		return fmtMain(ctx, a.Fmt, stdout, stderr, log)
	case a.Dump != nil:
		return dumpMain(a.Dump, stdout, stderr, log)
	case a.Normalize != nil:
		return textMain(a.Normalize.Text, normalize.Normalize, stdin, stdout, stderr)
	case a.SortKey != nil:
		return textMain(a.SortKey.Text, sortkey.Key, stdin, stdout, stderr)
	default:
		p.WriteHelp(stdout)
		return 2
	}
}

// 日志文件轮转参数。
const (
	logFileMaxSizeMB  = 10
	logFileMaxBackups = 3
)

// newLogger 构建写到 stderr 的 console logger；stdout 留给命令输出。
// logFile 非空时再挂一个 JSON core（info 起，--debug 时 debug 起），由 lumberjack 负责轮转。
func newLogger(w io.Writer, debug bool, logFile string) (*zap.Logger, func()) {
	level := zapcore.WarnLevel
	fileLevel := zapcore.InfoLevel
	if debug {
		level = zapcore.DebugLevel
		fileLevel = zapcore.DebugLevel
	}
	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(w), level)

	if strings.TrimSpace(logFile) == "" {
		log := zap.New(core)
		return log, func() { _ = log.Sync() }
	}

	lj := &lumberjack.Logger{
		Filename:   logFile,
		MaxSize:    logFileMaxSizeMB,
		MaxBackups: logFileMaxBackups,
	}
	fileCore := zapcore.NewCore(zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()), zapcore.AddSync(lj), fileLevel)
	log := zap.New(zapcore.NewTee(core, fileCore))
	return log, func() {
		_ = log.Sync()
		_ = lj.Close()
	}
}

func fmtMain(ctx context.Context, c *fmtCmd, stdout, stderr io.Writer, log *zap.Logger) int {
	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(stderr, "读取当前目录失败：%v\n", err)
		return 1
	}

	cli := config.CLIArgs{Path: c.Path}
	if c.Apply != nil {
		cli.Apply = *c.Apply
		cli.ApplySet = true
	}

	eff, err := config.LoadEffective(cwd, cli)
	if err != nil {
		emitReport(stdout, stderr, reportForConfigError(cwd, cli, err))
		return 1
	}
	log.Debug("配置已生效", zap.String("path", eff.Path), zap.String("file", eff.File), zap.Bool("apply", eff.Apply))

	var obs reformat.Observer
	if w, ok := pickProgressWriter(stdout, stderr); ok {
		obs = newProgressUI(w)
	}

	rr := reformat.ExecuteWithObserver(ctx, eff, log, obs)
	emitReport(stdout, stderr, rr)

	if rr.Summary.Failed > 0 {
		return 1
	}
	if c.Check && rr.Summary.WouldReformat+rr.Summary.Reformatted > 0 {
		return 1
	}
	return 0
}

type dumpEntry struct {
	Path    string       `json:"path"`
	Root    string       `json:"root,omitempty"`
	Record  model.Record `json:"record,omitempty"`
	Dropped []string     `json:"dropped,omitempty"`
	Error   string       `json:"error,omitempty"`
}

func dumpMain(c *dumpCmd, stdout, stderr io.Writer, log *zap.Logger) int {
	ser, err := serialize.New(serialize.DefaultConfig(), log)
	if err != nil {
		fmt.Fprintf(stderr, "初始化失败：%v\n", err)
		return 1
	}

	code := 0
	out := make([]dumpEntry, 0, len(c.Files))
	for _, f := range c.Files {
		e := dumpEntry{Path: f}
		d, err := inspectFile(ser, f)
		if err != nil {
			e.Error = err.Error()
			fmt.Fprintf(stderr, "%s: %v\n", f, err)
			code = 1
		} else {
			e.Root = d.Record.RootTag()
			e.Record = d.Record
			e.Dropped = d.Dropped
		}
		out = append(out, e)
	}

	enc := json.NewEncoder(stdout)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		fmt.Fprintf(stderr, "写出 JSON 失败：%v\n", err)
		return 1
	}
	return code
}

func inspectFile(ser *serialize.Serializer, path string) (serialize.Decoded, error) {
	f, err := os.Open(path)
	if err != nil {
		return serialize.Decoded{}, err
	}
	defer f.Close()
	return ser.Inspect(f)
}

// textMain 对参数（或 stdin）整体做一次 fn 转换并输出一行。
func textMain(text string, fn func(string) string, stdin io.Reader, stdout, stderr io.Writer) int {
	if text == "" {
		b, err := io.ReadAll(stdin)
		if err != nil {
			fmt.Fprintf(stderr, "读取 stdin 失败：%v\n", err)
			return 1
		}
		text = string(b)
	}
	fmt.Fprintln(stdout, fn(text))
	return 0
}

func emitReport(stdout, stderr io.Writer, rr domain.RunReport) {
	summary := fmt.Sprintf("完成：total=%d unchanged=%d reformatted=%d would_reformat=%d skipped=%d failed=%d",
		rr.Summary.Total, rr.Summary.Unchanged, rr.Summary.Reformatted, rr.Summary.WouldReformat, rr.Summary.Skipped, rr.Summary.Failed,
	)

	if isTTY(stdout) {
		fmt.Fprintln(stdout, summary)
		for _, it := range rr.Items {
			if it.Status != domain.StatusFailed && it.Status != domain.StatusSkipped {
				continue
			}
			key := it.Path
			if key == "" {
				key = "<config>"
			}
			fmt.Fprintf(stderr, "%s %s: %s\n", key, it.ErrorCode, it.ErrorMsg)
		}
		return
	}

	// stdout 非 TTY：stdout 必须且仅输出一个 RunReport JSON（日志/摘要走 stderr）。
	enc := json.NewEncoder(stdout)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(rr)
	fmt.Fprintln(stderr, summary)
}

func reportForConfigError(cwd string, cli config.CLIArgs, err error) domain.RunReport {
	now := time.Now().UTC()
	path, _ := filepath.Abs(cwd)
	if strings.TrimSpace(cli.Path) != "" {
		path = cli.Path
	}
	code := config.Code(err)
	if code == "" {
		code = domain.ErrCodeConfigInvalid
	}
	rr := domain.RunReport{
		Path:       path,
		DryRun:     !(cli.ApplySet && cli.Apply),
		StartedAt:  now,
		FinishedAt: now,
		Items: []domain.ItemResult{{
			Status:    domain.StatusFailed,
			ErrorCode: code,
			ErrorMsg:  err.Error(),
		}},
	}
	rr.Finalize()
	return rr
}

func isTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func pickProgressWriter(stdout, stderr io.Writer) (io.Writer, bool) {
	// 进度输出只在交互终端启用；默认走 stderr（不污染 stdout JSON）。
	if isTTY(stderr) {
		return stderr, true
	}
	if isTTY(stdout) {
		return stdout, true
	}
	return nil, false
}
