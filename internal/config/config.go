package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/John-Robertt/nfokit/internal/infra/textenc"
	"github.com/John-Robertt/nfokit/internal/serialize"
)

const (
	// ErrCodeInvalid 表示配置文件无法读取/解析，或字段不合法。
	ErrCodeInvalid = "config_invalid"
	// ErrCodePathNotFound 表示最终的处理路径不存在。
	ErrCodePathNotFound = "path_not_found"
)

const (
	// DefaultConcurrency 是并发的内置默认值（当配置未指定时）。
	DefaultConcurrency = 4
	// MaxIndent 是 format.indent 允许的最大空格数。
	MaxIndent = 16
)

// Names 是配置文件的候选名，按顺序查找，第一个存在的生效。
var Names = []string{"nfokit.json", "nfokit.yaml", "nfokit.yml"}

// CLIArgs 只包含 CLI 暴露的入口（path/apply），并保留“是否显式指定”的信息。
// 这能保证覆盖优先级可实现：例如 --apply=false 必须能覆盖 config.apply=true。
type CLIArgs struct {
	Path string

	Apply    bool
	ApplySet bool
}

// FileConfig 对应 nfokit.json / nfokit.yaml 的解析结构。
type FileConfig struct {
	Path        string   `json:"path" yaml:"path"`
	Apply       *bool    `json:"apply" yaml:"apply"`
	Concurrency int      `json:"concurrency" yaml:"concurrency"`
	ExcludeDirs []string `json:"exclude_dirs" yaml:"exclude_dirs"`

	// FillSortTitle 为缺少 sorttitle 且标题含汉字的 tvshow/movie 生成拼音 sorttitle。
	FillSortTitle bool         `json:"fill_sort_title" yaml:"fill_sort_title"`
	Format        FormatConfig `json:"format" yaml:"format"`
}

// FormatConfig 控制输出格式；未设置的项使用 serialize.DefaultConfig。
type FormatConfig struct {
	Encoding           string `json:"encoding" yaml:"encoding"`
	Indent             *int   `json:"indent" yaml:"indent"`
	Newline            string `json:"newline" yaml:"newline"`
	ShortEmptyElements *bool  `json:"short_empty_elements" yaml:"short_empty_elements"`
	XMLDeclaration     *bool  `json:"xml_declaration" yaml:"xml_declaration"`
	IgnoreNone         *bool  `json:"ignore_none" yaml:"ignore_none"`
	IgnoreEmpty        *bool  `json:"ignore_empty" yaml:"ignore_empty"`
	IgnoreBlank        *bool  `json:"ignore_blank" yaml:"ignore_blank"`
	Trim               *bool  `json:"trim" yaml:"trim"`
}

// EffectiveConfig 是合并并做最小规范化后的最终配置（实现层直接消费，不再做二次默认/优先级判断）。
type EffectiveConfig struct {
	Path string
	// File 是生效的配置文件路径；没有配置文件时为空。
	File string

	Apply         bool
	Concurrency   int
	ExcludeDirs   []string
	FillSortTitle bool

	Serialize serialize.Config
}

// Error 是配置阶段的结构化错误（带 error_code）。
type Error struct {
	Code string
	Path string
	Err  error
}

func (e *Error) Error() string {
	switch e.Code {
	case ErrCodePathNotFound:
		return fmt.Sprintf("%s：路径 %q 不存在或不是目录", e.Code, e.Path)
	case ErrCodeInvalid:
		if e.Err != nil {
			return fmt.Sprintf("%s：配置文件 %q 无效：%v", e.Code, e.Path, e.Err)
		}
		return fmt.Sprintf("%s：配置文件 %q 无效", e.Code, e.Path)
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s：%v", e.Code, e.Err)
		}
		return e.Code
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Code 从 error 中提取 error_code；若不是 *Error 则返回空串。
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// LoadEffective 发现并读取配置文件，然后与 CLI 参数合并为最终配置。
//
// 发现规则（固定）：
// 1) CLI 提供 path：在 <path> 下查找 Names（可选）
// 2) CLI 未提供 path：在 <cwd> 下查找 Names（可选）；path 取配置中的 path，缺省为 cwd
//
// 覆盖优先级（固定）：
// - path：CLI path > config path > cwd
// - apply：CLI --apply/--apply=false > config > 默认 false
// - 其他字段：仅由 config 控制（CLI 不暴露）
func LoadEffective(cwd string, cli CLIArgs) (EffectiveConfig, error) {
	cwdAbs, err := filepath.Abs(cwd)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cwd, Err: err}
	}

	if strings.TrimSpace(cli.Path) != "" {
		absPath := absCleanFrom(cwdAbs, cli.Path)
		fc, cfgPath, err := discover(absPath)
		if err != nil {
			return EffectiveConfig{}, err
		}
		return merge(absPath, cli, fc, cfgPath)
	}

	fc, cfgPath, err := discover(cwdAbs)
	if err != nil {
		return EffectiveConfig{}, err
	}
	absPath := cwdAbs
	if strings.TrimSpace(fc.Path) != "" {
		absPath = absCleanFrom(cwdAbs, fc.Path)
	}
	return merge(absPath, cli, fc, cfgPath)
}

// discover 在 dir 下按 Names 顺序查找配置文件；都不存在时返回零值与空路径。
func discover(dir string) (FileConfig, string, error) {
	for _, name := range Names {
		p := filepath.Join(dir, name)
		fc, exists, err := readFileConfig(p)
		if err != nil {
			return FileConfig{}, p, &Error{Code: ErrCodeInvalid, Path: p, Err: err}
		}
		if exists {
			return fc, p, nil
		}
	}
	return FileConfig{}, "", nil
}

func merge(absPath string, cli CLIArgs, fc FileConfig, cfgPath string) (EffectiveConfig, error) {
	if st, err := os.Stat(absPath); err != nil || !st.IsDir() {
		if err == nil {
			err = fmt.Errorf("不是目录")
		}
		return EffectiveConfig{}, &Error{Code: ErrCodePathNotFound, Path: absPath, Err: err}
	}

	// apply：CLI > config > 默认 false
	apply := false
	if cli.ApplySet {
		apply = cli.Apply
	} else if fc.Apply != nil {
		apply = *fc.Apply
	}

	concurrency := fc.Concurrency
	if concurrency == 0 {
		concurrency = DefaultConcurrency
	}
	// 范围 [1, 32]；超出截断。
	if concurrency < 1 {
		concurrency = 1
	}
	if concurrency > 32 {
		concurrency = 32
	}

	sc, err := fc.Format.apply(serialize.DefaultConfig())
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}

	return EffectiveConfig{
		Path:          absPath,
		File:          cfgPath,
		Apply:         apply,
		Concurrency:   concurrency,
		ExcludeDirs:   append([]string(nil), fc.ExcludeDirs...),
		FillSortTitle: fc.FillSortTitle,
		Serialize:     sc,
	}, nil
}

// apply 把 format 段覆盖到 base 上并校验。
func (f FormatConfig) apply(base serialize.Config) (serialize.Config, error) {
	c := base

	if enc := strings.TrimSpace(f.Encoding); enc != "" {
		if _, err := textenc.Lookup(enc); err != nil {
			return serialize.Config{}, fmt.Errorf("format.encoding 无效：%w", err)
		}
		c.Encoding = enc
	}

	if f.Indent != nil {
		n := *f.Indent
		if n < 0 || n > MaxIndent {
			return serialize.Config{}, fmt.Errorf("format.indent 必须在 [0, %d]，实际是 %d", MaxIndent, n)
		}
		c.Indent = strings.Repeat(" ", n)
	}

	if nl := strings.TrimSpace(f.Newline); nl != "" {
		v, err := parseNewline(nl)
		if err != nil {
			return serialize.Config{}, err
		}
		c.Newline = v
	}

	setBool(&c.ShortEmptyElements, f.ShortEmptyElements)
	setBool(&c.XMLDeclaration, f.XMLDeclaration)
	setBool(&c.IgnoreNone, f.IgnoreNone)
	setBool(&c.IgnoreEmpty, f.IgnoreEmpty)
	setBool(&c.IgnoreBlank, f.IgnoreBlank)
	setBool(&c.Trim, f.Trim)
	return c, nil
}

func parseNewline(s string) (string, error) {
	switch strings.ToLower(s) {
	case "lf", `\n`:
		return "\n", nil
	case "crlf", `\r\n`:
		return "\r\n", nil
	default:
		return "", fmt.Errorf("format.newline 只能是 lf 或 crlf，实际是 %q", s)
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

// absCleanFrom 以 base 为基准，把 p 变为 clean + absolute。
// - p 若已是绝对路径：直接 Clean
// - p 若是相对路径：Join(base, p) 后 Clean
func absCleanFrom(base, p string) string {
	p = filepath.Clean(strings.TrimSpace(p))
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Clean(filepath.Join(base, p))
}

// readFileConfig 读取并解析配置文件；按扩展名选择 JSON 或 YAML。
// 返回值 exists 表示该文件是否存在（不存在不算错误）。
func readFileConfig(path string) (fc FileConfig, exists bool, err error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, false, nil
		}
		return FileConfig{}, false, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, &fc)
	default:
		err = json.Unmarshal(b, &fc)
	}
	if err != nil {
		return FileConfig{}, true, err
	}
	return fc, true, nil
}
