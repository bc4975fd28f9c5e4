package serialize

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/beevik/etree"
	"go.uber.org/zap"

	"github.com/John-Robertt/nfokit/internal/infra/fsx"
	"github.com/John-Robertt/nfokit/internal/infra/textenc"
	"github.com/John-Robertt/nfokit/internal/model"
	"github.com/John-Robertt/nfokit/internal/printer"
)

// Config 是序列化的全部可调项。
type Config struct {
	Encoding           string
	ShortEmptyElements bool
	IgnoreNone         bool
	IgnoreEmpty        bool
	IgnoreBlank        bool
	Trim               bool

	Indent  string
	Newline string

	// XMLDeclaration 为 true 时总是输出 <?xml ...?> 声明；非 UTF-8 编码无论如何都会输出。
	// 声明固定为单引号、以 "\n" 结尾，与 ElementTree 写出的文件一致（不受 Newline 影响）。
	XMLDeclaration bool
	// Overwrite 为 false 时 Serialize 不覆盖已存在的文件。
	Overwrite bool
}

// DefaultConfig 与媒体中心常见产物一致：utf-8、无声明、4 空格缩进、不自闭合。
func DefaultConfig() Config {
	return Config{
		Encoding:    "utf-8",
		IgnoreNone:  true,
		IgnoreEmpty: true,
		IgnoreBlank: true,
		Trim:        true,
		Indent:      "    ",
		Newline:     "\n",
		Overwrite:   true,
	}
}

func (c Config) modelOptions() model.Options {
	return model.Options{
		IgnoreNone:  c.IgnoreNone,
		IgnoreEmpty: c.IgnoreEmpty,
		IgnoreBlank: c.IgnoreBlank,
		Trim:        c.Trim,
	}
}

func (c Config) printerConfig() printer.Config {
	return printer.Config{
		Indent:             c.Indent,
		Newline:            c.Newline,
		ShortEmptyElements: c.ShortEmptyElements,
	}
}

// ErrNoRootElement 表示输入能解析但没有任何元素。
var ErrNoRootElement = errors.New("NFO 中没有根元素")

// Serializer 串起 record → tree → text → file 以及反方向。
// 只持有不可变配置与 logger，可并发用于不同路径。
type Serializer struct {
	cfg Config
	enc textenc.Encoding
	log *zap.Logger
}

// New 校验配置并返回 Serializer；log 为 nil 时不输出日志。
func New(cfg Config, log *zap.Logger) (*Serializer, error) {
	enc, err := textenc.Lookup(cfg.Encoding)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Serializer{cfg: cfg, enc: enc, log: log}, nil
}

func (s *Serializer) Config() Config { return s.cfg }

// Encode 返回记录按配置排版、转码后的字节。
func (s *Serializer) Encode(r model.Record) ([]byte, error) {
	var buf bytes.Buffer
	if s.cfg.XMLDeclaration || !s.enc.IsUTF8() {
		fmt.Fprintf(&buf, "<?xml version='1.0' encoding='%s'?>\n", s.enc.Label)
	}
	root := model.ToTree(r, s.cfg.modelOptions())
	if err := printer.Render(&buf, root, s.cfg.printerConfig()); err != nil {
		return nil, err
	}
	return s.enc.Encode(buf.Bytes())
}

// Serialize 把记录写到 dir/name。
//
// 写入走同目录临时文件 + rename；Overwrite=false 且目标已存在时返回 os.ErrExist。
func (s *Serializer) Serialize(r model.Record, dir, name string) error {
	b, err := s.Encode(r)
	if err != nil {
		return err
	}
	mode := fsx.Replace
	if !s.cfg.Overwrite {
		mode = fsx.NoOverwrite
	}
	if err := fsx.WriteFile(dir, name, b, mode); err != nil {
		return err
	}
	s.log.Debug("写入 NFO",
		zap.String("path", filepath.Join(dir, name)),
		zap.String("root", r.RootTag()),
		zap.Int("bytes", len(b)),
	)
	return nil
}

// Decoded 是 Inspect 的结果。
type Decoded struct {
	Record model.Record
	// Dropped 是重新写出时会丢失的输入内容，形式见 model.Dropped；
	// 另外包含根元素之外的注释/指令（"#comment" 等）和无法解析的字段值（"rating:invalid"）。
	Dropped []string
}

// Decode 解析 NFO 文本并按根标签重建记录。
//
// - 解析失败：返回包装后的解析错误
// - 根标签未知：返回 *model.UnsupportedRootTagError
// - 单字段格式错误：保留默认值，仅记录 debug 日志
func (s *Serializer) Decode(rd io.Reader) (model.Record, error) {
	d, err := s.Inspect(rd)
	if err != nil {
		return nil, err
	}
	return d.Record, nil
}

// Inspect 与 Decode 相同，另外报告重新写出时会丢失的内容。
func (s *Serializer) Inspect(rd io.Reader) (Decoded, error) {
	doc := etree.NewDocument()
	doc.ReadSettings.CharsetReader = textenc.CharsetReader
	if _, err := doc.ReadFrom(rd); err != nil {
		return Decoded{}, fmt.Errorf("解析 NFO 失败：%w", err)
	}
	root := doc.Root()
	if root == nil {
		return Decoded{}, ErrNoRootElement
	}
	dropped := model.Dropped(root)
	r, err := model.FromTreeWithHook(root, func(e *model.FieldConversionError) {
		dropped = appendUnique(dropped, e.Tag+":invalid")
		s.log.Debug("字段无法解析，保留默认值",
			zap.String("root", e.Root),
			zap.String("tag", e.Tag),
			zap.String("kind", e.Kind),
			zap.String("text", e.Text),
			zap.Error(e.Err),
		)
	})
	if err != nil {
		return Decoded{}, err
	}
	for _, t := range doc.Child {
		if label := outsideRoot(t, root); label != "" {
			dropped = appendUnique(dropped, label)
		}
	}
	return Decoded{Record: r, Dropped: dropped}, nil
}

// outsideRoot 标记根元素之外会丢失的节点；xml 声明会按配置重新生成，不算丢失。
func outsideRoot(t etree.Token, root *etree.Element) string {
	switch v := t.(type) {
	case *etree.Element:
		if v != root {
			return v.FullTag()
		}
	case *etree.CharData:
		if strings.TrimSpace(v.Data) != "" {
			return "#text"
		}
	case *etree.ProcInst:
		if v.Target != "xml" {
			return "#procinst"
		}
	case *etree.Comment:
		return "#comment"
	case *etree.Directive:
		return "#directive"
	}
	return ""
}

func appendUnique(list []string, s string) []string {
	for _, v := range list {
		if v == s {
			return list
		}
	}
	return append(list, s)
}

// Deserialize 读取并解析 path；I/O 错误原样返回（errors.Is(err, fs.ErrNotExist) 成立）。
func (s *Serializer) Deserialize(path string) (model.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r, err := s.Decode(f)
	if err != nil {
		return nil, err
	}
	s.log.Debug("读取 NFO", zap.String("path", path), zap.String("root", r.RootTag()))
	return r, nil
}
