package printer

import (
	"bytes"
	"io"
	"sort"
	"strings"

	"github.com/beevik/etree"
)

// Config 控制输出排版。
//
// 与通用 pretty-printer 的区别（媒体中心对格式敏感）：
// - 缩进步长可配（默认 4 空格）
// - 默认不输出自闭合标签（<tag></tag>）
// - 行结束符可配（例如 "\r\n"）
type Config struct {
	Indent             string
	Newline            string
	ShortEmptyElements bool
}

func DefaultConfig() Config {
	return Config{Indent: "    ", Newline: "\n"}
}

var (
	textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	attrEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;", "\n", "&#10;")
)

// Render 把以 e 为根的树写到 w。不修改输入树。
func Render(w io.Writer, e *etree.Element, cfg Config) error {
	p := printer{cfg: cfg}
	p.element(e, 0)
	_, err := w.Write(p.buf.Bytes())
	return err
}

// RenderString 是 Render 的字符串版本。
func RenderString(e *etree.Element, cfg Config) string {
	p := printer{cfg: cfg}
	p.element(e, 0)
	return p.buf.String()
}

// RenderDocument 依次输出文档级的处理指令/注释，再输出根元素。
func RenderDocument(w io.Writer, doc *etree.Document, cfg Config) error {
	p := printer{cfg: cfg}
	for _, t := range doc.Child {
		p.token(t, 0)
	}
	_, err := w.Write(p.buf.Bytes())
	return err
}

type printer struct {
	cfg Config
	buf bytes.Buffer
}

func (p *printer) indent(depth int) {
	for i := 0; i < depth; i++ {
		p.buf.WriteString(p.cfg.Indent)
	}
}

// token 输出子节点；纯空白的字符数据是解析输入时的排版残留，直接丢弃。
func (p *printer) token(t etree.Token, depth int) {
	switch v := t.(type) {
	case *etree.Element:
		p.element(v, depth)
	case *etree.Comment:
		p.indent(depth)
		p.buf.WriteString("<!--" + v.Data + "-->" + p.cfg.Newline)
	case *etree.ProcInst:
		p.indent(depth)
		p.buf.WriteString("<?" + v.Target)
		if v.Inst != "" {
			p.buf.WriteString(" " + v.Inst)
		}
		p.buf.WriteString("?>" + p.cfg.Newline)
	case *etree.Directive:
		p.indent(depth)
		p.buf.WriteString("<!" + v.Data + ">" + p.cfg.Newline)
	case *etree.CharData:
		// 子节点之后的非空白文本（tail）：紧跟在上一个节点之后。
		if !isWhitespace(v.Data) {
			textEscaper.WriteString(&p.buf, v.Data)
		}
	}
}

func (p *printer) element(e *etree.Element, depth int) {
	text, rest := splitText(e.Child)
	hasChildren := false
	for _, t := range rest {
		if _, ok := t.(*etree.CharData); !ok {
			hasChildren = true
			break
		}
	}
	if hasChildren && isWhitespace(text) {
		text = ""
	}

	tag := qualify(e.Space, e.Tag)
	p.indent(depth)
	p.buf.WriteString("<" + tag)
	p.attrs(e.Attr)

	if text == "" && !hasChildren && p.cfg.ShortEmptyElements {
		p.buf.WriteString(" />" + p.cfg.Newline)
		return
	}

	p.buf.WriteString(">")
	if text != "" {
		textEscaper.WriteString(&p.buf, text)
	} else if hasChildren {
		p.buf.WriteString(p.cfg.Newline)
	}
	if hasChildren {
		for _, t := range rest {
			p.token(t, depth+1)
		}
		p.indent(depth)
	}
	p.buf.WriteString("</" + tag + ">" + p.cfg.Newline)
}

func (p *printer) attrs(attrs []etree.Attr) {
	if len(attrs) == 0 {
		return
	}
	sorted := make([]etree.Attr, len(attrs))
	copy(sorted, attrs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return qualify(sorted[i].Space, sorted[i].Key) < qualify(sorted[j].Space, sorted[j].Key)
	})
	for _, a := range sorted {
		p.buf.WriteString(" " + qualify(a.Space, a.Key) + `="`)
		attrEscaper.WriteString(&p.buf, a.Value)
		p.buf.WriteString(`"`)
	}
}

// splitText 把开头连续的字符数据合并为元素文本，其余节点原样返回。
func splitText(tokens []etree.Token) (string, []etree.Token) {
	var sb strings.Builder
	i := 0
	for ; i < len(tokens); i++ {
		cd, ok := tokens[i].(*etree.CharData)
		if !ok {
			break
		}
		sb.WriteString(cd.Data)
	}
	return sb.String(), tokens[i:]
}

func qualify(space, local string) string {
	if space == "" {
		return local
	}
	return space + ":" + local
}

func isWhitespace(s string) bool {
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case ' ', '\t', '\n', '\r':
		default:
			return false
		}
	}
	return true
}
