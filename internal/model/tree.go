package model

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/beevik/etree"
)

// Options 是写出时的省略策略。
type Options struct {
	IgnoreNone  bool // 缺失（nil）字段不输出
	IgnoreEmpty bool // trim 后为空串的字段不输出
	IgnoreBlank bool // trim 前是纯空白的字段不输出
	Trim        bool // 标量文本去首尾空白
}

// DefaultOptions 四项全部开启。
func DefaultOptions() Options {
	return Options{IgnoreNone: true, IgnoreEmpty: true, IgnoreBlank: true, Trim: true}
}

// ErrUnsupportedRootTag 用于 errors.Is 判断；具体值为 *UnsupportedRootTagError。
var ErrUnsupportedRootTag = errors.New("unsupported root tag")

// UnsupportedRootTagError 表示根标签不是 episodedetails/tvshow/movie/actor 之一。
type UnsupportedRootTagError struct {
	Tag string
}

func (e *UnsupportedRootTagError) Error() string {
	return fmt.Sprintf("不支持的根标签：%q", e.Tag)
}

func (e *UnsupportedRootTagError) Is(target error) bool { return target == ErrUnsupportedRootTag }

// FieldConversionError 描述单个字段的文本无法转成声明类型。
// 只会传给 FromTreeWithHook 的回调，不会作为错误返回。
type FieldConversionError struct {
	Root string
	Tag  string
	Kind string
	Text string
	Err  error
}

func (e *FieldConversionError) Error() string {
	return fmt.Sprintf("<%s>/<%s> 无法解析为 %s：%q：%v", e.Root, e.Tag, e.Kind, e.Text, e.Err)
}

func (e *FieldConversionError) Unwrap() error { return e.Err }

// ToTree 把记录构造成有序元素树。
//
// 规则：
// - 字段按 order() 稳定排序；不在顺序表里的标签排在最前，彼此保持声明顺序
// - 列表逐项展开为同名兄弟元素；空列表不产生元素
// - 嵌套记录整体作为子树追加，不再套用标量规则
func ToTree(r Record, opt Options) *etree.Element {
	root := etree.NewElement(r.RootTag())

	fs := r.fields()
	ord := r.order()
	sort.SliceStable(fs, func(i, j int) bool {
		return orderKey(ord, fs[i].tag) < orderKey(ord, fs[j].tag)
	})

	for _, f := range fs {
		insert(root, f.tag, f.ref, opt)
	}
	return root
}

func orderKey(ord []string, tag string) int {
	for i, t := range ord {
		if t == tag {
			return i
		}
	}
	return -1
}

func insert(parent *etree.Element, tag string, ref any, opt Options) {
	switch p := ref.(type) {
	case **string:
		if *p == nil {
			insertNone(parent, tag, opt)
			return
		}
		insertText(parent, tag, **p, opt)
	case **int:
		if *p == nil {
			insertNone(parent, tag, opt)
			return
		}
		insertText(parent, tag, strconv.Itoa(**p), opt)
	case **float64:
		if *p == nil {
			insertNone(parent, tag, opt)
			return
		}
		insertText(parent, tag, formatFloat(**p), opt)
	case **time.Time:
		if *p == nil {
			insertNone(parent, tag, opt)
			return
		}
		insertText(parent, tag, (*p).Format(DateLayout), opt)
	case *[]string:
		for _, v := range *p {
			insertText(parent, tag, v, opt)
		}
	case *[]Actor:
		for i := range *p {
			parent.AddChild(ToTree(&(*p)[i], opt))
		}
	default:
		panic(fmt.Sprintf("model: 字段 %q 的引用类型不受支持：%T", tag, ref))
	}
}

func insertNone(parent *etree.Element, tag string, opt Options) {
	if opt.IgnoreNone {
		return
	}
	insertText(parent, tag, "", opt)
}

func insertText(parent *etree.Element, tag, s string, opt Options) {
	v := s
	if opt.Trim {
		v = strings.TrimSpace(v)
	}
	// blank 判断针对 trim 前的原值；empty 判断针对 trim 后的值。
	if opt.IgnoreBlank && isBlank(s) {
		return
	}
	if opt.IgnoreEmpty && v == "" {
		return
	}
	parent.CreateElement(tag).SetText(v)
}

func isBlank(s string) bool {
	if s == "" {
		return false
	}
	return strings.IndexFunc(s, func(r rune) bool { return !unicode.IsSpace(r) }) < 0
}

// formatFloat 与既有 NFO 产物的浮点写法一致：最短表示；整数值保留 ".0"；
// 绝对值 >= 1e16 或 < 1e-4（非零）时用指数形式（"1e+20"、"1.5e-05"）。
func formatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}
	if a := math.Abs(f); a != 0 && (a >= 1e16 || a < 1e-4) {
		return strconv.FormatFloat(f, 'e', -1, 64)
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// FromTree 按根标签分派并重建记录。
// 单个字段转换失败时保留默认值，不影响其他字段。
func FromTree(e *etree.Element) (Record, error) {
	return FromTreeWithHook(e, nil)
}

// FromTreeWithHook 与 FromTree 相同；onSkip 非 nil 时会收到每个被跳过的字段。
func FromTreeWithHook(e *etree.Element, onSkip func(*FieldConversionError)) (Record, error) {
	r := newByRootTag(e.Tag)
	if r == nil {
		return nil, &UnsupportedRootTagError{Tag: e.Tag}
	}
	fill(r, e, onSkip)
	return r, nil
}

func fill(r Record, e *etree.Element, onSkip func(*FieldConversionError)) {
	for _, f := range r.fields() {
		els := e.SelectElements(f.tag)
		if len(els) == 0 {
			continue
		}
		kind, err := tryConvert(f.ref, els, onSkip)
		if err != nil && onSkip != nil {
			onSkip(&FieldConversionError{
				Root: e.Tag,
				Tag:  f.tag,
				Kind: kind,
				Text: els[0].Text(),
				Err:  err,
			})
		}
	}
}

// tryConvert 把找到的元素写入字段；失败时字段保持原值并返回错误（以及期望的类型名）。
func tryConvert(ref any, els []*etree.Element, onSkip func(*FieldConversionError)) (string, error) {
	text := els[0].Text()
	switch p := ref.(type) {
	case **string:
		// 空元素（<plot></plot>）视为缺失。
		if text != "" {
			*p = String(text)
		}
		return "string", nil
	case **int:
		v, err := strconv.Atoi(strings.TrimSpace(text))
		if err != nil {
			return "int", err
		}
		*p = Int(v)
		return "int", nil
	case **float64:
		v, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
		if err != nil {
			return "float", err
		}
		*p = Float(v)
		return "float", nil
	case **time.Time:
		v, err := time.Parse(DateLayout, strings.TrimSpace(text))
		if err != nil {
			return "date", err
		}
		*p = &v
		return "date", nil
	case *[]string:
		out := make([]string, 0, len(els))
		for _, el := range els {
			out = append(out, el.Text())
		}
		*p = out
		return "[]string", nil
	case *[]Actor:
		out := make([]Actor, 0, len(els))
		for _, el := range els {
			a := NewActor()
			fill(a, el, onSkip)
			out = append(out, *a)
		}
		*p = out
		return "[]actor", nil
	default:
		return fmt.Sprintf("%T", ref), fmt.Errorf("引用类型不受支持：%T", ref)
	}
}

// Dropped 返回重新写出时会丢失的输入内容（去重，按首次出现顺序）；根标签未知时返回 nil。
//
// 条目形式（嵌套 actor 内的条目带 "actor/" 前缀）：
// - "fileinfo"：未建模的元素
// - "studio[2]"：单值字段出现多次，只有第一个会被读取
// - "@version"、"title@lang"：根元素或字段元素上的属性
// - "#comment"、"#procinst"、"#directive"：记录元素内的注释、处理指令、指令
// - "#text"：记录元素内夹在子元素之间的非空白文本
// - "title/b"、"title/#text"：字段元素内的子节点，以及子节点之后的文本
func Dropped(e *etree.Element) []string {
	r := newByRootTag(e.Tag)
	if r == nil {
		return nil
	}
	d := &dropSet{seen: map[string]bool{}}
	for _, a := range e.Attr {
		d.add("@" + a.FullKey())
	}
	collectDropped(r, e, "", d)
	return d.out
}

type dropSet struct {
	seen map[string]bool
	out  []string
}

func (d *dropSet) add(s string) {
	if !d.seen[s] {
		d.seen[s] = true
		d.out = append(d.out, s)
	}
}

func collectDropped(r Record, e *etree.Element, prefix string, d *dropSet) {
	known := make(map[string]any, len(r.fields()))
	for _, f := range r.fields() {
		known[f.tag] = f.ref
	}
	count := map[string]int{}
	for _, t := range e.Child {
		switch v := t.(type) {
		case *etree.Element:
			name := v.FullTag()
			ref, ok := known[name]
			if !ok {
				d.add(prefix + name)
				continue
			}
			count[name]++
			for _, a := range v.Attr {
				d.add(prefix + name + "@" + a.FullKey())
			}
			switch ref.(type) {
			case *[]Actor:
				collectDropped(NewActor(), v, prefix+name+"/", d)
				continue
			case *[]string:
			default:
				if count[name] > 1 {
					d.add(prefix + name + "[2]")
				}
			}
			leafDropped(v, prefix+name+"/", d)
		case *etree.CharData:
			if strings.TrimSpace(v.Data) != "" {
				d.add(prefix + "#text")
			}
		default:
			d.add(prefix + tokenLabel(t))
		}
	}
}

// leafDropped 检查字段元素：只有开头的字符数据会被读取。
func leafDropped(e *etree.Element, prefix string, d *dropSet) {
	leading := true
	for _, t := range e.Child {
		switch v := t.(type) {
		case *etree.CharData:
			if !leading && strings.TrimSpace(v.Data) != "" {
				d.add(prefix + "#text")
			}
		case *etree.Element:
			leading = false
			d.add(prefix + v.FullTag())
		default:
			leading = false
			d.add(prefix + tokenLabel(t))
		}
	}
}

func tokenLabel(t etree.Token) string {
	switch t.(type) {
	case *etree.Comment:
		return "#comment"
	case *etree.ProcInst:
		return "#procinst"
	case *etree.Directive:
		return "#directive"
	default:
		return fmt.Sprintf("#%T", t)
	}
}
