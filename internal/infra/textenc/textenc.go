package textenc

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
)

// Encoding 是一个已解析的文本编码（名称 + 编解码器）。
type Encoding struct {
	Label string // 用户给出的名称（写入 XML 声明时使用）
	Name  string // 规范名，例如 "utf-8"、"shift_jis"、"gbk"
	enc   encoding.Encoding
}

// Lookup 按 WHATWG 名称解析编码；空串视为 utf-8。
func Lookup(label string) (Encoding, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		label = "utf-8"
	}
	enc, err := htmlindex.Get(label)
	if err != nil {
		return Encoding{}, fmt.Errorf("未知编码 %q：%w", label, err)
	}
	name, err := htmlindex.Name(enc)
	if err != nil {
		return Encoding{}, fmt.Errorf("未知编码 %q：%w", label, err)
	}
	return Encoding{Label: label, Name: name, enc: enc}, nil
}

// IsUTF8 为 true 时写出与读入都不做转码。
func (e Encoding) IsUTF8() bool {
	return e.enc == nil || e.enc == unicode.UTF8
}

// Encode 把 UTF-8 文本转成目标编码；目标编码无法表示的字符写成数字字符引用（&#NNNN;）。
func (e Encoding) Encode(b []byte) ([]byte, error) {
	if e.IsUTF8() {
		return b, nil
	}
	out, err := encoding.HTMLEscapeUnsupported(e.enc.NewEncoder()).Bytes(b)
	if err != nil {
		return nil, fmt.Errorf("转码为 %s 失败：%w", e.Name, err)
	}
	return out, nil
}

// CharsetReader 供 XML 解析器按声明中的 encoding 解码输入。
func CharsetReader(label string, input io.Reader) (io.Reader, error) {
	e, err := Lookup(label)
	if err != nil {
		return nil, err
	}
	if e.IsUTF8() {
		return input, nil
	}
	return e.enc.NewDecoder().Reader(input), nil
}
