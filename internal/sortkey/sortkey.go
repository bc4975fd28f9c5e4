package sortkey

import (
	"strings"
	"unicode"

	"github.com/mozillazg/go-pinyin"
)

var args = pinyin.Args{Style: pinyin.Normal}

// HasHan 报告 s 是否包含汉字。
func HasHan(s string) bool {
	return strings.IndexFunc(s, func(r rune) bool { return unicode.Is(unicode.Han, r) }) >= 0
}

// Key 把标题转成可按字母排序的 sorttitle。
//
// 规则：
// - 汉字换成不带声调的拼音（多音字取第一个读音），音节之间以空格分隔
// - 其他字符原样保留，拉丁字母转小写
// - 连续空白折叠为一个空格，去首尾空白
//
// 假名等非汉字的 CJK 字符不做转换。
func Key(s string) string {
	var b strings.Builder
	prevHan := false
	for _, r := range s {
		if unicode.Is(unicode.Han, r) {
			py := pinyin.SinglePinyin(r, args)
			if len(py) == 0 {
				b.WriteRune(r)
				prevHan = false
				continue
			}
			b.WriteByte(' ')
			b.WriteString(py[0])
			prevHan = true
			continue
		}
		if prevHan && !unicode.IsSpace(r) {
			b.WriteByte(' ')
		}
		prevHan = false
		b.WriteRune(unicode.ToLower(r))
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
