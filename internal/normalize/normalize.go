package normalize

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// pair 是一条有序替换规则；替换表必须是切片而不是 map（顺序即语义）。
type pair struct {
	from string
	to   string
}

// protect 在 NFKC 之前执行：把会被 NFKC 破坏的字符先换成占位符。
var protect = []pair{
	{"～", "$wave%"},
	{"＆", "&amp;"},
	{"\n\n", "$doubleLineBreak%"},
	{"＜", "〈"},
	{"＞", "〉"},
}

// restore 在 NFKC 之后执行：去掉单换行、还原占位符、统一省略号。
// 全角省略写法先落到 "..." 再统一成 "…"，与 NFKC 把 "…" 展开成 "..." 的方向一致。
var restore = []pair{
	{"\n", ""},
	{"\t", " "},
	{"$wave%", "～"},
	{"&amp;", "＆"},
	{"$doubleLineBreak%", "\n\n"},
	{"〈", "＜"},
	{"〉", "＞"},
	{"．．．", "..."},
	{"・・・", "..."},
	{"、、、", "..."},
	{"...", "…"},
}

// 句末标点后的空格会被删除；删除可能让新的 "! " 相邻，所以按不动点处理。
var tightPunct = []string{"!", "。", "?"}

// Normalize 规范化来源杂乱的自由文本（简介、标题等）。
//
// 步骤（顺序固定）：
// 1) 保护替换（全角波浪线/＆/双换行/全角尖括号）
// 2) NFKC
// 3) 还原替换 + 省略号统一 + 去掉 !/。/? 后紧跟的空格
// 4) 去首尾空白
// 5) 连续空格折叠为一个（不动点）
//
// 输出满足 Normalize(Normalize(x)) == Normalize(x)。
func Normalize(s string) string {
	s = replaceAll(s, protect)
	s = norm.NFKC.String(s)
	s = replaceAll(s, restore)
	for _, p := range tightPunct {
		for strings.Contains(s, p+" ") {
			s = strings.ReplaceAll(s, p+" ", p)
		}
	}
	s = strings.TrimSpace(s)
	for strings.Contains(s, "  ") {
		s = strings.ReplaceAll(s, "  ", " ")
	}
	return s
}

func replaceAll(s string, rules []pair) string {
	for _, r := range rules {
		s = strings.ReplaceAll(s, r.from, r.to)
	}
	return s
}
