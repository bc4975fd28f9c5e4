package sortkey

import "testing"

func TestKey(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"纯汉字", "中国", "zhong guo"},
		{"汉字与数字", "电影2", "dian ying 2"},
		{"混排", "中国 Movie", "zhong guo movie"},
		{"无汉字只转小写", "11eyes ABC", "11eyes abc"},
		{"假名保留", "いれぶん", "いれぶん"},
		{"空白折叠", "  中国   电影 ", "zhong guo dian ying"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Key(tc.in); got != tc.want {
				t.Fatalf("期望 %q，实际 %q", tc.want, got)
			}
		})
	}
}

func TestHasHan(t *testing.T) {
	if !HasHan("劇場版") || HasHan("いれぶん") || HasHan("") {
		t.Fatalf("HasHan 判断错误")
	}
}
