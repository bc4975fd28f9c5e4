package model

import "time"

// Equal 逐字段比较两条记录；nil 列表与空列表视为相同（都表示“缺失”）。
// 日期只比较各自时区下的年月日，NFO 里只保存这一部分。
func Equal(a, b Record) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.RootTag() != b.RootTag() {
		return false
	}
	fa, fb := a.fields(), b.fields()
	if len(fa) != len(fb) {
		return false
	}
	for i := range fa {
		if !equalRef(fa[i].ref, fb[i].ref) {
			return false
		}
	}
	return true
}

func equalRef(x, y any) bool {
	switch p := x.(type) {
	case **string:
		return equalPtr(*p, *(y.(**string)), func(a, b string) bool { return a == b })
	case **int:
		return equalPtr(*p, *(y.(**int)), func(a, b int) bool { return a == b })
	case **float64:
		return equalPtr(*p, *(y.(**float64)), func(a, b float64) bool { return a == b })
	case **time.Time:
		return equalPtr(*p, *(y.(**time.Time)), sameDay)
	case *[]string:
		q := *(y.(*[]string))
		if len(*p) != len(q) {
			return false
		}
		for i := range *p {
			if (*p)[i] != q[i] {
				return false
			}
		}
		return true
	case *[]Actor:
		q := *(y.(*[]Actor))
		if len(*p) != len(q) {
			return false
		}
		for i := range *p {
			if !Equal(&(*p)[i], &q[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func equalPtr[T any](a, b *T, eq func(T, T) bool) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return eq(*a, *b)
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
