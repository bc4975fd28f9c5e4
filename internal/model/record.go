package model

import "time"

// Record 是四种 NFO 记录（Episode/Show/Movie/Actor）的公共能力。
//
// 约束：
// - 每种记录的根标签固定
// - 字段与标签的映射、输出顺序都由静态字段表声明（fields/order），不做运行期反射
type Record interface {
	RootTag() string

	// fields 返回与字段表一一对应的取址引用；order 返回标签输出顺序。
	fields() []field
	order() []string
}

// field 是字段表中的一格：Go 侧名字、外部标签、以及指向记录字段的引用。
//
// ref 的具体类型决定值的种类：
// **string / **int / **float64 / **time.Time 为标量；
// *[]string 为重复字符串；*[]Actor 为重复嵌套记录。
type field struct {
	name string
	tag  string
	ref  any
}

const (
	TagEpisode = "episodedetails"
	TagShow    = "tvshow"
	TagMovie   = "movie"
	TagActor   = "actor"
)

// DateLayout 是 NFO 中日期的唯一格式。
const DateLayout = "2006-01-02"

// String / Int / Float / Date 用于构造可选字段（nil 即缺失）。
func String(s string) *string { return &s }

func Int(i int) *int { return &i }

func Float(f float64) *float64 { return &f }

// Date 返回 UTC 零点的日期；与 FromTree 解析出的值可直接比较。
func Date(year int, month time.Month, day int) *time.Time {
	d := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return &d
}
