package model

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/beevik/etree"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func childTags(e *etree.Element) []string {
	out := make([]string, 0, len(e.ChildElements()))
	for _, c := range e.ChildElements() {
		out = append(out, c.Tag)
	}
	return out
}

func sampleEpisode() *Episode {
	return &Episode{
		Title:     String("T"),
		Episode:   Int(1),
		Aired:     Date(2009, 10, 7),
		Directors: []string{"D"},
		Writers:   []string{"W"},
		Rating:    Float(5),
	}
}

func sampleShow() *Show {
	s := NewShow()
	s.Title = String("11eyes")
	s.OriginalTitle = String("11eyes")
	s.SortTitle = String("いれぶんあいず")
	s.Sets = []string{"11eyes -罪と罰と贖いの少女-"}
	s.MPAA = String("TV-14")
	s.Plot = String("平凡な生活を送っていた皐月駆だが…。\n\n血の色にも似た不気味に赤く染まる空に、漆黒の巨大な月。")
	s.TagLine = String("11eyes")
	s.Rating = Float(4.2)
	s.Premiered = Date(2009, 10, 6)
	s.Studio = String("動画工房")
	s.Genres = []string{"ハーレム", "現代ファンタジー", "アクション"}
	s.Actors = []Actor{
		{Name: String("小野大輔"), Role: String("皐月駆"), Thumb: String("https://example.com/cast/1.jpg")},
		{Name: String("後藤麻衣"), Role: String("水奈瀬ゆか")},
	}
	return s
}

func sampleMovie() *Movie {
	m := NewMovie()
	m.Title = String("Fate/stay night UNLIMITED BLADE WORKS")
	m.SortTitle = String("ふぇいと すていないと")
	m.Sets = []string{"Fate/stay night"}
	m.MPAA = String("PG12")
	m.Plot = String("街を焼き尽くす大災害が発生し、衛宮士郎は全てを失う。")
	m.TagLine = String("我に従え―― ならばこの運命、汝が剣に預けよう")
	m.Rating = Float(6.8)
	m.ReleaseDate = Date(2010, 1, 23)
	m.Studio = String("スタジオディーン")
	m.Directors = []string{"山口祐司"}
	m.Writers = []string{"佐藤卓哉"}
	m.Genres = []string{"魔法", "ファンタジー"}
	m.Actors = []Actor{{Name: String("諏訪部順一"), Role: String("アーチャー")}}
	return m
}

func TestToTree_EpisodeOrder(t *testing.T) {
	root := ToTree(sampleEpisode(), DefaultOptions())
	if root.Tag != TagEpisode {
		t.Fatalf("根标签不一致：%q", root.Tag)
	}
	want := []string{"title", "episode", "aired", "director", "writer", "rating"}
	if diff := cmp.Diff(want, childTags(root)); diff != "" {
		t.Fatalf("子元素顺序不一致 (-want +got):\n%s", diff)
	}
	if got := root.SelectElement("aired").Text(); got != "2009-10-07" {
		t.Fatalf("aired 格式不一致：%q", got)
	}
	if got := root.SelectElement("rating").Text(); got != "5.0" {
		t.Fatalf("rating 格式不一致：%q", got)
	}
}

func TestRoundTrip_AllVariants(t *testing.T) {
	records := []Record{
		sampleEpisode(),
		sampleShow(),
		sampleMovie(),
		&Actor{Name: String("N"), Role: String("R"), Thumb: String("http://x/y.jpg")},
		NewEpisode(),
	}
	for _, r := range records {
		t.Run(r.RootTag(), func(t *testing.T) {
			got, err := FromTree(ToTree(r, DefaultOptions()))
			if err != nil {
				t.Fatalf("不期望错误：%v", err)
			}
			if !Equal(r, got) {
				t.Fatalf("往返后记录不一致：%s", cmp.Diff(r, got, cmpopts.EquateEmpty()))
			}
			if diff := cmp.Diff(r, got, cmpopts.EquateEmpty()); diff != "" {
				t.Fatalf("往返后记录不一致 (-want +got):\n%s", diff)
			}
		})
	}
}

func TestToTree_ListExpansion(t *testing.T) {
	s := NewShow()
	s.Genres = []string{"A", "B"}

	root := ToTree(s, DefaultOptions())
	genres := root.SelectElements("genre")
	if len(genres) != 2 || genres[0].Text() != "A" || genres[1].Text() != "B" {
		t.Fatalf("genre 未按顺序展开：%v", childTags(root))
	}

	back, err := FromTree(root)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if diff := cmp.Diff([]string{"A", "B"}, back.(*Show).Genres); diff != "" {
		t.Fatalf("genres 不一致 (-want +got):\n%s", diff)
	}
}

func TestToTree_OmissionPolicy(t *testing.T) {
	ep := NewEpisode()
	ep.Title = String("")
	ep.Plot = String("   ")
	ep.MPAA = String("  TV-14 ")

	// 默认：空串、纯空白、nil 都不输出；其余 trim。
	root := ToTree(ep, DefaultOptions())
	if diff := cmp.Diff([]string{"mpaa"}, childTags(root)); diff != "" {
		t.Fatalf("默认策略输出不一致 (-want +got):\n%s", diff)
	}
	if got := root.SelectElement("mpaa").Text(); got != "TV-14" {
		t.Fatalf("mpaa 未 trim：%q", got)
	}

	// ignoreEmpty=false：空串输出为空元素；纯空白仍被 ignoreBlank 拦下。
	opt := DefaultOptions()
	opt.IgnoreEmpty = false
	root = ToTree(ep, opt)
	if diff := cmp.Diff([]string{"title", "mpaa"}, childTags(root)); diff != "" {
		t.Fatalf("ignoreEmpty=false 输出不一致 (-want +got):\n%s", diff)
	}
	if root.SelectElement("title").Text() != "" {
		t.Fatalf("title 应为空元素")
	}

	// 再关闭 ignoreBlank：纯空白 trim 后变成空元素。
	opt.IgnoreBlank = false
	root = ToTree(ep, opt)
	if diff := cmp.Diff([]string{"title", "mpaa", "plot"}, childTags(root)); diff != "" {
		t.Fatalf("ignoreBlank=false 输出不一致 (-want +got):\n%s", diff)
	}

	// 关闭 trim：原值原样保留。
	opt.Trim = false
	root = ToTree(ep, opt)
	if got := root.SelectElement("plot").Text(); got != "   " {
		t.Fatalf("trim=false 时应保留原值：%q", got)
	}
}

func TestToTree_IgnoreNoneOff(t *testing.T) {
	opt := Options{IgnoreNone: false, IgnoreEmpty: false, IgnoreBlank: true, Trim: true}
	root := ToTree(NewActor(), opt)
	if diff := cmp.Diff([]string{"name", "role", "thumb"}, childTags(root)); diff != "" {
		t.Fatalf("ignoreNone=false 应输出所有标量 (-want +got):\n%s", diff)
	}
}

func TestToTree_NestedActorsAfterScalars(t *testing.T) {
	root := ToTree(sampleMovie(), DefaultOptions())
	want := []string{
		"title", "sorttitle", "set", "mpaa", "plot", "tagline", "rating",
		"releasedate", "studio", "director", "writer", "genre", "genre", "actor",
	}
	if diff := cmp.Diff(want, childTags(root)); diff != "" {
		t.Fatalf("movie 子元素顺序不一致 (-want +got):\n%s", diff)
	}
	actor := root.SelectElement("actor")
	if diff := cmp.Diff([]string{"name", "role"}, childTags(actor)); diff != "" {
		t.Fatalf("actor 子元素不一致 (-want +got):\n%s", diff)
	}
}

func TestFromTree_UnsupportedRoot(t *testing.T) {
	_, err := FromTree(etree.NewElement("foo"))
	if !errors.Is(err, ErrUnsupportedRootTag) {
		t.Fatalf("期望 ErrUnsupportedRootTag，实际：%v", err)
	}
	var ue *UnsupportedRootTagError
	if !errors.As(err, &ue) || ue.Tag != "foo" {
		t.Fatalf("期望 UnsupportedRootTagError{foo}，实际：%T %v", err, err)
	}
}

func TestFromTree_MalformedFieldKeepsDefault(t *testing.T) {
	root := etree.NewElement(TagEpisode)
	root.CreateElement("title").SetText("T")
	root.CreateElement("episode").SetText("one")
	root.CreateElement("aired").SetText("2009/10/07")
	root.CreateElement("rating").SetText(" 7.5 ")

	var skipped []string
	r, err := FromTreeWithHook(root, func(e *FieldConversionError) {
		skipped = append(skipped, e.Tag)
	})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	ep := r.(*Episode)
	if ep.Episode != nil || ep.Aired != nil {
		t.Fatalf("格式错误的字段应保持缺失：episode=%v aired=%v", ep.Episode, ep.Aired)
	}
	if ep.Title == nil || *ep.Title != "T" {
		t.Fatalf("title 不应受其他字段影响：%v", ep.Title)
	}
	if ep.Rating == nil || *ep.Rating != 7.5 {
		t.Fatalf("rating 解析不一致：%v", ep.Rating)
	}
	if diff := cmp.Diff([]string{"episode", "aired"}, skipped); diff != "" {
		t.Fatalf("被跳过的字段不一致 (-want +got):\n%s", diff)
	}
}

func TestFromTree_EmptyElementIsAbsent(t *testing.T) {
	root := etree.NewElement(TagActor)
	root.CreateElement("name")
	root.CreateElement("role").SetText("R")

	r, err := FromTree(root)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	a := r.(*Actor)
	if a.Name != nil {
		t.Fatalf("空元素应视为缺失：%q", *a.Name)
	}
	if a.Role == nil || *a.Role != "R" {
		t.Fatalf("role 不一致：%v", a.Role)
	}
}

func TestFromTree_IgnoresUnknownChildren(t *testing.T) {
	root := etree.NewElement(TagMovie)
	root.CreateElement("title").SetText("T")
	root.CreateElement("fileinfo").CreateElement("streamdetails")

	r, err := FromTree(root)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if !Equal(r, &Movie{Title: String("T")}) {
		t.Fatalf("未知子元素不应影响结果：%+v", r)
	}
}

func TestFields_TagsUniquePerVariant(t *testing.T) {
	for _, r := range []Record{NewEpisode(), NewShow(), NewMovie(), NewActor()} {
		seen := map[string]bool{}
		for _, f := range r.fields() {
			if seen[f.tag] {
				t.Fatalf("%s 中标签重复：%q", r.RootTag(), f.tag)
			}
			seen[f.tag] = true
			if orderKey(r.order(), f.tag) < 0 {
				t.Fatalf("%s 的标签 %q 不在顺序表中", r.RootTag(), f.tag)
			}
		}
	}
}

func TestOrderKey_UnorderedFirst(t *testing.T) {
	ord := []string{"b", "a"}
	if orderKey(ord, "x") != -1 || orderKey(ord, "b") != 0 || orderKey(ord, "a") != 1 {
		t.Fatalf("orderKey 不符合约定")
	}
}

func TestEqual_NilAndEmptyListsMatch(t *testing.T) {
	if !Equal(&Show{}, NewShow()) {
		t.Fatalf("nil 列表与空列表应视为相同")
	}
	if Equal(NewShow(), NewMovie()) {
		t.Fatalf("不同变体不应相等")
	}
	a := sampleEpisode()
	b := sampleEpisode()
	b.Writers = []string{"X"}
	if Equal(a, b) {
		t.Fatalf("writers 不同时不应相等")
	}
}

func TestDropped(t *testing.T) {
	root := etree.NewElement(TagMovie)
	root.CreateAttr("version", "1")
	root.CreateComment(" keep me ")
	root.CreateElement("title").SetText("T")
	root.FindElement("title").CreateAttr("lang", "en")
	root.CreateElement("fileinfo")
	root.CreateElement("studio").SetText("A")
	root.CreateElement("studio").SetText("B")
	root.CreateElement("studio").SetText("C")
	root.CreateElement("genre").SetText("G1")
	root.CreateElement("genre").SetText("G2")
	plot := root.CreateElement("plot")
	plot.SetText("P")
	plot.CreateElement("b").SetText("x")
	plot.CreateText("tail")
	a := root.CreateElement("actor")
	a.CreateElement("name").SetText("N")
	a.CreateElement("order").SetText("1")
	a.CreateElement("name").SetText("M")
	root.CreateElement("actor").CreateElement("order")

	want := []string{
		"@version", "#comment", "title@lang", "fileinfo", "studio[2]",
		"plot/b", "plot/#text", "actor/order", "actor/name[2]",
	}
	if diff := cmp.Diff(want, Dropped(root)); diff != "" {
		t.Fatalf("丢失内容不一致 (-want +got):\n%s", diff)
	}
	if got := Dropped(ToTree(sampleShow(), DefaultOptions())); len(got) != 0 {
		t.Fatalf("自身输出不应有丢失内容：%v", got)
	}
	if Dropped(etree.NewElement("foo")) != nil {
		t.Fatalf("未知根标签应返回 nil")
	}
}

func TestDropped_IgnoresLayoutWhitespace(t *testing.T) {
	doc := etree.NewDocument()
	if err := doc.ReadFromString("<tvshow>\n    <title>T</title>\n    <actor>\n        <name>N</name>\n    </actor>\n</tvshow>\n"); err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if got := Dropped(doc.Root()); len(got) != 0 {
		t.Fatalf("缩进空白不应算作丢失内容：%v", got)
	}
}

func TestRoundTrip_DateInOtherZone(t *testing.T) {
	jst := time.FixedZone("JST", 9*60*60)
	d := time.Date(2009, 10, 7, 0, 0, 0, 0, jst)
	ep := sampleEpisode()
	ep.Aired = &d

	root := ToTree(ep, DefaultOptions())
	if got := root.SelectElement("aired").Text(); got != "2009-10-07" {
		t.Fatalf("aired 格式不一致：%q", got)
	}
	back, err := FromTree(root)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if !Equal(ep, back) {
		t.Fatalf("非 UTC 日期往返后应相等：%v", back.(*Episode).Aired)
	}

	next := d.AddDate(0, 0, 1)
	other := sampleEpisode()
	other.Aired = &next
	if Equal(ep, other) {
		t.Fatalf("不同日期不应相等")
	}
}

func TestFormatFloat(t *testing.T) {
	cases := map[float64]string{
		5:        "5.0",
		8.5:      "8.5",
		0:        "0.0",
		-2:       "-2.0",
		0.0001:   "0.0001",
		0.000015: "1.5e-05",
		1e15:     "1000000000000000.0",
		1e16:     "1e+16",
		1e20:     "1e+20",
	}
	for in, want := range cases {
		if got := formatFloat(in); got != want {
			t.Fatalf("formatFloat(%v) 期望 %q，实际 %q", in, want, got)
		}
	}
	if formatFloat(math.Inf(1)) != "inf" || formatFloat(math.NaN()) != "nan" {
		t.Fatalf("特殊值格式不一致")
	}
}
