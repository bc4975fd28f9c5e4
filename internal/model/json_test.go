package model

import (
	"encoding/json"
	"testing"
	"time"
)

func TestMarshalJSON_DateAndOrder(t *testing.T) {
	jst := time.FixedZone("JST", 9*60*60)
	d := time.Date(2009, 10, 7, 0, 0, 0, 0, jst)
	ep := NewEpisode()
	ep.Title = String("赤い夜 ~ 空")
	ep.Aired = &d
	ep.Rating = Float(5)

	b, err := json.Marshal(Record(ep))
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	want := `{"title":"赤い夜 ~ 空","aired":"2009-10-07","directors":[],"writers":[],"rating":5}`
	if string(b) != want {
		t.Fatalf("JSON 不一致：\n期望 %s\n实际 %s", want, b)
	}
}

func TestMarshalJSON_NestedActorsAndNilLists(t *testing.T) {
	s := &Show{Title: String("T"), Actors: []Actor{{Name: String("N")}}}

	b, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	want := `{"title":"T","sets":[],"genres":[],"actors":[{"name":"N"}]}`
	if string(b) != want {
		t.Fatalf("JSON 不一致：\n期望 %s\n实际 %s", want, b)
	}
}
