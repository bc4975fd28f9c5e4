package model

import (
	"bytes"
	"encoding/json"
	"time"
)

// MarshalJSON 按字段表顺序输出；缺失的标量省略，列表总是输出（nil 写成 []），日期写成 DateLayout。
func (e *Episode) MarshalJSON() ([]byte, error) { return marshalRecord(e) }

func (s *Show) MarshalJSON() ([]byte, error) { return marshalRecord(s) }

func (m *Movie) MarshalJSON() ([]byte, error) { return marshalRecord(m) }

func (a *Actor) MarshalJSON() ([]byte, error) { return marshalRecord(a) }

func marshalRecord(r Record) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	n := 0
	for _, f := range r.fields() {
		v, ok := jsonValue(f.ref)
		if !ok {
			continue
		}
		b, err := encodeJSON(v)
		if err != nil {
			return nil, err
		}
		if n > 0 {
			buf.WriteByte(',')
		}
		n++
		key, _ := encodeJSON(f.name)
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(b)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// encodeJSON 与 CLI 输出一致：不转义 HTML 字符。
func encodeJSON(v any) ([]byte, error) {
	var b bytes.Buffer
	enc := json.NewEncoder(&b)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(b.Bytes(), "\n"), nil
}

func jsonValue(ref any) (any, bool) {
	switch p := ref.(type) {
	case **string:
		return *p, *p != nil
	case **int:
		return *p, *p != nil
	case **float64:
		return *p, *p != nil
	case **time.Time:
		if *p == nil {
			return nil, false
		}
		return (*p).Format(DateLayout), true
	case *[]string:
		if *p == nil {
			return []string{}, true
		}
		return *p, true
	case *[]Actor:
		out := make([]*Actor, 0, len(*p))
		for i := range *p {
			out = append(out, &(*p)[i])
		}
		return out, true
	default:
		return nil, false
	}
}
