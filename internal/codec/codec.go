// Package codec encodes actor bodies and checkpoint records.
package codec

import "encoding/json"

type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// JSONCodec writes compact JSON unless Indent is set. Struct fields are
// written in declaration order and map keys sorted, so equal values encode
// to equal bytes.
type JSONCodec struct {
	Indent string
}

func (c JSONCodec) Marshal(v any) ([]byte, error) {
	if c.Indent != "" {
		return json.MarshalIndent(v, "", c.Indent)
	}
	return json.Marshal(v)
}

func (JSONCodec) Unmarshal(b []byte, v any) error { return json.Unmarshal(b, v) }

var _ Codec = JSONCodec{}
