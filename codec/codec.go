// Package codec converts between HEOS wire text and Go values.
//
// Two encodings meet on every frame: the outer JSON envelope (JSONCodec) and
// the query-string message body inside it (QueryCodec).
package codec

type CodecType byte

const (
	CodecTypeJSON  CodecType = 0
	CodecTypeQuery CodecType = 1
)

type Codec interface {
	Encode(v any) ([]byte, error)
	Decode(data []byte, v any) error
	Type() CodecType // 0=JSON, 1=Query
}

func GetCodec(codecType CodecType) Codec {
	if codecType == CodecTypeJSON {
		return &JSONCodec{}
	}

	return &QueryCodec{}
}
