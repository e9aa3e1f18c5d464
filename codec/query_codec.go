package codec

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"mini-heos/message"
)

var (
	// ErrMalformedErrorBody is returned when the message of a failed command
	// does not carry both eid and text.
	ErrMalformedErrorBody = errors.New("codec: malformed error body")
	ErrUnsupportedValue   = errors.New("codec: unsupported value type")
)

// The device escapes only the characters that would break the key/value
// grammar. Spaces travel raw.
var valueEscaper = strings.NewReplacer("%", "%25", "&", "%26", "=", "%3D", "+", "%2B", ";", "%3B")

// EscapeValue escapes a single query-string value the way the device does.
func EscapeValue(s string) string {
	return valueEscaper.Replace(s)
}

// DecodeQuery turns a message body into a Body. It never fails: an empty
// body is BodyEmpty, a body that does not fit message.Params is BodyOpaque.
// Keys outside the schema are ignored; a repeated key keeps its first value.
func DecodeQuery(body string) message.Body {
	if body == "" {
		return message.Body{}
	}
	p, err := parseParams(body)
	if err != nil {
		return message.OpaqueBody(body)
	}
	return message.StructuredBody(body, p)
}

// EncodeQuery renders the present fields of p in schema order.
func EncodeQuery(p message.Params) string {
	var b strings.Builder
	add := func(key, value string) {
		if b.Len() > 0 {
			b.WriteByte('&')
		}
		b.WriteString(key)
		b.WriteByte('=')
		b.WriteString(EscapeValue(value))
	}
	if p.PlayerID != nil {
		add("pid", strconv.FormatInt(*p.PlayerID, 10))
	}
	if p.GroupID != nil {
		add("gid", strconv.FormatInt(*p.GroupID, 10))
	}
	if p.Level != nil {
		add("level", strconv.FormatUint(uint64(*p.Level), 10))
	}
	if p.Mute != nil {
		add("mute", p.Mute.String())
	}
	if p.Shuffle != nil {
		add("shuffle", p.Shuffle.String())
	}
	if p.Repeat != nil {
		add("repeat", p.Repeat.String())
	}
	if p.Username != nil {
		add("un", *p.Username)
	}
	if p.Text != nil {
		add("text", *p.Text)
	}
	if p.ErrorID != nil {
		add("eid", strconv.Itoa(*p.ErrorID))
	}
	if p.CurrentPos != nil {
		add("cur_pos", strconv.FormatUint(*p.CurrentPos, 10))
	}
	if p.Duration != nil {
		add("duration", strconv.FormatUint(*p.Duration, 10))
	}
	if p.State != nil {
		add("state", p.State.String())
	}
	return b.String()
}

// DecodeErrorBody parses the eid/text body of a failed command. Both keys
// are required; an eid that is not a known number becomes ErrUnknown.
func DecodeErrorBody(body string) (message.ErrorMessage, error) {
	values, err := ParseValues(body)
	if err != nil {
		return message.ErrorMessage{}, fmt.Errorf("%w: %q: %v", ErrMalformedErrorBody, body, err)
	}
	eid, ok := first(values, "eid")
	if !ok {
		return message.ErrorMessage{}, fmt.Errorf("%w: %q: missing eid", ErrMalformedErrorBody, body)
	}
	text, ok := first(values, "text")
	if !ok {
		return message.ErrorMessage{}, fmt.Errorf("%w: %q: missing text", ErrMalformedErrorBody, body)
	}

	code := message.ErrUnknown
	if n, err := strconv.Atoi(eid); err == nil {
		code = message.FromCode(n)
	}
	return message.ErrorMessage{Code: code, Text: text}, nil
}

// QueryCodec adapts the query-string functions to the Codec interface.
//
//	Encode: message.Params or *message.Params
//	Decode: *message.Body (never fails), *message.Params (strict), *message.ErrorMessage
type QueryCodec struct{}

func (c *QueryCodec) Encode(v any) ([]byte, error) {
	switch p := v.(type) {
	case message.Params:
		return []byte(EncodeQuery(p)), nil
	case *message.Params:
		return []byte(EncodeQuery(*p)), nil
	}
	return nil, fmt.Errorf("%w: %T", ErrUnsupportedValue, v)
}

func (c *QueryCodec) Decode(data []byte, v any) error {
	switch out := v.(type) {
	case *message.Body:
		*out = DecodeQuery(string(data))
		return nil
	case *message.Params:
		p, err := parseParams(string(data))
		if err != nil {
			return err
		}
		*out = p
		return nil
	case *message.ErrorMessage:
		m, err := DecodeErrorBody(string(data))
		if err != nil {
			return err
		}
		*out = m
		return nil
	}
	return fmt.Errorf("%w: %T", ErrUnsupportedValue, v)
}

func (c *QueryCodec) Type() CodecType {
	return CodecTypeQuery
}

// ParseValues splits a query-string body into its key/value pairs. Only '&'
// separates pairs; a ';' is ordinary value text, unlike url.ParseQuery.
// Raw spaces are accepted.
func ParseValues(body string) (url.Values, error) {
	values := make(url.Values)
	for pair := range strings.SplitSeq(body, "&") {
		if pair == "" {
			continue
		}
		rawKey, rawValue, _ := strings.Cut(pair, "=")
		key, err := unescape(rawKey)
		if err != nil {
			return nil, err
		}
		value, err := unescape(rawValue)
		if err != nil {
			return nil, err
		}
		values[key] = append(values[key], value)
	}
	return values, nil
}

func unescape(s string) (string, error) {
	return url.QueryUnescape(strings.ReplaceAll(s, " ", "%20"))
}

func parseParams(body string) (message.Params, error) {
	values, err := ParseValues(body)
	if err != nil {
		return message.Params{}, err
	}

	var p message.Params
	p.PlayerID = take(values, "pid", parseInt64, &err)
	p.GroupID = take(values, "gid", parseInt64, &err)
	p.Level = take(values, "level", parseUint8, &err)
	p.Mute = take(values, "mute", message.ParseOnOff, &err)
	p.Shuffle = take(values, "shuffle", message.ParseOnOff, &err)
	p.Repeat = take(values, "repeat", message.ParseRepeat, &err)
	p.Username = take(values, "un", parseString, &err)
	p.Text = take(values, "text", parseString, &err)
	p.ErrorID = take(values, "eid", strconv.Atoi, &err)
	p.CurrentPos = take(values, "cur_pos", parseUint64, &err)
	p.Duration = take(values, "duration", parseUint64, &err)
	p.State = take(values, "state", message.ParsePlayState, &err)
	if err != nil {
		return message.Params{}, err
	}
	return p, nil
}

// take parses values[key] with parse. It is a no-op once *errp is set.
func take[T any](values url.Values, key string, parse func(string) (T, error), errp *error) *T {
	if *errp != nil {
		return nil
	}
	raw, ok := first(values, key)
	if !ok {
		return nil
	}
	v, err := parse(raw)
	if err != nil {
		*errp = fmt.Errorf("codec: key %s: %w", key, err)
		return nil
	}
	return &v
}

func first(values url.Values, key string) (string, bool) {
	vs, ok := values[key]
	if !ok || len(vs) == 0 {
		return "", false
	}
	return vs[0], true
}

func parseString(s string) (string, error) { return s, nil }

func parseInt64(s string) (int64, error) { return strconv.ParseInt(s, 10, 64) }

func parseUint64(s string) (uint64, error) { return strconv.ParseUint(s, 10, 64) }

func parseUint8(s string) (uint8, error) {
	n, err := strconv.ParseUint(s, 10, 8)
	return uint8(n), err
}
