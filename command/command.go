// Package command builds the text commands sent to a HEOS device.
//
//	heos://player/set_volume?pid=1&level=30
//	└─────┘└────────────────┘└─────────────┘
//	scheme        name            query
//
// The device echoes the name (without scheme and query) in heos.command of
// its reply, which is how replies are matched to commands.
package command

import (
	"strings"

	"mini-heos/codec"
)

const Scheme = "heos://"

// Payload is a command without the scheme, e.g. "player/get_volume?pid=1".
type Payload string

// String returns the wire form including the scheme.
func (p Payload) String() string {
	return Scheme + string(p)
}

// Name returns the command path the device echoes back.
func (p Payload) Name() string {
	name, _, _ := strings.Cut(string(p), "?")
	return name
}

// Command is anything that can be sent to the device.
type Command interface {
	Payload() Payload
}

// Raw is a preformatted command, with or without the heos:// scheme.
type Raw string

func (r Raw) Payload() Payload {
	return Payload(strings.TrimPrefix(strings.TrimSpace(string(r)), Scheme))
}

// build joins a command name and key/value pairs into a Payload.
func build(name string, kv ...string) Payload {
	if len(kv) == 0 {
		return Payload(name)
	}
	var b strings.Builder
	b.WriteString(name)
	for i := 0; i+1 < len(kv); i += 2 {
		if i == 0 {
			b.WriteByte('?')
		} else {
			b.WriteByte('&')
		}
		b.WriteString(kv[i])
		b.WriteByte('=')
		b.WriteString(codec.EscapeValue(kv[i+1]))
	}
	return Payload(b.String())
}
