package message

import "fmt"

// PlayState is the transport state of a player.
type PlayState uint8

const (
	PlayStatePlay PlayState = iota + 1
	PlayStatePause
	PlayStateStop
)

func ParsePlayState(s string) (PlayState, error) {
	switch s {
	case "play":
		return PlayStatePlay, nil
	case "pause":
		return PlayStatePause, nil
	case "stop":
		return PlayStateStop, nil
	}
	return 0, fmt.Errorf("message: invalid play state %q", s)
}

func (s PlayState) String() string {
	switch s {
	case PlayStatePlay:
		return "play"
	case PlayStatePause:
		return "pause"
	case PlayStateStop:
		return "stop"
	}
	return fmt.Sprintf("PlayState(%d)", uint8(s))
}

func (s PlayState) MarshalText() ([]byte, error) {
	if s < PlayStatePlay || s > PlayStateStop {
		return nil, fmt.Errorf("message: invalid play state %d", uint8(s))
	}
	return []byte(s.String()), nil
}

func (s *PlayState) UnmarshalText(text []byte) error {
	v, err := ParsePlayState(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// OnOff is the two-valued flag used for mute, shuffle and event registration.
type OnOff uint8

const (
	Off OnOff = iota + 1
	On
)

func ParseOnOff(s string) (OnOff, error) {
	switch s {
	case "on":
		return On, nil
	case "off":
		return Off, nil
	}
	return 0, fmt.Errorf("message: can't convert %q to on/off", s)
}

func (o OnOff) String() string {
	switch o {
	case On:
		return "on"
	case Off:
		return "off"
	}
	return fmt.Sprintf("OnOff(%d)", uint8(o))
}

func (o OnOff) MarshalText() ([]byte, error) {
	if o != On && o != Off {
		return nil, fmt.Errorf("message: invalid on/off value %d", uint8(o))
	}
	return []byte(o.String()), nil
}

func (o *OnOff) UnmarshalText(text []byte) error {
	v, err := ParseOnOff(string(text))
	if err != nil {
		return err
	}
	*o = v
	return nil
}

// Repeat is the repeat mode of a player queue.
type Repeat uint8

const (
	RepeatOff Repeat = iota + 1
	RepeatOne
	RepeatAll
)

func ParseRepeat(s string) (Repeat, error) {
	switch s {
	case "off":
		return RepeatOff, nil
	case "on_one":
		return RepeatOne, nil
	case "on_all":
		return RepeatAll, nil
	}
	return 0, fmt.Errorf("message: invalid repeat mode %q", s)
}

func (r Repeat) String() string {
	switch r {
	case RepeatOff:
		return "off"
	case RepeatOne:
		return "on_one"
	case RepeatAll:
		return "on_all"
	}
	return fmt.Sprintf("Repeat(%d)", uint8(r))
}

func (r Repeat) MarshalText() ([]byte, error) {
	if r < RepeatOff || r > RepeatAll {
		return nil, fmt.Errorf("message: invalid repeat mode %d", uint8(r))
	}
	return []byte(r.String()), nil
}

func (r *Repeat) UnmarshalText(text []byte) error {
	v, err := ParseRepeat(string(text))
	if err != nil {
		return err
	}
	*r = v
	return nil
}
