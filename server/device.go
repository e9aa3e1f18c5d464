package server

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"sync"

	"mini-heos/command"
	"mini-heos/message"
)

// Player is one entry of the player/get_players payload.
type Player struct {
	Name     string `json:"name"`
	PlayerID int64  `json:"pid"`
	Model    string `json:"model,omitempty"`
	Version  string `json:"version,omitempty"`
	Network  string `json:"network,omitempty"`
}

type playerState struct {
	state   message.PlayState
	level   uint8
	mute    message.OnOff
	repeat  message.Repeat
	shuffle message.OnOff
}

// Device simulates the player commands of a HEOS system on top of a Server.
// State changes are broadcast as events.
type Device struct {
	srv *Server

	mu      sync.Mutex
	players []Player
	state   map[int64]*playerState
}

// NewDevice installs player handlers on srv.
func NewDevice(srv *Server, players ...Player) *Device {
	d := &Device{srv: srv, players: slices.Clone(players), state: make(map[int64]*playerState)}
	for _, p := range players {
		d.state[p.PlayerID] = &playerState{
			state:   message.PlayStateStop,
			level:   20,
			mute:    message.Off,
			repeat:  message.RepeatOff,
			shuffle: message.Off,
		}
	}

	srv.Handle(command.GetPlayersName, func(context.Context, *Request) Reply {
		d.mu.Lock()
		defer d.mu.Unlock()
		return Success("", slices.Clone(d.players))
	})
	srv.Handle(command.GetPlayerInfoName, d.withPlayer(func(req *Request, _ *playerState) Reply {
		pid := req.Args.Get("pid")
		for _, p := range d.players {
			if strconv.FormatInt(p.PlayerID, 10) == pid {
				return Success(req.Query, p)
			}
		}
		return Fail(message.ErrInvalidID, "Invalid ID")
	}))
	srv.Handle(command.GetPlayStateName, d.withPlayer(func(req *Request, ps *playerState) Reply {
		return Success(req.Query+"&state="+ps.state.String(), nil)
	}))
	srv.Handle(command.SetPlayStateName, d.withPlayer(func(req *Request, ps *playerState) Reply {
		v, err := message.ParsePlayState(req.Args.Get("state"))
		if err != nil {
			return outOfRange()
		}
		ps.state = v
		d.emit("event/player_state_changed", "pid=%s&state=%s", req.Args.Get("pid"), v)
		return Success(req.Query, nil)
	}))
	srv.Handle(command.GetNowPlayingMediaName, d.withPlayer(func(req *Request, _ *playerState) Reply {
		return Success(req.Query, map[string]string{"type": "station", "song": "", "station": "Emulator FM"})
	}))
	srv.Handle(command.GetVolumeName, d.withPlayer(func(req *Request, ps *playerState) Reply {
		return Success(fmt.Sprintf("%s&level=%d", req.Query, ps.level), nil)
	}))
	srv.Handle(command.SetVolumeName, d.withPlayer(func(req *Request, ps *playerState) Reply {
		level, err := strconv.Atoi(req.Args.Get("level"))
		if err != nil || level < 0 || level > command.MaxVolume {
			return outOfRange()
		}
		d.setLevel(req.Args.Get("pid"), ps, level)
		return Success(req.Query, nil)
	}))
	srv.Handle(command.VolumeUpName, d.withPlayer(d.stepVolume(1)))
	srv.Handle(command.VolumeDownName, d.withPlayer(d.stepVolume(-1)))
	srv.Handle(command.GetMuteName, d.withPlayer(func(req *Request, ps *playerState) Reply {
		return Success(req.Query+"&state="+ps.mute.String(), nil)
	}))
	srv.Handle(command.SetMuteName, d.withPlayer(func(req *Request, ps *playerState) Reply {
		v, err := message.ParseOnOff(req.Args.Get("state"))
		if err != nil {
			return outOfRange()
		}
		d.setMute(req.Args.Get("pid"), ps, v)
		return Success(req.Query, nil)
	}))
	srv.Handle(command.ToggleMuteName, d.withPlayer(func(req *Request, ps *playerState) Reply {
		v := message.On
		if ps.mute == message.On {
			v = message.Off
		}
		d.setMute(req.Args.Get("pid"), ps, v)
		return Success(req.Query, nil)
	}))
	srv.Handle(command.GetPlayModeName, d.withPlayer(func(req *Request, ps *playerState) Reply {
		return Success(fmt.Sprintf("%s&repeat=%s&shuffle=%s", req.Query, ps.repeat, ps.shuffle), nil)
	}))
	srv.Handle(command.SetPlayModeName, d.withPlayer(func(req *Request, ps *playerState) Reply {
		repeat, err := message.ParseRepeat(req.Args.Get("repeat"))
		if err != nil {
			return outOfRange()
		}
		shuffle, err := message.ParseOnOff(req.Args.Get("shuffle"))
		if err != nil {
			return outOfRange()
		}
		pid := req.Args.Get("pid")
		if repeat != ps.repeat {
			ps.repeat = repeat
			d.emit("event/repeat_mode_changed", "pid=%s&repeat=%s", pid, repeat)
		}
		if shuffle != ps.shuffle {
			ps.shuffle = shuffle
			d.emit("event/shuffle_mode_changed", "pid=%s&shuffle=%s", pid, shuffle)
		}
		return Success(req.Query, nil)
	}))
	srv.Handle(command.PlayNextName, d.withPlayer(func(req *Request, _ *playerState) Reply {
		return Success(req.Query, nil)
	}))
	srv.Handle(command.PlayPreviousName, d.withPlayer(func(req *Request, _ *playerState) Reply {
		return Success(req.Query, nil)
	}))
	return d
}

// Volume returns the current level of a player.
func (d *Device) Volume(pid int64) (uint8, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	ps, ok := d.state[pid]
	if !ok {
		return 0, false
	}
	return ps.level, true
}

// withPlayer resolves the pid argument and runs fn with the device locked.
func (d *Device) withPlayer(fn func(*Request, *playerState) Reply) HandlerFunc {
	return func(_ context.Context, req *Request) Reply {
		raw := req.Args.Get("pid")
		if raw == "" {
			return Fail(message.ErrWrongArgumentCount, "Wrong number of Command Arguments")
		}
		pid, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return Fail(message.ErrInvalidID, "Invalid ID")
		}
		d.mu.Lock()
		defer d.mu.Unlock()
		ps, ok := d.state[pid]
		if !ok {
			return Fail(message.ErrInvalidID, "Invalid ID")
		}
		return fn(req, ps)
	}
}

func (d *Device) stepVolume(sign int) func(*Request, *playerState) Reply {
	return func(req *Request, ps *playerState) Reply {
		step := 5
		if s := req.Args.Get("step"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil || n < 1 || n > command.MaxVolumeStep {
				return outOfRange()
			}
			step = n
		}
		level := min(max(int(ps.level)+sign*step, 0), command.MaxVolume)
		d.setLevel(req.Args.Get("pid"), ps, level)
		return Success(req.Query, nil)
	}
}

func (d *Device) setLevel(pid string, ps *playerState, level int) {
	if uint8(level) == ps.level {
		return
	}
	ps.level = uint8(level)
	d.emit("event/player_volume_changed", "pid=%s&level=%d&mute=%s", pid, ps.level, ps.mute)
}

func (d *Device) setMute(pid string, ps *playerState, v message.OnOff) {
	if v == ps.mute {
		return
	}
	ps.mute = v
	d.emit("event/player_volume_changed", "pid=%s&level=%d&mute=%s", pid, ps.level, ps.mute)
}

// emit is called with d.mu held; event writes never call back into the device.
func (d *Device) emit(name, format string, args ...any) {
	d.srv.Broadcast(name, fmt.Sprintf(format, args...))
}

func outOfRange() Reply {
	return Fail(message.ErrParameterOutOfRange, "Parameter out of range")
}
