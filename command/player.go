package command

import (
	"strconv"

	"mini-heos/message"
)

const (
	GetPlayersName         = "player/get_players"
	GetPlayerInfoName      = "player/get_player_info"
	GetPlayStateName       = "player/get_play_state"
	SetPlayStateName       = "player/set_play_state"
	GetNowPlayingMediaName = "player/get_now_playing_media"
	GetVolumeName          = "player/get_volume"
	SetVolumeName          = "player/set_volume"
	VolumeUpName           = "player/volume_up"
	VolumeDownName         = "player/volume_down"
	GetMuteName            = "player/get_mute"
	SetMuteName            = "player/set_mute"
	ToggleMuteName         = "player/toggle_mute"
	GetPlayModeName        = "player/get_play_mode"
	SetPlayModeName        = "player/set_play_mode"
	PlayNextName           = "player/play_next"
	PlayPreviousName       = "player/play_previous"
)

// MaxVolume is the highest level accepted by set_volume.
const MaxVolume = 100

// MaxVolumeStep is the largest step accepted by volume_up and volume_down.
const MaxVolumeStep = 10

func pid(id int64) string { return strconv.FormatInt(id, 10) }

type GetPlayers struct{}

func (GetPlayers) Payload() Payload { return build(GetPlayersName) }

type GetPlayerInfo struct{ PlayerID int64 }

func (c GetPlayerInfo) Payload() Payload {
	return build(GetPlayerInfoName, "pid", pid(c.PlayerID))
}

type GetPlayState struct{ PlayerID int64 }

func (c GetPlayState) Payload() Payload {
	return build(GetPlayStateName, "pid", pid(c.PlayerID))
}

type SetPlayState struct {
	PlayerID int64
	State    message.PlayState
}

func (c SetPlayState) Payload() Payload {
	return build(SetPlayStateName, "pid", pid(c.PlayerID), "state", c.State.String())
}

type GetNowPlayingMedia struct{ PlayerID int64 }

func (c GetNowPlayingMedia) Payload() Payload {
	return build(GetNowPlayingMediaName, "pid", pid(c.PlayerID))
}

type GetVolume struct{ PlayerID int64 }

func (c GetVolume) Payload() Payload {
	return build(GetVolumeName, "pid", pid(c.PlayerID))
}

// SetVolume clamps Level to MaxVolume.
type SetVolume struct {
	PlayerID int64
	Level    uint8
}

func (c SetVolume) Payload() Payload {
	return build(SetVolumeName, "pid", pid(c.PlayerID), "level", strconv.Itoa(int(min(c.Level, MaxVolume))))
}

// VolumeUp raises the volume by Step, 1 to MaxVolumeStep. A zero Step
// leaves the choice to the device.
type VolumeUp struct {
	PlayerID int64
	Step     uint8
}

func (c VolumeUp) Payload() Payload {
	return stepCommand(VolumeUpName, "pid", pid(c.PlayerID), c.Step)
}

type VolumeDown struct {
	PlayerID int64
	Step     uint8
}

func (c VolumeDown) Payload() Payload {
	return stepCommand(VolumeDownName, "pid", pid(c.PlayerID), c.Step)
}

func stepCommand(name, key, id string, step uint8) Payload {
	if step == 0 {
		return build(name, key, id)
	}
	return build(name, key, id, "step", strconv.Itoa(int(min(step, MaxVolumeStep))))
}

type GetMute struct{ PlayerID int64 }

func (c GetMute) Payload() Payload {
	return build(GetMuteName, "pid", pid(c.PlayerID))
}

type SetMute struct {
	PlayerID int64
	State    message.OnOff
}

func (c SetMute) Payload() Payload {
	return build(SetMuteName, "pid", pid(c.PlayerID), "state", c.State.String())
}

type ToggleMute struct{ PlayerID int64 }

func (c ToggleMute) Payload() Payload {
	return build(ToggleMuteName, "pid", pid(c.PlayerID))
}

type GetPlayMode struct{ PlayerID int64 }

func (c GetPlayMode) Payload() Payload {
	return build(GetPlayModeName, "pid", pid(c.PlayerID))
}

type SetPlayMode struct {
	PlayerID int64
	Repeat   message.Repeat
	Shuffle  message.OnOff
}

func (c SetPlayMode) Payload() Payload {
	return build(SetPlayModeName, "pid", pid(c.PlayerID), "repeat", c.Repeat.String(), "shuffle", c.Shuffle.String())
}

type PlayNext struct{ PlayerID int64 }

func (c PlayNext) Payload() Payload {
	return build(PlayNextName, "pid", pid(c.PlayerID))
}

type PlayPrevious struct{ PlayerID int64 }

func (c PlayPrevious) Payload() Payload {
	return build(PlayPreviousName, "pid", pid(c.PlayerID))
}
