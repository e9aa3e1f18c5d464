package command

import (
	"strconv"

	"mini-heos/message"
)

const (
	GetGroupsName       = "group/get_groups"
	GetGroupInfoName    = "group/get_group_info"
	GetGroupVolumeName  = "group/get_volume"
	SetGroupVolumeName  = "group/set_volume"
	GroupVolumeUpName   = "group/volume_up"
	GroupVolumeDownName = "group/volume_down"
	GetGroupMuteName    = "group/get_mute"
	SetGroupMuteName    = "group/set_mute"
	ToggleGroupMuteName = "group/toggle_mute"
)

func gid(id int64) string { return strconv.FormatInt(id, 10) }

type GetGroups struct{}

func (GetGroups) Payload() Payload { return build(GetGroupsName) }

type GetGroupInfo struct{ GroupID int64 }

func (c GetGroupInfo) Payload() Payload {
	return build(GetGroupInfoName, "gid", gid(c.GroupID))
}

type GetGroupVolume struct{ GroupID int64 }

func (c GetGroupVolume) Payload() Payload {
	return build(GetGroupVolumeName, "gid", gid(c.GroupID))
}

type SetGroupVolume struct {
	GroupID int64
	Level   uint8
}

func (c SetGroupVolume) Payload() Payload {
	return build(SetGroupVolumeName, "gid", gid(c.GroupID), "level", strconv.Itoa(int(min(c.Level, MaxVolume))))
}

type GroupVolumeUp struct {
	GroupID int64
	Step    uint8
}

func (c GroupVolumeUp) Payload() Payload {
	return stepCommand(GroupVolumeUpName, "gid", gid(c.GroupID), c.Step)
}

type GroupVolumeDown struct {
	GroupID int64
	Step    uint8
}

func (c GroupVolumeDown) Payload() Payload {
	return stepCommand(GroupVolumeDownName, "gid", gid(c.GroupID), c.Step)
}

type GetGroupMute struct{ GroupID int64 }

func (c GetGroupMute) Payload() Payload {
	return build(GetGroupMuteName, "gid", gid(c.GroupID))
}

type SetGroupMute struct {
	GroupID int64
	State   message.OnOff
}

func (c SetGroupMute) Payload() Payload {
	return build(SetGroupMuteName, "gid", gid(c.GroupID), "state", c.State.String())
}

type ToggleGroupMute struct{ GroupID int64 }

func (c ToggleGroupMute) Payload() Payload {
	return build(ToggleGroupMuteName, "gid", gid(c.GroupID))
}
