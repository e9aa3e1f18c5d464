package command

import (
	"testing"

	"mini-heos/message"

	"github.com/stretchr/testify/assert"
)

func TestPayloads(t *testing.T) {
	tests := []struct {
		cmd  Command
		want Payload
	}{
		{HeartBeat{}, "system/heart_beat"},
		{RegisterForChangeEvents{Enable: message.On}, "system/register_for_change_events?enable=on"},
		{SignIn{Username: "me@example.com", Password: "a&b=c"}, "system/sign_in?un=me@example.com&pw=a%26b%3Dc"},
		{GetPlayers{}, "player/get_players"},
		{GetPlayState{PlayerID: -42}, "player/get_play_state?pid=-42"},
		{SetPlayState{PlayerID: 1, State: message.PlayStatePause}, "player/set_play_state?pid=1&state=pause"},
		{SetVolume{PlayerID: 1, Level: 30}, "player/set_volume?pid=1&level=30"},
		{SetVolume{PlayerID: 1, Level: 250}, "player/set_volume?pid=1&level=100"},
		{VolumeUp{PlayerID: 1}, "player/volume_up?pid=1"},
		{VolumeDown{PlayerID: 1, Step: 50}, "player/volume_down?pid=1&step=10"},
		{SetMute{PlayerID: 1, State: message.Off}, "player/set_mute?pid=1&state=off"},
		{SetPlayMode{PlayerID: 1, Repeat: message.RepeatAll, Shuffle: message.On}, "player/set_play_mode?pid=1&repeat=on_all&shuffle=on"},
		{GetGroupVolume{GroupID: 7}, "group/get_volume?gid=7"},
		{SetGroupMute{GroupID: 7, State: message.On}, "group/set_mute?gid=7&state=on"},
		{GroupVolumeUp{GroupID: 7, Step: 3}, "group/volume_up?gid=7&step=3"},
	}
	for _, tt := range tests {
		t.Run(string(tt.want), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cmd.Payload())
		})
	}
}

func TestPayloadName(t *testing.T) {
	p := SetVolume{PlayerID: 1, Level: 5}.Payload()
	assert.Equal(t, SetVolumeName, p.Name())
	assert.Equal(t, "heos://player/set_volume?pid=1&level=5", p.String())
	assert.Equal(t, HeartBeatName, HeartBeat{}.Payload().Name())
}

func TestRaw(t *testing.T) {
	assert.Equal(t, Payload("player/get_players"), Raw("heos://player/get_players").Payload())
	assert.Equal(t, Payload("player/get_volume?pid=1"), Raw(" player/get_volume?pid=1\n").Payload())
}
