package message

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromCodeIsTotal(t *testing.T) {
	want := []ErrorKind{
		ErrUnrecognizedCommand, ErrInvalidID, ErrWrongArgumentCount, ErrDataUnavailable,
		ErrResourceBusy, ErrInvalidCredentials, ErrCommandNotExecuted, ErrNotLoggedIn,
		ErrParameterOutOfRange, ErrUserNotFound, ErrInternal, ErrSystem,
		ErrProcessingPreviousCommand, ErrMediaUnplayable, ErrOptionUnsupported,
	}
	for i, kind := range want {
		code := i + 1
		if got := FromCode(code); got != kind {
			t.Fatalf("FromCode(%d) = %v, want %v", code, got, kind)
		}
		if kind.Code() != code {
			t.Fatalf("%v.Code() = %d, want %d", kind, kind.Code(), code)
		}
	}

	for _, code := range []int{0, -1, 16, 255, 999} {
		if got := FromCode(code); got != ErrUnknown {
			t.Fatalf("FromCode(%d) = %v, want ErrUnknown", code, got)
		}
	}
}

func TestCommandErrorMatchesKind(t *testing.T) {
	err := error(&CommandError{Message: ErrorMessage{Code: ErrInvalidID, Text: "Invalid ID", Context: "player/get_play_state"}})

	assert.True(t, errors.Is(err, ErrInvalidID))
	assert.False(t, errors.Is(err, ErrSystem))
	assert.Contains(t, err.Error(), "player/get_play_state")
	assert.Contains(t, err.Error(), "eid=2")

	var cmdErr *CommandError
	require.True(t, errors.As(err, &cmdErr))
	assert.Equal(t, "Invalid ID", cmdErr.Message.Text)
}

func TestEnumsParse(t *testing.T) {
	for _, s := range []string{"play", "pause", "stop"} {
		v, err := ParsePlayState(s)
		require.NoError(t, err)
		assert.Equal(t, s, v.String())
	}
	for _, s := range []string{"off", "on_one", "on_all"} {
		v, err := ParseRepeat(s)
		require.NoError(t, err)
		assert.Equal(t, s, v.String())
	}
	for _, s := range []string{"on", "off"} {
		v, err := ParseOnOff(s)
		require.NoError(t, err)
		assert.Equal(t, s, v.String())
	}

	_, err := ParsePlayState("Play")
	assert.Error(t, err)
	_, err = ParseOnOff("true")
	assert.Error(t, err)
	_, err = ParseRepeat("OnAll")
	assert.Error(t, err)
}

func TestBodyJSON(t *testing.T) {
	pid := int64(123)
	state := PlayStatePlay
	cases := []struct {
		name string
		body Body
		want string
	}{
		{"empty", Body{}, `null`},
		{"opaque", OpaqueBody("signed_in"), `"signed_in"`},
		{"structured", StructuredBody("pid=123&state=play", Params{PlayerID: &pid, State: &state}), `{"pid":123,"state":"play"}`},
		{"structured without fields", StructuredBody("foo=bar", Params{}), `{}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			data, err := json.Marshal(tc.body)
			require.NoError(t, err)
			assert.JSONEq(t, tc.want, string(data))

			var back Body
			require.NoError(t, json.Unmarshal(data, &back))
			assert.Equal(t, tc.body.Kind, back.Kind)
			assert.Equal(t, tc.body.Params, back.Params)
		})
	}
}

func TestFrameName(t *testing.T) {
	frames := map[string]Frame{
		"player/get_players":         UnderProcessFrame("player/get_players"),
		"player/get_volume":          ResponseFrame(CommandResponse{CommandName: "player/get_volume"}),
		"event/player_state_changed": EventFrame(EventResponse{EventName: "event/player_state_changed"}),
		"player/get_play_state":      ErrorFrame(ErrorMessage{Code: ErrInvalidID, Context: "player/get_play_state"}),
	}
	for name, f := range frames {
		assert.Equal(t, name, f.Name(), f.Kind.String())
	}
}

func TestDecodePayload(t *testing.T) {
	r := CommandResponse{CommandName: "player/get_players"}
	var v []map[string]any
	assert.ErrorIs(t, r.DecodePayload(&v), ErrNoPayload)

	r.Payload = json.RawMessage(`[{"name":"Kitchen","pid":1}]`)
	require.NoError(t, r.DecodePayload(&v))
	require.Len(t, v, 1)
	assert.Equal(t, "Kitchen", v[0]["name"])
}
