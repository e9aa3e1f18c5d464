package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"mini-heos/codec"
	"mini-heos/message"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestDecodeFrameResponse(t *testing.T) {
	frame, err := DecodeFrame([]byte(`{"heos":{"command":"player/get_players","result":"success","message":""}}`))
	require.NoError(t, err)
	require.Equal(t, message.FrameResponse, frame.Kind)

	r := frame.Response
	assert.Equal(t, "player/get_players", r.CommandName)
	assert.True(t, r.Message.IsEmpty())
	assert.Nil(t, r.Payload)
	assert.Nil(t, r.Options)
}

func TestDecodeFrameEvent(t *testing.T) {
	frame, err := DecodeFrame([]byte(`{"heos":{"command":"event/player_state_changed","message":"pid=123&state=play"}}`))
	require.NoError(t, err)
	require.Equal(t, message.FrameEvent, frame.Kind)

	e := frame.Event
	assert.Equal(t, "event/player_state_changed", e.EventName)
	require.True(t, e.Message.IsStructured())
	assert.Equal(t, message.Params{PlayerID: ptr(int64(123)), State: ptr(message.PlayStatePlay)}, e.Message.Params)
}

func TestDecodeFrameError(t *testing.T) {
	frame, err := DecodeFrame([]byte(`{"heos":{"command":"player/get_play_state","result":"fail","message":"eid=2&text=Invalid ID"}}`))
	require.NoError(t, err)
	require.Equal(t, message.FrameError, frame.Kind)
	assert.Equal(t, message.ErrorMessage{Code: message.ErrInvalidID, Text: "Invalid ID", Context: "player/get_play_state"}, *frame.Error)

	frame, err = DecodeFrame([]byte(`{"heos":{"command":"player/play_next","result":"fail","message":"eid=12&text=System error; retry"}}`))
	require.NoError(t, err)
	require.Equal(t, message.FrameError, frame.Kind)
	assert.Equal(t, message.ErrSystem, frame.Error.Code)
	assert.Equal(t, "System error; retry", frame.Error.Text)
}

func TestDecodeFrameUnderProcess(t *testing.T) {
	frame, err := DecodeFrame([]byte(`{"heos":{"command":"player/get_players","message":"command under process"}}`))
	require.NoError(t, err)
	assert.Equal(t, message.UnderProcessFrame("player/get_players"), frame)
}

func TestDecodeEnvelopeOrdering(t *testing.T) {
	cases := []struct {
		name string
		line string
		kind message.FrameKind
	}{
		{"failed event is an error", `{"heos":{"command":"event/groups_changed","result":"fail","message":"eid=11&text=System error"}}`, message.FrameError},
		{"event under process stays an event", `{"heos":{"command":"event/x","message":"command under process"}}`, message.FrameEvent},
		{"failure beats under process", `{"heos":{"command":"player/x","result":"fail","message":"eid=13&text=command under process"}}`, message.FrameError},
		{"eventually is an event name", `{"heos":{"command":"eventually/foo","message":""}}`, message.FrameEvent},
		{"success under process", `{"heos":{"command":"browse/browse","result":"success","message":"command under process"}}`, message.FrameUnderProcess},
		{"unknown result", `{"heos":{"command":"system/heart_beat","result":"maybe","message":""}}`, message.FrameResponse},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			frame, err := DecodeFrame([]byte(tc.line))
			require.NoError(t, err)
			assert.Equal(t, tc.kind, frame.Kind)
		})
	}
}

func TestDecodeFramePayloadPassthrough(t *testing.T) {
	line := `{"heos":{"command":"player/get_players","result":"success","message":""},"payload":[{"name":"Kitchen","pid":-1428194563,"model":"HEOS 1"}],"options":{"play":[{"id":19}]}}`
	frame, err := DecodeFrame([]byte(line))
	require.NoError(t, err)
	require.Equal(t, message.FrameResponse, frame.Kind)

	assert.JSONEq(t, `[{"name":"Kitchen","pid":-1428194563,"model":"HEOS 1"}]`, string(frame.Response.Payload))
	assert.JSONEq(t, `{"play":[{"id":19}]}`, string(frame.Response.Options))

	var players []struct {
		Name string `json:"name"`
		PID  int64  `json:"pid"`
	}
	require.NoError(t, frame.Response.DecodePayload(&players))
	assert.Equal(t, int64(-1428194563), players[0].PID)
}

func TestDecodeFrameNullPayload(t *testing.T) {
	frame, err := DecodeFrame([]byte(`{"heos":{"command":"player/get_players","result":"success","message":""},"payload":null,"options":null}`))
	require.NoError(t, err)
	assert.Nil(t, frame.Response.Payload)
	assert.Nil(t, frame.Response.Options)
}

func TestDecodeFrameOpaqueMessage(t *testing.T) {
	frame, err := DecodeFrame([]byte(`{"heos":{"command":"player/get_volume","result":"success","message":"pid=abc"}}`))
	require.NoError(t, err)
	require.Equal(t, message.FrameResponse, frame.Kind)
	assert.Equal(t, message.OpaqueBody("pid=abc"), frame.Response.Message)
}

func TestDecodeFrameFailures(t *testing.T) {
	cases := []struct {
		name string
		line string
		err  error
	}{
		{"no heos", `{"payload":[]}`, ErrMissingCommand},
		{"no command", `{"heos":{"result":"success","message":""}}`, ErrMissingCommand},
		{"null command", `{"heos":{"command":null}}`, ErrMissingCommand},
		{"bad error body", `{"heos":{"command":"player/get_volume","result":"fail","message":"oops"}}`, codec.ErrMalformedErrorBody},
		{"empty error body", `{"heos":{"command":"player/get_volume","result":"fail","message":""}}`, codec.ErrMalformedErrorBody},
		{"syntax", `{"heos":`, ErrInvalidJSON},
		{"empty line", ``, ErrInvalidJSON},
		{"not an object", `[1,2]`, ErrInvalidJSON},
		{"message not a string", `{"heos":{"command":"a/b","message":5}}`, ErrInvalidJSON},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeFrame([]byte(tc.line))
			if !errors.Is(err, tc.err) {
				t.Fatalf("expect %v, got %v", tc.err, err)
			}
		})
	}
}

func TestParseResponseName(t *testing.T) {
	assert.Equal(t, ResponseName{Name: "event/sources_changed", Event: true}, ParseResponseName("event/sources_changed"))
	assert.Equal(t, ResponseName{Name: "system/heart_beat"}, ParseResponseName("system/heart_beat"))
}

func TestEncodeEnvelope(t *testing.T) {
	var buf bytes.Buffer
	err := EncodeEnvelope(&buf, Envelope{
		Heos:    &Header{Command: ptr("player/get_volume"), Result: ResultSuccess, Message: "pid=1&level=20"},
		Payload: json.RawMessage(`{"a":"line\r\nbreak"}`),
	})
	require.NoError(t, err)

	wire := buf.Bytes()
	require.True(t, bytes.HasSuffix(wire, []byte(Delimiter)))
	assert.Equal(t, 1, bytes.Count(wire, []byte(Delimiter)), "JSON must escape embedded CR LF")

	frame, err := DecodeFrame(bytes.TrimSuffix(wire, []byte(Delimiter)))
	require.NoError(t, err)
	assert.Equal(t, "player/get_volume", frame.Name())
	assert.Equal(t, uint8(20), *frame.Response.Message.Params.Level)
}

func TestWriteCommand(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCommand(&buf, "heos://system/heart_beat"))
	assert.Equal(t, "heos://system/heart_beat\r\n", buf.String())

	err := WriteCommand(&buf, "heos://system/sign_in?un=a\r\nheos://system/reboot")
	assert.ErrorIs(t, err, ErrInvalidCommand)
}
