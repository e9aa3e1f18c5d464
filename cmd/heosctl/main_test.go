package main

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"mini-heos/registry"
	"mini-heos/server"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startEmulator(t *testing.T) (string, *server.Device) {
	t.Helper()
	srv := server.NewServer(nil)
	dev := server.NewDevice(srv, server.Player{Name: "Kitchen", PlayerID: 1, Model: "HEOS 1"})
	require.NoError(t, srv.Listen("tcp", "127.0.0.1:0"))
	go srv.Serve(registry.DeviceInstance{}, nil)
	t.Cleanup(func() { srv.Shutdown(time.Second) })
	return srv.Addr().String(), dev
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HEOS_ADDR", "")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--log-level", "error"}, args...))
	err := root.ExecuteContext(ctx)
	return out.String(), err
}

func TestPlayersJSON(t *testing.T) {
	addr, _ := startEmulator(t)
	out, err := run(t, "--addr", addr, "--json", "players")
	require.NoError(t, err)

	var players []server.Player
	require.NoError(t, json.Unmarshal([]byte(out), &players))
	assert.Equal(t, []server.Player{{Name: "Kitchen", PlayerID: 1, Model: "HEOS 1"}}, players)
}

func TestVolume(t *testing.T) {
	addr, dev := startEmulator(t)
	_, err := run(t, "--addr", addr, "volume", "1", "35")
	require.NoError(t, err)
	level, _ := dev.Volume(1)
	assert.Equal(t, uint8(35), level)

	_, err = run(t, "--addr", addr, "volume", "1", "up", "--step", "5")
	require.NoError(t, err)
	level, _ = dev.Volume(1)
	assert.Equal(t, uint8(40), level)

	out, err := run(t, "--addr", addr, "volume", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "level=40")

	_, err = run(t, "--addr", addr, "volume", "1", "101")
	assert.Error(t, err)
}

func TestRawAndHeartbeat(t *testing.T) {
	addr, _ := startEmulator(t)
	out, err := run(t, "--addr", addr, "raw", "heos://player/get_mute?pid=1")
	require.NoError(t, err)
	assert.Contains(t, out, "player/get_mute")
	assert.Contains(t, out, "state=off")

	out, err = run(t, "--addr", addr, "heartbeat")
	require.NoError(t, err)
	assert.Contains(t, out, "answered in")
}

func TestDeviceErrorIsReturned(t *testing.T) {
	addr, _ := startEmulator(t)
	_, err := run(t, "--addr", addr, "state", "9")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "eid=2")
}

func TestMissingAddress(t *testing.T) {
	_, err := run(t, "players")
	assert.Error(t, err)
}
