package game

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lcx/arena/net"
	"github.com/lcx/arena/wire"
)

// startedManager builds a manager with the game schema on real TCP. Port 0
// for a server role; the client role dials the given port.
func startedManager(t *testing.T, role net.NetRole, port int) *net.NetworkManager {
	t.Helper()
	m, err := net.NewNetworkManager(role)
	require.NoError(t, err)
	require.NoError(t, RegisterMessages(m))
	require.NoError(t, m.Start("127.0.0.1", port))
	t.Cleanup(func() { _ = m.Stop() })
	return m
}

func TestMessageExchangeOverTCP(t *testing.T) {
	server := startedManager(t, net.RoleServer, 0)
	client := startedManager(t, net.RoleClient, server.ServerPort())

	deadline := time.Now().Add(3 * time.Second)
	wait := func(cond func() bool, msg string) {
		t.Helper()
		for !cond() {
			if time.Now().After(deadline) {
				t.Fatal(msg)
			}
			time.Sleep(5 * time.Millisecond)
		}
	}

	// Both managers arm the schema hello from the same registration order,
	// so the connection must clear it and be announced.
	connID := -1
	server.OnNewConnection(func(id int) { connID = id })
	wait(func() bool { server.Update(); return connID >= 0 }, "server never announced the connection")
	require.Equal(t, 0, connID)

	aim := wire.Vec3{X: 0.1, Y: 0, Z: 1}
	in := &PlayerInputMsg{
		MoveDir: wire.Vec2{X: 1, Y: -0.5},
		AimPos:  aim,
		Actions: []string{"fire"},
	}
	require.NoError(t, client.Send(in, net.RoleClient))

	var received []net.Message
	wait(func() bool {
		msgs, err := server.GetMessages(net.RoleServer)
		require.NoError(t, err)
		received = append(received, msgs...)
		return len(received) > 0
	}, "input never reached the server")

	require.Len(t, received, 1)
	got, ok := received[0].(*PlayerInputMsg)
	require.True(t, ok, "expected *PlayerInputMsg, got %T", received[0])

	id, stamped := got.ConnectionID()
	require.True(t, stamped)
	assert.Equal(t, 0, id)

	// Exactly-representable halves arrive bit-exact; the rest arrive as
	// their quantized values.
	assert.Equal(t, wire.Vec2{X: 1, Y: -0.5}, got.MoveDir)
	assert.Equal(t, aim.Quantize(), got.AimPos)
	assert.NotEqual(t, aim, got.AimPos)
	assert.Equal(t, []string{"fire"}, got.Actions)

	// Reply leg: a stamped control message unicasts back to the sender.
	reply := &PlayerActionMsg{PlayerID: int32(id), Action: ActionRegister}
	reply.SetConnectionID(id)
	require.NoError(t, server.Send(reply, net.RoleServer))

	var back []net.Message
	wait(func() bool {
		msgs, err := client.GetMessages(net.RoleClient)
		require.NoError(t, err)
		back = append(back, msgs...)
		return len(back) > 0
	}, "reply never reached the client")

	require.Len(t, back, 1)
	action, ok := back[0].(*PlayerActionMsg)
	require.True(t, ok, "expected *PlayerActionMsg, got %T", back[0])
	assert.Equal(t, int32(0), action.PlayerID)
	assert.Equal(t, ActionRegister, action.Action)
}
