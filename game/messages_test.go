package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lcx/arena/net"
	"github.com/lcx/arena/wire"
)

// newGameRegistry builds a registry with the game schema, matching what
// RegisterMessages installs on a manager.
func newGameRegistry(t *testing.T) *net.Registry {
	t.Helper()
	r := net.NewRegistry()
	require.NoError(t, r.Register(&PlayerInputMsg{}, &PlayerUpdateMsg{}, &PlayerActionMsg{}))
	return r
}

func TestPlayerInputMsgRoundTrip(t *testing.T) {
	r := newGameRegistry(t)

	// Half-precision-exact values round-trip bit for bit.
	in := &PlayerInputMsg{
		MoveDir: wire.Vec2{X: 0.5, Y: -1},
		AimPos:  wire.Vec3{X: 12, Y: -3.25, Z: 0},
		Actions: []string{"fire"},
	}
	data, err := r.Encode(in)
	require.NoError(t, err)

	msg, err := r.Decode(data)
	require.NoError(t, err)
	got, ok := msg.(*PlayerInputMsg)
	require.True(t, ok)
	assert.Equal(t, in.MoveDir, got.MoveDir)
	assert.Equal(t, in.AimPos, got.AimPos)
	assert.Equal(t, in.Actions, got.Actions)
}

func TestPlayerInputMsgEmptyActions(t *testing.T) {
	r := newGameRegistry(t)
	data, err := r.Encode(&PlayerInputMsg{})
	require.NoError(t, err)
	msg, err := r.Decode(data)
	require.NoError(t, err)
	assert.Nil(t, msg.(*PlayerInputMsg).Actions)
}

func TestPlayerUpdateMsgRoundTrip(t *testing.T) {
	r := newGameRegistry(t)
	in := &PlayerUpdateMsg{
		PlayerID: 1000,
		Position: wire.Vec3{X: -10, Y: 10, Z: 0.5},
		HPR:      wire.Vec3{X: -90, Y: 0, Z: 0},
		Alive:    true,
	}
	data, err := r.Encode(in)
	require.NoError(t, err)
	msg, err := r.Decode(data)
	require.NoError(t, err)
	got := msg.(*PlayerUpdateMsg)
	assert.Equal(t, in.PlayerID, got.PlayerID)
	assert.Equal(t, in.Position, got.Position)
	assert.Equal(t, in.HPR, got.HPR)
	assert.True(t, got.Alive)
}

func TestPlayerActionMsgRoundTrip(t *testing.T) {
	r := newGameRegistry(t)
	for _, action := range []PlayerAction{ActionRegister, ActionRemove, ActionFire} {
		data, err := r.Encode(&PlayerActionMsg{PlayerID: 7, Action: action})
		require.NoError(t, err)
		msg, err := r.Decode(data)
		require.NoError(t, err)
		got := msg.(*PlayerActionMsg)
		assert.Equal(t, int32(7), got.PlayerID)
		assert.Equal(t, action, got.Action)
	}
}

func TestPlayerActionMsgInvalidDiscriminant(t *testing.T) {
	r := newGameRegistry(t)
	data, err := r.Encode(&PlayerActionMsg{PlayerID: 1, Action: ActionFire})
	require.NoError(t, err)
	// Corrupt the discriminant (last byte of the payload).
	data[len(data)-1] = 0xFF
	_, err = r.Decode(data)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid player action discriminant")
}

func TestPlayerActionString(t *testing.T) {
	assert.Equal(t, "register", ActionRegister.String())
	assert.Equal(t, "remove", ActionRemove.String())
	assert.Equal(t, "fire", ActionFire.String())
	assert.Equal(t, "PlayerAction(9)", PlayerAction(9).String())
}

func TestRegisterMessages(t *testing.T) {
	m, err := net.NewNetworkManager(net.RoleServer, net.WithTransportFactory(func() net.Transport {
		return &gameFakeTransport{}
	}))
	require.NoError(t, err)
	require.NoError(t, RegisterMessages(m))
	// The schema is fixed; registering it twice is a programming error.
	require.Error(t, RegisterMessages(m))
}
