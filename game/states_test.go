package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lcx/arena/net"
	"github.com/lcx/arena/state"
	"github.com/lcx/arena/wire"
)

// gameFakeTransport records sends so tests can decode what a state put on
// the wire.
type gameFakeTransport struct {
	sent []gameSentFrame
}

type gameSentFrame struct {
	data   []byte
	connID int
}

func (f *gameFakeTransport) StartServer(port int) error             { return nil }
func (f *gameFakeTransport) StartClient(host string, port int) error { return nil }
func (f *gameFakeTransport) PollNewConnections() []int              { return nil }
func (f *gameFakeTransport) PollDisconnects() []int                 { return nil }
func (f *gameFakeTransport) DrainMessages() []net.Inbound           { return nil }
func (f *gameFakeTransport) Port() int                              { return 0 }
func (f *gameFakeTransport) Stop() error                            { return nil }

func (f *gameFakeTransport) Send(data []byte, connID int) error {
	f.sent = append(f.sent, gameSentFrame{data: data, connID: connID})
	return nil
}

func (f *gameFakeTransport) take() []gameSentFrame {
	out := f.sent
	f.sent = nil
	return out
}

// newGameManager builds a manager on a fake transport with the game schema
// registered.
func newGameManager(t *testing.T, role net.NetRole) (*net.NetworkManager, *gameFakeTransport) {
	t.Helper()
	tr := &gameFakeTransport{}
	m, err := net.NewNetworkManager(role, net.WithTransportFactory(func() net.Transport { return tr }))
	require.NoError(t, err)
	require.NoError(t, RegisterMessages(m))
	return m, tr
}

// decodeFrames decodes everything the fake transport captured.
func decodeFrames(t *testing.T, frames []gameSentFrame) []net.Message {
	t.Helper()
	r := newGameRegistry(t)
	msgs := make([]net.Message, 0, len(frames))
	for _, f := range frames {
		msg, err := r.Decode(f.data)
		require.NoError(t, err)
		msgs = append(msgs, msg)
	}
	return msgs
}

// inputMsg builds a stamped PlayerInputMsg as the manager would deliver it.
func inputMsg(connID int, moveDir wire.Vec2, actions ...string) *PlayerInputMsg {
	msg := &PlayerInputMsg{MoveDir: moveDir, Actions: actions}
	msg.SetConnectionID(connID)
	return msg
}

func startedServer(t *testing.T) (*MainServer, *gameFakeTransport) {
	t.Helper()
	network, tr := newGameManager(t, net.RoleServer)
	s := NewMainServer(network)
	s.Start(state.ResourceSet{"level": "levels/testenv.bam"})
	tr.take() // discard anything Start produced
	return s, tr
}

func TestMainServerStartSpawnsBots(t *testing.T) {
	network, tr := newGameManager(t, net.RoleServer)
	s := NewMainServer(network)
	s.Start(state.ResourceSet{})

	assert.Equal(t, numBots, s.PlayerCount())
	assert.Len(t, s.bots, numBots)
	// Bots have no connection, so no registration goes out for them.
	assert.Empty(t, tr.take())

	_, isBot := s.players[int32(botIDStart)]
	assert.True(t, isBot)
}

func TestMainServerAutoAddsPlayerOnInput(t *testing.T) {
	s, tr := startedServer(t)

	s.HandleMessages([]net.Message{inputMsg(2, wire.Vec2{})})
	assert.Equal(t, numBots+1, s.PlayerCount())

	frames := tr.take()
	require.Len(t, frames, 1)
	// Registration is a unicast back to the joining connection.
	assert.Equal(t, 2, frames[0].connID)
	msgs := decodeFrames(t, frames)
	action := msgs[0].(*PlayerActionMsg)
	assert.Equal(t, ActionRegister, action.Action)
	assert.Equal(t, int32(2), action.PlayerID)

	// A known player does not get re-registered.
	s.HandleMessages([]net.Message{inputMsg(2, wire.Vec2{X: 1})})
	assert.Empty(t, tr.take())
}

func TestMainServerIgnoresUnstampedInput(t *testing.T) {
	s, _ := startedServer(t)
	s.HandleMessages([]net.Message{&PlayerInputMsg{}})
	assert.Equal(t, numBots, s.PlayerCount())
}

func TestMainServerFireGatedOnAlive(t *testing.T) {
	s, tr := startedServer(t)

	// The player joins dead; firing before the first spawn does nothing.
	s.HandleMessages([]net.Message{inputMsg(2, wire.Vec2{}, "fire")})
	assert.Empty(t, s.projectiles)

	// One tick spawns the player.
	s.Update(0.016)
	require.True(t, s.players[2].alive)
	tr.take()

	s.HandleMessages([]net.Message{inputMsg(2, wire.Vec2{}, "fire")})
	require.Len(t, s.projectiles, 1)

	frames := tr.take()
	msgs := decodeFrames(t, frames)
	require.Len(t, msgs, 1)
	fire := msgs[0].(*PlayerActionMsg)
	assert.Equal(t, ActionFire, fire.Action)
	assert.Equal(t, int32(2), fire.PlayerID)
	// Fire events go to everyone.
	assert.Equal(t, net.Broadcast, frames[0].connID)
}

func TestMainServerDisconnectRemovesPlayer(t *testing.T) {
	s, tr := startedServer(t)

	s.HandleMessages([]net.Message{inputMsg(2, wire.Vec2{})})
	tr.take()

	s.HandleDisconnect(2)
	assert.Equal(t, numBots, s.PlayerCount())

	frames := tr.take()
	require.Len(t, frames, 1)
	msgs := decodeFrames(t, frames)
	remove := msgs[0].(*PlayerActionMsg)
	assert.Equal(t, ActionRemove, remove.Action)
	assert.Equal(t, int32(2), remove.PlayerID)

	// Unknown connections are a no-op, not a broadcast.
	s.HandleDisconnect(99)
	assert.Empty(t, tr.take())
}

func TestMainServerUpdateBroadcastsPlayers(t *testing.T) {
	s, tr := startedServer(t)
	s.HandleMessages([]net.Message{inputMsg(2, wire.Vec2{})})
	tr.take()

	s.Update(0.016)

	msgs := decodeFrames(t, tr.take())
	seen := map[int32]bool{}
	for _, raw := range msgs {
		upd, ok := raw.(*PlayerUpdateMsg)
		require.True(t, ok)
		seen[upd.PlayerID] = true
		// First tick respawned everyone at a level start.
		assert.True(t, upd.Alive)
	}
	assert.True(t, seen[2], "joined player missing from the snapshot")
	assert.True(t, seen[int32(botIDStart)], "bot missing from the snapshot")
}

func TestMainServerRespawnAtLevelStart(t *testing.T) {
	s, tr := startedServer(t)
	s.HandleMessages([]net.Message{inputMsg(2, wire.Vec2{})})
	s.Update(0.016)
	tr.take()

	p := s.players[2]
	p.kill()
	s.Update(0.016)

	require.True(t, p.alive)
	assert.Equal(t, playerMaxHealth, p.health)
	found := false
	for _, start := range s.level.PlayerStarts {
		if p.pos == start {
			found = true
		}
	}
	assert.True(t, found, "respawn point %v is not a level start", p.pos)
}

func TestMainServerProjectileHitsTarget(t *testing.T) {
	s, tr := startedServer(t)
	s.HandleMessages([]net.Message{
		inputMsg(2, wire.Vec2{}),
		inputMsg(3, wire.Vec2{}),
	})
	s.Update(0.016) // spawn both
	tr.take()

	shooter, target := s.players[2], s.players[3]
	shooter.pos = wire.Vec3{}
	shooter.hpr = wire.Vec3{X: -180} // facing +Y
	target.pos = wire.Vec3{Y: 10}

	s.spawnProjectile(2)
	// Run the flight; freeze everyone so nobody wanders out of the lane.
	for i := 0; i < 30 && target.alive; i++ {
		shooter.moveDir = wire.Vec2{}
		target.moveDir = wire.Vec2{}
		prevPos := target.pos
		s.Update(1.0 / 30.0)
		target.pos = prevPos
	}

	assert.False(t, target.alive, "projectile never connected")
	assert.True(t, shooter.alive, "projectile hurt its owner")
	assert.Empty(t, s.projectiles)
}

func TestMainServerCleanup(t *testing.T) {
	s, _ := startedServer(t)
	s.HandleMessages([]net.Message{inputMsg(2, wire.Vec2{}, "fire")})
	s.Cleanup()
	assert.Zero(t, s.PlayerCount())
	assert.Empty(t, s.bots)
	assert.Empty(t, s.projectiles)
}

func TestMainClientRegistration(t *testing.T) {
	network, _ := newGameManager(t, net.RoleClient)
	c := NewMainClient(network)
	c.Start(state.ResourceSet{})

	_, ok := c.PlayerID()
	assert.False(t, ok)

	c.HandleMessages([]net.Message{
		&PlayerActionMsg{PlayerID: 5, Action: ActionRegister},
	})
	id, ok := c.PlayerID()
	require.True(t, ok)
	assert.Equal(t, int32(5), id)
}

func TestMainClientMirrorsPlayers(t *testing.T) {
	network, _ := newGameManager(t, net.RoleClient)
	c := NewMainClient(network)
	c.Start(state.ResourceSet{})

	c.HandleMessages([]net.Message{
		&PlayerUpdateMsg{PlayerID: 5, Position: wire.Vec3{X: 1}, Alive: true},
		&PlayerUpdateMsg{PlayerID: 1000, Position: wire.Vec3{Y: 2}, Alive: true},
	})
	assert.Equal(t, 2, c.PlayerCount())

	// Updates overwrite in place.
	c.HandleMessages([]net.Message{
		&PlayerUpdateMsg{PlayerID: 5, Position: wire.Vec3{X: 3}, Alive: false},
	})
	assert.Equal(t, 2, c.PlayerCount())
	assert.Equal(t, float32(3), c.players[5].pos.X)
	assert.False(t, c.players[5].alive)

	c.HandleMessages([]net.Message{
		&PlayerActionMsg{PlayerID: 5, Action: ActionRemove},
	})
	assert.Equal(t, 1, c.PlayerCount())
}

func TestMainClientSendsInput(t *testing.T) {
	network, tr := newGameManager(t, net.RoleClient)
	c := NewMainClient(network)
	c.Start(state.ResourceSet{})

	c.Input.MoveDir = wire.Vec2{X: 1}
	c.Input.AimPos = wire.Vec3{Y: 5}
	c.Input.AddAction("fire")

	c.Update(0.016)
	msgs := decodeFrames(t, tr.take())
	require.Len(t, msgs, 1)
	in := msgs[0].(*PlayerInputMsg)
	assert.Equal(t, wire.Vec2{X: 1}, in.MoveDir)
	assert.Equal(t, wire.Vec3{Y: 5}, in.AimPos)
	assert.Equal(t, []string{"fire"}, in.Actions)

	// One-shot actions drain with the send.
	c.Update(0.016)
	msgs = decodeFrames(t, tr.take())
	require.Len(t, msgs, 1)
	assert.Nil(t, msgs[0].(*PlayerInputMsg).Actions)
}

func TestMainClientCleanup(t *testing.T) {
	network, _ := newGameManager(t, net.RoleClient)
	c := NewMainClient(network)
	c.HandleMessages([]net.Message{
		&PlayerActionMsg{PlayerID: 5, Action: ActionRegister},
		&PlayerUpdateMsg{PlayerID: 5, Alive: true},
	})

	c.Cleanup()
	assert.Zero(t, c.PlayerCount())
	_, ok := c.PlayerID()
	assert.False(t, ok)
}

func TestMainFactories(t *testing.T) {
	network, _ := newGameManager(t, net.RoleClient)
	if _, ok := MainClientFactory(network)().(*MainClient); !ok {
		t.Error("MainClientFactory did not produce a MainClient")
	}
	serverNet, _ := newGameManager(t, net.RoleServer)
	if _, ok := MainServerFactory(serverNet)().(*MainServer); !ok {
		t.Error("MainServerFactory did not produce a MainServer")
	}
}
