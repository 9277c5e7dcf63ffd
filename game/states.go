package game

import (
	"fmt"
	"math/rand"

	"github.com/lcx/arena/log"
	"github.com/lcx/arena/net"
	"github.com/lcx/arena/state"
	"github.com/lcx/arena/wire"
)

const (
	numBots    = 1
	botIDStart = 1000
)

// PlayerInput is the client's live input sample. The hosting application
// (or a bot driver in tests) mutates it between ticks; MainClient ships it
// every update.
type PlayerInput struct {
	MoveDir wire.Vec2
	AimPos  wire.Vec3
	actions []string
}

// AddAction queues a one-shot action ("fire") for the next input message.
func (i *PlayerInput) AddAction(name string) {
	i.actions = append(i.actions, name)
}

func (i *PlayerInput) takeActions() []string {
	a := i.actions
	i.actions = nil
	return a
}

// remotePlayer is the client's mirror of one server-side player.
type remotePlayer struct {
	pos   wire.Vec3
	hpr   wire.Vec3
	alive bool
}

// MainClient is the client side of a match: it mirrors the player table
// from server updates and ships an input sample every tick. Everything
// visual stays in the presentation layer; this state only owns the data
// those visuals read.
type MainClient struct {
	network *net.NetworkManager

	// Input is exposed for the hosting application to write into.
	Input PlayerInput

	playerID int32
	hasID    bool
	players  map[int32]*remotePlayer
}

// NewMainClient creates the client match state.
func NewMainClient(network *net.NetworkManager) *MainClient {
	return &MainClient{
		network: network,
		players: make(map[int32]*remotePlayer),
	}
}

// MainClientFactory adapts NewMainClient to the state factory contract.
func MainClientFactory(network *net.NetworkManager) state.Factory {
	return func(args ...any) state.State {
		return NewMainClient(network)
	}
}

// Resources implements the state.State interface.
func (c *MainClient) Resources() map[string]string {
	return map[string]string{
		"level":      "levels/testenv.bam",
		"player":     "characters/skeleton.bam",
		"animations": "animations/animations.bam",
	}
}

// Start implements the state.State interface.
func (c *MainClient) Start(loaded state.ResourceSet) {}

// PlayerID returns the id the server registered for this client, if any.
func (c *MainClient) PlayerID() (int32, bool) {
	return c.playerID, c.hasID
}

// PlayerCount returns how many players the client currently mirrors.
func (c *MainClient) PlayerCount() int {
	return len(c.players)
}

// HandleMessages implements the state.State interface.
func (c *MainClient) HandleMessages(msgs []net.Message) {
	for _, raw := range msgs {
		switch msg := raw.(type) {
		case *PlayerActionMsg:
			switch msg.Action {
			case ActionRegister:
				c.playerID = msg.PlayerID
				c.hasID = true
			case ActionRemove:
				delete(c.players, msg.PlayerID)
			case ActionFire:
				// Projectile visuals belong to the presentation layer.
			default:
				log.Warn().Str("action", msg.Action.String()).Msg("unknown player action")
			}
		case *PlayerUpdateMsg:
			p, ok := c.players[msg.PlayerID]
			if !ok {
				p = &remotePlayer{}
				c.players[msg.PlayerID] = p
			}
			p.pos = msg.Position
			p.hpr = msg.HPR
			p.alive = msg.Alive
		default:
			log.Warn().Str("type", fmt.Sprintf("%T", raw)).Msg("unknown message type")
		}
	}
}

// Update implements the state.State interface: one input message per tick,
// draining the queued one-shot actions.
func (c *MainClient) Update(dt float64) {
	msg := &PlayerInputMsg{
		MoveDir: c.Input.MoveDir,
		AimPos:  c.Input.AimPos,
		Actions: c.Input.takeActions(),
	}
	if err := c.network.Send(msg, net.RoleClient); err != nil {
		log.Warn().Err(err).Msg("sending player input")
	}
}

// Cleanup implements the state.State interface.
func (c *MainClient) Cleanup() {
	c.players = make(map[int32]*remotePlayer)
	c.hasID = false
}

// MainServer is the authoritative side of a match: the player table keyed
// by connection id, the wandering bots, projectile flight and hits, and the
// per-tick state broadcast.
type MainServer struct {
	network *net.NetworkManager

	level       *Level
	players     map[int32]*playerController
	bots        map[int32]*aiController
	projectiles []*projectile
	rng         *rand.Rand
}

// NewMainServer creates the server match state.
func NewMainServer(network *net.NetworkManager) *MainServer {
	return &MainServer{
		network: network,
		players: make(map[int32]*playerController),
		bots:    make(map[int32]*aiController),
		rng:     rand.New(rand.NewSource(rand.Int63())),
	}
}

// MainServerFactory adapts NewMainServer to the state factory contract.
func MainServerFactory(network *net.NetworkManager) state.Factory {
	return func(args ...any) state.State {
		return NewMainServer(network)
	}
}

// Resources implements the state.State interface.
func (s *MainServer) Resources() map[string]string {
	return map[string]string{
		"level": "levels/testenv.bam",
	}
}

// Start implements the state.State interface.
func (s *MainServer) Start(loaded state.ResourceSet) {
	s.level = NewLevel()
	for i := 0; i < numBots; i++ {
		botID := int32(botIDStart + i)
		s.addNewPlayer(botID)
		s.bots[botID] = newAIController(botID, s.rng)
	}
}

// PlayerCount returns how many players (bots included) the server tracks.
func (s *MainServer) PlayerCount() int {
	return len(s.players)
}

func (s *MainServer) addNewPlayer(playerID int32) {
	s.players[playerID] = newPlayerController(playerID)

	if playerID < botIDStart {
		msg := &PlayerActionMsg{PlayerID: playerID, Action: ActionRegister}
		msg.SetConnectionID(int(playerID))
		if err := s.network.Send(msg, net.RoleServer); err != nil {
			log.Warn().Int32("playerID", playerID).Err(err).Msg("sending player registration")
		}
	}
}

func (s *MainServer) removePlayer(playerID int32) {
	if _, ok := s.players[playerID]; !ok {
		return
	}
	delete(s.players, playerID)
	msg := &PlayerActionMsg{PlayerID: playerID, Action: ActionRemove}
	if err := s.network.Send(msg, net.RoleServer); err != nil {
		log.Warn().Int32("playerID", playerID).Err(err).Msg("sending player removal")
	}
}

func (s *MainServer) spawnProjectile(playerID int32) {
	s.projectiles = append(s.projectiles, newProjectile(playerID, s.players[playerID]))
	msg := &PlayerActionMsg{PlayerID: playerID, Action: ActionFire}
	if err := s.network.Send(msg, net.RoleServer); err != nil {
		log.Warn().Int32("playerID", playerID).Err(err).Msg("sending fire event")
	}
}

// HandleMessages implements the state.State interface.
func (s *MainServer) HandleMessages(msgs []net.Message) {
	for _, raw := range msgs {
		switch msg := raw.(type) {
		case *PlayerInputMsg:
			connID, ok := msg.ConnectionID()
			if !ok {
				log.Warn().Msg("player input without a connection id")
				continue
			}
			playerID := int32(connID)
			if _, known := s.players[playerID]; !known {
				s.addNewPlayer(playerID)
			}
			p := s.players[playerID]
			p.updateMoveAim(msg.MoveDir, msg.AimPos)
			if p.alive && containsAction(msg.Actions, "fire") {
				s.spawnProjectile(playerID)
			}
		default:
			log.Warn().Str("type", fmt.Sprintf("%T", raw)).Msg("unknown message type")
		}
	}
}

// HandleDisconnect implements the state.DisconnectHandler interface.
func (s *MainServer) HandleDisconnect(connID int) {
	s.removePlayer(int32(connID))
}

// Update implements the state.State interface.
func (s *MainServer) Update(dt float64) {
	// Projectile flight and hits. A projectile never hurts its owner.
	live := s.projectiles[:0]
	for _, pr := range s.projectiles {
		pr.update(dt)
		for _, p := range s.players {
			if !p.alive || p.id == pr.forPlayer || pr.done {
				continue
			}
			if pr.hits(p) {
				p.health -= projectileDamage
				pr.done = true
			}
		}
		if !pr.done {
			live = append(live, pr)
		}
	}
	s.projectiles = live

	for botID, ai := range s.bots {
		ai.update(dt)
		p := s.players[botID]
		p.moveDir = ai.moveDir
		p.aimPos = ai.aimPos
	}

	for playerID, p := range s.players {
		if !p.alive {
			p.spawn(s.level.PlayerStarts[s.rng.Intn(len(s.level.PlayerStarts))])
		}
		p.update(dt)

		msg := &PlayerUpdateMsg{
			PlayerID: playerID,
			Position: p.pos,
			HPR:      p.hpr,
			Alive:    p.alive,
		}
		if err := s.network.Send(msg, net.RoleServer); err != nil {
			log.Warn().Int32("playerID", playerID).Err(err).Msg("broadcasting player update")
		}
	}
}

// Cleanup implements the state.State interface.
func (s *MainServer) Cleanup() {
	s.players = make(map[int32]*playerController)
	s.bots = make(map[int32]*aiController)
	s.projectiles = nil
}

func containsAction(actions []string, name string) bool {
	for _, a := range actions {
		if a == name {
			return true
		}
	}
	return false
}
