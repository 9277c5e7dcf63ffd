// Package game carries the arena game built on the networking core: the
// message set both peers register, and the headless Main states for the
// client and server sides of a match.
package game

import (
	"fmt"

	"github.com/lcx/arena/net"
	"github.com/lcx/arena/wire"
)

// PlayerAction discriminates the control messages the server sends about a
// player.
type PlayerAction byte

const (
	// ActionRegister tells a client which player id is theirs.
	ActionRegister PlayerAction = iota
	// ActionRemove announces a player left the match.
	ActionRemove
	// ActionFire announces a player fired a projectile.
	ActionFire

	actionEnd
)

func (a PlayerAction) String() string {
	switch a {
	case ActionRegister:
		return "register"
	case ActionRemove:
		return "remove"
	case ActionFire:
		return "fire"
	}
	return fmt.Sprintf("PlayerAction(%d)", byte(a))
}

// PlayerInputMsg is the client's per-tick input sample: movement direction,
// aim point, and any one-shot actions since the last tick. Vectors travel at
// half precision; input does not need more.
type PlayerInputMsg struct {
	net.MsgBase
	MoveDir wire.Vec2
	AimPos  wire.Vec3
	Actions []string
}

// EncodePayload implements the net.Message interface.
func (m *PlayerInputMsg) EncodePayload(enc *wire.Encoder) {
	enc.WriteVec2Half(m.MoveDir)
	enc.WriteVec3Half(m.AimPos)
	enc.WriteStringList(m.Actions)
}

// DecodePayload implements the net.Message interface.
func (m *PlayerInputMsg) DecodePayload(dec *wire.Decoder) error {
	var err error
	if m.MoveDir, err = dec.ReadVec2Half(); err != nil {
		return err
	}
	if m.AimPos, err = dec.ReadVec3Half(); err != nil {
		return err
	}
	if m.Actions, err = dec.ReadStringList(); err != nil {
		return err
	}
	return nil
}

// PlayerUpdateMsg is the server's per-tick snapshot of one player.
type PlayerUpdateMsg struct {
	net.MsgBase
	PlayerID int32
	Position wire.Vec3
	HPR      wire.Vec3
	Alive    bool
}

// EncodePayload implements the net.Message interface.
func (m *PlayerUpdateMsg) EncodePayload(enc *wire.Encoder) {
	enc.WriteInt32(m.PlayerID)
	enc.WriteVec3Half(m.Position)
	enc.WriteVec3Half(m.HPR)
	enc.WriteBool(m.Alive)
}

// DecodePayload implements the net.Message interface.
func (m *PlayerUpdateMsg) DecodePayload(dec *wire.Decoder) error {
	var err error
	if m.PlayerID, err = dec.ReadInt32(); err != nil {
		return err
	}
	if m.Position, err = dec.ReadVec3Half(); err != nil {
		return err
	}
	if m.HPR, err = dec.ReadVec3Half(); err != nil {
		return err
	}
	if m.Alive, err = dec.ReadBool(); err != nil {
		return err
	}
	return nil
}

// PlayerActionMsg is a server-issued control event about one player.
type PlayerActionMsg struct {
	net.MsgBase
	PlayerID int32
	Action   PlayerAction
}

// EncodePayload implements the net.Message interface.
func (m *PlayerActionMsg) EncodePayload(enc *wire.Encoder) {
	enc.WriteInt32(m.PlayerID)
	enc.WriteByte(byte(m.Action))
}

// DecodePayload implements the net.Message interface.
func (m *PlayerActionMsg) DecodePayload(dec *wire.Decoder) error {
	var err error
	if m.PlayerID, err = dec.ReadInt32(); err != nil {
		return err
	}
	b, err := dec.ReadByte()
	if err != nil {
		return err
	}
	if b >= byte(actionEnd) {
		return fmt.Errorf("invalid player action discriminant %d", b)
	}
	m.Action = PlayerAction(b)
	return nil
}

// RegisterMessages registers the game's message set. Both peers must call
// this and nothing else before Start; the order here is the wire schema.
func RegisterMessages(m *net.NetworkManager) error {
	return m.RegisterMessageTypes(
		&PlayerInputMsg{},
		&PlayerUpdateMsg{},
		&PlayerActionMsg{},
	)
}
