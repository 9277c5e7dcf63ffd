package net

import "github.com/lcx/arena/wire"

// Message is one game message. Implementations define their own payload
// schema against the wire encoder; the type tag, framing, and connection
// stamping are the registry's and manager's business, never the message's.
//
// Concrete message types embed MsgBase to pick up the connection id
// bookkeeping.
type Message interface {
	// EncodePayload appends the message body, excluding the type tag.
	EncodePayload(enc *wire.Encoder)

	// DecodePayload reads the message body, excluding the type tag. The
	// decoder is positioned just past the tag; a fully decoded message must
	// consume the body exactly.
	DecodePayload(dec *wire.Decoder) error

	// ConnectionID reports which connection the message arrived on. Only
	// meaningful on received messages; locally constructed messages have no
	// connection.
	ConnectionID() (int, bool)

	// SetConnectionID stamps the origin connection. Called by the manager
	// during receive; applications should not need it.
	SetConnectionID(id int)
}

// MsgBase carries the origin connection id for a received message. Embed it
// in every concrete message type.
type MsgBase struct {
	connID  int
	hasConn bool
}

// ConnectionID implements the Message interface.
func (b *MsgBase) ConnectionID() (int, bool) {
	return b.connID, b.hasConn
}

// SetConnectionID implements the Message interface.
func (b *MsgBase) SetConnectionID(id int) {
	b.connID = id
	b.hasConn = true
}
