// Package net implements the networked message-exchange core for the arena
// game: a reliable ordered byte-stream transport with polled connection
// bookkeeping, a registration-order message registry, and the network
// manager that ties registry, serializer, and transports together for
// client, server, and combined-host processes.
package net

import "errors"

// Broadcast is the connection id passed to Send to address every currently
// live connection.
const Broadcast = -1

// Transport errors surfaced to callers. Start failures are fatal to the
// call; per-connection I/O failures degrade to disconnect events instead.
var (
	ErrAlreadyStarted     = errors.New("transport already started")
	ErrNotStarted         = errors.New("transport not started")
	ErrUnknownConnection  = errors.New("unknown or disconnected connection id")
	ErrSendChannelFull    = errors.New("connection send channel is full")
	ErrFrameTooLarge      = errors.New("frame exceeds maximum size")
)

// Inbound is one fully-received framed payload together with the id of the
// connection it arrived on.
type Inbound struct {
	ConnID int
	Data   []byte
}

// Transport is the reliable, ordered, connection-oriented byte-stream
// primitive. Implementations may run background I/O, but everything they
// learn becomes visible only through the non-blocking poll methods, which
// the owner calls once per tick from a single goroutine.
//
// Connection ids are small non-negative integers, assigned monotonically
// and never reused for the lifetime of the transport. A client's single
// outbound connection is assigned id 0 at connect time.
type Transport interface {
	// StartServer begins listening on the given port. Fails if the
	// transport was already started or the port cannot be bound.
	StartServer(port int) error

	// StartClient opens one outbound connection. Fails if the transport
	// was already started or the connection cannot be established within
	// the configured dial timeout.
	StartClient(host string, port int) error

	// PollNewConnections returns the ids assigned to connections accepted
	// since the last poll. Only a listening transport produces ids here.
	PollNewConnections() []int

	// PollDisconnects returns the ids of connections reset or closed since
	// the last poll. Each id is reported at most once and is invalid
	// afterwards.
	PollDisconnects() []int

	// DrainMessages returns all fully-received framed payloads since the
	// last drain, preserving arrival order per connection. Ordering across
	// connections is not guaranteed.
	DrainMessages() []Inbound

	// Send queues data for delivery. Broadcast addresses every live
	// connection; a specific id unicasts. Sending to an id that does not
	// exist (or was disconnected) returns ErrUnknownConnection.
	Send(data []byte, connID int) error

	// Port returns the bound local port, useful when the transport was
	// started on port 0.
	Port() int

	// Stop closes the listener and every live connection.
	Stop() error
}
