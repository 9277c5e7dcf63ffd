package net

import (
	"errors"
	"fmt"

	"github.com/lcx/arena/log"
	"github.com/lcx/arena/metrics"
)

// NetRole says which side(s) of the wire a process plays. Dual is the
// bitwise union of client and server: one process hosting a match while
// also playing in it.
type NetRole int

const (
	RoleClient NetRole = 1 << iota
	RoleServer
	RoleDual = RoleClient | RoleServer
)

// Valid reports whether the role is one of the three defined values.
func (r NetRole) Valid() bool {
	return r == RoleClient || r == RoleServer || r == RoleDual
}

// IsClient reports whether the role includes the client side.
func (r NetRole) IsClient() bool { return r&RoleClient != 0 }

// IsServer reports whether the role includes the server side.
func (r NetRole) IsServer() bool { return r&RoleServer != 0 }

func (r NetRole) String() string {
	switch r {
	case RoleClient:
		return "client"
	case RoleServer:
		return "server"
	case RoleDual:
		return "dual"
	}
	return fmt.Sprintf("NetRole(%d)", int(r))
}

var (
	ErrInvalidRole   = errors.New("invalid network role")
	ErrAmbiguousRole = errors.New("dual-role manager requires an explicit client or server target")
	ErrRoleMismatch  = errors.New("target role is not active on this manager")
)

// schemaChecksummer is implemented by transports that verify the peer's
// message registry at connect time.
type schemaChecksummer interface {
	SetSchemaChecksum(sum uint32)
}

// NetworkManager is the application's single point of contact for the
// network: it owns the message registry, one or two transports depending on
// role, and the connect/disconnect hooks. Role is fixed for the lifetime of
// the instance.
//
// Register every message type, then Start, then drive Update once per tick.
// All methods belong to the tick goroutine.
type NetworkManager struct {
	role     NetRole
	registry *Registry

	client Transport
	server Transport

	factory     TransportFactory
	recvLimiter *RecvLimiter
	pacer       *SendPacer

	newConnHandler    func(connID int)
	disconnectHandler func(role NetRole, connID int)

	started bool
}

// ManagerOption customizes a NetworkManager.
type ManagerOption func(*NetworkManager)

// WithTransportFactory substitutes the transport constructor, mainly so
// tests can plug an in-memory transport.
func WithTransportFactory(f TransportFactory) ManagerOption {
	return func(m *NetworkManager) { m.factory = f }
}

// WithRecvLimiter bounds the inbound message rate. Messages beyond the
// bucket are dropped and counted, not queued.
func WithRecvLimiter(l *RecvLimiter) ManagerOption {
	return func(m *NetworkManager) { m.recvLimiter = l }
}

// WithSendPacer smooths outbound sends to a fixed ceiling.
func WithSendPacer(p *SendPacer) ManagerOption {
	return func(m *NetworkManager) { m.pacer = p }
}

// NewNetworkManager creates a manager for the given role. Transports are
// created but not started; call RegisterMessageTypes then Start.
func NewNetworkManager(role NetRole, opts ...ManagerOption) (*NetworkManager, error) {
	if !role.Valid() {
		return nil, ErrInvalidRole
	}

	m := &NetworkManager{
		role:     role,
		registry: NewRegistry(),
		factory:  func() Transport { return NewTCPTransport() },
	}
	for _, opt := range opts {
		opt(m)
	}

	if role.IsServer() {
		m.server = m.factory()
	}
	if role.IsClient() {
		m.client = m.factory()
	}
	return m, nil
}

// RegisterMessageTypes appends message prototypes to the registry in call
// order. Both peers must make identical calls; the registration order is the
// wire schema. Must complete before Start.
func (m *NetworkManager) RegisterMessageTypes(protos ...Message) error {
	if m.started {
		return errors.New("cannot register message types after Start")
	}
	return m.registry.Register(protos...)
}

// Start brings the transports up. A server role listens on port; a client
// role dials host:port. Dual starts the server first, then connects its own
// client to it, so a host process is always its own first peer.
func (m *NetworkManager) Start(host string, port int) error {
	if m.started {
		return ErrAlreadyStarted
	}

	sum := m.registry.Checksum()
	if m.server != nil {
		if cs, ok := m.server.(schemaChecksummer); ok {
			cs.SetSchemaChecksum(sum)
		}
		if err := m.server.StartServer(port); err != nil {
			return fmt.Errorf("start server: %w", err)
		}
	}
	if m.client != nil {
		if cs, ok := m.client.(schemaChecksummer); ok {
			cs.SetSchemaChecksum(sum)
		}
		dialPort := port
		if m.server != nil {
			// Covers port 0: dial whatever the listener actually bound.
			dialPort = m.server.Port()
		}
		if err := m.client.StartClient(host, dialPort); err != nil {
			if m.server != nil {
				_ = m.server.Stop()
			}
			return fmt.Errorf("start client: %w", err)
		}
	}

	m.started = true
	log.Info().
		Str("role", m.role.String()).
		Str("host", host).
		Int("port", port).
		Uint32("schemaChecksum", sum).
		Msg("network manager started")
	return nil
}

// Stop shuts down every transport this manager started.
func (m *NetworkManager) Stop() error {
	var firstErr error
	if m.client != nil {
		if err := m.client.Stop(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if m.server != nil {
		if err := m.server.Stop(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Role returns the manager's fixed role.
func (m *NetworkManager) Role() NetRole {
	return m.role
}

// ServerPort returns the bound listening port, useful after starting on
// port 0. Zero when no server side is active.
func (m *NetworkManager) ServerPort() int {
	if m.server == nil {
		return 0
	}
	return m.server.Port()
}

// OnNewConnection installs the hook invoked from Update for every
// connection the server side accepts.
func (m *NetworkManager) OnNewConnection(fn func(connID int)) {
	m.newConnHandler = fn
}

// OnDisconnect installs the hook invoked from Update for every lost
// connection, tagged with the side that lost it.
func (m *NetworkManager) OnDisconnect(fn func(role NetRole, connID int)) {
	m.disconnectHandler = fn
}

// resolveTransport maps a caller's target role onto one transport. A dual
// manager demands an explicit side; a single-role manager accepts its own
// role, or RoleDual as a wildcard meaning "my one role".
func (m *NetworkManager) resolveTransport(role NetRole) (Transport, error) {
	if !role.Valid() {
		return nil, ErrInvalidRole
	}
	if m.role == RoleDual {
		switch role {
		case RoleClient:
			return m.client, nil
		case RoleServer:
			return m.server, nil
		default:
			return nil, ErrAmbiguousRole
		}
	}
	if role != RoleDual && role != m.role {
		return nil, ErrRoleMismatch
	}
	if m.role == RoleServer {
		return m.server, nil
	}
	return m.client, nil
}

// Send serializes the message, prepends its type tag, and routes it through
// the transport for the target role. A message stamped with a connection id
// unicasts to that connection when sent through the server side; everything
// else broadcasts.
func (m *NetworkManager) Send(msg Message, role NetRole) error {
	tr, err := m.resolveTransport(role)
	if err != nil {
		return err
	}

	data, err := m.registry.Encode(msg)
	if err != nil {
		return err
	}

	target := Broadcast
	if id, ok := msg.ConnectionID(); ok && tr == m.server {
		target = id
	}

	if m.pacer != nil {
		m.pacer.Take()
	}
	return tr.Send(data, target)
}

// GetMessages drains the resolved transport, decodes each frame, stamps the
// sender's connection id, and returns the messages in drain order. Corrupt
// frames are logged, counted, and dropped; the connection stays open.
func (m *NetworkManager) GetMessages(role NetRole) ([]Message, error) {
	tr, err := m.resolveTransport(role)
	if err != nil {
		return nil, err
	}

	inbound := tr.DrainMessages()
	if len(inbound) == 0 {
		return nil, nil
	}

	msgs := make([]Message, 0, len(inbound))
	for _, in := range inbound {
		if m.recvLimiter != nil && !m.recvLimiter.Allow() {
			metrics.IncrCounterWithDimGroup("net", "frame_drop_total", 1, map[string]string{"reason": "recv_limit"})
			continue
		}
		msg, err := m.registry.Decode(in.Data)
		if err != nil {
			metrics.IncrCounterWithGroup("net", "decode_error_total", 1)
			log.Warn().Int("connID", in.ConnID).Err(err).Msg("dropping undecodable message")
			continue
		}
		msg.SetConnectionID(in.ConnID)
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

// Update polls both transports for connection events and invokes the hooks
// synchronously before returning. New connections are dispatched before
// disconnects, and both before any message drain in the same tick, so a
// handler never sees traffic from a peer it was not told about.
func (m *NetworkManager) Update() {
	if m.server != nil {
		for _, id := range m.server.PollNewConnections() {
			log.Debug().Int("connID", id).Msg("new connection")
			if m.newConnHandler != nil {
				m.newConnHandler(id)
			}
		}
	}

	if m.server != nil {
		for _, id := range m.server.PollDisconnects() {
			log.Debug().Int("connID", id).Msg("connection lost")
			if m.disconnectHandler != nil {
				m.disconnectHandler(RoleServer, id)
			}
		}
	}
	if m.client != nil {
		for _, id := range m.client.PollDisconnects() {
			log.Debug().Int("connID", id).Msg("server connection lost")
			if m.disconnectHandler != nil {
				m.disconnectHandler(RoleClient, id)
			}
		}
	}
}
