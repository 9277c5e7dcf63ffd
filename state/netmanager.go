package state

import (
	"fmt"

	"github.com/lcx/arena/log"
	"github.com/lcx/arena/net"
)

// NetworkStateManager composes up to two independent state machines, one
// per side of the network role, over one NetworkManager. A dual host runs
// both: the server machine simulates the match while the client machine
// plays in it, each seeing only its own side's message stream.
//
// Change transitions both machines together; updates, gating, and
// previous-state memory stay fully independent per machine.
type NetworkStateManager struct {
	network *net.NetworkManager
	client  *StateMachine
	server  *StateMachine
}

// NetworkStateManagerOption customizes the composite manager.
type NetworkStateManagerOption func(*NetworkStateManager)

// WithClientMachineOptions forwards machine options (loader, fader) to the
// client-side machine. The server machine always runs faceless with the
// no-op loader.
func WithClientMachineOptions(opts ...MachineOption) NetworkStateManagerOption {
	return func(n *NetworkStateManager) {
		if n.client != nil {
			for _, opt := range opts {
				opt(n.client)
			}
		}
	}
}

// NewNetworkStateManager builds the machines the network manager's role
// calls for and wires disconnects through to them.
func NewNetworkStateManager(network *net.NetworkManager, opts ...NetworkStateManagerOption) *NetworkStateManager {
	n := &NetworkStateManager{network: network}
	if network.Role().IsClient() {
		n.client = NewStateMachine()
	}
	if network.Role().IsServer() {
		n.server = NewStateMachine()
	}
	for _, opt := range opts {
		opt(n)
	}

	network.OnDisconnect(func(role net.NetRole, connID int) {
		switch role {
		case net.RoleServer:
			if n.server != nil {
				n.server.HandleDisconnect(connID)
			}
		case net.RoleClient:
			if n.client != nil {
				n.client.HandleDisconnect(connID)
			}
		}
	})
	return n
}

// Network returns the underlying network manager.
func (n *NetworkStateManager) Network() *net.NetworkManager {
	return n.network
}

// RegisterClientState registers a state on the client-side machine. An
// error on a server-only manager: there is no client machine to hold it.
func (n *NetworkStateManager) RegisterClientState(name string, f Factory) error {
	if n.client == nil {
		return fmt.Errorf("no client-side machine on a %s manager", n.network.Role())
	}
	return n.client.RegisterState(name, f)
}

// RegisterServerState registers a state on the server-side machine.
func (n *NetworkStateManager) RegisterServerState(name string, f Factory) error {
	if n.server == nil {
		return fmt.Errorf("no server-side machine on a %s manager", n.network.Role())
	}
	return n.server.RegisterState(name, f)
}

// machines iterates the sides this manager runs, server first, matching
// the Update order.
func (n *NetworkStateManager) machines() []struct {
	side string
	m    *StateMachine
} {
	return []struct {
		side string
		m    *StateMachine
	}{
		{"server", n.server},
		{"client", n.client},
	}
}

// Change transitions every machine this manager runs to the named state.
// Registration and phase are checked on every machine before any of them
// transitions, so a rejected Change leaves all machines where they were.
func (n *NetworkStateManager) Change(name string, args ...any) error {
	for _, e := range n.machines() {
		if e.m == nil {
			continue
		}
		if _, ok := e.m.factories[name]; !ok {
			return fmt.Errorf("%s machine: %w: %q", e.side, ErrUnknownState, name)
		}
		if e.m.Transitioning() {
			return fmt.Errorf("%s machine: %w: still entering %q", e.side, ErrTransitionInProgress, e.m.currentName)
		}
	}
	for _, e := range n.machines() {
		if e.m == nil {
			continue
		}
		if err := e.m.Change(name, args...); err != nil {
			return fmt.Errorf("%s machine: %w", e.side, err)
		}
	}
	return nil
}

// ChangeToPrevious transitions every machine back to its own recorded
// previous state. Validated across all machines up front, like Change.
func (n *NetworkStateManager) ChangeToPrevious() error {
	for _, e := range n.machines() {
		if e.m == nil {
			continue
		}
		if e.m.previousName == "" {
			return fmt.Errorf("%s machine: %w", e.side, ErrNoPreviousState)
		}
		if e.m.Transitioning() {
			return fmt.Errorf("%s machine: %w: still entering %q", e.side, ErrTransitionInProgress, e.m.currentName)
		}
	}
	for _, e := range n.machines() {
		if e.m == nil {
			continue
		}
		if err := e.m.ChangeToPrevious(); err != nil {
			return fmt.Errorf("%s machine: %w", e.side, err)
		}
	}
	return nil
}

// Update runs one tick: connection events first, then each side's message
// dispatch, then each machine's own update. Message delivery to a machine
// mid-transition is swallowed by its load gate.
func (n *NetworkStateManager) Update(dt float64) {
	n.network.Update()

	if n.server != nil {
		msgs, err := n.network.GetMessages(net.RoleServer)
		if err != nil {
			log.Error().Err(err).Msg("draining server-side messages")
		}
		n.server.HandleMessages(msgs)
	}
	if n.client != nil {
		msgs, err := n.network.GetMessages(net.RoleClient)
		if err != nil {
			log.Error().Err(err).Msg("draining client-side messages")
		}
		n.client.HandleMessages(msgs)
	}

	if n.server != nil {
		n.server.Update(dt)
	}
	if n.client != nil {
		n.client.Update(dt)
	}
}

// Shutdown tears down both machines and stops the network.
func (n *NetworkStateManager) Shutdown() {
	if n.server != nil {
		n.server.Shutdown()
	}
	if n.client != nil {
		n.client.Shutdown()
	}
	if err := n.network.Stop(); err != nil {
		log.Warn().Err(err).Msg("network stop")
	}
}
