// Package state drives the lifecycle of named game states: registration,
// asynchronous fade/load/start transitions polled from the tick loop, and
// the composite client+server manager a combined host runs.
package state

import "github.com/lcx/arena/net"

// ResourceSet holds a state's loaded resources keyed by manifest name.
type ResourceSet map[string]any

// State is one named, swappable unit of game behavior. Exactly one state is
// current per machine; the machine is the only caller of Cleanup.
type State interface {
	// Resources declares the manifest of assets the state needs, name to
	// path. Every entry is loaded before Start runs.
	Resources() map[string]string

	// Start runs once, after every manifest entry finished loading and
	// before the first Update.
	Start(loaded ResourceSet)

	// Update advances the state by dt seconds. Not called while a
	// transition into this state is still in flight.
	Update(dt float64)

	// Cleanup releases everything the state owns. Runs synchronously when
	// the machine transitions away.
	Cleanup()

	// HandleMessages delivers this tick's inbound messages, in drain order.
	HandleMessages(msgs []net.Message)
}

// DisconnectHandler is implemented by states that care about lost
// connections. Optional; the machine checks with a type assertion.
type DisconnectHandler interface {
	HandleDisconnect(connID int)
}

// Factory constructs a state instance. The args are whatever the caller
// passed to Change.
type Factory func(args ...any) State
