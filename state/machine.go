package state

import (
	"errors"
	"fmt"

	"github.com/lcx/arena/log"
	"github.com/lcx/arena/metrics"
	"github.com/lcx/arena/net"
)

var (
	ErrUnknownState         = errors.New("state name is not registered")
	ErrTransitionInProgress = errors.New("a state transition is already in flight")
	ErrNoPreviousState      = errors.New("no previous state to return to")
)

// Transition phases. A machine not in phaseActive (and not phaseIdle before
// the first Change) has a transition in flight and gates Update and message
// dispatch.
type phase int

const (
	phaseIdle phase = iota
	phaseFadingOut
	phaseLoading
	phaseFadingIn
	phaseActive
)

type pendingLoad struct {
	name   string
	handle LoadHandle
}

// StateMachine owns exactly one current state and drives transitions
// between registered states: synchronous teardown of the outgoing state,
// then fade-out, manifest loading, Start, and fade-in, each advanced by
// per-tick Update polls. A second Change while a transition is in flight is
// rejected with ErrTransitionInProgress.
//
// Not safe for concurrent use; everything runs on the tick goroutine.
type StateMachine struct {
	factories map[string]Factory
	loader    Loader
	fader     Fader

	current      State
	currentName  string
	previousName string
	loadComplete bool

	phase   phase
	pending []pendingLoad
	loaded  ResourceSet
}

// MachineOption customizes a StateMachine.
type MachineOption func(*StateMachine)

// WithLoader attaches an asset loader. Defaults to NopLoader.
func WithLoader(l Loader) MachineOption {
	return func(m *StateMachine) { m.loader = l }
}

// WithFader attaches a visual transition gate. Without one, fades are
// skipped entirely.
func WithFader(f Fader) MachineOption {
	return func(m *StateMachine) { m.fader = f }
}

// NewStateMachine creates an empty machine with no current state.
func NewStateMachine(opts ...MachineOption) *StateMachine {
	m := &StateMachine{
		factories: make(map[string]Factory),
		loader:    NopLoader{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// RegisterState binds a name to a state factory. Registering a name twice
// is a configuration error.
func (m *StateMachine) RegisterState(name string, f Factory) error {
	if name == "" {
		return errors.New("state name cannot be empty")
	}
	if f == nil {
		return errors.New("state factory cannot be nil")
	}
	if _, dup := m.factories[name]; dup {
		return fmt.Errorf("state %q already registered", name)
	}
	m.factories[name] = f
	return nil
}

// CurrentName returns the name of the current (or transitioning-in) state.
// Empty before the first Change.
func (m *StateMachine) CurrentName() string { return m.currentName }

// PreviousName returns the name recorded by the last Change. On the very
// first transition this is the new state's own name; there was nothing
// before it, and ChangeToPrevious right after startup re-enters the same
// state rather than failing.
func (m *StateMachine) PreviousName() string { return m.previousName }

// LoadComplete reports whether the current state finished its transition
// and is receiving Update and message calls.
func (m *StateMachine) LoadComplete() bool { return m.loadComplete }

// Transitioning reports whether a Change is still in flight.
func (m *StateMachine) Transitioning() bool {
	return m.phase != phaseIdle && m.phase != phaseActive
}

// Change tears down the current state and transitions to the named one,
// constructing it with args. The transition completes asynchronously over
// subsequent Update calls; until then the machine is gated.
func (m *StateMachine) Change(name string, args ...any) error {
	factory, ok := m.factories[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownState, name)
	}
	if m.Transitioning() {
		return fmt.Errorf("%w: still entering %q", ErrTransitionInProgress, m.currentName)
	}

	bootstrap := m.current == nil
	if bootstrap {
		// There is no real previous state yet. Recording the new name keeps
		// PreviousName always valid, at the cost of ChangeToPrevious being a
		// self-transition right after startup.
		m.previousName = name
	} else {
		m.previousName = m.currentName
		m.current.Cleanup()
		m.current = nil
	}

	m.current = factory(args...)
	m.currentName = name
	m.loadComplete = false
	m.pending = nil
	m.loaded = nil

	metrics.IncrCounterWithDimGroup("state", "transition_total", 1, map[string]string{"to": name})
	log.Info().Str("from", m.previousName).Str("to", name).Msg("state transition started")

	if m.fader != nil && !bootstrap {
		m.fader.StartFadeOut()
		m.phase = phaseFadingOut
	} else {
		// Bootstrap skips the fade-out: there is nothing on screen to fade.
		m.beginLoading()
	}
	return nil
}

// ChangeToPrevious transitions back to the state recorded by the last
// Change.
func (m *StateMachine) ChangeToPrevious() error {
	if m.previousName == "" {
		return ErrNoPreviousState
	}
	return m.Change(m.previousName)
}

func (m *StateMachine) beginLoading() {
	manifest := m.current.Resources()
	m.pending = make([]pendingLoad, 0, len(manifest))
	for name, path := range manifest {
		m.pending = append(m.pending, pendingLoad{
			name:   name,
			handle: m.loader.Load(name, path),
		})
	}
	m.loaded = make(ResourceSet, len(manifest))
	m.phase = phaseLoading
	m.advanceLoading()
}

func (m *StateMachine) advanceLoading() {
	for _, p := range m.pending {
		if !p.handle.Done() {
			return
		}
	}
	for _, p := range m.pending {
		res, err := p.handle.Result()
		if err != nil {
			metrics.IncrCounterWithGroup("state", "resource_load_error_total", 1)
			log.Error().Str("resource", p.name).Err(err).Msg("resource failed to load")
			continue
		}
		m.loaded[p.name] = res
	}
	m.pending = nil

	m.current.Start(m.loaded)

	if m.fader != nil {
		m.fader.StartFadeIn()
		m.phase = phaseFadingIn
		return
	}
	m.activate()
}

func (m *StateMachine) activate() {
	m.phase = phaseActive
	m.loadComplete = true
	log.Info().Str("state", m.currentName).Msg("state active")
}

// Update advances an in-flight transition, then the current state. While
// the transition is pending this is a gated no-op for the state itself.
func (m *StateMachine) Update(dt float64) {
	switch m.phase {
	case phaseFadingOut:
		if m.fader.FadeOutDone() {
			m.beginLoading()
		}
	case phaseLoading:
		m.advanceLoading()
	case phaseFadingIn:
		if m.fader.FadeInDone() {
			m.activate()
		}
	}

	if m.loadComplete && m.current != nil {
		m.current.Update(dt)
	}
}

// HandleMessages forwards this tick's messages to the current state, unless
// the load gate is down.
func (m *StateMachine) HandleMessages(msgs []net.Message) {
	if !m.loadComplete || m.current == nil || len(msgs) == 0 {
		return
	}
	m.current.HandleMessages(msgs)
}

// HandleDisconnect forwards a lost connection to the current state if it
// cares. Gated like messages; a state still loading has no connection
// bookkeeping to correct yet.
func (m *StateMachine) HandleDisconnect(connID int) {
	if !m.loadComplete || m.current == nil {
		return
	}
	if h, ok := m.current.(DisconnectHandler); ok {
		h.HandleDisconnect(connID)
	}
}

// Shutdown tears down the current state, if any.
func (m *StateMachine) Shutdown() {
	if m.current != nil {
		m.current.Cleanup()
		m.current = nil
	}
	m.currentName = ""
	m.loadComplete = false
	m.phase = phaseIdle
}
