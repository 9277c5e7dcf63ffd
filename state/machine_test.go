package state

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lcx/arena/net"
)

// recordingState logs every lifecycle call so tests can assert ordering.
type recordingState struct {
	name      string
	resources map[string]string
	calls     *[]string

	started  ResourceSet
	updates  int
	messages []net.Message
	dropped  []int
}

func newRecordingState(name string, calls *[]string) *recordingState {
	return &recordingState{name: name, calls: calls}
}

func (s *recordingState) record(what string) {
	*s.calls = append(*s.calls, s.name+"."+what)
}

func (s *recordingState) Resources() map[string]string {
	s.record("Resources")
	return s.resources
}

func (s *recordingState) Start(loaded ResourceSet) {
	s.record("Start")
	s.started = loaded
}

func (s *recordingState) Update(dt float64) {
	s.record("Update")
	s.updates++
}

func (s *recordingState) Cleanup() {
	s.record("Cleanup")
}

func (s *recordingState) HandleMessages(msgs []net.Message) {
	s.record("HandleMessages")
	s.messages = append(s.messages, msgs...)
}

func (s *recordingState) HandleDisconnect(connID int) {
	s.record("HandleDisconnect")
	s.dropped = append(s.dropped, connID)
}

// manualFader completes fades only when the test says so.
type manualFader struct {
	fadingOut, fadingIn   bool
	outDone, inDone       bool
	outStarts, inStarts   int
}

func (f *manualFader) StartFadeOut()      { f.fadingOut = true; f.outDone = false; f.outStarts++ }
func (f *manualFader) FadeOutDone() bool  { return f.outDone }
func (f *manualFader) StartFadeIn()       { f.fadingIn = true; f.inDone = false; f.inStarts++ }
func (f *manualFader) FadeInDone() bool   { return f.inDone }

// manualLoader hands out handles that finish only when released.
type manualLoader struct {
	handles map[string]*manualHandle
}

type manualHandle struct {
	done   bool
	result any
	err    error
}

func (h *manualHandle) Done() bool           { return h.done }
func (h *manualHandle) Result() (any, error) { return h.result, h.err }

func newManualLoader() *manualLoader {
	return &manualLoader{handles: make(map[string]*manualHandle)}
}

func (l *manualLoader) Load(name, path string) LoadHandle {
	h := &manualHandle{result: path}
	l.handles[name] = h
	return h
}

func (l *manualLoader) finishAll() {
	for _, h := range l.handles {
		h.done = true
	}
}

func TestRegisterState(t *testing.T) {
	m := NewStateMachine()
	var calls []string
	factory := func(args ...any) State { return newRecordingState("a", &calls) }

	require.NoError(t, m.RegisterState("A", factory))
	assert.Error(t, m.RegisterState("", factory), "empty name")
	assert.Error(t, m.RegisterState("B", nil), "nil factory")
	assert.Error(t, m.RegisterState("A", factory), "duplicate name")
}

func TestChangeUnknownState(t *testing.T) {
	m := NewStateMachine()
	err := m.Change("Nowhere")
	assert.ErrorIs(t, err, ErrUnknownState)
	assert.Empty(t, m.CurrentName())
}

func TestBootstrapChange(t *testing.T) {
	// No fader, instant loader: the first Change completes synchronously.
	m := NewStateMachine()
	var calls []string
	var st *recordingState
	require.NoError(t, m.RegisterState("Main", func(args ...any) State {
		st = newRecordingState("Main", &calls)
		st.resources = map[string]string{"level": "assets/level.bam"}
		return st
	}))

	require.NoError(t, m.Change("Main"))
	assert.Equal(t, "Main", m.CurrentName())
	// First transition records the new name as previous; there was nothing
	// before it.
	assert.Equal(t, "Main", m.PreviousName())
	assert.True(t, m.LoadComplete())
	assert.False(t, m.Transitioning())

	require.NotNil(t, st.started)
	assert.Equal(t, "assets/level.bam", st.started["level"])
	assert.Equal(t, []string{"Main.Resources", "Main.Start"}, calls)

	m.Update(0.016)
	assert.Equal(t, 1, st.updates)
}

func TestFactoryReceivesArgs(t *testing.T) {
	m := NewStateMachine()
	var got []any
	require.NoError(t, m.RegisterState("Main", func(args ...any) State {
		got = args
		var calls []string
		return newRecordingState("Main", &calls)
	}))
	require.NoError(t, m.Change("Main", 42, "hello"))
	require.Equal(t, []any{42, "hello"}, got)
}

func TestLoadGating(t *testing.T) {
	loader := newManualLoader()
	m := NewStateMachine(WithLoader(loader))
	var calls []string
	var st *recordingState
	require.NoError(t, m.RegisterState("Main", func(args ...any) State {
		st = newRecordingState("Main", &calls)
		st.resources = map[string]string{"player": "assets/player.bam"}
		return st
	}))

	require.NoError(t, m.Change("Main"))
	assert.False(t, m.LoadComplete())
	assert.True(t, m.Transitioning())

	// Everything is gated while the load is pending.
	m.Update(0.016)
	m.HandleMessages([]net.Message{nil})
	m.HandleDisconnect(1)
	assert.Zero(t, st.updates)
	assert.Empty(t, st.messages)
	assert.Empty(t, st.dropped)
	assert.Nil(t, st.started)

	loader.finishAll()
	m.Update(0.016)
	assert.True(t, m.LoadComplete())
	require.NotNil(t, st.started)
	assert.Equal(t, "assets/player.bam", st.started["player"])
	// Start ran exactly once; Update only after activation.
	assert.Equal(t, []string{"Main.Resources", "Main.Start", "Main.Update"}, calls)
}

func TestLoadErrorOmitsResource(t *testing.T) {
	loader := newManualLoader()
	m := NewStateMachine(WithLoader(loader))
	var calls []string
	var st *recordingState
	require.NoError(t, m.RegisterState("Main", func(args ...any) State {
		st = newRecordingState("Main", &calls)
		st.resources = map[string]string{
			"good": "assets/good.bam",
			"bad":  "assets/bad.bam",
		}
		return st
	}))

	require.NoError(t, m.Change("Main"))
	loader.handles["bad"].err = errors.New("file not found")
	loader.finishAll()
	m.Update(0.016)

	require.True(t, m.LoadComplete())
	assert.Contains(t, st.started, "good")
	assert.NotContains(t, st.started, "bad")
}

func TestFadeSequence(t *testing.T) {
	fader := &manualFader{}
	m := NewStateMachine(WithFader(fader))
	var calls []string
	mkFactory := func(name string) Factory {
		return func(args ...any) State { return newRecordingState(name, &calls) }
	}
	require.NoError(t, m.RegisterState("A", mkFactory("A")))
	require.NoError(t, m.RegisterState("B", mkFactory("B")))

	// Bootstrap skips the fade-out but still fades in.
	require.NoError(t, m.Change("A"))
	assert.Zero(t, fader.outStarts)
	assert.Equal(t, 1, fader.inStarts)
	assert.False(t, m.LoadComplete())

	m.Update(0.016)
	assert.False(t, m.LoadComplete(), "fade-in still running")
	fader.inDone = true
	m.Update(0.016)
	assert.True(t, m.LoadComplete())

	// A real transition fades out first; the outgoing state is cleaned up
	// synchronously in Change, before the fade.
	require.NoError(t, m.Change("B"))
	assert.Equal(t, 1, fader.outStarts)
	assert.Contains(t, calls, "A.Cleanup")

	// Mid-transition changes are rejected.
	err := m.Change("A")
	assert.ErrorIs(t, err, ErrTransitionInProgress)

	fader.outDone = true
	m.Update(0.016) // fade-out done -> load (instant) -> fade-in starts
	assert.Equal(t, 2, fader.inStarts)
	assert.False(t, m.LoadComplete())
	fader.inDone = true
	m.Update(0.016)
	assert.True(t, m.LoadComplete())
	assert.Equal(t, "B", m.CurrentName())
	assert.Equal(t, "A", m.PreviousName())
}

func TestChangeToPrevious(t *testing.T) {
	m := NewStateMachine()
	var calls []string
	count := map[string]int{}
	mkFactory := func(name string) Factory {
		return func(args ...any) State {
			count[name]++
			return newRecordingState(name, &calls)
		}
	}
	require.NoError(t, m.RegisterState("A", mkFactory("A")))
	require.NoError(t, m.RegisterState("B", mkFactory("B")))

	assert.ErrorIs(t, m.ChangeToPrevious(), ErrNoPreviousState)

	// Right after bootstrap the previous name is the current one, so this is
	// a self-transition, not an error.
	require.NoError(t, m.Change("A"))
	require.NoError(t, m.ChangeToPrevious())
	assert.Equal(t, "A", m.CurrentName())
	assert.Equal(t, 2, count["A"])

	require.NoError(t, m.Change("B"))
	require.NoError(t, m.ChangeToPrevious())
	assert.Equal(t, "A", m.CurrentName())
	assert.Equal(t, "B", m.PreviousName())
}

func TestHandleMessagesAndDisconnect(t *testing.T) {
	m := NewStateMachine()
	var calls []string
	var st *recordingState
	require.NoError(t, m.RegisterState("Main", func(args ...any) State {
		st = newRecordingState("Main", &calls)
		return st
	}))
	require.NoError(t, m.Change("Main"))

	msgs := []net.Message{nil, nil}
	m.HandleMessages(msgs)
	assert.Len(t, st.messages, 2)

	// Empty batches are not forwarded.
	m.HandleMessages(nil)
	assert.Len(t, st.messages, 2)

	m.HandleDisconnect(7)
	assert.Equal(t, []int{7}, st.dropped)
}

func TestShutdown(t *testing.T) {
	m := NewStateMachine()
	var calls []string
	require.NoError(t, m.RegisterState("Main", func(args ...any) State {
		return newRecordingState("Main", &calls)
	}))
	require.NoError(t, m.Change("Main"))
	require.True(t, m.LoadComplete())

	m.Shutdown()
	assert.Contains(t, calls, "Main.Cleanup")
	assert.Empty(t, m.CurrentName())
	assert.False(t, m.LoadComplete())

	// Idempotent.
	m.Shutdown()
}
