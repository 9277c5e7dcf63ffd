package state

// Fader is the visual transition gate. A machine with a fader plays
// fade-to-opaque before tearing into the load and fade-to-clear after the
// new state starts; a machine without one skips straight through. Both
// waits are polled, never blocked on.
type Fader interface {
	StartFadeOut()
	FadeOutDone() bool
	StartFadeIn()
	FadeInDone() bool
}
