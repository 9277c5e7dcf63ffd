package state

// LoadHandle is one in-flight resource load. The transition machine polls
// Done once per tick and reads Result only after Done reports true.
type LoadHandle interface {
	Done() bool
	Result() (any, error)
}

// Loader starts resource loads. Implementations wrap whatever asset
// pipeline the presentation layer has; headless hosts use NopLoader.
type Loader interface {
	Load(name, path string) LoadHandle
}

// NopLoader resolves every load instantly with the asset path itself as the
// result. The choice for server-only and test hosts, where nothing actually
// needs bytes off disk.
type NopLoader struct{}

// Load implements the Loader interface.
func (NopLoader) Load(name, path string) LoadHandle {
	return nopHandle{result: path}
}

type nopHandle struct {
	result any
}

func (h nopHandle) Done() bool            { return true }
func (h nopHandle) Result() (any, error)  { return h.result, nil }
