package net

import "fmt"

// TCPTransportCfg carries the tunables for TCPTransport. It implements the
// config.Config contract so it can be loaded and hot-reloaded through the
// configuration manager.
type TCPTransportCfg struct {
	// SendChannelSize bounds the per-connection outbound queue. When the
	// queue is full, unicast sends fail and broadcast sends drop for that
	// connection.
	SendChannelSize uint32 `mapstructure:"sendChannelSize"`

	// MaxFrameSize bounds both outbound payloads and the body size accepted
	// from a peer. A peer announcing a larger frame is disconnected.
	MaxFrameSize int `mapstructure:"maxFrameSize"`

	// DialTimeoutMS bounds how long StartClient waits for the outbound
	// connection to establish.
	DialTimeoutMS int `mapstructure:"dialTimeoutMS"`

	// NoDelay disables Nagle batching on every connection. Game input is
	// small and latency-sensitive, so this defaults on.
	NoDelay bool `mapstructure:"noDelay"`

	// SchemaChecksum, when non-zero, enables the first-frame schema hello:
	// clients send it after connect and the server verifies it before the
	// connection is announced. Set programmatically by NetworkManager from
	// the message registry; zero disables the hello.
	SchemaChecksum uint32 `mapstructure:"-"`
}

// GetName returns the configuration name for TCPTransportCfg.
func (c *TCPTransportCfg) GetName() string {
	return "tcp_transport"
}

// Validate validates the TCPTransportCfg parameters.
func (c *TCPTransportCfg) Validate() error {
	if c.SendChannelSize == 0 {
		return fmt.Errorf("SendChannelSize must be positive")
	}
	if c.MaxFrameSize <= 0 {
		return fmt.Errorf("MaxFrameSize must be positive")
	}
	if c.DialTimeoutMS <= 0 {
		return fmt.Errorf("DialTimeoutMS must be positive")
	}
	return nil
}

func defaultTCPTransportCfg() *TCPTransportCfg {
	return &TCPTransportCfg{
		SendChannelSize: 256,
		MaxFrameSize:    64 * 1024,
		DialTimeoutMS:   3000,
		NoDelay:         true,
	}
}

// TransportFactory builds a transport instance. NetworkManager uses one
// factory per role so tests can substitute an in-memory transport.
type TransportFactory func() Transport
