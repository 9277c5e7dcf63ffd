// Package discovery registers a listening match server with consul so LAN
// clients can find games without typing addresses. Purely additive: a host
// without a consul agent plays exactly the same over host:port.
package discovery

import (
	"fmt"
	"time"

	capi "github.com/hashicorp/consul/api"

	"github.com/lcx/arena/log"
)

// Cfg configures match registration.
type Cfg struct {
	// Enabled turns registration on. Off by default; direct connections
	// never need it.
	Enabled bool `mapstructure:"enabled"`

	// Address is the consul agent address. Empty uses the library default
	// (127.0.0.1:8500 or CONSUL_HTTP_ADDR).
	Address string `mapstructure:"address"`

	// ServiceName is the consul service to register under.
	ServiceName string `mapstructure:"serviceName"`

	// AdvertiseHost is the address clients should dial. Required when
	// enabled; the process cannot guess which interface peers can reach.
	AdvertiseHost string `mapstructure:"advertiseHost"`

	// CheckIntervalSec is the TCP health check interval.
	CheckIntervalSec int `mapstructure:"checkIntervalSec"`
}

// GetName returns the configuration name for Cfg.
func (c *Cfg) GetName() string {
	return "discovery"
}

// Validate validates the Cfg parameters.
func (c *Cfg) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.ServiceName == "" {
		return fmt.Errorf("serviceName must be set when discovery is enabled")
	}
	if c.AdvertiseHost == "" {
		return fmt.Errorf("advertiseHost must be set when discovery is enabled")
	}
	if c.CheckIntervalSec <= 0 {
		return fmt.Errorf("checkIntervalSec must be positive")
	}
	return nil
}

// DefaultCfg returns the registration defaults.
func DefaultCfg() *Cfg {
	return &Cfg{
		ServiceName:      "arena-match",
		CheckIntervalSec: 10,
	}
}

// Registrar announces one match server to consul and withdraws it on
// shutdown.
type Registrar struct {
	client    *capi.Client
	cfg       *Cfg
	serviceID string
}

// NewRegistrar connects to the consul agent. Fails fast when the agent is
// unreachable so a misconfigured host finds out at startup, not mid-match.
func NewRegistrar(cfg *Cfg) (*Registrar, error) {
	apiCfg := capi.DefaultConfig()
	if cfg.Address != "" {
		apiCfg.Address = cfg.Address
	}
	client, err := capi.NewClient(apiCfg)
	if err != nil {
		return nil, fmt.Errorf("consul client: %w", err)
	}
	return &Registrar{client: client, cfg: cfg}, nil
}

// Register announces the match server listening on port, with a TCP health
// check against the advertised address.
func (r *Registrar) Register(port int) error {
	r.serviceID = fmt.Sprintf("%s-%s-%d", r.cfg.ServiceName, r.cfg.AdvertiseHost, port)

	reg := &capi.AgentServiceRegistration{
		ID:      r.serviceID,
		Name:    r.cfg.ServiceName,
		Address: r.cfg.AdvertiseHost,
		Port:    port,
		Tags:    []string{"arena"},
		Check: &capi.AgentServiceCheck{
			TCP:                            fmt.Sprintf("%s:%d", r.cfg.AdvertiseHost, port),
			Interval:                       (time.Duration(r.cfg.CheckIntervalSec) * time.Second).String(),
			DeregisterCriticalServiceAfter: "1m",
		},
	}

	if err := r.client.Agent().ServiceRegister(reg); err != nil {
		return fmt.Errorf("register service: %w", err)
	}
	log.Info().Str("serviceID", r.serviceID).Int("port", port).Msg("match server registered")
	return nil
}

// Deregister withdraws the registration.
func (r *Registrar) Deregister() error {
	if r.serviceID == "" {
		return nil
	}
	if err := r.client.Agent().ServiceDeregister(r.serviceID); err != nil {
		return fmt.Errorf("deregister service: %w", err)
	}
	log.Info().Str("serviceID", r.serviceID).Msg("match server deregistered")
	return nil
}

// FindMatches lists healthy registered match servers, as host:port strings.
func (r *Registrar) FindMatches() ([]string, error) {
	entries, _, err := r.client.Health().Service(r.cfg.ServiceName, "", true, nil)
	if err != nil {
		return nil, fmt.Errorf("query service: %w", err)
	}
	addrs := make([]string, 0, len(entries))
	for _, e := range entries {
		host := e.Service.Address
		if host == "" {
			host = e.Node.Address
		}
		addrs = append(addrs, fmt.Sprintf("%s:%d", host, e.Service.Port))
	}
	return addrs, nil
}
