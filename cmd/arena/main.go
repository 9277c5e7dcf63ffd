// Command arena runs the multiplayer arena: a combined host by default, a
// bare client with "join", or a faceless server with "host".
//
//	arena [dual|join|host] [host] [port]
package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/lcx/arena/config"
	"github.com/lcx/arena/discovery"
	"github.com/lcx/arena/game"
	"github.com/lcx/arena/log"
	"github.com/lcx/arena/metrics"
	"github.com/lcx/arena/net"
	"github.com/lcx/arena/state"
)

const tickRate = 60

// arenaCfg is the host process configuration.
type arenaCfg struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	MetricsAddr string `mapstructure:"metricsAddr"`
}

func (c *arenaCfg) GetName() string {
	return "arena"
}

func (c *arenaCfg) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	return nil
}

func defaultArenaCfg() *arenaCfg {
	return &arenaCfg{
		Host:        "localhost",
		Port:        8080,
		MetricsAddr: ":9100",
	}
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string) error {
	role := net.RoleDual
	if len(args) > 0 {
		switch args[0] {
		case "dual":
		case "join":
			role = net.RoleClient
		case "host":
			role = net.RoleServer
		default:
			return fmt.Errorf("unknown role %q (want dual, join, or host)", args[0])
		}
	}

	cm := config.GetInstance()
	cm.SetBasePath("./configs")

	cfg := defaultArenaCfg()
	if err := cm.LoadConfig("arena", cfg); err != nil {
		// Missing config file is fine; the defaults carry a LAN game.
		cfg = defaultArenaCfg()
	}
	if len(args) > 1 {
		cfg.Host = args[1]
	}
	if len(args) > 2 {
		port, err := strconv.Atoi(args[2])
		if err != nil {
			return fmt.Errorf("invalid port %q: %w", args[2], err)
		}
		cfg.Port = port
	}

	if err := log.Initialize(); err != nil {
		log.Warn().Err(err).Msg("logger config unavailable, using defaults")
	}

	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		go func() {
			if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
				log.Warn().Str("addr", cfg.MetricsAddr).Err(err).Msg("metrics endpoint failed")
			}
		}()
	}

	network, err := net.NewNetworkManager(role)
	if err != nil {
		return err
	}
	if err := game.RegisterMessages(network); err != nil {
		return err
	}
	if err := network.Start(cfg.Host, cfg.Port); err != nil {
		return err
	}

	manager := state.NewNetworkStateManager(network)
	if role.IsClient() {
		if err := manager.RegisterClientState("Main", game.MainClientFactory(network)); err != nil {
			return err
		}
	}
	if role.IsServer() {
		if err := manager.RegisterServerState("Main", game.MainServerFactory(network)); err != nil {
			return err
		}
	}
	if err := manager.Change("Main"); err != nil {
		return err
	}

	var registrar *discovery.Registrar
	if role.IsServer() {
		discCfg := discovery.DefaultCfg()
		if err := cm.LoadConfig("discovery", discCfg); err == nil && discCfg.Enabled {
			registrar, err = discovery.NewRegistrar(discCfg)
			if err != nil {
				return err
			}
			if err := registrar.Register(network.ServerPort()); err != nil {
				return err
			}
		}
	}

	log.Info().Str("role", role.String()).Int("port", network.ServerPort()).Msg("arena running")

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(time.Second / tickRate)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case now := <-ticker.C:
			dt := now.Sub(last).Seconds()
			last = now
			manager.Update(dt)
		case sig := <-stop:
			log.Info().Str("signal", sig.String()).Msg("shutting down")
			if registrar != nil {
				if err := registrar.Deregister(); err != nil {
					log.Warn().Err(err).Msg("deregister")
				}
			}
			manager.Shutdown()
			return nil
		}
	}
}
