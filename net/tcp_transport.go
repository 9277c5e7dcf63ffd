package net

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/lcx/arena/config"
	"github.com/lcx/arena/log"
	"github.com/lcx/arena/metrics"
)

// TCPTransport is a Transport over TCP. Every connection gets a recv and a
// send goroutine; everything the goroutines learn is parked in poll queues
// the owning goroutine drains once per tick.
type TCPTransport struct {
	cfg  *TCPTransportCfg
	lock sync.RWMutex

	conns   map[int]*tcpconn
	nextID  int
	started bool
	port    int

	listener *net.TCPListener
	cancel   context.CancelFunc
	ctx      context.Context

	// Poll queues. Guarded separately from the conn map so the recv
	// goroutines never contend with Send on the same mutex.
	qlock       sync.Mutex
	newConns    []int
	disconnects []int
	inbox       []Inbound
}

// NewTCPTransport creates a TCPTransport with default settings.
func NewTCPTransport() *TCPTransport {
	return NewTCPTransportWithConfig(defaultTCPTransportCfg())
}

// NewTCPTransportWithConfig creates a TCPTransport with the provided
// configuration.
func NewTCPTransportWithConfig(cfg *TCPTransportCfg) *TCPTransport {
	return &TCPTransport{
		cfg:   cfg,
		conns: make(map[int]*tcpconn),
	}
}

// NewTCPTransportWithConfigManager creates a TCPTransport that supports
// configuration hot-reload. The transport loads its initial configuration
// from the manager and registers itself as a change listener.
func NewTCPTransportWithConfigManager(configManager config.ConfigManager) (*TCPTransport, error) {
	if configManager == nil {
		return nil, errors.New("configManager cannot be nil")
	}

	cfg := defaultTCPTransportCfg()
	if err := configManager.LoadConfig("tcp_transport", cfg); err != nil {
		return nil, fmt.Errorf("failed to load tcp_transport config: %w", err)
	}

	t := NewTCPTransportWithConfig(cfg)
	configManager.AddChangeListener(t)
	return t, nil
}

// OnConfigChanged implements the ConfigChangeListener interface. New settings
// apply to connections accepted after the change; live connections keep the
// queue they were created with.
func (t *TCPTransport) OnConfigChanged(configName string, newConfig, oldConfig config.Config) error {
	if configName != "tcp_transport" {
		return nil
	}

	newCfg, ok := newConfig.(*TCPTransportCfg)
	if !ok {
		return fmt.Errorf("invalid configuration type for TCPTransport")
	}
	if err := newCfg.Validate(); err != nil {
		return fmt.Errorf("invalid TCP transport configuration: %w", err)
	}

	t.lock.Lock()
	newCfg.SchemaChecksum = t.cfg.SchemaChecksum
	t.cfg = newCfg
	t.lock.Unlock()

	log.Info().Str("configName", configName).Msg("TCP transport configuration updated")
	return nil
}

// GetConfigName implements the ConfigChangeListener interface.
func (t *TCPTransport) GetConfigName() string {
	return "tcp_transport"
}

func (t *TCPTransport) config() *TCPTransportCfg {
	t.lock.RLock()
	defer t.lock.RUnlock()
	return t.cfg
}

// SetSchemaChecksum arms first-frame schema verification. Must be called
// before StartServer/StartClient; zero disables the hello entirely.
func (t *TCPTransport) SetSchemaChecksum(sum uint32) {
	t.lock.Lock()
	defer t.lock.Unlock()
	t.cfg.SchemaChecksum = sum
}

// StartServer implements the Transport interface.
func (t *TCPTransport) StartServer(port int) error {
	metrics.IncrCounterWithGroup("net", "transport_start_total", 1)

	t.lock.Lock()
	defer t.lock.Unlock()
	if t.started {
		metrics.IncrCounterWithDimGroup("net", "transport_start_error_total", 1, map[string]string{"error_type": "already_started"})
		return ErrAlreadyStarted
	}

	tcpAddr, err := net.ResolveTCPAddr("tcp", ":"+strconv.Itoa(port))
	if err != nil {
		metrics.IncrCounterWithDimGroup("net", "transport_start_error_total", 1, map[string]string{"error_type": "resolve"})
		return errors.New("resolve: " + err.Error())
	}

	listener, err := net.ListenTCP("tcp", tcpAddr)
	if err != nil {
		metrics.IncrCounterWithDimGroup("net", "transport_start_error_total", 1, map[string]string{"error_type": "listen"})
		return errors.New("listen fail: " + err.Error())
	}

	metrics.IncrCounterWithDimGroup("net", "transport_start_success_total", 1, map[string]string{"transport_type": "tcp_server"})

	t.listener = listener
	t.port = listener.Addr().(*net.TCPAddr).Port
	t.ctx, t.cancel = context.WithCancel(context.Background())
	t.started = true

	go t.serve(t.ctx, listener)
	return nil
}

// StartClient implements the Transport interface. The single outbound
// connection is always id 0 and is not reported through PollNewConnections;
// the caller opened it, so it already knows.
func (t *TCPTransport) StartClient(host string, port int) error {
	metrics.IncrCounterWithGroup("net", "transport_start_total", 1)

	t.lock.Lock()
	if t.started {
		t.lock.Unlock()
		metrics.IncrCounterWithDimGroup("net", "transport_start_error_total", 1, map[string]string{"error_type": "already_started"})
		return ErrAlreadyStarted
	}
	cfg := t.cfg
	t.lock.Unlock()

	addr := net.JoinHostPort(host, strconv.Itoa(port))
	conn, err := net.DialTimeout("tcp", addr, time.Duration(cfg.DialTimeoutMS)*time.Millisecond)
	if err != nil {
		metrics.IncrCounterWithDimGroup("net", "transport_start_error_total", 1, map[string]string{"error_type": "dial"})
		return errors.New("dial " + addr + ": " + err.Error())
	}
	if tc, ok := conn.(*net.TCPConn); ok && cfg.NoDelay {
		_ = tc.SetNoDelay(true)
	}

	// The client speaks first when schema verification is armed. A mismatch
	// surfaces as a disconnect on a later poll, once the server hangs up.
	if cfg.SchemaChecksum != 0 {
		if _, err := conn.Write(encodeHello(cfg.SchemaChecksum)); err != nil {
			_ = conn.Close()
			metrics.IncrCounterWithDimGroup("net", "transport_start_error_total", 1, map[string]string{"error_type": "hello_write"})
			return errors.New("write hello: " + err.Error())
		}
	}

	metrics.IncrCounterWithDimGroup("net", "transport_start_success_total", 1, map[string]string{"transport_type": "tcp_client"})

	t.lock.Lock()
	t.ctx, t.cancel = context.WithCancel(context.Background())
	if ra, ok := conn.RemoteAddr().(*net.TCPAddr); ok {
		t.port = ra.Port
	}
	c := t.newConn(conn, cfg)
	c.id = t.nextID
	t.nextID++
	t.conns[c.id] = c
	c.registered = true
	t.started = true
	t.lock.Unlock()

	metrics.UpdateGaugeWithGroup("net", "current_connections", metrics.Value(t.getCurrentConnCount()))
	c.serve()
	return nil
}

// PollNewConnections implements the Transport interface.
func (t *TCPTransport) PollNewConnections() []int {
	t.qlock.Lock()
	defer t.qlock.Unlock()
	ids := t.newConns
	t.newConns = nil
	return ids
}

// PollDisconnects implements the Transport interface.
func (t *TCPTransport) PollDisconnects() []int {
	t.qlock.Lock()
	defer t.qlock.Unlock()
	ids := t.disconnects
	t.disconnects = nil
	return ids
}

// DrainMessages implements the Transport interface.
func (t *TCPTransport) DrainMessages() []Inbound {
	t.qlock.Lock()
	defer t.qlock.Unlock()
	msgs := t.inbox
	t.inbox = nil
	return msgs
}

// Send implements the Transport interface. Unicast failures are reported to
// the caller; broadcast is best effort, a full or dying connection is skipped
// and will show up as a disconnect soon enough.
func (t *TCPTransport) Send(data []byte, connID int) error {
	cfg := t.config()

	t.lock.RLock()
	if !t.started {
		t.lock.RUnlock()
		return ErrNotStarted
	}
	t.lock.RUnlock()

	if len(data) > cfg.MaxFrameSize {
		metrics.IncrCounterWithDimGroup("net", "frame_drop_total", 1, map[string]string{"reason": "too_large"})
		return ErrFrameTooLarge
	}

	if connID == Broadcast {
		t.lock.RLock()
		targets := make([]*tcpconn, 0, len(t.conns))
		for _, c := range t.conns {
			targets = append(targets, c)
		}
		t.lock.RUnlock()

		for _, c := range targets {
			if err := c.enqueue(data); err != nil {
				metrics.IncrCounterWithDimGroup("net", "frame_drop_total", 1, map[string]string{"reason": "channel_full"})
				log.Warn().Int("connID", c.id).Msg("broadcast dropped for connection, send channel full")
			}
		}
		return nil
	}

	t.lock.RLock()
	c, ok := t.conns[connID]
	t.lock.RUnlock()
	if !ok {
		return ErrUnknownConnection
	}
	if err := c.enqueue(data); err != nil {
		metrics.IncrCounterWithDimGroup("net", "frame_drop_total", 1, map[string]string{"reason": "channel_full"})
		return err
	}
	return nil
}

// Port implements the Transport interface.
func (t *TCPTransport) Port() int {
	t.lock.RLock()
	defer t.lock.RUnlock()
	return t.port
}

// Stop implements the Transport interface. Already-queued poll results stay
// drainable after Stop so a final tick can observe the shutdown.
func (t *TCPTransport) Stop() error {
	t.lock.Lock()
	if !t.started {
		t.lock.Unlock()
		return ErrNotStarted
	}
	cancel := t.cancel
	listener := t.listener
	conns := make([]*tcpconn, 0, len(t.conns))
	for _, c := range t.conns {
		conns = append(conns, c)
	}
	t.lock.Unlock()

	if cancel != nil {
		cancel()
	}
	if listener != nil {
		_ = listener.Close()
	}
	for _, c := range conns {
		c.close()
	}
	return nil
}

func (t *TCPTransport) serve(ctx context.Context, listener *net.TCPListener) {
	var once sync.Once
	closeListener := func() {
		_ = listener.Close()
	}
	defer once.Do(closeListener)

	go func() {
		<-ctx.Done()
		once.Do(closeListener)
	}()

	for {
		conn, err := listener.AcceptTCP()
		if err != nil {
			var e net.Error
			if errors.As(err, &e) && e.Timeout() {
				continue
			}
			return
		}

		cfg := t.config()
		if cfg.NoDelay {
			_ = conn.SetNoDelay(true)
		}

		c := t.newConn(conn, cfg)
		c.serve()
	}
}

// newConn builds the per-connection context. The id is assigned later, once
// the connection survives the schema hello.
func (t *TCPTransport) newConn(conn net.Conn, cfg *TCPTransportCfg) *tcpconn {
	cancelCtx, cancel := context.WithCancel(t.ctx)
	return &tcpconn{
		id:        -1,
		ctx:       t.ctx,
		cancelCtx: cancelCtx,
		cancel:    cancel,
		conn:      conn,
		cfg:       cfg,
		sendCh:    make(chan []byte, cfg.SendChannelSize),
		transport: t,
	}
}

// registerConn assigns the next id, publishes the connection, and queues the
// new-connection event. Ids are monotonic and never reused.
func (t *TCPTransport) registerConn(c *tcpconn) {
	t.lock.Lock()
	c.id = t.nextID
	t.nextID++
	t.conns[c.id] = c
	c.registered = true
	t.lock.Unlock()

	t.qlock.Lock()
	t.newConns = append(t.newConns, c.id)
	t.qlock.Unlock()

	metrics.IncrCounterWithGroup("net", "connection_open_total", 1)
	metrics.UpdateGaugeWithGroup("net", "current_connections", metrics.Value(t.getCurrentConnCount()))
}

func (t *TCPTransport) removeConn(id int) {
	t.lock.Lock()
	delete(t.conns, id)
	t.lock.Unlock()

	t.qlock.Lock()
	t.disconnects = append(t.disconnects, id)
	t.qlock.Unlock()
}

func (t *TCPTransport) pushInbound(id int, data []byte) {
	t.qlock.Lock()
	t.inbox = append(t.inbox, Inbound{ConnID: id, Data: data})
	t.qlock.Unlock()
	metrics.IncrCounterWithGroup("net", "frames_recv_total", 1)
}

func (t *TCPTransport) getCurrentConnCount() int {
	t.lock.RLock()
	defer t.lock.RUnlock()
	return len(t.conns)
}

type tcpconn struct {
	id         int
	registered bool
	ctx        context.Context
	cancelCtx  context.Context
	cancel     context.CancelFunc
	conn       net.Conn
	cfg        *TCPTransportCfg
	closeOnce  sync.Once
	sendCh     chan []byte
	transport  *TCPTransport
}

func (c *tcpconn) serve() {
	go c.serveSend()
	go c.serveRecv()
}

func (c *tcpconn) close() {
	c.closeOnce.Do(func() {
		if c.registered {
			c.transport.removeConn(c.id)
			metrics.IncrCounterWithGroup("net", "connection_close_total", 1)
			metrics.UpdateGaugeWithGroup("net", "current_connections", metrics.Value(c.transport.getCurrentConnCount()))
		}
		c.cancel()
		_ = c.conn.Close()
	})
}

// verifyHello reads and checks the client's first frame. Only server-side
// connections call this, and only when the checksum is armed.
func (c *tcpconn) verifyHello() bool {
	buf := make([]byte, helloSize)
	if _, err := io.ReadFull(c.conn, buf); err != nil {
		return false
	}
	sum, err := decodeHello(buf)
	if err != nil {
		log.Warn().Str("remote", c.conn.RemoteAddr().String()).Err(err).Msg("schema hello rejected")
		return false
	}
	if sum != c.cfg.SchemaChecksum {
		log.Warn().
			Str("remote", c.conn.RemoteAddr().String()).
			Uint32("peer", sum).
			Uint32("local", c.cfg.SchemaChecksum).
			Msg("schema checksum mismatch, dropping connection")
		return false
	}
	return true
}

func (c *tcpconn) serveRecv() {
	defer c.close()

	// Server side announces the connection only after the hello passes. A
	// rejected peer never gets an id, so the owner never hears about it.
	if !c.registered {
		if c.cfg.SchemaChecksum != 0 && !c.verifyHello() {
			metrics.IncrCounterWithGroup("net", "handshake_failure_total", 1)
			return
		}
		c.transport.registerConn(c)
	}

	preHeadBuf := make([]byte, PRE_HEAD_SIZE)
	for {
		select {
		case <-c.ctx.Done():
			return
		case <-c.cancelCtx.Done():
			return
		default:
		}

		if _, err := io.ReadFull(c.conn, preHeadBuf); err != nil {
			return
		}
		preHead, err := DecodePreHead(preHeadBuf)
		if err != nil {
			return
		}
		if preHead.BodySize > uint32(c.cfg.MaxFrameSize) {
			log.Warn().Int("connID", c.id).Uint32("bodySize", preHead.BodySize).Msg("oversized frame, dropping connection")
			return
		}

		body := make([]byte, preHead.BodySize)
		if _, err := io.ReadFull(c.conn, body); err != nil {
			return
		}
		c.transport.pushInbound(c.id, body)
	}
}

func (c *tcpconn) serveSend() {
	for {
		select {
		case <-c.ctx.Done():
			return
		case <-c.cancelCtx.Done():
			return
		case data := <-c.sendCh:
			if err := c.send(data); err != nil {
				c.close()
				return
			}
		}
	}
}

func (c *tcpconn) send(data []byte) error {
	if _, err := c.conn.Write(EncodePreHead(&PreHead{BodySize: uint32(len(data))})); err != nil {
		return errors.New("write prehead fail: " + err.Error())
	}
	if _, err := c.conn.Write(data); err != nil {
		return errors.New("write body fail: " + err.Error())
	}
	metrics.IncrCounterWithGroup("net", "frames_sent_total", 1)
	return nil
}

func (c *tcpconn) enqueue(data []byte) error {
	select {
	case c.sendCh <- data:
		return nil
	default:
		return ErrSendChannelFull
	}
}
