package simulator

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/onshopfront/embedded-go/pkg/bridge"
	"github.com/onshopfront/embedded-go/pkg/wire"
)

// Server upgrades HTTP connections to WebSocket channels and attaches a
// fresh simulated host to each one, so every connected application gets
// its own register.
type Server struct {
	opts     Options
	logger   *slog.Logger
	upgrader websocket.Upgrader

	mu    sync.Mutex
	hosts map[*Host]struct{}
}

// NewServer constructs a WebSocket front for the simulator. Each accepted
// connection is served by a new Host built from opts.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		opts:   opts,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// The simulator is a development tool; it accepts any origin.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		hosts: make(map[*Host]struct{}),
	}
}

// ServeHTTP upgrades the request and runs a host for the connection's
// lifetime.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	s.logger.Info("application connected", "remote", r.RemoteAddr)

	ch := newServerChannel(conn, r.RemoteAddr, s.logger)
	host := New(ch, s.opts)

	s.mu.Lock()
	s.hosts[host] = struct{}{}
	s.mu.Unlock()

	ch.readLoop()

	s.mu.Lock()
	delete(s.hosts, host)
	s.mu.Unlock()
	s.logger.Info("application disconnected", "remote", r.RemoteAddr)
}

// Hosts returns the hosts currently serving a connection.
func (s *Server) Hosts() []*Host {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Host, 0, len(s.hosts))
	for h := range s.hosts {
		out = append(out, h)
	}
	return out
}

// serverChannel adapts one accepted WebSocket connection to the bridge
// channel contract. The accept loop is the single dispatch goroutine.
type serverChannel struct {
	conn   *websocket.Conn
	source string
	logger *slog.Logger

	writeMu sync.Mutex

	mu      sync.Mutex
	handler bridge.Handler
	closed  bool
}

func newServerChannel(conn *websocket.Conn, source string, logger *slog.Logger) *serverChannel {
	return &serverChannel{conn: conn, source: source, logger: logger}
}

// readLoop pumps inbound frames until the connection drops. It runs on
// the caller's goroutine so the server can tie the host's lifetime to it.
func (c *serverChannel) readLoop() {
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			closed := c.closed
			c.mu.Unlock()
			if !closed {
				c.logger.Debug("connection read failed", "remote", c.source, "error", err)
				_ = c.Close()
			}
			return
		}
		var env wire.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			c.logger.Debug("dropped unparseable frame", "remote", c.source, "error", err)
			continue
		}
		c.mu.Lock()
		fn := c.handler
		c.mu.Unlock()
		if fn != nil {
			fn(bridge.Message{Origin: "http://" + c.source, Source: c.source, Envelope: env})
		}
	}
}

// Post writes an envelope frame to the connected application.
func (c *serverChannel) Post(env wire.Envelope) error {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return bridge.ErrChannelClosed
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.WriteJSON(env); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

// SetHandler installs the inbound delivery callback.
func (c *serverChannel) SetHandler(fn bridge.Handler) {
	c.mu.Lock()
	c.handler = fn
	c.mu.Unlock()
}

// ParentSource returns the connected application's identity.
func (c *serverChannel) ParentSource() string {
	return c.source
}

// Close closes the connection. Safe to call more than once.
func (c *serverChannel) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()
	return c.conn.Close()
}
