package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/onshopfront/embedded-go/pkg/wire"
)

// Socket is a WebSocket client channel to a live host. The read loop is
// the single dispatch goroutine, so delivery order matches the order the
// host wrote frames in.
type Socket struct {
	conn   *websocket.Conn
	origin string
	parent string
	logger *slog.Logger

	writeMu sync.Mutex

	mu      sync.Mutex
	handler Handler
	closed  bool
}

// Dial connects to the host at rawURL (ws:// or wss://). The reported
// peer origin is the URL's origin with the scheme mapped to http/https.
func Dial(ctx context.Context, rawURL string, logger *slog.Logger) (*Socket, error) {
	if logger == nil {
		logger = slog.Default()
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse host url: %w", err)
	}
	origin, err := socketOrigin(u)
	if err != nil {
		return nil, err
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial host: %w", err)
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}

	s := &Socket{
		conn:   conn,
		origin: origin,
		parent: conn.RemoteAddr().String(),
		logger: logger,
	}
	go s.readLoop()
	return s, nil
}

func socketOrigin(u *url.URL) (string, error) {
	switch u.Scheme {
	case "ws":
		return "http://" + u.Host, nil
	case "wss":
		return "https://" + u.Host, nil
	default:
		return "", fmt.Errorf("%w: unsupported scheme %q", ErrInvalidOrigin, u.Scheme)
	}
}

func (s *Socket) readLoop() {
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			s.mu.Lock()
			closed := s.closed
			s.mu.Unlock()
			if !closed {
				s.logger.Debug("socket read failed", "error", err)
				_ = s.Close()
			}
			return
		}
		var env wire.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			s.logger.Debug("dropped unparseable frame", "error", err)
			continue
		}
		s.mu.Lock()
		fn := s.handler
		s.mu.Unlock()
		if fn != nil {
			fn(Message{Origin: s.origin, Source: s.parent, Envelope: env})
		}
	}
}

// Post writes an envelope frame to the host.
func (s *Socket) Post(env wire.Envelope) error {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return ErrChannelClosed
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.conn.WriteJSON(env); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

// SetHandler installs the inbound delivery callback.
func (s *Socket) SetHandler(fn Handler) {
	s.mu.Lock()
	s.handler = fn
	s.mu.Unlock()
}

// ParentSource returns the host connection's identity.
func (s *Socket) ParentSource() string {
	return s.parent
}

// Close closes the connection. Safe to call more than once.
func (s *Socket) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()
	return s.conn.Close()
}
