package transport

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

var (
	ErrSessionClosed = errors.New("session closed")
	ErrSlowClient    = errors.New("slow client")
)

// Config holds websocket session settings
type Config struct {
	PingInterval time.Duration
	PingTimeout  time.Duration
	WriteWait    time.Duration
	MaxPayload   int64 // bytes
	QueueSize    int   // outbound frames
}

// DefaultConfig returns the default session configuration
func DefaultConfig() Config {
	return Config{
		PingInterval: 5 * time.Second,
		PingTimeout:  10 * time.Second,
		WriteWait:    10 * time.Second,
		MaxPayload:   1e6,
		QueueSize:    256,
	}
}

// Session is one websocket connection. It owns the read, write and
// heartbeat goroutines; Send is the only way other goroutines write to it.
type Session struct {
	conn      *websocket.Conn
	config    Config
	outgoing  chan []byte
	closeOnce sync.Once
	closed    chan struct{}
	lastSeen  atomic.Int64
	mu        sync.RWMutex
	onMessage func([]byte)
	onBinary  func([]byte)
	onClose   func(string)
}

// NewSession wraps an upgraded websocket connection
func NewSession(conn *websocket.Conn, config Config) *Session {
	defaults := DefaultConfig()
	if config.PingInterval <= 0 {
		config.PingInterval = defaults.PingInterval
	}
	if config.PingTimeout <= 0 {
		config.PingTimeout = defaults.PingTimeout
	}
	if config.WriteWait <= 0 {
		config.WriteWait = defaults.WriteWait
	}
	if config.QueueSize <= 0 {
		config.QueueSize = defaults.QueueSize
	}

	s := &Session{
		conn:     conn,
		config:   config,
		outgoing: make(chan []byte, config.QueueSize),
		closed:   make(chan struct{}),
	}
	s.touch()

	return s
}

// Start starts the session loops
func (s *Session) Start() {
	go s.writeLoop()
	go s.readLoop()
	go s.heartbeatLoop()
}

// Send queues a text frame. It never blocks: a full queue drops the frame
// and returns ErrSlowClient.
func (s *Session) Send(data []byte) error {
	select {
	case <-s.closed:
		return ErrSessionClosed
	default:
	}

	select {
	case s.outgoing <- data:
		return nil
	case <-s.closed:
		return ErrSessionClosed
	default:
		return ErrSlowClient
	}
}

// Close closes the session and runs the close handler once. Done is
// already closed when the handler runs.
func (s *Session) Close(reason string) {
	first := false
	s.closeOnce.Do(func() {
		first = true
		close(s.closed)

		if s.conn != nil {
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
			s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(s.config.WriteWait))
			s.conn.Close()
		}
	})
	if !first {
		return
	}

	s.mu.RLock()
	handler := s.onClose
	s.mu.RUnlock()

	if handler != nil {
		handler(reason)
	}
}

// Done is closed as soon as Close starts, before the close handler runs.
// Callers that need the handler's effects must synchronize on the handler
// itself.
func (s *Session) Done() <-chan struct{} {
	return s.closed
}

// LastSeen returns the time of the last liveness signal from the peer.
func (s *Session) LastSeen() time.Time {
	return time.Unix(0, s.lastSeen.Load())
}

// OnMessage sets the text frame handler
func (s *Session) OnMessage(fn func([]byte)) {
	s.mu.Lock()
	s.onMessage = fn
	s.mu.Unlock()
}

// OnBinary sets the binary frame handler
func (s *Session) OnBinary(fn func([]byte)) {
	s.mu.Lock()
	s.onBinary = fn
	s.mu.Unlock()
}

// OnClose sets the close handler
func (s *Session) OnClose(fn func(string)) {
	s.mu.Lock()
	s.onClose = fn
	s.mu.Unlock()
}

func (s *Session) readLoop() {
	if s.config.MaxPayload > 0 {
		s.conn.SetReadLimit(s.config.MaxPayload)
	}
	s.conn.SetPongHandler(func(string) error {
		s.touch()
		return nil
	})
	s.conn.SetPingHandler(func(appData string) error {
		s.touch()
		err := s.conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(s.config.WriteWait))
		if errors.Is(err, websocket.ErrCloseSent) {
			return nil
		}
		return err
	})

	for {
		messageType, data, err := s.conn.ReadMessage()
		if err != nil {
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) {
				s.Close("client closed")
			} else {
				s.Close("read error")
			}
			return
		}

		s.touch()

		s.mu.RLock()
		var handler func([]byte)
		switch messageType {
		case websocket.TextMessage:
			handler = s.onMessage
		case websocket.BinaryMessage:
			handler = s.onBinary
		}
		s.mu.RUnlock()

		if handler != nil {
			handler(data)
		}
	}
}

func (s *Session) writeLoop() {
	for {
		select {
		case data := <-s.outgoing:
			s.conn.SetWriteDeadline(time.Now().Add(s.config.WriteWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				s.Close("write error")
				return
			}
		case <-s.closed:
			return
		}
	}
}

// heartbeatLoop probes the peer every PingInterval and closes the session
// once nothing was heard for longer than PingTimeout.
func (s *Session) heartbeatLoop() {
	ticker := time.NewTicker(s.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			select {
			case <-s.closed:
				return
			default:
			}

			if time.Since(s.LastSeen()) > s.config.PingTimeout {
				s.Close("ping timeout")
				return
			}

			if err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(s.config.WriteWait)); err != nil {
				s.Close("ping error")
				return
			}
		case <-s.closed:
			return
		}
	}
}

func (s *Session) touch() {
	s.lastSeen.Store(time.Now().UnixNano())
}
