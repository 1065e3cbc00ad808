package gosio

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/ramory-l/gosio/transport"
)

// Config represents Socket.IO server configuration
type Config struct {
	PingInterval time.Duration
	PingTimeout  time.Duration
	MaxPayload   int64 // bytes
	QueueSize    int   // outbound frames per connection
	IDFormat     string
	CheckOrigin  func(*http.Request) bool
}

// DefaultConfig returns the default server configuration
func DefaultConfig() *Config {
	return &Config{
		PingInterval: 5 * time.Second,
		PingTimeout:  10 * time.Second,
		MaxPayload:   1e6,
		QueueSize:    256,
		IDFormat:     "uuid",
	}
}

// Validate checks the liveness settings
func (c *Config) Validate() error {
	if c.PingInterval <= 0 {
		return errors.New("ping interval must be positive")
	}
	if c.PingTimeout <= c.PingInterval {
		return fmt.Errorf("ping timeout %s must exceed ping interval %s", c.PingTimeout, c.PingInterval)
	}
	return nil
}

// Option configures a Server
type Option func(*Server)

// WithLogger sets the server logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithIDGenerator overrides the connection id generator
func WithIDGenerator(ids IDGenerator) Option {
	return func(s *Server) {
		s.ids = ids
	}
}

// WithAdapterFactory builds every namespace's adapter with factory,
// the default "/" namespace included.
func WithAdapterFactory(factory AdapterFactory) Option {
	return func(s *Server) {
		s.newAdapter = factory
	}
}

// Server represents a Socket.IO server
type Server struct {
	config     *Config
	registry   *Registry
	upgrader   *transport.Upgrader
	ids        IDGenerator
	newAdapter AdapterFactory
	logger     *slog.Logger
	sockets    sync.Map
	mu         sync.RWMutex
	onConnect  func(*Socket)
}

// NewServer creates a server with the default "/" namespace
func NewServer(config *Config, opts ...Option) (*Server, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	server := &Server{
		config: config,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(server)
	}

	if server.ids == nil {
		ids, err := NewIDGenerator(config.IDFormat)
		if err != nil {
			return nil, err
		}
		server.ids = ids
	}

	server.registry = NewRegistry(server.logger)
	server.registry.SetAdapterFactory(server.newAdapter)
	server.upgrader = transport.NewUpgrader(transport.Config{
		PingInterval: config.PingInterval,
		PingTimeout:  config.PingTimeout,
		MaxPayload:   config.MaxPayload,
		QueueSize:    config.QueueSize,
	}, config.CheckOrigin)

	if _, err := server.registry.Create("/"); err != nil {
		return nil, err
	}

	return server, nil
}

// Registry returns the namespace registry
func (s *Server) Registry() *Registry {
	return s.registry
}

// CreateNamespace registers a new namespace
func (s *Server) CreateNamespace(name string) (*Namespace, error) {
	return s.registry.Create(name)
}

// Namespace looks up a namespace by path
func (s *Server) Namespace(name string) (*Namespace, bool) {
	return s.registry.Lookup(name)
}

// OnConnect sets the handler run for every new socket before it starts
// reading.
func (s *Server) OnConnect(handler func(*Socket)) {
	s.mu.Lock()
	s.onConnect = handler
	s.mu.Unlock()
}

// Emit broadcasts to all clients in the default namespace
func (s *Server) Emit(event string, data interface{}) error {
	return s.defaultNamespace().Emit(event, data)
}

// To returns a BroadcastOperator for the default namespace
func (s *Server) To(rooms ...string) *BroadcastOperator {
	return s.defaultNamespace().To(rooms...)
}

// Socket returns a live socket by id
func (s *Server) Socket(id string) (*Socket, bool) {
	val, ok := s.sockets.Load(id)
	if !ok {
		return nil, false
	}
	return val.(*Socket), true
}

// ServeHTTP implements http.Handler. The namespace is taken from the "nsp"
// query parameter and defaults to "/".
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("nsp")
	if name == "" {
		name = "/"
	}

	ns, ok := s.registry.Lookup(name)
	if !ok {
		http.Error(w, ErrUnknownNamespace.Error(), http.StatusNotFound)
		return
	}

	session, err := s.upgrader.Upgrade(w, r)
	if err != nil {
		s.logger.Warn("upgrade error", "error", err)
		return
	}

	id := s.ids.NewID()
	socket := NewSocket(id, ns, session, s.logger)
	s.sockets.Store(id, socket)
	socket.OnDisconnect(func(string) {
		s.sockets.Delete(id)
	})

	s.mu.RLock()
	onConnect := s.onConnect
	s.mu.RUnlock()

	socket.Activate(onConnect)
}

// Close disconnects every socket and clears all namespaces
func (s *Server) Close() error {
	s.sockets.Range(func(key, value interface{}) bool {
		value.(*Socket).Disconnect()
		return true
	})

	var errs []error
	s.registry.each(func(ns *Namespace) {
		if err := ns.adapter.Close(); err != nil {
			errs = append(errs, err)
		}
	})

	return errors.Join(errs...)
}

func (s *Server) defaultNamespace() *Namespace {
	ns, _ := s.registry.Lookup("/")
	return ns
}
