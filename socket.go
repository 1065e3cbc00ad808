package gosio

import (
	"log/slog"
	"sync"
	"sync/atomic"
)

// Conn is the transport side of a socket: a started connection delivers
// inbound frames to the registered handlers and accepts outbound frames.
type Conn interface {
	Start()
	Send(data []byte) error
	Close(reason string)
	OnMessage(fn func([]byte))
	OnBinary(fn func([]byte))
	OnClose(fn func(string))
}

// State is a socket lifecycle state
type State int32

const (
	StateConnecting State = iota
	StateActive
	StateClosing
	StateClosed
)

func (st State) String() string {
	switch st {
	case StateConnecting:
		return "connecting"
	case StateActive:
		return "active"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Event is an inbound event packet split into its name and arguments
type Event struct {
	Name  string
	Args  []interface{}
	AckID *uint64
}

// Payload renders the event arguments as JSON text: the single argument
// itself, otherwise the argument array.
func (e Event) Payload() (string, error) {
	var v interface{} = e.Args
	if len(e.Args) == 1 {
		v = e.Args[0]
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// EventHandler handles Socket.IO events
type EventHandler func(Event)

// Socket represents a client connection
type Socket struct {
	id        string
	namespace *Namespace
	conn      Conn
	state     atomic.Int32
	logger    *slog.Logger

	handlers     map[string][]EventHandler
	handlersMu   sync.RWMutex
	onDisconnect []func(string)
	disconnectMu sync.RWMutex
	data         sync.Map
}

// NewSocket creates a socket in the Connecting state and wires it to conn.
func NewSocket(id string, namespace *Namespace, conn Conn, logger *slog.Logger) *Socket {
	if logger == nil {
		logger = slog.Default()
	}

	socket := &Socket{
		id:        id,
		namespace: namespace,
		conn:      conn,
		logger:    logger.With("sid", id, "nsp", namespace.Name().String()),
		handlers:  make(map[string][]EventHandler),
	}

	conn.OnMessage(socket.handleMessage)
	conn.OnBinary(socket.handleBinary)
	conn.OnClose(socket.close)

	return socket
}

// ID returns the socket ID
func (s *Socket) ID() string {
	return s.id
}

// Namespace returns the namespace the socket is attached to
func (s *Socket) Namespace() *Namespace {
	return s.namespace
}

// State returns the current lifecycle state
func (s *Socket) State() State {
	return State(s.state.Load())
}

// Activate registers the socket in its namespace, sends the connect packet,
// runs onConnect and starts the transport. It does nothing unless the socket
// is still connecting.
func (s *Socket) Activate(onConnect func(*Socket)) {
	if !s.state.CompareAndSwap(int32(StateConnecting), int32(StateActive)) {
		return
	}

	s.namespace.AddConnection(s.id, s)

	connect := &Packet{
		Type:      PacketTypeConnect,
		Namespace: s.namespace.Name().String(),
		Data:      map[string]interface{}{"sid": s.id},
	}
	if err := s.sendPacket(connect); err != nil {
		s.logger.Warn("connect packet not sent", "error", err)
	}

	if onConnect != nil {
		onConnect(s)
	}

	if s.State() != StateActive {
		return
	}

	s.conn.Start()
	s.logger.Info("client connected")
}

// Push implements Handle
func (s *Socket) Push(frame string) error {
	if s.State() != StateActive {
		return ErrSocketClosed
	}
	return s.conn.Send([]byte(frame))
}

// Emit sends an event to this socket through its own room
func (s *Socket) Emit(event string, data interface{}) error {
	if s.State() != StateActive {
		return ErrSocketClosed
	}
	return s.namespace.To(s.id).Emit(event, data)
}

// On registers an event handler
func (s *Socket) On(event string, handler EventHandler) {
	s.handlersMu.Lock()
	s.handlers[event] = append(s.handlers[event], handler)
	s.handlersMu.Unlock()
}

// Off removes event handlers
func (s *Socket) Off(event string) {
	s.handlersMu.Lock()
	delete(s.handlers, event)
	s.handlersMu.Unlock()
}

// Join adds the socket to a room
func (s *Socket) Join(room string) bool {
	return s.namespace.JoinRoom(s.id, room)
}

// Leave removes the socket from a room
func (s *Socket) Leave(room string) {
	s.namespace.LeaveRoom(s.id, room)
}

// Rooms returns all rooms the socket is in
func (s *Socket) Rooms() []string {
	return s.namespace.ConnectionRooms(s.id)
}

// Set stores arbitrary data on the socket
func (s *Socket) Set(key string, value interface{}) {
	s.data.Store(key, value)
}

// Get retrieves data from the socket
func (s *Socket) Get(key string) (interface{}, bool) {
	return s.data.Load(key)
}

// OnDisconnect registers a disconnect handler
func (s *Socket) OnDisconnect(handler func(string)) {
	s.disconnectMu.Lock()
	s.onDisconnect = append(s.onDisconnect, handler)
	s.disconnectMu.Unlock()
}

// Disconnect disconnects the socket
func (s *Socket) Disconnect() {
	s.close("server disconnect")
}

func (s *Socket) sendPacket(packet *Packet) error {
	encoded, err := packet.Encode()
	if err != nil {
		return err
	}
	return s.Push(encoded)
}

func (s *Socket) handleMessage(data []byte) {
	if s.State() != StateActive {
		return
	}

	packet, err := DecodePacket(string(data))
	if err != nil {
		s.logger.Warn("invalid packet", "error", err)
		s.close("parse error")
		return
	}

	if packet.Namespace != s.namespace.Name().String() {
		s.logger.Debug("packet for another namespace ignored", "packet_nsp", packet.Namespace)
		return
	}

	switch packet.Type {
	case PacketTypeEvent:
		s.handleEvent(packet)
	case PacketTypeAck:
		if packet.AckID != nil {
			s.logger.Debug("ack received", "ack_id", *packet.AckID)
		}
	case PacketTypeDisconnect:
		s.close("client namespace disconnect")
	default:
		s.logger.Debug("packet ignored", "type", packet.Type.String())
	}
}

func (s *Socket) handleEvent(packet *Packet) {
	if packet.Data == nil {
		s.logger.Debug("event without payload ignored")
		return
	}

	event := Event{Name: "message", AckID: packet.AckID}
	if args, ok := packet.Data.([]interface{}); ok {
		event.Args = args
		if len(args) > 0 {
			if name, ok := args[0].(string); ok {
				event.Name = name
				event.Args = args[1:]
			}
		}
	} else {
		event.Args = []interface{}{packet.Data}
	}

	s.handlersMu.RLock()
	handlers := s.handlers[event.Name]
	s.handlersMu.RUnlock()

	if len(handlers) > 0 {
		for _, handler := range handlers {
			handler(event)
		}
		return
	}

	payload, err := event.Payload()
	if err != nil {
		s.logger.Warn("event payload not rendered", "event", event.Name, "error", err)
		return
	}
	s.namespace.EmitToAll(event.Name, payload)
}

func (s *Socket) handleBinary([]byte) {
	s.logger.Warn("binary frame received")
	s.close("binary frames not supported")
}

// close tears the socket down exactly once, whatever triggered it.
func (s *Socket) close(reason string) {
	if !s.state.CompareAndSwap(int32(StateActive), int32(StateClosing)) {
		s.state.CompareAndSwap(int32(StateConnecting), int32(StateClosed))
		return
	}

	s.namespace.RemoveConnection(s.id)
	s.conn.Close(reason)
	s.state.Store(int32(StateClosed))

	s.logger.Info("client disconnected", "reason", reason)

	s.disconnectMu.RLock()
	handlers := s.onDisconnect
	s.disconnectMu.RUnlock()

	for _, handler := range handlers {
		handler(reason)
	}
}
