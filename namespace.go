package gosio

import (
	"fmt"
	"log/slog"
	"strings"
)

// NamespaceName is a validated namespace path such as "/" or "/chat".
type NamespaceName string

// ParseNamespaceName validates text as a namespace path. Invalid names are
// rejected, never normalized.
func ParseNamespaceName(text string) (NamespaceName, error) {
	switch {
	case text == "":
		return "", ErrEmptyName
	case text[0] != '/':
		return "", fmt.Errorf("%w: %q", ErrMustStartWithSlash, text)
	case strings.IndexByte(text, ',') >= 0:
		return "", fmt.Errorf("%w: %q", ErrContainsComma, text)
	}
	return NamespaceName(text), nil
}

func (n NamespaceName) String() string {
	return string(n)
}

// Namespace represents a Socket.IO namespace
type Namespace struct {
	name    NamespaceName
	adapter Adapter
	logger  *slog.Logger
}

// AdapterFactory builds the adapter of a newly created namespace.
type AdapterFactory func(name NamespaceName, logger *slog.Logger) Adapter

func memoryAdapterFactory(_ NamespaceName, logger *slog.Logger) Adapter {
	return NewMemoryAdapter(logger)
}

// NewNamespace creates a namespace backed by an in-memory adapter
func NewNamespace(name NamespaceName, logger *slog.Logger) *Namespace {
	return newNamespace(name, memoryAdapterFactory, logger)
}

// The adapter is fixed for the namespace's lifetime.
func newNamespace(name NamespaceName, newAdapter AdapterFactory, logger *slog.Logger) *Namespace {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("nsp", name.String())

	return &Namespace{
		name:    name,
		adapter: newAdapter(name, logger),
		logger:  logger,
	}
}

// Name returns the namespace name
func (ns *Namespace) Name() NamespaceName {
	return ns.name
}

// AddConnection registers a delivery handle under id and joins id to its
// self-room.
func (ns *Namespace) AddConnection(id string, handle Handle) {
	ns.adapter.AddSocket(id, handle)
}

// RemoveConnection removes id from the namespace and every room it joined.
// It is safe to call more than once.
func (ns *Namespace) RemoveConnection(id string) {
	if ns.adapter.RemoveSocket(id) {
		ns.logger.Debug("connection removed", "sid", id)
	}
}

// JoinRoom adds a registered connection to room.
func (ns *Namespace) JoinRoom(id, room string) bool {
	return ns.adapter.Add(id, room)
}

// LeaveRoom removes a connection from room; leaving a room the connection
// is not in does nothing.
func (ns *Namespace) LeaveRoom(id, room string) {
	ns.adapter.Remove(id, room)
}

// Resolve returns the union of the members of rooms. Unknown rooms are empty.
func (ns *Namespace) Resolve(rooms ...string) []string {
	return ns.adapter.Sockets(rooms...)
}

// Rooms returns every room that currently has members.
func (ns *Namespace) Rooms() []string {
	return ns.adapter.Rooms()
}

// ConnectionRooms returns the rooms id has joined.
func (ns *Namespace) ConnectionRooms(id string) []string {
	return ns.adapter.SocketRooms(id)
}

// Connections returns the ids of every registered connection.
func (ns *Namespace) Connections() []string {
	return ns.adapter.SocketIDs()
}

// EmitToRooms renders event and payload into a frame and pushes it to every
// connection in rooms. It returns the number of connections reached.
func (ns *Namespace) EmitToRooms(rooms []string, event, payload string) int {
	return ns.adapter.Broadcast(RenderFrame(event, payload), rooms, nil)
}

// EmitToAll emits to every room of the namespace.
func (ns *Namespace) EmitToAll(event, payload string) int {
	return ns.EmitToRooms(ns.adapter.Rooms(), event, payload)
}

// To returns a BroadcastOperator for emitting to specific rooms. With no
// rooms the operator targets every connection of the namespace.
func (ns *Namespace) To(rooms ...string) *BroadcastOperator {
	return &BroadcastOperator{
		namespace: ns,
		rooms:     rooms,
	}
}

// Emit broadcasts an event to all sockets in the namespace
func (ns *Namespace) Emit(event string, data interface{}) error {
	return ns.To().Emit(event, data)
}

// RenderFrame builds the outbound text frame for an event.
func RenderFrame(event, payload string) string {
	return event + "," + payload
}

// BroadcastOperator provides methods for broadcasting to specific rooms
type BroadcastOperator struct {
	namespace *Namespace
	rooms     []string
	except    []string
}

// To adds rooms to broadcast to
func (b *BroadcastOperator) To(rooms ...string) *BroadcastOperator {
	b.rooms = append(b.rooms, rooms...)
	return b
}

// Except excludes specific socket IDs from the broadcast
func (b *BroadcastOperator) Except(socketIDs ...string) *BroadcastOperator {
	b.except = append(b.except, socketIDs...)
	return b
}

// Emit marshals data and broadcasts it as event
func (b *BroadcastOperator) Emit(event string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal %q payload: %w", event, err)
	}

	rooms := b.rooms
	if len(rooms) == 0 {
		// every connection sits in its self-room
		rooms = b.namespace.adapter.SocketIDs()
	}

	b.namespace.adapter.Broadcast(RenderFrame(event, string(payload)), rooms, b.except)
	return nil
}
