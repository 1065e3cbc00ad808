package gosio

import (
	"log/slog"
	"sync"
)

type set map[string]struct{}

// MemoryAdapter is an in-memory implementation of the Adapter interface
type MemoryAdapter struct {
	mu          sync.RWMutex
	handles     map[string]Handle // socketID -> delivery handle
	rooms       map[string]set    // room -> socketIDs
	socketRooms map[string]set    // socketID -> rooms
	logger      *slog.Logger
}

// NewMemoryAdapter creates a new in-memory adapter
func NewMemoryAdapter(logger *slog.Logger) *MemoryAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &MemoryAdapter{
		handles:     make(map[string]Handle),
		rooms:       make(map[string]set),
		socketRooms: make(map[string]set),
		logger:      logger,
	}
}

// AddSocket registers a socket. Re-adding an id replaces its handle.
func (a *MemoryAdapter) AddSocket(socketID string, handle Handle) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.handles[socketID] = handle
	a.join(socketID, socketID)
}

// RemoveSocket removes a socket from the index and all rooms. It reports
// whether the socket was registered; calling it again is a no-op.
func (a *MemoryAdapter) RemoveSocket(socketID string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	_, ok := a.handles[socketID]
	delete(a.handles, socketID)

	for room := range a.socketRooms[socketID] {
		a.leaveRoom(socketID, room)
	}
	delete(a.socketRooms, socketID)

	return ok
}

// Add adds a socket to a room. Unknown sockets are ignored.
func (a *MemoryAdapter) Add(socketID, room string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.handles[socketID]; !ok {
		return false
	}
	a.join(socketID, room)
	return true
}

// Remove removes a socket from a room. The self-room cannot be left.
func (a *MemoryAdapter) Remove(socketID, room string) {
	if socketID == room {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if rooms, ok := a.socketRooms[socketID]; ok {
		delete(rooms, room)
	}
	a.leaveRoom(socketID, room)
}

// Sockets returns all socket IDs in the given rooms
func (a *MemoryAdapter) Sockets(rooms ...string) []string {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return keys(a.resolve(rooms, nil))
}

// SocketRooms returns all rooms a socket is in
func (a *MemoryAdapter) SocketRooms(socketID string) []string {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return keys(a.socketRooms[socketID])
}

// SocketIDs returns all registered sockets
func (a *MemoryAdapter) SocketIDs() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()

	result := make([]string, 0, len(a.handles))
	for socketID := range a.handles {
		result = append(result, socketID)
	}
	return result
}

// Rooms returns all rooms with at least one member
func (a *MemoryAdapter) Rooms() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()

	result := make([]string, 0, len(a.rooms))
	for room := range a.rooms {
		result = append(result, room)
	}
	return result
}

// Broadcast sends a frame to all sockets in specified rooms except excluded
// ones. A failed push is logged and skipped.
func (a *MemoryAdapter) Broadcast(frame string, rooms []string, except []string) int {
	a.mu.RLock()
	defer a.mu.RUnlock()

	exclude := make(set, len(except))
	for _, sid := range except {
		exclude[sid] = struct{}{}
	}

	delivered := 0
	for socketID := range a.resolve(rooms, exclude) {
		handle, ok := a.handles[socketID]
		if !ok {
			continue
		}
		if err := handle.Push(frame); err != nil {
			a.logger.Debug("delivery dropped", "sid", socketID, "error", err)
			continue
		}
		delivered++
	}

	return delivered
}

// Close cleans up the adapter
func (a *MemoryAdapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.handles = make(map[string]Handle)
	a.rooms = make(map[string]set)
	a.socketRooms = make(map[string]set)

	return nil
}

// join and leaveRoom require a.mu held for writing.
func (a *MemoryAdapter) join(socketID, room string) {
	if a.rooms[room] == nil {
		a.rooms[room] = make(set)
	}
	a.rooms[room][socketID] = struct{}{}

	if a.socketRooms[socketID] == nil {
		a.socketRooms[socketID] = make(set)
	}
	a.socketRooms[socketID][room] = struct{}{}
}

func (a *MemoryAdapter) leaveRoom(socketID, room string) {
	members, ok := a.rooms[room]
	if !ok {
		return
	}
	delete(members, socketID)
	if len(members) == 0 {
		delete(a.rooms, room)
	}
}

func (a *MemoryAdapter) resolve(rooms []string, exclude set) set {
	targets := make(set)
	for _, room := range rooms {
		for socketID := range a.rooms[room] {
			if _, skip := exclude[socketID]; !skip {
				targets[socketID] = struct{}{}
			}
		}
	}
	return targets
}

func keys(s set) []string {
	result := make([]string, 0, len(s))
	for k := range s {
		result = append(result, k)
	}
	return result
}
