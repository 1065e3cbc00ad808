package gosio

// Handle pushes a rendered outbound frame to one connection. Push must not
// block on the receiving connection's own processing.
type Handle interface {
	Push(frame string) error
}

// Adapter is the interface for managing connections, rooms and broadcasting
// inside one namespace. Implementations keep the connection index and the
// room table consistent under a single lock.
type Adapter interface {
	// AddSocket registers a connection handle and joins its self-room
	AddSocket(socketID string, handle Handle)

	// RemoveSocket removes a connection from the index and from every room
	RemoveSocket(socketID string) bool

	// Add adds a registered socket to a room
	Add(socketID, room string) bool

	// Remove removes a socket from a room
	Remove(socketID, room string)

	// Sockets returns the deduplicated socket IDs of the given rooms
	Sockets(rooms ...string) []string

	// SocketRooms returns all rooms a socket is in
	SocketRooms(socketID string) []string

	// SocketIDs returns every registered socket
	SocketIDs() []string

	// Rooms returns every non-empty room
	Rooms() []string

	// Broadcast pushes frame to every socket in rooms except excluded ones
	// and returns the number of successful deliveries
	Broadcast(frame string, rooms []string, except []string) int

	// Close cleans up the adapter
	Close() error
}
