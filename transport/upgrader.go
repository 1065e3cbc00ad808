package transport

import (
	"net/http"

	"github.com/gorilla/websocket"
)

// Upgrader turns HTTP requests into websocket sessions
type Upgrader struct {
	upgrader websocket.Upgrader
	config   Config
}

// NewUpgrader creates an upgrader. A nil checkOrigin accepts every origin.
func NewUpgrader(config Config, checkOrigin func(*http.Request) bool) *Upgrader {
	if checkOrigin == nil {
		checkOrigin = func(r *http.Request) bool {
			return true
		}
	}

	return &Upgrader{
		config: config,
		upgrader: websocket.Upgrader{
			CheckOrigin:     checkOrigin,
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// Upgrade performs the websocket handshake and returns an unstarted session.
// On failure the upgrader has already replied to the client.
func (u *Upgrader) Upgrade(w http.ResponseWriter, r *http.Request) (*Session, error) {
	conn, err := u.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, err
	}

	return NewSession(conn, u.config), nil
}
