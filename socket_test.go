package gosio

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	mu        sync.Mutex
	sent      []string
	started   bool
	closed    bool
	reason    string
	sendErr   error
	onMessage func([]byte)
	onBinary  func([]byte)
	onClose   func(string)
}

func (f *fakeConn) Start() {
	f.mu.Lock()
	f.started = true
	f.mu.Unlock()
}

func (f *fakeConn) Send(data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrSocketClosed
	}
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, string(data))
	return nil
}

func (f *fakeConn) Close(reason string) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.closed = true
	f.reason = reason
	handler := f.onClose
	f.mu.Unlock()

	if handler != nil {
		handler(reason)
	}
}

func (f *fakeConn) OnMessage(fn func([]byte)) { f.onMessage = fn }
func (f *fakeConn) OnBinary(fn func([]byte))  { f.onBinary = fn }
func (f *fakeConn) OnClose(fn func(string))   { f.onClose = fn }

func (f *fakeConn) deliver(frame string) {
	f.onMessage([]byte(frame))
}

func (f *fakeConn) getSent() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

func (f *fakeConn) closeReason() (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reason, f.closed
}

func newActiveSocket(t *testing.T, ns *Namespace, id string) (*Socket, *fakeConn) {
	t.Helper()

	conn := &fakeConn{}
	socket := NewSocket(id, ns, conn, nil)
	socket.Activate(nil)
	require.Equal(t, StateActive, socket.State())

	conn.mu.Lock()
	conn.sent = nil
	conn.mu.Unlock()

	return socket, conn
}

func TestSocket_Activate(t *testing.T) {
	ns := NewNamespace("/chat", nil)
	conn := &fakeConn{}
	socket := NewSocket("abc", ns, conn, nil)
	assert.Equal(t, StateConnecting, socket.State())

	var connected *Socket
	socket.Activate(func(s *Socket) { connected = s })

	assert.Equal(t, StateActive, socket.State())
	assert.Same(t, socket, connected)
	assert.True(t, conn.started)
	assert.Equal(t, []string{`0/chat,{"sid":"abc"}`}, conn.getSent())
	assert.Equal(t, []string{"abc"}, ns.Connections())

	socket.Activate(func(*Socket) { t.Fatal("second activation ran onConnect") })
}

func TestSocket_DisconnectDuringConnect(t *testing.T) {
	ns := NewNamespace("/", nil)
	conn := &fakeConn{}
	socket := NewSocket("abc", ns, conn, nil)

	socket.Activate(func(s *Socket) { s.Disconnect() })

	assert.Equal(t, StateClosed, socket.State())
	assert.False(t, conn.started)
	assert.Empty(t, ns.Connections())
}

func TestSocket_HandleMessage(t *testing.T) {
	tests := []struct {
		name       string
		frame      string
		wantState  State
		wantReason string
		wantFrames []string
	}{
		{
			name:       "unregistered event broadcasts to namespace",
			frame:      `2["chat","hi"]`,
			wantState:  StateActive,
			wantFrames: []string{`chat,"hi"`},
		},
		{
			name:       "several arguments are forwarded as an array",
			frame:      `2["move",1,2]`,
			wantState:  StateActive,
			wantFrames: []string{`move,[1,2]`},
		},
		{
			name:       "non array payload is a message event",
			frame:      `2{"text":"hey"}`,
			wantState:  StateActive,
			wantFrames: []string{`message,{"text":"hey"}`},
		},
		{
			name:      "event without payload is ignored",
			frame:     "2",
			wantState: StateActive,
		},
		{
			name:      "ack is consumed",
			frame:     `35["ok"]`,
			wantState: StateActive,
		},
		{
			name:      "other namespace is ignored",
			frame:     `2/admin,["chat","hi"]`,
			wantState: StateActive,
		},
		{
			name:       "malformed frame closes the socket",
			frame:      `2["chat",`,
			wantState:  StateClosed,
			wantReason: "parse error",
		},
		{
			name:       "binary packet closes the socket",
			frame:      `51-["upload",{"_placeholder":true,"num":0}]`,
			wantState:  StateClosed,
			wantReason: "parse error",
		},
		{
			name:       "disconnect packet closes the socket",
			frame:      "1",
			wantState:  StateClosed,
			wantReason: "client namespace disconnect",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ns := NewNamespace("/", nil)
			socket, conn := newActiveSocket(t, ns, "a")
			peer := &mockHandle{}
			ns.AddConnection("b", peer)

			conn.deliver(tt.frame)

			assert.Equal(t, tt.wantState, socket.State())
			reason, closed := conn.closeReason()
			assert.Equal(t, tt.wantReason, reason)
			assert.Equal(t, tt.wantState == StateClosed, closed)

			if tt.wantState == StateClosed {
				assert.Equal(t, []string{"b"}, ns.Connections())
				assert.Empty(t, ns.Resolve("a"))
				return
			}

			assert.Equal(t, tt.wantFrames, peer.getFrames())
			if tt.wantFrames == nil {
				assert.Empty(t, conn.getSent())
			} else {
				assert.Equal(t, tt.wantFrames, conn.getSent(), "sender receives its own broadcast")
			}
		})
	}
}

func TestSocket_On(t *testing.T) {
	ns := NewNamespace("/", nil)
	socket, conn := newActiveSocket(t, ns, "a")
	peer := &mockHandle{}
	ns.AddConnection("b", peer)

	var got []Event
	socket.On("join", func(ev Event) {
		got = append(got, ev)
		socket.Join(ev.Args[0].(string))
	})

	conn.deliver(`27["join","lobby"]`)

	require.Len(t, got, 1)
	assert.Equal(t, "join", got[0].Name)
	assert.Equal(t, []interface{}{"lobby"}, got[0].Args)
	require.NotNil(t, got[0].AckID)
	assert.Equal(t, uint64(7), *got[0].AckID)
	assert.ElementsMatch(t, []string{"a", "lobby"}, socket.Rooms())
	assert.Empty(t, peer.getFrames(), "handled events are not broadcast")

	socket.Off("join")
	conn.deliver(`2["join","vip"]`)
	assert.Len(t, got, 1)
	assert.Equal(t, []string{`join,"vip"`}, peer.getFrames())
}

func TestSocket_BinaryFrame(t *testing.T) {
	ns := NewNamespace("/", nil)
	socket, conn := newActiveSocket(t, ns, "a")

	conn.onBinary([]byte{0x01, 0x02})

	assert.Equal(t, StateClosed, socket.State())
	reason, _ := conn.closeReason()
	assert.Equal(t, "binary frames not supported", reason)
	assert.Empty(t, ns.Connections())
}

func TestSocket_Close(t *testing.T) {
	ns := NewNamespace("/", nil)
	socket, conn := newActiveSocket(t, ns, "a")
	socket.Join("lobby")

	var reasons []string
	socket.OnDisconnect(func(reason string) { reasons = append(reasons, reason) })

	socket.Disconnect()
	socket.Disconnect()
	conn.onClose("client closed")

	assert.Equal(t, StateClosed, socket.State())
	assert.Equal(t, []string{"server disconnect"}, reasons)
	assert.Empty(t, ns.Rooms())

	assert.ErrorIs(t, socket.Push("late,1"), ErrSocketClosed)
	assert.ErrorIs(t, socket.Emit("late", 1), ErrSocketClosed)
	assert.Zero(t, ns.EmitToRooms([]string{"a"}, "late", "1"))
}

func TestSocket_TransportCloseTearsDown(t *testing.T) {
	ns := NewNamespace("/", nil)
	socket, conn := newActiveSocket(t, ns, "a")

	var reason string
	socket.OnDisconnect(func(r string) { reason = r })

	conn.Close("ping timeout")

	assert.Equal(t, StateClosed, socket.State())
	assert.Equal(t, "ping timeout", reason)
	assert.Empty(t, ns.Connections())
}

func TestSocket_Emit(t *testing.T) {
	ns := NewNamespace("/", nil)
	socket, conn := newActiveSocket(t, ns, "a")
	peer := &mockHandle{}
	ns.AddConnection("b", peer)

	require.NoError(t, socket.Emit("welcome", map[string]interface{}{"id": "a"}))

	assert.Equal(t, []string{`welcome,{"id":"a"}`}, conn.getSent())
	assert.Empty(t, peer.getFrames())
}

func TestSocket_Data(t *testing.T) {
	socket := NewSocket("a", NewNamespace("/", nil), &fakeConn{}, nil)

	socket.Set("user", "alice")
	v, ok := socket.Get("user")
	assert.True(t, ok)
	assert.Equal(t, "alice", v)

	_, ok = socket.Get("missing")
	assert.False(t, ok)
}

func TestEvent_Payload(t *testing.T) {
	tests := []struct {
		name string
		args []interface{}
		want string
	}{
		{name: "no arguments", args: []interface{}{}, want: "[]"},
		{name: "single argument", args: []interface{}{"hi"}, want: `"hi"`},
		{name: "several arguments", args: []interface{}{"a", float64(1)}, want: `["a",1]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Event{Args: tt.args}.Payload()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
