// Package gosio implements the server side of the Socket.IO packet protocol
// over plain WebSocket connections.
//
// It covers three parts: the text packet codec, the namespace and room
// registry used to resolve broadcast targets, and the per-connection
// lifecycle (heartbeat, inbound decoding, teardown). Engine.IO framing,
// long-polling and binary attachments are not supported.
//
// # Quick Start
//
//	server, err := gosio.NewServer(nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	server.OnConnect(func(socket *gosio.Socket) {
//	    socket.On("join", func(ev gosio.Event) {
//	        if room, ok := ev.Args[0].(string); ok {
//	            socket.Join(room)
//	        }
//	    })
//	})
//
//	http.Handle("/ws", server)
//	http.ListenAndServe(":3000", nil)
//
// # Wire format
//
// Every text frame is one packet:
//
//	<type digit>[<namespace>,][<ack id>][<json payload>]
//
// For example 0/chat,5{"ok":true} is a connect packet for "/chat" with ack
// id 5. A digit run right after the namespace is always the ack id.
//
// Outbound events are rendered as "<event>,<json payload>".
//
// # Namespaces and rooms
//
// Namespaces are created explicitly, "/" exists by default. Every socket is
// placed in a room named after its own id so that point-to-point sends use
// the same path as room broadcasts. Empty rooms are removed.
//
//	chat, _ := server.CreateNamespace("/chat")
//	chat.EmitToRooms([]string{"lobby"}, "news", `"hello"`)
//	chat.To("lobby").Except(socket.ID()).Emit("news", "hello others")
//
// # Events
//
// An event packet with no registered handler is broadcast to the whole
// namespace. Handlers registered with Socket.On replace that behavior for
// their event name.
//
// # Liveness
//
// Each connection sends a WebSocket ping every PingInterval and is closed
// once nothing has been received from the peer for longer than PingTimeout.
package gosio
