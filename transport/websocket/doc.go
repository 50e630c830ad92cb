// Package websocket provides the WebSocket transport for the telemetry dashboard.
//
// The websocket package implements both ends of the dashboard socket:
//   - Conn: the view-side connection that dials one endpoint and delivers
//     text frames to registered handlers
//   - Hub: the server-side fan-out that pushes dashboard snapshots to every
//     connected view
//
// Message Protocol:
//
// Every text frame carries exactly one JSON object. There is no
// sub-protocol and no envelope: the object itself is the telemetry, e.g.
// {"orders": 3, "customers": 1, "products": 7}. Frames are never batched.
//
// Client Lifecycle:
//
//	conn, err := websocket.Dial(ctx, "ws://localhost:8082/dashboard", websocket.Handlers{
//		OnOpen:    func() { ... },
//		OnMessage: func(data []byte) { ... },
//		OnClose:   func(err error) { ... },
//	})
//	defer conn.Close()
//
// OnOpen runs once after the handshake. OnMessage runs on a single read
// goroutine, so handlers never overlap. OnClose runs exactly once when the
// read loop ends. Close is idempotent. There is no reconnection: a closed
// Conn stays closed.
//
// Hub Lifecycle:
//
//	hub := websocket.NewHub(logger)
//	go hub.Run()
//	defer hub.Stop()
//
//	http.HandleFunc("/dashboard", func(w http.ResponseWriter, r *http.Request) {
//		hub.ServeWS(w, r, currentSnapshot) // func() []byte
//	})
//	hub.Publish(nextSnapshot)
//
// The hub loop calls the ServeWS callback when it registers the client and
// sends its result first. Registration and broadcasts are handled by the same
// loop, so every payload published after the callback ran reaches the client. A client whose send buffer is full is dropped.
package websocket
