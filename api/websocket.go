package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/netshark/netshark/model"
	"github.com/netshark/netshark/printer"
)

// wsPingInterval matches §6.2's "sent every 5s" ping cadence. wsPongTimeout
// is 3x that, per the spec's "closes if no pong/data for 15s".
const (
	wsPingInterval = 5 * time.Second
	wsPongTimeout  = 15 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type wsStatusMessage struct {
	Type        string `json:"type"`
	Running     bool   `json:"running"`
	PacketCount int    `json:"packet_count"`
}

type wsStatsMessage struct {
	Type  string      `json:"type"`
	Stats model.Stats `json:"stats"`
}

type wsPingMessage struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`
}

func (s *Server) statusMessage() wsStatusMessage {
	st := s.manager.Status()
	return wsStatusMessage{Type: "status", Running: st.IsRunning, PacketCount: st.PacketCount}
}

func (s *Server) statsMessage() wsStatsMessage {
	return wsStatsMessage{Type: "stats", Stats: s.manager.Stats()}
}

// handleWebSocket upgrades the connection and runs two goroutines bound
// together by a single writer: a subscriber-forwarding loop (one Stats
// Broadcaster subscription per connection) and the write pump, which is
// also the only place that sends the 5s heartbeat. The calling goroutine
// becomes the read pump, dispatching client text commands and enforcing
// the 15s pong/data deadline.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		printer.Debugf("api: websocket upgrade failed: %v\n", err)
		return
	}
	defer conn.Close()

	sub := s.manager.SubscribeStats()
	defer s.manager.UnsubscribeStats(sub)

	outbound := make(chan interface{}, 8)
	done := make(chan struct{})
	var closer onceCloser

	conn.SetReadDeadline(time.Now().Add(wsPongTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(wsPongTimeout))
		return nil
	})

	// A write failure tears the connection down immediately rather than
	// waiting out the pong deadline: closing conn here unblocks the read
	// pump's ReadMessage below.
	go s.wsWritePump(conn, outbound, done, &closer)
	go s.wsForwardStats(sub, outbound, done)

	outbound <- s.statusMessage()
	outbound <- s.statsMessage()

	defer closer.do(func() { close(done); conn.Close() })

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		conn.SetReadDeadline(time.Now().Add(wsPongTimeout))
		if msgType != websocket.TextMessage {
			continue
		}
		switch string(data) {
		case "status":
			outbound <- s.statusMessage()
		case "stats":
			outbound <- s.statsMessage()
		}
	}
}

// wsWritePump is the connection's sole writer: it serializes everything
// sent to outbound as JSON, in arrival order, and additionally emits both
// a JSON ping message and a native WebSocket ping control frame every
// wsPingInterval (the client's pong reply feeds the read pump's deadline
// reset via SetPongHandler). It exits when done closes or a write fails.
func (s *Server) wsWritePump(conn *websocket.Conn, outbound <-chan interface{}, done chan struct{}, closer *onceCloser) {
	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()

	fail := func() { closer.do(func() { close(done); conn.Close() }) }

	for {
		select {
		case msg := <-outbound:
			if err := conn.WriteJSON(msg); err != nil {
				fail()
				return
			}
		case t := <-ticker.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				fail()
				return
			}
			if err := conn.WriteJSON(wsPingMessage{Type: "ping", Timestamp: t.Unix()}); err != nil {
				fail()
				return
			}
		case <-done:
			return
		}
	}
}

// wsForwardStats relays every snapshot the connection's Stats Broadcaster
// subscription receives onto outbound, tagged as a stats message.
func (s *Server) wsForwardStats(sub <-chan model.Stats, outbound chan<- interface{}, done <-chan struct{}) {
	for {
		select {
		case snapshot, ok := <-sub:
			if !ok {
				return
			}
			select {
			case outbound <- wsStatsMessage{Type: "stats", Stats: snapshot}:
			case <-done:
				return
			}
		case <-done:
			return
		}
	}
}

// onceCloser runs fn at most once, guarding against a doubly-closed done
// channel when both the read loop and a write failure try to tear down
// the connection.
type onceCloser struct {
	once sync.Once
}

func (c *onceCloser) do(fn func()) {
	c.once.Do(fn)
}
