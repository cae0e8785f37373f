package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/bbernstein/lacylights-console/internal/services/pubsub"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 4096
	eventBuffer    = 64
)

// parseTopics reads the comma-separated "topics" query parameter. An empty
// value subscribes to every topic.
func parseTopics(raw string) []pubsub.Topic {
	if strings.TrimSpace(raw) == "" {
		return append([]pubsub.Topic(nil), pubsub.AllTopics...)
	}
	known := make(map[pubsub.Topic]bool, len(pubsub.AllTopics))
	for _, t := range pubsub.AllTopics {
		known[t] = true
	}
	var topics []pubsub.Topic
	for _, part := range strings.Split(raw, ",") {
		t := pubsub.Topic(strings.ToUpper(strings.TrimSpace(part)))
		if known[t] {
			topics = append(topics, t)
		}
	}
	return topics
}

// handleWebSocket streams console events as JSON. Text messages sent by the
// client are submitted as command lines; their results arrive as
// COMMAND_RESULT events.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	topics := parseTopics(r.URL.Query().Get("topics"))
	if len(topics) == 0 {
		writeError(w, http.StatusBadRequest, "no known topics requested")
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	sub := s.events.Subscribe(topics, r.URL.Query().Get("filter"), eventBuffer)
	log.Debug().Str("subscriber", sub.ID).Int("topics", len(topics)).Msg("🔌 WebSocket client connected")

	done := make(chan struct{})
	go s.readCommands(conn, done)
	s.writeEvents(conn, sub, done)

	s.events.Unsubscribe(sub)
	_ = conn.Close()
	log.Debug().Str("subscriber", sub.ID).Msg("🔌 WebSocket client disconnected")
}

// readCommands runs until the client goes away, then closes done.
func (s *Server) readCommands(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)

	conn.SetReadLimit(maxMessageSize)
	pongWait := 3 * s.pingInterval
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Msg("WebSocket read error")
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		if kind == websocket.TextMessage {
			s.console.Submit(string(data))
		}
	}
}

// writeEvents owns all writes to the connection.
func (s *Server) writeEvents(conn *websocket.Conn, sub *pubsub.Subscriber, done <-chan struct{}) {
	ticker := time.NewTicker(s.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case evt, ok := <-sub.Channel:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(evt); err != nil {
				log.Debug().Err(err).Msg("WebSocket write failed")
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
