package server

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/michaelbrown/explorer/internal/sandbox"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// wsIncoming is a message from the client: "run" with code as content, or
// "cancel".
type wsIncoming struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

// wsOutgoing is a message to the client.
type wsOutgoing struct {
	Type      string `json:"type"`
	Content   string `json:"content,omitempty"`
	RunID     string `json:"run_id,omitempty"`
	Truncated bool   `json:"truncated,omitempty"`
}

// handleWebSocket streams playground output. Each connection runs one
// snippet at a time; output arrives as "output" chunks followed by "done"
// with the full output or "error" with the failure message.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	// Mutex for thread-safe writes to the WebSocket connection
	var wsMu sync.Mutex
	send := func(msg wsOutgoing) {
		wsMu.Lock()
		defer wsMu.Unlock()
		s.wsWriteJSON(conn, msg)
	}

	id := uuid.New().String()
	pg := s.playgrounds.Open(id)

	// Cancel the in-flight run first, then wait for it to drain.
	var wg sync.WaitGroup
	defer wg.Wait()
	defer s.playgrounds.Remove(id)

	for {
		var msg wsIncoming
		if err := conn.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Debug("websocket read ended", zap.String("conn", id), zap.Error(err))
			}
			return
		}

		switch msg.Type {
		case "run":
			ctx, ok := pg.begin()
			if !ok {
				send(wsOutgoing{Type: "error", Content: "a run is already in progress"})
				continue
			}
			wg.Add(1)
			go func(code string) {
				defer wg.Done()

				run := s.runner.Run(ctx, code, func(chunk string) {
					send(wsOutgoing{Type: "output", Content: chunk})
				})
				// Idle before reporting so the client can run again at once.
				pg.finish()

				if run.Outcome == sandbox.OutcomeFailure {
					send(wsOutgoing{Type: "error", Content: run.Message, RunID: run.ID})
					return
				}
				send(wsOutgoing{Type: "done", Content: run.Output, RunID: run.ID, Truncated: run.Truncated})
			}(msg.Content)
		case "cancel":
			pg.Cancel()
		default:
			send(wsOutgoing{Type: "error", Content: "invalid message"})
		}
	}
}

func (s *Server) wsWriteJSON(conn *websocket.Conn, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		s.log.Error("websocket marshal failed", zap.Error(err))
		return
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		s.log.Debug("websocket write failed", zap.Error(err))
	}
}
