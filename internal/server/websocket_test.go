package server

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/michaelbrown/explorer/internal/sandbox"
)

func dialPlayground(t *testing.T, s *Server) *websocket.Conn {
	t.Helper()
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/run/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readUntilFinal collects messages up to and including "done" or "error".
func readUntilFinal(t *testing.T, conn *websocket.Conn) []wsOutgoing {
	t.Helper()
	var msgs []wsOutgoing
	for {
		conn.SetReadDeadline(time.Now().Add(10 * time.Second))
		var msg wsOutgoing
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read: %v (so far %+v)", err, msgs)
		}
		msgs = append(msgs, msg)
		if msg.Type == "done" || msg.Type == "error" {
			return msgs
		}
	}
}

func TestWebSocketRun(t *testing.T) {
	s := newTestServer(t, sandbox.DefaultPolicy(), nil)
	conn := dialPlayground(t, s)

	if err := conn.WriteJSON(wsIncoming{Type: "run", Content: "print(1)\nprint(2)"}); err != nil {
		t.Fatal(err)
	}
	msgs := readUntilFinal(t, conn)

	var streamed string
	for _, m := range msgs[:len(msgs)-1] {
		if m.Type != "output" {
			t.Errorf("unexpected message %+v", m)
		}
		streamed += m.Content
	}
	final := msgs[len(msgs)-1]
	if final.Type != "done" || final.Content != "1\n2\n" || final.RunID == "" {
		t.Errorf("final = %+v", final)
	}
	if streamed != final.Content {
		t.Errorf("streamed %q, final %q", streamed, final.Content)
	}

	// The connection accepts another run once the first is done.
	conn.WriteJSON(wsIncoming{Type: "run", Content: "fail('boom')"})
	msgs = readUntilFinal(t, conn)
	final = msgs[len(msgs)-1]
	if final.Type != "error" || !strings.Contains(final.Content, "boom") {
		t.Errorf("final = %+v", final)
	}
}

func TestWebSocketInvalidMessage(t *testing.T) {
	s := newTestServer(t, sandbox.DefaultPolicy(), nil)
	conn := dialPlayground(t, s)

	conn.WriteJSON(wsIncoming{Type: "message", Content: "hi"})
	msgs := readUntilFinal(t, conn)
	if msgs[0].Type != "error" || msgs[0].Content != "invalid message" {
		t.Errorf("got %+v", msgs[0])
	}
}

func TestWebSocketCancel(t *testing.T) {
	s := newTestServer(t, sandbox.Policy{MaxTimeout: time.Minute}, nil)
	conn := dialPlayground(t, s)

	conn.WriteJSON(wsIncoming{Type: "run", Content: "while True:\n    pass\n"})
	conn.WriteJSON(wsIncoming{Type: "run", Content: "print(1)"})

	msgs := readUntilFinal(t, conn)
	if msgs[0].Content != "a run is already in progress" {
		t.Fatalf("got %+v, want busy error", msgs[0])
	}

	conn.WriteJSON(wsIncoming{Type: "cancel"})
	msgs = readUntilFinal(t, conn)
	final := msgs[len(msgs)-1]
	if final.Type != "error" || !strings.Contains(final.Content, "cancelled") {
		t.Errorf("final = %+v", final)
	}
}

func TestShutdownCancelsPlaygroundRuns(t *testing.T) {
	s := newTestServer(t, sandbox.Policy{MaxTimeout: time.Minute}, nil)
	conn := dialPlayground(t, s)

	conn.WriteJSON(wsIncoming{Type: "run", Content: "while True:\n    pass\n"})

	deadline := time.Now().Add(5 * time.Second)
	for s.playgrounds.Len() == 0 || !s.anyBusy() {
		if time.Now().After(deadline) {
			t.Fatal("run never started")
		}
		time.Sleep(10 * time.Millisecond)
	}

	s.playgrounds.CloseAll()
	msgs := readUntilFinal(t, conn)
	if final := msgs[len(msgs)-1]; final.Type != "error" {
		t.Errorf("final = %+v", final)
	}
}

func (s *Server) anyBusy() bool {
	s.playgrounds.mu.RLock()
	defer s.playgrounds.mu.RUnlock()
	for _, p := range s.playgrounds.playgrounds {
		if p.Busy() {
			return true
		}
	}
	return false
}
