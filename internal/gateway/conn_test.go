package gateway

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/websocket"
)

func newTestConn(t *testing.T) *wsConn {
	t.Helper()
	upgraded := make(chan *wsConn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := wsUpgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		upgraded <- newWSConn(ws, slog.New(slog.NewTextHandler(io.Discard, nil)))
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { client.Close() })

	return <-upgraded
}

func TestWSConn_SendCloseRace(t *testing.T) {
	conn := newTestConn(t)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				conn.Send(&ServerMessage{Type: ServerTypeNotice, Text: "x"})
			}
		}()
	}

	if err := conn.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	wg.Wait()

	// Late sends and repeat closes are no-ops on a closed connection.
	conn.Send(&ServerMessage{Type: ServerTypeNotice, Text: "late"})
	if err := conn.Close(); err != nil {
		t.Errorf("second close should be a no-op, got %v", err)
	}
}

func TestWSConn_SendAfterCloseIsDiscarded(t *testing.T) {
	conn := newTestConn(t)

	if err := conn.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	conn.Send(&ServerMessage{Type: ServerTypeNotice, Text: "dropped"})

	select {
	case _, ok := <-conn.send:
		if ok {
			t.Error("message queued on a closed connection")
		}
	default:
		t.Error("send channel should be closed")
	}
}
