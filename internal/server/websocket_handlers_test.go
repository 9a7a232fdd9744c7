package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/MeKo-Tech/cardscan/internal/scanner"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// wsMessage is the union of the messages the server sends.
type wsMessage struct {
	Type  string `json:"type"`
	Error string `json:"error"`
	Event struct {
		State  string          `json:"state"`
		Note   string          `json:"note"`
		Commit *scanner.Commit `json:"commit"`
	} `json:"event"`
}

func dialScan(t *testing.T, s *Server) *websocket.Conn {
	t.Helper()
	ts := httptest.NewServer(newTestMux(s))
	t.Cleanup(ts.Close)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/scan"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	_ = resp.Body.Close()
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// readUntil reads messages until match accepts one or the deadline passes.
func readUntil(t *testing.T, conn *websocket.Conn, match func(wsMessage) bool) wsMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		var msg wsMessage
		require.NoError(t, json.Unmarshal(data, &msg), string(data))
		if match(msg) {
			return msg
		}
	}
}

func sendControl(t *testing.T, conn *websocket.Conn, kind string) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(ControlMessage{Type: kind}))
}

func TestScanWebSocket_Controls(t *testing.T) {
	s, _ := newTestServer(t, "Dark Magician", Config{})
	conn := dialScan(t, s)

	sendControl(t, conn, "pause")
	readUntil(t, conn, func(m wsMessage) bool { return m.Type == "state" && m.Event.State == string(scanner.Paused) })

	sendControl(t, conn, "resume")
	readUntil(t, conn, func(m wsMessage) bool { return m.Type == "state" && m.Event.State == string(scanner.Armed) })

	sendControl(t, conn, "reset")
	readUntil(t, conn, func(m wsMessage) bool { return m.Type == "state" && m.Event.State == string(scanner.Idle) })

	sendControl(t, conn, "rewind")
	msg := readUntil(t, conn, func(m wsMessage) bool { return m.Type == "error" })
	assert.Contains(t, msg.Error, "unsupported control type: rewind")

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	msg = readUntil(t, conn, func(m wsMessage) bool { return m.Type == "error" })
	assert.Contains(t, msg.Error, "invalid control message")
}

func TestScanWebSocket_InvalidFrame(t *testing.T) {
	s, _ := newTestServer(t, "Dark Magician", Config{})
	conn := dialScan(t, s)

	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, []byte("garbage")))
	msg := readUntil(t, conn, func(m wsMessage) bool { return m.Type == "error" })
	assert.Contains(t, msg.Error, "invalid frame")
}

func TestScanWebSocket_CommitsCard(t *testing.T) {
	s, calls := newTestServer(t, "Dark Magician", Config{})
	conn := dialScan(t, s)

	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, cardPNG(t, "Dark Magician")))

	msg := readUntil(t, conn, func(m wsMessage) bool { return m.Type == "commit" })
	require.NotNil(t, msg.Event.Commit)
	assert.Equal(t, "Dark Magician", msg.Event.Commit.CanonicalName)
	assert.Equal(t, "Dark Magician", msg.Event.Commit.RecognizedText)
	assert.Equal(t, 100, msg.Event.Commit.Accuracy)
	assert.Equal(t, string(scanner.Committed), msg.Event.State)

	// The session rests after a commit: no further reads until resumed.
	readUntil(t, conn, func(m wsMessage) bool { return m.Event.State == string(scanner.Committed) && m.Type == "state" })
	settled := calls.Load()
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, settled, calls.Load())

	sendControl(t, conn, "resume")
	readUntil(t, conn, func(m wsMessage) bool { return m.Event.State == string(scanner.Armed) })
}

func TestScanWebSocket_CloseEndsSessions(t *testing.T) {
	s, _ := newTestServer(t, "Dark Magician", Config{})
	conn := dialScan(t, s)

	// The first tick proves the session is running and tracked.
	readUntil(t, conn, func(m wsMessage) bool { return m.Type == "state" })
	require.NoError(t, s.Close())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var err error
	for err == nil {
		_, _, err = conn.ReadMessage()
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) {
		assert.False(t, netErr.Timeout(), "connection was not closed")
	}

	assert.Eventually(t, func() bool {
		s.liveMu.Lock()
		defer s.liveMu.Unlock()
		return len(s.live) == 0
	}, 5*time.Second, 10*time.Millisecond)
}

func TestScanWebSocket_NotReady(t *testing.T) {
	s := &Server{}
	w := httptest.NewRecorder()
	s.scanWebSocketHandler(w, httptest.NewRequest(http.MethodGet, "/ws/scan", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

type recordingConn struct {
	mu       sync.Mutex
	messages [][]byte
	deadline time.Time
}

func (c *recordingConn) WriteMessage(_ int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, data)
	return nil
}

func (c *recordingConn) SetWriteDeadline(t time.Time) error {
	c.deadline = t
	return nil
}

func TestWriteText(t *testing.T) {
	conn := &recordingConn{}
	require.NoError(t, writeText(conn, []byte(`{"type":"state"}`)))
	require.Len(t, conn.messages, 1)
	assert.JSONEq(t, `{"type":"state"}`, string(conn.messages[0]))
	assert.WithinDuration(t, time.Now().Add(wsWriteTimeout), conn.deadline, time.Second)
}
