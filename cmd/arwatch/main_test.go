package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teslashibe/go-arpose/pkg/tracking"
)

func statusServer(t *testing.T, messages ...[]byte) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if !assert.NoError(t, err) {
			return
		}
		defer ws.Close()
		for _, m := range messages {
			assert.NoError(t, ws.WriteMessage(websocket.TextMessage, m))
		}
		ws.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "done"))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestWatch_PrintsStatus(t *testing.T) {
	st, err := json.Marshal(tracking.Status{
		Phase:    "tracking",
		Position: [3]float64{0, 0, 100},
		Feed:     true,
		Chaotic:  true,
	})
	require.NoError(t, err)

	srv := statusServer(t, st, []byte("not json"))
	addr := "ws" + strings.TrimPrefix(srv.URL, "http")

	var out bytes.Buffer
	require.NoError(t, watch(context.Background(), addr, &out, formatStatus))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "tracking")
	assert.Contains(t, lines[0], "feed=on")
	assert.Contains(t, lines[0], "100.00")
	assert.Contains(t, lines[0], "predict")
	assert.Contains(t, lines[1], "bad message")
}

func TestWatch_DialError(t *testing.T) {
	err := watch(context.Background(), "ws://127.0.0.1:1/ws/status", &bytes.Buffer{}, formatStatus)
	assert.Error(t, err)
}

func TestFormatLog(t *testing.T) {
	line, err := formatLog([]byte(`{"time":"12:00:00","type":"init","message":"Reference cloud captured (51 points)"}`))
	require.NoError(t, err)
	assert.Equal(t, "12:00:00 [init] Reference cloud captured (51 points)", line)
}
