// arwatch - prints the AR viewer's pose stream
//
// Connects to the dashboard's status websocket and prints one line per
// camera update. With -logs it follows the dashboard log instead.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/websocket"
	"github.com/teslashibe/go-arpose/pkg/tracking"
	"github.com/teslashibe/go-arpose/pkg/web"
)

func main() {
	host := flag.String("host", "localhost:8181", "Dashboard host:port")
	logs := flag.Bool("logs", false, "Follow the dashboard log instead of the pose stream")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	path, format := "/ws/status", formatStatus
	if *logs {
		path, format = "/ws/logs", formatLog
	}
	u := url.URL{Scheme: "ws", Host: *host, Path: path}

	fmt.Printf("📡 Watching %s (Ctrl+C to stop)\n", u.String())
	if err := watch(ctx, u.String(), os.Stdout, format); err != nil && ctx.Err() == nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
	fmt.Println("\n👋 Goodbye!")
}

// watch reads JSON messages from the websocket at addr and writes one
// formatted line per message until ctx is done or the server hangs up.
func watch(ctx context.Context, addr string, out io.Writer, format func([]byte) (string, error)) error {
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, addr, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	defer ws.Close()

	go func() {
		<-ctx.Done()
		ws.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		ws.Close()
	}()

	for {
		msgType, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return err
		}
		if msgType != websocket.TextMessage {
			continue
		}
		line, err := format(data)
		if err != nil {
			fmt.Fprintf(out, "⚠️  bad message: %v\n", err)
			continue
		}
		fmt.Fprintln(out, line)
	}
}

func formatStatus(data []byte) (string, error) {
	var s tracking.Status
	if err := json.Unmarshal(data, &s); err != nil {
		return "", err
	}
	mode := "observe"
	if s.Chaotic {
		mode = "predict"
	}
	feed := "off"
	if s.Feed {
		feed = "on"
	}
	return fmt.Sprintf("%-13s feed=%-3s pos=(%8.2f %8.2f %8.2f) rot=(%7.2f° %7.2f° %7.2f°) %s",
		s.Phase, feed,
		s.Position[0], s.Position[1], s.Position[2],
		s.Rotation[0], s.Rotation[1], s.Rotation[2],
		mode), nil
}

func formatLog(data []byte) (string, error) {
	var e web.LogEntry
	if err := json.Unmarshal(data, &e); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s [%s] %s", e.Time, e.Type, e.Message), nil
}
