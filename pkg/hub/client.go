package hub

import (
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

// Stream timing. Viewers ping-pong over a minute so a closed laptop lid is
// noticed without cutting a slow status reader.
const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10

	// Dashboards only ever send control frames.
	maxMessageSize = 4 * 1024

	// Frames queued per viewer before the hub drops it.
	sendBuffer = 64
)

// conn is the part of a websocket connection a Client drives.
// *websocket.Conn satisfies it.
type conn interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(messageType int, data []byte) error
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	Close() error
}

// Client is one dashboard subscriber: a websocket fed from a hub's stream
// of status updates, log lines or viewer frames.
type Client struct {
	ID   uuid.UUID
	hub  *Hub
	ws   conn
	send chan Message
}

// NewClient binds conn to hub. It subscribes when Run is called.
func NewClient(hub *Hub, ws *websocket.Conn) *Client {
	c := newClient(hub, nil)
	if ws != nil {
		c.ws = ws
	}
	return c
}

func newClient(hub *Hub, ws conn) *Client {
	return &Client{
		ID:   uuid.New(),
		hub:  hub,
		ws:   ws,
		send: make(chan Message, sendBuffer),
	}
}

// Run subscribes the client and serves it until the viewer disconnects or
// the hub stops. Fiber handlers call it and return when it does.
func (c *Client) Run() {
	if !c.hub.Register(c) {
		c.ws.Close()
		return
	}
	go c.forward()
	c.watch()
}

// Messages is the client's queue. In-process subscribers read it directly.
func (c *Client) Messages() <-chan Message {
	return c.send
}

// watch consumes pongs and close frames. A read error means the viewer is
// gone, so the client leaves the hub.
func (c *Client) watch() {
	defer func() {
		c.hub.Unregister(c)
		c.ws.Close()
	}()

	extend := func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	}
	c.ws.SetReadLimit(maxMessageSize)
	_ = extend("")
	c.ws.SetPongHandler(extend)

	for {
		if _, _, err := c.ws.ReadMessage(); err != nil {
			return
		}
	}
}

// forward owns all writes: queued messages plus keepalive pings.
func (c *Client) forward() {
	ping := time.NewTicker(pingPeriod)
	defer func() {
		ping.Stop()
		c.ws.Close()
	}()

	for {
		var (
			kind int
			data []byte
		)
		select {
		case msg, ok := <-c.send:
			if !ok {
				// Dropped or hub stopped.
				_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
				_ = c.ws.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			kind, data = msg.Type.opcode(), msg.Data
		case <-ping.C:
			kind = websocket.PingMessage
		}

		_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.ws.WriteMessage(kind, data); err != nil {
			return
		}
	}
}

func (t MessageType) opcode() int {
	if t == BinaryMessage {
		return websocket.BinaryMessage
	}
	return websocket.TextMessage
}
