package reporter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 64 * 1024
	sendBuffer     = 64
)

// ErrClosed is returned once the hub has stopped.
var ErrClosed = errors.New("reporter hub closed")

// Handler receives decoded track events. Calls come from the connection's
// read goroutine, one at a time per client.
type Handler interface {
	HandleEvent(ctx context.Context, ev Event)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, ev Event)

func (f HandlerFunc) HandleEvent(ctx context.Context, ev Event) { f(ctx, ev) }

// Logger is the logging surface the hub needs.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...interface{}) {}
func (nopLogger) Infof(string, ...interface{})  {}
func (nopLogger) Warnf(string, ...interface{})  {}

// Config for a Hub.
type Config struct {
	// AllowedOrigins lists accepted Origin headers; empty or "*" accepts all.
	AllowedOrigins []string
	Logger         Logger
}

// Client is one extension connection.
type Client struct {
	ID   string
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// Hub tracks connected clients and fans messages out to them.
type Hub struct {
	upgrader websocket.Upgrader
	handler  Handler
	log      Logger
	now      func() time.Time

	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	done       chan struct{}
	stopOnce   sync.Once

	mu      sync.RWMutex
	clients map[*Client]struct{}
}

// NewHub creates a hub dispatching track events to handler (may be nil).
func NewHub(handler Handler, cfg Config) *Hub {
	if handler == nil {
		handler = HandlerFunc(func(context.Context, Event) {})
	}
	log := cfg.Logger
	if log == nil {
		log = nopLogger{}
	}
	h := &Hub{
		handler:    handler,
		log:        log,
		now:        time.Now,
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 64),
		done:       make(chan struct{}),
		clients:    make(map[*Client]struct{}),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     originChecker(cfg.AllowedOrigins),
	}
	return h
}

func originChecker(allowed []string) func(*http.Request) bool {
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = true
	}
	if len(set) == 0 {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || set[origin]
	}
}

// Run owns the client set until ctx is done, then closes every connection.
func (h *Hub) Run(ctx context.Context) {
	defer h.stop()
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			n := len(h.clients)
			h.mu.Unlock()
			h.log.Infof("reporter client %s connected (%d total)", c.ID, n)

		case c := <-h.unregister:
			h.remove(c)

		case msg := <-h.broadcast:
			h.fanOut(msg)

		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			h.mu.Unlock()
			return
		}
	}
}

func (h *Hub) stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
		close(c.send)
	}
	n := len(h.clients)
	h.mu.Unlock()
	if ok {
		h.log.Infof("reporter client %s disconnected (%d total)", c.ID, n)
	}
}

func (h *Hub) fanOut(msg []byte) {
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	if len(targets) == 0 {
		h.log.Debugf("no reporter clients connected, message dropped")
		return
	}
	for _, c := range targets {
		select {
		case c.send <- msg:
		default:
			h.log.Warnf("reporter client %s send buffer full, dropping client", c.ID)
			h.remove(c)
		}
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast sends an envelope of type t to every connected client.
func (h *Hub) Broadcast(t MessageType, data any) error {
	msg, err := NewMessage(t, data, h.now())
	if err != nil {
		return err
	}
	raw, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	select {
	case h.broadcast <- raw:
		return nil
	case <-h.done:
		return ErrClosed
	}
}

// BroadcastLyrics pushes a LYRICS_UPDATE to every client.
func (h *Hub) BroadcastLyrics(data any) error {
	return h.Broadcast(TypeLyricsUpdate, data)
}

// SendPlaybackCommand asks the extension to drive the page's player.
// seekTime is only meaningful for CommandSeek.
func (h *Hub) SendPlaybackCommand(cmd Command, seekTime *float64) error {
	return h.Broadcast(TypePlaybackCommand, PlaybackCommandData{Command: cmd, SeekTime: seekTime})
}

// ServeHTTP upgrades the request and serves the connection until it closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warnf("reporter upgrade failed: %v", err)
		return
	}

	c := &Client{
		ID:   uuid.New().String(),
		hub:  h,
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}

	if welcome, err := h.encode(TypeConnected, ConnectedData{ClientID: c.ID, Status: "ready"}); err == nil {
		c.send <- welcome
	}

	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}

	go c.writePump()
	c.readPump(r.Context())
}

func (h *Hub) encode(t MessageType, data any) ([]byte, error) {
	msg, err := NewMessage(t, data, h.now())
	if err != nil {
		return nil, err
	}
	return json.Marshal(msg)
}

func (h *Hub) leave(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

func (c *Client) readPump(ctx context.Context) {
	defer func() {
		c.hub.leave(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.hub.log.Warnf("reporter client %s read error: %v", c.ID, err)
			}
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(pongWait))

		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.hub.log.Warnf("reporter client %s sent an invalid message: %v", c.ID, err)
			continue
		}
		c.dispatch(ctx, &msg)
	}
}

func (c *Client) dispatch(ctx context.Context, msg *Message) {
	switch {
	case msg.MessageType == TypePing:
		if pong, err := c.hub.encode(TypePong, nil); err == nil {
			c.trySend(pong)
		}

	case msg.MessageType.IsTrackEvent():
		var track TrackUpdate
		if err := json.Unmarshal(msg.Data, &track); err != nil {
			c.hub.log.Warnf("reporter client %s: bad %s payload: %v", c.ID, msg.MessageType, err)
			return
		}
		c.hub.handler.HandleEvent(ctx, Event{
			Type:     msg.MessageType,
			ClientID: c.ID,
			Track:    track,
			Received: c.hub.now(),
		})

	default:
		c.hub.log.Debugf("reporter client %s: unknown message type %q", c.ID, msg.MessageType)
	}
}

// trySend queues msg unless the client has been removed or its buffer is
// full. Holding the read lock keeps remove from closing send underneath us.
func (c *Client) trySend(msg []byte) {
	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()
	if _, ok := c.hub.clients[c]; !ok {
		return
	}
	select {
	case c.send <- msg:
	default:
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
