package infrastructure

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"lostFoundWs/internal/modules/realtime/domain"
)

// ClientConfig holds the per-connection heartbeat and buffer settings.
type ClientConfig struct {
	SendBuffer        int
	PingInterval      time.Duration
	PongWait          time.Duration
	WriteWait         time.Duration
	MaxMessageBytes   int64
	KeepAliveInterval time.Duration
	HandshakeTimeout  time.Duration
}

func (c ClientConfig) withDefaults() ClientConfig {
	if c.SendBuffer <= 0 {
		c.SendBuffer = 16
	}
	if c.PongWait <= 0 {
		c.PongWait = 60 * time.Second
	}
	if c.PingInterval <= 0 || c.PingInterval >= c.PongWait {
		c.PingInterval = c.PongWait * 9 / 10
	}
	if c.WriteWait <= 0 {
		c.WriteWait = 5 * time.Second
	}
	if c.MaxMessageBytes <= 0 {
		c.MaxMessageBytes = 1 << 16
	}
	if c.KeepAliveInterval <= 0 {
		c.KeepAliveInterval = 15 * time.Second
	}
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = 15 * time.Second
	}
	return c
}

// Client is one browser tab/device. Its user id is fixed at connect time.
type Client struct {
	id         string
	userID     int64
	hub        *Hub
	conn       *websocket.Conn
	cfg        ClientConfig
	send       chan []byte
	done       chan struct{}
	commands   *CommandProcessor
	closeOnce  sync.Once
	closeHooks []func(*Client)
	hookMu     sync.Mutex
	writeMu    sync.Mutex
	handshaken atomic.Bool
	logger     *slog.Logger
}

// NewClient wraps an upgraded connection. commands may be nil.
func NewClient(hub *Hub, conn *websocket.Conn, connectionID string, userID int64, cfg ClientConfig, commands *CommandProcessor) *Client {
	cfg = cfg.withDefaults()
	return &Client{
		id:       connectionID,
		userID:   userID,
		hub:      hub,
		conn:     conn,
		cfg:      cfg,
		send:     make(chan []byte, cfg.SendBuffer),
		done:     make(chan struct{}),
		commands: commands,
		logger:   hub.logger.With(slog.Int64("userId", userID), slog.String("connectionId", connectionID)),
	}
}

func (c *Client) ID() string { return c.id }

func (c *Client) UserID() int64 { return c.userID }

// AddCloseHook registers a callback that will be executed once when the client closes.
func (c *Client) AddCloseHook(fn func(*Client)) {
	if fn == nil {
		return
	}
	c.hookMu.Lock()
	c.closeHooks = append(c.closeHooks, fn)
	c.hookMu.Unlock()
}

func (c *Client) invokeCloseHooks() {
	c.hookMu.Lock()
	hooks := append([]func(*Client){}, c.closeHooks...)
	c.closeHooks = nil
	c.hookMu.Unlock()

	for _, hook := range hooks {
		func(h func(*Client)) {
			defer func() {
				if r := recover(); r != nil {
					c.logger.Warn("ws close hook panic", slog.Any("error", r))
				}
			}()
			h(c)
		}(hook)
	}
}

// close reports whether this call did the closing.
func (c *Client) close() bool {
	closed := false
	c.closeOnce.Do(func() {
		closed = true
		close(c.done)
		_ = c.conn.Close()
		c.invokeCloseHooks()
	})
	return closed
}

func (c *Client) isClosed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// sendClose sends a hub close record allowing reconnect, once the handshake is done,
// and then a going-away close frame.
func (c *Client) sendClose(reason string) {
	if c.handshaken.Load() {
		if record, err := encodeRecord(closeMessage{Type: domain.MessageClose, AllowReconnect: true}); err == nil {
			_ = c.writeRecord(record)
		}
	}
	msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, reason)
	_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(c.cfg.WriteWait))
}

// writeRecord writes one text message. writeMu serializes the write pump with the
// handshake and shutdown writes.
func (c *Client) writeRecord(record []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
	return c.conn.WriteMessage(websocket.TextMessage, record)
}

func (c *Client) enqueue(data []byte) error {
	select {
	case <-c.done:
		return ErrConnectionClosed
	default:
	}
	select {
	case c.send <- data:
		return nil
	case <-c.done:
		return ErrConnectionClosed
	default:
		c.logger.Warn("websocket send buffer full")
		go c.hub.detachClient(c)
		return ErrSendBufferFull
	}
}

func (c *Client) sendRecord(v any) error {
	record, err := encodeRecord(v)
	if err != nil {
		return err
	}
	return c.enqueue(record)
}

// Serve runs the connection until it goes away: the hub protocol handshake, then
// attaching to the hub, then the pumps. Nothing reaches the client before the
// handshake is acknowledged.
func (c *Client) Serve() {
	pending, err := c.handshake()
	if err != nil {
		c.logger.Warn("ws handshake failed", slog.Any("error", err))
		c.close()
		return
	}
	if err := c.hub.Attach(c); err != nil {
		c.logger.Info("ws client not attached", slog.Any("error", err))
		c.close()
		return
	}
	ack, _ := encodeRecord(handshakeResponse{})
	if err := c.writeRecord(ack); err != nil {
		c.logger.Warn("ws handshake ack failed", slog.Any("error", err))
		c.hub.detachClient(c)
		return
	}
	c.handshaken.Store(true)
	go c.writePump()
	c.handleRecords(pending)
	c.readPump()
}

func (c *Client) handshake() ([][]byte, error) {
	c.conn.SetReadLimit(c.cfg.MaxMessageBytes)
	_ = c.conn.SetReadDeadline(time.Now().Add(c.cfg.HandshakeTimeout))
	_, raw, err := c.conn.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHandshakeFailed, err)
	}
	pending, err := parseHandshake(raw)
	if err != nil {
		if record, encErr := encodeRecord(handshakeResponse{Error: err.Error()}); encErr == nil {
			_ = c.writeRecord(record)
		}
		return nil, err
	}
	return pending, nil
}

// writePump drains the send queue, pings on an interval and keeps the hub protocol
// alive. It returns, detaching the client, on the first write error.
func (c *Client) writePump() {
	ping := time.NewTicker(c.cfg.PingInterval)
	defer ping.Stop()
	keepAlive := time.NewTicker(c.cfg.KeepAliveInterval)
	defer keepAlive.Stop()
	defer c.hub.detachClient(c)

	for {
		select {
		case <-c.done:
			return
		case msg := <-c.send:
			if err := c.writeRecord(msg); err != nil {
				c.logger.Warn("websocket write error", slog.Any("error", err))
				return
			}
		case <-keepAlive.C:
			if err := c.writeRecord(pingRecord); err != nil {
				c.logger.Warn("websocket keepalive error", slog.Any("error", err))
				return
			}
		case <-ping.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.cfg.WriteWait)); err != nil {
				c.logger.Warn("websocket ping error", slog.Any("error", err))
				return
			}
		}
	}
}

// readPump reads hub protocol records until the peer goes away or misses a pong,
// then detaches the client.
func (c *Client) readPump() {
	c.conn.SetReadLimit(c.cfg.MaxMessageBytes)
	_ = c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	})
	defer c.hub.detachClient(c)
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Warn("websocket read error", slog.Any("error", err))
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
		c.handleRecords(splitRecords(raw))
	}
}

func (c *Client) handleRecords(records [][]byte) {
	for _, record := range records {
		var cmd Command
		if err := json.Unmarshal(record, &cmd); err != nil {
			c.logger.Debug("ws record undecodable", slog.Any("error", err))
			continue
		}
		c.processCommand(cmd)
	}
}

func (c *Client) processCommand(cmd Command) {
	if c.commands == nil {
		return
	}
	c.commands.Process(c, cmd)
}
