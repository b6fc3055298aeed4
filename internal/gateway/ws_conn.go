package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/eleven-am/sightline/internal/transport"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 2 * 1024 * 1024
	bufferSize     = 128
)

var ErrConnectionClosed = errors.New("connection closed")

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// WSDeviceConnection frames envelopes over one device websocket. Frames are
// large, so the read limit is sized for a JPEG snapshot.
type WSDeviceConnection struct {
	ws       *websocket.Conn
	deviceID string
	logger   *slog.Logger
	send     chan transport.Envelope
	messages chan transport.Envelope
	mu       sync.RWMutex
	closed   bool
	done     chan struct{}
}

func NewWSDeviceConnection(ws *websocket.Conn, deviceID string, logger *slog.Logger) *WSDeviceConnection {
	if logger == nil {
		logger = slog.Default()
	}
	return &WSDeviceConnection{
		ws:       ws,
		deviceID: deviceID,
		logger:   logger.With("device_id", deviceID),
		send:     make(chan transport.Envelope, bufferSize),
		messages: make(chan transport.Envelope, bufferSize),
		done:     make(chan struct{}),
	}
}

func (c *WSDeviceConnection) DeviceID() string {
	return c.deviceID
}

func (c *WSDeviceConnection) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.closed
}

// Send queues an envelope for the write pump. A full buffer drops the message.
func (c *WSDeviceConnection) Send(_ context.Context, env transport.Envelope) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrConnectionClosed
	}

	select {
	case c.send <- env:
	default:
		c.logger.Warn("send buffer full, dropping message", "type", env.Type)
	}
	return nil
}

func (c *WSDeviceConnection) Messages() <-chan transport.Envelope {
	return c.messages
}

func (c *WSDeviceConnection) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.done)
	close(c.send)
	c.mu.Unlock()

	return c.ws.Close()
}

// readPump owns the messages channel and closes it when the socket goes away.
func (c *WSDeviceConnection) readPump(ctx context.Context) {
	defer func() {
		close(c.messages)
		c.Close()
	}()

	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		default:
		}

		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.logger.Error("websocket read error", "error", err)
			}
			return
		}

		var env transport.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			c.logger.Warn("failed to unmarshal message", "error", err)
			continue
		}
		if env.Type == "" {
			continue
		}

		select {
		case c.messages <- env:
		case <-ctx.Done():
			return
		case <-c.done:
			return
		}
	}
}

func (c *WSDeviceConnection) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case env, ok := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			data, err := json.Marshal(env)
			if err != nil {
				c.logger.Error("failed to marshal message", "error", err)
				continue
			}

			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				c.logger.Error("websocket write error", "error", err)
				return
			}

		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
