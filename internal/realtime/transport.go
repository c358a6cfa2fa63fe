package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/guipratiko/front-conexprob/internal/protocol"
)

// Conn is an open realtime connection.
type Conn interface {
	ReadEnvelope() (protocol.Envelope, error)
	WriteEnvelope(env protocol.Envelope) error
	Close() error
}

// Dialer opens connections authenticated by a bearer token.
type Dialer interface {
	Dial(ctx context.Context, token string) (Conn, error)
}

// WebsocketDialer dials the realtime endpoint over gorilla/websocket.
type WebsocketDialer struct {
	URL          string
	Dialer       *websocket.Dialer
	PingInterval time.Duration
	PongWait     time.Duration
	WriteTimeout time.Duration
}

// NewWebsocketDialer creates a dialer for url with default timeouts.
func NewWebsocketDialer(url string) *WebsocketDialer {
	return &WebsocketDialer{
		URL:          url,
		Dialer:       websocket.DefaultDialer,
		PingInterval: 25 * time.Second,
		PongWait:     60 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
}

// Dial opens the websocket and starts its keepalive loop.
func (d *WebsocketDialer) Dial(ctx context.Context, token string) (Conn, error) {
	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}
	dialer := d.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}

	ws, resp, err := dialer.DialContext(ctx, d.URL, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %w (status %d)", d.URL, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial %s: %w", d.URL, err)
	}

	c := &wsConn{
		ws:           ws,
		writeTimeout: d.WriteTimeout,
		done:         make(chan struct{}),
	}
	if d.PongWait > 0 {
		ws.SetReadDeadline(time.Now().Add(d.PongWait))
		ws.SetPongHandler(func(string) error {
			return ws.SetReadDeadline(time.Now().Add(d.PongWait))
		})
	}
	if d.PingInterval > 0 {
		go c.pingLoop(d.PingInterval)
	}
	return c, nil
}

// wsConn serializes writes; gorilla connections allow one concurrent writer.
type wsConn struct {
	ws           *websocket.Conn
	writeTimeout time.Duration
	mu           sync.Mutex
	done         chan struct{}
	closeOnce    sync.Once
}

func (c *wsConn) ReadEnvelope() (protocol.Envelope, error) {
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			return protocol.Envelope{}, err
		}
		var env protocol.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			// Skip frames that are not envelopes.
			continue
		}
		return env, nil
	}
}

func (c *wsConn) WriteEnvelope(env protocol.Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return c.write(websocket.TextMessage, data)
}

func (c *wsConn) write(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.writeTimeout > 0 {
		c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	}
	return c.ws.WriteMessage(messageType, data)
}

func (c *wsConn) pingLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *wsConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		c.mu.Lock()
		c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		c.mu.Unlock()
		err = c.ws.Close()
	})
	return err
}
