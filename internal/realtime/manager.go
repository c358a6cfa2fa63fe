// Package realtime maintains the authenticated realtime channel to the chat
// backend and dispatches its events to subscribers.
package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/guipratiko/front-conexprob/internal/protocol"
)

// Handler receives the raw data of an inbound event.
type Handler func(data json.RawMessage)

// Subscription identifies a registered handler.
type Subscription struct {
	id    string
	event string
}

// NewSubscription builds a handle for Channel implementations other than
// Manager.
func NewSubscription(event, id string) Subscription {
	return Subscription{id: id, event: event}
}

// Event returns the event name the subscription listens to.
func (s Subscription) Event() string { return s.event }

type subscriber struct {
	id string
	fn Handler
}

// Options configures a Manager.
type Options struct {
	ReconnectAttempts int
	ReconnectDelay    time.Duration
	Logger            *slog.Logger
}

// Manager owns at most one connection. Handlers are registered on the manager
// and survive reconnects.
type Manager struct {
	dialer Dialer
	opts   Options
	log    *slog.Logger

	mu         sync.Mutex
	handlers   map[string][]subscriber
	conn       Conn
	connecting bool
	cancel     context.CancelFunc
	generation uint64
}

// NewManager creates a manager using dialer for every connection attempt.
func NewManager(dialer Dialer, opts Options) *Manager {
	if opts.ReconnectAttempts < 0 {
		opts.ReconnectAttempts = 0
	}
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		dialer:   dialer,
		opts:     opts,
		log:      logger.With("component", "realtime"),
		handlers: make(map[string][]subscriber),
	}
}

// Connect starts connecting with token in the background. It is a no-op when
// a connection is open or being established. ctx only carries values: the
// connection lives until Disconnect.
func (m *Manager) Connect(ctx context.Context, token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conn != nil || m.connecting {
		return
	}
	m.connecting = true
	m.generation++
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	m.cancel = cancel
	go m.run(runCtx, m.generation, token)
}

// Disconnect closes the connection and stops reconnecting. Safe to call when
// not connected.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	conn := m.conn
	cancel := m.cancel
	m.conn = nil
	m.cancel = nil
	m.connecting = false
	m.generation++
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		if err := conn.Close(); err != nil {
			m.log.Debug("close connection", "error", err)
		}
		m.log.Info("disconnected")
	}
}

// IsConnected reports whether a connection is open.
func (m *Manager) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.conn != nil
}

// Subscribe registers handler for event.
func (m *Manager) Subscribe(event string, handler Handler) Subscription {
	sub := NewSubscription(event, uuid.NewString())
	m.mu.Lock()
	m.handlers[event] = append(m.handlers[event], subscriber{id: sub.id, fn: handler})
	m.mu.Unlock()
	return sub
}

// Unsubscribe removes a handler. Unknown subscriptions are ignored.
func (m *Manager) Unsubscribe(sub Subscription) {
	m.mu.Lock()
	defer m.mu.Unlock()
	subs := m.handlers[sub.event]
	for i, s := range subs {
		if s.id == sub.id {
			m.handlers[sub.event] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	if len(m.handlers[sub.event]) == 0 {
		delete(m.handlers, sub.event)
	}
}

// Publish sends event when connected. Otherwise the event is dropped.
func (m *Manager) Publish(event string, payload interface{}) {
	m.mu.Lock()
	conn := m.conn
	m.mu.Unlock()

	if conn == nil {
		m.log.Warn("not connected, dropping event", "event", event)
		return
	}
	env, err := protocol.NewEnvelope(event, payload)
	if err != nil {
		m.log.Error("encode event", "event", event, "error", err)
		return
	}
	if err := conn.WriteEnvelope(env); err != nil {
		m.log.Warn("publish failed", "event", event, "error", err)
	}
}

func (m *Manager) run(ctx context.Context, gen uint64, token string) {
	defer m.finish(gen)

	failures := 0
	for {
		conn, err := m.dialer.Dial(ctx, token)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			failures++
			m.log.Warn("connect failed", "attempt", failures, "error", err)
		} else {
			if !m.attach(gen, conn) {
				conn.Close()
				return
			}
			failures = 0
			m.log.Info("connected")
			err = m.readLoop(conn)
			m.detach(gen, conn)
			if ctx.Err() != nil {
				return
			}
			failures++
			m.log.Warn("connection lost", "error", err)
		}

		if failures > m.opts.ReconnectAttempts {
			m.log.Error("giving up reconnecting", "attempts", m.opts.ReconnectAttempts)
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(m.opts.ReconnectDelay):
		}
	}
}

func (m *Manager) readLoop(conn Conn) error {
	for {
		env, err := conn.ReadEnvelope()
		if err != nil {
			return err
		}
		m.dispatch(env)
	}
}

func (m *Manager) dispatch(env protocol.Envelope) {
	m.mu.Lock()
	subs := append([]subscriber(nil), m.handlers[env.Event]...)
	m.mu.Unlock()

	for _, s := range subs {
		s.fn(env.Data)
	}
}

func (m *Manager) attach(gen uint64, conn Conn) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.generation != gen {
		return false
	}
	m.conn = conn
	m.connecting = false
	return true
}

func (m *Manager) detach(gen uint64, conn Conn) {
	m.mu.Lock()
	if m.generation == gen && m.conn == conn {
		m.conn = nil
		m.connecting = true
	}
	m.mu.Unlock()
	conn.Close()
}

func (m *Manager) finish(gen uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.generation != gen {
		return
	}
	m.conn = nil
	m.connecting = false
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
}
