// Package chat implements the state machine behind a single open conversation:
// history loading, sending, echoes, typing indicators and credit shortfalls.
package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/guipratiko/front-conexprob/internal/api"
	"github.com/guipratiko/front-conexprob/internal/domain"
	"github.com/guipratiko/front-conexprob/internal/notify"
	"github.com/guipratiko/front-conexprob/internal/policy"
	"github.com/guipratiko/front-conexprob/internal/protocol"
	"github.com/guipratiko/front-conexprob/internal/realtime"
)

var (
	// ErrInvalidCounterparty is returned by Open for an empty counterparty id.
	ErrInvalidCounterparty = errors.New("invalid counterparty id")
	// ErrModelNotFound is returned by Open when no model matches the id.
	ErrModelNotFound = errors.New("model not found")
	// ErrClosed is returned by Open when the controller was closed or
	// reopened while loading.
	ErrClosed = errors.New("chat closed")
)

// User-facing messages.
const (
	msgSent            = "Mensagem enviada!"
	msgSendFailed      = "Erro ao enviar mensagem"
	msgInvalidID       = "ID da modelo inválido"
	msgModelNotFound   = "Modelo não encontrada. Por favor, selecione outra modelo."
	msgModelLoadFailed = "Erro ao carregar informações da modelo"
)

// State is the lifecycle state of a controller.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateReady
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Channel is the realtime channel used by the controller.
type Channel interface {
	Subscribe(event string, handler realtime.Handler) realtime.Subscription
	Unsubscribe(sub realtime.Subscription)
	Publish(event string, payload interface{})
}

// API is the subset of the REST client used by the controller.
type API interface {
	ListModels(ctx context.Context, q api.ModelQuery) ([]domain.ModelProfile, error)
	GetConversation(ctx context.Context, counterpartyID string) ([]domain.Message, error)
}

// BalanceSink receives the credit balance reported by the server.
type BalanceSink interface {
	ApplyCreditBalance(credits int)
}

// Options configures a Controller.
type Options struct {
	PeerTypingTTL   time.Duration
	LocalTypingIdle time.Duration
	Notifier        notify.Notifier
	Balance         BalanceSink
	Logger          *slog.Logger
}

// Snapshot is a copy of the controller state for rendering.
type Snapshot struct {
	State          State
	CounterpartyID string
	Counterparty   *domain.ModelProfile
	Messages       []domain.Message
	SendInFlight   bool
	PeerTyping     bool
	Shortfall      *domain.CreditShortfallNotice
}

// Controller drives one conversation at a time. All state transitions are
// serialized by mu; realtime events and UI calls may arrive from any goroutine.
type Controller struct {
	channel Channel
	api     API
	opts    Options
	log     *slog.Logger

	mu             sync.Mutex
	state          State
	generation     uint64
	counterpartyID string
	profile        *domain.ModelProfile
	messages       []domain.Message
	sendInFlight   bool
	peerTyping     bool
	peerTimer      *time.Timer
	peerSeq        uint64
	localTyping    bool
	localTimer     *time.Timer
	shortfall      *domain.CreditShortfallNotice
	subs           []realtime.Subscription
	onChange       func()
}

// NewController creates an idle controller.
func NewController(channel Channel, chatAPI API, opts Options) *Controller {
	if opts.PeerTypingTTL <= 0 {
		opts.PeerTypingTTL = 3 * time.Second
	}
	if opts.LocalTypingIdle <= 0 {
		opts.LocalTypingIdle = 2 * time.Second
	}
	if opts.Notifier == nil {
		opts.Notifier = notify.Discard{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		channel: channel,
		api:     chatAPI,
		opts:    opts,
		log:     logger.With("component", "chat"),
	}
}

// OnChange registers fn to be called after every state change. fn is called
// without the controller lock held and may call Snapshot.
func (c *Controller) OnChange(fn func()) {
	c.mu.Lock()
	c.onChange = fn
	c.mu.Unlock()
}

// Open loads the conversation with counterpartyID and subscribes to its live
// events. It blocks until the profile and history requests finish. A profile
// failure returns the controller to Idle and returns the error; a history
// failure leaves an empty history.
func (c *Controller) Open(ctx context.Context, counterpartyID string) error {
	counterpartyID = strings.TrimSpace(counterpartyID)
	if counterpartyID == "" {
		c.opts.Notifier.Error(msgInvalidID)
		return ErrInvalidCounterparty
	}

	gen := c.begin(counterpartyID)
	c.changed()
	c.channel.Publish(protocol.EventMarkRead, protocol.MarkReadPayload{ModelID: counterpartyID})

	var (
		profile domain.ModelProfile
		history []domain.Message
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		models, err := c.api.ListModels(gctx, api.ModelQuery{UserID: counterpartyID})
		if err != nil {
			return fmt.Errorf("load model %s: %w", counterpartyID, err)
		}
		if len(models) == 0 {
			return ErrModelNotFound
		}
		profile = models[0]
		return nil
	})
	g.Go(func() error {
		msgs, err := c.api.GetConversation(gctx, counterpartyID)
		if err != nil {
			c.log.Warn("load history failed", "counterparty", counterpartyID, "error", err)
			return nil
		}
		history = msgs
		return nil
	})
	err := g.Wait()

	c.mu.Lock()
	if c.generation != gen {
		c.mu.Unlock()
		return ErrClosed
	}
	if err != nil {
		c.resetLocked(StateIdle)
		c.mu.Unlock()
		if errors.Is(err, ErrModelNotFound) {
			c.opts.Notifier.Error(msgModelNotFound)
		} else {
			c.log.Error("open chat failed", "counterparty", counterpartyID, "error", err)
			c.opts.Notifier.Error(msgModelLoadFailed)
		}
		c.changed()
		return err
	}

	profile.UserIDString = counterpartyID
	c.profile = &profile
	c.messages = mergeHistory(history, c.messages)
	c.state = StateReady
	c.mu.Unlock()

	c.changed()
	return nil
}

// SendMessage publishes text to the open counterparty. It returns false and
// does nothing when text is blank, a send is in flight or the chat is not
// ready. Nothing is appended until the server echoes the message.
func (c *Controller) SendMessage(text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}

	c.mu.Lock()
	if c.state != StateReady || c.sendInFlight {
		c.mu.Unlock()
		return false
	}
	c.sendInFlight = true
	recipient := c.counterpartyID
	c.mu.Unlock()

	c.changed()
	c.channel.Publish(protocol.EventSendMessage, protocol.SendMessagePayload{
		RecipientID: recipient,
		Content:     text,
		Type:        domain.MessageTypeText,
	})
	return true
}

// Keystroke reports local typing. The first keystroke of a burst publishes
// typing=true; typing=false follows LocalTypingIdle after the last one.
func (c *Controller) Keystroke() {
	c.mu.Lock()
	if c.state != StateReady && c.state != StateLoading {
		c.mu.Unlock()
		return
	}
	gen := c.generation
	recipient := c.counterpartyID
	start := !c.localTyping
	c.localTyping = true
	if c.localTimer != nil {
		c.localTimer.Stop()
	}
	c.localTimer = time.AfterFunc(c.opts.LocalTypingIdle, func() {
		c.mu.Lock()
		if c.generation != gen || !c.localTyping {
			c.mu.Unlock()
			return
		}
		c.localTyping = false
		c.mu.Unlock()
		c.channel.Publish(protocol.EventTyping, protocol.TypingPayload{RecipientID: recipient, IsTyping: false})
	})
	c.mu.Unlock()

	if start {
		c.channel.Publish(protocol.EventTyping, protocol.TypingPayload{RecipientID: recipient, IsTyping: true})
	}
}

// DismissShortfall clears the credit shortfall notice.
func (c *Controller) DismissShortfall() {
	c.mu.Lock()
	had := c.shortfall != nil
	c.shortfall = nil
	c.mu.Unlock()
	if had {
		c.changed()
	}
}

// AcknowledgeShortfall clears the notice and returns the purchase screen.
func (c *Controller) AcknowledgeShortfall() policy.Route {
	c.DismissShortfall()
	return policy.RouteCredits
}

// Close unsubscribes the live handlers and stops the timers. Events arriving
// afterwards are ignored. In-flight requests are not cancelled.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		return
	}
	wasTyping := c.localTyping
	recipient := c.counterpartyID
	c.resetLocked(StateClosed)
	c.mu.Unlock()

	if wasTyping {
		c.channel.Publish(protocol.EventTyping, protocol.TypingPayload{RecipientID: recipient, IsTyping: false})
	}
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{
		State:          c.state,
		CounterpartyID: c.counterpartyID,
		Messages:       append([]domain.Message(nil), c.messages...),
		SendInFlight:   c.sendInFlight,
		PeerTyping:     c.peerTyping,
	}
	if c.profile != nil {
		p := *c.profile
		p.Tags = append([]string(nil), c.profile.Tags...)
		snap.Counterparty = &p
	}
	if c.shortfall != nil {
		n := *c.shortfall
		snap.Shortfall = &n
	}
	return snap
}

// begin resets the controller for a new conversation and subscribes its
// handlers, bound to the returned generation.
func (c *Controller) begin(counterpartyID string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.resetLocked(StateLoading)
	c.counterpartyID = counterpartyID
	gen := c.generation

	c.subs = []realtime.Subscription{
		c.channel.Subscribe(protocol.EventReceiveMessage, c.guard(gen, c.handleReceive)),
		c.channel.Subscribe(protocol.EventMessageSent, c.guard(gen, c.handleSent)),
		c.channel.Subscribe(protocol.EventMessageError, c.guard(gen, c.handleError)),
		c.channel.Subscribe(protocol.EventUserTyping, c.guard(gen, c.handleTyping)),
	}
	return gen
}

// resetLocked drops the conversation, unsubscribes and stops the timers.
func (c *Controller) resetLocked(next State) {
	for _, sub := range c.subs {
		c.channel.Unsubscribe(sub)
	}
	c.subs = nil
	if c.peerTimer != nil {
		c.peerTimer.Stop()
		c.peerTimer = nil
	}
	if c.localTimer != nil {
		c.localTimer.Stop()
		c.localTimer = nil
	}
	c.generation++
	c.state = next
	c.counterpartyID = ""
	c.profile = nil
	c.messages = nil
	c.sendInFlight = false
	c.peerTyping = false
	c.localTyping = false
	c.shortfall = nil
}

// guard drops events that arrive for a previous generation or after Close.
func (c *Controller) guard(gen uint64, fn func(gen uint64, data json.RawMessage)) realtime.Handler {
	return func(data json.RawMessage) {
		c.mu.Lock()
		live := c.generation == gen && (c.state == StateLoading || c.state == StateReady)
		c.mu.Unlock()
		if live {
			fn(gen, data)
		}
	}
}

func (c *Controller) handleReceive(gen uint64, data json.RawMessage) {
	var p protocol.ReceiveMessagePayload
	if err := json.Unmarshal(data, &p); err != nil {
		c.log.Warn("decode receive-message", "error", err)
		return
	}
	sender := p.SenderID
	if sender == "" {
		sender = p.Message.SenderID
	}

	c.mu.Lock()
	if c.generation != gen || sender != c.counterpartyID {
		c.mu.Unlock()
		return
	}
	c.appendLocked(p.Message)
	counterparty := c.counterpartyID
	c.mu.Unlock()

	c.channel.Publish(protocol.EventMarkRead, protocol.MarkReadPayload{ModelID: counterparty})
	c.changed()
}

func (c *Controller) handleSent(gen uint64, data json.RawMessage) {
	var p protocol.MessageSentPayload
	if err := json.Unmarshal(data, &p); err != nil {
		c.log.Warn("decode message-sent", "error", err)
		return
	}

	c.mu.Lock()
	if c.generation != gen {
		c.mu.Unlock()
		return
	}
	c.sendInFlight = false
	if p.Message.RecipientID == "" || p.Message.RecipientID == c.counterpartyID {
		c.appendLocked(p.Message)
	}
	c.mu.Unlock()

	c.opts.Notifier.Success(msgSent)
	c.changed()
}

func (c *Controller) handleError(gen uint64, data json.RawMessage) {
	var p protocol.MessageErrorPayload
	if err := json.Unmarshal(data, &p); err != nil {
		c.log.Warn("decode message-error", "error", err)
		return
	}

	notice, short := p.Shortfall()
	c.mu.Lock()
	if c.generation != gen {
		c.mu.Unlock()
		return
	}
	c.sendInFlight = false
	if short {
		c.shortfall = &notice
	}
	c.mu.Unlock()

	if short {
		if c.opts.Balance != nil {
			c.opts.Balance.ApplyCreditBalance(notice.CurrentCredits)
		}
	} else {
		msg := p.Message
		if msg == "" {
			msg = msgSendFailed
		}
		c.opts.Notifier.Error(msg)
	}
	c.changed()
}

func (c *Controller) handleTyping(gen uint64, data json.RawMessage) {
	var p protocol.UserTypingPayload
	if err := json.Unmarshal(data, &p); err != nil {
		c.log.Warn("decode user-typing", "error", err)
		return
	}

	c.mu.Lock()
	if c.generation != gen || p.UserID != c.counterpartyID {
		c.mu.Unlock()
		return
	}
	if c.peerTimer != nil {
		c.peerTimer.Stop()
		c.peerTimer = nil
	}
	c.peerSeq++
	c.peerTyping = p.IsTyping
	if p.IsTyping {
		seq := c.peerSeq
		c.peerTimer = time.AfterFunc(c.opts.PeerTypingTTL, func() {
			c.expirePeerTyping(gen, seq)
		})
	}
	c.mu.Unlock()
	c.changed()
}

// expirePeerTyping clears the indicator set by the typing event seq. A timer
// that fires after a newer event has no effect.
func (c *Controller) expirePeerTyping(gen, seq uint64) {
	c.mu.Lock()
	if c.generation != gen || c.peerSeq != seq || !c.peerTyping {
		c.mu.Unlock()
		return
	}
	c.peerTyping = false
	c.peerTimer = nil
	c.mu.Unlock()
	c.changed()
}

// appendLocked appends a server-confirmed message unless its id is already
// present.
func (c *Controller) appendLocked(msg domain.Message) {
	if msg.ID != "" {
		for _, m := range c.messages {
			if m.ID == msg.ID {
				return
			}
		}
	}
	msg.DeliveryState = msg.DeliveryState.Resolve(true)
	c.messages = append(c.messages, msg)
}

func (c *Controller) changed() {
	c.mu.Lock()
	fn := c.onChange
	c.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// mergeHistory puts the loaded history first, followed by live messages that
// arrived while loading and are not part of it.
func mergeHistory(history, live []domain.Message) []domain.Message {
	out := make([]domain.Message, 0, len(history)+len(live))
	seen := make(map[string]bool, len(history))
	for _, m := range history {
		m.DeliveryState = m.DeliveryState.Resolve(true)
		out = append(out, m)
		if m.ID != "" {
			seen[m.ID] = true
		}
	}
	for _, m := range live {
		if m.ID != "" && seen[m.ID] {
			continue
		}
		out = append(out, m)
	}
	return out
}
