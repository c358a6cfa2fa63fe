package tui

import (
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/guipratiko/front-conexprob/internal/credits"
	"github.com/guipratiko/front-conexprob/internal/domain"
	"github.com/guipratiko/front-conexprob/internal/notify"
	"github.com/guipratiko/front-conexprob/internal/session"
)

const toastTTL = 4 * time.Second

// ToastMsg shows a transient notification.
type ToastMsg struct {
	Kind notify.Kind
	Text string
}

// ChatChangedMsg tells the chat screen to re-read the controller snapshot.
type ChatChangedMsg struct{}

type toastExpiredMsg struct{ seq int }

type authDoneMsg struct {
	result session.Result
}

type tokenVerifiedMsg struct {
	account domain.PendingAccount
	err     error
}

type dashboardLoadedMsg struct {
	dashboard credits.Dashboard
	err       error
}

type modelsLoadedMsg struct {
	onlineOnly bool
	models     []domain.ModelProfile
	err        error
}

type transactionsLoadedMsg struct {
	transactions []domain.Transaction
}

type chatOpenedMsg struct {
	counterpartyID string
	err            error
}

// Bridge forwards messages from other goroutines into a running program in
// the order they were sent. Messages sent before Attach are queued.
type Bridge struct {
	mu      sync.Mutex
	pending []tea.Msg
	wake    chan struct{}
}

type sender interface {
	Send(msg tea.Msg)
}

// Attach starts delivering messages to p.
func (b *Bridge) Attach(p *tea.Program) {
	b.attach(p)
}

func (b *Bridge) attach(s sender) {
	b.mu.Lock()
	b.wake = make(chan struct{}, 1)
	wake := b.wake
	b.mu.Unlock()

	go b.pump(s, wake)
	wake <- struct{}{}
}

// pump is the only goroutine calling s.Send, so delivery keeps send order.
func (b *Bridge) pump(s sender, wake <-chan struct{}) {
	for range wake {
		b.mu.Lock()
		batch := b.pending
		b.pending = nil
		b.mu.Unlock()

		for _, msg := range batch {
			s.Send(msg)
		}
	}
}

// Send queues msg without blocking the caller, which may be the program's
// own update loop.
func (b *Bridge) Send(msg tea.Msg) {
	b.mu.Lock()
	b.pending = append(b.pending, msg)
	wake := b.wake
	b.mu.Unlock()

	if wake == nil {
		return
	}
	select {
	case wake <- struct{}{}:
	default:
	}
}

// Notifier shows notifications as toasts.
func (b *Bridge) Notifier() notify.Notifier {
	return notify.Func(func(kind notify.Kind, text string) {
		b.Send(ToastMsg{Kind: kind, Text: text})
	})
}

// ChatChanged is a chat controller change callback.
func (b *Bridge) ChatChanged() {
	b.Send(ChatChangedMsg{})
}
