package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/guipratiko/front-conexprob/internal/chat"
	"github.com/guipratiko/front-conexprob/internal/policy"
)

type chatScreen struct {
	counterpartyID string
	snap           chat.Snapshot
	input          textinput.Model
	viewport       viewport.Model
}

func newChatScreen() chatScreen {
	input := textinput.New()
	input.Placeholder = "Digite sua mensagem..."
	input.CharLimit = 1000
	input.Width = 60
	return chatScreen{input: input, viewport: viewport.New(76, 12)}
}

func (s *chatScreen) resize(width, height int) {
	w := width - 4
	if w < 20 {
		w = 20
	}
	h := height - 14
	if h < 5 {
		h = 5
	}
	s.viewport.Width = w
	s.viewport.Height = h
	s.input.Width = w - 4
}

// render rebuilds the transcript from the snapshot.
func (s *chatScreen) render(userID string) {
	name := "Modelo"
	if s.snap.Counterparty != nil {
		name = s.snap.Counterparty.Name
	}
	var b strings.Builder
	for _, msg := range s.snap.Messages {
		ts := ""
		if !msg.CreatedAt.IsZero() {
			ts = mutedStyle.Render(msg.CreatedAt.Local().Format("15:04")) + " "
		}
		if msg.SenderID == userID {
			b.WriteString(ts + ownStyle.Render("Você: ") + msg.Content + "\n")
		} else {
			b.WriteString(ts + peerStyle.Bold(true).Render(name+": ") + msg.Content + "\n")
		}
	}
	s.viewport.SetContent(lipgloss.NewStyle().Width(s.viewport.Width).Render(b.String()))
	s.viewport.GotoBottom()
}

func (m *Model) enterChat(counterpartyID string) tea.Cmd {
	m.chat.counterpartyID = counterpartyID
	m.chat.snap = chat.Snapshot{State: chat.StateLoading, CounterpartyID: counterpartyID}
	m.chat.input.Reset()
	m.chat.render(m.userID())
	m.chat.input.Focus()

	controller := m.deps.Chat
	return func() tea.Msg {
		err := controller.Open(context.Background(), counterpartyID)
		return chatOpenedMsg{counterpartyID: counterpartyID, err: err}
	}
}

// refreshChat re-reads the controller. The draft is discarded once the server
// answers the send, whether it was accepted or rejected.
func (m *Model) refreshChat() {
	prev := m.chat.snap
	snap := m.deps.Chat.Snapshot()
	if snap.CounterpartyID != m.chat.counterpartyID {
		return
	}
	if prev.SendInFlight && !snap.SendInFlight {
		m.chat.input.Reset()
	}
	m.chat.snap = snap
	m.chat.render(m.userID())
}

func (m Model) updateChat(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case ChatChangedMsg:
		m.refreshChat()
		return m, nil

	case chatOpenedMsg:
		if msg.counterpartyID != m.chat.counterpartyID {
			return m, nil
		}
		if msg.err != nil && !errors.Is(msg.err, chat.ErrClosed) {
			cmd := m.navigate(policy.RouteModels, "")
			return m, cmd
		}
		m.refreshChat()
		return m, nil

	case tea.KeyMsg:
		if m.chat.snap.Shortfall != nil {
			switch msg.String() {
			case "enter":
				route := m.deps.Chat.AcknowledgeShortfall()
				cmd := m.navigate(route, "")
				return m, cmd
			case "esc":
				m.deps.Chat.DismissShortfall()
				m.refreshChat()
			}
			return m, nil
		}

		switch msg.String() {
		case "esc":
			cmd := m.navigate(policy.RouteModels, "")
			return m, cmd
		case "enter":
			if m.deps.Chat.SendMessage(m.chat.input.Value()) {
				m.refreshChat()
			}
			return m, nil
		case "pgup", "pgdown":
			var cmd tea.Cmd
			m.chat.viewport, cmd = m.chat.viewport.Update(msg)
			return m, cmd
		}

		before := m.chat.input.Value()
		var cmd tea.Cmd
		m.chat.input, cmd = m.chat.input.Update(msg)
		if m.chat.input.Value() != before {
			m.deps.Chat.Keystroke()
		}
		return m, cmd
	}
	return m, nil
}

func (m Model) viewChat() string {
	s := m.chat
	var b strings.Builder

	title := "Carregando..."
	if p := s.snap.Counterparty; p != nil {
		status := mutedStyle.Render("○ offline")
		if p.IsOnline {
			status = successStyle.Render("● online")
		}
		title = subtitleStyle.Render(p.Name) + "  " + status
	}
	b.WriteString(title + "\n\n")
	b.WriteString(s.viewport.View() + "\n")

	if s.snap.PeerTyping {
		b.WriteString(mutedStyle.Render("digitando...") + "\n")
	} else {
		b.WriteString("\n")
	}

	switch {
	case s.snap.Shortfall != nil:
		n := s.snap.Shortfall
		modal := titleStyle.Render("Créditos insuficientes") + "\n\n" +
			fmt.Sprintf("Você tem %d créditos, mas precisa de %d créditos\npara enviar mensagem para %s.", n.CurrentCredits, n.RequiredCredits, n.CounterpartyName) +
			"\n\n" + help("enter: comprar créditos", "esc: cancelar")
		b.WriteString(modalStyle.Render(modal))
		return b.String()
	case s.snap.SendInFlight:
		b.WriteString(s.input.View() + "  " + mutedStyle.Render("enviando..."))
	default:
		b.WriteString(s.input.View())
	}

	return boxStyle.Render(b.String()) + "\n" + help("enter: enviar", "pgup/pgdown: rolar", "esc: voltar")
}
