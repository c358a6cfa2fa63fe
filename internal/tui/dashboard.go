package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/guipratiko/front-conexprob/internal/credits"
	"github.com/guipratiko/front-conexprob/internal/policy"
)

type dashboardScreen struct {
	data     credits.Dashboard
	loading  bool
	err      string
	selected int
}

func (m *Model) enterDashboard() tea.Cmd {
	m.dash = dashboardScreen{loading: true}
	svc := m.deps.Credits
	return func() tea.Msg {
		d, err := svc.Dashboard(context.Background())
		return dashboardLoadedMsg{dashboard: d, err: err}
	}
}

func (m Model) updateDashboard(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case dashboardLoadedMsg:
		m.dash.loading = false
		if msg.err != nil {
			m.log.Warn("load dashboard failed", "error", msg.err)
			m.dash.err = "Erro ao carregar o painel"
			return m, nil
		}
		m.dash.data = msg.dashboard
		m.dash.selected = 0
		return m, nil

	case tea.KeyMsg:
		convs := m.dash.data.Conversations
		switch msg.String() {
		case "up", "k":
			if m.dash.selected > 0 {
				m.dash.selected--
			}
		case "down", "j":
			if m.dash.selected < len(convs)-1 {
				m.dash.selected++
			}
		case "enter":
			if len(convs) > 0 {
				cmd := m.navigate(policy.RouteChat, convs[m.dash.selected].Model.ID)
				return m, cmd
			}
		case "m":
			cmd := m.navigate(policy.RouteModels, "")
			return m, cmd
		case "c":
			cmd := m.navigate(policy.RouteCredits, "")
			return m, cmd
		case "r":
			cmd := m.enterDashboard()
			return m, cmd
		case "L":
			m.deps.Session.Logout()
			cmd := m.navigate(policy.RouteLogin, "")
			return m, cmd
		case "q":
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m Model) viewDashboard() string {
	var b strings.Builder
	s, _ := m.deps.Session.Current()
	b.WriteString(subtitleStyle.Render(fmt.Sprintf("Olá, %s", s.DisplayName)))
	b.WriteString("\n\n")
	b.WriteString(fmt.Sprintf("Créditos disponíveis: %s\n", selectedStyle.Render(fmt.Sprint(s.CreditBalance))))

	switch {
	case m.dash.loading:
		b.WriteString("\n" + mutedStyle.Render("Carregando..."))
	case m.dash.err != "":
		b.WriteString("\n" + errorStyle.Render(m.dash.err))
	default:
		d := m.dash.data
		b.WriteString(fmt.Sprintf("Créditos gastos: %d\n\n", d.TotalSpent))

		b.WriteString(subtitleStyle.Render("Conversas recentes") + "\n")
		if len(d.Conversations) == 0 {
			b.WriteString(mutedStyle.Render("Nenhuma conversa ainda.") + "\n")
		}
		for i, c := range d.Conversations {
			line := c.Model.Name
			if c.LastMessagePreview != "" {
				line += mutedStyle.Render(" · " + c.LastMessagePreview)
			}
			if c.UnreadCount > 0 {
				line += selectedStyle.Render(fmt.Sprintf(" (%d)", c.UnreadCount))
			}
			b.WriteString(cursor(i == m.dash.selected) + line + "\n")
		}

		b.WriteString("\n" + subtitleStyle.Render("Últimas transações") + "\n")
		if len(d.Transactions) == 0 {
			b.WriteString(mutedStyle.Render("Nenhuma transação ainda.") + "\n")
		}
		for _, tx := range d.Transactions {
			b.WriteString(transactionLine(tx) + "\n")
		}
	}

	return boxStyle.Render(b.String()) + "\n" +
		help("↑/↓: conversa", "enter: abrir chat", "m: modelos", "c: créditos", "r: atualizar", "L: sair da conta", "q: fechar")
}

func cursor(selected bool) string {
	if selected {
		return selectedStyle.Render("› ")
	}
	return "  "
}
