package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/guipratiko/front-conexprob/internal/domain"
	"github.com/guipratiko/front-conexprob/internal/policy"
)

type creditsScreen struct {
	packages     []domain.CreditPackage
	transactions []domain.Transaction
	loading      bool
	selected     int
	checkout     string
}

func (m *Model) enterCredits() tea.Cmd {
	m.credits = creditsScreen{packages: m.deps.Credits.Packages(), loading: true}
	for i, p := range m.credits.packages {
		if p.Popular {
			m.credits.selected = i
		}
	}
	svc := m.deps.Credits
	return func() tea.Msg {
		return transactionsLoadedMsg{transactions: svc.RecentTransactions(context.Background())}
	}
}

func (m Model) updateCredits(msg tea.Msg) (tea.Model, tea.Cmd) {
	s := &m.credits
	switch msg := msg.(type) {
	case transactionsLoadedMsg:
		s.loading = false
		s.transactions = msg.transactions
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			if s.selected > 0 {
				s.selected--
			}
			s.checkout = ""
		case "down", "j":
			if s.selected < len(s.packages)-1 {
				s.selected++
			}
			s.checkout = ""
		case "enter":
			if len(s.packages) > 0 {
				s.checkout = s.packages[s.selected].CheckoutURL
			}
		case "m":
			cmd := m.navigate(policy.RouteModels, "")
			return m, cmd
		case "esc":
			cmd := m.navigate(policy.RouteDashboard, "")
			return m, cmd
		case "q":
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m Model) viewCredits() string {
	s := m.credits
	var b strings.Builder
	b.WriteString(subtitleStyle.Render("Comprar créditos") + "\n\n")
	for i, p := range s.packages {
		line := fmt.Sprintf("%d créditos · R$ %.2f", p.Credits, p.Price)
		line += mutedStyle.Render(fmt.Sprintf(" (R$ %.3f/crédito)", p.PricePerCredit()))
		if p.Popular {
			line += selectedStyle.Render("  mais popular")
		}
		b.WriteString(cursor(i == s.selected) + line + "\n")
	}
	if s.checkout != "" {
		b.WriteString("\nAbra no navegador para pagar:\n" + selectedStyle.Render(s.checkout) + "\n")
	}

	b.WriteString("\n" + subtitleStyle.Render("Histórico") + "\n")
	switch {
	case s.loading:
		b.WriteString(mutedStyle.Render("Carregando..."))
	case len(s.transactions) == 0:
		b.WriteString(mutedStyle.Render("Nenhuma transação ainda."))
	default:
		for _, tx := range s.transactions {
			b.WriteString(transactionLine(tx) + "\n")
		}
	}

	return boxStyle.Render(b.String()) + "\n" +
		help("↑/↓: pacote", "enter: link de pagamento", "m: modelos", "esc: painel")
}

func transactionLine(tx domain.Transaction) string {
	sign := "+"
	if tx.Type == domain.TransactionSpend {
		sign = "-"
	}
	desc := tx.Description
	if desc == "" {
		desc = string(tx.Type)
	}
	amount := fmt.Sprintf("%s%d", sign, tx.Credits)
	if sign == "-" {
		amount = errorStyle.Render(amount)
	} else {
		amount = successStyle.Render(amount)
	}
	date := ""
	if !tx.CreatedAt.IsZero() {
		date = tx.CreatedAt.Local().Format("02/01/2006 15:04") + " "
	}
	return fmt.Sprintf("%s%s %s %s", mutedStyle.Render(date), amount, desc, mutedStyle.Render("["+tx.Status.Label()+"]"))
}
