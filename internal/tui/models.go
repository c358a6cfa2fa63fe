package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-runewidth"

	"github.com/guipratiko/front-conexprob/internal/catalog"
	"github.com/guipratiko/front-conexprob/internal/domain"
	"github.com/guipratiko/front-conexprob/internal/policy"
)

const bioWidth = 64

type catalogScreen struct {
	models     []domain.ModelProfile
	onlineOnly bool
	search     textinput.Model
	searching  bool
	loading    bool
	err        string
	selected   int
}

func newCatalogScreen() catalogScreen {
	search := textinput.New()
	search.Placeholder = "Buscar por nome ou descrição"
	search.CharLimit = 60
	search.Width = 40
	return catalogScreen{search: search}
}

func (s catalogScreen) visible() []domain.ModelProfile {
	return catalog.Filter(s.models, s.search.Value())
}

func (m *Model) enterCatalog() tea.Cmd {
	m.catalog.selected = 0
	m.catalog.searching = false
	m.catalog.search.Blur()
	return m.loadModels()
}

func (m *Model) loadModels() tea.Cmd {
	m.catalog.loading = true
	m.catalog.err = ""
	onlineOnly := m.catalog.onlineOnly
	svc := m.deps.Catalog
	return func() tea.Msg {
		models, err := svc.List(context.Background(), onlineOnly)
		return modelsLoadedMsg{onlineOnly: onlineOnly, models: models, err: err}
	}
}

func (m Model) updateCatalog(msg tea.Msg) (tea.Model, tea.Cmd) {
	s := &m.catalog
	switch msg := msg.(type) {
	case modelsLoadedMsg:
		if msg.onlineOnly != s.onlineOnly {
			return m, nil
		}
		s.loading = false
		if msg.err != nil {
			m.log.Warn("load models failed", "error", msg.err)
			s.err = "Erro ao carregar modelos"
			return m, nil
		}
		s.models = msg.models
		s.selected = 0
		return m, nil

	case tea.KeyMsg:
		if s.searching {
			switch msg.String() {
			case "esc", "enter":
				s.searching = false
				s.search.Blur()
				return m, nil
			}
			var cmd tea.Cmd
			s.search, cmd = s.search.Update(msg)
			s.selected = 0
			return m, cmd
		}

		visible := s.visible()
		switch msg.String() {
		case "up", "k":
			if s.selected > 0 {
				s.selected--
			}
		case "down", "j":
			if s.selected < len(visible)-1 {
				s.selected++
			}
		case "/":
			s.searching = true
			s.search.Focus()
			return m, nil
		case "o":
			s.onlineOnly = !s.onlineOnly
			cmd := m.loadModels()
			return m, cmd
		case "enter":
			if len(visible) > 0 {
				cmd := m.navigate(policy.RouteChat, visible[s.selected].ChatID())
				return m, cmd
			}
		case "c":
			cmd := m.navigate(policy.RouteCredits, "")
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

func (m Model) viewCatalog() string {
	s := m.catalog
	var b strings.Builder
	b.WriteString(subtitleStyle.Render("Modelos"))
	if s.onlineOnly {
		b.WriteString(successStyle.Render("  ● apenas online"))
	}
	b.WriteString("\n\n" + s.search.View() + "\n\n")

	switch {
	case s.loading:
		b.WriteString(mutedStyle.Render("Carregando..."))
	case s.err != "":
		b.WriteString(errorStyle.Render(s.err))
	default:
		visible := s.visible()
		if len(visible) == 0 {
			b.WriteString(mutedStyle.Render("Nenhuma modelo encontrada."))
		}
		for i, p := range visible {
			status := mutedStyle.Render("○")
			if p.IsOnline {
				status = successStyle.Render("●")
			}
			line := fmt.Sprintf("%s %s", status, p.Name)
			if p.Age > 0 {
				line += mutedStyle.Render(fmt.Sprintf(", %d", p.Age))
			}
			if p.PricePerMessage > 0 {
				line += mutedStyle.Render(fmt.Sprintf(" · %d créditos/msg", p.PricePerMessage))
			}
			b.WriteString(cursor(i == s.selected) + line + "\n")
			if i == s.selected && p.Bio != "" {
				b.WriteString("    " + mutedStyle.Render(runewidth.Truncate(p.Bio, bioWidth, "…")) + "\n")
			}
		}
	}

	return boxStyle.Render(b.String()) + "\n" +
		help("↑/↓: selecionar", "enter: conversar", "/: buscar", "o: online", "c: créditos", "esc: painel")
}
