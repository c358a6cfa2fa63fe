// Package tui is the terminal front end: a bubbletea program with the login,
// registration, dashboard, catalog, credits and chat screens.
package tui

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/guipratiko/front-conexprob/internal/chat"
	"github.com/guipratiko/front-conexprob/internal/credits"
	"github.com/guipratiko/front-conexprob/internal/domain"
	"github.com/guipratiko/front-conexprob/internal/notify"
	"github.com/guipratiko/front-conexprob/internal/policy"
	"github.com/guipratiko/front-conexprob/internal/session"
)

// SessionStore is the authentication state used by the screens.
type SessionStore interface {
	Current() (domain.Session, bool)
	IsAuthenticated() bool
	Login(ctx context.Context, email, password string) session.Result
	Register(ctx context.Context, name, email, nationalID, phone, password string) session.Result
	VerifyRegistrationToken(ctx context.Context, token string) (domain.PendingAccount, error)
	CompleteRegistration(ctx context.Context, token, newPassword string) session.Result
	Logout()
}

// Catalog lists models.
type Catalog interface {
	List(ctx context.Context, onlineOnly bool) ([]domain.ModelProfile, error)
}

// Credits serves the credits and dashboard screens.
type Credits interface {
	Packages() []domain.CreditPackage
	RecentTransactions(ctx context.Context) []domain.Transaction
	Dashboard(ctx context.Context) (credits.Dashboard, error)
}

// ChatController drives the open conversation.
type ChatController interface {
	Open(ctx context.Context, counterpartyID string) error
	SendMessage(text string) bool
	Keystroke()
	DismissShortfall()
	AcknowledgeShortfall() policy.Route
	Close()
	Snapshot() chat.Snapshot
}

// Router decides where a navigation ends up.
type Router interface {
	Resolve(ctx context.Context, route policy.Route, authenticated bool) (policy.Route, error)
}

// Deps are the services behind the screens.
type Deps struct {
	Session SessionStore
	Catalog Catalog
	Credits Credits
	Chat    ChatController
	Router  Router
	Logger  *slog.Logger

	// Start is the first route opened, "/" when empty.
	Start string
	// RegistrationToken prefills the complete-registration screen.
	RegistrationToken string
}

// Model is the root bubbletea model.
type Model struct {
	deps Deps
	log  *slog.Logger

	route  policy.Route
	width  int
	height int

	toast    *ToastMsg
	toastSeq int

	login    form
	register form
	complete completeScreen
	dash     dashboardScreen
	catalog  catalogScreen
	credits  creditsScreen
	chat     chatScreen
}

// New creates the root model.
func New(deps Deps) Model {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return Model{
		deps:     deps,
		log:      logger.With("component", "tui"),
		login:    newLoginForm(),
		register: newRegisterForm(),
		complete: newCompleteScreen(),
		catalog:  newCatalogScreen(),
		chat:     newChatScreen(),
		width:    80,
		height:   24,
	}
}

// Route returns the current screen.
func (m Model) Route() policy.Route { return m.route }

// Init opens the start route.
func (m Model) Init() tea.Cmd {
	return func() tea.Msg {
		start := m.deps.Start
		if start == "" {
			start = string(policy.RouteHome)
		}
		return navigateMsg{path: start}
	}
}

type navigateMsg struct{ path string }

// Navigate returns a command opening path, e.g. "/chat/abc".
func Navigate(path string) tea.Cmd {
	return func() tea.Msg { return navigateMsg{path: path} }
}

// Update handles a message.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.chat.resize(msg.Width, msg.Height)
		m.chat.render(m.userID())
		return m, nil

	case navigateMsg:
		route, param := policy.ParseRoute(msg.path)
		cmd := m.navigate(route, param)
		return m, cmd

	case ToastMsg:
		m.toastSeq++
		toast := msg
		m.toast = &toast
		seq := m.toastSeq
		return m, tea.Tick(toastTTL, func(time.Time) tea.Msg { return toastExpiredMsg{seq: seq} })

	case toastExpiredMsg:
		if msg.seq == m.toastSeq {
			m.toast = nil
		}
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			if m.route == policy.RouteChat {
				m.deps.Chat.Close()
			}
			return m, tea.Quit
		}
	}

	switch m.route {
	case policy.RouteLogin:
		return m.updateLogin(msg)
	case policy.RouteRegister:
		return m.updateRegister(msg)
	case policy.RouteCompleteRegistration:
		return m.updateComplete(msg)
	case policy.RouteDashboard:
		return m.updateDashboard(msg)
	case policy.RouteModels:
		return m.updateCatalog(msg)
	case policy.RouteCredits:
		return m.updateCredits(msg)
	case policy.RouteChat:
		return m.updateChat(msg)
	case policy.RouteNotFound:
		if key, ok := msg.(tea.KeyMsg); ok && (key.String() == "enter" || key.String() == "esc") {
			cmd := m.navigate(policy.RouteHome, "")
			return m, cmd
		}
	}
	if key, ok := msg.(tea.KeyMsg); ok && key.String() == "q" {
		return m, tea.Quit
	}
	return m, nil
}

// navigate switches screens after the route policy had its say.
func (m *Model) navigate(route policy.Route, param string) tea.Cmd {
	authenticated := m.deps.Session.IsAuthenticated()
	if route == policy.RouteHome {
		route = policy.RouteLogin
		if authenticated {
			route = policy.RouteDashboard
		}
	}

	target, err := m.deps.Router.Resolve(context.Background(), route, authenticated)
	if err != nil {
		m.log.Error("route policy failed", "route", route, "error", err)
		target = policy.RouteLogin
		if authenticated {
			target = policy.RouteDashboard
		}
	}
	if target == policy.RouteHome {
		return m.navigate(policy.RouteHome, "")
	}
	if target != route {
		m.log.Debug("route redirected", "from", route, "to", target)
		param = ""
	}

	if m.route == policy.RouteChat && (target != policy.RouteChat || param != m.chat.counterpartyID) {
		m.deps.Chat.Close()
	}
	m.route = target

	switch target {
	case policy.RouteLogin:
		m.login.reset()
	case policy.RouteRegister:
		m.register.reset()
	case policy.RouteCompleteRegistration:
		return m.enterComplete()
	case policy.RouteDashboard:
		return m.enterDashboard()
	case policy.RouteModels:
		return m.enterCatalog()
	case policy.RouteCredits:
		return m.enterCredits()
	case policy.RouteChat:
		return m.enterChat(param)
	}
	return nil
}

func (m Model) userID() string {
	s, _ := m.deps.Session.Current()
	return s.UserID
}

// View renders the current screen.
func (m Model) View() string {
	var body string
	switch m.route {
	case policy.RouteLogin:
		body = m.viewLogin()
	case policy.RouteRegister:
		body = m.viewRegister()
	case policy.RouteCompleteRegistration:
		body = m.viewComplete()
	case policy.RouteDashboard:
		body = m.viewDashboard()
	case policy.RouteModels:
		body = m.viewCatalog()
	case policy.RouteCredits:
		body = m.viewCredits()
	case policy.RouteChat:
		body = m.viewChat()
	case policy.RouteNotFound:
		body = boxStyle.Render(titleStyle.Render("404") + "\n\nPágina não encontrada.\n\n" + mutedStyle.Render("enter: voltar ao início"))
	default:
		body = mutedStyle.Render("Carregando...")
	}

	var b strings.Builder
	b.WriteString(m.header())
	b.WriteString("\n\n")
	b.WriteString(body)
	if m.toast != nil {
		b.WriteString("\n\n")
		b.WriteString(renderToast(*m.toast))
	}
	return b.String()
}

func (m Model) header() string {
	title := titleStyle.Render("Conexão Proibida")
	s, ok := m.deps.Session.Current()
	if !ok {
		return title
	}
	user := mutedStyle.Render(fmt.Sprintf("%s · %d créditos", s.DisplayName, s.CreditBalance))
	gap := m.width - lipgloss.Width(title) - lipgloss.Width(user)
	if gap < 2 {
		gap = 2
	}
	return title + strings.Repeat(" ", gap) + user
}

func renderToast(t ToastMsg) string {
	if t.Kind == notify.KindError {
		return errorStyle.Render("✗ " + t.Text)
	}
	return successStyle.Render("✓ " + t.Text)
}

func help(keys ...string) string {
	return mutedStyle.Render(strings.Join(keys, " · "))
}
