package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guipratiko/front-conexprob/internal/chat"
	"github.com/guipratiko/front-conexprob/internal/credits"
	"github.com/guipratiko/front-conexprob/internal/domain"
	"github.com/guipratiko/front-conexprob/internal/notify"
	"github.com/guipratiko/front-conexprob/internal/policy"
	"github.com/guipratiko/front-conexprob/internal/session"
)

type fakeSession struct {
	mu         sync.Mutex
	current    *domain.Session
	logins     int
	registered []string
	completed  []string
}

func (f *fakeSession) Current() (domain.Session, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.current == nil {
		return domain.Session{}, false
	}
	return *f.current, true
}

func (f *fakeSession) IsAuthenticated() bool {
	_, ok := f.Current()
	return ok
}

func (f *fakeSession) signIn() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.current = &domain.Session{UserID: "u1", DisplayName: "Bia", CreditBalance: 10, BearerToken: "tok"}
}

func (f *fakeSession) Login(_ context.Context, email, password string) session.Result {
	f.mu.Lock()
	f.logins++
	f.mu.Unlock()
	if password != "secret" {
		return session.Result{Message: "Credenciais inválidas", Err: errors.New("401")}
	}
	f.signIn()
	return session.Result{Success: true, Message: "Login realizado com sucesso!"}
}

func (f *fakeSession) Register(_ context.Context, name, email, nationalID, phone, password string) session.Result {
	f.mu.Lock()
	f.registered = []string{name, email, nationalID, phone, password}
	f.mu.Unlock()
	f.signIn()
	return session.Result{Success: true}
}

func (f *fakeSession) VerifyRegistrationToken(_ context.Context, token string) (domain.PendingAccount, error) {
	if token != "good" {
		return domain.PendingAccount{}, fmt.Errorf("Token inválido ou expirado.: %w", session.ErrInvalidOrExpiredToken)
	}
	return domain.PendingAccount{Name: "Bia", Email: "bia@example.com", Credits: 100}, nil
}

func (f *fakeSession) CompleteRegistration(_ context.Context, token, newPassword string) session.Result {
	f.mu.Lock()
	f.completed = []string{token, newPassword}
	f.mu.Unlock()
	f.signIn()
	return session.Result{Success: true}
}

func (f *fakeSession) Logout() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.current = nil
}

type fakeCatalog struct {
	mu     sync.Mutex
	models []domain.ModelProfile
	calls  []bool
}

func (f *fakeCatalog) List(_ context.Context, onlineOnly bool) ([]domain.ModelProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, onlineOnly)
	return f.models, nil
}

type fakeCredits struct{}

func (fakeCredits) Packages() []domain.CreditPackage {
	return credits.Packages(credits.DefaultCheckoutLinks())
}

func (fakeCredits) RecentTransactions(context.Context) []domain.Transaction {
	return []domain.Transaction{{ID: "t1", Type: domain.TransactionPurchase, Credits: 100, Status: domain.TransactionCompleted}}
}

func (fakeCredits) Dashboard(context.Context) (credits.Dashboard, error) {
	return credits.Dashboard{
		TotalSpent: 30,
		Conversations: []domain.ConversationSummary{
			{LastMessagePreview: "oi"},
		},
	}, nil
}

type fakeChat struct {
	mu         sync.Mutex
	snap       chat.Snapshot
	openErr    error
	opened     []string
	sent       []string
	keystrokes int
	closed     int
}

func (f *fakeChat) Open(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opened = append(f.opened, id)
	if f.openErr != nil {
		f.snap = chat.Snapshot{State: chat.StateIdle}
		return f.openErr
	}
	f.snap = chat.Snapshot{
		State:          chat.StateReady,
		CounterpartyID: id,
		Counterparty:   &domain.ModelProfile{Name: "Ana", IsOnline: true},
	}
	return nil
}

func (f *fakeChat) SendMessage(text string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	text = strings.TrimSpace(text)
	if text == "" || f.snap.SendInFlight {
		return false
	}
	f.sent = append(f.sent, text)
	f.snap.SendInFlight = true
	return true
}

func (f *fakeChat) Keystroke() {
	f.mu.Lock()
	f.keystrokes++
	f.mu.Unlock()
}

func (f *fakeChat) DismissShortfall() {
	f.mu.Lock()
	f.snap.Shortfall = nil
	f.mu.Unlock()
}

func (f *fakeChat) AcknowledgeShortfall() policy.Route {
	f.DismissShortfall()
	return policy.RouteCredits
}

func (f *fakeChat) Close() {
	f.mu.Lock()
	f.closed++
	f.mu.Unlock()
}

func (f *fakeChat) Snapshot() chat.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := f.snap
	s.Messages = append([]domain.Message(nil), f.snap.Messages...)
	return s
}

func (f *fakeChat) echo(msg domain.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snap.SendInFlight = false
	f.snap.Messages = append(f.snap.Messages, msg)
}

type harness struct {
	session *fakeSession
	catalog *fakeCatalog
	chat    *fakeChat
	deps    Deps
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	engine, err := policy.NewDefaultEngine(context.Background())
	require.NoError(t, err)

	h := &harness{
		session: &fakeSession{},
		catalog: &fakeCatalog{models: []domain.ModelProfile{
			{ID: "m1", UserIDString: "u-ana", Name: "Ana", Bio: "Adoro conversar", IsOnline: true},
			{ID: "m2", UserIDString: "u-bela", Name: "Bela", Bio: "Viajante"},
		}},
		chat: &fakeChat{},
	}
	h.deps = Deps{
		Session: h.session,
		Catalog: h.catalog,
		Credits: fakeCredits{},
		Chat:    h.chat,
		Router:  engine,
	}
	return h
}

// start runs Init and settles the resulting navigation.
func (h *harness) start(t *testing.T, path string) Model {
	t.Helper()
	h.deps.Start = path
	m := New(h.deps)
	return settle(t, m, m.Init())
}

func send(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	out, ok := next.(Model)
	require.True(t, ok)
	return out, cmd
}

// settle runs cmd and feeds the resulting messages back until none is left.
func settle(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	for i := 0; cmd != nil && i < 10; i++ {
		msg := cmd()
		if msg == nil {
			return m
		}
		m, cmd = send(t, m, msg)
	}
	return m
}

func press(t *testing.T, m Model, key tea.KeyType) Model {
	t.Helper()
	m, cmd := send(t, m, tea.KeyMsg{Type: key})
	return settle(t, m, cmd)
}

func typeText(t *testing.T, m Model, text string) Model {
	t.Helper()
	m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
	return m
}

func TestGuestIsSentToLogin(t *testing.T) {
	h := newHarness(t)

	assert.Equal(t, policy.RouteLogin, h.start(t, "").Route())
	assert.Equal(t, policy.RouteLogin, h.start(t, "/dashboard").Route())
	assert.Equal(t, policy.RouteLogin, h.start(t, "/chat/u-ana").Route())
	assert.Empty(t, h.chat.opened)
}

func TestSignedInUserSkipsGuestScreens(t *testing.T) {
	h := newHarness(t)
	h.session.signIn()

	assert.Equal(t, policy.RouteDashboard, h.start(t, "").Route())
	assert.Equal(t, policy.RouteDashboard, h.start(t, "/login").Route())
	assert.Equal(t, policy.RouteDashboard, h.start(t, "/register").Route())
}

func TestUnknownPathShowsNotFound(t *testing.T) {
	h := newHarness(t)

	m := h.start(t, "/nope")
	assert.Equal(t, policy.RouteNotFound, m.Route())
	assert.Contains(t, m.View(), "404")

	m = press(t, m, tea.KeyEnter)
	assert.Equal(t, policy.RouteLogin, m.Route())
}

func TestLoginOpensDashboard(t *testing.T) {
	h := newHarness(t)
	m := h.start(t, "/login")

	m = typeText(t, m, "bia@example.com")
	m = press(t, m, tea.KeyTab)
	m = typeText(t, m, "secret")
	m = press(t, m, tea.KeyEnter)

	assert.Equal(t, 1, h.session.logins)
	assert.Equal(t, policy.RouteDashboard, m.Route())
	assert.False(t, m.dash.loading)
	assert.Equal(t, 30, m.dash.data.TotalSpent)
	assert.Contains(t, m.View(), "Bia")
}

func TestLoginValidationSkipsNetwork(t *testing.T) {
	h := newHarness(t)
	m := h.start(t, "/login")

	m = typeText(t, m, "not-an-email")
	m = press(t, m, tea.KeyTab)
	m = typeText(t, m, "secret")
	m = press(t, m, tea.KeyEnter)

	assert.Equal(t, 0, h.session.logins)
	assert.Equal(t, policy.RouteLogin, m.Route())
	assert.NotEmpty(t, m.login.err)
}

func TestLoginFailureShowsServerMessage(t *testing.T) {
	h := newHarness(t)
	m := h.start(t, "/login")

	m = typeText(t, m, "bia@example.com")
	m = press(t, m, tea.KeyTab)
	m = typeText(t, m, "wrong")
	m = press(t, m, tea.KeyEnter)

	assert.Equal(t, policy.RouteLogin, m.Route())
	assert.Equal(t, "Credenciais inválidas", m.login.err)
	assert.False(t, m.login.busy)
}

func TestRegisterMasksDocumentAndPhone(t *testing.T) {
	h := newHarness(t)
	m := h.start(t, "/register")

	m = typeText(t, m, "Bia")
	m = press(t, m, tea.KeyTab)
	m = typeText(t, m, "bia@example.com")
	m = press(t, m, tea.KeyTab)
	m = typeText(t, m, "12345678901")
	m = press(t, m, tea.KeyTab)
	m = typeText(t, m, "11987654321")

	assert.Equal(t, "123.456.789-01", m.register.value(registerCPF))
	assert.Equal(t, "(11) 98765-4321", m.register.value(registerPhone))

	m = press(t, m, tea.KeyTab)
	m = typeText(t, m, "secret1")
	m = press(t, m, tea.KeyTab)
	m = typeText(t, m, "secret2")
	m = press(t, m, tea.KeyEnter)

	assert.Equal(t, policy.RouteRegister, m.Route())
	assert.Nil(t, h.session.registered)
	assert.NotEmpty(t, m.register.err)

	m.register.setValue(registerConfirm, "secret1")
	m.register.focus(registerConfirm)
	m = press(t, m, tea.KeyEnter)

	assert.Equal(t, policy.RouteDashboard, m.Route())
	assert.Equal(t, []string{"Bia", "bia@example.com", "123.456.789-01", "(11) 98765-4321", "secret1"}, h.session.registered)
}

func TestCompleteRegistrationWithToken(t *testing.T) {
	h := newHarness(t)
	h.deps.RegistrationToken = "good"
	m := h.start(t, "/complete-registration")

	require.NotNil(t, m.complete.account)
	assert.Contains(t, m.View(), "100 créditos")

	m = typeText(t, m, "abc123")
	m = press(t, m, tea.KeyEnter)
	m = typeText(t, m, "abc123")
	m = press(t, m, tea.KeyEnter)

	assert.Equal(t, []string{"good", "abc123"}, h.session.completed)
	assert.Equal(t, policy.RouteDashboard, m.Route())
}

func TestCompleteRegistrationRejectsShortPassword(t *testing.T) {
	h := newHarness(t)
	h.deps.RegistrationToken = "good"
	m := h.start(t, "/complete-registration")

	m = typeText(t, m, "abc")
	m = press(t, m, tea.KeyEnter)
	m = typeText(t, m, "abc")
	m = press(t, m, tea.KeyEnter)

	assert.Nil(t, h.session.completed)
	assert.NotEmpty(t, m.complete.form.err)
}

func TestCompleteRegistrationBadToken(t *testing.T) {
	h := newHarness(t)
	m := h.start(t, "/complete-registration")
	assert.Nil(t, m.complete.account)

	m = typeText(t, m, "expired")
	m = press(t, m, tea.KeyEnter)

	assert.Nil(t, m.complete.account)
	assert.Equal(t, "Token inválido ou expirado.", m.complete.form.err)
}

func TestCatalogSearchOpensChat(t *testing.T) {
	h := newHarness(t)
	h.session.signIn()
	m := h.start(t, "/models")
	require.Len(t, m.catalog.models, 2)

	m = typeText(t, m, "/")
	require.True(t, m.catalog.searching)
	m = typeText(t, m, "viaj")
	m = press(t, m, tea.KeyEnter)
	require.Len(t, m.catalog.visible(), 1)

	m = press(t, m, tea.KeyEnter)
	assert.Equal(t, policy.RouteChat, m.Route())
	assert.Equal(t, []string{"u-bela"}, h.chat.opened)
	assert.Equal(t, chat.StateReady, m.chat.snap.State)
}

func TestCatalogOnlineToggleReloads(t *testing.T) {
	h := newHarness(t)
	h.session.signIn()
	m := h.start(t, "/models")

	m, cmd := send(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("o")})
	assert.True(t, m.catalog.loading)
	m = settle(t, m, cmd)

	assert.True(t, m.catalog.onlineOnly)
	assert.False(t, m.catalog.loading)
	assert.Equal(t, []bool{false, true}, h.catalog.calls)
}

func TestChatDraftClearedOnEcho(t *testing.T) {
	h := newHarness(t)
	h.session.signIn()
	m := h.start(t, "/chat/u-ana")
	require.Equal(t, policy.RouteChat, m.Route())

	m = typeText(t, m, "oi")
	assert.Equal(t, 1, h.chat.keystrokes)

	m = press(t, m, tea.KeyEnter)
	assert.Equal(t, []string{"oi"}, h.chat.sent)
	assert.Equal(t, "oi", m.chat.input.Value())
	assert.Contains(t, m.View(), "enviando...")

	m = press(t, m, tea.KeyEnter)
	assert.Len(t, h.chat.sent, 1)

	h.chat.echo(domain.Message{ID: "1", SenderID: "u1", Content: "oi"})
	m, _ = send(t, m, ChatChangedMsg{})

	assert.Empty(t, m.chat.input.Value())
	assert.Len(t, m.chat.snap.Messages, 1)
	assert.Contains(t, m.chat.viewport.View(), "Você")
}

func TestChatDraftDiscardedOnShortfall(t *testing.T) {
	h := newHarness(t)
	h.session.signIn()
	m := h.start(t, "/chat/u-ana")

	m = typeText(t, m, "oi")
	m = press(t, m, tea.KeyEnter)
	require.True(t, m.chat.snap.SendInFlight)

	h.chat.mu.Lock()
	h.chat.snap.SendInFlight = false
	h.chat.snap.Shortfall = &domain.CreditShortfallNotice{CurrentCredits: 10, RequiredCredits: 25, CounterpartyName: "Ana"}
	h.chat.mu.Unlock()
	m, _ = send(t, m, ChatChangedMsg{})

	assert.Empty(t, m.chat.input.Value())
	assert.Empty(t, m.chat.snap.Messages)
	assert.False(t, m.chat.snap.SendInFlight)
}

func TestChatShortfallModalOpensCredits(t *testing.T) {
	h := newHarness(t)
	h.session.signIn()
	m := h.start(t, "/chat/u-ana")

	h.chat.mu.Lock()
	h.chat.snap.Shortfall = &domain.CreditShortfallNotice{CurrentCredits: 10, RequiredCredits: 25, CounterpartyName: "Ana"}
	h.chat.mu.Unlock()
	m, _ = send(t, m, ChatChangedMsg{})

	view := m.View()
	assert.Contains(t, view, "Créditos insuficientes")
	assert.Contains(t, view, "10 créditos")
	assert.Contains(t, view, "25 créditos")
	assert.Contains(t, view, "Ana")

	m = typeText(t, m, "x")
	assert.Equal(t, 0, h.chat.keystrokes)

	m = press(t, m, tea.KeyEnter)
	assert.Equal(t, policy.RouteCredits, m.Route())
	assert.Equal(t, 1, h.chat.closed)
	assert.Len(t, m.credits.packages, 3)
	assert.Len(t, m.credits.transactions, 1)
}

func TestChatShortfallDismiss(t *testing.T) {
	h := newHarness(t)
	h.session.signIn()
	m := h.start(t, "/chat/u-ana")

	h.chat.mu.Lock()
	h.chat.snap.Shortfall = &domain.CreditShortfallNotice{CurrentCredits: 1, RequiredCredits: 2, CounterpartyName: "Ana"}
	h.chat.mu.Unlock()
	m, _ = send(t, m, ChatChangedMsg{})

	m = press(t, m, tea.KeyEsc)
	assert.Equal(t, policy.RouteChat, m.Route())
	assert.Nil(t, m.chat.snap.Shortfall)
}

func TestChatOpenFailureReturnsToModels(t *testing.T) {
	h := newHarness(t)
	h.session.signIn()
	h.chat.openErr = chat.ErrModelNotFound

	m := h.start(t, "/chat/missing")

	assert.Equal(t, policy.RouteModels, m.Route())
	assert.Equal(t, 1, h.chat.closed)
}

func TestLeavingChatClosesController(t *testing.T) {
	h := newHarness(t)
	h.session.signIn()
	m := h.start(t, "/chat/u-ana")

	m = press(t, m, tea.KeyEsc)

	assert.Equal(t, policy.RouteModels, m.Route())
	assert.Equal(t, 1, h.chat.closed)
}

func TestDashboardLogout(t *testing.T) {
	h := newHarness(t)
	h.session.signIn()
	m := h.start(t, "/dashboard")

	m = typeText(t, m, "L")

	assert.False(t, h.session.IsAuthenticated())
	assert.Equal(t, policy.RouteLogin, m.Route())
}

func TestCreditsShowsCheckoutLink(t *testing.T) {
	h := newHarness(t)
	h.session.signIn()
	m := h.start(t, "/credits")

	require.Equal(t, 1, m.credits.selected)
	m = press(t, m, tea.KeyEnter)

	assert.Equal(t, credits.DefaultCheckout500, m.credits.checkout)
	assert.Contains(t, m.View(), credits.DefaultCheckout500)
}

func TestToastExpiresBySequence(t *testing.T) {
	h := newHarness(t)
	m := h.start(t, "/login")

	m, _ = send(t, m, ToastMsg{Kind: notify.KindError, Text: "Erro ao fazer login"})
	m, _ = send(t, m, ToastMsg{Kind: notify.KindSuccess, Text: "Login realizado com sucesso!"})
	assert.Contains(t, m.View(), "Login realizado com sucesso!")

	m, _ = send(t, m, toastExpiredMsg{seq: 1})
	assert.NotNil(t, m.toast)

	m, _ = send(t, m, toastExpiredMsg{seq: 2})
	assert.Nil(t, m.toast)
}

func TestBridgeQueuesBeforeAttach(t *testing.T) {
	var b Bridge
	b.Notifier().Error("falhou")
	b.ChatChanged()

	b.mu.Lock()
	defer b.mu.Unlock()
	require.Len(t, b.pending, 2)
	assert.Equal(t, ToastMsg{Kind: notify.KindError, Text: "falhou"}, b.pending[0])
	assert.Equal(t, ChatChangedMsg{}, b.pending[1])
}

type recordingSender struct {
	mu   sync.Mutex
	msgs []tea.Msg
}

func (r *recordingSender) Send(msg tea.Msg) {
	r.mu.Lock()
	r.msgs = append(r.msgs, msg)
	r.mu.Unlock()
}

func (r *recordingSender) received() []tea.Msg {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]tea.Msg(nil), r.msgs...)
}

func TestBridgeKeepsSendOrder(t *testing.T) {
	var b Bridge
	n := b.Notifier()
	n.Error("antes")

	out := &recordingSender{}
	b.attach(out)

	var want []tea.Msg
	want = append(want, ToastMsg{Kind: notify.KindError, Text: "antes"})
	for i := 0; i < 50; i++ {
		text := fmt.Sprintf("toast %d", i)
		n.Success(text)
		want = append(want, ToastMsg{Kind: notify.KindSuccess, Text: text})
	}

	require.Eventually(t, func() bool { return len(out.received()) == len(want) }, time.Second, 5*time.Millisecond)
	assert.Equal(t, want, out.received())
}
