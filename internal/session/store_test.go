package session

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guipratiko/front-conexprob/internal/api"
	"github.com/guipratiko/front-conexprob/internal/domain"
	"github.com/guipratiko/front-conexprob/internal/notify"
	"github.com/guipratiko/front-conexprob/internal/storage"
	"github.com/guipratiko/front-conexprob/internal/testutil"
)

type fakeAPI struct {
	meUser    domain.User
	meErr     error
	loginRes  api.AuthResult
	loginErr  error
	regRes    api.AuthResult
	regErr    error
	regCalls  int
	lastReg   api.RegisterRequest
	pending   domain.PendingAccount
	verifyErr error
	complete  string
	compErr   error
	compCalls int
}

func (f *fakeAPI) Me(ctx context.Context) (domain.User, error) { return f.meUser, f.meErr }

func (f *fakeAPI) Login(ctx context.Context, email, password string) (api.AuthResult, error) {
	return f.loginRes, f.loginErr
}

func (f *fakeAPI) Register(ctx context.Context, req api.RegisterRequest) (api.AuthResult, error) {
	f.regCalls++
	f.lastReg = req
	return f.regRes, f.regErr
}

func (f *fakeAPI) VerifyToken(ctx context.Context, token string) (domain.PendingAccount, error) {
	return f.pending, f.verifyErr
}

func (f *fakeAPI) CompleteRegistration(ctx context.Context, token, password string) (string, error) {
	f.compCalls++
	return f.complete, f.compErr
}

type fakeChannel struct {
	mu          sync.Mutex
	connects    []string
	disconnects int
}

func (c *fakeChannel) Connect(ctx context.Context, token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connects = append(c.connects, token)
}

func (c *fakeChannel) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disconnects++
}

type fixture struct {
	api     *fakeAPI
	channel *fakeChannel
	tokens  *storage.TokenStore
	notes   *notify.Recorder
	store   *Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		api:     &fakeAPI{},
		channel: &fakeChannel{},
		tokens:  storage.NewTokenStore(testutil.NewTestSQLiteStore(t)),
		notes:   &notify.Recorder{},
	}
	f.store = NewStore(f.api, f.channel, f.tokens, f.notes, nil)
	return f
}

var ana = domain.User{ID: "u1", Name: "Ana", Email: "a@b.c", Credits: 40}

func TestLoginSuccess(t *testing.T) {
	f := newFixture(t)
	f.api.loginRes = api.AuthResult{User: ana, Token: "T"}

	res := f.store.Login(context.Background(), "a@b.c", "x")

	assert.True(t, res.Success)
	assert.Equal(t, "T", f.tokens.Token())
	assert.Equal(t, []string{"T"}, f.channel.connects)
	sess, ok := f.store.Current()
	require.True(t, ok)
	assert.Equal(t, "u1", sess.UserID)
	assert.Equal(t, "Ana", sess.DisplayName)
	assert.Equal(t, 40, sess.CreditBalance)
	assert.Equal(t, "T", sess.BearerToken)
	assert.Equal(t, []string{msgLoginOK}, f.notes.Successes())
}

func TestLoginWrongPassword(t *testing.T) {
	f := newFixture(t)
	f.api.loginErr = &api.Error{Status: http.StatusUnauthorized, Message: "Credenciais inválidas"}

	res := f.store.Login(context.Background(), "a@b.c", "wrong")

	assert.False(t, res.Success)
	assert.Equal(t, "Credenciais inválidas", res.Message)
	assert.Empty(t, f.tokens.Token())
	assert.Empty(t, f.channel.connects)
	assert.False(t, f.store.IsAuthenticated())
	assert.Equal(t, []string{"Credenciais inválidas"}, f.notes.Errors())
}

func TestLoginNetworkErrorUsesFallback(t *testing.T) {
	f := newFixture(t)
	f.api.loginErr = errors.New("dial tcp: connection refused")

	res := f.store.Login(context.Background(), "a@b.c", "x")

	assert.False(t, res.Success)
	assert.Equal(t, msgLoginFailed, res.Message)
	assert.Error(t, res.Err)
}

func TestRegisterValidatesBeforeNetwork(t *testing.T) {
	f := newFixture(t)

	res := f.store.Register(context.Background(), "Ana", "a@b.c", "123.456.789", "(11) 98765-4321", "secret")
	assert.False(t, res.Success)
	var verr *ValidationError
	require.ErrorAs(t, res.Err, &verr)
	assert.Equal(t, "CPF", verr.Field)

	res = f.store.Register(context.Background(), "Ana", "a@b.c", "123.456.789-01", "1234", "secret")
	assert.False(t, res.Success)
	require.ErrorAs(t, res.Err, &verr)
	assert.Equal(t, "Phone", verr.Field)

	assert.Equal(t, 0, f.api.regCalls)
	assert.Empty(t, f.notes.Errors())
}

func TestRegisterSuccess(t *testing.T) {
	f := newFixture(t)
	f.api.regRes = api.AuthResult{User: domain.User{ID: "u2", Name: "Bia", Credits: 10}, Token: "R"}

	res := f.store.Register(context.Background(), " Bia ", "b@c.d", "123.456.789-01", "(11) 98765-4321", "secret")

	require.True(t, res.Success)
	assert.Equal(t, "Bia", f.api.lastReg.Name)
	assert.Equal(t, "123.456.789-01", f.api.lastReg.CPF)
	assert.Equal(t, "R", f.tokens.Token())
	sess, _ := f.store.Current()
	assert.Equal(t, 10, sess.CreditBalance)
	assert.Equal(t, []string{"R"}, f.channel.connects)
}

func TestLogoutThenRestoreStaysLoggedOut(t *testing.T) {
	f := newFixture(t)
	f.api.loginRes = api.AuthResult{User: ana, Token: "T"}
	f.api.meUser = ana
	require.True(t, f.store.Login(context.Background(), "a@b.c", "x").Success)

	f.store.Logout()
	f.store.Logout()

	assert.False(t, f.store.IsAuthenticated())
	assert.Empty(t, f.tokens.Token())
	assert.Equal(t, 2, f.channel.disconnects)
	assert.Equal(t, []string{msgLoginOK, msgLogoutOK}, f.notes.Successes())

	assert.False(t, f.store.RestoreSession(context.Background()))
	assert.False(t, f.store.IsAuthenticated())
	assert.Equal(t, []string{"T"}, f.channel.connects)
}

func TestRestoreSessionWithValidToken(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.tokens.Save(context.Background(), "T"))
	f.api.meUser = ana

	assert.True(t, f.store.RestoreSession(context.Background()))
	sess, ok := f.store.Current()
	require.True(t, ok)
	assert.Equal(t, "T", sess.BearerToken)
	assert.Equal(t, []string{"T"}, f.channel.connects)
	assert.Empty(t, f.notes.Successes())
}

func TestRestoreSessionWithExpiredToken(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.tokens.Save(context.Background(), "old"))
	f.api.meErr = &api.Error{Status: http.StatusUnauthorized, Message: "Token expirado"}

	assert.False(t, f.store.RestoreSession(context.Background()))

	assert.Empty(t, f.tokens.Token())
	assert.False(t, f.store.IsAuthenticated())
	assert.Empty(t, f.channel.connects)
	assert.Empty(t, f.notes.Errors())
	assert.Empty(t, f.notes.Successes())
}

func TestVerifyRegistrationToken(t *testing.T) {
	f := newFixture(t)

	_, err := f.store.VerifyRegistrationToken(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidOrExpiredToken)

	f.api.verifyErr = &api.Error{Status: http.StatusBadRequest, Message: "Token expirado"}
	_, err = f.store.VerifyRegistrationToken(context.Background(), "abc")
	assert.ErrorIs(t, err, ErrInvalidOrExpiredToken)
	assert.Contains(t, err.Error(), "Token expirado")

	f.api.verifyErr = nil
	f.api.pending = domain.PendingAccount{Name: "Ana", Credits: 100}
	account, err := f.store.VerifyRegistrationToken(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, 100, account.Credits)
}

func TestCompleteRegistration(t *testing.T) {
	f := newFixture(t)

	res := f.store.CompleteRegistration(context.Background(), "", "secret1")
	assert.ErrorIs(t, res.Err, ErrInvalidOrExpiredToken)

	res = f.store.CompleteRegistration(context.Background(), "once", "123")
	var verr *ValidationError
	assert.ErrorAs(t, res.Err, &verr)
	assert.Equal(t, 0, f.api.compCalls)

	f.api.compErr = &api.Error{Status: http.StatusBadRequest, Message: "Token inválido"}
	res = f.store.CompleteRegistration(context.Background(), "once", "secret1")
	assert.False(t, res.Success)
	assert.ErrorIs(t, res.Err, ErrInvalidOrExpiredToken)
	assert.Equal(t, "Token inválido", res.Message)

	f.api.compErr = nil
	f.api.complete = "NEW"
	f.api.meUser = ana
	res = f.store.CompleteRegistration(context.Background(), "once", "secret1")
	require.True(t, res.Success)
	assert.Equal(t, "NEW", f.tokens.Token())
	assert.Equal(t, []string{"NEW"}, f.channel.connects)
	assert.True(t, f.store.IsAuthenticated())
}

func TestApplyCreditBalanceAndUpdateUser(t *testing.T) {
	f := newFixture(t)
	f.store.ApplyCreditBalance(5)
	assert.False(t, f.store.IsAuthenticated())

	f.api.loginRes = api.AuthResult{User: ana, Token: "T"}
	require.True(t, f.store.Login(context.Background(), "a@b.c", "x").Success)

	f.store.ApplyCreditBalance(10)
	f.store.UpdateUser(domain.User{Name: "Ana Paula"})

	sess, _ := f.store.Current()
	assert.Equal(t, 10, sess.CreditBalance)
	assert.Equal(t, 10, sess.User.Credits)
	assert.Equal(t, "Ana Paula", sess.DisplayName)
	assert.Equal(t, "a@b.c", sess.User.Email)
}
