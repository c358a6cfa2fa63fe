// Package session owns the client's authentication state: the bearer token,
// the user profile and the lifetime of the realtime connection.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/guipratiko/front-conexprob/internal/api"
	"github.com/guipratiko/front-conexprob/internal/domain"
	"github.com/guipratiko/front-conexprob/internal/notify"
)

// ErrInvalidOrExpiredToken is returned for a missing or rejected one-time
// registration token.
var ErrInvalidOrExpiredToken = errors.New("invalid or expired token")

// User-facing messages.
const (
	msgLoginOK          = "Login realizado com sucesso!"
	msgLoginFailed      = "Erro ao fazer login"
	msgRegisterOK       = "Cadastro realizado com sucesso!"
	msgRegisterFailed   = "Erro ao criar conta"
	msgCompleteOK       = "Cadastro concluído com sucesso!"
	msgCompleteFailed   = "Erro ao completar cadastro."
	msgInvalidToken     = "Token inválido ou expirado."
	msgLogoutOK         = "Logout realizado com sucesso!"
	msgTokenNotProvided = "Token não fornecido."
)

// Result is the outcome of an authentication operation. Failures never
// propagate as panics; Message is what was shown to the user.
type Result struct {
	Success bool
	Message string
	Err     error
}

// AuthAPI is the subset of the REST client used by the store.
type AuthAPI interface {
	Me(ctx context.Context) (domain.User, error)
	Login(ctx context.Context, email, password string) (api.AuthResult, error)
	Register(ctx context.Context, req api.RegisterRequest) (api.AuthResult, error)
	VerifyToken(ctx context.Context, token string) (domain.PendingAccount, error)
	CompleteRegistration(ctx context.Context, token, password string) (string, error)
}

// Connector is the realtime channel lifecycle driven by the session.
type Connector interface {
	Connect(ctx context.Context, token string)
	Disconnect()
}

// TokenStore persists the bearer token.
type TokenStore interface {
	Token() string
	Save(ctx context.Context, token string) error
	Clear(ctx context.Context) error
}

// Store is the session store. It is safe for concurrent use.
type Store struct {
	api     AuthAPI
	channel Connector
	tokens  TokenStore
	notify  notify.Notifier
	log     *slog.Logger

	mu      sync.RWMutex
	current *domain.Session
}

// NewStore creates a logged-out session store.
func NewStore(authAPI AuthAPI, channel Connector, tokens TokenStore, notifier notify.Notifier, logger *slog.Logger) *Store {
	if notifier == nil {
		notifier = notify.Discard{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		api:     authAPI,
		channel: channel,
		tokens:  tokens,
		notify:  notifier,
		log:     logger.With("component", "session"),
	}
}

// Current returns a copy of the session, if authenticated.
func (s *Store) Current() (domain.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return domain.Session{}, false
	}
	return *s.current, true
}

// IsAuthenticated reports whether a session is held.
func (s *Store) IsAuthenticated() bool {
	_, ok := s.Current()
	return ok
}

// Login authenticates with email and password.
func (s *Store) Login(ctx context.Context, email, password string) Result {
	res, err := s.api.Login(ctx, strings.TrimSpace(email), password)
	if err != nil {
		return s.fail(err, msgLoginFailed)
	}
	if err := s.establish(ctx, res.Token, res.User); err != nil {
		return s.fail(err, msgLoginFailed)
	}
	s.notify.Success(msgLoginOK)
	return Result{Success: true, Message: msgLoginOK}
}

// Register creates an account and logs it in. The national ID must have 11
// digits and the phone 10 or 11, ignoring formatting.
func (s *Store) Register(ctx context.Context, name, email, nationalID, phone, password string) Result {
	if n := len(Digits(nationalID)); n != 11 {
		return s.invalid(&ValidationError{Field: "CPF", Message: messages["cpf"]})
	}
	if n := len(Digits(phone)); n < 10 || n > 11 {
		return s.invalid(&ValidationError{Field: "Phone", Message: messages["phone"]})
	}

	res, err := s.api.Register(ctx, api.RegisterRequest{
		Name:     strings.TrimSpace(name),
		Email:    strings.TrimSpace(email),
		CPF:      nationalID,
		Phone:    phone,
		Password: password,
	})
	if err != nil {
		return s.fail(err, msgRegisterFailed)
	}
	if err := s.establish(ctx, res.Token, res.User); err != nil {
		return s.fail(err, msgRegisterFailed)
	}
	s.notify.Success(msgRegisterOK)
	return Result{Success: true, Message: msgRegisterOK}
}

// VerifyRegistrationToken looks up the pending account for a one-time token.
func (s *Store) VerifyRegistrationToken(ctx context.Context, token string) (domain.PendingAccount, error) {
	if strings.TrimSpace(token) == "" {
		return domain.PendingAccount{}, fmt.Errorf("%s: %w", msgTokenNotProvided, ErrInvalidOrExpiredToken)
	}
	account, err := s.api.VerifyToken(ctx, token)
	if err != nil {
		return domain.PendingAccount{}, fmt.Errorf("%s: %w", api.MessageOf(err, msgInvalidToken), ErrInvalidOrExpiredToken)
	}
	return account, nil
}

// CompleteRegistration exchanges a one-time token and a new password for a
// session.
func (s *Store) CompleteRegistration(ctx context.Context, token, newPassword string) Result {
	if strings.TrimSpace(token) == "" {
		err := fmt.Errorf("%s: %w", msgTokenNotProvided, ErrInvalidOrExpiredToken)
		s.notify.Error(msgTokenNotProvided)
		return Result{Message: msgTokenNotProvided, Err: err}
	}
	if err := check(PasswordForm{Password: newPassword, ConfirmPassword: newPassword}); err != nil {
		return s.invalid(err)
	}

	bearer, err := s.api.CompleteRegistration(ctx, token, newPassword)
	if err != nil {
		msg := api.MessageOf(err, msgCompleteFailed)
		s.log.Warn("complete registration failed", "error", err)
		s.notify.Error(msg)
		return Result{Message: msg, Err: fmt.Errorf("%w: %v", ErrInvalidOrExpiredToken, err)}
	}
	if bearer == "" {
		s.notify.Error(msgCompleteFailed)
		return Result{Message: msgCompleteFailed, Err: errors.New("complete registration: empty token")}
	}

	if err := s.tokens.Save(ctx, bearer); err != nil {
		return s.fail(fmt.Errorf("persist token: %w", err), msgCompleteFailed)
	}
	user, err := s.api.Me(ctx)
	if err != nil {
		s.clearToken(ctx)
		return s.fail(err, msgCompleteFailed)
	}
	s.hold(bearer, user)
	s.channel.Connect(ctx, bearer)
	s.notify.Success(msgCompleteOK)
	return Result{Success: true, Message: msgCompleteOK}
}

// Logout clears the token, the profile and the realtime connection. Calling
// it while logged out is harmless.
func (s *Store) Logout() {
	s.clearToken(context.Background())
	s.channel.Disconnect()

	s.mu.Lock()
	wasAuthenticated := s.current != nil
	s.current = nil
	s.mu.Unlock()

	if wasAuthenticated {
		s.notify.Success(msgLogoutOK)
	}
}

// RestoreSession resumes a persisted session at startup. A rejected token is
// cleared without notifying the user.
func (s *Store) RestoreSession(ctx context.Context) bool {
	token := s.tokens.Token()
	if token == "" {
		return false
	}
	user, err := s.api.Me(ctx)
	if err != nil {
		s.log.Info("persisted session rejected", "error", err)
		s.clearToken(ctx)
		s.channel.Disconnect()
		return false
	}
	s.hold(token, user)
	s.channel.Connect(ctx, token)
	return true
}

// UpdateUser merges the non-zero fields of patch into the held profile.
func (s *Store) UpdateUser(patch domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return
	}
	u := &s.current.User
	if patch.Name != "" {
		u.Name = patch.Name
		s.current.DisplayName = patch.Name
	}
	if patch.Email != "" {
		u.Email = patch.Email
	}
	if patch.Phone != "" {
		u.Phone = patch.Phone
	}
	if patch.Role != "" {
		u.Role = patch.Role
	}
}

// ApplyCreditBalance sets the held credit balance.
func (s *Store) ApplyCreditBalance(credits int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return
	}
	s.current.CreditBalance = credits
	s.current.User.Credits = credits
}

func (s *Store) establish(ctx context.Context, token string, user domain.User) error {
	if token == "" {
		return errors.New("server returned no token")
	}
	if err := s.tokens.Save(ctx, token); err != nil {
		return fmt.Errorf("persist token: %w", err)
	}
	s.hold(token, user)
	s.channel.Connect(ctx, token)
	return nil
}

func (s *Store) hold(token string, user domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = &domain.Session{
		UserID:        user.ID,
		DisplayName:   user.Name,
		CreditBalance: user.Credits,
		BearerToken:   token,
		User:          user,
	}
}

func (s *Store) clearToken(ctx context.Context) {
	if err := s.tokens.Clear(ctx); err != nil {
		s.log.Error("clear token", "error", err)
	}
}

func (s *Store) fail(err error, fallback string) Result {
	msg := api.MessageOf(err, fallback)
	s.log.Warn("authentication failed", "error", err)
	s.notify.Error(msg)
	return Result{Message: msg, Err: err}
}

func (s *Store) invalid(err error) Result {
	var verr *ValidationError
	msg := err.Error()
	if errors.As(err, &verr) {
		msg = verr.Message
	}
	return Result{Message: msg, Err: err}
}
