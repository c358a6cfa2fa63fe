package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/guipratiko/front-conexprob/internal/domain"
)

// AuthResult is returned by login and registration.
type AuthResult struct {
	User  domain.User `json:"user"`
	Token string      `json:"token"`
}

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	CPF      string `json:"cpf"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

// Me calls GET /auth/me.
func (c *Client) Me(ctx context.Context) (domain.User, error) {
	var out struct {
		User domain.User `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, &out); err != nil {
		return domain.User{}, err
	}
	return out.User, nil
}

// Login calls POST /auth/login.
func (c *Client) Login(ctx context.Context, email, password string) (AuthResult, error) {
	var out AuthResult
	in := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/auth/login", in, &out); err != nil {
		return AuthResult{}, err
	}
	return out, nil
}

// Register calls POST /auth/register.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (AuthResult, error) {
	var out AuthResult
	if err := c.do(ctx, http.MethodPost, "/auth/register", req, &out); err != nil {
		return AuthResult{}, err
	}
	return out, nil
}

// VerifyToken calls GET /auth/verify-token/:token.
func (c *Client) VerifyToken(ctx context.Context, token string) (domain.PendingAccount, error) {
	var out domain.PendingAccount
	if err := c.do(ctx, http.MethodGet, "/auth/verify-token/"+url.PathEscape(token), nil, &out); err != nil {
		return domain.PendingAccount{}, err
	}
	return out, nil
}

// CompleteRegistration calls POST /auth/complete-registration and returns the
// issued bearer token.
func (c *Client) CompleteRegistration(ctx context.Context, token, password string) (string, error) {
	var out struct {
		Token string `json:"token"`
	}
	in := map[string]string{"token": token, "password": password}
	if err := c.do(ctx, http.MethodPost, "/auth/complete-registration", in, &out); err != nil {
		return "", err
	}
	return out.Token, nil
}
