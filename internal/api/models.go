package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/guipratiko/front-conexprob/internal/domain"
)

// ModelQuery filters GET /models. Zero fields are omitted.
type ModelQuery struct {
	UserID string
	Online *bool
}

func (q ModelQuery) encode() string {
	v := url.Values{}
	if q.UserID != "" {
		v.Set("userId", q.UserID)
	}
	if q.Online != nil {
		v.Set("online", strconv.FormatBool(*q.Online))
	}
	if len(v) == 0 {
		return ""
	}
	return "?" + v.Encode()
}

// ListModels calls GET /models.
func (c *Client) ListModels(ctx context.Context, q ModelQuery) ([]domain.ModelProfile, error) {
	var out struct {
		Models []domain.ModelProfile `json:"models"`
	}
	if err := c.do(ctx, http.MethodGet, "/models"+q.encode(), nil, &out); err != nil {
		return nil, err
	}
	return out.Models, nil
}

// GetConversation calls GET /chat/conversation/:modelId.
func (c *Client) GetConversation(ctx context.Context, counterpartyID string) ([]domain.Message, error) {
	var out struct {
		Messages []domain.Message `json:"messages"`
	}
	if err := c.do(ctx, http.MethodGet, "/chat/conversation/"+url.PathEscape(counterpartyID), nil, &out); err != nil {
		return nil, err
	}
	return out.Messages, nil
}

// ListConversations calls GET /chat/conversations.
func (c *Client) ListConversations(ctx context.Context) ([]domain.ConversationSummary, error) {
	var out struct {
		Conversations []domain.ConversationSummary `json:"conversations"`
	}
	if err := c.do(ctx, http.MethodGet, "/chat/conversations", nil, &out); err != nil {
		return nil, err
	}
	return out.Conversations, nil
}
