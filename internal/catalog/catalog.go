// Package catalog lists the models available for chat.
package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/guipratiko/front-conexprob/internal/api"
	"github.com/guipratiko/front-conexprob/internal/domain"
)

// Lister is the subset of the REST client used by the catalog.
type Lister interface {
	ListModels(ctx context.Context, q api.ModelQuery) ([]domain.ModelProfile, error)
}

// Service fetches the model catalog.
type Service struct {
	api Lister
}

// NewService creates a catalog service.
func NewService(lister Lister) *Service {
	return &Service{api: lister}
}

// List returns the models, restricted to online ones when onlineOnly is set.
func (s *Service) List(ctx context.Context, onlineOnly bool) ([]domain.ModelProfile, error) {
	models, err := s.api.ListModels(ctx, api.ModelQuery{Online: &onlineOnly})
	if err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}
	return models, nil
}

// Filter keeps the models whose name or bio contains term, ignoring case.
// An empty term keeps everything.
func Filter(models []domain.ModelProfile, term string) []domain.ModelProfile {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return models
	}
	out := make([]domain.ModelProfile, 0, len(models))
	for _, m := range models {
		if strings.Contains(strings.ToLower(m.Name), term) || strings.Contains(strings.ToLower(m.Bio), term) {
			out = append(out, m)
		}
	}
	return out
}
