package credits

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/guipratiko/front-conexprob/internal/domain"
)

const (
	dashboardTransactions  = 5
	dashboardConversations = 3
)

// Dashboard is the member overview.
type Dashboard struct {
	Transactions  []domain.Transaction
	Conversations []domain.ConversationSummary
	TotalSpent    int
}

// Dashboard loads transactions and conversations concurrently. A failure to
// load conversations leaves that section empty.
func (s *Service) Dashboard(ctx context.Context) (Dashboard, error) {
	var (
		txs   []domain.Transaction
		convs []domain.ConversationSummary
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		txs, err = s.api.ListTransactions(gctx, 0)
		if err != nil {
			return fmt.Errorf("load transactions: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		convs, err = s.api.ListConversations(gctx)
		if err != nil {
			s.log.Warn("load conversations failed", "error", err)
			convs = nil
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return Dashboard{}, err
	}

	return Dashboard{
		Transactions:  head(txs, dashboardTransactions),
		Conversations: head(convs, dashboardConversations),
		TotalSpent:    TotalSpent(txs),
	}, nil
}

func head[T any](s []T, n int) []T {
	if len(s) > n {
		s = s[:n]
	}
	return append([]T(nil), s...)
}
