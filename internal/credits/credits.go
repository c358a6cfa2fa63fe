// Package credits exposes the credit packages, the transaction history and
// the member dashboard.
package credits

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/guipratiko/front-conexprob/internal/api"
	"github.com/guipratiko/front-conexprob/internal/domain"
)

// TransactionsLimit is the number of transactions shown on the credits screen.
const TransactionsLimit = 10

// Default checkout links of the fixed packages.
const (
	DefaultCheckout100  = "https://conexaoproibida.carrinho.app/one-checkout/ocmtb/30423331"
	DefaultCheckout500  = "https://conexaoproibida.carrinho.app/one-checkout/ocmtb/30423558"
	DefaultCheckout1000 = "https://conexaoproibida.carrinho.app/one-checkout/ocmtb/30423612"
)

// CheckoutLinks are the external checkout pages of the fixed packages.
type CheckoutLinks struct {
	Credits100  string `toml:"credits_100"`
	Credits500  string `toml:"credits_500"`
	Credits1000 string `toml:"credits_1000"`
}

// DefaultCheckoutLinks returns the production checkout links.
func DefaultCheckoutLinks() CheckoutLinks {
	return CheckoutLinks{
		Credits100:  DefaultCheckout100,
		Credits500:  DefaultCheckout500,
		Credits1000: DefaultCheckout1000,
	}
}

// Packages returns the fixed package catalogue. Payment happens on the
// external checkout page.
func Packages(links CheckoutLinks) []domain.CreditPackage {
	return []domain.CreditPackage{
		{Credits: 100, Price: 27.00, CheckoutURL: links.Credits100},
		{Credits: 500, Price: 57.00, CheckoutURL: links.Credits500, Popular: true},
		{Credits: 1000, Price: 97.00, CheckoutURL: links.Credits1000},
	}
}

// API is the subset of the REST client used by the service.
type API interface {
	ListTransactions(ctx context.Context, limit int) ([]domain.Transaction, error)
	ListPackages(ctx context.Context) ([]domain.CreditPackage, error)
	Purchase(ctx context.Context, packageID string) (api.PurchaseResult, error)
	ListConversations(ctx context.Context) ([]domain.ConversationSummary, error)
}

// Service serves the credits and dashboard screens.
type Service struct {
	api      API
	packages []domain.CreditPackage
	log      *slog.Logger
}

// NewService creates a credits service.
func NewService(creditsAPI API, links CheckoutLinks, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		api:      creditsAPI,
		packages: Packages(links),
		log:      logger.With("component", "credits"),
	}
}

// Packages returns the fixed package catalogue.
func (s *Service) Packages() []domain.CreditPackage {
	return append([]domain.CreditPackage(nil), s.packages...)
}

// RecentTransactions returns the latest transactions. Errors are logged and
// yield an empty list.
func (s *Service) RecentTransactions(ctx context.Context) []domain.Transaction {
	txs, err := s.api.ListTransactions(ctx, TransactionsLimit)
	if err != nil {
		s.log.Warn("load transactions failed", "error", err)
		return nil
	}
	return txs
}

// ServerPackages returns the packages offered by the backend.
func (s *Service) ServerPackages(ctx context.Context) ([]domain.CreditPackage, error) {
	pkgs, err := s.api.ListPackages(ctx)
	if err != nil {
		return nil, fmt.Errorf("list packages: %w", err)
	}
	return pkgs, nil
}

// Purchase buys a backend package and returns the new balance.
func (s *Service) Purchase(ctx context.Context, packageID string) (api.PurchaseResult, error) {
	res, err := s.api.Purchase(ctx, packageID)
	if err != nil {
		return api.PurchaseResult{}, fmt.Errorf("purchase %s: %w", packageID, err)
	}
	return res, nil
}

// TotalSpent sums the credits of completed spend transactions.
func TotalSpent(txs []domain.Transaction) int {
	total := 0
	for _, t := range txs {
		if t.Type == domain.TransactionSpend && t.Status == domain.TransactionCompleted {
			total += t.Credits
		}
	}
	return total
}
