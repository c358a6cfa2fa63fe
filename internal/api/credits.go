package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/guipratiko/front-conexprob/internal/domain"
)

// PurchaseResult is returned by POST /credits/purchase.
type PurchaseResult struct {
	Transaction domain.Transaction `json:"transaction"`
	Credits     int                `json:"credits"`
}

// ListTransactions calls GET /credits/transactions. A limit <= 0 lets the
// server choose.
func (c *Client) ListTransactions(ctx context.Context, limit int) ([]domain.Transaction, error) {
	path := "/credits/transactions"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var out struct {
		Transactions []domain.Transaction `json:"transactions"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Transactions, nil
}

// ListPackages calls GET /credits/packages.
func (c *Client) ListPackages(ctx context.Context) ([]domain.CreditPackage, error) {
	var out struct {
		Packages []domain.CreditPackage `json:"packages"`
	}
	if err := c.do(ctx, http.MethodGet, "/credits/packages", nil, &out); err != nil {
		return nil, err
	}
	return out.Packages, nil
}

// Purchase calls POST /credits/purchase.
func (c *Client) Purchase(ctx context.Context, packageID string) (PurchaseResult, error) {
	var out PurchaseResult
	in := map[string]string{"packageId": packageID}
	if err := c.do(ctx, http.MethodPost, "/credits/purchase", in, &out); err != nil {
		return PurchaseResult{}, err
	}
	return out, nil
}
