// Package testutil holds helpers shared by package tests.
package testutil

import (
	"testing"

	"github.com/guipratiko/front-conexprob/internal/storage"
)

func NewTestSQLiteStore(t *testing.T) *storage.SQLiteStore {
	t.Helper()

	s, err := storage.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create sqlite store: %v", err)
	}

	t.Cleanup(func() {
		_ = s.Close()
	})

	return s
}
