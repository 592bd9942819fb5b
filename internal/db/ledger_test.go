package db

import (
	"context"
	"os"
	"testing"

	"github.com/susu3304/warikanbot/internal/ledger"
	"github.com/susu3304/warikanbot/internal/storetest"
)

func TestStore(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL is not set")
	}
	ctx := context.Background()

	storetest.Run(t, func(t *testing.T) ledger.Store {
		database, err := New(ctx, url)
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		t.Cleanup(func() { _ = database.Close() })
		if err := database.RunMigrations(ctx); err != nil {
			t.Fatalf("RunMigrations: %v", err)
		}
		if _, err := database.pool.Exec(ctx,
			`TRUNCATE warikan_line_items, warikan_claims, warikan_payments RESTART IDENTITY`); err != nil {
			t.Fatalf("truncate: %v", err)
		}
		return database
	})
}
