package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/susu3304/warikanbot/internal/ledger"
	"github.com/susu3304/warikanbot/internal/storetest"
)

func TestStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) ledger.Store {
		s, err := New(context.Background(), filepath.Join(t.TempDir(), "warikan.db"))
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}

func TestReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "warikan.db")

	s, err := New(ctx, path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := s.AddLineItems(ctx, "g1", []ledger.ItemInput{{Name: "Beer", Quantity: 2, UnitPrice: 10}}); err != nil {
		t.Fatalf("AddLineItems: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s, err = New(ctx, path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Close()
	items, err := s.ListLineItems(ctx, "g1")
	if err != nil {
		t.Fatalf("ListLineItems: %v", err)
	}
	if len(items) != 1 || items[0].Name != "Beer" {
		t.Errorf("items after reopen = %+v", items)
	}
}
