// Package storetest holds behaviour every ledger.Store implementation must share.
package storetest

import (
	"context"
	"errors"
	"testing"

	"github.com/susu3304/warikanbot/internal/ledger"
)

// Run exercises a fresh store returned by newStore for every subtest.
func Run(t *testing.T, newStore func(t *testing.T) ledger.Store) {
	ctx := context.Background()

	t.Run("line items keep insertion order", func(t *testing.T) {
		s := newStore(t)
		added, err := s.AddLineItems(ctx, "g1", []ledger.ItemInput{
			{Name: "Beer", Quantity: 4, UnitPrice: 10},
			{Name: "Pizza", Quantity: 2, UnitPrice: 500},
		})
		if err != nil {
			t.Fatalf("AddLineItems: %v", err)
		}
		if len(added) != 2 || added[0].ID == 0 || added[0].ID == added[1].ID {
			t.Fatalf("AddLineItems returned %v", added)
		}
		if _, err := s.AddLineItems(ctx, "g1", []ledger.ItemInput{{Name: "Fries", Quantity: 1, UnitPrice: 7.5}}); err != nil {
			t.Fatalf("AddLineItems: %v", err)
		}

		items, err := s.ListLineItems(ctx, "g1")
		if err != nil {
			t.Fatalf("ListLineItems: %v", err)
		}
		names := []string{}
		for _, it := range items {
			names = append(names, it.Name)
		}
		if len(names) != 3 || names[0] != "Beer" || names[1] != "Pizza" || names[2] != "Fries" {
			t.Errorf("ListLineItems names = %v", names)
		}
		if items[2].UnitPrice != 7.5 || items[2].GroupID != "g1" {
			t.Errorf("ListLineItems[2] = %+v", items[2])
		}

		other, err := s.ListLineItems(ctx, "g2")
		if err != nil {
			t.Fatalf("ListLineItems: %v", err)
		}
		if len(other) != 0 {
			t.Errorf("other group has %d items, want 0", len(other))
		}
	})

	t.Run("invalid items are rejected without partial writes", func(t *testing.T) {
		s := newStore(t)
		_, err := s.AddLineItems(ctx, "g1", []ledger.ItemInput{
			{Name: "Beer", Quantity: 1, UnitPrice: 10},
			{Name: "Bad", Quantity: -1, UnitPrice: 10},
		})
		if !errors.Is(err, ledger.ErrInvalidInput) {
			t.Fatalf("AddLineItems err = %v, want ErrInvalidInput", err)
		}
		items, _ := s.ListLineItems(ctx, "g1")
		if len(items) != 0 {
			t.Errorf("got %d items after rejected insert, want 0", len(items))
		}
		if _, err := s.AddLineItems(ctx, "", []ledger.ItemInput{{Name: "x", Quantity: 1, UnitPrice: 1}}); !errors.Is(err, ledger.ErrInvalidInput) {
			t.Errorf("empty group err = %v, want ErrInvalidInput", err)
		}
	})

	t.Run("replace update and delete", func(t *testing.T) {
		s := newStore(t)
		if _, err := s.AddLineItems(ctx, "g1", []ledger.ItemInput{{Name: "Old", Quantity: 1, UnitPrice: 1}}); err != nil {
			t.Fatalf("AddLineItems: %v", err)
		}
		replaced, err := s.ReplaceLineItems(ctx, "g1", []ledger.ItemInput{
			{Name: "Tea", Quantity: 2, UnitPrice: 3},
			{Name: "Cake", Quantity: 1, UnitPrice: 8},
		})
		if err != nil {
			t.Fatalf("ReplaceLineItems: %v", err)
		}
		if len(replaced) != 2 {
			t.Fatalf("ReplaceLineItems returned %d items, want 2", len(replaced))
		}

		updated, err := s.UpdateLineItem(ctx, "g1", replaced[0].ID, ledger.ItemInput{Name: "Green tea", Quantity: 3, UnitPrice: 4})
		if err != nil {
			t.Fatalf("UpdateLineItem: %v", err)
		}
		if updated.Name != "Green tea" || updated.Quantity != 3 || updated.ID != replaced[0].ID {
			t.Errorf("UpdateLineItem = %+v", updated)
		}

		if err := s.DeleteLineItem(ctx, "g1", replaced[1].ID); err != nil {
			t.Fatalf("DeleteLineItem: %v", err)
		}
		if err := s.DeleteLineItem(ctx, "g1", replaced[1].ID); !errors.Is(err, ledger.ErrNotFound) {
			t.Errorf("second DeleteLineItem err = %v, want ErrNotFound", err)
		}
		if _, err := s.UpdateLineItem(ctx, "g1", replaced[1].ID, ledger.ItemInput{Name: "x", Quantity: 1, UnitPrice: 1}); !errors.Is(err, ledger.ErrNotFound) {
			t.Errorf("UpdateLineItem on deleted err = %v, want ErrNotFound", err)
		}

		items, _ := s.ListLineItems(ctx, "g1")
		if len(items) != 1 || items[0].Name != "Green tea" {
			t.Errorf("ListLineItems = %+v", items)
		}
	})

	t.Run("claims replace the participant's previous set", func(t *testing.T) {
		s := newStore(t)
		items, err := s.AddLineItems(ctx, "g1", []ledger.ItemInput{
			{Name: "Beer", Quantity: 4, UnitPrice: 10},
			{Name: "Pizza", Quantity: 2, UnitPrice: 500},
		})
		if err != nil {
			t.Fatalf("AddLineItems: %v", err)
		}
		if err := s.RecordClaims(ctx, "g1", "alice", []ledger.Claim{ledger.Manual(items[0], 2), ledger.EvenSplit(items[1])}); err != nil {
			t.Fatalf("RecordClaims: %v", err)
		}
		if err := s.RecordClaims(ctx, "g1", "bob", []ledger.Claim{ledger.Manual(items[0], 1)}); err != nil {
			t.Fatalf("RecordClaims: %v", err)
		}
		if err := s.RecordClaims(ctx, "g1", "alice", []ledger.Claim{ledger.Manual(items[1], 1)}); err != nil {
			t.Fatalf("RecordClaims: %v", err)
		}

		claims, err := s.ListClaims(ctx, "g1")
		if err != nil {
			t.Fatalf("ListClaims: %v", err)
		}
		if len(claims["alice"]) != 1 {
			t.Fatalf("alice has %d claims, want 1: %+v", len(claims["alice"]), claims["alice"])
		}
		got := claims["alice"][0]
		if got.Name != "Pizza" || got.Kind != ledger.ClaimManual || got.Quantity != 1 || got.UnitPrice != 500 {
			t.Errorf("alice claim = %+v", got)
		}
		if got.LineItemID == nil || *got.LineItemID != items[1].ID {
			t.Errorf("alice claim item id = %v, want %d", got.LineItemID, items[1].ID)
		}
		if got.ParticipantID != "alice" || got.GroupID != "g1" {
			t.Errorf("alice claim owner = %q/%q", got.GroupID, got.ParticipantID)
		}
		if len(claims["bob"]) != 1 {
			t.Errorf("bob has %d claims, want 1", len(claims["bob"]))
		}

		if err := s.RecordClaims(ctx, "g1", "bob", nil); err != nil {
			t.Fatalf("RecordClaims: %v", err)
		}
		claims, _ = s.ListClaims(ctx, "g1")
		if _, ok := claims["bob"]; ok {
			t.Errorf("bob still has claims after empty submission")
		}
	})

	t.Run("even split and snapshot claims round-trip", func(t *testing.T) {
		s := newStore(t)
		items, err := s.AddLineItems(ctx, "g1", []ledger.ItemInput{{Name: "Beer", Quantity: 4, UnitPrice: 10}})
		if err != nil {
			t.Fatalf("AddLineItems: %v", err)
		}
		snapshot := ledger.Claim{Name: "Sake", Kind: ledger.ClaimManual, Quantity: 2, UnitPrice: 300}
		if err := s.RecordClaims(ctx, "g1", "carol", []ledger.Claim{ledger.EvenSplit(items[0]), snapshot}); err != nil {
			t.Fatalf("RecordClaims: %v", err)
		}
		claims, _ := s.ListClaims(ctx, "g1")
		cs := claims["carol"]
		if len(cs) != 2 {
			t.Fatalf("carol has %d claims, want 2", len(cs))
		}
		var sawEven, sawSnapshot bool
		for _, c := range cs {
			switch {
			case c.Kind == ledger.ClaimEvenSplit && c.LineItemID != nil && *c.LineItemID == items[0].ID:
				sawEven = true
			case c.Kind == ledger.ClaimManual && c.LineItemID == nil && c.Name == "Sake" && c.Quantity == 2:
				sawSnapshot = true
			}
		}
		if !sawEven || !sawSnapshot {
			t.Errorf("claims = %+v", cs)
		}
	})

	t.Run("invalid claims are rejected atomically", func(t *testing.T) {
		s := newStore(t)
		items, _ := s.AddLineItems(ctx, "g1", []ledger.ItemInput{{Name: "Beer", Quantity: 4, UnitPrice: 10}})
		if err := s.RecordClaims(ctx, "g1", "dave", []ledger.Claim{ledger.Manual(items[0], 1)}); err != nil {
			t.Fatalf("RecordClaims: %v", err)
		}
		err := s.RecordClaims(ctx, "g1", "dave", []ledger.Claim{
			ledger.Manual(items[0], 3),
			ledger.Manual(items[0], -1),
		})
		if !errors.Is(err, ledger.ErrInvalidInput) {
			t.Fatalf("RecordClaims err = %v, want ErrInvalidInput", err)
		}
		claims, _ := s.ListClaims(ctx, "g1")
		if len(claims["dave"]) != 1 || claims["dave"][0].Quantity != 1 {
			t.Errorf("dave claims = %+v, want the original single claim", claims["dave"])
		}
		if err := s.RecordClaims(ctx, "g1", "", nil); !errors.Is(err, ledger.ErrInvalidInput) {
			t.Errorf("empty participant err = %v, want ErrInvalidInput", err)
		}
	})

	t.Run("payments are summed per participant", func(t *testing.T) {
		s := newStore(t)
		p, err := s.RecordPayment(ctx, "g1", "alice", 100, "dinner")
		if err != nil {
			t.Fatalf("RecordPayment: %v", err)
		}
		if p.ID == 0 || p.Amount != 100 || p.Note != "dinner" {
			t.Errorf("RecordPayment = %+v", p)
		}
		if _, err := s.RecordPayment(ctx, "g1", "alice", 20.5, ""); err != nil {
			t.Fatalf("RecordPayment: %v", err)
		}
		if _, err := s.RecordPayment(ctx, "g1", "bob", 0, ""); err != nil {
			t.Fatalf("RecordPayment: %v", err)
		}
		if _, err := s.RecordPayment(ctx, "g1", "bob", -1, ""); !errors.Is(err, ledger.ErrInvalidInput) {
			t.Errorf("negative payment err = %v, want ErrInvalidInput", err)
		}

		paid, err := s.ListPayments(ctx, "g1")
		if err != nil {
			t.Fatalf("ListPayments: %v", err)
		}
		if paid["alice"] != 120.5 || paid["bob"] != 0 || len(paid) != 2 {
			t.Errorf("ListPayments = %v", paid)
		}
	})

	t.Run("purge clears only the group", func(t *testing.T) {
		s := newStore(t)
		items, _ := s.AddLineItems(ctx, "g1", []ledger.ItemInput{{Name: "Beer", Quantity: 1, UnitPrice: 10}})
		_ = s.RecordClaims(ctx, "g1", "alice", []ledger.Claim{ledger.Manual(items[0], 1)})
		_, _ = s.RecordPayment(ctx, "g1", "alice", 10, "")
		_, _ = s.AddLineItems(ctx, "g2", []ledger.ItemInput{{Name: "Tea", Quantity: 1, UnitPrice: 2}})

		if err := s.PurgeGroup(ctx, "g1"); err != nil {
			t.Fatalf("PurgeGroup: %v", err)
		}
		items, _ = s.ListLineItems(ctx, "g1")
		claims, _ := s.ListClaims(ctx, "g1")
		paid, _ := s.ListPayments(ctx, "g1")
		if len(items) != 0 || len(claims) != 0 || len(paid) != 0 {
			t.Errorf("after purge: items=%v claims=%v paid=%v", items, claims, paid)
		}
		other, _ := s.ListLineItems(ctx, "g2")
		if len(other) != 1 {
			t.Errorf("g2 has %d items after purging g1, want 1", len(other))
		}
	})

	t.Run("ping", func(t *testing.T) {
		s := newStore(t)
		if err := s.Ping(ctx); err != nil {
			t.Errorf("Ping: %v", err)
		}
	})
}
