// Package memstore keeps ledger data in process memory. Data is lost on restart.
package memstore

import (
	"context"
	"sync"

	"github.com/susu3304/warikanbot/internal/ledger"
)

type group struct {
	mu       sync.Mutex
	items    []ledger.LineItem
	claims   map[string][]ledger.Claim
	payments []ledger.Payment
}

type Store struct {
	mu     sync.Mutex
	groups map[string]*group
	nextID int64
}

var _ ledger.Store = (*Store)(nil)

func New() *Store {
	return &Store{groups: make(map[string]*group)}
}

func (s *Store) group(groupID string) *group {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.groups[groupID]
	if !ok {
		g = &group{claims: make(map[string][]ledger.Claim)}
		s.groups[groupID] = g
	}
	return g
}

func (s *Store) id() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	return s.nextID
}

func (s *Store) newItems(groupID string, in []ledger.ItemInput) []ledger.LineItem {
	out := make([]ledger.LineItem, 0, len(in))
	for _, it := range in {
		out = append(out, ledger.LineItem{
			ID:        s.id(),
			GroupID:   groupID,
			Name:      it.Name,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
		})
	}
	return out
}

func (s *Store) AddLineItems(_ context.Context, groupID string, items []ledger.ItemInput) ([]ledger.LineItem, error) {
	if err := ledger.ValidateGroupID(groupID); err != nil {
		return nil, err
	}
	if err := ledger.ValidateItems(items); err != nil {
		return nil, err
	}
	g := s.group(groupID)
	g.mu.Lock()
	defer g.mu.Unlock()
	added := s.newItems(groupID, items)
	g.items = append(g.items, added...)
	return added, nil
}

func (s *Store) ListLineItems(_ context.Context, groupID string) ([]ledger.LineItem, error) {
	g := s.group(groupID)
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]ledger.LineItem(nil), g.items...), nil
}

func (s *Store) ReplaceLineItems(_ context.Context, groupID string, items []ledger.ItemInput) ([]ledger.LineItem, error) {
	if err := ledger.ValidateGroupID(groupID); err != nil {
		return nil, err
	}
	if err := ledger.ValidateItems(items); err != nil {
		return nil, err
	}
	g := s.group(groupID)
	g.mu.Lock()
	defer g.mu.Unlock()
	g.items = s.newItems(groupID, items)
	return append([]ledger.LineItem(nil), g.items...), nil
}

func (s *Store) UpdateLineItem(_ context.Context, groupID string, itemID int64, item ledger.ItemInput) (ledger.LineItem, error) {
	if err := ledger.ValidateItem(item); err != nil {
		return ledger.LineItem{}, err
	}
	g := s.group(groupID)
	g.mu.Lock()
	defer g.mu.Unlock()
	for i := range g.items {
		if g.items[i].ID != itemID {
			continue
		}
		g.items[i].Name = item.Name
		g.items[i].Quantity = item.Quantity
		g.items[i].UnitPrice = item.UnitPrice
		return g.items[i], nil
	}
	return ledger.LineItem{}, ledger.ErrNotFound
}

func (s *Store) DeleteLineItem(_ context.Context, groupID string, itemID int64) error {
	g := s.group(groupID)
	g.mu.Lock()
	defer g.mu.Unlock()
	for i := range g.items {
		if g.items[i].ID == itemID {
			g.items = append(g.items[:i], g.items[i+1:]...)
			return nil
		}
	}
	return ledger.ErrNotFound
}

func (s *Store) RecordClaims(_ context.Context, groupID, participantID string, claims []ledger.Claim) error {
	if err := ledger.ValidateGroupID(groupID); err != nil {
		return err
	}
	if err := ledger.ValidateParticipantID(participantID); err != nil {
		return err
	}
	stored := make([]ledger.Claim, 0, len(claims))
	for _, c := range claims {
		if err := ledger.ValidateClaim(c); err != nil {
			return err
		}
		c.GroupID = groupID
		c.ParticipantID = participantID
		if c.LineItemID != nil {
			id := *c.LineItemID
			c.LineItemID = &id
		}
		stored = append(stored, c)
	}
	g := s.group(groupID)
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(stored) == 0 {
		delete(g.claims, participantID)
		return nil
	}
	g.claims[participantID] = stored
	return nil
}

func (s *Store) ListClaims(_ context.Context, groupID string) (map[string][]ledger.Claim, error) {
	g := s.group(groupID)
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make(map[string][]ledger.Claim, len(g.claims))
	for pid, cs := range g.claims {
		out[pid] = append([]ledger.Claim(nil), cs...)
	}
	return out, nil
}

func (s *Store) RecordPayment(_ context.Context, groupID, participantID string, amount float64, note string) (ledger.Payment, error) {
	if err := ledger.ValidateGroupID(groupID); err != nil {
		return ledger.Payment{}, err
	}
	if err := ledger.ValidateParticipantID(participantID); err != nil {
		return ledger.Payment{}, err
	}
	if err := ledger.ValidateAmount("amount", amount); err != nil {
		return ledger.Payment{}, err
	}
	p := ledger.Payment{
		ID:            s.id(),
		GroupID:       groupID,
		ParticipantID: participantID,
		Amount:        amount,
		Note:          note,
	}
	g := s.group(groupID)
	g.mu.Lock()
	defer g.mu.Unlock()
	g.payments = append(g.payments, p)
	return p, nil
}

func (s *Store) ListPayments(_ context.Context, groupID string) (map[string]float64, error) {
	g := s.group(groupID)
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make(map[string]float64)
	for _, p := range g.payments {
		out[p.ParticipantID] += p.Amount
	}
	return out, nil
}

func (s *Store) PurgeGroup(_ context.Context, groupID string) error {
	g := s.group(groupID)
	g.mu.Lock()
	defer g.mu.Unlock()
	g.items = nil
	g.claims = make(map[string][]ledger.Claim)
	g.payments = nil
	return nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }
