// Package warikan is the core API for splitting a shared purchase: recording line items,
// claims and payments per group, and settling the group into transfers.
package warikan

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/susu3304/warikanbot/internal/extract"
	"github.com/susu3304/warikanbot/internal/ledger"
	"github.com/susu3304/warikanbot/internal/settle"
)

// Extractor turns raw input into line items.
type Extractor interface {
	Extract(ctx context.Context, in extract.Input) ([]ledger.ItemInput, error)
}

// Directory resolves a participant ID to a name people recognise.
type Directory interface {
	DisplayName(ctx context.Context, participantID string) string
}

type group struct {
	// Writers hold a read lock; Finalize holds the write lock.
	lock     sync.RWMutex
	settling bool
}

type Service struct {
	store     ledger.Store
	extractor Extractor
	directory Directory
	now       func() time.Time

	mu     sync.Mutex
	groups map[string]*group
	// closed holds groups settled since their last new item. They have no entry in groups.
	closed map[string]struct{}
}

// NewService wires the core to a store. extractor and directory may be nil.
func NewService(store ledger.Store, extractor Extractor, directory Directory) *Service {
	return &Service{
		store:     store,
		extractor: extractor,
		directory: directory,
		now:       time.Now,
		groups:    make(map[string]*group),
		closed:    make(map[string]struct{}),
	}
}

func (s *Service) group(groupID string) *group {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.groups[groupID]
	if !ok {
		g = &group{}
		s.groups[groupID] = g
	}
	return g
}

// acquire locks the group's current entry without waiting. Finalize may retire an entry
// between lookup and locking, so the lookup is retried until the locked entry is current.
func (s *Service) acquire(groupID string, exclusive bool) (*group, error) {
	for {
		g := s.group(groupID)
		var locked bool
		if exclusive {
			locked = g.lock.TryLock()
		} else {
			locked = g.lock.TryRLock()
		}
		if !locked {
			return nil, ErrSettling
		}

		s.mu.Lock()
		current := s.groups[groupID] == g
		s.mu.Unlock()
		if current {
			return g, nil
		}
		if exclusive {
			g.lock.Unlock()
		} else {
			g.lock.RUnlock()
		}
	}
}

// retire drops the group's entry. The caller holds its write lock.
func (s *Service) retire(groupID string, g *group, closed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g.settling = false
	if s.groups[groupID] == g {
		delete(s.groups, groupID)
	}
	if closed {
		s.closed[groupID] = struct{}{}
	}
}

func (s *Service) reopen(groupID string) {
	s.mu.Lock()
	delete(s.closed, groupID)
	s.mu.Unlock()
}

// State reports where the group is in its OPEN → SETTLING → CLOSED cycle.
// Groups the service has never seen are OPEN.
func (s *Service) State(groupID string) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if g, ok := s.groups[groupID]; ok && g.settling {
		return StateSettling
	}
	if _, ok := s.closed[groupID]; ok {
		return StateClosed
	}
	return StateOpen
}

// write runs fn unless the group is being settled.
func (s *Service) write(groupID string, fn func() error) error {
	if err := ledger.ValidateGroupID(groupID); err != nil {
		return err
	}
	g, err := s.acquire(groupID, false)
	if err != nil {
		return err
	}
	defer g.lock.RUnlock()
	return fn()
}

func (s *Service) AddLineItems(ctx context.Context, groupID string, items []ledger.ItemInput) ([]ledger.LineItem, error) {
	if len(items) == 0 {
		return nil, &ledger.ValidationError{Field: "items", Message: "品目がありません"}
	}
	var added []ledger.LineItem
	err := s.write(groupID, func() error {
		var err error
		added, err = s.store.AddLineItems(ctx, groupID, items)
		if err != nil {
			return err
		}
		s.reopen(groupID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return added, nil
}

func (s *Service) ListLineItems(ctx context.Context, groupID string) ([]ledger.LineItem, error) {
	return s.store.ListLineItems(ctx, groupID)
}

// ReplaceLineItems swaps the whole item list. Existing claims keep their snapshots and
// fall back to them if their item is gone.
func (s *Service) ReplaceLineItems(ctx context.Context, groupID string, items []ledger.ItemInput) ([]ledger.LineItem, error) {
	var out []ledger.LineItem
	err := s.write(groupID, func() error {
		var err error
		out, err = s.store.ReplaceLineItems(ctx, groupID, items)
		if err != nil {
			return err
		}
		s.reopen(groupID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) itemAt(ctx context.Context, groupID string, index int) (ledger.LineItem, error) {
	items, err := s.store.ListLineItems(ctx, groupID)
	if err != nil {
		return ledger.LineItem{}, err
	}
	if index < 0 || index >= len(items) {
		return ledger.LineItem{}, fmt.Errorf("%d番の品目: %w", index+1, ledger.ErrNotFound)
	}
	return items[index], nil
}

// EditLineItem overwrites the item at the 0-based index.
func (s *Service) EditLineItem(ctx context.Context, groupID string, index int, item ledger.ItemInput) (ledger.LineItem, error) {
	var out ledger.LineItem
	err := s.write(groupID, func() error {
		cur, err := s.itemAt(ctx, groupID, index)
		if err != nil {
			return err
		}
		out, err = s.store.UpdateLineItem(ctx, groupID, cur.ID, item)
		return err
	})
	return out, err
}

// DeleteLineItem removes the item at the 0-based index and returns it.
func (s *Service) DeleteLineItem(ctx context.Context, groupID string, index int) (ledger.LineItem, error) {
	var out ledger.LineItem
	err := s.write(groupID, func() error {
		var err error
		out, err = s.itemAt(ctx, groupID, index)
		if err != nil {
			return err
		}
		return s.store.DeleteLineItem(ctx, groupID, out.ID)
	})
	return out, err
}

// ImportItems extracts line items from raw input and adds them to the group.
func (s *Service) ImportItems(ctx context.Context, groupID string, in extract.Input) ([]ledger.LineItem, error) {
	// Checked before extracting as well as in AddLineItems.
	if err := s.write(groupID, func() error { return nil }); err != nil {
		return nil, err
	}
	if s.extractor == nil {
		return nil, fmt.Errorf("%w: %v", ErrUnparseable, extract.ErrUnsupported)
	}
	items, err := s.extractor.Extract(ctx, in)
	if err != nil {
		log.Warn().Err(err).Str("group_id", groupID).Bool("image", in.HasImage()).Msg("extract failed")
		return nil, fmt.Errorf("%w: %v", ErrUnparseable, err)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: %v", ErrUnparseable, extract.ErrNoItems)
	}
	return s.AddLineItems(ctx, groupID, items)
}

// SubmitClaim records reqs as the participant's complete claim set in the group,
// replacing anything they submitted before. An empty reqs clears their claims.
func (s *Service) SubmitClaim(ctx context.Context, groupID, participantID string, reqs []ClaimRequest) ([]ledger.Claim, error) {
	if err := ledger.ValidateParticipantID(participantID); err != nil {
		return nil, err
	}
	var claims []ledger.Claim
	err := s.write(groupID, func() error {
		items, err := s.store.ListLineItems(ctx, groupID)
		if err != nil {
			return err
		}
		claims, err = resolveClaims(items, reqs)
		if err != nil {
			return err
		}
		return s.store.RecordClaims(ctx, groupID, participantID, claims)
	})
	if err != nil {
		return nil, err
	}
	for i := range claims {
		claims[i].GroupID = groupID
		claims[i].ParticipantID = participantID
	}
	return claims, nil
}

func resolveClaims(items []ledger.LineItem, reqs []ClaimRequest) ([]ledger.Claim, error) {
	out := make([]ledger.Claim, 0, len(reqs))
	for i, r := range reqs {
		field := fmt.Sprintf("claims[%d]", i)
		if !r.EvenSplit {
			if err := ledger.ValidateAmount(field+".quantity", r.Quantity); err != nil {
				return nil, err
			}
			if r.Quantity == 0 {
				continue
			}
		}

		item, found, err := findItem(items, r, field)
		if err != nil {
			return nil, err
		}
		switch {
		case found && r.EvenSplit:
			out = append(out, ledger.EvenSplit(item))
		case found:
			out = append(out, ledger.Manual(item, r.Quantity))
		case r.EvenSplit:
			return nil, &ledger.ValidationError{Field: field, Message: "均等割りする品目が見つかりません"}
		default:
			if err := ledger.ValidateAmount(field+".price", r.UnitPrice); err != nil {
				return nil, err
			}
			out = append(out, ledger.Claim{
				Name:      strings.TrimSpace(r.Name),
				Kind:      ledger.ClaimManual,
				Quantity:  r.Quantity,
				UnitPrice: r.UnitPrice,
			})
		}
	}
	return out, nil
}

// findItem resolves a request by ID, or else by the first item with the same name and price.
func findItem(items []ledger.LineItem, r ClaimRequest, field string) (ledger.LineItem, bool, error) {
	if r.LineItemID != nil {
		for _, it := range items {
			if it.ID == *r.LineItemID {
				return it, true, nil
			}
		}
		return ledger.LineItem{}, false, &ledger.ValidationError{Field: field + ".line_item_id", Message: "品目が見つかりません"}
	}
	name := strings.TrimSpace(r.Name)
	if name == "" {
		return ledger.LineItem{}, false, &ledger.ValidationError{Field: field, Message: "品目の指定がありません"}
	}
	price := settle.Round2(r.UnitPrice)
	for _, it := range items {
		if it.Name == name && settle.Round2(it.UnitPrice) == price {
			return it, true, nil
		}
	}
	return ledger.LineItem{}, false, nil
}

func (s *Service) ListClaimsByParticipant(ctx context.Context, groupID string) (map[string][]ledger.Claim, error) {
	return s.store.ListClaims(ctx, groupID)
}

func (s *Service) RecordPayment(ctx context.Context, groupID, participantID string, amount float64, note string) (ledger.Payment, error) {
	var p ledger.Payment
	err := s.write(groupID, func() error {
		var err error
		p, err = s.store.RecordPayment(ctx, groupID, participantID, amount, strings.TrimSpace(note))
		return err
	})
	return p, err
}

type snapshot struct {
	items  []ledger.LineItem
	claims map[string][]ledger.Claim
	paid   map[string]float64
}

func (s *Service) snapshot(ctx context.Context, groupID string) (*snapshot, error) {
	items, err := s.store.ListLineItems(ctx, groupID)
	if err != nil {
		return nil, err
	}
	claims, err := s.store.ListClaims(ctx, groupID)
	if err != nil {
		return nil, err
	}
	paid, err := s.store.ListPayments(ctx, groupID)
	if err != nil {
		return nil, err
	}
	return &snapshot{items: items, claims: claims, paid: paid}, nil
}

func (snap *snapshot) balances() map[string]ledger.Balance {
	return settle.Balances(settle.Attribute(snap.items, snap.claims), snap.paid)
}

func (s *Service) ListUnassigned(ctx context.Context, groupID string) ([]ledger.Unassigned, error) {
	snap, err := s.snapshot(ctx, groupID)
	if err != nil {
		return nil, err
	}
	return settle.Unassigned(snap.items, snap.claims), nil
}

func (s *Service) ComputeBalances(ctx context.Context, groupID string) (map[string]ledger.Balance, error) {
	snap, err := s.snapshot(ctx, groupID)
	if err != nil {
		return nil, err
	}
	return snap.balances(), nil
}

// Finalize settles the group and purges its items, claims and payments.
// Writes to the group fail with ErrSettling while it runs. On failure the group
// keeps the state it had before the call.
func (s *Service) Finalize(ctx context.Context, groupID string) (*Settlement, error) {
	if err := ledger.ValidateGroupID(groupID); err != nil {
		return nil, err
	}
	g, err := s.acquire(groupID, true)
	if err != nil {
		return nil, err
	}
	closed := false
	defer func() {
		s.retire(groupID, g, closed)
		g.lock.Unlock()
	}()

	s.mu.Lock()
	g.settling = true
	s.mu.Unlock()

	snap, err := s.snapshot(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if len(snap.items) == 0 || (len(snap.claims) == 0 && len(snap.paid) == 0) {
		return nil, ErrNothingToSettle
	}

	balances := snap.balances()
	result := &Settlement{
		ID:         uuid.NewString(),
		GroupID:    groupID,
		Transfers:  settle.Match(balances),
		Balances:   balances,
		Unassigned: settle.Unassigned(snap.items, snap.claims),
		Names:      make(map[string]string, len(balances)),
		SettledAt:  s.now(),
	}
	for pid := range balances {
		result.Names[pid] = s.DisplayName(ctx, pid)
	}

	if err := s.store.PurgeGroup(ctx, groupID); err != nil {
		return nil, fmt.Errorf("purge group: %w", err)
	}
	closed = true

	log.Info().
		Str("group_id", groupID).
		Str("settlement_id", result.ID).
		Int("participants", len(balances)).
		Int("transfers", len(result.Transfers)).
		Int("unassigned", len(result.Unassigned)).
		Msg("group settled")
	return result, nil
}

// DisplayName falls back to the raw ID when no directory is configured or it has no answer.
func (s *Service) DisplayName(ctx context.Context, participantID string) string {
	if s.directory == nil {
		return participantID
	}
	if name := s.directory.DisplayName(ctx, participantID); name != "" {
		return name
	}
	return participantID
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}
