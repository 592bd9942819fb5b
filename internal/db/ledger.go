package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/susu3304/warikanbot/internal/ledger"
)

var _ ledger.Store = (*DB)(nil)

func insertItems(ctx context.Context, tx pgx.Tx, groupID string, items []ledger.ItemInput) ([]ledger.LineItem, error) {
	out := make([]ledger.LineItem, 0, len(items))
	for _, it := range items {
		var id int64
		if err := tx.QueryRow(ctx,
			`INSERT INTO warikan_line_items (group_id, name, quantity, unit_price)
             VALUES ($1, $2, $3, $4)
             RETURNING id`,
			groupID, it.Name, it.Quantity, it.UnitPrice,
		).Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, ledger.LineItem{ID: id, GroupID: groupID, Name: it.Name, Quantity: it.Quantity, UnitPrice: it.UnitPrice})
	}
	return out, nil
}

// AddLineItems appends items to the group in one transaction.
func (db *DB) AddLineItems(ctx context.Context, groupID string, items []ledger.ItemInput) ([]ledger.LineItem, error) {
	if err := ledger.ValidateGroupID(groupID); err != nil {
		return nil, err
	}
	if err := ledger.ValidateItems(items); err != nil {
		return nil, err
	}
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	out, err := insertItems(ctx, tx, groupID, items)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return out, nil
}

// ListLineItems returns the group's items in insertion order.
func (db *DB) ListLineItems(ctx context.Context, groupID string) ([]ledger.LineItem, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, name, quantity, unit_price FROM warikan_line_items WHERE group_id = $1 ORDER BY id`,
		groupID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []ledger.LineItem{}
	for rows.Next() {
		it := ledger.LineItem{GroupID: groupID}
		if err := rows.Scan(&it.ID, &it.Name, &it.Quantity, &it.UnitPrice); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// ReplaceLineItems swaps the group's whole item list.
func (db *DB) ReplaceLineItems(ctx context.Context, groupID string, items []ledger.ItemInput) ([]ledger.LineItem, error) {
	if err := ledger.ValidateGroupID(groupID); err != nil {
		return nil, err
	}
	if err := ledger.ValidateItems(items); err != nil {
		return nil, err
	}
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM warikan_line_items WHERE group_id = $1`, groupID); err != nil {
		return nil, err
	}
	out, err := insertItems(ctx, tx, groupID, items)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return out, nil
}

func (db *DB) UpdateLineItem(ctx context.Context, groupID string, itemID int64, item ledger.ItemInput) (ledger.LineItem, error) {
	if err := ledger.ValidateItem(item); err != nil {
		return ledger.LineItem{}, err
	}
	ct, err := db.pool.Exec(ctx,
		`UPDATE warikan_line_items SET name = $3, quantity = $4, unit_price = $5 WHERE group_id = $1 AND id = $2`,
		groupID, itemID, item.Name, item.Quantity, item.UnitPrice,
	)
	if err != nil {
		return ledger.LineItem{}, err
	}
	if ct.RowsAffected() == 0 {
		return ledger.LineItem{}, ledger.ErrNotFound
	}
	return ledger.LineItem{ID: itemID, GroupID: groupID, Name: item.Name, Quantity: item.Quantity, UnitPrice: item.UnitPrice}, nil
}

func (db *DB) DeleteLineItem(ctx context.Context, groupID string, itemID int64) error {
	ct, err := db.pool.Exec(ctx, `DELETE FROM warikan_line_items WHERE group_id = $1 AND id = $2`, groupID, itemID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ledger.ErrNotFound
	}
	return nil
}

// RecordClaims replaces a participant's claims. Concurrent submissions by the same
// participant are serialised with a transaction-scoped advisory lock.
func (db *DB) RecordClaims(ctx context.Context, groupID, participantID string, claims []ledger.Claim) error {
	if err := ledger.ValidateGroupID(groupID); err != nil {
		return err
	}
	if err := ledger.ValidateParticipantID(participantID); err != nil {
		return err
	}
	for _, c := range claims {
		if err := ledger.ValidateClaim(c); err != nil {
			return err
		}
	}

	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, groupID+":"+participantID); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx,
		`DELETE FROM warikan_claims WHERE group_id = $1 AND participant_id = $2`,
		groupID, participantID,
	); err != nil {
		return err
	}

	batch := &pgx.Batch{}
	for _, c := range claims {
		batch.Queue(
			`INSERT INTO warikan_claims (group_id, participant_id, line_item_id, name, kind, quantity, unit_price)
             VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			groupID, participantID, c.LineItemID, c.Name, c.Kind.String(), c.Quantity, c.UnitPrice,
		)
	}
	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (db *DB) ListClaims(ctx context.Context, groupID string) (map[string][]ledger.Claim, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT participant_id, line_item_id, name, kind, quantity, unit_price
         FROM warikan_claims WHERE group_id = $1 ORDER BY id`,
		groupID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string][]ledger.Claim)
	for rows.Next() {
		c := ledger.Claim{GroupID: groupID}
		var kind string
		if err := rows.Scan(&c.ParticipantID, &c.LineItemID, &c.Name, &kind, &c.Quantity, &c.UnitPrice); err != nil {
			return nil, err
		}
		k, ok := ledger.ParseClaimKind(kind)
		if !ok {
			return nil, fmt.Errorf("unknown claim kind %q", kind)
		}
		c.Kind = k
		out[c.ParticipantID] = append(out[c.ParticipantID], c)
	}
	return out, rows.Err()
}

func (db *DB) RecordPayment(ctx context.Context, groupID, participantID string, amount float64, note string) (ledger.Payment, error) {
	if err := ledger.ValidateGroupID(groupID); err != nil {
		return ledger.Payment{}, err
	}
	if err := ledger.ValidateParticipantID(participantID); err != nil {
		return ledger.Payment{}, err
	}
	if err := ledger.ValidateAmount("amount", amount); err != nil {
		return ledger.Payment{}, err
	}
	p := ledger.Payment{GroupID: groupID, ParticipantID: participantID, Amount: amount, Note: note}
	if err := db.pool.QueryRow(ctx,
		`INSERT INTO warikan_payments (group_id, participant_id, amount, note)
         VALUES ($1, $2, $3, $4)
         RETURNING id`,
		groupID, participantID, amount, note,
	).Scan(&p.ID); err != nil {
		return ledger.Payment{}, err
	}
	return p, nil
}

// ListPayments sums payments per participant.
func (db *DB) ListPayments(ctx context.Context, groupID string) (map[string]float64, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT participant_id, SUM(amount) FROM warikan_payments WHERE group_id = $1 GROUP BY participant_id`,
		groupID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string]float64)
	for rows.Next() {
		var pid string
		var sum float64
		if err := rows.Scan(&pid, &sum); err != nil {
			return nil, err
		}
		out[pid] = sum
	}
	return out, rows.Err()
}

// PurgeGroup deletes every item, claim and payment of the group.
func (db *DB) PurgeGroup(ctx context.Context, groupID string) error {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, q := range []string{
		`DELETE FROM warikan_claims WHERE group_id = $1`,
		`DELETE FROM warikan_payments WHERE group_id = $1`,
		`DELETE FROM warikan_line_items WHERE group_id = $1`,
	} {
		if _, err := tx.Exec(ctx, q, groupID); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}
