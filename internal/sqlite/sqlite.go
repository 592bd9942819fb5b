// Package sqlite implements ledger.Store on a single SQLite file.
//
// The database is opened in WAL mode with one connection, so writes are serialised by
// database/sql itself and every multi-statement write runs in a transaction.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/susu3304/warikanbot/internal/ledger"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

var _ ledger.Store = (*Store)(nil)

// New opens (creating if needed) the database at path and migrates it.
func New(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
	CREATE TABLE IF NOT EXISTS line_items (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		group_id TEXT NOT NULL,
		name TEXT NOT NULL,
		quantity REAL NOT NULL CHECK (quantity >= 0),
		unit_price REAL NOT NULL CHECK (unit_price >= 0),
		created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_line_items_group ON line_items(group_id);

	-- line_item_id is not a foreign key: claims outlive deleted items
	CREATE TABLE IF NOT EXISTS claims (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		group_id TEXT NOT NULL,
		participant_id TEXT NOT NULL,
		line_item_id INTEGER,
		name TEXT NOT NULL DEFAULT '',
		kind TEXT NOT NULL CHECK (kind IN ('manual', 'even')),
		quantity REAL NOT NULL DEFAULT 0 CHECK (quantity >= 0),
		unit_price REAL NOT NULL CHECK (unit_price >= 0),
		created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_claims_group_participant ON claims(group_id, participant_id);

	CREATE TABLE IF NOT EXISTS payments (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		group_id TEXT NOT NULL,
		participant_id TEXT NOT NULL,
		amount REAL NOT NULL CHECK (amount >= 0),
		note TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_payments_group ON payments(group_id);
	`)
	return err
}

func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func insertItems(ctx context.Context, tx *sql.Tx, groupID string, items []ledger.ItemInput) ([]ledger.LineItem, error) {
	out := make([]ledger.LineItem, 0, len(items))
	for _, it := range items {
		var id int64
		if err := tx.QueryRowContext(ctx,
			`INSERT INTO line_items (group_id, name, quantity, unit_price) VALUES (?, ?, ?, ?) RETURNING id`,
			groupID, it.Name, it.Quantity, it.UnitPrice,
		).Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, ledger.LineItem{ID: id, GroupID: groupID, Name: it.Name, Quantity: it.Quantity, UnitPrice: it.UnitPrice})
	}
	return out, nil
}

func (s *Store) AddLineItems(ctx context.Context, groupID string, items []ledger.ItemInput) ([]ledger.LineItem, error) {
	if err := ledger.ValidateGroupID(groupID); err != nil {
		return nil, err
	}
	if err := ledger.ValidateItems(items); err != nil {
		return nil, err
	}
	var out []ledger.LineItem
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		out, err = insertItems(ctx, tx, groupID, items)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) ListLineItems(ctx context.Context, groupID string) ([]ledger.LineItem, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, quantity, unit_price FROM line_items WHERE group_id = ? ORDER BY id`, groupID)
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

func (s *Store) ReplaceLineItems(ctx context.Context, groupID string, items []ledger.ItemInput) ([]ledger.LineItem, error) {
	if err := ledger.ValidateGroupID(groupID); err != nil {
		return nil, err
	}
	if err := ledger.ValidateItems(items); err != nil {
		return nil, err
	}
	var out []ledger.LineItem
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM line_items WHERE group_id = ?`, groupID); err != nil {
			return err
		}
		var err error
		out, err = insertItems(ctx, tx, groupID, items)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) UpdateLineItem(ctx context.Context, groupID string, itemID int64, item ledger.ItemInput) (ledger.LineItem, error) {
	if err := ledger.ValidateItem(item); err != nil {
		return ledger.LineItem{}, err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE line_items SET name = ?, quantity = ?, unit_price = ? WHERE group_id = ? AND id = ?`,
		item.Name, item.Quantity, item.UnitPrice, groupID, itemID)
	if err != nil {
		return ledger.LineItem{}, err
	}
	if n, err := res.RowsAffected(); err != nil {
		return ledger.LineItem{}, err
	} else if n == 0 {
		return ledger.LineItem{}, ledger.ErrNotFound
	}
	return ledger.LineItem{ID: itemID, GroupID: groupID, Name: item.Name, Quantity: item.Quantity, UnitPrice: item.UnitPrice}, nil
}

func (s *Store) DeleteLineItem(ctx context.Context, groupID string, itemID int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM line_items WHERE group_id = ? AND id = ?`, groupID, itemID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ledger.ErrNotFound
	}
	return nil
}

func (s *Store) RecordClaims(ctx context.Context, groupID, participantID string, claims []ledger.Claim) error {
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
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM claims WHERE group_id = ? AND participant_id = ?`, groupID, participantID); err != nil {
			return err
		}
		for _, c := range claims {
			var itemID sql.NullInt64
			if c.LineItemID != nil {
				itemID = sql.NullInt64{Int64: *c.LineItemID, Valid: true}
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO claims (group_id, participant_id, line_item_id, name, kind, quantity, unit_price)
				 VALUES (?, ?, ?, ?, ?, ?, ?)`,
				groupID, participantID, itemID, c.Name, c.Kind.String(), c.Quantity, c.UnitPrice,
			); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) ListClaims(ctx context.Context, groupID string) (map[string][]ledger.Claim, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT participant_id, line_item_id, name, kind, quantity, unit_price
		 FROM claims WHERE group_id = ? ORDER BY id`, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string][]ledger.Claim)
	for rows.Next() {
		c := ledger.Claim{GroupID: groupID}
		var itemID sql.NullInt64
		var kind string
		if err := rows.Scan(&c.ParticipantID, &itemID, &c.Name, &kind, &c.Quantity, &c.UnitPrice); err != nil {
			return nil, err
		}
		if itemID.Valid {
			id := itemID.Int64
			c.LineItemID = &id
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

func (s *Store) RecordPayment(ctx context.Context, groupID, participantID string, amount float64, note string) (ledger.Payment, error) {
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
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO payments (group_id, participant_id, amount, note) VALUES (?, ?, ?, ?) RETURNING id`,
		groupID, participantID, amount, note,
	).Scan(&p.ID)
	if err != nil {
		return ledger.Payment{}, err
	}
	return p, nil
}

func (s *Store) ListPayments(ctx context.Context, groupID string) (map[string]float64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT participant_id, SUM(amount) FROM payments WHERE group_id = ? GROUP BY participant_id`, groupID)
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

func (s *Store) PurgeGroup(ctx context.Context, groupID string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, q := range []string{
			`DELETE FROM claims WHERE group_id = ?`,
			`DELETE FROM payments WHERE group_id = ?`,
			`DELETE FROM line_items WHERE group_id = ?`,
		} {
			if _, err := tx.ExecContext(ctx, q, groupID); err != nil {
				return err
			}
		}
		return nil
	})
}

