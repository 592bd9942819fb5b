package ledger

import "context"

// Store persists line items, claims and payments per group.
// Every method is all-or-nothing: on error nothing was written.
type Store interface {
	AddLineItems(ctx context.Context, groupID string, items []ItemInput) ([]LineItem, error)
	// ListLineItems returns the group's items in insertion order.
	ListLineItems(ctx context.Context, groupID string) ([]LineItem, error)
	ReplaceLineItems(ctx context.Context, groupID string, items []ItemInput) ([]LineItem, error)
	UpdateLineItem(ctx context.Context, groupID string, itemID int64, item ItemInput) (LineItem, error)
	DeleteLineItem(ctx context.Context, groupID string, itemID int64) error

	// RecordClaims replaces the participant's claims in the group with claims.
	RecordClaims(ctx context.Context, groupID, participantID string, claims []Claim) error
	ListClaims(ctx context.Context, groupID string) (map[string][]Claim, error)

	RecordPayment(ctx context.Context, groupID, participantID string, amount float64, note string) (Payment, error)
	// ListPayments returns the summed amount paid per participant.
	ListPayments(ctx context.Context, groupID string) (map[string]float64, error)

	PurgeGroup(ctx context.Context, groupID string) error

	Ping(ctx context.Context) error
	Close() error
}
