package warikan

import (
	"time"

	"github.com/susu3304/warikanbot/internal/ledger"
)

type State int

const (
	StateOpen State = iota
	StateSettling
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateSettling:
		return "SETTLING"
	case StateClosed:
		return "CLOSED"
	default:
		return "OPEN"
	}
}

// ClaimRequest refers to a line item either by ID or by name and unit price.
// EvenSplit asks for a share of the item's leftover instead of a fixed quantity.
type ClaimRequest struct {
	LineItemID *int64  `json:"line_item_id,omitempty"`
	Name       string  `json:"name,omitempty"`
	UnitPrice  float64 `json:"price,omitempty"`
	Quantity   float64 `json:"quantity"`
	EvenSplit  bool    `json:"even_split,omitempty"`
}

type Settlement struct {
	ID         string                    `json:"id"`
	GroupID    string                    `json:"group_id"`
	Transfers  []ledger.Transfer         `json:"transfers"`
	Balances   map[string]ledger.Balance `json:"balances"`
	Unassigned []ledger.Unassigned       `json:"unassigned"`
	Names      map[string]string         `json:"names"`
	SettledAt  time.Time                 `json:"settled_at"`
}
