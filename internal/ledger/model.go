package ledger

// LineItem is a purchased good recorded for a group.
type LineItem struct {
	ID        int64
	GroupID   string
	Name      string
	Quantity  float64
	UnitPrice float64
}

// ItemInput is a (name, quantity, unitPrice) triple as submitted by a front-end or extractor.
type ItemInput struct {
	Name      string  `json:"name"`
	Quantity  float64 `json:"quantity"`
	UnitPrice float64 `json:"price"`
}

type ClaimKind int

const (
	ClaimManual ClaimKind = iota
	ClaimEvenSplit
)

func (k ClaimKind) String() string {
	if k == ClaimEvenSplit {
		return "even"
	}
	return "manual"
}

// ParseClaimKind is the inverse of ClaimKind.String.
func ParseClaimKind(s string) (ClaimKind, bool) {
	switch s {
	case "manual":
		return ClaimManual, true
	case "even":
		return ClaimEvenSplit, true
	}
	return ClaimManual, false
}

// Claim is a participant's assertion of consumption of a line item.
// Name and UnitPrice are snapshots taken when the claim was recorded; LineItemID may be nil
// or point at an item that no longer exists.
type Claim struct {
	GroupID       string
	ParticipantID string
	LineItemID    *int64
	Name          string
	Kind          ClaimKind
	Quantity      float64
	UnitPrice     float64
}

// Manual builds a claim for an explicit quantity.
func Manual(item LineItem, qty float64) Claim {
	id := item.ID
	return Claim{
		GroupID:    item.GroupID,
		LineItemID: &id,
		Name:       item.Name,
		Kind:       ClaimManual,
		Quantity:   qty,
		UnitPrice:  item.UnitPrice,
	}
}

// EvenSplit builds a claim for an equal share of whatever is left of item after manual claims.
func EvenSplit(item LineItem) Claim {
	id := item.ID
	return Claim{
		GroupID:    item.GroupID,
		LineItemID: &id,
		Name:       item.Name,
		Kind:       ClaimEvenSplit,
		UnitPrice:  item.UnitPrice,
	}
}

type Payment struct {
	ID            int64
	GroupID       string
	ParticipantID string
	Amount        float64
	Note          string
}

type Balance struct {
	ParticipantID string  `json:"participant_id"`
	Spend         float64 `json:"spend"`
	Paid          float64 `json:"paid"`
	Net           float64 `json:"net"`
}

// Transfer means From pays Amount to To.
type Transfer struct {
	From   string  `json:"from"`
	To     string  `json:"to"`
	Amount float64 `json:"amount"`
}

// Unassigned reports quantity of a line item no manual claim covers.
type Unassigned struct {
	Name              string  `json:"name"`
	RemainingQuantity float64 `json:"remaining_quantity"`
	UnitPrice         float64 `json:"price"`
}
