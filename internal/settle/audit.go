package settle

import "github.com/susu3304/warikanbot/internal/ledger"

type nameAndPrice struct {
	name  string
	price float64
}

// Unassigned lists items whose quantity is not covered by manual claims.
// Claims are matched to items by (name, unit price), not by item id, so a claim recorded
// against a snapshot still counts. Even-split claims never count as coverage.
// Over-claimed items are not reported.
func Unassigned(items []ledger.LineItem, claims map[string][]ledger.Claim) []ledger.Unassigned {
	claimed := make(map[nameAndPrice]float64)
	for _, cs := range claims {
		for _, c := range cs {
			if c.Kind != ledger.ClaimManual {
				continue
			}
			claimed[nameAndPrice{c.Name, Round2(c.UnitPrice)}] += c.Quantity
		}
	}

	out := make([]ledger.Unassigned, 0)
	for _, it := range items {
		remaining := Round2(it.Quantity - claimed[nameAndPrice{it.Name, Round2(it.UnitPrice)}])
		if remaining > Epsilon {
			out = append(out, ledger.Unassigned{Name: it.Name, RemainingQuantity: remaining, UnitPrice: it.UnitPrice})
		}
	}
	return out
}
