package settle

import (
	"math"

	"github.com/susu3304/warikanbot/internal/ledger"
)

// Attribute computes how much each claimant consumed.
//
// Manual claims cost quantity × item price. Whatever quantity of an item the manual claims
// leave over is shared equally by the item's even-split claimants. A claim whose item no
// longer exists is charged at its own snapshot price and quantity. Items nobody claimed are
// attributed to nobody.
func Attribute(items []ledger.LineItem, claims map[string][]ledger.Claim) map[string]float64 {
	byID := make(map[int64]ledger.LineItem, len(items))
	for _, it := range items {
		byID[it.ID] = it
	}

	spend := make(map[string]float64, len(claims))
	manualSum := make(map[int64]float64)
	sharers := make(map[int64][]string)

	for _, pid := range sortedKeys(claims) {
		spend[pid] += 0
		joined := make(map[int64]bool)
		for _, c := range claims[pid] {
			var item ledger.LineItem
			ok := false
			if c.LineItemID != nil {
				item, ok = byID[*c.LineItemID]
			}
			if !ok {
				if c.Kind == ledger.ClaimManual {
					spend[pid] += c.Quantity * c.UnitPrice
				}
				continue
			}
			switch c.Kind {
			case ledger.ClaimManual:
				manualSum[item.ID] += c.Quantity
				spend[pid] += c.Quantity * item.UnitPrice
			case ledger.ClaimEvenSplit:
				if !joined[item.ID] {
					joined[item.ID] = true
					sharers[item.ID] = append(sharers[item.ID], pid)
				}
			}
		}
	}

	for _, it := range items {
		pids := sharers[it.ID]
		if len(pids) == 0 {
			continue
		}
		leftover := math.Max(it.Quantity-manualSum[it.ID], 0)
		share := leftover / float64(len(pids))
		for _, pid := range pids {
			spend[pid] += share * it.UnitPrice
		}
	}

	for pid, v := range spend {
		spend[pid] = Round2(v)
	}
	return spend
}
