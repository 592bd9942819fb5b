package settle

import (
	"math"
	"sort"

	"github.com/susu3304/warikanbot/internal/ledger"
)

type position struct {
	id     string
	amount float64
}

// Match pairs debtors with creditors greedily, largest first.
// It yields at most len(debtors)+len(creditors)-1 transfers. If balances do not net to zero
// the sweep stops when either side runs out.
func Match(balances map[string]ledger.Balance) []ledger.Transfer {
	var debtors, creditors []position
	for _, pid := range sortedKeys(balances) {
		net := balances[pid].Net
		switch {
		case net < -Epsilon:
			debtors = append(debtors, position{id: pid, amount: -net})
		case net > Epsilon:
			creditors = append(creditors, position{id: pid, amount: net})
		}
	}
	byAmountDesc := func(ps []position) {
		sort.SliceStable(ps, func(i, j int) bool { return ps[i].amount > ps[j].amount })
	}
	byAmountDesc(debtors)
	byAmountDesc(creditors)

	transfers := make([]ledger.Transfer, 0)
	i, j := 0, 0
	for i < len(debtors) && j < len(creditors) {
		d, c := &debtors[i], &creditors[j]
		amt := Round2(math.Min(d.amount, c.amount))
		if amt <= 0 {
			break
		}
		transfers = append(transfers, ledger.Transfer{From: d.id, To: c.id, Amount: amt})
		d.amount -= amt
		c.amount -= amt
		if d.amount <= Epsilon {
			i++
		}
		if c.amount <= Epsilon {
			j++
		}
	}
	return transfers
}
