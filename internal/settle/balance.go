package settle

import "github.com/susu3304/warikanbot/internal/ledger"

// Balances nets payments against spend for every participant present in either map.
func Balances(spend, paid map[string]float64) map[string]ledger.Balance {
	out := make(map[string]ledger.Balance, len(spend)+len(paid))
	for pid, s := range spend {
		p := paid[pid]
		out[pid] = ledger.Balance{ParticipantID: pid, Spend: Round2(s), Paid: Round2(p), Net: Round2(p - s)}
	}
	for pid, p := range paid {
		if _, ok := out[pid]; ok {
			continue
		}
		out[pid] = ledger.Balance{ParticipantID: pid, Paid: Round2(p), Net: Round2(p)}
	}
	return out
}
