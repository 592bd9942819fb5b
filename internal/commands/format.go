package commands

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/susu3304/warikanbot/internal/ledger"
	"github.com/susu3304/warikanbot/internal/settle"
	"github.com/susu3304/warikanbot/internal/warikan"
)

// formatAmount prints a value rounded to cents without trailing zeros: 15, 3.3, 3.33.
func formatAmount(v float64) string {
	return strconv.FormatFloat(settle.Round2(v), 'f', -1, 64)
}

func mention(id string) string {
	return fmt.Sprintf("<@%s>", id)
}

func formatItems(items []ledger.LineItem) string {
	if len(items) == 0 {
		return "品目はまだありません"
	}
	var b strings.Builder
	var total float64
	fmt.Fprintf(&b, "品目 (%d件):\n", len(items))
	for n, it := range items {
		subtotal := it.Quantity * it.UnitPrice
		total += subtotal
		fmt.Fprintf(&b, "%d. %s × %s @ %s = %s\n", n+1, it.Name, formatAmount(it.Quantity), formatAmount(it.UnitPrice), formatAmount(subtotal))
	}
	fmt.Fprintf(&b, "合計: %s", formatAmount(total))
	return b.String()
}

func formatClaim(c ledger.Claim) string {
	if c.Kind == ledger.ClaimEvenSplit {
		return fmt.Sprintf("%s（均等割り）", c.Name)
	}
	return fmt.Sprintf("%s × %s @ %s", c.Name, formatAmount(c.Quantity), formatAmount(c.UnitPrice))
}

func formatClaims(claims map[string][]ledger.Claim) string {
	if len(claims) == 0 {
		return "申告はまだありません"
	}
	ids := make([]string, 0, len(claims))
	for id := range claims {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var b strings.Builder
	b.WriteString("申告:\n")
	for _, id := range ids {
		parts := make([]string, 0, len(claims[id]))
		for _, c := range claims[id] {
			parts = append(parts, formatClaim(c))
		}
		fmt.Fprintf(&b, "・%s: %s\n", mention(id), strings.Join(parts, ", "))
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatUnassigned(list []ledger.Unassigned) string {
	if len(list) == 0 {
		return "未申告の品目はありません"
	}
	var b strings.Builder
	b.WriteString("未申告の数量:\n")
	for _, u := range list {
		fmt.Fprintf(&b, "・%s: 残り %s（単価 %s）\n", u.Name, formatAmount(u.RemainingQuantity), formatAmount(u.UnitPrice))
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatBalances(balances map[string]ledger.Balance) string {
	if len(balances) == 0 {
		return "まだ記録がありません"
	}
	ids := make([]string, 0, len(balances))
	for id := range balances {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var b strings.Builder
	b.WriteString("収支:\n")
	for _, id := range ids {
		bal := balances[id]
		sign := ""
		if bal.Net > 0 {
			sign = "+"
		}
		fmt.Fprintf(&b, "・%s: 利用 %s / 支払 %s / 差額 %s%s\n", mention(id), formatAmount(bal.Spend), formatAmount(bal.Paid), sign, formatAmount(bal.Net))
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatSettlement(res *warikan.Settlement) string {
	var b strings.Builder
	if len(res.Transfers) == 0 {
		b.WriteString("精算は不要です")
	} else {
		b.WriteString("精算結果:\n")
		for _, t := range res.Transfers {
			fmt.Fprintf(&b, "%s → %s: %s\n", mention(t.From), mention(t.To), formatAmount(t.Amount))
		}
	}
	if len(res.Unassigned) > 0 {
		b.WriteString("\n※ 誰も申告しなかった分は計算に含まれていません:\n")
		for _, u := range res.Unassigned {
			fmt.Fprintf(&b, "・%s 残り %s\n", u.Name, formatAmount(u.RemainingQuantity))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

const messageLimit = 2000

// splitMessage breaks content on line boundaries into chunks Discord accepts.
func splitMessage(content string) []string {
	if len(content) <= messageLimit {
		return []string{content}
	}
	var chunks []string
	var buf strings.Builder
	for _, line := range strings.Split(content, "\n") {
		for len(line) > messageLimit {
			if buf.Len() > 0 {
				chunks = append(chunks, buf.String())
				buf.Reset()
			}
			cut := messageLimit
			for cut > 0 && !isRuneStart(line[cut]) {
				cut--
			}
			chunks = append(chunks, line[:cut])
			line = line[cut:]
		}
		if buf.Len()+len(line)+1 > messageLimit {
			chunks = append(chunks, buf.String())
			buf.Reset()
		}
		if buf.Len() > 0 {
			buf.WriteString("\n")
		}
		buf.WriteString(line)
	}
	if buf.Len() > 0 {
		chunks = append(chunks, buf.String())
	}
	return chunks
}

func isRuneStart(b byte) bool { return b&0xC0 != 0x80 }
