package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/susu3304/warikanbot/internal/ledger"
	"github.com/susu3304/warikanbot/internal/warikan"
)

var evenWords = map[string]bool{"even": true, "split": true, "均等": true, "割り勘": true}

var clearWords = map[string]bool{"none": true, "clear": true, "なし": true}

// parseSelection turns "1:2 3:even 4" into claim requests against the numbered item list.
// A bare number claims one unit. "none" yields an empty selection.
func parseSelection(text string, items []ledger.LineItem) ([]warikan.ClaimRequest, error) {
	text = strings.NewReplacer(",", " ", "、", " ", "：", ":").Replace(strings.TrimSpace(text))
	fields := strings.Fields(text)
	if len(fields) == 1 && clearWords[strings.ToLower(fields[0])] {
		return []warikan.ClaimRequest{}, nil
	}
	if len(fields) == 0 {
		return nil, &ledger.ValidationError{Field: "selection", Message: "申告内容が空です"}
	}

	out := make([]warikan.ClaimRequest, 0, len(fields))
	for _, tok := range fields {
		numPart, qtyPart, hasQty := strings.Cut(tok, ":")
		n, err := strconv.Atoi(numPart)
		if err != nil || n < 1 || n > len(items) {
			return nil, &ledger.ValidationError{Field: "selection", Message: fmt.Sprintf("「%s」の品目番号が不正です", tok)}
		}
		id := items[n-1].ID
		req := warikan.ClaimRequest{LineItemID: &id, Quantity: 1}
		if hasQty {
			switch {
			case evenWords[strings.ToLower(qtyPart)]:
				req.EvenSplit = true
				req.Quantity = 0
			default:
				q, err := strconv.ParseFloat(qtyPart, 64)
				if err != nil {
					return nil, &ledger.ValidationError{Field: "selection", Message: fmt.Sprintf("「%s」の数量が不正です", tok)}
				}
				req.Quantity = q
			}
		}
		out = append(out, req)
	}
	return out, nil
}
