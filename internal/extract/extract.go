// Package extract turns raw receipt input (typed lines or a photo) into line items.
package extract

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/susu3304/warikanbot/internal/ledger"
)

var (
	ErrUnsupported = errors.New("この入力形式には対応していません")
	ErrNoItems     = errors.New("品目が見つかりませんでした")
)

// Input is either typed text or an image. Image takes precedence when both are set.
type Input struct {
	Text     string
	Image    []byte
	MIMEType string
}

func (in Input) HasImage() bool { return len(in.Image) > 0 }

func (in Input) mime() string {
	if in.MIMEType != "" {
		return in.MIMEType
	}
	return "image/jpeg"
}

const itemsPrompt = `Read the receipt and return only JSON of the form
{"items": [{"name": "...", "quantity": 1, "price": 100}]}
where price is the unit price. No other text.`

type llmItem struct {
	Name     string      `json:"name"`
	Quantity json.Number `json:"quantity"`
	Price    json.Number `json:"price"`
}

// decodeItems accepts the JSON an LLM returned, either a bare array or {"items": [...]},
// optionally wrapped in a markdown code fence.
func decodeItems(content string) ([]ledger.ItemInput, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	var raw []llmItem
	if strings.HasPrefix(content, "[") {
		if err := json.Unmarshal([]byte(content), &raw); err != nil {
			return nil, fmt.Errorf("decode items: %w", err)
		}
	} else {
		var wrapped struct {
			Items []llmItem `json:"items"`
		}
		if err := json.Unmarshal([]byte(content), &wrapped); err != nil {
			return nil, fmt.Errorf("decode items: %w", err)
		}
		raw = wrapped.Items
	}

	out := make([]ledger.ItemInput, 0, len(raw))
	for _, r := range raw {
		qty, err1 := 1.0, error(nil)
		if r.Quantity != "" {
			qty, err1 = parseNumber(r.Quantity.String())
		}
		price, err2 := parseNumber(r.Price.String())
		it := ledger.ItemInput{Name: strings.TrimSpace(r.Name), Quantity: qty, UnitPrice: price}
		if err1 != nil || err2 != nil || ledger.ValidateItem(it) != nil {
			continue
		}
		out = append(out, it)
	}
	if len(out) == 0 {
		return nil, ErrNoItems
	}
	return out, nil
}
