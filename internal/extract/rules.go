package extract

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/susu3304/warikanbot/internal/ledger"
)

// Rules parses one item per line: "name quantity price" or "name, quantity, price".
// Decimal commas are accepted in the space separated form ("Milk 1,5 99,9").
type Rules struct{}

func NewRules() *Rules { return &Rules{} }

var lineRe = regexp.MustCompile(`^([^\d]+?)\s+(\d+(?:[.,]\d+)?)\s+(\d+(?:[.,]\d+)?)$`)

func (r *Rules) Extract(_ context.Context, in Input) ([]ledger.ItemInput, error) {
	if in.HasImage() {
		return nil, ErrUnsupported
	}
	var out []ledger.ItemInput
	for n, line := range strings.Split(in.Text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		it, err := ParseLine(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", n+1, err)
		}
		out = append(out, it)
	}
	if len(out) == 0 {
		return nil, ErrNoItems
	}
	return out, nil
}

// ParseLine parses a single "name quantity price" entry.
func ParseLine(line string) (ledger.ItemInput, error) {
	line = strings.TrimSpace(line)
	if parts := strings.Split(line, ","); len(parts) == 3 {
		qty, err1 := parseNumber(parts[1])
		price, err2 := parseNumber(parts[2])
		if err1 == nil && err2 == nil {
			return checked(parts[0], qty, price)
		}
	}
	m := lineRe.FindStringSubmatch(line)
	if m == nil {
		return ledger.ItemInput{}, fmt.Errorf("%q: 形式は「品名 数量 単価」です（例: ピザ 2 500）", line)
	}
	qty, err := parseNumber(m[2])
	if err != nil {
		return ledger.ItemInput{}, err
	}
	price, err := parseNumber(m[3])
	if err != nil {
		return ledger.ItemInput{}, err
	}
	return checked(m[1], qty, price)
}

func checked(name string, qty, price float64) (ledger.ItemInput, error) {
	it := ledger.ItemInput{Name: strings.TrimSpace(name), Quantity: qty, UnitPrice: price}
	if err := ledger.ValidateItem(it); err != nil {
		return ledger.ItemInput{}, err
	}
	return it, nil
}

func parseNumber(s string) (float64, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	return strconv.ParseFloat(s, 64)
}
