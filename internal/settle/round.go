// Package settle turns a group's line items, claims and payments into balances and transfers.
// Everything here is pure: callers fetch a snapshot from the store and pass it in.
package settle

import (
	"math"
	"sort"

	"github.com/shopspring/decimal"
)

// Epsilon is the tolerance below which an amount or quantity counts as zero.
const Epsilon = 0.01

// Round2 rounds v to two decimal places, half away from zero.
func Round2(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
