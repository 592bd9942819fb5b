package settle

import (
	"math"
	"reflect"
	"testing"

	"github.com/susu3304/warikanbot/internal/ledger"
)

func item(id int64, name string, qty, price float64) ledger.LineItem {
	return ledger.LineItem{ID: id, GroupID: "g", Name: name, Quantity: qty, UnitPrice: price}
}

func manual(it ledger.LineItem, pid string, qty float64) ledger.Claim {
	c := ledger.Manual(it, qty)
	c.ParticipantID = pid
	return c
}

func even(it ledger.LineItem, pid string) ledger.Claim {
	c := ledger.EvenSplit(it)
	c.ParticipantID = pid
	return c
}

func TestRound2(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{1.234, 1.23},
		{1.235, 1.24},
		{-1.235, -1.24},
		{0.005, 0.01},
		{0.1 + 0.2, 0.3},
		{100, 100},
	}
	for _, tt := range tests {
		if got := Round2(tt.in); got != tt.want {
			t.Errorf("Round2(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestAttribute(t *testing.T) {
	beer := item(1, "Beer", 4, 10)
	pizza := item(2, "Pizza", 2, 500)
	gone := int64(99)

	tests := []struct {
		name   string
		items  []ledger.LineItem
		claims map[string][]ledger.Claim
		want   map[string]float64
	}{
		{
			name:  "even split shares the leftover after manual claims",
			items: []ledger.LineItem{beer},
			claims: map[string][]ledger.Claim{
				"A": {manual(beer, "A", 1)},
				"B": {even(beer, "B")},
				"C": {even(beer, "C")},
			},
			want: map[string]float64{"A": 10, "B": 15, "C": 15},
		},
		{
			name:  "over-claimed item leaves nothing for even split",
			items: []ledger.LineItem{beer},
			claims: map[string][]ledger.Claim{
				"A": {manual(beer, "A", 5)},
				"B": {even(beer, "B")},
			},
			want: map[string]float64{"A": 50, "B": 0},
		},
		{
			name:  "unclaimed item is attributed to nobody",
			items: []ledger.LineItem{beer, pizza},
			claims: map[string][]ledger.Claim{
				"A": {manual(pizza, "A", 1)},
			},
			want: map[string]float64{"A": 500},
		},
		{
			name:  "deleted item falls back to the claim snapshot",
			items: []ledger.LineItem{beer},
			claims: map[string][]ledger.Claim{
				"A": {{ParticipantID: "A", LineItemID: &gone, Name: "Sake", Kind: ledger.ClaimManual, Quantity: 2, UnitPrice: 300}},
				"B": {{ParticipantID: "B", LineItemID: &gone, Name: "Sake", Kind: ledger.ClaimEvenSplit, UnitPrice: 300}},
			},
			want: map[string]float64{"A": 600, "B": 0},
		},
		{
			name:  "snapshot claim without item id",
			items: nil,
			claims: map[string][]ledger.Claim{
				"A": {{ParticipantID: "A", Name: "Tea", Kind: ledger.ClaimManual, Quantity: 3, UnitPrice: 1.5}},
			},
			want: map[string]float64{"A": 4.5},
		},
		{
			name:  "duplicate even split claims count once",
			items: []ledger.LineItem{beer},
			claims: map[string][]ledger.Claim{
				"A": {even(beer, "A"), even(beer, "A")},
				"B": {even(beer, "B")},
			},
			want: map[string]float64{"A": 20, "B": 20},
		},
		{
			name:  "three way split is rounded",
			items: []ledger.LineItem{item(3, "Cake", 1, 10)},
			claims: map[string][]ledger.Claim{
				"A": {even(item(3, "Cake", 1, 10), "A")},
				"B": {even(item(3, "Cake", 1, 10), "B")},
				"C": {even(item(3, "Cake", 1, 10), "C")},
			},
			want: map[string]float64{"A": 3.33, "B": 3.33, "C": 3.33},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Attribute(tt.items, tt.claims)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Attribute() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBalances(t *testing.T) {
	spend := map[string]float64{"A": 10, "B": 15.5}
	paid := map[string]float64{"B": 20, "C": 5.555}

	got := Balances(spend, paid)
	want := map[string]ledger.Balance{
		"A": {ParticipantID: "A", Spend: 10, Paid: 0, Net: -10},
		"B": {ParticipantID: "B", Spend: 15.5, Paid: 20, Net: 4.5},
		"C": {ParticipantID: "C", Spend: 0, Paid: 5.56, Net: 5.56},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Balances() = %v, want %v", got, want)
	}

	if got := Balances(nil, nil); len(got) != 0 {
		t.Errorf("Balances(nil, nil) = %v, want empty", got)
	}
}

func nets(m map[string]float64) map[string]ledger.Balance {
	out := make(map[string]ledger.Balance, len(m))
	for k, v := range m {
		out[k] = ledger.Balance{ParticipantID: k, Net: v}
	}
	return out
}

func TestMatch(t *testing.T) {
	tests := []struct {
		name string
		nets map[string]float64
		want []ledger.Transfer
	}{
		{
			name: "two debtors one creditor",
			nets: map[string]float64{"A": -30, "B": -10, "C": 40},
			want: []ledger.Transfer{{From: "A", To: "C", Amount: 30}, {From: "B", To: "C", Amount: 10}},
		},
		{
			name: "one debtor two creditors",
			nets: map[string]float64{"A": -50, "B": 20, "C": 30},
			want: []ledger.Transfer{{From: "A", To: "C", Amount: 30}, {From: "A", To: "B", Amount: 20}},
		},
		{
			name: "balances within epsilon need no transfers",
			nets: map[string]float64{"A": 0.01, "B": -0.01, "C": 0},
			want: []ledger.Transfer{},
		},
		{
			name: "empty",
			nets: nil,
			want: []ledger.Transfer{},
		},
		{
			name: "residual is left unmatched",
			nets: map[string]float64{"A": -30, "B": 10},
			want: []ledger.Transfer{{From: "A", To: "B", Amount: 10}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Match(nets(tt.nets))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Match() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMatchPaysEachCreditorItsNet(t *testing.T) {
	in := map[string]float64{"A": -12.34, "B": -7.66, "C": -5, "D": 15, "E": 10}
	transfers := Match(nets(in))

	if len(transfers) > 4 {
		t.Errorf("got %d transfers, want at most 4", len(transfers))
	}
	received := map[string]float64{}
	sent := map[string]float64{}
	for _, tr := range transfers {
		if tr.Amount <= 0 {
			t.Errorf("transfer %v has non-positive amount", tr)
		}
		received[tr.To] += tr.Amount
		sent[tr.From] += tr.Amount
	}
	for pid, net := range in {
		var moved float64
		if net > 0 {
			moved = received[pid]
		} else {
			moved = -sent[pid]
		}
		if math.Abs(moved-net) > Epsilon {
			t.Errorf("%s moved %v, want %v", pid, moved, net)
		}
	}
}

func TestUnassigned(t *testing.T) {
	pizza := item(1, "Pizza", 2, 500)
	beer := item(2, "Beer", 1, 10)

	tests := []struct {
		name   string
		items  []ledger.LineItem
		claims map[string][]ledger.Claim
		want   []ledger.Unassigned
	}{
		{
			name:   "partially claimed item is reported",
			items:  []ledger.LineItem{pizza},
			claims: map[string][]ledger.Claim{"A": {manual(pizza, "A", 1)}},
			want:   []ledger.Unassigned{{Name: "Pizza", RemainingQuantity: 1, UnitPrice: 500}},
		},
		{
			name:   "even split does not cover quantity",
			items:  []ledger.LineItem{pizza},
			claims: map[string][]ledger.Claim{"A": {even(pizza, "A")}},
			want:   []ledger.Unassigned{{Name: "Pizza", RemainingQuantity: 2, UnitPrice: 500}},
		},
		{
			name:   "remaining of 0.005 counts as assigned",
			items:  []ledger.LineItem{beer},
			claims: map[string][]ledger.Claim{"A": {manual(beer, "A", 0.995)}},
			want:   []ledger.Unassigned{},
		},
		{
			name:   "over-claim is not reported",
			items:  []ledger.LineItem{pizza},
			claims: map[string][]ledger.Claim{"A": {manual(pizza, "A", 3)}},
			want:   []ledger.Unassigned{},
		},
		{
			name:  "claims match by name and price",
			items: []ledger.LineItem{pizza},
			claims: map[string][]ledger.Claim{
				"A": {{ParticipantID: "A", Name: "Pizza", Kind: ledger.ClaimManual, Quantity: 2, UnitPrice: 500}},
				"B": {{ParticipantID: "B", Name: "Pizza", Kind: ledger.ClaimManual, Quantity: 1, UnitPrice: 450}},
			},
			want: []ledger.Unassigned{},
		},
		{
			name:   "no claims",
			items:  []ledger.LineItem{pizza, beer},
			claims: nil,
			want: []ledger.Unassigned{
				{Name: "Pizza", RemainingQuantity: 2, UnitPrice: 500},
				{Name: "Beer", RemainingQuantity: 1, UnitPrice: 10},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Unassigned(tt.items, tt.claims)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Unassigned() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestConservation(t *testing.T) {
	beer := item(1, "Beer", 4, 10)
	pizza := item(2, "Pizza", 3, 333.33)
	fries := item(3, "Fries", 1, 7.5)
	items := []ledger.LineItem{beer, pizza, fries}
	claims := map[string][]ledger.Claim{
		"A": {manual(beer, "A", 1), even(pizza, "A")},
		"B": {even(beer, "B"), even(pizza, "B"), manual(fries, "B", 1)},
		"C": {even(beer, "C"), even(pizza, "C")},
	}
	paid := map[string]float64{"A": 1047.49}

	balances := Balances(Attribute(items, claims), paid)
	var sum float64
	for _, b := range balances {
		sum += b.Net
	}
	if math.Abs(sum) > Epsilon+1e-9 {
		t.Errorf("sum of nets = %v, want ~0", sum)
	}

	transfers := Match(balances)
	if len(transfers) != 2 {
		t.Fatalf("got %d transfers, want 2: %v", len(transfers), transfers)
	}
	for _, tr := range transfers {
		if tr.To != "A" {
			t.Errorf("transfer %v should go to A", tr)
		}
	}
}
