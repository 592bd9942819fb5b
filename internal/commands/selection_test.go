package commands

import (
	"errors"
	"testing"

	"github.com/susu3304/warikanbot/internal/ledger"
	"github.com/susu3304/warikanbot/internal/warikan"
)

func TestParseSelection(t *testing.T) {
	items := []ledger.LineItem{
		{ID: 10, Name: "Pizza", Quantity: 2, UnitPrice: 500},
		{ID: 11, Name: "Beer", Quantity: 4, UnitPrice: 10},
		{ID: 12, Name: "Fries", Quantity: 1, UnitPrice: 7},
	}

	type want struct {
		id   int64
		qty  float64
		even bool
	}
	tests := []struct {
		name    string
		text    string
		want    []want
		wantErr bool
	}{
		{name: "quantities", text: "1:2 2:0.5", want: []want{{10, 2, false}, {11, 0.5, false}}},
		{name: "even split", text: "3:even 2:均等", want: []want{{12, 0, true}, {11, 0, true}}},
		{name: "bare number claims one", text: "2", want: []want{{11, 1, false}}},
		{name: "comma separated", text: "1:1, 2:3", want: []want{{10, 1, false}, {11, 3, false}}},
		{name: "full width colon", text: "1：2", want: []want{{10, 2, false}}},
		{name: "clear", text: "none", want: []want{}},
		{name: "out of range", text: "4:1", wantErr: true},
		{name: "zero index", text: "0:1", wantErr: true},
		{name: "bad quantity", text: "1:lots", wantErr: true},
		{name: "empty", text: "   ", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseSelection(tt.text, items)
			if tt.wantErr {
				if !errors.Is(err, ledger.ErrInvalidInput) {
					t.Errorf("parseSelection(%q) err = %v, want ErrInvalidInput", tt.text, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseSelection(%q): %v", tt.text, err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("parseSelection(%q) = %d requests, want %d", tt.text, len(got), len(tt.want))
			}
			for n, w := range tt.want {
				if !matches(got[n], w.id, w.qty, w.even) {
					t.Errorf("request %d = %+v (id %d), want %+v", n, got[n], *got[n].LineItemID, w)
				}
			}
		})
	}
}

func matches(r warikan.ClaimRequest, id int64, qty float64, even bool) bool {
	return r.LineItemID != nil && *r.LineItemID == id && r.Quantity == qty && r.EvenSplit == even
}
