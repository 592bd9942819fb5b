package commands

import (
	"strings"
	"testing"

	"github.com/susu3304/warikanbot/internal/ledger"
	"github.com/susu3304/warikanbot/internal/warikan"
)

func TestDebtorNotices(t *testing.T) {
	res := &warikan.Settlement{
		GroupID: "chan-1",
		Transfers: []ledger.Transfer{
			{From: "a", To: "c", Amount: 30},
			{From: "b", To: "c", Amount: 5},
			{From: "a", To: "d", Amount: 12.5},
		},
		Names: map[string]string{"a": "Alice", "c": "Carol"},
	}

	got := debtorNotices(res)
	if len(got) != 2 {
		t.Fatalf("notices for %d users, want 2: %v", len(got), got)
	}
	if _, ok := got["c"]; ok {
		t.Errorf("creditor c got a notice")
	}

	tests := []struct {
		user    string
		want    []string
		notWant []string
	}{
		{user: "a", want: []string{"<#chan-1>", "Alice さん", "Carol さんに 30", "d さんに 12.5", "合計 42.5"}},
		{user: "b", want: []string{"b さん", "Carol さんに 5"}, notWant: []string{"合計"}},
	}
	for _, tt := range tests {
		t.Run(tt.user, func(t *testing.T) {
			msg := got[tt.user]
			for _, w := range tt.want {
				if !strings.Contains(msg, w) {
					t.Errorf("notice %q missing %q", msg, w)
				}
			}
			for _, w := range tt.notWant {
				if strings.Contains(msg, w) {
					t.Errorf("notice %q should not contain %q", msg, w)
				}
			}
		})
	}
}

func TestDebtorNoticesNoTransfers(t *testing.T) {
	if got := debtorNotices(&warikan.Settlement{GroupID: "chan-1"}); len(got) != 0 {
		t.Errorf("debtorNotices = %v, want none", got)
	}
}
