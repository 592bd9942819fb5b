package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/susu3304/warikanbot/internal/config"
	"github.com/susu3304/warikanbot/internal/extract"
	"github.com/susu3304/warikanbot/internal/ledger"
	"github.com/susu3304/warikanbot/internal/memstore"
	"github.com/susu3304/warikanbot/internal/warikan"
)

// fakeDiscord lets members[group] in and records settlement notices.
type fakeDiscord struct {
	members map[string][]string
	err     error

	mu       sync.Mutex
	notified []*warikan.Settlement
}

func (f *fakeDiscord) CanAccess(_ context.Context, userID, groupID string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	for _, id := range f.members[groupID] {
		if id == userID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeDiscord) NotifySettlement(res *warikan.Settlement) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notified = append(f.notified, res)
}

func newTestAPIWith(t *testing.T, discord Discord) *API {
	t.Helper()
	cfg := &config.Config{JWTSecret: "test-secret", WebBind: "127.0.0.1:0"}
	svc := warikan.NewService(memstore.New(), extract.NewRules(), nil)
	return New(cfg, svc, discord)
}

func newTestAPI(t *testing.T) *API {
	t.Helper()
	return newTestAPIWith(t, &fakeDiscord{members: map[string][]string{"g1": {"u1", "alice", "bob"}}})
}

func tokenFor(t *testing.T, a *API, userID string) string {
	t.Helper()
	tok, err := a.issueToken(userID, userID)
	if err != nil {
		t.Fatalf("issueToken: %v", err)
	}
	return tok
}

func doRequest(t *testing.T, a *API, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.Handler().ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, w.Body.String())
	}
}

func TestHealth(t *testing.T) {
	a := newTestAPI(t)
	w := doRequest(t, a, "GET", "/health", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var got map[string]interface{}
	decode(t, w, &got)
	if got["status"] != "ok" {
		t.Errorf("status field = %v, want ok", got["status"])
	}
}

func TestAuthRequired(t *testing.T) {
	a := newTestAPI(t)
	tests := []struct {
		name   string
		header string
	}{
		{"missing", ""},
		{"not bearer", "Basic abc"},
		{"garbage", "Bearer not-a-jwt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/groups/g1/items", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			a.Handler().ServeHTTP(w, req)
			if w.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", w.Code)
			}
		})
	}
}

func TestTokenFromOtherSecretRejected(t *testing.T) {
	a := newTestAPI(t)
	other := New(&config.Config{JWTSecret: "other"}, a.svc, a.discord)
	w := doRequest(t, a, "GET", "/api/groups/g1/items", tokenFor(t, other, "u1"), nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestErrorStatuses(t *testing.T) {
	a := newTestAPI(t)
	tok := tokenFor(t, a, "u1")
	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
		want   int
	}{
		{"negative price", "POST", "/api/groups/g1/items", itemsRequest{Items: []ledger.ItemInput{{Name: "x", Quantity: 1, UnitPrice: -1}}}, http.StatusBadRequest},
		{"empty items", "POST", "/api/groups/g1/items", itemsRequest{}, http.StatusBadRequest},
		{"delete missing", "DELETE", "/api/groups/g1/items/3", nil, http.StatusNotFound},
		{"finalize empty", "POST", "/api/groups/g1/finalize", nil, http.StatusConflict},
		{"import garbage", "POST", "/api/groups/g1/items/import", importRequest{Text: "???"}, http.StatusUnprocessableEntity},
		{"negative payment", "POST", "/api/groups/g1/payments", paymentRequest{Amount: -5}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(t, a, tt.method, tt.path, tok, tt.body)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d (body %q)", w.Code, tt.want, w.Body.String())
			}
		})
	}
}

func TestSettlementFlow(t *testing.T) {
	discord := &fakeDiscord{members: map[string][]string{"g1": {"alice", "bob"}}}
	a := newTestAPIWith(t, discord)
	alice := tokenFor(t, a, "alice")
	bob := tokenFor(t, a, "bob")

	w := doRequest(t, a, "POST", "/api/groups/g1/items", alice, itemsRequest{Items: []ledger.ItemInput{
		{Name: "Pizza", Quantity: 2, UnitPrice: 15},
		{Name: "Beer", Quantity: 2, UnitPrice: 5},
	}})
	if w.Code != http.StatusCreated {
		t.Fatalf("add items status = %d (body %q)", w.Code, w.Body.String())
	}
	var added struct {
		Items []itemView `json:"items"`
	}
	decode(t, w, &added)
	if len(added.Items) != 2 || added.Items[1].Index != 1 {
		t.Fatalf("added = %+v", added.Items)
	}
	beerID := added.Items[1].ID

	claims := claimsRequest{Claims: []warikan.ClaimRequest{
		{Name: "Pizza", UnitPrice: 15, Quantity: 1},
		{LineItemID: &beerID, EvenSplit: true},
	}}
	for _, tok := range []string{alice, bob} {
		if w := doRequest(t, a, "POST", "/api/groups/g1/claims", tok, claims); w.Code != http.StatusOK {
			t.Fatalf("claims status = %d (body %q)", w.Code, w.Body.String())
		}
	}

	w = doRequest(t, a, "GET", "/api/groups/g1/claims", alice, nil)
	var listed struct {
		Claims map[string][]claimView `json:"claims"`
	}
	decode(t, w, &listed)
	if len(listed.Claims["alice"]) != 2 || listed.Claims["bob"][1].Kind != "even" {
		t.Errorf("claims = %+v", listed.Claims)
	}

	if w := doRequest(t, a, "POST", "/api/groups/g1/payments", alice, paymentRequest{ParticipantID: "bob", Amount: 40, Note: "card"}); w.Code != http.StatusCreated {
		t.Fatalf("payment status = %d (body %q)", w.Code, w.Body.String())
	}

	w = doRequest(t, a, "GET", "/api/groups/g1/balances", bob, nil)
	var bal struct {
		Balances map[string]ledger.Balance `json:"balances"`
	}
	decode(t, w, &bal)
	if got := bal.Balances["alice"].Net; got != -20 {
		t.Errorf("alice net = %v, want -20", got)
	}
	if got := bal.Balances["bob"].Net; got != 20 {
		t.Errorf("bob net = %v, want 20", got)
	}

	w = doRequest(t, a, "GET", "/api/groups/g1/unassigned", bob, nil)
	var un struct {
		Unassigned []ledger.Unassigned `json:"unassigned"`
	}
	decode(t, w, &un)
	if len(un.Unassigned) != 1 || un.Unassigned[0].Name != "Beer" || un.Unassigned[0].RemainingQuantity != 2 {
		t.Errorf("unassigned = %+v", un.Unassigned)
	}

	w = doRequest(t, a, "POST", "/api/groups/g1/finalize", alice, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("finalize status = %d (body %q)", w.Code, w.Body.String())
	}
	var settled warikan.Settlement
	decode(t, w, &settled)
	if len(settled.Transfers) != 1 {
		t.Fatalf("transfers = %+v", settled.Transfers)
	}
	want := ledger.Transfer{From: "alice", To: "bob", Amount: 20}
	if settled.Transfers[0] != want {
		t.Errorf("transfer = %+v, want %+v", settled.Transfers[0], want)
	}
	if len(discord.notified) != 1 || discord.notified[0].ID != settled.ID {
		t.Errorf("notified = %+v, want settlement %s", discord.notified, settled.ID)
	}

	w = doRequest(t, a, "GET", "/api/groups/g1", alice, nil)
	var state map[string]string
	decode(t, w, &state)
	if state["state"] != "CLOSED" {
		t.Errorf("state = %q, want CLOSED", state["state"])
	}

	w = doRequest(t, a, "GET", "/api/groups/g1/items", alice, nil)
	var after struct {
		Items []itemView `json:"items"`
	}
	decode(t, w, &after)
	if len(after.Items) != 0 {
		t.Errorf("items after finalize = %+v", after.Items)
	}
}

func TestEditDeleteAndImport(t *testing.T) {
	a := newTestAPI(t)
	tok := tokenFor(t, a, "u1")

	w := doRequest(t, a, "POST", "/api/groups/g1/items/import", tok, importRequest{Text: "Pizza 2 15\nBeer, 3, 5"})
	if w.Code != http.StatusCreated {
		t.Fatalf("import status = %d (body %q)", w.Code, w.Body.String())
	}

	w = doRequest(t, a, "PUT", "/api/groups/g1/items/0", tok, ledger.ItemInput{Name: "Pizza L", Quantity: 1, UnitPrice: 20})
	if w.Code != http.StatusOK {
		t.Fatalf("edit status = %d (body %q)", w.Code, w.Body.String())
	}

	if w := doRequest(t, a, "DELETE", "/api/groups/g1/items/1", tok, nil); w.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", w.Code)
	}

	w = doRequest(t, a, "GET", "/api/groups/g1/items", tok, nil)
	var got struct {
		Items []itemView `json:"items"`
	}
	decode(t, w, &got)
	if len(got.Items) != 1 {
		t.Fatalf("items = %+v", got.Items)
	}
	if it := got.Items[0]; it.Name != "Pizza L" || it.Quantity != 1 || it.UnitPrice != 20 {
		t.Errorf("item = %+v", it)
	}

	w = doRequest(t, a, "PUT", "/api/groups/g1/items", tok, itemsRequest{Items: []ledger.ItemInput{{Name: "Tea", Quantity: 4, UnitPrice: 2}}})
	if w.Code != http.StatusOK {
		t.Fatalf("replace status = %d", w.Code)
	}
	decode(t, w, &got)
	if len(got.Items) != 1 || got.Items[0].Name != "Tea" {
		t.Errorf("replaced = %+v", got.Items)
	}
}

func TestOutsiderCannotTouchGroup(t *testing.T) {
	a := newTestAPIWith(t, &fakeDiscord{members: map[string][]string{"chan-1": {"alice"}}})
	alice := tokenFor(t, a, "alice")
	mallory := tokenFor(t, a, "mallory")

	w := doRequest(t, a, "POST", "/api/groups/chan-1/items", alice, itemsRequest{Items: []ledger.ItemInput{{Name: "Pizza", Quantity: 2, UnitPrice: 500}}})
	if w.Code != http.StatusCreated {
		t.Fatalf("member add status = %d (body %q)", w.Code, w.Body.String())
	}

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
	}{
		{"state", "GET", "/api/groups/chan-1", nil},
		{"list items", "GET", "/api/groups/chan-1/items", nil},
		{"replace items", "PUT", "/api/groups/chan-1/items", itemsRequest{Items: []ledger.ItemInput{{Name: "x", Quantity: 1, UnitPrice: 1}}}},
		{"delete item", "DELETE", "/api/groups/chan-1/items/0", nil},
		{"claims", "POST", "/api/groups/chan-1/claims", claimsRequest{}},
		{"payment for member", "POST", "/api/groups/chan-1/payments", paymentRequest{ParticipantID: "alice", Amount: 99999}},
		{"balances", "GET", "/api/groups/chan-1/balances", nil},
		{"finalize", "POST", "/api/groups/chan-1/finalize", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(t, a, tt.method, tt.path, mallory, tt.body)
			if w.Code != http.StatusForbidden {
				t.Errorf("status = %d, want 403 (body %q)", w.Code, w.Body.String())
			}
		})
	}

	w = doRequest(t, a, "GET", "/api/groups/chan-1/items", alice, nil)
	var got struct {
		Items []itemView `json:"items"`
	}
	decode(t, w, &got)
	if len(got.Items) != 1 || got.Items[0].Name != "Pizza" {
		t.Errorf("items after outsider requests = %+v", got.Items)
	}
	w = doRequest(t, a, "GET", "/api/groups/chan-1/balances", alice, nil)
	var bal struct {
		Balances map[string]ledger.Balance `json:"balances"`
	}
	decode(t, w, &bal)
	if len(bal.Balances) != 0 {
		t.Errorf("outsider changed balances: %+v", bal.Balances)
	}
}

func TestGroupAccessCheckFailure(t *testing.T) {
	a := newTestAPIWith(t, &fakeDiscord{err: errors.New("discord unavailable")})
	w := doRequest(t, a, "GET", "/api/groups/g1/items", tokenFor(t, a, "u1"), nil)
	if w.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", w.Code)
	}
}

func TestNoDiscordDeniesGroups(t *testing.T) {
	a := newTestAPIWith(t, nil)
	w := doRequest(t, a, "GET", "/api/groups/g1/items", tokenFor(t, a, "u1"), nil)
	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", w.Code)
	}
	if w := doRequest(t, a, "GET", "/health", "", nil); w.Code != http.StatusOK {
		t.Errorf("health status = %d, want 200", w.Code)
	}
}
