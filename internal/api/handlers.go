package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/susu3304/warikanbot/internal/extract"
	"github.com/susu3304/warikanbot/internal/ledger"
	"github.com/susu3304/warikanbot/internal/warikan"
)

// Receipt photos are posted inline as base64.
const maxBodyBytes = 16 << 20

type itemView struct {
	Index     int     `json:"index"`
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	Quantity  float64 `json:"quantity"`
	UnitPrice float64 `json:"price"`
}

type claimView struct {
	LineItemID *int64  `json:"line_item_id,omitempty"`
	Name       string  `json:"name"`
	Kind       string  `json:"kind"`
	Quantity   float64 `json:"quantity"`
	UnitPrice  float64 `json:"price"`
}

type itemsRequest struct {
	Items []ledger.ItemInput `json:"items"`
}

type importRequest struct {
	Text     string `json:"text"`
	Image    []byte `json:"image"`
	MIMEType string `json:"mime_type"`
}

type claimsRequest struct {
	Claims []warikan.ClaimRequest `json:"claims"`
}

type paymentRequest struct {
	ParticipantID string  `json:"participant_id"`
	Amount        float64 `json:"amount"`
	Note          string  `json:"note"`
}

func toItemViews(items []ledger.LineItem) []itemView {
	out := make([]itemView, len(items))
	for i, it := range items {
		out[i] = itemView{Index: i, ID: it.ID, Name: it.Name, Quantity: it.Quantity, UnitPrice: it.UnitPrice}
	}
	return out
}

func toClaimViews(claims []ledger.Claim) []claimView {
	out := make([]claimView, len(claims))
	for i, c := range claims {
		out[i] = claimView{
			LineItemID: c.LineItemID,
			Name:       c.Name,
			Kind:       c.Kind.String(),
			Quantity:   c.Quantity,
			UnitPrice:  c.UnitPrice,
		}
	}
	return out
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return &ledger.ValidationError{Field: "body", Message: fmt.Sprintf("JSONを読み取れません: %v", err)}
	}
	return nil
}

func groupID(r *http.Request) string {
	return mux.Vars(r)["group_id"]
}

// itemIndex reads the 0-based position of a line item from the path.
func itemIndex(r *http.Request) (int, error) {
	idx, err := strconv.Atoi(mux.Vars(r)["index"])
	if err != nil {
		return 0, &ledger.ValidationError{Field: "index", Message: "品目番号が不正です"}
	}
	return idx, nil
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	resp := map[string]interface{}{
		"status":         "ok",
		"uptime_seconds": int64(time.Since(a.startedAt).Seconds()),
	}
	status := http.StatusOK
	if err := a.svc.Ping(ctx); err != nil {
		resp["status"] = "unavailable"
		resp["error"] = err.Error()
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

// Protected handlers
func (a *API) handleGroupState(w http.ResponseWriter, r *http.Request) {
	gid := groupID(r)
	writeJSON(w, http.StatusOK, map[string]string{
		"group_id": gid,
		"state":    a.svc.State(gid).String(),
	})
}

func (a *API) handleListItems(w http.ResponseWriter, r *http.Request) {
	items, err := a.svc.ListLineItems(r.Context(), groupID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": toItemViews(items)})
}

func (a *API) handleAddItems(w http.ResponseWriter, r *http.Request) {
	var req itemsRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	items, err := a.svc.AddLineItems(r.Context(), groupID(r), req.Items)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"items": toItemViews(items)})
}

func (a *API) handleReplaceItems(w http.ResponseWriter, r *http.Request) {
	var req itemsRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	items, err := a.svc.ReplaceLineItems(r.Context(), groupID(r), req.Items)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": toItemViews(items)})
}

func (a *API) handleImportItems(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	items, err := a.svc.ImportItems(r.Context(), groupID(r), extract.Input{
		Text:     req.Text,
		Image:    req.Image,
		MIMEType: req.MIMEType,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"items": toItemViews(items)})
}

func (a *API) handleEditItem(w http.ResponseWriter, r *http.Request) {
	idx, err := itemIndex(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req ledger.ItemInput
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	item, err := a.svc.EditLineItem(r.Context(), groupID(r), idx, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, itemView{Index: idx, ID: item.ID, Name: item.Name, Quantity: item.Quantity, UnitPrice: item.UnitPrice})
}

func (a *API) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	idx, err := itemIndex(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if _, err := a.svc.DeleteLineItem(r.Context(), groupID(r), idx); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleListClaims(w http.ResponseWriter, r *http.Request) {
	claims, err := a.svc.ListClaimsByParticipant(r.Context(), groupID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	out := make(map[string][]claimView, len(claims))
	for pid, cs := range claims {
		out[pid] = toClaimViews(cs)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"claims": out})
}

// handleSubmitClaims replaces the caller's claims in the group.
func (a *API) handleSubmitClaims(w http.ResponseWriter, r *http.Request) {
	caller := claimsFrom(r.Context())
	var req claimsRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	claims, err := a.svc.SubmitClaim(r.Context(), groupID(r), caller.UserID, req.Claims)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"participant_id": caller.UserID,
		"claims":         toClaimViews(claims),
	})
}

func (a *API) handleRecordPayment(w http.ResponseWriter, r *http.Request) {
	caller := claimsFrom(r.Context())
	var req paymentRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	payer := req.ParticipantID
	if payer == "" {
		payer = caller.UserID
	}
	p, err := a.svc.RecordPayment(r.Context(), groupID(r), payer, req.Amount, req.Note)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"id":             p.ID,
		"participant_id": p.ParticipantID,
		"amount":         p.Amount,
		"note":           p.Note,
	})
}

func (a *API) handleUnassigned(w http.ResponseWriter, r *http.Request) {
	rows, err := a.svc.ListUnassigned(r.Context(), groupID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"unassigned": rows})
}

func (a *API) handleBalances(w http.ResponseWriter, r *http.Request) {
	balances, err := a.svc.ComputeBalances(r.Context(), groupID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"balances": balances})
}

func (a *API) handleFinalize(w http.ResponseWriter, r *http.Request) {
	settlement, err := a.svc.Finalize(r.Context(), groupID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	a.discord.NotifySettlement(settlement)
	writeJSON(w, http.StatusOK, settlement)
}
