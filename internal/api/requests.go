package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/campuslend/campuslend/internal/lending"
	"github.com/campuslend/campuslend/internal/model"
	"github.com/campuslend/campuslend/internal/store"
)

// RequestsHandler handles borrow requests and their transitions.
type RequestsHandler struct {
	Lending *lending.Coordinator
}

type submitRequest struct {
	ItemID        string     `json:"item_id"`
	ReturnDueDate *time.Time `json:"return_due_date"`
}

// Submit handles POST /api/requests.
func (h *RequestsHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ItemID == "" {
		jsonError(w, http.StatusBadRequest, "item_id required")
		return
	}

	claims := GetClaims(r.Context())
	created, err := h.Lending.SubmitRequest(r.Context(), claims.ProfileID(), req.ItemID, req.ReturnDueDate)
	if err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("borrow request submitted", "request", created.ID, "item", created.ItemID, "user", claims.Username)
	jsonResponse(w, http.StatusCreated, created)
}

// List handles GET /api/requests?user_id=&item_id=&club_id=&status=.
func (h *RequestsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.RequestFilter{
		UserID: q.Get("user_id"),
		ItemID: q.Get("item_id"),
		ClubID: q.Get("club_id"),
	}
	if s := q.Get("status"); s != "" {
		status, err := model.ParseRequestStatus(s)
		if err != nil {
			writeError(w, r, err)
			return
		}
		filter.Status = status
	}

	requests, err := h.Lending.ListRequests(r.Context(), GetClaims(r.Context()).ProfileID(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if requests == nil {
		requests = []model.Request{}
	}
	jsonResponse(w, http.StatusOK, requests)
}

// Get handles GET /api/requests/{id}.
func (h *RequestsHandler) Get(w http.ResponseWriter, r *http.Request) {
	req, err := h.Lending.GetRequest(r.Context(), GetClaims(r.Context()).ProfileID(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, req)
}

type transition func(ctx context.Context, actorID, requestID string) (*model.Request, error)

// decide runs one coordinator transition for the calling admin and logs the outcome.
func (h *RequestsHandler) decide(w http.ResponseWriter, r *http.Request, name string, fn transition) {
	claims := GetClaims(r.Context())
	id := r.PathValue("id")

	req, err := fn(r.Context(), claims.ProfileID(), id)
	if err != nil {
		slog.Warn("request transition refused", "transition", name, "request", id, "by", claims.Username, "error", err)
		writeError(w, r, err)
		return
	}

	slog.Info("request transition", "transition", name, "request", req.ID, "item", req.ItemID, "status", req.Status, "by", claims.Username)
	jsonResponse(w, http.StatusOK, req)
}

// Approve handles POST /api/requests/{id}/approve.
func (h *RequestsHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, "approve", h.Lending.Approve)
}

// Reject handles POST /api/requests/{id}/reject.
func (h *RequestsHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, "reject", h.Lending.Reject)
}

// MarkReturned handles POST /api/requests/{id}/return.
func (h *RequestsHandler) MarkReturned(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, "return", h.Lending.MarkReturned)
}
