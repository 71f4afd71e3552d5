package api

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/campuslend/campuslend/internal/model"
	"github.com/campuslend/campuslend/internal/store"
)

// ClubsHandler handles the club directory.
type ClubsHandler struct {
	DB *sql.DB
}

type createClubRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// List handles GET /api/clubs. ?admin_id= narrows to one admin's clubs.
func (h *ClubsHandler) List(w http.ResponseWriter, r *http.Request) {
	clubs, err := store.ListClubs(r.Context(), h.DB, r.URL.Query().Get("admin_id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if clubs == nil {
		clubs = []model.Club{}
	}
	jsonResponse(w, http.StatusOK, clubs)
}

// Create handles POST /api/clubs. The calling admin becomes the club's admin.
func (h *ClubsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createClubRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	claims := GetClaims(r.Context())
	club, err := store.CreateClub(r.Context(), h.DB, req.Name, req.Description, claims.ProfileID())
	if err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("club created", "club", club.ID, "name", club.Name, "admin", claims.Username)
	jsonResponse(w, http.StatusCreated, club)
}

// Get handles GET /api/clubs/{id}.
func (h *ClubsHandler) Get(w http.ResponseWriter, r *http.Request) {
	club, err := store.GetClub(r.Context(), h.DB, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, club)
}
