package api

import (
	"database/sql"
	"log/slog"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"github.com/campuslend/campuslend/internal/model"
	"github.com/campuslend/campuslend/internal/store"
)

// ProfilesHandler handles signup and the caller's own profile.
type ProfilesHandler struct {
	DB *sql.DB
}

type signupRequest struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	StudentID string `json:"student_id"`
	DOB       string `json:"dob"`
}

// Signup handles POST /api/profiles. Self-service accounts are always students;
// admins are created by the first-run bootstrap.
func (h *ProfilesHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := model.ValidatePassword(req.Password); err != nil {
		writeError(w, r, err)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to hash password")
		return
	}

	profile, err := store.CreateProfile(r.Context(), h.DB, store.NewProfile{
		Username:     req.Username,
		StudentID:    req.StudentID,
		DOB:          req.DOB,
		PasswordHash: string(hash),
		Role:         model.RoleStudent,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("student signed up", "user", profile.Username, "id", profile.ID)
	jsonResponse(w, http.StatusCreated, profile)
}

// Me handles GET /api/profiles/me.
func (h *ProfilesHandler) Me(w http.ResponseWriter, r *http.Request) {
	profile, err := store.GetProfile(r.Context(), h.DB, GetClaims(r.Context()).ProfileID())
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, profile)
}
