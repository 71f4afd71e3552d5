package api

import (
	"log/slog"
	"net/http"

	"github.com/campuslend/campuslend/internal/imaging"
	"github.com/campuslend/campuslend/internal/lending"
	"github.com/campuslend/campuslend/internal/model"
	"github.com/campuslend/campuslend/internal/store"
)

// ItemsHandler handles item endpoints.
type ItemsHandler struct {
	Lending        *lending.Coordinator
	Photos         imaging.Options
	MaxUploadBytes int64
}

type registerItemRequest struct {
	ClubID      string `json:"club_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
	ImageURL    string `json:"image_url"`
}

type maintenanceRequest struct {
	Maintenance *bool `json:"maintenance"`
}

// List handles GET /api/items?status=&club_id=.
func (h *ItemsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.ItemFilter{ClubID: q.Get("club_id")}
	if s := q.Get("status"); s != "" {
		status, err := model.ParseItemStatus(s)
		if err != nil {
			writeError(w, r, err)
			return
		}
		filter.Status = status
	}

	items, err := h.Lending.ListItems(r.Context(), GetClaims(r.Context()).ProfileID(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if items == nil {
		items = []model.Item{}
	}
	jsonResponse(w, http.StatusOK, items)
}

// Register handles POST /api/items.
func (h *ItemsHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerItemRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	claims := GetClaims(r.Context())
	item, err := h.Lending.RegisterItem(r.Context(), claims.ProfileID(), model.ItemAttrs{
		ClubID:      req.ClubID,
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		ImageURL:    req.ImageURL,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("item registered", "item", item.ID, "club", item.ClubID, "status", item.Status, "by", claims.Username)
	jsonResponse(w, http.StatusCreated, item)
}

// Get handles GET /api/items/{id}.
func (h *ItemsHandler) Get(w http.ResponseWriter, r *http.Request) {
	item, err := h.Lending.GetItem(r.Context(), GetClaims(r.Context()).ProfileID(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, item)
}

// SetMaintenance handles PUT /api/items/{id}/maintenance.
func (h *ItemsHandler) SetMaintenance(w http.ResponseWriter, r *http.Request) {
	var req maintenanceRequest
	if err := decodeJSON(r, &req); err != nil || req.Maintenance == nil {
		jsonError(w, http.StatusBadRequest, "maintenance flag required")
		return
	}

	claims := GetClaims(r.Context())
	item, err := h.Lending.SetMaintenance(r.Context(), claims.ProfileID(), r.PathValue("id"), *req.Maintenance)
	if err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("item status set", "item", item.ID, "status", item.Status, "by", claims.Username)
	jsonResponse(w, http.StatusOK, item)
}

// Review handles POST /api/items/{id}/review.
func (h *ItemsHandler) Review(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	item, err := h.Lending.ReviewItem(r.Context(), claims.ProfileID(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("item listing reviewed", "item", item.ID, "by", claims.Username)
	jsonResponse(w, http.StatusOK, item)
}

// UploadImage handles PUT /api/items/{id}/image with a multipart "image" field.
func (h *ItemsHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.MaxUploadBytes)
	if err := r.ParseMultipartForm(h.MaxUploadBytes); err != nil {
		jsonError(w, http.StatusBadRequest, "file too large or invalid multipart form")
		return
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "image file required")
		return
	}
	defer file.Close()

	photo, err := imaging.Process(file, h.Photos)
	if err != nil {
		writeError(w, r, err)
		return
	}

	claims := GetClaims(r.Context())
	item, err := h.Lending.AttachPhoto(r.Context(), claims.ProfileID(), r.PathValue("id"), photo.Data, photo.MIME)
	if err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("item photo uploaded", "item", item.ID, "width", photo.Width, "height", photo.Height, "bytes", len(photo.Data))
	jsonResponse(w, http.StatusOK, item)
}

// GetImage handles GET /api/items/{id}/image.
func (h *ItemsHandler) GetImage(w http.ResponseWriter, r *http.Request) {
	data, mime, err := h.Lending.ItemPhoto(r.Context(), GetClaims(r.Context()).ProfileID(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if data == nil {
		jsonError(w, http.StatusNotFound, "no image")
		return
	}

	w.Header().Set("Content-Type", mime)
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.Write(data)
}
