package api

import (
	"database/sql"
	"net/http"

	"github.com/justinas/alice"

	"github.com/campuslend/campuslend/internal/imaging"
	"github.com/campuslend/campuslend/internal/lending"
	"github.com/campuslend/campuslend/internal/model"
)

// DefaultMaxUploadBytes caps photo uploads when Config leaves it unset.
const DefaultMaxUploadBytes = 5 << 20

// Config holds what the router needs besides the database.
type Config struct {
	JWTSecret      string
	Photos         imaging.Options
	MaxUploadBytes int64
}

// NewRouter creates the API router with all endpoints registered.
func NewRouter(db *sql.DB, cfg Config) http.Handler {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultMaxUploadBytes
	}

	mux := http.NewServeMux()
	coord := lending.New(db)

	authHandler := &AuthHandler{DB: db, JWTSecret: cfg.JWTSecret}
	profilesHandler := &ProfilesHandler{DB: db}
	clubsHandler := &ClubsHandler{DB: db}
	itemsHandler := &ItemsHandler{Lending: coord, Photos: cfg.Photos, MaxUploadBytes: cfg.MaxUploadBytes}
	requestsHandler := &RequestsHandler{Lending: coord}

	public := alice.New()
	authed := public.Append(AuthMiddleware(cfg.JWTSecret, db))
	admin := authed.Append(RequireRole(model.RoleAdmin))
	student := authed.Append(RequireRole(model.RoleStudent))

	// Identity.
	mux.Handle("POST /api/auth/login", public.ThenFunc(authHandler.Login))
	mux.Handle("POST /api/auth/logout", authed.ThenFunc(authHandler.Logout))
	mux.Handle("PUT /api/auth/password", authed.ThenFunc(authHandler.ChangePassword))
	mux.Handle("POST /api/profiles", public.ThenFunc(profilesHandler.Signup))
	mux.Handle("GET /api/profiles/me", authed.ThenFunc(profilesHandler.Me))

	// Clubs: read (all roles), create (admin).
	mux.Handle("GET /api/clubs", authed.ThenFunc(clubsHandler.List))
	mux.Handle("POST /api/clubs", admin.ThenFunc(clubsHandler.Create))
	mux.Handle("GET /api/clubs/{id}", authed.ThenFunc(clubsHandler.Get))

	// Items: the coordinator decides who may register or manage each one.
	mux.Handle("GET /api/items", authed.ThenFunc(itemsHandler.List))
	mux.Handle("POST /api/items", authed.ThenFunc(itemsHandler.Register))
	mux.Handle("GET /api/items/{id}", authed.ThenFunc(itemsHandler.Get))
	mux.Handle("PUT /api/items/{id}/maintenance", admin.ThenFunc(itemsHandler.SetMaintenance))
	mux.Handle("POST /api/items/{id}/review", admin.ThenFunc(itemsHandler.Review))
	mux.Handle("PUT /api/items/{id}/image", admin.ThenFunc(itemsHandler.UploadImage))
	mux.Handle("GET /api/items/{id}/image", authed.ThenFunc(itemsHandler.GetImage))

	// Requests.
	mux.Handle("POST /api/requests", student.ThenFunc(requestsHandler.Submit))
	mux.Handle("GET /api/requests", authed.ThenFunc(requestsHandler.List))
	mux.Handle("GET /api/requests/{id}", authed.ThenFunc(requestsHandler.Get))
	mux.Handle("POST /api/requests/{id}/approve", admin.ThenFunc(requestsHandler.Approve))
	mux.Handle("POST /api/requests/{id}/reject", admin.ThenFunc(requestsHandler.Reject))
	mux.Handle("POST /api/requests/{id}/return", admin.ThenFunc(requestsHandler.MarkReturned))

	return mux
}
