package api

import (
	"net/http"

	"github.com/jmoiron/sqlx"
	"golang.org/x/time/rate"

	"github.com/erazemk/prostock/internal/auth"
	"github.com/erazemk/prostock/internal/lifecycle"
	"github.com/erazemk/prostock/internal/metrics"
	"github.com/erazemk/prostock/internal/model"
)

// Deps are the collaborators the API is built on.
type Deps struct {
	DB      *sqlx.DB
	Engine  *lifecycle.Engine
	Tokens  *auth.Issuer
	Metrics *metrics.Metrics

	// RateLimit is requests per second per client address; zero disables it.
	RateLimit rate.Limit
	RateBurst int
}

// NewRouter creates the API router with all endpoints registered.
func NewRouter(d Deps) http.Handler {
	mux := http.NewServeMux()
	rv := newRevocations(d.DB)

	authHandler := &AuthHandler{DB: d.DB, Tokens: d.Tokens, revocations: rv}
	usersHandler := &UsersHandler{DB: d.DB}
	equipmentHandler := &EquipmentHandler{DB: d.DB, Engine: d.Engine}
	repairsHandler := &RepairsHandler{DB: d.DB, Engine: d.Engine}
	kitsHandler := &KitsHandler{DB: d.DB, Engine: d.Engine}
	scanHandler := &ScanHandler{Engine: d.Engine}
	exportHandler := &ExportHandler{DB: d.DB}

	authMW := AuthMiddleware(d.Tokens, rv)
	requireAdmin := RequireRole(model.RoleAdmin)
	requireManager := RequireRole(model.RoleManager)

	user := func(h http.HandlerFunc) http.Handler { return authMW(h) }
	manager := func(h http.HandlerFunc) http.Handler { return authMW(requireManager(h)) }
	admin := func(h http.HandlerFunc) http.Handler { return authMW(requireAdmin(h)) }

	// Public.
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)
	mux.Handle("GET /metrics", d.Metrics.Handler())

	mux.Handle("PUT /api/auth/password", user(authHandler.ChangePassword))
	mux.Handle("POST /api/auth/logout", user(authHandler.Logout))

	// Operators (admin only).
	mux.Handle("GET /api/users", admin(usersHandler.List))
	mux.Handle("POST /api/users", admin(usersHandler.Create))
	mux.Handle("GET /api/users/{id}", admin(usersHandler.Get))
	mux.Handle("PUT /api/users/{id}", admin(usersHandler.Update))
	mux.Handle("PUT /api/users/{id}/password", admin(usersHandler.ResetPassword))
	mux.Handle("DELETE /api/users/{id}", admin(usersHandler.Delete))

	// Equipment: read and move (all roles), edit (manager+).
	mux.Handle("GET /api/equipment", user(equipmentHandler.List))
	mux.Handle("POST /api/equipment", manager(equipmentHandler.Create))
	mux.Handle("GET /api/equipment/{id}", user(equipmentHandler.Get))
	mux.Handle("PUT /api/equipment/{id}", manager(equipmentHandler.Update))
	mux.Handle("DELETE /api/equipment/{id}", manager(equipmentHandler.Delete))
	mux.Handle("PUT /api/equipment/{id}/invoice", manager(equipmentHandler.UploadInvoice))
	mux.Handle("GET /api/equipment/{id}/invoice", user(equipmentHandler.GetInvoice))
	mux.Handle("POST /api/equipment/{id}/checkout", user(equipmentHandler.Checkout))
	mux.Handle("POST /api/equipment/{id}/checkin", user(equipmentHandler.CheckIn))
	mux.Handle("POST /api/equipment/checkin-all", manager(equipmentHandler.CheckInAll))

	// Maintenance.
	mux.Handle("GET /api/equipment/{id}/repairs", user(repairsHandler.ListForEquipment))
	mux.Handle("POST /api/equipment/{id}/repairs", manager(repairsHandler.Create))
	mux.Handle("GET /api/repairs", user(repairsHandler.List))
	mux.Handle("POST /api/repairs/{id}/finish", manager(repairsHandler.Finish))

	// Kits: read and toggle (all roles), edit (manager+).
	mux.Handle("GET /api/kits", user(kitsHandler.List))
	mux.Handle("POST /api/kits", manager(kitsHandler.Create))
	mux.Handle("GET /api/kits/{id}", user(kitsHandler.Get))
	mux.Handle("DELETE /api/kits/{id}", manager(kitsHandler.Delete))
	mux.Handle("POST /api/kits/{id}/members", manager(kitsHandler.AddMember))
	mux.Handle("DELETE /api/kits/{id}/members/{equipment_id}", manager(kitsHandler.RemoveMember))
	mux.Handle("POST /api/kits/{id}/toggle", user(kitsHandler.Toggle))

	// Scanner.
	mux.Handle("GET /api/scan", user(scanHandler.Resolve))
	mux.Handle("POST /api/scan", user(scanHandler.Toggle))

	mux.Handle("GET /api/export/equipment.csv", user(exportHandler.EquipmentCSV))

	return LoggingMiddleware(d.Metrics)(RateLimitMiddleware(d.RateLimit, d.RateBurst)(mux))
}
