package api

import (
	"log/slog"
	"net/http"

	"github.com/jmoiron/sqlx"

	"github.com/erazemk/prostock/internal/lifecycle"
	"github.com/erazemk/prostock/internal/model"
	"github.com/erazemk/prostock/internal/store"
)

// RepairsHandler serves maintenance history and the repair workflow.
type RepairsHandler struct {
	DB     *sqlx.DB
	Engine *lifecycle.Engine
}

// List handles GET /api/repairs.
func (h *RepairsHandler) List(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, 0)
}

// ListForEquipment handles GET /api/equipment/{id}/repairs.
func (h *RepairsHandler) ListForEquipment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if _, err := store.GetEquipment(r.Context(), h.DB, id); err != nil {
		writeError(w, r, err)
		return
	}
	h.list(w, r, id)
}

func (h *RepairsHandler) list(w http.ResponseWriter, r *http.Request, equipmentID int64) {
	records, err := store.ListRepairs(r.Context(), h.DB, equipmentID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if records == nil {
		records = []model.RepairRecord{}
	}
	jsonResponse(w, http.StatusOK, records)
}

// Create handles POST /api/equipment/{id}/repairs, sending the item to
// maintenance.
func (h *RepairsHandler) Create(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var in model.RepairInput
	if err := decodeJSON(r, &in); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rec, err := h.Engine.SendToRepair(r.Context(), id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("equipment sent to repair", "user", actor(r), "equipment", id, "repair", rec.ID, "provider", rec.Provider)
	jsonResponse(w, http.StatusCreated, rec)
}

// Finish handles POST /api/repairs/{id}/finish.
func (h *RepairsHandler) Finish(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	e, err := h.Engine.FinishRepair(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("repair finished", "user", actor(r), "repair", id, "equipment", e.ID)
	jsonResponse(w, http.StatusOK, e)
}
