package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/jmoiron/sqlx"

	"github.com/erazemk/prostock/internal/imaging"
	"github.com/erazemk/prostock/internal/lifecycle"
	"github.com/erazemk/prostock/internal/model"
	"github.com/erazemk/prostock/internal/store"
)

// EquipmentHandler serves equipment records and their movements.
type EquipmentHandler struct {
	DB     *sqlx.DB
	Engine *lifecycle.Engine
}

type checkoutRequest struct {
	Quantity int `json:"quantity"`
}

// List handles GET /api/equipment?status=&category=&q=.
func (h *EquipmentHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := model.EquipmentFilter{
		Category: model.Category(q.Get("category")),
		Search:   q.Get("q"),
	}
	if s := q.Get("status"); s != "" {
		status, err := model.ParseStatus(s)
		if err != nil {
			writeError(w, r, err)
			return
		}
		filter.Status = status
	}
	if filter.Category != "" && !filter.Category.Valid() {
		jsonError(w, http.StatusUnprocessableEntity, "unknown category")
		return
	}

	items, err := store.ListEquipment(r.Context(), h.DB, filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if items == nil {
		items = []model.Equipment{}
	}
	jsonResponse(w, http.StatusOK, items)
}

// Create handles POST /api/equipment.
func (h *EquipmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in model.EquipmentInput
	if err := decodeJSON(r, &in); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	e, err := store.CreateEquipment(r.Context(), h.DB, in)
	if err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("equipment created", "user", actor(r), "equipment", e.ID, "serial", e.Serial, "quantity", e.Quantity)
	jsonResponse(w, http.StatusCreated, e)
}

// Get handles GET /api/equipment/{id}.
func (h *EquipmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	e, err := store.GetEquipment(r.Context(), h.DB, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, e)
}

// Update handles PUT /api/equipment/{id}.
func (h *EquipmentHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var in model.EquipmentInput
	if err := decodeJSON(r, &in); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	e, err := store.UpdateEquipment(r.Context(), h.DB, id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("equipment updated", "user", actor(r), "equipment", id)
	jsonResponse(w, http.StatusOK, e)
}

// Delete handles DELETE /api/equipment/{id}.
func (h *EquipmentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.Engine.DeleteEquipment(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("equipment deleted", "user", actor(r), "equipment", id)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "equipment deleted"})
}

// UploadInvoice handles PUT /api/equipment/{id}/invoice. The body is the raw
// file.
func (h *EquipmentHandler) UploadInvoice(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	defer r.Body.Close()

	inv, err := imaging.NormalizeInvoice(r.Body)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := store.SetEquipmentInvoice(r.Context(), h.DB, id, inv.Data, inv.MIME); err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("invoice uploaded", "user", actor(r), "equipment", id, "mime", inv.MIME, "bytes", len(inv.Data))
	jsonResponse(w, http.StatusOK, map[string]string{"message": "invoice uploaded", "mime": inv.MIME})
}

// GetInvoice handles GET /api/equipment/{id}/invoice.
func (h *EquipmentHandler) GetInvoice(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	data, mime, err := store.GetEquipmentInvoice(r.Context(), h.DB, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if data == nil {
		jsonError(w, http.StatusNotFound, "no invoice")
		return
	}

	w.Header().Set("Content-Type", mime)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.Write(data)
}

// Checkout handles POST /api/equipment/{id}/checkout.
func (h *EquipmentHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req checkoutRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := h.Engine.Checkout(r.Context(), id, req.Quantity)
	if err != nil {
		writeError(w, r, err)
		return
	}

	attrs := []any{"user", actor(r), "equipment", id, "quantity", req.Quantity}
	if res.Child != nil {
		attrs = append(attrs, "split", res.Child.ID)
	}
	slog.Info("equipment checked out", attrs...)
	jsonResponse(w, http.StatusOK, res)
}

// CheckIn handles POST /api/equipment/{id}/checkin.
func (h *EquipmentHandler) CheckIn(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	e, err := h.Engine.CheckIn(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("equipment checked in", "user", actor(r), "equipment", id, "into", e.ID, "quantity", e.Quantity)
	jsonResponse(w, http.StatusOK, e)
}

// CheckInAll handles POST /api/equipment/checkin-all.
func (h *EquipmentHandler) CheckInAll(w http.ResponseWriter, r *http.Request) {
	res, err := h.Engine.CheckInAll(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("all equipment checked in", "user", actor(r), "merged", res.Merged, "flipped", res.Flipped)
	jsonResponse(w, http.StatusOK, res)
}
