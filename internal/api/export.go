package api

import (
	"encoding/csv"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/erazemk/prostock/internal/model"
	"github.com/erazemk/prostock/internal/store"
)

// ExportHandler produces bulk exports of the inventory.
type ExportHandler struct {
	DB *sqlx.DB
}

var csvHeader = []string{
	"id", "name", "brand", "model", "category", "serial", "price",
	"quantity", "lot", "status", "parent_id", "checkout_at", "location",
	"purchase_date", "qr",
}

// EquipmentCSV handles GET /api/export/equipment.csv. It accepts the same
// filters as the equipment list.
func (h *ExportHandler) EquipmentCSV(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := model.EquipmentFilter{Category: model.Category(q.Get("category")), Search: q.Get("q")}
	if s := q.Get("status"); s != "" {
		status, err := model.ParseStatus(s)
		if err != nil {
			writeError(w, r, err)
			return
		}
		filter.Status = status
	}

	items, err := store.ListEquipment(r.Context(), h.DB, filter)
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="equipment.csv"`)

	cw := csv.NewWriter(w)
	cw.Write(csvHeader)
	for i := range items {
		cw.Write(equipmentRow(&items[i]))
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		slog.Error("writing csv export", "error", err)
	}
}

func equipmentRow(e *model.Equipment) []string {
	parent, checkout := "", ""
	if e.ParentID != nil {
		parent = strconv.FormatInt(*e.ParentID, 10)
	}
	if e.CheckoutAt != nil {
		checkout = e.CheckoutAt.UTC().Format(time.RFC3339)
	}
	return []string{
		strconv.FormatInt(e.ID, 10),
		e.Name,
		e.Brand,
		e.Model,
		string(e.Category),
		e.Serial,
		e.Price.StringFixed(2),
		strconv.Itoa(e.Quantity),
		strconv.FormatBool(e.IsLot),
		e.Status.String(),
		parent,
		checkout,
		e.Location,
		e.PurchaseDate,
		e.QRIdentifier,
	}
}
