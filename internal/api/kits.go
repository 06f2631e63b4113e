package api

import (
	"log/slog"
	"net/http"

	"github.com/jmoiron/sqlx"

	"github.com/erazemk/prostock/internal/lifecycle"
	"github.com/erazemk/prostock/internal/model"
	"github.com/erazemk/prostock/internal/store"
)

// KitsHandler serves kits and their members.
type KitsHandler struct {
	DB     *sqlx.DB
	Engine *lifecycle.Engine
}

type createKitRequest struct {
	Name    string  `json:"name"`
	Members []int64 `json:"members"`
}

type addMemberRequest struct {
	EquipmentID int64 `json:"equipment_id"`
}

type kitResponse struct {
	*model.Kit
	Members []model.Equipment `json:"members"`
}

// List handles GET /api/kits.
func (h *KitsHandler) List(w http.ResponseWriter, r *http.Request) {
	kits, err := store.ListKits(r.Context(), h.DB)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if kits == nil {
		kits = []model.Kit{}
	}
	jsonResponse(w, http.StatusOK, kits)
}

// Create handles POST /api/kits. The kit and its initial members are stored
// together or not at all.
func (h *KitsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createKitRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ctx := r.Context()
	var kit *model.Kit
	err := store.WithTx(ctx, h.DB, func(tx *sqlx.Tx) error {
		var err error
		if kit, err = store.CreateKit(ctx, tx, req.Name); err != nil {
			return err
		}
		for _, id := range req.Members {
			if err := store.AddKitMember(ctx, tx, kit.ID, id); err != nil {
				return err
			}
		}
		kit, err = store.GetKit(ctx, tx, kit.ID)
		return err
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("kit created", "user", actor(r), "kit", kit.ID, "name", kit.Name, "members", kit.MemberCount)
	jsonResponse(w, http.StatusCreated, kit)
}

// Get handles GET /api/kits/{id}.
func (h *KitsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	kit, err := store.GetKit(r.Context(), h.DB, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	members, err := store.ListKitMembers(r.Context(), h.DB, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if members == nil {
		members = []model.Equipment{}
	}
	jsonResponse(w, http.StatusOK, kitResponse{Kit: kit, Members: members})
}

// Delete handles DELETE /api/kits/{id}.
func (h *KitsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := store.DeleteKit(r.Context(), h.DB, id); err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("kit deleted", "user", actor(r), "kit", id)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "kit deleted"})
}

// AddMember handles POST /api/kits/{id}/members.
func (h *KitsHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req addMemberRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := store.AddKitMember(r.Context(), h.DB, id, req.EquipmentID); err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("kit member added", "user", actor(r), "kit", id, "equipment", req.EquipmentID)
	jsonResponse(w, http.StatusCreated, model.KitMembership{KitID: id, EquipmentID: req.EquipmentID})
}

// RemoveMember handles DELETE /api/kits/{id}/members/{equipment_id}.
func (h *KitsHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	equipmentID, ok := pathID(w, r, "equipment_id")
	if !ok {
		return
	}

	if err := store.RemoveKitMember(r.Context(), h.DB, id, equipmentID); err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("kit member removed", "user", actor(r), "kit", id, "equipment", equipmentID)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "member removed"})
}

// Toggle handles POST /api/kits/{id}/toggle.
func (h *KitsHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	res, err := h.Engine.ToggleKit(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("kit toggled", "user", actor(r), "kit", id, "status", res.Target, "members", len(res.Members))
	jsonResponse(w, http.StatusOK, res)
}
