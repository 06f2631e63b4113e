package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/erazemk/prostock/internal/model"
	"github.com/erazemk/prostock/internal/store"
)

// KitToggleResult reports the state every kit member was moved to.
type KitToggleResult struct {
	KitID      int64             `json:"kit_id"`
	Target     model.Status      `json:"target"`
	CheckoutAt *time.Time        `json:"checkout_at,omitempty"`
	Members    []model.Equipment `json:"members"`
}

// ToggleKit moves a whole kit in or out. The first member, in insertion
// order, decides the direction: in stock means check everything out,
// anything else means bring everything back. Members in other states are
// overwritten to match.
func (e *Engine) ToggleKit(ctx context.Context, kitID int64) (*KitToggleResult, error) {
	var res *KitToggleResult
	err := store.WithTx(ctx, e.db, func(tx *sqlx.Tx) error {
		if _, err := store.GetKit(ctx, tx, kitID); err != nil {
			return err
		}
		members, err := store.ListKitMembers(ctx, tx, kitID)
		if err != nil {
			return err
		}
		if len(members) == 0 {
			return fmt.Errorf("%w: kit %d has no members", model.ErrNotFound, kitID)
		}

		res = &KitToggleResult{KitID: kitID, Target: toggleTarget(members[0].Status)}
		if res.Target == model.StatusCheckedOut {
			now := e.timestamp()
			res.CheckoutAt = &now
		}

		for _, m := range members {
			out, err := e.applyKitTarget(ctx, tx, m.ID, res.Target, res.CheckoutAt)
			if err != nil {
				return err
			}
			res.Members = append(res.Members, *out)
		}
		return nil
	})
	e.record(OpToggleKit, err)
	if err != nil {
		return nil, err
	}
	return res, nil
}

func toggleTarget(s model.Status) model.Status {
	switch s {
	case model.StatusInStock:
		return model.StatusCheckedOut
	case model.StatusCheckedOut, model.StatusInMaintenance:
		return model.StatusInStock
	default:
		return model.StatusInStock
	}
}

// applyKitTarget moves one member to target with full-quantity semantics.
// A split child brought back in is merged into its parent.
func (e *Engine) applyKitTarget(ctx context.Context, tx *sqlx.Tx, id int64, target model.Status, at *time.Time) (*model.Equipment, error) {
	// Re-read: an earlier member's merge may have changed this row.
	eq, err := store.GetActiveEquipment(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	if target == model.StatusInStock && eq.IsSplitChild() {
		return merge(ctx, tx, eq)
	}

	if err := store.SetEquipmentState(ctx, tx, eq.ID, target, eq.Quantity, at); err != nil {
		return nil, err
	}
	return store.GetEquipment(ctx, tx, eq.ID)
}
