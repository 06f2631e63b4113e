package lifecycle

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/erazemk/prostock/internal/model"
	"github.com/erazemk/prostock/internal/store"
)

// CheckoutResult is the outcome of a checkout. Child is set only when a lot
// was split.
type CheckoutResult struct {
	Original *model.Equipment `json:"original"`
	Child    *model.Equipment `json:"child,omitempty"`
}

// Checkout takes quantity units of an in-stock item out. A partial checkout
// of a lot splits the requested units into a new checked-out row; anything
// else flips the whole row.
func (e *Engine) Checkout(ctx context.Context, id int64, quantity int) (*CheckoutResult, error) {
	var res *CheckoutResult
	err := store.WithTx(ctx, e.db, func(tx *sqlx.Tx) error {
		var err error
		res, err = e.checkout(ctx, tx, id, quantity)
		return err
	})
	e.record(OpCheckout, err)
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (e *Engine) checkout(ctx context.Context, tx *sqlx.Tx, id int64, quantity int) (*CheckoutResult, error) {
	eq, err := store.GetActiveEquipment(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	switch eq.Status {
	case model.StatusInStock:
	case model.StatusCheckedOut, model.StatusInMaintenance:
		return nil, statusError(eq, model.StatusInStock, "check out")
	default:
		return nil, fmt.Errorf("equipment %d has invalid status %d", eq.ID, eq.Status)
	}

	if quantity < 1 || quantity > eq.Quantity {
		return nil, fmt.Errorf("%w: quantity %d out of range [1, %d] for equipment %d",
			model.ErrValidation, quantity, eq.Quantity, eq.ID)
	}

	now := e.timestamp()

	if !eq.IsLot || quantity == eq.Quantity {
		if err := store.SetEquipmentState(ctx, tx, eq.ID, model.StatusCheckedOut, eq.Quantity, &now); err != nil {
			return nil, err
		}
		updated, err := store.GetEquipment(ctx, tx, eq.ID)
		if err != nil {
			return nil, err
		}
		return &CheckoutResult{Original: updated}, nil
	}

	if err := store.SetEquipmentState(ctx, tx, eq.ID, model.StatusInStock, eq.Quantity-quantity, nil); err != nil {
		return nil, err
	}
	child, err := store.InsertSplitChild(ctx, tx, eq, quantity, now)
	if err != nil {
		return nil, err
	}
	updated, err := store.GetEquipment(ctx, tx, eq.ID)
	if err != nil {
		return nil, err
	}
	return &CheckoutResult{Original: updated, Child: child}, nil
}

// CheckIn returns a checked-out row to stock. A split child is merged back
// into its parent and removed; the parent is returned in that case.
func (e *Engine) CheckIn(ctx context.Context, id int64) (*model.Equipment, error) {
	var out *model.Equipment
	err := store.WithTx(ctx, e.db, func(tx *sqlx.Tx) error {
		eq, err := store.GetActiveEquipment(ctx, tx, id)
		if err != nil {
			return err
		}
		out, err = e.checkIn(ctx, tx, eq)
		return err
	})
	e.record(OpCheckIn, err)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (e *Engine) checkIn(ctx context.Context, tx *sqlx.Tx, eq *model.Equipment) (*model.Equipment, error) {
	switch eq.Status {
	case model.StatusCheckedOut:
	case model.StatusInStock, model.StatusInMaintenance:
		return nil, statusError(eq, model.StatusCheckedOut, "check in")
	default:
		return nil, fmt.Errorf("equipment %d has invalid status %d", eq.ID, eq.Status)
	}

	if eq.IsSplitChild() {
		return merge(ctx, tx, eq)
	}

	if err := store.SetEquipmentState(ctx, tx, eq.ID, model.StatusInStock, eq.Quantity, nil); err != nil {
		return nil, err
	}
	return store.GetEquipment(ctx, tx, eq.ID)
}

// merge folds a split child back into its parent. A missing parent means the
// lot's books are already broken, so the whole operation fails.
func merge(ctx context.Context, tx *sqlx.Tx, child *model.Equipment) (*model.Equipment, error) {
	parent, err := store.GetActiveEquipment(ctx, tx, *child.ParentID)
	if err != nil {
		return nil, fmt.Errorf("merging split row %d: parent %d: %w", child.ID, *child.ParentID, err)
	}

	if err := store.SetEquipmentState(ctx, tx, parent.ID, parent.Status, parent.Quantity+child.Quantity, parent.CheckoutAt); err != nil {
		return nil, err
	}
	if err := store.RemoveSplitChild(ctx, tx, child.ID); err != nil {
		return nil, err
	}
	return store.GetEquipment(ctx, tx, parent.ID)
}

// CheckInAllResult counts what CheckInAll did.
type CheckInAllResult struct {
	Merged  int `json:"merged"`
	Flipped int `json:"flipped"`
}

// CheckInAll returns every checked-out row to stock in one pass: split
// children are merged first, then the remaining rows are flipped.
func (e *Engine) CheckInAll(ctx context.Context) (*CheckInAllResult, error) {
	res := &CheckInAllResult{}
	err := store.WithTx(ctx, e.db, func(tx *sqlx.Tx) error {
		out, err := store.ListEquipment(ctx, tx, model.EquipmentFilter{Status: model.StatusCheckedOut})
		if err != nil {
			return err
		}

		for i := range out {
			if !out[i].IsSplitChild() {
				continue
			}
			if _, err := merge(ctx, tx, &out[i]); err != nil {
				return err
			}
			res.Merged++
		}

		for i := range out {
			if out[i].IsSplitChild() {
				continue
			}
			// Merges above may have grown this row.
			cur, err := store.GetEquipment(ctx, tx, out[i].ID)
			if err != nil {
				return err
			}
			if err := store.SetEquipmentState(ctx, tx, cur.ID, model.StatusInStock, cur.Quantity, nil); err != nil {
				return err
			}
			res.Flipped++
		}
		return nil
	})
	e.record(OpCheckInAll, err)
	if err != nil {
		return nil, err
	}
	return res, nil
}
