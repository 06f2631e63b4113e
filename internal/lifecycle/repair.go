package lifecycle

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/erazemk/prostock/internal/model"
	"github.com/erazemk/prostock/internal/store"
)

// SendToRepair opens a maintenance episode for an in-stock item.
func (e *Engine) SendToRepair(ctx context.Context, id int64, in model.RepairInput) (*model.RepairRecord, error) {
	var rec *model.RepairRecord
	err := store.WithTx(ctx, e.db, func(tx *sqlx.Tx) error {
		eq, err := store.GetActiveEquipment(ctx, tx, id)
		if err != nil {
			return err
		}

		switch eq.Status {
		case model.StatusInStock:
		case model.StatusCheckedOut, model.StatusInMaintenance:
			return statusError(eq, model.StatusInStock, "send to repair")
		default:
			return fmt.Errorf("equipment %d has invalid status %d", eq.ID, eq.Status)
		}
		if eq.IsSplitChild() {
			return fmt.Errorf("%w: split row %d cannot go to maintenance", model.ErrValidation, eq.ID)
		}

		rec, err = store.CreateRepair(ctx, tx, eq.ID, in)
		if err != nil {
			return err
		}
		return store.SetEquipmentState(ctx, tx, eq.ID, model.StatusInMaintenance, eq.Quantity, nil)
	})
	e.record(OpSendToRepair, err)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// FinishRepair puts the equipment of a repair record back in stock whatever
// state it is in. The operator closing the repair is trusted; the record is
// kept as history.
func (e *Engine) FinishRepair(ctx context.Context, repairID int64) (*model.Equipment, error) {
	var out *model.Equipment
	err := store.WithTx(ctx, e.db, func(tx *sqlx.Tx) error {
		rec, err := store.GetRepair(ctx, tx, repairID)
		if err != nil {
			return err
		}
		eq, err := store.GetActiveEquipment(ctx, tx, rec.EquipmentID)
		if err != nil {
			return err
		}
		if err := store.SetEquipmentState(ctx, tx, eq.ID, model.StatusInStock, eq.Quantity, nil); err != nil {
			return err
		}
		out, err = store.GetEquipment(ctx, tx, eq.ID)
		return err
	})
	e.record(OpFinishRepair, err)
	if err != nil {
		return nil, err
	}
	return out, nil
}
