package lifecycle

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/erazemk/prostock/internal/model"
	"github.com/erazemk/prostock/internal/scan"
	"github.com/erazemk/prostock/internal/store"
)

// Lookup resolves a scanned code to its equipment row without changing it.
func (e *Engine) Lookup(ctx context.Context, code string) (*model.Equipment, error) {
	return lookup(ctx, e.db, code)
}

func lookup(ctx context.Context, q store.Querier, code string) (*model.Equipment, error) {
	id, err := scan.Resolve(code)
	if err != nil {
		return nil, err
	}
	eq, err := store.GetActiveEquipment(ctx, q, id)
	if errors.Is(err, model.ErrNotFound) {
		return nil, fmt.Errorf("%w: %w", model.ErrScan, err)
	}
	return eq, err
}

// ScanToggle flips a scanned item: in stock goes out in full, checked out
// comes back. Items in maintenance are refused.
func (e *Engine) ScanToggle(ctx context.Context, code string) (*model.Equipment, error) {
	var out *model.Equipment
	err := store.WithTx(ctx, e.db, func(tx *sqlx.Tx) error {
		eq, err := lookup(ctx, tx, code)
		if err != nil {
			return err
		}

		switch eq.Status {
		case model.StatusInStock:
			res, err := e.checkout(ctx, tx, eq.ID, eq.Quantity)
			if err != nil {
				return err
			}
			out = res.Original
		case model.StatusCheckedOut:
			out, err = e.checkIn(ctx, tx, eq)
			if err != nil {
				return err
			}
		case model.StatusInMaintenance:
			return fmt.Errorf("%w: equipment %d is in maintenance", model.ErrValidation, eq.ID)
		default:
			return fmt.Errorf("equipment %d has invalid status %d", eq.ID, eq.Status)
		}
		return nil
	})
	e.record(OpScanToggle, err)
	if err != nil {
		return nil, err
	}
	return out, nil
}
