package lifecycle

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/erazemk/prostock/internal/model"
	"github.com/erazemk/prostock/internal/store"
)

// DeleteEquipment soft-deletes an item and its kit memberships. Rows that
// take part in a split are refused: a lot with units still out, and the
// split rows themselves, which must be checked in first.
func (e *Engine) DeleteEquipment(ctx context.Context, id int64) error {
	err := store.WithTx(ctx, e.db, func(tx *sqlx.Tx) error {
		eq, err := store.GetActiveEquipment(ctx, tx, id)
		if err != nil {
			return err
		}
		if eq.IsSplitChild() {
			return fmt.Errorf("%w: split row %d must be checked in before deletion", model.ErrValidation, eq.ID)
		}

		children, err := store.ListSplitChildren(ctx, tx, eq.ID)
		if err != nil {
			return err
		}
		if len(children) > 0 {
			return fmt.Errorf("%w: equipment %d has %d split rows checked out", model.ErrValidation, eq.ID, len(children))
		}

		return store.DeleteEquipment(ctx, tx, eq.ID)
	})
	e.record(OpDelete, err)
	return err
}
