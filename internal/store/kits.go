package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/erazemk/prostock/internal/model"
)

const kitColumns = `k.id, k.name, k.created_at,
	(SELECT COUNT(*) FROM kit_items ki WHERE ki.kit_id = k.id) AS member_count`

// CreateKit creates an empty kit. Names are unique.
func CreateKit(ctx context.Context, q Querier, name string) (*model.Kit, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: kit name required", model.ErrValidation)
	}

	result, err := q.ExecContext(ctx, `INSERT INTO kits (name) VALUES (?)`, name)
	if err != nil {
		return nil, wrapWrite("creating kit", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting kit id: %w", err)
	}

	return GetKit(ctx, q, id)
}

// GetKit returns a kit with its member count.
func GetKit(ctx context.Context, q Querier, id int64) (*model.Kit, error) {
	k := &model.Kit{}
	err := sqlx.GetContext(ctx, q, k, `SELECT `+kitColumns+` FROM kits k WHERE k.id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: kit %d", model.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("getting kit: %w", err)
	}
	return k, nil
}

// ListKits returns every kit by name.
func ListKits(ctx context.Context, q Querier) ([]model.Kit, error) {
	var kits []model.Kit
	if err := sqlx.SelectContext(ctx, q, &kits, `SELECT `+kitColumns+` FROM kits k ORDER BY k.name`); err != nil {
		return nil, fmt.Errorf("listing kits: %w", err)
	}
	return kits, nil
}

// DeleteKit removes a kit. Memberships go with it; equipment is untouched.
func DeleteKit(ctx context.Context, q Querier, id int64) error {
	result, err := q.ExecContext(ctx, `DELETE FROM kits WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting kit: %w", err)
	}
	return affectedOne(result, "kit", id)
}

// AddKitMember adds active equipment to a kit. Adding the same item twice is
// a conflict.
func AddKitMember(ctx context.Context, q Querier, kitID, equipmentID int64) error {
	if _, err := GetKit(ctx, q, kitID); err != nil {
		return err
	}
	if _, err := GetActiveEquipment(ctx, q, equipmentID); err != nil {
		return err
	}

	_, err := q.ExecContext(ctx,
		`INSERT INTO kit_items (kit_id, equipment_id) VALUES (?, ?)`, kitID, equipmentID,
	)
	if err != nil {
		return wrapWrite("adding kit member", err)
	}
	return nil
}

// RemoveKitMember drops one membership.
func RemoveKitMember(ctx context.Context, q Querier, kitID, equipmentID int64) error {
	result, err := q.ExecContext(ctx,
		`DELETE FROM kit_items WHERE kit_id = ? AND equipment_id = ?`, kitID, equipmentID,
	)
	if err != nil {
		return fmt.Errorf("removing kit member: %w", err)
	}
	return affectedOne(result, "kit member", equipmentID)
}

// ListKitMembers returns the live members of a kit in the order they were
// added.
func ListKitMembers(ctx context.Context, q Querier, kitID int64) ([]model.Equipment, error) {
	var items []model.Equipment
	err := sqlx.SelectContext(ctx, q, &items,
		`SELECT `+equipmentColumns+`
		 FROM kit_items ki JOIN equipment e ON e.id = ki.equipment_id
		 WHERE ki.kit_id = ? AND e.deleted_at IS NULL
		 ORDER BY ki.id`, kitID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing kit members: %w", err)
	}
	for i := range items {
		items[i].QRIdentifier = qrFor(&items[i])
	}
	return items, nil
}
