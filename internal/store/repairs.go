package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/erazemk/prostock/internal/model"
)

const repairColumns = `r.id, r.equipment_id, r.date, r.description, r.cost, r.provider, r.created_at,
	e.name AS equipment_name`

// CreateRepair records one maintenance episode for equipmentID.
func CreateRepair(ctx context.Context, q Querier, equipmentID int64, in model.RepairInput) (*model.RepairRecord, error) {
	in.Description = strings.TrimSpace(in.Description)
	in.Provider = strings.TrimSpace(in.Provider)

	if _, err := time.Parse(model.RepairDateLayout, in.Date); err != nil {
		return nil, fmt.Errorf("%w: repair date must be YYYY-MM-DD", model.ErrValidation)
	}
	if in.Cost.IsNegative() {
		return nil, fmt.Errorf("%w: repair cost must not be negative", model.ErrValidation)
	}

	result, err := q.ExecContext(ctx,
		`INSERT INTO repairs (equipment_id, date, description, cost, provider) VALUES (?, ?, ?, ?, ?)`,
		equipmentID, in.Date, in.Description, in.Cost, in.Provider,
	)
	if err != nil {
		return nil, fmt.Errorf("creating repair: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting repair id: %w", err)
	}

	return GetRepair(ctx, q, id)
}

// GetRepair returns a repair record by ID.
func GetRepair(ctx context.Context, q Querier, id int64) (*model.RepairRecord, error) {
	r := &model.RepairRecord{}
	err := sqlx.GetContext(ctx, q, r,
		`SELECT `+repairColumns+`
		 FROM repairs r JOIN equipment e ON e.id = r.equipment_id
		 WHERE r.id = ?`, id,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: repair %d", model.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("getting repair: %w", err)
	}
	return r, nil
}

// ListRepairs returns maintenance history, newest first. An equipmentID of 0
// lists every record.
func ListRepairs(ctx context.Context, q Querier, equipmentID int64) ([]model.RepairRecord, error) {
	query := `SELECT ` + repairColumns + ` FROM repairs r JOIN equipment e ON e.id = r.equipment_id`
	var args []any
	if equipmentID > 0 {
		query += ` WHERE r.equipment_id = ?`
		args = append(args, equipmentID)
	}
	query += ` ORDER BY r.date DESC, r.id DESC`

	var records []model.RepairRecord
	if err := sqlx.SelectContext(ctx, q, &records, query, args...); err != nil {
		return nil, fmt.Errorf("listing repairs: %w", err)
	}
	return records, nil
}
