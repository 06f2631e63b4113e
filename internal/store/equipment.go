package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/erazemk/prostock/internal/model"
	"github.com/erazemk/prostock/internal/scan"
)

const equipmentColumns = `e.id, e.name, e.brand, e.model, e.category, e.serial, e.price, e.quantity,
	e.is_lot, e.status, e.parent_id, e.checkout_at, e.location, e.purchase_date,
	e.invoice_mime, e.created_at, e.updated_at, e.deleted_at`

// CreateEquipment registers a new item in stock. Lots without a serial get a
// synthetic one.
func CreateEquipment(ctx context.Context, q Querier, in model.EquipmentInput) (*model.Equipment, error) {
	if err := validateEquipmentInput(&in); err != nil {
		return nil, err
	}

	if in.IsLot {
		if in.Quantity < 1 {
			return nil, fmt.Errorf("%w: lot quantity must be at least 1", model.ErrValidation)
		}
		if in.Serial == "" {
			in.Serial = "LOT-" + shortID()
		}
	} else {
		if in.Quantity > 1 {
			return nil, fmt.Errorf("%w: quantity above 1 requires a lot", model.ErrValidation)
		}
		in.Quantity = 1
		if in.Serial == "" {
			return nil, fmt.Errorf("%w: serial number required", model.ErrValidation)
		}
	}

	result, err := q.ExecContext(ctx,
		`INSERT INTO equipment (name, brand, model, category, serial, price, quantity, is_lot, status, location, purchase_date)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		in.Name, in.Brand, in.Model, in.Category, in.Serial, in.Price, in.Quantity, in.IsLot,
		model.StatusInStock, in.Location, in.PurchaseDate,
	)
	if err != nil {
		return nil, wrapWrite("creating equipment", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting equipment id: %w", err)
	}

	return GetEquipment(ctx, q, id)
}

// InsertSplitChild carves quantity units off parent into a new checked-out
// row. The caller is responsible for decrementing the parent in the same
// transaction.
func InsertSplitChild(ctx context.Context, q Querier, parent *model.Equipment, quantity int, checkoutAt time.Time) (*model.Equipment, error) {
	result, err := q.ExecContext(ctx,
		`INSERT INTO equipment (name, brand, model, category, serial, price, quantity, is_lot,
		                        status, parent_id, checkout_at, location, purchase_date)
		 VALUES (?, ?, ?, ?, ?, ?, ?, 1, ?, ?, ?, ?, ?)`,
		parent.Name, parent.Brand, parent.Model, parent.Category,
		parent.Serial+"-"+shortID(), parent.Price, quantity,
		model.StatusCheckedOut, parent.ID, checkoutAt, parent.Location, parent.PurchaseDate,
	)
	if err != nil {
		return nil, wrapWrite("creating split row", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting split row id: %w", err)
	}

	return GetEquipment(ctx, q, id)
}

// GetEquipment returns an equipment row by ID, including soft-deleted rows
// (for history).
func GetEquipment(ctx context.Context, q Querier, id int64) (*model.Equipment, error) {
	e := &model.Equipment{}
	err := sqlx.GetContext(ctx, q, e,
		`SELECT `+equipmentColumns+` FROM equipment e WHERE e.id = ?`, id,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: equipment %d", model.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("getting equipment: %w", err)
	}
	e.QRIdentifier = qrFor(e)
	return e, nil
}

// GetActiveEquipment is GetEquipment that treats soft-deleted rows as missing.
func GetActiveEquipment(ctx context.Context, q Querier, id int64) (*model.Equipment, error) {
	e, err := GetEquipment(ctx, q, id)
	if err != nil {
		return nil, err
	}
	if e.DeletedAt != nil {
		return nil, fmt.Errorf("%w: equipment %d was deleted", model.ErrNotFound, id)
	}
	return e, nil
}

// ListEquipment returns non-deleted equipment matching the filter, by ID.
func ListEquipment(ctx context.Context, q Querier, f model.EquipmentFilter) ([]model.Equipment, error) {
	query := `SELECT ` + equipmentColumns + ` FROM equipment e WHERE e.deleted_at IS NULL`
	var args []any

	if f.Status != 0 {
		query += ` AND e.status = ?`
		args = append(args, f.Status)
	}
	if f.Category != "" {
		query += ` AND e.category = ?`
		args = append(args, f.Category)
	}
	if f.ParentID > 0 {
		query += ` AND e.parent_id = ?`
		args = append(args, f.ParentID)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		like := "%" + s + "%"
		query += ` AND (e.name LIKE ? OR e.brand LIKE ? OR e.model LIKE ? OR e.serial LIKE ?)`
		args = append(args, like, like, like, like)
	}

	query += ` ORDER BY e.id`

	var items []model.Equipment
	if err := sqlx.SelectContext(ctx, q, &items, query, args...); err != nil {
		return nil, fmt.Errorf("listing equipment: %w", err)
	}
	for i := range items {
		items[i].QRIdentifier = qrFor(&items[i])
	}
	return items, nil
}

// ListSplitChildren returns the live rows split off parentID.
func ListSplitChildren(ctx context.Context, q Querier, parentID int64) ([]model.Equipment, error) {
	return ListEquipment(ctx, q, model.EquipmentFilter{ParentID: parentID})
}

// UpdateEquipment updates descriptive fields. Quantity, lot flag and status
// are not touched.
func UpdateEquipment(ctx context.Context, q Querier, id int64, in model.EquipmentInput) (*model.Equipment, error) {
	if err := validateEquipmentInput(&in); err != nil {
		return nil, err
	}
	if in.Serial == "" {
		return nil, fmt.Errorf("%w: serial number required", model.ErrValidation)
	}

	result, err := q.ExecContext(ctx,
		`UPDATE equipment
		 SET name = ?, brand = ?, model = ?, category = ?, serial = ?, price = ?,
		     location = ?, purchase_date = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND deleted_at IS NULL`,
		in.Name, in.Brand, in.Model, in.Category, in.Serial, in.Price,
		in.Location, in.PurchaseDate, id,
	)
	if err != nil {
		return nil, wrapWrite("updating equipment", err)
	}
	if err := affectedOne(result, "equipment", id); err != nil {
		return nil, err
	}

	return GetEquipment(ctx, q, id)
}

// SetEquipmentState writes the lifecycle-owned columns of one row.
func SetEquipmentState(ctx context.Context, q Querier, id int64, status model.Status, quantity int, checkoutAt *time.Time) error {
	result, err := q.ExecContext(ctx,
		`UPDATE equipment SET status = ?, quantity = ?, checkout_at = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND deleted_at IS NULL`,
		status, quantity, checkoutAt, id,
	)
	if err != nil {
		return fmt.Errorf("setting equipment state: %w", err)
	}
	return affectedOne(result, "equipment", id)
}

// DeleteEquipment soft-deletes a row and drops its kit memberships.
func DeleteEquipment(ctx context.Context, q Querier, id int64) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM kit_items WHERE equipment_id = ?`, id); err != nil {
		return fmt.Errorf("removing kit memberships: %w", err)
	}

	result, err := q.ExecContext(ctx,
		`UPDATE equipment SET deleted_at = CURRENT_TIMESTAMP WHERE id = ? AND deleted_at IS NULL`,
		id,
	)
	if err != nil {
		return fmt.Errorf("deleting equipment: %w", err)
	}
	return affectedOne(result, "equipment", id)
}

// RemoveSplitChild hard-deletes a merged split row. Kit memberships go with
// it through the foreign key cascade.
func RemoveSplitChild(ctx context.Context, q Querier, id int64) error {
	result, err := q.ExecContext(ctx,
		`DELETE FROM equipment WHERE id = ? AND parent_id IS NOT NULL`, id,
	)
	if err != nil {
		return fmt.Errorf("removing split row: %w", err)
	}
	return affectedOne(result, "split row", id)
}

// SetEquipmentInvoice stores an invoice attachment.
func SetEquipmentInvoice(ctx context.Context, q Querier, id int64, data []byte, mime string) error {
	result, err := q.ExecContext(ctx,
		`UPDATE equipment SET invoice = ?, invoice_mime = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND deleted_at IS NULL`,
		data, mime, id,
	)
	if err != nil {
		return fmt.Errorf("setting invoice: %w", err)
	}
	return affectedOne(result, "equipment", id)
}

// GetEquipmentInvoice returns the invoice attachment, or nil data if none.
func GetEquipmentInvoice(ctx context.Context, q Querier, id int64) ([]byte, string, error) {
	var data []byte
	var mime sql.NullString
	err := q.QueryRowxContext(ctx,
		`SELECT invoice, invoice_mime FROM equipment WHERE id = ?`, id,
	).Scan(&data, &mime)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", fmt.Errorf("%w: equipment %d", model.ErrNotFound, id)
	}
	if err != nil {
		return nil, "", fmt.Errorf("getting invoice: %w", err)
	}
	return data, mime.String, nil
}

func validateEquipmentInput(in *model.EquipmentInput) error {
	in.Name = strings.TrimSpace(in.Name)
	in.Brand = strings.TrimSpace(in.Brand)
	in.Model = strings.TrimSpace(in.Model)
	in.Serial = strings.TrimSpace(in.Serial)

	if in.Name == "" {
		return fmt.Errorf("%w: name required", model.ErrValidation)
	}
	if !in.Category.Valid() {
		return fmt.Errorf("%w: unknown category %q", model.ErrValidation, in.Category)
	}
	if in.Price.IsNegative() {
		return fmt.Errorf("%w: price must not be negative", model.ErrValidation)
	}
	if in.PurchaseDate != "" {
		if _, err := time.Parse(model.RepairDateLayout, in.PurchaseDate); err != nil {
			return fmt.Errorf("%w: purchase date must be YYYY-MM-DD", model.ErrValidation)
		}
	}
	return nil
}

// shortID returns eight hex characters of a random UUID.
func shortID() string {
	return strings.ToUpper(uuid.NewString()[:8])
}

func qrFor(e *model.Equipment) string {
	return scan.Payload(e.ID, e.Serial)
}
