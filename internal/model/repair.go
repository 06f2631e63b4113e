package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// RepairRecord documents one maintenance episode. Records are never edited;
// each episode gets a new one.
type RepairRecord struct {
	ID          int64           `db:"id" json:"id"`
	EquipmentID int64           `db:"equipment_id" json:"equipment_id"`
	Date        string          `db:"date" json:"date"`
	Description string          `db:"description" json:"description"`
	Cost        decimal.Decimal `db:"cost" json:"cost"`
	Provider    string          `db:"provider" json:"provider"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`

	// Joined field (not always populated).
	EquipmentName string `db:"equipment_name" json:"equipment_name,omitempty"`
}

// RepairInput is the operator-supplied part of a repair record.
type RepairInput struct {
	Date        string          `json:"date"`
	Description string          `json:"description"`
	Cost        decimal.Decimal `json:"cost"`
	Provider    string          `json:"provider"`
}

// RepairDateLayout is the accepted repair date format.
const RepairDateLayout = "2006-01-02"
