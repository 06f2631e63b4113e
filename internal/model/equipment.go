package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Equipment is a trackable item, or a lot of identical units tracked as one
// quantity. Rows with ParentID set were split off a lot by a partial checkout.
type Equipment struct {
	ID           int64           `db:"id" json:"id"`
	Name         string          `db:"name" json:"name"`
	Brand        string          `db:"brand" json:"brand"`
	Model        string          `db:"model" json:"model"`
	Category     Category        `db:"category" json:"category"`
	Serial       string          `db:"serial" json:"serial"`
	Price        decimal.Decimal `db:"price" json:"price"`
	Quantity     int             `db:"quantity" json:"quantity"`
	IsLot        bool            `db:"is_lot" json:"is_lot"`
	Status       Status          `db:"status" json:"status"`
	ParentID     *int64          `db:"parent_id" json:"parent_id,omitempty"`
	CheckoutAt   *time.Time      `db:"checkout_at" json:"checkout_at,omitempty"`
	Location     string          `db:"location" json:"location,omitempty"`
	PurchaseDate string          `db:"purchase_date" json:"purchase_date,omitempty"`
	InvoiceMime  *string         `db:"invoice_mime" json:"invoice_mime,omitempty"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updated_at"`
	DeletedAt    *time.Time      `db:"deleted_at" json:"deleted_at,omitempty"`

	// QRIdentifier is derived from ID and Serial, never stored.
	QRIdentifier string `db:"-" json:"qr_identifier"`
}

// IsSplitChild reports whether the row was produced by a partial checkout.
func (e *Equipment) IsSplitChild() bool {
	return e.ParentID != nil
}

// EquipmentInput carries the descriptive fields an operator may set.
// Status, quantity after creation and parentage belong to the lifecycle engine.
type EquipmentInput struct {
	Name         string          `json:"name"`
	Brand        string          `json:"brand"`
	Model        string          `json:"model"`
	Category     Category        `json:"category"`
	Serial       string          `json:"serial"`
	Price        decimal.Decimal `json:"price"`
	Quantity     int             `json:"quantity"`
	IsLot        bool            `json:"is_lot"`
	Location     string          `json:"location"`
	PurchaseDate string          `json:"purchase_date"`
}

// EquipmentFilter narrows ListEquipment. Zero fields do not filter.
type EquipmentFilter struct {
	Status   Status
	Category Category
	ParentID int64
	Search   string
}
