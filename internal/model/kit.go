package model

import "time"

// Kit is a named group of equipment that moves in and out together.
type Kit struct {
	ID          int64     `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	MemberCount int       `db:"member_count" json:"member_count"`
}

// KitMembership links a kit to one equipment row.
type KitMembership struct {
	KitID       int64 `db:"kit_id" json:"kit_id"`
	EquipmentID int64 `db:"equipment_id" json:"equipment_id"`
}
