package model

import (
	"database/sql/driver"
	"fmt"
)

// Status is the availability state of an equipment row.
type Status uint8

// Equipment statuses. The zero value is not a valid status.
const (
	StatusInStock Status = iota + 1
	StatusCheckedOut
	StatusInMaintenance
)

// Statuses lists every valid status in display order.
var Statuses = []Status{StatusInStock, StatusCheckedOut, StatusInMaintenance}

// String returns the persisted label, kept compatible with existing tooling.
func (s Status) String() string {
	switch s {
	case StatusInStock:
		return "En stock"
	case StatusCheckedOut:
		return "Sorti"
	case StatusInMaintenance:
		return "En Maintenance"
	default:
		return fmt.Sprintf("Status(%d)", uint8(s))
	}
}

// Valid reports whether s is one of the defined statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusInStock, StatusCheckedOut, StatusInMaintenance:
		return true
	default:
		return false
	}
}

// ParseStatus maps a persisted label back to a Status.
func ParseStatus(label string) (Status, error) {
	for _, s := range Statuses {
		if s.String() == label {
			return s, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown status %q", ErrValidation, label)
}

func (s Status) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("marshaling invalid status %d", uint8(s))
	}
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(text []byte) error {
	parsed, err := ParseStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Scan implements sql.Scanner.
func (s *Status) Scan(src any) error {
	switch v := src.(type) {
	case string:
		return s.UnmarshalText([]byte(v))
	case []byte:
		return s.UnmarshalText(v)
	default:
		return fmt.Errorf("scanning status: unsupported type %T", src)
	}
}

// Value implements driver.Valuer.
func (s Status) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("storing invalid status %d", uint8(s))
	}
	return s.String(), nil
}
