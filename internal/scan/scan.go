// Package scan encodes and resolves the identifiers printed on equipment
// labels. A payload looks like "PROSTOCK-ID:42-SN:ABC123".
package scan

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/erazemk/prostock/internal/model"
)

const (
	// Prefix starts every payload produced by Payload.
	Prefix = "PROSTOCK-"

	idMarker = "ID:"
)

// Payload returns the label payload for an equipment row.
func Payload(id int64, serial string) string {
	return fmt.Sprintf("%sID:%d-SN:%s", Prefix, id, serial)
}

// Resolve extracts the equipment id from a scanned or typed payload. It does
// not check that the id exists; that is up to the caller.
func Resolve(code string) (int64, error) {
	code = strings.TrimSpace(code)

	_, rest, found := strings.Cut(code, idMarker)
	if !found {
		return 0, fmt.Errorf("%w: missing %q marker in %q", model.ErrScan, idMarker, code)
	}

	digits, _, _ := strings.Cut(rest, "-")
	if digits == "" {
		return 0, fmt.Errorf("%w: empty id in %q", model.ErrScan, code)
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("%w: id %q is not a non-negative integer", model.ErrScan, digits)
		}
	}

	id, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: id %q: %v", model.ErrScan, digits, err)
	}
	return id, nil
}
