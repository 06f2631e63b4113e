package scan

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/prostock/internal/model"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name string
		code string
		want int64
	}{
		{"label payload", "PROSTOCK-ID:42-SN:ABC123", 42},
		{"serial with dashes", "PROSTOCK-ID:7-SN:LOT-1a2b-S3", 7},
		{"trailing newline from scanner", "PROSTOCK-ID:9-SN:X\n", 9},
		{"no serial part", "PROSTOCK-ID:15", 15},
		{"zero id", "PROSTOCK-ID:0-SN:X", 0},
		{"leading zeros", "ID:007-SN:X", 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Resolve(tt.code)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveRejectsMalformed(t *testing.T) {
	codes := []string{
		"not-a-code",
		"",
		"PROSTOCK-ID:-SN:ABC",
		"PROSTOCK-ID:abc-SN:ABC",
		"PROSTOCK-ID:+5-SN:ABC",
		"PROSTOCK-ID:4 2-SN:ABC",
		"PROSTOCK-ID:99999999999999999999-SN:ABC",
	}

	for _, code := range codes {
		_, err := Resolve(code)
		if !errors.Is(err, model.ErrScan) {
			t.Errorf("Resolve(%q) error = %v, want ErrScan", code, err)
		}
	}
}

func TestPayloadRoundTrip(t *testing.T) {
	payload := Payload(42, "ABC123")
	assert.Equal(t, "PROSTOCK-ID:42-SN:ABC123", payload)

	id, err := Resolve(payload)
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
}
