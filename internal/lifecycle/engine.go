// Package lifecycle moves equipment between stock, checkout and maintenance.
// Every operation runs in one transaction, so a failure leaves all rows as
// they were.
package lifecycle

import (
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/erazemk/prostock/internal/model"
)

// Recorder observes the outcome of every engine operation.
type Recorder interface {
	Transition(operation, result string)
}

type nopRecorder struct{}

func (nopRecorder) Transition(string, string) {}

// Engine applies lifecycle transitions through the store.
type Engine struct {
	db       *sqlx.DB
	now      func() time.Time
	recorder Recorder
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithRecorder reports operation outcomes to r.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) { e.recorder = r }
}

// New returns an Engine bound to db.
func New(db *sqlx.DB, opts ...Option) *Engine {
	e := &Engine{db: db, now: time.Now, recorder: nopRecorder{}}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Operation names reported to the Recorder.
const (
	OpCheckout     = "checkout"
	OpCheckIn      = "checkin"
	OpCheckInAll   = "checkin_all"
	OpSendToRepair = "send_to_repair"
	OpFinishRepair = "finish_repair"
	OpToggleKit    = "toggle_kit"
	OpScanToggle   = "scan_toggle"
	OpDelete       = "delete"
)

func (e *Engine) record(op string, err error) {
	e.recorder.Transition(op, resultLabel(err))
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, model.ErrValidation):
		return "validation"
	case errors.Is(err, model.ErrConflict):
		return "conflict"
	case errors.Is(err, model.ErrNotFound):
		return "not_found"
	case errors.Is(err, model.ErrScan):
		return "scan"
	default:
		return "error"
	}
}

// timestamp returns the clock reading truncated to what the database keeps.
func (e *Engine) timestamp() time.Time {
	return e.now().UTC().Truncate(time.Second)
}

func statusError(eq *model.Equipment, want model.Status, action string) error {
	return fmt.Errorf("%w: cannot %s equipment %d while %s (needs %s)",
		model.ErrValidation, action, eq.ID, eq.Status, want)
}
