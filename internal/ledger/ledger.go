// Package ledger keeps the bookkeeping of notice runs: one entry per run and
// one per generated notice.
package ledger

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/Lllllllleong/noticeflow/internal/models"
)

// ErrRunNotFound is returned when a run id has no ledger entry.
var ErrRunNotFound = errors.New("run not found")

// Ledger records runs and the notices they produce.
type Ledger interface {
	StartRun(ctx context.Context, run models.RunDocument) error
	// UpdateCounts records the collection outcome and moves the run to
	// GENERATING.
	UpdateCounts(ctx context.Context, runID string, parsed, skipped int) error
	RecordNotice(ctx context.Context, doc models.NoticeDocument) error
	FinishRun(ctx context.Context, runID string, result Result) error
	// FindBySourceHash returns the latest completed run of a source with the
	// given hash, or nil when there is none.
	FindBySourceHash(ctx context.Context, hash string) (*models.RunDocument, error)
	Close() error
}

// Result is the outcome written when a run ends.
type Result struct {
	Status         string
	GeneratedCount int
	ErrorDetails   string
}

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.NewString()
}
