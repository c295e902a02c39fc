package models

import "time"

// Run statuses recorded in the ledger.
const (
	StatusCollecting = "COLLECTING"
	StatusGenerating = "GENERATING"
	StatusCompleted  = "COMPLETED"
	StatusFailed     = "FAILED"
)

// RunDocument is the ledger record of one batch run.
// It tracks the overall status of the run and what it produced.
type RunDocument struct {
	RunID          string    `firestore:"runId,omitempty"`
	NoticeType     string    `firestore:"noticeType,omitempty"`
	Source         string    `firestore:"source,omitempty"`
	SourceHash     string    `firestore:"sourceHash,omitempty"`
	Status         string    `firestore:"status,omitempty"`
	ErrorDetails   string    `firestore:"errorDetails,omitempty"`
	ParsedCount    int       `firestore:"parsedCount"`
	SkippedCount   int       `firestore:"skippedCount"`
	GeneratedCount int       `firestore:"generatedCount"`
	CreatedAt      time.Time `firestore:"createdAt,omitempty"`
	CompletedAt    time.Time `firestore:"completedAt,omitempty"`
}

// NoticeDocument records one rendered notice inside a run.
type NoticeDocument struct {
	RunID        string    `firestore:"runId,omitempty"`
	Row          int       `firestore:"row"`
	OutputName   string    `firestore:"outputName,omitempty"`
	PropertyCode string    `firestore:"propertyCode,omitempty"`
	UnitNumber   string    `firestore:"unitNumber,omitempty"`
	Enriched     bool      `firestore:"enriched"`
	Pages        int       `firestore:"pages"`
	GeneratedAt  time.Time `firestore:"generatedAt,omitempty"`
}
