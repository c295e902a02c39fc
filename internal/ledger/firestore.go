package ledger

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/Lllllllleong/noticeflow/internal/models"
)

const noticesCollection = "notices"

// FirestoreLedger keeps one document per run in a collection, with the
// run's notices in a subcollection.
type FirestoreLedger struct {
	client     *firestore.Client
	collection string
}

// NewFirestoreLedger stores runs in collection. The ledger does not own
// client; Close is a no-op.
func NewFirestoreLedger(client *firestore.Client, collection string) *FirestoreLedger {
	return &FirestoreLedger{client: client, collection: collection}
}

func (l *FirestoreLedger) run(runID string) *firestore.DocumentRef {
	return l.client.Collection(l.collection).Doc(runID)
}

func (l *FirestoreLedger) StartRun(ctx context.Context, run models.RunDocument) error {
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}
	if _, err := l.run(run.RunID).Create(ctx, run); err != nil {
		return fmt.Errorf("failed to create run document: %w", err)
	}
	return nil
}

func (l *FirestoreLedger) RecordNotice(ctx context.Context, doc models.NoticeDocument) error {
	if doc.GeneratedAt.IsZero() {
		doc.GeneratedAt = time.Now()
	}
	ref := l.run(doc.RunID).Collection(noticesCollection).Doc(fmt.Sprintf("%06d", doc.Row))
	if _, err := ref.Set(ctx, doc); err != nil {
		return fmt.Errorf("failed to record notice %s: %w", doc.OutputName, err)
	}
	return nil
}

func (l *FirestoreLedger) FinishRun(ctx context.Context, runID string, result Result) error {
	updates := []firestore.Update{
		{Path: "status", Value: result.Status},
		{Path: "generatedCount", Value: result.GeneratedCount},
		{Path: "completedAt", Value: time.Now()},
	}
	if result.ErrorDetails != "" {
		updates = append(updates, firestore.Update{Path: "errorDetails", Value: result.ErrorDetails})
	}
	if _, err := l.run(runID).Update(ctx, updates); err != nil {
		if status.Code(err) == codes.NotFound {
			return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return fmt.Errorf("failed to update run %s: %w", runID, err)
	}
	return nil
}

func (l *FirestoreLedger) UpdateCounts(ctx context.Context, runID string, parsed, skipped int) error {
	updates := []firestore.Update{
		{Path: "status", Value: models.StatusGenerating},
		{Path: "parsedCount", Value: parsed},
		{Path: "skippedCount", Value: skipped},
	}
	if _, err := l.run(runID).Update(ctx, updates); err != nil {
		return fmt.Errorf("failed to update run %s: %w", runID, err)
	}
	return nil
}

func (l *FirestoreLedger) FindBySourceHash(ctx context.Context, hash string) (*models.RunDocument, error) {
	iter := l.client.Collection(l.collection).
		Where("sourceHash", "==", hash).
		Where("status", "==", models.StatusCompleted).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()

	snap, err := iter.Next()
	if err == iterator.Done {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query for duplicate sources: %w", err)
	}
	var run models.RunDocument
	if err := snap.DataTo(&run); err != nil {
		return nil, fmt.Errorf("failed to decode run %s: %w", snap.Ref.ID, err)
	}
	return &run, nil
}

func (l *FirestoreLedger) Close() error { return nil }
