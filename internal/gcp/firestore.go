package gcp

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
)

// NewFirestoreClient opens the Firestore database that holds the run ledger:
// one document per run in the configured collection (notice_runs by default)
// with its notices in a subcollection. ledger.NewFirestoreLedger wraps the
// returned client.
func NewFirestoreClient(ctx context.Context, projectID string) (*firestore.Client, error) {
	if projectID == "" {
		return nil, fmt.Errorf("a project ID is required to open the run ledger")
	}

	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to open run ledger in project %s: %w", projectID, err)
	}
	return client, nil
}
