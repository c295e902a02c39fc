package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	cloudevents "github.com/cloudevents/sdk-go/v2"

	"github.com/Lllllllleong/noticeflow/internal/services"
)

var (
	noticeTriggerInstance *services.NoticeTriggerFunction
	once                  sync.Once
	initErr               error
)

func init() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	functions.CloudEvent("GenerateNotices", generateNotices)
}

// main is required by the Go Functions Framework.
func main() {}

// generateNotices runs a notice batch for a CSV finalized in the source bucket.
func generateNotices(ctx context.Context, e cloudevents.Event) error {
	once.Do(func() {
		noticeTriggerInstance, initErr = services.NewNoticeTrigger(context.Background())
	})
	if initErr != nil {
		slog.Error("Critical error during function initialization", "error", initErr)
		return initErr
	}

	var gcsEvent services.GCSEvent
	if err := json.Unmarshal(e.Data(), &gcsEvent); err != nil {
		slog.Error("Failed to unmarshal event data", "error", err, "data", string(e.Data()))
		return fmt.Errorf("json.Unmarshal: %w", err)
	}

	resp, err := noticeTriggerInstance.Process(ctx, gcsEvent)
	if err != nil {
		// Already logged with run context inside Process.
		return err
	}
	slog.Info("Notice trigger finished.", "status", resp.Status, "runId", resp.RunID, "generated", resp.GeneratedCount)
	return nil
}
