package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"
	executions "cloud.google.com/go/workflows/executions/apiv1"
	"golang.org/x/sync/errgroup"

	"github.com/Lllllllleong/noticeflow/internal/docmerge"
	"github.com/Lllllllleong/noticeflow/internal/gcp"
	"github.com/Lllllllleong/noticeflow/internal/ledger"
	"github.com/Lllllllleong/noticeflow/internal/models"
	"github.com/Lllllllleong/noticeflow/internal/notice"
	"github.com/Lllllllleong/noticeflow/internal/property"
)

// Trigger response statuses.
const (
	TriggerIgnored   = "IGNORED"
	TriggerDuplicate = "DUPLICATE"
)

type NoticeTriggerConfig struct {
	ProjectID        string
	OutputBucket     string
	TemplateBucket   string
	CollectionName   string
	WorkflowID       string
	WorkflowLocation string
	Format           models.OutputFormat
	Header           models.HeaderMode
}

// NoticeTriggerFunction runs a notice batch for every CSV that lands in the
// source bucket under <prefix>/<NOTICE_TYPE>/.
type NoticeTriggerFunction struct {
	store     gcp.ObjectStore
	workflows gcp.WorkflowStarter
	ledger    ledger.Ledger
	generator Generator
	verifier  Verifier
	directory *property.Directory
	retry     gcp.Retry
	config    NoticeTriggerConfig
}

type GCSEvent struct {
	Bucket string `json:"bucket"`
	Name   string `json:"name"`
}

func NewNoticeTrigger(ctx context.Context) (*NoticeTriggerFunction, error) {
	projectID := gcp.GetEnv("PROJECT_ID", "")
	if projectID == "" {
		return nil, fmt.Errorf("PROJECT_ID environment variable must be set")
	}
	format, err := models.ParseOutputFormat(gcp.GetEnv("OUTPUT_FORMAT", "pdf"))
	if err != nil {
		return nil, err
	}
	header, err := models.ParseHeaderMode(gcp.GetEnv("HEADER_MODE", string(models.HeaderAuto)))
	if err != nil {
		return nil, err
	}

	config := NoticeTriggerConfig{
		ProjectID:        projectID,
		OutputBucket:     gcp.GetEnv("OUTPUT_BUCKET", ""),
		TemplateBucket:   gcp.GetEnv("TEMPLATE_BUCKET", ""),
		CollectionName:   gcp.GetEnv("FIRESTORE_COLLECTION", "notice_runs"),
		WorkflowID:       gcp.GetEnv("WORKFLOW_ID", ""),
		WorkflowLocation: gcp.GetEnv("WORKFLOW_LOCATION", "us-central1"),
		Format:           format,
		Header:           header,
	}
	if config.OutputBucket == "" {
		return nil, fmt.Errorf("OUTPUT_BUCKET environment variable must be set")
	}
	if config.TemplateBucket == "" {
		return nil, fmt.Errorf("TEMPLATE_BUCKET environment variable must be set")
	}

	creds, err := docmerge.CredentialsFromEnv()
	if err != nil {
		return nil, err
	}

	firestoreClient, err := gcp.NewFirestoreClient(ctx, config.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}
	storageClient, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create Storage client: %w", err)
	}

	f := &NoticeTriggerFunction{
		store:     gcp.GCSStore{Client: storageClient},
		ledger:    ledger.NewFirestoreLedger(firestoreClient, config.CollectionName),
		generator: docmerge.NewClient(ctx, creds),
		verifier:  NewPDFVerifier(),
		directory: property.Default(),
		retry:     gcp.DefaultRetry,
		config:    config,
	}
	if config.WorkflowID != "" {
		executionsClient, err := executions.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create Workflows Executions client: %w", err)
		}
		f.workflows = gcp.ExecutionsStarter{Client: executionsClient}
	}
	slog.Info("Notice trigger initialized.", "outputBucket", config.OutputBucket, "workflowId", config.WorkflowID)
	return f, nil
}

// noticeTypeFromObject extracts the notice type from <prefix>/<TYPE>/<name>.csv.
func noticeTypeFromObject(name string) (string, bool) {
	if !strings.EqualFold(path.Ext(name), ".csv") {
		return "", false
	}
	dir := path.Dir(name)
	if dir == "." || dir == "/" {
		return "", false
	}
	return path.Base(dir), true
}

func (f *NoticeTriggerFunction) Process(ctx context.Context, e GCSEvent) (*models.NoticeTriggerResponse, error) {
	logCtx := slog.With("gcsBucket", e.Bucket, "gcsObject", e.Name)
	logCtx.Info("Processing new GCS object.")

	tag, ok := noticeTypeFromObject(e.Name)
	if !ok {
		logCtx.Info("Object is not a notice source. Skipping.")
		return &models.NoticeTriggerResponse{Status: TriggerIgnored}, nil
	}
	descriptor, err := notice.SchemaFor(tag)
	if err != nil {
		logCtx.Error("Source is not under a known notice type", "error", err)
		return nil, err
	}
	logCtx = logCtx.With("noticeType", descriptor.Tag())

	tempDir, err := os.MkdirTemp("", "notice-trigger-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tempDir)

	sourcePath := filepath.Join(tempDir, "source.csv")
	if err := f.store.Download(ctx, e.Bucket, e.Name, sourcePath); err != nil {
		logCtx.Error("Failed to download source table", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrSourceUnreadable, err)
	}

	sourceHash, err := calculateFileHash(sourcePath)
	if err != nil {
		logCtx.Error("Failed to calculate file hash", "error", err)
		return nil, fmt.Errorf("failed to calculate file hash: %w", err)
	}
	logCtx = logCtx.With("sourceHash", sourceHash)

	previous, err := f.ledger.FindBySourceHash(ctx, sourceHash)
	if err != nil {
		logCtx.Error("Failed to check for duplicate", "error", err)
		return nil, err
	}
	if previous != nil {
		logCtx.Info("Duplicate source detected. Skipping.", "existingRunId", previous.RunID)
		return &models.NoticeTriggerResponse{Status: TriggerDuplicate, RunID: previous.RunID}, nil
	}

	runID := ledger.NewRunID()
	logCtx = logCtx.With("runId", runID)
	run := models.RunDocument{
		RunID:      runID,
		NoticeType: string(descriptor.Tag()),
		Source:     fmt.Sprintf("gs://%s/%s", e.Bucket, e.Name),
		SourceHash: sourceHash,
		Status:     models.StatusCollecting,
	}
	if err := f.ledger.StartRun(ctx, run); err != nil {
		logCtx.Error("Failed to create run document", "error", err)
		return nil, err
	}
	logCtx.Info("Created run document.")

	templatePath := filepath.Join(tempDir, descriptor.TemplateFile())
	if err := f.store.Download(ctx, f.config.TemplateBucket, descriptor.TemplateFile(), templatePath); err != nil {
		return nil, f.handleError(ctx, logCtx, runID, 0, "failed to download template", err)
	}

	batch, err := CollectFile(sourcePath, descriptor, f.config.Header)
	if err != nil {
		return nil, f.handleError(ctx, logCtx, runID, 0, "failed to collect notices", err)
	}
	if err := f.ledger.UpdateCounts(ctx, runID, batch.Len(), len(batch.Failures)); err != nil {
		return nil, f.handleError(ctx, logCtx, runID, 0, "failed to update status to GENERATING", err)
	}

	opts := []Option{WithRecorder(f.ledger)}
	if f.verifier != nil {
		opts = append(opts, WithVerifier(f.verifier))
	}
	orchestrator := NewOrchestrator(f.generator, f.directory, opts...)
	report, runErr := orchestrator.Run(ctx, batch, RunConfig{
		RunID:        runID,
		TemplatePath: templatePath,
		OutputDir:    filepath.Join(tempDir, "out"),
		Format:       f.config.Format,
	})

	// Notices rendered before a failure are kept, so they are published too.
	bucket := f.store.Bucket(f.config.OutputBucket)
	if err := uploadResults(ctx, logCtx, bucket, runID, report.Results, f.retry); err != nil {
		if runErr != nil {
			// The generation failure names the record; it stays first.
			return nil, f.handleError(ctx, logCtx, runID, report.Generated, "notice generation aborted", errors.Join(runErr, err))
		}
		return nil, f.handleError(ctx, logCtx, runID, report.Generated, "one or more notices failed to upload", err)
	}
	if runErr != nil {
		return nil, f.handleError(ctx, logCtx, runID, report.Generated, "notice generation aborted", runErr)
	}

	if err := f.ledger.FinishRun(ctx, runID, ledger.Result{Status: models.StatusCompleted, GeneratedCount: report.Generated}); err != nil {
		logCtx.Error("Failed to mark run COMPLETED", "error", err)
		return nil, err
	}

	if f.workflows != nil {
		if err := f.triggerWorkflow(ctx, logCtx, runID, descriptor, report.Generated); err != nil {
			return nil, err
		}
	}

	logCtx.Info("Notice run complete.", "parsed", report.Parsed, "generated", report.Generated)
	return &models.NoticeTriggerResponse{
		Status:         models.StatusCompleted,
		RunID:          runID,
		ParsedCount:    report.Parsed,
		GeneratedCount: report.Generated,
	}, nil
}

// uploadResults copies the rendered notices to <runId>/<name> in the output
// bucket, ten at a time.
func uploadResults(ctx context.Context, logCtx *slog.Logger, bucket gcp.ObjectWriter, runID string, results []NoticeResult, retry gcp.Retry) error {
	if len(results) == 0 {
		return nil
	}
	logCtx.Info("Starting concurrent upload of notices.", "count", len(results))
	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(10)

	for _, r := range results {
		eg.Go(func() error {
			if err := gcp.UploadFile(gctx, bucket, r.Path, path.Join(runID, r.OutputName), retry); err != nil {
				return fmt.Errorf("notice %s: %w", r.OutputName, err)
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}
	logCtx.Info("All notices uploaded successfully.")
	return nil
}

func (f *NoticeTriggerFunction) triggerWorkflow(ctx context.Context, logCtx *slog.Logger, runID string, d notice.Descriptor, count int) error {
	logCtx.Info("Triggering workflow.")
	payload := models.WorkflowPayload{
		RunID:        runID,
		NoticeType:   string(d.Tag()),
		NoticeCount:  count,
		OutputBucket: f.config.OutputBucket,
		OutputPrefix: runID + "/",
	}
	parent := gcp.WorkflowParent(f.config.ProjectID, f.config.WorkflowLocation, f.config.WorkflowID)
	execution, err := f.workflows.Start(ctx, parent, payload)
	if err != nil {
		// The run itself completed; only the hand-off failed.
		logCtx.Error("Failed to trigger workflow", "error", err)
		return err
	}
	logCtx.Info("Hand-off to workflow complete.", "execution", execution)
	return nil
}

func (f *NoticeTriggerFunction) handleError(ctx context.Context, logCtx *slog.Logger, runID string, generated int, message string, originalErr error) error {
	fullError := fmt.Sprintf("%s: %v", message, originalErr)
	logCtx.Error(message, "error", originalErr)
	result := ledger.Result{Status: models.StatusFailed, GeneratedCount: generated, ErrorDetails: fullError}
	if err := f.ledger.FinishRun(ctx, runID, result); err != nil {
		logCtx.Error("CRITICAL: Failed to update run status to FAILED after a processing error.", "updateError", err)
	}
	return fmt.Errorf("%s: %w", message, originalErr)
}

func calculateFileHash(filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer file.Close()
	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}
