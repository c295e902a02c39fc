package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Lllllllleong/noticeflow/internal/docmerge"
	"github.com/Lllllllleong/noticeflow/internal/ledger"
	"github.com/Lllllllleong/noticeflow/internal/models"
	"github.com/Lllllllleong/noticeflow/internal/notice"
	"github.com/Lllllllleong/noticeflow/internal/services"
)

func (a *app) generateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "generate",
		Short: "Parse the source CSV and render one notice per row",
		Long: `Parse the source CSV, enrich every record from the property directory
and render each notice through the merge service, in source order.

Unparsable rows are skipped. A failed notice stops the run; notices
rendered before it are kept.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runGenerate(cmd.Context(), cmd)
		},
	}
}

func (a *app) runGenerate(ctx context.Context, cmd *cobra.Command) error {
	cfg := a.cfg
	if err := cfg.ValidateGenerate(); err != nil {
		return err
	}
	descriptor, err := notice.SchemaFor(cfg.NoticeType)
	if err != nil {
		return err
	}
	format, err := cfg.Format()
	if err != nil {
		return err
	}

	directory, err := loadDirectory(ctx, cfg)
	if err != nil {
		return err
	}
	creds, err := docmerge.LoadCredentials(cfg.Credentials)
	if err != nil {
		return err
	}

	header, err := cfg.HeaderMode()
	if err != nil {
		return err
	}
	batch, err := services.CollectFile(cfg.Input, descriptor, header)
	if err != nil {
		return err
	}
	if cfg.DebugJSON != "" {
		if err := services.WriteBatchJSON(batch, cfg.DebugJSON); err != nil {
			return err
		}
	}

	runID := ledger.NewRunID()
	logCtx := slog.With("runId", runID)
	opts := []services.Option{}
	if cfg.VerifyPDF {
		opts = append(opts, services.WithVerifier(services.NewPDFVerifier()))
	}
	book := openLedger(ctx, logCtx, cfg.Ledger, models.RunDocument{
		RunID:        runID,
		NoticeType:   string(descriptor.Tag()),
		Source:       cfg.Input,
		Status:       models.StatusGenerating,
		ParsedCount:  batch.Len(),
		SkippedCount: len(batch.Failures),
	})
	if book != nil {
		defer book.Close()
		opts = append(opts, services.WithRecorder(book))
	}

	orchestrator := services.NewOrchestrator(docmerge.NewClient(ctx, creds), directory, opts...)
	report, runErr := orchestrator.Run(ctx, batch, services.RunConfig{
		RunID:        runID,
		TemplatePath: cfg.TemplatePath(descriptor),
		OutputDir:    cfg.OutputDir,
		Format:       format,
	})

	if book != nil {
		result := ledger.Result{Status: models.StatusCompleted, GeneratedCount: report.Generated}
		if runErr != nil {
			result.Status = models.StatusFailed
			result.ErrorDetails = runErr.Error()
		}
		if err := book.FinishRun(ctx, runID, result); err != nil {
			logCtx.Warn("Failed to record run result in ledger.", "error", err)
		}
	}

	fmt.Fprintln(cmd.OutOrStdout(), renderSummary(descriptor, report, runErr))
	if runErr != nil {
		return fmt.Errorf("run %s: %w", runID, runErr)
	}
	return nil
}

// openLedger opens the SQLite ledger at path and records run. Ledger problems
// never stop a run; they yield a nil ledger.
func openLedger(ctx context.Context, logCtx *slog.Logger, path string, run models.RunDocument) *ledger.SQLiteLedger {
	if path == "" {
		return nil
	}
	book, err := ledger.OpenSQLite(path)
	if err != nil {
		logCtx.Warn("Ledger unavailable; continuing without it.", "path", path, "error", err)
		return nil
	}
	if err := book.StartRun(ctx, run); err != nil {
		logCtx.Warn("Ledger unavailable; continuing without it.", "path", path, "error", err)
		book.Close()
		return nil
	}
	return book
}
