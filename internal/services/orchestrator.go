package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/Lllllllleong/noticeflow/internal/models"
	"github.com/Lllllllleong/noticeflow/internal/notice"
	"github.com/Lllllllleong/noticeflow/internal/property"
)

// Generator is the document-merge service. Generate blocks until the service
// returns the rendered document or fails.
type Generator interface {
	Generate(ctx context.Context, req *models.GenerationRequest) (io.ReadCloser, error)
}

// Verifier checks a rendered file before it is kept and reports its pages.
type Verifier interface {
	Verify(path string) (pages int, err error)
}

// Recorder receives one entry per generated notice.
type Recorder interface {
	RecordNotice(ctx context.Context, doc models.NoticeDocument) error
}

// GenerationError aborts a run. It identifies the record that failed.
type GenerationError struct {
	// Index is the 0-based position of the record in the batch.
	Index        int
	Row          int
	OutputName   string
	PropertyCode string
	Err          error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("notice %d (source row %d, %s) failed: %v", e.Index+1, e.Row, e.OutputName, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// RunConfig describes one orchestrated run.
type RunConfig struct {
	RunID        string
	TemplatePath string
	OutputDir    string
	Format       models.OutputFormat
}

// NoticeResult describes one generated notice.
type NoticeResult struct {
	Index        int
	Row          int
	OutputName   string
	Path         string
	PropertyCode string
	Enriched     bool
	Pages        int
}

// Report summarizes a run. On failure it holds the notices generated before
// the failing record.
type Report struct {
	RunID     string
	Parsed    int
	Skipped   int
	Generated int
	Results   []NoticeResult
}

// Orchestrator drives one merge request per record, strictly in order.
type Orchestrator struct {
	generator Generator
	directory *property.Directory
	verifier  Verifier
	recorder  Recorder
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithVerifier checks every rendered PDF with v before it is kept.
func WithVerifier(v Verifier) Option {
	return func(o *Orchestrator) { o.verifier = v }
}

// WithRecorder reports every generated notice to r.
func WithRecorder(r Recorder) Option {
	return func(o *Orchestrator) { o.recorder = r }
}

// NewOrchestrator creates an orchestrator that enriches from directory and
// renders through generator.
func NewOrchestrator(generator Generator, directory *property.Directory, opts ...Option) *Orchestrator {
	o := &Orchestrator{generator: generator, directory: directory}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run enriches, names, renders and saves each record of batch in order. The
// first generation or persistence failure stops the run: it is returned as a
// *GenerationError together with the report of what was generated so far.
// Files written before the failure are left in place.
func (o *Orchestrator) Run(ctx context.Context, batch *notice.Batch, cfg RunConfig) (*Report, error) {
	logCtx := slog.With("runId", cfg.RunID, "noticeType", batch.Descriptor.Tag())
	report := &Report{RunID: cfg.RunID, Parsed: batch.Len(), Skipped: len(batch.Failures)}
	logCtx.Info("Starting notice generation.", "records", batch.Len(), "outputDir", cfg.OutputDir)

	for i, rec := range batch.Records {
		row := 0
		if i < len(batch.Rows) {
			row = batch.Rows[i]
		}

		enriched, ok := o.directory.Enrich(rec)
		if !ok {
			logCtx.Warn("Property code not found; notice proceeds unenriched.",
				"row", row, "propertyCode", rec.String(notice.FieldPropertyCode))
		}

		name := OutputName(enriched, batch.Descriptor, cfg.Format)
		genErr := func(err error) error {
			return &GenerationError{
				Index:        i,
				Row:          row,
				OutputName:   name,
				PropertyCode: rec.String(notice.FieldPropertyCode),
				Err:          err,
			}
		}

		if err := ctx.Err(); err != nil {
			logCtx.Error("Run cancelled.", "row", row, "error", err)
			return report, genErr(err)
		}

		req := &models.GenerationRequest{
			TemplatePath: cfg.TemplatePath,
			Data:         enriched,
			Format:       cfg.Format,
			OutputPath:   filepath.Join(cfg.OutputDir, name),
		}
		pages, err := o.generate(ctx, req)
		if err != nil {
			logCtx.Error("Notice generation failed; aborting run.", "row", row, "outputName", name, "error", err)
			return report, genErr(err)
		}

		result := NoticeResult{
			Index:        i,
			Row:          row,
			OutputName:   name,
			Path:         req.OutputPath,
			PropertyCode: rec.String(notice.FieldPropertyCode),
			Enriched:     ok,
			Pages:        pages,
		}
		report.Results = append(report.Results, result)
		report.Generated++
		logCtx.Info("Notice generated.", "row", row, "path", req.OutputPath)

		o.record(ctx, logCtx, cfg.RunID, enriched, result)
	}

	logCtx.Info("Notice generation complete.", "parsed", report.Parsed, "generated", report.Generated)
	return report, nil
}

// generate submits req and saves the rendered document at req.OutputPath.
func (o *Orchestrator) generate(ctx context.Context, req *models.GenerationRequest) (int, error) {
	if err := req.Validate(); err != nil {
		return 0, err
	}

	body, err := o.generator.Generate(ctx, req)
	if err != nil {
		return 0, fmt.Errorf("document merge failed: %w", err)
	}
	defer body.Close()

	return o.save(body, req)
}

// save writes the document next to its destination and renames it into place
// once complete, so a failed write never leaves a partial notice behind.
func (o *Orchestrator) save(body io.Reader, req *models.GenerationRequest) (int, error) {
	if err := os.MkdirAll(filepath.Dir(req.OutputPath), 0o755); err != nil {
		return 0, fmt.Errorf("failed to create output directory: %w", err)
	}

	tmpPath := req.OutputPath + ".part"
	out, err := os.Create(tmpPath)
	if err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", tmpPath, err)
	}
	if _, err := io.Copy(out, body); err != nil {
		out.Close()
		os.Remove(tmpPath)
		return 0, fmt.Errorf("failed to write %s: %w", req.OutputPath, err)
	}
	if err := out.Close(); err != nil {
		os.Remove(tmpPath)
		return 0, fmt.Errorf("failed to finalize %s: %w", req.OutputPath, err)
	}

	pages := 0
	if o.verifier != nil && req.Format == models.FormatPDF {
		if pages, err = o.verifier.Verify(tmpPath); err != nil {
			os.Remove(tmpPath)
			return 0, fmt.Errorf("rendered document failed verification: %w", err)
		}
	}

	if err := os.Rename(tmpPath, req.OutputPath); err != nil {
		os.Remove(tmpPath)
		return 0, fmt.Errorf("failed to move %s into place: %w", req.OutputPath, err)
	}
	return pages, nil
}

func (o *Orchestrator) record(ctx context.Context, logCtx *slog.Logger, runID string, rec notice.Record, r NoticeResult) {
	if o.recorder == nil {
		return
	}
	doc := models.NoticeDocument{
		RunID:        runID,
		Row:          r.Row,
		OutputName:   r.OutputName,
		PropertyCode: r.PropertyCode,
		UnitNumber:   rec.String(notice.FieldUnitNumber),
		Enriched:     r.Enriched,
		Pages:        r.Pages,
		GeneratedAt:  time.Now(),
	}
	if err := o.recorder.RecordNotice(ctx, doc); err != nil {
		logCtx.Warn("Failed to record notice in ledger.", "outputName", r.OutputName, "error", err)
	}
}
