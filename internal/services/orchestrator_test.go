package services

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Lllllllleong/noticeflow/internal/models"
	"github.com/Lllllllleong/noticeflow/internal/notice"
	"github.com/Lllllllleong/noticeflow/internal/property"
)

// fakeGenerator renders each request as its unit number and fails on the
// call numbered failOn (1-based).
type fakeGenerator struct {
	failOn int
	calls  []string
}

var errMergeRejected = errors.New("merge rejected")

func (g *fakeGenerator) Generate(_ context.Context, req *models.GenerationRequest) (io.ReadCloser, error) {
	g.calls = append(g.calls, filepath.Base(req.OutputPath))
	if len(g.calls) == g.failOn {
		return nil, errMergeRejected
	}
	unit, _ := req.Data[notice.FieldUnitNumber].(string)
	return io.NopCloser(strings.NewReader(unit)), nil
}

type fakeRecorder struct {
	docs []models.NoticeDocument
	err  error
}

func (r *fakeRecorder) RecordNotice(_ context.Context, doc models.NoticeDocument) error {
	r.docs = append(r.docs, doc)
	return r.err
}

type fakeVerifier struct{ err error }

func (v fakeVerifier) Verify(string) (int, error) { return 2, v.err }

func threeRecordBatch(t *testing.T) *notice.Batch {
	t.Helper()
	d := mustSchema(t, notice.Maintenance)
	tr := NewTransformer(d)
	batch := &notice.Batch{Descriptor: d}
	rows := [][]string{
		{"patriot", "1", "Ana", "Lopez", "2024-05-01", "2024-05-07", "Fix sink"},
		{"patvlg2", "2", "Chi", "Okafor", "2024-05-01", "2024-05-07", ""},
		{"concord", "3", "Marcus", "Reed", "2024-05-01", "2024-05-07", "Paint"},
	}
	for i, cells := range rows {
		rec, err := tr.Transform(Row{Number: i + 2, Cells: cells})
		if err != nil {
			t.Fatalf("Transform: %v", err)
		}
		batch.Records = append(batch.Records, rec)
		batch.Rows = append(batch.Rows, i+2)
	}
	return batch
}

func runConfig(dir string, format models.OutputFormat) RunConfig {
	return RunConfig{
		RunID:        "run-1",
		TemplatePath: "templates/Maintenance Notice_Template.docx",
		OutputDir:    dir,
		Format:       format,
	}
}

func TestRunAbortsOnFirstGenerationFailure(t *testing.T) {
	dir := t.TempDir()
	gen := &fakeGenerator{failOn: 2}
	o := NewOrchestrator(gen, property.Default())

	report, err := o.Run(context.Background(), threeRecordBatch(t), runConfig(dir, models.FormatDOCX))

	var genErr *GenerationError
	if !errors.As(err, &genErr) {
		t.Fatalf("expected a GenerationError, got %v", err)
	}
	if genErr.Index != 1 || genErr.Row != 3 || genErr.PropertyCode != "patvlg2" {
		t.Fatalf("error does not identify record 2: %+v", genErr)
	}
	if !errors.Is(err, errMergeRejected) {
		t.Fatalf("underlying cause lost: %v", err)
	}
	if len(gen.calls) != 2 {
		t.Fatalf("record 3 was attempted: %v", gen.calls)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "patriot_1_Ana_Lopez_Maintenance_Notice.docx" {
		t.Fatalf("expected exactly the first notice on disk, got %v", entries)
	}
	if report.Generated != 1 || len(report.Results) != 1 {
		t.Fatalf("unexpected partial report: %+v", report)
	}
}

func TestRunGeneratesEveryRecord(t *testing.T) {
	dir := t.TempDir()
	rec := &fakeRecorder{err: errors.New("ledger offline")}
	o := NewOrchestrator(&fakeGenerator{}, property.Default(), WithRecorder(rec))

	report, err := o.Run(context.Background(), threeRecordBatch(t), runConfig(dir, models.FormatDOCX))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Parsed != 3 || report.Generated != 3 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if len(rec.docs) != 3 {
		t.Fatalf("expected 3 ledger entries despite recorder errors, got %d", len(rec.docs))
	}

	data, err := os.ReadFile(filepath.Join(dir, "concord_3_Marcus_Reed_Maintenance_Notice.docx"))
	if err != nil || string(data) != "3" {
		t.Fatalf("unexpected third notice: %q, %v", data, err)
	}
	if leftovers, _ := filepath.Glob(filepath.Join(dir, "*.part")); len(leftovers) != 0 {
		t.Fatalf("temporary files left behind: %v", leftovers)
	}
}

func TestRunProceedsOnEnrichmentMiss(t *testing.T) {
	batch := threeRecordBatch(t)
	batch.Records[0][notice.FieldPropertyCode] = "ZZZZZ"

	report, err := NewOrchestrator(&fakeGenerator{}, property.Default()).
		Run(context.Background(), batch, runConfig(t.TempDir(), models.FormatDOCX))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Results[0].Enriched {
		t.Fatal("expected the first notice to be unenriched")
	}
	if !report.Results[1].Enriched {
		t.Fatal("expected the second notice to be enriched")
	}
}

func TestRunRejectsUnverifiedPDF(t *testing.T) {
	dir := t.TempDir()
	o := NewOrchestrator(&fakeGenerator{}, property.Default(), WithVerifier(fakeVerifier{err: errors.New("no pages")}))

	_, err := o.Run(context.Background(), threeRecordBatch(t), runConfig(dir, models.FormatPDF))
	var genErr *GenerationError
	if !errors.As(err, &genErr) || genErr.Index != 0 {
		t.Fatalf("expected the first record to fail verification, got %v", err)
	}
	if entries, _ := os.ReadDir(dir); len(entries) != 0 {
		t.Fatalf("rejected notice kept on disk: %v", entries)
	}
}

func TestRunStopsWhenCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	gen := &fakeGenerator{}

	_, err := NewOrchestrator(gen, property.Default()).
		Run(ctx, threeRecordBatch(t), runConfig(t.TempDir(), models.FormatDOCX))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(gen.calls) != 0 {
		t.Fatalf("generator called after cancellation: %v", gen.calls)
	}
}

func TestRunRejectsIncompleteRequest(t *testing.T) {
	cfg := runConfig(t.TempDir(), models.FormatDOCX)
	cfg.TemplatePath = ""
	gen := &fakeGenerator{}

	_, err := NewOrchestrator(gen, property.Default()).Run(context.Background(), threeRecordBatch(t), cfg)
	if !errors.Is(err, models.ErrIncompleteRequest) {
		t.Fatalf("expected ErrIncompleteRequest, got %v", err)
	}
	if len(gen.calls) != 0 {
		t.Fatal("incomplete request reached the generator")
	}
}
