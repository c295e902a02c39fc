package services

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/Lllllllleong/noticeflow/internal/models"
	"github.com/Lllllllleong/noticeflow/internal/notice"
)

// utf8BOM is written ahead of the first cell by spreadsheet "CSV UTF-8" exports.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ErrSourceUnreadable is returned when the source table cannot be opened or
// read at all. Per-row problems never produce it.
var ErrSourceUnreadable = errors.New("source table unreadable")

// CollectFile parses the CSV file at path into a batch. Only a failure to open
// or read the file is fatal.
func CollectFile(path string, d notice.Descriptor, header models.HeaderMode) (*notice.Batch, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSourceUnreadable, err)
	}
	defer f.Close()

	batch, err := Collect(f, d, header)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return batch, nil
}

// Collect parses a CSV source into a batch of records in source order. Rows
// that fail to transform are logged and left out; they never stop collection.
//
// header decides what the first row is. HeaderAuto treats it as a header when
// it names at least one of the descriptor's columns; otherwise columns are read
// at their canonical positions and the first row is data. HeaderPresent always
// skips it, and HeaderAbsent always reads it as data. A leading byte-order
// mark is dropped.
func Collect(r io.Reader, d notice.Descriptor, header models.HeaderMode) (*notice.Batch, error) {
	logCtx := slog.With("noticeType", d.Tag(), "header", header)
	logCtx.Info("Starting collection.")

	reader := csv.NewReader(skipBOM(r))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	batch := &notice.Batch{Descriptor: d, Records: []notice.Record{}}
	var transformer *Transformer
	if header == models.HeaderAbsent {
		transformer = NewTransformer(d)
	}

	for {
		row, err := readRow(reader)
		if err == io.EOF {
			break
		}
		if err != nil {
			logCtx.Error("Failed to read source table.", "error", err)
			return nil, fmt.Errorf("%w: %w", ErrSourceUnreadable, err)
		}

		if transformer == nil && (row.Err == nil || header == models.HeaderPresent) {
			t, ok := newHeaderTransformer(d, row.Cells)
			switch {
			case ok:
				transformer = t
				if missing := t.missingColumns(); len(missing) > 0 {
					logCtx.Warn("Header is missing columns; they will be empty.", "missing", missing)
				}
				logCtx.Debug("Header row detected.", "row", row.Number)
				continue
			case header == models.HeaderPresent:
				transformer = NewTransformer(d)
				logCtx.Warn("Header names no known column; reading columns by position.", "row", row.Number)
				continue
			}
			transformer = NewTransformer(d)
		}
		t := transformer
		if t == nil {
			t = NewTransformer(d)
		}

		rec, err := t.Transform(row)
		if err != nil {
			var pf *notice.ParseFailure
			if !errors.As(err, &pf) {
				pf = &notice.ParseFailure{Row: row.Number, Message: err.Error()}
			}
			logCtx.Error("Skipping unparsable row.", "row", pf.Row, "error", pf.Message)
			batch.Failures = append(batch.Failures, pf)
			continue
		}
		batch.Records = append(batch.Records, rec)
		batch.Rows = append(batch.Rows, row.Number)
	}

	logCtx.Info("Collection complete.", "records", batch.Len(), "skipped", len(batch.Failures))
	return batch, nil
}

// skipBOM drops a UTF-8 byte-order mark at the start of r.
func skipBOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		// Peek succeeded, so Discard cannot fail.
		_, _ = br.Discard(len(utf8BOM))
	}
	return br
}

// readRow reads the next record. Parse errors are attached to the returned
// row; any other error is returned as is.
func readRow(reader *csv.Reader) (Row, error) {
	cells, err := reader.Read()
	if err != nil {
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			// ErrFieldCount cannot occur with FieldsPerRecord < 0.
			return Row{Number: perr.StartLine, Err: perr.Err}, nil
		}
		return Row{}, err
	}
	line, _ := reader.FieldPos(0)
	return Row{Number: line, Cells: cells}, nil
}
