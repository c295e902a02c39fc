package models

import (
	"errors"
	"fmt"
	"strings"
)

// ErrIncompleteRequest is returned by GenerationRequest.Validate.
var ErrIncompleteRequest = errors.New("incomplete generation request")

// OutputFormat is the rendering format asked of the merge service.
type OutputFormat string

const (
	FormatPDF  OutputFormat = "pdf"
	FormatDOCX OutputFormat = "docx"
)

// ParseOutputFormat accepts "pdf" or "docx" in any case; empty means pdf.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "pdf":
		return FormatPDF, nil
	case "docx":
		return FormatDOCX, nil
	default:
		return "", fmt.Errorf("unsupported output format %q", s)
	}
}

// Extension returns the file extension without the dot.
func (f OutputFormat) Extension() string { return string(f) }

// HeaderMode says whether the first row of a source table is a header.
type HeaderMode string

const (
	// HeaderAuto treats the first row as a header when it names a column.
	HeaderAuto HeaderMode = "auto"
	// HeaderPresent always skips the first row.
	HeaderPresent HeaderMode = "yes"
	// HeaderAbsent reads the first row as data.
	HeaderAbsent HeaderMode = "no"
)

// ParseHeaderMode accepts auto, yes/true or no/false in any case; empty
// means auto.
func ParseHeaderMode(s string) (HeaderMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return HeaderAuto, nil
	case "yes", "true", "present":
		return HeaderPresent, nil
	case "no", "false", "absent":
		return HeaderAbsent, nil
	default:
		return "", fmt.Errorf("unsupported header mode %q", s)
	}
}

// GenerationRequest is everything one merge call needs. It is built once per
// record and passed to a single Generate call.
type GenerationRequest struct {
	TemplatePath string         `json:"templatePath"`
	Data         map[string]any `json:"data"`
	Format       OutputFormat   `json:"format"`
	OutputPath   string         `json:"outputPath"`
}

// Validate checks that every part of the request is set.
func (r *GenerationRequest) Validate() error {
	var missing []string
	if r.TemplatePath == "" {
		missing = append(missing, "template")
	}
	if r.Data == nil {
		missing = append(missing, "merge data")
	}
	if r.Format == "" {
		missing = append(missing, "output format")
	}
	if r.OutputPath == "" {
		missing = append(missing, "output path")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrIncompleteRequest, strings.Join(missing, ", "))
	}
	return nil
}

// These structs define the JSON payloads exchanged with the Cloud Workflow.

// WorkflowPayload is the argument of the hand-off execution started after a
// completed cloud run.
type WorkflowPayload struct {
	RunID        string `json:"runId"`
	NoticeType   string `json:"noticeType"`
	NoticeCount  int    `json:"noticeCount"`
	OutputBucket string `json:"outputBucket"`
	OutputPrefix string `json:"outputPrefix"`
}

// NoticeTriggerResponse summarizes a cloud run.
type NoticeTriggerResponse struct {
	Status         string `json:"status"`
	RunID          string `json:"runId"`
	ParsedCount    int    `json:"parsedCount"`
	GeneratedCount int    `json:"generatedCount"`
}
