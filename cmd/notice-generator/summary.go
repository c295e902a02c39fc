package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Lllllllleong/noticeflow/internal/notice"
	"github.com/Lllllllleong/noticeflow/internal/property"
	"github.com/Lllllllleong/noticeflow/internal/services"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#AAAAAA")).Width(11)
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50"))
	errorStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF6B6B"))
	boxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#444444")).Padding(0, 1)
)

func line(label string, value any) string {
	return labelStyle.Render(label) + fmt.Sprint(value)
}

// renderSummary reports a generation run. A failed run names the record that
// stopped it.
func renderSummary(d notice.Descriptor, report *services.Report, runErr error) string {
	lines := []string{
		titleStyle.Render(fmt.Sprintf("%s · run %s", d.Tag(), report.RunID)),
		line("Parsed", report.Parsed),
		line("Skipped", report.Skipped),
		line("Generated", report.Generated),
	}

	var genErr *services.GenerationError
	switch {
	case runErr == nil:
		lines = append(lines, okStyle.Render("All notices generated."))
	case errors.As(runErr, &genErr):
		lines = append(lines,
			errorStyle.Render(fmt.Sprintf("Stopped at notice %d (source row %d)", genErr.Index+1, genErr.Row)),
			line("Notice", genErr.OutputName),
			line("Cause", genErr.Err),
		)
	default:
		lines = append(lines, errorStyle.Render("Run failed: "+runErr.Error()))
	}
	return boxStyle.Render(strings.Join(lines, "\n"))
}

func renderCollect(d notice.Descriptor, batch *notice.Batch) string {
	lines := []string{
		titleStyle.Render(string(d.Tag())),
		line("Parsed", batch.Len()),
		line("Skipped", len(batch.Failures)),
	}
	for _, f := range batch.Failures {
		lines = append(lines, errorStyle.Render(f.Error()))
	}
	return boxStyle.Render(strings.Join(lines, "\n"))
}

func renderProperties(dir *property.Directory) string {
	lines := []string{titleStyle.Render(fmt.Sprintf("%d properties", dir.Len()))}
	for _, p := range dir.All() {
		lines = append(lines, line(p.Code, p.Name+" · "+p.FullAddress()))
	}
	return boxStyle.Render(strings.Join(lines, "\n"))
}
