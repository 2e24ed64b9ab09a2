package ui

import (
	"fmt"
	"strings"
	"time"

	"valavatar/pkg/pipeline"
)

// PrintSummary prints the run statistics followed by every identity that
// produced no image. It is printed even in quiet mode.
func PrintSummary(report *pipeline.Report) {
	fmt.Fprintln(out, RenderSummary(report))
}

// RenderSummary renders the summary panel and failure listings
func RenderSummary(report *pipeline.Report) string {
	var total int64
	for _, d := range report.Downloaded {
		total += d.Size
	}

	rows := []struct{ label, value string }{
		{"Endpoints", fmt.Sprintf("%d walked, %d aborted", len(report.Walks), report.AbortedWalks())},
		{"Identities", fmt.Sprint(len(report.Identities))},
		{"Downloaded", fmt.Sprintf("%d (%s)", len(report.Downloaded), FormatBytes(total))},
		{"Unresolved", fmt.Sprint(len(report.Unresolved))},
		{"Failed", fmt.Sprint(len(report.Failed))},
		{"Elapsed", report.Duration.Round(time.Millisecond).String()},
	}

	var panel strings.Builder
	for i, row := range rows {
		if i > 0 {
			panel.WriteString("\n")
		}
		panel.WriteString(labelStyle.Render(fmt.Sprintf("%-11s", row.label)))
		panel.WriteString(valueStyle.Render(row.value))
	}

	var b strings.Builder
	b.WriteString(panelStyle.Render(panel.String()))

	if len(report.Unresolved) > 0 {
		b.WriteString("\n\n")
		b.WriteString(warningStyle.Render("Unresolved identities:"))
		for _, id := range report.Unresolved {
			b.WriteString("\n  ")
			b.WriteString(id)
		}
	}

	if len(report.Failed) > 0 {
		b.WriteString("\n\n")
		b.WriteString(errorStyle.Render("Failed downloads:"))
		for _, f := range report.Failed {
			b.WriteString("\n  ")
			b.WriteString(f.Identity)
			b.WriteString(" ")
			b.WriteString(dimStyle.Render(f.Err.Error()))
		}
	}

	return b.String()
}
