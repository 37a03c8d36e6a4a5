package main

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/yuanying/epubparse/internal/diag"
)

// reporter renders results. Styles degrade to plain text when the writers
// are not terminals.
type reporter struct {
	stdout io.Writer
	stderr io.Writer

	fileStyle    lipgloss.Style
	labelStyle   lipgloss.Style
	errorStyle   lipgloss.Style
	warningStyle lipgloss.Style
	failStyle    lipgloss.Style
}

func newReporter(stdout, stderr io.Writer) *reporter {
	out := lipgloss.NewRenderer(stdout)
	errOut := lipgloss.NewRenderer(stderr)
	return &reporter{
		stdout:       stdout,
		stderr:       stderr,
		fileStyle:    out.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED")),
		labelStyle:   out.NewStyle().Foreground(lipgloss.Color("#6B7280")),
		errorStyle:   errOut.NewStyle().Foreground(lipgloss.Color("#EF4444")),
		warningStyle: errOut.NewStyle().Foreground(lipgloss.Color("#F59E0B")),
		failStyle:    out.NewStyle().Foreground(lipgloss.Color("#EF4444")).Bold(true),
	}
}

func (r *reporter) report(res fileResult) {
	fmt.Fprintln(r.stdout, r.fileStyle.Render(res.Path))
	if res.Progress != "" {
		fmt.Fprint(r.stdout, res.Progress)
	}

	for _, e := range res.Diagnostics {
		style := r.errorStyle
		if e.Severity == diag.SeverityWarning {
			style = r.warningStyle
		}
		fmt.Fprintln(r.stderr, style.Render(e.Show()))
	}

	switch {
	case res.Err != nil:
		fmt.Fprintln(r.stderr, r.errorStyle.Render("error: "+res.Err.Error()))
	case !res.Parsed:
		fmt.Fprintln(r.stdout, r.failStyle.Render("Not a usable EPUB."))
	default:
		r.field("Epub", res.UniqueIdentifier)
		r.field("UUID", res.UUID)
		if res.Cover == "" {
			fmt.Fprintln(r.stdout, "No cover file.")
		} else {
			r.field("Cover", res.Cover)
		}
		if res.Thumbnail != "" {
			r.field("Thumbnail", res.Thumbnail)
		}
	}
}

func (r *reporter) field(label, value string) {
	fmt.Fprintf(r.stdout, "%s %s\n", r.labelStyle.Render(label+":"), value)
}

func (r *reporter) summary(total, failed int) {
	line := fmt.Sprintf("Processed %d epub files.", total)
	if failed > 0 {
		line += " " + r.failStyle.Render(fmt.Sprintf("%d with errors.", failed))
	}
	fmt.Fprintln(r.stdout, line)
}
