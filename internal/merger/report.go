package merger

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/valpere/tarjuman/internal"
)

// RenderReport writes the bilingual Markdown report: a summary table, then
// every row grouped by section with its original, English, LPR and
// footnotes, then the failures.
func RenderReport(c Combined) []byte {
	var b bytes.Buffer
	s := c.Metadata

	b.WriteString("# Translation report\n\n")
	fmt.Fprintf(&b, "Run `%s`, generated %s.\n\n", s.RunID, s.GeneratedAt.Format("2006-01-02 15:04:05 MST"))
	b.WriteString("| Rows | Successful | Skipped | Failed | Mean LPR | Min LPR | Expansion flags | Readability flags |\n")
	b.WriteString("|---:|---:|---:|---:|---:|---:|---:|---:|\n")
	fmt.Fprintf(&b, "| %d | %d | %d | %d | %.2f | %.2f | %d | %d |\n\n",
		s.Total, s.Successful, s.Skipped, s.Failed, s.MeanLPR, s.MinLPR, s.ExpansionFlags, s.ReadabilityFlags)

	for _, g := range c.Sections {
		title := g.ID
		if g.Title != "" {
			title = fmt.Sprintf("%s (%s)", g.Title, g.ID)
		}
		fmt.Fprintf(&b, "## %s\n\n", title)
		for _, r := range g.Rows {
			writeRow(&b, r)
		}
	}

	if len(s.Failures) > 0 {
		b.WriteString("## Failures\n\n")
		b.WriteString("| Row | Code | Retryable | Attempts | Error |\n")
		b.WriteString("|---|---|---|---:|---|\n")
		for _, f := range s.Failures {
			fmt.Fprintf(&b, "| %s | %s | %t | %d | %s |\n", f.RowID, f.Code, f.Retryable, f.Attempts, cell(f.Error))
		}
		b.WriteString("\n")
	}
	return b.Bytes()
}

func writeRow(b *bytes.Buffer, r internal.Row) {
	md := r.Metadata
	fmt.Fprintf(b, "### %s\n\n", r.ID)
	b.WriteString("**Original**\n\n")
	quote(b, r.Original)
	b.WriteString("**English**\n\n")
	quote(b, r.English)

	notes := []string{fmt.Sprintf("LPR %.2f", md.LPR)}
	if md.Recommendation != "" {
		notes = append(notes, "recommendation "+md.Recommendation)
	}
	if md.TM.Used {
		notes = append(notes, fmt.Sprintf("TM %.0f%%", md.TM.Similarity*100))
	}
	if md.Expansion.Applied {
		notes = append(notes, "expanded")
	}
	if md.NeedsExpand {
		notes = append(notes, "needs expansion")
	}
	if md.NeedsReadability {
		notes = append(notes, "needs readability")
	}
	fmt.Fprintf(b, "_%s_\n\n", strings.Join(notes, ", "))

	if len(md.SemanticWarnings) > 0 {
		for _, w := range md.SemanticWarnings {
			fmt.Fprintf(b, "- warning: %s\n", w)
		}
		b.WriteString("\n")
	}

	for _, f := range r.Footnotes {
		fmt.Fprintf(b, "%d. **%s** %s", f.Number, f.Reference, f.English)
		if f.Arabic != "" {
			fmt.Fprintf(b, " (%s)", f.Arabic)
		}
		b.WriteString("\n")
	}
	if len(r.Footnotes) > 0 {
		b.WriteString("\n")
	}
}

func quote(b *bytes.Buffer, text string) {
	if strings.TrimSpace(text) == "" {
		b.WriteString("> _(empty)_\n\n")
		return
	}
	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		fmt.Fprintf(b, "> %s\n", line)
	}
	b.WriteString("\n")
}

func cell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}
