package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/Veraticus/pnl-categorizer/internal/batch"
	"github.com/Veraticus/pnl-categorizer/internal/model"
	"github.com/Veraticus/pnl-categorizer/internal/taxonomy"
)

// RenderSummary formats the statistics of a batch run.
func RenderSummary(s batch.Summary, dryRun bool) string {
	title := ChartIcon + " Batch Complete"
	if dryRun {
		title += " (dry run)"
	}

	content := fmt.Sprintf("  • Organizations: %d\n", s.Organizations) +
		fmt.Sprintf("  • Processed: %d\n", s.Processed) +
		fmt.Sprintf("  • Auto-applied: %d\n", s.AutoApplied) +
		fmt.Sprintf("  • Needs review: %d\n", s.NeedsReview) +
		fmt.Sprintf("  • Fallbacks: %d\n", s.Fallbacks) +
		fmt.Sprintf("  • Failed: %d\n", s.Failed) +
		fmt.Sprintf("  • Time taken: %s", s.ProcessingTime.Round(time.Millisecond))

	return RenderBox(title, content)
}

// WriteCategoryTable writes nodes as an aligned table. Parents are shown by slug.
func WriteCategoryTable(w io.Writer, tax *taxonomy.Taxonomy, nodes []model.CategoryNode) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
		TableHeaderStyle.Render("Slug"),
		TableHeaderStyle.Render("Name"),
		TableHeaderStyle.Render("Type"),
		TableHeaderStyle.Render("Parent"),
		TableHeaderStyle.Render("P&L"))
	fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
		strings.Repeat("-", 24),
		strings.Repeat("-", 28),
		strings.Repeat("-", 9),
		strings.Repeat("-", 16),
		strings.Repeat("-", 3))

	for _, n := range nodes {
		parent := SubtleStyle.Render("-")
		if n.ParentID != nil {
			if p, ok := tax.ByID(*n.ParentID); ok {
				parent = p.Slug
			}
		}
		pnl := "no"
		if n.IsPnL {
			pnl = "yes"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", n.Slug, n.Name, CategoryTypeLabel(n.Type), parent, pnl)
	}

	return tw.Flush()
}

// FormatResult describes a categorization result on one line.
func FormatResult(r model.CategorizationResult) string {
	line := fmt.Sprintf("%s → %s (%.2f) %s", r.TransactionID, r.CategorySlug, r.Confidence, StageBadge(r.Stage))
	switch {
	case r.AutoApply:
		return FormatSuccess(line + " auto-applied")
	case len(r.Violations) > 0:
		return FormatWarning(line + " needs review: " + strings.Join(r.Violations, "; "))
	default:
		return FormatWarning(line + " needs review")
	}
}
