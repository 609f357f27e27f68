// Package cli renders pnlcat terminal output: status lines, ledger tables, batch
// summaries and progress.
package cli

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/Veraticus/pnl-categorizer/internal/model"
)

// Ledger palette. Each P&L section gets its own hue so a category list reads like a statement.
var (
	RevenueColor   = lipgloss.Color("#2E9E6B") // money in
	COGSColor      = lipgloss.Color("#D9822B")
	OpexColor      = lipgloss.Color("#5B8DEF")
	LiabilityColor = lipgloss.Color("#B565D9")
	ClearingColor  = lipgloss.Color("#8A94A6") // balance sheet pass-through

	AppliedColor = lipgloss.Color("#2E9E6B")
	ReviewColor  = lipgloss.Color("#E0B341")
	FailureColor = lipgloss.Color("#D64545")
	NoteColor    = lipgloss.Color("#7FB7BE")
	MutedColor   = lipgloss.Color("#6B6B6B")
)

var (
	SuccessStyle = lipgloss.NewStyle().Foreground(AppliedColor)
	WarningStyle = lipgloss.NewStyle().Foreground(ReviewColor)
	ErrorStyle   = lipgloss.NewStyle().Foreground(FailureColor)
	InfoStyle    = lipgloss.NewStyle().Foreground(NoteColor)
	SubtleStyle  = lipgloss.NewStyle().Foreground(MutedColor)

	// TitleStyle heads summary and org boxes.
	TitleStyle = lipgloss.NewStyle().Bold(true).Foreground(OpexColor)

	// BoxStyle frames summaries with a ledger-style double rule.
	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder(), true, false).
			BorderForeground(MutedColor).
			Padding(0, 1)

	TableHeaderStyle = lipgloss.NewStyle().Bold(true).Underline(true)

	stageStyle = lipgloss.NewStyle().Bold(true)
)

var categoryTypeColors = map[model.CategoryType]lipgloss.Color{
	model.CategoryTypeRevenue:   RevenueColor,
	model.CategoryTypeCOGS:      COGSColor,
	model.CategoryTypeOpex:      OpexColor,
	model.CategoryTypeLiability: LiabilityColor,
	model.CategoryTypeClearing:  ClearingColor,
}

// Status markers.
const (
	SuccessIcon = "✓"
	ErrorIcon   = "✗"
	WarningIcon = "!"
	InfoIcon    = "›"
	ChartIcon   = "Σ"
)

// FormatSuccess marks an applied or completed operation.
func FormatSuccess(message string) string {
	return SuccessStyle.Render(SuccessIcon + " " + message)
}

// FormatError marks a failed operation.
func FormatError(message string) string {
	return ErrorStyle.Render(ErrorIcon + " " + message)
}

// FormatWarning marks something a bookkeeper should look at.
func FormatWarning(message string) string {
	return WarningStyle.Render(WarningIcon + " " + message)
}

func FormatInfo(message string) string {
	return InfoStyle.Render(InfoIcon + " " + message)
}

// CategoryTypeLabel renders a category type in its P&L section color.
func CategoryTypeLabel(typ model.CategoryType) string {
	color, ok := categoryTypeColors[typ]
	if !ok {
		color = MutedColor
	}
	return lipgloss.NewStyle().Foreground(color).Render(string(typ))
}

// StageBadge renders the stage that produced a result.
func StageBadge(stage model.Stage) string {
	switch stage {
	case model.StagePass1:
		return stageStyle.Foreground(AppliedColor).Render("[rules]")
	case model.StagePass2:
		return stageStyle.Foreground(NoteColor).Render("[model]")
	case model.StageReview:
		return stageStyle.Foreground(ReviewColor).Render("[review]")
	default:
		return stageStyle.Foreground(FailureColor).Render("[fallback]")
	}
}

// RenderBox renders a titled summary block.
func RenderBox(title, content string) string {
	return BoxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, TitleStyle.Render(title), content))
}
