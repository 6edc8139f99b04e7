package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Tone colors a summary value.
type Tone int

const (
	ToneNormal Tone = iota
	ToneGood
	ToneBad
)

type SummaryRow struct {
	Label string
	Value string
	Tone  Tone
}

// RenderSummary draws rows as a two-column table under title.
func RenderSummary(title string, rows []SummaryRow) string {
	labelWidth := 0
	valueWidth := 0
	for _, row := range rows {
		labelWidth = max(labelWidth, len(row.Label))
		valueWidth = max(valueWidth, len(row.Value))
	}

	hline := dimStyle.Render(strings.Repeat("-", max(labelWidth+valueWidth+3, len(title))))
	lines := []string{titleStyle.Render(title), hline}

	for _, row := range rows {
		label := padRight(row.Label, labelWidth)
		value := padRight(row.Value, valueWidth)
		lines = append(lines, fmt.Sprintf("%s | %s", labelStyle.Render(label), toneStyle(row.Tone).Render(value)))
	}

	lines = append(lines, hline)
	return strings.Join(lines, "\n")
}

// FailureLine formats one failed file for listings under the summary.
func FailureLine(input, message string) string {
	return errorStyle.Render("✗ ") + labelStyle.Render(input) + dimStyle.Render(": "+message)
}

func toneStyle(t Tone) lipgloss.Style {
	switch t {
	case ToneGood:
		return successStyle
	case ToneBad:
		return errorStyle
	default:
		return valueStyle
	}
}

func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}
