package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"followersweep/pkg/models"
)

const maxListedCandidates = 20

var (
	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 2)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")).
			Width(26)

	botStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))
)

// RenderCandidateList renders the suspected-bot accounts for operator
// review. Only the first few are listed individually.
func RenderCandidateList(candidates []models.ClassifiedRecord) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(fmt.Sprintf("BOT ACCOUNTS IDENTIFIED (%d total)", len(candidates))))
	b.WriteString("\n\n")

	shown := candidates
	if len(shown) > maxListedCandidates {
		shown = shown[:maxListedCandidates]
	}

	for i, c := range shown {
		b.WriteString(fmt.Sprintf("%3d. %s %s\n",
			i+1,
			botStyle.Render("@"+c.Username),
			dimStyle.Render(c.Classification.MatchedPattern),
		))
	}

	if len(candidates) > maxListedCandidates {
		b.WriteString(dimStyle.Render(fmt.Sprintf("     ... and %d more\n", len(candidates)-maxListedCandidates)))
	}

	return boxStyle.Render(b.String())
}

// RenderSummary renders the end-of-run summary box
func RenderSummary(state *models.RunState) string {
	mode := "LIVE"
	if state.Mode == models.ModeDryRun {
		mode = "DRY RUN"
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("CLEANUP SUMMARY (%s)", mode)))
	b.WriteString("\n\n")

	row := func(label string, value string) {
		b.WriteString(labelStyle.Render(label))
		b.WriteString(value)
		b.WriteString("\n")
	}

	row("Target account", "@"+state.TargetHandle)
	row("Followers processed", fmt.Sprintf("%d", state.ProcessedCount))
	if state.Mode == models.ModeDryRun {
		row("Would remove", fmt.Sprintf("%d", state.DryRunCount))
	}
	row("Removed", fmt.Sprintf("%d", state.RemovedCount))
	row("Failed", fmt.Sprintf("%d", state.FailedCount))
	row("Skipped", fmt.Sprintf("%d", state.SkippedCount))
	row("Final phase", string(state.Phase))
	row("Duration", formatDuration(state))

	return boxStyle.Render(b.String())
}

func formatDuration(state *models.RunState) string {
	end := state.EndedAt
	if end.IsZero() {
		end = time.Now()
	}
	d := end.Sub(state.StartedAt).Round(time.Second)

	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60

	switch {
	case h > 0:
		return fmt.Sprintf("%dh %dm %ds", h, m, s)
	case m > 0:
		return fmt.Sprintf("%dm %ds", m, s)
	default:
		return fmt.Sprintf("%ds", s)
	}
}
