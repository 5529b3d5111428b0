package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
)

var (
	// dimStyle for muted metadata text
	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	// successStyle for success indicators
	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	// errorStyle for error indicators
	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	// boxStyle for the run summary with rounded border
	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 1)
)

// FormatRunSummary renders the end-of-run summary box
func FormatRunSummary(w io.Writer, path string, loaded, failed int, elapsed time.Duration) {
	var statusIndicator string
	if failed > 0 {
		statusIndicator = errorStyle.Render(fmt.Sprintf("%d FAILED", failed))
	} else {
		statusIndicator = successStyle.Render("OK")
	}

	content := fmt.Sprintf("%s %s\n%s %d scripts in %.2fs  %s",
		dimStyle.Render("Path:"), path,
		dimStyle.Render("Loaded:"), loaded, elapsed.Seconds(),
		statusIndicator,
	)

	fmt.Fprintln(w, boxStyle.Render(content))
}
