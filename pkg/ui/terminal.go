package ui

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
)

// ASCII logo for the application
const ASCIILogo = `
 ╦  ╦╔═╗╦  ╔═╗╦  ╦╔═╗╔╦╗╔═╗╦═╗
 ╚╗╔╝╠═╣║  ╠═╣╚╗╔╝╠═╣ ║ ╠═╣╠╦╝
  ╚╝ ╩ ╩╩═╝╩ ╩ ╚╝ ╩ ╩ ╩ ╩ ╩╩╚═
  validator avatar harvester`

var (
	neonCyan    = lipgloss.Color("#00FFFF")
	neonMagenta = lipgloss.Color("#FF00FF")
	neonGreen   = lipgloss.Color("#39FF14")
	neonYellow  = lipgloss.Color("#FFFF00")
	neonRed     = lipgloss.Color("#FF3131")
	dimWhite    = lipgloss.Color("#B0B0B0")

	logoStyle      = lipgloss.NewStyle().Foreground(neonCyan).Bold(true)
	labelStyle     = lipgloss.NewStyle().Foreground(neonCyan).Bold(true)
	valueStyle     = lipgloss.NewStyle().Foreground(neonYellow)
	successStyle   = lipgloss.NewStyle().Foreground(neonGreen).Bold(true)
	errorStyle     = lipgloss.NewStyle().Foreground(neonRed).Bold(true)
	warningStyle   = lipgloss.NewStyle().Foreground(neonYellow)
	highlightStyle = lipgloss.NewStyle().Foreground(neonMagenta)
	dimStyle       = lipgloss.NewStyle().Foreground(dimWhite)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(neonMagenta).
			Padding(0, 2)
)

var (
	out   io.Writer = os.Stdout
	quiet bool
)

// SetOutput redirects all terminal output
func SetOutput(w io.Writer) {
	out = w
}

// SetQuietMode suppresses everything except errors and the final summary
func SetQuietMode(q bool) {
	quiet = q
}

// IsQuietMode reports whether quiet mode is on
func IsQuietMode() bool {
	return quiet
}

// PrintLogo prints the ASCII logo with color
func PrintLogo() {
	if quiet {
		return
	}
	fmt.Fprintln(out, logoStyle.Render(ASCIILogo))
}

// PrintError prints an error message in red
func PrintError(msg string, args ...interface{}) {
	if len(args) > 0 {
		msg = msg + ": " + fmt.Sprintf("%v", args[0])
	}
	fmt.Fprintln(out, errorStyle.Render(msg))
}

// PrintSuccess prints a success message in green
func PrintSuccess(msg string) {
	if quiet {
		return
	}
	fmt.Fprintln(out, successStyle.Render(msg))
}

// PrintInfo prints a label and value pair
func PrintInfo(label string, value string) {
	if quiet {
		return
	}
	fmt.Fprintf(out, "%s: %s\n", labelStyle.Render(label), valueStyle.Render(value))
}

// PrintWarning prints a warning message in yellow
func PrintWarning(msg string, args ...interface{}) {
	if quiet {
		return
	}
	if len(args) > 0 {
		msg = msg + ": " + fmt.Sprintf("%v", args[0])
	}
	fmt.Fprintln(out, warningStyle.Render(msg))
}

// PrintHighlight prints a highlighted message in magenta
func PrintHighlight(msg string) {
	if quiet {
		return
	}
	fmt.Fprintln(out, highlightStyle.Render(msg))
}

// FormatBytes formats bytes into human readable format
func FormatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
