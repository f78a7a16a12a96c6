package formatter

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/macho715/tr-dash/internal/domain"
)

// Gruvbox-inspired color palette.
var (
	ColorGreen  = lipgloss.Color("#8ec07c")
	ColorYellow = lipgloss.Color("#fabd2f")
	ColorRed    = lipgloss.Color("#fb4934")
	ColorBlue   = lipgloss.Color("#83a598")
	ColorPurple = lipgloss.Color("#d3869b")
	ColorDim    = lipgloss.Color("#928374")
	ColorFg     = lipgloss.Color("#ebdbb2")
	ColorHeader = lipgloss.Color("#fe8019")
)

// Predefined lipgloss styles.
var (
	StyleGreen  = lipgloss.NewStyle().Foreground(ColorGreen)
	StyleYellow = lipgloss.NewStyle().Foreground(ColorYellow)
	StyleRed    = lipgloss.NewStyle().Foreground(ColorRed)
	StyleBlue   = lipgloss.NewStyle().Foreground(ColorBlue)
	StylePurple = lipgloss.NewStyle().Foreground(ColorPurple)
	StyleDim    = lipgloss.NewStyle().Foreground(ColorDim)
	StyleFg     = lipgloss.NewStyle().Foreground(ColorFg)
	StyleHeader = lipgloss.NewStyle().Foreground(ColorHeader).Bold(true)
	StyleBold   = lipgloss.NewStyle().Foreground(ColorFg).Bold(true)
)

// SetPlain strips colors from all rendered output. Used when stdout is not a
// terminal or --no-color is given.
func SetPlain(plain bool) {
	if plain {
		lipgloss.SetColorProfile(termenv.Ascii)
		return
	}
	lipgloss.SetColorProfile(termenv.EnvColorProfile())
}

// SeverityColor returns the style for a collision severity.
func SeverityColor(sev domain.Severity) lipgloss.Style {
	switch sev {
	case domain.SeverityBlocking:
		return StyleRed
	case domain.SeverityMajor:
		return StyleYellow
	case domain.SeverityMinor:
		return StyleBlue
	default:
		return StyleGreen
	}
}

// SeverityIndicator returns a colored severity marker such as "● BLOCKING".
// An empty severity means no findings.
func SeverityIndicator(sev domain.Severity) string {
	if sev == "" {
		return StyleGreen.Render("● CLEAR")
	}
	return SeverityColor(sev).Render("● " + strings.ToUpper(string(sev)))
}

// StatePill returns a colored indicator for an activity state.
func StatePill(state domain.ActivityState) string {
	label := strings.ReplaceAll(string(state), "_", " ")
	switch state {
	case domain.StateInProgress:
		return StyleGreen.Render("● " + label)
	case domain.StateReady:
		return StyleBlue.Render("○ " + label)
	case domain.StatePaused, domain.StateBlocked:
		return StyleYellow.Render("◐ " + label)
	case domain.StateCompleted:
		return StyleDim.Render("✔ " + label)
	case domain.StateCanceled, domain.StateAborted:
		return StyleDim.Render("✖ " + label)
	default:
		return StyleFg.Render("○ " + label)
	}
}

// LockBadge returns a short marker for locked activities, or "" when unlocked.
func LockBadge(l domain.LockLevel) string {
	switch l {
	case domain.LockHard, domain.LockBaseline:
		return StyleRed.Render("▲ " + string(l))
	case domain.LockSoft:
		return StylePurple.Render("△ soft")
	default:
		return ""
	}
}

// Header renders a section header with the orange header style and an underline.
func Header(text string) string {
	upper := strings.ToUpper(text)
	line := strings.Repeat("─", lipgloss.Width(upper))
	return fmt.Sprintf("%s\n%s", StyleHeader.Render(upper), StyleDim.Render(line))
}

// Dim renders text in the muted/dim color.
func Dim(text string) string {
	return StyleDim.Render(text)
}

// Bold renders text in bold with the foreground color.
func Bold(text string) string {
	return StyleBold.Render(text)
}
