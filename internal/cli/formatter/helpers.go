package formatter

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/macho715/tr-dash/internal/domain"
)

// TimeLayout is the compact UTC layout used in tables.
const TimeLayout = "Jan 02 15:04"

// RenderBox wraps content in a rounded-border box with an optional title.
func RenderBox(title string, content string) string {
	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorDim).
		PaddingLeft(2).
		PaddingRight(2).
		PaddingTop(1).
		PaddingBottom(1)

	if title != "" {
		return boxStyle.Render(StyleHeader.Render(strings.ToUpper(title)) + "\n\n" + content)
	}
	return boxStyle.Render(content)
}

// FormatTime renders t in UTC, or a dash for the zero time.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return "—"
	}
	return t.UTC().Format(TimeLayout)
}

// FormatWindow renders a window as "start → end".
func FormatWindow(w domain.Window) string {
	if w.IsZero() {
		return "—"
	}
	return FormatTime(w.Start) + " → " + FormatTime(w.End)
}

// FormatMinutes renders a minute count as "2d 3h 05m", "3h 05m" or "45m".
func FormatMinutes(m int64) string {
	sign := ""
	if m < 0 {
		sign, m = "-", -m
	}
	d, h, mins := m/(24*60), (m/60)%24, m%60
	switch {
	case d > 0:
		return fmt.Sprintf("%s%dd %dh %02dm", sign, d, h, mins)
	case h > 0:
		return fmt.Sprintf("%s%dh %02dm", sign, h, mins)
	default:
		return fmt.Sprintf("%s%dm", sign, mins)
	}
}

// FormatFloat renders total float, red when negative and yellow when zero.
func FormatFloat(m int64) string {
	text := FormatMinutes(m)
	switch {
	case m < 0:
		return StyleRed.Render(text)
	case m == 0:
		return StyleYellow.Render(text)
	default:
		return StyleFg.Render(text)
	}
}

// Shift renders the signed start movement between two windows.
func Shift(old, new domain.Window) string {
	if old.Start.IsZero() {
		return StyleBlue.Render("new")
	}
	delta := domain.Minutes(new.Start.Sub(old.Start))
	switch {
	case delta > 0:
		return StyleYellow.Render("+" + FormatMinutes(delta))
	case delta < 0:
		return StyleGreen.Render(FormatMinutes(delta))
	default:
		return Dim("±0")
	}
}

// TruncateString shortens s to n runes, ending with an ellipsis.
func TruncateString(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}

// JoinIDs renders a list of ids separated by commas.
func JoinIDs(ids []string) string {
	return strings.Join(ids, ", ")
}
