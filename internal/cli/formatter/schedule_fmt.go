package formatter

import (
	"fmt"
	"strings"

	"github.com/macho715/tr-dash/internal/contract"
	"github.com/macho715/tr-dash/internal/domain"
)

func FormatValidate(resp *contract.ValidateResponse) string {
	var b strings.Builder
	b.WriteString(Header("Validation") + "\n")
	fmt.Fprintf(&b, "  Version:    %d\n", resp.Version)
	fmt.Fprintf(&b, "  Activities: %d\n", resp.Activities)
	if resp.OK() {
		b.WriteString("\n  " + StyleGreen.Render("✔ Dependency graph is well formed and acyclic.") + "\n")
		return b.String()
	}
	for _, s := range resp.Structural {
		for _, line := range strings.Split(s, "\n") {
			b.WriteString("  " + StyleRed.Render("✖ ") + line + "\n")
		}
	}
	for _, c := range resp.Cycles {
		b.WriteString("  " + StyleRed.Render("✖ ") + c.Message + "\n")
	}
	return b.String()
}

// FormatTiming renders the critical-path table. Critical rows are marked.
func FormatTiming(resp *contract.TimingResponse) string {
	var b strings.Builder
	b.WriteString(Header("Critical Path Timing") + "\n")
	fmt.Fprintf(&b, "  Version:    %d\n", resp.Version)
	fmt.Fprintf(&b, "  Finish:     %s\n\n", Bold(FormatTime(resp.ProjectFinish)))

	if len(resp.Rows) == 0 {
		b.WriteString(Dim("  No activities.") + "\n")
		return b.String()
	}
	headers := []string{"", "Activity", "ES", "EF", "LS", "LF", "Total Float", "Free Float"}
	rows := make([][]string, 0, len(resp.Rows))
	for _, r := range resp.Rows {
		mark := " "
		if r.Timing.Critical() {
			mark = StyleRed.Render("◆")
		}
		rows = append(rows, []string{
			mark,
			TruncateString(r.ActivityID, 24),
			FormatTime(r.Timing.ES),
			FormatTime(r.Timing.EF),
			FormatTime(r.Timing.LS),
			FormatTime(r.Timing.LF),
			FormatFloat(r.Timing.TotalFloatMin),
			FormatMinutes(r.Timing.FreeFloatMin),
		})
	}
	b.WriteString(RenderTableAligned(headers, rows, []bool{false, false, false, false, false, false, true, true}))
	return b.String()
}

// FormatCollisions renders a detection report: summary by kind, then every
// collision.
func FormatCollisions(resp *contract.CollisionResponse) string {
	var b strings.Builder
	b.WriteString(Header("Collisions") + "\n")
	fmt.Fprintf(&b, "  Version:    %d\n", resp.Version)
	if resp.BaselineID != "" {
		fmt.Fprintf(&b, "  Baseline:   %s\n", resp.BaselineID)
	}
	fmt.Fprintf(&b, "  Severity:   %s\n\n", SeverityIndicator(resp.MaxSeverity))

	if len(resp.Collisions) == 0 {
		b.WriteString("  " + StyleGreen.Render("✔ No collisions.") + "\n")
		return b.String()
	}
	for _, kind := range domain.CollisionKinds {
		if n := resp.Summary[kind]; n > 0 {
			fmt.Fprintf(&b, "  %-28s %d\n", kind, n)
		}
	}
	b.WriteString("\n")
	b.WriteString(FormatCollisionTable(resp.Collisions))
	return b.String()
}

func FormatCollisionTable(cs []domain.Collision) string {
	headers := []string{"Severity", "Kind", "Activities", "Window", "Message"}
	rows := make([][]string, 0, len(cs))
	for _, c := range cs {
		window := "—"
		if c.Window != nil {
			window = FormatWindow(*c.Window)
		}
		rows = append(rows, []string{
			SeverityColor(c.Severity).Render(string(c.Severity)),
			string(c.Kind),
			TruncateString(JoinIDs(c.ActivityIDs), 30),
			window,
			TruncateString(c.Message, 60),
		})
	}
	return RenderTable(headers, rows)
}
