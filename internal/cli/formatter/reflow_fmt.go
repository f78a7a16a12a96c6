package formatter

import (
	"fmt"
	"strings"

	"github.com/macho715/tr-dash/internal/contract"
	"github.com/macho715/tr-dash/internal/domain"
)

// FormatReflow renders the result of one reflow run: the run summary, the
// moved activities, rejected perturbations and the collisions left over.
func FormatReflow(resp *contract.ReflowResponse) string {
	var b strings.Builder
	run := resp.Run

	title := "Reflow Results"
	if resp.DryRun {
		title = "Reflow Preview (dry run)"
	}
	b.WriteString(Header(title) + "\n")
	fmt.Fprintf(&b, "  Run:        %s\n", run.ID)
	fmt.Fprintf(&b, "  Trigger:    %s by %s\n", run.Trigger.Kind, run.Trigger.Actor)
	switch {
	case resp.Committed:
		fmt.Fprintf(&b, "  Version:    %d → %s\n", run.BaseVersion, StyleGreen.Render(fmt.Sprintf("%d", run.CommittedVersion)))
	case resp.DryRun:
		fmt.Fprintf(&b, "  Version:    %d %s\n", run.BaseVersion, Dim("(not committed)"))
	}
	fmt.Fprintf(&b, "  Severity:   %s\n", SeverityIndicator(resp.MaxSeverity))
	b.WriteString("\n")

	b.WriteString(FormatChanges(run.Changes))

	if len(resp.Warnings) > 0 {
		b.WriteString("\n" + Header("Rejected") + "\n")
		for _, w := range resp.Warnings {
			b.WriteString("  " + StyleYellow.Render("! ") + w + "\n")
		}
	}

	if len(resp.Collisions) > 0 {
		b.WriteString("\n" + Header("Collisions") + "\n")
		b.WriteString(FormatCollisionTable(resp.Collisions))
	}
	return b.String()
}

// FormatChanges renders the plan moves of a run.
func FormatChanges(changes []domain.Change) string {
	if len(changes) == 0 {
		return Dim("  No plan changes.") + "\n"
	}
	headers := []string{"Activity", "Old Plan", "New Plan", "Shift"}
	rows := make([][]string, 0, len(changes))
	for _, c := range changes {
		rows = append(rows, []string{c.ActivityID, FormatWindow(c.Old), FormatWindow(c.New), Shift(c.Old, c.New)})
	}
	return RenderTableAligned(headers, rows, []bool{false, false, false, true})
}
