package formatter

import (
	"fmt"
	"strings"

	"github.com/macho715/tr-dash/internal/contract"
	"github.com/macho715/tr-dash/internal/domain"
)

func FormatActivities(acts []domain.Activity) string {
	if len(acts) == 0 {
		return Dim("No activities. Import a schedule with `trflow import`.") + "\n"
	}
	headers := []string{"Activity", "State", "Lock", "Plan", "Duration", "Float"}
	rows := make([][]string, 0, len(acts))
	for _, a := range acts {
		rows = append(rows, []string{
			TruncateString(a.ID, 24),
			StatePill(a.State),
			LockBadge(a.LockLevel),
			FormatWindow(domain.Window{Start: a.Plan.Start, End: a.PlanEnd()}),
			FormatMinutes(a.DurationMin),
			FormatFloat(a.Calc.TotalFloatMin),
		})
	}
	return RenderTableAligned(headers, rows, []bool{false, false, false, false, true, true})
}

// FormatActivity renders one activity with its dependencies and current timing.
func FormatActivity(a *domain.Activity) string {
	var b strings.Builder
	fmt.Fprintf(&b, "  State:      %s %s\n", StatePill(a.State), LockBadge(a.LockLevel))
	if a.Name != "" && a.Name != a.ID {
		fmt.Fprintf(&b, "  Name:       %s\n", a.Name)
	}
	fmt.Fprintf(&b, "  Plan:       %s\n", FormatWindow(domain.Window{Start: a.Plan.Start, End: a.PlanEnd()}))
	fmt.Fprintf(&b, "  Duration:   %s (%s)\n", FormatMinutes(a.DurationMin), a.DurationMode)
	if a.Actual != nil {
		fmt.Fprintf(&b, "  Actual:     %s, %d%%\n", FormatTime(a.Actual.Start), a.Actual.ProgressPct)
	}
	if a.Pin != nil {
		fmt.Fprintf(&b, "  Pinned:     %s\n", FormatTime(a.Pin.Start))
	}
	if a.Hold != nil {
		fmt.Fprintf(&b, "  Risk hold:  %s\n", StyleYellow.Render(a.Hold.Reason))
	}
	fmt.Fprintf(&b, "  Early:      %s\n", FormatWindow(domain.Window{Start: a.Calc.ES, End: a.Calc.EF}))
	fmt.Fprintf(&b, "  Late:       %s\n", FormatWindow(domain.Window{Start: a.Calc.LS, End: a.Calc.LF}))
	fmt.Fprintf(&b, "  Float:      %s total, %s free\n", FormatFloat(a.Calc.TotalFloatMin), FormatMinutes(a.Calc.FreeFloatMin))
	if len(a.Dependencies) > 0 {
		deps := make([]string, 0, len(a.Dependencies))
		for _, d := range a.Dependencies {
			dep := fmt.Sprintf("%s %s", d.PredecessorID, d.Type)
			if d.LagMin != 0 {
				dep += fmt.Sprintf("%+dm", d.LagMin)
			}
			deps = append(deps, dep)
		}
		fmt.Fprintf(&b, "  After:      %s\n", strings.Join(deps, ", "))
	}
	return RenderBox(a.ID, strings.TrimRight(b.String(), "\n"))
}

func FormatTransition(resp *contract.TransitionResponse) string {
	return fmt.Sprintf("%s %s → %s (version %d)\n",
		Bold(resp.ActivityID), StatePill(resp.From), StatePill(resp.To), resp.Version)
}

func FormatBaselines(bs []*domain.Baseline) string {
	if len(bs) == 0 {
		return Dim("No baselines captured.") + "\n"
	}
	headers := []string{"ID", "Name", "Captured", "Activities"}
	rows := make([][]string, 0, len(bs))
	for _, bl := range bs {
		rows = append(rows, []string{bl.ID, bl.Name, FormatTime(bl.CapturedAt), fmt.Sprintf("%d", len(bl.Entries))})
	}
	return RenderTableAligned(headers, rows, []bool{false, false, false, true})
}

func FormatHistory(events []domain.HistoryEvent) string {
	if len(events) == 0 {
		return Dim("No history.") + "\n"
	}
	headers := []string{"At", "Actor", "Activity", "Field", "Old", "New"}
	rows := make([][]string, 0, len(events))
	for _, e := range events {
		rows = append(rows, []string{
			FormatTime(e.At), e.Actor, e.ActivityID, e.Field,
			Dim(TruncateString(e.Old, 26)), TruncateString(e.New, 26),
		})
	}
	return RenderTable(headers, rows)
}

func FormatRuns(runs []*domain.ReflowRun) string {
	if len(runs) == 0 {
		return Dim("No reflow runs.") + "\n"
	}
	headers := []string{"Run", "Requested", "Trigger", "Actor", "State", "Version", "Changes", "Collisions"}
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		version := fmt.Sprintf("%d", r.BaseVersion)
		if r.State == domain.RunCommitted {
			version = fmt.Sprintf("%d → %d", r.BaseVersion, r.CommittedVersion)
		}
		rows = append(rows, []string{
			TruncateString(r.ID, 13),
			FormatTime(r.RequestedAt),
			string(r.Trigger.Kind),
			r.Trigger.Actor,
			runState(r.State),
			version,
			fmt.Sprintf("%d", len(r.Changes)),
			fmt.Sprintf("%d", len(r.Collisions)),
		})
	}
	return RenderTableAligned(headers, rows, []bool{false, false, false, false, false, true, true, true})
}

// FormatRun renders one run with its changes and any abort reason.
func FormatRun(run *domain.ReflowRun) string {
	var b strings.Builder
	b.WriteString(Header("Run "+run.ID) + "\n")
	fmt.Fprintf(&b, "  Requested:  %s\n", FormatTime(run.RequestedAt))
	fmt.Fprintf(&b, "  Trigger:    %s by %s\n", run.Trigger.Kind, run.Trigger.Actor)
	fmt.Fprintf(&b, "  State:      %s\n", runState(run.State))
	if run.Error != "" {
		fmt.Fprintf(&b, "  Error:      %s\n", StyleRed.Render(run.Error))
	}
	b.WriteString("\n")
	b.WriteString(FormatChanges(run.Changes))
	for _, w := range run.Warnings {
		b.WriteString("  " + StyleYellow.Render("! ") + w + "\n")
	}
	return b.String()
}

func runState(s domain.RunState) string {
	switch s {
	case domain.RunCommitted:
		return StyleGreen.Render(string(s))
	case domain.RunAborted:
		return StyleRed.Render(string(s))
	default:
		return StyleDim.Render(string(s))
	}
}

func FormatImport(res *contract.ImportResult) string {
	var b strings.Builder
	b.WriteString(Header("Import") + "\n")
	fmt.Fprintf(&b, "  Version:      %d\n", res.Version)
	fmt.Fprintf(&b, "  Activities:   %d (replaced %d)\n", res.Activities, res.ReplacedCount)
	fmt.Fprintf(&b, "  Dependencies: %d\n", res.Dependencies)
	fmt.Fprintf(&b, "  Resources:    %d\n", res.Resources)
	fmt.Fprintf(&b, "  Groups:       %d\n", res.Groups)
	if len(res.Cycles) > 0 {
		b.WriteString("\n  " + StyleRed.Render(fmt.Sprintf("%d dependency cycle(s); reflow will abort until fixed:", len(res.Cycles))) + "\n")
		for _, c := range res.Cycles {
			b.WriteString("    " + c.Message + "\n")
		}
	}
	return b.String()
}
