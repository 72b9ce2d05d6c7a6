package replay

import (
	"fmt"
	"strings"
)

// RunReportItem summarizes one run within a Report.
type RunReportItem struct {
	RunID      string         `json:"run_id"`
	ToolEvents int            `json:"tool_events"`
	HasExit    bool           `json:"has_exit"`
	HasDrop    bool           `json:"has_drop"`
	HasSearch  bool           `json:"has_search"`
	Derived    map[string]any `json:"derived,omitempty"`
}

// Report is the JSON-serializable output of a replay run.
type Report struct {
	Totals ReportTotals    `json:"totals"`
	Runs   []RunReportItem `json:"runs"`
}

// ReportTotals aggregates counts across every run in a Report.
type ReportTotals struct {
	Runs           int `json:"runs"`
	ToolEvents     int `json:"tool_events"`
	RunsWithExit   int `json:"runs_with_exit"`
	RunsWithDrop   int `json:"runs_with_drop"`
	RunsWithSearch int `json:"runs_with_search"`
}

// BuildReport summarizes a set of run records into a Report.
func BuildReport(runs []RunRecord) Report {
	totals := ReportTotals{Runs: len(runs)}
	items := make([]RunReportItem, 0, len(runs))

	for _, r := range runs {
		totals.ToolEvents += len(r.ToolEvents)
		if r.RunnerExit != nil {
			totals.RunsWithExit++
		}
		if r.TeeDrop != nil {
			totals.RunsWithDrop++
		}
		if r.SearchResult != nil {
			totals.RunsWithSearch++
		}

		items = append(items, RunReportItem{
			RunID:      r.RunID,
			ToolEvents: len(r.ToolEvents),
			HasExit:    r.RunnerExit != nil,
			HasDrop:    r.TeeDrop != nil,
			HasSearch:  r.SearchResult != nil,
			Derived:    r.Derived,
		})
	}

	return Report{Totals: totals, Runs: items}
}

// FormatText renders a Report as a human-readable multi-line summary,
// including the rerun_gatekeeper diff (if present in Derived) per run.
func FormatText(report Report) string {
	var b strings.Builder

	b.WriteString("Replay report\n")
	fmt.Fprintf(&b, "runs: %d\n", report.Totals.Runs)
	fmt.Fprintf(&b, "tool_events: %d\n", report.Totals.ToolEvents)
	fmt.Fprintf(&b, "runs_with_exit: %d\n", report.Totals.RunsWithExit)
	fmt.Fprintf(&b, "runs_with_drop: %d\n", report.Totals.RunsWithDrop)
	fmt.Fprintf(&b, "runs_with_search: %d\n", report.Totals.RunsWithSearch)

	for _, r := range report.Runs {
		fmt.Fprintf(&b, "- run_id: %s\n", r.RunID)
		fmt.Fprintf(&b, "  tool_events: %d\n", r.ToolEvents)
		fmt.Fprintf(&b, "  has_exit: %v\n", r.HasExit)
		fmt.Fprintf(&b, "  has_drop: %v\n", r.HasDrop)
		fmt.Fprintf(&b, "  has_search: %v\n", r.HasSearch)

		rerun, ok := r.Derived["rerun_gatekeeper"].(map[string]any)
		if !ok {
			continue
		}
		skipped := rerun["skipped"]
		reason := rerun["skip_reason"]
		changed := any(nil)
		if diff, ok := rerun["diff"].(map[string]any); ok {
			changed = diff["changed"]
		}
		fmt.Fprintf(&b, "  rerun_gatekeeper: skipped=%v changed=%v reason=%v\n", skipped, changed, reason)

		if diff, ok := rerun["diff"].(map[string]any); ok {
			if lines, ok := diff["summary_lines"].([]string); ok && len(lines) > 0 {
				fmt.Fprintf(&b, "  rerun_diff: %s\n", strings.Join(lines, " | "))
			} else if rawLines, ok := diff["summary_lines"].([]any); ok && len(rawLines) > 0 {
				strs := make([]string, 0, len(rawLines))
				for _, l := range rawLines {
					if s, ok := l.(string); ok {
						strs = append(strs, s)
					}
				}
				if len(strs) > 0 {
					fmt.Fprintf(&b, "  rerun_diff: %s\n", strings.Join(strs, " | "))
				}
			}
		}
	}

	return b.String()
}
