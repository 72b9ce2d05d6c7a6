package replay

import (
	"encoding/json"
	"fmt"
)

// DecisionDiff reports whether a re-evaluated Gatekeeper decision
// differs from the one recorded during the original run.
type DecisionDiff struct {
	HasBaseline  bool     `json:"has_baseline"`
	Changed      bool     `json:"changed"`
	SummaryLines []string `json:"summary_lines"`
}

// signalKeys is the fixed, order-preserved set of signals.* keys
// compared between baseline and rerun.
var signalKeys = []string{
	"tool_events_total",
	"has_strong",
	"top1_score",
	"status_reject",
	"stale_reject",
	"fail_reject",
}

// DiffGatekeeperDecision compares a baseline decision (decoded from a
// recorded gatekeeper.decision wrapper event, nil if none was recorded)
// against a freshly computed rerun decision, both as generic JSON.
func DiffGatekeeperDecision(baseline, rerun map[string]any) DecisionDiff {
	var lines []string

	rInject := injectIDs(rerun)
	rCandidate, rHasCandidate := boolField(rerun, "should_write_candidate")
	rSignals, _ := rerun["signals"].(map[string]any)

	if baseline == nil {
		lines = append(lines, fmt.Sprintf("rerun inject_list: %v", rInject))
		lines = append(lines, fmt.Sprintf("rerun should_write_candidate: %s", optBool(rCandidate, rHasCandidate)))
		return DecisionDiff{HasBaseline: false, Changed: false, SummaryLines: lines}
	}

	bInject := injectIDs(baseline)
	bCandidate, bHasCandidate := boolField(baseline, "should_write_candidate")
	bSignals, _ := baseline["signals"].(map[string]any)

	if !stringSliceEqualOrdered(bInject, rInject) {
		lines = append(lines, fmt.Sprintf("inject_list changed: baseline=%v rerun=%v", bInject, rInject))
	}
	if bHasCandidate != rHasCandidate || bCandidate != rCandidate {
		lines = append(lines, fmt.Sprintf("should_write_candidate changed: baseline=%s rerun=%s",
			optBool(bCandidate, bHasCandidate), optBool(rCandidate, rHasCandidate)))
	}

	for _, key := range signalKeys {
		bv, bok := bSignals[key]
		rv, rok := rSignals[key]
		if bok != rok || !jsonEqual(bv, rv) {
			lines = append(lines, fmt.Sprintf("signals.%s changed: baseline=%v rerun=%v", key, optVal(bv, bok), optVal(rv, rok)))
		}
	}

	return DecisionDiff{HasBaseline: true, Changed: len(lines) > 0, SummaryLines: lines}
}

func injectIDs(decision map[string]any) []string {
	arr, _ := decision["inject_list"].([]any)
	ids := make([]string, 0, len(arr))
	for _, it := range arr {
		m, ok := it.(map[string]any)
		if !ok {
			continue
		}
		if id, ok := m["qa_id"].(string); ok {
			ids = append(ids, id)
		}
	}
	return ids
}

func boolField(m map[string]any, key string) (bool, bool) {
	v, ok := m[key]
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}

func optBool(v bool, ok bool) string {
	if !ok {
		return "<none>"
	}
	return fmt.Sprintf("%v", v)
}

func optVal(v any, ok bool) any {
	if !ok {
		return nil
	}
	return v
}

func jsonEqual(a, b any) bool {
	ab, _ := json.Marshal(a)
	bb, _ := json.Marshal(b)
	return string(ab) == string(bb)
}

func stringSliceEqualOrdered(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
