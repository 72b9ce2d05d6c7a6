package toolevent

import "sort"

// ToolStats holds per-tool correlation counters, used to surface the
// noisiest tools in Gatekeeper's human-readable reasons.
type ToolStats struct {
	Matched          int
	Failed           int
	RequestOnly      int
	ResultOnly       int
	RequestMissingID int
	ResultMissingID  int
}

// CorrelationStats summarizes request/result pairing across one run's
// ToolEvents. Computed once per run and handed to the Gatekeeper.
type CorrelationStats struct {
	RequestCount         int
	ResultCount          int
	MatchedPairs         int
	UnmatchedRequests    int
	UnmatchedResults     int
	RequestMissingID     int
	ResultMissingID      int
	DuplicateRequestIDs  int
	DuplicateResultIDs   int
	FailedResults        int
	ByTool               map[string]*ToolStats
}

// Correlate computes CorrelationStats over an ordered slice of events.
func Correlate(events []Event) CorrelationStats {
	stats := CorrelationStats{ByTool: make(map[string]*ToolStats)}

	reqByID := make(map[string]*Event)
	resByID := make(map[string]*Event)
	seenReq := make(map[string]bool)
	seenRes := make(map[string]bool)

	statsFor := func(tool string) *ToolStats {
		s, ok := stats.ByTool[tool]
		if !ok {
			s = &ToolStats{}
			stats.ByTool[tool] = s
		}
		return s
	}

	for i := range events {
		e := &events[i]
		tool := toolName(e)

		switch e.Kind {
		case KindToolRequest:
			stats.RequestCount++
			entry := statsFor(tool)
			if e.ID == "" {
				stats.RequestMissingID++
				entry.RequestMissingID++
				continue
			}
			if seenReq[e.ID] {
				stats.DuplicateRequestIDs++
			}
			seenReq[e.ID] = true
			reqByID[e.ID] = e

		case KindToolResult:
			stats.ResultCount++
			entry := statsFor(tool)
			if e.Ok != nil && !*e.Ok {
				stats.FailedResults++
			}
			if e.ID == "" {
				stats.ResultMissingID++
				entry.ResultMissingID++
				continue
			}
			if seenRes[e.ID] {
				stats.DuplicateResultIDs++
			}
			seenRes[e.ID] = true
			resByID[e.ID] = e
		}
	}

	ids := make([]string, 0, len(reqByID))
	for id := range reqByID {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		req := reqByID[id]
		tool := toolName(req)
		if res, ok := resByID[id]; ok {
			entry := statsFor(tool)
			entry.Matched++
			if res.Ok != nil && !*res.Ok {
				entry.Failed++
			}
			stats.MatchedPairs++
		} else {
			statsFor(tool).RequestOnly++
			stats.UnmatchedRequests++
		}
	}

	resIDs := make([]string, 0, len(resByID))
	for id := range resByID {
		resIDs = append(resIDs, id)
	}
	sort.Strings(resIDs)

	for _, id := range resIDs {
		if _, ok := reqByID[id]; ok {
			continue
		}
		res := resByID[id]
		statsFor(toolName(res)).ResultOnly++
		stats.UnmatchedResults++
	}

	return stats
}

func toolName(e *Event) string {
	if e.Tool == "" {
		return "unknown"
	}
	return e.Tool
}
