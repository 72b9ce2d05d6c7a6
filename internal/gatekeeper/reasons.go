package gatekeeper

import (
	"fmt"
	"sort"

	"github.com/haasonsaas/memex-cli/internal/toolevent"
)

// summarizeToolCorrAnomalies renders CorrelationStats into a short,
// human-readable reasons list, topped by the raw counters and followed
// by a per-anomaly breakdown naming the noisiest tools.
func summarizeToolCorrAnomalies(corr toolevent.CorrelationStats) []string {
	var reasons []string

	reasons = append(reasons, fmt.Sprintf(
		"tool_corr: req=%d, res=%d, matched=%d, unreq=%d, unres=%d, miss_req_id=%d, miss_res_id=%d, dup_req_id=%d, dup_res_id=%d, failed_res=%d",
		corr.RequestCount, corr.ResultCount, corr.MatchedPairs,
		corr.UnmatchedRequests, corr.UnmatchedResults,
		corr.RequestMissingID, corr.ResultMissingID,
		corr.DuplicateRequestIDs, corr.DuplicateResultIDs, corr.FailedResults,
	))

	if corr.RequestMissingID+corr.ResultMissingID > 0 {
		reasons = append(reasons, fmt.Sprintf(
			"tool_corr anomaly: missing id (request=%d, result=%d)",
			corr.RequestMissingID, corr.ResultMissingID))
		reasons = append(reasons, topToolLines(corr.ByTool, corrKindMissingID, 5)...)
	}

	if corr.UnmatchedRequests+corr.UnmatchedResults > 0 {
		reasons = append(reasons, fmt.Sprintf(
			"tool_corr anomaly: unmatched (requests_only=%d, results_only=%d)",
			corr.UnmatchedRequests, corr.UnmatchedResults))
		reasons = append(reasons, topToolLines(corr.ByTool, corrKindUnmatched, 5)...)
	}

	if corr.DuplicateRequestIDs+corr.DuplicateResultIDs > 0 {
		reasons = append(reasons, fmt.Sprintf(
			"tool_corr anomaly: duplicate ids (req_dup=%d, res_dup=%d)",
			corr.DuplicateRequestIDs, corr.DuplicateResultIDs))
	}

	if corr.FailedResults > 0 {
		reasons = append(reasons, fmt.Sprintf("tool_corr: failed_results=%d", corr.FailedResults))
		reasons = append(reasons, topToolLines(corr.ByTool, corrKindFailed, 5)...)
	}

	return reasons
}

type corrKind int

const (
	corrKindMissingID corrKind = iota
	corrKindUnmatched
	corrKindFailed
)

type toolRow struct {
	tool  string
	score int
	stats *toolevent.ToolStats
}

func topToolLines(byTool map[string]*toolevent.ToolStats, kind corrKind, topN int) []string {
	var rows []toolRow
	for tool, s := range byTool {
		var score int
		switch kind {
		case corrKindMissingID:
			score = s.RequestMissingID + s.ResultMissingID
		case corrKindUnmatched:
			score = s.RequestOnly + s.ResultOnly
		case corrKindFailed:
			score = s.Failed
		}
		if score > 0 {
			rows = append(rows, toolRow{tool: tool, score: score, stats: s})
		}
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].score != rows[j].score {
			return rows[i].score > rows[j].score
		}
		return rows[i].tool < rows[j].tool
	})

	if len(rows) > topN {
		rows = rows[:topN]
	}

	lines := make([]string, 0, len(rows))
	for _, r := range rows {
		switch kind {
		case corrKindMissingID:
			lines = append(lines, fmt.Sprintf(" - tool=%s missing_id=%d (req_missing=%d, res_missing=%d)",
				r.tool, r.score, r.stats.RequestMissingID, r.stats.ResultMissingID))
		case corrKindUnmatched:
			lines = append(lines, fmt.Sprintf(" - tool=%s unmatched=%d (request_only=%d, result_only=%d)",
				r.tool, r.score, r.stats.RequestOnly, r.stats.ResultOnly))
		case corrKindFailed:
			lines = append(lines, fmt.Sprintf(" - tool=%s failed=%d (matched=%d, request_only=%d, result_only=%d)",
				r.tool, r.score, r.stats.Matched, r.stats.RequestOnly, r.stats.ResultOnly))
		}
	}
	return lines
}
