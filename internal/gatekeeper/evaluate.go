package gatekeeper

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/haasonsaas/memex-cli/internal/memory"
	"github.com/haasonsaas/memex-cli/internal/supervisor"
	"github.com/haasonsaas/memex-cli/internal/toolevent"
)

// SelectInjectItems applies the same status/staleness/trust filtering and
// ranked-limit selection Evaluate uses internally, exposed standalone so
// the Run Coordinator can choose what to inject into a prompt before a
// run starts, not only what to report in a post-run Decision.
func SelectInjectItems(now time.Time, cfg Config, matches []memory.SearchMatch) []InjectItem {
	survivors := filterMatches(cfg, matches, now)
	items, _ := selectInject(cfg, survivors)
	return items
}

// Evaluate is the pure decision function: given the same now, cfg,
// matches, outcome, and events it always returns the same Decision. It
// performs no I/O; every write it names is the caller's responsibility.
func Evaluate(now time.Time, cfg Config, matches []memory.SearchMatch, outcome supervisor.RunOutcome, events []toolevent.Event) Decision {
	corr := toolevent.Correlate(events)

	survivors := filterMatches(cfg, matches, now)
	injectList, top1Dominant := selectInject(cfg, survivors)

	finalAnswer := extractFinalAnswer(events)
	hitRefs := buildHitRefs(outcome.ShownQAIDs, finalAnswer, events)
	usedIDs := usedQAIDs(hitRefs)

	validatePlans := buildValidatePlans(cfg, outcome, usedIDs)

	shouldWrite, draft := buildCandidateDraft(cfg, outcome, events)

	signals := map[string]any{
		"tool_events_total": len(events),
		"has_strong":        hasStrongValidation(validatePlans),
		"top1_dominant":     top1Dominant,
		"status_reject":     countRejected(matches, survivors, rejectStatus, cfg, now),
		"stale_reject":      countRejected(matches, survivors, rejectStale, cfg, now),
		"fail_reject":       countRejected(matches, survivors, rejectTrust, cfg, now),
	}
	if len(injectList) > 0 {
		signals["top1_score"] = injectList[0].Score
	} else {
		signals["top1_score"] = float32(0)
	}
	signals["tool_corr"] = map[string]any{
		"request_count":         corr.RequestCount,
		"result_count":          corr.ResultCount,
		"matched_pairs":         corr.MatchedPairs,
		"unmatched_requests":    corr.UnmatchedRequests,
		"unmatched_results":     corr.UnmatchedResults,
		"duplicate_request_ids": corr.DuplicateRequestIDs,
		"duplicate_result_ids":  corr.DuplicateResultIDs,
		"failed_results":        corr.FailedResults,
	}

	var reasons []string
	reasons = append(reasons, fmt.Sprintf("inject_selected=%d of %d survivors", len(injectList), len(survivors)))
	if top1Dominant {
		reasons = append(reasons, "top1_dominant: single overwhelming match injected alone")
	}
	if shouldWrite {
		reasons = append(reasons, "candidate draft produced: heuristic thresholds met")
	} else {
		reasons = append(reasons, "no candidate draft: heuristic thresholds not met")
	}
	reasons = append(reasons, summarizeToolCorrAnomalies(corr)...)

	var drafts []memory.CandidateDraft
	if shouldWrite {
		drafts = []memory.CandidateDraft{draft}
	}

	return Decision{
		InjectList:           injectList,
		ShouldWriteCandidate: shouldWrite,
		HitRefs:              hitRefs,
		ValidatePlans:        validatePlans,
		Reasons:              reasons,
		Signals:              signals,
		CandidateDrafts:      drafts,
	}
}

func isActiveStatus(cfg Config, status string) bool {
	if len(cfg.ActiveStatuses) == 0 {
		return true
	}
	for _, s := range cfg.ActiveStatuses {
		if s == status {
			return true
		}
	}
	return false
}

func isExpired(m memory.SearchMatch, now time.Time) bool {
	return m.ExpiryAt != nil && now.After(*m.ExpiryAt)
}

type rejectReason int

const (
	rejectStatus rejectReason = iota
	rejectStale
	rejectTrust
)

func filterMatches(cfg Config, matches []memory.SearchMatch, now time.Time) []memory.SearchMatch {
	var out []memory.SearchMatch
	for _, m := range matches {
		if int(m.ValidationLevel) < cfg.MinLevelInject {
			continue
		}
		if !isActiveStatus(cfg, m.Status) {
			continue
		}
		if cfg.ExcludeStaleByDefault && isExpired(m, now) {
			continue
		}
		if m.Trust < cfg.MinTrustShow {
			continue
		}
		out = append(out, m)
	}
	return out
}

// countRejected reports how many of the original matches were dropped
// for the given reason, used purely to populate the signals block.
func countRejected(all, survivors []memory.SearchMatch, reason rejectReason, cfg Config, now time.Time) int {
	survivorSet := make(map[string]struct{}, len(survivors))
	for _, m := range survivors {
		survivorSet[m.QAID] = struct{}{}
	}
	count := 0
	for _, m := range all {
		if _, ok := survivorSet[m.QAID]; ok {
			continue
		}
		switch reason {
		case rejectStatus:
			if !isActiveStatus(cfg, m.Status) {
				count++
			}
		case rejectStale:
			if cfg.ExcludeStaleByDefault && isExpired(m, now) {
				count++
			}
		case rejectTrust:
			if m.Trust < cfg.MinTrustShow && isActiveStatus(cfg, m.Status) && !(cfg.ExcludeStaleByDefault && isExpired(m, now)) {
				count++
			}
		}
	}
	return count
}

// selectInject sorts survivors by (validation_level desc, trust desc,
// score desc) and takes the top MaxInject. When the top-1 score meets
// SkipIfTop1ScoreGE, only that single item is injected.
func selectInject(cfg Config, survivors []memory.SearchMatch) ([]InjectItem, bool) {
	sorted := make([]memory.SearchMatch, len(survivors))
	copy(sorted, survivors)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].ValidationLevel != sorted[j].ValidationLevel {
			return sorted[i].ValidationLevel > sorted[j].ValidationLevel
		}
		if sorted[i].Trust != sorted[j].Trust {
			return sorted[i].Trust > sorted[j].Trust
		}
		return sorted[i].Score > sorted[j].Score
	})

	if len(sorted) == 0 {
		return nil, false
	}

	top1Dominant := sorted[0].Score >= cfg.SkipIfTop1ScoreGE
	limit := cfg.MaxInject
	if top1Dominant {
		limit = 1
	}
	if limit > len(sorted) {
		limit = len(sorted)
	}

	items := make([]InjectItem, 0, limit)
	for _, m := range sorted[:limit] {
		items = append(items, InjectItem{
			QAID: m.QAID, Question: m.Question, Answer: m.Answer, Summary: m.Summary,
			Trust: m.Trust, ValidationLevel: m.ValidationLevel, Score: m.Score, Tags: m.Tags,
		})
	}
	return items, top1Dominant
}

// buildHitRefs records shown=true for every qa id in shownIDs or
// referenced by a [QA_REF id] anchor anywhere in the events, and
// used=true for ids that appear in the final assistant answer.
func buildHitRefs(shownIDs []string, finalAnswer string, events []toolevent.Event) []HitRef {
	shownSet := make(map[string]struct{}, len(shownIDs))
	for _, id := range shownIDs {
		shownSet[id] = struct{}{}
	}
	for _, id := range extractQARefs(finalAnswer) {
		shownSet[id] = struct{}{}
	}
	for _, id := range extractQARefsFromToolEvents(events) {
		shownSet[id] = struct{}{}
	}

	usedSet := make(map[string]struct{})
	for _, id := range extractQARefs(finalAnswer) {
		usedSet[id] = struct{}{}
	}

	ids := make([]string, 0, len(shownSet))
	for id := range shownSet {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	refs := make([]HitRef, 0, len(ids))
	for _, id := range ids {
		_, used := usedSet[id]
		refs = append(refs, HitRef{QAID: id, Shown: true, Used: used})
	}
	return refs
}

func usedQAIDs(refs []HitRef) []string {
	var ids []string
	for _, r := range refs {
		if r.Used {
			ids = append(ids, r.QAID)
		}
	}
	return ids
}

// buildValidatePlans infers pass/fail/unknown for each used qa id from
// the run's exit code and consecutive tool_result failures.
func buildValidatePlans(cfg Config, outcome supervisor.RunOutcome, usedIDs []string) []ValidatePlan {
	if len(usedIDs) == 0 {
		return nil
	}

	maxConsecutiveFail := 0
	current := 0
	for _, e := range outcome.ToolEvents {
		if e.Kind != toolevent.KindToolResult {
			continue
		}
		if e.Ok != nil && !*e.Ok {
			current++
			if current > maxConsecutiveFail {
				maxConsecutiveFail = current
			}
		} else {
			current = 0
		}
	}

	var result, signal string
	strong := false
	switch {
	case outcome.ExitCode == 0 && maxConsecutiveFail == 0:
		result, signal, strong = "pass", "strong", true
	case outcome.ExitCode != 0 || maxConsecutiveFail >= cfg.BlockIfConsecutiveFailGE:
		result, signal, strong = "fail", "strong", true
	default:
		result, signal, strong = "unknown", "weak", false
	}

	plans := make([]ValidatePlan, 0, len(usedIDs))
	for _, id := range usedIDs {
		plans = append(plans, ValidatePlan{
			QAID: id, Result: result, SignalStrength: signal, StrongSignal: strong,
		})
	}
	return plans
}

func hasStrongValidation(plans []ValidatePlan) bool {
	for _, p := range plans {
		if p.SignalStrength == "strong" {
			return true
		}
	}
	return false
}

// buildCandidateDraft produces a new QA candidate from the session's
// final answer when the heuristic thresholds are met: non-trivial
// output, at least one tool step or an error hint, no secret-pattern
// match anywhere in the tails, and the synthesized answer within
// length bounds after suffix truncation.
func buildCandidateDraft(cfg Config, outcome supervisor.RunOutcome, events []toolevent.Event) (bool, memory.CandidateDraft) {
	errorHint := findErrorHint(events)
	toolSteps := toolevent.ExtractToolSteps(events, 5, 16, 140)

	finalAnswer := strings.TrimSpace(extractFinalAnswer(events))
	if finalAnswer == "" {
		return false, memory.CandidateDraft{}
	}
	if errorHint == "" && len(toolSteps) == 0 {
		return false, memory.CandidateDraft{}
	}

	if cfg.StrictSecretBlock {
		if containsSecret(outcome.StdoutTail) || containsSecret(outcome.StderrTail) || containsSecret(finalAnswer) {
			return false, memory.CandidateDraft{}
		}
	} else if containsSecret(finalAnswer) {
		return false, memory.CandidateDraft{}
	}

	answer := renderCandidateAnswer(finalAnswer, toolSteps, cfg.MaxAnswerChars)
	if len(answer) < cfg.MinAnswerChars {
		return false, memory.CandidateDraft{}
	}

	question := "How to: " + firstLine(finalAnswer)
	if errorHint != "" {
		question = fmt.Sprintf("How to resolve: %s", errorHint)
	}

	return true, memory.CandidateDraft{
		Question:   question,
		Answer:     answer,
		Confidence: 0.6,
		Source:     "gatekeeper",
	}
}

func findErrorHint(events []toolevent.Event) string {
	for _, e := range events {
		if e.Kind == toolevent.KindToolResult && e.Ok != nil && !*e.Ok && e.Error != "" {
			return e.Error
		}
	}
	return ""
}

func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return s[:idx]
	}
	if len(s) > 80 {
		return s[:80]
	}
	return s
}

// renderCandidateAnswer follows the fixed Context/Steps/Notes structure
// and truncates at a sentence or word boundary to stay under maxChars.
func renderCandidateAnswer(finalAnswer string, steps []toolevent.ToolStep, maxChars int) string {
	var b strings.Builder
	b.WriteString("Context:\n")
	b.WriteString(finalAnswer)
	if len(steps) > 0 {
		b.WriteString("\n\nSteps:\n")
		for _, s := range steps {
			b.WriteString("- ")
			b.WriteString(s.Title)
			b.WriteString(": ")
			b.WriteString(s.Body)
			b.WriteString("\n")
		}
	}
	b.WriteString("\nNotes:\nExtracted automatically from a supervised session.")

	out := b.String()
	if len(out) <= maxChars {
		return out
	}
	return truncateAtWord(out, maxChars)
}

// truncateAtWord cuts out to at most max bytes, backing off to the last
// whitespace boundary so the result never ends mid-word.
func truncateAtWord(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := s[:max]
	if idx := strings.LastIndexAny(cut, " \n\t"); idx > 0 {
		cut = cut[:idx]
	}
	return strings.TrimRight(cut, " \n\t") + "..."
}
