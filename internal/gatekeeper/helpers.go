package gatekeeper

import (
	"regexp"
	"sort"
	"strings"

	"github.com/haasonsaas/memex-cli/internal/toolevent"
)

var qaRefPattern = regexp.MustCompile(`\[QA_REF\s+([A-Za-z0-9_\-]+)\]`)

// extractQARefs returns the deduplicated, sorted set of QA ids
// referenced via [QA_REF <id>] anchors in text.
func extractQARefs(text string) []string {
	matches := qaRefPattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(matches))
	for _, m := range matches {
		set[m[1]] = struct{}{}
	}
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// extractQARefsFromToolEvents scans every event's Output for QA_REF
// anchors, used alongside assistant-text scanning so tool_result bodies
// that echo a prior answer also attribute a hit.
func extractQARefsFromToolEvents(events []toolevent.Event) []string {
	set := make(map[string]struct{})
	for _, e := range events {
		if len(e.Output) == 0 {
			continue
		}
		for _, id := range extractQARefs(string(e.Output)) {
			set[id] = struct{}{}
		}
	}
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// extractFinalAnswer concatenates tool_result and assistant.output
// fragments plus the terminal event.end content, in event order, into
// the session's complete final answer.
func extractFinalAnswer(events []toolevent.Event) string {
	var b strings.Builder
	for _, e := range events {
		switch e.Kind {
		case toolevent.KindToolResult, toolevent.KindAssistantOutput, toolevent.KindEventEnd:
			b.WriteString(e.OutputString())
		}
	}
	return b.String()
}

// extractFinalReasoning concatenates assistant.reasoning fragments, in
// event order.
func extractFinalReasoning(events []toolevent.Event) string {
	var b strings.Builder
	for _, e := range events {
		if e.Kind == toolevent.KindAssistantReasoning {
			b.WriteString(e.OutputString())
		}
	}
	return b.String()
}
