package toolevent

import (
	"encoding/json"
	"strings"
)

// ToolStep is a human-readable summary of one tool.request, used by
// the Gatekeeper's candidate-draft "Steps" section.
type ToolStep struct {
	Title string
	Body  string
}

// ExtractToolSteps returns up to maxSteps summaries of the most recent
// tool.request events, in chronological order.
func ExtractToolSteps(events []Event, maxSteps, argsKeysMax, valueMaxChars int) []ToolStep {
	var steps []ToolStep

	for i := len(events) - 1; i >= 0 && len(steps) < maxSteps; i-- {
		e := events[i]
		if e.Kind != KindToolRequest {
			continue
		}
		tool := e.Tool
		if tool == "" {
			tool = "unknown"
		}
		action := e.Action
		if action == "" {
			action = "call"
		}
		steps = append(steps, ToolStep{
			Title: "Call tool `" + tool + "` (" + action + ")",
			Body:  "Args summary: " + summarizeArgs(e.Args, argsKeysMax, valueMaxChars),
		})
	}

	for i, j := 0, len(steps)-1; i < j; i, j = i+1, j-1 {
		steps[i], steps[j] = steps[j], steps[i]
	}
	return steps
}

var preferredArgKeys = []string{"query", "q", "path", "filepath", "file", "url", "command", "cmd", "code"}

func summarizeArgs(args json.RawMessage, argsKeysMax, valueMaxChars int) string {
	if len(args) == 0 {
		return "non-object args"
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(args, &obj); err != nil {
		return "non-object args"
	}

	for _, key := range preferredArgKeys {
		if v, ok := obj[key]; ok {
			return key + "=" + shorten(v, valueMaxChars)
		}
	}

	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
		if len(keys) >= max(argsKeysMax, 1) {
			break
		}
	}
	return "keys=[" + strings.Join(keys, ",") + "]"
}

func shorten(v json.RawMessage, valueMaxChars int) string {
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		s = string(v)
	}
	t := strings.ReplaceAll(strings.TrimSpace(s), "\n", " ")

	limit := max(valueMaxChars, 1)
	runes := []rune(t)
	if len(runes) <= limit {
		return t
	}
	take := limit - 1
	if take < 1 {
		take = 1
	}
	return string(runes[:take]) + "…"
}
