package toolevent

import (
	"encoding/json"
	"strings"
)

// runIDKeys is the priority order in which a run identifier is
// discovered from an arbitrary JSON line.
var runIDKeys = []string{"session_id", "sessionId", "run_id", "runId", "thread_id"}

// ExtractRunID returns the first recognized run-id field present in an
// arbitrary JSON object line, or "" if none is found or the line isn't
// a JSON object.
func ExtractRunID(line string) string {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "{") {
		return ""
	}
	var v map[string]json.RawMessage
	if err := json.Unmarshal([]byte(trimmed), &v); err != nil {
		return ""
	}
	for _, key := range runIDKeys {
		raw, ok := v[key]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			continue
		}
		s = strings.TrimSpace(s)
		if s != "" {
			return s
		}
	}
	return ""
}
