// Package replay reconstructs a past session from its recorded
// control-plane and tool-event JSON lines, optionally re-runs the
// Gatekeeper decision against overridden thresholds, and reports what
// changed.
package replay

import (
	"encoding/json"

	"github.com/haasonsaas/memex-cli/internal/toolevent"
)

// WrapperEvent is a control-plane line emitted by the supervisor or its
// collaborators around a session: run lifecycle markers, memory calls,
// the memory-search snapshot, and the recorded Gatekeeper decision. It
// is distinct from a toolevent.Event, which is produced by the wrapped
// assistant itself.
type WrapperEvent struct {
	EventType string          `json:"event_type"`
	RunID     string          `json:"run_id,omitempty"`
	Timestamp string          `json:"ts,omitempty"`
	Payload   json.RawMessage `json:"-"`
	Raw       json.RawMessage `json:"-"`
}

// UnmarshalJSON decodes the known envelope fields and retains the full
// raw line for payload lookups that diff.go and report.go need
// (inject_list, signals, should_write_candidate, derived, ...).
func (w *WrapperEvent) UnmarshalJSON(data []byte) error {
	type envelope struct {
		EventType string `json:"event_type"`
		RunID     string `json:"run_id"`
		Timestamp string `json:"ts"`
	}
	var e envelope
	if err := json.Unmarshal(data, &e); err != nil {
		return err
	}
	w.EventType = e.EventType
	w.RunID = e.RunID
	w.Timestamp = e.Timestamp
	w.Raw = append([]byte(nil), data...)
	return nil
}

// Field looks up a top-level key in the wrapper event's raw JSON.
func (w *WrapperEvent) Field(key string) (json.RawMessage, bool) {
	if w == nil || len(w.Raw) == 0 {
		return nil, false
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(w.Raw, &m); err != nil {
		return nil, false
	}
	v, ok := m[key]
	return v, ok
}

// RunRecord is everything recovered about one session's replay stream.
type RunRecord struct {
	RunID              string
	RunnerStart        *WrapperEvent
	RunnerExit         *WrapperEvent
	TeeDrop            *WrapperEvent
	MemoryCalls        []WrapperEvent
	ToolEvents         []toolevent.Event
	SearchResult       *WrapperEvent
	GatekeeperDecision *WrapperEvent
	Derived            map[string]any
}
