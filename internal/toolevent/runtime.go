package toolevent

import (
	"encoding/json"

	"github.com/haasonsaas/memex-cli/internal/ring"
)

// Runtime wraps a Parser with run-id resolution (discovered takes
// precedence once found; the configured id is used until then) and
// forwards every parsed event to an optional EventsOutTx sink.
type Runtime struct {
	parser         Parser
	events         []Event
	sink           *ring.EventsOutTx
	configuredRun  string
	discoveredRun  string
}

// NewRuntime constructs a Runtime. sink may be nil.
func NewRuntime(parser Parser, sink *ring.EventsOutTx, configuredRunID string) *Runtime {
	return &Runtime{parser: parser, sink: sink, configuredRun: configuredRunID}
}

// EffectiveRunID returns the discovered run id if one has been seen,
// otherwise the configured run id, otherwise "".
func (r *Runtime) EffectiveRunID() string {
	if r.discoveredRun != "" {
		return r.discoveredRun
	}
	return r.configuredRun
}

// ObserveLine feeds one output line through run-id discovery and the
// parser, recording and forwarding any emitted events. Once a run id
// is discovered it is attached to all subsequently emitted events that
// lack one, and it never changes for the lifetime of the Runtime.
func (r *Runtime) ObserveLine(line string) []Event {
	if r.discoveredRun == "" {
		if id := ExtractRunID(line); id != "" {
			r.discoveredRun = id
		}
	}

	events := r.parser.ParseLine(line)
	if len(events) == 0 {
		return nil
	}

	runID := r.EffectiveRunID()
	for i := range events {
		if events[i].RunID == "" && runID != "" {
			events[i].RunID = runID
		}
		r.events = append(r.events, events[i])
		if r.sink != nil {
			b, err := json.Marshal(events[i])
			if err == nil {
				r.sink.SendLine(string(b))
			}
		}
	}
	return events
}

// TakeEvents returns and clears the events observed so far.
func (r *Runtime) TakeEvents() []Event {
	out := r.events
	r.events = nil
	return out
}

// Events returns a read-only view of the events observed so far.
func (r *Runtime) Events() []Event {
	return r.events
}
