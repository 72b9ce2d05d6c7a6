package supervisor

import (
	"encoding/json"
	"fmt"
	"time"
)

// marshalLine renders v as a single JSON line terminated with \n.
func marshalLine(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

// abortCmd is the control.abort command sent to a session's stdin
// before it is force-killed.
type abortCmd struct {
	V      int    `json:"v"`
	Type   string `json:"type"`
	TS     string `json:"ts"`
	RunID  string `json:"run_id"`
	ID     string `json:"id"`
	Reason string `json:"reason"`
	Code   string `json:"code,omitempty"`
}

// AbortSequence sends a control.abort command, waits abortGrace for
// the session to exit cleanly, then force-kills it. The grace period
// gives the wrapped assistant a chance to flush partial output and its
// own control-channel acknowledgement before the hard kill.
func AbortSequence(s *Session, reason string, abortGrace time.Duration) {
	now := time.Now().UTC()
	cmd := abortCmd{
		V:      1,
		Type:   "control.abort",
		TS:     now.Format(time.RFC3339),
		RunID:  s.runID,
		ID:     fmt.Sprintf("abort-%s-%d", s.runID, now.UnixMilli()),
		Reason: reason,
		Code:   "policy_violation",
	}
	_ = s.SendControl(cmd)

	if abortGrace > 0 {
		time.Sleep(abortGrace)
	}
	_ = s.Signal(SignalKill)
}
