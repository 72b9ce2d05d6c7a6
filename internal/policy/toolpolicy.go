package policy

import (
	"strings"
	"time"

	"github.com/haasonsaas/memex-cli/internal/toolevent"
)

// Action is the outcome of evaluating one tool.request event.
type Action int

const (
	// ActionAllow lets the tool call proceed.
	ActionAllow Action = iota
	// ActionDeny refuses the tool call but lets the session continue.
	ActionDeny
	// ActionAbort refuses the tool call and terminates the session.
	ActionAbort
)

// Decision is the verdict on one pending or completed tool.request.
type Decision struct {
	Action Action
	Reason string
}

// Rule is one entry of a ConfigPolicy's allow/deny lists. Tool may be an
// exact tool name, "*" (matches every tool), or end in ".*" to match a
// tool-name prefix (e.g. "fs.*").
type Rule struct {
	Tool   string
	Action string
}

// Config configures a ConfigPolicy plugin.
type Config struct {
	Denylist      []Rule
	Allowlist     []Rule
	DefaultAction string // "allow", "ask", or "deny" (default)
}

func ruleMatches(r Rule, toolName string) bool {
	if r.Tool == "*" {
		return true
	}
	if strings.HasSuffix(r.Tool, ".*") {
		prefix := strings.TrimSuffix(r.Tool, "*")
		return strings.HasPrefix(toolName, prefix)
	}
	return r.Tool == toolName
}

// ConfigPolicy evaluates a tool.request event against a static rule
// set: denylist first, then allowlist, then the configured default
// action (deny if unset).
type ConfigPolicy struct {
	cfg Config
}

// NewConfigPolicy returns a policy backed by cfg.
func NewConfigPolicy(cfg Config) *ConfigPolicy {
	return &ConfigPolicy{cfg: cfg}
}

// Check evaluates a single tool.request event.
func (p *ConfigPolicy) Check(ev toolevent.Event) (action string, reason string) {
	tool := ev.Tool
	for _, r := range p.cfg.Denylist {
		if ruleMatches(r, tool) {
			return "deny", "tool " + tool + " matches denylist rule " + r.Tool
		}
	}
	for _, r := range p.cfg.Allowlist {
		if ruleMatches(r, tool) {
			return "allow", "tool " + tool + " matches allowlist rule " + r.Tool
		}
	}
	switch p.cfg.DefaultAction {
	case "allow":
		return "allow", "default action allow"
	case "ask":
		return "ask", "default action ask"
	default:
		return "deny", "default action deny"
	}
}

// pendingDecision tracks an in-flight "ask" decision awaiting a human
// or upstream verdict before the timeout sweep turns it into a deny.
type pendingDecision struct {
	startedAt time.Time
	prompt    string
}

// Engine is a per-run policy state machine: each tool-request id moves
// from undecided to exactly one terminal decision, and that decision
// is never revisited even if the same id appears again.
//
// The underlying ConfigPolicy's "ask" verdict is treated as an
// immediate deny+abort, carrying a descriptive reason, rather than a
// true asynchronous wait: there is currently no channel back to a
// human or upstream approver mid-session. OnTick's timeout sweep
// exists for a future policy plugin that does register entries in
// pending; ConfigPolicy's "ask" path never does, so today it is
// always empty in practice.
type Engine struct {
	policy         *ConfigPolicy
	decided        map[string]Decision
	pending        map[string]pendingDecision
	decisionTimeout time.Duration
	failClosed     bool
}

// NewEngine constructs a policy Engine. failClosed controls the
// behavior on a missing tool id: true means Abort, false means
// Continue (allow the call through unauthenticated).
func NewEngine(p *ConfigPolicy, decisionTimeout time.Duration, failClosed bool) *Engine {
	return &Engine{
		policy:          p,
		decided:         make(map[string]Decision),
		pending:         make(map[string]pendingDecision),
		decisionTimeout: decisionTimeout,
		failClosed:      failClosed,
	}
}

// DecisionCmd is the policy.decision control-channel message sent back
// to the wrapped assistant's stdin in response to a tool.request.
type DecisionCmd struct {
	V      int    `json:"v"`
	Type   string `json:"type"`
	TS     string `json:"ts"`
	RunID  string `json:"run_id"`
	ID     string `json:"id"`
	Decision string `json:"decision"`
	Reason string `json:"reason,omitempty"`
}

// OnToolRequest evaluates one tool.request event, returning the control
// command to send back (if any) and the resulting session-level Action.
func (e *Engine) OnToolRequest(ev toolevent.Event, now time.Time) (*DecisionCmd, Action) {
	if ev.ID == "" {
		if e.failClosed {
			return nil, ActionAbort
		}
		return nil, ActionAllow
	}

	if d, ok := e.decided[ev.ID]; ok {
		return nil, d.Action
	}

	action, reason := e.policy.Check(ev)
	cmd := &DecisionCmd{
		V:     1,
		Type:  "policy.decision",
		TS:    now.UTC().Format(time.RFC3339),
		RunID: ev.RunID,
		ID:    ev.ID,
	}

	switch action {
	case "allow":
		cmd.Decision = "allow"
		d := Decision{Action: ActionAllow, Reason: reason}
		e.decided[ev.ID] = d
		return cmd, d.Action

	case "ask":
		askReason := "policy requires approval: " + reason
		cmd.Decision = "deny"
		cmd.Reason = askReason
		d := Decision{Action: ActionAbort, Reason: askReason}
		e.decided[ev.ID] = d
		return cmd, d.Action

	default: // deny
		cmd.Decision = "deny"
		cmd.Reason = reason
		d := Decision{Action: ActionAbort, Reason: reason}
		e.decided[ev.ID] = d
		return cmd, d.Action
	}
}

// OnTick sweeps pending asks older than decisionTimeout, denying them.
// Returns Abort if any timed-out entry requires aborting under
// fail-closed, otherwise Continue (ActionAllow).
func (e *Engine) OnTick(now time.Time) ([]DecisionCmd, Action) {
	if e.decisionTimeout <= 0 || len(e.pending) == 0 {
		return nil, ActionAllow
	}

	var cmds []DecisionCmd
	verdict := ActionAllow
	for id, pd := range e.pending {
		if now.Sub(pd.startedAt) < e.decisionTimeout {
			continue
		}
		reason := "policy decision timeout: " + pd.prompt
		e.decided[id] = Decision{Action: ActionAbort, Reason: reason}
		delete(e.pending, id)
		cmds = append(cmds, DecisionCmd{
			V: 1, Type: "policy.decision", TS: now.UTC().Format(time.RFC3339),
			ID: id, Decision: "deny", Reason: reason,
		})
		if e.failClosed {
			verdict = ActionAbort
		}
	}
	return cmds, verdict
}

// DecisionFor returns the recorded decision for a tool id, if any.
func (e *Engine) DecisionFor(id string) (Decision, bool) {
	d, ok := e.decided[id]
	return d, ok
}
