package policy

import (
	"testing"
	"time"

	"github.com/haasonsaas/memex-cli/internal/toolevent"
)

func TestConfigPolicyDenylistBeatsAllowlist(t *testing.T) {
	p := NewConfigPolicy(Config{
		Denylist:      []Rule{{Tool: "fs.write", Action: "deny"}},
		Allowlist:     []Rule{{Tool: "*", Action: "allow"}},
		DefaultAction: "allow",
	})
	action, _ := p.Check(toolevent.Event{Tool: "fs.write"})
	if action != "deny" {
		t.Fatalf("expected deny, got %s", action)
	}
}

func TestConfigPolicyPrefixWildcard(t *testing.T) {
	p := NewConfigPolicy(Config{
		Denylist: []Rule{{Tool: "shell.*"}},
	})
	action, _ := p.Check(toolevent.Event{Tool: "shell.exec"})
	if action != "deny" {
		t.Fatalf("expected deny for shell.exec, got %s", action)
	}
	action2, _ := p.Check(toolevent.Event{Tool: "fs.read"})
	if action2 != "deny" {
		t.Fatalf("expected deny (default), got %s", action2)
	}
}

func TestConfigPolicyDefaultAction(t *testing.T) {
	p := NewConfigPolicy(Config{DefaultAction: "allow"})
	action, _ := p.Check(toolevent.Event{Tool: "anything"})
	if action != "allow" {
		t.Fatalf("expected allow by default, got %s", action)
	}
}

func TestEngineDenyForbiddenToolAborts(t *testing.T) {
	p := NewConfigPolicy(Config{Denylist: []Rule{{Tool: "shell.exec"}}})
	e := NewEngine(p, time.Minute, true)

	cmd, action := e.OnToolRequest(toolevent.Event{ID: "t1", Tool: "shell.exec", RunID: "r1"}, time.Now())
	if action != ActionAbort {
		t.Fatalf("expected Abort, got %v", action)
	}
	if cmd == nil || cmd.Decision != "deny" {
		t.Fatalf("expected deny decision cmd, got %+v", cmd)
	}
}

func TestEngineMissingIDFailClosedAborts(t *testing.T) {
	p := NewConfigPolicy(Config{DefaultAction: "allow"})
	e := NewEngine(p, time.Minute, true)

	_, action := e.OnToolRequest(toolevent.Event{Tool: "fs.read"}, time.Now())
	if action != ActionAbort {
		t.Fatalf("expected Abort for missing id with fail-closed, got %v", action)
	}
}

func TestEngineMissingIDFailOpenAllows(t *testing.T) {
	p := NewConfigPolicy(Config{DefaultAction: "deny"})
	e := NewEngine(p, time.Minute, false)

	_, action := e.OnToolRequest(toolevent.Event{Tool: "fs.read"}, time.Now())
	if action != ActionAllow {
		t.Fatalf("expected Allow for missing id with fail-open, got %v", action)
	}
}

func TestEngineDecisionIsSticky(t *testing.T) {
	p := NewConfigPolicy(Config{DefaultAction: "allow"})
	e := NewEngine(p, time.Minute, true)

	_, first := e.OnToolRequest(toolevent.Event{ID: "dup", Tool: "fs.read"}, time.Now())
	_, second := e.OnToolRequest(toolevent.Event{ID: "dup", Tool: "fs.read"}, time.Now())
	if first != second {
		t.Fatalf("expected sticky decision, got %v then %v", first, second)
	}
}

func TestEngineAskCollapsesToAbort(t *testing.T) {
	p := NewConfigPolicy(Config{DefaultAction: "ask"})
	e := NewEngine(p, time.Minute, true)

	cmd, action := e.OnToolRequest(toolevent.Event{ID: "t1", Tool: "net.fetch"}, time.Now())
	if action != ActionAbort {
		t.Fatalf("expected ask to collapse into Abort, got %v", action)
	}
	if cmd.Decision != "deny" {
		t.Fatalf("expected deny decision, got %s", cmd.Decision)
	}
}
