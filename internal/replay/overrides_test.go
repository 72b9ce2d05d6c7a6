package replay

import (
	"testing"

	"github.com/haasonsaas/memex-cli/internal/gatekeeper"
)

func TestApplyOverridesSetsKnownFields(t *testing.T) {
	cfg := gatekeeper.DefaultConfig()
	out, err := ApplyOverrides(cfg, []string{
		"max_inject=5",
		"min_trust_show=0.75",
		"exclude_stale_by_default=false",
		"active_statuses=active,pending",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.MaxInject != 5 {
		t.Fatalf("expected MaxInject=5, got %d", out.MaxInject)
	}
	if out.MinTrustShow != 0.75 {
		t.Fatalf("expected MinTrustShow=0.75, got %v", out.MinTrustShow)
	}
	if out.ExcludeStaleByDefault {
		t.Fatal("expected ExcludeStaleByDefault=false")
	}
	if len(out.ActiveStatuses) != 2 || out.ActiveStatuses[0] != "active" || out.ActiveStatuses[1] != "pending" {
		t.Fatalf("expected [active pending], got %v", out.ActiveStatuses)
	}
}

func TestApplyOverridesRejectsUnknownKey(t *testing.T) {
	_, err := ApplyOverrides(gatekeeper.DefaultConfig(), []string{"min_level_fallback=2"})
	if err == nil {
		t.Fatal("expected error for unknown override key")
	}
}

func TestApplyOverridesRejectsMalformedEntry(t *testing.T) {
	_, err := ApplyOverrides(gatekeeper.DefaultConfig(), []string{"max_inject"})
	if err == nil {
		t.Fatal("expected error for malformed override")
	}
}

func TestApplyOverridesRejectsBadValue(t *testing.T) {
	_, err := ApplyOverrides(gatekeeper.DefaultConfig(), []string{"max_inject=not-a-number"})
	if err == nil {
		t.Fatal("expected error for non-numeric value")
	}
}
