package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/haasonsaas/memex-cli/internal/toolevent"
)

func TestDefaultIsInternallyConsistent(t *testing.T) {
	cfg := Default()
	if cfg.Memory.BackendKind != "local" {
		t.Fatalf("expected local backend default, got %q", cfg.Memory.BackendKind)
	}
	if cfg.Gatekeeper.MaxInject != 3 {
		t.Fatalf("expected MaxInject=3, got %d", cfg.Gatekeeper.MaxInject)
	}
}

func TestLoadMergesFileOntoDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "memex.yaml")
	body := "project_id: acme\nmemory:\n  backend_kind: remote\n  remote:\n    url: https://memory.internal\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ProjectID != "acme" {
		t.Fatalf("expected project_id acme, got %q", cfg.ProjectID)
	}
	if cfg.Memory.BackendKind != "remote" {
		t.Fatalf("expected backend_kind remote, got %q", cfg.Memory.BackendKind)
	}
	if cfg.Memory.Remote.URL != "https://memory.internal" {
		t.Fatalf("expected remote url, got %q", cfg.Memory.Remote.URL)
	}
	// Fields absent from the file keep their Default() values.
	if cfg.Gatekeeper.MaxInject != 3 {
		t.Fatalf("expected gatekeeper defaults preserved, got %d", cfg.Gatekeeper.MaxInject)
	}
}

func TestLoadResolvesIncludes(t *testing.T) {
	dir := t.TempDir()
	basePath := filepath.Join(dir, "base.yaml")
	mainPath := filepath.Join(dir, "memex.yaml")
	if err := os.WriteFile(basePath, []byte("project_id: from-base\n"), 0o600); err != nil {
		t.Fatalf("write base: %v", err)
	}
	if err := os.WriteFile(mainPath, []byte("$include: base.yaml\nmemory:\n  backend_kind: hybrid\n"), 0o600); err != nil {
		t.Fatalf("write main: %v", err)
	}

	cfg, err := Load(mainPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ProjectID != "from-base" {
		t.Fatalf("expected project_id from included file, got %q", cfg.ProjectID)
	}
	if cfg.Memory.BackendKind != "hybrid" {
		t.Fatalf("expected backend_kind hybrid, got %q", cfg.Memory.BackendKind)
	}
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	t.Setenv("MEM_CODECLI_BACKEND_KIND", "remote")
	t.Setenv("MEM_CODECLI_MEMORY_URL", "https://env.example")
	t.Setenv("MEM_CODECLI_MEMORY_API_KEY", "secret-123")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Memory.BackendKind != "remote" {
		t.Fatalf("expected env override backend_kind remote, got %q", cfg.Memory.BackendKind)
	}
	if cfg.Memory.Remote.URL != "https://env.example" {
		t.Fatalf("expected env override url, got %q", cfg.Memory.Remote.URL)
	}
	if cfg.Memory.Remote.APIKey != "secret-123" {
		t.Fatalf("expected env override api key, got %q", cfg.Memory.Remote.APIKey)
	}
}

func TestValidateReplayCronRejectsGarbage(t *testing.T) {
	if err := ValidateReplayCron(ReplayConfig{CronExpr: ""}); err != nil {
		t.Fatalf("expected empty cron expr to be valid, got %v", err)
	}
	if err := ValidateReplayCron(ReplayConfig{CronExpr: "*/5 * * * *"}); err != nil {
		t.Fatalf("expected valid cron expr to pass, got %v", err)
	}
	if err := ValidateReplayCron(ReplayConfig{CronExpr: "not a cron expression"}); err == nil {
		t.Fatal("expected invalid cron expr to fail")
	}
}

func TestBuildPolicyDefaultsToDeny(t *testing.T) {
	p := BuildPolicy(PolicyConfig{})
	action, _ := p.Check(toolevent.Event{Kind: toolevent.KindToolRequest, Tool: "fs.delete"})
	if action != "deny" {
		t.Fatalf("expected default-deny with no configured action, got %q", action)
	}
}
