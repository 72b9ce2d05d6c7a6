package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/adhocore/gronx"
	"github.com/golang-jwt/jwt/v5"

	"github.com/haasonsaas/memex-cli/internal/gatekeeper"
	"github.com/haasonsaas/memex-cli/internal/kernelerr"
	"github.com/haasonsaas/memex-cli/internal/memory"
	"github.com/haasonsaas/memex-cli/internal/memory/embeddings"
	"github.com/haasonsaas/memex-cli/internal/memory/embeddings/ollama"
	"github.com/haasonsaas/memex-cli/internal/memory/embeddings/openai"
	"github.com/haasonsaas/memex-cli/internal/policy"
)

// BuildMemoryPlugin constructs the memory.Plugin named by
// cfg.Memory.BackendKind ("local", "remote", or "hybrid"), wiring an
// embeddings provider for any backend that needs one.
func BuildMemoryPlugin(ctx context.Context, cfg Config, logger *slog.Logger) (memory.Plugin, error) {
	switch cfg.Memory.BackendKind {
	case "", "local":
		embedder, err := buildEmbedder(cfg.Memory.Embeddings)
		if err != nil {
			return nil, kernelerr.New(kernelerr.Config, "embeddings provider", err)
		}
		plugin, err := memory.NewLocalPlugin(ctx, memory.LocalConfig{
			DBPath:      expandHome(cfg.Memory.Local.DBPath),
			SearchLimit: cfg.Memory.Local.SearchLimit,
			MinScore:    cfg.Memory.Local.MinScore,
		}, embedder)
		if err != nil {
			return nil, kernelerr.New(kernelerr.Plugin, "open local memory store", err)
		}
		return plugin, nil

	case "remote":
		apiKey, err := remoteBearerToken(cfg.Memory.Remote, cfg.ProjectID)
		if err != nil {
			return nil, kernelerr.New(kernelerr.Config, "sign remote memory bearer token", err)
		}
		return memory.NewRemotePlugin(memory.RemoteConfig{
			BaseURL: cfg.Memory.Remote.URL,
			APIKey:  apiKey,
			Timeout: cfg.Memory.Remote.Timeout,
		}), nil

	case "hybrid":
		embedder, err := buildEmbedder(cfg.Memory.Embeddings)
		if err != nil {
			return nil, kernelerr.New(kernelerr.Config, "embeddings provider", err)
		}
		local, err := memory.NewLocalPlugin(ctx, memory.LocalConfig{
			DBPath:      expandHome(cfg.Memory.Local.DBPath),
			SearchLimit: cfg.Memory.Local.SearchLimit,
			MinScore:    cfg.Memory.Local.MinScore,
		}, embedder)
		if err != nil {
			return nil, kernelerr.New(kernelerr.Plugin, "open local memory store", err)
		}
		apiKey, err := remoteBearerToken(cfg.Memory.Remote, cfg.ProjectID)
		if err != nil {
			return nil, kernelerr.New(kernelerr.Config, "sign remote memory bearer token", err)
		}
		return memory.NewHybridPlugin(ctx, memory.HybridConfig{
			Local:          memory.LocalConfig{DBPath: expandHome(cfg.Memory.Local.DBPath)},
			RemoteBaseURL:  cfg.Memory.Remote.URL,
			RemoteAPIKey:   apiKey,
			RemoteTimeout:  cfg.Memory.Remote.Timeout,
			SyncInterval:   cfg.Memory.Sync.Interval,
			ConflictPolicy: conflictPolicyFromString(cfg.Memory.Sync.ConflictPolicy),
		}, local, logger), nil

	default:
		return nil, kernelerr.New(kernelerr.Config, fmt.Sprintf("unknown memory.backend_kind %q", cfg.Memory.BackendKind), nil)
	}
}

func buildEmbedder(cfg EmbeddingsConfig) (embeddings.Provider, error) {
	switch cfg.Provider {
	case "", "ollama":
		url := cfg.OllamaURL
		if url == "" {
			url = "http://localhost:11434"
		}
		model := cfg.Model
		if model == "" {
			model = "nomic-embed-text"
		}
		return ollama.New(ollama.Config{BaseURL: url, Model: model})
	case "openai":
		return openai.New(openai.Config{APIKey: cfg.APIKey, BaseURL: cfg.BaseURL, Model: cfg.Model})
	default:
		return nil, fmt.Errorf("unknown embeddings.provider %q", cfg.Provider)
	}
}

// remoteBearerToken signs a short-lived JWT for remote memory sync auth
// when cfg.JWTSigningSecret is configured, grounded on the teacher's use
// of golang-jwt for inter-service auth rather than passing a static
// API key over the wire. Falls back to the raw APIKey when no signing
// secret is set, so a plain shared-secret deployment still works.
func remoteBearerToken(cfg RemoteMemoryConfig, projectID string) (string, error) {
	if cfg.JWTSigningSecret == "" {
		return cfg.APIKey, nil
	}
	ttl := cfg.JWTTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	subject := cfg.JWTSubject
	if subject == "" {
		subject = projectID
	}
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(cfg.JWTSigningSecret))
}

func conflictPolicyFromString(s string) memory.ConflictPolicy {
	switch s {
	case "local_wins":
		return memory.ConflictLocalWins
	case "remote_wins":
		return memory.ConflictRemoteWins
	default:
		return memory.ConflictNewestWins
	}
}

// BuildPolicy constructs the ConfigPolicy rule evaluator (spec.md §4.D).
func BuildPolicy(cfg PolicyConfig) *policy.ConfigPolicy {
	toRules := func(rules []RuleConfig) []policy.Rule {
		out := make([]policy.Rule, len(rules))
		for i, r := range rules {
			out[i] = policy.Rule{Tool: r.Tool, Action: r.Action}
		}
		return out
	}
	defaultAction := cfg.DefaultAction
	if defaultAction == "" {
		defaultAction = "deny"
	}
	return policy.NewConfigPolicy(policy.Config{
		Denylist:      toRules(cfg.Denylist),
		Allowlist:     toRules(cfg.Allowlist),
		DefaultAction: defaultAction,
	})
}

// BuildGatekeeperConfig converts the file-facing GatekeeperConfig into
// internal/gatekeeper.Config.
func BuildGatekeeperConfig(cfg GatekeeperConfig) gatekeeper.Config {
	return gatekeeper.Config{
		MinLevelInject:           cfg.MinLevelInject,
		ActiveStatuses:           cfg.ActiveStatuses,
		ExcludeStaleByDefault:    cfg.ExcludeStaleByDefault,
		MinTrustShow:             cfg.MinTrustShow,
		MaxInject:                cfg.MaxInject,
		SkipIfTop1ScoreGE:        cfg.SkipIfTop1ScoreGE,
		BlockIfConsecutiveFailGE: cfg.BlockIfConsecutiveFailGE,
		StrictSecretBlock:        cfg.StrictSecretBlock,
		MaxAnswerChars:           cfg.MaxAnswerChars,
		MinAnswerChars:           cfg.MinAnswerChars,
	}
}

// BuildInjectConfig converts GatekeeperConfig's inject knobs into
// internal/gatekeeper.InjectConfig.
func BuildInjectConfig(cfg GatekeeperConfig) gatekeeper.InjectConfig {
	maxItems := cfg.InjectMaxItems
	if maxItems <= 0 {
		maxItems = 3
	}
	maxChars := cfg.InjectMaxChars
	if maxChars <= 0 {
		maxChars = 900
	}
	return gatekeeper.InjectConfig{
		Placement:       gatekeeper.InjectPlacementSystem,
		MaxItems:        maxItems,
		MaxAnswerChars:  maxChars,
		IncludeMetaLine: true,
	}
}

// ValidateReplayCron checks cfg.CronExpr, if set, with adhocore/gronx —
// the same library vanducng-goclaw uses to validate its own scheduler
// expressions. Load calls it after decoding and environment overrides.
func ValidateReplayCron(cfg ReplayConfig) error {
	if strings.TrimSpace(cfg.CronExpr) == "" {
		return nil
	}
	if !gronx.IsValid(cfg.CronExpr) {
		return kernelerr.New(kernelerr.Config, fmt.Sprintf("invalid replay.cron_expr %q", cfg.CronExpr), nil)
	}
	return nil
}

// expandHome replaces a leading "~" with the user's home directory, the
// way every memex-domain config value that names a filesystem path
// needs to (db_path, state_file_path).
func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return home + strings.TrimPrefix(path, "~")
}

// ParsePositiveInt parses s as a positive int, returning fallback for an
// empty or invalid string. Used by CLI flag defaults sourced from env.
func ParsePositiveInt(s string, fallback int) int {
	if s == "" {
		return fallback
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
