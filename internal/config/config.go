// Package config loads the memex kernel's configuration: memory backend
// selection, policy rules, gatekeeper thresholds, and coordinator
// tuning. It follows the teacher's layered style (defaults, then a yaml
// file, then environment overrides) but is scoped to the memex domain
// rather than Nexus's full gateway/channel surface.
package config

import (
	"time"
)

// Config is the root configuration tree for the memex kernel.
type Config struct {
	ProjectID   string            `yaml:"project_id"`
	Memory      MemoryConfig      `yaml:"memory"`
	Policy      PolicyConfig      `yaml:"policy"`
	Gatekeeper  GatekeeperConfig  `yaml:"gatekeeper"`
	Coordinator CoordinatorConfig `yaml:"coordinator"`
	Logging     LoggingConfig     `yaml:"logging"`
	HTTPServer  HTTPServerConfig  `yaml:"http_server"`
	Replay      ReplayConfig      `yaml:"replay"`
}

// MemoryConfig selects and configures one of the Memory Client's three
// providers (spec.md §4.E).
type MemoryConfig struct {
	// BackendKind is "local", "remote", or "hybrid".
	BackendKind string `yaml:"backend_kind"`

	Local      LocalMemoryConfig  `yaml:"local"`
	Remote     RemoteMemoryConfig `yaml:"remote"`
	Embeddings EmbeddingsConfig   `yaml:"embeddings"`
	Sync       SyncConfig         `yaml:"sync"`
}

type LocalMemoryConfig struct {
	DBPath      string  `yaml:"db_path"`
	SearchLimit int     `yaml:"search_limit"`
	MinScore    float32 `yaml:"min_score"`
}

type RemoteMemoryConfig struct {
	URL     string        `yaml:"url"`
	APIKey  string        `yaml:"api_key"`
	Timeout time.Duration `yaml:"timeout"`
	// JWTSigningSecret, when set, causes the config builder to mint a
	// short-lived signed bearer token (golang-jwt/jwt/v5) instead of
	// sending APIKey verbatim, matching the teacher's pattern of
	// inter-service auth tokens rather than long-lived static keys.
	JWTSigningSecret string        `yaml:"jwt_signing_secret"`
	JWTSubject       string        `yaml:"jwt_subject"`
	JWTTTL           time.Duration `yaml:"jwt_ttl"`
}

type EmbeddingsConfig struct {
	// Provider is "ollama" or "openai".
	Provider  string `yaml:"provider"`
	Model     string `yaml:"model"`
	APIKey    string `yaml:"api_key"`
	BaseURL   string `yaml:"base_url"`
	OllamaURL string `yaml:"ollama_url"`
}

type SyncConfig struct {
	Interval       time.Duration `yaml:"interval"`
	ConflictPolicy string        `yaml:"conflict_policy"` // local_wins, remote_wins, newest_wins
}

// PolicyConfig configures the ConfigPolicy rule evaluator (spec.md §4.D).
type PolicyConfig struct {
	DefaultAction string       `yaml:"default_action"`
	Denylist      []RuleConfig `yaml:"denylist"`
	Allowlist     []RuleConfig `yaml:"allowlist"`
}

type RuleConfig struct {
	Tool   string `yaml:"tool"`
	Action string `yaml:"action"`
}

// GatekeeperConfig mirrors internal/gatekeeper.Config's thresholds plus
// the prompt-injection rendering knobs from internal/gatekeeper.InjectConfig.
type GatekeeperConfig struct {
	MinLevelInject           int      `yaml:"min_level_inject"`
	ActiveStatuses           []string `yaml:"active_statuses"`
	ExcludeStaleByDefault    bool     `yaml:"exclude_stale_by_default"`
	MinTrustShow             float32  `yaml:"min_trust_show"`
	MaxInject                int      `yaml:"max_inject"`
	SkipIfTop1ScoreGE        float32  `yaml:"skip_if_top1_score_ge"`
	BlockIfConsecutiveFailGE int      `yaml:"block_if_consecutive_fail_ge"`
	StrictSecretBlock        bool     `yaml:"strict_secret_block"`
	MaxAnswerChars           int      `yaml:"max_answer_chars"`
	MinAnswerChars           int      `yaml:"min_answer_chars"`

	InjectMaxItems int    `yaml:"inject_max_items"`
	InjectMaxChars int    `yaml:"inject_max_chars"`
	InjectHeader   string `yaml:"inject_header"`
}

// CoordinatorConfig tunes the Run Coordinator (spec.md §4.J).
type CoordinatorConfig struct {
	MemorySearchLimit int           `yaml:"memory_search_limit"`
	MemoryMinScore    float32       `yaml:"memory_min_score"`
	DecisionTimeout   time.Duration `yaml:"decision_timeout"`
	FailClosed        bool          `yaml:"fail_closed"`
	AbortGrace        time.Duration `yaml:"abort_grace"`
}

// LoggingConfig configures internal/obslog.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// HTTPServerConfig configures internal/httpserver.
type HTTPServerConfig struct {
	Addr           string        `yaml:"addr"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	StateFilePath  string        `yaml:"state_file_path"`
}

// ReplayConfig configures scheduled re-runs of the Replay Engine.
type ReplayConfig struct {
	// CronExpr, when set, is validated with adhocore/gronx at load
	// time. Nothing in this module schedules replay jobs from it;
	// replay runs only when requested.
	CronExpr     string `yaml:"cron_expr"`
	MaxSnapshots int    `yaml:"max_snapshots"`
}

// Default returns the configuration used when no file is loaded and no
// environment overrides are present.
func Default() Config {
	return Config{
		ProjectID: "default",
		Memory: MemoryConfig{
			BackendKind: "local",
			Local: LocalMemoryConfig{
				DBPath:      "~/.memex/memory.db",
				SearchLimit: 10,
				MinScore:    0,
			},
			Embeddings: EmbeddingsConfig{
				Provider:  "ollama",
				Model:     "nomic-embed-text",
				OllamaURL: "http://localhost:11434",
			},
			Sync: SyncConfig{
				Interval:       5 * time.Minute,
				ConflictPolicy: "newest_wins",
			},
		},
		Policy: PolicyConfig{
			DefaultAction: "allow",
		},
		Gatekeeper: GatekeeperConfig{
			MinLevelInject:           1,
			ActiveStatuses:           []string{"active"},
			ExcludeStaleByDefault:    true,
			MinTrustShow:             0.5,
			MaxInject:                3,
			SkipIfTop1ScoreGE:        0.97,
			BlockIfConsecutiveFailGE: 3,
			StrictSecretBlock:        true,
			MaxAnswerChars:           1200,
			MinAnswerChars:           200,
			InjectMaxItems:           3,
			InjectMaxChars:           4000,
			InjectHeader:             "Relevant prior answers:",
		},
		Coordinator: CoordinatorConfig{
			MemorySearchLimit: 10,
			DecisionTimeout:   2 * time.Second,
			FailClosed:        false,
			AbortGrace:        200 * time.Millisecond,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		HTTPServer: HTTPServerConfig{
			Addr:           "127.0.0.1:8742",
			RequestTimeout: 30 * time.Second,
			StateFilePath:  "~/.memex/servers/memex.state",
		},
		Replay: ReplayConfig{
			MaxSnapshots: 50,
		},
	}
}
