package replay

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/haasonsaas/memex-cli/internal/gatekeeper"
)

// ApplyOverrides parses "key=value" strings and applies them to a copy
// of cfg, returning the modified copy. Each key must name a field of
// gatekeeper.Config; an unknown key or unparseable value is an error.
func ApplyOverrides(cfg gatekeeper.Config, overrides []string) (gatekeeper.Config, error) {
	for _, raw := range overrides {
		key, val, ok := strings.Cut(raw, "=")
		key = strings.TrimSpace(key)
		val = strings.TrimSpace(val)
		if !ok || key == "" || val == "" {
			return cfg, fmt.Errorf("replay: invalid override: %s", raw)
		}

		var err error
		switch key {
		case "max_inject":
			cfg.MaxInject, err = parseInt(key, val)
		case "min_level_inject":
			cfg.MinLevelInject, err = parseInt(key, val)
		case "min_trust_show":
			cfg.MinTrustShow, err = parseFloat32(key, val)
		case "block_if_consecutive_fail_ge":
			cfg.BlockIfConsecutiveFailGE, err = parseInt(key, val)
		case "skip_if_top1_score_ge":
			cfg.SkipIfTop1ScoreGE, err = parseFloat32(key, val)
		case "exclude_stale_by_default":
			cfg.ExcludeStaleByDefault, err = parseBool(key, val)
		case "strict_secret_block":
			cfg.StrictSecretBlock, err = parseBool(key, val)
		case "max_answer_chars":
			cfg.MaxAnswerChars, err = parseInt(key, val)
		case "min_answer_chars":
			cfg.MinAnswerChars, err = parseInt(key, val)
		case "active_statuses":
			cfg.ActiveStatuses = parseStatuses(val)
		default:
			return cfg, fmt.Errorf("replay: unknown gatekeeper override: %s", key)
		}
		if err != nil {
			return cfg, err
		}
	}

	return cfg, nil
}

func parseInt(key, val string) (int, error) {
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("replay: invalid %s: %s", key, val)
	}
	return n, nil
}

func parseFloat32(key, val string) (float32, error) {
	f, err := strconv.ParseFloat(val, 32)
	if err != nil {
		return 0, fmt.Errorf("replay: invalid %s: %s", key, val)
	}
	return float32(f), nil
}

func parseBool(key, val string) (bool, error) {
	switch val {
	case "true", "1":
		return true, nil
	case "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("replay: invalid %s: %s", key, val)
	}
}

func parseStatuses(val string) []string {
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
