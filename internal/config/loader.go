package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/haasonsaas/memex-cli/internal/kernelerr"
)

const includeKey = "$include"

// Load reads path (if non-empty) into a Config layered over Default(),
// resolving $include directives the way the teacher's loader.go does,
// then applies the three documented environment overrides (spec.md §6):
// MEM_CODECLI_BACKEND_KIND, MEM_CODECLI_MEMORY_URL,
// MEM_CODECLI_MEMORY_API_KEY.
func Load(path string) (Config, error) {
	cfg := Default()
	if strings.TrimSpace(path) != "" {
		raw, err := loadRawRecursive(path, map[string]bool{})
		if err != nil {
			return cfg, kernelerr.New(kernelerr.Config, fmt.Sprintf("load %s", path), err)
		}
		if err := decodeOnto(&cfg, raw); err != nil {
			return cfg, kernelerr.New(kernelerr.Config, fmt.Sprintf("parse %s", path), err)
		}
	}
	applyEnvOverrides(&cfg)
	if err := ValidateReplayCron(cfg.Replay); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func loadRawRecursive(path string, seen map[string]bool) (map[string]any, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if seen[absPath] {
		return nil, fmt.Errorf("config include cycle detected at %s", absPath)
	}
	seen[absPath] = true
	defer delete(seen, absPath)

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, err
	}
	expanded := os.ExpandEnv(string(data))
	raw, err := parseRawYAML([]byte(expanded))
	if err != nil {
		return nil, err
	}

	includes, err := extractIncludes(raw)
	if err != nil {
		return nil, err
	}

	merged := map[string]any{}
	if len(includes) > 0 {
		baseDir := filepath.Dir(absPath)
		for _, inc := range includes {
			if strings.TrimSpace(inc) == "" {
				continue
			}
			incPath := inc
			if !filepath.IsAbs(incPath) {
				incPath = filepath.Join(baseDir, incPath)
			}
			incRaw, err := loadRawRecursive(incPath, seen)
			if err != nil {
				return nil, err
			}
			merged = mergeMaps(merged, incRaw)
		}
	}

	merged = mergeMaps(merged, raw)
	return merged, nil
}

func parseRawYAML(data []byte) (map[string]any, error) {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	var raw map[string]any
	if err := decoder.Decode(&raw); err != nil && err != io.EOF {
		return nil, err
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return nil, fmt.Errorf("expected a single YAML document")
	}
	if raw == nil {
		raw = map[string]any{}
	}
	return raw, nil
}

func extractIncludes(raw map[string]any) ([]string, error) {
	val, ok := raw[includeKey]
	if !ok {
		return nil, nil
	}
	delete(raw, includeKey)

	switch typed := val.(type) {
	case string:
		return []string{typed}, nil
	case []any:
		paths := make([]string, 0, len(typed))
		for _, entry := range typed {
			s, ok := entry.(string)
			if !ok {
				return nil, fmt.Errorf("%s entries must be strings", includeKey)
			}
			paths = append(paths, s)
		}
		return paths, nil
	default:
		return nil, fmt.Errorf("%s must be a string or list of strings", includeKey)
	}
}

func mergeMaps(dst, src map[string]any) map[string]any {
	if dst == nil {
		dst = map[string]any{}
	}
	for key, value := range src {
		if valueMap, ok := value.(map[string]any); ok {
			if existing, ok := dst[key].(map[string]any); ok {
				dst[key] = mergeMaps(existing, valueMap)
				continue
			}
		}
		dst[key] = value
	}
	return dst
}

// decodeOnto merges raw YAML onto an already-defaulted Config in place,
// so fields absent from the file keep their Default() values rather
// than being zeroed by a fresh yaml.Unmarshal.
func decodeOnto(cfg *Config, raw map[string]any) error {
	payload, err := yaml.Marshal(raw)
	if err != nil {
		return err
	}
	decoder := yaml.NewDecoder(bytes.NewReader(payload))
	if err := decoder.Decode(cfg); err != nil && err != io.EOF {
		return err
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("MEM_CODECLI_BACKEND_KIND"); v != "" {
		cfg.Memory.BackendKind = v
	}
	if v := os.Getenv("MEM_CODECLI_MEMORY_URL"); v != "" {
		cfg.Memory.Remote.URL = v
	}
	if v := os.Getenv("MEM_CODECLI_MEMORY_API_KEY"); v != "" {
		cfg.Memory.Remote.APIKey = v
	}
}
