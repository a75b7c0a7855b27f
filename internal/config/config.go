// Package config loads and persists the application configuration: provider
// credentials, base URLs, model catalogs with pricing, and the most recent
// model selection.
//
// Config files may be JSON, JSONC (comments stripped via tidwall/jsonc), or
// YAML. String values support {env:VAR} interpolation so API keys can live
// outside the file. Saving is idempotent: a save with byte-identical content
// skips the disk write.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/polychat/polychat/internal/logging"
	"github.com/polychat/polychat/pkg/types"
)

var envPattern = regexp.MustCompile(`\{env:([^}]+)\}`)

// Load reads the configuration from path. A missing file yields an empty
// config rather than an error, matching first-run behavior.
func Load(path string) (*types.Config, error) {
	cfg := &types.Config{Providers: make(map[string]types.ProviderConfig)}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			applyEnvOverrides(cfg)
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	data = interpolate(data)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	default:
		if err := json.Unmarshal(jsonc.ToJSON(data), cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if cfg.Providers == nil {
		cfg.Providers = make(map[string]types.ProviderConfig)
	}
	applyEnvOverrides(cfg)

	logging.For("config").Debug().Str("path", path).Int("providers", len(cfg.Providers)).Msg("config loaded")
	return cfg, nil
}

// Save writes the configuration to path as indented JSON. The write is
// skipped when the on-disk content is already identical.
func Save(cfg *types.Config, path string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if existing, err := os.ReadFile(path); err == nil && bytes.Equal(existing, data) {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename config: %w", err)
	}

	logging.For("config").Debug().Str("path", path).Msg("config saved")
	return nil
}

// interpolate replaces {env:VAR} placeholders with environment values.
func interpolate(data []byte) []byte {
	return envPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		name := envPattern.FindSubmatch(match)[1]
		return []byte(os.Getenv(string(name)))
	})
}

// applyEnvOverrides fills in missing API keys from the environment.
func applyEnvOverrides(cfg *types.Config) {
	providerEnvMap := map[string]string{
		types.ProviderAnthropic: "ANTHROPIC_API_KEY",
		types.ProviderOpenAI:    "OPENAI_API_KEY",
	}

	for providerID, envVar := range providerEnvMap {
		key := os.Getenv(envVar)
		if key == "" {
			continue
		}
		pc, ok := cfg.Providers[providerID]
		if !ok {
			pc = types.ProviderConfig{Models: make(map[string]types.ModelConfig)}
		}
		if pc.APIKey == "" {
			pc.APIKey = key
			cfg.Providers[providerID] = pc
		}
	}
}
