package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polychat/polychat/internal/event"
	"github.com/polychat/polychat/pkg/types"
)

func sampleConfig() *types.Config {
	return &types.Config{
		Providers: map[string]types.ProviderConfig{
			types.ProviderOpenAI: {
				APIKey:  "sk-test",
				BaseURL: "https://api.openai.com/v1",
				Models: map[string]types.ModelConfig{
					"gpt-4o": {
						ModelID:           "gpt-4o",
						DisplayName:       "GPT-4o",
						PriceInputTokens:  2.50,
						PriceOutputTokens: 10.00,
						MaxContextTokens:  128000,
					},
				},
			},
		},
		RecentModel: &types.RecentModel{Provider: types.ProviderOpenAI, ModelID: "gpt-4o"},
	}
}

func TestSaveAndLoad_RoundTrip(t *testing.T) {
	// Keep ambient credentials from leaking into the comparison.
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("ANTHROPIC_API_KEY", "")

	path := filepath.Join(t.TempDir(), "config.json")
	cfg := sampleConfig()

	require.NoError(t, Save(cfg, path))

	loaded, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, cfg.Providers, loaded.Providers)
	assert.Equal(t, cfg.RecentModel, loaded.RecentModel)
}

func TestSave_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	cfg := sampleConfig()

	require.NoError(t, Save(cfg, path))
	info1, err := os.Stat(path)
	require.NoError(t, err)

	// A second save with no mutation must not rewrite the file.
	require.NoError(t, Save(cfg, path))
	info2, err := os.Stat(path)
	require.NoError(t, err)
	assert.True(t, info2.ModTime().Equal(info1.ModTime()))

	cfg.SetRecentModel(types.ProviderAnthropic, "claude-sonnet-4-20250514")
	require.NoError(t, Save(cfg, path))
	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, types.ProviderAnthropic, loaded.RecentModel.Provider)
}

func TestLoad_MissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)
	assert.NotNil(t, cfg.Providers)
}

func TestLoad_JSONC(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.jsonc")
	content := `{
  // provider credentials
  "providers": {
    "openai": {"apiKey": "sk-x", "models": {}}
  }
}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sk-x", cfg.Providers[types.ProviderOpenAI].APIKey)
}

func TestLoad_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `providers:
  anthropic:
    apiKey: sk-ant
    models:
      claude-sonnet-4-20250514:
        modelId: claude-sonnet-4-20250514
        displayName: Claude Sonnet 4
        priceInputTokens: 3.0
        priceOutputTokens: 15.0
        maxContextTokens: 200000
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)
	mc, ok := cfg.GetModel(types.ProviderAnthropic, "claude-sonnet-4-20250514")
	require.True(t, ok)
	assert.Equal(t, 3.0, mc.PriceInputTokens)
}

func TestLoad_EnvInterpolation(t *testing.T) {
	t.Setenv("POLYCHAT_TEST_KEY", "sk-from-env")

	path := filepath.Join(t.TempDir(), "config.json")
	content := `{"providers":{"openai":{"apiKey":"{env:POLYCHAT_TEST_KEY}","models":{}}}}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sk-from-env", cfg.Providers[types.ProviderOpenAI].APIKey)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-env")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)
	assert.Equal(t, "sk-ant-env", cfg.Providers[types.ProviderAnthropic].APIKey)
}

func TestWatcher_ReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, Save(sampleConfig(), path))

	bus := event.NewBus()
	defer bus.Close()

	reloaded := make(chan *types.Config, 1)
	bus.Subscribe(event.ConfigReloaded, func(e event.Event) {
		if cfg, ok := e.Data.(*types.Config); ok {
			select {
			case reloaded <- cfg:
			default:
			}
		}
	})

	w, err := NewWatcher(path, bus)
	require.NoError(t, err)
	w.Start()
	defer w.Stop()

	// Give the watcher a moment to arm before mutating the file.
	time.Sleep(100 * time.Millisecond)

	cfg := sampleConfig()
	cfg.SetRecentModel(types.ProviderOpenAI, "gpt-4o-mini")
	require.NoError(t, Save(cfg, path))

	select {
	case got := <-reloaded:
		assert.Equal(t, "gpt-4o-mini", got.RecentModel.ModelID)
	case <-time.After(3 * time.Second):
		t.Fatal("config reload event not received")
	}
}
