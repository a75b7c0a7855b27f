// Package commands provides the CLI commands for polychat.
package commands

import (
	"fmt"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/polychat/polychat/internal/chat"
	"github.com/polychat/polychat/internal/config"
	"github.com/polychat/polychat/internal/event"
	"github.com/polychat/polychat/internal/logging"
	"github.com/polychat/polychat/internal/provider"
	"github.com/polychat/polychat/internal/storage"
	"github.com/polychat/polychat/internal/usagelog"
)

// Version information set at build time
var (
	Version   = "0.1.0"
	BuildTime = "dev"
)

// Global flags
var (
	logLevel  string
	prettyLog bool
)

var rootCmd = &cobra.Command{
	Use:   "polychat",
	Short: "polychat - multi-provider LLM chat client",
	Long: `polychat lets you converse with several hosted LLM APIs (OpenAI,
Anthropic, and OpenAI-compatible providers) through one interface,
persisting conversation history and tracking token usage and cost.

Run 'polychat run' for a one-shot question, or 'polychat serve' to
expose the chat API over HTTP.`,
	Version: Version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// .env is optional
		_ = godotenv.Load()
		logging.Init(logging.Config{
			Level:  logging.ParseLevel(logLevel),
			Pretty: prettyLog,
		})
	},
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "INFO", "Log level (DEBUG|INFO|WARN|ERROR)")
	rootCmd.PersistentFlags().BoolVar(&prettyLog, "pretty", false, "Human-readable log output")

	rootCmd.SetVersionTemplate(fmt.Sprintf("polychat %s (%s)\n", Version, BuildTime))

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(modelsCmd)
	rootCmd.AddCommand(chatsCmd)
	rootCmd.AddCommand(serveCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// app bundles everything the commands need after bootstrap.
type app struct {
	manager *chat.Manager
	bus     *event.Bus
	cfgPath string
}

func (a *app) close() {
	a.bus.Close()
}

// bootstrap loads configuration, opens storage, and builds the chat
// manager.
func bootstrap() (*app, error) {
	paths := config.GetPaths()
	if err := paths.EnsurePaths(); err != nil {
		return nil, err
	}

	cfgPath := config.DefaultConfigPath()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	store := storage.New(paths.StoragePath())
	registry := provider.InitializeProviders(cfg)
	bus := event.NewBus()

	manager, err := chat.NewManager(cfg, cfgPath, store, registry, bus)
	if err != nil {
		bus.Close()
		return nil, err
	}
	manager.SetUsageLogger(usagelog.New(filepath.Join(paths.Data, "logs", "model_usage.csv")))

	return &app{manager: manager, bus: bus, cfgPath: cfgPath}, nil
}
