package commands

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/polychat/polychat/internal/config"
	"github.com/polychat/polychat/internal/logging"
	"github.com/polychat/polychat/internal/server"
)

var (
	servePort  int
	serveWatch bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the polychat HTTP server",
	Long: `Expose the chat API over HTTP, including SSE streaming of replies
and events. With --watch, the configuration file is reloaded when it
changes on disk.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 8080, "Port to listen on")
	serveCmd.Flags().BoolVar(&serveWatch, "watch", false, "Reload configuration on change")
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := bootstrap()
	if err != nil {
		return err
	}
	defer a.close()

	log := logging.For("serve")

	if serveWatch {
		watcher, err := config.NewWatcher(a.cfgPath, a.bus)
		if err != nil {
			log.Warn().Err(err).Msg("config watcher unavailable")
		} else {
			watcher.Start()
			defer watcher.Stop()
		}
	}

	cfg := server.DefaultConfig()
	cfg.Port = servePort
	srv := server.New(cfg, a.manager, a.bus)

	errCh := make(chan error, 1)
	go func() {
		log.Info().Int("port", servePort).Msg("server listening")
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			return err
		}
	}

	return nil
}
