package commands

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Life-Hackers-inc/Raycast-PromptLab/internal/config"
	"github.com/Life-Hackers-inc/Raycast-PromptLab/internal/endpoint"
	"github.com/Life-Hackers-inc/Raycast-PromptLab/internal/event"
	"github.com/Life-Hackers-inc/Raycast-PromptLab/internal/logging"
	"github.com/Life-Hackers-inc/Raycast-PromptLab/internal/native"
	"github.com/Life-Hackers-inc/Raycast-PromptLab/internal/placeholder"
	"github.com/Life-Hackers-inc/Raycast-PromptLab/internal/profile"
	"github.com/Life-Hackers-inc/Raycast-PromptLab/internal/server"
	"github.com/Life-Hackers-inc/Raycast-PromptLab/internal/session"
	"github.com/Life-Hackers-inc/Raycast-PromptLab/internal/storage"
)

var (
	servePort     int
	serveHostname string
	serveDir      string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the PromptLab HTTP server",
	Long: `Start an HTTP server exposing sessions, profiles and configuration
over a REST API with an SSE event stream.

The server watches the configuration files it loaded from and reloads
them on change; profile and endpoint edits take effect without a
restart.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to listen on (overrides config)")
	serveCmd.Flags().StringVar(&serveHostname, "hostname", "", "Hostname to bind to (overrides config)")
	serveCmd.Flags().StringVar(&serveDir, "directory", "", "Working directory for config discovery")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	workDir, err := GetWorkDir(serveDir)
	if err != nil {
		return err
	}

	paths := config.GetPaths()
	if err := paths.EnsurePaths(); err != nil {
		return err
	}

	appConfig, err := config.Load(workDir)
	if err != nil {
		return err
	}
	setupLogging(appConfig, true)

	store := storage.New(paths.StoragePath())

	engines, err := native.InitializeEngines(ctx, appConfig.Engines)
	if err != nil {
		return err
	}

	opts := placeholder.OptionsFromConfig(appConfig.Placeholders)
	if opts.WorkDir == "" {
		opts.WorkDir = workDir
	}
	resolver := placeholder.NewResolver(opts)

	profiles := profile.NewRegistry(appConfig, store)
	sessions := session.NewManager(store, endpoint.NewInvoker(engines), resolver)

	serverConfig := server.FromAppConfig(appConfig)
	if cmd.Flags().Changed("port") {
		serverConfig.Port = servePort
	}
	if cmd.Flags().Changed("hostname") {
		serverConfig.Hostname = serveHostname
	}

	srv := server.New(serverConfig, appConfig, sessions, profiles)

	// Watch config files and reload on change. Engines stay as
	// initialized at startup; a restart picks up engine changes.
	watcher, err := config.NewWatcher(workDir)
	if err != nil {
		logging.Warn().Err(err).Msg("config watcher unavailable")
	} else if watcher != nil {
		watcher.Start()
		defer watcher.Stop()
	}

	unsubscribe := event.Subscribe(event.ConfigUpdated, func(e event.Event) {
		reloaded, err := config.Load(workDir)
		if err != nil {
			logging.Error().Err(err).Msg("config reload failed")
			return
		}
		profiles.SetConfig(reloaded)
		srv.SetConfig(reloaded)
		logging.Info().Msg("configuration reloaded")
	})
	defer unsubscribe()

	go func() {
		logging.Info().
			Str("addr", srv.Addr()).
			Str("version", Version).
			Msg("server listening")
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logging.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logging.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logging.Info().Msg("server stopped")
	return nil
}
