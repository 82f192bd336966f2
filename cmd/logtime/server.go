package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goodtune/logtime/internal/api"
	"github.com/goodtune/logtime/internal/config"
	"github.com/goodtune/logtime/internal/identity"
	"github.com/goodtune/logtime/internal/intra"
	"github.com/goodtune/logtime/internal/metrics"
	"github.com/goodtune/logtime/internal/storage"
	"github.com/goodtune/logtime/internal/storage/memory"
	"github.com/goodtune/logtime/internal/storage/redis"
	"github.com/goodtune/logtime/internal/systemd"
	"github.com/goodtune/logtime/internal/usage"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the logtime server",
	Long:  `Start the logtime HTTP server, OAuth login flow, and metrics endpoint.`,
	RunE:  runServer,
}

func init() {
	rootCmd.AddCommand(serverCmd)
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := setupLogger(cfg.Logging)
	log.Logger = logger

	logger.Info().
		Str("version", version).
		Str("config", configPath).
		Msg("Starting logtime")

	if cfg.Intra.ClientID == "" || cfg.Intra.ClientSecret == "" {
		return fmt.Errorf("intra client_id and client_secret are required to run the server")
	}

	location, err := cfg.Location()
	if err != nil {
		return fmt.Errorf("failed to load report timezone: %w", err)
	}

	// Check for systemd socket activation
	sdListeners, err := systemd.GetListeners()
	if err != nil {
		return fmt.Errorf("failed to get systemd listeners: %w", err)
	}
	if sdListeners.Activated {
		logger.Info().Msg("Running with systemd socket activation")
	}

	store, err := openStorage(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error().Err(err).Msg("Failed to close storage")
		}
	}()

	if count, err := store.Users().Count(context.Background()); err == nil {
		metrics.KnownUsers.Set(float64(count))
	}

	logger.Info().
		Str("type", cfg.Storage.Type).
		Msg("Storage initialized")

	intraConfig := intraConfigFrom(cfg)
	client := intra.NewClient(intraConfig, logger)
	oauth := intra.NewOAuth(intraConfig, client, logger)
	appToken := intra.NewAppToken(intraConfig, client, logger)
	sessions := intra.NewSessionAdapter(client)

	reporter := usage.NewReporter(sessions, sessions, appToken, usage.RealClock{}, usage.Config{
		Location:    location,
		TargetHours: cfg.Report.TargetHours,
	}, logger)

	resolver := identity.NewResolver(store.Users(), client, oauth, cfg.SessionTTL(), logger)

	logger.Info().
		Str("api_url", cfg.Intra.APIURL).
		Str("redirect_uri", cfg.Intra.RedirectURI).
		Str("timezone", location.String()).
		Int("target_hours", cfg.Report.TargetHours).
		Msg("Upstream client initialized")

	httpAddr := fmt.Sprintf("%s:%d", cfg.Server.BindAddress, cfg.Server.HTTPPort)
	httpServer := api.NewServer(api.Config{
		ListenAddr:     httpAddr,
		CookieName:     cfg.Session.CookieName,
		CookieMaxAge:   cfg.Session.MaxAge,
		CookieSecure:   cfg.Session.Secure,
		ReadTimeout:    parseDuration(cfg.Server.ReadTimeout, 15*time.Second),
		WriteTimeout:   parseDuration(cfg.Server.WriteTimeout, 60*time.Second),
		RateLimit:      cfg.Server.RateLimit,
		AllowedOrigins: cfg.Server.CORSOrigins,
	}, resolver, reporter, oauth, store.Users(), logger)

	if sdListeners.Activated && sdListeners.HTTP != nil {
		httpServer.SetListener(sdListeners.HTTP)
	}

	if err := httpServer.Start(); err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	var metricsServer *metrics.Server
	if cfg.Server.MetricsPort > 0 || (sdListeners.Activated && sdListeners.Metrics != nil) {
		metricsAddr := fmt.Sprintf("%s:%d", cfg.Server.BindAddress, cfg.Server.MetricsPort)
		metricsServer = metrics.NewServer(metricsAddr, logger)

		if sdListeners.Activated && sdListeners.Metrics != nil {
			metricsServer.SetListener(sdListeners.Metrics)
		}

		if err := metricsServer.Start(); err != nil {
			return fmt.Errorf("failed to start metrics server: %w", err)
		}
	}

	logger.Info().
		Str("http", httpAddr).
		Str("base_url", cfg.Server.BaseURL).
		Msg("logtime startup complete")

	if err := systemd.NotifyReady(); err != nil {
		logger.Warn().Err(err).Msg("Failed to send systemd ready notification")
	} else {
		logger.Debug().Msg("Sent systemd ready notification")
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan

	logger.Info().Str("signal", sig.String()).Msg("Shutdown signal received, gracefully stopping...")

	if err := systemd.NotifyStopping(); err != nil {
		logger.Warn().Err(err).Msg("Failed to send systemd stopping notification")
	}

	if err := httpServer.Stop(); err != nil {
		logger.Error().Err(err).Msg("Error stopping HTTP server")
	}

	if metricsServer != nil {
		if err := metricsServer.Stop(); err != nil {
			logger.Error().Err(err).Msg("Error stopping metrics server")
		}
	}

	logger.Info().Msg("logtime stopped")

	return nil
}

func openStorage(cfg *config.Config) (storage.Store, error) {
	switch cfg.Storage.Type {
	case "", "memory":
		return memory.Open(memory.Config{
			MaxCredentials: cfg.Storage.MaxCredentials,
			CredentialTTL:  cfg.SessionTTL(),
		}), nil
	case "redis":
		return redis.Open(cfg.Storage.Redis)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Storage.Type)
	}
}

func intraConfigFrom(cfg *config.Config) intra.Config {
	return intra.Config{
		APIURL:       cfg.Intra.APIURL,
		ClientID:     cfg.Intra.ClientID,
		ClientSecret: cfg.Intra.ClientSecret,
		RedirectURI:  cfg.Intra.RedirectURI,
		PageSize:     cfg.Intra.PageSize,
		Timeout:      cfg.IntraTimeout(),
	}
}

// quietLogger is used by one-shot commands so that only failures reach the
// terminal.
func quietLogger() zerolog.Logger {
	return zerolog.New(os.Stderr).Level(zerolog.ErrorLevel).With().Timestamp().Logger()
}
