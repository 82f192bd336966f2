package api

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/goodtune/logtime/internal/storage"
	"github.com/goodtune/logtime/internal/usage"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

// Config holds the HTTP server configuration.
type Config struct {
	ListenAddr     string
	CookieName     string
	CookieMaxAge   int
	CookieSecure   bool
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	RateLimit      int
	AllowedOrigins []string
}

// Identity resolves and manages browser logins.
type Identity interface {
	Resolve(ctx context.Context, credential string) (*storage.User, error)
	Login(ctx context.Context, code string) (string, *storage.User, error)
	Forget(ctx context.Context, credential string) error
}

// Reports builds month reports for users.
type Reports interface {
	Report(ctx context.Context, userID int64) (*usage.MonthReport, error)
	DailyStats(ctx context.Context, userID int64) ([]usage.DayUsage, error)
	Now() time.Time
}

// Authorizer produces the OAuth login URL.
type Authorizer interface {
	AuthCodeURL() string
}

// Server is the public HTTP server.
type Server struct {
	config      Config
	identity    Identity
	reports     Reports
	authorizer  Authorizer
	users       storage.UserStore
	rateLimiter *RateLimiter
	router      *mux.Router
	server      *http.Server
	listener    net.Listener // Optional pre-created listener (for systemd socket activation)
	logger      zerolog.Logger
}

// NewServer creates a new HTTP server.
func NewServer(cfg Config, identity Identity, reports Reports, authorizer Authorizer, users storage.UserStore, logger zerolog.Logger) *Server {
	if cfg.CookieName == "" {
		cfg.CookieName = "access_token"
	}
	if cfg.CookieMaxAge <= 0 {
		cfg.CookieMaxAge = 3600
	}

	s := &Server{
		config:     cfg,
		identity:   identity,
		reports:    reports,
		authorizer: authorizer,
		users:      users,
		router:     mux.NewRouter(),
		logger:     logger.With().Str("component", "http").Logger(),
	}

	if cfg.RateLimit > 0 {
		s.rateLimiter = NewRateLimiter(cfg.RateLimit, time.Minute)
	}

	s.setupRoutes()

	s.server = &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Use(LoggingMiddleware(s.logger))
	if s.rateLimiter != nil {
		s.router.Use(RateLimitMiddleware(s.rateLimiter))
	}
	if len(s.config.AllowedOrigins) > 0 {
		s.router.Use(CORSMiddleware(s.config.AllowedOrigins))
	}

	s.router.HandleFunc("/", s.handleRoot).Methods("GET")
	s.router.HandleFunc("/callback", s.handleCallback).Methods("GET")
	s.router.HandleFunc("/time", s.handleTimePage).Methods("GET")
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")

	reportHandler := NewReportHandler(s.identity, s.reports, s.authorizer, s.config.CookieName, s.logger)
	s.router.HandleFunc("/api/time", reportHandler.MonthReport).Methods("GET")
	s.router.HandleFunc("/api/stats", reportHandler.DailyStats).Methods("GET")

	stateHandler := NewStateHandler(s.users, s.reports, s.logger)
	s.router.HandleFunc("/api/state", stateHandler.Update).Methods("POST", "OPTIONS")
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// SetListener sets a pre-created listener for systemd socket activation
func (s *Server) SetListener(ln net.Listener) {
	s.listener = ln
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.config.ListenAddr).Msg("Starting HTTP server")

	go func() {
		var err error
		if s.listener != nil {
			s.logger.Debug().Msg("Using systemd socket-activated HTTP listener")
			err = s.server.Serve(s.listener)
		} else {
			err = s.server.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("HTTP server error")
		}
	}()

	return nil
}

// Stop gracefully stops the HTTP server.
func (s *Server) Stop() error {
	s.logger.Info().Msg("Stopping HTTP server")

	if s.rateLimiter != nil {
		s.rateLimiter.Close()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}

	return nil
}
