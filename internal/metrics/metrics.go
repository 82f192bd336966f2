package metrics

import (
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	// Report metrics
	ReportsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "logtime_reports_total",
			Help: "Total month reports requested, by outcome",
		},
		[]string{"outcome"},
	)

	ReportBuildDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "logtime_report_build_duration_seconds",
			Help:    "Time to fetch sessions and build a month report",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		},
	)

	// Upstream API metrics
	UpstreamRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "logtime_upstream_requests_total",
			Help: "Total requests sent to the upstream API",
		},
		[]string{"endpoint", "status"},
	)

	UpstreamRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "logtime_upstream_request_duration_seconds",
			Help:    "Upstream API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	TokenRefreshesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "logtime_app_token_refreshes_total",
			Help: "Application token grants, by result",
		},
		[]string{"result"},
	)

	// Identity metrics
	LoginsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "logtime_logins_total",
			Help: "OAuth callback logins, by result",
		},
		[]string{"result"},
	)

	// Presence state metrics
	PresenceUpdatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "logtime_presence_updates_total",
			Help: "Presence state updates received, by result",
		},
		[]string{"result"},
	)

	// Registry metrics
	KnownUsers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "logtime_known_users",
			Help: "Number of users in the in-memory registry",
		},
	)
)

func init() {
	// Register all metrics
	prometheus.MustRegister(
		ReportsTotal,
		ReportBuildDuration,
		UpstreamRequestsTotal,
		UpstreamRequestDuration,
		TokenRefreshesTotal,
		LoginsTotal,
		PresenceUpdatesTotal,
		KnownUsers,
	)
}

// Server is the metrics HTTP server
type Server struct {
	server   *http.Server
	logger   zerolog.Logger
	listener net.Listener // Optional pre-created listener (for systemd socket activation)
}

// NewServer creates a new metrics server
func NewServer(addr string, logger zerolog.Logger) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	return &Server{
		server: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
		logger: logger.With().Str("component", "metrics").Logger(),
	}
}

// SetListener sets a pre-created listener for systemd socket activation
func (s *Server) SetListener(ln net.Listener) {
	s.listener = ln
}

// Start starts the metrics server
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.server.Addr).Msg("Starting metrics server")
	go func() {
		var err error
		if s.listener != nil {
			s.logger.Debug().Msg("Using systemd socket-activated metrics listener")
			err = s.server.Serve(s.listener)
		} else {
			err = s.server.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("Metrics server error")
		}
	}()
	return nil
}

// Stop stops the metrics server
func (s *Server) Stop() error {
	s.logger.Info().Msg("Stopping metrics server")
	return s.server.Close()
}
