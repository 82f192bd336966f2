package usage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goodtune/logtime/internal/metrics"
	"github.com/rs/zerolog"
)

const (
	// DefaultTargetHours is the monthly presence target.
	DefaultTargetHours = 80

	// DefaultTimezone is the reporting zone used when none is configured.
	DefaultTimezone = "Asia/Seoul"
)

var (
	// ErrUnauthorized must be wrapped by sources when the upstream rejects
	// or expires the credential used for a fetch.
	ErrUnauthorized = errors.New("upstream credential rejected")

	// ErrReauthenticate is returned when a fetch still fails after one
	// credential refresh. Callers should make the user log in again.
	ErrReauthenticate = errors.New("re-authentication required")
)

// SessionSource fetches raw presence sessions for a user within a UTC range.
type SessionSource interface {
	FetchSessions(ctx context.Context, userID int64, token string, begin, end time.Time) ([]SessionRecord, error)
}

// StatsSource fetches upstream pre-aggregated per-day durations. Values are
// left raw because their encoding is inconsistent.
type StatsSource interface {
	FetchStats(ctx context.Context, userID int64, token string, begin, end time.Time) (map[string]any, error)
}

// TokenSource hands out the shared application credential.
type TokenSource interface {
	// Token returns the current credential, acquiring one if needed.
	Token(ctx context.Context) (string, error)
	// Refresh replaces stale with a fresh credential. If another caller has
	// already replaced it, the newer value is returned without a new grant.
	Refresh(ctx context.Context, stale string) (string, error)
}

// Config holds reporter configuration
type Config struct {
	Location    *time.Location
	TargetHours int
}

// Reporter builds month reports from upstream session data.
type Reporter struct {
	sessions    SessionSource
	stats       StatsSource
	tokens      TokenSource
	clock       Clock
	location    *time.Location
	targetHours int
	logger      zerolog.Logger
}

// NewReporter creates a new reporter. stats may be nil when the per-day
// upstream totals are not needed.
func NewReporter(sessions SessionSource, stats StatsSource, tokens TokenSource, clock Clock, config Config, logger zerolog.Logger) *Reporter {
	if config.Location == nil {
		config.Location = time.UTC
	}
	if clock == nil {
		clock = RealClock{}
	}

	return &Reporter{
		sessions:    sessions,
		stats:       stats,
		tokens:      tokens,
		clock:       clock,
		location:    config.Location,
		targetHours: config.TargetHours,
		logger:      logger.With().Str("component", "reporter").Logger(),
	}
}

// Location returns the reporting zone.
func (r *Reporter) Location() *time.Location {
	return r.location
}

// Now returns the current time in the reporting zone.
func (r *Reporter) Now() time.Time {
	return r.clock.Now().In(r.location)
}

// Report builds the current month's report for a user.
func (r *Reporter) Report(ctx context.Context, userID int64) (*MonthReport, error) {
	start := time.Now()
	now := r.Now()
	monthStart, _ := MonthWindow(now, r.location)

	var records []SessionRecord
	err := r.withAppToken(ctx, func(token string) error {
		var ferr error
		records, ferr = r.sessions.FetchSessions(ctx, userID, token, monthStart.UTC(), now.UTC())
		return ferr
	})
	if err != nil {
		outcome := "error"
		if errors.Is(err, ErrReauthenticate) {
			outcome = "reauth"
		}
		metrics.ReportsTotal.WithLabelValues(outcome).Inc()
		return nil, err
	}

	intervals := ParseSessions(records)
	if dropped := len(records) - len(intervals); dropped > 0 {
		r.logger.Warn().
			Int64("user_id", userID).
			Int("dropped", dropped).
			Msg("Skipped malformed session records")
	}

	report := BuildMonthReport(intervals, now, r.location, r.targetHours)

	metrics.ReportsTotal.WithLabelValues("ok").Inc()
	metrics.ReportBuildDuration.Observe(time.Since(start).Seconds())

	r.logger.Debug().
		Int64("user_id", userID).
		Int("sessions", len(intervals)).
		Int64("total_seconds", report.TotalSeconds).
		Float64("percent", report.Percent).
		Msg("Built month report")

	return report, nil
}

// DailyStats returns the upstream per-day totals for the current month,
// normalized to seconds. Days missing upstream are reported as zero.
func (r *Reporter) DailyStats(ctx context.Context, userID int64) ([]DayUsage, error) {
	if r.stats == nil {
		return nil, fmt.Errorf("daily stats source not configured")
	}

	now := r.Now()
	monthStart, _ := MonthWindow(now, r.location)

	var raw map[string]any
	err := r.withAppToken(ctx, func(token string) error {
		var ferr error
		raw, ferr = r.stats.FetchStats(ctx, userID, token, monthStart.UTC(), now.UTC())
		return ferr
	})
	if err != nil {
		return nil, err
	}

	days := []DayUsage{}
	last := startOfDay(now)
	for day := monthStart; !day.After(last); day = time.Date(day.Year(), day.Month(), day.Day()+1, 0, 0, 0, 0, r.location) {
		key := day.Format(DateLayout)
		seconds := ParseDuration(raw[key])
		days = append(days, DayUsage{
			Date:     key,
			Seconds:  seconds,
			Duration: FormatHMS(seconds),
		})
	}

	return days, nil
}

// withAppToken runs fn with the shared credential. An unauthorized failure
// gets exactly one refresh and one retry; a second failure of any kind means
// the caller must re-authenticate.
func (r *Reporter) withAppToken(ctx context.Context, fn func(token string) error) error {
	token, err := r.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("acquire app token: %w", err)
	}

	err = fn(token)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrUnauthorized) {
		return fmt.Errorf("fetch from upstream: %w", err)
	}

	r.logger.Warn().Err(err).Msg("Upstream rejected app token, refreshing")

	token, err = r.tokens.Refresh(ctx, token)
	if err != nil {
		r.logger.Error().Err(err).Msg("Failed to refresh app token")
		return fmt.Errorf("%w: refresh app token: %v", ErrReauthenticate, err)
	}

	if err := fn(token); err != nil {
		r.logger.Error().Err(err).Msg("Upstream fetch failed after token refresh")
		return fmt.Errorf("%w: retry after refresh: %v", ErrReauthenticate, err)
	}

	return nil
}
