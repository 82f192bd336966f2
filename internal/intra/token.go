package intra

import (
	"context"
	"fmt"
	"sync"

	"github.com/goodtune/logtime/internal/metrics"
	"github.com/goodtune/logtime/internal/usage"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// AppToken is the shared application credential (client_credentials grant).
// Reads of a held credential share a read lock; grants take the write lock so
// concurrent refreshes never race.
type AppToken struct {
	mu      sync.RWMutex
	current string
	config  *clientcredentials.Config
	client  *Client
	logger  zerolog.Logger
}

// NewAppToken creates an empty credential cell; the first Token call grants.
func NewAppToken(config Config, client *Client, logger zerolog.Logger) *AppToken {
	return &AppToken{
		config: &clientcredentials.Config{
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			TokenURL:     Endpoint(config.APIURL).TokenURL,
			AuthStyle:    oauth2.AuthStyleInParams,
		},
		client: client,
		logger: logger.With().Str("component", "app-token").Logger(),
	}
}

// Token returns the current credential, granting one if none is held.
func (a *AppToken) Token(ctx context.Context) (string, error) {
	a.mu.RLock()
	current := a.current
	a.mu.RUnlock()
	if current != "" {
		return current, nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.current != "" {
		return a.current, nil
	}
	return a.grant(ctx)
}

// Refresh replaces stale. When another caller already replaced it, the newer
// credential is returned without a new grant.
func (a *AppToken) Refresh(ctx context.Context, stale string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.current != "" && a.current != stale {
		metrics.TokenRefreshesTotal.WithLabelValues("skipped").Inc()
		return a.current, nil
	}
	return a.grant(ctx)
}

// grant must be called with mu held.
func (a *AppToken) grant(ctx context.Context) (string, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, a.client.HTTPClient())

	tok, err := a.config.Token(ctx)
	if err != nil {
		metrics.TokenRefreshesTotal.WithLabelValues("error").Inc()
		return "", fmt.Errorf("client credentials grant failed: %w", err)
	}
	if tok.AccessToken == "" {
		metrics.TokenRefreshesTotal.WithLabelValues("error").Inc()
		return "", fmt.Errorf("client credentials grant returned no access_token")
	}

	a.current = tok.AccessToken
	metrics.TokenRefreshesTotal.WithLabelValues("ok").Inc()
	a.logger.Info().Msg("Acquired application token")

	return a.current, nil
}

var _ usage.TokenSource = (*AppToken)(nil)
