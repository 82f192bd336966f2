package intra

import (
	"context"
	"fmt"
	"strings"

	"github.com/goodtune/logtime/internal/metrics"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
)

// Endpoint returns the intra OAuth2 endpoint rooted at apiURL. Client
// credentials travel in the form body.
func Endpoint(apiURL string) oauth2.Endpoint {
	base := strings.TrimRight(apiURL, "/")
	if base == "" {
		base = DefaultAPIURL
	}
	return oauth2.Endpoint{
		AuthURL:   base + "/oauth/authorize",
		TokenURL:  base + "/oauth/token",
		AuthStyle: oauth2.AuthStyleInParams,
	}
}

// OAuth runs the browser login (authorization_code grant).
type OAuth struct {
	config *oauth2.Config
	client *Client
	logger zerolog.Logger
}

// NewOAuth creates the login flow. Token requests reuse client's HTTP client.
func NewOAuth(config Config, client *Client, logger zerolog.Logger) *OAuth {
	return &OAuth{
		config: &oauth2.Config{
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			RedirectURL:  config.RedirectURI,
			Endpoint:     Endpoint(config.APIURL),
		},
		client: client,
		logger: logger.With().Str("component", "oauth").Logger(),
	}
}

// AuthCodeURL returns the URL a browser is sent to in order to log in.
func (o *OAuth) AuthCodeURL() string {
	return o.config.AuthCodeURL("")
}

// Exchange trades an authorization code for a user access token.
func (o *OAuth) Exchange(ctx context.Context, code string) (string, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, o.client.HTTPClient())

	tok, err := o.config.Exchange(ctx, code)
	if err != nil {
		metrics.LoginsTotal.WithLabelValues("exchange_failed").Inc()
		return "", fmt.Errorf("failed to exchange authorization code: %w", err)
	}
	if tok.AccessToken == "" {
		metrics.LoginsTotal.WithLabelValues("exchange_failed").Inc()
		return "", fmt.Errorf("token response has no access_token")
	}

	o.logger.Debug().Msg("Exchanged authorization code")
	return tok.AccessToken, nil
}
