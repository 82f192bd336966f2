package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goodtune/logtime/internal/intra"
	"github.com/goodtune/logtime/internal/metrics"
	"github.com/goodtune/logtime/internal/storage"
	"github.com/rs/zerolog"
)

// ErrUnauthenticated is returned when a credential cannot be tied to a user.
var ErrUnauthenticated = errors.New("identity: not authenticated")

// ProfileSource looks up the profile that owns a user credential.
type ProfileSource interface {
	Me(ctx context.Context, token string) (*intra.Me, error)
}

// CodeExchanger trades an OAuth authorization code for a user credential.
type CodeExchanger interface {
	Exchange(ctx context.Context, code string) (string, error)
}

// Resolver maps browser credentials to registered users.
type Resolver struct {
	users    storage.UserStore
	profiles ProfileSource
	oauth    CodeExchanger
	ttl      time.Duration
	logger   zerolog.Logger
}

// NewResolver creates a resolver. ttl is how long a credential stays bound;
// it should match the cookie lifetime.
func NewResolver(users storage.UserStore, profiles ProfileSource, oauth CodeExchanger, ttl time.Duration, logger zerolog.Logger) *Resolver {
	return &Resolver{
		users:    users,
		profiles: profiles,
		oauth:    oauth,
		ttl:      ttl,
		logger:   logger.With().Str("component", "identity").Logger(),
	}
}

// Resolve returns the user for credential. Unknown credentials are checked
// against the upstream profile endpoint once and then remembered.
func (r *Resolver) Resolve(ctx context.Context, credential string) (*storage.User, error) {
	if credential == "" {
		return nil, ErrUnauthenticated
	}

	user, err := r.users.GetByCredential(ctx, credential)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("credential lookup failed: %w", err)
	}

	me, err := r.profiles.Me(ctx, credential)
	if err != nil {
		r.logger.Debug().Err(err).Msg("Credential rejected by profile lookup")
		return nil, ErrUnauthenticated
	}

	return r.register(ctx, credential, me)
}

// Login completes the OAuth callback and returns the new user credential.
func (r *Resolver) Login(ctx context.Context, code string) (string, *storage.User, error) {
	credential, err := r.oauth.Exchange(ctx, code)
	if err != nil {
		return "", nil, err
	}

	me, err := r.profiles.Me(ctx, credential)
	if err != nil {
		metrics.LoginsTotal.WithLabelValues("profile_failed").Inc()
		return "", nil, fmt.Errorf("failed to fetch profile: %w", err)
	}

	user, err := r.register(ctx, credential, me)
	if err != nil {
		metrics.LoginsTotal.WithLabelValues("error").Inc()
		return "", nil, err
	}

	metrics.LoginsTotal.WithLabelValues("ok").Inc()
	r.logger.Info().
		Int64("user_id", user.ID).
		Str("login", user.Login).
		Msg("User logged in")

	return credential, user, nil
}

// Forget drops a credential so the next request must log in again.
func (r *Resolver) Forget(ctx context.Context, credential string) error {
	if credential == "" {
		return nil
	}
	if err := r.users.UnbindCredential(ctx, credential); err != nil {
		return fmt.Errorf("failed to forget credential: %w", err)
	}
	return nil
}

func (r *Resolver) register(ctx context.Context, credential string, me *intra.Me) (*storage.User, error) {
	if err := r.users.Upsert(ctx, storage.User{
		ID:       me.ID,
		Login:    me.Login,
		Location: me.LocationLabel(),
	}); err != nil {
		return nil, fmt.Errorf("failed to register user: %w", err)
	}

	if err := r.users.BindCredential(ctx, credential, me.ID, r.ttl); err != nil {
		return nil, fmt.Errorf("failed to bind credential: %w", err)
	}

	if n, err := r.users.Count(ctx); err == nil {
		metrics.KnownUsers.Set(float64(n))
	}

	return r.users.Get(ctx, me.ID)
}
