package intra

import (
	"context"
	"time"

	"github.com/goodtune/logtime/internal/usage"
)

// SessionAdapter exposes a Client as the reporter's session and stats source.
type SessionAdapter struct {
	client *Client
}

// NewSessionAdapter wraps client.
func NewSessionAdapter(client *Client) *SessionAdapter {
	return &SessionAdapter{client: client}
}

// FetchSessions implements usage.SessionSource.
func (a *SessionAdapter) FetchSessions(ctx context.Context, userID int64, token string, begin, end time.Time) ([]usage.SessionRecord, error) {
	return a.client.FetchLocations(ctx, userID, token, begin, end)
}

// FetchStats implements usage.StatsSource.
func (a *SessionAdapter) FetchStats(ctx context.Context, userID int64, token string, begin, end time.Time) (map[string]any, error) {
	return a.client.FetchLocationStats(ctx, userID, token, begin, end)
}

var (
	_ usage.SessionSource = (*SessionAdapter)(nil)
	_ usage.StatsSource   = (*SessionAdapter)(nil)
)
