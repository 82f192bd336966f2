package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/goodtune/logtime/internal/metrics"
	"github.com/goodtune/logtime/internal/storage"
	"github.com/rs/zerolog"
)

// maxStateBody caps the size of a presence update.
const maxStateBody = 64 << 10

// Clock supplies the reporting-zone time used to stamp updates.
type Clock interface {
	Now() time.Time
}

// StateHandler accepts presence updates from workstation agents.
type StateHandler struct {
	users  storage.UserStore
	clock  Clock
	logger zerolog.Logger
}

// NewStateHandler creates a new state handler.
func NewStateHandler(users storage.UserStore, clock Clock, logger zerolog.Logger) *StateHandler {
	return &StateHandler{
		users:  users,
		clock:  clock,
		logger: logger.With().Str("handler", "state").Logger(),
	}
}

// Update replaces the presence state of the named user.
func (h *StateHandler) Update(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	var req StateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxStateBody)).Decode(&req); err != nil {
		metrics.PresenceUpdatesTotal.WithLabelValues("invalid").Inc()
		WriteError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	username := strings.TrimSpace(req.Username)
	if username == "" {
		metrics.PresenceUpdatesTotal.WithLabelValues("invalid").Inc()
		WriteError(w, http.StatusBadRequest, "username required")
		return
	}

	state := req.PresenceState(h.clock.Now().Format(time.RFC3339Nano))
	if err := h.users.SetPresenceState(r.Context(), username, state); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			metrics.PresenceUpdatesTotal.WithLabelValues("unknown_user").Inc()
			WriteError(w, http.StatusNotFound, "user not found")
			return
		}
		metrics.PresenceUpdatesTotal.WithLabelValues("error").Inc()
		h.logger.Error().Err(err).Str("login", username).Msg("Failed to store presence state")
		WriteError(w, http.StatusInternalServerError, "failed to store state")
		return
	}

	metrics.PresenceUpdatesTotal.WithLabelValues("ok").Inc()
	h.logger.Debug().Str("login", username).Msg("Presence state updated")

	WriteJSON(w, http.StatusOK, map[string]interface{}{"ok": true})
}
