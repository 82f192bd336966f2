package api

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/goodtune/logtime/internal/storage"
	"github.com/goodtune/logtime/internal/usage"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

// AuthorizeResponse tells the browser where to log in.
type AuthorizeResponse struct {
	AuthorizeURL string `json:"authorize_url"`
}

// TimeResponse is the month report plus the viewer's identity and state.
type TimeResponse struct {
	*usage.MonthReport
	Username string `json:"username"`
	Location string `json:"location"`
	State    any    `json:"state"`
}

// StatsResponse carries the upstream per-day totals for the month.
type StatsResponse struct {
	Year         int              `json:"year"`
	Month        int              `json:"month"`
	TotalSeconds int64            `json:"total_seconds"`
	AllTime      string           `json:"alltime"`
	Days         []usage.DayUsage `json:"days"`
}

// StateRequest is a presence update from a workstation agent.
type StateRequest struct {
	Username             string          `json:"username"`
	MonitorState         json.RawMessage `json:"monitor_state"`
	LastMonitorOffTime   json.RawMessage `json:"last_monitor_off_time"`
	LastMonitorOnTime    json.RawMessage `json:"last_monitor_on_time"`
	IsLockedScreen       json.RawMessage `json:"is_locked_screen"`
	LastScreenlockTime   json.RawMessage `json:"last_screenlock_time"`
	LastScreenunlockTime json.RawMessage `json:"last_screenunlock_time"`
}

// PresenceState converts the request into a stored state stamped updatedAt.
func (r *StateRequest) PresenceState(updatedAt string) storage.PresenceState {
	return storage.PresenceState{
		MonitorState:         r.MonitorState,
		LastMonitorOffTime:   r.LastMonitorOffTime,
		LastMonitorOnTime:    r.LastMonitorOnTime,
		IsLockedScreen:       r.IsLockedScreen,
		LastScreenlockTime:   r.LastScreenlockTime,
		LastScreenunlockTime: r.LastScreenunlockTime,
		UpdatedAt:            updatedAt,
	}
}

// WriteJSON writes a JSON response.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(data); err != nil {
		http.Error(w, `{"error":"Internal Server Error","detail":"Failed to encode response"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_, _ = w.Write(buf.Bytes())
}

// WriteError writes an error response.
func WriteError(w http.ResponseWriter, statusCode int, message string) {
	WriteJSON(w, statusCode, ErrorResponse{Error: message})
}
