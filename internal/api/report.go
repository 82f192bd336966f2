package api

import (
	"errors"
	"net/http"

	"github.com/goodtune/logtime/internal/identity"
	"github.com/goodtune/logtime/internal/storage"
	"github.com/goodtune/logtime/internal/usage"
	"github.com/rs/zerolog"
)

// ReportHandler serves month reports to logged-in users.
type ReportHandler struct {
	identity   Identity
	reports    Reports
	authorizer Authorizer
	cookieName string
	logger     zerolog.Logger
}

// NewReportHandler creates a new report handler.
func NewReportHandler(id Identity, reports Reports, authorizer Authorizer, cookieName string, logger zerolog.Logger) *ReportHandler {
	return &ReportHandler{
		identity:   id,
		reports:    reports,
		authorizer: authorizer,
		cookieName: cookieName,
		logger:     logger.With().Str("handler", "report").Logger(),
	}
}

// MonthReport returns the current month's presence report.
func (h *ReportHandler) MonthReport(w http.ResponseWriter, r *http.Request) {
	credential, user, ok := h.authenticate(w, r)
	if !ok {
		return
	}

	report, err := h.reports.Report(r.Context(), user.ID)
	if err != nil {
		h.fail(w, r, credential, user, err)
		return
	}

	var state any = map[string]any{}
	if user.State != nil {
		state = user.State
	}

	WriteJSON(w, http.StatusOK, TimeResponse{
		MonthReport: report,
		Username:    user.Login,
		Location:    user.Location,
		State:       state,
	})
}

// DailyStats returns the upstream per-day totals for the current month.
func (h *ReportHandler) DailyStats(w http.ResponseWriter, r *http.Request) {
	credential, user, ok := h.authenticate(w, r)
	if !ok {
		return
	}

	days, err := h.reports.DailyStats(r.Context(), user.ID)
	if err != nil {
		h.fail(w, r, credential, user, err)
		return
	}

	now := h.reports.Now()
	var total int64
	for _, day := range days {
		total += day.Seconds
	}

	WriteJSON(w, http.StatusOK, StatsResponse{
		Year:         now.Year(),
		Month:        int(now.Month()),
		TotalSeconds: total,
		AllTime:      usage.FormatHMS(total),
		Days:         days,
	})
}

// authenticate resolves the request cookie, answering 401 when it cannot.
func (h *ReportHandler) authenticate(w http.ResponseWriter, r *http.Request) (string, *storage.User, bool) {
	credential := credentialFrom(r, h.cookieName)

	user, err := h.identity.Resolve(r.Context(), credential)
	if err != nil {
		if !errors.Is(err, identity.ErrUnauthenticated) {
			h.logger.Error().Err(err).Msg("Failed to resolve user")
		}
		WriteJSON(w, http.StatusUnauthorized, AuthorizeResponse{AuthorizeURL: h.authorizer.AuthCodeURL()})
		return "", nil, false
	}

	return credential, user, true
}

func (h *ReportHandler) fail(w http.ResponseWriter, r *http.Request, credential string, user *storage.User, err error) {
	if errors.Is(err, usage.ErrReauthenticate) {
		h.logger.Warn().Err(err).Str("login", user.Login).Msg("Re-authentication required")
		if ferr := h.identity.Forget(r.Context(), credential); ferr != nil {
			h.logger.Error().Err(ferr).Msg("Failed to forget credential")
		}
		clearCookie(w, h.cookieName)
		WriteJSON(w, http.StatusUnauthorized, AuthorizeResponse{AuthorizeURL: h.authorizer.AuthCodeURL()})
		return
	}

	h.logger.Error().Err(err).Str("login", user.Login).Msg("Failed to build month payload")
	WriteJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error:  "failed to build month payload",
		Detail: err.Error(),
	})
}
