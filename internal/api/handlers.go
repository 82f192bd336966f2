package api

import (
	"errors"
	"net/http"

	"github.com/goodtune/logtime/internal/identity"
	"github.com/goodtune/logtime/web"
)

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/time", http.StatusTemporaryRedirect)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
	})
}

// handleCallback completes the OAuth login and stores the user credential in
// a cookie.
func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		WriteError(w, http.StatusBadRequest, "code required")
		return
	}

	credential, user, err := s.identity.Login(r.Context(), code)
	if err != nil {
		s.logger.Error().Err(err).Msg("Login failed")
		WriteJSON(w, http.StatusBadGateway, ErrorResponse{
			Error:  "login failed",
			Detail: err.Error(),
		})
		return
	}

	s.logger.Debug().Str("login", user.Login).Msg("Setting session cookie")

	http.SetCookie(w, &http.Cookie{
		Name:     s.config.CookieName,
		Value:    credential,
		Path:     "/",
		MaxAge:   s.config.CookieMaxAge,
		HttpOnly: true,
		Secure:   s.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, "/time", http.StatusTemporaryRedirect)
}

// handleTimePage serves the report UI, sending anonymous visitors to log in.
func (s *Server) handleTimePage(w http.ResponseWriter, r *http.Request) {
	if _, err := s.identity.Resolve(r.Context(), credentialFrom(r, s.config.CookieName)); err != nil {
		if !errors.Is(err, identity.ErrUnauthenticated) {
			s.logger.Error().Err(err).Msg("Failed to resolve user")
		}
		http.Redirect(w, r, s.authorizer.AuthCodeURL(), http.StatusTemporaryRedirect)
		return
	}

	web.ServeIndex(w, r)
}

func credentialFrom(r *http.Request, cookieName string) string {
	cookie, err := r.Cookie(cookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

func clearCookie(w http.ResponseWriter, cookieName string) {
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
