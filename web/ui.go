package web

import (
	"embed"
	"io/fs"
	"net/http"
)

// Embed the report page
//
//go:embed static
var staticFS embed.FS

// IndexHTML returns the single-page report UI.
func IndexHTML() ([]byte, error) {
	return fs.ReadFile(staticFS, "static/index.html")
}

// ServeIndex writes the report UI.
func ServeIndex(w http.ResponseWriter, r *http.Request) {
	data, err := IndexHTML()
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
