package handlers

import (
	"log/slog"
	"net/http"

	"github.com/coinpulse/coinpulse/internal/dashboard"
)

// themeResponse is the body of the theme endpoints.
type themeResponse struct {
	Theme dashboard.Theme `json:"theme"`
}

// GetTheme handles GET /api/theme.
func GetTheme(page *dashboard.Page) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, themeResponse{Theme: page.Theme()})
	}
}

// ToggleTheme handles POST /api/theme/toggle. It flips the dashboard theme,
// persists it and returns the new value.
func ToggleTheme(page *dashboard.Page) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		theme, err := page.ToggleTheme(r.Context())
		if err != nil {
			slog.Error("failed to toggle theme", "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to save theme")
			return
		}

		writeJSON(w, http.StatusOK, themeResponse{Theme: theme})
	}
}

// ToggleThemeForm handles POST /theme/toggle from the dashboard's toggle
// button and redirects back to the page.
func ToggleThemeForm(page *dashboard.Page) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := page.ToggleTheme(r.Context()); err != nil {
			// The class flip already happened; only persistence failed.
			slog.Error("failed to persist toggled theme", "error", err)
		}
		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
}

// RenderPage handles GET /. It writes the current dashboard document.
func RenderPage(page *dashboard.Page) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		if err := page.Render(w); err != nil {
			slog.Error("failed to render dashboard", "error", err)
		}
	}
}
