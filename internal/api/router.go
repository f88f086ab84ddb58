package api

import (
	"embed"
	"io/fs"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/coinpulse/coinpulse/internal/api/handlers"
	"github.com/coinpulse/coinpulse/internal/config"
	"github.com/coinpulse/coinpulse/internal/dashboard"
	"github.com/coinpulse/coinpulse/internal/storage"
)

//go:embed static
var staticFS embed.FS

// NewRouter creates and configures the HTTP router with the JSON API, the
// server-rendered dashboard and its static assets. recorder may be nil, in
// which case /api/crypto does not store what it fetches.
func NewRouter(store *storage.Store, source handlers.PriceSource, recorder handlers.SnapshotRecorder, page *dashboard.Page, cfg *config.Config) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware.
	r.Use(RequestLogger)
	r.Use(Recovery)
	r.Use(CORS)

	// API sub-router.
	r.Route("/api", func(api chi.Router) {
		api.Get("/crypto", handlers.GetCrypto(source, cfg.Prices.Coins, recorder))

		api.Get("/coins", handlers.GetSavedCoins(store))
		api.Get("/history/{coin}", handlers.GetHistory(store))

		api.Get("/preferences", handlers.GetPreferences(store))
		api.Put("/preferences", handlers.UpdatePreferences(store))
		api.Get("/preferences/{key}", handlers.GetPreference(store))
		api.Delete("/preferences/{key}", handlers.DeletePreference(store))

		api.Get("/theme", handlers.GetTheme(page))
		api.Post("/theme/toggle", handlers.ToggleTheme(page))
	})

	// Dashboard page and its toggle form.
	r.Get("/", handlers.RenderPage(page))
	r.Post("/theme/toggle", handlers.ToggleThemeForm(page))

	// Static assets from the embedded static/ directory.
	staticContent, _ := fs.Sub(staticFS, "static")
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticContent))))

	return r
}
