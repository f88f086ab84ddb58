package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/coinpulse/coinpulse/internal/storage"
)

const (
	defaultHistoryLimit = 100
	maxHistoryLimit     = 1000
)

// GetSavedCoins handles GET /api/coins. It returns the latest stored quote
// for every coin.
func GetSavedCoins(store *storage.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		coins, err := store.LoadCoinData(r.Context())
		if err != nil {
			slog.Error("failed to load coin data", "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to load coin data")
			return
		}

		writeJSON(w, http.StatusOK, coins)
	}
}

// GetHistory handles GET /api/history/{coin}?limit=N. It returns the most
// recent history rows for the coin, newest first.
func GetHistory(store *storage.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		coin := chi.URLParam(r, "coin")
		if coin == "" {
			writeError(w, http.StatusBadRequest, "coin is required")
			return
		}

		limit, err := parseLimit(r, defaultHistoryLimit, maxHistoryLimit)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		history, err := store.GetHistory(r.Context(), coin, limit)
		if err != nil {
			slog.Error("failed to get price history", "coin", coin, "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to get price history")
			return
		}

		writeJSON(w, http.StatusOK, history)
	}
}
