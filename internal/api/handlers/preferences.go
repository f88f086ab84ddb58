package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/coinpulse/coinpulse/internal/dashboard"
	"github.com/coinpulse/coinpulse/internal/storage"
)

// GetPreferences handles GET /api/preferences. It returns all user
// preferences as a JSON object.
func GetPreferences(store *storage.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		prefs, err := store.GetAllPreferences(ctx)
		if err != nil {
			slog.Error("failed to get preferences", "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to get preferences")
			return
		}

		writeJSON(w, http.StatusOK, prefs)
	}
}

// GetPreference handles GET /api/preferences/{key}. It returns the stored
// value along with the time it was last written.
func GetPreference(store *storage.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := chi.URLParam(r, "key")

		pref, err := store.GetPreferenceEntry(r.Context(), key)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				writeError(w, http.StatusNotFound, "Preference not found")
				return
			}
			slog.Error("failed to get preference", "key", key, "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to get preference")
			return
		}

		writeJSON(w, http.StatusOK, pref)
	}
}

// UpdatePreferences handles PUT /api/preferences. It accepts a JSON object
// where each key-value pair is saved as a separate preference. The theme is
// owned by the toggle endpoints and cannot be written here.
func UpdatePreferences(store *storage.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var body map[string]json.RawMessage
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid JSON body")
			return
		}

		if _, ok := body[dashboard.ThemeKey]; ok {
			writeError(w, http.StatusBadRequest, "Theme can only be changed with the theme toggle")
			return
		}

		if err := store.SetPreferences(ctx, body); err != nil {
			slog.Error("failed to set preferences", "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to save preferences")
			return
		}

		// Return the saved preferences.
		prefs, err := store.GetAllPreferences(ctx)
		if err != nil {
			slog.Error("failed to get preferences after save", "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to get preferences")
			return
		}

		writeJSON(w, http.StatusOK, prefs)
	}
}

// DeletePreference handles DELETE /api/preferences/{key}.
func DeletePreference(store *storage.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := chi.URLParam(r, "key")
		if key == dashboard.ThemeKey {
			writeError(w, http.StatusBadRequest, "Theme can only be changed with the theme toggle")
			return
		}

		if err := store.DeletePreference(r.Context(), key); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				writeError(w, http.StatusNotFound, "Preference not found")
				return
			}
			slog.Error("failed to delete preference", "key", key, "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to delete preference")
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
