package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/coinpulse/coinpulse/internal/models"
)

// timestampLayout is the format of last_updated_at in /api/crypto responses.
const timestampLayout = "2006-01-02 15:04:05"

// PriceSource fetches current prices for a set of coin ids.
type PriceSource interface {
	SimplePrice(ctx context.Context, ids []string) (map[string]models.PriceInfo, error)
}

// SnapshotRecorder stores fetched prices. It may be nil when history is
// disabled.
type SnapshotRecorder interface {
	Record(ctx context.Context, prices map[string]models.PriceInfo) (int, error)
}

// GetCrypto handles GET /api/crypto. It fetches the configured coins from the
// upstream price API and returns a map of coin id to quote, with the last
// update time formatted for display.
func GetCrypto(source PriceSource, coins []string, recorder SnapshotRecorder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		prices, err := source.SimplePrice(ctx, coins)
		if err != nil {
			slog.Error("failed to fetch coin data", "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to fetch coin data")
			return
		}

		quotes := make(map[string]models.Quote, len(prices))
		for name, info := range prices {
			quotes[name] = models.Quote{
				USD:           info.USD,
				USD24hChange:  info.USD24hChange,
				LastUpdatedAt: formatTimestamp(info.LastUpdatedAt),
			}
		}

		if recorder != nil && len(prices) > 0 {
			if _, err := recorder.Record(ctx, prices); err != nil {
				// The response does not depend on the snapshot.
				slog.Warn("failed to record fetched prices", "error", err)
			}
		}

		slog.Debug("fetched coin data", "coins", len(quotes))
		writeJSON(w, http.StatusOK, quotes)
	}
}

// formatTimestamp renders a unix timestamp in UTC, or "Unknown" when absent.
func formatTimestamp(ts *int64) string {
	if ts == nil {
		return "Unknown"
	}
	return time.Unix(*ts, 0).UTC().Format(timestampLayout)
}
