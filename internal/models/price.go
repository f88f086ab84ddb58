package models

import "time"

// PriceInfo is a single asset's quote as returned by the CoinGecko simple
// price endpoint. Optional fields are nil when the upstream omits them.
type PriceInfo struct {
	USD           float64  `json:"usd"`
	USD24hChange  *float64 `json:"usd_24h_change,omitempty"`
	LastUpdatedAt *int64   `json:"last_updated_at,omitempty"`
}

// Quote is the per-asset payload served by GET /api/crypto. LastUpdatedAt is
// pre-formatted as "2006-01-02 15:04:05" (UTC) or "Unknown".
type Quote struct {
	USD           float64  `json:"usd"`
	USD24hChange  *float64 `json:"usd_24h_change"`
	LastUpdatedAt string   `json:"last_updated_at,omitempty"`
}

// CoinSnapshot is a stored quote for one coin, either the latest value in the
// coins table or a row of price history.
type CoinSnapshot struct {
	ID          int64      `json:"id,omitempty"`
	Name        string     `json:"name"`
	Price       float64    `json:"price"`
	Change24h   *float64   `json:"change_24h,omitempty"`
	LastUpdated *time.Time `json:"last_updated,omitempty"`
	RecordedAt  time.Time  `json:"recorded_at"`
}
