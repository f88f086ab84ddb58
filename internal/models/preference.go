package models

import (
	"encoding/json"
	"time"
)

// Preference is a single stored preference with its JSON value and the time
// it was last written.
type Preference struct {
	Key       string          `json:"key"`
	Value     json.RawMessage `json:"value"`
	UpdatedAt time.Time       `json:"updated_at"`
}
