package dashboard

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/coinpulse/coinpulse/internal/models"
)

// Direction is the styling class of a card's 24h change.
type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

// updatedLayout matches the last_updated_at format served by /api/crypto.
const updatedLayout = "2006-01-02 15:04:05"

// Card is the rendered view of one asset.
type Card struct {
	Name      string
	Title     string
	Price     string // two decimals, without the currency sign
	Change    string // two decimals, without the percent sign
	Direction Direction
	Updated   string    // as served, e.g. "2024-01-02 15:04:05" or "Unknown"
	UpdatedAt time.Time // zero when Updated is missing or unparseable
}

// PriceText is the card's price line, e.g. "$50000.50".
func (c Card) PriceText() string {
	return "$" + c.Price
}

// ChangeText is the card's change line, e.g. "-1.23%".
func (c Card) ChangeText() string {
	return c.Change + "%"
}

// FormatPrice formats a USD price with exactly two decimals.
func FormatPrice(usd float64) string {
	return strconv.FormatFloat(usd, 'f', 2, 64)
}

// FormatChange formats a 24h change with exactly two decimals. A missing or
// zero change is "0.00".
func FormatChange(change *float64) string {
	if change == nil || *change == 0 {
		return "0.00"
	}
	return strconv.FormatFloat(*change, 'f', 2, 64)
}

// Classify returns Up when the formatted change reads back as a number >= 0.
// "-0.00" is therefore Up. Text that is not a number is Down.
func Classify(change string) Direction {
	v, err := strconv.ParseFloat(change, 64)
	if err != nil || v < 0 {
		return Down
	}
	return Up
}

// BuildCards turns a price response into one card per asset, ordered by
// asset name.
func BuildCards(quotes map[string]models.Quote) []Card {
	names := make([]string, 0, len(quotes))
	for name := range quotes {
		names = append(names, name)
	}
	sort.Strings(names)

	cards := make([]Card, 0, len(names))
	for _, name := range names {
		q := quotes[name]
		change := FormatChange(q.USD24hChange)
		card := Card{
			Name:      name,
			Title:     strings.ToUpper(name),
			Price:     FormatPrice(q.USD),
			Change:    change,
			Direction: Classify(change),
			Updated:   q.LastUpdatedAt,
		}
		if t, err := time.Parse(updatedLayout, q.LastUpdatedAt); err == nil {
			card.UpdatedAt = t
		}
		cards = append(cards, card)
	}
	return cards
}
