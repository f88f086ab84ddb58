// Package termview renders dashboard cards to a terminal with lipgloss.
package termview

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/coinpulse/coinpulse/internal/dashboard"
)

const (
	cardWidth      = 28
	defaultColumns = 4
	clearScreen    = "\033[H\033[2J"
)

// palette holds the colours for one theme.
type palette struct {
	border lipgloss.Color
	title  lipgloss.Color
	muted  lipgloss.Color
	up     lipgloss.Color
	down   lipgloss.Color
}

var palettes = map[dashboard.Theme]palette{
	dashboard.ThemeLight: {
		border: lipgloss.Color("#9ca3af"),
		title:  lipgloss.Color("#1d2026"),
		muted:  lipgloss.Color("#6b7280"),
		up:     lipgloss.Color("#16a34a"),
		down:   lipgloss.Color("#dc2626"),
	},
	dashboard.ThemeDark: {
		border: lipgloss.Color("#4b5563"),
		title:  lipgloss.Color("#e5e7eb"),
		muted:  lipgloss.Color("#9ca3af"),
		up:     lipgloss.Color("#4ade80"),
		down:   lipgloss.Color("#f87171"),
	},
}

// Options configures a View.
type Options struct {
	Theme   dashboard.Theme
	Columns int
	// Clear redraws from the top of the screen on every render.
	Clear bool
}

// View is a dashboard.Surface that writes cards to a terminal.
type View struct {
	mu       sync.Mutex
	out      io.Writer
	renderer *lipgloss.Renderer
	palette  palette
	columns  int
	clear    bool
	now      func() time.Time
}

// New creates a View writing to out.
func New(out io.Writer, opts Options) *View {
	pal, ok := palettes[opts.Theme]
	if !ok {
		pal = palettes[dashboard.ThemeLight]
	}
	cols := opts.Columns
	if cols < 1 {
		cols = defaultColumns
	}
	return &View{
		out:      out,
		renderer: lipgloss.NewRenderer(out),
		palette:  pal,
		columns:  cols,
		clear:    opts.Clear,
		now:      time.Now,
	}
}

// ReplaceCards redraws the whole board.
func (v *View) ReplaceCards(cards []dashboard.Card) {
	v.mu.Lock()
	defer v.mu.Unlock()

	var b strings.Builder
	if v.clear {
		b.WriteString(clearScreen)
	}
	b.WriteString(v.render(cards))
	b.WriteString("\n")

	if _, err := io.WriteString(v.out, b.String()); err != nil {
		slog.Error("failed to write cards to terminal", "error", err)
	}
}

// render lays cards out in rows of v.columns.
func (v *View) render(cards []dashboard.Card) string {
	if len(cards) == 0 {
		return v.renderer.NewStyle().Foreground(v.palette.muted).Render("No prices yet.")
	}

	var rows []string
	for start := 0; start < len(cards); start += v.columns {
		end := min(start+v.columns, len(cards))
		boxes := make([]string, 0, end-start)
		for _, c := range cards[start:end] {
			boxes = append(boxes, v.renderCard(c))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, boxes...))
	}

	footer := v.renderer.NewStyle().Foreground(v.palette.muted).
		Render(fmt.Sprintf("%d assets · refreshed %s", len(cards), v.now().Format("15:04:05")))
	rows = append(rows, footer)

	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func (v *View) renderCard(c dashboard.Card) string {
	title := v.renderer.NewStyle().Bold(true).Foreground(v.palette.title).Render(c.Title)

	changeColor := v.palette.up
	if c.Direction == dashboard.Down {
		changeColor = v.palette.down
	}
	change := v.renderer.NewStyle().Foreground(changeColor).Render(c.ChangeText())

	lines := []string{title, c.PriceText(), change}
	if updated := v.updatedText(c); updated != "" {
		lines = append(lines, v.renderer.NewStyle().Foreground(v.palette.muted).Render(updated))
	}

	return v.renderer.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(v.palette.border).
		Padding(0, 1).
		Width(cardWidth).
		Render(strings.Join(lines, "\n"))
}

// updatedText prefers a relative time when the update time parsed.
func (v *View) updatedText(c dashboard.Card) string {
	if !c.UpdatedAt.IsZero() {
		return "updated " + humanize.RelTime(c.UpdatedAt, v.now(), "ago", "from now")
	}
	if c.Updated != "" {
		return "updated " + c.Updated
	}
	return ""
}
