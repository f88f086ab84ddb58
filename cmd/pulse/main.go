// Command pulse shows a CoinPulse server's prices as cards in the terminal.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coinpulse/coinpulse/internal/dashboard"
	"github.com/coinpulse/coinpulse/internal/termview"
)

func main() {
	endpoint := flag.String("url", "http://localhost:8080/api/crypto", "price endpoint to poll")
	interval := flag.Duration("interval", dashboard.DefaultInterval, "time between refreshes")
	themeFlag := flag.String("theme", "", `"light" or "dark" (default: the server's theme)`)
	columns := flag.Int("columns", 4, "cards per row")
	once := flag.Bool("once", false, "render once and exit")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	theme := dashboard.Theme(*themeFlag)
	switch theme {
	case dashboard.ThemeLight, dashboard.ThemeDark:
	case "":
		theme = serverTheme(ctx, *endpoint)
	default:
		slog.Error("invalid theme", "theme", *themeFlag)
		os.Exit(2)
	}

	view := termview.New(os.Stdout, termview.Options{
		Theme:   theme,
		Columns: *columns,
		Clear:   !*once,
	})
	poller := dashboard.NewPoller(*endpoint, view, *interval)
	poller.SetHTTPClient(&http.Client{Timeout: 30 * time.Second})

	if *once {
		if _, err := poller.Poll(ctx); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	poller.Run(ctx)
}

// serverTheme asks the server that owns endpoint for its dashboard theme.
// Any failure falls back to light.
func serverTheme(ctx context.Context, endpoint string) dashboard.Theme {
	u, err := url.Parse(endpoint)
	if err != nil {
		return dashboard.ThemeLight
	}
	u.Path = "/api/theme"
	u.RawQuery = ""

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return dashboard.ThemeLight
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		slog.Debug("could not read server theme", "error", err)
		return dashboard.ThemeLight
	}
	defer resp.Body.Close()

	var body struct {
		Theme dashboard.Theme `json:"theme"`
	}
	if resp.StatusCode != http.StatusOK || json.NewDecoder(resp.Body).Decode(&body) != nil {
		return dashboard.ThemeLight
	}
	if body.Theme == dashboard.ThemeDark {
		return dashboard.ThemeDark
	}
	return dashboard.ThemeLight
}
