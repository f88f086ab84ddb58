package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/coinpulse/coinpulse/internal/api"
	"github.com/coinpulse/coinpulse/internal/api/handlers"
	"github.com/coinpulse/coinpulse/internal/coingecko"
	"github.com/coinpulse/coinpulse/internal/config"
	"github.com/coinpulse/coinpulse/internal/dashboard"
	"github.com/coinpulse/coinpulse/internal/history"
	"github.com/coinpulse/coinpulse/internal/storage"
)

const shutdownTimeout = 5 * time.Second

func main() {
	configPath := flag.String("config", "config.toml", "path to config file")
	dataDir := flag.String("data-dir", "./data", "path to data directory")
	listSaved := flag.Bool("list-saved", false, "print the saved coin prices and exit")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	if *debug {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}

	// Load configuration (auto-creates default if missing).
	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Ensure data directory exists.
	if err := os.MkdirAll(*dataDir, 0o755); err != nil {
		slog.Error("failed to create data directory", "error", err)
		os.Exit(1)
	}

	// Open database with WAL mode and pragmas.
	db, err := storage.OpenDatabase(filepath.Join(*dataDir, "coins.db"))
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Run schema migrations.
	if err := storage.RunMigrations(db); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	store := storage.NewStore(db)

	if *listSaved {
		if err := printSavedCoins(context.Background(), store); err != nil {
			slog.Error("failed to list saved coins", "error", err)
			os.Exit(1)
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	prices := coingecko.NewClient(coingecko.Options{
		BaseURL:   cfg.Prices.APIBaseURL,
		APIKey:    cfg.Prices.APIKey,
		BatchSize: cfg.Prices.BatchSize,
	})

	// The dashboard page must find its card container and toggle before
	// anything is served.
	page, err := dashboard.NewDefaultPage(ctx, store)
	if err != nil {
		var ie *dashboard.InitializationError
		if errors.As(err, &ie) {
			slog.Error("dashboard page is missing required elements", "missing", ie.Missing)
		} else {
			slog.Error("failed to create dashboard page", "error", err)
		}
		os.Exit(1)
	}
	page.SetAutoRefresh(cfg.PollInterval())

	// Price history snapshots (optional).
	var recorder handlers.SnapshotRecorder
	if cfg.History.Enabled {
		sched := history.NewScheduler(ctx, prices, store, cfg.Prices.Coins, cfg.History.RetentionDays)
		if err := sched.Register(cfg.History.SnapshotCron); err != nil {
			slog.Error("failed to register history jobs", "error", err)
			os.Exit(1)
		}
		sched.Start()
		defer sched.Stop()
		recorder = sched
	} else {
		slog.Info("price history disabled")
	}

	router := api.NewRouter(store, prices, recorder, page, cfg)

	// Determine server address (localhost only for security).
	addr := fmt.Sprintf("localhost:%d", cfg.Server.Port)

	// Bind before polling so the first dashboard fetch finds the API.
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		slog.Error("failed to listen", "addr", addr, "error", err)
		os.Exit(1)
	}

	srv := &http.Server{Handler: router, ReadHeaderTimeout: 10 * time.Second}
	serveErr := make(chan error, 1)
	go func() {
		slog.Info("starting server", "addr", "http://"+addr)
		serveErr <- srv.Serve(ln)
	}()

	poller := dashboard.NewPoller(cfg.DashboardEndpoint(), page, cfg.PollInterval())
	go poller.Run(ctx)

	if cfg.Server.AutoOpenBrowser {
		go func() {
			time.Sleep(500 * time.Millisecond)
			openBrowser("http://" + addr)
		}()
	}

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown failed", "error", err)
		}
	}
}

// printSavedCoins writes every stored coin quote to stdout.
func printSavedCoins(ctx context.Context, store *storage.Store) error {
	coins, err := store.LoadCoinData(ctx)
	if err != nil {
		return err
	}

	fmt.Println("--- Saved Coin Prices ---")
	for _, c := range coins {
		fmt.Printf("%s: $%s\n", c.Name, dashboard.FormatPrice(c.Price))
	}
	return nil
}

// openBrowser opens the given URL in the user's default browser.
// It is a fire-and-forget operation; errors are silently ignored.
func openBrowser(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", url)
	}
	if cmd != nil {
		_ = cmd.Start()
	}
}
