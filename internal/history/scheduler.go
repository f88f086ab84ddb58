// Package history records periodic price snapshots into storage.
package history

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/coinpulse/coinpulse/internal/models"
)

// pruneSpec runs the retention job once a day.
const pruneSpec = "@daily"

// PriceSource fetches current prices for a set of coin ids.
type PriceSource interface {
	SimplePrice(ctx context.Context, ids []string) (map[string]models.PriceInfo, error)
}

// Recorder persists snapshots. *storage.Store satisfies it.
type Recorder interface {
	SaveCoinData(ctx context.Context, prices map[string]models.PriceInfo) error
	RecordHistory(ctx context.Context, prices map[string]models.PriceInfo, at time.Time) (int, error)
	PruneHistory(ctx context.Context, before time.Time) (int64, error)
}

// Scheduler runs the snapshot and prune jobs on cron schedules.
type Scheduler struct {
	cron      *cron.Cron
	source    PriceSource
	recorder  Recorder
	coins     []string
	retention time.Duration
	ctx       context.Context
	now       func() time.Time
}

// NewScheduler creates a Scheduler. Jobs run with ctx and stop issuing
// requests once it is cancelled.
func NewScheduler(ctx context.Context, source PriceSource, recorder Recorder, coins []string, retentionDays int) *Scheduler {
	return &Scheduler{
		cron:      cron.New(),
		source:    source,
		recorder:  recorder,
		coins:     coins,
		retention: time.Duration(retentionDays) * 24 * time.Hour,
		ctx:       ctx,
		now:       time.Now,
	}
}

// Register adds the snapshot job on snapshotSpec and the daily prune job.
func (s *Scheduler) Register(snapshotSpec string) error {
	if _, err := s.cron.AddFunc(snapshotSpec, s.snapshotTask); err != nil {
		return fmt.Errorf("register snapshot task: %w", err)
	}
	if _, err := s.cron.AddFunc(pruneSpec, s.pruneTask); err != nil {
		return fmt.Errorf("register prune task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.cron.Start()
	slog.Info("history scheduler started", "coins", len(s.coins))
}

// Stop stops the scheduler and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	slog.Info("history scheduler stopped")
}

// Snapshot fetches prices for every configured coin, updates the latest
// quotes and appends them to the price history.
func (s *Scheduler) Snapshot(ctx context.Context) (int, error) {
	prices, err := s.source.SimplePrice(ctx, s.coins)
	if err != nil {
		return 0, fmt.Errorf("fetching prices: %w", err)
	}
	return s.Record(ctx, prices)
}

// Record stores an already-fetched set of prices as the latest quotes and
// as history rows.
func (s *Scheduler) Record(ctx context.Context, prices map[string]models.PriceInfo) (int, error) {
	if err := s.recorder.SaveCoinData(ctx, prices); err != nil {
		return 0, fmt.Errorf("saving coin data: %w", err)
	}
	n, err := s.recorder.RecordHistory(ctx, prices, s.now())
	if err != nil {
		return 0, fmt.Errorf("recording history: %w", err)
	}
	return n, nil
}

// Prune removes history older than the retention window.
func (s *Scheduler) Prune(ctx context.Context) (int64, error) {
	return s.recorder.PruneHistory(ctx, s.now().Add(-s.retention))
}

func (s *Scheduler) snapshotTask() {
	n, err := s.Snapshot(s.ctx)
	if err != nil {
		slog.Error("price snapshot failed", "error", err)
		return
	}
	slog.Info("recorded price snapshot", "coins", n)
}

func (s *Scheduler) pruneTask() {
	n, err := s.Prune(s.ctx)
	if err != nil {
		slog.Error("history prune failed", "error", err)
		return
	}
	slog.Info("pruned price history", "rows", n)
}
