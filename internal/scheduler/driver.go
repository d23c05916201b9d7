// Package scheduler запускает тики планировщика вовлечения по cron-расписанию.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"telegram-moderation-bot/internal/core/services"
	applog "telegram-moderation-bot/internal/log"
)

// Ticker выполняет один проход планировщика.
type Ticker interface {
	Tick(ctx context.Context, now time.Time) (services.TickReport, error)
}

// Driver вызывает Ticker по расписанию. Пока тик выполняется, следующий пропускается.
type Driver struct {
	cron   *cron.Cron
	ticker Ticker
	log    *slog.Logger
	now    func() time.Time
	// runCtx отменяется при остановке, прерывая текущий тик.
	runCtx context.Context
	cancel context.CancelFunc
}

// NewDriver создает драйвер с cron-выражением spec (например, "@every 1m").
func NewDriver(spec string, ticker Ticker, logger *slog.Logger) (*Driver, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "scheduler")
	cronLogger := &applog.CronAdapter{Logger: logger}

	d := &Driver{
		ticker: ticker,
		log:    logger,
		now:    time.Now,
		cron: cron.New(
			cron.WithLogger(cronLogger),
			cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
		),
	}
	d.runCtx, d.cancel = context.WithCancel(context.Background())

	if _, err := d.cron.AddFunc(spec, d.RunOnce); err != nil {
		d.cancel()
		return nil, fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	return d, nil
}

// RunOnce выполняет один тик немедленно.
func (d *Driver) RunOnce() {
	report, err := d.ticker.Tick(d.runCtx, d.now())
	switch {
	case errors.Is(err, context.Canceled):
		d.log.Info("Tick interrupted by shutdown", "run_id", report.RunID)
	case err != nil:
		d.log.Error("Tick failed", "run_id", report.RunID, "error", err)
	case report.Sent > 0 || report.Failed > 0:
		d.log.Info("Tick completed", "run_id", report.RunID, "sent", report.Sent, "skipped", report.Skipped, "failed", report.Failed)
	}
}

// Run запускает расписание и блокируется до отмены ctx, затем останавливает драйвер.
func (d *Driver) Run(ctx context.Context) error {
	d.cron.Start()
	d.log.Info("Scheduler started", "entries", len(d.cron.Entries()))
	<-ctx.Done()
	d.Stop(context.Background())
	return nil
}

// Stop прерывает текущий тик и ждет его завершения, но не дольше, чем живет ctx.
func (d *Driver) Stop(ctx context.Context) {
	d.cancel()
	done := d.cron.Stop()
	select {
	case <-done.Done():
		d.log.Info("Scheduler stopped")
	case <-ctx.Done():
		d.log.Warn("Scheduler stop timed out")
	}
}
