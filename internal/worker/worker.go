// Package worker keeps a long-running client in step with the backend:
// it polls the dashboard summary, applies invalidations published by other
// processes and periodically exports the chart report.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"finclient/internal/amqp"
	"finclient/internal/cache"
	"finclient/internal/core"
	"finclient/internal/log"
	"finclient/internal/services"
	"finclient/internal/sheets"
)

// Consumer delivers invalidation messages until ctx ends. *amqp.Client
// implements it.
type Consumer interface {
	ConsumeInvalidations(ctx context.Context, handler func(*amqp.InvalidationMessage) error) error
}

type Worker struct {
	finance  *services.FinanceService
	reports  sheets.ReportWriter
	consumer Consumer

	period         string
	pollInterval   time.Duration
	exportInterval time.Duration

	now    func() time.Time
	root   *log.Logger
	logger *log.Logger
}

type Option func(*Worker)

func WithLogger(l *log.Logger) Option {
	return func(w *Worker) {
		w.root = l
		w.logger = l.WithComponent(log.ComponentWorker)
	}
}

// WithConsumer enables remote invalidations.
func WithConsumer(c Consumer) Option {
	return func(w *Worker) { w.consumer = c }
}

// WithPolling refetches the summary for period every interval.
func WithPolling(period string, interval time.Duration) Option {
	return func(w *Worker) {
		w.period = period
		w.pollInterval = interval
	}
}

// WithExport writes the chart report every interval.
func WithExport(interval time.Duration) Option {
	return func(w *Worker) { w.exportInterval = interval }
}

func New(finance *services.FinanceService, reports sheets.ReportWriter, opts ...Option) *Worker {
	w := &Worker{
		finance: finance,
		reports: reports,
		now:     time.Now,
		root:    log.Default(),
		logger:  log.Default().WithComponent(log.ComponentWorker),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run blocks until ctx is cancelled. Disabled features are skipped; with
// nothing enabled Run just waits.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("Worker started",
		log.FieldOperation, log.OpStartup,
		"poll_interval", w.pollInterval,
		"export_interval", w.exportInterval,
		"consumer", w.consumer != nil)

	pollers := cache.NewManager(w.finance.Cache(), w.root)
	defer pollers.Stop()

	if w.pollInterval > 0 {
		stop := w.finance.WatchDashboardSummary(w.period, w.summaryChanged)
		defer stop()
		pollers.Poll(services.KeyDashboardSummary(w.period), w.finance.DashboardSummaryFetcher(w.period), w.pollInterval)
	}

	g, gctx := errgroup.WithContext(ctx)
	if w.consumer != nil {
		g.Go(func() error {
			return w.consumer.ConsumeInvalidations(gctx, w.HandleInvalidation)
		})
	}
	if w.exportInterval > 0 {
		g.Go(func() error {
			return w.exportLoop(gctx)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		return gctx.Err()
	})

	err := g.Wait()
	w.logger.Info("Worker stopped", log.FieldOperation, log.OpShutdown)
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		return nil
	}
	return err
}

// HandleInvalidation applies a remote invalidation to the local cache.
func (w *Worker) HandleInvalidation(msg *amqp.InvalidationMessage) error {
	n := w.finance.ApplyRemoteInvalidation(msg.Keys)
	w.logger.Debug("Applied remote invalidation",
		log.FieldOperation, log.OpInvalidate,
		log.FieldKeys, msg.Keys,
		"origin", msg.Origin,
		"stale_entries", n)
	return nil
}

// Export computes the chart report for now and writes it once.
func (w *Worker) Export(ctx context.Context) error {
	report, err := w.finance.Charts(ctx, w.now())
	if err != nil {
		return fmt.Errorf("build chart report: %w", err)
	}
	if err := w.reports.WriteReport(ctx, report); err != nil {
		return fmt.Errorf("write chart report: %w", err)
	}
	return nil
}

func (w *Worker) exportLoop(ctx context.Context) error {
	ticker := time.NewTicker(w.exportInterval)
	defer ticker.Stop()

	for {
		if err := w.Export(ctx); err != nil && ctx.Err() == nil {
			w.logger.Error("Chart export failed",
				log.FieldOperation, log.OpExport,
				log.FieldError, err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (w *Worker) summaryChanged(s core.DashboardSummary, err error) {
	if err != nil {
		w.logger.Warn("Dashboard summary refresh failed",
			log.FieldOperation, log.OpPoll,
			log.FieldError, err)
		return
	}
	w.logger.Info("Dashboard summary",
		log.FieldOperation, log.OpPoll,
		"balance", s.TotalBalance.String(),
		"income", s.TotalIncome.String(),
		"expenses", s.TotalExpenses.String(),
		"transactions", s.TransactionCount)
}
