package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/maintenance-service/internal/repository"
	"github.com/spec-kit/maintenance-service/internal/service"
)

const slaSweepBatchSize = 200

// SLAWorker periodically sweeps active prioritized reports and lets the
// lifecycle service emit violation events for any that have blown their
// deadline.
type SLAWorker struct {
	reports   repository.ReportRepository
	lifecycle *service.LifecycleService
	interval  time.Duration
	logger    *zap.Logger
}

// NewSLAWorker constructs the sweeper. A non-positive interval defaults
// to five minutes.
func NewSLAWorker(reports repository.ReportRepository, lifecycle *service.LifecycleService, interval time.Duration, logger *zap.Logger) *SLAWorker {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &SLAWorker{
		reports:   reports,
		lifecycle: lifecycle,
		interval:  interval,
		logger:    logger,
	}
}

// Run blocks until ctx is cancelled, sweeping once per interval.
func (w *SLAWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.Sweep(ctx)
		}
	}
}

// Sweep checks every active prioritized report once.
func (w *SLAWorker) Sweep(ctx context.Context) {
	reports, err := w.reports.ListActiveWithPriority(ctx, slaSweepBatchSize)
	if err != nil {
		w.logger.Warn("sla sweep failed to list reports", zap.Error(err))
		return
	}
	violated := 0
	for i := range reports {
		if status, ok := w.lifecycle.CheckSLA(ctx, &reports[i]); ok && status.Violated {
			violated++
		}
	}
	if violated > 0 {
		w.logger.Info("sla sweep finished",
			zap.Int("checked", len(reports)),
			zap.Int("violated", violated))
	}
}
