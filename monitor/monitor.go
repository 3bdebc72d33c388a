// Package monitor runs the reconciliation pipeline on a fixed interval,
// independent of user-facing requests.
package monitor

import (
	"context"
	"time"

	"bitbucket.org/wescanlabs/corescan_backend/config"
	"bitbucket.org/wescanlabs/corescan_backend/models"
	"bitbucket.org/wescanlabs/corescan_backend/reconcile"
	"bitbucket.org/wescanlabs/corescan_backend/smbscan"
	"bitbucket.org/wescanlabs/corescan_backend/store"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type Monitor struct {
	Store    *store.BatchStore
	Reader   *smbscan.Reader
	Logger   *logrus.Logger
	Interval time.Duration
	Timeout  time.Duration
}

func New(batches *store.BatchStore, reader *smbscan.Reader, logger *logrus.Logger, cfg config.Config) *Monitor {
	return &Monitor{
		Store:    batches,
		Reader:   reader,
		Logger:   logger,
		Interval: cfg.ScanInterval,
		Timeout:  cfg.ScanTimeout,
	}
}

// Run executes one pass immediately and then one per interval until the
// context is cancelled. A failed pass is logged and the loop waits for the
// next tick; it never retries early and never terminates on error.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.Interval)
	defer ticker.Stop()

	for {
		if err := m.RunOnce(ctx); err != nil {
			config.LogError(m.Logger, "monitor", "Run", "reconcile pass", nil, err)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// RunOnce performs a single scan -> reconcile -> persist cycle under the
// pass timeout. Partial work from a timed-out pass is discarded; the next
// cycle rebuilds from scratch.
func (m *Monitor) RunOnce(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, m.Timeout)
	defer cancel()

	passID := uuid.NewString()
	logger := m.Logger.WithFields(logrus.Fields{
		"module":  "monitor",
		"pass_id": passID,
	})
	logger.Info("starting scanner share check")

	report := m.Reader.Scan(ctx)
	if report.Failure != nil {
		// The scan degraded to an empty result; statuses fall back toward
		// pending below, which is the designed failure mode.
		logger.Warn("scan pass degraded: " + report.Failure.Error())
	}

	err := m.Store.Mutate(func(records []models.BatchRecord) ([]models.BatchRecord, error) {
		return reconcile.Apply(records, report.Records), nil
	})
	if err != nil {
		return err
	}

	logger.WithFields(logrus.Fields{
		"records": len(report.Records),
		"skips":   len(report.Skips),
	}).Info("scanner share check completed")
	return nil
}
