// internal/services/sweep_service.go
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/javajoker/bulkwear-backend/internal/config"
	"github.com/javajoker/bulkwear-backend/internal/metrics"
	"github.com/javajoker/bulkwear-backend/internal/repository"
	"github.com/javajoker/bulkwear-backend/internal/storage"
)

const (
	SweepCleanupCodes  = "cleanup-codes"
	SweepCleanupUnpaid = "cleanup-unpaid"
)

// SweepService removes expired reset codes and abandoned unpaid purchases.
// Each sweep runs under a named lock so two runners never overlap.
type SweepService struct {
	codes     repository.ResetCodeRepository
	purchases repository.PurchaseRepository
	storage   storage.FileStorage
	locker    repository.Locker
	cfg       config.SweepConfig
	now       func() time.Time
}

type SweepReport struct {
	Sweep        string `json:"sweep"`
	DryRun       bool   `json:"dry_run"`
	Skipped      bool   `json:"skipped"`
	Matched      int64  `json:"matched"`
	Deleted      int64  `json:"deleted"`
	FilesDeleted int    `json:"files_deleted"`
}

func NewSweepService(store *repository.Store, files storage.FileStorage, cfg config.SweepConfig) *SweepService {
	return &SweepService{
		codes:     store.ResetCodes,
		purchases: store.Purchases,
		storage:   files,
		locker:    store.Locker,
		cfg:       cfg,
		now:       time.Now,
	}
}

// CleanupCodes deletes codes that expired more than olderThan ago and used
// codes past the used-code retention.
func (s *SweepService) CleanupCodes(ctx context.Context, olderThan time.Duration, dryRun bool) (*SweepReport, error) {
	if olderThan <= 0 {
		olderThan = s.cfg.CodeCutoff
	}
	report := &SweepReport{Sweep: SweepCleanupCodes, DryRun: dryRun}

	err := s.run(ctx, report, func(ctx context.Context) error {
		now := s.now()
		expiredBefore := now.Add(-olderThan)
		usedBefore := now.Add(-s.cfg.UsedCodeRetention)

		matched, err := s.codes.CountStale(ctx, expiredBefore, usedBefore)
		if err != nil {
			return fmt.Errorf("failed to count stale reset codes: %w", err)
		}
		report.Matched = matched
		if dryRun || matched == 0 {
			return nil
		}

		deleted, err := s.codes.DeleteStale(ctx, expiredBefore, usedBefore)
		if err != nil {
			return fmt.Errorf("failed to delete stale reset codes: %w", err)
		}
		report.Deleted = deleted
		return nil
	})
	return report, err
}

// CleanupUnpaid deletes purchases still unpaid olderThan after creation,
// together with their uploaded files. A purchase paid while the sweep runs
// is left alone.
func (s *SweepService) CleanupUnpaid(ctx context.Context, olderThan time.Duration, dryRun bool) (*SweepReport, error) {
	if olderThan <= 0 {
		olderThan = s.cfg.UnpaidRetention
	}
	report := &SweepReport{Sweep: SweepCleanupUnpaid, DryRun: dryRun}

	err := s.run(ctx, report, func(ctx context.Context) error {
		cutoff := s.now().Add(-olderThan)
		stale, err := s.purchases.ListUnpaidBefore(ctx, cutoff)
		if err != nil {
			return fmt.Errorf("failed to list unpaid purchases: %w", err)
		}
		report.Matched = int64(len(stale))
		if dryRun {
			return nil
		}

		for _, purchase := range stale {
			deleted, err := s.purchases.DeleteUnpaid(ctx, purchase.ID)
			if err != nil {
				return fmt.Errorf("failed to delete purchase %s: %w", purchase.ID, err)
			}
			if !deleted {
				continue
			}
			report.Deleted++
			report.FilesDeleted += s.deleteStoredFiles(ctx, purchase.StoredFiles())
			logrus.WithFields(logrus.Fields{
				"purchase_id": purchase.ID,
				"created_at":  purchase.CreatedAt,
			}).Info("Deleted unpaid purchase")
		}
		return nil
	})
	return report, err
}

func (s *SweepService) deleteStoredFiles(ctx context.Context, paths []string) int {
	n := 0
	for _, path := range paths {
		exists, err := s.storage.Exists(ctx, path)
		if err != nil || !exists {
			continue
		}
		if err := s.storage.Delete(ctx, path); err != nil {
			logrus.WithError(err).WithField("path", path).Warn("Failed to delete purchase file")
			continue
		}
		n++
	}
	return n
}

// run executes fn under the sweep's lock and records the result.
func (s *SweepService) run(ctx context.Context, report *SweepReport, fn func(ctx context.Context) error) error {
	log := logrus.WithFields(logrus.Fields{"sweep": report.Sweep, "dry_run": report.DryRun})

	acquired, err := s.locker.WithLock(ctx, "sweep:"+report.Sweep, fn)
	switch {
	case err != nil:
		metrics.RecordSweep(report.Sweep, "error", report.Deleted)
		log.WithError(err).Error("Sweep failed")
		return err
	case !acquired:
		report.Skipped = true
		metrics.RecordSweep(report.Sweep, "skipped", 0)
		log.Info("Sweep skipped; another run holds the lock")
		return nil
	}

	metrics.RecordSweep(report.Sweep, "ok", report.Deleted)
	log.WithFields(logrus.Fields{
		"matched":       report.Matched,
		"deleted":       report.Deleted,
		"files_deleted": report.FilesDeleted,
	}).Info("Sweep completed")
	return nil
}

// Schedule runs both sweeps on their intervals until ctx is done. Each
// sweep also runs once at start.
func (s *SweepService) Schedule(ctx context.Context) {
	codeTicker := time.NewTicker(s.cfg.CodeInterval)
	defer codeTicker.Stop()
	unpaidTicker := time.NewTicker(s.cfg.UnpaidInterval)
	defer unpaidTicker.Stop()

	s.scheduled(ctx, s.CleanupCodes)
	s.scheduled(ctx, s.CleanupUnpaid)

	for {
		select {
		case <-ctx.Done():
			return
		case <-codeTicker.C:
			s.scheduled(ctx, s.CleanupCodes)
		case <-unpaidTicker.C:
			s.scheduled(ctx, s.CleanupUnpaid)
		}
	}
}

// scheduled runs one sweep with its configured age. run has already logged
// the outcome; a failure waits for the next tick.
func (s *SweepService) scheduled(ctx context.Context, sweep func(context.Context, time.Duration, bool) (*SweepReport, error)) {
	report, err := sweep(ctx, 0, false)
	if err != nil {
		return
	}
	logrus.WithFields(logrus.Fields{"sweep": report.Sweep, "skipped": report.Skipped}).Debug("Scheduled sweep finished")
}
