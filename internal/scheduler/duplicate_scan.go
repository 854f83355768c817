package scheduler

import (
	"context"

	"github.com/robfig/cron/v3"

	"loyalty-ledger/internal/metrics"
	"loyalty-ledger/internal/service"
	"loyalty-ledger/pkg/logger"
)

// DuplicateScanScheduler periodically sweeps the whole ledger for
// duplicate transactions. The scan itself is advisory; when
// autoReconcile is on, every affected user is repaired in place.
type DuplicateScanScheduler struct {
	cron          *cron.Cron
	detector      *service.DuplicateDetector
	engine        *service.ReconciliationEngine
	cronExpr      string
	autoReconcile bool
}

func NewDuplicateScanScheduler(
	detector *service.DuplicateDetector,
	engine *service.ReconciliationEngine,
	cronExpr string,
	autoReconcile bool,
) *DuplicateScanScheduler {
	return &DuplicateScanScheduler{
		cron:          cron.New(cron.WithSeconds()),
		detector:      detector,
		engine:        engine,
		cronExpr:      cronExpr,
		autoReconcile: autoReconcile,
	}
}

func (s *DuplicateScanScheduler) Start() error {
	_, err := s.cron.AddFunc(s.cronExpr, s.scan)
	if err != nil {
		return err
	}

	s.cron.Start()
	logger.Info("Duplicate scan scheduler started")
	return nil
}

func (s *DuplicateScanScheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	logger.Info("Duplicate scan scheduler stopped")
}

func (s *DuplicateScanScheduler) scan() {
	ctx := context.Background()

	groups, err := s.detector.FindDuplicates(ctx, service.ScopeAll)
	if err != nil {
		logger.Error("Duplicate scan failed:", err)
		return
	}

	metrics.DuplicateGroups.Set(float64(len(groups)))

	if len(groups) == 0 {
		logger.Debug("Duplicate scan clean")
		return
	}

	byUser := make(map[string]int)
	for _, g := range groups {
		byUser[g.UserID] += g.TransactionCount - 1
	}

	logger.WithFields(map[string]interface{}{
		"groups":         len(groups),
		"users_affected": len(byUser),
		"excess_total":   service.ExcessCount(groups),
	}).Warn("Duplicate transactions detected")

	if !s.autoReconcile {
		return
	}

	for userID := range byUser {
		result, err := s.engine.Reconcile(ctx, userID)
		if err != nil {
			logger.Error("Auto-reconcile failed for user:", userID, err)
			continue
		}
		logger.WithFields(map[string]interface{}{
			"user_id":            userID,
			"duplicates_removed": result.DuplicatesRemoved,
			"balance_adjusted":   result.BalanceAdjusted,
		}).Info("Auto-reconciled user")
	}
}

// RunOnce triggers a single sweep outside the cron cadence.
func (s *DuplicateScanScheduler) RunOnce() {
	s.scan()
}
