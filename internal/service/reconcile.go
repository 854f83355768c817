package service

import (
	"context"

	"loyalty-ledger/internal/metrics"
	"loyalty-ledger/internal/repository"
	apperrors "loyalty-ledger/pkg/errors"
	"loyalty-ledger/pkg/logger"
)

type ReconcileResult struct {
	DuplicatesRemoved int   `json:"duplicates_removed"`
	BalanceAdjusted   int64 `json:"balance_adjusted"`
}

// ReconciliationEngine repairs a user's account: removes duplicate
// transactions (keeping the earliest of each group) and rewrites the
// cached balance from the ledger. The ledger is authoritative, never
// the cache. Running it twice with no new activity is a no-op.
type ReconciliationEngine struct {
	txRepo      *repository.TransactionRepository
	profileRepo *repository.ProfileRepository
	detector    *DuplicateDetector
}

func NewReconciliationEngine(
	txRepo *repository.TransactionRepository,
	profileRepo *repository.ProfileRepository,
	detector *DuplicateDetector,
) *ReconciliationEngine {
	return &ReconciliationEngine{
		txRepo:      txRepo,
		profileRepo: profileRepo,
		detector:    detector,
	}
}

func (e *ReconciliationEngine) Reconcile(ctx context.Context, userID string) (ReconcileResult, error) {
	var result ReconcileResult

	groups, err := e.detector.FindDuplicates(ctx, userID)
	if err != nil {
		return result, apperrors.New(apperrors.ErrStore, "duplicate scan failed", err)
	}

	for _, group := range groups {
		if group.TransactionCount < 2 {
			continue
		}
		// First id is the earliest write; it stays.
		excess := group.TransactionIDs[1:]
		if err := e.txRepo.DeleteByIDs(ctx, excess); err != nil {
			logger.WithFields(map[string]interface{}{
				"user_id":   userID,
				"group_key": group.GroupKey,
				"error":     err.Error(),
			}).Error("Failed to remove duplicate group, continuing")
			continue
		}
		result.DuplicatesRemoved += len(excess)
		metrics.DuplicatesRemovedTotal.Add(float64(len(excess)))
	}

	// Resync from whatever the ledger actually contains now. Some of
	// the deletions above may have failed; do not assume they landed.
	ledgerBalance, err := e.txRepo.SumByUser(ctx, userID)
	if err != nil {
		return result, apperrors.New(apperrors.ErrStore, "failed to sum ledger", err)
	}

	profile, err := e.profileRepo.Ensure(ctx, userID)
	if err != nil {
		return result, apperrors.New(apperrors.ErrStore, "failed to load profile", err)
	}

	if profile.Balance != ledgerBalance {
		if err := e.profileRepo.SetBalance(ctx, userID, ledgerBalance); err != nil {
			return result, apperrors.New(apperrors.ErrStore, "failed to correct cached balance", err)
		}
		result.BalanceAdjusted = ledgerBalance - profile.Balance
	}

	metrics.ReconciliationsTotal.Inc()
	if result.DuplicatesRemoved > 0 || result.BalanceAdjusted != 0 {
		logger.WithFields(map[string]interface{}{
			"user_id":            userID,
			"duplicates_removed": result.DuplicatesRemoved,
			"balance_adjusted":   result.BalanceAdjusted,
			"ledger_balance":     ledgerBalance,
		}).Info("Account reconciled")
	}

	return result, nil
}
