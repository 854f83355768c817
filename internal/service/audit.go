package service

import (
	"context"

	"loyalty-ledger/internal/repository"
	apperrors "loyalty-ledger/pkg/errors"
	"loyalty-ledger/pkg/logger"
)

type AuditStatus string

const (
	AuditOK          AuditStatus = "ok"
	AuditDiscrepancy AuditStatus = "discrepancy"
	AuditError       AuditStatus = "error"
)

type AuditResult struct {
	UserID          string      `json:"user_id"`
	CachedBalance   int64       `json:"cached_balance"`
	LedgerBalance   int64       `json:"ledger_balance"`
	Difference      int64       `json:"difference"`
	DuplicateExcess int         `json:"duplicate_excess"`
	Status          AuditStatus `json:"status"`
}

// BalanceAuditor compares the cached balance against the ledger-derived
// balance. Pure read, safe to run repeatedly and concurrently.
type BalanceAuditor struct {
	txRepo      *repository.TransactionRepository
	profileRepo *repository.ProfileRepository
	detector    *DuplicateDetector
}

func NewBalanceAuditor(
	txRepo *repository.TransactionRepository,
	profileRepo *repository.ProfileRepository,
	detector *DuplicateDetector,
) *BalanceAuditor {
	return &BalanceAuditor{
		txRepo:      txRepo,
		profileRepo: profileRepo,
		detector:    detector,
	}
}

// Audit classifies the account as ok, discrepancy, or error. Any read
// failure or missing profile yields status=error with zeroed numbers —
// never a silent ok.
func (a *BalanceAuditor) Audit(ctx context.Context, userID string) (AuditResult, error) {
	failed := AuditResult{UserID: userID, Status: AuditError}

	profile, err := a.profileRepo.GetByUser(ctx, userID)
	if err != nil {
		return failed, apperrors.New(apperrors.ErrAudit, "failed to read cached balance", err)
	}
	if profile == nil {
		return failed, apperrors.New(apperrors.ErrAudit, "profile not found: "+userID, nil)
	}

	ledgerBalance, err := a.txRepo.SumByUser(ctx, userID)
	if err != nil {
		return failed, apperrors.New(apperrors.ErrAudit, "failed to sum ledger", err)
	}

	groups, err := a.detector.FindDuplicates(ctx, userID)
	if err != nil {
		return failed, apperrors.New(apperrors.ErrAudit, "duplicate scan failed", err)
	}

	result := AuditResult{
		UserID:          userID,
		CachedBalance:   profile.Balance,
		LedgerBalance:   ledgerBalance,
		Difference:      profile.Balance - ledgerBalance,
		DuplicateExcess: ExcessCount(groups),
		Status:          AuditOK,
	}
	if result.Difference != 0 || result.DuplicateExcess != 0 {
		result.Status = AuditDiscrepancy
		logger.WithFields(map[string]interface{}{
			"user_id":          userID,
			"cached_balance":   result.CachedBalance,
			"ledger_balance":   result.LedgerBalance,
			"difference":       result.Difference,
			"duplicate_excess": result.DuplicateExcess,
		}).Warn("Balance discrepancy detected")
	}

	return result, nil
}
