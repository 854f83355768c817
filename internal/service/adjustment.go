package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"loyalty-ledger/internal/metrics"
	"loyalty-ledger/internal/models"
	"loyalty-ledger/internal/repository"
	apperrors "loyalty-ledger/pkg/errors"
	"loyalty-ledger/pkg/logger"
)

const (
	KindCredit = "credit"
	KindDebit  = "debit"
)

type AdjustmentRequest struct {
	UserID           string `json:"user_id"`
	Kind             string `json:"kind"`
	Amount           int64  `json:"amount"`
	Reason           string `json:"reason"`
	Type             string `json:"type,omitempty"`
	ReferenceID      string `json:"reference_id,omitempty"`
	IdempotencyToken string `json:"idempotency_token,omitempty"`
}

// AdjustmentService is the sole writer of new ledger transactions. It
// validates the request, suppresses duplicate submissions, then writes
// the transaction row and the cached-balance delta in one database
// transaction.
type AdjustmentService struct {
	db              *gorm.DB
	txRepo          *repository.TransactionRepository
	profileRepo     *repository.ProfileRepository
	tracker         RecentOperationTracker
	duplicateWindow time.Duration
}

func NewAdjustmentService(
	db *gorm.DB,
	txRepo *repository.TransactionRepository,
	profileRepo *repository.ProfileRepository,
	tracker RecentOperationTracker,
	duplicateWindow time.Duration,
) *AdjustmentService {
	return &AdjustmentService{
		db:              db,
		txRepo:          txRepo,
		profileRepo:     profileRepo,
		tracker:         tracker,
		duplicateWindow: duplicateWindow,
	}
}

// Submit applies a credit or debit to the user's ledger. All checks run
// before any write; on success exactly one transaction row exists and
// the cached balance has moved by the signed amount.
func (s *AdjustmentService) Submit(ctx context.Context, req AdjustmentRequest) error {
	if err := validateAdjustment(req); err != nil {
		metrics.AdjustmentsTotal.WithLabelValues(req.Kind, "rejected").Inc()
		return err
	}

	delta := req.Amount
	if req.Kind == KindDebit {
		delta = -delta
	}

	txType := req.Type
	if txType == "" {
		txType = models.TypeAdjustment
	}

	// Debit covers against the cached balance, not a ledger sum. The
	// cache can be stale; reconciliation is the backstop for drift.
	if req.Kind == KindDebit {
		profile, err := s.profileRepo.GetByUser(ctx, req.UserID)
		if err != nil {
			return apperrors.New(apperrors.ErrStore, "failed to read balance", err)
		}
		var balance int64
		if profile != nil {
			balance = profile.Balance
		}
		if req.Amount > balance {
			metrics.AdjustmentsTotal.WithLabelValues(req.Kind, "rejected").Inc()
			return apperrors.New(apperrors.ErrValidation,
				fmt.Sprintf("insufficient balance: have %d, need %d", balance, req.Amount), nil)
		}
	}

	if req.IdempotencyToken != "" {
		trackerKey := req.UserID + ":" + req.IdempotencyToken
		if s.tracker.Seen(trackerKey) {
			metrics.AdjustmentsTotal.WithLabelValues(req.Kind, "duplicate").Inc()
			return apperrors.New(apperrors.ErrDuplicateRejected, "idempotency token already processed", nil)
		}
		exists, err := s.txRepo.ExistsByIdempotencyKey(ctx, req.IdempotencyToken)
		if err != nil {
			return apperrors.New(apperrors.ErrStore, "idempotency lookup failed", err)
		}
		if exists {
			metrics.AdjustmentsTotal.WithLabelValues(req.Kind, "duplicate").Inc()
			return apperrors.New(apperrors.ErrDuplicateRejected, "idempotency token already processed", nil)
		}
	}

	if s.duplicateWindow > 0 {
		match, err := s.txRepo.HasRecentMatch(ctx, req.UserID, txType, delta, s.duplicateWindow)
		if err != nil {
			return apperrors.New(apperrors.ErrStore, "near-duplicate lookup failed", err)
		}
		if match {
			metrics.AdjustmentsTotal.WithLabelValues(req.Kind, "duplicate").Inc()
			return apperrors.New(apperrors.ErrDuplicateRejected, "identical adjustment submitted moments ago", nil)
		}
	}

	description := req.Reason
	var idempotencyKey *string
	if req.IdempotencyToken != "" {
		description = fmt.Sprintf("%s [%s]", req.Reason, req.IdempotencyToken)
		token := req.IdempotencyToken
		idempotencyKey = &token
	}

	txn := &models.PointTransaction{
		TxID:           uuid.NewString(),
		UserID:         req.UserID,
		Points:         delta,
		Type:           txType,
		Description:    description,
		ReferenceID:    req.ReferenceID,
		IdempotencyKey: idempotencyKey,
		CreatedAt:      time.Now(),
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		profile := &models.Profile{UserID: req.UserID}
		if err := tx.Where("user_id = ?", req.UserID).FirstOrCreate(profile).Error; err != nil {
			return err
		}
		if err := tx.Create(txn).Error; err != nil {
			return err
		}
		// Atomic delta at the store: the insert above either commits
		// together with this update or not at all.
		result := tx.Model(&models.Profile{}).
			Where("user_id = ?", req.UserID).
			Update("balance", gorm.Expr("balance + ?", delta))
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		// Two racing submissions with the same token: the unique index
		// on idempotency_key rejects the loser.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			metrics.AdjustmentsTotal.WithLabelValues(req.Kind, "duplicate").Inc()
			return apperrors.New(apperrors.ErrDuplicateRejected, "idempotency token already processed", err)
		}
		metrics.AdjustmentsTotal.WithLabelValues(req.Kind, "error").Inc()
		return apperrors.New(apperrors.ErrStore, "failed to write adjustment", err)
	}

	if req.IdempotencyToken != "" {
		s.tracker.Remember(req.UserID + ":" + req.IdempotencyToken)
	}

	metrics.AdjustmentsTotal.WithLabelValues(req.Kind, "ok").Inc()
	logger.WithFields(map[string]interface{}{
		"user_id":      req.UserID,
		"tx_id":        txn.TxID,
		"kind":         req.Kind,
		"points":       delta,
		"type":         txType,
		"reference_id": req.ReferenceID,
	}).Info("Adjustment applied")

	return nil
}

func validateAdjustment(req AdjustmentRequest) error {
	if req.UserID == "" {
		return apperrors.New(apperrors.ErrValidation, "user_id is required", nil)
	}
	if req.Kind != KindCredit && req.Kind != KindDebit {
		return apperrors.New(apperrors.ErrValidation, "kind must be credit or debit", nil)
	}
	if req.Amount <= 0 {
		return apperrors.New(apperrors.ErrValidation, "amount must be a positive integer", nil)
	}
	if req.Reason == "" {
		return apperrors.New(apperrors.ErrValidation, "reason is required", nil)
	}
	return nil
}
