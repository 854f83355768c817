package repository

import (
	"context"
	"time"

	"loyalty-ledger/internal/models"

	"gorm.io/gorm"
)

type TransactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

func (r *TransactionRepository) Create(ctx context.Context, txn *models.PointTransaction) error {
	return r.db.WithContext(ctx).Create(txn).Error
}

// GetByUser returns the user's full ledger in creation order. The id
// tiebreak keeps ordering stable for rows stamped in the same instant.
func (r *TransactionRepository) GetByUser(ctx context.Context, userID string) ([]models.PointTransaction, error) {
	var txns []models.PointTransaction
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC, id ASC").
		Find(&txns).Error
	return txns, err
}

// GetAll returns every ledger row, grouped by owner then creation order.
// Used by the ledger-wide duplicate scan.
func (r *TransactionRepository) GetAll(ctx context.Context) ([]models.PointTransaction, error) {
	var txns []models.PointTransaction
	err := r.db.WithContext(ctx).
		Order("user_id ASC, created_at ASC, id ASC").
		Find(&txns).Error
	return txns, err
}

func (r *TransactionRepository) GetByUserLatest(ctx context.Context, userID string, limit int) ([]models.PointTransaction, error) {
	if limit <= 0 {
		limit = 50
	}
	var txns []models.PointTransaction
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&txns).Error
	return txns, err
}

// SumByUser computes the ledger balance: the sum of signed points over
// every transaction the user has, full scan.
func (r *TransactionRepository) SumByUser(ctx context.Context, userID string) (int64, error) {
	var sum int64
	err := r.db.WithContext(ctx).
		Model(&models.PointTransaction{}).
		Where("user_id = ?", userID).
		Select("COALESCE(SUM(points), 0)").
		Scan(&sum).Error
	return sum, err
}

func (r *TransactionRepository) DeleteByIDs(ctx context.Context, ids []uint64) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Delete(&models.PointTransaction{}).Error
}

// HasRecentMatch reports whether an identical adjustment (same user,
// type and signed amount) was written within the window ending now.
func (r *TransactionRepository) HasRecentMatch(ctx context.Context, userID, txType string, points int64, window time.Duration) (bool, error) {
	var count int64
	since := time.Now().Add(-window)
	err := r.db.WithContext(ctx).
		Model(&models.PointTransaction{}).
		Where("user_id = ? AND type = ? AND points = ? AND created_at >= ?", userID, txType, points, since).
		Count(&count).Error
	return count > 0, err
}

func (r *TransactionRepository) ExistsByIdempotencyKey(ctx context.Context, key string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.PointTransaction{}).
		Where("idempotency_key = ?", key).
		Count(&count).Error
	return count > 0, err
}

func (r *TransactionRepository) GetRecent(ctx context.Context, limit int) ([]models.PointTransaction, error) {
	if limit <= 0 {
		limit = 10
	}
	var txns []models.PointTransaction
	err := r.db.WithContext(ctx).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&txns).Error
	return txns, err
}

func (r *TransactionRepository) CountAll(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.PointTransaction{}).
		Count(&count).Error
	return count, err
}
