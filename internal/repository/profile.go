package repository

import (
	"context"
	"errors"

	"loyalty-ledger/internal/models"

	"gorm.io/gorm"
)

type ProfileRepository struct {
	db *gorm.DB
}

func NewProfileRepository(db *gorm.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// GetByUser returns the profile or nil when the user has none yet.
func (r *ProfileRepository) GetByUser(ctx context.Context, userID string) (*models.Profile, error) {
	var profile models.Profile
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&profile).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// Ensure returns the profile, creating it with a zero balance if missing.
func (r *ProfileRepository) Ensure(ctx context.Context, userID string) (*models.Profile, error) {
	profile := &models.Profile{UserID: userID}
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		FirstOrCreate(profile).Error
	return profile, err
}

// ApplyDelta adds the signed amount to the cached balance as a single
// UPDATE expression at the store. Never read-modify-write from memory.
func (r *ProfileRepository) ApplyDelta(ctx context.Context, userID string, delta int64) error {
	result := r.db.WithContext(ctx).
		Model(&models.Profile{}).
		Where("user_id = ?", userID).
		Update("balance", gorm.Expr("balance + ?", delta))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// SetBalance overwrites the cached balance. Reconciliation only.
func (r *ProfileRepository) SetBalance(ctx context.Context, userID string, balance int64) error {
	return r.db.WithContext(ctx).
		Model(&models.Profile{}).
		Where("user_id = ?", userID).
		Update("balance", balance).Error
}

func (r *ProfileRepository) ListPaginated(ctx context.Context, offset, limit int) ([]models.Profile, error) {
	var profiles []models.Profile
	err := r.db.WithContext(ctx).
		Order("user_id ASC").
		Offset(offset).
		Limit(limit).
		Find(&profiles).Error
	return profiles, err
}

func (r *ProfileRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Profile{}).
		Count(&count).Error
	return count, err
}
