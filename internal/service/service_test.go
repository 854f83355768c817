package service_test

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"loyalty-ledger/internal/models"
	"loyalty-ledger/internal/repository"
	"loyalty-ledger/internal/service"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	// One shared in-memory database per test, torn down with the test.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&models.Profile{}, &models.PointTransaction{}))
	return db
}

type fixture struct {
	db          *gorm.DB
	txRepo      *repository.TransactionRepository
	profileRepo *repository.ProfileRepository
	detector    *service.DuplicateDetector
	auditor     *service.BalanceAuditor
	engine      *service.ReconciliationEngine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := newTestDB(t)
	txRepo := repository.NewTransactionRepository(db)
	profileRepo := repository.NewProfileRepository(db)
	detector := service.NewDuplicateDetector(txRepo)
	return &fixture{
		db:          db,
		txRepo:      txRepo,
		profileRepo: profileRepo,
		detector:    detector,
		auditor:     service.NewBalanceAuditor(txRepo, profileRepo, detector),
		engine:      service.NewReconciliationEngine(txRepo, profileRepo, detector),
	}
}

// adjustments returns a service wired to this fixture. A window of 0
// disables near-duplicate suppression so tests can write freely.
func (f *fixture) adjustments(t *testing.T, window time.Duration) *service.AdjustmentService {
	t.Helper()
	tracker := service.NewMemoryTracker(time.Minute)
	t.Cleanup(tracker.Stop)
	return service.NewAdjustmentService(f.db, f.txRepo, f.profileRepo, tracker, window)
}

func (f *fixture) insertTxn(t *testing.T, userID string, points int64, txType, description string, at time.Time) models.PointTransaction {
	t.Helper()
	txn := models.PointTransaction{
		TxID:        uuid.NewString(),
		UserID:      userID,
		Points:      points,
		Type:        txType,
		Description: description,
		CreatedAt:   at,
	}
	require.NoError(t, f.db.Create(&txn).Error)
	return txn
}

func (f *fixture) setBalance(t *testing.T, userID string, balance int64) {
	t.Helper()
	ctx := context.Background()
	_, err := f.profileRepo.Ensure(ctx, userID)
	require.NoError(t, err)
	require.NoError(t, f.profileRepo.SetBalance(ctx, userID, balance))
}

func (f *fixture) countTxns(t *testing.T, userID string) int64 {
	t.Helper()
	var count int64
	require.NoError(t, f.db.Model(&models.PointTransaction{}).Where("user_id = ?", userID).Count(&count).Error)
	return count
}
