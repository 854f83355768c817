// Seeds demo profiles and ledger rows, including deliberate duplicates
// and a drifted cached balance, for exercising audit and reconciliation
// against a local database.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"loyalty-ledger/internal/config"
	"loyalty-ledger/internal/models"
	"loyalty-ledger/internal/repository"
	"loyalty-ledger/pkg/logger"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init("info", "text", "stdout"); err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}

	db, err := gorm.Open(mysql.Open(cfg.Database.DSN()), &gorm.Config{TranslateError: true})
	if err != nil {
		logger.Fatal("Failed to connect to database:", err)
	}

	if err := db.AutoMigrate(&models.Profile{}, &models.PointTransaction{}); err != nil {
		logger.Fatal("Failed to migrate schema:", err)
	}

	ctx := context.Background()
	txRepo := repository.NewTransactionRepository(db)
	profileRepo := repository.NewProfileRepository(db)

	now := time.Now()

	// user-clean: consistent ledger and cache.
	seedTxn(ctx, txRepo, "user-clean", 500, models.TypePurchase, "order #1001", now.Add(-72*time.Hour))
	seedTxn(ctx, txRepo, "user-clean", 250, models.TypePurchase, "order #1002", now.Add(-24*time.Hour))
	seedBalance(ctx, profileRepo, "user-clean", 750)

	// user-dup: the same purchase credited twice within a minute.
	seedTxn(ctx, txRepo, "user-dup", 300, models.TypePurchase, "order #2001", now.Add(-2*time.Hour))
	seedTxn(ctx, txRepo, "user-dup", 300, models.TypePurchase, "order #2001", now.Add(-2*time.Hour).Add(40*time.Second))
	seedTxn(ctx, txRepo, "user-dup", -100, models.TypeAdjustment, "redeem coupon", now.Add(-time.Hour))
	seedBalance(ctx, profileRepo, "user-dup", 500)

	// user-drift: ledger sums to 730 but the cache says 700.
	seedTxn(ctx, txRepo, "user-drift", 400, models.TypePurchase, "order #3001", now.Add(-48*time.Hour))
	seedTxn(ctx, txRepo, "user-drift", 330, models.TypePurchase, "order #3002", now.Add(-12*time.Hour))
	seedBalance(ctx, profileRepo, "user-drift", 700)

	logger.Info("Seed complete: user-clean, user-dup, user-drift")
}

func seedTxn(ctx context.Context, repo *repository.TransactionRepository, userID string, points int64, txType, description string, at time.Time) {
	err := repo.Create(ctx, &models.PointTransaction{
		TxID:        uuid.NewString(),
		UserID:      userID,
		Points:      points,
		Type:        txType,
		Description: description,
		CreatedAt:   at,
	})
	if err != nil {
		logger.Fatal("Failed to seed transaction:", err)
	}
}

func seedBalance(ctx context.Context, repo *repository.ProfileRepository, userID string, balance int64) {
	if _, err := repo.Ensure(ctx, userID); err != nil {
		logger.Fatal("Failed to seed profile:", err)
	}
	if err := repo.SetBalance(ctx, userID, balance); err != nil {
		logger.Fatal("Failed to set balance:", err)
	}
}
