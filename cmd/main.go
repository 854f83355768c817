package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"loyalty-ledger/internal/config"
	"loyalty-ledger/internal/handler"
	"loyalty-ledger/internal/models"
	"loyalty-ledger/internal/repository"
	"loyalty-ledger/internal/scheduler"
	"loyalty-ledger/internal/service"
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

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output); err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}

	db, err := initDatabase(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database:", err)
	}
	defer closeDatabase(db)

	if err := db.AutoMigrate(&models.Profile{}, &models.PointTransaction{}); err != nil {
		logger.Fatal("Failed to migrate schema:", err)
	}

	txRepo := repository.NewTransactionRepository(db)
	profileRepo := repository.NewProfileRepository(db)

	tracker := service.NewMemoryTracker(time.Duration(cfg.Loyalty.TokenTTLMinutes) * time.Minute)
	defer tracker.Stop()

	detector := service.NewDuplicateDetector(txRepo)
	adjustmentSvc := service.NewAdjustmentService(db, txRepo, profileRepo, tracker,
		time.Duration(cfg.Loyalty.DuplicateWindowSeconds)*time.Second)
	auditor := service.NewBalanceAuditor(txRepo, profileRepo, detector)
	engine := service.NewReconciliationEngine(txRepo, profileRepo, detector)

	scanScheduler := scheduler.NewDuplicateScanScheduler(detector, engine, cfg.Loyalty.ScanCron, cfg.Loyalty.AutoReconcile)
	if err := scanScheduler.Start(); err != nil {
		logger.Fatal("Failed to start scheduler:", err)
	}
	defer scanScheduler.Stop()

	router := setupHTTPRouter(adjustmentSvc, auditor, engine, detector, scanScheduler, txRepo, profileRepo, cfg)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("Server starting on port", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed:", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error:", err)
	}

	logger.Info("Server stopped")
}

func initDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(cfg.DSN()), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Second)

	return db, nil
}

func closeDatabase(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		logger.Error("Failed to get database instance:", err)
		return
	}
	sqlDB.Close()
}

func setupHTTPRouter(
	adjustmentSvc *service.AdjustmentService,
	auditor *service.BalanceAuditor,
	engine *service.ReconciliationEngine,
	detector *service.DuplicateDetector,
	scanScheduler *scheduler.DuplicateScanScheduler,
	txRepo *repository.TransactionRepository,
	profileRepo *repository.ProfileRepository,
	cfg *config.Config,
) http.Handler {
	router := http.NewServeMux()

	adjustmentHandler := handler.NewAdjustmentHandler(adjustmentSvc)
	balanceHandler := handler.NewBalanceHandler(profileRepo)
	levelHandler := handler.NewLevelHandler(txRepo)
	auditHandler := handler.NewAuditHandler(auditor)
	reconcileHandler := handler.NewReconcileHandler(engine)
	duplicatesHandler := handler.NewDuplicatesHandler(detector)
	txHandler := handler.NewTransactionsHandler(txRepo, cfg.Loyalty.HistoryLimit)
	statsHandler := handler.NewStatsHandler(txRepo, profileRepo, detector)
	scanHandler := handler.NewScanHandler(scanScheduler)

	router.HandleFunc("/api/adjustments", handler.WithMetrics("/api/adjustments", adjustmentHandler.Submit))
	router.HandleFunc("/api/balance/", handler.WithMetrics("/api/balance", balanceHandler.GetBalance))
	router.HandleFunc("/api/level/", handler.WithMetrics("/api/level", levelHandler.GetLevel))
	router.HandleFunc("/api/audit/", handler.WithMetrics("/api/audit", auditHandler.Audit))
	router.HandleFunc("/api/reconcile/", handler.WithMetrics("/api/reconcile", reconcileHandler.Reconcile))
	router.HandleFunc("/api/duplicates", handler.WithMetrics("/api/duplicates", duplicatesHandler.List))
	router.HandleFunc("/api/transactions/", handler.WithMetrics("/api/transactions", txHandler.GetHistory))
	router.HandleFunc("/api/stats", handler.WithMetrics("/api/stats", statsHandler.GetStats))
	router.HandleFunc("/api/scan", handler.WithMetrics("/api/scan", scanHandler.Trigger))

	router.Handle("/metrics", promhttp.Handler())
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	return router
}
