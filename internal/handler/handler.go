package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"loyalty-ledger/internal/metrics"
	"loyalty-ledger/internal/repository"
	"loyalty-ledger/internal/scheduler"
	"loyalty-ledger/internal/service"
	apperrors "loyalty-ledger/pkg/errors"
)

func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

// statusForError maps the service error taxonomy onto HTTP statuses so
// callers can tell "fix your input" from "already processed" from
// "try again".
func statusForError(err error) int {
	switch apperrors.CodeOf(err) {
	case apperrors.ErrValidation:
		return http.StatusBadRequest
	case apperrors.ErrDuplicateRejected:
		return http.StatusConflict
	case apperrors.ErrAudit:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// userIDFromPath extracts the trailing segment of /api/{resource}/{userID}.
func userIDFromPath(path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) < 3 {
		return ""
	}
	return parts[2]
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// WithMetrics counts requests per endpoint and status.
func WithMetrics(endpoint string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r)
		metrics.HTTPRequestsTotal.WithLabelValues(r.Method, endpoint, strconv.Itoa(rec.status)).Inc()
	}
}

type AdjustmentHandler struct {
	adjustmentSvc *service.AdjustmentService
}

func NewAdjustmentHandler(adjustmentSvc *service.AdjustmentService) *AdjustmentHandler {
	return &AdjustmentHandler{adjustmentSvc: adjustmentSvc}
}

func (h *AdjustmentHandler) Submit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req service.AdjustmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.adjustmentSvc.Submit(r.Context(), req); err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"status": "accepted"})
}

type BalanceHandler struct {
	profileRepo *repository.ProfileRepository
}

func NewBalanceHandler(profileRepo *repository.ProfileRepository) *BalanceHandler {
	return &BalanceHandler{profileRepo: profileRepo}
}

func (h *BalanceHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	userID := userIDFromPath(r.URL.Path)
	if userID == "" {
		writeError(w, http.StatusBadRequest, "invalid path format, expected /api/balance/{user_id}")
		return
	}

	profile, err := h.profileRepo.Ensure(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get balance: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user_id":    profile.UserID,
		"balance":    profile.Balance,
		"updated_at": profile.UpdatedAt.Format(time.RFC3339),
	})
}

type LevelHandler struct {
	txRepo *repository.TransactionRepository
}

func NewLevelHandler(txRepo *repository.TransactionRepository) *LevelHandler {
	return &LevelHandler{txRepo: txRepo}
}

func (h *LevelHandler) GetLevel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	userID := userIDFromPath(r.URL.Path)
	if userID == "" {
		writeError(w, http.StatusBadRequest, "invalid path format, expected /api/level/{user_id}")
		return
	}

	txns, err := h.txRepo.GetByUser(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load transactions: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, service.LevelFor(txns, time.Now()))
}

type AuditHandler struct {
	auditor *service.BalanceAuditor
}

func NewAuditHandler(auditor *service.BalanceAuditor) *AuditHandler {
	return &AuditHandler{auditor: auditor}
}

func (h *AuditHandler) Audit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	userID := userIDFromPath(r.URL.Path)
	if userID == "" {
		writeError(w, http.StatusBadRequest, "invalid path format, expected /api/audit/{user_id}")
		return
	}

	result, err := h.auditor.Audit(r.Context(), userID)
	if err != nil {
		// status=error is still a result; surface both.
		writeJSON(w, statusForError(err), map[string]interface{}{
			"audit": result,
			"error": err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, result)
}

type ReconcileHandler struct {
	engine *service.ReconciliationEngine
}

func NewReconcileHandler(engine *service.ReconciliationEngine) *ReconcileHandler {
	return &ReconcileHandler{engine: engine}
}

func (h *ReconcileHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	userID := userIDFromPath(r.URL.Path)
	if userID == "" {
		writeError(w, http.StatusBadRequest, "invalid path format, expected /api/reconcile/{user_id}")
		return
	}

	result, err := h.engine.Reconcile(r.Context(), userID)
	if err != nil {
		writeError(w, statusForError(err), "reconciliation failed: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, result)
}

type DuplicatesHandler struct {
	detector *service.DuplicateDetector
}

func NewDuplicatesHandler(detector *service.DuplicateDetector) *DuplicatesHandler {
	return &DuplicatesHandler{detector: detector}
}

func (h *DuplicatesHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	scope := r.URL.Query().Get("user_id")
	if scope == "" {
		scope = service.ScopeAll
	}

	groups, err := h.detector.FindDuplicates(r.Context(), scope)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "duplicate scan failed: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"scope":        scope,
		"groups":       groups,
		"excess_total": service.ExcessCount(groups),
	})
}

type TransactionsHandler struct {
	txRepo       *repository.TransactionRepository
	historyLimit int
}

func NewTransactionsHandler(txRepo *repository.TransactionRepository, historyLimit int) *TransactionsHandler {
	return &TransactionsHandler{txRepo: txRepo, historyLimit: historyLimit}
}

func (h *TransactionsHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	userID := userIDFromPath(r.URL.Path)
	if userID == "" {
		writeError(w, http.StatusBadRequest, "invalid path format, expected /api/transactions/{user_id}")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 || limit > 200 {
		limit = h.historyLimit
	}

	txns, err := h.txRepo.GetByUserLatest(r.Context(), userID, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load transactions: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user_id": userID,
		"items":   txns,
		"count":   len(txns),
	})
}

type ScanHandler struct {
	scanScheduler *scheduler.DuplicateScanScheduler
}

func NewScanHandler(scanScheduler *scheduler.DuplicateScanScheduler) *ScanHandler {
	return &ScanHandler{scanScheduler: scanScheduler}
}

// Trigger runs a ledger-wide duplicate sweep outside the cron cadence.
func (h *ScanHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	go h.scanScheduler.RunOnce()

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "scan started"})
}

type StatsHandler struct {
	txRepo      *repository.TransactionRepository
	profileRepo *repository.ProfileRepository
	detector    *service.DuplicateDetector
}

func NewStatsHandler(
	txRepo *repository.TransactionRepository,
	profileRepo *repository.ProfileRepository,
	detector *service.DuplicateDetector,
) *StatsHandler {
	return &StatsHandler{txRepo: txRepo, profileRepo: profileRepo, detector: detector}
}

func (h *StatsHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	ctx := r.Context()

	profiles, err := h.profileRepo.Count(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to count profiles: "+err.Error())
		return
	}

	transactions, err := h.txRepo.CountAll(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to count transactions: "+err.Error())
		return
	}

	groups, err := h.detector.FindDuplicates(ctx, service.ScopeAll)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "duplicate scan failed: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"profiles":         profiles,
		"transactions":     transactions,
		"duplicate_groups": len(groups),
		"duplicate_excess": service.ExcessCount(groups),
		"generated_at":     time.Now().Format(time.RFC3339),
	})
}
