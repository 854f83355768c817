package service

import (
	"context"
	"fmt"

	"loyalty-ledger/internal/models"
	"loyalty-ledger/internal/repository"
	apperrors "loyalty-ledger/pkg/errors"
)

// ScopeAll requests a ledger-wide duplicate scan.
const ScopeAll = "all"

// duplicateBucket is the coarse time window for grouping: two identical
// transactions on the same UTC calendar day are considered one action
// fired twice, the same pair weeks apart is legitimate repetition.
func duplicateBucket(txn models.PointTransaction) string {
	return txn.CreatedAt.UTC().Format("2006-01-02")
}

type DuplicateGroup struct {
	GroupKey         string   `json:"group_key"`
	UserID           string   `json:"user_id"`
	Type             string   `json:"type"`
	Points           int64    `json:"points"`
	Description      string   `json:"description"`
	Bucket           string   `json:"bucket"`
	TransactionCount int      `json:"transaction_count"`
	TransactionIDs   []uint64 `json:"transaction_ids"`
}

// DuplicateDetector finds groups of likely unintentional duplicate
// transactions. It is advisory only and never mutates the ledger.
type DuplicateDetector struct {
	txRepo *repository.TransactionRepository
}

func NewDuplicateDetector(txRepo *repository.TransactionRepository) *DuplicateDetector {
	return &DuplicateDetector{txRepo: txRepo}
}

// FindDuplicates groups transactions by (user, type, points,
// description, day bucket) and returns every group with two or more
// members. Member ids are in creation order: the first id is the row
// reconciliation keeps. Scope is ScopeAll or a single user id.
func (d *DuplicateDetector) FindDuplicates(ctx context.Context, scope string) ([]DuplicateGroup, error) {
	var (
		txns []models.PointTransaction
		err  error
	)
	if scope == ScopeAll {
		txns, err = d.txRepo.GetAll(ctx)
	} else {
		txns, err = d.txRepo.GetByUser(ctx, scope)
	}
	if err != nil {
		return nil, apperrors.New(apperrors.ErrStore, "failed to load transactions for duplicate scan", err)
	}

	groups := make(map[string]*DuplicateGroup)
	var order []string

	for _, t := range txns {
		bucket := duplicateBucket(t)
		key := fmt.Sprintf("%s|%s|%d|%s|%s", t.UserID, t.Type, t.Points, t.Description, bucket)

		g, ok := groups[key]
		if !ok {
			g = &DuplicateGroup{
				GroupKey:    key,
				UserID:      t.UserID,
				Type:        t.Type,
				Points:      t.Points,
				Description: t.Description,
				Bucket:      bucket,
			}
			groups[key] = g
			order = append(order, key)
		}
		g.TransactionCount++
		g.TransactionIDs = append(g.TransactionIDs, t.ID)
	}

	var result []DuplicateGroup
	for _, key := range order {
		if groups[key].TransactionCount > 1 {
			result = append(result, *groups[key])
		}
	}
	return result, nil
}

// ExcessCount sums the removable surplus across groups: every group
// keeps its first transaction, the rest are excess.
func ExcessCount(groups []DuplicateGroup) int {
	excess := 0
	for _, g := range groups {
		if g.TransactionCount > 1 {
			excess += g.TransactionCount - 1
		}
	}
	return excess
}
