package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loyalty-ledger/internal/models"
	"loyalty-ledger/internal/service"
	apperrors "loyalty-ledger/pkg/errors"
)

func TestSubmit_SignCorrectness(t *testing.T) {
	f := newFixture(t)
	svc := f.adjustments(t, 0)
	ctx := context.Background()

	require.NoError(t, svc.Submit(ctx, service.AdjustmentRequest{
		UserID: "u1", Kind: service.KindCredit, Amount: 50, Reason: "bonus",
	}))
	require.NoError(t, svc.Submit(ctx, service.AdjustmentRequest{
		UserID: "u1", Kind: service.KindDebit, Amount: 50, Reason: "redeem",
	}))

	txns, err := f.txRepo.GetByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, txns, 2)
	assert.Equal(t, int64(50), txns[0].Points)
	assert.Equal(t, int64(-50), txns[1].Points)

	profile, err := f.profileRepo.GetByUser(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, profile)
	assert.Equal(t, int64(0), profile.Balance)
}

func TestSubmit_ValidationRejectsBeforeAnyWrite(t *testing.T) {
	f := newFixture(t)
	svc := f.adjustments(t, 0)
	ctx := context.Background()

	cases := []service.AdjustmentRequest{
		{UserID: "", Kind: service.KindCredit, Amount: 10, Reason: "x"},
		{UserID: "u1", Kind: "transfer", Amount: 10, Reason: "x"},
		{UserID: "u1", Kind: service.KindCredit, Amount: 0, Reason: "x"},
		{UserID: "u1", Kind: service.KindCredit, Amount: -10, Reason: "x"},
		{UserID: "u1", Kind: service.KindCredit, Amount: 10, Reason: ""},
	}
	for _, req := range cases {
		err := svc.Submit(ctx, req)
		assert.True(t, apperrors.HasCode(err, apperrors.ErrValidation), "expected validation error for %+v, got %v", req, err)
	}

	assert.Zero(t, f.countTxns(t, "u1"))
}

func TestSubmit_DebitRequiresCoveringBalance(t *testing.T) {
	f := newFixture(t)
	svc := f.adjustments(t, 0)
	ctx := context.Background()

	err := svc.Submit(ctx, service.AdjustmentRequest{
		UserID: "u1", Kind: service.KindDebit, Amount: 50, Reason: "redeem",
	})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrValidation))
	assert.Zero(t, f.countTxns(t, "u1"))

	// With a covering balance the same debit goes through.
	f.setBalance(t, "u1", 80)
	require.NoError(t, svc.Submit(ctx, service.AdjustmentRequest{
		UserID: "u1", Kind: service.KindDebit, Amount: 50, Reason: "redeem",
	}))

	profile, err := f.profileRepo.GetByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(30), profile.Balance)
}

func TestSubmit_IdempotencyTokenSuppression(t *testing.T) {
	f := newFixture(t)
	svc := f.adjustments(t, 0)
	ctx := context.Background()

	req := service.AdjustmentRequest{
		UserID: "u1", Kind: service.KindCredit, Amount: 100, Reason: "order credit",
		IdempotencyToken: "order-42",
	}

	require.NoError(t, svc.Submit(ctx, req))
	err := svc.Submit(ctx, req)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrDuplicateRejected))

	assert.Equal(t, int64(1), f.countTxns(t, "u1"))

	profile, perr := f.profileRepo.GetByUser(ctx, "u1")
	require.NoError(t, perr)
	assert.Equal(t, int64(100), profile.Balance)

	txns, terr := f.txRepo.GetByUser(ctx, "u1")
	require.NoError(t, terr)
	assert.Equal(t, "order credit [order-42]", txns[0].Description)
}

func TestSubmit_TokenSurvivesProcessRestart(t *testing.T) {
	// The in-memory window is gone after a restart; the persisted
	// idempotency key must still reject the retry.
	f := newFixture(t)
	ctx := context.Background()

	first := f.adjustments(t, 0)
	require.NoError(t, first.Submit(ctx, service.AdjustmentRequest{
		UserID: "u1", Kind: service.KindCredit, Amount: 100, Reason: "order credit",
		IdempotencyToken: "order-42",
	}))

	restarted := f.adjustments(t, 0)
	err := restarted.Submit(ctx, service.AdjustmentRequest{
		UserID: "u1", Kind: service.KindCredit, Amount: 100, Reason: "order credit",
		IdempotencyToken: "order-42",
	})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrDuplicateRejected))
	assert.Equal(t, int64(1), f.countTxns(t, "u1"))
}

func TestSubmit_NearDuplicateSuppression(t *testing.T) {
	f := newFixture(t)
	svc := f.adjustments(t, 60*time.Second)
	ctx := context.Background()

	req := service.AdjustmentRequest{
		UserID: "u1", Kind: service.KindCredit, Amount: 75, Reason: "kiosk scan",
	}
	require.NoError(t, svc.Submit(ctx, req))

	err := svc.Submit(ctx, req)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrDuplicateRejected))
	assert.Equal(t, int64(1), f.countTxns(t, "u1"))

	// A different amount is not a near-duplicate.
	require.NoError(t, svc.Submit(ctx, service.AdjustmentRequest{
		UserID: "u1", Kind: service.KindCredit, Amount: 80, Reason: "kiosk scan",
	}))
}

func TestSubmit_DefaultsTypeToAdjustment(t *testing.T) {
	f := newFixture(t)
	svc := f.adjustments(t, 0)
	ctx := context.Background()

	require.NoError(t, svc.Submit(ctx, service.AdjustmentRequest{
		UserID: "u1", Kind: service.KindCredit, Amount: 10, Reason: "manual credit",
	}))
	require.NoError(t, svc.Submit(ctx, service.AdjustmentRequest{
		UserID: "u1", Kind: service.KindCredit, Amount: 20, Reason: "order #9", Type: models.TypePurchase,
	}))

	txns, err := f.txRepo.GetByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, models.TypeAdjustment, txns[0].Type)
	assert.Equal(t, models.TypePurchase, txns[1].Type)
}
