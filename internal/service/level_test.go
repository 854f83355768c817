package service_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"loyalty-ledger/internal/models"
	"loyalty-ledger/internal/service"
)

func TestComputeLevel_Boundaries(t *testing.T) {
	// One point below silver: still bronze, one point to go after 1999.
	info := service.ComputeLevel(1999)
	assert.Equal(t, service.LevelBronze, info.Level)
	assert.Equal(t, int64(1999), info.CurrentProgress)
	assert.Equal(t, int64(2000), info.MaxProgress)
	assert.Equal(t, int64(1), info.PointsToNextLevel)
	assert.Equal(t, service.LevelSilver, info.NextLevel)

	// Exactly at the silver threshold: silver with zero progress.
	info = service.ComputeLevel(2000)
	assert.Equal(t, service.LevelSilver, info.Level)
	assert.Equal(t, int64(0), info.CurrentProgress)
	assert.Equal(t, int64(3000), info.MaxProgress)
	assert.Equal(t, int64(3000), info.PointsToNextLevel)
	assert.Equal(t, service.LevelGold, info.NextLevel)

	// Exactly at the gold threshold: pinned at the ceiling, no next tier.
	info = service.ComputeLevel(5000)
	assert.Equal(t, service.LevelGold, info.Level)
	assert.Equal(t, int64(5000), info.CurrentProgress)
	assert.Equal(t, int64(5000), info.MaxProgress)
	assert.Empty(t, info.NextLevel)
	assert.Zero(t, info.PointsToNextLevel)
}

func TestComputeLevel_AboveGoldStaysPinned(t *testing.T) {
	info := service.ComputeLevel(12000)
	assert.Equal(t, service.LevelGold, info.Level)
	assert.Equal(t, info.MaxProgress, info.CurrentProgress)
}

func TestMonthlyPoints_FiltersToCurrentMonth(t *testing.T) {
	now := time.Date(2026, time.August, 15, 12, 0, 0, 0, time.UTC)

	txns := []models.PointTransaction{
		{Points: 100, CreatedAt: time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC)},
		{Points: 250, CreatedAt: time.Date(2026, time.August, 14, 9, 30, 0, 0, time.UTC)},
		{Points: -50, CreatedAt: time.Date(2026, time.August, 15, 11, 0, 0, 0, time.UTC)},
		// Previous month: excluded.
		{Points: 9000, CreatedAt: time.Date(2026, time.July, 31, 23, 59, 59, 0, time.UTC)},
		// After "now": excluded.
		{Points: 500, CreatedAt: time.Date(2026, time.August, 20, 0, 0, 0, 0, time.UTC)},
	}

	assert.Equal(t, int64(300), service.MonthlyPoints(txns, now))
}

func TestMonthlyPoints_EmptyLedger(t *testing.T) {
	now := time.Date(2026, time.August, 15, 12, 0, 0, 0, time.UTC)
	assert.Zero(t, service.MonthlyPoints(nil, now))
}

func TestLevelFor_Deterministic(t *testing.T) {
	now := time.Date(2026, time.August, 15, 12, 0, 0, 0, time.UTC)
	txns := []models.PointTransaction{
		{Points: 2100, CreatedAt: time.Date(2026, time.August, 2, 10, 0, 0, 0, time.UTC)},
	}

	first := service.LevelFor(txns, now)
	second := service.LevelFor(txns, now)

	assert.Equal(t, first, second)
	assert.Equal(t, service.LevelSilver, first.Level)
	assert.Equal(t, int64(2100), first.MonthlyPoints)
	assert.Equal(t, int64(100), first.CurrentProgress)
}
