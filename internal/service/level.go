package service

import (
	"time"

	"loyalty-ledger/internal/models"
)

const (
	LevelBronze = "bronze"
	LevelSilver = "silver"
	LevelGold   = "gold"
)

// Tier thresholds on points earned within the current calendar month.
const (
	silverThreshold int64 = 2000
	goldThreshold   int64 = 5000
)

type LevelInfo struct {
	Level             string `json:"level"`
	MonthlyPoints     int64  `json:"monthly_points"`
	CurrentProgress   int64  `json:"current_progress"`
	MaxProgress       int64  `json:"max_progress"`
	PointsToNextLevel int64  `json:"points_to_next_level,omitempty"`
	NextLevel         string `json:"next_level,omitempty"`
}

// MonthlyPoints sums the signed points of transactions stamped within
// now's calendar month, up to and including now. Pure: same input and
// same now always produce the same result.
func MonthlyPoints(txns []models.PointTransaction, now time.Time) int64 {
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	var total int64
	for _, t := range txns {
		if t.CreatedAt.Before(monthStart) || t.CreatedAt.After(now) {
			continue
		}
		total += t.Points
	}
	return total
}

// ComputeLevel maps a monthly point total onto the bronze/silver/gold
// bands. Gold has no next tier: progress is pinned at the ceiling.
func ComputeLevel(monthlyPoints int64) LevelInfo {
	info := LevelInfo{MonthlyPoints: monthlyPoints}

	switch {
	case monthlyPoints >= goldThreshold:
		info.Level = LevelGold
		info.CurrentProgress = goldThreshold
		info.MaxProgress = goldThreshold
	case monthlyPoints >= silverThreshold:
		info.Level = LevelSilver
		info.CurrentProgress = monthlyPoints - silverThreshold
		info.MaxProgress = goldThreshold - silverThreshold
		info.NextLevel = LevelGold
		info.PointsToNextLevel = info.MaxProgress - info.CurrentProgress
	default:
		info.Level = LevelBronze
		info.CurrentProgress = monthlyPoints
		info.MaxProgress = silverThreshold
		info.NextLevel = LevelSilver
		info.PointsToNextLevel = info.MaxProgress - info.CurrentProgress
	}

	return info
}

// LevelFor derives the level from a transaction list directly.
func LevelFor(txns []models.PointTransaction, now time.Time) LevelInfo {
	return ComputeLevel(MonthlyPoints(txns, now))
}
