package gamification

import (
	"math"

	"github.com/spellbuddy/backend/internal/models"
)

const (
	// XPPerCorrectWord is awarded for every correctly spelled word.
	XPPerCorrectWord = 10
	// PerfectExerciseBonus is added when no word in the exercise was wrong.
	PerfectExerciseBonus = 25
)

// DifficultyMultiplier returns the XP multiplier for an exercise difficulty.
func DifficultyMultiplier(d models.Difficulty) float64 {
	switch d {
	case models.DifficultyIntermediate:
		return 1.25
	case models.DifficultyAdvanced:
		return 1.5
	case models.DifficultyExpert:
		return 2.0
	default:
		return 1.0
	}
}

// PerfectBonus returns the bonus for a finished exercise.
func PerfectBonus(correct, total int) int {
	if total > 0 && correct == total {
		return PerfectExerciseBonus
	}
	return 0
}

// ExerciseXP computes the XP for a completed exercise.
func ExerciseXP(correct, total int, difficulty models.Difficulty) int {
	if correct < 0 || total <= 0 {
		return 0
	}
	base := correct*XPPerCorrectWord + PerfectBonus(correct, total)
	return ApplyMultiplier(base, DifficultyMultiplier(difficulty))
}

// ApplyMultiplier rounds the multiplied XP to the nearest integer.
func ApplyMultiplier(xp int, multiplier float64) int {
	return int(math.Round(float64(xp) * multiplier))
}
