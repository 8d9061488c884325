package gamification

import (
	"math"
	"sync"
)

// MaxLevel is the highest level in the curve.
const MaxLevel = 100

// levelGrowth is applied to each threshold after the seeded levels.
const levelGrowth = 1.15

// seededThresholds are the cumulative XP needed for levels 1-10.
var seededThresholds = [...]int64{100, 250, 500, 850, 1300, 1900, 2600, 3500, 4600, 6000}

// thresholds is indexed by level; index 0 is unused.
var thresholds = sync.OnceValue(func() [MaxLevel + 1]int64 {
	var t [MaxLevel + 1]int64
	copy(t[1:], seededThresholds[:])
	for lvl := len(seededThresholds) + 1; lvl <= MaxLevel; lvl++ {
		t[lvl] = int64(math.Round(float64(t[lvl-1]) * levelGrowth))
	}
	return t
})

// ExperienceForLevel returns the cumulative XP required to be at level.
// Levels outside [1, MaxLevel] are clamped.
func ExperienceForLevel(level int) int64 {
	if level < 1 {
		level = 1
	}
	if level > MaxLevel {
		level = MaxLevel
	}
	return thresholds()[level]
}

// LevelForExperience returns the highest level whose threshold xp reaches.
// Level 1 is the floor, even below its own threshold.
func LevelForExperience(xp int64) int {
	return LevelFrom(1, xp)
}

// LevelFrom walks upward from current while xp reaches the next threshold.
// It never returns less than current, so a level is never taken away.
func LevelFrom(current int, xp int64) int {
	t := thresholds()
	lvl := current
	if lvl < 1 {
		lvl = 1
	}
	for lvl < MaxLevel && xp >= t[lvl+1] {
		lvl++
	}
	return lvl
}

// LevelProgress describes where xp sits between level and the next one.
// The bar for level 1 starts at zero XP.
func LevelProgress(level int, xp int64) (current, next int64, percent float64, atMax bool) {
	current = ExperienceForLevel(level)
	if level >= MaxLevel {
		return current, current, 100, true
	}
	next = ExperienceForLevel(level + 1)
	base := current
	if level <= 1 {
		base = 0
	}
	if xp <= base {
		return current, next, 0, false
	}
	percent = float64(xp-base) / float64(next-base) * 100
	if percent > 100 {
		percent = 100
	}
	return current, next, math.Round(percent*10) / 10, false
}
