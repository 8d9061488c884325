package gamification

import (
	"fmt"

	"github.com/spellbuddy/backend/internal/models"
)

// Catalog is the achievement set seeded at startup. IDs are stable: they
// are the keys unlock rows point at.
var Catalog = []models.Achievement{
	{ID: 1, Name: "First Steps", Description: "Complete your first exercise", Icon: "👣", AchievementType: models.AchievementExercises, RequiredValue: 1},
	{ID: 2, Name: "Warming Up", Description: "Complete 10 exercises", Icon: "🔥", AchievementType: models.AchievementExercises, RequiredValue: 10},
	{ID: 3, Name: "Practice Makes Perfect", Description: "Complete 25 exercises", Icon: "📚", AchievementType: models.AchievementExercises, RequiredValue: 25},
	{ID: 4, Name: "Dedicated Speller", Description: "Complete 100 exercises", Icon: "🏅", AchievementType: models.AchievementExercises, RequiredValue: 100},
	{ID: 5, Name: "Flawless", Description: "Finish an exercise without a single mistake", Icon: "✨", AchievementType: models.AchievementPerfectExercises, RequiredValue: 1},
	{ID: 6, Name: "Perfectionist", Description: "Finish 10 exercises without mistakes", Icon: "💎", AchievementType: models.AchievementPerfectExercises, RequiredValue: 10},
	{ID: 7, Name: "Word Collector", Description: "Spell 100 words correctly", Icon: "🧺", AchievementType: models.AchievementCorrectWords, RequiredValue: 100},
	{ID: 8, Name: "Wordsmith", Description: "Spell 500 words correctly", Icon: "🛠️", AchievementType: models.AchievementCorrectWords, RequiredValue: 500},
	{ID: 9, Name: "Three in a Row", Description: "Practice 3 days in a row", Icon: "📅", AchievementType: models.AchievementStreak, RequiredValue: 3},
	{ID: 10, Name: "Week Warrior", Description: "Practice 7 days in a row", Icon: "⚔️", AchievementType: models.AchievementStreak, RequiredValue: 7},
	{ID: 11, Name: "Monthly Master", Description: "Practice 30 days in a row", Icon: "🗓️", AchievementType: models.AchievementStreak, RequiredValue: 30},
	{ID: 12, Name: "Level Up", Description: "Reach level 5", Icon: "⬆️", AchievementType: models.AchievementLevel, RequiredValue: 5},
	{ID: 13, Name: "Rising Star", Description: "Reach level 10", Icon: "🌟", AchievementType: models.AchievementLevel, RequiredValue: 10},
	{ID: 14, Name: "Challenger", Description: "Complete your first challenge", Icon: "🎯", AchievementType: models.AchievementChallenges, RequiredValue: 1},
	{ID: 15, Name: "Challenge Champion", Description: "Complete 10 challenges", Icon: "🏆", AchievementType: models.AchievementChallenges, RequiredValue: 10},
	{ID: 16, Name: "Sharpshooter", Description: "Keep 90% accuracy over your exercises", Icon: "🎯", AchievementType: models.AchievementAccuracy, RequiredValue: 90},
	{ID: 17, Name: "Speed Speller", Description: "Finish an exercise in under a minute", Icon: "⏱️", AchievementType: models.AchievementTime, RequiredValue: 60},
	{ID: 18, Name: "Beginner Graduate", Description: "Complete 10 beginner exercises", Icon: "🌱", AchievementType: models.AchievementDifficultyBeginner, RequiredValue: 10},
	{ID: 19, Name: "Intermediate Graduate", Description: "Complete 10 intermediate exercises", Icon: "🌿", AchievementType: models.AchievementDifficultyIntermediate, RequiredValue: 10},
	{ID: 20, Name: "Advanced Graduate", Description: "Complete 10 advanced exercises", Icon: "🌳", AchievementType: models.AchievementDifficultyAdvanced, RequiredValue: 10},
	{ID: 21, Name: "Expert Graduate", Description: "Complete 10 expert exercises", Icon: "🏔️", AchievementType: models.AchievementDifficultyExpert, RequiredValue: 10},
}

// Snapshot is the state achievements are judged against.
type Snapshot struct {
	Progress            models.UserProgress
	Level               int
	CompletedChallenges int
}

// Criterion is a closed set of unlock rules, one type per achievement kind.
type Criterion interface {
	Kind() models.AchievementType
	Met(s Snapshot) bool
	criterion()
}

type StreakCriterion struct{ Days int }
type ExercisesCriterion struct{ Count int }
type PerfectExercisesCriterion struct{ Count int }
type CorrectWordsCriterion struct{ Count int }
type LevelCriterion struct{ Level int }
type ChallengesCriterion struct{ Count int }

// UnsupportedCriterion is a catalog kind with no unlock rule yet. It never
// qualifies.
type UnsupportedCriterion struct {
	Type  models.AchievementType
	Value int
}

func (c StreakCriterion) Kind() models.AchievementType { return models.AchievementStreak }
func (c StreakCriterion) Met(s Snapshot) bool          { return s.Progress.StreakDays >= c.Days }
func (StreakCriterion) criterion()                     {}

func (c ExercisesCriterion) Kind() models.AchievementType { return models.AchievementExercises }
func (c ExercisesCriterion) Met(s Snapshot) bool          { return s.Progress.TotalExercises >= c.Count }
func (ExercisesCriterion) criterion()                     {}

func (c PerfectExercisesCriterion) Kind() models.AchievementType {
	return models.AchievementPerfectExercises
}
func (c PerfectExercisesCriterion) Met(s Snapshot) bool { return s.Progress.PerfectExercises >= c.Count }
func (PerfectExercisesCriterion) criterion()            {}

func (c CorrectWordsCriterion) Kind() models.AchievementType { return models.AchievementCorrectWords }
func (c CorrectWordsCriterion) Met(s Snapshot) bool          { return s.Progress.CorrectWords >= c.Count }
func (CorrectWordsCriterion) criterion()                     {}

func (c LevelCriterion) Kind() models.AchievementType { return models.AchievementLevel }
func (c LevelCriterion) Met(s Snapshot) bool          { return s.Level >= c.Level }
func (LevelCriterion) criterion()                     {}

func (c ChallengesCriterion) Kind() models.AchievementType { return models.AchievementChallenges }
func (c ChallengesCriterion) Met(s Snapshot) bool          { return s.CompletedChallenges >= c.Count }
func (ChallengesCriterion) criterion()                     {}

func (c UnsupportedCriterion) Kind() models.AchievementType { return c.Type }
func (c UnsupportedCriterion) Met(Snapshot) bool            { return false }
func (UnsupportedCriterion) criterion()                     {}

// ParseCriterion maps a stored achievement type and threshold to its rule.
func ParseCriterion(t models.AchievementType, required int) (Criterion, error) {
	switch t {
	case models.AchievementStreak:
		return StreakCriterion{Days: required}, nil
	case models.AchievementExercises:
		return ExercisesCriterion{Count: required}, nil
	case models.AchievementPerfectExercises:
		return PerfectExercisesCriterion{Count: required}, nil
	case models.AchievementCorrectWords:
		return CorrectWordsCriterion{Count: required}, nil
	case models.AchievementLevel:
		return LevelCriterion{Level: required}, nil
	case models.AchievementChallenges:
		return ChallengesCriterion{Count: required}, nil
	case models.AchievementAccuracy, models.AchievementTime,
		models.AchievementDifficultyBeginner, models.AchievementDifficultyIntermediate,
		models.AchievementDifficultyAdvanced, models.AchievementDifficultyExpert:
		return UnsupportedCriterion{Type: t, Value: required}, nil
	default:
		return nil, fmt.Errorf("unknown achievement type %q", t)
	}
}

// candidate pairs a catalog entry with its parsed rule.
type candidate struct {
	achievement models.Achievement
	criterion   Criterion
}

// candidates returns the catalog entries not yet in unlocked.
func candidates(catalog []models.Achievement, unlocked map[int64]bool) ([]candidate, error) {
	var out []candidate
	for _, a := range catalog {
		if unlocked[a.ID] {
			continue
		}
		c, err := ParseCriterion(a.AchievementType, a.RequiredValue)
		if err != nil {
			return nil, fmt.Errorf("achievement %d: %w", a.ID, err)
		}
		out = append(out, candidate{achievement: a, criterion: c})
	}
	return out, nil
}

func needsChallengeCount(cs []candidate) bool {
	for _, c := range cs {
		if _, ok := c.criterion.(ChallengesCriterion); ok {
			return true
		}
	}
	return false
}
