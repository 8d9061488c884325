package models

import "time"

// ── Core Gamification Structs ─────────────────────────────

type UserProgress struct {
	UserID                int64      `json:"user_id"`
	TotalExercises        int        `json:"total_exercises"`
	CorrectWords          int        `json:"correct_words"`
	IncorrectWords        int        `json:"incorrect_words"`
	PerfectExercises      int        `json:"perfect_exercises"`
	StreakDays            int        `json:"streak_days"`
	LongestStreak         int        `json:"longest_streak"`
	LastActivityAt        *time.Time `json:"last_activity_at,omitempty"`
	TotalExperiencePoints int64      `json:"total_experience_points"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

type AchievementType string

const (
	AchievementStreak                 AchievementType = "streak"
	AchievementExercises              AchievementType = "exercises"
	AchievementPerfectExercises       AchievementType = "perfect_exercises"
	AchievementCorrectWords           AchievementType = "correct_words"
	AchievementLevel                  AchievementType = "level"
	AchievementChallenges             AchievementType = "challenges"
	AchievementAccuracy               AchievementType = "accuracy"
	AchievementTime                   AchievementType = "time"
	AchievementDifficultyBeginner     AchievementType = "difficulty_beginner"
	AchievementDifficultyIntermediate AchievementType = "difficulty_intermediate"
	AchievementDifficultyAdvanced     AchievementType = "difficulty_advanced"
	AchievementDifficultyExpert       AchievementType = "difficulty_expert"
)

type Achievement struct {
	ID              int64           `json:"id" db:"id"`
	Name            string          `json:"name" db:"name"`
	Description     string          `json:"description" db:"description"`
	Icon            string          `json:"icon" db:"icon"`
	AchievementType AchievementType `json:"achievement_type" db:"achievement_type"`
	RequiredValue   int             `json:"required_value" db:"required_value"`
}

// UnlockedAchievement carries a copy of the achievement's display fields.
type UnlockedAchievement struct {
	UserID        int64     `json:"user_id"`
	AchievementID int64     `json:"achievement_id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	Icon          string    `json:"icon"`
	UnlockedAt    time.Time `json:"unlocked_at"`
	IsNew         bool      `json:"is_new"`
}

type AchievementStatus struct {
	Achievement
	Unlocked   bool       `json:"unlocked"`
	UnlockedAt *time.Time `json:"unlocked_at,omitempty"`
	IsNew      bool       `json:"is_new"`
}

type Difficulty string

const (
	DifficultyBeginner     Difficulty = "beginner"
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyAdvanced     Difficulty = "advanced"
	DifficultyExpert       Difficulty = "expert"
)

var ValidDifficulties = map[Difficulty]bool{
	DifficultyBeginner:     true,
	DifficultyIntermediate: true,
	DifficultyAdvanced:     true,
	DifficultyExpert:       true,
}

type WordAttempt struct {
	Expected string `json:"expected"`
	Answer   string `json:"answer"`
}

// ── Engine Results ────────────────────────────────────────

type LevelChange struct {
	ExperiencePoints int64 `json:"experience_points"`
	LeveledUp        bool  `json:"leveled_up"`
	OldLevel         int   `json:"old_level"`
	NewLevel         int   `json:"new_level"`
}

type StreakResult struct {
	CurrentStreak int  `json:"current_streak"`
	LongestStreak int  `json:"longest_streak"`
	Reset         bool `json:"reset"`
}

// ── Request Types ─────────────────────────────────────────

type CompleteExerciseRequest struct {
	Difficulty   Difficulty    `json:"difficulty"`
	Words        []WordAttempt `json:"words"`
	ChallengeKey string        `json:"challenge_key,omitempty"`
}

type MarkSeenRequest struct {
	AchievementIDs []int64 `json:"achievement_ids"`
}

// ── Response Types ────────────────────────────────────────

type LevelInfo struct {
	Level            int     `json:"level"`
	ExperiencePoints int64   `json:"experience_points"`
	CurrentThreshold int64   `json:"current_threshold"`
	NextThreshold    int64   `json:"next_threshold"`
	PercentToNext    float64 `json:"percent_to_next"`
	MaxLevel         bool    `json:"max_level"`
}

type ProgressResponse struct {
	Progress        UserProgress `json:"progress"`
	Level           LevelInfo    `json:"level"`
	NewAchievements int          `json:"new_achievements"`
}

type ExerciseCompleteResponse struct {
	CorrectWords         int                   `json:"correct_words"`
	IncorrectWords       int                   `json:"incorrect_words"`
	Perfect              bool                  `json:"perfect"`
	XPAwarded            int                   `json:"xp_awarded"`
	Level                LevelChange           `json:"level"`
	Streak               StreakResult          `json:"streak"`
	AchievementsUnlocked []UnlockedAchievement `json:"achievements_unlocked"`
	Feedback             string                `json:"feedback,omitempty"`
}
