package gamification

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jmoiron/sqlx"
	"github.com/spellbuddy/backend/internal/database"
	"github.com/spellbuddy/backend/internal/logger"
	"github.com/spellbuddy/backend/internal/models"
)

// MaxChallengeKeyLength matches the challenge_key column width.
const MaxChallengeKeyLength = 100

type Service struct {
	db    *database.DB
	store *Store
	log   *logger.Logger
	loc   *time.Location
	now   func() time.Time
}

type Option func(*Service)

// WithClock replaces time.Now as the source of activity timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLocation sets the time zone whose midnight separates streak days.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

func NewService(db *database.DB, log *logger.Logger, opts ...Option) *Service {
	s := &Service{
		db:    db,
		store: NewStore(db),
		log:   log.With("service", "GamificationService"),
		loc:   time.UTC,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ExerciseResult is the scored outcome of one exercise.
type ExerciseResult struct {
	Correct   int
	Incorrect int
}

// Perfect reports whether at least one word was scored and none was wrong.
func (r ExerciseResult) Perfect() bool {
	return r.Incorrect == 0 && r.Correct > 0
}

func (r ExerciseResult) validate() error {
	if r.Correct < 0 {
		return &ValidationError{Field: "correct", Reason: "must not be negative"}
	}
	if r.Incorrect < 0 {
		return &ValidationError{Field: "incorrect", Reason: "must not be negative"}
	}
	if r.Correct+r.Incorrect == 0 {
		return &ValidationError{Field: "words", Reason: "no word was graded"}
	}
	return nil
}

type ExerciseCompletion struct {
	ExerciseResult
	Difficulty   models.Difficulty
	ChallengeKey string
}

type ExerciseOutcome struct {
	XPAwarded          int
	Perfect            bool
	ChallengeCompleted bool
	Level              models.LevelChange
	Streak             models.StreakResult
	Unlocked           []models.UnlockedAchievement
}

// ── Experience ──────────────────────────────────────────

// AwardExperience adds points to a user and recomputes the level upward
// from the stored one. The user row and the progress total change in one
// transaction.
func (s *Service) AwardExperience(ctx context.Context, userID int64, points int) (*models.LevelChange, error) {
	if points < 0 {
		return nil, &ValidationError{Field: "points", Reason: "must not be negative"}
	}
	now := s.now()

	var change models.LevelChange
	err := s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		oldXP, oldLevel, err := s.store.LockUser(ctx, tx, userID)
		if err != nil {
			return err
		}
		newXP := oldXP + int64(points)
		newLevel := LevelFrom(oldLevel, newXP)

		if err := s.store.UpdateUserExperience(ctx, tx, userID, newXP, newLevel, now); err != nil {
			return err
		}
		if err := s.store.EnsureProgress(ctx, tx, userID, now); err != nil {
			return err
		}
		if err := s.store.AddProgressExperience(ctx, tx, userID, int64(points), now); err != nil {
			return err
		}

		change = models.LevelChange{
			ExperiencePoints: newXP,
			LeveledUp:        newLevel > oldLevel,
			OldLevel:         oldLevel,
			NewLevel:         newLevel,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if change.LeveledUp {
		s.log.Info("User leveled up", "user_id", userID, "old_level", change.OldLevel, "new_level", change.NewLevel)
	}
	return &change, nil
}

// ── Streak ──────────────────────────────────────────────

// TouchActivity records activity at the service clock's now. Repeated
// touches on the same day leave the stored streak untouched.
func (s *Service) TouchActivity(ctx context.Context, userID int64) (*models.StreakResult, error) {
	now := s.now()

	var result models.StreakResult
	err := s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.store.UserExists(ctx, tx, userID); err != nil {
			return err
		}
		if err := s.store.EnsureProgress(ctx, tx, userID, now); err != nil {
			return err
		}
		state, err := s.store.LockStreak(ctx, tx, userID)
		if err != nil {
			return err
		}

		next, transition := AdvanceStreak(state, now, s.loc)
		if transition != StreakSameDay {
			if err := s.store.SaveStreak(ctx, tx, userID, next, now); err != nil {
				return err
			}
		}

		result = models.StreakResult{
			CurrentStreak: next.Current,
			LongestStreak: next.Longest,
			Reset:         transition == StreakReset,
		}
		s.log.Debug("Streak touched", "user_id", userID, "transition", transition.String(), "streak", next.Current)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// ── Achievements ────────────────────────────────────────

// EvaluateAchievements unlocks every catalog entry the user now qualifies
// for and returns only the ones this call created. A user without progress
// gets an empty list.
func (s *Service) EvaluateAchievements(ctx context.Context, userID int64) ([]models.UnlockedAchievement, error) {
	now := s.now()
	unlocked := []models.UnlockedAchievement{}

	progress, err := s.store.GetProgress(ctx, s.db, userID)
	if errors.Is(err, ErrNotFound) {
		return unlocked, nil
	}
	if err != nil {
		return nil, err
	}
	level, _, err := s.store.GetUserLevel(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}

	catalog, err := s.store.LoadCatalog(ctx, s.db)
	if err != nil {
		return nil, err
	}
	already, err := s.store.UnlockedIDs(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}
	cands, err := candidates(catalog, already)
	if err != nil {
		return nil, err
	}

	snap := Snapshot{Progress: *progress, Level: level}
	if needsChallengeCount(cands) {
		if snap.CompletedChallenges, err = s.store.CountChallenges(ctx, s.db, userID); err != nil {
			return nil, err
		}
	}

	for _, c := range cands {
		if !c.criterion.Met(snap) {
			continue
		}
		created, err := s.store.InsertUnlock(ctx, s.db, userID, c.achievement.ID, now)
		if err != nil {
			return unlocked, err
		}
		if !created {
			continue
		}
		unlocked = append(unlocked, models.UnlockedAchievement{
			UserID:        userID,
			AchievementID: c.achievement.ID,
			Name:          c.achievement.Name,
			Description:   c.achievement.Description,
			Icon:          c.achievement.Icon,
			UnlockedAt:    time.Unix(now.Unix(), 0).UTC(),
			IsNew:         true,
		})
		s.log.Info("Achievement unlocked", "user_id", userID, "achievement_id", c.achievement.ID, "name", c.achievement.Name)
	}
	return unlocked, nil
}

// MarkAchievementsSeen clears the new flag on the given unlocks. Unknown
// ids and an empty list are not errors.
func (s *Service) MarkAchievementsSeen(ctx context.Context, userID int64, achievementIDs []int64) error {
	for _, id := range achievementIDs {
		if id <= 0 {
			return &ValidationError{Field: "achievement_ids", Reason: "ids must be positive"}
		}
	}
	if len(achievementIDs) == 0 {
		return nil
	}

	n, err := s.store.MarkSeen(ctx, s.db, userID, achievementIDs)
	if err != nil {
		return err
	}
	s.log.Debug("Achievements marked seen", "user_id", userID, "updated", n)
	return nil
}

// SeedCatalog inserts the achievement definitions that are not stored yet.
// Every definition must parse to a known criterion.
func (s *Service) SeedCatalog(ctx context.Context, defs []models.Achievement) error {
	for _, a := range defs {
		if a.ID <= 0 {
			return &ValidationError{Field: "id", Reason: "achievement ids must be positive"}
		}
		if _, err := ParseCriterion(a.AchievementType, a.RequiredValue); err != nil {
			return &ValidationError{Field: "achievement_type", Reason: err.Error()}
		}
	}
	return s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		return s.store.SeedAchievements(ctx, tx, defs)
	})
}

func (s *Service) ListAchievements(ctx context.Context, userID int64) ([]models.AchievementStatus, error) {
	if err := s.store.UserExists(ctx, s.db, userID); err != nil {
		return nil, err
	}
	return s.store.ListAchievementStatus(ctx, s.db, userID)
}

// ── Exercises ───────────────────────────────────────────

// RecordExercise adds one exercise to the user's counters.
func (s *Service) RecordExercise(ctx context.Context, userID int64, result ExerciseResult) error {
	if err := result.validate(); err != nil {
		return err
	}
	now := s.now()
	return s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.store.UserExists(ctx, tx, userID); err != nil {
			return err
		}
		if err := s.store.EnsureProgress(ctx, tx, userID, now); err != nil {
			return err
		}
		return s.store.IncrementCounters(ctx, tx, userID, result.Correct, result.Incorrect, result.Perfect(), now)
	})
}

// CompleteChallenge stores a challenge completion once per key and reports
// whether this call stored it.
func (s *Service) CompleteChallenge(ctx context.Context, userID int64, challengeKey string) (bool, error) {
	key, err := cleanChallengeKey(challengeKey)
	if err != nil {
		return false, err
	}
	now := s.now()

	var created bool
	err = s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.store.UserExists(ctx, tx, userID); err != nil {
			return err
		}
		var err error
		created, err = s.store.InsertChallengeCompletion(ctx, tx, userID, key, now)
		return err
	})
	return created, err
}

func cleanChallengeKey(challengeKey string) (string, error) {
	key := strings.TrimSpace(challengeKey)
	if key == "" {
		return "", &ValidationError{Field: "challenge_key", Reason: "must not be empty"}
	}
	if utf8.RuneCountInString(key) > MaxChallengeKeyLength {
		return "", &ValidationError{Field: "challenge_key", Reason: fmt.Sprintf("longer than %d characters", MaxChallengeKeyLength)}
	}
	return key, nil
}

// CompleteExercise runs the whole completion pipeline: counters, optional
// challenge, experience, streak, achievements and the event log. Counters,
// experience and streak are each durable on their own; achievement and
// event log failures are logged and do not fail the call.
func (s *Service) CompleteExercise(ctx context.Context, userID int64, c ExerciseCompletion) (*ExerciseOutcome, error) {
	if c.Difficulty == "" {
		c.Difficulty = models.DifficultyBeginner
	}
	if !models.ValidDifficulties[c.Difficulty] {
		return nil, &ValidationError{Field: "difficulty", Reason: "unknown difficulty " + string(c.Difficulty)}
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(c.ChallengeKey) != "" {
		if _, err := cleanChallengeKey(c.ChallengeKey); err != nil {
			return nil, err
		}
	}

	if err := s.RecordExercise(ctx, userID, c.ExerciseResult); err != nil {
		return nil, err
	}

	outcome := &ExerciseOutcome{Perfect: c.Perfect()}
	if strings.TrimSpace(c.ChallengeKey) != "" {
		created, err := s.CompleteChallenge(ctx, userID, c.ChallengeKey)
		if err != nil {
			return nil, err
		}
		outcome.ChallengeCompleted = created
	}

	total := c.Correct + c.Incorrect
	outcome.XPAwarded = ExerciseXP(c.Correct, total, c.Difficulty)

	change, err := s.AwardExperience(ctx, userID, outcome.XPAwarded)
	if err != nil {
		return nil, err
	}
	outcome.Level = *change

	streak, err := s.TouchActivity(ctx, userID)
	if err != nil {
		return nil, err
	}
	outcome.Streak = *streak

	unlocked, err := s.EvaluateAchievements(ctx, userID)
	if err != nil {
		s.log.Warn("Achievement evaluation failed", "user_id", userID, "error", err)
	}
	if unlocked == nil {
		unlocked = []models.UnlockedAchievement{}
	}
	outcome.Unlocked = unlocked

	meta := map[string]interface{}{
		"difficulty":      string(c.Difficulty),
		"correct_words":   c.Correct,
		"incorrect_words": c.Incorrect,
		"perfect":         outcome.Perfect,
		"multiplier":      DifficultyMultiplier(c.Difficulty),
	}
	if c.ChallengeKey != "" {
		meta["challenge_key"] = c.ChallengeKey
	}
	if err := s.store.LogXPEvent(ctx, s.db, userID, "exercise_complete", outcome.XPAwarded, meta, s.now()); err != nil {
		s.log.Warn("Failed to log xp event", "user_id", userID, "error", err)
	}

	return outcome, nil
}

// ── Reads ───────────────────────────────────────────────

func (s *Service) GetProgress(ctx context.Context, userID int64) (*models.ProgressResponse, error) {
	level, xp, err := s.store.GetUserLevel(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}

	progress, err := s.store.GetProgress(ctx, s.db, userID)
	if errors.Is(err, ErrNotFound) {
		progress = &models.UserProgress{UserID: userID}
	} else if err != nil {
		return nil, err
	}

	newCount, err := s.store.CountNewUnlocks(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}

	current, next, percent, atMax := LevelProgress(level, xp)
	return &models.ProgressResponse{
		Progress: *progress,
		Level: models.LevelInfo{
			Level:            level,
			ExperiencePoints: xp,
			CurrentThreshold: current,
			NextThreshold:    next,
			PercentToNext:    percent,
			MaxLevel:         atMax,
		},
		NewAchievements: newCount,
	}, nil
}

// ── Users ───────────────────────────────────────────────

// RegisterUser creates a level 1 user together with its empty progress row.
func (s *Service) RegisterUser(ctx context.Context, email, name, passwordHash string) (*models.User, error) {
	now := s.now()
	var id int64
	err := s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		if id, err = s.store.CreateUser(ctx, tx, email, name, passwordHash, now); err != nil {
			return err
		}
		return s.store.EnsureProgress(ctx, tx, id, now)
	})
	if err != nil {
		return nil, err
	}
	return s.store.GetUser(ctx, s.db, id)
}

func (s *Service) GetUser(ctx context.Context, userID int64) (*models.User, error) {
	return s.store.GetUser(ctx, s.db, userID)
}

func (s *Service) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.store.GetUserByEmail(ctx, s.db, email)
}
