package gamification

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/spellbuddy/backend/internal/database"
	"github.com/spellbuddy/backend/internal/models"
)

// Store holds the queries of the engine. Every method takes the executor to
// run on, so the same query serves both plain calls and transactions.
type Store struct {
	db *database.DB
}

func NewStore(db *database.DB) *Store {
	return &Store{db: db}
}

func (s *Store) rebind(query string) string {
	return s.db.Rebind(query)
}

type progressRow struct {
	UserID                int64         `db:"user_id"`
	TotalExercises        int           `db:"total_exercises"`
	CorrectWords          int           `db:"correct_words"`
	IncorrectWords        int           `db:"incorrect_words"`
	PerfectExercises      int           `db:"perfect_exercises"`
	StreakDays            int           `db:"streak_days"`
	LongestStreak         int           `db:"longest_streak"`
	LastActivityAt        sql.NullInt64 `db:"last_activity_at"`
	TotalExperiencePoints int64         `db:"total_experience_points"`
	UpdatedAt             int64         `db:"updated_at"`
}

func (r progressRow) model() models.UserProgress {
	return models.UserProgress{
		UserID:                r.UserID,
		TotalExercises:        r.TotalExercises,
		CorrectWords:          r.CorrectWords,
		IncorrectWords:        r.IncorrectWords,
		PerfectExercises:      r.PerfectExercises,
		StreakDays:            r.StreakDays,
		LongestStreak:         r.LongestStreak,
		LastActivityAt:        fromNullUnix(r.LastActivityAt),
		TotalExperiencePoints: r.TotalExperiencePoints,
		UpdatedAt:             time.Unix(r.UpdatedAt, 0).UTC(),
	}
}

func fromNullUnix(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.Unix(v.Int64, 0).UTC()
	return &t
}

func toNullUnix(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.Unix(), Valid: true}
}

const progressColumns = `user_id, total_exercises, correct_words, incorrect_words, perfect_exercises,
	streak_days, longest_streak, last_activity_at, total_experience_points, updated_at`

// ── Users ───────────────────────────────────────────────

// LockUser reads the XP and level of a user, locking the row for the rest
// of the transaction where the dialect supports it.
func (s *Store) LockUser(ctx context.Context, q sqlx.ExtContext, userID int64) (int64, int, error) {
	var row struct {
		ExperiencePoints int64 `db:"experience_points"`
		Level            int   `db:"level"`
	}
	err := sqlx.GetContext(ctx, q, &row,
		s.rebind(`SELECT experience_points, level FROM users WHERE id = ?`+s.db.Dialect.LockClause()), userID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, 0, ErrNotFound
	}
	if err != nil {
		return 0, 0, fmt.Errorf("lock user: %w", err)
	}
	return row.ExperiencePoints, row.Level, nil
}

func (s *Store) UpdateUserExperience(ctx context.Context, q sqlx.ExtContext, userID, xp int64, level int, now time.Time) error {
	_, err := q.ExecContext(ctx,
		s.rebind(`UPDATE users SET experience_points = ?, level = ?, updated_at = ? WHERE id = ?`),
		xp, level, now.Unix(), userID)
	if err != nil {
		return fmt.Errorf("update user experience: %w", err)
	}
	return nil
}

func (s *Store) UserExists(ctx context.Context, q sqlx.ExtContext, userID int64) error {
	var id int64
	err := sqlx.GetContext(ctx, q, &id, s.rebind(`SELECT id FROM users WHERE id = ?`), userID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}
	return nil
}

func (s *Store) GetUserLevel(ctx context.Context, q sqlx.ExtContext, userID int64) (int, int64, error) {
	var row struct {
		Level            int   `db:"level"`
		ExperiencePoints int64 `db:"experience_points"`
	}
	err := sqlx.GetContext(ctx, q, &row, s.rebind(`SELECT level, experience_points FROM users WHERE id = ?`), userID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, 0, ErrNotFound
	}
	if err != nil {
		return 0, 0, fmt.Errorf("get user level: %w", err)
	}
	return row.Level, row.ExperiencePoints, nil
}

type userRow struct {
	ID               int64         `db:"id"`
	Email            string        `db:"email"`
	Name             string        `db:"name"`
	Password         string        `db:"password"`
	ExperiencePoints int64         `db:"experience_points"`
	Level            int           `db:"level"`
	CurrentStreak    int           `db:"streak_days"`
	LongestStreak    int           `db:"longest_streak"`
	LastActivityAt   sql.NullInt64 `db:"last_activity_at"`
	CreatedAt        int64         `db:"created_at"`
	UpdatedAt        int64         `db:"updated_at"`
}

func (r userRow) model() *models.User {
	return &models.User{
		ID:               r.ID,
		Email:            r.Email,
		Name:             r.Name,
		Password:         r.Password,
		ExperiencePoints: r.ExperiencePoints,
		Level:            r.Level,
		CurrentStreak:    r.CurrentStreak,
		LongestStreak:    r.LongestStreak,
		LastActivityAt:   fromNullUnix(r.LastActivityAt),
		CreatedAt:        time.Unix(r.CreatedAt, 0).UTC(),
		UpdatedAt:        time.Unix(r.UpdatedAt, 0).UTC(),
	}
}

// The streak fields of a user are read from the progress row; users has no
// copy of its own.
const userSelect = `SELECT u.id, u.email, u.name, u.password, u.experience_points, u.level,
	COALESCE(p.streak_days, 0) AS streak_days, COALESCE(p.longest_streak, 0) AS longest_streak,
	p.last_activity_at, u.created_at, u.updated_at
	FROM users u LEFT JOIN user_progress p ON p.user_id = u.id`

func (s *Store) GetUser(ctx context.Context, q sqlx.ExtContext, userID int64) (*models.User, error) {
	var row userRow
	err := sqlx.GetContext(ctx, q, &row, s.rebind(userSelect+` WHERE u.id = ?`), userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return row.model(), nil
}

func (s *Store) GetUserByEmail(ctx context.Context, q sqlx.ExtContext, email string) (*models.User, error) {
	var row userRow
	err := sqlx.GetContext(ctx, q, &row, s.rebind(userSelect+` WHERE u.email = ?`), email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return row.model(), nil
}

// CreateUser inserts a level 1 user with no experience. A taken email
// gives ErrConflict.
func (s *Store) CreateUser(ctx context.Context, q sqlx.ExtContext, email, name, passwordHash string, now time.Time) (int64, error) {
	id, err := s.db.InsertID(ctx, q,
		`INSERT INTO users (email, name, password, experience_points, level, created_at, updated_at)
		 VALUES (?, ?, ?, 0, 1, ?, ?)`,
		email, name, passwordHash, now.Unix(), now.Unix())
	if s.db.Dialect.IsUniqueViolation(err) {
		return 0, ErrConflict
	}
	if err != nil {
		return 0, fmt.Errorf("create user: %w", err)
	}
	return id, nil
}

// ── Progress ────────────────────────────────────────────

// EnsureProgress creates the empty progress row of a user if it is missing.
func (s *Store) EnsureProgress(ctx context.Context, q sqlx.ExtContext, userID int64, now time.Time) error {
	query := s.db.Dialect.InsertIgnore("user_progress", []string{"user_id", "updated_at"}, []string{"user_id"})
	if _, err := q.ExecContext(ctx, s.rebind(query), userID, now.Unix()); err != nil {
		return fmt.Errorf("ensure progress: %w", err)
	}
	return nil
}

// GetProgress returns ErrNotFound when the user has no progress row yet.
func (s *Store) GetProgress(ctx context.Context, q sqlx.ExtContext, userID int64) (*models.UserProgress, error) {
	var row progressRow
	err := sqlx.GetContext(ctx, q, &row,
		s.rebind(`SELECT `+progressColumns+` FROM user_progress WHERE user_id = ?`), userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get progress: %w", err)
	}
	p := row.model()
	return &p, nil
}

func (s *Store) AddProgressExperience(ctx context.Context, q sqlx.ExtContext, userID, points int64, now time.Time) error {
	_, err := q.ExecContext(ctx,
		s.rebind(`UPDATE user_progress SET total_experience_points = total_experience_points + ?, updated_at = ?
		 WHERE user_id = ?`),
		points, now.Unix(), userID)
	if err != nil {
		return fmt.Errorf("add progress experience: %w", err)
	}
	return nil
}

// LockStreak reads the streak of a user under the row lock.
func (s *Store) LockStreak(ctx context.Context, q sqlx.ExtContext, userID int64) (StreakState, error) {
	var row struct {
		StreakDays     int           `db:"streak_days"`
		LongestStreak  int           `db:"longest_streak"`
		LastActivityAt sql.NullInt64 `db:"last_activity_at"`
	}
	err := sqlx.GetContext(ctx, q, &row,
		s.rebind(`SELECT streak_days, longest_streak, last_activity_at FROM user_progress WHERE user_id = ?`+
			s.db.Dialect.LockClause()), userID)
	if errors.Is(err, sql.ErrNoRows) {
		return StreakState{}, ErrNotFound
	}
	if err != nil {
		return StreakState{}, fmt.Errorf("lock streak: %w", err)
	}
	return StreakState{
		Current:        row.StreakDays,
		Longest:        row.LongestStreak,
		LastActivityAt: fromNullUnix(row.LastActivityAt),
	}, nil
}

func (s *Store) SaveStreak(ctx context.Context, q sqlx.ExtContext, userID int64, st StreakState, now time.Time) error {
	_, err := q.ExecContext(ctx,
		s.rebind(`UPDATE user_progress SET streak_days = ?, longest_streak = ?, last_activity_at = ?, updated_at = ?
		 WHERE user_id = ?`),
		st.Current, st.Longest, toNullUnix(st.LastActivityAt), now.Unix(), userID)
	if err != nil {
		return fmt.Errorf("save streak: %w", err)
	}
	return nil
}

// IncrementCounters adds one exercise and its word counts in a single
// statement.
func (s *Store) IncrementCounters(ctx context.Context, q sqlx.ExtContext, userID int64, correct, incorrect int, perfect bool, now time.Time) error {
	perfectInc := 0
	if perfect {
		perfectInc = 1
	}
	_, err := q.ExecContext(ctx,
		s.rebind(`UPDATE user_progress SET
		    total_exercises = total_exercises + 1,
		    correct_words = correct_words + ?,
		    incorrect_words = incorrect_words + ?,
		    perfect_exercises = perfect_exercises + ?,
		    updated_at = ?
		 WHERE user_id = ?`),
		correct, incorrect, perfectInc, now.Unix(), userID)
	if err != nil {
		return fmt.Errorf("increment counters: %w", err)
	}
	return nil
}

// ── Challenges ──────────────────────────────────────────

// InsertChallengeCompletion reports whether the completion was new.
func (s *Store) InsertChallengeCompletion(ctx context.Context, q sqlx.ExtContext, userID int64, key string, now time.Time) (bool, error) {
	query := s.db.Dialect.InsertIgnore("challenge_completions",
		[]string{"user_id", "challenge_key", "completed_at"}, []string{"user_id", "challenge_key"})
	res, err := q.ExecContext(ctx, s.rebind(query), userID, key, now.Unix())
	if err != nil {
		return false, fmt.Errorf("insert challenge completion: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert challenge completion: %w", err)
	}
	return n == 1, nil
}

func (s *Store) CountChallenges(ctx context.Context, q sqlx.ExtContext, userID int64) (int, error) {
	var count int
	err := sqlx.GetContext(ctx, q, &count,
		s.rebind(`SELECT COUNT(*) FROM challenge_completions WHERE user_id = ?`), userID)
	if err != nil {
		return 0, fmt.Errorf("count challenges: %w", err)
	}
	return count, nil
}

// ── Achievements ────────────────────────────────────────

// SeedAchievements inserts the catalog entries whose ids are missing.
// Existing rows are left as they are.
func (s *Store) SeedAchievements(ctx context.Context, q sqlx.ExtContext, defs []models.Achievement) error {
	query := s.rebind(s.db.Dialect.InsertIgnore("achievements",
		[]string{"id", "name", "description", "icon", "achievement_type", "required_value"}, []string{"id"}))
	for _, a := range defs {
		if _, err := q.ExecContext(ctx, query,
			a.ID, a.Name, a.Description, a.Icon, string(a.AchievementType), a.RequiredValue); err != nil {
			return fmt.Errorf("seed achievement %d: %w", a.ID, err)
		}
	}
	return nil
}

func (s *Store) LoadCatalog(ctx context.Context, q sqlx.ExtContext) ([]models.Achievement, error) {
	var catalog []models.Achievement
	err := sqlx.SelectContext(ctx, q, &catalog,
		`SELECT id, name, description, icon, achievement_type, required_value FROM achievements ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	return catalog, nil
}

func (s *Store) UnlockedIDs(ctx context.Context, q sqlx.ExtContext, userID int64) (map[int64]bool, error) {
	var ids []int64
	err := sqlx.SelectContext(ctx, q, &ids,
		s.rebind(`SELECT achievement_id FROM unlocked_achievements WHERE user_id = ?`), userID)
	if err != nil {
		return nil, fmt.Errorf("get unlocked achievements: %w", err)
	}
	unlocked := make(map[int64]bool, len(ids))
	for _, id := range ids {
		unlocked[id] = true
	}
	return unlocked, nil
}

// InsertUnlock records an unlock unless the pair already exists. It
// reports whether this call created the row.
func (s *Store) InsertUnlock(ctx context.Context, q sqlx.ExtContext, userID, achievementID int64, now time.Time) (bool, error) {
	query := s.db.Dialect.InsertIgnore("unlocked_achievements",
		[]string{"user_id", "achievement_id", "unlocked_at", "is_new"}, []string{"user_id", "achievement_id"})
	res, err := q.ExecContext(ctx, s.rebind(query), userID, achievementID, now.Unix(), true)
	if err != nil {
		return false, fmt.Errorf("insert unlock: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert unlock: %w", err)
	}
	return n == 1, nil
}

// MarkSeen clears is_new on the listed unlocks of a user and returns how
// many rows changed.
func (s *Store) MarkSeen(ctx context.Context, q sqlx.ExtContext, userID int64, achievementIDs []int64) (int64, error) {
	query, args, err := sqlx.In(
		`UPDATE unlocked_achievements SET is_new = ?
		 WHERE user_id = ? AND is_new = ? AND achievement_id IN (?)`,
		false, userID, true, achievementIDs)
	if err != nil {
		return 0, fmt.Errorf("build mark seen: %w", err)
	}
	res, err := q.ExecContext(ctx, s.rebind(query), args...)
	if err != nil {
		return 0, fmt.Errorf("mark seen: %w", err)
	}
	return res.RowsAffected()
}

func (s *Store) CountNewUnlocks(ctx context.Context, q sqlx.ExtContext, userID int64) (int, error) {
	var count int
	err := sqlx.GetContext(ctx, q, &count,
		s.rebind(`SELECT COUNT(*) FROM unlocked_achievements WHERE user_id = ? AND is_new = ?`), userID, true)
	if err != nil {
		return 0, fmt.Errorf("count new unlocks: %w", err)
	}
	return count, nil
}

// ListAchievementStatus returns the whole catalog with the user's unlock
// data filled in where present.
func (s *Store) ListAchievementStatus(ctx context.Context, q sqlx.ExtContext, userID int64) ([]models.AchievementStatus, error) {
	var rows []struct {
		models.Achievement
		UnlockedAt sql.NullInt64 `db:"unlocked_at"`
		IsNew      sql.NullBool  `db:"is_new"`
	}
	err := sqlx.SelectContext(ctx, q, &rows,
		s.rebind(`SELECT a.id, a.name, a.description, a.icon, a.achievement_type, a.required_value,
		        ua.unlocked_at, ua.is_new
		 FROM achievements a
		 LEFT JOIN unlocked_achievements ua ON ua.achievement_id = a.id AND ua.user_id = ?
		 ORDER BY a.id`), userID)
	if err != nil {
		return nil, fmt.Errorf("list achievements: %w", err)
	}

	statuses := make([]models.AchievementStatus, 0, len(rows))
	for _, r := range rows {
		statuses = append(statuses, models.AchievementStatus{
			Achievement: r.Achievement,
			Unlocked:    r.UnlockedAt.Valid,
			UnlockedAt:  fromNullUnix(r.UnlockedAt),
			IsNew:       r.IsNew.Valid && r.IsNew.Bool,
		})
	}
	return statuses, nil
}

// ── XP Events ───────────────────────────────────────────

func (s *Store) LogXPEvent(ctx context.Context, q sqlx.ExtContext, userID int64, eventType string, xpAmount int, metadata map[string]interface{}, now time.Time) error {
	var metaJSON *string
	if metadata != nil {
		b, err := json.Marshal(metadata)
		if err == nil {
			m := string(b)
			metaJSON = &m
		}
	}
	_, err := q.ExecContext(ctx,
		s.rebind(`INSERT INTO xp_events (user_id, event_type, xp_amount, metadata, created_at)
		 VALUES (?, ?, ?, ?, ?)`),
		userID, eventType, xpAmount, metaJSON, now.Unix())
	if err != nil {
		return fmt.Errorf("log xp event: %w", err)
	}
	return nil
}
