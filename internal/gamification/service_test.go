package gamification

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spellbuddy/backend/internal/database"
	"github.com/spellbuddy/backend/internal/logger"
	"github.com/spellbuddy/backend/internal/models"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func newTestService(t *testing.T) (*Service, *database.DB, *testClock) {
	t.Helper()
	ctx := context.Background()
	db, err := database.Connect(ctx, database.NewSQLiteDialect(), filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	clock := &testClock{now: time.Date(2026, time.May, 4, 9, 0, 0, 0, time.UTC)}
	svc := NewService(db, logger.NewNop(), WithClock(clock.Now), WithLocation(time.UTC))
	return svc, db, clock
}

func registerUser(t *testing.T, svc *Service, email string) int64 {
	t.Helper()
	u, err := svc.RegisterUser(context.Background(), email, "Test", "hash")
	if err != nil {
		t.Fatalf("RegisterUser() error = %v", err)
	}
	return u.ID
}

func seed(t *testing.T, svc *Service, defs ...models.Achievement) {
	t.Helper()
	if err := svc.SeedCatalog(context.Background(), defs); err != nil {
		t.Fatalf("SeedCatalog() error = %v", err)
	}
}

func recordExercises(t *testing.T, svc *Service, userID int64, n int, result ExerciseResult) {
	t.Helper()
	for i := 0; i < n; i++ {
		if err := svc.RecordExercise(context.Background(), userID, result); err != nil {
			t.Fatalf("RecordExercise() error = %v", err)
		}
	}
}

// ── Experience ──────────────────────────────────────────

func TestRegisterUser_StartsAtLevelOne(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	id := registerUser(t, svc, "ny@example.se")

	u, err := svc.GetUser(ctx, id)
	if err != nil {
		t.Fatalf("GetUser() error = %v", err)
	}
	if u.Level != 1 || u.ExperiencePoints != 0 || u.CurrentStreak != 0 || u.LastActivityAt != nil {
		t.Errorf("new user = %+v, want level 1 with nothing else", u)
	}
	p, err := svc.GetProgress(ctx, id)
	if err != nil {
		t.Fatalf("GetProgress() error = %v", err)
	}
	if p.Progress.UserID != id || p.Progress.TotalExercises != 0 {
		t.Errorf("progress = %+v, want empty row for user %d", p.Progress, id)
	}
}

func TestRegisterUser_DuplicateEmail(t *testing.T) {
	svc, _, _ := newTestService(t)
	registerUser(t, svc, "a@example.se")

	if _, err := svc.RegisterUser(context.Background(), "a@example.se", "Again", "hash"); !errors.Is(err, ErrConflict) {
		t.Errorf("RegisterUser() error = %v, want ErrConflict", err)
	}
}

func TestAwardExperience_Thresholds(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		points    int
		wantLevel int
		leveledUp bool
	}{
		{100, 1, false},
		{250, 2, true},
		{1300, 5, true},
	}
	for i, tt := range tests {
		id := registerUser(t, svc, fmt.Sprintf("u%d@example.se", i))
		got, err := svc.AwardExperience(ctx, id, tt.points)
		if err != nil {
			t.Fatalf("AwardExperience(%d) error = %v", tt.points, err)
		}
		if got.NewLevel != tt.wantLevel || got.LeveledUp != tt.leveledUp || got.OldLevel != 1 {
			t.Errorf("AwardExperience(%d) = %+v, want level %d leveledUp %v", tt.points, got, tt.wantLevel, tt.leveledUp)
		}
	}
}

func TestAwardExperience_KeepsTotalsInStep(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	id := registerUser(t, svc, "a@example.se")

	for _, pts := range []int{100, 0, 150, 400} {
		if _, err := svc.AwardExperience(ctx, id, pts); err != nil {
			t.Fatalf("AwardExperience(%d) error = %v", pts, err)
		}
	}

	p, err := svc.GetProgress(ctx, id)
	if err != nil {
		t.Fatalf("GetProgress() error = %v", err)
	}
	if p.Level.ExperiencePoints != 650 || p.Progress.TotalExperiencePoints != 650 {
		t.Errorf("xp = %d user / %d progress, want 650 both", p.Level.ExperiencePoints, p.Progress.TotalExperiencePoints)
	}
	if p.Level.Level != 3 {
		t.Errorf("level = %d, want 3", p.Level.Level)
	}
}

func TestAwardExperience_Errors(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	id := registerUser(t, svc, "a@example.se")

	if _, err := svc.AwardExperience(ctx, 9999, 10); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown user error = %v, want ErrNotFound", err)
	}

	_, err := svc.AwardExperience(ctx, id, -5)
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Field != "points" {
		t.Errorf("negative points error = %v, want ValidationError on points", err)
	}
	u, _ := svc.GetUser(ctx, id)
	if u.ExperiencePoints != 0 {
		t.Errorf("xp after rejected award = %d, want 0", u.ExperiencePoints)
	}
}

func TestAwardExperience_ConcurrentAwardsAreNotLost(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	id := registerUser(t, svc, "a@example.se")

	const workers = 10
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.AwardExperience(ctx, id, 30); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("AwardExperience() error = %v", err)
	}

	u, _ := svc.GetUser(ctx, id)
	if u.ExperiencePoints != 300 || u.Level != 2 {
		t.Errorf("after concurrent awards xp = %d level = %d, want 300 and 2", u.ExperiencePoints, u.Level)
	}
}

// ── Streak ──────────────────────────────────────────────

func TestTouchActivity_SkippedDayResets(t *testing.T) {
	svc, _, clock := newTestService(t)
	ctx := context.Background()
	id := registerUser(t, svc, "a@example.se")
	start := clock.Now()

	steps := []struct {
		at      time.Time
		current int
		longest int
		reset   bool
	}{
		{start, 1, 1, false},
		{start.Add(6 * time.Hour), 1, 1, false},
		{start.AddDate(0, 0, 2), 1, 1, true},
		{start.AddDate(0, 0, 3), 2, 2, false},
		{start.AddDate(0, 0, 4), 3, 3, false},
		{start.AddDate(0, 0, 6), 1, 3, true},
	}
	for i, st := range steps {
		clock.Set(st.at)
		got, err := svc.TouchActivity(ctx, id)
		if err != nil {
			t.Fatalf("step %d: TouchActivity() error = %v", i, err)
		}
		if got.CurrentStreak != st.current || got.LongestStreak != st.longest || got.Reset != st.reset {
			t.Errorf("step %d: got %+v, want current %d longest %d reset %v", i, got, st.current, st.longest, st.reset)
		}
	}

	u, _ := svc.GetUser(ctx, id)
	if u.CurrentStreak != 1 || u.LongestStreak != 3 {
		t.Errorf("user projection = %d/%d, want 1/3", u.CurrentStreak, u.LongestStreak)
	}
}

func TestTouchActivity_SameDayWritesNothing(t *testing.T) {
	svc, _, clock := newTestService(t)
	ctx := context.Background()
	id := registerUser(t, svc, "a@example.se")
	first := clock.Now()

	if _, err := svc.TouchActivity(ctx, id); err != nil {
		t.Fatalf("TouchActivity() error = %v", err)
	}
	clock.Set(first.Add(3 * time.Hour))
	a, _ := svc.TouchActivity(ctx, id)
	b, _ := svc.TouchActivity(ctx, id)
	if a.CurrentStreak != 1 || b.CurrentStreak != 1 {
		t.Errorf("same-day streaks = %d, %d, want 1, 1", a.CurrentStreak, b.CurrentStreak)
	}

	p, _ := svc.GetProgress(ctx, id)
	if p.Progress.LastActivityAt == nil || !p.Progress.LastActivityAt.Equal(first) {
		t.Errorf("last activity = %v, want first touch %v", p.Progress.LastActivityAt, first)
	}
}

func TestTouchActivity_ConcurrentTouchesAdvanceOnce(t *testing.T) {
	svc, _, clock := newTestService(t)
	ctx := context.Background()
	id := registerUser(t, svc, "a@example.se")

	if _, err := svc.TouchActivity(ctx, id); err != nil {
		t.Fatalf("TouchActivity() error = %v", err)
	}
	clock.Set(clock.Now().AddDate(0, 0, 1))

	const workers = 10
	var wg sync.WaitGroup
	results := make(chan *models.StreakResult, workers)
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := svc.TouchActivity(ctx, id)
			if err != nil {
				errs <- err
				return
			}
			results <- res
		}()
	}
	wg.Wait()
	close(results)
	close(errs)
	for err := range errs {
		t.Fatalf("TouchActivity() error = %v", err)
	}
	for res := range results {
		if res.CurrentStreak != 2 || res.Reset {
			t.Errorf("concurrent touch = %+v, want streak 2 without reset", res)
		}
	}

	p, _ := svc.GetProgress(ctx, id)
	if p.Progress.StreakDays != 2 || p.Progress.LongestStreak != 2 {
		t.Errorf("streak after concurrent touches = %d/%d, want 2/2", p.Progress.StreakDays, p.Progress.LongestStreak)
	}
}

func TestTouchActivity_UnknownUser(t *testing.T) {
	svc, _, _ := newTestService(t)
	if _, err := svc.TouchActivity(context.Background(), 4242); !errors.Is(err, ErrNotFound) {
		t.Errorf("TouchActivity() error = %v, want ErrNotFound", err)
	}
}

// ── Achievements ────────────────────────────────────────

func TestEvaluateAchievements_PracticeMakesPerfect(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	seed(t, svc, models.Achievement{
		ID: 3, Name: "Practice Makes Perfect", Description: "Complete 25 exercises", Icon: "📚",
		AchievementType: models.AchievementExercises, RequiredValue: 25,
	})
	id := registerUser(t, svc, "a@example.se")
	recordExercises(t, svc, id, 25, ExerciseResult{Correct: 3, Incorrect: 1})

	got, err := svc.EvaluateAchievements(ctx, id)
	if err != nil {
		t.Fatalf("EvaluateAchievements() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("EvaluateAchievements() returned %d unlocks, want 1", len(got))
	}
	if got[0].AchievementID != 3 || got[0].Name != "Practice Makes Perfect" || got[0].Icon != "📚" || !got[0].IsNew {
		t.Errorf("unlock = %+v", got[0])
	}

	again, err := svc.EvaluateAchievements(ctx, id)
	if err != nil {
		t.Fatalf("second EvaluateAchievements() error = %v", err)
	}
	if len(again) != 0 {
		t.Errorf("second evaluation returned %d unlocks, want 0", len(again))
	}
}

func TestEvaluateAchievements_BelowThreshold(t *testing.T) {
	svc, _, _ := newTestService(t)
	seed(t, svc, models.Achievement{ID: 3, Name: "P", Description: "d", AchievementType: models.AchievementExercises, RequiredValue: 25})
	id := registerUser(t, svc, "a@example.se")
	recordExercises(t, svc, id, 24, ExerciseResult{Correct: 1})

	got, err := svc.EvaluateAchievements(context.Background(), id)
	if err != nil || len(got) != 0 {
		t.Errorf("EvaluateAchievements() = %v, %v, want no unlocks", got, err)
	}
}

func TestEvaluateAchievements_NoProgressRow(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()
	seed(t, svc, Catalog...)

	res, err := db.ExecContext(ctx,
		`INSERT INTO users (email, name, password, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		"bare@example.se", "Bare", "x", 1, 1)
	if err != nil {
		t.Fatalf("insert user: %v", err)
	}
	id, _ := res.LastInsertId()

	got, err := svc.EvaluateAchievements(ctx, id)
	if err != nil {
		t.Fatalf("EvaluateAchievements() error = %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("EvaluateAchievements() = %#v, want empty slice", got)
	}
	if got, _ := svc.EvaluateAchievements(ctx, 777); len(got) != 0 {
		t.Errorf("unknown user unlocks = %d, want 0", len(got))
	}
}

func TestEvaluateAchievements_ConcurrentUnlockAtMostOnce(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()
	seed(t, svc, Catalog...)
	id := registerUser(t, svc, "a@example.se")
	recordExercises(t, svc, id, 10, ExerciseResult{Correct: 10})

	const workers = 8
	var wg sync.WaitGroup
	var mu sync.Mutex
	returned := map[int64]int{}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := svc.EvaluateAchievements(ctx, id)
			if err != nil {
				t.Errorf("EvaluateAchievements() error = %v", err)
				return
			}
			mu.Lock()
			defer mu.Unlock()
			for _, u := range got {
				returned[u.AchievementID]++
			}
		}()
	}
	wg.Wait()

	for aid, n := range returned {
		if n != 1 {
			t.Errorf("achievement %d returned %d times, want once", aid, n)
		}
	}

	var rows int
	if err := db.GetContext(ctx, &rows, `SELECT COUNT(*) FROM unlocked_achievements WHERE user_id = ?`, id); err != nil {
		t.Fatalf("count unlocks: %v", err)
	}
	// First Steps, Warming Up, Flawless, Perfectionist, Word Collector.
	if rows != 5 || len(returned) != 5 {
		t.Errorf("stored %d unlocks, returned %d distinct, want 5 and 5", rows, len(returned))
	}
}

func TestEvaluateAchievements_ChallengesAndLevel(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	seed(t, svc,
		models.Achievement{ID: 14, Name: "Two Challenges", Description: "d", AchievementType: models.AchievementChallenges, RequiredValue: 2},
		models.Achievement{ID: 12, Name: "Level Two", Description: "d", AchievementType: models.AchievementLevel, RequiredValue: 2},
		models.Achievement{ID: 16, Name: "Sharpshooter", Description: "d", AchievementType: models.AchievementAccuracy, RequiredValue: 0},
	)
	id := registerUser(t, svc, "a@example.se")
	recordExercises(t, svc, id, 1, ExerciseResult{Correct: 1})

	created, err := svc.CompleteChallenge(ctx, id, "daily-1")
	if err != nil || !created {
		t.Fatalf("CompleteChallenge() = %v, %v, want true", created, err)
	}
	if again, _ := svc.CompleteChallenge(ctx, id, "daily-1"); again {
		t.Error("repeated CompleteChallenge() reported a new completion")
	}
	if got, _ := svc.EvaluateAchievements(ctx, id); len(got) != 0 {
		t.Errorf("unlocks with one challenge = %+v, want none", got)
	}

	if _, err := svc.CompleteChallenge(ctx, id, "daily-2"); err != nil {
		t.Fatalf("CompleteChallenge() error = %v", err)
	}
	if _, err := svc.AwardExperience(ctx, id, 250); err != nil {
		t.Fatalf("AwardExperience() error = %v", err)
	}

	got, err := svc.EvaluateAchievements(ctx, id)
	if err != nil {
		t.Fatalf("EvaluateAchievements() error = %v", err)
	}
	ids := map[int64]bool{}
	for _, u := range got {
		ids[u.AchievementID] = true
	}
	if len(got) != 2 || !ids[14] || !ids[12] {
		t.Errorf("unlocks = %+v, want ids 12 and 14 only", got)
	}
}

func TestMarkAchievementsSeen(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	seed(t, svc, Catalog...)
	id := registerUser(t, svc, "a@example.se")
	recordExercises(t, svc, id, 1, ExerciseResult{Correct: 4})

	unlocked, err := svc.EvaluateAchievements(ctx, id)
	if err != nil || len(unlocked) == 0 {
		t.Fatalf("EvaluateAchievements() = %v, %v", unlocked, err)
	}
	var ids []int64
	for _, u := range unlocked {
		ids = append(ids, u.AchievementID)
	}

	p, _ := svc.GetProgress(ctx, id)
	if p.NewAchievements != len(ids) {
		t.Errorf("new achievements = %d, want %d", p.NewAchievements, len(ids))
	}

	for i := 0; i < 2; i++ {
		if err := svc.MarkAchievementsSeen(ctx, id, append(ids, 999)); err != nil {
			t.Fatalf("MarkAchievementsSeen() call %d error = %v", i+1, err)
		}
	}

	statuses, err := svc.ListAchievements(ctx, id)
	if err != nil {
		t.Fatalf("ListAchievements() error = %v", err)
	}
	if len(statuses) != len(Catalog) {
		t.Errorf("ListAchievements() returned %d entries, want %d", len(statuses), len(Catalog))
	}
	unlockedCount := 0
	for _, s := range statuses {
		if s.IsNew {
			t.Errorf("achievement %d still new after mark seen", s.ID)
		}
		if s.Unlocked {
			unlockedCount++
			if s.UnlockedAt == nil {
				t.Errorf("achievement %d unlocked without a time", s.ID)
			}
		}
	}
	if unlockedCount != len(ids) {
		t.Errorf("unlocked statuses = %d, want %d", unlockedCount, len(ids))
	}
	if p, _ := svc.GetProgress(ctx, id); p.NewAchievements != 0 {
		t.Errorf("new achievements after mark seen = %d, want 0", p.NewAchievements)
	}
}

func TestMarkAchievementsSeen_Validation(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	id := registerUser(t, svc, "a@example.se")

	if err := svc.MarkAchievementsSeen(ctx, id, nil); err != nil {
		t.Errorf("empty list error = %v, want nil", err)
	}
	var verr *ValidationError
	if err := svc.MarkAchievementsSeen(ctx, id, []int64{1, 0}); !errors.As(err, &verr) {
		t.Errorf("zero id error = %v, want ValidationError", err)
	}
}

func TestSeedCatalog(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()
	seed(t, svc, Catalog...)
	seed(t, svc, Catalog...)

	var n int
	if err := db.GetContext(ctx, &n, `SELECT COUNT(*) FROM achievements`); err != nil {
		t.Fatalf("count achievements: %v", err)
	}
	if n != len(Catalog) {
		t.Errorf("achievements after double seed = %d, want %d", n, len(Catalog))
	}

	err := svc.SeedCatalog(ctx, []models.Achievement{{ID: 99, Name: "x", AchievementType: "karma", RequiredValue: 1}})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Errorf("unknown type error = %v, want ValidationError", err)
	}
}

// ── Exercises ───────────────────────────────────────────

func TestRecordExercise_Counters(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	id := registerUser(t, svc, "a@example.se")

	for _, r := range []ExerciseResult{{Correct: 5}, {Correct: 3, Incorrect: 2}, {Incorrect: 1}} {
		if err := svc.RecordExercise(ctx, id, r); err != nil {
			t.Fatalf("RecordExercise(%+v) error = %v", r, err)
		}
	}

	var verr *ValidationError
	for _, r := range []ExerciseResult{{Correct: -1}, {Incorrect: -1}, {}} {
		if err := svc.RecordExercise(ctx, id, r); !errors.As(err, &verr) {
			t.Errorf("RecordExercise(%+v) error = %v, want ValidationError", r, err)
		}
	}

	p, _ := svc.GetProgress(ctx, id)
	got := p.Progress
	if got.TotalExercises != 3 || got.CorrectWords != 8 || got.IncorrectWords != 3 || got.PerfectExercises != 1 {
		t.Errorf("counters = %+v, want 3 exercises, 8 correct, 3 incorrect, 1 perfect", got)
	}
	if err := svc.RecordExercise(ctx, 5555, ExerciseResult{Correct: 1}); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown user error = %v, want ErrNotFound", err)
	}
}

func TestCompleteExercise_Pipeline(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()
	seed(t, svc, Catalog...)
	id := registerUser(t, svc, "a@example.se")

	out, err := svc.CompleteExercise(ctx, id, ExerciseCompletion{
		ExerciseResult: ExerciseResult{Correct: 5},
		Difficulty:     models.DifficultyBeginner,
		ChallengeKey:   "week-19",
	})
	if err != nil {
		t.Fatalf("CompleteExercise() error = %v", err)
	}
	if out.XPAwarded != 75 || !out.Perfect || !out.ChallengeCompleted {
		t.Errorf("outcome = %+v, want 75 xp, perfect, challenge completed", out)
	}
	if out.Level.ExperiencePoints != 75 || out.Level.NewLevel != 1 {
		t.Errorf("level = %+v, want 75 xp at level 1", out.Level)
	}
	if out.Streak.CurrentStreak != 1 {
		t.Errorf("streak = %+v, want 1", out.Streak)
	}

	ids := map[int64]bool{}
	for _, u := range out.Unlocked {
		ids[u.AchievementID] = true
	}
	// First Steps, Flawless, Challenger.
	if len(out.Unlocked) != 3 || !ids[1] || !ids[5] || !ids[14] {
		t.Errorf("unlocked = %+v, want ids 1, 5 and 14", out.Unlocked)
	}

	var events int
	if err := db.GetContext(ctx, &events, `SELECT COUNT(*) FROM xp_events WHERE user_id = ? AND xp_amount = 75`, id); err != nil {
		t.Fatalf("count xp events: %v", err)
	}
	if events != 1 {
		t.Errorf("xp events = %d, want 1", events)
	}
}

func TestCompleteExercise_Errors(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	id := registerUser(t, svc, "a@example.se")

	var verr *ValidationError
	_, err := svc.CompleteExercise(ctx, id, ExerciseCompletion{ExerciseResult: ExerciseResult{Correct: 1}, Difficulty: "legendary"})
	if !errors.As(err, &verr) || verr.Field != "difficulty" {
		t.Errorf("bad difficulty error = %v, want ValidationError on difficulty", err)
	}
	if _, err := svc.CompleteExercise(ctx, 31337, ExerciseCompletion{ExerciseResult: ExerciseResult{Correct: 1}}); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown user error = %v, want ErrNotFound", err)
	}

	rejected := []struct {
		name  string
		c     ExerciseCompletion
		field string
	}{
		{"nothing graded", ExerciseCompletion{}, "words"},
		{"long challenge key", ExerciseCompletion{
			ExerciseResult: ExerciseResult{Correct: 1},
			ChallengeKey:   strings.Repeat("k", MaxChallengeKeyLength+1),
		}, "challenge_key"},
	}
	for _, tt := range rejected {
		_, err := svc.CompleteExercise(ctx, id, tt.c)
		if !errors.As(err, &verr) || verr.Field != tt.field {
			t.Errorf("%s: error = %v, want ValidationError on %s", tt.name, err, tt.field)
		}
	}

	p, _ := svc.GetProgress(ctx, id)
	if p.Progress.TotalExercises != 0 || p.Progress.StreakDays != 0 || p.Level.ExperiencePoints != 0 {
		t.Errorf("rejected completions wrote progress %+v level %+v", p.Progress, p.Level)
	}
}

func TestCompleteChallenge_KeyLength(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	id := registerUser(t, svc, "a@example.se")

	tests := []struct {
		key     string
		wantErr bool
	}{
		{strings.Repeat("å", MaxChallengeKeyLength), false},
		{" " + strings.Repeat("k", MaxChallengeKeyLength) + " ", false},
		{strings.Repeat("k", MaxChallengeKeyLength+1), true},
		{"   ", true},
	}
	for _, tt := range tests {
		_, err := svc.CompleteChallenge(ctx, id, tt.key)
		var verr *ValidationError
		if got := errors.As(err, &verr); got != tt.wantErr {
			t.Errorf("CompleteChallenge(%d chars) error = %v, wantErr %v", len([]rune(tt.key)), err, tt.wantErr)
		}
	}
}

func TestGetProgress_LevelBar(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	id := registerUser(t, svc, "a@example.se")
	if _, err := svc.AwardExperience(ctx, id, 375); err != nil {
		t.Fatalf("AwardExperience() error = %v", err)
	}

	p, err := svc.GetProgress(ctx, id)
	if err != nil {
		t.Fatalf("GetProgress() error = %v", err)
	}
	want := models.LevelInfo{Level: 2, ExperiencePoints: 375, CurrentThreshold: 250, NextThreshold: 500, PercentToNext: 50}
	if p.Level != want {
		t.Errorf("level bar = %+v, want %+v", p.Level, want)
	}

	if _, err := svc.GetProgress(ctx, 8080); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown user error = %v, want ErrNotFound", err)
	}
}
