package exercise

import (
	"strings"

	"github.com/spellbuddy/backend/internal/models"
	"golang.org/x/text/unicode/norm"
)

// Result is the outcome of grading one exercise.
type Result struct {
	Correct   int
	Incorrect int
	Mistakes  []models.WordAttempt
}

// Perfect reports whether at least one word was graded and none was wrong.
func (r Result) Perfect() bool {
	return r.Correct > 0 && r.Incorrect == 0
}

func (r Result) Total() int {
	return r.Correct + r.Incorrect
}

// Grade compares every typed answer with its expected word. Attempts with
// an empty expected word are skipped.
func Grade(attempts []models.WordAttempt) Result {
	var res Result
	for _, a := range attempts {
		expected := Normalize(a.Expected)
		if expected == "" {
			continue
		}
		if strings.EqualFold(expected, Normalize(a.Answer)) {
			res.Correct++
			continue
		}
		res.Incorrect++
		res.Mistakes = append(res.Mistakes, a)
	}
	return res
}

// Normalize puts a word in NFC form and trims surrounding space, so that a
// precomposed å and a+ring compare equal.
func Normalize(word string) string {
	return strings.TrimSpace(norm.NFC.String(word))
}

// ParseDifficulty validates a difficulty name. Empty means beginner.
func ParseDifficulty(s string) (models.Difficulty, bool) {
	d := models.Difficulty(strings.ToLower(strings.TrimSpace(s)))
	if d == "" {
		return models.DifficultyBeginner, true
	}
	return d, models.ValidDifficulties[d]
}
