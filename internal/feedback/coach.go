package feedback

import (
	"context"
	"fmt"
	"strings"

	"github.com/spellbuddy/backend/internal/config"
	"github.com/spellbuddy/backend/internal/logger"
	"github.com/spellbuddy/backend/internal/models"
)

const systemPrompt = `Du är en vänlig stavningscoach för barn som lär sig svenska.
För varje felstavat ord: förklara kort varför det stavas som det gör och ge ett minnesknep.
Svara med en rad per ord i formatet "ord: förklaring". Skriv högst två meningar per ord.`

// maxMistakes bounds the prompt size for long exercises.
const maxMistakes = 10

// Coach turns the mistakes of an exercise into short explanations. It has
// no say in scoring.
type Coach struct {
	llm LLMClient
	log *logger.Logger
}

func NewCoach(llm LLMClient, log *logger.Logger) *Coach {
	return &Coach{llm: llm, log: log.With("service", "FeedbackCoach")}
}

// NewCoachFromConfig picks the backend named by FEEDBACK_MODE. It returns
// nil when feedback is off.
func NewCoachFromConfig(cfg *config.Config, log *logger.Logger) *Coach {
	switch cfg.FeedbackMode {
	case "off":
		log.Info("Feedback disabled")
		return nil
	case "api":
		log.Info("Feedback using Anthropic API", "model", cfg.AnthropicModel)
		return NewCoach(NewAPIClient(cfg.AnthropicAPIKey, cfg.AnthropicModel, log), log)
	default:
		log.Info("Feedback using mock client")
		return NewCoach(NewMockClient(), log)
	}
}

// Explain returns feedback text for the given mistakes. No mistakes means
// no call and empty text.
func (c *Coach) Explain(ctx context.Context, mistakes []models.WordAttempt) (string, error) {
	if len(mistakes) == 0 {
		return "", nil
	}
	resp, err := c.llm.Generate(ctx, systemPrompt, BuildPrompt(mistakes))
	if err != nil {
		return "", fmt.Errorf("generate feedback: %w", err)
	}
	c.log.Debug("Feedback generated", "mistakes", len(mistakes),
		"usage_in", resp.PromptTokens, "usage_out", resp.OutputTokens)
	return strings.TrimSpace(resp.Content), nil
}

// BuildPrompt lists each mistake on its own line.
func BuildPrompt(mistakes []models.WordAttempt) string {
	if len(mistakes) > maxMistakes {
		mistakes = mistakes[:maxMistakes]
	}
	var b strings.Builder
	b.WriteString("Eleven stavade fel på följande ord:\n")
	for _, m := range mistakes {
		fmt.Fprintf(&b, "- rätt: %s | skrev: %s\n", m.Expected, m.Answer)
	}
	return b.String()
}

func parseMistakeLine(line string) (expected, answer string, ok bool) {
	rest, found := strings.CutPrefix(strings.TrimSpace(line), "- rätt: ")
	if !found {
		return "", "", false
	}
	expected, answer, ok = strings.Cut(rest, " | skrev: ")
	return strings.TrimSpace(expected), strings.TrimSpace(answer), ok
}
