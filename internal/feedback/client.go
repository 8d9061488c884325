package feedback

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/param"
	"github.com/spellbuddy/backend/internal/logger"
)

// LLMClient is the interface both feedback backends satisfy.
type LLMClient interface {
	Generate(ctx context.Context, systemPrompt string, userPrompt string) (*LLMResponse, error)
}

// LLMResponse holds the raw response content and token usage.
type LLMResponse struct {
	Content      string
	PromptTokens int
	OutputTokens int
}

// ── APIClient: Anthropic SDK ───────────────────────────────

type APIClient struct {
	client     *anthropic.Client
	model      string
	log        *logger.Logger
	retryDelay time.Duration
}

func NewAPIClient(apiKey, model string, log *logger.Logger) *APIClient {
	client := anthropic.NewClient(
		option.WithAPIKey(apiKey),
	)
	return &APIClient{
		client:     &client,
		model:      model,
		log:        log.With("component", "AnthropicClient"),
		retryDelay: 2 * time.Second,
	}
}

func (c *APIClient) Generate(ctx context.Context, systemPrompt string, userPrompt string) (*LLMResponse, error) {
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(c.model),
		MaxTokens:   1024,
		Temperature: param.NewOpt(0.4),
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	}

	message, err := c.callWithRetry(ctx, params)
	if err != nil {
		return nil, err
	}

	var responseText string
	for _, block := range message.Content {
		if block.Type == "text" {
			responseText = block.Text
			break
		}
	}

	if responseText == "" {
		return nil, fmt.Errorf("no text content in API response")
	}

	return &LLMResponse{
		Content:      responseText,
		PromptTokens: int(message.Usage.InputTokens),
		OutputTokens: int(message.Usage.OutputTokens),
	}, nil
}

// callWithRetry makes at most two attempts.
func (c *APIClient) callWithRetry(ctx context.Context, params anthropic.MessageNewParams) (*anthropic.Message, error) {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			c.log.Warn("Retrying Anthropic API call", "delay", c.retryDelay, "attempt", attempt+1)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.retryDelay):
			}
		}

		message, err := c.client.Messages.New(ctx, params)
		if err == nil {
			return message, nil
		}
		lastErr = err
		c.log.Warn("Anthropic API attempt failed", "attempt", attempt+1, "error", err)
	}
	return nil, fmt.Errorf("anthropic API failed after retries: %w", lastErr)
}

// ── MockClient: Local Development ──────────────────────────

// MockClient answers with one canned line per misspelled word found in the
// user prompt.
type MockClient struct{}

func NewMockClient() *MockClient {
	return &MockClient{}
}

func (m *MockClient) Generate(ctx context.Context, systemPrompt string, userPrompt string) (*LLMResponse, error) {
	var lines []string
	for _, line := range strings.Split(userPrompt, "\n") {
		expected, answer, ok := parseMistakeLine(line)
		if !ok {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s: du skrev %q. Titta noga på stavningen och försök igen.", expected, answer))
	}
	if len(lines) == 0 {
		lines = append(lines, "Bra jobbat! Fortsätt öva.")
	}
	content := strings.Join(lines, "\n")
	return &LLMResponse{
		Content:      content,
		PromptTokens: len(userPrompt) / 4,
		OutputTokens: len(content) / 4,
	}, nil
}
