package ai

import (
	"context"
	"fmt"

	"github.com/blog-agent/internal/config"
	"github.com/blog-agent/internal/models"
	"github.com/blog-agent/pkg/logger"
	"github.com/blog-agent/pkg/ratelimit"
)

// GeneratedImage is the result of a text-to-image request
type GeneratedImage struct {
	URL           string
	RevisedPrompt string
}

// Service generates and translates blog content. Implementations convert
// provider errors (timeouts, non-success run states, exhausted poll budgets)
// into ordinary error values; the caller decides whether a failure is fatal.
type Service interface {
	// GenerateContent drafts a blog post for the given topic
	GenerateContent(ctx context.Context, title, description string) (string, error)
	// Translate renders the content into the target language
	Translate(ctx context.Context, content string, lang models.Language) (string, error)
	// GenerateImagePrompt derives a text-to-image prompt from the topic
	GenerateImagePrompt(ctx context.Context, title, description, style string) (string, error)
	// GenerateImage requests an image for the prompt and returns its URL
	GenerateImage(ctx context.Context, prompt string) (*GeneratedImage, error)
}

// NewService builds the configured provider
func NewService(cfg *config.Config, limiter *ratelimit.MultiLimiter, log *logger.Logger) (Service, error) {
	switch cfg.AI.Provider {
	case "openai":
		svc, err := NewOpenAIService(cfg.OpenAI, limiter, log)
		if err != nil {
			return nil, err
		}
		return svc, nil
	case "anthropic":
		return NewAnthropicService(cfg.Anthropic, limiter, log), nil
	}
	return nil, fmt.Errorf("unknown ai provider: %s", cfg.AI.Provider)
}
