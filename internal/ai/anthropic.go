package ai

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/blog-agent/internal/config"
	"github.com/blog-agent/internal/models"
	"github.com/blog-agent/pkg/logger"
	"github.com/blog-agent/pkg/ratelimit"
)

// AnthropicService is an alternative text provider backed by the Claude
// Messages API. It does not support image generation; the pipeline treats
// that like any other image-step failure and continues without an image.
type AnthropicService struct {
	client      anthropic.Client
	model       string
	maxTokens   int
	rateLimiter *ratelimit.MultiLimiter
	log         *logger.Logger
}

// NewAnthropicService creates a new Claude-backed content service
func NewAnthropicService(cfg config.AnthropicConfig, limiter *ratelimit.MultiLimiter, log *logger.Logger) *AnthropicService {
	client := anthropic.NewClient(
		option.WithAPIKey(cfg.APIKey),
	)

	return &AnthropicService{
		client:      client,
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		rateLimiter: limiter,
		log:         log.WithComponent("ai.anthropic"),
	}
}

// GenerateContent drafts a blog post for the topic
func (s *AnthropicService) GenerateContent(ctx context.Context, title, description string) (string, error) {
	return s.complete(ctx, fmt.Sprintf(ContentPrompt, title, description))
}

// Translate renders the content into the target language
func (s *AnthropicService) Translate(ctx context.Context, content string, lang models.Language) (string, error) {
	return s.complete(ctx, fmt.Sprintf(TranslationPrompt, lang, content))
}

// GenerateImagePrompt derives a text-to-image prompt from the topic
func (s *AnthropicService) GenerateImagePrompt(ctx context.Context, title, description, style string) (string, error) {
	if style == "" {
		style = "professional"
	}
	return s.complete(ctx, fmt.Sprintf(ImagePromptRequest, title, description, style))
}

// GenerateImage is not supported by this provider
func (s *AnthropicService) GenerateImage(ctx context.Context, prompt string) (*GeneratedImage, error) {
	return nil, fmt.Errorf("image generation is not supported by the anthropic provider")
}

// complete sends a single user message to Claude and returns the text reply
func (s *AnthropicService) complete(ctx context.Context, userMessage string) (string, error) {
	if err := s.rateLimiter.Wait(ctx, ratelimit.LimiterAnthropic); err != nil {
		return "", fmt.Errorf("rate limit error: %w", err)
	}

	s.log.Debug().
		Str("model", s.model).
		Int("max_tokens", s.maxTokens).
		Msg("Sending request to Claude")

	message, err := s.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(s.model),
		MaxTokens: int64(s.maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userMessage)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("claude API error: %w", err)
	}

	var response string
	for _, block := range message.Content {
		textBlock := block.AsText()
		if textBlock.Text != "" {
			response += textBlock.Text
		}
	}

	if response == "" {
		return "", fmt.Errorf("no response from claude")
	}
	return response, nil
}
