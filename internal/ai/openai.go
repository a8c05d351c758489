package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/blog-agent/internal/config"
	"github.com/blog-agent/internal/models"
	"github.com/blog-agent/pkg/logger"
	"github.com/blog-agent/pkg/ratelimit"
)

// OpenAIService generates content through preconfigured OpenAI assistants
// (thread/run protocol) and images through the one-shot images endpoint.
type OpenAIService struct {
	client                 openai.Client
	contentAssistantID     string
	translationAssistantID string
	chatModel              string
	imageModel             string
	imageSize              string
	pollInterval           time.Duration
	pollAttempts           int
	rateLimiter            *ratelimit.MultiLimiter
	log                    *logger.Logger
}

// NewOpenAIService creates a new OpenAI-backed content service
func NewOpenAIService(cfg config.OpenAIConfig, limiter *ratelimit.MultiLimiter, log *logger.Logger) (*OpenAIService, error) {
	pollInterval, err := time.ParseDuration(cfg.RunPollInterval)
	if err != nil {
		pollInterval = 2 * time.Second
	}
	pollAttempts := cfg.RunPollAttempts
	if pollAttempts <= 0 {
		pollAttempts = 60
	}

	return &OpenAIService{
		client:                 openai.NewClient(option.WithAPIKey(cfg.APIKey)),
		contentAssistantID:     cfg.ContentAssistantID,
		translationAssistantID: cfg.TranslationAssistantID,
		chatModel:              cfg.ChatModel,
		imageModel:             cfg.ImageModel,
		imageSize:              cfg.ImageSize,
		pollInterval:           pollInterval,
		pollAttempts:           pollAttempts,
		rateLimiter:            limiter,
		log:                    log.WithComponent("ai.openai"),
	}, nil
}

// GenerateContent drafts a blog post using the content assistant
func (s *OpenAIService) GenerateContent(ctx context.Context, title, description string) (string, error) {
	prompt := fmt.Sprintf(ContentPrompt, title, description)
	return s.runAssistant(ctx, s.contentAssistantID, prompt)
}

// Translate renders the content into the target language using the
// translation assistant
func (s *OpenAIService) Translate(ctx context.Context, content string, lang models.Language) (string, error) {
	assistantID := s.translationAssistantID
	if assistantID == "" {
		assistantID = s.contentAssistantID
	}
	prompt := fmt.Sprintf(TranslationPrompt, lang, content)
	return s.runAssistant(ctx, assistantID, prompt)
}

// GenerateImagePrompt derives a text-to-image prompt via chat completions
func (s *OpenAIService) GenerateImagePrompt(ctx context.Context, title, description, style string) (string, error) {
	if err := s.rateLimiter.Wait(ctx, ratelimit.LimiterOpenAI); err != nil {
		return "", fmt.Errorf("rate limit error: %w", err)
	}
	if style == "" {
		style = "professional"
	}

	resp, err := s.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(s.chatModel),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(fmt.Sprintf(ImagePromptRequest, title, description, style)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai API error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from openai")
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// GenerateImage requests an image and returns its URL and the provider's
// revised prompt
func (s *OpenAIService) GenerateImage(ctx context.Context, prompt string) (*GeneratedImage, error) {
	if err := s.rateLimiter.Wait(ctx, ratelimit.LimiterOpenAI); err != nil {
		return nil, fmt.Errorf("rate limit error: %w", err)
	}

	resp, err := s.client.Images.Generate(ctx, openai.ImageGenerateParams{
		Model:   openai.ImageModel(s.imageModel),
		Prompt:  prompt,
		Size:    openai.ImageGenerateParamsSize(s.imageSize),
		Quality: openai.ImageGenerateParamsQualityStandard,
		N:       openai.Int(1),
	})
	if err != nil {
		return nil, fmt.Errorf("openai image API error: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("no image returned from openai")
	}

	s.log.Debug().
		Str("model", s.imageModel).
		Msg("Image generated")

	return &GeneratedImage{
		URL:           resp.Data[0].URL,
		RevisedPrompt: resp.Data[0].RevisedPrompt,
	}, nil
}

// runAssistant drives the assistant protocol: create a thread, post the user
// message, start a run and poll its status until it completes or the poll
// budget is exhausted.
func (s *OpenAIService) runAssistant(ctx context.Context, assistantID, prompt string) (string, error) {
	if assistantID == "" {
		return "", fmt.Errorf("assistant ID not configured")
	}
	if err := s.rateLimiter.Wait(ctx, ratelimit.LimiterOpenAI); err != nil {
		return "", fmt.Errorf("rate limit error: %w", err)
	}

	thread, err := s.client.Beta.Threads.New(ctx, openai.BetaThreadNewParams{})
	if err != nil {
		return "", fmt.Errorf("failed to create thread: %w", err)
	}

	_, err = s.client.Beta.Threads.Messages.New(ctx, thread.ID, openai.BetaThreadMessageNewParams{
		Role: openai.BetaThreadMessageNewParamsRoleUser,
		Content: openai.BetaThreadMessageNewParamsContentUnion{
			OfString: openai.String(prompt),
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to post message: %w", err)
	}

	run, err := s.client.Beta.Threads.Runs.New(ctx, thread.ID, openai.BetaThreadRunNewParams{
		AssistantID: assistantID,
	})
	if err != nil {
		return "", fmt.Errorf("failed to start run: %w", err)
	}

	s.log.Debug().
		Str("thread_id", thread.ID).
		Str("run_id", run.ID).
		Msg("Assistant run started")

	return s.waitForRun(ctx, thread.ID, run.ID)
}

// waitForRun polls the run status and extracts the assistant's reply once
// the run completes. The failed and expired states, like an exhausted poll
// budget, all surface as errors.
func (s *OpenAIService) waitForRun(ctx context.Context, threadID, runID string) (string, error) {
	for attempt := 0; attempt < s.pollAttempts; attempt++ {
		run, err := s.client.Beta.Threads.Runs.Get(ctx, threadID, runID)
		if err != nil {
			return "", fmt.Errorf("failed to retrieve run: %w", err)
		}

		switch run.Status {
		case openai.RunStatusCompleted:
			return s.assistantReply(ctx, threadID)
		case openai.RunStatusFailed:
			return "", fmt.Errorf("assistant run failed")
		case openai.RunStatusExpired:
			return "", fmt.Errorf("assistant run expired")
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(s.pollInterval):
		}
	}

	return "", fmt.Errorf("run did not complete after %d polls", s.pollAttempts)
}

// assistantReply returns the text of the first assistant-authored message
// in the thread
func (s *OpenAIService) assistantReply(ctx context.Context, threadID string) (string, error) {
	page, err := s.client.Beta.Threads.Messages.List(ctx, threadID, openai.BetaThreadMessageListParams{})
	if err != nil {
		return "", fmt.Errorf("failed to list messages: %w", err)
	}

	for _, msg := range page.Data {
		if msg.Role != openai.MessageRoleAssistant {
			continue
		}
		var sb strings.Builder
		for _, part := range msg.Content {
			if part.Type == "text" {
				sb.WriteString(part.Text.Value)
			}
		}
		if sb.Len() > 0 {
			return sb.String(), nil
		}
	}

	return "", fmt.Errorf("no response from assistant")
}
