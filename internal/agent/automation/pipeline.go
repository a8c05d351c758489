package automation

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/blog-agent/internal/models"
)

// SummaryLength is the character budget for a block's summary
const SummaryLength = 200

// RunTopic processes one topic synchronously, bypassing the schedule
// window check. It backs the operator's manual "test generation" action,
// which is also the only way to re-run a failed topic, so unlike the
// scheduled path it reprocesses the topic regardless of its current status.
func (s *Scheduler) RunTopic(ctx context.Context, topicID uint) error {
	topic, err := s.repo.GetTopicByID(ctx, topicID)
	if err != nil {
		return fmt.Errorf("topic not found: %w", err)
	}
	schedule, err := s.repo.EnsureSchedule(ctx)
	if err != nil {
		return fmt.Errorf("failed to load schedule: %w", err)
	}

	// Forced claim: a manual run may re-trigger a failed or completed topic
	topic.Status = models.TopicStatusProcessing
	if err := s.repo.UpdateTopic(ctx, topic); err != nil {
		return fmt.Errorf("failed to mark topic processing: %w", err)
	}

	s.execute(ctx, topic, schedule)
	return nil
}

// processTopic claims the topic and drives the publishing pipeline. The
// claim is an atomic conditional update, so a concurrent worker that loses
// the race simply skips the topic.
func (s *Scheduler) processTopic(ctx context.Context, topic *models.Topic, schedule *models.PostingSchedule) {
	log := s.log.WithTopicID(topic.ID)

	claimed, err := s.repo.ClaimTopic(ctx, topic.ID)
	if err != nil {
		log.Error().Err(err).Msg("Failed to claim topic")
		return
	}
	if !claimed {
		log.Debug().Msg("Topic already claimed, skipping")
		return
	}
	topic.Status = models.TopicStatusProcessing

	s.execute(ctx, topic, schedule)
}

// execute runs the pipeline for an already-claimed topic and applies the
// failure policy
func (s *Scheduler) execute(ctx context.Context, topic *models.Topic, schedule *models.PostingSchedule) {
	log := s.log.WithTopicID(topic.ID)
	log.Info().Str("title", topic.Title).Msg("Processing topic")

	if err := s.runPipeline(ctx, topic, schedule); err != nil {
		log.Error().Err(err).Msg("Topic processing failed")
		s.logActivity(ctx, &topic.ID, models.ActionProcessTopic, models.LogStatusFailed, err.Error(), 0)
		topic.Status = models.TopicStatusFailed
		if uerr := s.repo.UpdateTopic(ctx, topic); uerr != nil {
			log.Error().Err(uerr).Msg("Failed to mark topic failed")
		}
	}
}

// runPipeline is the sequential per-topic pipeline: generate, create the
// block, then the optional translation, image and messaging steps. Only
// content generation is fatal to the topic; translation, image and
// messaging failures are logged and the topic still completes.
//
// Already-persisted artifacts are not rolled back when a later step fails.
func (s *Scheduler) runPipeline(ctx context.Context, topic *models.Topic, schedule *models.PostingSchedule) error {
	start := time.Now()
	content, err := s.ai.GenerateContent(ctx, topic.Title, topic.Description)
	if err != nil {
		s.logActivity(ctx, &topic.ID, models.ActionGenerateContent, models.LogStatusFailed, err.Error(), secondsSince(start))
		topic.Status = models.TopicStatusFailed
		if uerr := s.repo.UpdateTopic(ctx, topic); uerr != nil {
			return uerr
		}
		return nil
	}
	s.logActivity(ctx, &topic.ID, models.ActionGenerateContent, models.LogStatusSuccess,
		"Content generated successfully", secondsSince(start))

	position, err := s.availablePosition(ctx)
	if err != nil {
		return fmt.Errorf("failed to pick block position: %w", err)
	}

	block := &models.ContentBlock{
		Title:    topic.Title,
		Content:  content,
		Summary:  Summarize(content),
		Position: position,
		IsActive: true,
	}
	if err := s.repo.CreateBlock(ctx, block); err != nil {
		return fmt.Errorf("failed to create content block: %w", err)
	}

	topic.BlockID = &block.ID
	if err := s.repo.UpdateTopic(ctx, topic); err != nil {
		return fmt.Errorf("failed to link topic to block: %w", err)
	}

	if schedule.AutoTranslate {
		s.translateBlock(ctx, block, schedule.TargetLanguages)
	}
	if schedule.GenerateImages {
		s.generateImage(ctx, topic, block, schedule.ImageStyle)
	}
	if schedule.PostToTelegram {
		s.postToTelegram(ctx, block)
	}

	topic.Status = models.TopicStatusCompleted
	if err := s.repo.UpdateTopic(ctx, topic); err != nil {
		return fmt.Errorf("failed to mark topic completed: %w", err)
	}

	s.log.WithTopicID(topic.ID).WithBlockID(block.ID).Info().
		Int("position", block.Position).
		Msg("Topic completed")
	return nil
}

// availablePosition picks the display slot for a new block: a free slot
// from an inactive block if one exists, otherwise the slot of the least
// recently updated block, otherwise position 1. The block pool rotates
// over a fixed set of positions instead of growing without bound.
func (s *Scheduler) availablePosition(ctx context.Context) (int, error) {
	inactive, err := s.repo.FirstInactiveBlock(ctx)
	if err != nil {
		return 0, err
	}
	if inactive != nil {
		return inactive.Position, nil
	}

	oldest, err := s.repo.OldestUpdatedBlock(ctx)
	if err != nil {
		return 0, err
	}
	if oldest != nil {
		return oldest.Position, nil
	}

	return 1, nil
}

// translateBlock fills in the translated variants. Languages fail
// independently: one failed translation is logged and the rest still run.
func (s *Scheduler) translateBlock(ctx context.Context, block *models.ContentBlock, targets models.Languages) {
	for _, lang := range targets {
		if lang == s.cfg.BaseLanguage {
			continue
		}

		start := time.Now()
		translated, err := s.ai.Translate(ctx, block.Content, lang)
		if err != nil {
			s.logActivity(ctx, nil, models.ActionTranslateTo(lang), models.LogStatusFailed, err.Error(), secondsSince(start))
			continue
		}

		if !block.SetTranslation(lang, translated) {
			s.logActivity(ctx, nil, models.ActionTranslateTo(lang), models.LogStatusFailed,
				fmt.Sprintf("unsupported target language: %s", lang), secondsSince(start))
			continue
		}
		if err := s.repo.UpdateBlock(ctx, block); err != nil {
			s.logActivity(ctx, nil, models.ActionTranslateTo(lang), models.LogStatusFailed, err.Error(), secondsSince(start))
			continue
		}

		s.logActivity(ctx, nil, models.ActionTranslateTo(lang), models.LogStatusSuccess,
			fmt.Sprintf("Content translated to %s", lang), secondsSince(start))
	}
}

// generateImage derives an image prompt, requests the image, downloads it
// and attaches the stored filename to the block. Every sub-step failure is
// logged and leaves the block without an image; none of them fail the topic.
func (s *Scheduler) generateImage(ctx context.Context, topic *models.Topic, block *models.ContentBlock, style string) {
	start := time.Now()
	prompt, err := s.ai.GenerateImagePrompt(ctx, topic.Title, topic.Description, style)
	if err != nil {
		s.logActivity(ctx, &topic.ID, models.ActionGenerateImagePrmpt, models.LogStatusFailed, err.Error(), secondsSince(start))
		return
	}
	s.logActivity(ctx, &topic.ID, models.ActionGenerateImagePrmpt, models.LogStatusSuccess,
		"Image prompt generated", secondsSince(start))

	start = time.Now()
	image, err := s.ai.GenerateImage(ctx, prompt)
	if err != nil {
		s.logActivity(ctx, &topic.ID, models.ActionGenerateImage, models.LogStatusFailed, err.Error(), secondsSince(start))
		return
	}

	data, err := s.images.Download(ctx, image.URL)
	if err != nil {
		s.logActivity(ctx, &topic.ID, models.ActionGenerateImage, models.LogStatusFailed, err.Error(), secondsSince(start))
		return
	}

	filename, err := s.images.SaveImage(topic.Title, data)
	if err != nil {
		s.logActivity(ctx, &topic.ID, models.ActionGenerateImage, models.LogStatusFailed, err.Error(), secondsSince(start))
		return
	}

	block.FeaturedImage = filename
	if err := s.repo.UpdateBlock(ctx, block); err != nil {
		s.logActivity(ctx, &topic.ID, models.ActionGenerateImage, models.LogStatusFailed, err.Error(), secondsSince(start))
		return
	}

	s.logActivity(ctx, &topic.ID, models.ActionGenerateImage, models.LogStatusSuccess,
		"Image generated and saved", secondsSince(start))
}

// postToTelegram publishes the block to the channel, attaching the image
// file when it exists on disk. Failure is logged, not fatal.
func (s *Scheduler) postToTelegram(ctx context.Context, block *models.ContentBlock) {
	imagePath := ""
	if block.FeaturedImage != "" {
		path := s.images.ImagePath(block.FeaturedImage)
		if _, err := os.Stat(path); err == nil {
			imagePath = path
		}
	}

	start := time.Now()
	if err := s.publisher.SendPost(ctx, block.Title, block.Content, imagePath); err != nil {
		s.logActivity(ctx, nil, models.ActionPostToTelegram, models.LogStatusFailed, err.Error(), secondsSince(start))
		return
	}
	s.logActivity(ctx, nil, models.ActionPostToTelegram, models.LogStatusSuccess,
		"Posted to Telegram", secondsSince(start))
}

// logActivity appends an activity log entry. A failed insert degrades to a
// process-level log line; it never propagates.
func (s *Scheduler) logActivity(ctx context.Context, topicID *uint, action string, status models.LogStatus, message string, duration float64) {
	entry := &models.ActivityLog{
		TopicID:         topicID,
		Action:          action,
		Status:          status,
		Message:         message,
		DurationSeconds: duration,
	}
	log := s.log.WithAction(action)
	if err := s.repo.AppendLog(ctx, entry); err != nil {
		log.Error().
			Err(err).
			Str("status", string(status)).
			Str("message", message).
			Msg("Failed to append activity log")
		return
	}

	log.Info().
		Str("status", string(status)).
		Str("message", message).
		Msg("Automation step")
}

// Summarize truncates content to the summary budget, appending an ellipsis
// when it was cut
func Summarize(content string) string {
	runes := []rune(content)
	if len(runes) <= SummaryLength {
		return content
	}
	return string(runes[:SummaryLength]) + "..."
}

func secondsSince(start time.Time) float64 {
	return time.Since(start).Seconds()
}
