package rss

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/blog-agent/internal/config"
	"github.com/blog-agent/internal/models"
	"github.com/blog-agent/pkg/logger"
	"github.com/blog-agent/pkg/ratelimit"
)

// Importer turns RSS feed items into pending topics for the automation
// queue. It is an operator bulk-import tool, not a continuous source.
type Importer struct {
	parser      *gofeed.Parser
	maxAge      time.Duration
	rateLimiter *ratelimit.MultiLimiter
	log         *logger.Logger
}

// NewImporter creates an RSS importer
func NewImporter(cfg config.RSSConfig, limiter *ratelimit.MultiLimiter, log *logger.Logger) *Importer {
	maxAgeDays := cfg.MaxAgeDays
	if maxAgeDays <= 0 {
		maxAgeDays = 7
	}
	return &Importer{
		parser:      gofeed.NewParser(),
		maxAge:      time.Duration(maxAgeDays) * 24 * time.Hour,
		rateLimiter: limiter,
		log:         log.WithComponent("rss"),
	}
}

// Fetch parses the feed and returns its recent items as pending topics.
// The topics are not persisted; the caller inserts them.
func (i *Importer) Fetch(ctx context.Context, url string) ([]*models.Topic, error) {
	if err := i.rateLimiter.Wait(ctx, ratelimit.LimiterRSS); err != nil {
		return nil, fmt.Errorf("rate limit error: %w", err)
	}

	i.log.Debug().Str("url", url).Msg("Fetching RSS feed")

	feed, err := i.parser.ParseURLWithContext(url, ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to parse RSS feed: %w", err)
	}

	topics := make([]*models.Topic, 0, len(feed.Items))
	for _, item := range feed.Items {
		// Skip items older than the age cutoff
		if item.PublishedParsed != nil && time.Since(*item.PublishedParsed) > i.maxAge {
			continue
		}

		title := cleanText(item.Title)
		if title == "" {
			continue
		}

		topics = append(topics, &models.Topic{
			Title:       title,
			Description: cleanText(item.Description),
			Status:      models.TopicStatusPending,
		})
	}

	i.log.Info().
		Int("count", len(topics)).
		Str("feed", feed.Title).
		Msg("Fetched RSS topics")

	return topics, nil
}

// cleanText removes HTML tags and extra whitespace
func cleanText(text string) string {
	text = strings.ReplaceAll(text, "<br>", " ")
	text = strings.ReplaceAll(text, "<br/>", " ")
	text = strings.ReplaceAll(text, "<br />", " ")
	text = strings.ReplaceAll(text, "</p>", " ")
	text = strings.ReplaceAll(text, "<p>", "")

	// Remove remaining HTML tags
	var result strings.Builder
	inTag := false
	for _, r := range text {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			result.WriteRune(r)
		}
	}

	return strings.Join(strings.Fields(result.String()), " ")
}
