package automation

import (
	"context"
	"time"
)

// StaleReport logs topics that have sat in the processing state longer
// than olderThan, so an operator can reset them. A crash mid-pipeline can
// strand a topic in processing; there is no automatic reclaim, and the
// report deliberately only observes, it never mutates.
func (s *Scheduler) StaleReport(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := s.now().Add(-olderThan)
	topics, err := s.repo.StaleProcessingTopics(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	for _, topic := range topics {
		s.log.Warn().
			Uint("topic_id", topic.ID).
			Str("title", topic.Title).
			Time("updated_at", topic.UpdatedAt).
			Msg("Topic stuck in processing; needs a manual status reset")
	}

	return len(topics), nil
}
