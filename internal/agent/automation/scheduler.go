package automation

import (
	"context"
	"sync"
	"time"

	"github.com/blog-agent/internal/ai"
	"github.com/blog-agent/internal/models"
	"github.com/blog-agent/internal/storage"
	"github.com/blog-agent/pkg/logger"
)

// Publisher posts finished content to the messaging channel
type Publisher interface {
	SendPost(ctx context.Context, title, body, imagePath string) error
}

// ImageStore downloads and persists generated images
type ImageStore interface {
	Download(ctx context.Context, url string) ([]byte, error)
	SaveImage(title string, data []byte) (string, error)
	ImagePath(filename string) string
}

// Config holds scheduler timing settings
type Config struct {
	PollInterval  time.Duration // Delay between ticks
	ErrorBackoff  time.Duration // Delay after a failed tick
	StopTimeout   time.Duration // Bounded wait in Stop
	WindowMinutes int           // Posting time tolerance in minutes
	BaseLanguage  models.Language
}

// DefaultConfig returns the standard timing settings
func DefaultConfig() Config {
	return Config{
		PollInterval:  60 * time.Second,
		ErrorBackoff:  300 * time.Second,
		StopTimeout:   5 * time.Second,
		WindowMinutes: 5,
		BaseLanguage:  models.LanguageUkrainian,
	}
}

// Scheduler runs the unattended automation loop: once per poll interval it
// checks the posting schedule and, when the current time falls inside the
// configured window, advances exactly one pending topic through the full
// publishing pipeline.
//
// The composition root owns the single instance per process and passes it
// to anything that needs to start or stop it.
type Scheduler struct {
	repo      storage.Repository
	ai        ai.Service
	publisher Publisher
	images    ImageStore
	cfg       Config
	log       *logger.Logger

	// now is swapped out by tests to pin the clock
	now func() time.Time

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// New creates a scheduler. It does not start the loop.
func New(
	repo storage.Repository,
	aiService ai.Service,
	publisher Publisher,
	images ImageStore,
	cfg Config,
	log *logger.Logger,
) *Scheduler {
	return &Scheduler{
		repo:      repo,
		ai:        aiService,
		publisher: publisher,
		images:    images,
		cfg:       cfg,
		log:       log.WithComponent("automation"),
		now:       time.Now,
	}
}

// Start launches the background loop. It is idempotent: calling it while
// the loop is alive is a no-op and returns false.
func (s *Scheduler) Start() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return false
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	go s.run(s.stopCh, s.doneCh)

	s.log.Info().Msg("Automation scheduler started")
	return true
}

// Stop signals the loop to exit and waits up to the configured timeout for
// it to finish. It returns even if the loop is still inside a blocking
// pipeline call (best effort, not a hard guarantee).
func (s *Scheduler) Stop() bool {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return false
	}
	s.running = false
	close(s.stopCh)
	doneCh := s.doneCh
	s.mu.Unlock()

	select {
	case <-doneCh:
		s.log.Info().Msg("Automation scheduler stopped")
	case <-time.After(s.cfg.StopTimeout):
		s.log.Warn().Msg("Automation scheduler did not stop within timeout")
	}
	return true
}

// Running reports whether the loop has been started and not stopped
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// run is the loop body. A tick error switches the next delay to the longer
// error backoff; the loop itself never terminates on a processing error.
func (s *Scheduler) run(stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	for {
		delay := s.cfg.PollInterval
		if err := s.tick(context.Background()); err != nil {
			s.log.Error().Err(err).Msg("Scheduler tick failed")
			delay = s.cfg.ErrorBackoff
		}

		select {
		case <-stopCh:
			return
		case <-time.After(delay):
		}
	}
}

// tick checks whether now matches the posting schedule and, if so, hands
// the oldest pending topic to the pipeline. Configuration problems
// (missing schedule, malformed posting time) skip the tick without
// surfacing as a tick error.
func (s *Scheduler) tick(ctx context.Context) error {
	schedule, err := s.repo.GetSchedule(ctx)
	if err != nil {
		return err
	}
	if schedule == nil || !schedule.IsActive {
		return nil
	}

	now := s.now()
	if !schedule.Weekdays.Contains(models.WeekdayOf(now)) {
		return nil
	}

	hour, minute, err := models.ParsePostingTime(schedule.PostingTime)
	if err != nil {
		s.log.Error().
			Err(err).
			Str("posting_time", schedule.PostingTime).
			Msg("Invalid posting time, skipping tick")
		return nil
	}

	if now.Hour() != hour || abs(now.Minute()-minute) > s.cfg.WindowMinutes {
		return nil
	}

	topic, err := s.repo.OldestPendingTopic(ctx)
	if err != nil {
		return err
	}
	if topic == nil {
		return nil
	}

	s.processTopic(ctx, topic, schedule)
	return nil
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
