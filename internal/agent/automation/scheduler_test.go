package automation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blog-agent/internal/ai"
	"github.com/blog-agent/internal/models"
	"github.com/blog-agent/internal/storage"
	"github.com/blog-agent/internal/storage/sqlite"
	"github.com/blog-agent/pkg/logger"
)

// fakeAI scripts the content service per test
type fakeAI struct {
	content      string
	contentErr   error
	translations map[models.Language]string
	translateErr map[models.Language]error
	imagePrompt  string
	promptErr    error
	image        *ai.GeneratedImage
	imageErr     error
}

func (f *fakeAI) GenerateContent(ctx context.Context, title, description string) (string, error) {
	if f.contentErr != nil {
		return "", f.contentErr
	}
	return f.content, nil
}

func (f *fakeAI) Translate(ctx context.Context, content string, lang models.Language) (string, error) {
	if err := f.translateErr[lang]; err != nil {
		return "", err
	}
	if translated, ok := f.translations[lang]; ok {
		return translated, nil
	}
	return "", errors.New("no translation scripted")
}

func (f *fakeAI) GenerateImagePrompt(ctx context.Context, title, description, style string) (string, error) {
	if f.promptErr != nil {
		return "", f.promptErr
	}
	return f.imagePrompt, nil
}

func (f *fakeAI) GenerateImage(ctx context.Context, prompt string) (*ai.GeneratedImage, error) {
	if f.imageErr != nil {
		return nil, f.imageErr
	}
	if f.image == nil {
		return nil, errors.New("no image scripted")
	}
	return f.image, nil
}

// fakePublisher records channel posts
type fakePublisher struct {
	posts []fakePost
	err   error
}

type fakePost struct {
	title     string
	body      string
	imagePath string
}

func (f *fakePublisher) SendPost(ctx context.Context, title, body, imagePath string) error {
	if f.err != nil {
		return f.err
	}
	f.posts = append(f.posts, fakePost{title: title, body: body, imagePath: imagePath})
	return nil
}

// fakeImages pretends to download and store image files
type fakeImages struct {
	data        []byte
	downloadErr error
	saved       []string
}

func (f *fakeImages) Download(ctx context.Context, url string) ([]byte, error) {
	if f.downloadErr != nil {
		return nil, f.downloadErr
	}
	return f.data, nil
}

func (f *fakeImages) SaveImage(title string, data []byte) (string, error) {
	name := "test-image.png"
	f.saved = append(f.saved, name)
	return name, nil
}

func (f *fakeImages) ImagePath(filename string) string {
	return "/nonexistent/" + filename
}

func newTestRepo(t *testing.T) *sqlite.Repository {
	t.Helper()
	repo, err := sqlite.NewInMemory()
	require.NoError(t, err)
	require.NoError(t, repo.Migrate())
	t.Cleanup(func() { repo.Close() })
	return repo
}

type testEnv struct {
	repo      *sqlite.Repository
	ai        *fakeAI
	publisher *fakePublisher
	images    *fakeImages
	scheduler *Scheduler
	now       time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		repo:      newTestRepo(t),
		ai:        &fakeAI{content: "generated content"},
		publisher: &fakePublisher{},
		images:    &fakeImages{data: []byte("png")},
		now:       time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC),
	}

	cfg := DefaultConfig()
	cfg.PollInterval = time.Hour
	cfg.StopTimeout = time.Second
	env.scheduler = New(env.repo, env.ai, env.publisher, env.images, cfg, logger.Default())
	env.scheduler.now = func() time.Time { return env.now }
	return env
}

// saveSchedule persists a schedule that fires at the pinned test clock.
// Repeated calls update the same singleton row.
func (e *testEnv) saveSchedule(t *testing.T, mutate func(*models.PostingSchedule)) *models.PostingSchedule {
	t.Helper()
	schedule, err := e.repo.EnsureSchedule(context.Background())
	require.NoError(t, err)
	schedule.IsActive = true
	schedule.Weekdays = models.Weekdays{models.WeekdayOf(e.now)}
	schedule.PostingTime = "12:00"
	schedule.AutoTranslate = false
	schedule.GenerateImages = false
	schedule.PostToTelegram = false
	if mutate != nil {
		mutate(schedule)
	}
	require.NoError(t, e.repo.SaveSchedule(context.Background(), schedule))
	return schedule
}

func (e *testEnv) addTopic(t *testing.T, title string) *models.Topic {
	t.Helper()
	topic := &models.Topic{Title: title, Description: "about " + title, Status: models.TopicStatusPending}
	require.NoError(t, e.repo.CreateTopic(context.Background(), topic))
	return topic
}

func (e *testEnv) reload(t *testing.T, id uint) *models.Topic {
	t.Helper()
	topic, err := e.repo.GetTopicByID(context.Background(), id)
	require.NoError(t, err)
	return topic
}

func (e *testEnv) logs(t *testing.T) []*models.ActivityLog {
	t.Helper()
	entries, err := e.repo.ListLogs(context.Background(), storage.LogFilter{Limit: 100})
	require.NoError(t, err)
	return entries
}

func findLog(entries []*models.ActivityLog, action string) *models.ActivityLog {
	for _, e := range entries {
		if e.Action == action {
			return e
		}
	}
	return nil
}

func TestTickInactiveScheduleDoesNothing(t *testing.T) {
	env := newTestEnv(t)
	env.saveSchedule(t, func(s *models.PostingSchedule) { s.IsActive = false })
	topic := env.addTopic(t, "Quantum computing")

	require.NoError(t, env.scheduler.tick(context.Background()))

	assert.Equal(t, models.TopicStatusPending, env.reload(t, topic.ID).Status)
	assert.Empty(t, env.logs(t))
}

func TestTickMissingScheduleDoesNothing(t *testing.T) {
	env := newTestEnv(t)
	topic := env.addTopic(t, "Quantum computing")

	require.NoError(t, env.scheduler.tick(context.Background()))

	assert.Equal(t, models.TopicStatusPending, env.reload(t, topic.ID).Status)
}

func TestTickWeekdayMismatchDoesNothing(t *testing.T) {
	env := newTestEnv(t)
	env.saveSchedule(t, func(s *models.PostingSchedule) {
		other := (models.WeekdayOf(env.now) + 1) % 7
		s.Weekdays = models.Weekdays{other}
	})
	topic := env.addTopic(t, "Quantum computing")

	require.NoError(t, env.scheduler.tick(context.Background()))

	assert.Equal(t, models.TopicStatusPending, env.reload(t, topic.ID).Status)
}

func TestTickMalformedPostingTimeSkipsWithoutError(t *testing.T) {
	env := newTestEnv(t)
	topic := env.addTopic(t, "Quantum computing")

	for _, bad := range []string{"", "1200", "ab:cd", "12:xx", "25:00"} {
		env.saveSchedule(t, func(s *models.PostingSchedule) { s.PostingTime = bad })
		require.NoError(t, env.scheduler.tick(context.Background()))
		assert.Equal(t, models.TopicStatusPending, env.reload(t, topic.ID).Status, "posting_time=%q", bad)
	}
}

func TestTickOutsideWindowDoesNothing(t *testing.T) {
	env := newTestEnv(t)
	env.saveSchedule(t, func(s *models.PostingSchedule) { s.PostingTime = "12:00" })
	topic := env.addTopic(t, "Quantum computing")

	// Six minutes past the posting time is outside the five minute window
	env.now = env.now.Add(6 * time.Minute)
	require.NoError(t, env.scheduler.tick(context.Background()))
	assert.Equal(t, models.TopicStatusPending, env.reload(t, topic.ID).Status)

	// Same minute delta but a different hour must not fire either
	env.now = env.now.Add(-6 * time.Minute).Add(time.Hour)
	require.NoError(t, env.scheduler.tick(context.Background()))
	assert.Equal(t, models.TopicStatusPending, env.reload(t, topic.ID).Status)
}

func TestTickInsideWindowProcessesOldestPending(t *testing.T) {
	env := newTestEnv(t)
	env.saveSchedule(t, nil)

	first := env.addTopic(t, "First topic")
	second := env.addTopic(t, "Second topic")

	// Within five minutes of the posting time
	env.now = env.now.Add(4 * time.Minute)
	require.NoError(t, env.scheduler.tick(context.Background()))

	assert.Equal(t, models.TopicStatusCompleted, env.reload(t, first.ID).Status)
	assert.Equal(t, models.TopicStatusPending, env.reload(t, second.ID).Status)
}

func TestTickSkipsNonPendingTopics(t *testing.T) {
	env := newTestEnv(t)
	env.saveSchedule(t, nil)

	for _, status := range []models.TopicStatus{
		models.TopicStatusProcessing,
		models.TopicStatusCompleted,
		models.TopicStatusFailed,
	} {
		topic := env.addTopic(t, "Topic "+string(status))
		topic.Status = status
		require.NoError(t, env.repo.UpdateTopic(context.Background(), topic))
	}

	require.NoError(t, env.scheduler.tick(context.Background()))
	assert.Empty(t, env.logs(t))
}

func TestGenerationSuccessCompletesTopic(t *testing.T) {
	env := newTestEnv(t)
	env.saveSchedule(t, nil)
	env.ai.content = "Hello world"
	topic := env.addTopic(t, "Greetings")

	require.NoError(t, env.scheduler.tick(context.Background()))

	reloaded := env.reload(t, topic.ID)
	assert.Equal(t, models.TopicStatusCompleted, reloaded.Status)
	require.NotNil(t, reloaded.BlockID)

	block, err := env.repo.GetBlockByID(context.Background(), *reloaded.BlockID)
	require.NoError(t, err)
	assert.Equal(t, "Greetings", block.Title)
	assert.Equal(t, "Hello world", block.Content)
	assert.Equal(t, "Hello world", block.Summary) // 11 chars, no truncation
	assert.True(t, block.IsActive)

	blocks, err := env.repo.ListBlocks(context.Background(), false)
	require.NoError(t, err)
	assert.Len(t, blocks, 1)

	entry := findLog(env.logs(t), models.ActionGenerateContent)
	require.NotNil(t, entry)
	assert.Equal(t, models.LogStatusSuccess, entry.Status)
}

func TestGenerationFailureFailsTopicWithoutBlock(t *testing.T) {
	env := newTestEnv(t)
	env.saveSchedule(t, nil)
	env.ai.contentErr = errors.New("quota exceeded")
	topic := env.addTopic(t, "Greetings")

	require.NoError(t, env.scheduler.tick(context.Background()))

	reloaded := env.reload(t, topic.ID)
	assert.Equal(t, models.TopicStatusFailed, reloaded.Status)
	assert.Nil(t, reloaded.BlockID)

	blocks, err := env.repo.ListBlocks(context.Background(), false)
	require.NoError(t, err)
	assert.Empty(t, blocks)

	entry := findLog(env.logs(t), models.ActionGenerateContent)
	require.NotNil(t, entry)
	assert.Equal(t, models.LogStatusFailed, entry.Status)
	assert.Equal(t, "quota exceeded", entry.Message)
}

func TestTranslationFailuresAreIndependent(t *testing.T) {
	env := newTestEnv(t)
	env.saveSchedule(t, func(s *models.PostingSchedule) {
		s.AutoTranslate = true
		s.TargetLanguages = models.Languages{models.LanguageEnglish, models.LanguageGerman}
	})
	env.ai.translations = map[models.Language]string{models.LanguageEnglish: "english text"}
	env.ai.translateErr = map[models.Language]error{models.LanguageGerman: errors.New("model overloaded")}
	topic := env.addTopic(t, "Greetings")

	require.NoError(t, env.scheduler.tick(context.Background()))

	reloaded := env.reload(t, topic.ID)
	assert.Equal(t, models.TopicStatusCompleted, reloaded.Status)
	require.NotNil(t, reloaded.BlockID)

	block, err := env.repo.GetBlockByID(context.Background(), *reloaded.BlockID)
	require.NoError(t, err)
	assert.Equal(t, "english text", block.ContentEN)
	assert.Empty(t, block.ContentDE)
	// Title and summary are copied from the base language for now
	assert.Equal(t, block.Title, block.TitleEN)
	assert.Equal(t, block.Summary, block.SummaryEN)

	entries := env.logs(t)
	en := findLog(entries, models.ActionTranslateTo(models.LanguageEnglish))
	require.NotNil(t, en)
	assert.Equal(t, models.LogStatusSuccess, en.Status)
	de := findLog(entries, models.ActionTranslateTo(models.LanguageGerman))
	require.NotNil(t, de)
	assert.Equal(t, models.LogStatusFailed, de.Status)
	assert.Equal(t, "model overloaded", de.Message)
}

func TestBaseLanguageIsSkippedDuringTranslation(t *testing.T) {
	env := newTestEnv(t)
	env.saveSchedule(t, func(s *models.PostingSchedule) {
		s.AutoTranslate = true
		s.TargetLanguages = models.Languages{models.LanguageUkrainian, models.LanguageEnglish}
	})
	env.ai.translations = map[models.Language]string{models.LanguageEnglish: "english text"}
	env.addTopic(t, "Greetings")

	require.NoError(t, env.scheduler.tick(context.Background()))

	assert.Nil(t, findLog(env.logs(t), models.ActionTranslateTo(models.LanguageUkrainian)))
	assert.NotNil(t, findLog(env.logs(t), models.ActionTranslateTo(models.LanguageEnglish)))
}

func TestImageFailureIsNotFatal(t *testing.T) {
	env := newTestEnv(t)
	env.saveSchedule(t, func(s *models.PostingSchedule) { s.GenerateImages = true })
	env.ai.promptErr = errors.New("prompt generation failed")
	topic := env.addTopic(t, "Greetings")

	require.NoError(t, env.scheduler.tick(context.Background()))

	reloaded := env.reload(t, topic.ID)
	assert.Equal(t, models.TopicStatusCompleted, reloaded.Status)

	entry := findLog(env.logs(t), models.ActionGenerateImagePrmpt)
	require.NotNil(t, entry)
	assert.Equal(t, models.LogStatusFailed, entry.Status)
	assert.Nil(t, findLog(env.logs(t), models.ActionGenerateImage))
}

func TestImageSuccessAttachesFilename(t *testing.T) {
	env := newTestEnv(t)
	env.saveSchedule(t, func(s *models.PostingSchedule) { s.GenerateImages = true })
	env.ai.imagePrompt = "a calm landscape"
	env.ai.image = &ai.GeneratedImage{URL: "https://example.com/img.png"}
	topic := env.addTopic(t, "Greetings")

	require.NoError(t, env.scheduler.tick(context.Background()))

	reloaded := env.reload(t, topic.ID)
	require.NotNil(t, reloaded.BlockID)
	block, err := env.repo.GetBlockByID(context.Background(), *reloaded.BlockID)
	require.NoError(t, err)
	assert.Equal(t, "test-image.png", block.FeaturedImage)

	entry := findLog(env.logs(t), models.ActionGenerateImage)
	require.NotNil(t, entry)
	assert.Equal(t, models.LogStatusSuccess, entry.Status)
}

func TestTelegramFailureIsNotFatal(t *testing.T) {
	env := newTestEnv(t)
	env.saveSchedule(t, func(s *models.PostingSchedule) { s.PostToTelegram = true })
	env.publisher.err = errors.New("telegram credentials not configured")
	topic := env.addTopic(t, "Greetings")

	require.NoError(t, env.scheduler.tick(context.Background()))

	assert.Equal(t, models.TopicStatusCompleted, env.reload(t, topic.ID).Status)

	entry := findLog(env.logs(t), models.ActionPostToTelegram)
	require.NotNil(t, entry)
	assert.Equal(t, models.LogStatusFailed, entry.Status)
}

func TestTelegramPostSendsTitleAndBody(t *testing.T) {
	env := newTestEnv(t)
	env.saveSchedule(t, func(s *models.PostingSchedule) { s.PostToTelegram = true })
	env.ai.content = "body text"
	env.addTopic(t, "Greetings")

	require.NoError(t, env.scheduler.tick(context.Background()))

	require.Len(t, env.publisher.posts, 1)
	assert.Equal(t, "Greetings", env.publisher.posts[0].title)
	assert.Equal(t, "body text", env.publisher.posts[0].body)
	assert.Empty(t, env.publisher.posts[0].imagePath) // file does not exist on disk
}

func TestPositionReusesInactiveSlotFirst(t *testing.T) {
	env := newTestEnv(t)
	env.saveSchedule(t, nil)
	ctx := context.Background()

	require.NoError(t, env.repo.CreateBlock(ctx, &models.ContentBlock{Title: "a", Content: "a", Position: 3, IsActive: true}))
	require.NoError(t, env.repo.CreateBlock(ctx, &models.ContentBlock{Title: "b", Content: "b", Position: 7, IsActive: false}))

	topic := env.addTopic(t, "Greetings")
	require.NoError(t, env.scheduler.tick(context.Background()))

	reloaded := env.reload(t, topic.ID)
	require.NotNil(t, reloaded.BlockID)
	block, err := env.repo.GetBlockByID(ctx, *reloaded.BlockID)
	require.NoError(t, err)
	assert.Equal(t, 7, block.Position)
}

func TestPositionDefaultsToOneWithoutBlocks(t *testing.T) {
	env := newTestEnv(t)
	env.saveSchedule(t, nil)

	topic := env.addTopic(t, "Greetings")
	require.NoError(t, env.scheduler.tick(context.Background()))

	reloaded := env.reload(t, topic.ID)
	require.NotNil(t, reloaded.BlockID)
	block, err := env.repo.GetBlockByID(context.Background(), *reloaded.BlockID)
	require.NoError(t, err)
	assert.Equal(t, 1, block.Position)
}

func TestRunTopicBypassesScheduleWindow(t *testing.T) {
	env := newTestEnv(t)
	// No schedule row exists; RunTopic creates the default (inactive) one
	topic := env.addTopic(t, "Greetings")

	require.NoError(t, env.scheduler.RunTopic(context.Background(), topic.ID))

	assert.Equal(t, models.TopicStatusCompleted, env.reload(t, topic.ID).Status)

	schedule, err := env.repo.GetSchedule(context.Background())
	require.NoError(t, err)
	require.NotNil(t, schedule)
	assert.False(t, schedule.IsActive)
}

func TestRunTopicReprocessesFailedTopic(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	topic := env.addTopic(t, "Greetings")
	topic.Status = models.TopicStatusFailed
	require.NoError(t, env.repo.UpdateTopic(ctx, topic))

	require.NoError(t, env.scheduler.RunTopic(ctx, topic.ID))

	reloaded := env.reload(t, topic.ID)
	assert.Equal(t, models.TopicStatusCompleted, reloaded.Status)
	require.NotNil(t, reloaded.BlockID)

	entries := env.logs(t)
	assert.NotEmpty(t, entries)
	entry := findLog(entries, models.ActionGenerateContent)
	require.NotNil(t, entry)
	assert.Equal(t, models.LogStatusSuccess, entry.Status)
}

func TestRunTopicReprocessesCompletedTopic(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	topic := env.addTopic(t, "Greetings")
	require.NoError(t, env.scheduler.RunTopic(ctx, topic.ID))
	require.Equal(t, models.TopicStatusCompleted, env.reload(t, topic.ID).Status)

	// A second manual run generates again instead of silently skipping
	env.ai.content = "revised content"
	require.NoError(t, env.scheduler.RunTopic(ctx, topic.ID))

	reloaded := env.reload(t, topic.ID)
	assert.Equal(t, models.TopicStatusCompleted, reloaded.Status)
	require.NotNil(t, reloaded.BlockID)

	block, err := env.repo.GetBlockByID(ctx, *reloaded.BlockID)
	require.NoError(t, err)
	assert.Equal(t, "revised content", block.Content)
}

func TestRunTopicUnknownIDFails(t *testing.T) {
	env := newTestEnv(t)
	assert.Error(t, env.scheduler.RunTopic(context.Background(), 9999))
}

func TestStartIsIdempotent(t *testing.T) {
	env := newTestEnv(t)

	assert.True(t, env.scheduler.Start())
	assert.False(t, env.scheduler.Start())
	assert.True(t, env.scheduler.Running())

	assert.True(t, env.scheduler.Stop())
	assert.False(t, env.scheduler.Stop())
	assert.False(t, env.scheduler.Running())

	// A stopped scheduler can be started again
	assert.True(t, env.scheduler.Start())
	assert.True(t, env.scheduler.Stop())
}

func TestSummarize(t *testing.T) {
	long := make([]rune, 0, 250)
	for i := 0; i < 250; i++ {
		long = append(long, rune('a'+i%26))
	}

	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "short content unchanged",
			content: "Hello world",
			want:    "Hello world",
		},
		{
			name:    "exactly at budget unchanged",
			content: string(long[:200]),
			want:    string(long[:200]),
		},
		{
			name:    "long content truncated with ellipsis",
			content: string(long),
			want:    string(long[:200]) + "...",
		},
		{
			name:    "multibyte content counted in characters",
			content: strings200Cyrillic() + "хвіст",
			want:    strings200Cyrillic() + "...",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Summarize(tt.content))
		})
	}
}

func strings200Cyrillic() string {
	runes := make([]rune, 200)
	for i := range runes {
		runes[i] = rune('а' + i%30)
	}
	return string(runes)
}

func TestStaleReportCountsOldProcessingTopics(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	stuck := env.addTopic(t, "Stuck")
	stuck.Status = models.TopicStatusProcessing
	require.NoError(t, env.repo.UpdateTopic(ctx, stuck))

	// Pending and completed topics are never reported
	env.addTopic(t, "Pending")
	done := env.addTopic(t, "Done")
	done.Status = models.TopicStatusCompleted
	require.NoError(t, env.repo.UpdateTopic(ctx, done))

	// The row timestamps come from the real clock, so pin the scheduler
	// clock a day ahead of it to make the processing topic look old
	env.now = time.Now().Add(25 * time.Hour)

	count, err := env.scheduler.StaleReport(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	count, err = env.scheduler.StaleReport(ctx, 48*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}
