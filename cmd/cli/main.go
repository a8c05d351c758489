package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/blog-agent/internal/agent/automation"
	"github.com/blog-agent/internal/ai"
	"github.com/blog-agent/internal/config"
	"github.com/blog-agent/internal/media"
	"github.com/blog-agent/internal/models"
	"github.com/blog-agent/internal/source/rss"
	"github.com/blog-agent/internal/storage"
	"github.com/blog-agent/internal/storage/sqlite"
	"github.com/blog-agent/internal/telegram"
	"github.com/blog-agent/pkg/logger"
	"github.com/blog-agent/pkg/ratelimit"
)

var (
	cfgFile string
	cfg     *config.Config
	log     *logger.Logger
	repo    storage.Repository
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "blog-agent",
		Short: "Blog content automation agent",
		Long: `Operator CLI for the blog automation system: manage the topic queue,
the posting schedule and the activity log, and trigger test generation.`,
		PersistentPreRunE: initializeApp,
		SilenceUsage:      true,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path")

	rootCmd.AddCommand(topicsCmd())
	rootCmd.AddCommand(scheduleCmd())
	rootCmd.AddCommand(logsCmd())
	rootCmd.AddCommand(blocksCmd())
	rootCmd.AddCommand(generateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func initializeApp(cmd *cobra.Command, args []string) error {
	var err error

	// Load config
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	log = logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})

	// Initialize storage
	repo, err = sqlite.New(cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	// Run migrations
	if err := repo.Migrate(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// ============ TOPICS COMMANDS ============

func topicsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "topics",
		Short: "Manage the topic queue",
	}

	cmd.AddCommand(topicsListCmd())
	cmd.AddCommand(topicsAddCmd())
	cmd.AddCommand(topicsDeleteCmd())
	cmd.AddCommand(topicsImportCmd())
	return cmd
}

func topicsListCmd() *cobra.Command {
	var status string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List topics",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			filter := storage.DefaultTopicFilter()
			filter.Limit = limit

			if status != "" {
				s := models.TopicStatus(status)
				filter.Status = &s
			}

			topics, err := repo.ListTopics(ctx, filter)
			if err != nil {
				return err
			}

			fmt.Printf("\n=== Topics (%d) ===\n\n", len(topics))
			for _, t := range topics {
				fmt.Printf("[%d] %s | %s\n", t.ID, t.Status, t.Title)
				if t.Description != "" {
					fmt.Printf("    %s\n", t.Description)
				}
				if t.BlockID != nil {
					fmt.Printf("    Block: %d\n", *t.BlockID)
				}
				fmt.Println()
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "Filter by status (pending, processing, completed, failed)")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum topics to show")

	return cmd
}

func topicsAddCmd() *cobra.Command {
	var description string

	cmd := &cobra.Command{
		Use:   "add [title]",
		Short: "Add a pending topic",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			topic := &models.Topic{
				Title:       args[0],
				Description: description,
				Status:      models.TopicStatusPending,
			}
			if err := repo.CreateTopic(ctx, topic); err != nil {
				return err
			}

			fmt.Printf("Created topic %d: %s\n", topic.ID, topic.Title)
			return nil
		},
	}

	cmd.Flags().StringVar(&description, "description", "", "Free-text description or keywords")

	return cmd
}

func topicsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [topic-id]",
		Short: "Delete a topic (refused once it has produced a block)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			id, err := strconv.ParseUint(args[0], 10, 32)
			if err != nil {
				return fmt.Errorf("invalid topic id: %s", args[0])
			}

			if err := repo.DeleteTopic(ctx, uint(id)); err != nil {
				return err
			}

			fmt.Printf("Deleted topic %d\n", id)
			return nil
		},
	}
}

func topicsImportCmd() *cobra.Command {
	var csvPath string
	var rssURL string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Bulk import topics from a CSV file or RSS feed",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			switch {
			case csvPath != "":
				count, err := importCSV(ctx, csvPath)
				if err != nil {
					return err
				}
				fmt.Printf("Imported %d topics from %s\n", count, csvPath)
			case rssURL != "":
				limiter := ratelimit.NewDefaultLimiter()
				importer := rss.NewImporter(cfg.Sources.RSS, limiter, log)
				topics, err := importer.Fetch(ctx, rssURL)
				if err != nil {
					return err
				}
				count := 0
				for _, topic := range topics {
					if err := repo.CreateTopic(ctx, topic); err != nil {
						log.Warn().Err(err).Str("title", topic.Title).Msg("Failed to save topic")
						continue
					}
					count++
				}
				fmt.Printf("Imported %d topics from %s\n", count, rssURL)
			default:
				return fmt.Errorf("either --csv or --rss is required")
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&csvPath, "csv", "", "CSV file: title in column 1, description in column 2; first row is a header")
	cmd.Flags().StringVar(&rssURL, "rss", "", "RSS feed URL")

	return cmd
}

// importCSV reads topics from a CSV file. The first row is treated as a
// header and skipped.
func importCSV(ctx context.Context, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return 0, fmt.Errorf("failed to read CSV: %w", err)
	}

	count := 0
	for i, row := range rows {
		if i == 0 {
			continue // header
		}
		if len(row) == 0 {
			continue
		}
		title := strings.TrimSpace(row[0])
		if title == "" {
			continue
		}
		description := ""
		if len(row) > 1 {
			description = strings.TrimSpace(row[1])
		}

		topic := &models.Topic{
			Title:       title,
			Description: description,
			Status:      models.TopicStatusPending,
		}
		if err := repo.CreateTopic(ctx, topic); err != nil {
			log.Warn().Err(err).Str("title", title).Msg("Failed to save topic")
			continue
		}
		count++
	}

	return count, nil
}

// ============ SCHEDULE COMMANDS ============

func scheduleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Show and edit the posting schedule",
	}

	cmd.AddCommand(scheduleShowCmd())
	cmd.AddCommand(scheduleSetCmd())
	return cmd
}

func scheduleShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the posting schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			schedule, err := repo.EnsureSchedule(ctx)
			if err != nil {
				return err
			}

			fmt.Printf("\n=== Posting schedule ===\n\n")
			fmt.Printf("Active:          %t\n", schedule.IsActive)
			fmt.Printf("Weekdays:        %s\n", formatWeekdays(schedule.Weekdays))
			fmt.Printf("Posting time:    %s\n", schedule.PostingTime)
			fmt.Printf("Auto-translate:  %t (%s)\n", schedule.AutoTranslate, formatLanguages(schedule.TargetLanguages))
			fmt.Printf("Generate images: %t (style: %s)\n", schedule.GenerateImages, schedule.ImageStyle)
			fmt.Printf("Post to channel: %t\n", schedule.PostToTelegram)

			return nil
		},
	}
}

func scheduleSetCmd() *cobra.Command {
	var (
		active    bool
		days      string
		at        string
		translate bool
		languages string
		genImages bool
		style     string
		toChannel bool
	)

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Update the posting schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			schedule, err := repo.EnsureSchedule(ctx)
			if err != nil {
				return err
			}

			if cmd.Flags().Changed("active") {
				schedule.IsActive = active
			}
			if cmd.Flags().Changed("days") {
				weekdays, err := parseWeekdays(days)
				if err != nil {
					return err
				}
				schedule.Weekdays = weekdays
			}
			if cmd.Flags().Changed("time") {
				if _, _, err := models.ParsePostingTime(at); err != nil {
					return err
				}
				schedule.PostingTime = at
			}
			if cmd.Flags().Changed("translate") {
				schedule.AutoTranslate = translate
			}
			if cmd.Flags().Changed("languages") {
				schedule.TargetLanguages = parseLanguages(languages)
			}
			if cmd.Flags().Changed("images") {
				schedule.GenerateImages = genImages
			}
			if cmd.Flags().Changed("image-style") {
				schedule.ImageStyle = style
			}
			if cmd.Flags().Changed("telegram") {
				schedule.PostToTelegram = toChannel
			}

			if err := repo.SaveSchedule(ctx, schedule); err != nil {
				return err
			}

			fmt.Println("Schedule updated")
			return nil
		},
	}

	cmd.Flags().BoolVar(&active, "active", false, "Enable or disable the automation")
	cmd.Flags().StringVar(&days, "days", "", "Weekdays to run on, 0=Monday..6=Sunday (e.g. 0,2,4)")
	cmd.Flags().StringVar(&at, "time", "", "Posting time, HH:MM")
	cmd.Flags().BoolVar(&translate, "translate", false, "Enable auto-translation")
	cmd.Flags().StringVar(&languages, "languages", "", "Target language codes (e.g. en,de,ru)")
	cmd.Flags().BoolVar(&genImages, "images", false, "Enable image generation")
	cmd.Flags().StringVar(&style, "image-style", "", "Image style hint")
	cmd.Flags().BoolVar(&toChannel, "telegram", false, "Enable posting to the Telegram channel")

	return cmd
}

func parseWeekdays(s string) (models.Weekdays, error) {
	var weekdays models.Weekdays
	for _, part := range strings.Split(s, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || n < 0 || n > 6 {
			return nil, fmt.Errorf("invalid weekday %q (expected 0..6)", part)
		}
		weekdays = append(weekdays, models.Weekday(n))
	}
	return weekdays, nil
}

func parseLanguages(s string) models.Languages {
	var languages models.Languages
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(strings.ToLower(part))
		if part != "" {
			languages = append(languages, models.Language(part))
		}
	}
	return languages
}

func formatWeekdays(weekdays models.Weekdays) string {
	names := []string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}
	parts := make([]string, 0, len(weekdays))
	for _, d := range weekdays {
		if d >= 0 && int(d) < len(names) {
			parts = append(parts, names[d])
		}
	}
	return strings.Join(parts, ",")
}

func formatLanguages(languages models.Languages) string {
	parts := make([]string, len(languages))
	for i, lang := range languages {
		parts[i] = string(lang)
	}
	return strings.Join(parts, ",")
}

// ============ LOGS COMMANDS ============

func logsCmd() *cobra.Command {
	var topicID uint
	var action string
	var status string
	var limit int

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "List automation activity log entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			filter := storage.DefaultLogFilter()
			filter.Limit = limit

			if cmd.Flags().Changed("topic") {
				filter.TopicID = &topicID
			}
			if action != "" {
				filter.Action = &action
			}
			if status != "" {
				s := models.LogStatus(status)
				filter.Status = &s
			}

			entries, err := repo.ListLogs(ctx, filter)
			if err != nil {
				return err
			}

			fmt.Printf("\n=== Activity log (%d) ===\n\n", len(entries))
			for _, e := range entries {
				topic := "-"
				if e.TopicID != nil {
					topic = strconv.FormatUint(uint64(*e.TopicID), 10)
				}
				fmt.Printf("%s | %-22s | %-7s | topic %s | %.1fs\n",
					e.CreatedAt.Format("2006-01-02 15:04:05"), e.Action, e.Status, topic, e.DurationSeconds)
				if e.Message != "" {
					fmt.Printf("    %s\n", e.Message)
				}
			}

			return nil
		},
	}

	cmd.Flags().UintVar(&topicID, "topic", 0, "Filter by topic ID")
	cmd.Flags().StringVar(&action, "action", "", "Filter by action name")
	cmd.Flags().StringVar(&status, "status", "", "Filter by status (success, failed)")
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum entries to show")

	return cmd
}

// ============ BLOCKS COMMANDS ============

func blocksCmd() *cobra.Command {
	var activeOnly bool

	cmd := &cobra.Command{
		Use:   "blocks",
		Short: "List content blocks",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			blocks, err := repo.ListBlocks(ctx, activeOnly)
			if err != nil {
				return err
			}

			fmt.Printf("\n=== Content blocks (%d) ===\n\n", len(blocks))
			for _, b := range blocks {
				state := "inactive"
				if b.IsActive {
					state = "active"
				}
				fmt.Printf("[%d] pos %2d | %-8s | %s\n", b.ID, b.Position, state, b.Title)
				langs := []string{}
				if b.ContentEN != "" {
					langs = append(langs, "en")
				}
				if b.ContentDE != "" {
					langs = append(langs, "de")
				}
				if b.ContentRU != "" {
					langs = append(langs, "ru")
				}
				if len(langs) > 0 {
					fmt.Printf("    Translations: %s\n", strings.Join(langs, ","))
				}
				if b.FeaturedImage != "" {
					fmt.Printf("    Image: %s\n", b.FeaturedImage)
				}
				fmt.Println()
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&activeOnly, "active", false, "Show only active blocks")

	return cmd
}

// ============ GENERATE COMMAND ============

func generateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "generate [topic-id]",
		Short: "Run the pipeline for one topic now, bypassing the schedule window",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			id, err := strconv.ParseUint(args[0], 10, 32)
			if err != nil {
				return fmt.Errorf("invalid topic id: %s", args[0])
			}

			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}

			limiter := ratelimit.NewDefaultLimiter()
			aiService, err := ai.NewService(cfg, limiter, log)
			if err != nil {
				return fmt.Errorf("failed to initialize AI provider: %w", err)
			}
			publisher := telegram.NewPublisher(cfg.Telegram, limiter, log)
			images := media.NewStore(cfg.Uploads.Dir, log)

			sc := automation.DefaultConfig()
			if cfg.Translation.BaseLanguage != "" {
				sc.BaseLanguage = models.Language(cfg.Translation.BaseLanguage)
			}
			scheduler := automation.New(repo, aiService, publisher, images, sc, log)

			fmt.Printf("Processing topic %d...\n", id)
			if err := scheduler.RunTopic(ctx, uint(id)); err != nil {
				return err
			}

			topic, err := repo.GetTopicByID(ctx, uint(id))
			if err != nil {
				return err
			}
			fmt.Printf("Done. Topic status: %s\n", topic.Status)
			fmt.Println("Check `blog-agent logs` for step details.")
			return nil
		},
	}
}
