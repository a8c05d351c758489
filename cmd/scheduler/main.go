package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/blog-agent/internal/agent/automation"
	"github.com/blog-agent/internal/ai"
	"github.com/blog-agent/internal/config"
	"github.com/blog-agent/internal/media"
	"github.com/blog-agent/internal/models"
	"github.com/blog-agent/internal/storage/sqlite"
	"github.com/blog-agent/internal/telegram"
	"github.com/blog-agent/pkg/logger"
	"github.com/blog-agent/pkg/ratelimit"
)

var (
	cfgFile string
	cfg     *config.Config
	log     *logger.Logger
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "blog-scheduler",
		Short: "Background scheduler for blog content automation",
		Long: `Runs the blog automation loop in the background: drafts content for
pending topics on the configured schedule, translates it, generates a
featured image and posts to the Telegram channel.
This daemon should be run as a service for autonomous operation.`,
		RunE: runScheduler,
	}

	rootCmd.Flags().StringVar(&cfgFile, "config", "", "config file path")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runScheduler(cmd *cobra.Command, args []string) error {
	var err error

	// Load config
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// Initialize logger
	log = logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})

	log.Info().Msg("Starting blog automation scheduler")

	// Initialize storage
	repo, err := sqlite.New(cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer repo.Close()

	if err := repo.Migrate(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	// Start health check server
	go startHealthServer()

	// Initialize rate limiter
	limiter := ratelimit.NewDefaultLimiter()

	// Initialize AI provider
	aiService, err := ai.NewService(cfg, limiter, log)
	if err != nil {
		return fmt.Errorf("failed to initialize AI provider: %w", err)
	}

	// Initialize Telegram publisher and image store
	publisher := telegram.NewPublisher(cfg.Telegram, limiter, log)
	images := media.NewStore(cfg.Uploads.Dir, log)

	// Create the automation scheduler
	scheduler := automation.New(repo, aiService, publisher, images, schedulerConfig(), log)
	if !scheduler.Start() {
		return fmt.Errorf("scheduler already running")
	}

	// Schedule the daily stale-topic report
	staleAfter, err := time.ParseDuration(cfg.Scheduler.StaleAfter)
	if err != nil {
		staleAfter = 24 * time.Hour
	}

	c := cron.New(cron.WithLogger(cronLogger{log}))
	_, err = c.AddFunc(cfg.Scheduler.StaleCron, func() {
		ctx := context.Background()
		count, err := scheduler.StaleReport(ctx, staleAfter)
		if err != nil {
			log.Error().Err(err).Msg("Stale topic report failed")
			return
		}
		log.Info().Int("stuck_topics", count).Msg("Stale topic report completed")
	})
	if err != nil {
		return fmt.Errorf("failed to schedule stale topic report: %w", err)
	}
	c.Start()
	log.Info().Str("cron", cfg.Scheduler.StaleCron).Msg("Stale topic report scheduled")

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Info().Msg("Shutting down scheduler")
	c.Stop()
	scheduler.Stop()

	return nil
}

// schedulerConfig maps the loaded config onto scheduler timing settings,
// falling back to defaults for malformed durations
func schedulerConfig() automation.Config {
	sc := automation.DefaultConfig()
	if d, err := time.ParseDuration(cfg.Scheduler.PollInterval); err == nil {
		sc.PollInterval = d
	}
	if d, err := time.ParseDuration(cfg.Scheduler.ErrorBackoff); err == nil {
		sc.ErrorBackoff = d
	}
	if d, err := time.ParseDuration(cfg.Scheduler.StopTimeout); err == nil {
		sc.StopTimeout = d
	}
	if cfg.Scheduler.WindowMinutes > 0 {
		sc.WindowMinutes = cfg.Scheduler.WindowMinutes
	}
	if cfg.Translation.BaseLanguage != "" {
		sc.BaseLanguage = models.Language(cfg.Translation.BaseLanguage)
	}
	return sc
}

// cronLogger adapts our logger for cron
type cronLogger struct {
	log *logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Info().Msgf(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Msgf(msg, keysAndValues...)
}

// startHealthServer starts a simple HTTP server for health checks
func startHealthServer() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "10000"
	}

	http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	http.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("Blog Automation Scheduler"))
	})

	log.Info().Str("port", port).Msg("Health check server starting")
	if err := http.ListenAndServe(":"+port, nil); err != nil {
		log.Error().Err(err).Msg("Health server failed")
	}
}
