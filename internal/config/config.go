package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Database    DatabaseConfig    `mapstructure:"database"`
	AI          AIConfig          `mapstructure:"ai"`
	OpenAI      OpenAIConfig      `mapstructure:"openai"`
	Anthropic   AnthropicConfig   `mapstructure:"anthropic"`
	Telegram    TelegramConfig    `mapstructure:"telegram"`
	Translation TranslationConfig `mapstructure:"translation"`
	Scheduler   SchedulerConfig   `mapstructure:"scheduler"`
	Uploads     UploadsConfig     `mapstructure:"uploads"`
	Sources     SourcesConfig     `mapstructure:"sources"`
	Logging     LoggingConfig     `mapstructure:"logging"`
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Driver string `mapstructure:"driver"` // sqlite
	DSN    string `mapstructure:"dsn"`    // Connection string
}

// AIConfig selects the content generation provider
type AIConfig struct {
	Provider string `mapstructure:"provider"` // openai or anthropic
}

// OpenAIConfig holds OpenAI API settings
type OpenAIConfig struct {
	APIKey                 string `mapstructure:"api_key"`
	ContentAssistantID     string `mapstructure:"content_assistant_id"`
	TranslationAssistantID string `mapstructure:"translation_assistant_id"`
	ChatModel              string `mapstructure:"chat_model"`  // For image prompt generation
	ImageModel             string `mapstructure:"image_model"` // dall-e-3
	ImageSize              string `mapstructure:"image_size"`
	RunPollInterval        string `mapstructure:"run_poll_interval"` // Delay between run status checks
	RunPollAttempts        int    `mapstructure:"run_poll_attempts"` // Bounded poll budget
}

// AnthropicConfig holds Claude API settings
type AnthropicConfig struct {
	APIKey    string `mapstructure:"api_key"`
	Model     string `mapstructure:"model"`
	MaxTokens int    `mapstructure:"max_tokens"`
}

// TelegramConfig holds Telegram bot settings
type TelegramConfig struct {
	BotToken string `mapstructure:"bot_token"`
	Channel  string `mapstructure:"channel"` // Channel username, e.g. @myblog
}

// TranslationConfig holds translation settings
type TranslationConfig struct {
	BaseLanguage string `mapstructure:"base_language"` // Language the content is generated in
}

// SchedulerConfig holds automation scheduler settings
type SchedulerConfig struct {
	PollInterval  string `mapstructure:"poll_interval"`  // Delay between ticks
	ErrorBackoff  string `mapstructure:"error_backoff"`  // Delay after a failed tick
	StopTimeout   string `mapstructure:"stop_timeout"`   // Bounded wait on Stop
	WindowMinutes int    `mapstructure:"window_minutes"` // Posting time tolerance
	StaleCron     string `mapstructure:"stale_cron"`     // Cron spec for the stale topic report
	StaleAfter    string `mapstructure:"stale_after"`    // Age before a processing topic is reported
}

// UploadsConfig holds file storage settings
type UploadsConfig struct {
	Dir string `mapstructure:"dir"` // Root uploads directory; images go to <dir>/blog
}

// SourcesConfig holds topic import settings
type SourcesConfig struct {
	RSS RSSConfig `mapstructure:"rss"`
}

// RSSConfig holds RSS import settings
type RSSConfig struct {
	MaxAgeDays int `mapstructure:"max_age_days"` // Skip feed items older than this
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json or console
	Output string `mapstructure:"output"` // stdout or file path
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	// Load .env file if present (ignore errors if not found)
	_ = godotenv.Load()
	_ = godotenv.Load(".env.local")

	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Look for config in current directory and configs folder
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")

		// Also check user's home directory
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".blog-agent"))
		}
	}

	// Environment variables
	v.SetEnvPrefix("BLOGAGENT")
	v.AutomaticEnv()

	// Explicit bindings for nested keys (Viper doesn't auto-bind underscored nested keys)
	v.BindEnv("openai.api_key", "BLOGAGENT_OPENAI_API_KEY")
	v.BindEnv("openai.content_assistant_id", "BLOGAGENT_OPENAI_CONTENT_ASSISTANT_ID")
	v.BindEnv("openai.translation_assistant_id", "BLOGAGENT_OPENAI_TRANSLATION_ASSISTANT_ID")
	v.BindEnv("anthropic.api_key", "BLOGAGENT_ANTHROPIC_API_KEY")
	v.BindEnv("telegram.bot_token", "BLOGAGENT_TELEGRAM_BOT_TOKEN")
	v.BindEnv("telegram.channel", "BLOGAGENT_TELEGRAM_CHANNEL")
	v.BindEnv("database.driver", "BLOGAGENT_DATABASE_DRIVER")
	v.BindEnv("database.dsn", "BLOGAGENT_DATABASE_DSN")
	v.BindEnv("uploads.dir", "BLOGAGENT_UPLOADS_DIR")
	v.BindEnv("ai.provider", "BLOGAGENT_AI_PROVIDER")

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Database defaults
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "./data/blog.db")

	// AI provider defaults
	v.SetDefault("ai.provider", "openai")

	// OpenAI defaults
	v.SetDefault("openai.chat_model", "gpt-4")
	v.SetDefault("openai.image_model", "dall-e-3")
	v.SetDefault("openai.image_size", "1024x1024")
	v.SetDefault("openai.run_poll_interval", "2s")
	v.SetDefault("openai.run_poll_attempts", 60)

	// Anthropic defaults
	v.SetDefault("anthropic.model", "claude-sonnet-4-20250514")
	v.SetDefault("anthropic.max_tokens", 4096)

	// Translation defaults
	v.SetDefault("translation.base_language", "uk")

	// Scheduler defaults
	v.SetDefault("scheduler.poll_interval", "60s")
	v.SetDefault("scheduler.error_backoff", "300s")
	v.SetDefault("scheduler.stop_timeout", "5s")
	v.SetDefault("scheduler.window_minutes", 5)
	v.SetDefault("scheduler.stale_cron", "0 6 * * *") // Daily at 6am
	v.SetDefault("scheduler.stale_after", "24h")

	// Uploads defaults
	v.SetDefault("uploads.dir", "./uploads")

	// Sources defaults
	v.SetDefault("sources.rss.max_age_days", 7)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.output", "stdout")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.AI.Provider {
	case "openai":
		if c.OpenAI.APIKey == "" {
			return fmt.Errorf("openai.api_key is required")
		}
		if c.OpenAI.ContentAssistantID == "" {
			return fmt.Errorf("openai.content_assistant_id is required")
		}
	case "anthropic":
		if c.Anthropic.APIKey == "" {
			return fmt.Errorf("anthropic.api_key is required")
		}
	default:
		return fmt.Errorf("unknown ai.provider: %s", c.AI.Provider)
	}
	return nil
}
