package telegram

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"

	"github.com/blog-agent/internal/config"
	"github.com/blog-agent/pkg/logger"
	"github.com/blog-agent/pkg/ratelimit"
)

// MaxBodyLength is the client-side cap on post bodies. Telegram enforces
// its own message limits; we truncate well below them.
const MaxBodyLength = 1000

// Publisher posts finished blog content to a single preconfigured channel
type Publisher struct {
	token       string
	channel     string
	bot         *tgbotapi.BotAPI
	rateLimiter *ratelimit.MultiLimiter
	log         *logger.Logger
}

// NewPublisher creates a channel publisher. The bot connection is
// established lazily on first send so missing credentials surface as a
// send failure, not a startup failure.
func NewPublisher(cfg config.TelegramConfig, limiter *ratelimit.MultiLimiter, log *logger.Logger) *Publisher {
	return &Publisher{
		token:       cfg.BotToken,
		channel:     cfg.Channel,
		rateLimiter: limiter,
		log:         log.WithComponent("telegram"),
	}
}

// SendPost publishes a title and body (optionally with an image file) to
// the configured channel. The body is truncated to MaxBodyLength before
// sending.
func (p *Publisher) SendPost(ctx context.Context, title, body, imagePath string) error {
	if p.token == "" || p.channel == "" {
		return fmt.Errorf("telegram credentials not configured")
	}

	if err := p.rateLimiter.Wait(ctx, ratelimit.LimiterTelegram); err != nil {
		return fmt.Errorf("rate limit error: %w", err)
	}

	if p.bot == nil {
		bot, err := tgbotapi.NewBotAPI(p.token)
		if err != nil {
			return fmt.Errorf("failed to connect to telegram: %w", err)
		}
		p.bot = bot
	}

	message := FormatPost(title, body)

	if imagePath != "" {
		photo := tgbotapi.NewPhotoUpload(0, imagePath)
		photo.ChannelUsername = p.channel
		photo.Caption = message
		photo.ParseMode = tgbotapi.ModeHTML
		if _, err := p.bot.Send(photo); err != nil {
			return fmt.Errorf("failed to send photo: %w", err)
		}
	} else {
		msg := tgbotapi.NewMessageToChannel(p.channel, message)
		msg.ParseMode = tgbotapi.ModeHTML
		if _, err := p.bot.Send(msg); err != nil {
			return fmt.Errorf("failed to send message: %w", err)
		}
	}

	p.log.Info().
		Str("channel", p.channel).
		Bool("with_image", imagePath != "").
		Msg("Posted to Telegram")

	return nil
}

// FormatPost builds the channel message text: bold title plus the body
// truncated to MaxBodyLength characters.
func FormatPost(title, body string) string {
	return fmt.Sprintf("<b>%s</b>\n\n%s", title, TruncateBody(body))
}

// TruncateBody shortens the body to MaxBodyLength characters, appending an
// ellipsis when it was cut.
func TruncateBody(body string) string {
	runes := []rune(body)
	if len(runes) <= MaxBodyLength {
		return body
	}
	return string(runes[:MaxBodyLength]) + "..."
}
