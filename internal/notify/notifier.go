// Package notify delivers alerts to Telegram.
package notify

import (
	"context"
	"fmt"
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/poggufanz/polymarket-sniper/internal/domain"
	"github.com/poggufanz/polymarket-sniper/internal/observability"
)

// Alert carries everything the message formatter needs.
type Alert struct {
	Candidate  domain.CandidateEvent
	Snapshot   domain.MarketSnapshot
	Score      domain.CompositeScore
	Narratives []string
}

// Notifier delivers an alert to its channel.
type Notifier interface {
	Notify(ctx context.Context, alert Alert) error
}

// TelegramNotifier sends alerts to a Telegram chat via the Bot API.
type TelegramNotifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	logger *log.Logger
}

var _ Notifier = (*TelegramNotifier)(nil)

// TelegramOptions configures a TelegramNotifier.
type TelegramOptions struct {
	Token    string
	ChatID   int64
	Endpoint string // Bot API endpoint override, for testing
	Logger   *log.Logger
}

// NewTelegramNotifier creates the notifier and verifies the bot token by
// calling getMe.
func NewTelegramNotifier(opts TelegramOptions) (*TelegramNotifier, error) {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}

	endpoint := opts.Endpoint
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}

	bot, err := tgbotapi.NewBotAPIWithAPIEndpoint(opts.Token, endpoint)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}

	return &TelegramNotifier{
		bot:    bot,
		chatID: opts.ChatID,
		logger: opts.Logger,
	}, nil
}

// Notify formats and sends the alert message. Delivery failures are
// reported to the caller but the alert slot stays consumed either way.
func (n *TelegramNotifier) Notify(_ context.Context, alert Alert) error {
	msg := tgbotapi.NewMessage(n.chatID, FormatAlert(alert))
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.DisableWebPagePreview = true

	if _, err := n.bot.Send(msg); err != nil {
		observability.RecordNotifyError()
		n.logger.Printf("[notify] telegram send failed for %s: %v", alert.Candidate.Mint, err)
		return fmt.Errorf("send telegram alert: %w", err)
	}

	n.logger.Printf("[notify] alert sent for %s (%s), composite=%.1f",
		alert.Candidate.Mint, alert.Candidate.Symbol, alert.Score.Composite)
	return nil
}

// LogNotifier writes alerts to the log instead of sending them. Used in
// dry-run mode.
type LogNotifier struct {
	logger *log.Logger
}

var _ Notifier = (*LogNotifier)(nil)

// NewLogNotifier creates a log-only notifier.
func NewLogNotifier(logger *log.Logger) *LogNotifier {
	if logger == nil {
		logger = log.Default()
	}
	return &LogNotifier{logger: logger}
}

// Notify logs the formatted alert.
func (n *LogNotifier) Notify(_ context.Context, alert Alert) error {
	n.logger.Printf("[notify] dry-run alert for %s:\n%s", alert.Candidate.Mint, FormatAlert(alert))
	return nil
}
