package notify

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"
)

// Notifier sends plain-text messages to the shop operator.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

type telegramNotifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

// NewTelegramNotifier connects to the Bot API and sends to chatID.
func NewTelegramNotifier(token string, chatID int64) (Notifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	return newTelegramNotifier(bot, chatID), nil
}

// NewTelegramNotifierWithEndpoint is NewTelegramNotifier against a custom Bot
// API server; endpoint is a format string such as "https://host/bot%s/%s".
func NewTelegramNotifierWithEndpoint(token, endpoint string, chatID int64) (Notifier, error) {
	bot, err := tgbotapi.NewBotAPIWithAPIEndpoint(token, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	return newTelegramNotifier(bot, chatID), nil
}

func newTelegramNotifier(bot *tgbotapi.BotAPI, chatID int64) Notifier {
	log.Infof("✅ Operator notifications via @%s to chat %d", bot.Self.UserName, chatID)
	return &telegramNotifier{bot: bot, chatID: chatID}
}

func (n *telegramNotifier) Notify(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(n.chatID, text)
	msg.DisableWebPagePreview = true
	if _, err := n.bot.Send(msg); err != nil {
		return fmt.Errorf("failed to send operator message: %w", err)
	}
	return nil
}

type logNotifier struct{}

// NewLogNotifier only logs messages; used when no bot token is configured.
func NewLogNotifier() Notifier {
	return logNotifier{}
}

func (logNotifier) Notify(_ context.Context, text string) error {
	log.Infof("📣 Operator notification: %s", text)
	return nil
}
