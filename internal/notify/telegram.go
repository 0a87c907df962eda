package notify

import (
	"context"
	"fmt"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramSender delivers notifications as Telegram bot messages. The
// notification target is the destination chat id.
type TelegramSender struct {
	bot *tgbotapi.BotAPI
}

// NewTelegramSender authorizes the bot with the given token.
func NewTelegramSender(token string) (*TelegramSender, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("init telegram bot: %w", err)
	}
	return &TelegramSender{bot: bot}, nil
}

func (s *TelegramSender) Name() string { return "telegram" }

// Send posts the notification message to the target chat
func (s *TelegramSender) Send(ctx context.Context, n *Notification) error {
	chatID, err := strconv.ParseInt(n.Target, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid telegram chat id %q: %w", n.Target, err)
	}

	msg := tgbotapi.NewMessage(chatID, "Blockchain Alert: "+n.Message)
	msg.ParseMode = tgbotapi.ModeHTML

	if _, err := s.bot.Send(msg); err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}
	return nil
}
