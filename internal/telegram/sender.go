package telegram

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Sender delivers outbound text messages. It satisfies the Sender
// interfaces of both the session service and the scheduler.
type Sender struct {
	bot *tgbotapi.BotAPI
}

// NewSender wraps the bot API for outbound delivery.
func NewSender(bot *tgbotapi.BotAPI) *Sender {
	return &Sender{bot: bot}
}

// SendMessage sends a plain text message to the given user. Delivery is
// fire-and-forget from the core's perspective; callers log the error and
// move on.
func (s *Sender) SendMessage(userID int64, text string) error {
	_, err := s.bot.Send(tgbotapi.NewMessage(userID, text))
	return err
}
