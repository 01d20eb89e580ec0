package telegram

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

// NewBot creates a long-polling bot. Handler errors are logged, never surfaced to the chat.
func NewBot(token string, logger *logrus.Entry) (*telebot.Bot, error) {
	b, err := telebot.NewBot(telebot.Settings{
		Token:  token,
		Poller: &telebot.LongPoller{Timeout: 10 * time.Second},
		OnError: func(err error, c telebot.Context) {
			entry := logger.WithError(err)
			if c != nil && c.Sender() != nil {
				entry = entry.WithFields(logrus.Fields{"sender_id": c.Sender().ID, "text": c.Text()})
			}
			entry.Error("Telegram handler failed")
		},
	})
	if err != nil {
		return nil, fmt.Errorf("error creating telegram bot: %w", err)
	}
	return b, nil
}

// TelebotAdapter implements telegram.Client on top of gopkg.in/telebot.v3.
type TelebotAdapter struct {
	bot *telebot.Bot
}

func NewTelebotAdapter(b *telebot.Bot) *TelebotAdapter {
	return &TelebotAdapter{bot: b}
}

// Notify sends text to a chat. telebot has no context support, so cancellation is only checked up front.
func (a *TelebotAdapter) Notify(ctx context.Context, chatID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := a.bot.Send(&telebot.Chat{ID: chatID}, text); err != nil {
		return fmt.Errorf("error sending telegram message to chat %d: %w", chatID, err)
	}
	return nil
}
