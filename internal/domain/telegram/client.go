package telegram

import "context"

// Client delivers plain-text operator notifications to a Telegram chat.
type Client interface {
	Notify(ctx context.Context, chatID int64, text string) error
}
