package events

import (
	"context"
	"fmt"

	"outreach_scheduler/internal/domain/message"
	"outreach_scheduler/internal/domain/telegram"
)

// TelegramNotifier tells the operator chat when a recipient replied or went quiet.
// Other transitions are dropped.
type TelegramNotifier struct {
	client telegram.Client
	chatID int64
}

func NewTelegramNotifier(client telegram.Client, chatID int64) *TelegramNotifier {
	return &TelegramNotifier{client: client, chatID: chatID}
}

func (n *TelegramNotifier) Publish(ctx context.Context, evt message.StatusChanged) error {
	var text string
	switch evt.Status {
	case message.StatusResponded:
		text = fmt.Sprintf("✅ Message #%d (user %d) received a reply.", evt.MessageID, evt.UserID)
	case message.StatusUnresponsive:
		text = fmt.Sprintf("⏸ Message #%d (user %d) was flagged unresponsive. Use /reactivate %d to resume.",
			evt.MessageID, evt.UserID, evt.MessageID)
	default:
		return nil
	}
	if err := n.client.Notify(ctx, n.chatID, text); err != nil {
		return fmt.Errorf("error notifying operator chat: %w", err)
	}
	return nil
}
