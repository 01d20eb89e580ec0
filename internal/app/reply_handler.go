package app

import (
	"context"
	"errors"

	"outreach_scheduler/internal/infra/metrics"

	"github.com/sirupsen/logrus"
)

// ReplyPayload is the part of an inbound reply event the handler needs.
type ReplyPayload struct {
	OriginalMessageID *int64 `json:"originalMessageId"`
}

// ReplyOutcome tells the caller what happened to a reply. It is informational only.
type ReplyOutcome string

const (
	ReplyMarkedResponded ReplyOutcome = "marked_responded"
	ReplyIgnoredNoID     ReplyOutcome = "ignored_missing_id"
	ReplyIgnoredUnknown  ReplyOutcome = "ignored_not_found"
	ReplyIgnoredRepeat   ReplyOutcome = "ignored_duplicate"
	ReplyFailed          ReplyOutcome = "failed"
)

// ReplyHandler is the terminal sink for inbound reply events. No error escapes it.
type ReplyHandler struct {
	messages *MessageService
	logger   *logrus.Entry
}

func NewReplyHandler(messages *MessageService, logger *logrus.Entry) *ReplyHandler {
	return &ReplyHandler{messages: messages, logger: logger}
}

func (h *ReplyHandler) HandleReply(ctx context.Context, payload ReplyPayload) ReplyOutcome {
	outcome := h.handle(ctx, payload)
	metrics.Replies.WithLabelValues(string(outcome)).Inc()
	return outcome
}

func (h *ReplyHandler) handle(ctx context.Context, payload ReplyPayload) ReplyOutcome {
	if payload.OriginalMessageID == nil || *payload.OriginalMessageID <= 0 {
		h.logger.Error("Received a reply payload without an originalMessageId")
		return ReplyIgnoredNoID
	}
	id := *payload.OriginalMessageID
	replyLog := h.logger.WithField("message_id", id)

	m, err := h.messages.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrMessageNotFound) {
			replyLog.Warn("Received a reply for a message that does not exist")
			return ReplyIgnoredUnknown
		}
		replyLog.WithError(err).Error("Failed to load message for reply")
		return ReplyFailed
	}

	if m.ResponseReceived {
		replyLog.Info("Message already marked as responded, ignoring duplicate reply")
		return ReplyIgnoredRepeat
	}

	if _, err := h.messages.markResponded(ctx, m); err != nil {
		replyLog.WithError(err).Error("Failed to mark message as responded")
		return ReplyFailed
	}

	// A reply to a follow-up answers the whole thread.
	if m.IsFollowUp() {
		rootID := m.ParentMessageID.Int64
		root, err := h.messages.Get(ctx, rootID)
		switch {
		case errors.Is(err, ErrMessageNotFound):
			replyLog.WithField("thread_id", rootID).Warn("Thread root no longer exists")
		case err != nil:
			replyLog.WithError(err).WithField("thread_id", rootID).Error("Failed to load thread root")
		default:
			if _, err := h.messages.markResponded(ctx, root); err != nil {
				replyLog.WithError(err).WithField("thread_id", rootID).Error("Failed to mark thread root as responded")
			}
		}
	}

	replyLog.Info("Message marked as responded")
	return ReplyMarkedResponded
}
