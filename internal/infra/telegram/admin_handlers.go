package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"outreach_scheduler/internal/app"
	"outreach_scheduler/internal/domain/message"
	"outreach_scheduler/internal/infra/scheduler"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

type PassTrigger interface {
	RunNow(ctx context.Context) (*app.RunResult, error)
}

type ProjectStatsReader interface {
	Stats(ctx context.Context, id int64) (*app.ProjectStats, error)
}

type MessageReactivator interface {
	Reactivate(ctx context.Context, id int64) (*message.Message, error)
}

type ReplyHandler interface {
	HandleReply(ctx context.Context, payload app.ReplyPayload) app.ReplyOutcome
}

// AdminHandlers serves the operator commands. Every command is restricted to adminID.
type AdminHandlers struct {
	ctx      context.Context
	passes   PassTrigger
	projects ProjectStatsReader
	messages MessageReactivator
	replies  ReplyHandler
	adminID  int64
	logger   *logrus.Entry
}

func NewAdminHandlers(
	ctx context.Context,
	passes PassTrigger,
	projects ProjectStatsReader,
	messages MessageReactivator,
	replies ReplyHandler,
	adminID int64,
	logger *logrus.Entry,
) *AdminHandlers {
	return &AdminHandlers{
		ctx:      ctx,
		passes:   passes,
		projects: projects,
		messages: messages,
		replies:  replies,
		adminID:  adminID,
		logger:   logger,
	}
}

func (h *AdminHandlers) Register(b *telebot.Bot) {
	b.Handle("/run_scheduler", h.adminOnly("/run_scheduler", h.RunScheduler))
	b.Handle("/project_stats", h.adminOnly("/project_stats", h.ProjectStats))
	b.Handle("/reactivate", h.adminOnly("/reactivate", h.Reactivate))
	b.Handle("/mark_responded", h.adminOnly("/mark_responded", h.MarkResponded))
}

func (h *AdminHandlers) adminOnly(command string, next func(telebot.Context, *logrus.Entry) error) telebot.HandlerFunc {
	return func(c telebot.Context) error {
		log := h.logger.WithFields(logrus.Fields{
			"handler":   command,
			"sender_id": c.Sender().ID,
		})
		log.Info("Command received")

		if c.Sender().ID != h.adminID {
			log.Warn("Unauthorized access attempt")
			return c.Send("Error: you are not allowed to run this command.")
		}
		return next(c, log)
	}
}

func (h *AdminHandlers) RunScheduler(c telebot.Context, log *logrus.Entry) error {
	res, err := h.passes.RunNow(h.ctx)
	if errors.Is(err, scheduler.ErrPassInProgress) {
		return c.Send("An outreach pass is already running, try again later.")
	}
	if err != nil {
		log.WithError(err).Error("Manual pass aborted")
		return c.Send(fmt.Sprintf("The pass was aborted: %s", err.Error()))
	}

	var sb strings.Builder
	sb.WriteString("Outreach pass finished.\n")
	fmt.Fprintf(&sb, "Projects scanned: %d (throttled %d)\n", res.ProjectsScanned, res.ProjectsThrottled)
	fmt.Fprintf(&sb, "Drafts sent: %d, failed: %d, blocked as duplicates: %d\n", res.DraftsSent, res.DraftsFailed, res.DuplicateBlocked)
	fmt.Fprintf(&sb, "Follow-ups due: %d, sent: %d, closed: %d, skipped: %d, failed: %d",
		res.FollowUpsDue, res.FollowUpsSent, res.FollowUpsClosed, res.FollowUpsSkipped, res.FollowUpsFailed)
	if unitErr := res.Err(); unitErr != nil {
		log.WithError(unitErr).Warn("Manual pass finished with failures")
	}
	return c.Send(sb.String())
}

func (h *AdminHandlers) ProjectStats(c telebot.Context, log *logrus.Entry) error {
	id, ok := singleID(c)
	if !ok {
		return c.Send("Invalid command format. Use: /project_stats <ProjectID>")
	}
	stats, err := h.projects.Stats(h.ctx, id)
	if errors.Is(err, app.ErrProjectNotFound) {
		return c.Send(fmt.Sprintf("Project %d not found.", id))
	}
	if err != nil {
		log.WithError(err).WithField("project_id", id).Error("Failed to load project stats")
		return c.Send("Could not load project statistics, try again later.")
	}
	return c.Send(fmt.Sprintf("Project %d\nSent: %d\nResponses: %d\nResponse rate: %.1f%%",
		id, stats.MessagesSentCount, stats.ResponsesReceivedCount, stats.ResponseRate))
}

func (h *AdminHandlers) Reactivate(c telebot.Context, log *logrus.Entry) error {
	id, ok := singleID(c)
	if !ok {
		return c.Send("Invalid command format. Use: /reactivate <MessageID>")
	}
	m, err := h.messages.Reactivate(h.ctx, id)
	switch {
	case errors.Is(err, app.ErrMessageNotFound):
		return c.Send(fmt.Sprintf("Message %d not found.", id))
	case errors.Is(err, app.ErrInvalidState):
		return c.Send(fmt.Sprintf("Message %d cannot be reactivated: %s", id, err.Error()))
	case err != nil:
		log.WithError(err).WithField("message_id", id).Error("Failed to reactivate message")
		return c.Send("Could not reactivate the message, try again later.")
	}
	log.WithField("message_id", m.ID).Info("Message reactivated")
	return c.Send(fmt.Sprintf("Message %d is back in status %q.", m.ID, m.Status))
}

// MarkResponded records a reply the operator saw outside the webhook.
func (h *AdminHandlers) MarkResponded(c telebot.Context, log *logrus.Entry) error {
	id, ok := singleID(c)
	if !ok {
		return c.Send("Invalid command format. Use: /mark_responded <MessageID>")
	}
	outcome := h.replies.HandleReply(h.ctx, app.ReplyPayload{OriginalMessageID: &id})
	log.WithFields(logrus.Fields{"message_id": id, "outcome": outcome}).Info("Manual reply processed")

	switch outcome {
	case app.ReplyMarkedResponded:
		return c.Send(fmt.Sprintf("Message %d marked as responded.", id))
	case app.ReplyIgnoredRepeat:
		return c.Send(fmt.Sprintf("Message %d was already marked as responded.", id))
	case app.ReplyIgnoredUnknown:
		return c.Send(fmt.Sprintf("Message %d not found.", id))
	default:
		return c.Send("Could not record the reply, try again later.")
	}
}

func singleID(c telebot.Context) (int64, bool) {
	args := c.Args()
	if len(args) != 1 {
		return 0, false
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
