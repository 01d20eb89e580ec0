// internal/app/message_service.go
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	"outreach_scheduler/internal/domain/message"
	"outreach_scheduler/internal/domain/outreach"
	"outreach_scheduler/internal/domain/project"
	"outreach_scheduler/internal/domain/template"
	"outreach_scheduler/internal/infra/metrics"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// NewMessage is the input for creating a draft.
type NewMessage struct {
	UserID    int64
	ProjectID int64 // 0 means no project
	Recipient string
	Subject   string
	Content   string
	Metadata  message.Metadata
}

// MessageService owns the message state machine. Every mutation goes through update,
// which persists the patch, invalidates the cache (via the repository) and publishes
// status changes.
type MessageService struct {
	messages  message.Repository
	projects  project.Repository
	templates template.Repository
	guard     outreach.Guard
	publisher message.Publisher
	clock     Clock
	logger    *logrus.Entry

	// quotaLocks serializes quota checks and sends per project.
	quotaLocks sync.Map // project id -> *sync.Mutex
}

func NewMessageService(
	messages message.Repository,
	projects project.Repository,
	templates template.Repository,
	guard outreach.Guard,
	publisher message.Publisher,
	clock Clock,
	logger *logrus.Entry,
) *MessageService {
	if clock == nil {
		clock = SystemClock{}
	}
	return &MessageService{
		messages:  messages,
		projects:  projects,
		templates: templates,
		guard:     guard,
		publisher: publisher,
		clock:     clock,
		logger:    logger,
	}
}

// Create stores a new draft message.
func (s *MessageService) Create(ctx context.Context, in NewMessage) (*message.Message, error) {
	in.Recipient = strings.TrimSpace(in.Recipient)
	if in.UserID <= 0 || in.Recipient == "" {
		return nil, fmt.Errorf("%w: user id and recipient are required", ErrInvalidInput)
	}

	m := &message.Message{
		UserID:    in.UserID,
		Recipient: in.Recipient,
		Subject:   in.Subject,
		Content:   in.Content,
		Metadata:  in.Metadata,
		Status:    message.StatusDraft,
	}
	if in.ProjectID > 0 {
		p, err := s.projects.GetByID(ctx, in.ProjectID)
		if err != nil {
			return nil, fmt.Errorf("failed to load project %d: %w", in.ProjectID, err)
		}
		if p.UserID != in.UserID {
			return nil, fmt.Errorf("project %d: %w", in.ProjectID, ErrProjectNotFound)
		}
		m.ProjectID = sql.NullInt64{Int64: in.ProjectID, Valid: true}
	}

	if err := s.messages.Create(ctx, m); err != nil {
		return nil, fmt.Errorf("failed to create message: %w", err)
	}
	s.logger.WithFields(logrus.Fields{"message_id": m.ID, "user_id": m.UserID}).Debug("Draft created")
	return m, nil
}

func (s *MessageService) Get(ctx context.Context, id int64) (*message.Message, error) {
	return s.messages.GetByID(ctx, id)
}

func (s *MessageService) ListByUser(ctx context.Context, userID int64, filter message.ListFilter) ([]*message.Message, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, filter.Status)
	}
	return s.messages.ListByUserID(ctx, userID, filter)
}

func (s *MessageService) Statistics(ctx context.Context, userID int64) (*message.Statistics, error) {
	return s.messages.Statistics(ctx, userID)
}

// Send moves a draft to sent. It fails with ErrDuplicateContact, without
// mutating anything, when the recipient was contacted recently by the same user
// outside this message's thread, and with ErrQuotaExceeded when the message's
// project has no sends left in the current interval.
func (s *MessageService) Send(ctx context.Context, id int64) (*message.Message, error) {
	m, err := s.messages.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if m.IsFollowUp() || !m.ProjectID.Valid {
		return s.send(ctx, m)
	}

	unlock := s.lockProject(m.ProjectID.Int64)
	defer unlock()

	// Reload under the lock, a running pass may have sent it meanwhile.
	if m, err = s.messages.GetByID(ctx, id); err != nil {
		return nil, err
	}
	if err := s.checkQuota(ctx, m); err != nil {
		return nil, err
	}
	return s.send(ctx, m)
}

func (s *MessageService) checkQuota(ctx context.Context, m *message.Message) error {
	if m.Status != message.StatusDraft {
		return nil // send reports the state error
	}
	p, err := s.projects.GetByID(ctx, m.ProjectID.Int64)
	if err != nil {
		return fmt.Errorf("failed to load project %d: %w", m.ProjectID.Int64, err)
	}
	sent, err := s.messages.CountSentInWindow(ctx, p.ID, p.IntervalUnit.PostgresInterval())
	if err != nil {
		return fmt.Errorf("failed to count sends for project %d: %w", p.ID, err)
	}
	if sent >= p.MessageInterval {
		metrics.SendFailures.WithLabelValues(metrics.ReasonQuota).Inc()
		return fmt.Errorf("project %d: %d of %d per %s: %w", p.ID, sent, p.MessageInterval, p.IntervalUnit, ErrQuotaExceeded)
	}
	return nil
}

// lockProject holds the quota lock of a project until the returned func is called.
func (s *MessageService) lockProject(projectID int64) func() {
	v, _ := s.quotaLocks.LoadOrStore(projectID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

func (s *MessageService) send(ctx context.Context, m *message.Message) (*message.Message, error) {
	if m.Status != message.StatusDraft {
		metrics.SendFailures.WithLabelValues(metrics.ReasonInvalidState).Inc()
		return nil, invalidState("send", m, "only draft messages can be sent")
	}

	contact := outreach.Contact{UserID: m.UserID, Recipient: m.Recipient, ThreadID: m.ThreadID()}
	contacted, err := s.guard.WasContactedRecently(ctx, contact)
	if err != nil {
		metrics.SendFailures.WithLabelValues(metrics.ReasonError).Inc()
		return nil, fmt.Errorf("failed to check outreach history for message %d: %w", m.ID, err)
	}
	if contacted {
		metrics.SendFailures.WithLabelValues(metrics.ReasonDuplicateContact).Inc()
		return nil, fmt.Errorf("message %d to %s: %w", m.ID, m.Recipient, ErrDuplicateContact)
	}

	sent := message.StatusSent
	patch := message.Patch{Status: &sent}
	if !m.IsFollowUp() && m.ProjectID.Valid {
		templates, err := s.templates.FindByProjectID(ctx, m.ProjectID.Int64)
		if err != nil {
			return nil, fmt.Errorf("failed to load follow-up templates for project %d: %w", m.ProjectID.Int64, err)
		}
		if len(templates) > 0 {
			scheduled := true
			due := sql.NullTime{Time: s.clock.Now().AddDate(0, 0, templates[0].DelayDays), Valid: true}
			patch.FollowUpScheduled = &scheduled
			patch.FollowUpDate = &due
		}
	}

	// The log row carries the thread id, so a retry of this message is not blocked by it.
	if err := s.guard.RecordContact(ctx, contact); err != nil {
		metrics.SendFailures.WithLabelValues(metrics.ReasonError).Inc()
		return nil, fmt.Errorf("failed to record outreach for message %d: %w", m.ID, err)
	}

	updated, err := s.update(ctx, m, patch)
	if err != nil {
		metrics.SendFailures.WithLabelValues(metrics.ReasonError).Inc()
		return nil, err
	}
	metrics.MessagesSent.Inc()

	if updated.ProjectID.Valid {
		if _, err := s.projects.IncrementStats(ctx, updated.ProjectID.Int64, project.StatsDelta{MessagesSent: 1}); err != nil {
			s.logger.WithError(err).WithFields(logrus.Fields{
				"message_id": updated.ID,
				"project_id": updated.ProjectID.Int64,
			}).Error("Message sent but project counter was not incremented")
		}
	}

	s.logger.WithFields(logrus.Fields{
		"message_id":         updated.ID,
		"follow_up_schedule": updated.FollowUpScheduled,
	}).Info("Message sent")
	return updated, nil
}

// ScheduleFollowUp sets the next follow-up to now + days.
func (s *MessageService) ScheduleFollowUp(ctx context.Context, id int64, days int) (*message.Message, error) {
	if days < 0 {
		return nil, fmt.Errorf("%w: days must not be negative", ErrInvalidInput)
	}
	m, err := s.messages.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	switch {
	case m.Status != message.StatusSent:
		return nil, invalidState("schedule follow-up for", m, "only sent messages can have follow-ups scheduled")
	case m.ResponseReceived:
		return nil, invalidState("schedule follow-up for", m, "a response was already received")
	case m.UnresponsiveFlagged:
		return nil, invalidState("schedule follow-up for", m, "recipient is flagged unresponsive")
	}

	scheduled := true
	due := sql.NullTime{Time: s.clock.Now().AddDate(0, 0, days), Valid: true}
	return s.update(ctx, m, message.Patch{FollowUpScheduled: &scheduled, FollowUpDate: &due})
}

// MarkResponded records a reply. A second call on the same message is a no-op.
func (s *MessageService) MarkResponded(ctx context.Context, id int64) (*message.Message, error) {
	m, err := s.messages.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.markResponded(ctx, m)
}

func (s *MessageService) markResponded(ctx context.Context, m *message.Message) (*message.Message, error) {
	if m.ResponseReceived {
		return m, nil
	}

	responded := message.StatusResponded
	received := true
	flagged := false
	patch := message.ClearFollowUp()
	patch.Status = &responded
	patch.ResponseReceived = &received
	patch.UnresponsiveFlagged = &flagged

	updated, err := s.update(ctx, m, patch)
	if err != nil {
		return nil, err
	}

	// Responses are counted once per thread, on its root message.
	if !updated.IsFollowUp() && updated.ProjectID.Valid {
		if _, err := s.projects.IncrementStats(ctx, updated.ProjectID.Int64, project.StatsDelta{ResponsesReceived: 1}); err != nil {
			s.logger.WithError(err).WithFields(logrus.Fields{
				"message_id": updated.ID,
				"project_id": updated.ProjectID.Int64,
			}).Error("Response recorded but project counter was not incremented")
		}
	}
	return updated, nil
}

// FlagUnresponsive ends the follow-up sequence of a sent message.
func (s *MessageService) FlagUnresponsive(ctx context.Context, id int64) (*message.Message, error) {
	m, err := s.messages.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if m.Status != message.StatusSent {
		return nil, invalidState("flag unresponsive", m, "only sent messages can be flagged")
	}

	unresponsive := message.StatusUnresponsive
	flagged := true
	patch := message.ClearFollowUp()
	patch.Status = &unresponsive
	patch.UnresponsiveFlagged = &flagged
	return s.update(ctx, m, patch)
}

// Reactivate returns an unresponsive recipient to sent with a fresh follow-up count.
func (s *MessageService) Reactivate(ctx context.Context, id int64) (*message.Message, error) {
	m, err := s.messages.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if m.Status != message.StatusUnresponsive || !m.UnresponsiveFlagged {
		return nil, invalidState("reactivate", m, "only unresponsive recipients can be reactivated")
	}

	sent := message.StatusSent
	flagged := false
	count := 0
	return s.update(ctx, m, message.Patch{Status: &sent, UnresponsiveFlagged: &flagged, FollowUpCount: &count})
}

// Update applies a field-level patch.
func (s *MessageService) Update(ctx context.Context, id int64, patch message.Patch) (*message.Message, error) {
	if patch.Status != nil && !patch.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, *patch.Status)
	}
	m, err := s.messages.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.update(ctx, m, patch)
}

func (s *MessageService) update(ctx context.Context, current *message.Message, patch message.Patch) (*message.Message, error) {
	updated, err := s.messages.Update(ctx, current.ID, patch)
	if err != nil {
		return nil, fmt.Errorf("failed to update message %d: %w", current.ID, err)
	}
	if patch.Status != nil && *patch.Status != current.Status {
		s.publishStatusChange(ctx, updated)
	}
	return updated, nil
}

func (s *MessageService) publishStatusChange(ctx context.Context, m *message.Message) {
	if s.publisher == nil {
		return
	}
	evt := message.StatusChanged{
		EventID:    uuid.NewString(),
		MessageID:  m.ID,
		UserID:     m.UserID,
		Status:     m.Status,
		OccurredAt: s.clock.Now(),
	}
	if err := s.publisher.Publish(ctx, evt); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"message_id": m.ID,
			"status":     m.Status,
		}).Warn("Failed to publish status change")
	}
}

// Delete removes the message together with any scheduled follow-up.
func (s *MessageService) Delete(ctx context.Context, id int64) error {
	m, err := s.messages.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.messages.Delete(ctx, m.ID); err != nil {
		return fmt.Errorf("failed to delete message %d: %w", m.ID, err)
	}
	entry := s.logger.WithField("message_id", m.ID)
	if m.FollowUpScheduled {
		entry = entry.WithField("cancelled_follow_up", m.FollowUpDate.Time)
	}
	entry.Info("Message deleted")
	return nil
}

// discardDraft removes a draft created by the follow-up sequence whose send failed.
func (s *MessageService) discardDraft(ctx context.Context, m *message.Message) {
	if err := s.messages.Delete(ctx, m.ID); err != nil && !errors.Is(err, ErrMessageNotFound) {
		s.logger.WithError(err).WithField("message_id", m.ID).Error("Failed to discard unsent follow-up draft")
	}
}

func (s *MessageService) createDraft(ctx context.Context, m *message.Message) error {
	m.Status = message.StatusDraft
	if err := s.messages.Create(ctx, m); err != nil {
		return fmt.Errorf("failed to create follow-up draft: %w", err)
	}
	return nil
}
