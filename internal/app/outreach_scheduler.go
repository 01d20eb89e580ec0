// internal/app/outreach_scheduler.go
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"outreach_scheduler/internal/domain/message"
	"outreach_scheduler/internal/domain/project"
	"outreach_scheduler/internal/domain/template"
	"outreach_scheduler/internal/infra/metrics"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
)

// DefaultPageSize bounds how many projects are held in memory at once.
const DefaultPageSize = 100

// TextRenderer turns raw template text into message text.
type TextRenderer interface {
	Render(text string, values map[string]string) string
}

// RunResult summarises one scheduler pass. Unit errors are collected for
// reporting; they never fail the pass.
type RunResult struct {
	ProjectsScanned   int
	ProjectsThrottled int
	DraftsSent        int
	DraftsFailed      int
	DuplicateBlocked  int
	FollowUpsDue      int
	FollowUpsSent     int
	FollowUpsClosed   int
	FollowUpsSkipped  int
	FollowUpsFailed   int

	errs *multierror.Error
}

// Err returns the per-unit errors of the pass, or nil.
func (r *RunResult) Err() error {
	return r.errs.ErrorOrNil()
}

func (r *RunResult) addErr(err error) {
	r.errs = multierror.Append(r.errs, err)
}

func (r *RunResult) fields() logrus.Fields {
	return logrus.Fields{
		"projects_scanned":   r.ProjectsScanned,
		"projects_throttled": r.ProjectsThrottled,
		"drafts_sent":        r.DraftsSent,
		"drafts_failed":      r.DraftsFailed,
		"duplicate_blocked":  r.DuplicateBlocked,
		"follow_ups_due":     r.FollowUpsDue,
		"follow_ups_sent":    r.FollowUpsSent,
		"follow_ups_closed":  r.FollowUpsClosed,
		"follow_ups_skipped": r.FollowUpsSkipped,
		"follow_ups_failed":  r.FollowUpsFailed,
	}
}

type followUpOutcome string

const (
	followUpSent    followUpOutcome = "sent"
	followUpClosed  followUpOutcome = "closed"
	followUpSkipped followUpOutcome = "skipped"
	followUpFailed  followUpOutcome = "failed"
)

// OutreachScheduler is the batch job. Phase A dispatches drafts under each
// project's quota, Phase B advances due follow-ups through the template sequence.
// Units are processed sequentially; a failing unit is logged and left in place
// for the next pass.
type OutreachScheduler struct {
	projects  project.Repository
	messages  message.Repository
	templates template.Repository
	sender    *MessageService
	renderer  TextRenderer
	clock     Clock
	pageSize  int
	logger    *logrus.Entry
}

func NewOutreachScheduler(
	projects project.Repository,
	messages message.Repository,
	templates template.Repository,
	sender *MessageService,
	renderer TextRenderer,
	clock Clock,
	pageSize int,
	logger *logrus.Entry,
) *OutreachScheduler {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if clock == nil {
		clock = SystemClock{}
	}
	return &OutreachScheduler{
		projects:  projects,
		messages:  messages,
		templates: templates,
		sender:    sender,
		renderer:  renderer,
		clock:     clock,
		pageSize:  pageSize,
		logger:    logger,
	}
}

// Run performs one full pass. It only returns an error when a phase could not
// run at all.
func (s *OutreachScheduler) Run(ctx context.Context) (*RunResult, error) {
	res := &RunResult{}
	s.logger.Info("Starting outreach pass")

	if err := s.DispatchDrafts(ctx, res); err != nil {
		return res, fmt.Errorf("draft dispatch aborted: %w", err)
	}
	if err := s.AdvanceFollowUps(ctx, res); err != nil {
		return res, fmt.Errorf("follow-up advancement aborted: %w", err)
	}

	entry := s.logger.WithFields(res.fields())
	if unitErr := res.Err(); unitErr != nil {
		entry.WithField("unit_errors", unitErr.Error()).Warn("Outreach pass finished with unit errors")
	} else {
		entry.Info("Outreach pass finished")
	}
	return res, nil
}

// DispatchDrafts is Phase A.
func (s *OutreachScheduler) DispatchDrafts(ctx context.Context, res *RunResult) error {
	for offset := 0; ; offset += s.pageSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		page, err := s.projects.ListPage(ctx, offset, s.pageSize)
		if err != nil {
			return fmt.Errorf("failed to load projects page at offset %d: %w", offset, err)
		}
		for _, p := range page {
			res.ProjectsScanned++
			if err := s.dispatchProject(ctx, p, res); err != nil {
				s.logger.WithError(err).WithField("project_id", p.ID).Error("Failed to dispatch drafts for project")
				res.addErr(fmt.Errorf("project %d: %w", p.ID, err))
			}
		}
		if len(page) < s.pageSize {
			return nil
		}
	}
}

func (s *OutreachScheduler) dispatchProject(ctx context.Context, p *project.Project, res *RunResult) error {
	unlock := s.sender.lockProject(p.ID)
	defer unlock()

	drafts, err := s.messages.ListDraftsByProject(ctx, p.ID)
	if err != nil {
		return err
	}
	if len(drafts) == 0 {
		return nil
	}

	sentInInterval, err := s.messages.CountSentInWindow(ctx, p.ID, p.IntervalUnit.PostgresInterval())
	if err != nil {
		return err
	}
	allowed := p.MessageInterval - sentInInterval
	projectLog := s.logger.WithFields(logrus.Fields{
		"project_id":       p.ID,
		"drafts":           len(drafts),
		"sent_in_interval": sentInInterval,
		"allowed":          allowed,
	})
	if allowed <= 0 {
		res.ProjectsThrottled++
		projectLog.Debug("Project quota exhausted for current interval")
		return nil
	}
	if allowed < len(drafts) {
		drafts = drafts[:allowed]
	}
	projectLog.Debug("Dispatching drafts")

	for _, d := range drafts {
		if _, err := s.sender.send(ctx, d); err != nil {
			msgLog := projectLog.WithError(err).WithField("message_id", d.ID)
			if errors.Is(err, ErrDuplicateContact) {
				res.DuplicateBlocked++
				msgLog.Warn("Draft blocked by duplicate-contact guard")
			} else {
				res.DraftsFailed++
				msgLog.Error("Failed to send draft")
			}
			res.addErr(fmt.Errorf("message %d: %w", d.ID, err))
			continue
		}
		res.DraftsSent++
	}
	return nil
}

// AdvanceFollowUps is Phase B.
func (s *OutreachScheduler) AdvanceFollowUps(ctx context.Context, res *RunResult) error {
	now := s.clock.Now()
	due, err := s.messages.ListDueFollowUps(ctx, now)
	if err != nil {
		return fmt.Errorf("failed to load due follow-ups: %w", err)
	}
	res.FollowUpsDue += len(due)

	// The sequence of a project is treated as immutable for the duration of a pass.
	sequences := make(map[int64][]*template.FollowUpTemplate)

	for _, m := range due {
		outcome, err := s.advance(ctx, m, now, sequences)
		metrics.FollowUps.WithLabelValues(string(outcome)).Inc()
		switch outcome {
		case followUpSent:
			res.FollowUpsSent++
		case followUpClosed:
			res.FollowUpsClosed++
		case followUpSkipped:
			res.FollowUpsSkipped++
		case followUpFailed:
			res.FollowUpsFailed++
			if errors.Is(err, ErrDuplicateContact) {
				res.DuplicateBlocked++
			}
			s.logger.WithError(err).WithField("message_id", m.ID).Error("Failed to process follow-up")
			res.addErr(fmt.Errorf("follow-up for message %d: %w", m.ID, err))
		}
	}
	return nil
}

func (s *OutreachScheduler) advance(
	ctx context.Context,
	m *message.Message,
	now time.Time,
	sequences map[int64][]*template.FollowUpTemplate,
) (followUpOutcome, error) {
	if m.ResponseReceived || m.Status == message.StatusResponded || m.Status == message.StatusUnresponsive {
		if _, err := s.sender.update(ctx, m, message.ClearFollowUp()); err != nil {
			return followUpFailed, err
		}
		return followUpClosed, nil
	}
	if !m.ProjectID.Valid {
		return followUpSkipped, nil
	}

	templates, ok := sequences[m.ProjectID.Int64]
	if !ok {
		var err error
		templates, err = s.templates.FindByProjectID(ctx, m.ProjectID.Int64)
		if err != nil {
			return followUpFailed, fmt.Errorf("failed to load follow-up templates: %w", err)
		}
		sequences[m.ProjectID.Int64] = templates
	}
	if len(templates) == 0 {
		return followUpSkipped, nil
	}

	next := m.FollowUpCount
	if next < 0 || next >= len(templates) {
		if _, err := s.sender.update(ctx, m, message.ClearFollowUp()); err != nil {
			return followUpFailed, err
		}
		return followUpClosed, nil
	}
	tpl := templates[next]

	// The step is claimed on the root before the child exists: each step is sent at most once.
	count := next + 1
	patch := message.Patch{FollowUpCount: &count}
	if count < len(templates) {
		scheduled := true
		due := sql.NullTime{Time: now.AddDate(0, 0, templates[count].DelayDays), Valid: true}
		patch.FollowUpScheduled = &scheduled
		patch.FollowUpDate = &due
	} else {
		cleared := message.ClearFollowUp()
		patch.FollowUpScheduled = cleared.FollowUpScheduled
		patch.FollowUpDate = cleared.FollowUpDate
	}
	advanced, err := s.sender.update(ctx, m, patch)
	if err != nil {
		return followUpFailed, err
	}

	followUp := &message.Message{
		UserID:          m.UserID,
		ProjectID:       m.ProjectID,
		ParentMessageID: sql.NullInt64{Int64: m.ThreadID(), Valid: true},
		Recipient:       m.Recipient,
		Subject:         s.renderer.Render(tpl.TemplateSubject, m.Metadata),
		Content:         s.renderer.Render(tpl.TemplateContent, m.Metadata),
		Metadata:        m.Metadata,
	}
	if err := s.sender.createDraft(ctx, followUp); err != nil {
		s.rewind(ctx, advanced, m)
		return followUpFailed, err
	}
	if _, err := s.sender.send(ctx, followUp); err != nil {
		s.sender.discardDraft(ctx, followUp)
		s.rewind(ctx, advanced, m)
		return followUpFailed, err
	}

	s.logger.WithFields(logrus.Fields{
		"message_id":      m.ID,
		"follow_up_id":    followUp.ID,
		"sequence_order":  tpl.SequenceOrder,
		"follow_up_count": count,
		"sequence_done":   count >= len(templates),
	}).Info("Follow-up sent")
	return followUpSent, nil
}

// rewind puts the sequence position of root back to what it was before advance claimed
// the step. If that fails the step is lost rather than sent twice.
func (s *OutreachScheduler) rewind(ctx context.Context, advanced, before *message.Message) {
	count := before.FollowUpCount
	scheduled := before.FollowUpScheduled
	due := before.FollowUpDate
	patch := message.Patch{FollowUpCount: &count, FollowUpScheduled: &scheduled, FollowUpDate: &due}
	if _, err := s.sender.update(ctx, advanced, patch); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"message_id":      before.ID,
			"follow_up_count": before.FollowUpCount,
		}).Error("Failed to rewind follow-up sequence, step skipped")
	}
}
