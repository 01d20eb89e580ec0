package app

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"outreach_scheduler/internal/domain/message"
	messagemocks "outreach_scheduler/internal/domain/message/mocks"
	"outreach_scheduler/internal/domain/outreach"
	outreachmocks "outreach_scheduler/internal/domain/outreach/mocks"
	"outreach_scheduler/internal/domain/project"
	"outreach_scheduler/internal/domain/template"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

func TestMessageService(t *testing.T) {
	suite.Run(t, new(MessageServiceTestSuite))
}

type MessageServiceTestSuite struct {
	suite.Suite

	ctrl      *gomock.Controller
	guard     *outreachmocks.MockGuard
	publisher *messagemocks.MockPublisher

	clock     *fixedClock
	messages  *fakeMessageRepo
	projects  *fakeProjectRepo
	templates *fakeTemplateRepo
	svc       *MessageService
}

func (s *MessageServiceTestSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.guard = outreachmocks.NewMockGuard(s.ctrl)
	s.publisher = messagemocks.NewMockPublisher(s.ctrl)

	s.clock = &fixedClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
	s.messages = newFakeMessageRepo(s.clock)
	s.projects = newFakeProjectRepo()
	s.templates = newFakeTemplateRepo()
	s.svc = NewMessageService(s.messages, s.projects, s.templates, s.guard, s.publisher, s.clock, testLogger())
}

func (s *MessageServiceTestSuite) seedProject() *project.Project {
	return s.projects.add(&project.Project{UserID: 1, Name: "Launch", MessageInterval: 5, IntervalUnit: project.IntervalDay})
}

func (s *MessageServiceTestSuite) seedDraft(p *project.Project) *message.Message {
	m := &message.Message{UserID: 1, Recipient: "ada@example.com", Subject: "Hi", Content: "Hello", Status: message.StatusDraft}
	if p != nil {
		m.ProjectID = sql.NullInt64{Int64: p.ID, Valid: true}
	}
	return s.messages.seed(m)
}

func (s *MessageServiceTestSuite) expectPublish(status message.Status) {
	s.publisher.EXPECT().
		Publish(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, evt message.StatusChanged) error {
			s.Equal(status, evt.Status)
			s.NotEmpty(evt.EventID)
			s.Equal(s.clock.now, evt.OccurredAt)
			return nil
		})
}

func (s *MessageServiceTestSuite) TestCreate() {
	p := s.seedProject()

	m, err := s.svc.Create(context.Background(), NewMessage{UserID: 1, ProjectID: p.ID, Recipient: " ada@example.com ", Subject: "Hi"})
	s.Require().NoError(err)
	s.Equal(message.StatusDraft, m.Status)
	s.Equal("ada@example.com", m.Recipient)
	s.Equal(p.ID, m.ProjectID.Int64)

	_, err = s.svc.Create(context.Background(), NewMessage{UserID: 1, Recipient: "  "})
	s.ErrorIs(err, ErrInvalidInput)

	_, err = s.svc.Create(context.Background(), NewMessage{UserID: 2, ProjectID: p.ID, Recipient: "x@example.com"})
	s.ErrorIs(err, ErrProjectNotFound)
}

func (s *MessageServiceTestSuite) TestSendSchedulesFirstFollowUp() {
	p := s.seedProject()
	s.Require().NoError(s.templates.Create(context.Background(), &template.FollowUpTemplate{ProjectID: p.ID, SequenceOrder: 1, DelayDays: 4}))
	s.Require().NoError(s.templates.Create(context.Background(), &template.FollowUpTemplate{ProjectID: p.ID, SequenceOrder: 2, DelayDays: 7}))
	d := s.seedDraft(p)

	contact := outreach.Contact{UserID: 1, Recipient: "ada@example.com", ThreadID: d.ID}
	gomock.InOrder(
		s.guard.EXPECT().WasContactedRecently(gomock.Any(), contact).Return(false, nil),
		s.guard.EXPECT().RecordContact(gomock.Any(), contact).Return(nil),
	)
	s.expectPublish(message.StatusSent)

	sent, err := s.svc.Send(context.Background(), d.ID)
	s.Require().NoError(err)
	s.Equal(message.StatusSent, sent.Status)
	s.True(sent.FollowUpScheduled)
	s.Equal(s.clock.now.AddDate(0, 0, 4), sent.FollowUpDate.Time)
	s.Equal(0, sent.FollowUpCount)

	stored, err := s.projects.GetByID(context.Background(), p.ID)
	s.Require().NoError(err)
	s.EqualValues(1, stored.MessagesSentCount)
}

func (s *MessageServiceTestSuite) TestSendWithoutTemplatesLeavesFollowUpUnscheduled() {
	d := s.seedDraft(s.seedProject())

	s.guard.EXPECT().WasContactedRecently(gomock.Any(), gomock.Any()).Return(false, nil)
	s.guard.EXPECT().RecordContact(gomock.Any(), gomock.Any()).Return(nil)
	s.expectPublish(message.StatusSent)

	sent, err := s.svc.Send(context.Background(), d.ID)
	s.Require().NoError(err)
	s.False(sent.FollowUpScheduled)
	s.False(sent.FollowUpDate.Valid)
}

func (s *MessageServiceTestSuite) TestSendRejectsNonDraftWithoutConsultingGuard() {
	d := s.seedDraft(nil)
	sent := message.StatusSent
	_, err := s.messages.Update(context.Background(), d.ID, message.Patch{Status: &sent})
	s.Require().NoError(err)
	before := s.messages.get(d.ID)

	_, err = s.svc.Send(context.Background(), d.ID)
	s.ErrorIs(err, ErrInvalidState)
	var stateErr *InvalidStateError
	s.Require().True(errors.As(err, &stateErr))
	s.Equal(message.StatusSent, stateErr.Status)
	s.Equal(before, s.messages.get(d.ID))
}

func (s *MessageServiceTestSuite) TestSendBlockedByRecentContact() {
	p := s.seedProject()
	d := s.seedDraft(p)

	s.guard.EXPECT().WasContactedRecently(gomock.Any(), gomock.Any()).Return(true, nil)

	_, err := s.svc.Send(context.Background(), d.ID)
	s.ErrorIs(err, ErrDuplicateContact)
	s.Equal(message.StatusDraft, s.messages.get(d.ID).Status)

	stored, _ := s.projects.GetByID(context.Background(), p.ID)
	s.Zero(stored.MessagesSentCount)
}

func (s *MessageServiceTestSuite) TestSendRejectedWhenProjectQuotaIsUsed() {
	p := s.seedProject()
	for i := 0; i < p.MessageInterval; i++ {
		s.messages.seed(&message.Message{
			UserID:    1,
			ProjectID: sql.NullInt64{Int64: p.ID, Valid: true},
			Recipient: "earlier@example.com",
			Status:    message.StatusSent,
			CreatedAt: s.clock.now.Add(-time.Hour),
		})
	}
	d := s.seedDraft(p)

	_, err := s.svc.Send(context.Background(), d.ID)
	s.ErrorIs(err, ErrQuotaExceeded)
	s.Equal(message.StatusDraft, s.messages.get(d.ID).Status)

	stored, _ := s.projects.GetByID(context.Background(), p.ID)
	s.Zero(stored.MessagesSentCount)
}

func (s *MessageServiceTestSuite) TestSendCountsOnlySendsInsideTheWindow() {
	p := s.seedProject()
	for i := 0; i < p.MessageInterval; i++ {
		s.messages.seed(&message.Message{
			UserID:    1,
			ProjectID: sql.NullInt64{Int64: p.ID, Valid: true},
			Recipient: "earlier@example.com",
			Status:    message.StatusSent,
			CreatedAt: s.clock.now.AddDate(0, 0, -2),
		})
	}
	d := s.seedDraft(p)

	s.guard.EXPECT().WasContactedRecently(gomock.Any(), gomock.Any()).Return(false, nil)
	s.guard.EXPECT().RecordContact(gomock.Any(), gomock.Any()).Return(nil)
	s.expectPublish(message.StatusSent)

	sent, err := s.svc.Send(context.Background(), d.ID)
	s.Require().NoError(err)
	s.Equal(message.StatusSent, sent.Status)
}

func (s *MessageServiceTestSuite) TestSendGuardFailureLeavesDraft() {
	d := s.seedDraft(nil)
	s.guard.EXPECT().WasContactedRecently(gomock.Any(), gomock.Any()).Return(false, errors.New("db down"))

	_, err := s.svc.Send(context.Background(), d.ID)
	s.Error(err)
	s.NotErrorIs(err, ErrDuplicateContact)
	s.Equal(message.StatusDraft, s.messages.get(d.ID).Status)
}

func (s *MessageServiceTestSuite) TestSendFollowUpDoesNotScheduleAnotherSequence() {
	p := s.seedProject()
	s.Require().NoError(s.templates.Create(context.Background(), &template.FollowUpTemplate{ProjectID: p.ID, SequenceOrder: 1, DelayDays: 2}))
	child := s.messages.seed(&message.Message{
		UserID:          1,
		ProjectID:       sql.NullInt64{Int64: p.ID, Valid: true},
		ParentMessageID: sql.NullInt64{Int64: 99, Valid: true},
		Recipient:       "ada@example.com",
		Status:          message.StatusDraft,
	})

	s.guard.EXPECT().WasContactedRecently(gomock.Any(), outreach.Contact{UserID: 1, Recipient: "ada@example.com", ThreadID: 99}).Return(false, nil)
	s.guard.EXPECT().RecordContact(gomock.Any(), gomock.Any()).Return(nil)
	s.expectPublish(message.StatusSent)

	sent, err := s.svc.Send(context.Background(), child.ID)
	s.Require().NoError(err)
	s.False(sent.FollowUpScheduled)
}

func (s *MessageServiceTestSuite) TestPublishFailureDoesNotFailSend() {
	d := s.seedDraft(nil)
	s.guard.EXPECT().WasContactedRecently(gomock.Any(), gomock.Any()).Return(false, nil)
	s.guard.EXPECT().RecordContact(gomock.Any(), gomock.Any()).Return(nil)
	s.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(errors.New("broker unavailable"))

	sent, err := s.svc.Send(context.Background(), d.ID)
	s.Require().NoError(err)
	s.Equal(message.StatusSent, sent.Status)
}

func (s *MessageServiceTestSuite) TestMarkRespondedIsIdempotent() {
	p := s.seedProject()
	m := s.messages.seed(&message.Message{
		UserID:            1,
		ProjectID:         sql.NullInt64{Int64: p.ID, Valid: true},
		Recipient:         "ada@example.com",
		Status:            message.StatusSent,
		FollowUpScheduled: true,
		FollowUpDate:      sql.NullTime{Time: s.clock.now.Add(time.Hour), Valid: true},
	})
	s.expectPublish(message.StatusResponded)

	first, err := s.svc.MarkResponded(context.Background(), m.ID)
	s.Require().NoError(err)
	s.Equal(message.StatusResponded, first.Status)
	s.True(first.ResponseReceived)
	s.False(first.FollowUpScheduled)
	s.False(first.FollowUpDate.Valid)

	second, err := s.svc.MarkResponded(context.Background(), m.ID)
	s.Require().NoError(err)
	s.Equal(first, second)

	stored, _ := s.projects.GetByID(context.Background(), p.ID)
	s.EqualValues(1, stored.ResponsesReceivedCount)
}

func (s *MessageServiceTestSuite) TestMarkRespondedOnFollowUpDoesNotCountResponse() {
	p := s.seedProject()
	child := s.messages.seed(&message.Message{
		UserID:          1,
		ProjectID:       sql.NullInt64{Int64: p.ID, Valid: true},
		ParentMessageID: sql.NullInt64{Int64: 42, Valid: true},
		Recipient:       "ada@example.com",
		Status:          message.StatusSent,
	})
	s.expectPublish(message.StatusResponded)

	_, err := s.svc.MarkResponded(context.Background(), child.ID)
	s.Require().NoError(err)

	stored, _ := s.projects.GetByID(context.Background(), p.ID)
	s.Zero(stored.ResponsesReceivedCount)
}

func (s *MessageServiceTestSuite) TestFlagUnresponsiveAndReactivate() {
	m := s.messages.seed(&message.Message{
		UserID:            1,
		Recipient:         "ada@example.com",
		Status:            message.StatusSent,
		FollowUpCount:     2,
		FollowUpScheduled: true,
		FollowUpDate:      sql.NullTime{Time: s.clock.now, Valid: true},
	})

	s.expectPublish(message.StatusUnresponsive)
	flagged, err := s.svc.FlagUnresponsive(context.Background(), m.ID)
	s.Require().NoError(err)
	s.Equal(message.StatusUnresponsive, flagged.Status)
	s.True(flagged.UnresponsiveFlagged)
	s.False(flagged.FollowUpScheduled)

	s.expectPublish(message.StatusSent)
	reactivated, err := s.svc.Reactivate(context.Background(), m.ID)
	s.Require().NoError(err)
	s.Equal(message.StatusSent, reactivated.Status)
	s.False(reactivated.UnresponsiveFlagged)
	s.Zero(reactivated.FollowUpCount)
}

func (s *MessageServiceTestSuite) TestReactivateRequiresUnresponsiveFlag() {
	m := s.messages.seed(&message.Message{UserID: 1, Recipient: "ada@example.com", Status: message.StatusSent, FollowUpCount: 1})
	before := s.messages.get(m.ID)

	_, err := s.svc.Reactivate(context.Background(), m.ID)
	s.ErrorIs(err, ErrInvalidState)
	s.Equal(before, s.messages.get(m.ID))
}

func (s *MessageServiceTestSuite) TestReactivateAfterReplyIsRejected() {
	m := s.messages.seed(&message.Message{UserID: 1, Recipient: "ada@example.com", Status: message.StatusSent})

	s.expectPublish(message.StatusUnresponsive)
	_, err := s.svc.FlagUnresponsive(context.Background(), m.ID)
	s.Require().NoError(err)

	s.expectPublish(message.StatusResponded)
	responded, err := s.svc.MarkResponded(context.Background(), m.ID)
	s.Require().NoError(err)
	s.False(responded.UnresponsiveFlagged)

	_, err = s.svc.Reactivate(context.Background(), m.ID)
	s.ErrorIs(err, ErrInvalidState)

	stored := s.messages.get(m.ID)
	s.Equal(message.StatusResponded, stored.Status)
	s.True(stored.ResponseReceived)
	s.False(stored.UnresponsiveFlagged)
}

func (s *MessageServiceTestSuite) TestScheduleFollowUp() {
	m := s.messages.seed(&message.Message{UserID: 1, Recipient: "ada@example.com", Status: message.StatusSent})

	scheduled, err := s.svc.ScheduleFollowUp(context.Background(), m.ID, 3)
	s.Require().NoError(err)
	s.True(scheduled.FollowUpScheduled)
	s.Equal(s.clock.now.AddDate(0, 0, 3), scheduled.FollowUpDate.Time)

	_, err = s.svc.ScheduleFollowUp(context.Background(), m.ID, -1)
	s.ErrorIs(err, ErrInvalidInput)

	d := s.seedDraft(nil)
	_, err = s.svc.ScheduleFollowUp(context.Background(), d.ID, 3)
	s.ErrorIs(err, ErrInvalidState)
}

func (s *MessageServiceTestSuite) TestUpdateWithoutStatusChangeDoesNotPublish() {
	d := s.seedDraft(nil)
	subject := "Updated"

	updated, err := s.svc.Update(context.Background(), d.ID, message.Patch{Subject: &subject})
	s.Require().NoError(err)
	s.Equal("Updated", updated.Subject)

	bogus := message.Status("archived")
	_, err = s.svc.Update(context.Background(), d.ID, message.Patch{Status: &bogus})
	s.ErrorIs(err, ErrInvalidInput)
}

func (s *MessageServiceTestSuite) TestDelete() {
	d := s.seedDraft(nil)
	s.Require().NoError(s.svc.Delete(context.Background(), d.ID))
	s.Nil(s.messages.get(d.ID))
	s.ErrorIs(s.svc.Delete(context.Background(), d.ID), ErrMessageNotFound)
}

func TestListByUserRejectsUnknownStatus(t *testing.T) {
	clock := &fixedClock{now: time.Now().UTC()}
	svc := NewMessageService(newFakeMessageRepo(clock), newFakeProjectRepo(), newFakeTemplateRepo(), newFakeGuard(clock), nil, clock, testLogger())

	_, err := svc.ListByUser(context.Background(), 1, message.ListFilter{Status: "bogus"})
	require.ErrorIs(t, err, ErrInvalidInput)
}
