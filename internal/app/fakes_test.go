package app

import (
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"time"

	"outreach_scheduler/internal/domain/message"
	"outreach_scheduler/internal/domain/outreach"
	"outreach_scheduler/internal/domain/project"
	"outreach_scheduler/internal/domain/template"

	"github.com/sirupsen/logrus"
)

type fixedClock struct {
	now time.Time
}

func (c *fixedClock) Now() time.Time { return c.now }

func testLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

// windowDuration mirrors the Postgres interval literals used by the store.
func windowDuration(window string) time.Duration {
	switch window {
	case "1 day":
		return 24 * time.Hour
	case "1 week":
		return 7 * 24 * time.Hour
	default:
		return 30 * 24 * time.Hour
	}
}

type fakeMessageRepo struct {
	mu        sync.Mutex
	clock     Clock
	rows      map[int64]*message.Message
	nextID    int64
	countErrs map[int64]error
	updateErr error
	faults    map[int64]*updateFault
}

// updateFault fails one Update of a row after skip successful ones.
type updateFault struct {
	skip int
	err  error
}

func newFakeMessageRepo(clock Clock) *fakeMessageRepo {
	return &fakeMessageRepo{clock: clock, rows: map[int64]*message.Message{}, countErrs: map[int64]error{}, faults: map[int64]*updateFault{}}
}

func copyMessage(m *message.Message) *message.Message {
	c := *m
	return &c
}

// seed stores m as is, keeping its timestamps.
func (r *fakeMessageRepo) seed(m *message.Message) *message.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	m.ID = r.nextID
	if m.CreatedAt.IsZero() {
		m.CreatedAt = r.clock.Now().Add(time.Duration(m.ID) * time.Second)
	}
	if m.UpdatedAt.IsZero() {
		m.UpdatedAt = m.CreatedAt
	}
	r.rows[m.ID] = copyMessage(m)
	return m
}

func (r *fakeMessageRepo) failAfter(id int64, skip int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.faults[id] = &updateFault{skip: skip, err: err}
}

func (r *fakeMessageRepo) get(id int64) *message.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.rows[id]; ok {
		return copyMessage(m)
	}
	return nil
}

func (r *fakeMessageRepo) all() []*message.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*message.Message
	for _, m := range r.rows {
		out = append(out, copyMessage(m))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *fakeMessageRepo) Create(_ context.Context, m *message.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	m.ID = r.nextID
	m.CreatedAt = r.clock.Now()
	m.UpdatedAt = m.CreatedAt
	r.rows[m.ID] = copyMessage(m)
	return nil
}

func (r *fakeMessageRepo) GetByID(_ context.Context, id int64) (*message.Message, error) {
	if m := r.get(id); m != nil {
		return m, nil
	}
	return nil, ErrMessageNotFound
}

func (r *fakeMessageRepo) ListByUserID(_ context.Context, userID int64, filter message.ListFilter) ([]*message.Message, error) {
	var out []*message.Message
	for _, m := range r.all() {
		if m.UserID != userID {
			continue
		}
		if filter.Status != "" && m.Status != filter.Status {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

func (r *fakeMessageRepo) ListDraftsByProject(_ context.Context, projectID int64) ([]*message.Message, error) {
	var out []*message.Message
	for _, m := range r.all() {
		if m.ProjectID.Valid && m.ProjectID.Int64 == projectID && m.Status == message.StatusDraft {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *fakeMessageRepo) CountSentInWindow(_ context.Context, projectID int64, window string) (int, error) {
	if err := r.countErrs[projectID]; err != nil {
		return 0, err
	}
	since := r.clock.Now().Add(-windowDuration(window))
	count := 0
	for _, m := range r.all() {
		if m.ProjectID.Valid && m.ProjectID.Int64 == projectID && m.Status == message.StatusSent && m.UpdatedAt.After(since) {
			count++
		}
	}
	return count, nil
}

func (r *fakeMessageRepo) ListDueFollowUps(_ context.Context, asOf time.Time) ([]*message.Message, error) {
	var out []*message.Message
	for _, m := range r.all() {
		if m.FollowUpScheduled && m.FollowUpDate.Valid && !m.FollowUpDate.Time.After(asOf) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *fakeMessageRepo) Update(_ context.Context, id int64, p message.Patch) (*message.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return nil, r.updateErr
	}
	if f, ok := r.faults[id]; ok {
		if f.skip == 0 {
			delete(r.faults, id)
			return nil, f.err
		}
		f.skip--
	}
	m, ok := r.rows[id]
	if !ok {
		return nil, ErrMessageNotFound
	}
	if p.Recipient != nil {
		m.Recipient = *p.Recipient
	}
	if p.Subject != nil {
		m.Subject = *p.Subject
	}
	if p.Content != nil {
		m.Content = *p.Content
	}
	if p.Status != nil {
		m.Status = *p.Status
	}
	if p.ResponseReceived != nil {
		m.ResponseReceived = *p.ResponseReceived
	}
	if p.FollowUpCount != nil {
		m.FollowUpCount = *p.FollowUpCount
	}
	if p.FollowUpScheduled != nil {
		m.FollowUpScheduled = *p.FollowUpScheduled
	}
	if p.FollowUpDate != nil {
		m.FollowUpDate = *p.FollowUpDate
	}
	if p.UnresponsiveFlagged != nil {
		m.UnresponsiveFlagged = *p.UnresponsiveFlagged
	}
	m.UpdatedAt = r.clock.Now()
	return copyMessage(m), nil
}

func (r *fakeMessageRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[id]; !ok {
		return ErrMessageNotFound
	}
	delete(r.rows, id)
	return nil
}

func (r *fakeMessageRepo) Statistics(_ context.Context, userID int64) (*message.Statistics, error) {
	st := &message.Statistics{}
	for _, m := range r.all() {
		if m.UserID != userID {
			continue
		}
		st.Total++
		switch m.Status {
		case message.StatusSent:
			st.Sent++
		case message.StatusResponded:
			st.Responded++
		case message.StatusUnresponsive:
			st.Unresponsive++
		}
	}
	return st, nil
}

type fakeProjectRepo struct {
	mu       sync.Mutex
	rows     map[int64]*project.Project
	nextID   int64
	pageErr  error
	pageSeen []int
}

func newFakeProjectRepo() *fakeProjectRepo {
	return &fakeProjectRepo{rows: map[int64]*project.Project{}}
}

func (r *fakeProjectRepo) add(p *project.Project) *project.Project {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	p.ID = r.nextID
	c := *p
	r.rows[p.ID] = &c
	return p
}

func (r *fakeProjectRepo) Create(_ context.Context, p *project.Project) error {
	r.add(p)
	return nil
}

func (r *fakeProjectRepo) GetByID(_ context.Context, id int64) (*project.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.rows[id]
	if !ok {
		return nil, ErrProjectNotFound
	}
	c := *p
	return &c, nil
}

func (r *fakeProjectRepo) ListByUserID(_ context.Context, userID int64) ([]*project.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*project.Project
	for _, p := range r.rows {
		if p.UserID == userID {
			c := *p
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeProjectRepo) ListPage(_ context.Context, offset, limit int) ([]*project.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pageSeen = append(r.pageSeen, offset)
	if r.pageErr != nil {
		return nil, r.pageErr
	}
	var ids []int64
	for id := range r.rows {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	var out []*project.Project
	for i := offset; i < len(ids) && i < offset+limit; i++ {
		c := *r.rows[ids[i]]
		out = append(out, &c)
	}
	return out, nil
}

func (r *fakeProjectRepo) Update(_ context.Context, id int64, patch project.Patch) (*project.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.rows[id]
	if !ok {
		return nil, ErrProjectNotFound
	}
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.MessageInterval != nil {
		p.MessageInterval = *patch.MessageInterval
	}
	if patch.IntervalUnit != nil {
		p.IntervalUnit = *patch.IntervalUnit
	}
	c := *p
	return &c, nil
}

func (r *fakeProjectRepo) IncrementStats(_ context.Context, id int64, delta project.StatsDelta) (*project.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.rows[id]
	if !ok {
		return nil, ErrProjectNotFound
	}
	p.MessagesSentCount += delta.MessagesSent
	p.ResponsesReceivedCount += delta.ResponsesReceived
	c := *p
	return &c, nil
}

func (r *fakeProjectRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[id]; !ok {
		return ErrProjectNotFound
	}
	delete(r.rows, id)
	return nil
}

type fakeTemplateRepo struct {
	mu     sync.Mutex
	rows   map[int64][]*template.FollowUpTemplate
	nextID int64
	err    error
}

func newFakeTemplateRepo() *fakeTemplateRepo {
	return &fakeTemplateRepo{rows: map[int64][]*template.FollowUpTemplate{}}
}

func (r *fakeTemplateRepo) Create(_ context.Context, t *template.FollowUpTemplate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.rows[t.ProjectID] {
		if existing.SequenceOrder == t.SequenceOrder {
			return errors.New("duplicate sequence order")
		}
	}
	r.nextID++
	t.ID = r.nextID
	c := *t
	r.rows[t.ProjectID] = append(r.rows[t.ProjectID], &c)
	sort.Slice(r.rows[t.ProjectID], func(i, j int) bool {
		return r.rows[t.ProjectID][i].SequenceOrder < r.rows[t.ProjectID][j].SequenceOrder
	})
	return nil
}

func (r *fakeTemplateRepo) GetByID(_ context.Context, id int64) (*template.FollowUpTemplate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, seq := range r.rows {
		for _, t := range seq {
			if t.ID == id {
				c := *t
				return &c, nil
			}
		}
	}
	return nil, ErrTemplateNotFound
}

func (r *fakeTemplateRepo) FindByProjectID(_ context.Context, projectID int64) ([]*template.FollowUpTemplate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	var out []*template.FollowUpTemplate
	for _, t := range r.rows[projectID] {
		c := *t
		out = append(out, &c)
	}
	return out, nil
}

type fakeGuard struct {
	mu      sync.Mutex
	clock   Clock
	window  time.Duration
	entries []outreach.Entry
}

func newFakeGuard(clock Clock) *fakeGuard {
	return &fakeGuard{clock: clock, window: 30 * 24 * time.Hour}
}

func (g *fakeGuard) seed(userID int64, recipient string, threadID int64, at time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.entries = append(g.entries, outreach.Entry{UserID: userID, Recipient: recipient, ThreadID: threadID, OutreachDate: at})
}

func (g *fakeGuard) RecordContact(_ context.Context, c outreach.Contact) error {
	g.seed(c.UserID, c.Recipient, c.ThreadID, g.clock.Now())
	return nil
}

func (g *fakeGuard) WasContactedRecently(_ context.Context, c outreach.Contact) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	since := g.clock.Now().Add(-g.window)
	for _, e := range g.entries {
		if e.UserID == c.UserID && e.Recipient == c.Recipient && e.ThreadID != c.ThreadID && e.OutreachDate.After(since) {
			return true, nil
		}
	}
	return false, nil
}

func (g *fakeGuard) count() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.entries)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []message.StatusChanged
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, evt message.StatusChanged) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return p.err
}

func (p *recordingPublisher) published() []message.StatusChanged {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]message.StatusChanged(nil), p.events...)
}
