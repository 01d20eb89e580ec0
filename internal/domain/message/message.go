// internal/domain/message/message.go
package message

import (
	"database/sql"
	"encoding/json"
	"time"
)

// Status is the state of a message in the outreach state machine.
type Status string

const (
	StatusDraft        Status = "draft"
	StatusSent         Status = "sent"
	StatusResponded    Status = "responded"
	StatusUnresponsive Status = "unresponsive"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusSent, StatusResponded, StatusUnresponsive:
		return true
	}
	return false
}

// Metadata holds placeholder values used when rendering follow-up templates.
type Metadata map[string]string

// Message is a single outreach message.
// Corresponds to the 'messages' table.
type Message struct {
	ID                  int64         `json:"id"`
	UserID              int64         `json:"userId"`
	ProjectID           sql.NullInt64 `json:"projectId"`
	ParentMessageID     sql.NullInt64 `json:"parentMessageId"` // set on follow-ups
	Recipient           string        `json:"recipient"`
	Subject             string        `json:"subject"`
	Content             string        `json:"content"`
	Metadata            Metadata      `json:"metadata"`
	Status              Status        `json:"status"`
	ResponseReceived    bool          `json:"responseReceived"`
	FollowUpCount       int           `json:"followUpCount"`
	FollowUpScheduled   bool          `json:"followUpScheduled"`
	FollowUpDate        sql.NullTime  `json:"followUpDate"`
	UnresponsiveFlagged bool          `json:"unresponsiveFlagged"`
	CreatedAt           time.Time     `json:"createdAt"`
	UpdatedAt           time.Time     `json:"updatedAt"`
}

// messageJSON renders the nullable columns as plain values or null.
type messageJSON struct {
	*messageAlias
	ProjectID       *int64     `json:"projectId"`
	ParentMessageID *int64     `json:"parentMessageId"`
	FollowUpDate    *time.Time `json:"followUpDate"`
}

type messageAlias Message

func (m Message) MarshalJSON() ([]byte, error) {
	alias := messageAlias(m)
	out := messageJSON{messageAlias: &alias}
	if m.ProjectID.Valid {
		out.ProjectID = &m.ProjectID.Int64
	}
	if m.ParentMessageID.Valid {
		out.ParentMessageID = &m.ParentMessageID.Int64
	}
	if m.FollowUpDate.Valid {
		out.FollowUpDate = &m.FollowUpDate.Time
	}
	return json.Marshal(out)
}

func (m *Message) UnmarshalJSON(data []byte) error {
	in := messageJSON{messageAlias: (*messageAlias)(m)}
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	m.ProjectID = sql.NullInt64{}
	if in.ProjectID != nil {
		m.ProjectID = sql.NullInt64{Int64: *in.ProjectID, Valid: true}
	}
	m.ParentMessageID = sql.NullInt64{}
	if in.ParentMessageID != nil {
		m.ParentMessageID = sql.NullInt64{Int64: *in.ParentMessageID, Valid: true}
	}
	m.FollowUpDate = sql.NullTime{}
	if in.FollowUpDate != nil {
		m.FollowUpDate = sql.NullTime{Time: *in.FollowUpDate, Valid: true}
	}
	return nil
}

// ThreadID is the id of the message that opened this outreach thread.
func (m *Message) ThreadID() int64 {
	if m.ParentMessageID.Valid {
		return m.ParentMessageID.Int64
	}
	return m.ID
}

// IsFollowUp reports whether the message was created by the follow-up sequence.
func (m *Message) IsFollowUp() bool {
	return m.ParentMessageID.Valid
}

// Patch is a field-level update. Nil fields are left untouched.
// A non-nil FollowUpDate with Valid=false clears the column.
type Patch struct {
	Recipient           *string
	Subject             *string
	Content             *string
	Status              *Status
	ResponseReceived    *bool
	FollowUpCount       *int
	FollowUpScheduled   *bool
	FollowUpDate        *sql.NullTime
	UnresponsiveFlagged *bool
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.Recipient == nil && p.Subject == nil && p.Content == nil && p.Status == nil &&
		p.ResponseReceived == nil && p.FollowUpCount == nil && p.FollowUpScheduled == nil &&
		p.FollowUpDate == nil && p.UnresponsiveFlagged == nil
}

// ClearFollowUp returns a patch that cancels any scheduled follow-up.
func ClearFollowUp() Patch {
	scheduled := false
	return Patch{
		FollowUpScheduled: &scheduled,
		FollowUpDate:      &sql.NullTime{},
	}
}

// ListFilter narrows ListByUserID. Zero values mean "any".
type ListFilter struct {
	Status    Status
	ProjectID int64
	Limit     int
	Offset    int
}

// Statistics aggregates a user's messages.
type Statistics struct {
	Total              int     `json:"total"`
	Sent               int     `json:"sent"`
	Responded          int     `json:"responded"`
	Unresponsive       int     `json:"unresponsive"`
	FollowUpsScheduled int     `json:"followUpsScheduled"`
	FollowUpsSent      int     `json:"followUpsSent"`
	ResponseRate       float64 `json:"responseRate"`
}
