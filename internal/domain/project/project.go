// internal/domain/project/project.go
package project

import (
	"fmt"
	"time"
)

// IntervalUnit is the length of the rolling quota window.
type IntervalUnit string

const (
	IntervalDay   IntervalUnit = "day"
	IntervalWeek  IntervalUnit = "week"
	IntervalMonth IntervalUnit = "month"
)

const (
	DefaultMessageInterval = 1
	DefaultIntervalUnit    = IntervalDay
)

// Valid reports whether u is one of the supported units.
func (u IntervalUnit) Valid() bool {
	switch u {
	case IntervalDay, IntervalWeek, IntervalMonth:
		return true
	}
	return false
}

// PostgresInterval renders the window as a Postgres interval literal, e.g. "1 week".
func (u IntervalUnit) PostgresInterval() string {
	return fmt.Sprintf("1 %s", u)
}

// Project groups outreach messages under one sending quota.
// Corresponds to the 'projects' table.
type Project struct {
	ID                     int64        `json:"id"`
	UserID                 int64        `json:"userId"`
	Name                   string       `json:"name"`
	MessageInterval        int          `json:"messageInterval"` // max sends per window
	IntervalUnit           IntervalUnit `json:"intervalUnit"`
	MessagesSentCount      int64        `json:"messagesSentCount"`
	ResponsesReceivedCount int64        `json:"responsesReceivedCount"`
	CreatedAt              time.Time    `json:"createdAt"`
	UpdatedAt              time.Time    `json:"updatedAt"`
}

// ResponseRate returns responses/sent as a percentage, 0 when nothing was sent yet.
func (p *Project) ResponseRate() float64 {
	if p.MessagesSentCount <= 0 {
		return 0
	}
	return float64(p.ResponsesReceivedCount) / float64(p.MessagesSentCount) * 100
}

// StatsDelta is applied to the counters in a single statement.
type StatsDelta struct {
	MessagesSent      int64
	ResponsesReceived int64
}

// Patch carries the settings a user may change. Nil fields are left untouched.
type Patch struct {
	Name            *string
	MessageInterval *int
	IntervalUnit    *IntervalUnit
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.Name == nil && p.MessageInterval == nil && p.IntervalUnit == nil
}
