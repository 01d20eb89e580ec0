// internal/domain/template/template.go
package template

import "time"

// DefaultDelayDays is used when a template is created without an explicit delay.
const DefaultDelayDays = 3

// FollowUpTemplate is one step of a project's follow-up sequence.
// TemplateSubject and TemplateContent may contain spintax and {{placeholders}}.
type FollowUpTemplate struct {
	ID              int64     `json:"id"`
	ProjectID       int64     `json:"projectId"`
	SequenceOrder   int       `json:"sequenceOrder"` // 1-based
	DelayDays       int       `json:"delayDays"`     // gap from the previous step
	TemplateSubject string    `json:"templateSubject"`
	TemplateContent string    `json:"templateContent"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}
