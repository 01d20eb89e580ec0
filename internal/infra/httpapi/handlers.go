package httpapi

import (
	"context"
	"net/http"
	"strconv"

	"outreach_scheduler/internal/app"
	"outreach_scheduler/internal/domain/message"
	"outreach_scheduler/internal/domain/project"
	"outreach_scheduler/internal/domain/template"
	"outreach_scheduler/internal/infra/health"

	"github.com/sirupsen/logrus"
)

type MessageService interface {
	Create(ctx context.Context, in app.NewMessage) (*message.Message, error)
	Send(ctx context.Context, id int64) (*message.Message, error)
	Reactivate(ctx context.Context, id int64) (*message.Message, error)
	FlagUnresponsive(ctx context.Context, id int64) (*message.Message, error)
	ScheduleFollowUp(ctx context.Context, id int64, days int) (*message.Message, error)
	Delete(ctx context.Context, id int64) error
	ListByUser(ctx context.Context, userID int64, filter message.ListFilter) ([]*message.Message, error)
	Statistics(ctx context.Context, userID int64) (*message.Statistics, error)
}

type ProjectService interface {
	Create(ctx context.Context, in app.NewProject) (*project.Project, error)
	Stats(ctx context.Context, id int64) (*app.ProjectStats, error)
	CreateTemplate(ctx context.Context, t *template.FollowUpTemplate) error
}

type ReplyHandler interface {
	HandleReply(ctx context.Context, payload app.ReplyPayload) app.ReplyOutcome
}

type HealthChecker interface {
	Check(ctx context.Context) health.Report
}

type Previewer interface {
	Spin(text string) string
}

// Handlers holds the HTTP endpoints of the service.
type Handlers struct {
	messages MessageService
	projects ProjectService
	replies  ReplyHandler
	health   HealthChecker
	preview  Previewer
	logger   *logrus.Entry
}

func NewHandlers(
	messages MessageService,
	projects ProjectService,
	replies ReplyHandler,
	health HealthChecker,
	preview Previewer,
	logger *logrus.Entry,
) *Handlers {
	return &Handlers{
		messages: messages,
		projects: projects,
		replies:  replies,
		health:   health,
		preview:  preview,
		logger:   logger,
	}
}

// HandleReplyWebhook always acknowledges a decodable payload; the outcome is informational.
func (h *Handlers) HandleReplyWebhook(w http.ResponseWriter, r *http.Request) {
	var payload app.ReplyPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid body"})
		return
	}
	outcome := h.replies.HandleReply(r.Context(), payload)
	writeJSON(w, http.StatusAccepted, map[string]string{"outcome": string(outcome)})
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	report := h.health.Check(r.Context())
	status := http.StatusOK
	if report.OverallStatus != health.StatusUp {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, report)
}

func (h *Handlers) SpintaxPreview(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Text string `json:"text"`
	}
	if err := decodeJSON(r, &body); err != nil || body.Text == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "text is required"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"preview": h.preview.Spin(body.Text)})
}

func (h *Handlers) CreateProject(w http.ResponseWriter, r *http.Request) {
	var body struct {
		UserID          int64                `json:"userId"`
		Name            string               `json:"name"`
		MessageInterval int                  `json:"messageInterval"`
		IntervalUnit    project.IntervalUnit `json:"intervalUnit"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid body"})
		return
	}
	p, err := h.projects.Create(r.Context(), app.NewProject{
		UserID:          body.UserID,
		Name:            body.Name,
		MessageInterval: body.MessageInterval,
		IntervalUnit:    body.IntervalUnit,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *Handlers) ProjectStats(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid project id"})
		return
	}
	stats, err := h.projects.Stats(r.Context(), id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handlers) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid project id"})
		return
	}
	var body struct {
		SequenceOrder   int    `json:"sequenceOrder"`
		DelayDays       *int   `json:"delayDays"`
		TemplateSubject string `json:"templateSubject"`
		TemplateContent string `json:"templateContent"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid body"})
		return
	}
	t := &template.FollowUpTemplate{
		ProjectID:       id,
		SequenceOrder:   body.SequenceOrder,
		DelayDays:       template.DefaultDelayDays,
		TemplateSubject: body.TemplateSubject,
		TemplateContent: body.TemplateContent,
	}
	if body.DelayDays != nil {
		t.DelayDays = *body.DelayDays
	}
	if err := h.projects.CreateTemplate(r.Context(), t); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (h *Handlers) CreateMessage(w http.ResponseWriter, r *http.Request) {
	var body struct {
		UserID    int64            `json:"userId"`
		ProjectID int64            `json:"projectId"`
		Recipient string           `json:"recipient"`
		Subject   string           `json:"subject"`
		Content   string           `json:"content"`
		Metadata  message.Metadata `json:"metadata"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid body"})
		return
	}
	m, err := h.messages.Create(r.Context(), app.NewMessage{
		UserID:    body.UserID,
		ProjectID: body.ProjectID,
		Recipient: body.Recipient,
		Subject:   body.Subject,
		Content:   body.Content,
		Metadata:  body.Metadata,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

func (h *Handlers) UserMessages(w http.ResponseWriter, r *http.Request) {
	userID, ok := idParam(r, "userId")
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid user id"})
		return
	}
	q := r.URL.Query()
	filter := message.ListFilter{Status: message.Status(q.Get("status"))}
	for name, dst := range map[string]*int{"limit": &filter.Limit, "offset": &filter.Offset} {
		if raw := q.Get(name); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 0 {
				writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid " + name})
				return
			}
			*dst = n
		}
	}
	if raw := q.Get("projectId"); raw != "" {
		pid, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || pid <= 0 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid projectId"})
			return
		}
		filter.ProjectID = pid
	}

	list, err := h.messages.ListByUser(r.Context(), userID, filter)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if list == nil {
		list = []*message.Message{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handlers) UserMessageStats(w http.ResponseWriter, r *http.Request) {
	userID, ok := idParam(r, "userId")
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid user id"})
		return
	}
	st, err := h.messages.Statistics(r.Context(), userID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *Handlers) SendMessage(w http.ResponseWriter, r *http.Request) {
	h.messageAction(w, r, h.messages.Send)
}

func (h *Handlers) ReactivateMessage(w http.ResponseWriter, r *http.Request) {
	h.messageAction(w, r, h.messages.Reactivate)
}

func (h *Handlers) FlagUnresponsive(w http.ResponseWriter, r *http.Request) {
	h.messageAction(w, r, h.messages.FlagUnresponsive)
}

func (h *Handlers) ScheduleFollowUp(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Days *int `json:"days"`
	}
	if err := decodeJSON(r, &body); err != nil || body.Days == nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "days is required"})
		return
	}
	h.messageAction(w, r, func(ctx context.Context, id int64) (*message.Message, error) {
		return h.messages.ScheduleFollowUp(ctx, id, *body.Days)
	})
}

func (h *Handlers) DeleteMessage(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid message id"})
		return
	}
	if err := h.messages.Delete(r.Context(), id); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) messageAction(w http.ResponseWriter, r *http.Request, action func(context.Context, int64) (*message.Message, error)) {
	id, ok := idParam(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid message id"})
		return
	}
	m, err := action(r.Context(), id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}
