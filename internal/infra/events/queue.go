package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	"outreach_scheduler/internal/domain/message"

	"github.com/sirupsen/logrus"
)

const (
	defaultMaxRetries = 3
	defaultBackoff    = 500 * time.Millisecond
)

// Handler consumes one queued payload. A non-nil error triggers a retry.
type Handler func(payload any) error

// InMemoryQueue is an in-process topic queue. Each subscriber gets every payload
// on its own goroutine, retried with linear backoff.
type InMemoryQueue struct {
	mu         sync.Mutex
	handlers   map[string][]Handler
	maxRetries int
	backoff    time.Duration
	inflight   sync.WaitGroup
	logger     *logrus.Entry
}

func NewInMemoryQueue(logger *logrus.Entry) *InMemoryQueue {
	return &InMemoryQueue{
		handlers:   make(map[string][]Handler),
		maxRetries: defaultMaxRetries,
		backoff:    defaultBackoff,
		logger:     logger,
	}
}

// job wraps a payload with retry info
type job struct {
	topic      string
	payload    any
	retryCount int
}

// Publish hands payload to every subscriber of topic.
func (q *InMemoryQueue) Publish(topic string, payload any) error {
	q.mu.Lock()
	handlers := append([]Handler(nil), q.handlers[topic]...)
	q.mu.Unlock()

	if len(handlers) == 0 {
		return fmt.Errorf("no subscribers for topic %s", topic)
	}

	for _, h := range handlers {
		q.inflight.Add(1)
		go q.process(h, job{topic: topic, payload: payload})
	}
	return nil
}

func (q *InMemoryQueue) process(h Handler, j job) {
	defer q.inflight.Done()
	for {
		err := h(j.payload)
		if err == nil {
			return
		}
		j.retryCount++
		jobLog := q.logger.WithError(err).WithFields(logrus.Fields{"topic": j.topic, "attempt": j.retryCount})
		if j.retryCount > q.maxRetries {
			jobLog.Error("Job permanently failed, dropping")
			return
		}
		jobLog.Warn("Job failed, retrying")
		time.Sleep(time.Duration(j.retryCount) * q.backoff)
	}
}

// Subscribe adds a handler for a topic
func (q *InMemoryQueue) Subscribe(topic string, h Handler) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers[topic] = append(q.handlers[topic], h)
}

// Drain waits for in-flight jobs, or until ctx is done.
func (q *InMemoryQueue) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		q.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// QueuePublisher publishes status changes on the in-memory queue.
type QueuePublisher struct {
	queue *InMemoryQueue
}

func NewQueuePublisher(q *InMemoryQueue) *QueuePublisher {
	return &QueuePublisher{queue: q}
}

func (p *QueuePublisher) Publish(_ context.Context, evt message.StatusChanged) error {
	return p.queue.Publish(message.TopicStatusChanged, evt)
}

// SubscribeAuditLog logs every status change published on q.
func SubscribeAuditLog(q *InMemoryQueue, logger *logrus.Entry) {
	q.Subscribe(message.TopicStatusChanged, func(payload any) error {
		evt, ok := payload.(message.StatusChanged)
		if !ok {
			logger.Warnf("Unexpected payload type %T on %s", payload, message.TopicStatusChanged)
			return nil
		}
		logger.WithFields(logrus.Fields{
			"event_id":   evt.EventID,
			"message_id": evt.MessageID,
			"user_id":    evt.UserID,
			"status":     evt.Status,
		}).Info("Message status changed")
		return nil
	})
}
