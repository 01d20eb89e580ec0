package events

import (
	"context"
	"fmt"

	"outreach_scheduler/internal/domain/message"
	"outreach_scheduler/internal/infra/metrics"

	"github.com/hashicorp/go-multierror"
)

// Backend names a publisher for metrics and errors.
type Backend struct {
	Name      string
	Publisher message.Publisher
}

// Multi fans an event out to every backend. A failing backend does not stop the others.
type Multi struct {
	backends []Backend
}

func NewMulti(backends ...Backend) *Multi {
	return &Multi{backends: backends}
}

func (m *Multi) Publish(ctx context.Context, evt message.StatusChanged) error {
	var errs *multierror.Error
	for _, b := range m.backends {
		if err := b.Publisher.Publish(ctx, evt); err != nil {
			metrics.EventsPublished.WithLabelValues(b.Name, metrics.PublishFailed).Inc()
			errs = multierror.Append(errs, fmt.Errorf("%s: %w", b.Name, err))
			continue
		}
		metrics.EventsPublished.WithLabelValues(b.Name, metrics.PublishOK).Inc()
	}
	return errs.ErrorOrNil()
}
