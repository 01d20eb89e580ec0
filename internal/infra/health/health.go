package health

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	StatusUp   = "UP"
	StatusDown = "DOWN"

	defaultCheckTimeout = 3 * time.Second
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingerFunc adapts a function to Pinger.
type PingerFunc func(ctx context.Context) error

func (f PingerFunc) Ping(ctx context.Context) error { return f(ctx) }

type Dependency struct {
	Name   string
	Pinger Pinger
}

type DependencyStatus struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type Report struct {
	OverallStatus string             `json:"overallStatus"`
	Dependencies  []DependencyStatus `json:"dependencies"`
	Timestamp     time.Time          `json:"timestamp"`
}

// Checker pings every dependency concurrently.
type Checker struct {
	deps    []Dependency
	timeout time.Duration
}

func NewChecker(deps ...Dependency) *Checker {
	return &Checker{deps: deps, timeout: defaultCheckTimeout}
}

func (c *Checker) Check(ctx context.Context) Report {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	statuses := make([]DependencyStatus, len(c.deps))
	var g errgroup.Group
	for i, dep := range c.deps {
		i, dep := i, dep
		g.Go(func() error {
			st := DependencyStatus{Name: dep.Name, Status: StatusUp}
			if err := dep.Pinger.Ping(ctx); err != nil {
				st.Status = StatusDown
				st.Error = err.Error()
			}
			statuses[i] = st
			return nil
		})
	}
	_ = g.Wait()

	report := Report{OverallStatus: StatusUp, Dependencies: statuses, Timestamp: time.Now().UTC()}
	for _, st := range statuses {
		if st.Status == StatusDown {
			report.OverallStatus = StatusDown
			break
		}
	}
	return report
}
