// Package dispatch turns task-assignment events into insertTask calls.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"onfleet-workers-go/internal/apperr"
	"onfleet-workers-go/internal/logx"
)

// Outcomes reported by Processor.
const (
	OutcomeInserted = "inserted"
	OutcomeDropped  = "dropped"
	OutcomeRetry    = "retry"
)

// Processor assigns tasks to workers through the workers API.
type Processor struct {
	inserter TaskInserter
	logger   logx.Logger
	outcomes outcomeCounter
	timeout  time.Duration
}

type outcomeCounter interface {
	Inc(outcome string)
}

type vecCounter struct{ v *prometheus.CounterVec }

func (c vecCounter) Inc(outcome string) { c.v.WithLabelValues(outcome).Inc() }

type nopCounter struct{}

func (nopCounter) Inc(string) {}

// NewProcessor builds a Processor. outcomes may be nil.
func NewProcessor(inserter TaskInserter, logger logx.Logger, outcomes *prometheus.CounterVec, timeout time.Duration) *Processor {
	if logger == nil {
		logger = logx.Nop()
	}
	var oc outcomeCounter = nopCounter{}
	if outcomes != nil {
		oc = vecCounter{v: outcomes}
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Processor{inserter: inserter, logger: logger, outcomes: oc, timeout: timeout}
}

// Handle inserts the event's tasks. Errors that retrying cannot fix are
// reported with Permanent(err) == true.
func (p *Processor) Handle(ctx context.Context, e Event) error {
	workerID := strings.TrimSpace(e.WorkerID)
	tasks := make([]string, 0, len(e.TaskIDs))
	for _, t := range e.TaskIDs {
		if t = strings.TrimSpace(t); t != "" {
			tasks = append(tasks, t)
		}
	}
	if workerID == "" || len(tasks) == 0 {
		p.outcomes.Inc(OutcomeDropped)
		return fmt.Errorf("%w: event needs a worker id and at least one task", apperr.Invalid)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	w, err := p.inserter.InsertTask(ctx, workerID, tasks)
	if err != nil {
		fields := []logx.Field{
			logx.String("worker_id", workerID),
			logx.Strings("task_ids", tasks),
			logx.Err(err),
		}
		if Permanent(err) {
			p.outcomes.Inc(OutcomeDropped)
			p.logger.Warn("dispatch dropped", fields...)
		} else {
			p.outcomes.Inc(OutcomeRetry)
			p.logger.Error("dispatch failed", fields...)
		}
		return fmt.Errorf("insert tasks for worker %s: %w", workerID, err)
	}

	p.outcomes.Inc(OutcomeInserted)
	p.logger.Info("tasks dispatched",
		logx.String("worker_id", workerID),
		logx.Strings("task_ids", tasks),
		logx.Int("queue_len", len(w.Tasks)),
		logx.Duration("lag", lag(e.CreatedAt)),
	)
	return nil
}

// Permanent reports whether err will not go away on redelivery.
func Permanent(err error) bool {
	return errors.Is(err, apperr.Invalid) ||
		errors.Is(err, apperr.NotFound) ||
		errors.Is(err, apperr.Conflict) ||
		errors.Is(err, apperr.Unauthorized)
}

func lag(created time.Time) time.Duration {
	if created.IsZero() {
		return 0
	}
	return time.Since(created)
}
