package watcher

import (
	"context"
	"time"

	"github.com/ritzau/trust-graph/pkg/logging"
)

// Debouncer collapses bursts of change events into one. Editors often write
// a file in several steps and only the final content is worth importing.
type Debouncer struct {
	input       <-chan ChangeEvent
	output      chan ChangeEvent
	quietPeriod time.Duration
	maxWait     time.Duration
}

// NewDebouncer creates a new event debouncer. An event is emitted once no
// new event arrived for quietPeriod, or at the latest maxWait after the first
// event of a burst.
func NewDebouncer(input <-chan ChangeEvent, quietPeriod, maxWait time.Duration) *Debouncer {
	return &Debouncer{
		input:       input,
		output:      make(chan ChangeEvent, 10),
		quietPeriod: quietPeriod,
		maxWait:     maxWait,
	}
}

// Start begins processing events with debouncing
func (d *Debouncer) Start(ctx context.Context) {
	go d.run(ctx)
}

func (d *Debouncer) run(ctx context.Context) {
	defer close(d.output)

	var (
		quiet    <-chan time.Time
		deadline <-chan time.Time
		pending  *ChangeEvent
		count    int
	)

	flush := func() {
		if pending == nil {
			return
		}
		logging.Debug("flushing file events", "count", count, "type", pending.Type.String())
		select {
		case d.output <- *pending:
		case <-ctx.Done():
		}
		pending = nil
		count = 0
		quiet = nil
		deadline = nil
	}

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-d.input:
			if !ok {
				flush()
				return
			}

			// The latest event wins: a write after a remove means the file is back.
			pending = &event
			count++
			quiet = time.After(d.quietPeriod)
			if deadline == nil {
				deadline = time.After(d.maxWait)
			}

		case <-quiet:
			flush()

		case <-deadline:
			flush()
		}
	}
}

// Output returns the channel of debounced events
func (d *Debouncer) Output() <-chan ChangeEvent {
	return d.output
}
