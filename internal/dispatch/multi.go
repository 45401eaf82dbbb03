package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Multi sends every reminder to all sinks concurrently. A failing sink does
// not stop the others; their errors are joined in sink order, each prefixed
// with the sink name.
type Multi struct {
	sinks []Dispatcher
}

// NewMulti combines sinks, ignoring nils.
func NewMulti(sinks ...Dispatcher) *Multi {
	kept := make([]Dispatcher, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			kept = append(kept, s)
		}
	}
	return &Multi{sinks: kept}
}

func (m *Multi) Name() string { return "multi" }

// Len reports how many sinks are configured.
func (m *Multi) Len() int { return len(m.sinks) }

func (m *Multi) Dispatch(ctx context.Context, r Reminder) error {
	errs := make([]error, len(m.sinks))
	var wg sync.WaitGroup
	for i, sink := range m.sinks {
		wg.Go(func() {
			if err := sink.Dispatch(ctx, r); err != nil {
				errs[i] = fmt.Errorf("%s: %w", sink.Name(), err)
			}
		})
	}
	wg.Wait()
	return errors.Join(errs...)
}
