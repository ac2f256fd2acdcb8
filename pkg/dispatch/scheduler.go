package dispatch

import (
	"context"
	"log/slog"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/randalmurphal/eventdispatch/pkg/dispatch/event"
	"github.com/randalmurphal/eventdispatch/pkg/dispatch/history"
)

// dispatch fans evt out to handlers and returns one outcome per handler in
// dispatch order, plus the errors of the handlers that failed.
//
// Handlers run by descending priority. In async mode they are started in
// batches of MaxConcurrentHandlers; a batch finishes completely before the
// next one starts. A failing handler never stops its siblings.
func (p *Publisher) dispatch(ctx context.Context, evt event.Event, handlers []event.Handler, logger *slog.Logger) ([]history.Outcome, []error) {
	ordered := byPriority(handlers)
	outcomes := make([]history.Outcome, len(ordered))
	errs := make([]error, len(ordered))

	run := func(i int) {
		h := ordered[i]
		if f, ok := h.(event.Filter); ok && !f.CanHandle(evt) {
			outcomes[i] = history.Outcome{HandlerName: h.Name(), Success: true, Skipped: true}
			return
		}
		outcomes[i], errs[i] = p.deliver(ctx, evt, h, logger)
	}

	if !p.cfg.AsyncProcessing || len(ordered) < 2 {
		for i := range ordered {
			run(i)
		}
		return outcomes, compact(errs)
	}

	batch := p.cfg.MaxConcurrentHandlers
	for start := 0; start < len(ordered); start += batch {
		end := min(start+batch, len(ordered))

		// Goroutines never return errors, so a failure cannot cancel siblings.
		var g errgroup.Group
		for i := start; i < end; i++ {
			i := i
			g.Go(func() error {
				run(i)
				return nil
			})
		}
		_ = g.Wait()
	}

	return outcomes, compact(errs)
}

// byPriority returns a copy of handlers sorted by descending priority.
// Equal priorities keep registration order.
func byPriority(handlers []event.Handler) []event.Handler {
	ordered := make([]event.Handler, len(handlers))
	copy(ordered, handlers)
	sort.SliceStable(ordered, func(i, j int) bool {
		return priorityOf(ordered[i]) > priorityOf(ordered[j])
	})
	return ordered
}

func priorityOf(h event.Handler) int {
	if p, ok := h.(event.Prioritized); ok {
		return p.Priority()
	}
	return 0
}

func compact(errs []error) []error {
	var out []error
	for _, err := range errs {
		if err != nil {
			out = append(out, err)
		}
	}
	return out
}
