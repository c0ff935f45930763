package engine

import (
	"context"
	"errors"

	"github.com/marmos91/rankly/pkg/resource"
	"github.com/marmos91/rankly/pkg/scheduler"
	"github.com/marmos91/rankly/pkg/visibility"
)

// Widget is one mounted target showing one resource.
type Widget struct {
	engine *Engine
	target string
	key    string
}

func (w *Widget) Target() string { return w.target }
func (w *Widget) Key() string    { return w.key }

// State returns what the widget should render now.
func (w *Widget) State() State { return w.engine.StateOf(w.key) }

// Handle reads the resource through the cache.
func (w *Widget) Handle() (*resource.Image, bool) { return w.engine.Get(w.key) }

// Record returns the visibility registration behind the widget.
func (w *Widget) Record() (visibility.Record, bool) {
	return w.engine.trigger.Record(w.target)
}

// Unmount detaches the widget. Loads already issued continue. It reports
// whether this widget was still mounted.
func (w *Widget) Unmount() bool { return w.engine.unmountWidget(w) }

// Wait blocks until the resource is cached or its load failed. Keys nothing
// has scheduled yet are re-checked every poll interval.
func (w *Widget) Wait(ctx context.Context) (*resource.Image, error) {
	e := w.engine
	for {
		if img, ok := e.Get(w.key); ok {
			return img, nil
		}

		err := e.sched.Await(ctx, w.key)
		switch {
		case err == nil:
			if img, ok := e.Get(w.key); ok {
				return img, nil
			}
			return nil, ErrNotResident
		case errors.Is(err, scheduler.ErrNotScheduled):
			select {
			case <-e.clock.TickAfter(e.pollInterval):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		default:
			return nil, err
		}
	}
}
