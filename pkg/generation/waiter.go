package generation

import (
	"context"
	"fmt"
	"time"

	"github.com/entrhq/imagegen-mcp/pkg/browser"
	"github.com/entrhq/imagegen-mcp/pkg/logging"
	"github.com/entrhq/imagegen-mcp/pkg/site"
)

// Phase is the state of a submitted generation as seen from the page.
type Phase int

const (
	PhaseSubmitted Phase = iota
	PhasePolling
	PhaseCompleted
	PhaseTimedOut
)

func (p Phase) String() string {
	switch p {
	case PhaseSubmitted:
		return "submitted"
	case PhasePolling:
		return "polling"
	case PhaseCompleted:
		return "completed"
	case PhaseTimedOut:
		return "timed_out"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// WaiterOptions tunes the completion loop.
type WaiterOptions struct {
	// Ceiling bounds the whole polling phase
	Ceiling time.Duration

	// PollInterval is slept between checks
	PollInterval time.Duration

	// IndicatorTimeout is how long to look for the loading indicator after submit
	IndicatorTimeout time.Duration

	// Grace is waited after the indicator disappears before re-checking the URL
	Grace time.Duration

	// Settle is waited once the loop ends so results can render
	Settle time.Duration
}

// DefaultWaiterOptions match the site's observed timings.
func DefaultWaiterOptions() WaiterOptions {
	return WaiterOptions{
		Ceiling:          3 * time.Minute,
		PollInterval:     3 * time.Second,
		IndicatorTimeout: 10 * time.Second,
		Grace:            2 * time.Second,
		Settle:           2 * time.Second,
	}
}

const indicatorProbe = time.Second

// Waiter watches the page after submission until the result is ready.
type Waiter struct {
	page   browser.Page
	routes *browser.Routes
	clock  browser.Clock
	opts   WaiterOptions
	log    *logging.Logger

	phase    Phase
	observed bool
	started  time.Time
}

// NewWaiter creates a waiter in PhaseSubmitted.
func NewWaiter(page browser.Page, routes *browser.Routes, clock browser.Clock, opts WaiterOptions, log *logging.Logger) *Waiter {
	return &Waiter{
		page:   page,
		routes: routes,
		clock:  clock,
		opts:   opts,
		log:    log,
		phase:  PhaseSubmitted,
	}
}

// Phase returns the current phase.
func (w *Waiter) Phase() Phase {
	return w.phase
}

// Await runs the state machine to PhaseCompleted or PhaseTimedOut. Running
// out of time is not an error; the caller should try extraction anyway.
// Only context cancellation is returned as an error.
func (w *Waiter) Await(ctx context.Context) (Phase, error) {
	for w.phase != PhaseCompleted && w.phase != PhaseTimedOut {
		if err := w.step(ctx); err != nil {
			return w.phase, err
		}
	}

	if err := w.clock.Sleep(ctx, w.opts.Settle); err != nil {
		return w.phase, err
	}
	return w.phase, nil
}

func (w *Waiter) step(ctx context.Context) error {
	switch w.phase {
	case PhaseSubmitted:
		w.observed = w.page.IsVisible(site.LoadingIndicator, w.opts.IndicatorTimeout)
		if w.observed {
			w.log.Infof("generation started")
		} else {
			w.log.Infof("loading indicator not detected, continuing")
		}
		w.started = w.clock.Now()
		w.phase = PhasePolling
		return nil

	case PhasePolling:
		elapsed := w.clock.Now().Sub(w.started)
		if elapsed >= w.opts.Ceiling {
			w.log.Warnf("no completion signal after %s, trying extraction anyway", elapsed.Round(time.Second))
			w.phase = PhaseTimedOut
			return nil
		}

		if w.routes.IsHistory(w.page.URL()) {
			w.log.Infof("navigated to history, generation complete")
			w.phase = PhaseCompleted
			return nil
		}

		if w.observed && !w.page.IsVisible(site.LoadingIndicator, indicatorProbe) {
			if err := w.clock.Sleep(ctx, w.opts.Grace); err != nil {
				return err
			}
			if w.routes.IsHistory(w.page.URL()) {
				w.log.Infof("generation complete")
				w.phase = PhaseCompleted
				return nil
			}
		}

		if err := w.clock.Sleep(ctx, w.opts.PollInterval); err != nil {
			return err
		}
		w.log.Debugf("still generating (%s)", w.clock.Now().Sub(w.started).Round(time.Second))
		return nil
	}

	return fmt.Errorf("await in terminal phase %s", w.phase)
}
