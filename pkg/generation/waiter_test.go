package generation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/imagegen-mcp/pkg/browser/browsertest"
	"github.com/entrhq/imagegen-mcp/pkg/logging"
	"github.com/entrhq/imagegen-mcp/pkg/site"
)

func newWaiter(t *testing.T, page *browsertest.Page, clock *browsertest.Clock) *Waiter {
	t.Helper()
	return NewWaiter(page, testRoutes(t), clock, DefaultWaiterOptions(), logging.Nop())
}

func TestWaiterCompletesOnHistory(t *testing.T) {
	page := browsertest.NewPage(historyURL)
	clock := browsertest.NewClock(time.Unix(0, 0))
	w := newWaiter(t, page, clock)
	assert.Equal(t, PhaseSubmitted, w.Phase())

	phase, err := w.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, PhaseCompleted, phase)
	// Only the final settle
	assert.Equal(t, []time.Duration{2 * time.Second}, clock.Sleeps)
}

func TestWaiterIndicatorThenHistory(t *testing.T) {
	page := browsertest.NewPage(appURL)
	clock := browsertest.NewClock(time.Unix(0, 0))

	// Indicator shows right after submit, then goes away
	probes := 0
	page.VisibleFunc = func(selector string) bool {
		if selector != site.LoadingIndicator {
			return false
		}
		probes++
		return probes <= 2
	}
	// The history route appears during the grace delay
	clock.OnSleep = func(time.Duration) {
		if probes >= 3 {
			page.SetURL(historyURL)
		}
	}

	w := newWaiter(t, page, clock)
	phase, err := w.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, PhaseCompleted, phase)

	// poll, grace, settle
	assert.Equal(t, []time.Duration{3 * time.Second, 2 * time.Second, 2 * time.Second}, clock.Sleeps)
}

func TestWaiterIndicatorGoneWithoutHistoryKeepsPolling(t *testing.T) {
	page := browsertest.NewPage(appURL)
	clock := browsertest.NewClock(time.Unix(0, 0))

	observed := false
	page.VisibleFunc = func(selector string) bool {
		if !observed {
			observed = true
			return true
		}
		return false
	}

	w := newWaiter(t, page, clock)
	phase, err := w.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, PhaseTimedOut, phase)
	assert.GreaterOrEqual(t, clock.Elapsed(), 3*time.Minute)
}

func TestWaiterTimesOut(t *testing.T) {
	page := browsertest.NewPage(appURL)
	clock := browsertest.NewClock(time.Unix(0, 0))

	w := newWaiter(t, page, clock)
	phase, err := w.Await(context.Background())

	require.NoError(t, err, "timing out is not an error")
	assert.Equal(t, PhaseTimedOut, phase)
	assert.Equal(t, PhaseTimedOut, w.Phase())

	// 60 polls of 3s reach the 3m ceiling, then the settle
	require.Len(t, clock.Sleeps, 61)
	assert.Equal(t, 3*time.Minute+2*time.Second, clock.Elapsed())
}

func TestWaiterCanceled(t *testing.T) {
	page := browsertest.NewPage(appURL)
	clock := browsertest.NewClock(time.Unix(0, 0))

	ctx, cancel := context.WithCancel(context.Background())
	clock.OnSleep = func(total time.Duration) {
		if total >= 30*time.Second {
			cancel()
		}
	}

	w := newWaiter(t, page, clock)
	phase, err := w.Await(ctx)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, PhasePolling, phase)
}

func TestPhaseString(t *testing.T) {
	assert.Equal(t, "submitted", PhaseSubmitted.String())
	assert.Equal(t, "polling", PhasePolling.String())
	assert.Equal(t, "completed", PhaseCompleted.String())
	assert.Equal(t, "timed_out", PhaseTimedOut.String())
	assert.Equal(t, "Phase(9)", Phase(9).String())
}
