package browser

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/imagegen-mcp/pkg/logging"
)

func TestRunSteps(t *testing.T) {
	var ran []string
	step := func(name string, policy Policy, err error) Step {
		return Step{Name: name, Policy: policy, Run: func(context.Context) error {
			ran = append(ran, name)
			return err
		}}
	}

	t.Run("best effort failures are skipped", func(t *testing.T) {
		ran = nil
		err := RunSteps(context.Background(), logging.Nop(),
			step("cookies", BestEffort, errors.New("no banner")),
			step("prompt", Required, nil),
			step("popup", BestEffort, nil),
		)
		require.NoError(t, err)
		assert.Equal(t, []string{"cookies", "prompt", "popup"}, ran)
	})

	t.Run("required failure stops the sequence", func(t *testing.T) {
		ran = nil
		missing := errors.New("missing")
		err := RunSteps(context.Background(), logging.Nop(),
			step("prompt", Required, missing),
			step("submit", Required, nil),
		)
		require.ErrorIs(t, err, missing)
		assert.Contains(t, err.Error(), "prompt")
		assert.Equal(t, []string{"prompt"}, ran)
	})

	t.Run("canceled context", func(t *testing.T) {
		ran = nil
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := RunSteps(ctx, logging.Nop(), step("prompt", Required, nil))
		assert.ErrorIs(t, err, context.Canceled)
		assert.Empty(t, ran)
	})
}

func TestPolicyString(t *testing.T) {
	assert.Equal(t, "required", Required.String())
	assert.Equal(t, "best-effort", BestEffort.String())
	assert.Equal(t, "Policy(7)", Policy(7).String())
}

func TestRealClockSleep(t *testing.T) {
	var clock RealClock

	start := clock.Now()
	require.NoError(t, clock.Sleep(context.Background(), 5*time.Millisecond))
	assert.GreaterOrEqual(t, time.Since(start), 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, clock.Sleep(ctx, time.Hour), context.Canceled)
	assert.ErrorIs(t, clock.Sleep(ctx, 0), context.Canceled)
	assert.NoError(t, clock.Sleep(context.Background(), 0))
}
