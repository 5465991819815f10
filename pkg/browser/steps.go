package browser

import (
	"context"
	"fmt"

	"github.com/entrhq/imagegen-mcp/pkg/logging"
)

// Policy decides what a failing step means for the sequence it belongs to.
type Policy int

const (
	// Required steps abort the sequence with their error
	Required Policy = iota

	// BestEffort steps are logged and skipped on failure
	BestEffort
)

func (p Policy) String() string {
	switch p {
	case Required:
		return "required"
	case BestEffort:
		return "best-effort"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

// Step is one UI interaction in a scripted sequence.
type Step struct {
	Name   string
	Policy Policy
	Run    func(ctx context.Context) error
}

// RunSteps runs steps in order. A failing Required step stops the sequence
// and its error is returned wrapped with the step name. Context cancellation
// is checked between steps.
func RunSteps(ctx context.Context, log *logging.Logger, steps ...Step) error {
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := step.Run(ctx)
		if err == nil {
			continue
		}

		if step.Policy == BestEffort {
			log.Debugf("skipped %s: %v", step.Name, err)
			continue
		}
		return fmt.Errorf("%s: %w", step.Name, err)
	}
	return nil
}
