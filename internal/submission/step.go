package submission

import (
	"context"

	"github.com/gyaneshwarpardhi/catalogue-explorer/internal/event"
)

// Requirement is the answer of Step.IsRequired. When Required is false the
// step's side effect already happened and Result is merged instead of
// running the step.
type Requirement struct {
	Required bool
	Result   State
}

// Step is one idempotent unit of the submission workflow.
type Step interface {
	// Name is the key the step is registered and configured under.
	Name() string
	// InputShape lists the state keys the step reads.
	InputShape() []string
	IsRequired(ctx context.Context, in State) (Requirement, error)
	Run(ctx context.Context, in State) (State, error)
}

// Captioner is implemented by steps that announce themselves before the
// requirement check.
type Captioner interface {
	Caption() string
}

type sinkKey struct{}

func withSink(ctx context.Context, sink event.Sink) context.Context {
	return context.WithValue(ctx, sinkKey{}, sink)
}

// emit sends ev to the sink of the running pipeline, if any.
func emit(ctx context.Context, ev *event.Event) {
	if sink, ok := ctx.Value(sinkKey{}).(event.Sink); ok {
		sink.Emit(ev)
	}
}
