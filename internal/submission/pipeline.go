package submission

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gyaneshwarpardhi/catalogue-explorer/internal/event"
	"github.com/gyaneshwarpardhi/catalogue-explorer/internal/metrics"
)

// Pipeline runs steps strictly one after another over a shared State.
type Pipeline struct {
	steps               []Step
	defaultErrorMessage string
}

// NewPipeline creates a pipeline. defaultErrorMessage is shown for any
// failure that is not user-facing.
func NewPipeline(steps []Step, defaultErrorMessage string) *Pipeline {
	return &Pipeline{steps: steps, defaultErrorMessage: defaultErrorMessage}
}

// Steps returns the step names in run order.
func (p *Pipeline) Steps() []string {
	out := make([]string, len(p.steps))
	for i, s := range p.steps {
		out[i] = s.Name()
	}
	return out
}

// Run starts from a fresh state seeded with seed and returns the final
// state. Step failures never escape: they are logged, shown as a dialog
// event and turned into cancel=true so the remaining steps are skipped.
func (p *Pipeline) Run(ctx context.Context, seed State, sink event.Sink) State {
	if sink == nil {
		sink = event.Discard
	}
	ctx = withSink(ctx, sink)
	defer sink.Emit(event.New(event.KindFinished, "", "Finished"))

	state := State{}
	state.Merge(seed)

	for _, step := range p.steps {
		in := state.Project(step.InputShape())
		if in.Cancelled() {
			slog.Debug("submission cancelled, skipping remaining steps", "step", step.Name())
			break
		}
		if err := ctx.Err(); err != nil {
			state.Merge(p.fail(step, err, sink))
			break
		}
		delta, err := p.runStep(ctx, step, in, sink)
		if err != nil {
			delta = p.fail(step, err, sink)
		}
		state.Merge(delta)
	}

	metrics.SubmissionsCompleted.WithLabelValues(fmt.Sprint(state.Cancelled())).Inc()
	return state
}

func (p *Pipeline) runStep(ctx context.Context, step Step, in State, sink event.Sink) (State, error) {
	if c, ok := step.(Captioner); ok {
		sink.Emit(event.New(event.KindCaption, step.Name(), c.Caption()))
	}

	req, err := step.IsRequired(ctx, in)
	if err != nil {
		return nil, err
	}
	if !req.Required {
		metrics.SubmissionSteps.WithLabelValues(step.Name(), "skipped").Inc()
		slog.Debug("submission step not required", "step", step.Name())
		return req.Result, nil
	}

	out, err := step.Run(ctx, in)
	if err != nil {
		return nil, err
	}
	metrics.SubmissionSteps.WithLabelValues(step.Name(), "ran").Inc()
	return out, nil
}

// fail logs err, emits the user-facing dialog and returns the cancel delta.
func (p *Pipeline) fail(step Step, err error, sink event.Sink) State {
	metrics.SubmissionSteps.WithLabelValues(step.Name(), "failed").Inc()
	slog.Error("submission step failed", "step", step.Name(), "err", err)

	message := p.defaultErrorMessage
	var uf userFacing
	if errors.As(err, &uf) {
		message = uf.UserMessage()
	}
	dialog := event.New(event.KindDialog, step.Name(), message)
	dialog.Title = fmt.Sprintf("Unable to complete step %q", step.Name())
	sink.Emit(dialog)

	return State{KeyCancel: true}
}
