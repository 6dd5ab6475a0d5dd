package event

import (
	"time"

	"github.com/google/uuid"
)

// Kind classifies what a submission reported.
type Kind string

const (
	KindCaption  Kind = "caption"  // human-readable progress before a step
	KindUpload   Kind = "upload"   // file upload progress
	KindDialog   Kind = "dialog"   // user-facing error dialog
	KindFinished Kind = "finished" // pipeline finished, loading indicator cleared
)

// Event is one notification emitted while a submission runs.
type Event struct {
	ID         string            `json:"id"`
	Kind       Kind              `json:"kind"`
	JobID      string            `json:"jobId,omitempty"`
	Step       string            `json:"step,omitempty"`
	Title      string            `json:"title,omitempty"`
	Message    string            `json:"message"`
	OccurredAt time.Time         `json:"occurredAt"`
	Meta       map[string]string `json:"meta,omitempty"` // e.g. loaded/total for uploads
}

// New stamps an event with a fresh id and the current time.
func New(kind Kind, step, message string) *Event {
	return &Event{
		ID:         uuid.NewString(),
		Kind:       kind,
		Step:       step,
		Message:    message,
		OccurredAt: time.Now().UTC(),
	}
}

// Sink receives events.
type Sink interface {
	Emit(ev *Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ev *Event)

func (f SinkFunc) Emit(ev *Event) { f(ev) }

// Discard drops every event.
var Discard Sink = SinkFunc(func(*Event) {})
