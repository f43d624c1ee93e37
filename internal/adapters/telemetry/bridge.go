package telemetry

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.trai.ch/extbuild/internal/core/ports"
)

var _ sdktrace.SpanProcessor = (*Bridge)(nil)

// ToleratedError is reported to renderers for a task whose failure the build
// continued past, such as build:css without a working sass binary.
type ToleratedError struct {
	Reason string
}

func (e *ToleratedError) Error() string {
	return e.Reason
}

// IsTolerated reports whether err marks a tolerated task failure.
func IsTolerated(err error) bool {
	var tolerated *ToleratedError
	return errors.As(err, &tolerated)
}

// Bridge is the span processor that turns task spans into renderer events.
// Every task of a run is one span; the span name is the task name.
type Bridge struct {
	renderer ports.Renderer
}

// NewBridge returns a Bridge reporting to renderer.
func NewBridge(renderer ports.Renderer) *Bridge {
	return &Bridge{renderer: renderer}
}

// OnStart reports that a task started.
func (b *Bridge) OnStart(parent context.Context, s sdktrace.ReadWriteSpan) {
	if b.renderer == nil || !s.SpanContext().IsValid() {
		return
	}

	var parentID string
	if parentSpan := trace.SpanFromContext(parent); parentSpan.SpanContext().IsValid() {
		parentID = parentSpan.SpanContext().SpanID().String()
	}

	b.renderer.OnTaskStart(s.SpanContext().SpanID().String(), parentID, s.Name(), s.StartTime())
}

// OnEnd reports how a task finished.
func (b *Bridge) OnEnd(s sdktrace.ReadOnlySpan) {
	if b.renderer == nil || !s.SpanContext().IsValid() {
		return
	}

	err, cached := taskOutcome(s)
	b.renderer.OnTaskComplete(s.SpanContext().SpanID().String(), s.EndTime(), err, cached)
}

// taskOutcome reads the result the scheduler recorded on a task span.
// A failed span yields its status description. A tolerated failure yields a
// *ToleratedError. A task served from the build cache yields cached.
func taskOutcome(s sdktrace.ReadOnlySpan) (err error, cached bool) {
	var tolerated string
	for _, attr := range s.Attributes() {
		switch string(attr.Key) {
		case AttrCached:
			cached = attr.Value.AsBool()
		case AttrToleratedError:
			tolerated = attr.Value.AsString()
		}
	}

	switch {
	case s.Status().Code == codes.Error:
		desc := s.Status().Description
		if desc == "" {
			desc = "task failed"
		}
		return errors.New(desc), cached
	case tolerated != "":
		return &ToleratedError{Reason: tolerated}, cached
	}
	return nil, cached
}

// ForceFlush does nothing; events are delivered as spans end.
func (b *Bridge) ForceFlush(_ context.Context) error {
	return nil
}

// Shutdown does nothing; the renderer outlives the tracer provider.
func (b *Bridge) Shutdown(_ context.Context) error {
	return nil
}
