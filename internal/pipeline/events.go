// Package pipeline composes the capture/encode/send and receive/decode/
// display loops, each running on its own goroutine bound to one transport
// handle.
package pipeline

import "image"

// EventKind discriminates telemetry events.
type EventKind int

const (
	// EventRateSample carries a frames-per-second measurement.
	EventRateSample EventKind = iota
	// EventError reports a failure. It is fatal only when followed by
	// EventSessionEnded; a decode failure, for example, is reported and the
	// loop continues.
	EventError
	// EventSessionEnded is the terminal event of a pipeline run, emitted
	// exactly once whether the loop stopped on request or on a transport
	// failure.
	EventSessionEnded
)

// Event is a telemetry message from a pipeline to its controller. Delivery
// is fire-and-forget: a slow controller drops events, it never blocks the
// loop.
type Event struct {
	Kind EventKind
	FPS  float64
	Err  error
}

// FrameSink receives each decoded frame from the receiver pipeline. The
// frame is owned by the pipeline iteration; sinks must copy what they keep.
type FrameSink interface {
	HandleFrame(img *image.RGBA) error
}

// emit delivers ev without blocking; if the channel is full the event is
// dropped.
func emit(ch chan Event, ev Event) {
	select {
	case ch <- ev:
	default:
	}
}
