package canvas

import (
	"github.com/Sunmxt/linker-sketch/proto"
)

const (
	EVENT_EXPOSE = uint8(iota)
	EVENT_BUTTON_PRESS
	EVENT_MOTION
	EVENT_BUTTON_RELEASE
)

var eventNames = map[uint8]string{
	EVENT_EXPOSE:         "expose",
	EVENT_BUTTON_PRESS:   "press",
	EVENT_MOTION:         "motion",
	EVENT_BUTTON_RELEASE: "release",
}

// Event is a user intent reported by the drawing surface.
type Event struct {
	Kind uint8
	At   proto.Point
}

func (e Event) String() string {
	return eventNames[e.Kind]
}

// Renderer is the drawing surface. The core draws into it and drains its
// pending input without blocking.
type Renderer interface {
	DrawLine(s proto.Stroke)

	// Poll appends pending events to buf and returns immediately.
	Poll(buf []Event) []Event

	// Wake is signalled when events become pending.
	Wake() <-chan struct{}

	Close() error
}

// Injector is implemented by surfaces that accept synthetic input, such as
// gestures typed on the operator console.
type Injector interface {
	Inject(events ...Event)
}

// Gesture builds the event sequence of a pen drag along a polyline.
func Gesture(points []proto.Point) []Event {
	if len(points) < 1 {
		return nil
	}
	events := make([]Event, 0, len(points)+1)
	events = append(events, Event{Kind: EVENT_BUTTON_PRESS, At: points[0]})
	for _, p := range points[1:] {
		events = append(events, Event{Kind: EVENT_MOTION, At: p})
	}
	return append(events, Event{Kind: EVENT_BUTTON_RELEASE, At: points[len(points)-1]})
}
