package canvas

import (
	"github.com/Sunmxt/linker-sketch/proto"
)

// Pen turns press/motion events into one stroke per motion sample.
type Pen struct {
	down  bool
	start proto.Point
}

// Feed consumes ev. ok is true when ev completes a stroke.
// Motion while the pen is up is ignored.
func (p *Pen) Feed(ev Event) (stroke proto.Stroke, ok bool) {
	switch ev.Kind {
	case EVENT_BUTTON_PRESS:
		p.down, p.start = true, ev.At

	case EVENT_MOTION:
		if !p.down {
			return stroke, false
		}
		stroke = proto.Stroke{From: p.start, To: ev.At}
		p.start = ev.At
		return stroke, true

	case EVENT_BUTTON_RELEASE:
		p.down = false
	}
	return stroke, false
}

func (p *Pen) Down() bool {
	return p.down
}
