package canvas

import (
	"github.com/Sunmxt/linker-sketch/proto"
)

// StrokeLog is the append-only record replayed whenever the canvas needs
// repainting. Owned by a single loop goroutine.
type StrokeLog struct {
	strokes []proto.Stroke
}

func NewStrokeLog() *StrokeLog {
	return &StrokeLog{
		strokes: make([]proto.Stroke, 0, 256),
	}
}

func (l *StrokeLog) Append(s proto.Stroke) {
	l.strokes = append(l.strokes, s)
}

func (l *StrokeLog) Len() int {
	return len(l.strokes)
}

// Replay draws every stroke in append order.
func (l *StrokeLog) Replay(r Renderer) {
	for _, s := range l.strokes {
		r.DrawLine(s)
	}
}

// Snapshot copies the log into buf.
func (l *StrokeLog) Snapshot(buf []proto.Stroke) []proto.Stroke {
	return append(buf[:0], l.strokes...)
}
