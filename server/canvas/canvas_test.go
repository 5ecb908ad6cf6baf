package canvas

import (
	"testing"
	"time"

	"github.com/Sunmxt/linker-sketch/proto"
)

func TestStrokeLogReplayOrder(t *testing.T) {
	strokes := NewStrokeLog()
	want := []proto.Stroke{
		proto.NewStroke(0, 0, 1, 1),
		proto.NewStroke(1, 1, 2, 2),
		proto.NewStroke(-3, 4, 5, -6),
	}
	for _, s := range want {
		strokes.Append(s)
	}
	if strokes.Len() != len(want) {
		t.Fatalf("Len() = %v, want %v", strokes.Len(), len(want))
	}

	surface := NewHeadless("test")
	strokes.Replay(surface)
	got := surface.Lines()
	if len(got) != len(want) {
		t.Fatalf("replayed %v lines, want %v", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("line %v = %v, want %v", i, got[i], want[i])
		}
	}

	snap := strokes.Snapshot(nil)
	snap[0] = proto.Stroke{}
	strokes.Replay(surface)
	if surface.Lines()[len(want)] != want[0] {
		t.Errorf("Snapshot shares storage with the log")
	}
}

func TestPenGesture(t *testing.T) {
	pen := &Pen{}
	points := []proto.Point{{X: 1, Y: 1}, {X: 2, Y: 3}, {X: 5, Y: 8}}

	// Motion before press draws nothing.
	if _, ok := pen.Feed(Event{Kind: EVENT_MOTION, At: proto.Point{X: 9, Y: 9}}); ok {
		t.Fatalf("motion with the pen up produced a stroke")
	}

	var strokes []proto.Stroke
	for _, ev := range Gesture(points) {
		if s, ok := pen.Feed(ev); ok {
			strokes = append(strokes, s)
		}
	}
	want := []proto.Stroke{
		proto.NewStroke(1, 1, 2, 3),
		proto.NewStroke(2, 3, 5, 8),
	}
	if len(strokes) != len(want) {
		t.Fatalf("got %v strokes, want %v", len(strokes), len(want))
	}
	for i := range want {
		if strokes[i] != want[i] {
			t.Errorf("stroke %v = %v, want %v", i, strokes[i], want[i])
		}
	}
	if pen.Down() {
		t.Errorf("pen still down after release")
	}
}

func TestHeadlessInjectWakes(t *testing.T) {
	surface := NewHeadless("test")
	surface.Inject(Event{Kind: EVENT_EXPOSE})
	surface.Inject(Event{Kind: EVENT_BUTTON_PRESS})

	select {
	case <-surface.Wake():
	case <-time.After(time.Second):
		t.Fatalf("no wake-up after Inject")
	}
	events := surface.Poll(nil)
	if len(events) != 2 || events[0].Kind != EVENT_EXPOSE || events[1].Kind != EVENT_BUTTON_PRESS {
		t.Fatalf("Poll() = %v", events)
	}
	if events = surface.Poll(events[:0]); len(events) != 0 {
		t.Errorf("second Poll() = %v, want nothing", events)
	}

	surface.Close()
	surface.Inject(Event{Kind: EVENT_EXPOSE})
	if events = surface.Poll(nil); len(events) != 0 {
		t.Errorf("closed surface accepted input: %v", events)
	}
}
