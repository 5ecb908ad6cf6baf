package canvas

import (
	"fmt"
	"sync"

	"github.com/Sunmxt/linker-sketch/log"
	"github.com/Sunmxt/linker-sketch/proto"
)

// Headless is a Renderer without a window. It records every line drawn and
// takes its input from Inject. Safe for concurrent use.
type Headless struct {
	lock    sync.Mutex
	pending []Event
	lines   []proto.Stroke
	wake    chan struct{}
	closed  bool

	log *log.Logger
}

func NewHeadless(title string) *Headless {
	h := &Headless{
		wake: make(chan struct{}, 1),
		log:  log.NewLogger(),
	}
	h.log.Fields["entity"] = "canvas"
	h.log.Fields["canvas"] = title
	return h
}

func (h *Headless) DrawLine(s proto.Stroke) {
	h.lock.Lock()
	h.lines = append(h.lines, s)
	h.lock.Unlock()
	h.log.TraceLazy(func() string {
		return fmt.Sprintf("Draw (%v,%v)-(%v,%v)", s.From.X, s.From.Y, s.To.X, s.To.Y)
	})
}

func (h *Headless) Poll(buf []Event) []Event {
	h.lock.Lock()
	defer h.lock.Unlock()
	buf = append(buf, h.pending...)
	h.pending = h.pending[:0]
	return buf
}

func (h *Headless) Wake() <-chan struct{} {
	return h.wake
}

func (h *Headless) Inject(events ...Event) {
	h.lock.Lock()
	if h.closed {
		h.lock.Unlock()
		return
	}
	h.pending = append(h.pending, events...)
	h.lock.Unlock()

	select {
	case h.wake <- struct{}{}:
	default:
	}
}

// Lines returns a copy of everything drawn so far.
func (h *Headless) Lines() []proto.Stroke {
	h.lock.Lock()
	defer h.lock.Unlock()
	return append([]proto.Stroke(nil), h.lines...)
}

// Clear forgets drawn lines, as a window losing its contents would.
func (h *Headless) Clear() {
	h.lock.Lock()
	h.lines = h.lines[:0]
	h.lock.Unlock()
}

func (h *Headless) Close() error {
	h.lock.Lock()
	h.closed = true
	h.pending = nil
	h.lock.Unlock()
	return nil
}
