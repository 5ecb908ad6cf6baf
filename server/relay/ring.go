package relay

import (
	"errors"
)

var ErrRingFull = errors.New("Ring is full.")

// Ring is a bounded FIFO of watch payloads. Not safe for concurrent use.
type Ring struct {
	buf    []string
	readc  uint64
	writec uint64
	mask   uint64
}

// NewRing rounds size up to a power of two.
func NewRing(size uint) *Ring {
	actual := uint64(1)
	for actual < uint64(size) {
		actual <<= 1
	}
	return &Ring{
		buf:  make([]string, actual),
		mask: actual - 1,
	}
}

// Write appends msg. When the ring is full and override is set, the oldest
// entry is dropped and overridden is true.
func (r *Ring) Write(msg string, override bool) (overridden bool, err error) {
	if r.writec-r.readc > r.mask {
		if !override {
			return false, ErrRingFull
		}
		r.readc++
		overridden = true
	}
	r.buf[r.writec&r.mask] = msg
	r.writec++
	return overridden, nil
}

func (r *Ring) Read() (string, bool) {
	if r.Count() == 0 {
		return "", false
	}
	slot := r.readc & r.mask
	msg := r.buf[slot]
	r.buf[slot] = ""
	r.readc++
	return msg, true
}

func (r *Ring) Count() uint64 {
	return r.writec - r.readc
}

func (r *Ring) Cap() uint64 {
	return r.mask + 1
}
