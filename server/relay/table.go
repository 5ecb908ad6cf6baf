package relay

import (
	"errors"

	"github.com/Sunmxt/linker-sketch/proto"
	"github.com/Sunmxt/linker-sketch/server"
)

var ErrFull = errors.New("Session table is full.")

// SessionTable is a fixed set of slots indexed by identity. It never grows
// and is only touched from the relay loop.
type SessionTable struct {
	slots []*Session
	count int
}

func NewSessionTable(capacity int) *SessionTable {
	return &SessionTable{
		slots: make([]*Session, capacity),
	}
}

func (t *SessionTable) Capacity() int {
	return len(t.slots)
}

func (t *SessionTable) Count() int {
	return t.count
}

// Allocate places s in the lowest free slot and stamps its identity.
func (t *SessionTable) Allocate(s *Session) (proto.Identity, error) {
	for idx, slot := range t.slots {
		if slot != nil {
			continue
		}
		t.slots[idx] = s
		t.count++
		s.ID = proto.Identity(idx)
		return s.ID, nil
	}
	return proto.NO_IDENTITY, server.NewCapacityError(len(t.slots), ErrFull)
}

// Release empties the slot and returns what occupied it.
func (t *SessionTable) Release(id proto.Identity) *Session {
	if id < 0 || int(id) >= len(t.slots) {
		return nil
	}
	s := t.slots[id]
	if s != nil {
		t.slots[id] = nil
		t.count--
	}
	return s
}

func (t *SessionTable) Get(id proto.Identity) *Session {
	if id < 0 || int(id) >= len(t.slots) {
		return nil
	}
	return t.slots[id]
}

// Others lists occupied slots except excluding, in index order.
func (t *SessionTable) Others(excluding proto.Identity) []*Session {
	others := make([]*Session, 0, t.count)
	for idx, s := range t.slots {
		if s == nil || proto.Identity(idx) == excluding {
			continue
		}
		others = append(others, s)
	}
	return others
}

func (t *SessionTable) Snapshot() []proto.SessionV1 {
	snapshot := make([]proto.SessionV1, 0, t.count)
	for _, s := range t.slots {
		if s == nil {
			continue
		}
		snapshot = append(snapshot, proto.SessionV1{
			Identity:    s.ID,
			Label:       s.ID.Label(),
			Remote:      s.Remote,
			ConnectedAt: s.ConnectedAt,
		})
	}
	return snapshot
}
