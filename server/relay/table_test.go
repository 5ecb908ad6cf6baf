package relay

import (
	"errors"
	"net"
	"testing"
	"time"

	"github.com/Sunmxt/linker-sketch/proto"
	"github.com/Sunmxt/linker-sketch/server"
)

func TestSessionTableAllocate(t *testing.T) {
	table := NewSessionTable(3)
	seen := make(map[proto.Identity]bool)
	for i := 0; i < 3; i++ {
		id, err := table.Allocate(NewSession(nil, 1, 0))
		if err != nil {
			t.Fatalf("Allocate #%v: %v", i, err)
		}
		if id < 0 || int(id) >= 3 || seen[id] {
			t.Fatalf("Allocate #%v gave %v", i, id)
		}
		seen[id] = true
	}
	if table.Count() != 3 {
		t.Errorf("Count = %v", table.Count())
	}

	_, err := table.Allocate(NewSession(nil, 1, 0))
	if !errors.Is(err, ErrFull) || !server.IsCapacityError(err) {
		t.Fatalf("Allocate on full table: %v", err)
	}
}

func TestSessionTableReleaseReuse(t *testing.T) {
	table := NewSessionTable(3)
	sessions := make([]*Session, 3)
	for i := range sessions {
		sessions[i] = NewSession(nil, 1, 0)
		table.Allocate(sessions[i])
	}

	if released := table.Release(1); released != sessions[1] {
		t.Fatalf("Release(1) = %v", released)
	}
	if released := table.Release(1); released != nil {
		t.Fatalf("second Release(1) = %v", released)
	}
	table.Release(-1)
	table.Release(7)
	if table.Count() != 2 {
		t.Fatalf("Count = %v", table.Count())
	}

	again := NewSession(nil, 1, 0)
	if id, err := table.Allocate(again); err != nil || id != 1 {
		t.Fatalf("reuse: id = %v, err = %v", id, err)
	}
	if table.Get(1) != again {
		t.Error("Get(1) is not the new session")
	}
}

func TestSessionTableOthers(t *testing.T) {
	table := NewSessionTable(4)
	for i := 0; i < 4; i++ {
		table.Allocate(NewSession(nil, 1, 0))
	}
	table.Release(2)

	others := table.Others(0)
	if len(others) != 2 || others[0].ID != 1 || others[1].ID != 3 {
		t.Fatalf("Others(0) = %v", others)
	}
	if all := table.Others(proto.NO_IDENTITY); len(all) != 3 {
		t.Fatalf("Others(NO_IDENTITY) has %v", len(all))
	}

	snapshot := table.Snapshot()
	if len(snapshot) != 3 || snapshot[2].Label != "Client[3]" {
		t.Fatalf("Snapshot = %+v", snapshot)
	}
}

func TestSessionSendWaitsForWriter(t *testing.T) {
	near, far := net.Pipe()
	defer far.Close()
	s := NewSession(near, 1, time.Second)
	defer s.Close()
	go s.writeLoop()

	got := make(chan int, 1)
	go func() {
		frames := proto.NewFrameReader(far)
		n := 0
		for ; n < 32; n++ {
			if _, err := frames.ReadFrame(); err != nil {
				break
			}
			// Reader slower than the sender.
			time.Sleep(time.Millisecond)
		}
		got <- n
	}()

	for i := 0; i < 32; i++ {
		if err := s.Send(proto.EncodeIdentity(proto.Identity(i % 10))); err != nil {
			t.Fatalf("Send #%v: %v", i, err)
		}
	}
	if n := <-got; n != 32 {
		t.Errorf("received %v of 32", n)
	}
}

func TestSessionSendGivesUp(t *testing.T) {
	// No writer, so the queue never drains.
	s := NewSession(nil, 1, 50*time.Millisecond)
	frame := proto.EncodeIdentity(0)
	if err := s.Send(frame); err != nil {
		t.Fatalf("first Send: %v", err)
	}
	start := time.Now()
	if err := s.Send(frame); err != ErrSlowConsumer {
		t.Fatalf("Send on stuck queue: %v", err)
	}
	if waited := time.Since(start); waited < 40*time.Millisecond {
		t.Errorf("gave up after %v", waited)
	}
	s.Close()
	s.Close()
	if err := s.Send(frame); err != ErrSessionClosed {
		t.Fatalf("Send after Close: %v", err)
	}
}

func TestSessionWriterDeadline(t *testing.T) {
	near, far := net.Pipe()
	defer far.Close()
	s := NewSession(near, 4, 50*time.Millisecond)
	defer s.Close()
	go s.writeLoop()

	if err := s.Send(proto.EncodeIdentity(0)); err != nil {
		t.Fatalf("Send: %v", err)
	}
	// Nobody reads far, so the write times out and the conn is closed.
	time.Sleep(200 * time.Millisecond)
	far.SetReadDeadline(time.Now().Add(time.Second))
	buf := make([]byte, proto.ENVELOPE_SIZE)
	if _, err := far.Read(buf); err == nil {
		t.Error("stalled session still connected")
	}
}
