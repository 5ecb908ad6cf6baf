package server

import (
	"errors"
	"fmt"
	"io"
	"testing"
)

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		name                       string
		err                        error
		transport, capacity, close bool
	}{
		{"Transport", NewTransportError("listen", io.ErrClosedPipe), true, false, false},
		{"WrappedTransport", fmt.Errorf("relay: %w", NewTransportError("accept", io.EOF)), true, false, false},
		{"Capacity", NewCapacityError(10, nil), false, true, false},
		{"Disconnect", NewPeerDisconnect("Client[1]", io.EOF), false, false, true},
		{"Plain", errors.New("other"), false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransportError(tt.err); got != tt.transport {
				t.Errorf("IsTransportError = %v, want %v", got, tt.transport)
			}
			if got := IsCapacityError(tt.err); got != tt.capacity {
				t.Errorf("IsCapacityError = %v, want %v", got, tt.capacity)
			}
			if got := IsPeerDisconnect(tt.err); got != tt.close {
				t.Errorf("IsPeerDisconnect = %v, want %v", got, tt.close)
			}
		})
	}
}

func TestErrorUnwrap(t *testing.T) {
	err := NewPeerDisconnect("Client[2]", io.EOF)
	if !errors.Is(err, io.EOF) {
		t.Errorf("errors.Is(%v, io.EOF) = false", err)
	}
	if got := err.Error(); got != "Client[2] disconnected: EOF" {
		t.Errorf("Error() = %q", got)
	}
}

func TestNodeIDString(t *testing.T) {
	id := NewNodeID()
	if id.IsEmpty() {
		t.Fatalf("new node id is empty")
	}
	raw := id.String()
	if len(raw) != 32 {
		t.Fatalf("String() = %q, want 32 hex digits", raw)
	}
	var parsed NodeID
	if err := parsed.FromString(raw); err != nil {
		t.Fatalf("FromString(%q): %v", raw, err)
	}
	if parsed != id {
		t.Errorf("parsed %v, want %v", parsed.String(), raw)
	}
	if err := parsed.FromString("not-an-id"); err != ErrInvalidNodeIDString {
		t.Errorf("err = %v, want ErrInvalidNodeIDString", err)
	}
}
