package server

import (
	"errors"
	"fmt"
)

// TransportError is a socket level failure: listen, accept or dial.
// It terminates the process that hits it.
type TransportError struct {
	Op     string
	Origin error
}

func NewTransportError(op string, err error) *TransportError {
	return &TransportError{Op: op, Origin: err}
}

func (err *TransportError) Error() string {
	return err.Op + ": " + err.Origin.Error()
}

func (err *TransportError) Unwrap() error {
	return err.Origin
}

func IsTransportError(err error) bool {
	var terr *TransportError
	return errors.As(err, &terr)
}

// CapacityError means no session slot was free.
type CapacityError struct {
	Capacity int
	Origin   error
}

func NewCapacityError(capacity int, err error) *CapacityError {
	return &CapacityError{Capacity: capacity, Origin: err}
}

func (err *CapacityError) Error() string {
	if err.Capacity < 1 {
		if err.Origin == nil {
			return "No free slot."
		}
		return "No free slot: " + err.Origin.Error()
	}
	if err.Origin == nil {
		return fmt.Sprintf("All %v slots are occupied.", err.Capacity)
	}
	return fmt.Sprintf("All %v slots are occupied: %v", err.Capacity, err.Origin)
}

func (err *CapacityError) Unwrap() error {
	return err.Origin
}

func IsCapacityError(err error) bool {
	var cerr *CapacityError
	return errors.As(err, &cerr)
}

// PeerDisconnect is a zero-byte or failed read on a session connection.
type PeerDisconnect struct {
	Label  string
	Origin error
}

func NewPeerDisconnect(label string, err error) *PeerDisconnect {
	return &PeerDisconnect{Label: label, Origin: err}
}

func (err *PeerDisconnect) Error() string {
	if err.Origin == nil {
		return err.Label + " disconnected."
	}
	return err.Label + " disconnected: " + err.Origin.Error()
}

func (err *PeerDisconnect) Unwrap() error {
	return err.Origin
}

func IsPeerDisconnect(err error) bool {
	var derr *PeerDisconnect
	return errors.As(err, &derr)
}
