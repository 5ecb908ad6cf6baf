package server

import (
	"errors"
	"strings"

	guuid "github.com/satori/go.uuid"
)

var ErrInvalidNodeIDString = errors.New("Invalid ID string.")

// NodeID names one relay process, e.g. in the discovery registry.
type NodeID guuid.UUID

func NewNodeID() NodeID {
	return NodeID(guuid.NewV4())
}

func (n NodeID) String() string {
	return strings.Replace(guuid.UUID(n).String(), "-", "", -1)
}

func (n NodeID) IsEmpty() bool {
	return guuid.Equal(guuid.UUID(n), guuid.Nil)
}

func (n *NodeID) FromString(raw string) error {
	id, err := guuid.FromString(raw)
	if err != nil {
		return ErrInvalidNodeIDString
	}
	*n = NodeID(id)
	return nil
}
