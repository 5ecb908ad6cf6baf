package dig

import (
	"time"
)

type Node struct {
	Name       string
	Metadata   map[string]string
	Timeout    uint
	LastActive time.Time
}

func (n *Node) clone() *Node {
	copied := &Node{
		Name:       n.Name,
		Timeout:    n.Timeout,
		LastActive: n.LastActive,
		Metadata:   make(map[string]string, len(n.Metadata)),
	}
	for k, v := range n.Metadata {
		copied.Metadata[k] = v
	}
	return copied
}
