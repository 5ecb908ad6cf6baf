package dig

import (
	"sort"
	"sync"
	"time"
)

type MemoryConnector struct{}

func (c *MemoryConnector) Connect(args ...interface{}) (Registry, error) {
	if len(args) != 0 {
		return nil, ErrInvalidArguments
	}
	return NewMemoryRegistry(), nil
}

type memoryEntry struct {
	node    *Node
	expires time.Time
}

// MemoryRegistry is a process local Registry for single-host setups and tests.
type MemoryRegistry struct {
	lock     sync.Mutex
	services map[string]map[string]*memoryEntry
	closed   bool

	now func() time.Time
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		services: make(map[string]map[string]*memoryEntry),
		now:      time.Now,
	}
}

func (r *MemoryRegistry) Publish(service string, node *Node) error {
	if node == nil || node.Name == "" || service == "" {
		return ErrInvalidArguments
	}
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.closed {
		return ErrClosed
	}
	nodes, ok := r.services[service]
	if !ok {
		nodes = make(map[string]*memoryEntry)
		r.services[service] = nodes
	}
	entry := &memoryEntry{node: node.clone()}
	entry.node.LastActive = r.now()
	if node.Timeout > 0 {
		entry.expires = entry.node.LastActive.Add(time.Duration(node.Timeout) * time.Second)
	}
	nodes[node.Name] = entry
	return nil
}

func (r *MemoryRegistry) Withdraw(service, name string) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.closed {
		return ErrClosed
	}
	if nodes, ok := r.services[service]; ok {
		delete(nodes, name)
	}
	return nil
}

func (r *MemoryRegistry) Nodes(service string) ([]*Node, error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.closed {
		return nil, ErrClosed
	}
	now, nodes := r.now(), make([]*Node, 0)
	for name, entry := range r.services[service] {
		if !entry.expires.IsZero() && now.After(entry.expires) {
			delete(r.services[service], name)
			continue
		}
		nodes = append(nodes, entry.node.clone())
	}
	sort.Slice(nodes, func(i, j int) bool {
		return nodes[i].Name < nodes[j].Name
	})
	return nodes, nil
}

func (r *MemoryRegistry) Close() error {
	r.lock.Lock()
	r.closed = true
	r.services = nil
	r.lock.Unlock()
	return nil
}
