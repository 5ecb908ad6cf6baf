package dig

import (
	"errors"
)

var ErrInvalidArguments = errors.New("Invalid arguments.")
var ErrClosed = errors.New("Registry is closed.")
var ErrServiceNotFound = errors.New("Service not found.")
var ErrDriverMissing = errors.New("Driver missing.")

// Registry publishes and resolves service nodes.
type Registry interface {
	// Publish announces node under service. Nodes expire after node.Timeout
	// seconds unless published again; 0 means no expiry.
	Publish(service string, node *Node) error

	// Withdraw removes a node published by this process.
	Withdraw(service, name string) error

	// Nodes lists live nodes of service, ordered by name.
	Nodes(service string) ([]*Node, error)

	Close() error
}

// Connector opens a registry from driver specific arguments.
type Connector interface {
	Connect(args ...interface{}) (Registry, error)
}

var Drivers = map[string]Connector{
	"redis":  &RedisConnector{},
	"memory": &MemoryConnector{},
}

func Connect(driver string, args ...interface{}) (Registry, error) {
	connector, ok := Drivers[driver]
	if !ok || connector == nil {
		return nil, ErrDriverMissing
	}
	return connector.Connect(args...)
}

// Resolve returns the metadata value key of the first live node of service.
func Resolve(reg Registry, service, key string) (string, error) {
	nodes, err := reg.Nodes(service)
	if err != nil {
		return "", err
	}
	for _, node := range nodes {
		if value, ok := node.Metadata[key]; ok && value != "" {
			return value, nil
		}
	}
	return "", ErrServiceNotFound
}
