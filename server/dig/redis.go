package dig

import (
	"sort"
	"time"

	"github.com/gomodule/redigo/redis"
)

type RedisConnector struct{}

// Connect accepts either (*redis.Pool, prefix) or
// (address, prefix, maxIdle, maxActive).
func (c *RedisConnector) Connect(args ...interface{}) (Registry, error) {
	if len(args) < 2 {
		return nil, ErrInvalidArguments
	}
	prefix, ok := args[1].(string)
	if !ok {
		return nil, ErrInvalidArguments
	}
	switch first := args[0].(type) {
	case *redis.Pool:
		if len(args) != 2 {
			return nil, ErrInvalidArguments
		}
		return NewRedisPoolRegistry(first, prefix), nil

	case string:
		if len(args) != 4 {
			return nil, ErrInvalidArguments
		}
		maxIdle, ok := args[2].(int)
		if !ok {
			return nil, ErrInvalidArguments
		}
		maxActive, ok := args[3].(int)
		if !ok {
			return nil, ErrInvalidArguments
		}
		return NewRedisRegistry(first, prefix, maxIdle, maxActive), nil
	}
	return nil, ErrInvalidArguments
}

// RedisRegistry keeps service membership in redis:
//
//	<prefix>{dig-service-<svc>-node}                 set of node names
//	<prefix>{dig-service-<svc>-node-<name>-present}  liveness key with TTL
//	<prefix>{dig-node-<name>}                        node metadata hash
type RedisRegistry struct {
	redis  *redis.Pool
	prefix string
}

func NewRedisPoolRegistry(pool *redis.Pool, prefix string) *RedisRegistry {
	return &RedisRegistry{
		redis:  pool,
		prefix: prefix,
	}
}

func NewRedisRegistry(address, prefix string, maxIdle, maxActive int) *RedisRegistry {
	return NewRedisPoolRegistry(&redis.Pool{
		Dial: func() (redis.Conn, error) {
			return redis.Dial("tcp", address, redis.DialConnectTimeout(3*time.Second))
		},
		MaxIdle:     maxIdle,
		MaxActive:   maxActive,
		Wait:        true,
		IdleTimeout: 5 * time.Minute,
	}, prefix)
}

func (r *RedisRegistry) nodesKey(service string) string {
	return r.prefix + "{dig-service-" + service + "-node}"
}

func (r *RedisRegistry) presentKey(service, name string) string {
	return r.prefix + "{dig-service-" + service + "-node-" + name + "-present}"
}

func (r *RedisRegistry) metadataKey(name string) string {
	return r.prefix + "{dig-node-" + name + "}"
}

func (r *RedisRegistry) redisConnect() (redis.Conn, error) {
	pool := r.redis
	if pool == nil {
		return nil, ErrClosed
	}
	return pool.Get(), nil
}

// drain receives count pipelined replies.
func drain(conn redis.Conn, count int) error {
	if err := conn.Flush(); err != nil {
		return err
	}
	for ; count > 0; count-- {
		if _, err := conn.Receive(); err != nil {
			return err
		}
	}
	return nil
}

func (r *RedisRegistry) Publish(service string, node *Node) error {
	if node == nil || node.Name == "" || service == "" {
		return ErrInvalidArguments
	}
	conn, err := r.redisConnect()
	if err != nil {
		return err
	}
	defer conn.Close()

	count := 0
	send := func(cmd string, args ...interface{}) {
		if err == nil {
			err = conn.Send(cmd, args...)
			count++
		}
	}
	present, meta := r.presentKey(service, node.Name), r.metadataKey(node.Name)
	if node.Timeout > 0 {
		send("SET", present, 1, "EX", node.Timeout)
	} else {
		send("SET", present, 1)
	}
	send("DEL", meta)
	if len(node.Metadata) > 0 {
		send("HMSET", redis.Args{}.Add(meta).AddFlat(node.Metadata)...)
		if node.Timeout > 0 {
			send("EXPIRE", meta, node.Timeout)
		}
	}
	send("SADD", r.nodesKey(service), node.Name)
	if err != nil {
		return err
	}
	return drain(conn, count)
}

func (r *RedisRegistry) Withdraw(service, name string) error {
	conn, err := r.redisConnect()
	if err != nil {
		return err
	}
	defer conn.Close()

	if err = conn.Send("SREM", r.nodesKey(service), name); err != nil {
		return err
	}
	if err = conn.Send("DEL", r.presentKey(service, name), r.metadataKey(name)); err != nil {
		return err
	}
	return drain(conn, 2)
}

func (r *RedisRegistry) Nodes(service string) ([]*Node, error) {
	conn, err := r.redisConnect()
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	names, err := redis.Strings(conn.Do("SMEMBERS", r.nodesKey(service)))
	if err != nil && err != redis.ErrNil {
		return nil, err
	}
	if len(names) < 1 {
		return nil, nil
	}
	sort.Strings(names)

	for _, name := range names {
		if err = conn.Send("GET", r.presentKey(service, name)); err != nil {
			return nil, err
		}
	}
	if err = conn.Flush(); err != nil {
		return nil, err
	}
	live, stale := make([]string, 0, len(names)), make([]string, 0)
	for _, name := range names {
		if _, err = redis.Int64(conn.Receive()); err != nil {
			if err != redis.ErrNil {
				return nil, err
			}
			stale = append(stale, name)
			continue
		}
		live = append(live, name)
	}

	// Forget expired members.
	if len(stale) > 0 {
		if _, err = conn.Do("SREM", redis.Args{}.Add(r.nodesKey(service)).AddFlat(stale)...); err != nil {
			return nil, err
		}
	}

	for _, name := range live {
		if err = conn.Send("HGETALL", r.metadataKey(name)); err != nil {
			return nil, err
		}
	}
	if err = conn.Flush(); err != nil {
		return nil, err
	}
	nodes, now := make([]*Node, 0, len(live)), time.Now()
	for _, name := range live {
		meta, err := redis.StringMap(conn.Receive())
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, &Node{
			Name:       name,
			Metadata:   meta,
			LastActive: now,
		})
	}
	return nodes, nil
}

func (r *RedisRegistry) Close() error {
	pool := r.redis
	r.redis = nil
	if pool == nil {
		return nil
	}
	return pool.Close()
}
