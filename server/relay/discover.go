package relay

import (
	"time"

	"github.com/Sunmxt/linker-sketch/proto"
	"github.com/Sunmxt/linker-sketch/server/dig"
)

func (r *Relay) openRegistry() (dig.Registry, error) {
	if r.Registry != nil {
		return r.Registry, nil
	}
	if !r.opts.DiscoveryEnabled() {
		return nil, nil
	}
	return dig.Connect("redis", r.opts.RedisEndpoint.Address(), r.opts.RedisPrefix.Value, 2, 4)
}

// Node is the registry entry announcing this relay.
func (r *Relay) Node() *dig.Node {
	publish := r.opts.PublishEndpoint.Address()
	if publish == "" && r.listener != nil {
		publish = r.listener.Addr().String()
	}
	return &dig.Node{
		Name: "relay-" + r.ID.String(),
		Metadata: map[string]string{
			proto.DIG_ENDPOINT_KEY: publish,
			proto.DIG_NODEID_KEY:   r.ID.String(),
		},
		Timeout: 3 * r.opts.KeepalivePeriod.Value,
	}
}

// keepalive publishes the relay node every period until stop is closed,
// then withdraws it.
func (r *Relay) keepalive(reg dig.Registry, period time.Duration) {
	defer r.workers.Done()

	node := r.Node()
	publish := func() {
		if err := reg.Publish(proto.DIG_RELAY_SERVICE_NAME, node); err != nil {
			r.log.Error("Publish relay node failure: " + err.Error())
			return
		}
		r.log.DebugLazy(func() string {
			return "Refreshed node \"" + node.Name + "\" of service \"" + proto.DIG_RELAY_SERVICE_NAME + "\"."
		})
	}

	publish()
	r.log.Info0("Publish relay node \"" + node.Name + "\" at " + node.Metadata[proto.DIG_ENDPOINT_KEY] + ".")

	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			publish()
		case <-r.stop:
			if err := reg.Withdraw(proto.DIG_RELAY_SERVICE_NAME, node.Name); err != nil {
				r.log.Error("Withdraw relay node failure: " + err.Error())
			} else {
				r.log.Info0("Relay node \"" + node.Name + "\" withdrawn.")
			}
			return
		}
	}
}
