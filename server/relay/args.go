package relay

import (
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/Sunmxt/linker-sketch/config"
	"github.com/Sunmxt/linker-sketch/log"
	"github.com/Sunmxt/linker-sketch/proto"
	"github.com/Sunmxt/linker-sketch/utils/cmdline"
)

type RelayOptions struct {
	ExternalConfig *cmdline.StringValue
	LogLevel       *cmdline.UintValue

	// Endpoint to accept peers on.
	Endpoint *cmdline.NetEndpointValue

	// Number of session slots.
	MaxClients *cmdline.UintValue

	// Max number of envelopes queued for one session. Forwarding waits
	// while the queue is full.
	ConnectionBufferSize *cmdline.UintValue

	// A peer whose socket accepts nothing for this long is disconnected.
	// Zero waits forever.
	WriteTimeout *cmdline.DurationValue

	// Exit on a malformed envelope instead of dropping the sender.
	FatalOnMalformed *cmdline.BoolValue

	// Management API endpoint. Empty disables the API.
	ManageEndpoint *cmdline.NetEndpointValue

	// Messages buffered per /v1/watch spectator. Oldest are overwritten.
	WatchBufferSize *cmdline.UintValue

	// Redis endpoint of discovery registry. Empty disables publishing.
	RedisEndpoint *cmdline.NetEndpointValue

	// Redis key prefix.
	RedisPrefix *cmdline.StringValue

	// Endpoint advertised to peers.
	PublishEndpoint *cmdline.NetEndpointValue

	// Seconds between registry refreshes. Can not be 0.
	KeepalivePeriod *cmdline.UintValue
}

func mustEndpoint(schemes []string, raw string) *cmdline.NetEndpointValue {
	endpoint, err := cmdline.NewNetEndpointValueDefault(schemes, raw)
	if err != nil {
		log.Panicf("Flag value creating failure: %v", err.Error())
	}
	return endpoint
}

func NewRelayOptions() *RelayOptions {
	return &RelayOptions{
		ExternalConfig:       cmdline.NewStringValue(),
		LogLevel:             cmdline.NewUintValueDefault(0),
		Endpoint:             mustEndpoint([]string{"tcp"}, fmt.Sprintf("0.0.0.0:%v", proto.DEFAULT_PORT)),
		MaxClients:           cmdline.NewUintValueDefault(proto.MAX_CLIENTS),
		ConnectionBufferSize: cmdline.NewUintValueDefault(64),
		WriteTimeout:         cmdline.NewDurationValueDefault(5 * time.Second),
		FatalOnMalformed:     cmdline.NewBoolValueDefault(false),
		ManageEndpoint:       mustEndpoint([]string{"tcp", "http"}, ""),
		WatchBufferSize:      cmdline.NewUintValueDefault(256),
		RedisEndpoint:        mustEndpoint([]string{"tcp"}, ""),
		RedisPrefix:          cmdline.NewStringValueDefault("linker_sketch"),
		PublishEndpoint:      mustEndpoint([]string{"tcp"}, ""),
		KeepalivePeriod:      cmdline.NewUintValueDefault(10),
	}
}

func (options *RelayOptions) Register(set *flag.FlagSet) {
	set.Var(options.ExternalConfig, "config", "Configure YAML.")
	set.Var(options.LogLevel, "log-level", "Log level.")
	set.Var(options.Endpoint, "endpoint", "Endpoint to accept peers on.")
	set.Var(options.MaxClients, "max-clients", "Number of session slots.")
	set.Var(options.ConnectionBufferSize, "connection-bufsize", "Max number of buffered envelopes for a connection.")
	set.Var(options.WriteTimeout, "write-timeout", "Disconnect a peer that accepts no data for this long.")
	set.Var(options.FatalOnMalformed, "fatal-on-malformed", "Exit when a peer sends a malformed envelope.")
	set.Var(options.ManageEndpoint, "manage-endpoint", "Manage API Endpoint.")
	set.Var(options.WatchBufferSize, "watch-bufsize", "Max number of buffered messages for a watcher.")
	set.Var(options.RedisEndpoint, "redis-endpoint", "Redis endpoint of discovery registry.")
	set.Var(options.RedisPrefix, "redis-prefix", "Redis key prefix.")
	set.Var(options.PublishEndpoint, "publish", "Endpoint advertised to peers.")
	set.Var(options.KeepalivePeriod, "keepalive-period", "Keepalive period in seconds. Can not be 0.")
}

func (options *RelayOptions) SetDefaultFromConfigure(cfg *config.RelayConfigure) error {
	if options.LogLevel.IsDefault {
		options.LogLevel.Value = cfg.LogLevel
	}
	if options.Endpoint.IsDefault && cfg.Endpoint != "" {
		if err := options.Endpoint.Set(cfg.Endpoint); err != nil {
			return err
		}
	}
	if options.MaxClients.IsDefault && cfg.MaxClients > 0 {
		options.MaxClients.Value = cfg.MaxClients
	}
	if options.ConnectionBufferSize.IsDefault && cfg.ConnectionBuffer > 0 {
		options.ConnectionBufferSize.Value = cfg.ConnectionBuffer
	}
	if options.WriteTimeout.IsDefault && cfg.WriteTimeout != "" {
		if err := options.WriteTimeout.Set(cfg.WriteTimeout); err != nil {
			return err
		}
	}
	if options.FatalOnMalformed.IsDefault {
		options.FatalOnMalformed.Value = cfg.FatalOnMalformed
	}
	if options.ManageEndpoint.IsDefault && cfg.Manage.Endpoint != "" {
		if err := options.ManageEndpoint.Set(cfg.Manage.Endpoint); err != nil {
			return err
		}
	}
	if options.WatchBufferSize.IsDefault && cfg.Manage.WatchBuf > 0 {
		options.WatchBufferSize.Value = cfg.Manage.WatchBuf
	}
	if options.RedisEndpoint.IsDefault && cfg.Discovery.RedisEndpoint != "" {
		if err := options.RedisEndpoint.Set(cfg.Discovery.RedisEndpoint); err != nil {
			return err
		}
	}
	if options.RedisPrefix.IsDefault && cfg.Discovery.RedisPrefix != "" {
		options.RedisPrefix.Value = cfg.Discovery.RedisPrefix
	}
	if options.PublishEndpoint.IsDefault && cfg.Discovery.Publish != "" {
		if err := options.PublishEndpoint.Set(cfg.Discovery.Publish); err != nil {
			return err
		}
	}
	if options.KeepalivePeriod.IsDefault && cfg.Discovery.KeepalivePeriod > 0 {
		options.KeepalivePeriod.Value = cfg.Discovery.KeepalivePeriod
	}
	return nil
}

// DiscoveryEnabled reports whether the relay publishes itself.
func (options *RelayOptions) DiscoveryEnabled() bool {
	return options.RedisEndpoint.Host != ""
}

func (options *RelayOptions) SetDefault() error {
	if !options.Endpoint.HasPort {
		return errors.New("Relay endpoint port should be specified. (See \"-endpoint\")")
	}
	if options.MaxClients.Value < 1 {
		return errors.New("Max clients should not be 0. (See \"-max-clients\")")
	}
	if options.ConnectionBufferSize.Value < 1 {
		return errors.New("Connection buffer size should not be 0. (See \"-connection-bufsize\")")
	}
	if options.WatchBufferSize.Value < 1 {
		return errors.New("Watch buffer size should not be 0. (See \"-watch-bufsize\")")
	}
	if options.ManageEndpoint.Host != "" && !options.ManageEndpoint.HasPort {
		return errors.New("Manage endpoint port should be specified. (See \"-manage-endpoint\")")
	}
	if !options.DiscoveryEnabled() {
		return nil
	}
	if !options.RedisEndpoint.HasPort || options.RedisEndpoint.Port == 0 {
		return errors.New("Redis endpoint port should be specified. (See \"-redis-endpoint\")")
	}
	if options.KeepalivePeriod.Value == 0 {
		return fmt.Errorf("Keepalive period should not be %v. (See \"-keepalive-period\")", options.KeepalivePeriod.Value)
	}
	if options.PublishEndpoint.Host == "" {
		options.PublishEndpoint.Host = options.Endpoint.Host
	}
	if !options.PublishEndpoint.HasPort {
		options.PublishEndpoint.Port, options.PublishEndpoint.HasPort = options.Endpoint.Port, true
	}
	switch options.PublishEndpoint.Host {
	case "0.0.0.0", "":
		return errors.New("Missing publish address. (See \"-publish\")")
	case "localhost", "127.0.0.1":
		log.Warn("Relay publishes a local address: " + options.PublishEndpoint.String())
	}
	return nil
}

// ParseOptions registers relay flags on set, parses args and merges the
// external YAML configure if one is given.
func ParseOptions(set *flag.FlagSet, args []string) (*RelayOptions, error) {
	options := NewRelayOptions()
	options.Register(set)
	if err := set.Parse(args); err != nil {
		return nil, err
	}

	// Load configure when external yaml is given.
	if options.ExternalConfig.Value != "" {
		log.Info0("External configure: " + options.ExternalConfig.Value)
		external := &config.RelayConfigure{}
		if err := config.Load(options.ExternalConfig.Value, external); err != nil {
			return nil, fmt.Errorf("Failed to load configure file: %v", err.Error())
		}
		if err := options.SetDefaultFromConfigure(external); err != nil {
			return nil, fmt.Errorf("Invalid configure: %v", err.Error())
		}
	}

	if err := options.SetDefault(); err != nil {
		return nil, err
	}

	log.Info0("Configurations:")
	set.VisitAll(func(fl *flag.Flag) {
		log.Info0("-" + fl.Name + "=" + fl.Value.String())
	})
	return options, nil
}
