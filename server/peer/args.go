package peer

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

type PeerOptions struct {
	ExternalConfig *cmdline.StringValue
	LogLevel       *cmdline.UintValue

	// Relay to dial when discovery is off.
	Relay *cmdline.NetEndpointValue

	// Resolve the relay from the discovery registry.
	Discover *cmdline.BoolValue

	RedisEndpoint *cmdline.NetEndpointValue
	RedisPrefix   *cmdline.StringValue

	// Bound on dial plus identity assignment.
	HandshakeTimeout *cmdline.DurationValue

	// Keep own strokes in the local log so they survive a redraw.
	LogOwnStrokes *cmdline.BoolValue
}

func NewPeerOptions() *PeerOptions {
	relay, err := cmdline.NewNetEndpointValueDefault([]string{"tcp"}, fmt.Sprintf("127.0.0.1:%v", proto.DEFAULT_PORT))
	if err != nil {
		log.Panicf("Flag value creating failure: %v", err.Error())
	}
	redis, err := cmdline.NewNetEndpointValueDefault([]string{"tcp"}, "")
	if err != nil {
		log.Panicf("Flag value creating failure: %v", err.Error())
	}
	return &PeerOptions{
		ExternalConfig:   cmdline.NewStringValue(),
		LogLevel:         cmdline.NewUintValueDefault(0),
		Relay:            relay,
		Discover:         cmdline.NewBoolValueDefault(false),
		RedisEndpoint:    redis,
		RedisPrefix:      cmdline.NewStringValueDefault("linker_sketch"),
		HandshakeTimeout: cmdline.NewDurationValueDefault(5 * time.Second),
		LogOwnStrokes:    cmdline.NewBoolValueDefault(false),
	}
}

func (options *PeerOptions) Register(set *flag.FlagSet) {
	set.Var(options.ExternalConfig, "config", "Configure YAML.")
	set.Var(options.LogLevel, "log-level", "Log level.")
	set.Var(options.Relay, "relay", "Relay endpoint.")
	set.Var(options.Discover, "discover", "Find the relay in the discovery registry.")
	set.Var(options.RedisEndpoint, "redis-endpoint", "Redis endpoint of discovery registry.")
	set.Var(options.RedisPrefix, "redis-prefix", "Redis key prefix.")
	set.Var(options.HandshakeTimeout, "handshake-timeout", "Time allowed for connecting and identity assignment.")
	set.Var(options.LogOwnStrokes, "log-own-strokes", "Keep own strokes for redraw.")
}

func (options *PeerOptions) SetDefaultFromConfigure(cfg *config.PeerConfigure) error {
	if options.LogLevel.IsDefault {
		options.LogLevel.Value = cfg.LogLevel
	}
	if options.Relay.IsDefault && cfg.Relay != "" {
		if err := options.Relay.Set(cfg.Relay); err != nil {
			return err
		}
	}
	if options.Discover.IsDefault {
		options.Discover.Value = cfg.Discover
	}
	if options.RedisEndpoint.IsDefault && cfg.Discovery.RedisEndpoint != "" {
		if err := options.RedisEndpoint.Set(cfg.Discovery.RedisEndpoint); err != nil {
			return err
		}
	}
	if options.RedisPrefix.IsDefault && cfg.Discovery.RedisPrefix != "" {
		options.RedisPrefix.Value = cfg.Discovery.RedisPrefix
	}
	if options.HandshakeTimeout.IsDefault && cfg.HandshakeTimeout != "" {
		if err := options.HandshakeTimeout.Set(cfg.HandshakeTimeout); err != nil {
			return err
		}
	}
	if options.LogOwnStrokes.IsDefault {
		options.LogOwnStrokes.Value = cfg.LogOwnStrokes
	}
	return nil
}

func (options *PeerOptions) SetDefault() error {
	if options.HandshakeTimeout.Value == 0 {
		return errors.New("Handshake timeout should not be 0. (See \"-handshake-timeout\")")
	}
	if options.Discover.Value {
		if options.RedisEndpoint.Host == "" || !options.RedisEndpoint.HasPort {
			return errors.New("Discovery needs a redis endpoint with port. (See \"-redis-endpoint\")")
		}
		return nil
	}
	if options.Relay.Host == "" {
		return errors.New("Relay host should not be empty. (See \"-relay\")")
	}
	if !options.Relay.HasPort {
		options.Relay.Port, options.Relay.HasPort = proto.DEFAULT_PORT, true
	}
	return nil
}

func ParseOptions(set *flag.FlagSet, args []string) (*PeerOptions, error) {
	options := NewPeerOptions()
	options.Register(set)
	if err := set.Parse(args); err != nil {
		return nil, err
	}

	if options.ExternalConfig.Value != "" {
		log.Info0("External configure: " + options.ExternalConfig.Value)
		external := &config.PeerConfigure{}
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
