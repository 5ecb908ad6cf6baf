package config

import (
	"io/ioutil"

	yaml "gopkg.in/yaml.v2"
)

type ManagementAPIConfigure struct {
	Endpoint string `yaml:"endpoint,omitempty"`
	WatchBuf uint   `yaml:"watch-bufsize,omitempty"`
}

type DiscoveryConfigure struct {
	RedisEndpoint   string `yaml:"redis-endpoint,omitempty"`
	RedisPrefix     string `yaml:"redis-prefix,omitempty"`
	Publish         string `yaml:"publish,omitempty"`
	KeepalivePeriod uint   `yaml:"keepalive-period,omitempty"`
}

type RelayConfigure struct {
	LogLevel uint `yaml:"log-level,omitempty"`

	Endpoint         string `yaml:"endpoint,omitempty"`
	MaxClients       uint   `yaml:"max-clients,omitempty"`
	ConnectionBuffer uint   `yaml:"connection-bufsize,omitempty"`
	WriteTimeout     string `yaml:"write-timeout,omitempty"`
	FatalOnMalformed bool   `yaml:"fatal-on-malformed,omitempty"`

	Manage    ManagementAPIConfigure `yaml:"manage,omitempty"`
	Discovery DiscoveryConfigure     `yaml:"discovery,omitempty"`
}

type PeerConfigure struct {
	LogLevel uint `yaml:"log-level,omitempty"`

	Relay            string `yaml:"relay,omitempty"`
	Discover         bool   `yaml:"discover,omitempty"`
	HandshakeTimeout string `yaml:"handshake-timeout,omitempty"`
	LogOwnStrokes    bool   `yaml:"log-own-strokes,omitempty"`

	Discovery DiscoveryConfigure `yaml:"discovery,omitempty"`
}

// Load decodes the YAML document at path into cfg.
func Load(path string, cfg interface{}) error {
	raw, err := ioutil.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(raw, cfg)
}
