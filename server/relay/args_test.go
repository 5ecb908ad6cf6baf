package relay

import (
	"flag"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func parse(t *testing.T, args ...string) (*RelayOptions, error) {
	return ParseOptions(flag.NewFlagSet("relay", flag.ContinueOnError), args)
}

func TestRelayOptionsDefaults(t *testing.T) {
	opts, err := parse(t)
	if err != nil {
		t.Fatalf("ParseOptions: %v", err)
	}
	if opts.Endpoint.Address() != "0.0.0.0:5000" || opts.MaxClients.Value != 10 || opts.ConnectionBufferSize.Value != 64 {
		t.Errorf("defaults = %v %v %v", opts.Endpoint, opts.MaxClients, opts.ConnectionBufferSize)
	}
	if opts.WriteTimeout.Value != 5*time.Second {
		t.Errorf("write timeout = %v", opts.WriteTimeout)
	}
	if opts.DiscoveryEnabled() || opts.FatalOnMalformed.Value {
		t.Error("optional features enabled by default")
	}
}

func TestRelayOptionsValidation(t *testing.T) {
	cases := [][]string{
		{"-max-clients", "0"},
		{"-connection-bufsize", "0"},
		{"-write-timeout", "-1s"},
		{"-endpoint", "127.0.0.1"},
		{"-redis-endpoint", "127.0.0.1"},
		{"-redis-endpoint", "127.0.0.1:6379", "-keepalive-period", "0"},
		{"-redis-endpoint", "127.0.0.1:6379"},
	}
	for _, args := range cases {
		if _, err := parse(t, args...); err == nil {
			t.Errorf("ParseOptions(%v) succeeded", args)
		}
	}
}

func TestRelayOptionsPublishFallback(t *testing.T) {
	opts, err := parse(t, "-endpoint", "10.1.1.1:5500", "-redis-endpoint", "127.0.0.1:6379")
	if err != nil {
		t.Fatalf("ParseOptions: %v", err)
	}
	if got := opts.PublishEndpoint.Address(); got != "10.1.1.1:5500" {
		t.Errorf("publish = %q", got)
	}
}

func TestRelayOptionsFromConfigure(t *testing.T) {
	dir, err := ioutil.TempDir("", "linker-sketch-relay")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)
	path := filepath.Join(dir, "relay.yml")
	ioutil.WriteFile(path, []byte("max-clients: 4\nwrite-timeout: 2s\nendpoint: 127.0.0.1:6000\nmanage:\n  endpoint: 127.0.0.1:12361\n"), 0644)

	// Flags win over the file.
	opts, err := parse(t, "-config", path, "-max-clients", "2")
	if err != nil {
		t.Fatalf("ParseOptions: %v", err)
	}
	if opts.MaxClients.Value != 2 {
		t.Errorf("max clients = %v", opts.MaxClients.Value)
	}
	if opts.WriteTimeout.Value != 2*time.Second {
		t.Errorf("write timeout = %v", opts.WriteTimeout)
	}
	if opts.Endpoint.Address() != "127.0.0.1:6000" || opts.ManageEndpoint.Address() != "127.0.0.1:12361" {
		t.Errorf("endpoints = %v, %v", opts.Endpoint, opts.ManageEndpoint)
	}

	if _, err = parse(t, "-config", filepath.Join(dir, "missing.yml")); err == nil {
		t.Error("missing configure accepted")
	}
}
