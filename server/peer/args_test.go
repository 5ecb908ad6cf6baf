package peer

import (
	"flag"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func parse(args ...string) (*PeerOptions, error) {
	return ParseOptions(flag.NewFlagSet("peer", flag.ContinueOnError), args)
}

func TestPeerOptions(t *testing.T) {
	opts, err := parse()
	if err != nil {
		t.Fatalf("defaults: %v", err)
	}
	if opts.Relay.Address() != "127.0.0.1:5000" || opts.HandshakeTimeout.Value != 5*time.Second || opts.LogOwnStrokes.Value {
		t.Errorf("defaults = %v %v %v", opts.Relay, opts.HandshakeTimeout, opts.LogOwnStrokes)
	}

	if opts, err = parse("-relay", "sketch.local"); err != nil || opts.Relay.Address() != "sketch.local:5000" {
		t.Errorf("port fallback: %v, %v", opts, err)
	}

	for _, args := range [][]string{
		{"-discover"},
		{"-handshake-timeout", "0s"},
		{"-relay", ""},
	} {
		if _, err = parse(args...); err == nil {
			t.Errorf("ParseOptions(%v) succeeded", args)
		}
	}
}

func TestPeerOptionsFromConfigure(t *testing.T) {
	dir, err := ioutil.TempDir("", "linker-sketch-peer")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)
	path := filepath.Join(dir, "peer.yml")
	ioutil.WriteFile(path, []byte("relay: 10.0.0.9:5001\nhandshake-timeout: 1s\nlog-own-strokes: true\n"), 0644)

	opts, err := parse("-config", path, "-handshake-timeout", "3s")
	if err != nil {
		t.Fatalf("ParseOptions: %v", err)
	}
	if opts.Relay.Address() != "10.0.0.9:5001" || opts.HandshakeTimeout.Value != 3*time.Second || !opts.LogOwnStrokes.Value {
		t.Errorf("merged = %v %v %v", opts.Relay, opts.HandshakeTimeout, opts.LogOwnStrokes)
	}
}
