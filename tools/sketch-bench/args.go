package main

import (
	"flag"
	"fmt"
	"time"

	"github.com/Sunmxt/linker-sketch/log"
	"github.com/Sunmxt/linker-sketch/proto"
	"github.com/Sunmxt/linker-sketch/utils/cmdline"
)

type BenchmarkConfigure struct {
	Peers         uint
	Strokes       uint
	Timeout       time.Duration
	RelayEndpoint *cmdline.NetEndpointValue
}

func parseConfigure() *BenchmarkConfigure {
	config := &BenchmarkConfigure{}

	relayEndpoint, err := cmdline.NewNetEndpointValueDefault([]string{"tcp"}, fmt.Sprintf("127.0.0.1:%v", proto.DEFAULT_PORT))
	if err != nil {
		log.Panicf("Flag value creating failure: %v", err.Error())
		return nil
	}
	config.RelayEndpoint = relayEndpoint

	flag.UintVar(&config.Peers, "peers", 2, "Number of peers to connect. The first one draws, the others receive.")
	flag.UintVar(&config.Strokes, "strokes", 1000, "Number of strokes to draw.")
	flag.DurationVar(&config.Timeout, "timeout", 30*time.Second, "Give up after this long.")
	flag.Var(config.RelayEndpoint, "relay", "linker-sketch relay endpoint.")

	flag.Parse()

	if config.Peers < 2 {
		log.Warn("Peers is too small. set to 2.")
		config.Peers = 2
	}
	if config.Peers > proto.MAX_CLIENTS {
		log.Warnf("Peers exceeds default relay capacity %v. Rejections are expected.", proto.MAX_CLIENTS)
	}
	if config.Strokes < 1 {
		log.Warn("Strokes is too small. set to 1.")
		config.Strokes = 1
	}

	log.Info0("Configure:")
	flag.VisitAll(func(fl *flag.Flag) {
		log.Info0("\t-" + fl.Name + "=" + fl.Value.String())
	})

	return config
}
