package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Sunmxt/linker-sketch/log"
	"github.com/Sunmxt/linker-sketch/server/canvas"
	"github.com/Sunmxt/linker-sketch/server/peer"
)

func main() {
	fmt.Println("Drawing peer of Linker Sketch.")
	opts, err := peer.ParseOptions(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("%v", err.Error())
		return
	}
	log.SetGlobalLogLevel(opts.LogLevel.Value)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	surface := canvas.NewHeadless("peer")
	defer surface.Close()

	p := peer.New(opts, surface, os.Stdin, os.Stdout)
	if err = p.Connect(ctx); err != nil {
		log.Fatalf("Cannot join relay: %v", err.Error())
		return
	}
	if err = p.Run(ctx); err != nil {
		log.Fatalf("Peer terminated: %v", err.Error())
	}
}
