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
	"github.com/Sunmxt/linker-sketch/server/relay"
)

func main() {
	fmt.Println("Shared canvas relay of Linker Sketch.")
	opts, err := relay.ParseOptions(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("%v", err.Error())
		return
	}
	log.Infof0("Log Level is %v.", opts.LogLevel.Value)
	log.SetGlobalLogLevel(opts.LogLevel.Value)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	surface := canvas.NewHeadless("relay")
	defer surface.Close()

	r := relay.New(opts, surface, os.Stdin, os.Stdout)
	log.Infof0("Relay Node ID is %v.", r.ID.String())
	if err = r.Run(ctx); err != nil {
		log.Fatalf("Relay failure: %v", err.Error())
	}
}
