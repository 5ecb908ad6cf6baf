package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Println("Linker-Sketch benchmark tools.")
	config := parseConfigure()
	if config == nil {
		return
	}
	if err := GoFanOut(config); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}
