package main

import (
	"os"
	"syscall"
)

func main() {
	defer cleanup()
	if len(os.Args) > 3 {
		os.Exit(2) // want `direct os.Exit in main.main skips deferred cleanup`
	}
	go func() {
		syscall.Exit(1) // want `direct syscall.Exit in main.main skips deferred cleanup`
	}()
}

func cleanup() {}

func fail() {
	os.Exit(1)
}
