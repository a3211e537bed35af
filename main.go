/*
Prism runs the resource pipeline of the engine: it converts the files dropped
under the resource tree, keeps them in sync while they change and serves the
editor API.
*/
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/spaghettifunk/prism/engine"
	"github.com/spaghettifunk/prism/engine/core"
)

func main() {
	configPath := flag.String("config", "prism.toml", "path of the TOML configuration")
	projectDir := flag.String("project", "", "copy the resource tree into this directory and exit")
	flag.Parse()

	config, err := engine.LoadApplicationConfig(*configPath)
	if err != nil {
		core.LogFatal(err.Error())
	}

	e, err := engine.New(config, nil)
	if err != nil {
		core.LogFatal(err.Error())
	}

	if err := e.Initialize(); err != nil {
		core.LogFatal(err.Error())
	}

	if *projectDir != "" {
		if err := e.ResourceSystem().PrepareProjectDirectory(*projectDir); err != nil {
			core.LogError(err.Error())
		}
		_ = e.Shutdown()
		return
	}

	// signal channel to capture system calls
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)

	go func() {
		// capture sigterm and other system call here
		<-sigCh
		e.Stop()
	}()

	// run engine
	if err := e.Run(context.Background()); err != nil {
		core.LogError(err.Error())
	}
	if err := e.Shutdown(); err != nil {
		core.LogFatal(err.Error())
	}
}
