/*
This is an example of application that will use the
engine package to render a stereo test pattern
*/
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/maiadx/openxr-app/engine"
	"github.com/maiadx/openxr-app/engine/core"
	"github.com/maiadx/openxr-app/testbed"
)

func main() {
	configPath := flag.String("config", "", "path to a TOML configuration file")
	flag.Parse()

	cfg, logFile, err := engine.LoadApplicationConfig(*configPath)
	if err != nil {
		core.LogFatal(err.Error())
	}
	defer logFile.Close()

	tb := testbed.NewTestGame()

	e, err := engine.New(cfg, tb.Game)
	if err != nil {
		core.LogFatal(err.Error())
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)
	defer stop()

	// start shutdown goroutine
	go func() {
		// capture sigterm and other system call here
		<-ctx.Done()
		e.Stop()
	}()

	err = e.Initialize(ctx)
	if err == nil {
		err = e.Run()
	}
	if serr := e.Shutdown(); err == nil {
		err = serr
	}
	if err != nil {
		core.LogError(err.Error())
		logFile.Close()
		os.Exit(1)
	}
}
