package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/protocolindex/projectsink/cmd/projectsink/commands"
	"github.com/protocolindex/projectsink/config"
	"github.com/protocolindex/projectsink/libs/cli"
	"github.com/protocolindex/projectsink/libs/log"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	conf, err := commands.ParseConfig(config.DefaultConfig())
	if err != nil {
		panic(err)
	}

	logger, err := log.NewDefaultLogger(conf.LogFormat, conf.LogLevel)
	if err != nil {
		panic(err)
	}

	rcmd := commands.RootCommand(conf, logger)
	rcmd.AddCommand(
		commands.MakeInitCommand(conf, logger),
		commands.MakeMigrateCommand(conf, logger),
		commands.MakeIndexCommand(conf, logger),
		commands.MakeDecodeCommand(conf),
		commands.VersionCmd,
	)

	if err := cli.RunWithTrace(ctx, rcmd); err != nil {
		os.Exit(2)
	}
}
