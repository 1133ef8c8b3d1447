package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/bietkhonhungvandi212/minidock/internal/config"
	"github.com/bietkhonhungvandi212/minidock/internal/logging"
	"github.com/bietkhonhungvandi212/minidock/internal/paging"
	"github.com/bietkhonhungvandi212/minidock/internal/shell"
	"github.com/bietkhonhungvandi212/minidock/internal/workload"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "minidock:", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	logger, closeLog, err := logging.Init(cfg.LogFile, cfg.LogLevel)
	if err != nil {
		return err
	}
	defer closeLog()

	opts := cfg.Options()
	opts.Logger = logger
	eng, err := paging.New(opts)
	if err != nil {
		return err
	}
	defer eng.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	gen := workload.New(eng, cfg.Workload.Seed, logger)
	sh := shell.New(eng, gen, shell.Settings{
		DefaultMemoryKB: cfg.DefaultMemoryKB,
		Accesses:        cfg.Workload.Accesses,
		Delay:           cfg.Workload.Delay,
	}, os.Stdout)
	return sh.Run(ctx, os.Stdin)
}
