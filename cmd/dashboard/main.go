package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bietkhonhungvandi212/minidock/internal/config"
	"github.com/bietkhonhungvandi212/minidock/internal/dashboard"
	"github.com/bietkhonhungvandi212/minidock/internal/logging"
	"github.com/bietkhonhungvandi212/minidock/internal/paging"
	"github.com/bietkhonhungvandi212/minidock/internal/workload"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "dashboard:", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to YAML config file")
	addr := flag.String("addr", "", "listen address (overrides listen_addr)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *addr != "" {
		cfg.ListenAddr = *addr
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

	gen := workload.New(eng, cfg.Workload.Seed, logger)
	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           dashboard.New(eng, gen, logger).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("dashboard listening", "addr", cfg.ListenAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen %s: %w", cfg.ListenAddr, err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
