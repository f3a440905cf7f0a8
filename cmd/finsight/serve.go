package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"finsight/internal/server"
)

func serveMain(root rootArgs, args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	var cfgPath string
	var addr string
	var configOverrides stringSlice
	var runTimeout time.Duration
	fs.StringVar(&cfgPath, "config", "", "Path to config file (default ~/.finsight/config.toml)")
	fs.StringVar(&addr, "addr", ":8080", "Listen address")
	fs.Var(&configOverrides, "c", "Override config value key=value (repeatable)")
	fs.DurationVar(&runTimeout, "run-timeout", 5*time.Minute, "Upper bound for a single chat request")
	if err := fs.Parse(args); err != nil {
		log.Fatalf("parse serve args: %v", err)
	}

	cfg, err := loadConfig(root, cfgPath, configOverrides)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	rt, err := buildRuntime(cfg)
	if err != nil {
		log.Fatalf("failed to initialize: %v", err)
	}
	defer rt.Close()

	srv, err := server.New(server.Options{
		Runner:     rt.loop,
		Gatherer:   rt.registry,
		RunTimeout: runTimeout,
		Version:    version,
	})
	if err != nil {
		log.Fatalf("failed to create server: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(addr)
	}()
	log.Infof("serving chat API on %s (model=%s market=%s index=%s)", addr, cfg.Model, cfg.MarketSource, rt.indexInfo(ctx))

	select {
	case err := <-errCh:
		if err != nil {
			log.Errorf("server stopped: %v", err)
		}
	case <-ctx.Done():
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warnf("shutdown: %v", err)
		}
	}
}
