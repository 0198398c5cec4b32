package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"sightline/internal/agent/config"
	"sightline/internal/agent/reporter"
	"sightline/internal/agent/sampler"
	"sightline/internal/agent/scheduler"
	"sightline/internal/logger"
	"sightline/internal/version"

	"go.uber.org/zap"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "", "Path to config file")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	// Show version if requested
	if *showVersion {
		info := version.GetInfo()
		fmt.Println(info.String())
		os.Exit(0)
	}

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.New(cfg.Log, "agent")
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting agent",
		zap.String("agent_id", cfg.Agent.ID),
		zap.String("server", cfg.Agent.Server.Address),
		zap.Duration("report_interval", cfg.Agent.ReportInterval),
		zap.Duration("screenshot_interval", cfg.Agent.ScreenshotInterval))

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize components
	smp := sampler.New()
	rep := reporter.NewReporter(cfg, smp, log)
	sched := scheduler.New(cfg, rep, log)

	// Run the reporting loop in the background
	done := make(chan error, 1)
	go func() {
		done <- sched.Run(ctx)
	}()

	// Handle signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		log.Info("Received signal", zap.String("signal", sig.String()))
		cancel()
		<-done
	case err := <-done:
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Fatal("Scheduler error", zap.Error(err))
		}
	}

	log.Info("Shutdown complete")
}
