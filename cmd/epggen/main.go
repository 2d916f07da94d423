// Command epggen runs one guide generation cycle: it fetches upcoming
// schedules for the configured channel registry, normalizes them and writes
// both XMLTV variants plus their gzip companions. An external scheduler
// invokes it hourly; a non-zero exit keeps the publisher from overwriting
// the previous good output.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mkaindl/epggen/internal/cache"
	"github.com/mkaindl/epggen/internal/config"
	"github.com/mkaindl/epggen/internal/jobs"
	xlog "github.com/mkaindl/epggen/internal/log"
	"github.com/mkaindl/epggen/internal/ustvgo"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "epggen.yaml", "path to config file (YAML)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("epggen %s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	os.Exit(run(*configPath))
}

func run(configPath string) int {
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "epggen: %v\n", err)
		return 2
	}

	xlog.Configure(xlog.Config{Level: cfg.LogLevel})
	logger := xlog.WithComponent("main")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	payloadCache := cache.NewMemoryCache(5 * time.Minute)
	defer payloadCache.Close()

	client := ustvgo.New(cfg.UpstreamBaseURL, ustvgo.Options{
		Timeout:       cfg.FetchTimeout(),
		RatePerSecond: cfg.RatePerSecond,
		Cache:         payloadCache,
	})

	runner := jobs.NewRunner(cfg, client)
	status, err := runner.Run(ctx)
	if err != nil {
		var runErr *jobs.RunError
		if errors.As(err, &runErr) {
			logger.Error().Err(err).Str("run_id", status.RunID).Msg("run failed, previous output left untouched")
		} else {
			logger.Error().Err(err).Msg("run aborted")
		}
		return 1
	}

	logger.Info().
		Str("run_id", status.RunID).
		Int("channels_with_data", status.ChannelsWithData).
		Dur("duration", status.Duration).
		Msg("guide generated")
	return 0
}
