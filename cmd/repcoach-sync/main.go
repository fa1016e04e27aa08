package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/claude/repcoach/internal/api"
	"github.com/claude/repcoach/internal/cache"
	"github.com/claude/repcoach/internal/config"
	"github.com/claude/repcoach/internal/sync"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	dryRun := flag.Bool("dry-run", false, "report the queue without sending anything")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Println("repcoach-sync", Version)
		return
	}

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	state, err := cache.Open(cfg.Cache.Dir, log)
	if err != nil {
		log.Error("failed to open state database", "error", err)
		os.Exit(1)
	}
	defer state.Close()

	logs, err := state.Logs()
	if err != nil {
		log.Error("failed to read cached logs", "error", err)
		os.Exit(1)
	}
	log.Info("cache inspected", "queued_logs", len(logs))

	if *dryRun {
		for _, set := range logs {
			fmt.Printf("  %s  %s set %d: %d reps @ %.1f\n",
				set.ID, set.ExerciseName, set.SetNumber, set.ActualReps, set.ActualWeight)
		}
		log.Info("dry run: nothing sent")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	// One-shot: probe once instead of running the monitor loop.
	client := api.NewClient(cfg.Backend.URL, cfg.Backend.Token)
	online := client.Ping(ctx) == nil

	syncer := sync.NewSyncer(state, client, func() bool { return online }, log)
	if err := syncer.Synchronize(ctx); err != nil {
		if errors.Is(err, sync.ErrOffline) {
			log.Error("backend unreachable", "url", cfg.Backend.URL)
		} else {
			log.Error("sync failed", "error", err)
		}
		os.Exit(1)
	}
	log.Info("sync complete", "logs", len(logs))
}
