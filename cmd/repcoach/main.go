package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/claude/repcoach/internal/api"
	"github.com/claude/repcoach/internal/cache"
	"github.com/claude/repcoach/internal/config"
	"github.com/claude/repcoach/internal/music"
	"github.com/claude/repcoach/internal/session"
	"github.com/claude/repcoach/internal/sync"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	connectMusic := flag.Bool("connect-music", false, "run the music provider OAuth flow and exit")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Println("repcoach", Version)
		return
	}

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	log.Info("RepCoach starting", "version", Version)

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if *connectMusic {
		runMusicConnect(cfg, log)
		return
	}

	// Open local state database
	state, err := cache.Open(cfg.Cache.Dir, log)
	if err != nil {
		log.Error("failed to open state database", "error", err)
		os.Exit(1)
	}
	defer state.Close()
	log.Info("state database opened", "dir", cfg.Cache.Dir)

	// Restore the workout session; a prior snapshot resumes where it left off.
	sess := session.New(state, cfg.Session.DefaultRestSeconds, log)
	if sess.Completed() {
		log.Info("restored session was complete")
	}

	// Backend client + connectivity monitor + auto-sync on reconnect
	client := api.NewClient(cfg.Backend.URL, cfg.Backend.Token)
	monitor := sync.NewMonitor(client.Ping,
		time.Duration(cfg.Cache.ProbeIntervalSeconds)*time.Second, log)
	syncer := sync.NewSyncer(state, client, monitor.Online, log)
	syncer.AttachAutoSync(monitor)
	monitor.Start()
	defer monitor.Close()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info("shutting down", "signal", sig)

	// Last chance to drain the queue before exit.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := syncer.Synchronize(ctx); err != nil {
		log.Warn("final sync skipped", "error", err)
	}
	log.Info("stopped")
}

// runMusicConnect walks the user through the provider OAuth flow and prints
// the refreshable token for the config.
func runMusicConnect(cfg *config.Config, log *slog.Logger) {
	if cfg.Music.ClientID == "" || cfg.Music.ClientSecret == "" {
		log.Error("music.client_id and music.client_secret must be configured")
		os.Exit(1)
	}

	connector := music.NewConnector(
		cfg.Music.ClientID, cfg.Music.ClientSecret,
		cfg.Music.RedirectURI, cfg.Music.CallbackAddr, log)

	fmt.Println("Open this URL in your browser to connect your music account:")
	fmt.Println()
	fmt.Println("  " + connector.AuthURL())
	fmt.Println()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	client, tok, err := connector.Await(ctx)
	if err != nil {
		log.Error("music connect failed", "error", err)
		os.Exit(1)
	}

	player := music.NewWebPlayer(client)
	if err := player.Connect(ctx); err != nil {
		log.Error("music provider rejected the connection", "error", err)
		os.Exit(1)
	}

	log.Info("music account connected")
	fmt.Printf("refresh token: %s\n", tok.RefreshToken)
}
