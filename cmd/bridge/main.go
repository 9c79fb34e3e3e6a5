// Itsyhome Bridge - Home Assistant realtime integration layer
//
// This is the main entry point for the Itsyhome bridge. It maintains
// one authenticated WebSocket connection to a Home Assistant hub,
// mirrors the entity snapshot, derives the accessory graph, and keeps
// both live through the state change stream.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nickustinov/itsyhome-bridge/internal/credentials"
	"github.com/nickustinov/itsyhome-bridge/internal/infrastructure/config"
	"github.com/nickustinov/itsyhome-bridge/internal/infrastructure/logging"
	"github.com/nickustinov/itsyhome-bridge/internal/platform"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting Itsyhome bridge",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)

	store, err := credentials.Open(cfg.Credentials.Path)
	if err != nil {
		return fmt.Errorf("opening credential store: %w", err)
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			log.Error("error closing credential store", "error", closeErr)
		}
	}()
	log.Info("credential store opened", "path", cfg.Credentials.Path)

	p := platform.New(cfg, store, log)
	p.SetOnConnectionChanged(func(connected bool) {
		if connected {
			log.Info("hub connected")
		} else {
			log.Warn("hub disconnected")
		}
	})
	p.SetOnGraphChanged(func() {
		graph := p.Graph()
		log.Info("accessory graph updated",
			"rooms", len(graph.Rooms),
			"accessories", len(graph.Accessories),
			"scenes", len(graph.Scenes),
			"cameras", len(graph.Cameras),
		)
	})

	if err := p.Connect(ctx); err != nil {
		if errors.Is(err, platform.ErrNotConfigured) {
			return fmt.Errorf("%w: set server.url and server.token in %s, or ITSYHOME_SERVER_URL and ITSYHOME_TOKEN", err, configPath)
		}
		return fmt.Errorf("connecting to hub: %w", err)
	}
	defer func() {
		log.Info("disconnecting from hub")
		p.Disconnect()
	}()

	if info := p.HubInfo(); info != nil {
		log.Info("hub ready",
			"version", info.Version,
			"location", info.LocationName,
		)
	}

	log.Info("initialisation complete, waiting for shutdown signal")
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses ITSYHOME_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("ITSYHOME_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
