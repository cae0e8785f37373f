// Package main is the entry point for the LacyLights console server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"

	"github.com/bbernstein/lacylights-console/internal/api"
	"github.com/bbernstein/lacylights-console/internal/config"
	"github.com/bbernstein/lacylights-console/internal/database"
	"github.com/bbernstein/lacylights-console/internal/fixture"
	"github.com/bbernstein/lacylights-console/internal/logging"
	"github.com/bbernstein/lacylights-console/internal/metrics"
	"github.com/bbernstein/lacylights-console/internal/services/console"
	"github.com/bbernstein/lacylights-console/internal/services/dmx"
	"github.com/bbernstein/lacylights-console/internal/services/export"
	importservice "github.com/bbernstein/lacylights-console/internal/services/import"
	"github.com/bbernstein/lacylights-console/internal/services/ofl"
	"github.com/bbernstein/lacylights-console/internal/services/pubsub"
	"github.com/bbernstein/lacylights-console/internal/services/remote"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Load .env file if present
	envErr := godotenv.Load()

	cfg := config.Load()
	logging.Init(cfg.LogLevel, cfg.LogPretty)
	if envErr != nil {
		log.Debug().Msg("No .env file found, using environment variables")
	}

	printBanner(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatal().Err(err).Msg("Server failed")
	}
	log.Info().Msg("Server stopped")
}

// app holds the wired services of a running server.
type app struct {
	console *console.Console
	output  *dmx.Service
	sender  *dmx.UDPSender
	store   *database.Store
	events  *pubsub.PubSub
	metrics *metrics.Client
	remote  *remote.Client
	handler http.Handler
}

// newApp connects the database, restores the show and wires every service.
// Nothing is started.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	db, err := database.Connect(database.Config{
		URL:         cfg.DatabaseURL,
		MaxIdleConn: 5,
		MaxOpenConn: 10,
		Debug:       cfg.IsDevelopment(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	a := &app{
		store:   database.NewStore(db),
		events:  pubsub.New(),
		metrics: metrics.New(cfg.DDAgentAddr, cfg.DDNamespace, "env:"+cfg.Env),
		sender:  dmx.NewUDPSender(),
	}

	lib := fixture.NewLibrary()
	if cfg.OFLFixtureDir != "" {
		if _, err := ofl.LoadDir(cfg.OFLFixtureDir, lib); err != nil {
			log.Warn().Err(err).Str("dir", cfg.OFLFixtureDir).Msg("⚠️  Failed to load OFL fixtures")
		}
	}

	a.console = console.New(console.Options{
		Library:       lib,
		UniverseCount: cfg.DMXUniverseCount,
		Store:         a.store,
		Events:        a.events,
		Recorder:      a.metrics,
	})

	show, err := a.store.Load(ctx, lib)
	if err != nil {
		return nil, fmt.Errorf("failed to load show: %w", err)
	}
	if err := a.console.Restore(show); err != nil {
		return nil, fmt.Errorf("failed to restore show: %w", err)
	}
	log.Info().
		Int("fixtures", len(show.Fixtures)).
		Int("cues", len(show.Cues)).
		Int("presets", len(show.Presets)).
		Int("groups", len(show.Groups)).
		Msg("🎭 Show restored")

	if cfg.PatchFile != "" {
		if err := applyPatchFile(a.console, lib, cfg.PatchFile); err != nil {
			return nil, err
		}
	}

	dmxCfg, err := outputConfig(ctx, cfg, a.store)
	if err != nil {
		return nil, err
	}
	dmxCfg.Recorder = a.metrics
	a.output = dmx.NewService(dmxCfg, a.console, a.sender)

	if cfg.MQTTBroker != "" {
		a.remote = remote.New(remote.Config{
			Broker:      cfg.MQTTBroker,
			ClientID:    cfg.MQTTClientID,
			TopicPrefix: cfg.MQTTTopicPrefix,
			User:        cfg.MQTTUser,
			Password:    cfg.MQTTPassword,
		}, a.console)
	}

	router := api.NewServer(api.Options{
		Console:  a.console,
		Output:   a.output,
		Store:    a.store,
		Events:   a.events,
		Version:  Version,
		Exporter: export.NewService(a.console, Version),
		Importer: importservice.NewService(a.console, lib),
	}).Router()

	corsMiddleware := cors.New(cors.Options{
		AllowedOrigins:   []string{cfg.CORSOrigin, "http://localhost:3000", "http://localhost:4000"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		AllowCredentials: true,
		Debug:            false,
	})
	a.handler = corsMiddleware.Handler(router)

	return a, nil
}

// applyPatchFile patches the fixtures of a YAML or TOML patch file on top of
// the restored show.
func applyPatchFile(c *console.Console, lib *fixture.Library, path string) error {
	pf, err := fixture.LoadPatchFile(path)
	if err != nil {
		return err
	}
	fixtures, err := pf.Resolve(lib)
	if err != nil {
		return fmt.Errorf("invalid patch file %s: %w", path, err)
	}
	if err := c.AddFixtures(fixtures...); err != nil {
		return fmt.Errorf("failed to apply patch file %s: %w", path, err)
	}
	log.Info().Str("file", path).Int("fixtures", len(fixtures)).Msg("💡 Patch file loaded")
	return nil
}

// outputConfig starts from the environment and replaces each protocol's
// settings with the stored ones, if any.
func outputConfig(ctx context.Context, cfg *config.Config, store *database.Store) (dmx.Config, error) {
	out := cfg.DMX()

	artnet, ok, err := store.ArtNetConfig(ctx)
	if err != nil {
		return out, fmt.Errorf("failed to load Art-Net configuration: %w", err)
	}
	if ok {
		log.Info().Str("mode", artnet.Mode).Str("address", artnet.IPAddress).Msg("📡 Loading saved Art-Net configuration")
		out.ArtNet = artnet
	}

	sacn, ok, err := store.SACNConfig(ctx)
	if err != nil {
		return out, fmt.Errorf("failed to load sACN configuration: %w", err)
	}
	if ok {
		log.Info().Str("mode", sacn.Mode).Int("universe_start", sacn.UniverseStart).Msg("📡 Loading saved sACN configuration")
		out.SACN = sacn
	}
	return out, nil
}

// run serves until ctx is cancelled, then shuts everything down in reverse order.
func run(ctx context.Context, cfg *config.Config) error {
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = database.Close() }()
	defer func() { _ = a.metrics.Close() }()
	defer func() { _ = a.sender.Close() }()

	a.console.Start()
	if err := a.output.Start(ctx); err != nil {
		return fmt.Errorf("failed to start DMX output: %w", err)
	}

	if a.remote != nil {
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		if err := a.remote.Start(connectCtx); err != nil {
			log.Warn().Err(err).Str("broker", cfg.MQTTBroker).Msg("MQTT broker not reachable yet, retrying in background")
		}
		cancel()
	}

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      a.handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info().Msgf("Server listening on http://localhost:%s", cfg.Port)
		log.Info().Msgf("WebSocket events: ws://localhost:%s/ws", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("Shutting down server...")
	case err := <-serverErr:
		if err != nil {
			log.Error().Err(err).Msg("Server error")
		}
	}

	if a.remote != nil {
		a.remote.Stop()
	}
	a.console.Stop()
	a.output.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}
	return nil
}

// printBanner prints the startup banner.
func printBanner(cfg *config.Config) {
	fmt.Println("============================================")
	fmt.Println("  LacyLights Console")
	fmt.Printf("  Version: %s\n", Version)
	fmt.Printf("  Build:   %s\n", BuildTime)
	fmt.Printf("  Commit:  %s\n", GitCommit)
	fmt.Println("============================================")
	fmt.Printf("  Environment: %s\n", cfg.Env)
	fmt.Printf("  Port:        %s\n", cfg.Port)
	fmt.Printf("  Database:    %s\n", cfg.DatabaseURL)
	fmt.Printf("  Frame rate:  %d Hz\n", cfg.DMXFrameRate)
	fmt.Printf("  Art-Net:     %v\n", cfg.ArtNetEnabled)
	fmt.Printf("  sACN:        %v\n", cfg.SACNEnabled)
	if cfg.MQTTBroker != "" {
		fmt.Printf("  MQTT:        %s\n", cfg.MQTTBroker)
	}
	fmt.Println("============================================")
}
