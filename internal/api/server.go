// Package api serves the console over HTTP: a JSON command and state API and
// a WebSocket event stream.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/bbernstein/lacylights-console/internal/command"
	"github.com/bbernstein/lacylights-console/internal/dispatch"
	"github.com/bbernstein/lacylights-console/internal/services/console"
	"github.com/bbernstein/lacylights-console/internal/services/dmx"
	"github.com/bbernstein/lacylights-console/internal/services/export"
	importservice "github.com/bbernstein/lacylights-console/internal/services/import"
	"github.com/bbernstein/lacylights-console/internal/services/network"
	"github.com/bbernstein/lacylights-console/internal/services/pubsub"
)

// Console is the part of the console the API drives.
type Console interface {
	Submit(text string) dispatch.Result
	State() console.State
	History() *command.History
}

// Output is the DMX output service.
type Output interface {
	ArtNetConfig() dmx.ArtNetConfig
	SACNConfig() dmx.SACNConfig
	UpdateArtNet(cfg dmx.ArtNetConfig) dmx.ArtNetConfig
	UpdateSACN(cfg dmx.SACNConfig) dmx.SACNConfig
	Universe(universe int) ([]byte, bool)
	Stats() dmx.Stats
	Rate() int
	SetRate(hz int) int
}

// ConfigStore persists output configurations.
type ConfigStore interface {
	SaveArtNetConfig(ctx context.Context, cfg dmx.ArtNetConfig) error
	SaveSACNConfig(ctx context.Context, cfg dmx.SACNConfig) error
}

// ShowExporter exports the current show.
type ShowExporter interface {
	ExportShow(description *string) (*export.ExportedShow, *export.ExportStats)
}

// ShowImporter imports a show file.
type ShowImporter interface {
	ImportShow(ctx context.Context, jsonContent string, options importservice.ImportOptions) (*importservice.ImportStats, []string, error)
}

// Options configures a Server.
type Options struct {
	Console  Console
	Output   Output
	Store    ConfigStore
	Events   *pubsub.PubSub
	Version  string
	// Exporter and Importer enable the show file routes when set.
	Exporter ShowExporter
	Importer ShowImporter
	// Targets lists network output targets; defaults to network.Targets.
	Targets func() ([]network.Target, error)
}

// Server holds the HTTP handlers.
type Server struct {
	console  Console
	output   Output
	store    ConfigStore
	events   *pubsub.PubSub
	version  string
	exporter ShowExporter
	importer ShowImporter
	targets  func() ([]network.Target, error)
	started  time.Time

	upgrader     websocket.Upgrader
	pingInterval time.Duration
}

// NewServer creates a Server.
func NewServer(opts Options) *Server {
	if opts.Targets == nil {
		opts.Targets = network.Targets
	}
	if opts.Events == nil {
		opts.Events = pubsub.New()
	}
	return &Server{
		console:  opts.Console,
		output:   opts.Output,
		store:    opts.Store,
		events:   opts.Events,
		version:  opts.Version,
		exporter: opts.Exporter,
		importer: opts.Importer,
		targets:  opts.Targets,
		started:  time.Now(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins for WebSocket
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		pingInterval: 10 * time.Second,
	}
}

// Router builds the route table. CORS is applied by the caller.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Get("/ws", s.handleWebSocket)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))

		r.Post("/command", s.handleCommand)
		r.Get("/state", s.handleState)
		r.Get("/history", s.handleHistory)
		r.Get("/universes/{universe}", s.handleUniverse)
		r.Get("/output/stats", s.handleOutputStats)
		r.Put("/output/rate", s.handleSetRate)
		r.Get("/network/targets", s.handleTargets)

		r.Get("/config/artnet", s.handleGetArtNet)
		r.Put("/config/artnet", s.handlePutArtNet)
		r.Get("/config/sacn", s.handleGetSACN)
		r.Put("/config/sacn", s.handlePutSACN)

		if s.exporter != nil {
			r.Get("/show/export", s.handleExportShow)
		}
		if s.importer != nil {
			r.Post("/show/import", s.handleImportShow)
		}
	})

	return r
}
