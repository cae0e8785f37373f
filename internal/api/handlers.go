package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/bbernstein/lacylights-console/internal/services/dmx"
	"github.com/bbernstein/lacylights-console/internal/services/export"
	importservice "github.com/bbernstein/lacylights-console/internal/services/import"
	"github.com/bbernstein/lacylights-console/internal/services/network"
	"github.com/bbernstein/lacylights-console/internal/services/pubsub"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 64 << 10

// CommandRequest is the body of POST /api/command.
type CommandRequest struct {
	Command string `json:"command"`
}

// CommandResponse reports the outcome of a command.
type CommandResponse struct {
	Input   string `json:"input"`
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// OutputConfigEvent is published when an output configuration changes.
type OutputConfigEvent struct {
	Protocol string      `json:"protocol"`
	Config   interface{} `json:"config"`
}

// UniverseResponse is the body of GET /api/universes/{universe}.
type UniverseResponse struct {
	Universe int   `json:"universe"`
	Channels []int `json:"channels"`
}

// OutputStats is the body of GET /api/output/stats.
type OutputStats struct {
	dmx.Stats
	RateHz int `json:"rateHz"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("Failed to write JSON response")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return false
	}
	return true
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   s.version,
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	var req CommandRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res := s.console.Submit(req.Command)
	writeJSON(w, http.StatusOK, CommandResponse{Input: req.Command, Success: res.Success, Message: res.Message})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.console.State())
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	entries := s.console.History().Entries()
	if entries == nil {
		entries = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"entries": entries})
}

func (s *Server) handleUniverse(w http.ResponseWriter, r *http.Request) {
	universe, err := strconv.Atoi(chi.URLParam(r, "universe"))
	if err != nil || universe < 0 {
		writeError(w, http.StatusBadRequest, "universe must be a non-negative integer")
		return
	}
	data, ok := s.output.Universe(universe)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("universe %d has not been output", universe))
		return
	}
	channels := make([]int, len(data))
	for i, b := range data {
		channels[i] = int(b)
	}
	writeJSON(w, http.StatusOK, UniverseResponse{Universe: universe, Channels: channels})
}

func (s *Server) handleOutputStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, OutputStats{Stats: s.output.Stats(), RateHz: s.output.Rate()})
}

func (s *Server) handleSetRate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RateHz int `json:"rateHz"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"rateHz": s.output.SetRate(req.RateHz)})
}

func (s *Server) handleTargets(w http.ResponseWriter, r *http.Request) {
	targets, err := s.targets()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, targets)
}

func (s *Server) handleGetArtNet(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.output.ArtNetConfig())
}

func (s *Server) handlePutArtNet(w http.ResponseWriter, r *http.Request) {
	var cfg dmx.ArtNetConfig
	if !decodeJSON(w, r, &cfg) {
		return
	}
	cfg = cfg.Normalize()
	if cfg.Mode == dmx.ModeUnicast && strings.TrimSpace(cfg.IPAddress) == "" {
		writeError(w, http.StatusBadRequest, "unicast mode requires an ipAddress")
		return
	}
	if cfg.IPAddress != "" {
		if err := network.ValidateOutputAddress(cfg.IPAddress); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	if !s.save(r.Context(), w, "Art-Net", func(ctx context.Context) error { return s.store.SaveArtNetConfig(ctx, cfg) }) {
		return
	}
	cfg = s.output.UpdateArtNet(cfg)
	s.events.Publish(pubsub.TopicOutputConfig, "artnet", OutputConfigEvent{Protocol: "artnet", Config: cfg})
	writeJSON(w, http.StatusOK, cfg)
}

func (s *Server) handleGetSACN(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.output.SACNConfig())
}

func (s *Server) handlePutSACN(w http.ResponseWriter, r *http.Request) {
	var cfg dmx.SACNConfig
	if !decodeJSON(w, r, &cfg) {
		return
	}
	cfg = cfg.Normalize()
	if cfg.Mode == dmx.ModeUnicast {
		if err := network.ValidateOutputAddress(cfg.IPAddress); err != nil {
			writeError(w, http.StatusBadRequest, "unicast mode requires a valid ipAddress: "+err.Error())
			return
		}
	}
	if !s.save(r.Context(), w, "sACN", func(ctx context.Context) error { return s.store.SaveSACNConfig(ctx, cfg) }) {
		return
	}
	cfg = s.output.UpdateSACN(cfg)
	s.events.Publish(pubsub.TopicOutputConfig, "sacn", OutputConfigEvent{Protocol: "sacn", Config: cfg})
	writeJSON(w, http.StatusOK, cfg)
}

// save persists a configuration before it is applied. A server without a
// store applies changes for the current run only.
func (s *Server) save(ctx context.Context, w http.ResponseWriter, what string, fn func(ctx context.Context) error) bool {
	if s.store == nil {
		return true
	}
	if err := fn(ctx); err != nil {
		log.Error().Err(err).Str("protocol", what).Msg("❌ Failed to save output configuration")
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to save %s configuration", what))
		return false
	}
	return true
}

// maxShowBytes bounds imported show files.
const maxShowBytes = 16 << 20

// ImportResponse is returned by POST /api/show/import.
type ImportResponse struct {
	Stats    *importservice.ImportStats `json:"stats"`
	Warnings []string                   `json:"warnings"`
}

func (s *Server) handleExportShow(w http.ResponseWriter, r *http.Request) {
	var description *string
	if d := r.URL.Query().Get("description"); d != "" {
		description = &d
	}
	exported, stats := s.exporter.ExportShow(description)
	log.Info().Int("fixtures", stats.FixturesCount).Int("cues", stats.CuesCount).Msg("📤 Show exported")
	w.Header().Set("Content-Disposition", `attachment; filename="show.json"`)
	writeJSON(w, http.StatusOK, exported)
}

func (s *Server) handleImportShow(w http.ResponseWriter, r *http.Request) {
	mode, err := importservice.ParseImportMode(r.URL.Query().Get("mode"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxShowBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	content := string(body)
	if _, err := export.ParseExportedShow(content); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	stats, warnings, err := s.importer.ImportShow(r.Context(), content, importservice.ImportOptions{Mode: mode})
	if err != nil {
		log.Error().Err(err).Msg("❌ Show import failed")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if warnings == nil {
		warnings = []string{}
	}
	writeJSON(w, http.StatusOK, ImportResponse{Stats: stats, Warnings: warnings})
}
