// Package server provides the HTTP server for the palmpay gesture service.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ayusman/palmpay/internal/app"
	"github.com/ayusman/palmpay/internal/gesture"
	"github.com/ayusman/palmpay/internal/plugin"
	"github.com/ayusman/palmpay/internal/server/api"
	"github.com/ayusman/palmpay/internal/store"
)

// Config holds the server configuration. Each collaborator is optional and
// only the routes it backs are registered.
type Config struct {
	StaticDir string
	Store     *store.Store
	App       *app.App
	Plugins   *plugin.Manager
}

// Server represents the HTTP server for the palmpay application.
type Server struct {
	config Config
	mux    *http.ServeMux
	hub    *Hub
	start  time.Time
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		hub:    NewHub(),
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	if s.config.App != nil {
		var events *store.EventRepository
		if s.config.Store != nil {
			events = s.config.Store.Events()
		}
		s.mux.Handle("/api/gesture/", api.NewGestureHandler(s.config.App, events))
		s.mux.HandleFunc("/api/stats", s.handleStats)
		s.mux.HandleFunc("/api/pipeline", s.handlePipeline)

		// Every processed gesture is pushed to live subscribers.
		s.config.App.OnOutcome(func(r app.Report) {
			s.hub.Broadcast(liveMessage{Type: "gesture", Report: r})
		})
		s.mux.Handle("/api/live", s.hub)
	}

	if s.config.Store != nil {
		var engine *gesture.Engine
		if s.config.App != nil {
			engine = s.config.App.Engine()
		}
		bindings := api.NewBindingHandler(s.config.Store, engine)
		s.mux.Handle("/api/bindings", bindings)
		s.mux.Handle("/api/bindings/", bindings)
	}

	if s.config.Plugins != nil {
		s.mux.HandleFunc("/api/plugins", s.handlePlugins)
	}

	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Hub returns the live event hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Close disconnects live subscribers.
func (s *Server) Close() {
	s.hub.Close()
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]any{
		"status": "ok",
		"uptime": time.Since(s.start).String(),
	}
	if s.config.App != nil {
		response["latency_stats"] = s.config.App.Monitor().Stats()
		response["pipeline_enabled"] = s.config.App.IsEnabled()
	}
	writeJSON(w, http.StatusOK, response)
}

// handleStats handles GET /api/stats: overall and per-operation latency plus
// stored event counts by gesture type.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	mon := s.config.App.Monitor()
	response := map[string]any{
		"success":    true,
		"latency":    mon.Stats(),
		"operations": mon.Averages(),
	}
	if s.config.Store != nil {
		counts, err := s.config.Store.Events().CountByType()
		if err != nil {
			http.Error(w, "Failed to count events", http.StatusInternalServerError)
			return
		}
		response["gestures"] = counts
	}
	writeJSON(w, http.StatusOK, response)
}

type pipelineState struct {
	Enabled bool   `json:"enabled"`
	Mode    string `json:"mode"`
	FPS     int    `json:"fps"`
}

// handlePipeline reports (GET) or toggles (POST {"enabled": bool}) the
// camera pipeline.
func (s *Server) handlePipeline(w http.ResponseWriter, r *http.Request) {
	a := s.config.App
	switch r.Method {
	case http.MethodGet:
	case http.MethodPost:
		var req struct {
			Enabled *bool `json:"enabled"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Enabled == nil {
			http.Error(w, "enabled is required", http.StatusBadRequest)
			return
		}
		a.SetEnabled(*req.Enabled)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, http.StatusOK, pipelineState{
		Enabled: a.IsEnabled(),
		Mode:    a.Gate().Mode().String(),
		FPS:     a.Gate().FPS(),
	})
}

type pluginInfo struct {
	plugin.Manifest
	Path string `json:"path"`
}

// handlePlugins handles GET /api/plugins.
func (s *Server) handlePlugins(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	plugins := s.config.Plugins.List()
	infos := make([]pluginInfo, 0, len(plugins))
	for _, p := range plugins {
		infos = append(infos, pluginInfo{Manifest: p.Manifest, Path: p.Path})
	}
	writeJSON(w, http.StatusOK, map[string]any{"plugins": infos})
}
