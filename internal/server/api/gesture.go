package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/ayusman/palmpay/internal/app"
	"github.com/ayusman/palmpay/internal/gesture"
	"github.com/ayusman/palmpay/internal/store"
)

const defaultHistoryLimit = 10

// GestureHandler serves /api/gesture/*.
type GestureHandler struct {
	app    *app.App
	events *store.EventRepository
}

// NewGestureHandler creates a GestureHandler. events may be nil, in which
// case /api/gesture/events reports 404.
func NewGestureHandler(a *app.App, events *store.EventRepository) *GestureHandler {
	return &GestureHandler{app: a, events: events}
}

// ServeHTTP routes /api/gesture/{process,classify,smooth,validate,history,types,events}.
func (h *GestureHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	route := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/gesture"), "/")

	type endpoint struct {
		method string
		fn     func(http.ResponseWriter, *http.Request)
	}
	routes := map[string][]endpoint{
		"process":  {{http.MethodPost, h.process}},
		"classify": {{http.MethodPost, h.classify}},
		"smooth":   {{http.MethodPost, h.smooth}},
		"validate": {{http.MethodPost, h.validate}},
		"history":  {{http.MethodGet, h.history}, {http.MethodDelete, h.resetHistory}},
		"types":    {{http.MethodGet, h.types}},
		"events":   {{http.MethodGet, h.listEvents}},
	}

	endpoints, ok := routes[route]
	if !ok {
		writeError(w, http.StatusNotFound, "Endpoint not found")
		return
	}
	for _, e := range endpoints {
		if e.method == r.Method {
			e.fn(w, r)
			return
		}
	}
	writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
}

type processResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	app.Report
}

// process handles POST /api/gesture/process. The gesture is recorded, stored
// and dispatched; results below the confidence threshold answer 422.
func (h *GestureHandler) process(w http.ResponseWriter, r *http.Request) {
	var in gestureInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if in.empty() {
		writeError(w, http.StatusBadRequest, "Missing gesture data")
		return
	}

	report := h.app.Process(r.Context(), in.trajectory(), in.pose(), store.SourceAPI)
	if !report.Result.IsValid {
		writeJSON(w, http.StatusUnprocessableEntity, processResponse{Error: "Low confidence", Report: report})
		return
	}
	writeJSON(w, http.StatusOK, processResponse{Success: true, Report: report})
}

type classifyResponse struct {
	Success bool           `json:"success"`
	Result  gesture.Result `json:"result"`
	Action  string         `json:"action,omitempty"`
}

// classify handles POST /api/gesture/classify without touching the history.
func (h *GestureHandler) classify(w http.ResponseWriter, r *http.Request) {
	var in gestureInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if in.empty() {
		writeError(w, http.StatusBadRequest, "Missing gesture data")
		return
	}

	stop := h.app.Monitor().Time("classify")
	result := h.app.Engine().Classify(in.trajectory(), in.pose())
	stop()

	resp := classifyResponse{Success: true, Result: result}
	if result.IsValid {
		resp.Action, _ = h.app.Dispatcher().ActionFor(result.GestureType)
	}
	writeJSON(w, http.StatusOK, resp)
}

type smoothRequest struct {
	gestureInput
	Strategy json.RawMessage `json:"strategy,omitempty"`
}

type smoothResponse struct {
	Success  bool               `json:"success"`
	Strategy string             `json:"strategy"`
	Points   gesture.Trajectory `json:"smoothed_points"`
}

// smooth handles POST /api/gesture/smooth. An optional strategy object
// overrides the configured smoother for this request only.
func (h *GestureHandler) smooth(w http.ResponseWriter, r *http.Request) {
	var req smoothRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	smoother := h.app.Engine().Smoother()
	if len(req.Strategy) > 0 && string(req.Strategy) != "null" {
		// Omitted parameters keep their defaults; explicit values are validated as sent.
		cfg := gesture.DefaultStrategyConfig()
		if err := json.Unmarshal(req.Strategy, &cfg); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid strategy")
			return
		}
		s, err := gesture.NewSmoother(cfg)
		if err != nil {
			var cfgErr *gesture.ConfigurationError
			if errors.As(err, &cfgErr) && cfgErr.Field == "smoothing strategy" {
				writeErrorHint(w, http.StatusBadRequest, err.Error(), didYouMean(cfg.Name, strategyNames))
				return
			}
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		smoother = s
	}

	stop := h.app.Monitor().Time("smooth")
	points := smoother.Smooth(req.trajectory())
	stop()

	writeJSON(w, http.StatusOK, smoothResponse{Success: true, Strategy: smoother.Name(), Points: points})
}

var strategyNames = []string{
	gesture.StrategyMovingAverage,
	gesture.StrategyExponential,
	gesture.StrategyKalman,
	gesture.StrategyTremor,
	gesture.StrategyAdaptive,
}

type validateRequest struct {
	gestureInput
	GestureType string `json:"gesture_type"`
}

type validateResponse struct {
	Success         bool         `json:"success"`
	IsValid         bool         `json:"is_valid"`
	DetectedGesture gesture.Type `json:"detected_gesture"`
	Confidence      float64      `json:"confidence"`
}

// validate handles POST /api/gesture/validate: the points are valid when they
// classify as the claimed gesture with enough confidence.
func (h *GestureHandler) validate(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.GestureType == "" || len(req.trajectory()) == 0 {
		writeError(w, http.StatusBadRequest, "Missing required fields")
		return
	}

	want, ok := gesture.ParseType(req.GestureType)
	if !ok {
		writeErrorHint(w, http.StatusBadRequest, "Unknown gesture type", didYouMean(req.GestureType, typeNames()))
		return
	}

	stop := h.app.Monitor().Time("validate")
	result := h.app.Engine().Classify(req.trajectory(), req.pose())
	stop()

	writeJSON(w, http.StatusOK, validateResponse{
		Success:         true,
		IsValid:         result.GestureType == want && result.IsValid,
		DetectedGesture: result.GestureType,
		Confidence:      result.Confidence,
	})
}

type historyResponse struct {
	Success bool                   `json:"success"`
	History []gesture.HistoryEntry `json:"history"`
	Count   int                    `json:"count"`
}

// history handles GET /api/gesture/history?limit=N (default 10, 0 for all).
func (h *GestureHandler) history(w http.ResponseWriter, r *http.Request) {
	entries := h.app.Engine().History().Entries(queryLimit(r, defaultHistoryLimit))
	writeJSON(w, http.StatusOK, historyResponse{Success: true, History: entries, Count: len(entries)})
}

func (h *GestureHandler) resetHistory(w http.ResponseWriter, r *http.Request) {
	h.app.Engine().History().Reset()
	w.WriteHeader(http.StatusNoContent)
}

type typesResponse struct {
	Success      bool              `json:"success"`
	Types        []gesture.Type    `json:"types"`
	GestureTypes map[string]string `json:"gesture_types"`
	Compounds    map[string]string `json:"compounds"`
	Threshold    float64           `json:"threshold"`
}

// types handles GET /api/gesture/types.
func (h *GestureHandler) types(w http.ResponseWriter, r *http.Request) {
	engine := h.app.Engine()
	writeJSON(w, http.StatusOK, typesResponse{
		Success:      true,
		Types:        gesture.AllTypes,
		GestureTypes: h.app.Dispatcher().Actions(),
		Compounds:    engine.History().Table().Patterns(),
		Threshold:    engine.Classifier().Threshold(),
	})
}

type eventsResponse struct {
	Success bool           `json:"success"`
	Events  []*store.Event `json:"events"`
	Count   int            `json:"count"`
}

// listEvents handles GET /api/gesture/events?limit=N from the persisted log.
func (h *GestureHandler) listEvents(w http.ResponseWriter, r *http.Request) {
	if h.events == nil {
		writeError(w, http.StatusNotFound, "Event log not configured")
		return
	}

	events, err := h.events.List(queryLimit(r, 50))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list events")
		return
	}
	if events == nil {
		events = []*store.Event{}
	}
	writeJSON(w, http.StatusOK, eventsResponse{Success: true, Events: events, Count: len(events)})
}

func typeNames() []string {
	names := make([]string, len(gesture.AllTypes))
	for i, t := range gesture.AllTypes {
		names[i] = string(t)
	}
	return names
}
