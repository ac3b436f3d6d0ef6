package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/ayusman/palmpay/internal/gesture"
	"github.com/ayusman/palmpay/internal/store"
)

// BindingHandler handles HTTP requests for trigger bindings. A trigger is
// either a gesture type or a compound action name.
type BindingHandler struct {
	store  *store.Store
	engine *gesture.Engine
}

// NewBindingHandler creates a BindingHandler. The engine supplies the set of
// compound actions accepted as triggers.
func NewBindingHandler(s *store.Store, engine *gesture.Engine) *BindingHandler {
	return &BindingHandler{store: s, engine: engine}
}

// ServeHTTP routes /api/bindings and /api/bindings/{id}.
func (h *BindingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/bindings"), "/")

	if id == "" {
		switch r.Method {
		case http.MethodGet:
			h.list(w, r)
		case http.MethodPost:
			h.create(w, r)
		default:
			writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.get(w, r, id)
	case http.MethodPut:
		h.update(w, r, id)
	case http.MethodDelete:
		h.delete(w, r, id)
	default:
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

type bindingRequest struct {
	Trigger    string          `json:"trigger"`
	PluginName string          `json:"plugin_name"`
	ActionName string          `json:"action_name"`
	Config     json.RawMessage `json:"config"`
	Enabled    *bool           `json:"enabled"`
}

type bindingResponse struct {
	ID         string          `json:"id"`
	Trigger    string          `json:"trigger"`
	PluginName string          `json:"plugin_name"`
	ActionName string          `json:"action_name"`
	Config     json.RawMessage `json:"config"`
	Enabled    bool            `json:"enabled"`
	CreatedAt  string          `json:"created_at"`
}

type listBindingsResponse struct {
	Bindings []bindingResponse `json:"bindings"`
}

func toBindingResponse(b *store.Binding) bindingResponse {
	config := b.Config
	if config == nil {
		config = json.RawMessage("{}")
	}
	return bindingResponse{
		ID:         b.ID,
		Trigger:    b.Trigger,
		PluginName: b.PluginName,
		ActionName: b.ActionName,
		Config:     config,
		Enabled:    b.Enabled,
		CreatedAt:  b.CreatedAt.Format(time.RFC3339),
	}
}

// triggers lists every name a binding may be keyed on.
func (h *BindingHandler) triggers() []string {
	names := typeNames()
	if h.engine != nil {
		names = append(names, h.engine.History().Table().Actions()...)
	}
	return names
}

// checkTrigger writes a 400 with a suggestion and reports false when trigger
// is not a known gesture or compound action.
func (h *BindingHandler) checkTrigger(w http.ResponseWriter, trigger string) bool {
	known := h.triggers()
	for _, k := range known {
		if k == trigger {
			return true
		}
	}
	writeErrorHint(w, http.StatusBadRequest, "Unknown trigger "+trigger, didYouMean(trigger, known))
	return false
}

// list handles GET /api/bindings.
func (h *BindingHandler) list(w http.ResponseWriter, r *http.Request) {
	bindings, err := h.store.Bindings().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list bindings")
		return
	}

	response := listBindingsResponse{Bindings: make([]bindingResponse, 0, len(bindings))}
	for _, b := range bindings {
		response.Bindings = append(response.Bindings, toBindingResponse(b))
	}
	writeJSON(w, http.StatusOK, response)
}

// get handles GET /api/bindings/{id}.
func (h *BindingHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	b, err := h.store.Bindings().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Binding not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get binding")
		return
	}
	writeJSON(w, http.StatusOK, toBindingResponse(b))
}

// create handles POST /api/bindings. New bindings are enabled unless the
// request says otherwise.
func (h *BindingHandler) create(w http.ResponseWriter, r *http.Request) {
	var req bindingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	switch {
	case req.Trigger == "":
		writeError(w, http.StatusBadRequest, "trigger is required")
		return
	case req.PluginName == "":
		writeError(w, http.StatusBadRequest, "plugin_name is required")
		return
	case req.ActionName == "":
		writeError(w, http.StatusBadRequest, "action_name is required")
		return
	}
	if !h.checkTrigger(w, req.Trigger) {
		return
	}

	b := &store.Binding{
		Trigger:    req.Trigger,
		PluginName: req.PluginName,
		ActionName: req.ActionName,
		Config:     req.Config,
		Enabled:    req.Enabled == nil || *req.Enabled,
	}
	if err := h.store.Bindings().Create(b); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			writeError(w, http.StatusConflict, "Trigger already bound")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to create binding")
		return
	}
	writeJSON(w, http.StatusCreated, toBindingResponse(b))
}

// update handles PUT /api/bindings/{id}. Omitted fields keep their values.
func (h *BindingHandler) update(w http.ResponseWriter, r *http.Request, id string) {
	b, err := h.store.Bindings().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Binding not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get binding")
		return
	}

	var req bindingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.Trigger != "" {
		if !h.checkTrigger(w, req.Trigger) {
			return
		}
		b.Trigger = req.Trigger
	}
	if req.PluginName != "" {
		b.PluginName = req.PluginName
	}
	if req.ActionName != "" {
		b.ActionName = req.ActionName
	}
	if req.Config != nil {
		b.Config = req.Config
	}
	if req.Enabled != nil {
		b.Enabled = *req.Enabled
	}

	if err := h.store.Bindings().Update(b); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			writeError(w, http.StatusConflict, "Trigger already bound")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to update binding")
		return
	}
	writeJSON(w, http.StatusOK, toBindingResponse(b))
}

// delete handles DELETE /api/bindings/{id}.
func (h *BindingHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.store.Bindings().Delete(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Binding not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete binding")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
