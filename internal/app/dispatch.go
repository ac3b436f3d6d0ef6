package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/ayusman/palmpay/internal/gesture"
	"github.com/ayusman/palmpay/internal/plugin"
	"github.com/ayusman/palmpay/internal/store"
)

// DefaultActions maps single gestures to the actions they trigger.
var DefaultActions = map[gesture.Type]string{
	gesture.TypeSwipeRight: "payment",
	gesture.TypeSwipeLeft:  "cancel",
	gesture.TypePinch:      "confirm",
	gesture.TypeSpread:     "expand",
	gesture.TypeTap:        "select",
	gesture.TypeDoubleTap:  "quick_pay",
	gesture.TypeCircle:     "trade",
}

// BindingLookup finds the plugin binding for a trigger. It returns nil, nil
// when the trigger is unbound.
type BindingLookup interface {
	GetByTrigger(trigger string) (*store.Binding, error)
}

// PluginSource resolves plugins by name.
type PluginSource interface {
	Get(name string) (*plugin.Plugin, error)
}

// PluginRunner executes one plugin request.
type PluginRunner interface {
	Execute(ctx context.Context, p *plugin.Plugin, req *plugin.Request) (*plugin.Response, error)
}

// DispatcherConfig wires a Dispatcher. Bindings, Plugins and Runner are
// optional; without them dispatch only resolves action names.
type DispatcherConfig struct {
	Actions  map[gesture.Type]string
	Bindings BindingLookup
	Plugins  PluginSource
	Runner   PluginRunner
	Timeout  time.Duration
}

// Dispatch describes what a processed gesture triggered.
type Dispatch struct {
	Trigger  string           `json:"trigger"`
	Action   string           `json:"action"`
	Plugin   string           `json:"plugin,omitempty"`
	Executed bool             `json:"executed"`
	Response *plugin.Response `json:"response,omitempty"`
}

// Dispatcher turns outcomes into actions and runs bound plugins.
type Dispatcher struct {
	actions  map[gesture.Type]string
	bindings BindingLookup
	plugins  PluginSource
	runner   PluginRunner
	timeout  time.Duration
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	actions := cfg.Actions
	if actions == nil {
		actions = DefaultActions
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = plugin.DefaultTimeout
	}
	return &Dispatcher{
		actions:  actions,
		bindings: cfg.Bindings,
		plugins:  cfg.Plugins,
		runner:   cfg.Runner,
		timeout:  timeout,
	}
}

// ActionFor returns the default action for a gesture type.
func (d *Dispatcher) ActionFor(kind gesture.Type) (string, bool) {
	action, ok := d.actions[kind]
	return action, ok
}

// Actions returns the gesture to action table keyed by gesture name.
func (d *Dispatcher) Actions() map[string]string {
	out := make(map[string]string, len(d.actions))
	for k, v := range d.actions {
		out[string(k)] = v
	}
	return out
}

// Dispatch resolves the trigger for o and runs its bound plugin, if any.
// A compound match takes precedence over the gesture that completed it, but
// only when that gesture made it into the history. Invalid results trigger
// nothing and return nil.
func (d *Dispatcher) Dispatch(ctx context.Context, o gesture.Outcome) (*Dispatch, error) {
	var dispatch *Dispatch
	switch {
	case o.Compound != "" && o.Recorded:
		dispatch = &Dispatch{Trigger: o.Compound, Action: o.Compound}
	case o.Result.IsValid:
		action, ok := d.ActionFor(o.Result.GestureType)
		if !ok {
			return nil, nil
		}
		dispatch = &Dispatch{Trigger: string(o.Result.GestureType), Action: action}
	default:
		return nil, nil
	}

	if d.bindings == nil {
		return dispatch, nil
	}

	binding, err := d.bindings.GetByTrigger(dispatch.Trigger)
	if err != nil {
		return dispatch, fmt.Errorf("lookup binding for %s: %w", dispatch.Trigger, err)
	}
	if binding == nil || !binding.Enabled {
		return dispatch, nil
	}

	dispatch.Action = binding.ActionName
	dispatch.Plugin = binding.PluginName
	if d.plugins == nil || d.runner == nil {
		return dispatch, errors.New("plugin execution is not configured")
	}

	p, err := d.plugins.Get(binding.PluginName)
	if err != nil {
		return dispatch, fmt.Errorf("plugin %s: %w", binding.PluginName, err)
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	resp, err := d.runner.Execute(ctx, p, &plugin.Request{
		Action:     binding.ActionName,
		Gesture:    string(o.Result.GestureType),
		Confidence: o.Result.Confidence,
		Compound:   o.Compound,
		Timestamp:  time.Now().UnixMilli(),
		Config:     binding.Config,
	})
	if err != nil {
		return dispatch, fmt.Errorf("run plugin %s: %w", binding.PluginName, err)
	}

	dispatch.Executed = true
	dispatch.Response = resp
	if !resp.Success {
		log.Printf("Plugin %s rejected %s: %s", binding.PluginName, binding.ActionName, resp.Error)
	}
	return dispatch, nil
}
