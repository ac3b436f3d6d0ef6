// Package plugin discovers and runs out-of-process action plugins.
//
// A plugin is a directory holding a plugin.json manifest and an executable.
// The executable receives one JSON Request on stdin and must print one JSON
// Response on stdout.
package plugin

import (
	"encoding/json"
	"slices"
)

// ManifestFile is the manifest file name looked up in each plugin directory.
const ManifestFile = "plugin.json"

// Manifest describes a plugin's metadata and the actions it accepts.
type Manifest struct {
	Name         string          `json:"name"`
	Version      string          `json:"version"`
	Description  string          `json:"description"`
	Executable   string          `json:"executable"`
	Actions      []string        `json:"actions"`
	ConfigSchema json.RawMessage `json:"configSchema,omitempty"`
}

// Supports reports whether action is listed in the manifest. A manifest
// without actions accepts any action.
func (m Manifest) Supports(action string) bool {
	return len(m.Actions) == 0 || slices.Contains(m.Actions, action)
}

// Request is the payload written to a plugin's stdin.
type Request struct {
	Action     string          `json:"action"`
	Gesture    string          `json:"gesture"`
	Confidence float64         `json:"confidence"`
	Compound   string          `json:"compound,omitempty"`
	Timestamp  int64           `json:"timestamp"`
	Config     json.RawMessage `json:"config,omitempty"`
	Params     json.RawMessage `json:"params,omitempty"`
}

// Response is the payload a plugin prints on stdout.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Plugin is a discovered plugin with its manifest and location.
type Plugin struct {
	Manifest   Manifest
	Path       string
	Executable string
}
