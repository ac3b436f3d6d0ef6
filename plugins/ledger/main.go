// Package main is the ledger plugin. It records each dispatched trigger as
// one JSON line so that gesture-driven actions can be audited.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const defaultLedgerFile = "ledger.jsonl"

// Request represents the input from the plugin executor.
type Request struct {
	Action     string          `json:"action"`
	Gesture    string          `json:"gesture"`
	Confidence float64         `json:"confidence"`
	Compound   string          `json:"compound,omitempty"`
	Timestamp  int64           `json:"timestamp"`
	Config     json.RawMessage `json:"config,omitempty"`
	Params     json.RawMessage `json:"params,omitempty"`
}

// Response represents the output to the plugin executor.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

type ledgerConfig struct {
	File string `json:"file"`
}

type entry struct {
	Action     string  `json:"action"`
	Gesture    string  `json:"gesture"`
	Confidence float64 `json:"confidence"`
	Compound   string  `json:"compound,omitempty"`
	Timestamp  int64   `json:"timestamp"`
	RecordedAt string  `json:"recorded_at"`
}

func main() {
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeResponse(Response{Error: fmt.Sprintf("failed to decode request: %v", err)})
		return
	}

	path, err := appendEntry(req, time.Now())
	if err != nil {
		writeResponse(Response{Error: fmt.Sprintf("action %s failed: %v", req.Action, err)})
		return
	}

	data, _ := json.Marshal(map[string]string{"file": path})
	writeResponse(Response{Success: true, Data: data})
}

func ledgerPath(raw json.RawMessage) (string, error) {
	cfg := ledgerConfig{File: defaultLedgerFile}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return "", fmt.Errorf("invalid config: %w", err)
		}
		if cfg.File == "" {
			cfg.File = defaultLedgerFile
		}
	}
	return filepath.Abs(cfg.File)
}

func appendEntry(req Request, now time.Time) (string, error) {
	if req.Action == "" {
		return "", fmt.Errorf("missing action")
	}

	path, err := ledgerPath(req.Config)
	if err != nil {
		return "", err
	}

	line, err := json.Marshal(entry{
		Action:     req.Action,
		Gesture:    req.Gesture,
		Confidence: req.Confidence,
		Compound:   req.Compound,
		Timestamp:  req.Timestamp,
		RecordedAt: now.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return "", err
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return "", err
	}
	return path, nil
}

func writeResponse(resp Response) {
	json.NewEncoder(os.Stdout).Encode(resp)
}
