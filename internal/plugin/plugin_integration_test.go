package plugin

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"
)

func TestPlugin_Ledger_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	src := findPluginDir("ledger")
	if src == "" {
		t.Skip("ledger plugin source not found")
	}
	goBin, err := exec.LookPath("go")
	if err != nil {
		t.Skip("go toolchain not available to build the ledger plugin")
	}

	// Build the plugin into a scratch plugin directory next to its manifest.
	pluginsDir := t.TempDir()
	dest := filepath.Join(pluginsDir, "ledger")
	if err := os.MkdirAll(dest, 0755); err != nil {
		t.Fatalf("failed to create plugin dir: %v", err)
	}
	manifest, err := os.ReadFile(filepath.Join(src, ManifestFile))
	if err != nil {
		t.Fatalf("failed to read manifest: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dest, ManifestFile), manifest, 0644); err != nil {
		t.Fatalf("failed to write manifest: %v", err)
	}

	build := exec.Command(goBin, "build", "-o", filepath.Join(dest, "ledger"), ".")
	build.Dir = src
	if out, err := build.CombinedOutput(); err != nil {
		t.Fatalf("failed to build ledger plugin: %v\n%s", err, out)
	}

	mgr := NewManager(pluginsDir)
	if err := mgr.Discover(); err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	plug, err := mgr.Get("ledger")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	ledgerFile := filepath.Join(t.TempDir(), "ledger.jsonl")
	cfg, _ := json.Marshal(map[string]string{"file": ledgerFile})

	req := &Request{
		Action:     "quick_pay",
		Gesture:    "swipe_right",
		Confidence: 0.93,
		Compound:   "quick_pay",
		Timestamp:  time.Now().UnixMilli(),
		Config:     cfg,
	}

	resp, err := NewExecutor(30*time.Second).Execute(context.Background(), plug, req)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !resp.Success {
		t.Fatalf("ledger plugin failed: %s", resp.Error)
	}

	f, err := os.Open(ledgerFile)
	if err != nil {
		t.Fatalf("ledger file not written: %v", err)
	}
	defer f.Close()

	lines := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var line map[string]any
		if err := json.Unmarshal(scanner.Bytes(), &line); err != nil {
			t.Fatalf("invalid ledger line: %v", err)
		}
		if line["compound"] != "quick_pay" {
			t.Errorf("unexpected ledger line: %v", line)
		}
		lines++
	}
	if lines != 1 {
		t.Errorf("expected 1 ledger line, got %d", lines)
	}
}

func findPluginDir(name string) string {
	candidates := []string{
		filepath.Join("../../plugins", name),
		filepath.Join("../../../plugins", name),
	}

	for _, dir := range candidates {
		if _, err := os.Stat(filepath.Join(dir, ManifestFile)); err == nil {
			abs, err := filepath.Abs(dir)
			if err != nil {
				return dir
			}
			return abs
		}
	}
	return ""
}
