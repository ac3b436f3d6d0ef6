package plugin

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

// DefaultTimeout bounds a single plugin run when no timeout is configured.
const DefaultTimeout = 5 * time.Second

// ErrTimeout is returned when a plugin does not exit within the timeout.
var ErrTimeout = errors.New("plugin execution timeout")

// ErrUnsupportedAction is returned when the manifest does not list the requested action.
var ErrUnsupportedAction = errors.New("action not supported by plugin")

// Executor runs plugins, one process per request.
type Executor struct {
	timeout time.Duration
}

// NewExecutor creates an Executor. A non-positive timeout uses DefaultTimeout.
func NewExecutor(timeout time.Duration) *Executor {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Executor{timeout: timeout}
}

// Timeout returns the per-run timeout.
func (e *Executor) Timeout() time.Duration {
	return e.timeout
}

// Execute runs p with req on stdin and decodes its stdout as a Response.
// The process is killed when ctx is done or the executor timeout elapses.
func (e *Executor) Execute(ctx context.Context, p *Plugin, req *Request) (*Response, error) {
	if !p.Manifest.Supports(req.Action) {
		return nil, fmt.Errorf("%w: %s/%s", ErrUnsupportedAction, p.Manifest.Name, req.Action)
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	cmd := exec.CommandContext(ctx, p.Executable)
	cmd.Dir = p.Path
	cmd.Stdin = bytes.NewReader(payload)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err = cmd.Run()
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return nil, fmt.Errorf("%w after %s", ErrTimeout, e.timeout)
	}
	if err != nil {
		if msg := stderr.String(); msg != "" {
			return nil, fmt.Errorf("plugin execution failed: %w, stderr: %s", err, msg)
		}
		return nil, fmt.Errorf("plugin execution failed: %w", err)
	}

	var resp Response
	if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
		return nil, fmt.Errorf("failed to parse plugin response: %w, stdout: %s", err, stdout.String())
	}

	return &resp, nil
}
