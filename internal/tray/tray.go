// Package tray provides the palmpay menu bar icon.
package tray

import (
	"fmt"
	"sync"

	"github.com/getlantern/systray"
)

// Tray shows pipeline state and the latest recognised gesture.
type Tray struct {
	mu       sync.RWMutex
	enabled  bool
	gesture  string
	compound string
	action   string
	onToggle func(enabled bool)
	onOpen   func()
	onQuit   func()

	menuToggle   *systray.MenuItem
	menuGesture  *systray.MenuItem
	menuCompound *systray.MenuItem
}

// New creates a Tray showing the given pipeline state.
func New(enabled bool) *Tray {
	return &Tray{enabled: enabled}
}

// OnToggle sets the callback run when the pipeline is switched on or off.
func (t *Tray) OnToggle(fn func(enabled bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnOpenDashboard sets the callback for the dashboard menu item.
func (t *Tray) OnOpenDashboard(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onOpen = fn
}

// OnQuit sets the callback run before the tray exits.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the tray. It blocks until Quit and must be called from the
// main goroutine.
func (t *Tray) Run() {
	systray.Run(t.onReady, func() {})
}

// Quit stops a running tray.
func (t *Tray) Quit() {
	systray.Quit()
}

func (t *Tray) onReady() {
	systray.SetTitle("Palmpay")
	systray.SetTooltip("Palmpay gesture payments")

	t.mu.Lock()
	t.menuToggle = systray.AddMenuItem(toggleTitle(t.enabled), "Toggle the camera pipeline")
	systray.AddSeparator()
	t.menuGesture = systray.AddMenuItem(lastTitle("Last gesture", t.gesture, t.action), "Last recognised gesture")
	t.menuGesture.Disable()
	t.menuCompound = systray.AddMenuItem(lastTitle("Last compound", t.compound, ""), "Last completed compound gesture")
	t.menuCompound.Disable()
	t.mu.Unlock()
	systray.AddSeparator()

	menuOpen := systray.AddMenuItem("Open Dashboard...", "Open the dashboard in a browser")
	systray.AddSeparator()
	menuQuit := systray.AddMenuItem("Quit", "Quit palmpay")

	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.Toggle()
			case <-menuOpen.ClickedCh:
				t.mu.RLock()
				fn := t.onOpen
				t.mu.RUnlock()
				if fn != nil {
					fn()
				}
			case <-menuQuit.ClickedCh:
				t.mu.RLock()
				fn := t.onQuit
				t.mu.RUnlock()
				if fn != nil {
					fn()
				}
				systray.Quit()
				return
			}
		}
	}()
}

// Toggle flips the pipeline state and notifies the toggle callback.
func (t *Tray) Toggle() {
	t.mu.Lock()
	t.enabled = !t.enabled
	enabled := t.enabled
	if t.menuToggle != nil {
		t.menuToggle.SetTitle(toggleTitle(enabled))
	}
	fn := t.onToggle
	t.mu.Unlock()

	if fn != nil {
		fn(enabled)
	}
}

// ShowGesture records the latest gesture and, when set, the compound it
// completed and the action it triggered.
func (t *Tray) ShowGesture(gesture, compound, action string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.gesture, t.action = gesture, action
	if compound != "" {
		t.compound = compound
	}
	if t.menuGesture != nil {
		t.menuGesture.SetTitle(lastTitle("Last gesture", t.gesture, t.action))
	}
	if t.menuCompound != nil {
		t.menuCompound.SetTitle(lastTitle("Last compound", t.compound, ""))
	}
}

// Last returns the latest gesture, compound and action shown.
func (t *Tray) Last() (gesture, compound, action string) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.gesture, t.compound, t.action
}

// IsEnabled returns the pipeline state shown in the menu.
func (t *Tray) IsEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled
}

func toggleTitle(enabled bool) string {
	if enabled {
		return "● Camera on"
	}
	return "○ Camera off"
}

func lastTitle(label, name, action string) string {
	switch {
	case name == "":
		return label + ": none"
	case action == "":
		return label + ": " + name
	default:
		return fmt.Sprintf("%s: %s → %s", label, name, action)
	}
}
