package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/ayusman/palmpay/internal/app"
	"github.com/ayusman/palmpay/internal/config"
	"github.com/ayusman/palmpay/internal/gesture"
	"github.com/ayusman/palmpay/internal/monitor"
	"github.com/ayusman/palmpay/internal/plugin"
	"github.com/ayusman/palmpay/internal/server"
	"github.com/ayusman/palmpay/internal/store"
	"github.com/ayusman/palmpay/internal/tray"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	withTray := flag.Bool("tray", false, "show the menu bar icon")
	flag.Parse()

	fmt.Println("Palmpay - Gesture Payments")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		var cfgErr *gesture.ConfigurationError
		if errors.As(err, &cfgErr) {
			log.Fatalf("Invalid configuration: %v", cfgErr)
		}
		log.Fatalf("Failed to validate config: %v", err)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0755); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}
	st, err := store.New(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer st.Close()

	engineCfg, err := cfg.EngineConfig()
	if err != nil {
		log.Fatalf("Invalid gesture settings: %v", err)
	}
	engine, err := gesture.NewEngine(engineCfg)
	if err != nil {
		log.Fatalf("Failed to create gesture engine: %v", err)
	}

	plugins := plugin.NewManager(cfg.Plugins.Dir)
	if err := plugins.Discover(); err != nil {
		log.Printf("Plugin discovery failed: %v", err)
	}
	log.Printf("Loaded %d plugins from %s", len(plugins.List()), plugins.PluginDir())

	dispatcher := app.NewDispatcher(app.DispatcherConfig{
		Bindings: st.Bindings(),
		Plugins:  plugins,
		Runner:   plugin.NewExecutor(cfg.Plugins.Timeout),
		Timeout:  cfg.Plugins.Timeout,
	})

	application := app.New(app.Config{
		Engine:          engine,
		Store:           st,
		Dispatcher:      dispatcher,
		Monitor:         monitor.NewLatency(cfg.Monitor.Samples, cfg.Monitor.SlowThreshold),
		CameraID:        cfg.Pipeline.CameraID,
		MotionThreshold: cfg.Pipeline.MotionThreshold,
		DetectorScript:  cfg.Pipeline.DetectorScript,
	})
	application.SetEnabled(cfg.Pipeline.Enabled)
	if cfg.Pipeline.Enabled {
		if err := application.Start(); err != nil {
			log.Printf("Camera pipeline unavailable: %v", err)
		}
	}

	retention, err := app.NewRetention(st.Events(), cfg.Retention.Schedule, cfg.Retention.MaxAge)
	if err != nil {
		log.Fatalf("Failed to schedule retention: %v", err)
	}
	retention.Start()

	webDir := cfg.Server.StaticDir
	if webDir == "" {
		webDir = findWebDir()
	}
	if webDir != "" {
		fmt.Printf("Serving static files from: %s\n", webDir)
	}

	srv := server.New(server.Config{
		StaticDir: webDir,
		Store:     st,
		App:       application,
		Plugins:   plugins,
	})
	httpServer := &http.Server{Addr: cfg.Server.Addr, Handler: srv}

	go func() {
		fmt.Printf("Starting server on %s\n", cfg.Server.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	shutdown := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(ctx); err != nil {
			log.Printf("Server shutdown: %v", err)
		}
		srv.Close()
		<-retention.Stop().Done()
		application.Stop()
	}

	if *withTray {
		runTray(application, dashboardURL(cfg.Server.Addr), shutdown)
		return
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Println("Shutting down")
	shutdown()
}

// runTray blocks on the menu bar icon until Quit or a signal.
func runTray(a *app.App, url string, shutdown func()) {
	t := tray.New(a.IsEnabled())
	t.OnToggle(func(enabled bool) {
		a.SetEnabled(enabled)
		if enabled {
			if err := a.Start(); err != nil {
				log.Printf("Camera pipeline unavailable: %v", err)
			}
		}
	})
	t.OnOpenDashboard(func() { openBrowser(url) })
	t.OnQuit(shutdown)

	a.OnOutcome(func(r app.Report) {
		t.ShowGesture(string(r.Result.GestureType), r.Compound, r.Action)
	})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		shutdown()
		t.Quit()
	}()

	t.Run()
}

func dashboardURL(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "http://localhost" + addr
	}
	return "http://" + addr
}

func openBrowser(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		log.Printf("Failed to open %s: %v", url, err)
	}
}

// findWebDir searches "web", "../web", "../../web" and the data directory
// for the dashboard assets.
func findWebDir() string {
	for _, p := range []string{"web", "../web", "../../web"} {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
			return p
		}
	}

	dataWebDir := filepath.Join(config.DataDir(), "web")
	if info, err := os.Stat(dataWebDir); err == nil && info.IsDir() {
		return dataWebDir
	}
	return ""
}
