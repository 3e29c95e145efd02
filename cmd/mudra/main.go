package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/pkg/browser"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/server"
	"github.com/ayusman/mudra/internal/store"
	"github.com/ayusman/mudra/internal/tray"
)

func main() {
	fmt.Println("Mudra - Gesture Cursor Control")

	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Fatalf("Failed to get home directory: %v", err)
	}

	dataDir := filepath.Join(homeDir, ".mudra")
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	// Load the configuration, writing the defaults on first run.
	cfgPath := filepath.Join(dataDir, "config.toml")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// The database follows system.data_dir when set, the default data
	// directory otherwise.
	dbDir := dataDir
	if cfg.System.DataDir != "" {
		dbDir = cfg.System.DataDir
		if err := os.MkdirAll(dbDir, 0755); err != nil {
			log.Fatalf("Failed to create data directory: %v", err)
		}
	}

	st, err := store.New(filepath.Join(dbDir, "mudra.db"))
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer st.Close()

	if err := st.Bindings().SeedDefaults(); err != nil {
		log.Fatalf("Failed to seed default bindings: %v", err)
	}

	application, err := app.New(app.Config{Config: cfg, Store: st})
	if err != nil {
		log.Fatalf("Failed to build pipeline: %v", err)
	}

	// Find web directory
	webDir := findWebDir()
	if webDir != "" {
		fmt.Printf("Serving static files from: %s\n", webDir)
	}

	srv := server.New(server.Config{
		StaticDir:  webDir,
		ConfigPath: cfgPath,
		Store:      st,
		App:        application,
	})

	settingsURL := fmt.Sprintf("http://localhost:%d", cfg.System.Port)

	tr := tray.New()
	tr.OnToggle(func(paused bool) {
		application.SetPaused(paused)
	})
	tr.OnRestartCamera(func() {
		if err := application.RestartCamera(); err != nil {
			log.Printf("Camera restart failed: %v", err)
		}
	})
	// Pause can also flip via the REST API; keep the tray checkbox in
	// sync.
	application.OnPauseChange = tr.SetPaused
	tr.OnSettings(func() {
		if err := browser.OpenURL(settingsURL); err != nil {
			log.Printf("Failed to open settings: %v", err)
		}
	})

	// The server's feed handler owns the event hook; chain the tray's
	// last-action display behind it.
	feedHook := application.OnEvent
	application.OnEvent = func(ev gesture.Event) {
		if feedHook != nil {
			feedHook(ev)
		}
		switch ev.Type {
		case gesture.CursorMove, gesture.DragMove:
		default:
			tr.SetLastAction(string(ev.Type))
		}
	}

	// A camera failure at boot is not fatal: the control surface stays
	// up so the user can fix the device and restart the camera.
	if err := application.Start(); err != nil {
		log.Printf("Pipeline not started: %v (restart the camera from the tray or settings)", err)
	}

	watcher, err := config.Watch(cfgPath, func(next *config.Config) {
		if err := application.ApplyConfig(next); err != nil {
			log.Printf("Config change rejected: %v", err)
		}
	})
	if err != nil {
		log.Printf("Config watch disabled: %v", err)
	} else {
		defer watcher.Close()
	}

	addr := fmt.Sprintf(":%d", cfg.System.Port)
	fmt.Printf("Starting server on %s\n", addr)
	go func() {
		if err := srv.ListenAndServe(addr); err != nil {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Ctrl-C tears the tray down, which unblocks Run below.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		tr.Quit()
	}()

	// Blocks until Quit is chosen from the menu or a signal arrives.
	tr.Run()

	application.Stop()
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and ~/.mudra/web.
// Returns the first existing directory or empty string if none found.
func findWebDir() string {
	// Check relative paths from current working directory
	relativePaths := []string{"web", "../web", "../../web"}
	for _, p := range relativePaths {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			absPath, err := filepath.Abs(p)
			if err == nil {
				return absPath
			}
			return p
		}
	}

	// Check home directory
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	homeWebDir := filepath.Join(homeDir, ".mudra", "web")
	if info, err := os.Stat(homeWebDir); err == nil && info.IsDir() {
		return homeWebDir
	}

	return ""
}
