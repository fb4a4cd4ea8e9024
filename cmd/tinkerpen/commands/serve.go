package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/livetemplate/tinkerpen/internal/config"
	"github.com/livetemplate/tinkerpen/internal/server"
)

// ServeCommand implements the serve command.
func ServeCommand(args []string) error {
	p, err := parseArgs(args,
		[]string{"port", "host", "config", "chrome"},
		map[string]string{"p": "port", "c": "config", "w": "watch"},
	)
	if err != nil {
		return err
	}

	dir := p.arg(0, "")
	cfg, err := serveConfig(p, dir)
	if err != nil {
		return err
	}

	var opts []server.Option
	var absDir string
	if dir != "" {
		absDir, err = filepath.Abs(dir)
		if err != nil {
			return fmt.Errorf("failed to get absolute path: %w", err)
		}
		if info, err := os.Stat(absDir); err != nil || !info.IsDir() {
			return fmt.Errorf("directory does not exist: %s", dir)
		}
		opts = append(opts, server.WithProjectDir(absDir))
	} else if cfg.Features.HotReload {
		return fmt.Errorf("--watch needs a project directory")
	}

	srv := server.New(cfg, opts...)

	fmt.Printf("🖊️  tinkerpen live preview\n\n")
	if absDir != "" {
		fmt.Printf("Project: %s\n", absDir)
	} else {
		fmt.Printf("Project: (empty editor)\n")
	}

	if cfg.Features.HotReload {
		if err := srv.EnableWatch(); err != nil {
			srv.Close()
			return fmt.Errorf("failed to enable watch mode: %w", err)
		}
		fmt.Printf("👀 Watch mode enabled - edits to index.html, styles.css and script.js reach open editors\n")
	}

	fmt.Printf("\n🌐 Server running at http://%s\n", cfg.Addr())
	switch {
	case !cfg.Screenshot.Enabled:
		fmt.Printf("📷 Screenshots disabled\n")
	case cfg.Screenshot.ChromeURL != "":
		fmt.Printf("📷 Screenshots via %s\n", cfg.Screenshot.ChromeURL)
	default:
		fmt.Printf("📷 Screenshots via local headless Chrome\n")
	}
	fmt.Printf("Press Ctrl+C to stop\n\n")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.ListenAndServe(ctx); err != nil {
		srv.Close()
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// serveConfig loads the config and applies command-line overrides.
func serveConfig(p parsedArgs, dir string) (*config.Config, error) {
	cfgDir := dir
	if cfgDir == "" {
		cfgDir = "."
	}
	cfg, err := loadConfig(cfgDir, p.values["config"])
	if err != nil {
		return nil, err
	}

	// CLI flags override config
	if port, ok := p.values["port"]; ok {
		portInt, err := strconv.Atoi(port)
		if err != nil {
			return nil, fmt.Errorf("invalid port: %s", port)
		}
		cfg.Server.Port = portInt
	}
	if host, ok := p.values["host"]; ok {
		cfg.Server.Host = host
	}
	if chrome, ok := p.values["chrome"]; ok {
		cfg.Screenshot.Enabled = true
		cfg.Screenshot.ChromeURL = chrome
	}
	if p.switches["watch"] {
		cfg.Features.HotReload = true
	}
	if p.switches["debug"] {
		cfg.Server.Debug = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
