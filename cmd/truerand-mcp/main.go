// truerand-mcp is an MCP server handing out random numbers drawn from a
// hardware or kernel entropy source.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/acolita/truerand/internal/config"
	"github.com/acolita/truerand/internal/entropy"
	"github.com/acolita/truerand/internal/generator"
	"github.com/acolita/truerand/internal/logging"
	"github.com/acolita/truerand/internal/mcp"
	"github.com/acolita/truerand/internal/recovery"
	"github.com/acolita/truerand/internal/security"
)

// Version information - set at build time.
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	var (
		configPath  string
		kind        string
		device      string
		showVersion bool
		debug       bool
	)

	flag.StringVar(&configPath, "config", "", "Path to configuration file")
	flag.StringVar(&kind, "source", "", "Source kind: 'device', 'os' or 'remote' (overrides config)")
	flag.StringVar(&device, "device", "", "Entropy device path (overrides config)")
	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.BoolVar(&debug, "debug", false, "Enable debug logging")
	flag.Parse()

	if showVersion {
		fmt.Printf("truerand-mcp version %s\n", Version)
		fmt.Printf("  Build time: %s\n", BuildTime)
		fmt.Printf("  Git commit: %s\n", GitCommit)
		os.Exit(0)
	}

	if configPath == "" {
		if p := config.DefaultConfigPath(); p != "" {
			if _, err := os.Stat(p); err == nil {
				configPath = p
			}
		}
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	applyOverrides := func(c *config.Config) {
		if kind != "" {
			c.Source.Kind = kind
		}
		if device != "" {
			c.Source.Device = device
		}
		if debug {
			c.Logging.Level = "debug"
		}
	}
	applyOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Sanitize)

	slog.Info("starting truerand-mcp",
		slog.String("version", Version),
		slog.String("source_kind", cfg.Source.Kind),
	)

	var openOpts []entropy.OpenOption
	if cfg.Source.UsesKeyring() {
		openOpts = append(openOpts, entropy.WithSecretStore(security.NewKeyringStore()))
	}
	src, err := entropy.Open(cfg.Source, openOpts...)
	if err != nil {
		slog.Error("failed to open entropy source", slog.String("error", err.Error()))
		if hint := recovery.NewAnalyzer().Best(err); hint != nil {
			slog.Info("recovery hint",
				slog.String("problem", hint.Error),
				slog.String("hint", hint.Explanation),
			)
		}
		os.Exit(1)
	}
	gen := generator.New(src)

	server := mcp.NewServer(cfg, gen, mcp.WithSourceName(src.Name()))

	var configWatcher *config.Watcher
	if configPath != "" {
		var watcherErr error
		configWatcher, watcherErr = config.NewWatcher(configPath, server.UpdateConfig,
			config.WithOverrides(applyOverrides),
		)
		if watcherErr != nil {
			slog.Warn("config hot-reload disabled",
				slog.String("error", watcherErr.Error()),
			)
		} else {
			slog.Info("config hot-reload enabled",
				slog.String("path", configPath),
			)
		}
	}

	shutdown := func(code int) {
		if configWatcher != nil {
			configWatcher.Close()
		}
		if err := gen.Close(); err != nil {
			slog.Warn("failed to close entropy source", slog.String("error", err.Error()))
		}
		os.Exit(code)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("received shutdown signal")
		shutdown(0)
	}()

	if err := server.Run(); err != nil {
		slog.Error("server error", slog.String("error", err.Error()))
		shutdown(1)
	}
	shutdown(0)
}
