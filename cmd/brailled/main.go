// brailled is the braille chord-to-text input engine daemon.
//
// It loads braille profiles (built-in and from configured directories),
// unifies them into lookup tables, and serves dot input over a control
// socket. braillectl drives it from the command line. brailled-ibus is a
// separate Linux IME bridge that runs its own engine over the built-in
// profiles and does not connect to this daemon.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"brailled/internal/braille"
	"brailled/internal/chord"
	"brailled/internal/config"
	"brailled/internal/engine"
	"brailled/internal/ipc"
	"brailled/internal/logging"
	"brailled/internal/profile"
	"brailled/internal/store"
	"brailled/internal/unify"
)

var version = "dev"

func main() {
	var (
		configPath  = pflag.String("config", config.DefaultPath(), "path to config file")
		socketPath  = pflag.String("socket", "", "override control socket path")
		logLevel    = pflag.String("log-level", "", "override log level (debug, info, warn, error)")
		showVersion = pflag.Bool("version", false, "print version and exit")
	)
	pflag.Parse()

	if *showVersion {
		fmt.Printf("brailled %s\n", version)
		return
	}

	if err := run(*configPath, *socketPath, *logLevel); err != nil {
		fmt.Fprintf(os.Stderr, "brailled: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, socketOverride, levelOverride string) error {
	loader := config.NewLoader(configPath)
	cfg, err := loader.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if socketOverride != "" {
		cfg.IPC.SocketPath = socketOverride
	}
	if levelOverride != "" {
		cfg.Logging.Level = levelOverride
	}

	log, err := setupLogging(cfg)
	if err != nil {
		return fmt.Errorf("setup logging: %w", err)
	}
	defer log.Close()
	logging.SetDefault(log)

	log.Info("starting brailled", "version", version, "config", configPath)

	// Profile catalog.
	var catalog *store.Store
	if cfg.Storage.CatalogPath != "" {
		catalog, err = store.Open(cfg.Storage.CatalogPath)
		if err != nil {
			return fmt.Errorf("open profile catalog: %w", err)
		}
		defer catalog.Close()
	}

	tables, err := buildTables(cfg, catalog, log)
	if err != nil {
		return err
	}

	// Engine. The daemon has no editor of its own: emissions are logged
	// and recorded in the overlay, which clients read over IPC.
	eng := engine.New(tables, func(text, dotKey string) error {
		log.Debug("emit", "text", text, "dots", dotKey)
		return nil
	})
	eng.SetModeChangeCallback(func(old, new braille.Mode, _ *unify.Indicator) {
		log.Info("mode changed", "from", old.String(), "to", new.String())
	})
	eng.ForceMode(cfg.StartupMode())
	eng.SetOverlayEnabled(cfg.Engine.ShowBrailleOverlay)

	aggregator := chord.New(cfg.Engine.ChordTimeout(), eng.ProcessChord)

	// Control socket.
	handler := newHandler(eng, aggregator)
	server := ipc.NewServer(cfg.IPC.SocketPath, handler.handle)
	if err := server.Start(); err != nil {
		return fmt.Errorf("start control socket: %w", err)
	}
	defer server.Stop()
	log.Info("control socket ready", "path", cfg.IPC.SocketPath)

	// Profile directory watchers rebuild tables on change.
	var watchers []*profile.Watcher
	if cfg.Profiles.Watch {
		for _, dir := range cfg.Profiles.Paths {
			w, err := profile.NewWatcher(dir, time.Duration(cfg.Profiles.WatchDebounceMs)*time.Millisecond)
			if err != nil {
				log.Warn("profile watch unavailable", "dir", dir, "error", err)
				continue
			}
			watchers = append(watchers, w)
			go func(w *profile.Watcher, dir string) {
				for range w.Changed() {
					log.Info("profiles changed, rebuilding tables", "dir", dir)
					tables, err := buildTables(loader.Config(), catalog, log)
					if err != nil {
						log.Error("rebuild tables", "error", err)
						continue
					}
					eng.ReloadTables(tables)
				}
			}(w, dir)
		}
	}
	defer func() {
		for _, w := range watchers {
			w.Stop()
		}
	}()

	// Config hot reload adjusts runtime-mutable settings.
	loader.OnChange(func(c *config.Config) {
		aggregator.SetTimeout(c.Engine.ChordTimeout())
		eng.SetOverlayEnabled(c.Engine.ShowBrailleOverlay)
		log.Info("config reloaded", "chord_timeout_ms", c.Engine.ChordTimeoutMs)
	})
	if err := loader.Watch(); err != nil {
		log.Warn("config watch unavailable", "error", err)
	}
	defer loader.Close()

	// Wait for shutdown.
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	s := <-sig
	log.Info("shutting down", "signal", s.String())
	aggregator.Flush()
	return nil
}

// buildTables assembles the active profile set: built-in profiles, the
// catalog, and configured directories. Directory profiles are imported
// into the catalog; duplicates (by content hash) are skipped.
func buildTables(cfg *config.Config, catalog *store.Store, log *logging.Logger) (*unify.Tables, error) {
	var records []*profile.Record
	seen := make(map[[32]byte]struct{})

	add := func(recs []*profile.Record) {
		for _, r := range recs {
			hash, err := store.ContentHash(r)
			if err != nil {
				continue
			}
			if _, dup := seen[hash]; dup {
				continue
			}
			seen[hash] = struct{}{}
			records = append(records, r)
		}
	}

	if cfg.Profiles.UseBuiltin {
		builtin, err := profile.Builtin()
		if err != nil {
			return nil, fmt.Errorf("load builtin profiles: %w", err)
		}
		add(builtin)
	}

	if catalog != nil {
		stored, err := catalog.LoadEnabled()
		if err != nil {
			log.Warn("load profile catalog", "error", err)
		} else {
			add(stored)
		}
	}

	for _, dir := range cfg.Profiles.Paths {
		recs, issues, err := profile.LoadDir(dir)
		if err != nil {
			log.Warn("scan profile directory", "dir", dir, "error", err)
			continue
		}
		for _, issue := range issues {
			log.Warn("skipping profile", "path", issue.Path, "error", issue.Err)
		}
		if catalog != nil {
			for _, r := range recs {
				if _, err := catalog.Import(r, dir); err != nil {
					log.Warn("catalog import", "system", r.SystemID, "error", err)
				}
			}
		}
		add(recs)
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("no usable profiles loaded")
	}

	tables := unify.Build(profile.BySystem(records))
	log.Info("profiles unified",
		"records", len(records),
		"single_cells", len(tables.SingleCells),
		"indicators", len(tables.Indicators),
		"multi_cells", len(tables.MultiCells),
		"discarded", tables.Discarded)
	return tables, nil
}

func setupLogging(cfg *config.Config) (*logging.Logger, error) {
	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	format, err := logging.ParseFormat(cfg.Logging.Format)
	if err != nil {
		return nil, err
	}
	return logging.New(&logging.Config{
		Level:      level,
		Format:     format,
		Output:     cfg.Logging.Output,
		FilePath:   cfg.Logging.FilePath,
		MaxSize:    cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		Component:  "brailled",
	})
}
