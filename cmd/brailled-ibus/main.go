//go:build linux

// brailled-ibus is the Linux IBus input method engine for braille chord
// input.
//
// It registers a Perkins-style engine with IBus: the home-row keys
// f d s / j k l act as dots 1 2 3 / 4 5 6 and the space bar as the space
// chord. Chords are interpreted by the input engine and the resulting
// print text is committed to the focused application.
//
// Installation:
//  1. Copy the binary to /usr/local/bin/brailled-ibus
//  2. Run brailled-ibus --install
//  3. Restart IBus: ibus restart
//  4. Enable the "brailled" input source in your desktop settings
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"brailled/internal/engine"
	"brailled/internal/ime"
	"brailled/internal/logging"
	"brailled/internal/profile"
	"brailled/internal/unify"
)

var version = "dev"

func main() {
	var (
		install     = pflag.Bool("install", false, "install the IBus component and exit")
		uninstall   = pflag.Bool("uninstall", false, "remove the IBus component and exit")
		timeoutMs   = pflag.Int("chord-timeout", 50, "chord quiescence timeout in milliseconds")
		showVersion = pflag.Bool("version", false, "print version and exit")
	)
	pflag.Parse()

	if *showVersion {
		fmt.Printf("brailled-ibus %s\n", version)
		return
	}
	if *install {
		if err := installComponent(); err != nil {
			fmt.Fprintf(os.Stderr, "brailled-ibus: install: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("installed; run 'ibus restart' to load")
		return
	}
	if *uninstall {
		if err := uninstallComponent(); err != nil {
			fmt.Fprintf(os.Stderr, "brailled-ibus: uninstall: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("uninstalled")
		return
	}

	if err := run(*timeoutMs); err != nil {
		fmt.Fprintf(os.Stderr, "brailled-ibus: %v\n", err)
		os.Exit(1)
	}
}

func run(timeoutMs int) error {
	cfg := ime.DefaultConfig()
	cfg.ChordTimeout = time.Duration(timeoutMs) * time.Millisecond

	log, err := logging.New(&logging.Config{
		Level:     logging.LevelInfo,
		Format:    logging.FormatText,
		Output:    "file",
		FilePath:  cfg.LogPath,
		MaxSize:   10,
		Component: "brailled-ibus",
	})
	if err != nil {
		// No log file is not fatal for an IME.
		log = logging.Default()
	}
	defer log.Close()

	records, err := profile.Builtin()
	if err != nil {
		return fmt.Errorf("load builtin profiles: %w", err)
	}
	tables := unify.Build(profile.BySystem(records))

	// The bridge is both the key source and the emission sink: chords in,
	// committed text out.
	var bridge *ime.IBusBridge
	eng := engine.New(tables, func(text, dotKey string) error {
		return bridge.CommitText(text)
	})
	bridge = ime.NewIBusBridge(cfg, eng, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := bridge.Start(ctx); err != nil {
		return err
	}
	defer bridge.Stop()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	return nil
}

// componentXML describes the engine to IBus.
const componentXML = `<?xml version="1.0" encoding="utf-8"?>
<component>
  <name>org.brailled.IBus</name>
  <description>Braille chord input engine</description>
  <exec>%s</exec>
  <version>%s</version>
  <author>brailled</author>
  <license>MIT</license>
  <textdomain>brailled</textdomain>
  <engines>
    <engine>
      <name>brailled</name>
      <language>en</language>
      <license>MIT</license>
      <author>brailled</author>
      <layout>us</layout>
      <longname>Braille chords</longname>
      <description>Perkins-style six-dot chord input</description>
      <rank>0</rank>
    </engine>
  </engines>
</component>
`

func componentPath() (string, error) {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dataDir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataDir, "ibus", "component", "brailled.xml"), nil
}

func installComponent() error {
	path, err := componentPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	exe, err := os.Executable()
	if err != nil {
		return err
	}
	xml := fmt.Sprintf(componentXML, exe, version)
	return os.WriteFile(path, []byte(xml), 0o644)
}

func uninstallComponent() error {
	path, err := componentPath()
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
