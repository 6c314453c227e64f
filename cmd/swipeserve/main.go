// Copyright 2025 The WordServe Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package main runs the swipe decoding server and its debugging CLI.

SwipeServe turns touch trajectories drawn across an on-screen keyboard into
ranked word candidates. A gesture is segmented into touched keys, scored
against candidate words by how well each word's ideal key path explains it,
weighted by a bigram language model, a character n-gram model and what the
user has typed before.

# Usage

Start the msgpack server on stdin/stdout:

	swipeserve

Use a custom data directory and config file with debug logging:

	swipeserve -data /path/to/data -config ./swipeserve.toml -d

Run the interactive CLI, which traces typed words over a QWERTY layout:

	swipeserve -c

# Data

The data directory may contain ranked binary word chunks (dict_0001.bin,
...), plain word lists (words.txt, "word [freq]" per line), word bigram
tables (bigrams_<lang>.txt) and character n-gram tables (*.tsv). Missing
data falls back to the built-in English tables.

# Configuration

Thresholds for gesture segmentation, decoding, language models and
personalization live in a TOML file created with defaults on first run:

	[gesture]
	debounce_ms = 150
	full_distance = 50.0

	[decoder]
	max_candidates = 10
	min_confidence = 0.01

	[personal]
	backend = "sqlite"
	path = "personal.db"

See pkg/server for the IPC protocol.
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/bastiangx/swipeserve/internal/cli"
	"github.com/bastiangx/swipeserve/internal/logger"
	"github.com/bastiangx/swipeserve/internal/utils"
	"github.com/bastiangx/swipeserve/pkg/config"
	"github.com/bastiangx/swipeserve/pkg/server"
)

const (
	Version = "0.1.0-beta"
	AppName = "swipeserve"
	gh      = "https://github.com/bastiangx/swipeserve"
)

// sigHandler cancels the returned context on SIGINT or SIGTERM. A second
// signal exits immediately.
func sigHandler() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	c := make(chan os.Signal, 2)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		fmt.Fprintf(os.Stderr, "\nExiting...\n")
		cancel()
		<-c
		os.Exit(1)
	}()
	return ctx, cancel
}

func showVersion() {
	l := log.NewWithOptions(os.Stderr, log.Options{
		ReportCaller:    false,
		ReportTimestamp: false,
		Prefix:          "",
	})

	styles := log.DefaultStyles()
	styles.Values["version"] = lipgloss.NewStyle().Bold(true).
		Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"}).
		Background(lipgloss.AdaptiveColor{Light: "#f2e9e1", Dark: "#26233a"})
	styles.Values["gh"] = lipgloss.NewStyle().Italic(true).
		Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"})
	l.SetStyles(styles)

	l.Print("")
	l.Print("[ SwipeServe ] Decodes swipe gestures into words")
	l.Print("", "version", Version)
	l.Print("")
	l.Print("use -h or --help to see available options")
	l.Print("Github Repo", "gh", gh)
}

// main only manages the flow; the server and CLI live in their packages.
func main() {
	ctx, cancel := sigHandler()
	defer cancel()
	defaults := config.DefaultConfig()

	version := flag.Bool("version", false, "Show current version")
	dataDir := flag.String("data", defaults.Language.DataDir, "Directory containing dictionary, bigram and n-gram files")
	debugMode := flag.Bool("d", false, "Toggle debug mode")
	cliMode := flag.Bool("c", false, "Run CLI -- useful for testing and debugging")
	configFile := flag.String("config", "", "Path to a custom config file")
	lang := flag.String("lang", "", "Language model to use (en, es, fr, de)")
	limit := flag.Int("limit", 0, "Number of candidates to print in CLI mode")
	wordLimit := flag.Int("words", -1, "Maximum number of words to load (0 for all)")
	rebuild := flag.Bool("rebuild-config", false, "Overwrite the default config file with defaults")
	flag.Parse()

	if *version {
		showVersion()
		os.Exit(0)
	}

	logger.Setup(os.Stderr, *debugMode)

	if *rebuild {
		if err := config.RebuildConfigFile(); err != nil {
			log.Fatalf("Failed to rebuild config: %v", err)
		}
		log.Info("Config rebuilt with defaults")
		return
	}

	cfg, configPath, err := config.LoadConfigWithPriority(*configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	log.Debugf("Using config file: (%s)", config.GetActiveConfigPath(configPath))
	if *lang != "" {
		cfg.Language.Default = *lang
	}
	if *wordLimit >= 0 {
		cfg.Language.MaxWords = *wordLimit
	}
	if *limit <= 0 {
		*limit = cfg.CLI.DefaultLimit
	}

	resolvedDataDir := *dataDir
	if pathResolver, err := utils.NewPathResolver(); err == nil {
		resolvedDataDir = pathResolver.GetDataDir(*dataDir)
		for k, v := range pathResolver.GetRuntimeInfo() {
			log.Debug("runtime", k, v)
		}
	} else {
		log.Warnf("Path resolver unavailable: %v", err)
	}
	log.Debugf("Using data dir at: %s", resolvedDataDir)

	start := time.Now()
	eng, err := build(ctx, cfg, configPath, resolvedDataDir)
	if err != nil {
		log.Fatalf("Failed to init engine: %v", err)
	}
	log.Debugf("Engine ready in %v", time.Since(start))
	defer func() {
		closeCtx, closeCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer closeCancel()
		if err := eng.Close(closeCtx); err != nil {
			log.Errorf("Failed to save personalization: %v", err)
		}
	}()

	// CLI is for testing and dbg purposes.
	if *cliMode {
		log.SetReportTimestamp(false)
		h := cli.NewInputHandler(eng, cliOptions(cfg, *limit), os.Stdin, os.Stdout)
		if err := h.Start(ctx); err != nil {
			log.Errorf("CLI error: %v", err)
		}
		return
	}

	showStartupInfo(resolvedDataDir, configPath)
	srv := server.NewServer(eng, serverOptions(cfg))
	if err := srv.Start(ctx); err != nil {
		log.Errorf("Server stopped: %v", err)
	}
}

// showStartupInfo writes basic init info to stderr; stdout is the IPC channel.
func showStartupInfo(dataDir, configPath string) {
	currentLevel := log.GetLevel()
	log.SetLevel(log.InfoLevel)
	defer log.SetLevel(currentLevel)

	fmt.Fprintln(os.Stderr, "============")
	fmt.Fprintln(os.Stderr, " SwipeServe ")
	fmt.Fprintln(os.Stderr, "============")
	log.Infof("Version: %s", Version)
	log.Infof("Process ID: [ %d ]", os.Getpid())
	log.Infof("data dir: ( %s )", dataDir)
	log.Infof("config: ( %s )", config.GetActiveConfigPath(configPath))
	log.Info("status: ready")
	fmt.Fprintln(os.Stderr, "============")
}
