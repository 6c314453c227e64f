package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/bastiangx/swipeserve/internal/cli"
	"github.com/bastiangx/swipeserve/internal/observe"
	"github.com/bastiangx/swipeserve/pkg/config"
	"github.com/bastiangx/swipeserve/pkg/decoder"
	"github.com/bastiangx/swipeserve/pkg/dictionary"
	"github.com/bastiangx/swipeserve/pkg/engine"
	"github.com/bastiangx/swipeserve/pkg/gesture"
	"github.com/bastiangx/swipeserve/pkg/langmodel"
	"github.com/bastiangx/swipeserve/pkg/layout"
	"github.com/bastiangx/swipeserve/pkg/ngram"
	"github.com/bastiangx/swipeserve/pkg/personal"
	"github.com/bastiangx/swipeserve/pkg/resample"
	"github.com/bastiangx/swipeserve/pkg/server"
	"github.com/bastiangx/swipeserve/pkg/suggest"
)

// engineConfig maps the TOML sections onto the engine's options.
func engineConfig(c *config.Config) engine.Config {
	cfg := engine.DefaultConfig()

	g := c.Gesture
	cfg.Gesture = gesture.Config{
		DebounceMs:     int64(g.DebounceMs),
		MediumWindowMs: int64(g.MediumWindowMs),
		FullDistance:   g.FullDistance,
		MediumDistance: g.MediumDistance,
		PointSpacing:   g.PointSpacing,
		KeyTravel:      g.KeyTravel,
		MaxVelocity:    g.MaxVelocity,
		MinDwellMs:     int64(g.MinDwellMs),
		RecentKeys:     cfg.Gesture.RecentKeys,
		DeviceScale:    g.DeviceScale,
		LoopRepair:     g.LoopRepair,
	}

	d := c.Decoder
	cfg.Decoder = decoder.Config{
		MinPathLength:      d.MinPathLength,
		MinSwipeLength:     d.MinSwipeLength,
		MinConfidence:      d.MinConfidence,
		MaxCandidates:      d.MaxCandidates,
		ProximityRadius:    d.ProximityRadius,
		SmoothingWindow:    d.SmoothingWindow,
		MaxEditDistance:    d.MaxEditDistance,
		CurvatureThreshold: d.CurvatureThreshold,
		Workers:            d.Workers,
	}
	cfg.PartialEvery = d.PartialEvery
	cfg.ResampleLength = d.ResampleLength
	cfg.ResampleMode = resample.ParseMode(d.ResampleMode)
	cfg.NeuralWeight = d.NeuralWeight
	return cfg
}

// loadData fills a vocabulary from the chunk and word-list files in dataDir.
// Bigram and n-gram tables found there are loaded into lm and ng. With no
// word data the built-in English list is used.
func loadData(ctx context.Context, dataDir string, maxWords int, lm *langmodel.Model, ng *ngram.Model) (*suggest.Vocabulary, error) {
	files, skipped, err := dictionary.Scan(dataDir)
	if err != nil {
		log.Warnf("Data dir %s unreadable: %v. Using built-in data.", dataDir, err)
		return suggest.NewEnglishVocabulary(), nil
	}
	if skipped > 0 {
		log.Warnf("Skipped %d invalid data files in %s", skipped, dataDir)
	}

	vocab := suggest.NewVocabulary()
	hasChunks := false
	for _, f := range files {
		switch f.Format {
		case dictionary.FormatChunk:
			hasChunks = true
		case dictionary.FormatWordList:
			n, err := dictionary.LoadTextFile(f.Path, vocab)
			if err != nil {
				return nil, err
			}
			log.Debugf("word list %s: %d words", filepath.Base(f.Path), n)
		case dictionary.FormatBigrams:
			n, err := lm.LoadTableFile(f.Language, f.Path)
			if err != nil {
				return nil, err
			}
			log.Debugf("bigrams %s (%s): %d entries", filepath.Base(f.Path), f.Language, n)
		case dictionary.FormatNgrams:
			n, err := ng.Load(f.Path)
			if err != nil {
				return nil, err
			}
			log.Debugf("ngrams %s: %d entries", filepath.Base(f.Path), n)
		}
	}

	if hasChunks {
		stats, err := dictionary.NewChunkLoader(dataDir, maxWords).Load(ctx, vocab)
		if err != nil {
			return nil, err
		}
		log.Debugf("loaded %d words from %d/%d chunks", stats.LoadedWords, stats.LoadedChunks, stats.AvailableChunks)
	}

	if vocab.Len() == 0 {
		log.Warnf("No word data in %s. Using built-in vocabulary.", dataDir)
		return suggest.NewEnglishVocabulary(), nil
	}
	return vocab, nil
}

// openPersonal opens the configured personalization backend and loads its
// snapshot. Relative paths resolve against the config file's directory.
func openPersonal(ctx context.Context, c config.PersonalConfig, configPath string) (*personal.Store, error) {
	cfg := personal.DefaultConfig()
	cfg.MaxWords = c.MaxWords
	cfg.MaxBigrams = c.MaxBigrams
	cfg.SaveEvery = c.SaveEvery
	if c.MaxFrequency > 0 {
		cfg.MaxFrequency = uint32(c.MaxFrequency)
	}

	path := config.ResolvePath(configPath, c.Path)
	var backend personal.Backend
	switch strings.ToLower(c.Backend) {
	case "sqlite":
		b, err := personal.OpenSQLite(path)
		if err != nil {
			return nil, err
		}
		backend = b
	case "file":
		b, err := personal.NewFileBackend(path)
		if err != nil {
			return nil, err
		}
		backend = b
	case "memory", "":
		backend = personal.NewMemoryBackend()
	default:
		return nil, fmt.Errorf("unknown personalization backend %q", c.Backend)
	}

	store := personal.New(cfg, backend)
	store.Load(ctx)
	return store, nil
}

// build assembles an engine from the loaded config.
func build(ctx context.Context, c *config.Config, configPath, dataDir string) (*engine.Engine, error) {
	lmCfg := langmodel.DefaultConfig()
	lmCfg.Lambda = c.Language.Lambda
	lmCfg.Floor = c.Language.Floor
	lmCfg.Language = c.Language.Default
	lm := langmodel.New(lmCfg)
	ng := ngram.NewEnglish()

	vocab, err := loadData(ctx, dataDir, c.Language.MaxWords, lm, ng)
	if err != nil {
		return nil, fmt.Errorf("failed to load data: %w", err)
	}
	if c.Language.Default != "" {
		if err := lm.Select(c.Language.Default); err != nil {
			log.Warnf("Default language: %v. Using %s.", err, lm.CurrentLanguage())
		}
	}

	store, err := openPersonal(ctx, c.Personal, configPath)
	if err != nil {
		log.Warnf("Personalization disabled: %v", err)
		store = personal.New(personal.DefaultConfig(), nil)
	}

	return engine.New(engineConfig(c), engine.Deps{
		Layout:     layout.QWERTY(c.CLI.KeyWidth, c.CLI.KeyHeight),
		Vocabulary: vocab,
		Language:   lm,
		Ngrams:     ng,
		Personal:   store,
		Metrics:    observe.DefaultMetrics(),
	}), nil
}

func serverOptions(c *config.Config) server.Options {
	return server.Options{
		MaxPoints:      c.Server.MaxPoints,
		PredictLimit:   c.Server.PredictLimit,
		StreamPartials: c.Server.StreamPartials,
	}
}

func cliOptions(c *config.Config, limit int) cli.Options {
	opts := cli.DefaultOptions()
	opts.Limit = limit
	opts.TraceStep = c.CLI.TraceStep
	opts.TraceDtMs = int64(c.CLI.TraceDtMs)
	opts.MaxEditDistance = c.Decoder.MaxEditDistance
	return opts
}
