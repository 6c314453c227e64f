package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/bastiangx/swipeserve/pkg/config"
	"github.com/bastiangx/swipeserve/pkg/dictionary"
	"github.com/bastiangx/swipeserve/pkg/langmodel"
	"github.com/bastiangx/swipeserve/pkg/ngram"
	"github.com/bastiangx/swipeserve/pkg/resample"
)

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestEngineConfig(t *testing.T) {
	c := config.DefaultConfig()
	c.Gesture.DebounceMs = 90
	c.Decoder.MaxCandidates = 4
	c.Decoder.ResampleMode = "merge"
	c.Decoder.PartialEvery = 0

	cfg := engineConfig(c)
	if cfg.Gesture.DebounceMs != 90 || cfg.Gesture.RecentKeys != 3 {
		t.Errorf("gesture = %+v", cfg.Gesture)
	}
	if cfg.Decoder.MaxCandidates != 4 || cfg.Decoder.Workers != 4 {
		t.Errorf("decoder = %+v", cfg.Decoder)
	}
	if cfg.ResampleMode != resample.Merge || cfg.PartialEvery != 0 {
		t.Errorf("resample mode %v, partial every %d", cfg.ResampleMode, cfg.PartialEvery)
	}
}

func TestLoadData(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "words.txt"), "hello 100\nworld 90\n")
	writeFile(t, filepath.Join(dir, "bigrams_it.txt"), "ciao 0.5\nciao mondo 0.2\n")
	writeFile(t, filepath.Join(dir, "en.tsv"), "zq\t0.5\n")

	f, err := os.Create(filepath.Join(dir, "dict_0001.bin"))
	if err != nil {
		t.Fatal(err)
	}
	if err := dictionary.WriteChunk(f, []string{"swipe", "gesture"}, 1); err != nil {
		t.Fatal(err)
	}
	f.Close()

	lm := langmodel.New(langmodel.DefaultConfig())
	ng := ngram.NewEnglish()
	vocab, err := loadData(context.Background(), dir, 0, lm, ng)
	if err != nil {
		t.Fatal(err)
	}
	for _, w := range []string{"hello", "world", "swipe", "gesture"} {
		if !vocab.Contains(w) {
			t.Errorf("%s not loaded", w)
		}
	}
	if !lm.IsSupported("it") {
		t.Error("bigram table for it not registered")
	}
	if got := ng.BigramProbability('z', 'q'); got != 0.5 {
		t.Errorf("zq = %v, want 0.5", got)
	}
}

func TestLoadDataFallsBack(t *testing.T) {
	lm := langmodel.New(langmodel.DefaultConfig())
	vocab, err := loadData(context.Background(), filepath.Join(t.TempDir(), "missing"), 0, lm, ngram.NewEnglish())
	if err != nil {
		t.Fatal(err)
	}
	if vocab.Len() == 0 {
		t.Error("built-in vocabulary is empty")
	}
}

func TestOpenPersonal(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.toml")

	for _, backend := range []string{"file", "sqlite", "memory"} {
		t.Run(backend, func(t *testing.T) {
			c := config.DefaultConfig().Personal
			c.Backend = backend
			c.Path = "personal-" + backend
			store, err := openPersonal(ctx, c, configPath)
			if err != nil {
				t.Fatal(err)
			}
			store.RecordWordUsage("hello")
			if err := store.Close(ctx); err != nil {
				t.Fatal(err)
			}
		})
	}

	c := config.DefaultConfig().Personal
	c.Backend = "redis"
	if _, err := openPersonal(ctx, c, configPath); err == nil {
		t.Error("unknown backend accepted")
	}
}

func TestBuild(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "words.txt"), "hello 100\nhelp 90\n")
	c := config.DefaultConfig()
	c.Personal.Backend = "memory"
	eng, err := build(context.Background(), c, filepath.Join(dir, "config.toml"), dir)
	if err != nil {
		t.Fatal(err)
	}
	defer eng.Close(context.Background())
	if got := eng.Stats().Vocabulary["totalWords"]; got != 2 {
		t.Errorf("vocabulary = %d words, want 2", got)
	}
	if eng.Language().CurrentLanguage() != "en" {
		t.Errorf("language = %s", eng.Language().CurrentLanguage())
	}
}
