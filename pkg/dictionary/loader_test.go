package dictionary

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type recordSink struct {
	words []string
	freqs map[string]int
}

func (s *recordSink) AddWord(word string, frequency int) {
	if s.freqs == nil {
		s.freqs = make(map[string]int)
	}
	s.words = append(s.words, word)
	s.freqs[word] = frequency
}

func writeChunkFile(t *testing.T, dir string, id int, words []string, firstRank uint16) {
	t.Helper()
	var buf bytes.Buffer
	if err := WriteChunk(&buf, words, firstRank); err != nil {
		t.Fatalf("WriteChunk: %v", err)
	}
	name := filepath.Join(dir, "dict_000"+string(rune('0'+id))+".bin")
	if err := os.WriteFile(name, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestReadChunk(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteChunk(&buf, []string{"the", "of", "and"}, 1); err != nil {
		t.Fatal(err)
	}
	entries, err := ReadChunk(&buf)
	if err != nil {
		t.Fatalf("ReadChunk: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}
	if entries[0].Word != "the" || entries[0].Score != 65535 {
		t.Errorf("entries[0] = %+v", entries[0])
	}
	if entries[2].Score != 65533 {
		t.Errorf("entries[2].Score = %d, want 65533", entries[2].Score)
	}
}

func TestReadChunkTruncated(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteChunk(&buf, []string{"hello"}, 1); err != nil {
		t.Fatal(err)
	}
	data := buf.Bytes()[:buf.Len()-1]
	if _, err := ReadChunk(bytes.NewReader(data)); err == nil {
		t.Error("expected error for truncated chunk")
	}
}

func TestChunkLoaderLoad(t *testing.T) {
	dir := t.TempDir()
	writeChunkFile(t, dir, 1, []string{"the", "of", "and"}, 1)
	writeChunkFile(t, dir, 2, []string{"hello", "world"}, 4)

	loader := NewChunkLoader(dir, 0)
	chunks, err := loader.AvailableChunks()
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) != 2 || chunks[0].ChunkID != 1 || chunks[1].WordCount != 2 {
		t.Fatalf("AvailableChunks = %+v", chunks)
	}

	sink := &recordSink{}
	stats, err := loader.Load(context.Background(), sink)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if stats.LoadedWords != 5 || stats.LoadedChunks != 2 {
		t.Errorf("stats = %+v", stats)
	}
	want := "the of and hello world"
	if got := strings.Join(sink.words, " "); got != want {
		t.Errorf("load order = %q, want %q", got, want)
	}
	if sink.freqs["world"] != 65535-5+1 {
		t.Errorf("world freq = %d", sink.freqs["world"])
	}
}

func TestChunkLoaderMaxWords(t *testing.T) {
	dir := t.TempDir()
	writeChunkFile(t, dir, 1, []string{"the", "of", "and"}, 1)
	writeChunkFile(t, dir, 2, []string{"hello", "world"}, 4)

	sink := &recordSink{}
	stats, err := NewChunkLoader(dir, 2).Load(context.Background(), sink)
	if err != nil {
		t.Fatal(err)
	}
	if stats.LoadedWords != 2 || len(sink.words) != 2 {
		t.Errorf("loaded %d words, want 2", stats.LoadedWords)
	}
}

func TestChunkLoaderEmptyDir(t *testing.T) {
	if _, err := NewChunkLoader(t.TempDir(), 0).Load(context.Background(), &recordSink{}); err == nil {
		t.Error("expected error for directory without chunks")
	}
}

func TestLoadText(t *testing.T) {
	in := "# comment\nhello 500\nworld\n\nswipe 20\n"
	sink := &recordSink{}
	n, err := LoadText(strings.NewReader(in), sink)
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Fatalf("loaded %d, want 3", n)
	}
	if sink.freqs["hello"] != 500 || sink.freqs["swipe"] != 20 {
		t.Errorf("freqs = %v", sink.freqs)
	}
	if sink.freqs["world"] != ScoreForRank(2) {
		t.Errorf("world freq = %d, want %d", sink.freqs["world"], ScoreForRank(2))
	}
}

func TestScan(t *testing.T) {
	dir := t.TempDir()
	writeChunkFile(t, dir, 1, []string{"the"}, 1)
	files := map[string]string{
		"bigrams_es.txt": "de la 0.08\n",
		"english.tsv":    "th\t0.027\n",
		"words.txt":      "hello\n",
		"notes.md":       "ignored",
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	found, skipped, err := Scan(dir)
	if err != nil {
		t.Fatal(err)
	}
	if skipped != 0 {
		t.Errorf("skipped = %d", skipped)
	}
	got := make(map[FileFormat]DataFile)
	for _, f := range found {
		got[f.Format] = f
	}
	if len(found) != 4 {
		t.Fatalf("found %d files, want 4: %+v", len(found), found)
	}
	if got[FormatBigrams].Language != "es" {
		t.Errorf("bigram language = %q", got[FormatBigrams].Language)
	}
	for _, f := range []FileFormat{FormatChunk, FormatNgrams, FormatWordList} {
		if _, ok := got[f]; !ok {
			t.Errorf("missing %s", f)
		}
	}
}
