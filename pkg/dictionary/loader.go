// Package dictionary reads vocabulary and model data files: ranked binary
// word chunks (dict_NNNN.bin) and plain text word lists.
package dictionary

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
)

// Sink receives loaded words. suggest.Vocabulary satisfies it.
type Sink interface {
	AddWord(word string, frequency int)
}

// Entry is one word read from a chunk, with its rank-derived score.
type Entry struct {
	Word  string
	Score int
}

// ChunkInfo contains metadata about a chunk file
type ChunkInfo struct {
	ChunkID   int
	Filename  string
	WordCount int
}

// LoaderStats provides statistics about the loading process
type LoaderStats struct {
	LoadedWords     int
	LoadedChunks    int
	AvailableChunks int
	MaxFrequency    int
}

// ChunkLoader loads ranked binary chunks into a Sink.
type ChunkLoader struct {
	dirPath  string
	maxWords int
	workers  int
}

// NewChunkLoader creates a loader for dirPath. maxWords of 0 loads everything.
func NewChunkLoader(dirPath string, maxWords int) *ChunkLoader {
	return &ChunkLoader{
		dirPath:  dirPath,
		maxWords: maxWords,
		workers:  4,
	}
}

// ScoreForRank converts a 1-based rank to a score so rank 1 scores highest.
func ScoreForRank(rank uint16) int {
	return 65535 - int(rank) + 1
}

// AvailableChunks scans the directory for chunk files, sorted by ID.
func (cl *ChunkLoader) AvailableChunks() ([]ChunkInfo, error) {
	files, err := filepath.Glob(filepath.Join(cl.dirPath, "dict_*.bin"))
	if err != nil {
		return nil, fmt.Errorf("failed to scan for chunk files: %w", err)
	}

	var chunks []ChunkInfo
	for _, file := range files {
		idStr := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(file), "dict_"), ".bin")
		chunkID, err := strconv.Atoi(idStr)
		if err != nil {
			continue
		}
		wordCount, err := chunkWordCount(file)
		if err != nil {
			log.Warnf("Failed to get word count for chunk %s: %v", file, err)
			wordCount = 0
		}
		chunks = append(chunks, ChunkInfo{ChunkID: chunkID, Filename: file, WordCount: wordCount})
	}

	sort.Slice(chunks, func(i, j int) bool {
		return chunks[i].ChunkID < chunks[j].ChunkID
	})
	return chunks, nil
}

func chunkWordCount(filename string) (int, error) {
	file, err := os.Open(filename)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	var wordCount int32
	if err := binary.Read(file, binary.LittleEndian, &wordCount); err != nil {
		return 0, err
	}
	return int(wordCount), nil
}

// Load decodes chunks concurrently and feeds them to sink in chunk order
// until maxWords is reached. Chunks that fail to decode are skipped.
func (cl *ChunkLoader) Load(ctx context.Context, sink Sink) (LoaderStats, error) {
	chunks, err := cl.AvailableChunks()
	if err != nil {
		return LoaderStats{}, err
	}
	if len(chunks) == 0 {
		return LoaderStats{}, fmt.Errorf("no chunk files found in %s", cl.dirPath)
	}

	if cl.maxWords > 0 {
		planned, n := 0, 0
		for n < len(chunks) && planned < cl.maxWords {
			planned += chunks[n].WordCount
			n++
		}
		chunks = chunks[:n]
	}

	decoded := make([][]Entry, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cl.workers)
	for i, c := range chunks {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			entries, err := ReadChunkFile(c.Filename)
			if err != nil {
				log.Errorf("Failed to load chunk %d: %v", c.ChunkID, err)
				return nil
			}
			decoded[i] = entries
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return LoaderStats{}, err
	}

	stats := LoaderStats{AvailableChunks: len(chunks)}
	for i, entries := range decoded {
		if entries == nil {
			continue
		}
		for _, e := range entries {
			if cl.maxWords > 0 && stats.LoadedWords >= cl.maxWords {
				break
			}
			sink.AddWord(e.Word, e.Score)
			stats.LoadedWords++
			stats.MaxFrequency = max(stats.MaxFrequency, e.Score)
		}
		stats.LoadedChunks++
		log.Debugf("Chunk %d loaded: %d words", chunks[i].ChunkID, len(entries))
	}
	return stats, nil
}

func ReadChunkFile(filename string) ([]Entry, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open chunk file %s: %w", filename, err)
	}
	defer file.Close()
	return ReadChunk(bufio.NewReader(file))
}

// ReadChunk decodes the chunk format: an int32 entry count, then per entry a
// uint16 length, the word bytes and a uint16 rank, all little endian.
func ReadChunk(r io.Reader) ([]Entry, error) {
	var total int32
	if err := binary.Read(r, binary.LittleEndian, &total); err != nil {
		return nil, fmt.Errorf("failed to read chunk header: %w", err)
	}
	if total < 0 {
		return nil, fmt.Errorf("invalid word count %d", total)
	}

	entries := make([]Entry, 0, min(int(total), 1<<16))
	for len(entries) < int(total) {
		var wordLen uint16
		if err := binary.Read(r, binary.LittleEndian, &wordLen); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("failed to read word length: %w", err)
		}
		wordBytes := make([]byte, wordLen)
		if _, err := io.ReadFull(r, wordBytes); err != nil {
			return nil, fmt.Errorf("failed to read word: %w", err)
		}
		var rank uint16
		if err := binary.Read(r, binary.LittleEndian, &rank); err != nil {
			return nil, fmt.Errorf("failed to read rank: %w", err)
		}
		entries = append(entries, Entry{Word: string(wordBytes), Score: ScoreForRank(rank)})
	}
	return entries, nil
}

// WriteChunk encodes words in rank order, starting at firstRank.
func WriteChunk(w io.Writer, words []string, firstRank uint16) error {
	if err := binary.Write(w, binary.LittleEndian, int32(len(words))); err != nil {
		return err
	}
	for i, word := range words {
		if len(word) > 0xFFFF {
			return fmt.Errorf("word %d too long", i)
		}
		if err := binary.Write(w, binary.LittleEndian, uint16(len(word))); err != nil {
			return err
		}
		if _, err := io.WriteString(w, word); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, firstRank+uint16(i)); err != nil {
			return err
		}
	}
	return nil
}

// LoadText reads a word list: one word per line, optionally followed by a
// frequency. Lines without a frequency are scored by position.
func LoadText(r io.Reader, sink Sink) (int, error) {
	sc := bufio.NewScanner(r)
	n := 0
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}
		score := ScoreForRank(uint16(min(n+1, 0xFFFF)))
		if len(fields) > 1 {
			if f, err := strconv.Atoi(fields[1]); err == nil && f > 0 {
				score = f
			}
		}
		sink.AddWord(fields[0], score)
		n++
	}
	if err := sc.Err(); err != nil {
		return n, fmt.Errorf("failed to read word list: %w", err)
	}
	return n, nil
}

func LoadTextFile(path string, sink Sink) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return LoadText(f, sink)
}
