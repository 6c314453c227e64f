package dictionary

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FileFormat names the kind of data file found in a data directory.
type FileFormat int

const (
	FormatUnknown FileFormat = iota
	// FormatChunk is a ranked binary word chunk (dict_NNNN.bin).
	FormatChunk
	// FormatWordList is a text word list, one "word [freq]" per line.
	FormatWordList
	// FormatBigrams is a word-level bigram table (bigrams_<lang>.txt).
	FormatBigrams
	// FormatNgrams is a character n-gram TSV (*.tsv).
	FormatNgrams
)

func (f FileFormat) String() string {
	switch f {
	case FormatChunk:
		return "chunk"
	case FormatWordList:
		return "wordlist"
	case FormatBigrams:
		return "bigrams"
	case FormatNgrams:
		return "ngrams"
	default:
		return "unknown"
	}
}

// DataFile is a detected file and, for bigram tables, its language.
type DataFile struct {
	Path     string
	Format   FileFormat
	Language string
}

// DetectFileFormat classifies a file by name, then checks the contents.
func DetectFileFormat(path string) (FileFormat, error) {
	base := strings.ToLower(filepath.Base(path))
	switch {
	case strings.HasPrefix(base, "dict_") && strings.HasSuffix(base, ".bin"):
		if err := validateChunk(path); err != nil {
			return FormatUnknown, err
		}
		return FormatChunk, nil
	case strings.HasPrefix(base, "bigrams_") && strings.HasSuffix(base, ".txt"):
		return FormatBigrams, validateText(path)
	case strings.HasSuffix(base, ".tsv"):
		return FormatNgrams, validateText(path)
	case strings.HasSuffix(base, ".txt"):
		return FormatWordList, validateText(path)
	}
	return FormatUnknown, nil
}

func validateChunk(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	var count int32
	if err := binary.Read(f, binary.LittleEndian, &count); err != nil {
		return fmt.Errorf("failed to read header: %w", err)
	}
	if count < 0 || count > 1000000 {
		return fmt.Errorf("invalid word count: %d", count)
	}
	return nil
}

func validateText(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for i := 0; i < 10 && sc.Scan(); i++ {
		if strings.ContainsRune(sc.Text(), 0) {
			return fmt.Errorf("binary content in text file %s", path)
		}
	}
	return sc.Err()
}

// Scan lists recognized data files in dir, sorted by path, and counts the
// files that failed validation.
func Scan(dir string) ([]DataFile, int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read data directory: %w", err)
	}

	var files []DataFile
	skipped := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(dir, e.Name())
		format, err := DetectFileFormat(path)
		if err != nil {
			skipped++
			continue
		}
		if format == FormatUnknown {
			continue
		}
		df := DataFile{Path: path, Format: format}
		if format == FormatBigrams {
			df.Language = strings.TrimSuffix(strings.TrimPrefix(strings.ToLower(e.Name()), "bigrams_"), ".txt")
		}
		files = append(files, df)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, skipped, nil
}
