package utils

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "snap.bin")
	for _, body := range []string{"first", "second"} {
		if err := WriteFileAtomic(path, []byte(body)); err != nil {
			t.Fatal(err)
		}
		got, err := os.ReadFile(path)
		if err != nil {
			t.Fatal(err)
		}
		if string(got) != body {
			t.Errorf("content = %q, want %q", got, body)
		}
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("temporary files left behind: %d entries", len(entries))
	}
}

func TestSaveTOMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.toml")
	v := struct {
		Server struct {
			PredictLimit int `toml:"predict_limit"`
		} `toml:"server"`
	}{}
	v.Server.PredictLimit = 7
	if err := SaveTOMLFile(v, path); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "predict_limit = 7") {
		t.Errorf("unexpected TOML:\n%s", data)
	}
	if !FileExists(path) {
		t.Error("FileExists = false for written file")
	}
}

func TestCheckDirStatus(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	res := CheckDirStatus(dir)
	if !res.Exists || !res.Writable || res.Error != nil {
		t.Errorf("CheckDirStatus = %+v", res)
	}
}

func TestGetAbsolutePath(t *testing.T) {
	if got := GetAbsolutePath(""); got != "unknown" {
		t.Errorf("empty path = %q", got)
	}
	if got := GetAbsolutePath("x.toml"); !filepath.IsAbs(got) {
		t.Errorf("relative path not resolved: %q", got)
	}
}
