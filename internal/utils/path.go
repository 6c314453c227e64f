package utils

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/charmbracelet/log"
)

// dataPatterns are the file names that mark a usable data directory.
var dataPatterns = []string{"dict_*.bin", "*.tsv", "bigrams_*.txt", "words*.txt"}

// PathResolver locates the data and config directories for the swipeserve binary
type PathResolver struct {
	executablePath string
	executableDir  string
	homeDir        string
	configDir      string
}

// NewPathResolver creates a new path resolver that determines the executable location
func NewPathResolver() (*PathResolver, error) {
	execPath, err := os.Executable()
	if err != nil {
		return nil, err
	}
	execPath, err = filepath.EvalSymlinks(execPath)
	if err != nil {
		return nil, err
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Warnf("Could not determine home directory: %v", err)
		homeDir = os.TempDir()
	}

	pr := &PathResolver{
		executablePath: execPath,
		executableDir:  filepath.Dir(execPath),
		homeDir:        homeDir,
		configDir:      platformConfigDir(homeDir),
	}
	log.Debugf("PathResolver initialized: exec=%s, configDir=%s", execPath, pr.configDir)
	return pr, nil
}

func platformConfigDir(homeDir string) string {
	switch runtime.GOOS {
	case "linux":
		if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
			return filepath.Join(configHome, "swipeserve")
		}
		return filepath.Join(homeDir, ".config", "swipeserve")
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "swipeserve")
		}
		return filepath.Join(homeDir, "AppData", "Roaming", "swipeserve")
	default:
		return filepath.Join(homeDir, ".config", "swipeserve")
	}
}

// GetDataDir resolves the data directory. Candidates, in order:
// 1. User-specified path (if absolute)
// 2. Relative to executable directory
// 3. Relative to current working directory
// 4. data/ next to the executable, its parent, or the config dir
//
// When nothing matches the executable-relative path is returned so
// callers can report it.
func (pr *PathResolver) GetDataDir(userSpecifiedPath string) string {
	candidates := pr.dataDirCandidates(userSpecifiedPath)
	for _, path := range candidates {
		if IsValidDataDir(path) {
			log.Debugf("Found valid data directory: %s", path)
			return path
		}
		log.Debugf("Data directory candidate not valid: %s", path)
	}
	return filepath.Join(pr.executableDir, userSpecifiedPath)
}

func (pr *PathResolver) dataDirCandidates(userSpecifiedPath string) []string {
	var candidates []string
	if filepath.IsAbs(userSpecifiedPath) {
		candidates = append(candidates, userSpecifiedPath)
	}
	candidates = append(candidates, filepath.Join(pr.executableDir, userSpecifiedPath))
	if cwd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(cwd, userSpecifiedPath))
	}
	return append(candidates,
		filepath.Join(pr.executableDir, "data"),
		filepath.Join(filepath.Dir(pr.executableDir), "data"),
		filepath.Join(pr.configDir, "data"),
	)
}

// IsValidDataDir reports whether path is a directory holding at least one
// dictionary, bigram or n-gram file.
func IsValidDataDir(path string) bool {
	if stat, err := os.Stat(path); err != nil || !stat.IsDir() {
		return false
	}
	return len(ListDataFiles(path)) > 0
}

// ListDataFiles returns the data files in dir matching the known patterns.
func ListDataFiles(dir string) []string {
	var files []string
	for _, pattern := range dataPatterns {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			continue
		}
		files = append(files, matches...)
	}
	return files
}

// GetConfigDir returns the config directory
func (pr *PathResolver) GetConfigDir() string {
	return pr.configDir
}

// GetExecutableDir returns the directory containing the executable
func (pr *PathResolver) GetExecutableDir() string {
	return pr.executableDir
}

// GetRuntimeInfo returns debug information about the current runtime environment
func (pr *PathResolver) GetRuntimeInfo() map[string]string {
	cwd, _ := os.Getwd()
	info := map[string]string{
		"executable_path": pr.executablePath,
		"executable_dir":  pr.executableDir,
		"current_dir":     cwd,
		"home_dir":        pr.homeDir,
		"config_dir":      pr.configDir,
		"os":              runtime.GOOS,
		"arch":            runtime.GOARCH,
	}
	for _, envVar := range []string{"HOME", "XDG_CONFIG_HOME", "APPDATA"} {
		if value := os.Getenv(envVar); value != "" {
			info["env_"+strings.ToLower(envVar)] = value
		}
	}
	return info
}
