/*
Package config manages TOML config for SwipeServe.
*/
package config

import (
	"os"
	"path/filepath"

	"github.com/bastiangx/swipeserve/internal/utils"
	"github.com/charmbracelet/log"
)

// Config holds the entire config structure
type Config struct {
	Gesture  GestureConfig  `toml:"gesture"`
	Decoder  DecoderConfig  `toml:"decoder"`
	Language LanguageConfig `toml:"language"`
	Personal PersonalConfig `toml:"personal"`
	Server   ServerConfig   `toml:"server"`
	CLI      CliConfig      `toml:"cli"`
}

// GestureConfig holds swipe segmentation thresholds. Distances are in
// pixels before device scaling.
type GestureConfig struct {
	DebounceMs     int     `toml:"debounce_ms"`
	MediumWindowMs int     `toml:"medium_window_ms"`
	FullDistance   float32 `toml:"full_distance"`
	MediumDistance float32 `toml:"medium_distance"`
	PointSpacing   float32 `toml:"point_spacing"`
	KeyTravel      float32 `toml:"key_travel"`
	MaxVelocity    float32 `toml:"max_velocity"`
	MinDwellMs     int     `toml:"min_dwell_ms"`
	DeviceScale    float32 `toml:"device_scale"`
	LoopRepair     bool    `toml:"loop_repair"`
}

// DecoderConfig holds recognizer and pipeline options.
type DecoderConfig struct {
	MinPathLength      float32 `toml:"min_path_length"`
	MinSwipeLength     float32 `toml:"min_swipe_length"`
	MinConfidence      float32 `toml:"min_confidence"`
	MaxCandidates      int     `toml:"max_candidates"`
	ProximityRadius    float32 `toml:"proximity_radius"`
	SmoothingWindow    int     `toml:"smoothing_window"`
	MaxEditDistance    int     `toml:"max_edit_distance"`
	CurvatureThreshold float32 `toml:"curvature_threshold"`
	Workers            int     `toml:"workers"`
	PartialEvery       int     `toml:"partial_every"`
	ResampleLength     int     `toml:"resample_length"`
	ResampleMode       string  `toml:"resample_mode"`
	NeuralWeight       float32 `toml:"neural_weight"`
}

// LanguageConfig holds language model and dictionary options.
type LanguageConfig struct {
	Default  string  `toml:"default"`
	DataDir  string  `toml:"data_dir"`
	MaxWords int     `toml:"max_words"`
	Lambda   float32 `toml:"lambda"`
	Floor    float32 `toml:"floor"`
}

// PersonalConfig holds personalization storage options.
type PersonalConfig struct {
	Backend      string `toml:"backend"` // "sqlite", "file" or "memory"
	Path         string `toml:"path"`
	MaxWords     int    `toml:"max_words"`
	MaxBigrams   int    `toml:"max_bigrams"`
	MaxFrequency int    `toml:"max_frequency"`
	SaveEvery    int    `toml:"save_every"`
}

// ServerConfig has server related options.
type ServerConfig struct {
	MaxPoints      int  `toml:"max_points"`
	PredictLimit   int  `toml:"predict_limit"`
	StreamPartials bool `toml:"stream_partials"`
}

// CliConfig holds cli interface options.
type CliConfig struct {
	DefaultLimit int     `toml:"default_limit"`
	KeyWidth     float32 `toml:"key_width"`
	KeyHeight    float32 `toml:"key_height"`
	TraceStep    float32 `toml:"trace_step"`
	TraceDtMs    int     `toml:"trace_dt_ms"`
}

// GetConfigDir returns the config directory with fallback priority:
// 1. ~/.config/
// 2. ~/Library/Application Support/ (macOS)
// 3. Current executable dir
// 4. builtin defaults
func GetConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Errorf("Failed to get home directory: %v", err)
		execDir, execErr := utils.GetExecutableDir()
		if execErr != nil {
			return "", execErr
		}
		return execDir, nil
	}
	primaryPath := filepath.Join(homeDir, ".config", "swipeserve")
	if result := utils.CheckDirStatus(primaryPath); result.Writable {
		return primaryPath, nil
	}
	macOSPath := filepath.Join(homeDir, "Library", "Application Support", "swipeserve")
	if result := utils.CheckDirStatus(macOSPath); result.Writable {
		return macOSPath, nil
	}
	execDir, err := utils.GetExecutableDir()
	if err != nil {
		log.Errorf("Failed to get executable directory: %v", err)
		return "", err
	}
	return execDir, nil
}

// GetDefaultConfigPath returns the default path for config.toml
func GetDefaultConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.toml"), nil
}

// LoadConfigWithPriority loads config with priority:
// 1. Custom path from --config flag
// 2. Default path: [UserConfigDir]/swipeserve/config.toml
// 3. Builtin defaults
func LoadConfigWithPriority(customConfigPath string) (*Config, string, error) {
	if customConfigPath != "" {
		if _, statErr := os.Stat(customConfigPath); statErr == nil {
			config, err := LoadConfig(customConfigPath)
			if err != nil {
				log.Warnf("Failed to load custom config from %s: %v. Trying default path...", customConfigPath, err)
			} else {
				log.Debugf("Loaded config from custom path: %s", customConfigPath)
				return config, customConfigPath, nil
			}
		} else {
			log.Warnf("Custom config file not found at %s: %v. Trying default path...", customConfigPath, statErr)
		}
	}
	defaultPath, err := GetDefaultConfigPath()
	if err != nil {
		log.Warnf("Failed to determine default config path: %v. Using built-in defaults...", err)
		return DefaultConfig(), "", nil
	}

	config, err := InitConfig(defaultPath)
	if err != nil {
		log.Warnf("Failed to load/create config at default path %s: %v. Using builtin defaults...", defaultPath, err)
		return DefaultConfig(), "", nil
	}
	log.Debugf("Loaded config from default path: %s", defaultPath)
	return config, defaultPath, nil
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Gesture: GestureConfig{
			DebounceMs:     150,
			MediumWindowMs: 200,
			FullDistance:   50,
			MediumDistance: 35,
			PointSpacing:   25,
			KeyTravel:      35,
			MaxVelocity:    0.15,
			MinDwellMs:     30,
			DeviceScale:    1,
			LoopRepair:     true,
		},
		Decoder: DecoderConfig{
			MinPathLength:      10,
			MinSwipeLength:     50,
			MinConfidence:      0.01,
			MaxCandidates:      10,
			ProximityRadius:    100,
			SmoothingWindow:    3,
			MaxEditDistance:    2,
			CurvatureThreshold: 0.5,
			Workers:            4,
			PartialEvery:       5,
			ResampleLength:     150,
			ResampleMode:       "discard",
			NeuralWeight:       0.5,
		},
		Language: LanguageConfig{
			Default:  "en",
			DataDir:  "data/",
			MaxWords: 50000,
			Lambda:   0.95,
			Floor:    0.0001,
		},
		Personal: PersonalConfig{
			Backend:      "sqlite",
			Path:         "personal.db",
			MaxWords:     1000,
			MaxBigrams:   500,
			MaxFrequency: 10000,
			SaveEvery:    10,
		},
		Server: ServerConfig{
			MaxPoints:      2000,
			PredictLimit:   5,
			StreamPartials: true,
		},
		CLI: CliConfig{
			DefaultLimit: 5,
			KeyWidth:     100,
			KeyHeight:    80,
			TraceStep:    30,
			TraceDtMs:    40,
		},
	}
}

// InitConfig loads config from file or creates default if missing
func InitConfig(configPath string) (*Config, error) {
	configDir := filepath.Dir(configPath)

	if err := utils.EnsureDir(configDir); err != nil {
		log.Warnf("Failed to create config directory %s: %v. Using built-in defaults...", configDir, err)
		return DefaultConfig(), nil
	}

	if !utils.FileExists(configPath) {
		config := DefaultConfig()
		if err := SaveConfig(config, configPath); err != nil {
			log.Warnf("Failed to create default config file at %s: %v. Using built-in defaults...", configPath, err)
			return DefaultConfig(), nil
		}
		log.Debugf("Created default config file at: %s", configPath)
		return config, nil
	}

	config, err := LoadConfig(configPath)
	if err != nil {
		log.Warnf("Failed to load config from %s: %v. Using built-in defaults...", configPath, err)
		return DefaultConfig(), nil
	}
	return config, nil
}

// LoadConfig loads from a TOML file
func LoadConfig(configPath string) (*Config, error) {
	config := DefaultConfig()

	if err := utils.LoadTOMLFile(configPath, config); err != nil {
		return tryPartialParse(configPath)
	}
	return config, nil
}

// tryPartialParse recovers what it can from a file that failed strict decoding
func tryPartialParse(configPath string) (*Config, error) {
	config := DefaultConfig()

	tempConfig, err := utils.ParseTOMLWithRecovery(configPath)
	if err != nil {
		log.Warnf("Could not parse any valid configuration from %s: %v. Using all defaults.", configPath, err)
		return config, nil
	}

	if section, ok := utils.ExtractSection(tempConfig, "gesture"); ok {
		extractGestureConfig(section, &config.Gesture)
	}
	if section, ok := utils.ExtractSection(tempConfig, "decoder"); ok {
		extractDecoderConfig(section, &config.Decoder)
	}
	if section, ok := utils.ExtractSection(tempConfig, "language"); ok {
		extractLanguageConfig(section, &config.Language)
	}
	if section, ok := utils.ExtractSection(tempConfig, "personal"); ok {
		extractPersonalConfig(section, &config.Personal)
	}
	if section, ok := utils.ExtractSection(tempConfig, "server"); ok {
		extractServerConfig(section, &config.Server)
	}
	if section, ok := utils.ExtractSection(tempConfig, "cli"); ok {
		extractCliConfig(section, &config.CLI)
	}
	return config, nil
}

func setInt(data map[string]any, key string, dst *int) {
	if val, ok := utils.ExtractInt64(data, key); ok {
		*dst = val
	}
}

func setFloat(data map[string]any, key string, dst *float32) {
	if val, ok := utils.ExtractFloat32(data, key); ok {
		*dst = val
	}
}

func setBool(data map[string]any, key string, dst *bool) {
	if val, ok := utils.ExtractBool(data, key); ok {
		*dst = val
	}
}

func setString(data map[string]any, key string, dst *string) {
	if val, ok := utils.ExtractString(data, key); ok {
		*dst = val
	}
}

func extractGestureConfig(data map[string]any, g *GestureConfig) {
	setInt(data, "debounce_ms", &g.DebounceMs)
	setInt(data, "medium_window_ms", &g.MediumWindowMs)
	setFloat(data, "full_distance", &g.FullDistance)
	setFloat(data, "medium_distance", &g.MediumDistance)
	setFloat(data, "point_spacing", &g.PointSpacing)
	setFloat(data, "key_travel", &g.KeyTravel)
	setFloat(data, "max_velocity", &g.MaxVelocity)
	setInt(data, "min_dwell_ms", &g.MinDwellMs)
	setFloat(data, "device_scale", &g.DeviceScale)
	setBool(data, "loop_repair", &g.LoopRepair)
}

func extractDecoderConfig(data map[string]any, d *DecoderConfig) {
	setFloat(data, "min_path_length", &d.MinPathLength)
	setFloat(data, "min_swipe_length", &d.MinSwipeLength)
	setFloat(data, "min_confidence", &d.MinConfidence)
	setInt(data, "max_candidates", &d.MaxCandidates)
	setFloat(data, "proximity_radius", &d.ProximityRadius)
	setInt(data, "smoothing_window", &d.SmoothingWindow)
	setInt(data, "max_edit_distance", &d.MaxEditDistance)
	setFloat(data, "curvature_threshold", &d.CurvatureThreshold)
	setInt(data, "workers", &d.Workers)
	setInt(data, "partial_every", &d.PartialEvery)
	setInt(data, "resample_length", &d.ResampleLength)
	setString(data, "resample_mode", &d.ResampleMode)
	setFloat(data, "neural_weight", &d.NeuralWeight)
}

func extractLanguageConfig(data map[string]any, l *LanguageConfig) {
	setString(data, "default", &l.Default)
	setString(data, "data_dir", &l.DataDir)
	setInt(data, "max_words", &l.MaxWords)
	setFloat(data, "lambda", &l.Lambda)
	setFloat(data, "floor", &l.Floor)
}

func extractPersonalConfig(data map[string]any, p *PersonalConfig) {
	setString(data, "backend", &p.Backend)
	setString(data, "path", &p.Path)
	setInt(data, "max_words", &p.MaxWords)
	setInt(data, "max_bigrams", &p.MaxBigrams)
	setInt(data, "max_frequency", &p.MaxFrequency)
	setInt(data, "save_every", &p.SaveEvery)
}

func extractServerConfig(data map[string]any, s *ServerConfig) {
	setInt(data, "max_points", &s.MaxPoints)
	setInt(data, "predict_limit", &s.PredictLimit)
	setBool(data, "stream_partials", &s.StreamPartials)
}

func extractCliConfig(data map[string]any, c *CliConfig) {
	setInt(data, "default_limit", &c.DefaultLimit)
	setFloat(data, "key_width", &c.KeyWidth)
	setFloat(data, "key_height", &c.KeyHeight)
	setFloat(data, "trace_step", &c.TraceStep)
	setInt(data, "trace_dt_ms", &c.TraceDtMs)
}

// RebuildConfigFile force creates a new config.toml at default
func RebuildConfigFile() error {
	defaultPath, err := GetDefaultConfigPath()
	if err != nil {
		return err
	}
	configDir := filepath.Dir(defaultPath)
	if err := utils.EnsureDir(configDir); err != nil {
		return err
	}
	return utils.SaveTOMLFile(DefaultConfig(), defaultPath)
}

// GetActiveConfigPath returns the absolute path of loaded config file
func GetActiveConfigPath(configPath string) string {
	if configPath == "" {
		if defaultPath, err := GetDefaultConfigPath(); err == nil {
			return defaultPath
		}
		return "unknown"
	}
	return utils.GetAbsolutePath(configPath)
}

// SaveConfig saves into a TOML file
func SaveConfig(config *Config, configPath string) error {
	return utils.SaveTOMLFile(config, configPath)
}

// ResolvePath makes p absolute relative to the config file's directory.
func ResolvePath(configPath, p string) string {
	if p == "" || filepath.IsAbs(p) || configPath == "" {
		return p
	}
	return filepath.Join(filepath.Dir(configPath), p)
}
