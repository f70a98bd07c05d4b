package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/alucardeht/jurismap/internal/importer"
	"github.com/alucardeht/jurismap/internal/logger"
	"github.com/alucardeht/jurismap/internal/progress"
	"github.com/alucardeht/jurismap/internal/registry"
	"github.com/alucardeht/jurismap/internal/watcher"
)

const (
	DefaultManifestFile = "versions.json"
	TestManifestFile    = "versions-zz.json"

	envPrefix = "JURISMAP_"
)

type ImportConfig struct {
	Atomic         bool `yaml:"atomic"`
	ListBatchSize  int  `yaml:"list_batch_size"`
	ProgressEvery  int  `yaml:"progress_every"`
	ValidateSchema bool `yaml:"validate_schema"`
}

type Config struct {
	DataDir      string         `yaml:"data_dir"`
	MapsDir      string         `yaml:"maps_dir"`
	ManifestFile string         `yaml:"manifest_file"`
	TestMode     bool           `yaml:"test_mode"`
	DatabasePath string         `yaml:"database_path"`
	SocketPath   string         `yaml:"socket_path"`
	MetricsAddr  string         `yaml:"metrics_addr"`
	LogLevel     string         `yaml:"log_level"`
	LogFormat    string         `yaml:"log_format"`
	Import       ImportConfig   `yaml:"import"`
	Watcher      watcher.Config `yaml:"watcher"`
}

// Load returns the built-in defaults rooted at ~/.jurismap.
func Load() *Config {
	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".jurismap")

	return &Config{
		DataDir:      dataDir,
		MapsDir:      filepath.Join(dataDir, "maps"),
		DatabasePath: filepath.Join(dataDir, "jurismap.db"),
		SocketPath:   filepath.Join(dataDir, "daemon.sock"),
		LogLevel:     "info",
		LogFormat:    "text",
		Import: ImportConfig{
			Atomic:         true,
			ListBatchSize:  registry.DefaultConfig().BatchSize,
			ProgressEvery:  progress.DefaultEvery,
			ValidateSchema: true,
		},
		Watcher: watcher.DefaultConfig(),
	}
}

// LoadFile layers an optional YAML file and then the environment over the
// defaults. An empty path skips the file.
func LoadFile(path string) (*Config, error) {
	cfg := Load()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"DATA_DIR":      &c.DataDir,
		"MAPS_DIR":      &c.MapsDir,
		"MANIFEST_FILE": &c.ManifestFile,
		"DATABASE_PATH": &c.DatabasePath,
		"SOCKET_PATH":   &c.SocketPath,
		"METRICS_ADDR":  &c.MetricsAddr,
		"LOG_LEVEL":     &c.LogLevel,
		"LOG_FORMAT":    &c.LogFormat,
	}
	for key, dst := range strs {
		if v, ok := lookup(envPrefix + key); ok {
			*dst = v
		}
	}

	bools := map[string]*bool{
		"TEST_MODE":              &c.TestMode,
		"IMPORT_ATOMIC":          &c.Import.Atomic,
		"IMPORT_VALIDATE_SCHEMA": &c.Import.ValidateSchema,
		"WATCHER_ENABLED":        &c.Watcher.Enabled,
	}
	for key, dst := range bools {
		v, ok := lookup(envPrefix + key)
		if !ok {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", envPrefix, key, err)
		}
		*dst = b
	}

	if v, ok := lookup(envPrefix + "WATCHER_DEBOUNCE_WINDOW"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%sWATCHER_DEBOUNCE_WINDOW: %w", envPrefix, err)
		}
		c.Watcher.DebounceWindow = d
	}

	return nil
}

func (c *Config) Validate() error {
	var errs []error

	if c.MapsDir == "" {
		errs = append(errs, errors.New("maps_dir is required"))
	}
	if c.DatabasePath == "" {
		errs = append(errs, errors.New("database_path is required"))
	}
	if c.Import.ListBatchSize <= 0 {
		errs = append(errs, errors.New("import.list_batch_size must be positive"))
	}
	if c.Import.ProgressEvery <= 0 {
		errs = append(errs, errors.New("import.progress_every must be positive"))
	}
	if c.Watcher.Enabled && c.Watcher.DebounceWindow <= 0 {
		errs = append(errs, errors.New("watcher.debounce_window must be positive"))
	}
	if c.Watcher.MaxBatchSize <= 0 {
		errs = append(errs, errors.New("watcher.max_batch_size must be positive"))
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log_format must be text or json, got %q", c.LogFormat))
	}

	return errors.Join(errs...)
}

// ManifestName is the manifest file to read, honoring test mode unless a
// name was set explicitly.
func (c *Config) ManifestName() string {
	switch {
	case c.ManifestFile != "":
		return c.ManifestFile
	case c.TestMode:
		return TestManifestFile
	default:
		return DefaultManifestFile
	}
}

func (c *Config) LockPath() string {
	return filepath.Join(filepath.Dir(c.DatabasePath), "jurismap.lock")
}

func (c *Config) PIDPath() string {
	return filepath.Join(filepath.Dir(c.SocketPath), "daemon.pid")
}

func (c *Config) Service() importer.ServiceConfig {
	reg := registry.DefaultConfig()
	reg.ManifestFile = c.ManifestName()
	reg.BatchSize = c.Import.ListBatchSize

	return importer.ServiceConfig{
		MapsDir:  c.MapsDir,
		Registry: reg,
		Import: importer.Options{
			Atomic:         c.Import.Atomic,
			ValidateSchema: c.Import.ValidateSchema,
		},
		ProgressEvery: c.Import.ProgressEvery,
	}
}

func (c *Config) Logger() logger.Config {
	cfg := logger.DefaultConfig()
	cfg.Level = logger.ParseLevel(c.LogLevel)
	cfg.Format = strings.ToLower(c.LogFormat)
	return cfg
}

func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.DataDir, filepath.Dir(c.DatabasePath), filepath.Dir(c.SocketPath)} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0700); err != nil {
			return err
		}
	}
	return nil
}
