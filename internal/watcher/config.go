package watcher

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
)

type Config struct {
	Enabled        bool          `yaml:"enabled"`
	DebounceWindow time.Duration `yaml:"debounce_window"`
	MaxBatchSize   int           `yaml:"max_batch_size"`
	IgnorePatterns []string      `yaml:"ignore_patterns"`
	WatchHidden    bool          `yaml:"watch_hidden"`
}

func DefaultConfig() Config {
	return Config{
		Enabled:        true,
		DebounceWindow: 500 * time.Millisecond,
		MaxBatchSize:   100,
		IgnorePatterns: []string{
			"**/*.tmp",
			"**/*.swp",
			"**/*~",
		},
	}
}

// Ignored reports whether changes to path should never trigger a reinit.
// Patterns are matched against both the full path and the base name.
func (c Config) Ignored(path string) bool {
	base := filepath.Base(path)
	if !c.WatchHidden && strings.HasPrefix(base, ".") {
		return true
	}

	slashed := filepath.ToSlash(path)
	for _, pattern := range c.IgnorePatterns {
		if ok, _ := doublestar.Match(pattern, slashed); ok {
			return true
		}
		if ok, _ := doublestar.Match(pattern, base); ok {
			return true
		}
	}
	return false
}
