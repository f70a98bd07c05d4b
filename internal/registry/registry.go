package registry

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/alucardeht/jurismap/internal/logger"
)

var log = logger.ForComponent("registry")

var ErrNotLoaded = errors.New("juris maps not yet loaded")

const (
	mapPrefix = "juris-"
	mapSuffix = "-map.json"
)

type Config struct {
	ManifestFile    string
	BatchSize       int
	ExcludePatterns []string
}

func DefaultConfig() Config {
	return Config{
		ManifestFile:    "versions.json",
		BatchSize:       10,
		ExcludePatterns: []string{"versions*.json"},
	}
}

// Map is a descriptor file discovered on disk.
type Map struct {
	ID       string `json:"id"`
	Path     string `json:"path"`
	FileName string `json:"file_name"`
}

type Duplicate struct {
	ID      string `json:"id"`
	Kept    string `json:"kept"`
	Ignored string `json:"ignored"`
}

// Registry indexes the descriptor files of one directory by jurisdiction ID.
type Registry struct {
	config Config

	mu           sync.RWMutex
	maps         map[string]*Map
	duplicates   []Duplicate
	manifestPath string
	loaded       bool
}

func New(config Config) *Registry {
	if config.BatchSize <= 0 {
		config.BatchSize = 10
	}
	if config.ManifestFile == "" {
		config.ManifestFile = DefaultConfig().ManifestFile
	}
	return &Registry{config: config}
}

// Scan replaces the index with the descriptors found in dir.
func (r *Registry) Scan(ctx context.Context, dir string) (int, error) {
	lister, err := OpenDir(dir)
	if err != nil {
		return 0, fmt.Errorf("open maps dir: %w", err)
	}
	defer lister.Close()
	return r.ScanLister(ctx, lister)
}

func (r *Registry) ScanLister(ctx context.Context, lister Lister) (int, error) {
	maps := make(map[string]*Map)
	var duplicates []Duplicate
	manifestPath := ""

	for {
		if err := ctx.Err(); err != nil {
			return 0, err
		}

		batch, err := lister.Next(r.config.BatchSize)
		if err != nil {
			return 0, fmt.Errorf("list maps dir: %w", err)
		}
		if len(batch) == 0 {
			break
		}

		for _, entry := range batch {
			if entry.IsDir || entry.Name == "" || strings.HasPrefix(entry.Name, ".") {
				continue
			}
			if entry.Name == r.config.ManifestFile {
				manifestPath = entry.Path
				continue
			}
			if r.excluded(entry.Name) {
				continue
			}

			id, ok := MapID(entry.Name)
			if !ok {
				continue
			}

			if existing, dup := maps[id]; dup {
				log.Warn("juris map already loaded", "id", id, "kept", existing.FileName, "ignored", entry.Name)
				duplicates = append(duplicates, Duplicate{ID: id, Kept: existing.FileName, Ignored: entry.Name})
				continue
			}
			maps[id] = &Map{ID: id, Path: entry.Path, FileName: entry.Name}
		}
	}

	r.mu.Lock()
	r.maps = maps
	r.duplicates = duplicates
	r.manifestPath = manifestPath
	r.loaded = true
	r.mu.Unlock()

	log.Debug("cached juris maps", "count", len(maps), "duplicates", len(duplicates))
	return len(maps), nil
}

func (r *Registry) excluded(name string) bool {
	for _, pattern := range r.config.ExcludePatterns {
		if match, _ := doublestar.Match(pattern, name); match {
			return true
		}
	}
	return false
}

// MapID derives a jurisdiction ID from a descriptor file name:
// juris-<ID>-map.json or <ID>.json.
func MapID(fileName string) (string, bool) {
	if match, _ := doublestar.Match(mapPrefix+"*"+mapSuffix, fileName); match {
		id := strings.TrimSuffix(strings.TrimPrefix(fileName, mapPrefix), mapSuffix)
		return id, id != ""
	}
	if strings.HasPrefix(fileName, mapPrefix) {
		return "", false
	}
	if match, _ := doublestar.Match("*.json", fileName); match {
		id := strings.TrimSuffix(fileName, filepath.Ext(fileName))
		return id, id != ""
	}
	return "", false
}

// Get reports whether a descriptor with the given ID is known. It fails
// with ErrNotLoaded until the first scan has completed.
func (r *Registry) Get(id string) (*Map, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if !r.loaded {
		return nil, false, ErrNotLoaded
	}
	m, ok := r.maps[id]
	return m, ok, nil
}

func (r *Registry) List() []*Map {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Map, 0, len(r.maps))
	for _, m := range r.maps {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *Registry) Duplicates() []Duplicate {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Duplicate(nil), r.duplicates...)
}

func (r *Registry) ManifestPath() (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.manifestPath, r.manifestPath != ""
}

func (r *Registry) Loaded() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.loaded
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.maps)
}
