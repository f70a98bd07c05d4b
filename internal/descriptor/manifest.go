package descriptor

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
)

var ErrManifest = errors.New("manifest unavailable")

// ManifestEntry is the version declaration for one top-level jurisdiction.
type ManifestEntry struct {
	JurisdictionID string `json:"-"`
	Timestamp      int64  `json:"timestamp"`
	RowCount       int    `json:"rowcount"`
}

// Manifest maps top-level jurisdiction IDs to their declared versions.
type Manifest map[string]ManifestEntry

func ParseManifest(data []byte) (Manifest, error) {
	text, err := normalize(data)
	if err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrManifest, err)
	}

	var raw map[string]ManifestEntry
	if err := json.Unmarshal(text, &raw); err != nil {
		return nil, fmt.Errorf("%w: parse: %v", ErrManifest, err)
	}

	manifest := make(Manifest, len(raw))
	for id, entry := range raw {
		if id == "" {
			return nil, fmt.Errorf("%w: empty jurisdiction id", ErrManifest)
		}
		if entry.RowCount < 0 {
			return nil, fmt.Errorf("%w: %s: negative rowcount %d", ErrManifest, id, entry.RowCount)
		}
		entry.JurisdictionID = id
		manifest[id] = entry
	}
	return manifest, nil
}

func LoadManifest(path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrManifest, err)
	}
	return ParseManifest(data)
}

// IDs returns the manifest's jurisdiction IDs in ascending order.
func (m Manifest) IDs() []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
