package importer

import (
	"context"
	"fmt"

	"github.com/alucardeht/jurismap/internal/descriptor"
)

// VersionReader exposes the persisted version markers.
type VersionReader interface {
	Version(ctx context.Context, jurisdictionID string) (int64, bool, error)
}

// WorkList is the set of top-level jurisdictions due for (re)import.
type WorkList struct {
	Entries   []descriptor.ManifestEntry `json:"entries"`
	TotalRows int                        `json:"total_rows"`
}

func (w *WorkList) IDs() []string {
	ids := make([]string, len(w.Entries))
	for i, e := range w.Entries {
		ids[i] = e.JurisdictionID
	}
	return ids
}

func (w *WorkList) Empty() bool {
	return len(w.Entries) == 0
}

// Diff schedules every manifest entry that was never imported or whose
// timestamp is newer than the stored one. Entries come out in ascending ID
// order.
func Diff(ctx context.Context, manifest descriptor.Manifest, versions VersionReader) (*WorkList, error) {
	work := &WorkList{}

	for _, id := range manifest.IDs() {
		entry := manifest[id]

		stored, ok, err := versions.Version(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("diff %s: %w", id, err)
		}
		if ok && entry.Timestamp <= stored {
			continue
		}

		work.Entries = append(work.Entries, entry)
		work.TotalRows += entry.RowCount
	}

	return work, nil
}
