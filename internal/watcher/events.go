package watcher

import (
	"path/filepath"
	"strings"
	"time"
)

type EventType int

const (
	EventCreate EventType = iota
	EventModify
	EventDelete
	EventRename
)

func (e EventType) String() string {
	switch e {
	case EventCreate:
		return "create"
	case EventModify:
		return "modify"
	case EventDelete:
		return "delete"
	case EventRename:
		return "rename"
	default:
		return "unknown"
	}
}

type FileEvent struct {
	Path      string
	Type      EventType
	Timestamp time.Time
}

// Impact says how much of the maps directory a batch of events touched.
type Impact int

const (
	ImpactNone Impact = iota
	ImpactDescriptors
	ImpactManifest
)

func (i Impact) String() string {
	switch i {
	case ImpactNone:
		return "none"
	case ImpactDescriptors:
		return "descriptors"
	case ImpactManifest:
		return "manifest"
	default:
		return "unknown"
	}
}

// EventClassifier decides whether a batch of events warrants a reinit.
type EventClassifier struct {
	manifestFile string
}

func NewEventClassifier(manifestFile string) *EventClassifier {
	return &EventClassifier{manifestFile: manifestFile}
}

func (c *EventClassifier) Classify(event FileEvent) Impact {
	base := filepath.Base(event.Path)
	switch {
	case base == c.manifestFile:
		return ImpactManifest
	case strings.HasSuffix(strings.ToLower(base), ".json"):
		return ImpactDescriptors
	default:
		return ImpactNone
	}
}

// ClassifyBatch returns the highest impact of the batch.
func (c *EventClassifier) ClassifyBatch(events []FileEvent) Impact {
	impact := ImpactNone
	for _, e := range events {
		if i := c.Classify(e); i > impact {
			impact = i
		}
	}
	return impact
}
