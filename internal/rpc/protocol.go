package rpc

import (
	"time"

	"github.com/alucardeht/jurismap/internal/importer"
	"github.com/alucardeht/jurismap/internal/registry"
	"github.com/alucardeht/jurismap/internal/store"
)

const (
	MethodStatus = "jurismap.status"
	MethodMaps   = "jurismap.maps"
	MethodLookup = "jurismap.lookup"
	MethodCourts = "jurismap.courts"
	MethodReinit = "jurismap.reinit"
)

// Error codes outside the range reserved by JSON-RPC 2.0.
const (
	CodeNotLoaded int64 = -32001
	CodeNotFound  int64 = -32004
)

type StatusResult struct {
	Initialized bool                     `json:"initialized"`
	State       string                   `json:"state"`
	Uptime      time.Duration            `json:"uptime"`
	Maps        int                      `json:"maps"`
	Stats       *store.Stats             `json:"stats"`
	Versions    []store.Version          `json:"versions"`
	LastReport  *importer.PopulateReport `json:"last_report,omitempty"`
}

type MapsResult struct {
	Maps       []*registry.Map      `json:"maps"`
	Duplicates []registry.Duplicate `json:"duplicates,omitempty"`
}

type LookupParams struct {
	ID   string `json:"id"`
	Lang string `json:"lang,omitempty"`
}

type CourtsResult struct {
	Courts []*store.Court `json:"courts"`
}
