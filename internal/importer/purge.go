package importer

import (
	"context"

	"github.com/alucardeht/jurismap/internal/allocator"
	"github.com/alucardeht/jurismap/internal/store"
)

// PurgeResult carries what the purge freed and what remains, which is
// exactly the state the allocators need.
type PurgeResult struct {
	JurisdictionHoles []int64
	CourtHoles        []int64
	Jurisdictions     []int64
	Courts            []int64
}

// Purge removes a top-level jurisdiction's subtree and every court left
// without an association.
func Purge(ctx context.Context, q *store.Queries, jurisdictionID string) (*PurgeResult, error) {
	res := &PurgeResult{}
	var err error

	if res.JurisdictionHoles, err = q.PurgeJurisdictions(ctx, jurisdictionID); err != nil {
		return nil, err
	}
	if res.CourtHoles, err = q.PurgeOrphanCourts(ctx); err != nil {
		return nil, err
	}
	if res.Courts, err = q.CourtIndices(ctx); err != nil {
		return nil, err
	}
	if res.Jurisdictions, err = q.JurisdictionIndices(ctx); err != nil {
		return nil, err
	}

	return res, nil
}

func (p *PurgeResult) Seed(jurisdictions, courts *allocator.Allocator) {
	jurisdictions.Seed(p.Jurisdictions, p.JurisdictionHoles)
	courts.Seed(p.Courts, p.CourtHoles)
}
