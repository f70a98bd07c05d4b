package store

import (
	"context"
	"fmt"
)

// subtreeRange bounds the IDs strictly below id in the colon hierarchy:
// every "id:..." sorts in [id+":", id+";").
func subtreeRange(id string) (string, string) {
	return id + ":", id + ";"
}

// PurgeJurisdictions deletes the rows of a top-level jurisdiction and all of
// its descendants together with their court associations. It returns the
// freed indices in ascending order.
func (q *Queries) PurgeJurisdictions(ctx context.Context, jurisdictionID string) ([]int64, error) {
	lo, hi := subtreeRange(jurisdictionID)
	const where = "jurisdictionID = ? OR (jurisdictionID >= ? AND jurisdictionID < ?)"

	holes, err := q.column(ctx,
		"SELECT jurisdictionIdx FROM jurisdictions WHERE "+where+" ORDER BY jurisdictionIdx ASC",
		jurisdictionID, lo, hi)
	if err != nil {
		return nil, fmt.Errorf("collect jurisdiction holes: %w", err)
	}

	if _, err := q.q.ExecContext(ctx,
		"DELETE FROM jurisdictionCourts WHERE jurisdictionIdx IN (SELECT jurisdictionIdx FROM jurisdictions WHERE "+where+")",
		jurisdictionID, lo, hi); err != nil {
		return nil, fmt.Errorf("delete jurisdiction courts: %w", err)
	}

	if _, err := q.q.ExecContext(ctx, "DELETE FROM jurisdictions WHERE "+where, jurisdictionID, lo, hi); err != nil {
		return nil, fmt.Errorf("delete jurisdictions: %w", err)
	}

	return holes, nil
}

// PurgeOrphanCourts deletes courts no association references and returns
// their indices in ascending order.
func (q *Queries) PurgeOrphanCourts(ctx context.Context) ([]int64, error) {
	holes, err := q.column(ctx,
		"SELECT courtIdx FROM courts WHERE courtIdx NOT IN (SELECT courtIdx FROM jurisdictionCourts) ORDER BY courtIdx ASC")
	if err != nil {
		return nil, fmt.Errorf("collect court holes: %w", err)
	}

	if _, err := q.q.ExecContext(ctx,
		"DELETE FROM courts WHERE courtIdx NOT IN (SELECT courtIdx FROM jurisdictionCourts)"); err != nil {
		return nil, fmt.Errorf("delete orphan courts: %w", err)
	}

	return holes, nil
}

func (q *Queries) JurisdictionIndices(ctx context.Context) ([]int64, error) {
	idx, err := q.column(ctx, "SELECT jurisdictionIdx FROM jurisdictions")
	if err != nil {
		return nil, fmt.Errorf("list jurisdiction indices: %w", err)
	}
	return idx, nil
}

func (q *Queries) CourtIndices(ctx context.Context) ([]int64, error) {
	idx, err := q.column(ctx, "SELECT courtIdx FROM courts")
	if err != nil {
		return nil, fmt.Errorf("list court indices: %w", err)
	}
	return idx, nil
}

func (q *Queries) column(ctx context.Context, query string, args ...any) ([]int64, error) {
	rows, err := q.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var v int64
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
