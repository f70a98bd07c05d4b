// Package allocator hands out integer row indices for one entity kind,
// reusing indices freed by earlier deletions before minting new ones.
package allocator

import "sort"

type Stats struct {
	Reused int `json:"reused"`
	Minted int `json:"minted"`
}

type Allocator struct {
	lastIndex int64
	holes     []int64
	occupied  map[int64]struct{}
	stats     Stats
}

func New() *Allocator {
	a := &Allocator{}
	a.Seed(nil, nil)
	return a
}

// Seed resets the allocator. occupied lists indices currently persisted;
// holes lists freed indices eligible for reuse.
func (a *Allocator) Seed(occupied, holes []int64) {
	a.lastIndex = 1
	a.stats = Stats{}

	a.occupied = make(map[int64]struct{}, len(occupied)+len(holes))
	for _, idx := range occupied {
		a.occupied[idx] = struct{}{}
	}

	a.holes = make([]int64, 0, len(holes))
	seen := make(map[int64]struct{}, len(holes))
	for _, idx := range holes {
		if _, dup := seen[idx]; dup {
			continue
		}
		if _, taken := a.occupied[idx]; taken {
			continue
		}
		seen[idx] = struct{}{}
		a.holes = append(a.holes, idx)
	}
	sort.Slice(a.holes, func(i, j int) bool { return a.holes[i] < a.holes[j] })
}

// Next returns the lowest hole if one is left, otherwise the first
// unoccupied index above the last one minted.
func (a *Allocator) Next() int64 {
	if len(a.holes) > 0 {
		idx := a.holes[0]
		a.holes = a.holes[1:]
		a.occupied[idx] = struct{}{}
		a.stats.Reused++
		return idx
	}

	candidate := a.lastIndex + 1
	for {
		if _, taken := a.occupied[candidate]; !taken {
			break
		}
		candidate++
	}
	a.lastIndex = candidate
	a.occupied[candidate] = struct{}{}
	a.stats.Minted++
	return candidate
}

func (a *Allocator) Holes() []int64 {
	return append([]int64(nil), a.holes...)
}

func (a *Allocator) LastIndex() int64 {
	return a.lastIndex
}

func (a *Allocator) Stats() Stats {
	return a.stats
}
