// Package spatial keeps the last known position of every tracked target.
package spatial

import (
	"math"
	"sort"
	"strings"
	"sync"

	"skywatch-sim/internal/geo"
	"skywatch-sim/internal/simerr"
)

// Box is an axis aligned region in the NED frame.
type Box struct {
	Min, Max geo.Position
}

func (b Box) contains(p geo.Position) bool {
	return p.North >= b.Min.North && p.North <= b.Max.North &&
		p.East >= b.Min.East && p.East <= b.Max.East &&
		p.Down >= b.Min.Down && p.Down <= b.Max.Down
}

// Index maps target ids to positions. It is safe for concurrent use.
type Index struct {
	mu        sync.RWMutex
	positions map[string]geo.Position
	bounds    *Box
}

// New returns an empty index. A nil bounds leaves the airspace unbounded.
func New(bounds *Box) *Index {
	return &Index{positions: make(map[string]geo.Position), bounds: bounds}
}

func checkID(id string) error {
	if strings.TrimSpace(id) == "" {
		return simerr.Validation("blank target id")
	}
	return nil
}

// Upsert stores or moves id.
func (ix *Index) Upsert(id string, p geo.Position) error {
	if err := checkID(id); err != nil {
		return err
	}
	ix.mu.Lock()
	ix.positions[id] = p
	ix.mu.Unlock()
	return nil
}

// Remove deletes id and reports whether it was present.
func (ix *Index) Remove(id string) bool {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	_, ok := ix.positions[id]
	delete(ix.positions, id)
	return ok
}

// Replace swaps the whole content for snapshot in one step.
func (ix *Index) Replace(snapshot map[string]geo.Position) error {
	next := make(map[string]geo.Position, len(snapshot))
	for id, p := range snapshot {
		if err := checkID(id); err != nil {
			return err
		}
		next[id] = p
	}
	ix.mu.Lock()
	ix.positions = next
	ix.mu.Unlock()
	return nil
}

// Position returns the stored position of id.
func (ix *Index) Position(id string) (geo.Position, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	p, ok := ix.positions[id]
	return p, ok
}

// Contains reports whether id is stored.
func (ix *Index) Contains(id string) bool {
	_, ok := ix.Position(id)
	return ok
}

// Len returns the number of stored ids.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.positions)
}

// WithinRadius lists ids no further than radius from center, nearest first.
func (ix *Index) WithinRadius(center geo.Position, radius float64) ([]string, error) {
	if radius <= 0 || math.IsNaN(radius) {
		return nil, simerr.Validation("radius %v must be positive", radius)
	}
	type hit struct {
		id string
		d  float64
	}
	ix.mu.RLock()
	hits := make([]hit, 0)
	for id, p := range ix.positions {
		if d := geo.Distance(center, p); d <= radius {
			hits = append(hits, hit{id, d})
		}
	}
	ix.mu.RUnlock()
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].d != hits[j].d {
			return hits[i].d < hits[j].d
		}
		return hits[i].id < hits[j].id
	})
	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.id
	}
	return ids, nil
}

// WithinBox lists ids inside b in id order.
func (ix *Index) WithinBox(b Box) []string {
	ix.mu.RLock()
	ids := make([]string, 0)
	for id, p := range ix.positions {
		if b.contains(p) {
			ids = append(ids, id)
		}
	}
	ix.mu.RUnlock()
	sort.Strings(ids)
	return ids
}

// Nearest returns the closest id within maxDist of p.
func (ix *Index) Nearest(p geo.Position, maxDist float64) (string, float64, error) {
	if maxDist <= 0 || math.IsNaN(maxDist) {
		return "", 0, simerr.Validation("max distance %v must be positive", maxDist)
	}
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	best, bestD := "", math.Inf(1)
	for id, q := range ix.positions {
		d := geo.Distance(p, q)
		if d > maxDist {
			continue
		}
		if d < bestD || (d == bestD && id < best) {
			best, bestD = id, d
		}
	}
	if best == "" {
		return "", 0, simerr.NotFound("no target within %v m", maxDist)
	}
	return best, bestD, nil
}

// InBounds reports whether p lies inside the airspace bounds.
func (ix *Index) InBounds(p geo.Position) bool {
	if ix.bounds == nil {
		return true
	}
	return ix.bounds.contains(p)
}
