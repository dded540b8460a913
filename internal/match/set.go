package match

import (
	"fmt"
	"sort"

	"padscan/internal/contour"
	"padscan/pkg/geometry"
)

// Add toggles contour i in the manually-added set. Indices that are
// already automatically matched are never added. Re-invoking on an
// already-added index takes it back out.
func (ss *SimilarSet) Add(i int) error {
	if i < 0 || i >= ss.set.Len() {
		return fmt.Errorf("contour index %d out of range [0,%d)", i, ss.set.Len())
	}
	if ss.isMatched(i) {
		return nil
	}
	if _, ok := ss.added[i]; ok {
		delete(ss.added, i)
	} else {
		ss.added[i] = struct{}{}
	}
	return nil
}

// Remove toggles contour i in the manually-removed set. Only indices
// currently in the automatic match can be removed; re-invoking restores
// the index.
func (ss *SimilarSet) Remove(i int) error {
	if i < 0 || i >= ss.set.Len() {
		return fmt.Errorf("contour index %d out of range [0,%d)", i, ss.set.Len())
	}
	if !ss.isMatched(i) {
		return nil
	}
	if _, ok := ss.removed[i]; ok {
		delete(ss.removed, i)
	} else {
		ss.removed[i] = struct{}{}
	}
	return nil
}

// Reset clears all manual corrections.
func (ss *SimilarSet) Reset() {
	ss.added = make(map[int]struct{})
	ss.removed = make(map[int]struct{})
}

// Added returns the manually-added indices, ascending.
func (ss *SimilarSet) Added() []int { return sortedKeys(ss.added) }

// Removed returns the manually-removed indices, ascending.
func (ss *SimilarSet) Removed() []int { return sortedKeys(ss.removed) }

// Effective returns (matched plus added) minus removed, ascending.
func (ss *SimilarSet) Effective() []int {
	union := make(map[int]struct{}, len(ss.matched)+len(ss.added))
	for _, i := range ss.matched {
		union[i] = struct{}{}
	}
	for i := range ss.added {
		union[i] = struct{}{}
	}
	for i := range ss.removed {
		delete(union, i)
	}
	return sortedKeys(union)
}

func (ss *SimilarSet) isMatched(i int) bool {
	for _, m := range ss.matched {
		if m == i {
			return true
		}
	}
	return false
}

func sortedKeys(m map[int]struct{}) []int {
	out := make([]int, 0, len(m))
	for i := range m {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}

// Zone is one effective-set contour with its filled-region measurements.
type Zone struct {
	Index      int // Canonical contour index
	Center     geometry.Point2D
	MomentArea float64 // Filled pixel count (zeroth moment)
}

// Zones computes the centroid and moment area of every effective-set
// contour, in effective order.
func (ss *SimilarSet) Zones() ([]Zone, error) {
	effective := ss.Effective()
	zones := make([]Zone, len(effective))
	for n, i := range effective {
		m, err := ss.set.RegionMoments(i)
		if err != nil {
			return nil, err
		}
		zones[n] = Zone{Index: i, Center: m.Centroid, MomentArea: m.Area}
	}
	return zones, nil
}
