// Package match selects the contours similar to a user-chosen reference
// and tracks manual corrections to that selection.
package match

import (
	"fmt"
	"math"

	"padscan/internal/contour"

	"gocv.io/x/gocv"
)

// Params holds the similarity tolerances.
type Params struct {
	// SizeTolerance is the allowed area deviation as a percentage of the
	// reference contour's area (0-100). The test is relative to the
	// reference only: |area[i]-area[r]| <= (s/100)*area[r]. The relation
	// is not symmetric between the two contours.
	SizeTolerance float64

	// ShapeTolerance is the upper bound (exclusive) on the shape-distance
	// score, 0-2. The score is the greatest absolute difference between
	// corresponding moment invariants of candidate and reference,
	// normalized by the reference invariant; identical shapes score 0.
	ShapeTolerance float64
}

// Normalized returns the params clipped to their valid ranges and rounded
// to the precision the tolerances are quoted at (0.1% size, 0.001 shape).
func (p Params) Normalized() Params {
	return Params{
		SizeTolerance:  math.Round(clampF(p.SizeTolerance, 0, 100)*10) / 10,
		ShapeTolerance: math.Round(clampF(p.ShapeTolerance, 0, 2)*1000) / 1000,
	}
}

// SimilarSet tracks which contours match the reference, along with the
// manual add/remove corrections. The effective selection is always
// (matched plus added) minus removed.
type SimilarSet struct {
	set       *contour.Set
	reference int
	params    Params

	matched []int
	added   map[int]struct{}
	removed map[int]struct{}
}

// New begins a selection around the given reference contour. Choosing a
// reference with zero area or zero region moments fails with
// DegenerateContour, leaving the caller's previous selection intact.
func New(cs *contour.Set, reference int) (*SimilarSet, error) {
	if reference < 0 || reference >= cs.Len() {
		return nil, fmt.Errorf("reference index %d out of range [0,%d)", reference, cs.Len())
	}
	if cs.Area(reference) == 0 {
		return nil, fmt.Errorf("reference %d has zero area: %w", reference, contour.ErrDegenerateContour)
	}
	if _, err := cs.RegionMoments(reference); err != nil {
		return nil, err
	}

	return &SimilarSet{
		set:       cs,
		reference: reference,
		added:     make(map[int]struct{}),
		removed:   make(map[int]struct{}),
	}, nil
}

// Match recomputes the matched set under new tolerances. Manual removals
// are cleared: the automatic membership may have shifted, so a removal
// recorded against the old membership is meaningless. Manual additions
// survive.
func (ss *SimilarSet) Match(p Params) {
	ss.params = p.Normalized()
	refArea := ss.set.Area(ss.reference)
	ref := ss.set.At(ss.reference)

	ss.matched = ss.matched[:0]
	for i := 0; i < ss.set.Len(); i++ {
		if math.Abs(ss.set.Area(i)-refArea) > ss.params.SizeTolerance/100.0*refArea {
			continue
		}
		score := gocv.MatchShapes(ss.set.At(i), ref, gocv.ContoursMatchI3, 0)
		if score < ss.params.ShapeTolerance {
			ss.matched = append(ss.matched, i)
		}
	}

	ss.removed = make(map[int]struct{})
}

// Reference returns the reference contour index.
func (ss *SimilarSet) Reference() int { return ss.reference }

// Params returns the tolerances of the last Match call.
func (ss *SimilarSet) Params() Params { return ss.params }

// Matched returns the automatically matched indices, ascending.
func (ss *SimilarSet) Matched() []int {
	out := make([]int, len(ss.matched))
	copy(out, ss.matched)
	return out
}

func clampF(v, minVal, maxVal float64) float64 {
	if v < minVal {
		return minVal
	}
	if v > maxVal {
		return maxVal
	}
	return v
}
