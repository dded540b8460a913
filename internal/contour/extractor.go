// Package contour traces connected foreground regions in a mask and
// maintains the canonical contour ordering every later stage indexes into.
package contour

import (
	"errors"
	"fmt"
	"image"
	"sort"

	"gocv.io/x/gocv"
)

// MinArea is the fixed policy threshold: contours with boundary area at
// or below this many square pixels are discarded before any further use.
const MinArea = 5.0

var (
	// ErrInvalidMask means a non-single-channel image reached the extractor.
	ErrInvalidMask = errors.New("mask must be single-channel")
	// ErrNoContours means extraction found nothing above the area threshold.
	ErrNoContours = errors.New("no contours found")
	// ErrDegenerateContour means a contour has zero area or zero moments,
	// so no centroid exists for it.
	ErrDegenerateContour = errors.New("degenerate contour")
)

// Set holds the post-filter contours sorted ascending by boundary area.
// Indices into a Set are stable until the mask regenerates and a new Set
// replaces it.
type Set struct {
	contours gocv.PointsVector
	areas    []float64
}

// Extract traces the boundaries of connected foreground regions in the
// mask, drops contours with area <= MinArea, and sorts the remainder
// ascending by area. The hierarchy OpenCV computes during tree retrieval
// is discarded; downstream stages treat the contours as a flat list.
func Extract(mask gocv.Mat) (*Set, error) {
	if mask.Empty() {
		return nil, fmt.Errorf("%w: empty mask", ErrInvalidMask)
	}
	if mask.Channels() != 1 {
		return nil, fmt.Errorf("%w: got %d channels", ErrInvalidMask, mask.Channels())
	}

	hierarchy := gocv.NewMat()
	defer hierarchy.Close()
	raw := gocv.FindContoursWithParams(mask, &hierarchy, gocv.RetrievalTree, gocv.ChainApproxSimple)
	defer raw.Close()

	type sized struct {
		idx  int
		area float64
	}
	kept := make([]sized, 0, raw.Size())
	for i := 0; i < raw.Size(); i++ {
		area := gocv.ContourArea(raw.At(i))
		if area > MinArea {
			kept = append(kept, sized{idx: i, area: area})
		}
	}
	if len(kept) == 0 {
		return nil, ErrNoContours
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].area < kept[j].area
	})

	contours := gocv.NewPointsVector()
	areas := make([]float64, len(kept))
	for i, k := range kept {
		contours.Append(raw.At(k.idx))
		areas[i] = k.area
	}

	return &Set{contours: contours, areas: areas}, nil
}

// Len returns the number of contours in the set.
func (s *Set) Len() int { return len(s.areas) }

// At returns the contour at the canonical index.
func (s *Set) At(i int) gocv.PointVector { return s.contours.At(i) }

// Area returns the boundary-trace area of the contour at index i.
func (s *Set) Area(i int) float64 { return s.areas[i] }

// Areas returns the parallel area slice, ascending.
func (s *Set) Areas() []float64 { return s.areas }

// Contours exposes the underlying vector for bulk drawing calls.
func (s *Set) Contours() gocv.PointsVector { return s.contours }

// BoundingRect returns the axis-aligned bounding box of contour i.
func (s *Set) BoundingRect(i int) image.Rectangle {
	return gocv.BoundingRect(s.At(i))
}

// FillMask renders contour i filled into a fresh single-channel mask of
// the given image dimensions.
func (s *Set) FillMask(i, rows, cols int) gocv.Mat {
	m := gocv.Zeros(rows, cols, gocv.MatTypeCV8U)
	s.FillInto(&m, i)
	return m
}

// FillInto renders contour i filled into dst, which must span the full
// image the contours were traced from.
func (s *Set) FillInto(dst *gocv.Mat, i int) {
	single := s.single(i, image.Point{})
	defer single.Close()
	gocv.DrawContours(dst, single, 0, maskWhite, -1)
}

// single wraps contour i in its own vector, translated by -offset, for
// drawing into cropped buffers.
func (s *Set) single(i int, offset image.Point) gocv.PointsVector {
	pts := s.At(i).ToPoints()
	shifted := make([]image.Point, len(pts))
	for j, p := range pts {
		shifted[j] = image.Point{X: p.X - offset.X, Y: p.Y - offset.Y}
	}
	return gocv.NewPointsVectorFromPoints([][]image.Point{shifted})
}

// Close releases the contour storage.
func (s *Set) Close() {
	s.contours.Close()
}
