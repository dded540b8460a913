package contour

import (
	"fmt"
	"image/color"

	"padscan/pkg/geometry"

	"gocv.io/x/gocv"
)

var maskWhite = color.RGBA{R: 255, G: 255, B: 255, A: 255}

// RegionMoments describes the filled region bounded by a contour.
//
// Area here is the zeroth-order moment, i.e. the filled pixel count. It
// can differ slightly from the boundary-trace area reported by Area().
// Boundary area drives matching; moment area drives sampling.
type RegionMoments struct {
	Area     float64
	Centroid geometry.Point2D
}

// RegionMoments rasterizes contour i filled into a crop of its bounding
// box and computes image moments over the binary region. The centroid is
// the ratio of first- to zeroth-order moments, translated back into full
// image coordinates.
func (s *Set) RegionMoments(i int) (RegionMoments, error) {
	rect := s.BoundingRect(i)
	if rect.Dx() == 0 || rect.Dy() == 0 {
		return RegionMoments{}, fmt.Errorf("contour %d: %w", i, ErrDegenerateContour)
	}

	crop := gocv.Zeros(rect.Dy(), rect.Dx(), gocv.MatTypeCV8U)
	defer crop.Close()

	single := s.single(i, rect.Min)
	defer single.Close()
	gocv.DrawContours(&crop, single, 0, maskWhite, -1)

	m := gocv.Moments(crop, true)
	m00 := m["m00"]
	if m00 == 0 {
		return RegionMoments{}, fmt.Errorf("contour %d: %w", i, ErrDegenerateContour)
	}

	return RegionMoments{
		Area: m00,
		Centroid: geometry.Point2D{
			X: m["m10"]/m00 + float64(rect.Min.X),
			Y: m["m01"]/m00 + float64(rect.Min.Y),
		},
	}, nil
}
