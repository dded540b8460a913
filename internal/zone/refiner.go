package zone

import (
	"fmt"
	"image"
	"image/color"

	"padscan/internal/contour"
	"padscan/internal/match"
	"padscan/pkg/geometry"

	"gocv.io/x/gocv"
)

var maskWhite = color.RGBA{R: 255, G: 255, B: 255, A: 255}

// Refinement bundles the shared shape with the one global displacement
// applied to every zone centroid.
type Refinement struct {
	Shape Shape
	// Displacement in screen convention: positive DisplaceY moves zones
	// up, so the image-coordinate offset is (DisplaceX, -DisplaceY).
	DisplaceX int
	DisplaceY int
}

// Offset returns the displacement as an image-coordinate vector.
func (r Refinement) Offset() geometry.Point2D {
	return geometry.Point2D{X: float64(r.DisplaceX), Y: float64(-r.DisplaceY)}
}

// RefinedZone is one zone with its mask rendered in place. Outline holds
// the traced boundary for zones that keep their contour geometry; it is
// nil when the zone was rendered as the shared synthetic shape.
type RefinedZone struct {
	Index   int // Canonical contour index
	Center  geometry.Point2D
	Mask    gocv.Mat
	Box     geometry.RectInt // Unclipped bounding box
	Outline []image.Point
}

// RefinedSet holds the zones selected for sampling and the union mask
// accumulated across all of them. It persists until the contours
// regenerate. Uniform reports whether the zones share one synthetic
// shape; when false each zone keeps its traced contour geometry.
type RefinedSet struct {
	Shape        Shape // Valid only when Uniform
	Uniform      bool
	Displacement geometry.PointInt
	Zones        []RefinedZone
	Union        gocv.Mat
}

// Refine renders the shared shape at every zone's displaced centroid,
// producing a per-zone mask for sampling and a union mask for
// visualization and export.
func Refine(zones []match.Zone, r Refinement, rows, cols int) (*RefinedSet, error) {
	if err := r.Shape.Validate(); err != nil {
		return nil, fmt.Errorf("refine zones: %w", err)
	}
	if len(zones) == 0 {
		return nil, fmt.Errorf("refine zones: empty zone set")
	}

	offset := r.Offset()
	rs := &RefinedSet{
		Shape:        r.Shape,
		Uniform:      true,
		Displacement: geometry.PointInt{X: r.DisplaceX, Y: r.DisplaceY},
		Zones:        make([]RefinedZone, len(zones)),
		Union:        gocv.Zeros(rows, cols, gocv.MatTypeCV8U),
	}

	for i, z := range zones {
		center := z.Center.Add(offset)
		m := gocv.Zeros(rows, cols, gocv.MatTypeCV8U)
		r.Shape.Draw(&m, center, maskWhite, -1)
		r.Shape.Draw(&rs.Union, center, maskWhite, -1)
		rs.Zones[i] = RefinedZone{
			Index:  z.Index,
			Center: center,
			Mask:   m,
			Box:    r.Shape.CropRect(center),
		}
	}

	return rs, nil
}

// FromContours builds a zone set straight from the effective contours,
// so analysis can run without a refinement pass. Each zone's filled
// contour becomes its sampling mask and its bounding box becomes its
// crop window.
func FromContours(cs *contour.Set, zones []match.Zone, rows, cols int) (*RefinedSet, error) {
	if len(zones) == 0 {
		return nil, fmt.Errorf("contour zones: empty zone set")
	}

	rs := &RefinedSet{
		Zones: make([]RefinedZone, len(zones)),
		Union: gocv.Zeros(rows, cols, gocv.MatTypeCV8U),
	}

	for i, z := range zones {
		cs.FillInto(&rs.Union, z.Index)
		rs.Zones[i] = RefinedZone{
			Index:   z.Index,
			Center:  z.Center,
			Mask:    cs.FillMask(z.Index, rows, cols),
			Box:     geometry.FromImageRect(cs.BoundingRect(z.Index)),
			Outline: cs.At(z.Index).ToPoints(),
		}
	}

	return rs, nil
}

// DrawOutline strokes zone i's boundary: the shared shape for uniform
// sets, the traced contour otherwise.
func (rs *RefinedSet) DrawOutline(img *gocv.Mat, i int, c color.RGBA, thickness int) {
	z := rs.Zones[i]
	if rs.Uniform {
		rs.Shape.Draw(img, z.Center, c, thickness)
		return
	}
	pv := gocv.NewPointsVectorFromPoints([][]image.Point{z.Outline})
	defer pv.Close()
	gocv.Polylines(img, pv, true, c, thickness)
}

// CropRect returns the clipped crop window for zone i.
func (rs *RefinedSet) CropRect(i, cols, rows int) geometry.RectInt {
	return rs.Zones[i].Box.Clip(cols, rows)
}

// Reorder permutes the zones in place by the given index permutation.
// The permutation must be the same one applied to every other parallel
// per-zone array.
func (rs *RefinedSet) Reorder(perm []int) {
	reordered := make([]RefinedZone, len(rs.Zones))
	for dst, src := range perm {
		reordered[dst] = rs.Zones[src]
	}
	rs.Zones = reordered
}

// Close releases all masks held by the set.
func (rs *RefinedSet) Close() {
	for i := range rs.Zones {
		rs.Zones[i].Mask.Close()
	}
	rs.Union.Close()
}
