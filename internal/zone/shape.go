// Package zone turns matched contours into sampling zones: either
// normalized to one uniform synthetic shape so per-zone comparisons are
// not skewed by detection noise, or kept as the traced contours when no
// refinement is wanted.
package zone

import (
	"fmt"
	"image"
	"image/color"

	"padscan/pkg/geometry"

	"gocv.io/x/gocv"
)

// Kind identifies the synthetic shape variant.
type Kind int

const (
	Circle Kind = iota
	Rectangle
	Polygon
)

func (k Kind) String() string {
	switch k {
	case Circle:
		return "circle"
	case Rectangle:
		return "rectangle"
	case Polygon:
		return "polygon"
	default:
		return "unknown"
	}
}

// ParseKind parses a shape name as it appears in presets and CLI flags.
func ParseKind(name string) (Kind, error) {
	switch name {
	case "circle":
		return Circle, nil
	case "rectangle":
		return Rectangle, nil
	case "polygon":
		return Polygon, nil
	default:
		return 0, fmt.Errorf("unknown zone shape %q", name)
	}
}

// Shape is the one synthetic shape shared by every zone in a refinement
// session. Only the fields relevant to Kind are consulted.
type Shape struct {
	Kind     Kind
	Radius   int     // Circle and Polygon: circumscribing radius
	Width    int     // Rectangle
	Height   int     // Rectangle
	Sides    int     // Polygon: vertex count
	Rotation float64 // Polygon: rotation in radians
}

// Validate checks the size parameters for the active variant.
func (s Shape) Validate() error {
	switch s.Kind {
	case Circle:
		if s.Radius < 1 {
			return fmt.Errorf("circle radius must be >= 1, got %d", s.Radius)
		}
	case Rectangle:
		if s.Width < 1 || s.Height < 1 {
			return fmt.Errorf("rectangle size must be >= 1x1, got %dx%d", s.Width, s.Height)
		}
	case Polygon:
		if s.Sides < 3 {
			return fmt.Errorf("polygon needs at least 3 sides, got %d", s.Sides)
		}
		if s.Radius < 1 {
			return fmt.Errorf("polygon radius must be >= 1, got %d", s.Radius)
		}
	default:
		return fmt.Errorf("unknown zone shape kind %d", s.Kind)
	}
	return nil
}

// Draw renders the shape centered at the given point. Negative thickness
// fills; non-negative strokes the outline.
func (s Shape) Draw(m *gocv.Mat, center geometry.Point2D, c color.RGBA, thickness int) {
	switch s.Kind {
	case Circle:
		gocv.Circle(m, center.ToImagePoint(), s.Radius, c, thickness)

	case Rectangle:
		hw := float64(s.Width) / 2
		hh := float64(s.Height) / 2
		tl := geometry.Point2D{X: center.X - hw, Y: center.Y - hh}.ToImagePoint()
		br := geometry.Point2D{X: center.X + hw, Y: center.Y + hh}.ToImagePoint()
		gocv.Rectangle(m, image.Rectangle{Min: tl, Max: br}, c, thickness)

	case Polygon:
		pts := geometry.RegularPolygonPixels(s.Sides, s.Rotation, center, float64(s.Radius), false)
		pv := gocv.NewPointsVectorFromPoints([][]image.Point{pts})
		defer pv.Close()
		if thickness >= 0 {
			gocv.Polylines(m, pv, true, c, thickness)
		} else {
			// Regular polygons are convex, so a plain fill is exact.
			gocv.FillPoly(m, pv, c)
		}
	}
}

// HalfExtents returns the half-width and half-height of the shape's
// bounding box, used to size per-zone crop windows.
func (s Shape) HalfExtents() (rx, ry int) {
	switch s.Kind {
	case Rectangle:
		return (s.Width + 1) / 2, (s.Height + 1) / 2
	default:
		return s.Radius, s.Radius
	}
}

// CropRect returns the crop window around a shape instance at the given
// center, before clipping to image bounds.
func (s Shape) CropRect(center geometry.Point2D) geometry.RectInt {
	rx, ry := s.HalfExtents()
	p := center.ToImagePoint()
	return geometry.RectInt{
		X:      p.X - rx,
		Y:      p.Y - ry,
		Width:  2*rx + 1,
		Height: 2*ry + 1,
	}
}
