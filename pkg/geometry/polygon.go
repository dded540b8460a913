package geometry

import (
	"image"
	"math"
)

// RegularPolygon generates the vertices of a regular n-gon inscribed in a
// circle of the given radius. Vertex k sits at angle 2πk/n + rotation
// (radians). When closed is true the first vertex is repeated at the end,
// giving n+1 points for outline drawing.
func RegularPolygon(n int, rotation float64, center Point2D, radius float64, closed bool) []Point2D {
	points := make([]Point2D, 0, n+1)
	for k := 0; k < n; k++ {
		angle := 2.0*math.Pi*float64(k)/float64(n) + rotation
		points = append(points, Point2D{
			X: center.X + radius*math.Cos(angle),
			Y: center.Y + radius*math.Sin(angle),
		})
	}
	if closed {
		points = append(points, points[0])
	}
	return points
}

// RegularPolygonPixels is RegularPolygon rounded to integer pixel
// coordinates, the form the drawing primitives consume.
func RegularPolygonPixels(n int, rotation float64, center Point2D, radius float64, closed bool) []image.Point {
	vertices := RegularPolygon(n, rotation, center, radius, closed)
	pixels := make([]image.Point, len(vertices))
	for i, v := range vertices {
		pixels[i] = v.ToImagePoint()
	}
	return pixels
}
