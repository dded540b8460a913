package export

import (
	"fmt"
	"image"
	"math"
	"path/filepath"
	"strconv"

	"padscan/internal/imaging"
	"padscan/internal/sample"
	"padscan/internal/zone"
	"padscan/pkg/colorutil"

	"gocv.io/x/gocv"
)

const (
	labelFont      = gocv.FontHersheySimplex
	labelThickness = 10
)

// Labeled renders the source image with every zone outlined and tagged
// by its id. The caller closes the returned Mat.
func Labeled(src *imaging.Source, rs *zone.RefinedSet, samples []sample.ZoneSample) gocv.Mat {
	img := src.BGR.Clone()
	w, h := largestBox(rs)

	for k, z := range rs.Zones {
		rs.DrawOutline(&img, k, colorutil.Cyan, 2)

		id := strconv.Itoa(samples[k].ID)
		org := image.Pt(z.Box.X+z.Box.Width, z.Box.Y)
		gocv.PutText(&img, id, org, labelFont, labelScale(id, w, h), colorutil.Green, labelThickness)
	}
	return img
}

// largestBox returns the dimensions of the biggest zone's bounding box.
func largestBox(rs *zone.RefinedSet) (w, h int) {
	for _, z := range rs.Zones {
		if z.Box.Width*z.Box.Height > w*h {
			w, h = z.Box.Width, z.Box.Height
		}
	}
	return w, h
}

// labelScale sizes id text against the largest zone's bounding box so
// every label renders at one scale. Labels overflow zones much smaller
// than the largest; the scale never drops below 1 so short ids stay
// legible on small zones.
func labelScale(id string, w, h int) float64 {
	t := gocv.GetTextSize(id, labelFont, 1, labelThickness)
	scale := math.Round(math.Min(float64(w)/float64(t.X), float64(h)/float64(t.Y)))
	if scale < 1 {
		scale = 1
	}
	return scale
}

// WriteLabeled writes the annotated image as <name>_labeled<ext>.
func WriteLabeled(dir string, src *imaging.Source, rs *zone.RefinedSet, samples []sample.ZoneSample) (string, error) {
	img := Labeled(src, rs, samples)
	defer img.Close()
	path := filepath.Join(dir, src.Name+"_labeled"+src.Ext)
	if ok := gocv.IMWrite(path, img); !ok {
		return "", fmt.Errorf("write labeled image %s", path)
	}
	return path, nil
}

// WriteMask writes the union of all zone masks as <name>_mask<ext>.
func WriteMask(dir string, src *imaging.Source, rs *zone.RefinedSet) (string, error) {
	path := filepath.Join(dir, src.Name+"_mask"+src.Ext)
	if ok := gocv.IMWrite(path, rs.Union); !ok {
		return "", fmt.Errorf("write mask image %s", path)
	}
	return path, nil
}
