package export

import (
	"fmt"
	"os"
	"path/filepath"

	"padscan/internal/imaging"
	"padscan/internal/sample"
	"padscan/internal/zone"
	"padscan/pkg/geometry"

	"gocv.io/x/gocv"
)

// cropBorder pads each zone crop so the zone outline and a little
// surrounding context survive the cut.
const cropBorder = 5

// WriteCrops writes one image per zone under dir/crops, cut from the
// raw source, and the same cut from the annotated render under
// dir/crops/drawn. All crops share the largest zone's window size so
// they stack cleanly side by side.
func WriteCrops(dir string, src *imaging.Source, rs *zone.RefinedSet, samples []sample.ZoneSample) error {
	rawDir := filepath.Join(dir, "crops")
	drawnDir := filepath.Join(rawDir, "drawn")
	if err := os.MkdirAll(drawnDir, 0o755); err != nil {
		return fmt.Errorf("create crops dir: %w", err)
	}

	drawn := Labeled(src, rs, samples)
	defer drawn.Close()

	w, h := largestBox(rs)
	for k, z := range rs.Zones {
		rect := cropWindow(z.Box, w, h, src.Cols(), src.Rows())
		if rect.Empty() {
			continue
		}
		name := fmt.Sprintf("%s_zone_%d%s", src.Name, samples[k].ID, src.Ext)
		if err := writeRegion(filepath.Join(rawDir, name), src.BGR, rect); err != nil {
			return err
		}
		if err := writeRegion(filepath.Join(drawnDir, name), drawn, rect); err != nil {
			return err
		}
	}
	return nil
}

// cropWindow anchors the window at the zone's bounding-box corner and
// sizes it by the largest zone's box so every crop comes out the same
// size before clipping.
func cropWindow(box geometry.RectInt, w, h, cols, rows int) geometry.RectInt {
	r := geometry.RectInt{
		X:      box.X - cropBorder,
		Y:      box.Y - cropBorder,
		Width:  w + 2*cropBorder,
		Height: h + 2*cropBorder,
	}
	return r.Clip(cols, rows)
}

func writeRegion(path string, img gocv.Mat, rect geometry.RectInt) error {
	region := img.Region(rect.ToImageRect())
	defer region.Close()
	crop := region.Clone()
	defer crop.Close()
	if ok := gocv.IMWrite(path, crop); !ok {
		return fmt.Errorf("write crop %s", path)
	}
	return nil
}
