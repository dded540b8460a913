package export

import (
	"encoding/csv"
	"fmt"
	"image"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"padscan/internal/histogram"
	"padscan/pkg/colorutil"

	"gocv.io/x/gocv"
)

// Chart geometry for the rendered histogram image.
const (
	chartWidth   = 576
	chartHeight  = 420
	chartMargin  = 32
	chartPlotW   = chartWidth - 2*chartMargin
	chartPlotH   = chartHeight - 2*chartMargin
	chartBinStep = float64(chartPlotW) / float64(histogram.Bins)
)

// WriteHistograms writes per-zone channel histograms under
// dir/histograms: a CSV of bin counts and a rendered line chart, both
// named by zone id. Histograms are ordered like the samples, so
// hists[k] belongs to zone id k+1.
func WriteHistograms(dir, name, ext string, hists []histogram.Histogram) error {
	histDir := filepath.Join(dir, "histograms")
	if err := os.MkdirAll(histDir, 0o755); err != nil {
		return fmt.Errorf("create histograms dir: %w", err)
	}

	for k, h := range hists {
		id := k + 1
		base := fmt.Sprintf("%s_histogram_%d", name, id)
		if err := writeHistCSV(filepath.Join(histDir, base+".csv"), h); err != nil {
			return fmt.Errorf("zone %d: %w", id, err)
		}
		if err := writeHistChart(filepath.Join(histDir, base+ext), h); err != nil {
			return fmt.Errorf("zone %d: %w", id, err)
		}
	}
	return nil
}

func writeHistCSV(path string, h histogram.Histogram) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create histogram csv: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"bin", "Red Channel", "Green Channel", "Blue Channel"}); err != nil {
		return err
	}
	for i := 0; i < histogram.Bins; i++ {
		row := []string{
			strconv.Itoa(i),
			strconv.FormatFloat(h.Red[i], 'g', -1, 64),
			strconv.FormatFloat(h.Green[i], 'g', -1, 64),
			strconv.FormatFloat(h.Blue[i], 'g', -1, 64),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// writeHistChart renders the three channel series as overlaid bars on a
// white canvas with a plain box axis, one bar per intensity bin.
func writeHistChart(path string, h histogram.Histogram) error {
	img := gocv.NewMatWithSize(chartHeight, chartWidth, gocv.MatTypeCV8UC3)
	defer img.Close()
	img.SetTo(gocv.NewScalar(255, 255, 255, 0))

	gocv.Rectangle(&img,
		image.Rect(chartMargin, chartMargin, chartMargin+chartPlotW, chartMargin+chartPlotH),
		colorutil.Black, 1)

	peak := h.Max()
	if peak > 0 {
		drawBars(&img, h.Blue[:], peak, colorutil.Blue)
		drawBars(&img, h.Green[:], peak, colorutil.Green)
		drawBars(&img, h.Red[:], peak, colorutil.Red)
	}

	if ok := gocv.IMWrite(path, img); !ok {
		return fmt.Errorf("write histogram chart %s", path)
	}
	return nil
}

func drawBars(img *gocv.Mat, counts []float64, peak float64, c color.RGBA) {
	baseline := chartMargin + chartPlotH
	for i, v := range counts {
		if v == 0 {
			continue
		}
		x := chartMargin + int(math.Round(float64(i)*chartBinStep))
		top := baseline - int(math.Round(v/peak*float64(chartPlotH)))
		gocv.Line(img, image.Pt(x, baseline), image.Pt(x, top), c, 1)
	}
}
