// Package sample computes masked colorimetric statistics for each zone.
package sample

import (
	"errors"
	"fmt"

	"padscan/internal/imaging"
	"padscan/pkg/colorutil"
	"padscan/pkg/geometry"

	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/stat"
)

// ErrEmptyZone means a zone's mask selects no pixels inside its crop
// window, so no statistics exist for it.
var ErrEmptyZone = errors.New("zone mask selects no pixels")

// Options toggles which colorspaces appear in the output. Grayscale is
// always computed.
type Options struct {
	RGB bool
	HSV bool
	Lab bool
}

// ChannelStats holds per-channel mean and standard deviation in the
// native channel order and integer domain of the sampled view.
type ChannelStats struct {
	Mean [3]float64
	Std  [3]float64
}

// ZoneSample is the measurement record for one zone, in the native
// integer domain. Unit conversions and channel-order normalization
// happen in Report, at the output boundary, to avoid truncation bias
// inside the pipeline.
type ZoneSample struct {
	ID     int // 1-based reading-order id
	Index  int // Canonical contour index
	Center geometry.Point2D
	Area   float64 // Masked pixel count inside the crop window

	Opts Options
	BGR  ChannelStats // Always computed; grayscale derives from it
	HSV  ChannelStats // Valid when Opts.HSV; H in 0-180
	Lab  ChannelStats // Valid when Opts.Lab; byte-range, a/b biased

	Gray    float64
	GrayStd float64
}

// Zone samples one zone. The mask is full-image sized; only pixels
// inside the crop window with a non-zero mask value contribute. Pixels
// outside the mask are dropped from the sample entirely, never averaged
// in as zeros.
func Zone(src *imaging.Source, mask gocv.Mat, crop geometry.RectInt, opts Options) (ZoneSample, error) {
	crop = crop.Clip(src.Cols(), src.Rows())
	if crop.Empty() {
		return ZoneSample{}, fmt.Errorf("crop window outside image: %w", ErrEmptyZone)
	}

	s := ZoneSample{Opts: opts}

	bgr, count := maskedStats(src.BGR, mask, crop)
	if count == 0 {
		return ZoneSample{}, ErrEmptyZone
	}
	s.BGR = bgr
	s.Area = float64(count)

	// BGR order: index 2 is red, 0 is blue.
	s.Gray = colorutil.Grayscale(bgr.Mean[2], bgr.Mean[1], bgr.Mean[0])
	s.GrayStd = colorutil.GrayscaleStd(bgr.Std[2], bgr.Std[1], bgr.Std[0])

	if opts.HSV {
		s.HSV, _ = maskedStats(src.HSV, mask, crop)
	}
	if opts.Lab {
		s.Lab, _ = maskedStats(src.Lab, mask, crop)
	}
	return s, nil
}

// maskedStats accumulates the masked pixels of a 3-channel view inside
// the crop window and reduces each channel to mean and population
// standard deviation.
func maskedStats(view gocv.Mat, mask gocv.Mat, crop geometry.RectInt) (ChannelStats, int) {
	var vals [3][]float64
	for y := crop.Y; y < crop.Y+crop.Height; y++ {
		for x := crop.X; x < crop.X+crop.Width; x++ {
			if mask.GetUCharAt(y, x) == 0 {
				continue
			}
			for c := 0; c < 3; c++ {
				vals[c] = append(vals[c], float64(view.GetUCharAt(y, x*3+c)))
			}
		}
	}

	count := len(vals[0])
	if count == 0 {
		return ChannelStats{}, 0
	}

	var cs ChannelStats
	for c := 0; c < 3; c++ {
		cs.Mean[c] = stat.Mean(vals[c], nil)
		cs.Std[c] = stat.PopStdDev(vals[c], nil)
	}
	return cs, count
}
