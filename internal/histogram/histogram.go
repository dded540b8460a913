// Package histogram bins masked zone pixels per color channel.
package histogram

import (
	"fmt"

	"gocv.io/x/gocv"
)

// Bins is the number of intensity buckets, one per 8-bit level.
const Bins = 256

// Histogram holds per-channel pixel counts over [0,256) in red, green,
// blue order. Counts include only pixels selected by the zone mask.
type Histogram struct {
	Red   [Bins]float64
	Green [Bins]float64
	Blue  [Bins]float64
}

// Compute bins the masked pixels of a BGR image. The mask must be a
// single-channel image of the same size; zero mask pixels are excluded.
func Compute(bgr gocv.Mat, mask gocv.Mat) (Histogram, error) {
	if mask.Channels() != 1 {
		return Histogram{}, fmt.Errorf("histogram mask has %d channels, want 1", mask.Channels())
	}

	var h Histogram
	// BGR channel index 2 is red.
	for c, dst := range []*[Bins]float64{&h.Blue, &h.Green, &h.Red} {
		counts := gocv.NewMat()
		gocv.CalcHist([]gocv.Mat{bgr}, []int{c}, mask, &counts, []int{Bins}, []float64{0, 256}, false)
		for i := 0; i < Bins; i++ {
			dst[i] = float64(counts.GetFloatAt(i, 0))
		}
		counts.Close()
	}
	return h, nil
}

// Total returns the number of binned pixels in one channel. All three
// channels of a histogram share the same total.
func (h Histogram) Total() float64 {
	var sum float64
	for _, v := range h.Red {
		sum += v
	}
	return sum
}

// Max returns the largest single-bin count across all three channels,
// used to scale chart axes.
func (h Histogram) Max() float64 {
	var m float64
	for i := 0; i < Bins; i++ {
		if h.Red[i] > m {
			m = h.Red[i]
		}
		if h.Green[i] > m {
			m = h.Green[i]
		}
		if h.Blue[i] > m {
			m = h.Blue[i]
		}
	}
	return m
}
