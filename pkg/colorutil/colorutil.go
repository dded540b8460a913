// Package colorutil provides shared color utilities for the PadScan application.
package colorutil

import (
	"image/color"
	"math"
)

// Common overlay colors used for on-image annotation.
var (
	Black   = color.RGBA{R: 0, G: 0, B: 0, A: 255}
	White   = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	Cyan    = color.RGBA{R: 0, G: 255, B: 255, A: 255}
	Magenta = color.RGBA{R: 255, G: 0, B: 255, A: 255}
	Red     = color.RGBA{R: 255, G: 0, B: 0, A: 255}
	Blue    = color.RGBA{R: 0, G: 0, B: 255, A: 255}
	Green   = color.RGBA{R: 0, G: 255, B: 0, A: 255}
	Yellow  = color.RGBA{R: 255, G: 255, B: 0, A: 255}
)

// ITU-R BT.601 luma weights, the same coefficients OpenCV uses for its
// RGB-to-grayscale conversion.
const (
	GrayWeightR = 0.299
	GrayWeightG = 0.587
	GrayWeightB = 0.114
)

// Grayscale returns the weighted grayscale value for an RGB triple.
func Grayscale(r, g, b float64) float64 {
	return GrayWeightR*r + GrayWeightG*g + GrayWeightB*b
}

// GrayscaleStd propagates per-channel standard deviations through the
// grayscale conversion, assuming the channels vary independently. That
// assumption rarely holds exactly for natural images, so this is a
// first-order approximation.
func GrayscaleStd(stdR, stdG, stdB float64) float64 {
	return math.Sqrt(GrayWeightR*GrayWeightR*stdR*stdR +
		GrayWeightG*GrayWeightG*stdG*stdG +
		GrayWeightB*GrayWeightB*stdB*stdB)
}

// HueToDegrees rescales an OpenCV half-range hue (0-180) to degrees (0-360).
func HueToDegrees(h float64) float64 {
	return h / 180.0 * 360.0
}

// ToUnitRange rescales a byte-range value (0-255) to 0-1.
func ToUnitRange(v float64) float64 {
	return Round8(v / 255.0)
}

// LabLightness rescales a byte-range L channel to the conventional 0-100.
func LabLightness(l float64) float64 {
	return Round8(l / 255.0 * 100.0)
}

// LabChroma removes the byte-range bias from an a or b channel, giving the
// conventional signed range (-128..127).
func LabChroma(v float64) float64 {
	return v - 128.0
}

// Round8 rounds to 8 decimal places, the precision carried into reports.
func Round8(v float64) float64 {
	return math.Round(v*1e8) / 1e8
}
