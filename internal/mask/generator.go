// Package mask builds the foreground mask that isolates reaction pads
// from the strip background.
package mask

import (
	"fmt"
	"image"
	"strings"

	"gocv.io/x/gocv"
)

// Mode selects how the saturation and value threshold tests combine.
type Mode int

const (
	// ModeAnd includes a pixel only when both channels clear their lower
	// bounds. Both tests collapse into a single range check.
	ModeAnd Mode = iota
	// ModeOr includes a pixel when either channel clears its lower bound.
	ModeOr
)

func (m Mode) String() string {
	switch m {
	case ModeAnd:
		return "AND"
	case ModeOr:
		return "OR"
	default:
		return "unknown"
	}
}

// ParseMode parses a combination mode name as it appears in presets and
// CLI flags. Matching is case-insensitive.
func ParseMode(name string) (Mode, error) {
	switch strings.ToUpper(name) {
	case "AND":
		return ModeAnd, nil
	case "OR":
		return ModeOr, nil
	default:
		return 0, fmt.Errorf("unknown combination mode %q", name)
	}
}

// Op is a single morphological operation in the caller-recorded sequence.
type Op byte

const (
	OpDilate Op = 'd'
	OpErode  Op = 'e'
)

// ParseOps decodes a compact op-code string such as "dde" into a
// morphology sequence. The string form is what presets persist.
func ParseOps(code string) ([]Op, error) {
	ops := make([]Op, 0, len(code))
	for i := 0; i < len(code); i++ {
		switch Op(code[i]) {
		case OpDilate, OpErode:
			ops = append(ops, Op(code[i]))
		default:
			return nil, fmt.Errorf("invalid morphology code %q at position %d", code[i], i)
		}
	}
	return ops, nil
}

// OpsCode encodes a morphology sequence back into its compact string form.
func OpsCode(ops []Op) string {
	buf := make([]byte, len(ops))
	for i, op := range ops {
		buf[i] = byte(op)
	}
	return string(buf)
}

// Params configures mask generation. All fields are plain values; the
// generator keeps no state between calls, so identical params over the
// same image always produce the identical mask.
type Params struct {
	ValueMin      int  // Lower bound on HSV value, 0-255
	SaturationMin int  // Lower bound on HSV saturation, 0-255
	Mode          Mode // How the two threshold tests combine
	Morphology    []Op // Dilations/erosions, applied in order
	Blur          int  // Box blur kernel size, clipped to 1-10; 1 disables
}

// Counts reports how many of each morphological op ran.
type Counts struct {
	Dilations int
	Erosions  int
}

// Stage identifies how far through the mask pipeline a view runs.
type Stage int

const (
	StageRaw Stage = iota // Original image, no mask applied
	StageMasked
	StageMorphed
	StageBlurred
)

func (s Stage) String() string {
	switch s {
	case StageRaw:
		return "raw"
	case StageMasked:
		return "masked"
	case StageMorphed:
		return "morphed"
	case StageBlurred:
		return "blurred"
	default:
		return "unknown"
	}
}

// ParseStage parses a stage name as it appears in CLI flags.
func ParseStage(name string) (Stage, error) {
	for _, s := range []Stage{StageRaw, StageMasked, StageMorphed, StageBlurred} {
		if name == s.String() {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown pipeline stage %q", name)
}

// Requires returns the upstream stages that must run before this one,
// nearest first. A pure function of the target stage; there is no shared
// "current display mode" state anywhere in the pipeline.
func (s Stage) Requires() []Stage {
	var upstream []Stage
	for prev := s - 1; prev > StageRaw; prev-- {
		upstream = append(upstream, prev)
	}
	return upstream
}

const morphKernelSize = 5

// Generate runs the full mask pipeline: threshold, morphology sequence,
// blur. The returned Mat is grayscale (blur makes it non-binary) and is
// owned by the caller.
func Generate(hsv gocv.Mat, p Params) (gocv.Mat, Counts) {
	m, counts, _ := GenerateStage(hsv, p, StageBlurred)
	return m, counts
}

// GenerateStage runs the mask pipeline up to and including the requested
// stage, for display views of intermediate results. StageRaw is not a
// mask view and is rejected.
func GenerateStage(hsv gocv.Mat, p Params, upTo Stage) (gocv.Mat, Counts, error) {
	if upTo == StageRaw {
		return gocv.Mat{}, Counts{}, fmt.Errorf("stage %s has no mask view", upTo)
	}

	m := threshold(hsv, p)
	var counts Counts
	if upTo >= StageMorphed {
		counts = morph(&m, p.Morphology)
	}
	if upTo >= StageBlurred {
		blur(&m, p.Blur)
	}
	return m, counts, nil
}

// threshold binarizes the HSV view against the saturation and value
// lower bounds. Upper bounds are fixed at 255, so in AND mode both tests
// collapse into one combined in-range check.
func threshold(hsv gocv.Mat, p Params) gocv.Mat {
	vmin := float64(clamp(p.ValueMin, 0, 255))
	smin := float64(clamp(p.SaturationMin, 0, 255))
	upper := gocv.NewScalar(255, 255, 255, 0)

	out := gocv.NewMat()
	if p.Mode == ModeAnd {
		gocv.InRangeWithScalar(hsv, gocv.NewScalar(0, smin, vmin, 0), upper, &out)
		return out
	}

	maskS := gocv.NewMat()
	defer maskS.Close()
	gocv.InRangeWithScalar(hsv, gocv.NewScalar(0, smin, 0, 0), upper, &maskS)

	maskV := gocv.NewMat()
	defer maskV.Close()
	gocv.InRangeWithScalar(hsv, gocv.NewScalar(0, 0, vmin, 0), upper, &maskV)

	// InRange already produces {0,255}, so the bitwise OR stays in range.
	gocv.BitwiseOr(maskS, maskV, &out)
	return out
}

// morph applies the recorded dilation/erosion sequence in order with a
// fixed 5x5 rectangular structuring element.
func morph(m *gocv.Mat, ops []Op) Counts {
	if len(ops) == 0 {
		return Counts{}
	}

	kernel := gocv.GetStructuringElement(gocv.MorphRect, image.Pt(morphKernelSize, morphKernelSize))
	defer kernel.Close()

	var counts Counts
	for _, op := range ops {
		switch op {
		case OpDilate:
			gocv.Dilate(*m, m, kernel)
			counts.Dilations++
		case OpErode:
			gocv.Erode(*m, m, kernel)
			counts.Erosions++
		}
	}
	return counts
}

// blur applies a box blur with the clipped kernel size. The result is
// grayscale rather than binary, which is what the contour extractor
// expects to receive.
func blur(m *gocv.Mat, size int) {
	k := clamp(size, 1, 10)
	if k <= 1 {
		return
	}
	gocv.Blur(*m, m, image.Pt(k, k))
}

func clamp(v, minVal, maxVal int) int {
	if v < minVal {
		return minVal
	}
	if v > maxVal {
		return maxVal
	}
	return v
}
