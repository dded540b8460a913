package mask

import (
	"testing"

	"gocv.io/x/gocv"
)

// synthHSV creates an HSV Mat of size w x h filled with one pixel value,
// then lets a mutate function override individual pixels.
func synthHSV(w, h int, hue, sat, val uint8, mutate func(m *gocv.Mat)) gocv.Mat {
	m := gocv.NewMatWithSize(h, w, gocv.MatTypeCV8UC3)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			m.SetUCharAt(y, x*3+0, hue)
			m.SetUCharAt(y, x*3+1, sat)
			m.SetUCharAt(y, x*3+2, val)
		}
	}
	if mutate != nil {
		mutate(&m)
	}
	return m
}

func setPixel(m *gocv.Mat, x, y int, hue, sat, val uint8) {
	m.SetUCharAt(y, x*3+0, hue)
	m.SetUCharAt(y, x*3+1, sat)
	m.SetUCharAt(y, x*3+2, val)
}

func TestGenerateModeMembership(t *testing.T) {
	// Background fails both thresholds. One pixel passes both, one
	// passes only saturation, one passes only value.
	hsv := synthHSV(20, 20, 0, 10, 10, func(m *gocv.Mat) {
		setPixel(m, 5, 5, 0, 200, 200)
		setPixel(m, 10, 5, 0, 200, 10)
		setPixel(m, 15, 5, 0, 10, 200)
	})
	defer hsv.Close()

	cases := []struct {
		name string
		mode Mode
		want int
	}{
		{"and keeps only the pixel passing both", ModeAnd, 1},
		{"or keeps every pixel passing either", ModeOr, 3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m, _ := Generate(hsv, Params{ValueMin: 50, SaturationMin: 50, Mode: tc.mode, Blur: 1})
			defer m.Close()
			if got := gocv.CountNonZero(m); got != tc.want {
				t.Errorf("nonzero pixels = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestGenerateMorphologyCountsAndGrowth(t *testing.T) {
	hsv := synthHSV(21, 21, 0, 10, 10, func(m *gocv.Mat) {
		setPixel(m, 10, 10, 0, 200, 200)
	})
	defer hsv.Close()

	ops, err := ParseOps("d")
	if err != nil {
		t.Fatalf("ParseOps: %v", err)
	}
	m, counts := Generate(hsv, Params{ValueMin: 50, SaturationMin: 50, Mode: ModeAnd, Morphology: ops, Blur: 1})
	defer m.Close()

	if counts.Dilations != 1 || counts.Erosions != 0 {
		t.Errorf("counts = %+v, want 1 dilation, 0 erosions", counts)
	}
	// A 5x5 rectangular kernel grows a lone pixel into a 5x5 block.
	if got := gocv.CountNonZero(m); got != 25 {
		t.Errorf("nonzero pixels after dilation = %d, want 25", got)
	}
}

func TestGenerateOrderedSequenceCounters(t *testing.T) {
	hsv := synthHSV(30, 30, 0, 200, 200, nil)
	defer hsv.Close()

	ops, err := ParseOps("dded")
	if err != nil {
		t.Fatalf("ParseOps: %v", err)
	}
	m, counts := Generate(hsv, Params{ValueMin: 50, SaturationMin: 50, Mode: ModeAnd, Morphology: ops, Blur: 1})
	m.Close()
	if counts.Dilations != 3 || counts.Erosions != 1 {
		t.Errorf("counts = %+v, want 3 dilations, 1 erosion", counts)
	}
}

func TestGenerateDeterministic(t *testing.T) {
	hsv := synthHSV(40, 40, 90, 120, 160, func(m *gocv.Mat) {
		setPixel(m, 3, 7, 0, 10, 10)
		setPixel(m, 20, 30, 0, 255, 255)
	})
	defer hsv.Close()

	ops, _ := ParseOps("de")
	p := Params{ValueMin: 100, SaturationMin: 100, Mode: ModeOr, Morphology: ops, Blur: 3}

	a, _ := Generate(hsv, p)
	defer a.Close()
	b, _ := Generate(hsv, p)
	defer b.Close()

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(a, b, &diff)
	if gocv.CountNonZero(diff) != 0 {
		t.Error("identical params over the same image produced different masks")
	}
}

func TestBlurClipDoesNotPanic(t *testing.T) {
	hsv := synthHSV(30, 30, 0, 200, 200, nil)
	defer hsv.Close()

	for _, blur := range []int{-5, 0, 1, 10, 50} {
		m, _ := Generate(hsv, Params{ValueMin: 50, SaturationMin: 50, Mode: ModeAnd, Blur: blur})
		m.Close()
	}
}

func TestParseOpsRejectsUnknownCodes(t *testing.T) {
	if _, err := ParseOps("dxe"); err == nil {
		t.Error("ParseOps accepted an unknown op code")
	}
	ops, err := ParseOps("dde")
	if err != nil {
		t.Fatalf("ParseOps: %v", err)
	}
	if got := OpsCode(ops); got != "dde" {
		t.Errorf("OpsCode round trip = %q, want %q", got, "dde")
	}
}

func TestStageRequires(t *testing.T) {
	cases := []struct {
		stage Stage
		want  []Stage
	}{
		{StageRaw, nil},
		{StageMasked, nil},
		{StageMorphed, []Stage{StageMasked}},
		{StageBlurred, []Stage{StageMorphed, StageMasked}},
	}
	for _, tc := range cases {
		got := tc.stage.Requires()
		if len(got) != len(tc.want) {
			t.Errorf("%v.Requires() = %v, want %v", tc.stage, got, tc.want)
			continue
		}
		for i := range got {
			if got[i] != tc.want[i] {
				t.Errorf("%v.Requires() = %v, want %v", tc.stage, got, tc.want)
				break
			}
		}
	}
}

func TestGenerateStageRejectsRaw(t *testing.T) {
	hsv := synthHSV(10, 10, 0, 200, 200, nil)
	defer hsv.Close()
	if _, _, err := GenerateStage(hsv, Params{Blur: 1}, StageRaw); err == nil {
		t.Error("GenerateStage accepted the raw stage")
	}
}
