package session

import (
	"errors"
	"image"
	"image/color"
	"path/filepath"
	"testing"

	"padscan/internal/mask"
	"padscan/internal/match"
	"padscan/internal/sample"
	"padscan/internal/zone"

	"gocv.io/x/gocv"
)

// writeStrip renders a synthetic strip photograph: four saturated pads
// on a black background, written to disk so the session loads it the
// same way it loads a real capture.
func writeStrip(t *testing.T) string {
	t.Helper()
	img := gocv.Zeros(200, 200, gocv.MatTypeCV8UC3)
	defer img.Close()

	pads := []struct {
		center image.Point
		c      color.RGBA
	}{
		{image.Pt(50, 50), color.RGBA{R: 255}},           // top left, red
		{image.Pt(150, 50), color.RGBA{G: 255}},          // top right, green
		{image.Pt(50, 150), color.RGBA{B: 255}},          // bottom left, blue
		{image.Pt(150, 150), color.RGBA{R: 255, G: 255}}, // bottom right, yellow
	}
	for _, p := range pads {
		gocv.Circle(&img, p.center, 12, p.c, -1)
	}

	path := filepath.Join(t.TempDir(), "strip.png")
	if ok := gocv.IMWrite(path, img); !ok {
		t.Fatal("failed to write synthetic strip image")
	}
	return path
}

func maskParams() mask.Params {
	return mask.Params{ValueMin: 50, SaturationMin: 50, Mode: mask.ModeAnd, Blur: 1}
}

func refinement() zone.Refinement {
	return zone.Refinement{Shape: zone.Shape{Kind: zone.Circle, Radius: 6}}
}

func runMatched(t *testing.T, s *Session) {
	t.Helper()
	if err := s.Load(writeStrip(t)); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := s.SetMask(maskParams()); err != nil {
		t.Fatalf("SetMask: %v", err)
	}
	n, err := s.Detect()
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if n != 4 {
		t.Fatalf("Detect found %d contours, want 4", n)
	}
	if err := s.SelectReference(0); err != nil {
		t.Fatalf("SelectReference: %v", err)
	}
	matched, err := s.FindSimilar(match.Params{SizeTolerance: 5, ShapeTolerance: 1.9})
	if err != nil {
		t.Fatalf("FindSimilar: %v", err)
	}
	if matched != 4 {
		t.Fatalf("FindSimilar matched %d, want 4", matched)
	}
}

func runPipeline(t *testing.T, s *Session) {
	t.Helper()
	runMatched(t, s)
	if err := s.Refine(refinement()); err != nil {
		t.Fatalf("Refine: %v", err)
	}
}

func TestPipelineEndToEnd(t *testing.T) {
	s := New()
	defer s.Close()
	runPipeline(t, s)

	res, err := s.Analyze(sample.Options{RGB: true}, true)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(res.Samples) != 4 || len(res.Reports) != 4 || len(res.Histograms) != 4 {
		t.Fatalf("result sizes = %d/%d/%d, want 4 each", len(res.Samples), len(res.Reports), len(res.Histograms))
	}

	// Reading order: top left, top right, bottom left, bottom right.
	wantDominant := []int{0, 1, 2, 0} // index into RGB means; yellow peaks in R and G
	for k, r := range res.Reports {
		if r.ID != k+1 {
			t.Errorf("report %d has id %d, want %d", k, r.ID, k+1)
		}
		if r.RGB == nil {
			t.Fatalf("report %d missing RGB group", k)
		}
		if r.RGB.Mean[wantDominant[k]] < 200 {
			t.Errorf("zone %d dominant channel mean = %v, want saturated", k+1, r.RGB.Mean)
		}
	}

	// Yellow pad: both red and green high, blue low.
	last := res.Reports[3].RGB.Mean
	if last[1] < 200 || last[2] > 50 {
		t.Errorf("yellow zone means = %v, want high R and G with low B", last)
	}

	for _, h := range res.Histograms {
		if h.Total() == 0 {
			t.Error("histogram binned no pixels")
		}
	}
}

func TestStageOrderEnforced(t *testing.T) {
	s := New()
	defer s.Close()

	if err := s.SetMask(maskParams()); !errors.Is(err, ErrNoImage) {
		t.Errorf("SetMask before Load = %v, want ErrNoImage", err)
	}
	if _, err := s.Detect(); !errors.Is(err, ErrNoMask) {
		t.Errorf("Detect before SetMask = %v, want ErrNoMask", err)
	}
	if err := s.SelectReference(0); !errors.Is(err, ErrNoContours) {
		t.Errorf("SelectReference before Detect = %v, want ErrNoContours", err)
	}
	if _, err := s.FindSimilar(match.Params{}); !errors.Is(err, ErrNoReference) {
		t.Errorf("FindSimilar before SelectReference = %v, want ErrNoReference", err)
	}
	if _, err := s.Analyze(sample.Options{}, false); !errors.Is(err, ErrNoReference) {
		t.Errorf("Analyze before SelectReference = %v, want ErrNoReference", err)
	}
}

// Analysis does not require a refinement pass: without one, every
// effective contour samples through its own filled mask.
func TestAnalyzeWithoutRefinementSamplesContours(t *testing.T) {
	s := New()
	defer s.Close()
	runMatched(t, s)

	res, err := s.Analyze(sample.Options{RGB: true}, false)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(res.Samples) != 4 {
		t.Fatalf("samples = %d, want 4", len(res.Samples))
	}

	rs := s.Refined()
	if rs == nil {
		t.Fatal("no zone set installed after contour analysis")
	}
	if rs.Uniform {
		t.Error("contour-derived zones claim a uniform shape")
	}

	// Each pad is a filled disk of radius 12, about 452 px.
	wantDominant := []int{0, 1, 2, 0}
	for k, zs := range res.Samples {
		if zs.Area < 380 || zs.Area > 500 {
			t.Errorf("zone %d area = %.0f, want near pi*12^2", k+1, zs.Area)
		}
		if res.Reports[k].RGB.Mean[wantDominant[k]] < 200 {
			t.Errorf("zone %d dominant channel mean = %v, want saturated", k+1, res.Reports[k].RGB.Mean)
		}
		if len(rs.Zones[k].Outline) == 0 {
			t.Errorf("zone %d lost its traced outline", k+1)
		}
	}

	// Reading order still applies: top row first, left before right.
	centers := []image.Point{{50, 50}, {150, 50}, {50, 150}, {150, 150}}
	for k, z := range rs.Zones {
		got := z.Center.ToImagePoint()
		if got.X < centers[k].X-2 || got.X > centers[k].X+2 ||
			got.Y < centers[k].Y-2 || got.Y > centers[k].Y+2 {
			t.Errorf("zone %d center = %v, want near %v", k+1, got, centers[k])
		}
	}
}

// A manual edit after a contour-based analysis invalidates the zone set
// like any other downstream state.
func TestManualEditInvalidatesContourZones(t *testing.T) {
	s := New()
	defer s.Close()
	runMatched(t, s)

	if _, err := s.Analyze(sample.Options{RGB: true}, false); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if err := s.RemoveZone(s.Effective()[0]); err != nil {
		t.Fatalf("RemoveZone: %v", err)
	}
	if s.Refined() != nil {
		t.Error("zone set survived a manual edit")
	}

	res, err := s.Analyze(sample.Options{RGB: true}, false)
	if err != nil {
		t.Fatalf("Analyze after edit: %v", err)
	}
	if len(res.Samples) != 3 {
		t.Errorf("samples = %d after removing one zone, want 3", len(res.Samples))
	}
}

func TestSetMaskInvalidatesDownstream(t *testing.T) {
	s := New()
	defer s.Close()
	runPipeline(t, s)

	if err := s.SetMask(maskParams()); err != nil {
		t.Fatalf("SetMask: %v", err)
	}
	if s.Contours() != nil {
		t.Error("contours survived a mask regeneration")
	}
	if s.Refined() != nil {
		t.Error("refined zones survived a mask regeneration")
	}
	if _, err := s.FindSimilar(match.Params{}); !errors.Is(err, ErrNoReference) {
		t.Errorf("FindSimilar after mask change = %v, want ErrNoReference", err)
	}
}

func TestSelectReferenceKeepsPreviousOnError(t *testing.T) {
	s := New()
	defer s.Close()
	runPipeline(t, s)

	if err := s.SelectReference(99); err == nil {
		t.Fatal("SelectReference accepted an out-of-range index")
	}
	// The earlier reference still works.
	if _, err := s.FindSimilar(match.Params{SizeTolerance: 5, ShapeTolerance: 1.9}); err != nil {
		t.Errorf("FindSimilar after failed reselect: %v", err)
	}
}

func TestManualEditsFlowIntoAnalysis(t *testing.T) {
	s := New()
	defer s.Close()
	runPipeline(t, s)

	if err := s.RemoveZone(s.Effective()[0]); err != nil {
		t.Fatalf("RemoveZone: %v", err)
	}
	if err := s.Refine(refinement()); err != nil {
		t.Fatalf("Refine: %v", err)
	}

	res, err := s.Analyze(sample.Options{RGB: true}, false)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(res.Samples) != 3 {
		t.Errorf("samples = %d after removing one zone, want 3", len(res.Samples))
	}
}

func TestStageViewRegeneratesIntermediates(t *testing.T) {
	s := New()
	defer s.Close()
	runPipeline(t, s)

	raw, err := s.StageView(mask.StageRaw)
	if err != nil {
		t.Fatalf("StageView raw: %v", err)
	}
	defer raw.Close()
	if raw.Channels() != 3 {
		t.Errorf("raw view channels = %d, want 3", raw.Channels())
	}

	masked, err := s.StageView(mask.StageMasked)
	if err != nil {
		t.Fatalf("StageView masked: %v", err)
	}
	defer masked.Close()
	if masked.Channels() != 1 {
		t.Errorf("masked view channels = %d, want 1", masked.Channels())
	}
	if gocv.CountNonZero(masked) == 0 {
		t.Error("masked view selected nothing")
	}
}
