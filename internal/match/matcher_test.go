package match

import (
	"image"
	"testing"

	"padscan/internal/contour"
	"padscan/pkg/colorutil"

	"gocv.io/x/gocv"
)

// padGrid builds a contour set from four equal disks and one much
// larger disk. The equal disks share a rasterization, so their boundary
// areas are exactly equal; the big disk differs in size but not shape.
func padGrid(t *testing.T) *contour.Set {
	t.Helper()
	m := gocv.Zeros(400, 400, gocv.MatTypeCV8UC1)
	defer m.Close()
	for _, c := range []image.Point{{X: 60, Y: 60}, {X: 180, Y: 60}, {X: 60, Y: 180}, {X: 180, Y: 180}} {
		gocv.Circle(&m, c, 12, colorutil.White, -1)
	}
	gocv.Circle(&m, image.Pt(300, 300), 40, colorutil.White, -1)

	set, err := contour.Extract(m)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	t.Cleanup(set.Close)
	if set.Len() != 5 {
		t.Fatalf("Len = %d, want 5", set.Len())
	}
	return set
}

func TestMatchSizeToleranceZeroKeepsExactAreasOnly(t *testing.T) {
	set := padGrid(t)

	// Ascending order puts the four small disks first.
	sim, err := New(set, 0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	sim.Match(Params{SizeTolerance: 0, ShapeTolerance: 1.9})

	got := sim.Matched()
	if len(got) != 4 {
		t.Fatalf("matched %v, want the four equal disks", got)
	}
	for k, i := range got {
		if i != k {
			t.Errorf("matched[%d] = %d, want %d", k, i, k)
		}
	}
}

func TestMatchSizeBandIsReferenceRelative(t *testing.T) {
	set := padGrid(t)

	sim, err := New(set, 0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	sim.Match(Params{SizeTolerance: 100, ShapeTolerance: 1.9})

	// radius 40 vs 12 is over 10x the reference area, outside even the
	// widest size band, which tops out at twice the reference.
	for _, i := range sim.Matched() {
		if i == 4 {
			t.Error("large disk matched under 100% size tolerance; the band is reference-relative")
		}
	}
}

func TestMatchReferenceAlwaysIncluded(t *testing.T) {
	set := padGrid(t)

	sim, err := New(set, 2)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	sim.Match(Params{SizeTolerance: 0, ShapeTolerance: 0.001})

	found := false
	for _, i := range sim.Matched() {
		if i == 2 {
			found = true
		}
	}
	if !found {
		t.Error("reference index missing from its own match set")
	}
}

func TestManualEditAlgebra(t *testing.T) {
	set := padGrid(t)

	sim, err := New(set, 0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	sim.Match(Params{SizeTolerance: 5, ShapeTolerance: 1.9})
	if n := len(sim.Effective()); n != 4 {
		t.Fatalf("effective = %d, want 4", n)
	}

	if err := sim.Add(4); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := sim.Remove(1); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	want := []int{0, 2, 3, 4}
	got := sim.Effective()
	if len(got) != len(want) {
		t.Fatalf("effective = %v, want %v", got, want)
	}
	for k := range want {
		if got[k] != want[k] {
			t.Fatalf("effective = %v, want %v", got, want)
		}
	}

	// A tolerance change clears removals but keeps additions.
	sim.Match(Params{SizeTolerance: 5, ShapeTolerance: 1.9})
	got = sim.Effective()
	if len(got) != 5 {
		t.Fatalf("after re-match effective = %v, want all five", got)
	}
}

func TestAddToggleAndMatchedNoop(t *testing.T) {
	set := padGrid(t)

	sim, err := New(set, 0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	sim.Match(Params{SizeTolerance: 5, ShapeTolerance: 1.9})

	// Adding a matched contour changes nothing.
	if err := sim.Add(1); err != nil {
		t.Fatalf("Add matched: %v", err)
	}
	if n := len(sim.Effective()); n != 4 {
		t.Errorf("effective = %d after adding a matched index, want 4", n)
	}

	// Adding twice toggles back off.
	if err := sim.Add(4); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := sim.Add(4); err != nil {
		t.Fatalf("Add again: %v", err)
	}
	if n := len(sim.Effective()); n != 4 {
		t.Errorf("effective = %d after add/add toggle, want 4", n)
	}
}

func TestNewRejectsOutOfRangeReference(t *testing.T) {
	set := padGrid(t)
	if _, err := New(set, 99); err == nil {
		t.Error("New accepted an out-of-range reference index")
	}
	if _, err := New(set, -1); err == nil {
		t.Error("New accepted a negative reference index")
	}
}

func TestNormalizedClampsAndRounds(t *testing.T) {
	p := Params{SizeTolerance: 150, ShapeTolerance: -1}.Normalized()
	if p.SizeTolerance != 100 || p.ShapeTolerance != 0 {
		t.Errorf("Normalized = %+v, want clamped to bounds", p)
	}
	p = Params{SizeTolerance: 12.34, ShapeTolerance: 0.12345}.Normalized()
	if p.SizeTolerance != 12.3 {
		t.Errorf("SizeTolerance = %v, want 12.3", p.SizeTolerance)
	}
	if p.ShapeTolerance != 0.123 {
		t.Errorf("ShapeTolerance = %v, want 0.123", p.ShapeTolerance)
	}
}

func TestZonesCarryCentroids(t *testing.T) {
	set := padGrid(t)

	sim, err := New(set, 0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	sim.Match(Params{SizeTolerance: 5, ShapeTolerance: 1.9})

	zones, err := sim.Zones()
	if err != nil {
		t.Fatalf("Zones: %v", err)
	}
	if len(zones) != 4 {
		t.Fatalf("zones = %d, want 4", len(zones))
	}
	centers := []image.Point{{X: 60, Y: 60}, {X: 180, Y: 60}, {X: 60, Y: 180}, {X: 180, Y: 180}}
	for _, z := range zones {
		near := false
		for _, c := range centers {
			dx, dy := z.Center.X-float64(c.X), z.Center.Y-float64(c.Y)
			if dx*dx+dy*dy < 4 {
				near = true
			}
		}
		if !near {
			t.Errorf("zone centroid (%.1f, %.1f) far from every drawn center", z.Center.X, z.Center.Y)
		}
	}
}
