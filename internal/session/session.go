// Package session owns the analysis pipeline state and the staged
// recompute rules between image, mask, contours, matching, and zones.
package session

import (
	"errors"
	"fmt"
	"sync"

	"padscan/internal/contour"
	"padscan/internal/histogram"
	"padscan/internal/imaging"
	"padscan/internal/mask"
	"padscan/internal/match"
	"padscan/internal/sample"
	"padscan/internal/zone"
	"padscan/pkg/geometry"

	"gocv.io/x/gocv"
)

var (
	ErrNoImage     = errors.New("no image loaded")
	ErrNoMask      = errors.New("mask not generated")
	ErrNoContours  = errors.New("contours not extracted")
	ErrNoReference = errors.New("no reference zone selected")
)

// Session holds one image's pipeline state. Each stage depends on the
// one before it; setting a stage invalidates everything downstream,
// never upstream. All methods are safe for concurrent use.
type Session struct {
	mu sync.Mutex

	src *imaging.Source

	maskParams mask.Params
	maskMat    gocv.Mat
	maskCounts mask.Counts
	hasMask    bool

	contours *contour.Set
	similar  *match.SimilarSet
	refined  *zone.RefinedSet
}

func New() *Session {
	return &Session{}
}

// Load replaces the session image, discarding all derived state.
func (s *Session) Load(path string) error {
	src, err := imaging.Load(path)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dropMask()
	if s.src != nil {
		s.src.Close()
	}
	s.src = src
	return nil
}

// SetMask regenerates the binary mask from the loaded image and drops
// contours, matching, and refined zones.
func (s *Session) SetMask(p mask.Params) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.src == nil {
		return ErrNoImage
	}
	m, counts := mask.Generate(s.src.HSV, p)
	s.dropMask()
	s.maskParams = p
	s.maskMat = m
	s.maskCounts = counts
	s.hasMask = true
	return nil
}

// Detect extracts contours from the current mask. Matching and refined
// zones are dropped; a reference must be reselected afterwards because
// canonical indices are only meaningful against one extraction.
func (s *Session) Detect() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasMask {
		return 0, ErrNoMask
	}
	cs, err := contour.Extract(s.maskMat)
	if err != nil {
		return 0, err
	}
	s.dropContours()
	s.contours = cs
	return cs.Len(), nil
}

// SelectReference starts a fresh matching state anchored on contour i.
// On error the previous reference, if any, stays in effect.
func (s *Session) SelectReference(i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.contours == nil {
		return ErrNoContours
	}
	sim, err := match.New(s.contours, i)
	if err != nil {
		return err
	}
	s.dropSimilar()
	s.similar = sim
	return nil
}

// FindSimilar recomputes the matched set under new tolerances. Manual
// removals are cleared; manual additions survive.
func (s *Session) FindSimilar(p match.Params) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.similar == nil {
		return 0, ErrNoReference
	}
	s.dropRefined()
	s.similar.Match(p)
	return len(s.similar.Effective()), nil
}

// AddZone manually includes contour i in the effective set.
func (s *Session) AddZone(i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.similar == nil {
		return ErrNoReference
	}
	s.dropRefined()
	return s.similar.Add(i)
}

// RemoveZone manually excludes a matched contour from the effective set.
func (s *Session) RemoveZone(i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.similar == nil {
		return ErrNoReference
	}
	s.dropRefined()
	return s.similar.Remove(i)
}

// Effective returns the canonical indices of the current effective set.
func (s *Session) Effective() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.similar == nil {
		return nil
	}
	return s.similar.Effective()
}

// Refine rebuilds the per-zone masks from the effective set under one
// shared shape and a global displacement, then orders zones by reading
// order so that ids run left to right, top to bottom.
func (s *Session) Refine(r zone.Refinement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	zones, err := s.effectiveZones()
	if err != nil {
		return err
	}
	rs, err := zone.Refine(zones, r, s.src.Rows(), s.src.Cols())
	if err != nil {
		return err
	}
	s.storeZones(rs)
	return nil
}

// effectiveZones computes centroids and moment areas for the current
// effective set. The caller must hold s.mu.
func (s *Session) effectiveZones() ([]match.Zone, error) {
	if s.similar == nil {
		return nil, ErrNoReference
	}
	zones, err := s.similar.Zones()
	if err != nil {
		return nil, err
	}
	if len(zones) == 0 {
		return nil, fmt.Errorf("effective set is empty")
	}
	return zones, nil
}

// storeZones reorders the set into reading order and installs it as the
// current zone set. The caller must hold s.mu.
func (s *Session) storeZones(rs *zone.RefinedSet) {
	perm := sample.ReadingOrder(zoneCenters(rs.Zones))
	rs.Reorder(perm)
	s.dropRefined()
	s.refined = rs
}

// Result is the outcome of a full analysis pass.
type Result struct {
	Samples    []sample.ZoneSample
	Reports    []sample.Report
	Histograms []histogram.Histogram
}

// Analyze samples every zone in id order. Refinement is optional: when
// none has been applied, zones are built from the effective contours
// themselves and each filled contour becomes its own sampling mask. A
// zone whose mask selects no pixels aborts the whole run so that no
// partial measurement table is ever written.
func (s *Session) Analyze(opts sample.Options, withHistograms bool) (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.refined == nil {
		zones, err := s.effectiveZones()
		if err != nil {
			return nil, err
		}
		rs, err := zone.FromContours(s.contours, zones, s.src.Rows(), s.src.Cols())
		if err != nil {
			return nil, err
		}
		s.storeZones(rs)
	}

	res := &Result{}
	for k, z := range s.refined.Zones {
		crop := s.refined.CropRect(k, s.src.Cols(), s.src.Rows())
		zs, err := sample.Zone(s.src, z.Mask, crop, opts)
		if err != nil {
			return nil, fmt.Errorf("zone %d: %w", k+1, err)
		}
		zs.ID = k + 1
		zs.Index = z.Index
		zs.Center = z.Center
		res.Samples = append(res.Samples, zs)
		res.Reports = append(res.Reports, zs.Report())

		if withHistograms {
			h, err := histogram.Compute(s.src.BGR, z.Mask)
			if err != nil {
				return nil, fmt.Errorf("zone %d: %w", k+1, err)
			}
			res.Histograms = append(res.Histograms, h)
		}
	}
	return res, nil
}

// Source returns the loaded image, or nil.
func (s *Session) Source() *imaging.Source {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.src
}

// Refined returns the refined zone set, or nil.
func (s *Session) Refined() *zone.RefinedSet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refined
}

// Contours returns the extracted contour set, or nil.
func (s *Session) Contours() *contour.Set {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.contours
}

// MaskClone returns a copy of the current mask. The caller closes it.
func (s *Session) MaskClone() (gocv.Mat, mask.Counts, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasMask {
		return gocv.Mat{}, mask.Counts{}, ErrNoMask
	}
	return s.maskMat.Clone(), s.maskCounts, nil
}

// StageView renders the image at one display stage. Intermediate stages
// are regenerated from the stored parameters rather than cached, so the
// view always reflects the current mask settings. The caller closes the
// returned Mat.
func (s *Session) StageView(st mask.Stage) (gocv.Mat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.src == nil {
		return gocv.Mat{}, ErrNoImage
	}
	if st == mask.StageRaw {
		return s.src.BGR.Clone(), nil
	}
	if !s.hasMask {
		return gocv.Mat{}, ErrNoMask
	}
	m, _, err := mask.GenerateStage(s.src.HSV, s.maskParams, st)
	if err != nil {
		return gocv.Mat{}, err
	}
	return m, nil
}

// Close releases all pipeline state.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dropMask()
	if s.src != nil {
		s.src.Close()
		s.src = nil
	}
}

func zoneCenters(zones []zone.RefinedZone) []geometry.Point2D {
	centers := make([]geometry.Point2D, len(zones))
	for i, z := range zones {
		centers[i] = z.Center
	}
	return centers
}

func (s *Session) dropMask() {
	s.dropContours()
	if s.hasMask {
		s.maskMat.Close()
		s.hasMask = false
	}
}

func (s *Session) dropContours() {
	s.dropSimilar()
	if s.contours != nil {
		s.contours.Close()
		s.contours = nil
	}
}

func (s *Session) dropSimilar() {
	s.dropRefined()
	s.similar = nil
}

func (s *Session) dropRefined() {
	if s.refined != nil {
		s.refined.Close()
		s.refined = nil
	}
}
