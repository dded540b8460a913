// Package preset persists analysis settings as versioned JSON so a
// tuned configuration can be reapplied to new strip photographs.
package preset

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"padscan/internal/mask"
	"padscan/internal/match"
	"padscan/internal/sample"
	"padscan/internal/zone"
)

// Version is the current preset schema version. Files carrying a
// different version are rejected rather than guessed at.
const Version = 1

// Preset is the serialized form of every tunable setting. It carries
// no per-image state; reference selection and manual zone edits stay
// with the image they were made on.
type Preset struct {
	Version int    `json:"version"`
	Name    string `json:"name,omitempty"`

	Mask   MaskSettings   `json:"mask"`
	Match  MatchSettings  `json:"match"`
	Zone   ZoneSettings   `json:"zone"`
	Output OutputSettings `json:"output"`
}

// MaskSettings mirrors mask.Params with the morphology sequence in its
// compact string form, one letter per operation.
type MaskSettings struct {
	ValueMin      int    `json:"value_min"`
	SaturationMin int    `json:"saturation_min"`
	Mode          string `json:"mode"`
	Morphology    string `json:"morphology"`
	Blur          int    `json:"blur"`
}

type MatchSettings struct {
	SizeTolerance  float64 `json:"size_tolerance"`
	ShapeTolerance float64 `json:"shape_tolerance"`
}

type ZoneSettings struct {
	Shape     string  `json:"shape"`
	Radius    int     `json:"radius,omitempty"`
	Width     int     `json:"width,omitempty"`
	Height    int     `json:"height,omitempty"`
	Sides     int     `json:"sides,omitempty"`
	Rotation  float64 `json:"rotation,omitempty"`
	DisplaceX int     `json:"displace_x"`
	DisplaceY int     `json:"displace_y"`
}

type OutputSettings struct {
	RGB        bool `json:"rgb"`
	HSV        bool `json:"hsv"`
	Lab        bool `json:"lab"`
	Histograms bool `json:"histograms"`
	Crops      bool `json:"crops"`
}

// FromSettings captures live pipeline parameters into a preset.
func FromSettings(name string, mp mask.Params, tp match.Params, r zone.Refinement, opts sample.Options, histograms, crops bool) Preset {
	return Preset{
		Version: Version,
		Name:    name,
		Mask: MaskSettings{
			ValueMin:      mp.ValueMin,
			SaturationMin: mp.SaturationMin,
			Mode:          strings.ToLower(mp.Mode.String()),
			Morphology:    mask.OpsCode(mp.Morphology),
			Blur:          mp.Blur,
		},
		Match: MatchSettings{
			SizeTolerance:  tp.SizeTolerance,
			ShapeTolerance: tp.ShapeTolerance,
		},
		Zone: ZoneSettings{
			Shape:     r.Shape.Kind.String(),
			Radius:    r.Shape.Radius,
			Width:     r.Shape.Width,
			Height:    r.Shape.Height,
			Sides:     r.Shape.Sides,
			Rotation:  r.Shape.Rotation,
			DisplaceX: r.DisplaceX,
			DisplaceY: r.DisplaceY,
		},
		Output: OutputSettings{
			RGB:        opts.RGB,
			HSV:        opts.HSV,
			Lab:        opts.Lab,
			Histograms: histograms,
			Crops:      crops,
		},
	}
}

// MaskParams decodes the mask section back into pipeline parameters.
func (p Preset) MaskParams() (mask.Params, error) {
	mode, err := mask.ParseMode(p.Mask.Mode)
	if err != nil {
		return mask.Params{}, err
	}
	ops, err := mask.ParseOps(p.Mask.Morphology)
	if err != nil {
		return mask.Params{}, err
	}
	return mask.Params{
		ValueMin:      p.Mask.ValueMin,
		SaturationMin: p.Mask.SaturationMin,
		Mode:          mode,
		Morphology:    ops,
		Blur:          p.Mask.Blur,
	}, nil
}

// MatchParams decodes the tolerance section.
func (p Preset) MatchParams() match.Params {
	return match.Params{
		SizeTolerance:  p.Match.SizeTolerance,
		ShapeTolerance: p.Match.ShapeTolerance,
	}.Normalized()
}

// Refinement decodes the zone section.
func (p Preset) Refinement() (zone.Refinement, error) {
	kind, err := zone.ParseKind(p.Zone.Shape)
	if err != nil {
		return zone.Refinement{}, err
	}
	r := zone.Refinement{
		Shape: zone.Shape{
			Kind:     kind,
			Radius:   p.Zone.Radius,
			Width:    p.Zone.Width,
			Height:   p.Zone.Height,
			Sides:    p.Zone.Sides,
			Rotation: p.Zone.Rotation,
		},
		DisplaceX: p.Zone.DisplaceX,
		DisplaceY: p.Zone.DisplaceY,
	}
	if err := r.Shape.Validate(); err != nil {
		return zone.Refinement{}, err
	}
	return r, nil
}

// Options decodes the output toggles.
func (p Preset) Options() sample.Options {
	return sample.Options{RGB: p.Output.RGB, HSV: p.Output.HSV, Lab: p.Output.Lab}
}

// Store is a named collection of presets backed by one JSON file.
type Store struct {
	Version int               `json:"version"`
	Presets map[string]Preset `json:"presets"`
}

// NewStore returns an empty store at the current schema version.
func NewStore() *Store {
	return &Store{Version: Version, Presets: make(map[string]Preset)}
}

// Put records a preset under its name, overwriting any existing entry
// with that name.
func (s *Store) Put(p Preset) error {
	if p.Name == "" {
		return fmt.Errorf("preset has no name")
	}
	p.Version = Version
	s.Presets[p.Name] = p
	return nil
}

// Get returns the named preset.
func (s *Store) Get(name string) (Preset, error) {
	p, ok := s.Presets[name]
	if !ok {
		return Preset{}, fmt.Errorf("no preset named %q", name)
	}
	return p, nil
}

// Names returns the stored preset names, sorted.
func (s *Store) Names() []string {
	names := make([]string, 0, len(s.Presets))
	for n := range s.Presets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Save writes the store as indented JSON.
func (s *Store) Save(path string) error {
	s.Version = Version
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encode presets: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write presets: %w", err)
	}
	return nil
}

// LoadStore reads a preset file and checks its schema version. A missing
// file is not an error; it yields an empty store so the first save
// creates it. Entries are decoded but not validated here; validation
// happens when each section is converted to pipeline parameters.
// Unknown JSON fields are ignored, so files written by newer minor
// revisions still load.
func LoadStore(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return NewStore(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read presets: %w", err)
	}
	s := NewStore()
	if err := json.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("decode presets %s: %w", path, err)
	}
	if s.Version != Version {
		return nil, fmt.Errorf("preset file %s has schema version %d, want %d", path, s.Version, Version)
	}
	if s.Presets == nil {
		s.Presets = make(map[string]Preset)
	}
	return s, nil
}
