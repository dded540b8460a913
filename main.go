// PadScan extracts per-zone colorimetric measurements from photographs
// of paper-based assay strips. The pipeline thresholds the image in HSV
// space, finds candidate pad contours, matches them against a chosen
// reference pad, refines the matches into uniform sampling zones, and
// writes the measurements plus annotated artifacts next to the image.
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"padscan/internal/export"
	"padscan/internal/mask"
	"padscan/internal/match"
	"padscan/internal/preset"
	"padscan/internal/sample"
	"padscan/internal/session"
	"padscan/internal/version"
	"padscan/internal/zone"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type config struct {
	imagePath   string
	presetPath  string
	presetName  string
	savePreset  string
	verbose     bool
	showVersion bool

	vmin  int
	smin  int
	mode  string
	morph string
	blur  int

	ref      int
	sizeTol  float64
	shapeTol float64
	add      string
	remove   string

	refine   bool
	shape    string
	radius   int
	width    int
	height   int
	sides    int
	rotation float64
	dx       int
	dy       int

	rgb        bool
	hsv        bool
	lab        bool
	histograms bool
	crops      bool
	snapshots  string
}

func main() {
	var cfg config
	flag.StringVar(&cfg.imagePath, "image", "", "strip photograph to analyze")
	flag.StringVar(&cfg.presetPath, "presets", "", "preset file to load from or save to")
	flag.StringVar(&cfg.presetName, "preset", "", "named preset to apply; explicit flags override its values")
	flag.StringVar(&cfg.savePreset, "save-preset", "", "save the effective settings under this name in the preset file")
	flag.BoolVar(&cfg.verbose, "v", false, "verbose logging")
	flag.BoolVar(&cfg.showVersion, "version", false, "print version and exit")

	flag.IntVar(&cfg.vmin, "vmin", 50, "lower HSV value threshold (0-255)")
	flag.IntVar(&cfg.smin, "smin", 50, "lower HSV saturation threshold (0-255)")
	flag.StringVar(&cfg.mode, "mode", "and", "threshold combination: and, or")
	flag.StringVar(&cfg.morph, "morph", "", "morphology sequence, one letter per op, e.g. dde")
	flag.IntVar(&cfg.blur, "blur", 1, "box blur kernel size (1-10, 1 disables)")

	flag.IntVar(&cfg.ref, "ref", 0, "canonical index of the reference zone")
	flag.Float64Var(&cfg.sizeTol, "size-tol", 20, "size tolerance in percent of the reference area (0-100)")
	flag.Float64Var(&cfg.shapeTol, "shape-tol", 0.5, "shape distance tolerance (0-2)")
	flag.StringVar(&cfg.add, "add", "", "comma-separated canonical indices to include manually")
	flag.StringVar(&cfg.remove, "remove", "", "comma-separated canonical indices to exclude manually")

	flag.BoolVar(&cfg.refine, "refine", true, "replace matched contours with the uniform sampling shape; false samples the raw contours")
	flag.StringVar(&cfg.shape, "shape", "circle", "sampling shape: circle, rectangle, polygon")
	flag.IntVar(&cfg.radius, "radius", 20, "circle or polygon radius in pixels")
	flag.IntVar(&cfg.width, "width", 40, "rectangle width in pixels")
	flag.IntVar(&cfg.height, "height", 40, "rectangle height in pixels")
	flag.IntVar(&cfg.sides, "sides", 6, "polygon vertex count")
	flag.Float64Var(&cfg.rotation, "rotation", 0, "polygon rotation in radians")
	flag.IntVar(&cfg.dx, "dx", 0, "horizontal zone displacement in pixels")
	flag.IntVar(&cfg.dy, "dy", 0, "vertical zone displacement in pixels, positive moves up")

	flag.BoolVar(&cfg.rgb, "rgb", true, "report RGB statistics")
	flag.BoolVar(&cfg.hsv, "hsv", false, "report HSV statistics")
	flag.BoolVar(&cfg.lab, "lab", false, "report CIELAB statistics")
	flag.BoolVar(&cfg.histograms, "histograms", false, "write per-zone channel histograms")
	flag.BoolVar(&cfg.crops, "crops", true, "write per-zone crop images")
	flag.StringVar(&cfg.snapshots, "snapshots", "", "comma-separated pipeline stages to snapshot: raw, masked, morphed, blurred")
	flag.Parse()

	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
		With().Timestamp().Logger()
	if cfg.verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	if cfg.showVersion {
		fmt.Println(version.String())
		return
	}
	if cfg.imagePath == "" {
		flag.Usage()
		os.Exit(2)
	}
	if err := run(cfg); err != nil {
		log.Fatal().Err(err).Msg("analysis failed")
	}
}

func run(cfg config) error {
	maskParams, matchParams, refinement, opts, histograms, crops, err := settings(cfg)
	if err != nil {
		return err
	}

	s := session.New()
	defer s.Close()

	if err := s.Load(cfg.imagePath); err != nil {
		return err
	}
	src := s.Source()
	log.Info().Str("image", src.Path).Int("width", src.Cols()).Int("height", src.Rows()).Msg("image loaded")

	if err := s.SetMask(maskParams); err != nil {
		return err
	}
	m, counts, err := s.MaskClone()
	if err != nil {
		return err
	}
	m.Close()
	log.Debug().Int("dilations", counts.Dilations).Int("erosions", counts.Erosions).Msg("mask generated")

	n, err := s.Detect()
	if err != nil {
		return err
	}
	log.Info().Int("contours", n).Msg("contours extracted")

	if err := s.SelectReference(cfg.ref); err != nil {
		return err
	}
	matched, err := s.FindSimilar(matchParams)
	if err != nil {
		return err
	}
	log.Info().
		Int("reference", cfg.ref).
		Float64("size_tol", matchParams.SizeTolerance).
		Float64("shape_tol", matchParams.ShapeTolerance).
		Int("matched", matched).
		Msg("similar zones matched")

	if err := applyEdits(s, cfg.add, s.AddZone); err != nil {
		return err
	}
	if err := applyEdits(s, cfg.remove, s.RemoveZone); err != nil {
		return err
	}

	if cfg.refine {
		if err := s.Refine(refinement); err != nil {
			return err
		}
		log.Info().Int("zones", len(s.Refined().Zones)).Str("shape", refinement.Shape.Kind.String()).Msg("zones refined")
	} else {
		log.Info().Msg("refinement skipped, sampling raw contours")
	}

	res, err := s.Analyze(opts, histograms)
	if err != nil {
		return err
	}

	dir, err := export.Dir(cfg.imagePath)
	if err != nil {
		return err
	}
	log.Info().Str("dir", dir).Msg("writing artifacts")

	csvPath, err := export.WriteCSV(dir, src.Name, res.Reports)
	if err != nil {
		return err
	}
	log.Info().Str("path", csvPath).Int("zones", len(res.Reports)).Msg("measurements written")

	if _, err := export.WriteLabeled(dir, src, s.Refined(), res.Samples); err != nil {
		return err
	}
	if _, err := export.WriteMask(dir, src, s.Refined()); err != nil {
		return err
	}
	if crops {
		if err := export.WriteCrops(dir, src, s.Refined(), res.Samples); err != nil {
			return err
		}
	}
	if histograms {
		if err := export.WriteHistograms(dir, src.Name, src.Ext, res.Histograms); err != nil {
			return err
		}
	}
	if err := writeSnapshots(s, dir, cfg.snapshots); err != nil {
		return err
	}

	if cfg.savePreset != "" {
		if cfg.presetPath == "" {
			return fmt.Errorf("-save-preset given without -presets file")
		}
		store, err := preset.LoadStore(cfg.presetPath)
		if err != nil {
			return err
		}
		p := preset.FromSettings(cfg.savePreset, maskParams, matchParams, refinement, opts, histograms, crops)
		if err := store.Put(p); err != nil {
			return err
		}
		if err := store.Save(cfg.presetPath); err != nil {
			return err
		}
		log.Info().Str("path", cfg.presetPath).Str("name", cfg.savePreset).Msg("preset saved")
	}
	return nil
}

// settings resolves the effective parameters: preset values first, then
// any flag the user set explicitly on top.
func settings(cfg config) (mask.Params, match.Params, zone.Refinement, sample.Options, bool, bool, error) {
	if cfg.presetName != "" {
		if cfg.presetPath == "" {
			return mask.Params{}, match.Params{}, zone.Refinement{}, sample.Options{}, false, false,
				fmt.Errorf("-preset given without -presets file")
		}
		store, err := preset.LoadStore(cfg.presetPath)
		if err != nil {
			return mask.Params{}, match.Params{}, zone.Refinement{}, sample.Options{}, false, false, err
		}
		p, err := store.Get(cfg.presetName)
		if err != nil {
			return mask.Params{}, match.Params{}, zone.Refinement{}, sample.Options{}, false, false, err
		}
		base := cfg
		base.vmin = p.Mask.ValueMin
		base.smin = p.Mask.SaturationMin
		base.mode = p.Mask.Mode
		base.morph = p.Mask.Morphology
		base.blur = p.Mask.Blur
		base.sizeTol = p.Match.SizeTolerance
		base.shapeTol = p.Match.ShapeTolerance
		base.shape = p.Zone.Shape
		base.radius = p.Zone.Radius
		base.width = p.Zone.Width
		base.height = p.Zone.Height
		base.sides = p.Zone.Sides
		base.rotation = p.Zone.Rotation
		base.dx = p.Zone.DisplaceX
		base.dy = p.Zone.DisplaceY
		base.rgb = p.Output.RGB
		base.hsv = p.Output.HSV
		base.lab = p.Output.Lab
		base.histograms = p.Output.Histograms
		base.crops = p.Output.Crops
		overrideFromFlags(&base, cfg)
		cfg = base
	}

	mode, err := mask.ParseMode(cfg.mode)
	if err != nil {
		return mask.Params{}, match.Params{}, zone.Refinement{}, sample.Options{}, false, false, err
	}
	ops, err := mask.ParseOps(cfg.morph)
	if err != nil {
		return mask.Params{}, match.Params{}, zone.Refinement{}, sample.Options{}, false, false, err
	}
	kind, err := zone.ParseKind(cfg.shape)
	if err != nil {
		return mask.Params{}, match.Params{}, zone.Refinement{}, sample.Options{}, false, false, err
	}

	maskParams := mask.Params{
		ValueMin:      cfg.vmin,
		SaturationMin: cfg.smin,
		Mode:          mode,
		Morphology:    ops,
		Blur:          cfg.blur,
	}
	matchParams := match.Params{
		SizeTolerance:  cfg.sizeTol,
		ShapeTolerance: cfg.shapeTol,
	}.Normalized()
	refinement := zone.Refinement{
		Shape: zone.Shape{
			Kind:     kind,
			Radius:   cfg.radius,
			Width:    cfg.width,
			Height:   cfg.height,
			Sides:    cfg.sides,
			Rotation: cfg.rotation,
		},
		DisplaceX: cfg.dx,
		DisplaceY: cfg.dy,
	}
	if cfg.refine {
		if err := refinement.Shape.Validate(); err != nil {
			return mask.Params{}, match.Params{}, zone.Refinement{}, sample.Options{}, false, false, err
		}
	}
	opts := sample.Options{RGB: cfg.rgb, HSV: cfg.hsv, Lab: cfg.lab}
	return maskParams, matchParams, refinement, opts, cfg.histograms, cfg.crops, nil
}

// overrideFromFlags copies every flag the user set on the command line
// from src into dst, so explicit flags win over preset values.
func overrideFromFlags(dst *config, src config) {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "vmin":
			dst.vmin = src.vmin
		case "smin":
			dst.smin = src.smin
		case "mode":
			dst.mode = src.mode
		case "morph":
			dst.morph = src.morph
		case "blur":
			dst.blur = src.blur
		case "size-tol":
			dst.sizeTol = src.sizeTol
		case "shape-tol":
			dst.shapeTol = src.shapeTol
		case "shape":
			dst.shape = src.shape
		case "radius":
			dst.radius = src.radius
		case "width":
			dst.width = src.width
		case "height":
			dst.height = src.height
		case "sides":
			dst.sides = src.sides
		case "rotation":
			dst.rotation = src.rotation
		case "dx":
			dst.dx = src.dx
		case "dy":
			dst.dy = src.dy
		case "rgb":
			dst.rgb = src.rgb
		case "hsv":
			dst.hsv = src.hsv
		case "lab":
			dst.lab = src.lab
		case "histograms":
			dst.histograms = src.histograms
		case "crops":
			dst.crops = src.crops
		}
	})
}

// applyEdits parses a comma-separated index list and applies one manual
// set operation per index.
func applyEdits(s *session.Session, list string, op func(int) error) error {
	if strings.TrimSpace(list) == "" {
		return nil
	}
	for _, field := range strings.Split(list, ",") {
		i, err := strconv.Atoi(strings.TrimSpace(field))
		if err != nil {
			return fmt.Errorf("invalid zone index %q: %w", field, err)
		}
		if err := op(i); err != nil {
			return err
		}
	}
	return nil
}

func writeSnapshots(s *session.Session, dir, list string) error {
	if strings.TrimSpace(list) == "" {
		return nil
	}
	for _, field := range strings.Split(list, ",") {
		st, err := mask.ParseStage(strings.TrimSpace(field))
		if err != nil {
			return err
		}
		path, err := export.WriteSnapshot(dir, s, st)
		if err != nil {
			return err
		}
		log.Debug().Str("path", path).Msg("snapshot written")
	}
	return nil
}
