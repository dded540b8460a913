// Command matchtest extracts contours from a strip image and reports
// which of them match a chosen reference under the given tolerances.
package main

import (
	"flag"
	"fmt"
	"os"

	"padscan/internal/contour"
	"padscan/internal/imaging"
	"padscan/internal/mask"
	"padscan/internal/match"
)

func main() {
	imagePath := flag.String("image", "", "Path to strip image (TIFF, PNG, or JPEG)")
	vmin := flag.Int("vmin", 50, "Lower HSV value threshold")
	smin := flag.Int("smin", 50, "Lower HSV saturation threshold")
	ref := flag.Int("ref", 0, "Canonical index of the reference contour")
	sizeTol := flag.Float64("size-tol", 20, "Size tolerance in percent")
	shapeTol := flag.Float64("shape-tol", 0.5, "Shape distance tolerance")
	flag.Parse()

	if *imagePath == "" {
		fmt.Println("Usage: matchtest -image <path> [-ref 0] [-size-tol 20] [-shape-tol 0.5]")
		os.Exit(1)
	}

	src, err := imaging.Load(*imagePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load image: %v\n", err)
		os.Exit(1)
	}
	defer src.Close()

	bin, _ := mask.Generate(src.HSV, mask.Params{
		ValueMin:      *vmin,
		SaturationMin: *smin,
		Mode:          mask.ModeAnd,
		Blur:          1,
	})
	defer bin.Close()

	set, err := contour.Extract(bin)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Contour extraction failed: %v\n", err)
		os.Exit(1)
	}
	defer set.Close()
	fmt.Printf("Extracted %d contours\n", set.Len())

	sim, err := match.New(set, *ref)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Reference selection failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Reference index %d (area %.1f)\n", *ref, set.Area(*ref))

	params := match.Params{SizeTolerance: *sizeTol, ShapeTolerance: *shapeTol}.Normalized()
	sim.Match(params)
	fmt.Printf("Tolerances: size %.1f%%, shape %.3f\n", params.SizeTolerance, params.ShapeTolerance)

	matched := sim.Matched()
	fmt.Printf("\nMatched %d contours:\n", len(matched))
	fmt.Printf("%-6s %12s %12s\n", "Index", "Area", "AreaDev%")
	refArea := set.Area(*ref)
	for _, i := range matched {
		dev := (set.Area(i) - refArea) / refArea * 100
		fmt.Printf("%-6d %12.1f %+11.1f%%\n", i, set.Area(i), dev)
	}

	zones, err := sim.Zones()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Zone centers failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("\nZone centers:\n")
	for _, z := range zones {
		fmt.Printf("  contour %d at (%.2f, %.2f)\n", z.Index, z.Center.X, z.Center.Y)
	}
}
