// Command contourtest runs mask generation and contour extraction on a
// strip image and prints the candidate table.
package main

import (
	"flag"
	"fmt"
	"os"

	"padscan/internal/contour"
	"padscan/internal/imaging"
	"padscan/internal/mask"
	"padscan/pkg/colorutil"

	"gocv.io/x/gocv"
)

func main() {
	imagePath := flag.String("image", "", "Path to strip image (TIFF, PNG, or JPEG)")
	vmin := flag.Int("vmin", 50, "Lower HSV value threshold")
	smin := flag.Int("smin", 50, "Lower HSV saturation threshold")
	mode := flag.String("mode", "and", "Threshold combination: and or or")
	morph := flag.String("morph", "", "Morphology sequence, e.g. dde")
	blur := flag.Int("blur", 1, "Box blur kernel size")
	out := flag.String("out", "", "Optional path for an overlay image of the contours")
	flag.Parse()

	if *imagePath == "" {
		fmt.Println("Usage: contourtest -image <path> [-vmin 50] [-smin 50] [-mode and] [-morph dde] [-blur 3] [-out overlay.png]")
		os.Exit(1)
	}

	src, err := imaging.Load(*imagePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load image: %v\n", err)
		os.Exit(1)
	}
	defer src.Close()
	fmt.Printf("Loaded image: %dx%d pixels\n", src.Cols(), src.Rows())

	m, err := mask.ParseMode(*mode)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	ops, err := mask.ParseOps(*morph)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	params := mask.Params{
		ValueMin:      *vmin,
		SaturationMin: *smin,
		Mode:          m,
		Morphology:    ops,
		Blur:          *blur,
	}
	fmt.Printf("\nMask parameters:\n")
	fmt.Printf("  Thresholds: V>=%d S>=%d (%s)\n", params.ValueMin, params.SaturationMin, params.Mode)
	fmt.Printf("  Morphology: %q  Blur: %d\n", mask.OpsCode(params.Morphology), params.Blur)

	bin, counts := mask.Generate(src.HSV, params)
	defer bin.Close()
	fmt.Printf("  Applied: %d dilations, %d erosions\n", counts.Dilations, counts.Erosions)

	set, err := contour.Extract(bin)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Contour extraction failed: %v\n", err)
		os.Exit(1)
	}
	defer set.Close()

	fmt.Printf("\nExtracted %d contours:\n", set.Len())
	fmt.Printf("%-6s %12s %12s %10s %10s\n", "Index", "Area", "MomentArea", "CX", "CY")
	for i := 0; i < set.Len(); i++ {
		rm, err := set.RegionMoments(i)
		if err != nil {
			fmt.Printf("%-6d %12.1f %12s %10s %10s\n", i, set.Area(i), "-", "-", "-")
			continue
		}
		fmt.Printf("%-6d %12.1f %12.1f %10.2f %10.2f\n", i, set.Area(i), rm.Area, rm.Centroid.X, rm.Centroid.Y)
	}

	if *out != "" {
		overlay := src.BGR.Clone()
		defer overlay.Close()
		gocv.DrawContours(&overlay, set.Contours(), -1, colorutil.Cyan, 2)
		if ok := gocv.IMWrite(*out, overlay); !ok {
			fmt.Fprintf(os.Stderr, "Failed to write overlay %s\n", *out)
			os.Exit(1)
		}
		fmt.Printf("\nOverlay written to %s\n", *out)
	}
}
