// Package imaging provides image loading and per-session colorspace views.
package imaging

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"gocv.io/x/gocv"
	_ "golang.org/x/image/tiff"
)

// Source holds one loaded photograph and its derived colorspace views.
// The views are computed once at load time and are read-only for the
// lifetime of the analysis session. Pixels are stored in OpenCV's native
// BGR channel order; reporting boundaries are responsible for normalizing
// to conventional RGB.
type Source struct {
	Path string // Original file path ("" for in-memory sources)
	Name string // Base name without extension
	Ext  string // Extension including the dot

	BGR gocv.Mat
	HSV gocv.Mat // H 0-180, S 0-255, V 0-255
	Lab gocv.Mat // All channels byte-range, a/b biased by +128
}

// Load reads an image from disk and derives its colorspace views.
// Decode failures surface here, before any pipeline stage runs. Formats
// OpenCV was built without, TIFF in particular, fall back to the stdlib
// decoders.
func Load(path string) (*Source, error) {
	mat := gocv.IMRead(path, gocv.IMReadColor)
	if !mat.Empty() {
		return newSource(mat, path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("unreadable image %s: %w", path, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("unreadable image %s: %w", path, err)
	}
	return FromImage(img, path)
}

// FromMat wraps an already-decoded BGR buffer. The Mat is cloned, so the
// caller retains ownership of its copy.
func FromMat(bgr gocv.Mat, path string) (*Source, error) {
	if bgr.Empty() {
		return nil, fmt.Errorf("empty image buffer")
	}
	if bgr.Channels() != 3 {
		return nil, fmt.Errorf("expected 3-channel BGR buffer, got %d channels", bgr.Channels())
	}
	return newSource(bgr.Clone(), path)
}

// FromImage converts a decoded image.Image into a Source. The stdlib
// image is RGBA-ordered; channels are swapped into BGR here so the rest
// of the pipeline only ever sees one internal order.
func FromImage(img image.Image, path string) (*Source, error) {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w == 0 || h == 0 {
		return nil, fmt.Errorf("empty image buffer")
	}

	mat := gocv.NewMatWithSize(h, w, gocv.MatTypeCV8UC3)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			mat.SetUCharAt(y, x*3+0, uint8(b>>8))
			mat.SetUCharAt(y, x*3+1, uint8(g>>8))
			mat.SetUCharAt(y, x*3+2, uint8(r>>8))
		}
	}
	return newSource(mat, path)
}

func newSource(bgr gocv.Mat, path string) (*Source, error) {
	hsv := gocv.NewMat()
	gocv.CvtColor(bgr, &hsv, gocv.ColorBGRToHSV)

	lab := gocv.NewMat()
	gocv.CvtColor(bgr, &lab, gocv.ColorBGRToLab)

	ext := filepath.Ext(path)
	name := strings.TrimSuffix(filepath.Base(path), ext)
	if path == "" {
		name = "image"
	}

	return &Source{
		Path: path,
		Name: name,
		Ext:  ext,
		BGR:  bgr,
		HSV:  hsv,
		Lab:  lab,
	}, nil
}

// Rows returns the image height in pixels.
func (s *Source) Rows() int { return s.BGR.Rows() }

// Cols returns the image width in pixels.
func (s *Source) Cols() int { return s.BGR.Cols() }

// Bounds returns the pixel bounds of the image.
func (s *Source) Bounds() image.Rectangle {
	return image.Rect(0, 0, s.Cols(), s.Rows())
}

// Close releases the underlying Mats.
func (s *Source) Close() {
	s.BGR.Close()
	s.HSV.Close()
	s.Lab.Close()
}
