package imaging

import (
	"image"
	"image/color"
	"testing"

	"gocv.io/x/gocv"
)

func TestFromMatBuildsAllColorViews(t *testing.T) {
	bgr := gocv.NewMatWithSize(10, 10, gocv.MatTypeCV8UC3)
	defer bgr.Close()

	src, err := FromMat(bgr, "capture.png")
	if err != nil {
		t.Fatalf("FromMat: %v", err)
	}
	defer src.Close()

	if src.Name != "capture" || src.Ext != ".png" {
		t.Errorf("name/ext = %q/%q, want capture/.png", src.Name, src.Ext)
	}
	for _, m := range []gocv.Mat{src.BGR, src.HSV, src.Lab} {
		if m.Rows() != 10 || m.Cols() != 10 || m.Channels() != 3 {
			t.Errorf("view %dx%d with %d channels, want 10x10x3", m.Cols(), m.Rows(), m.Channels())
		}
	}
}

func TestFromMatRejectsNonColorInput(t *testing.T) {
	gray := gocv.NewMatWithSize(10, 10, gocv.MatTypeCV8UC1)
	defer gray.Close()
	if _, err := FromMat(gray, ""); err == nil {
		t.Error("FromMat accepted a single-channel Mat")
	}
}

func TestFromImageConvertsChannelOrder(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.SetRGBA(x, y, color.RGBA{R: 200, G: 100, B: 50, A: 255})
		}
	}

	src, err := FromImage(img, "")
	if err != nil {
		t.Fatalf("FromImage: %v", err)
	}
	defer src.Close()

	// Channel 0 of the stored Mat is blue.
	if b := src.BGR.GetUCharAt(0, 0); b != 50 {
		t.Errorf("blue channel = %d, want 50", b)
	}
	if r := src.BGR.GetUCharAt(0, 2); r != 200 {
		t.Errorf("red channel = %d, want 200", r)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/strip.png"); err == nil {
		t.Error("Load accepted a missing file")
	}
}
