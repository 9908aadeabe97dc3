package vision

import (
	"image"
	"image/color"
	"testing"
)

func solidImage(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func TestCompareFrames_NilPrevMeansAllChanged(t *testing.T) {
	curr := solidImage(32, 32, color.RGBA{10, 10, 10, 255})
	res := compareFrames(nil, curr)
	if res.ChangedRatio != 1.0 {
		t.Errorf("expected ratio 1.0 with nil prev, got %v", res.ChangedRatio)
	}
}

func TestCompareFrames_IdenticalFramesNoChange(t *testing.T) {
	prev := solidImage(32, 32, color.RGBA{50, 50, 50, 255})
	curr := solidImage(32, 32, color.RGBA{50, 50, 50, 255})
	res := compareFrames(prev, curr)
	if res.ChangedRatio != 0 {
		t.Errorf("expected ratio 0 for identical frames, got %v", res.ChangedRatio)
	}
	if res.AnyChanged {
		t.Error("expected AnyChanged false")
	}
}

func TestCompareFrames_PartialChangeDetectsRegion(t *testing.T) {
	prev := solidImage(32, 32, color.RGBA{0, 0, 0, 255})
	curr := solidImage(32, 32, color.RGBA{0, 0, 0, 255})
	// Change only the top-left tile.
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			curr.SetRGBA(x, y, color.RGBA{255, 255, 255, 255})
		}
	}
	res := compareFrames(prev, curr)
	if !res.AnyChanged {
		t.Fatal("expected a change to be detected")
	}
	// 32x32 = 4 tiles total, 1 changed -> ratio 0.25
	if res.ChangedRatio != 0.25 {
		t.Errorf("expected ratio 0.25, got %v", res.ChangedRatio)
	}
	if res.Bounds.Min.X != 0 || res.Bounds.Min.Y != 0 || res.Bounds.Max.X != 16 || res.Bounds.Max.Y != 16 {
		t.Errorf("expected bounds [0,0,16,16], got %v", res.Bounds)
	}
}

func TestCompareFrames_SingleSubtlePixelBelowThresholdNotChanged(t *testing.T) {
	prev := solidImage(16, 16, color.RGBA{100, 100, 100, 255})
	curr := solidImage(16, 16, color.RGBA{100, 100, 100, 255})
	// One pixel shifts by 5 per channel (sum 15), well under the 30 threshold;
	// every other pixel in the tile is identical.
	curr.SetRGBA(3, 3, color.RGBA{105, 105, 105, 255})
	res := compareFrames(prev, curr)
	if res.AnyChanged {
		t.Error("expected a single subtle pixel diff to stay under the threshold")
	}
}

func TestExpandToGrid_ClampsToImageBounds(t *testing.T) {
	r := expandToGrid(image.Rect(5, 5, 20, 20), 32, 32)
	if r.Min.X != 0 || r.Min.Y != 0 || r.Max.X != 32 || r.Max.Y != 32 {
		t.Errorf("expected grid-aligned bounds clamped to image, got %v", r)
	}
}

func TestFrameChecksum_DiffersOnPixelChange(t *testing.T) {
	a := solidImage(8, 8, color.RGBA{1, 2, 3, 255})
	b := solidImage(8, 8, color.RGBA{1, 2, 4, 255})
	if frameChecksum(a) == frameChecksum(b) {
		t.Error("expected different checksums for different pixel data")
	}
}
