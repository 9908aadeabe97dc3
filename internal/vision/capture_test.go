package vision

import (
	"context"
	"image"
	"image/color"
	"testing"
	"time"
)

// slowCapturer blocks past captureTimeout before returning, simulating a
// hung underlying screenshot.CaptureRect call.
type slowCapturer struct {
	delay time.Duration
	img   *image.RGBA
}

func (s slowCapturer) Capture() (*image.RGBA, error) {
	time.Sleep(s.delay)
	return s.img, nil
}
func (s slowCapturer) CaptureRegion(x, y, w, h int) (*image.RGBA, error) { return s.img, nil }
func (s slowCapturer) GetScreenBounds() (int, int, error) {
	b := s.img.Bounds()
	return b.Dx(), b.Dy(), nil
}

func TestCaptureFrame_TimesOutOnHungCapturer(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(0, 0, color.RGBA{1, 2, 3, 255})
	c := slowCapturer{delay: captureTimeout * 5, img: img}

	start := time.Now()
	_, err := captureFrame(context.Background(), c, "frm_1", start)
	elapsed := time.Since(start)

	if err == nil {
		t.Fatal("expected a timeout error")
	}
	if elapsed >= c.delay {
		t.Errorf("expected captureFrame to return around %s, took %s", captureTimeout, elapsed)
	}
}

func TestCaptureFrame_ReturnsPromptly(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	c := fakeCapturer{img: img}

	frame, err := captureFrame(context.Background(), c, "frm_2", time.Now())
	if err != nil {
		t.Fatalf("captureFrame: %v", err)
	}
	if frame.Width != 4 || frame.Height != 4 {
		t.Errorf("expected 4x4, got %dx%d", frame.Width, frame.Height)
	}
}
