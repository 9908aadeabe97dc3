// Package vision turns a capture decision into a persisted ProcessedFrame:
// screen capture, tier selection, encoding, delta comparison, optional OCR,
// PII sanitization, and hand-off to storage.
package vision

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/kbinani/screenshot"

	"github.com/vthunder/bud2/internal/models"
)

// captureTimeout bounds the screen-capture call (§5 Concurrency & Resource
// Model): a capture that hasn't returned by this deadline yields a
// MetadataOnly frame rather than blocking the single-threaded capture loop.
const captureTimeout = 1 * time.Second

// ScreenCapturer captures the focused monitor or an explicit region.
// Grounded on the teacher's desktop.ScreenCapturer interface shape
// (agent/internal/remote/desktop/capture.go), narrowed to the single
// still-image capture this spec needs (no video/texture/cursor surface).
type ScreenCapturer interface {
	Capture() (*image.RGBA, error)
	CaptureRegion(x, y, width, height int) (*image.RGBA, error)
	GetScreenBounds() (width, height int, err error)
}

// ErrNotSupported mirrors the teacher's screen-capture sentinel; returned
// when no display is available (headless, CI).
var ErrNotSupported = fmt.Errorf("vision: screen capture not supported on this platform")

// displayCapturer wraps github.com/kbinani/screenshot, the pure-Go screen
// capture library the pack already depends on (eequaled-waddle's go.mod).
type displayCapturer struct {
	displayIndex int
}

// NewDisplayCapturer returns a ScreenCapturer for the given display index
// (0 = primary).
func NewDisplayCapturer(displayIndex int) ScreenCapturer {
	return &displayCapturer{displayIndex: displayIndex}
}

func (c *displayCapturer) GetScreenBounds() (int, int, error) {
	n := screenshot.NumActiveDisplays()
	if n == 0 || c.displayIndex >= n {
		return 0, 0, ErrNotSupported
	}
	bounds := screenshot.GetDisplayBounds(c.displayIndex)
	return bounds.Dx(), bounds.Dy(), nil
}

func (c *displayCapturer) Capture() (*image.RGBA, error) {
	n := screenshot.NumActiveDisplays()
	if n == 0 || c.displayIndex >= n {
		return nil, ErrNotSupported
	}
	bounds := screenshot.GetDisplayBounds(c.displayIndex)
	img, err := screenshot.CaptureRect(bounds)
	if err != nil {
		return nil, fmt.Errorf("vision: capture display %d: %w", c.displayIndex, err)
	}
	return img, nil
}

func (c *displayCapturer) CaptureRegion(x, y, width, height int) (*image.RGBA, error) {
	img, err := screenshot.CaptureRect(image.Rect(x, y, x+width, y+height))
	if err != nil {
		return nil, fmt.Errorf("vision: capture region: %w", err)
	}
	return img, nil
}

// captureFrame invokes capturer under a 1s hard timeout and wraps the
// result as a CapturedFrame. On failure or timeout it returns a zero
// CapturedFrame and an error; callers degrade to a MetadataOnly
// ProcessedFrame rather than propagate the failure upward (§4.4 step 1).
// The capture runs in its own goroutine (mirroring runOCR's timeout
// pattern in ocr.go) since ScreenCapturer.Capture takes no context and a
// hung underlying call must not block the single-threaded capture loop.
func captureFrame(ctx context.Context, c ScreenCapturer, frameID string, now time.Time) (models.CapturedFrame, error) {
	ctx, cancel := context.WithTimeout(ctx, captureTimeout)
	defer cancel()

	type outcome struct {
		img *image.RGBA
		err error
	}
	ch := make(chan outcome, 1)
	go func() {
		img, err := c.Capture()
		ch <- outcome{img, err}
	}()

	select {
	case <-ctx.Done():
		return models.CapturedFrame{}, fmt.Errorf("vision: capture timed out after %s", captureTimeout)
	case o := <-ch:
		if o.err != nil {
			return models.CapturedFrame{}, o.err
		}
		b := o.img.Bounds()
		return models.CapturedFrame{
			FrameID:    frameID,
			Width:      b.Dx(),
			Height:     b.Dy(),
			Pix:        o.img.Pix,
			CapturedAt: now,
			Source:     models.FrameSource{Kind: models.FrameSourceMonitor, Index: 0},
		}, nil
	}
}
