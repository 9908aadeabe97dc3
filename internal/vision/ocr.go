package vision

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"strings"
	"time"

	"github.com/otiai10/gosseract/v2"
)

// minOCRConfidence is the acceptance threshold (§4.4 step 5): OCR text is
// kept only when confidence exceeds this and the trimmed text is non-empty.
const minOCRConfidence = 0.3

// ocrTimeout bounds OCR operation time; a result arriving after this is
// discarded and the frame proceeds without ocr_text.
const ocrTimeout = 2 * time.Second

// OCRResult is the raw output of an OCR capability, before the acceptance
// check in runOCR.
type OCRResult struct {
	Text       string
	Confidence float64
}

// OCRCapability is optional: a platform or build may have no text-
// recognition engine available at all, in which case NoOCR is used and
// every frame proceeds without ocr_text, matching the spec's "optional
// capability" language (§4.4 step 5).
type OCRCapability interface {
	Recognize(ctx context.Context, img image.Image) (OCRResult, error)
}

// ErrOCRUnavailable is returned by NoOCR.
var ErrOCRUnavailable = errors.New("vision: no OCR capability configured")

// NoOCR is the default OCRCapability when no text-recognition engine is
// wired in (e.g. tesseract is not installed on the host). Matches the
// spec's treatment of OCR as an optional capability.
type NoOCR struct{}

func (NoOCR) Recognize(ctx context.Context, img image.Image) (OCRResult, error) {
	return OCRResult{}, ErrOCRUnavailable
}

// TesseractOCR implements OCRCapability via github.com/otiai10/gosseract/v2,
// a cgo binding over the tesseract engine. Each Recognize call gets its own
// client so concurrent calls (there are none in this core's single-frame-
// at-a-time pipeline, but future callers may differ) never share engine
// state.
type TesseractOCR struct{}

func (TesseractOCR) Recognize(ctx context.Context, img image.Image) (OCRResult, error) {
	buf := new(bytes.Buffer)
	if err := png.Encode(buf, img); err != nil {
		return OCRResult{}, fmt.Errorf("vision: encode image for ocr: %w", err)
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetImageFromBytes(buf.Bytes()); err != nil {
		return OCRResult{}, fmt.Errorf("vision: set ocr image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return OCRResult{}, fmt.Errorf("vision: ocr recognize: %w", err)
	}

	boxes, err := client.GetBoundingBoxesVerbose()
	confidence := 0.0
	if err == nil && len(boxes) > 0 {
		var sum float64
		for _, b := range boxes {
			sum += b.Confidence
		}
		confidence = (sum / float64(len(boxes))) / 100.0
	}

	return OCRResult{Text: text, Confidence: confidence}, nil
}

// runOCR calls cap.Recognize with a bounded timeout and applies the
// acceptance rule: text is kept only if confidence > minOCRConfidence and
// the trimmed text is non-empty. Any error, timeout, or rejected result
// yields ("", false) rather than propagating a failure.
func runOCR(ctx context.Context, capability OCRCapability, img image.Image) (string, bool) {
	ctx, cancel := context.WithTimeout(ctx, ocrTimeout)
	defer cancel()

	type outcome struct {
		res OCRResult
		err error
	}
	ch := make(chan outcome, 1)
	go func() {
		res, err := capability.Recognize(ctx, img)
		ch <- outcome{res, err}
	}()

	select {
	case <-ctx.Done():
		return "", false
	case o := <-ch:
		if o.err != nil {
			return "", false
		}
		text := strings.TrimSpace(o.res.Text)
		if o.res.Confidence <= minOCRConfidence || text == "" {
			return "", false
		}
		return text, true
	}
}
