package vision

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"

	"golang.org/x/image/draw"
)

// ErrBudgetExceeded is returned by encodeWithBudget when the full
// degradation ladder (quality step-down, half-size, quarter-size) still
// produces a payload over maxBytes. Callers must treat this the same as
// any other encode failure and fall back per §4.4: Full and Thumbnail drop
// to MetadataOnly, Delta drops to Thumbnail.
var ErrBudgetExceeded = errors.New("vision: payload exceeds max_bytes at smallest tier")

// Quality presets: three discrete JPEG quality tiers rather than a
// continuous scale, matching the spec's fixed preset table.
const (
	qualityHigh   = 85
	qualityMedium = 75
	qualityLow    = 60

	maxPayloadBytes = 256 * 1024
)

// encodeJPEG encodes img as JPEG at quality, grounded on the teacher's
// EncodeJPEG (agent/internal/remote/desktop/encode.go); no WebP encoder
// exists anywhere in the corpus, so this core follows the teacher's own
// real precedent of still-frame JPEG via the standard library rather than
// introduce an ungrounded third-party codec.
func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("vision: encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// resize (called with factor 0.5 for half and 0.25 for quarter size) uses golang.org/x/image/draw's high-quality
// scaler (the pack's own resize dependency, via eequaled-waddle's go.mod)
// rather than the teacher's nearest-neighbor ScaleImageFast, since this
// core resizes at most twice per frame and correctness matters more than
// the teacher's per-frame video-streaming throughput budget.
func resize(img image.Image, factor float64) *image.RGBA {
	b := img.Bounds()
	w := max(1, int(float64(b.Dx())*factor))
	h := max(1, int(float64(b.Dy())*factor))
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}

// resizeTo scales img to exactly width x height, used for the fixed
// 480x270 Thumbnail tier.
func resizeTo(img image.Image, width, height int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Over, nil)
	return dst
}

// encodeWithBudget encodes img starting at startQuality and degrades in
// order (quality step down, then half-size, then quarter-size) until the
// payload fits under maxBytes, per §4.4 step 3. If the ladder exhausts
// without fitting, it returns the smallest attempt alongside
// ErrBudgetExceeded so the caller downgrades rather than persisting an
// oversized artifact.
func encodeWithBudget(img image.Image, startQuality int, maxBytes int) ([]byte, error) {
	qualities := degradeQualities(startQuality)

	var last []byte
	var lastErr error
	for _, scale := range []float64{1.0, 0.5, 0.25} {
		candidate := img
		if scale != 1.0 {
			candidate = resize(img, scale)
		}
		for _, q := range qualities {
			data, err := encodeJPEG(candidate, q)
			if err != nil {
				lastErr = err
				continue
			}
			last = data
			if len(data) <= maxBytes {
				return data, nil
			}
		}
	}
	if last == nil {
		return nil, lastErr
	}
	return last, ErrBudgetExceeded
}

// degradeQualities returns the preset ladder at or below startQuality, so
// a Thumbnail-tier request (qualityLow) never degrades "up" to High.
func degradeQualities(startQuality int) []int {
	switch {
	case startQuality >= qualityHigh:
		return []int{qualityHigh, qualityMedium, qualityLow}
	case startQuality >= qualityMedium:
		return []int{qualityMedium, qualityLow}
	default:
		return []int{qualityLow}
	}
}
