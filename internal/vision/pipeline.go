package vision

import (
	"context"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/vthunder/bud2/internal/clock"
	"github.com/vthunder/bud2/internal/logging"
	"github.com/vthunder/bud2/internal/models"
)

const (
	deltaChangedRatioThreshold = 0.05 // §4.4 step 2: below this, Delta downgrades to Thumbnail
	thumbnailWidth             = 480
	thumbnailHeight            = 270
)

// FramePersister is the storage dependency the pipeline hands finished
// frames to; satisfied by *storage.DB.
type FramePersister interface {
	InsertFrame(ctx context.Context, f models.ProcessedFrame, artifact []byte) error
}

// Pipeline orchestrates one capture end to end: capture, tier selection,
// encoding, delta comparison, OCR, sanitization, persistence. Grounded on
// the orchestration shape in the pack's hybrid capture pipeline
// (other_examples' eequaled-waddle pipeline.Pipeline), adapted from its
// ETW/UIA/OCR fan-out to this core's single-capturer, single-tier-per-frame
// flow.
type Pipeline struct {
	capturer ScreenCapturer
	ocr      OCRCapability
	store    FramePersister
	clock    clock.Clock

	mu          sync.Mutex
	prevFull    *image.RGBA
	frameSeq    uint64
}

// NewPipeline constructs a Pipeline. ocr may be NoOCR{} when no
// text-recognition engine is wired in.
func NewPipeline(capturer ScreenCapturer, ocr OCRCapability, store FramePersister, c clock.Clock) *Pipeline {
	if ocr == nil {
		ocr = NoOCR{}
	}
	return &Pipeline{capturer: capturer, ocr: ocr, store: store, clock: c}
}

// Reset drops the retained previous-full-frame buffer; the scheduler calls
// this on idle-enter transitions (§4.4 step 7).
func (p *Pipeline) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prevFull = nil
}

func (p *Pipeline) nextFrameID(now time.Time) string {
	p.mu.Lock()
	p.frameSeq++
	seq := p.frameSeq
	p.mu.Unlock()
	return fmt.Sprintf("frm_%d_%d", now.UnixNano(), seq)
}

// Process runs one capture-to-persistence cycle for decision against the
// given event context. privacyMode forces a MetadataOnly downgrade
// regardless of importance (§6.3 "privacy_mode").
func (p *Pipeline) Process(ctx context.Context, decision models.CaptureDecision, appName, windowTitle string, privacyMode bool) error {
	now := p.clock.Now().UTC()
	frameID := p.nextFrameID(now)

	frame := models.ProcessedFrame{
		FrameID:     frameID,
		Timestamp:   now,
		TriggerType: string(decision.Kind),
		AppName:     appName,
		WindowTitle: sanitizeText(windowTitle),
		Importance:  decision.Importance,
		State:       models.FrameDraft,
	}

	tier := selectTier(decision.Importance)
	if privacyMode {
		tier = models.PayloadNone
	}

	if tier == models.PayloadNone {
		frame.ImagePayloadKind = models.PayloadNone
		frame.State = models.FramePersisted
		return p.store.InsertFrame(ctx, frame, nil)
	}

	captured, err := captureFrame(ctx, p.capturer, frameID, now)
	if err != nil {
		logging.Warn("vision", "screen capture failed", logging.F("err", err))
		frame.ImagePayloadKind = models.PayloadNone
		frame.State = models.FramePersisted
		return p.store.InsertFrame(ctx, frame, nil)
	}

	img := &image.RGBA{Pix: captured.Pix, Stride: captured.Width * 4, Rect: image.Rect(0, 0, captured.Width, captured.Height)}

	frame.State = models.FrameEncoding
	artifact, finalTier, width, height := p.encodeTier(tier, img)
	frame.ImagePayloadKind = finalTier

	if finalTier != models.PayloadNone {
		frame.Width = width
		frame.Height = height
		frame.FilePath = frameID + ".jpg"
	}

	if finalTier == models.PayloadFull {
		if text, ok := runOCR(ctx, p.ocr, img); ok {
			frame.OCRText = sanitizeText(text)
		}
	}

	frame.State = models.FrameSanitizing
	frame.WindowTitle = sanitizeText(frame.WindowTitle)

	frame.State = models.FramePersisted
	if err := p.store.InsertFrame(ctx, frame, artifact); err != nil {
		return fmt.Errorf("vision: persist frame: %w", err)
	}

	if finalTier == models.PayloadFull {
		p.mu.Lock()
		p.prevFull = img
		p.mu.Unlock()
	}
	return nil
}

// selectTier maps an importance score to a payload tier per §4.4 step 2.
func selectTier(s float64) models.ImagePayloadKind {
	switch {
	case s >= 0.8:
		return models.PayloadFull
	case s >= 0.5:
		return models.PayloadDelta
	case s >= 0.3:
		return models.PayloadThumbnail
	default:
		return models.PayloadNone
	}
}

// encodeTier performs tier-specific encoding and may downgrade Delta to
// Thumbnail when the changed-tile ratio is too low. Returns the encoded
// artifact (nil for MetadataOnly), the tier actually used, and the
// dimensions of that artifact.
func (p *Pipeline) encodeTier(tier models.ImagePayloadKind, img *image.RGBA) ([]byte, models.ImagePayloadKind, int, int) {
	switch tier {
	case models.PayloadFull:
		data, err := encodeWithBudget(img, qualityHigh, maxPayloadBytes)
		if err != nil {
			logging.Warn("vision", "full-tier encode failed", logging.F("err", err))
			return nil, models.PayloadNone, 0, 0
		}
		b := img.Bounds()
		return data, models.PayloadFull, b.Dx(), b.Dy()

	case models.PayloadDelta:
		p.mu.Lock()
		prev := p.prevFull
		p.mu.Unlock()

		result := compareFrames(prev, img)
		if result.ChangedRatio < deltaChangedRatioThreshold {
			return p.encodeTier(models.PayloadThumbnail, img)
		}
		region := img.SubImage(result.Bounds).(*image.RGBA)
		data, err := encodeWithBudget(region, qualityMedium, maxPayloadBytes)
		if err != nil {
			logging.Warn("vision", "delta-tier encode failed", logging.F("err", err))
			return p.encodeTier(models.PayloadThumbnail, img)
		}
		rb := region.Bounds()
		return data, models.PayloadDelta, rb.Dx(), rb.Dy()

	case models.PayloadThumbnail:
		thumb := resizeTo(img, thumbnailWidth, thumbnailHeight)
		data, err := encodeWithBudget(thumb, qualityLow, maxPayloadBytes)
		if err != nil {
			logging.Warn("vision", "thumbnail encode failed", logging.F("err", err))
			return nil, models.PayloadNone, 0, 0
		}
		return data, models.PayloadThumbnail, thumbnailWidth, thumbnailHeight

	default:
		return nil, models.PayloadNone, 0, 0
	}
}
