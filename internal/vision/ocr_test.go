package vision

import (
	"context"
	"errors"
	"image"
	"testing"
	"time"
)

type fakeOCR struct {
	res   OCRResult
	err   error
	delay time.Duration
}

func (f fakeOCR) Recognize(ctx context.Context, img image.Image) (OCRResult, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return OCRResult{}, ctx.Err()
		}
	}
	return f.res, f.err
}

func TestRunOCR_NoOCRAlwaysRejected(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 1, 1))
	text, ok := runOCR(context.Background(), NoOCR{}, img)
	if ok || text != "" {
		t.Fatalf("expected NoOCR to always be rejected, got %q, %v", text, ok)
	}
}

func TestRunOCR_AcceptsConfidentNonEmptyText(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 1, 1))
	text, ok := runOCR(context.Background(), fakeOCR{res: OCRResult{Text: "  hello world  ", Confidence: 0.9}}, img)
	if !ok || text != "hello world" {
		t.Fatalf("expected trimmed accepted text, got %q, %v", text, ok)
	}
}

func TestRunOCR_RejectsLowConfidence(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 1, 1))
	_, ok := runOCR(context.Background(), fakeOCR{res: OCRResult{Text: "hello", Confidence: 0.1}}, img)
	if ok {
		t.Fatal("expected low confidence result to be rejected")
	}
}

func TestRunOCR_RejectsEmptyText(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 1, 1))
	_, ok := runOCR(context.Background(), fakeOCR{res: OCRResult{Text: "   ", Confidence: 0.9}}, img)
	if ok {
		t.Fatal("expected whitespace-only text to be rejected")
	}
}

func TestRunOCR_RejectsOnError(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 1, 1))
	_, ok := runOCR(context.Background(), fakeOCR{err: errors.New("engine unavailable")}, img)
	if ok {
		t.Fatal("expected engine error to be rejected")
	}
}

func TestRunOCR_TimesOutSlowEngine(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 1, 1))
	_, ok := runOCR(context.Background(), fakeOCR{res: OCRResult{Text: "late", Confidence: 0.9}, delay: 3 * time.Second}, img)
	if ok {
		t.Fatal("expected slow OCR to time out and be discarded")
	}
}
