package models

import "time"

// FrameSourceKind discriminates where a CapturedFrame's pixels came from.
type FrameSourceKind string

const (
	FrameSourceMonitor FrameSourceKind = "monitor"
	FrameSourceWindow  FrameSourceKind = "window"
	FrameSourceRegion  FrameSourceKind = "region"
)

// FrameSource names the specific monitor index, window id, or region a
// CapturedFrame came from.
type FrameSource struct {
	Kind  FrameSourceKind `json:"kind"`
	Index int             `json:"index,omitempty"`
	ID    string          `json:"id,omitempty"`
}

// CapturedFrame is the raw, in-memory-only capture result. It is never
// persisted in raw form; the vision pipeline derives a ProcessedFrame from
// it and discards the pixel buffer afterward (except for the retained
// previous-full-frame buffer it owns internally).
type CapturedFrame struct {
	FrameID    string
	Width      int
	Height     int
	Pix        []byte // RGBA, stride = Width*4
	CapturedAt time.Time
	Source     FrameSource
}

// ImagePayloadKind is the tier selected for a ProcessedFrame's artifact.
type ImagePayloadKind string

const (
	PayloadFull      ImagePayloadKind = "full"
	PayloadDelta     ImagePayloadKind = "delta"
	PayloadThumbnail ImagePayloadKind = "thumbnail"
	PayloadNone      ImagePayloadKind = "none"
)

// FrameState is the per-ProcessedFrame state machine position.
type FrameState string

const (
	FrameDraft      FrameState = "draft"
	FrameEncoding   FrameState = "encoding"
	FrameSanitizing FrameState = "sanitizing"
	FramePersisted  FrameState = "persisted"
	FrameUploaded   FrameState = "uploaded"
)

// ProcessedFrame is the persisted record of a captured moment. Never mutated
// after creation except by retention deletion and tag membership changes.
type ProcessedFrame struct {
	FrameID         string           `json:"frame_id"`
	Timestamp       time.Time        `json:"timestamp"`
	TriggerType     string           `json:"trigger_type"`
	AppName         string           `json:"app_name,omitempty"`
	WindowTitle     string           `json:"window_title,omitempty"`
	Importance      float64          `json:"importance"`
	ImagePayloadKind ImagePayloadKind `json:"image_payload_kind"`
	Width           int              `json:"width,omitempty"`
	Height          int              `json:"height,omitempty"`
	FilePath        string           `json:"file_path,omitempty"`
	OCRText         string           `json:"ocr_text,omitempty"`
	TagIDs          []int64          `json:"tag_ids,omitempty"`
	State           FrameState       `json:"state"`
	UploadedAt      *time.Time       `json:"uploaded_at,omitempty"`
}
