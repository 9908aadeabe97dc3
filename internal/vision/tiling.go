package vision

import (
	"hash/crc32"
	"image"
)

const (
	tileSize       = 16
	tileDiffThresh = 30 // per-channel absolute difference sum threshold
)

// tileDelta is the result of comparing one 16x16 tile between two frames.
type tileDelta struct {
	changed bool
}

// deltaResult summarizes a full-frame tile comparison.
type deltaResult struct {
	ChangedRatio float64
	Bounds       image.Rectangle // bounding box over changed tiles, expanded to the 16px grid
	AnyChanged   bool
}

// compareFrames performs the 16x16 tile-by-tile delta comparison between
// curr and prev. A whole-frame CRC32 check, grounded on the teacher's
// frame_diff.go frameDiffer.HasChanged, first short-circuits identical
// frames; otherwise each tile is compared by its summed per-channel pixel
// difference, so the bounding region of change can be recovered for the
// Delta payload tier.
func compareFrames(prev, curr *image.RGBA) deltaResult {
	b := curr.Bounds()
	w, h := b.Dx(), b.Dy()

	cols := (w + tileSize - 1) / tileSize
	rows := (h + tileSize - 1) / tileSize
	total := cols * rows
	if total == 0 {
		return deltaResult{}
	}

	if prev != nil && prev.Bounds().Eq(b) && frameChecksum(prev) == frameChecksum(curr) {
		return deltaResult{ChangedRatio: 0, AnyChanged: false}
	}

	minX, minY := w, h
	maxX, maxY := 0, 0
	changedTiles := 0

	for ty := 0; ty < rows; ty++ {
		for tx := 0; tx < cols; tx++ {
			x0 := tx * tileSize
			y0 := ty * tileSize
			x1 := min(x0+tileSize, w)
			y1 := min(y0+tileSize, h)

			if tileChanged(prev, curr, x0, y0, x1, y1) {
				changedTiles++
				if x0 < minX {
					minX = x0
				}
				if y0 < minY {
					minY = y0
				}
				if x1 > maxX {
					maxX = x1
				}
				if y1 > maxY {
					maxY = y1
				}
			}
		}
	}

	res := deltaResult{
		ChangedRatio: float64(changedTiles) / float64(total),
		AnyChanged:   changedTiles > 0,
	}
	if res.AnyChanged {
		res.Bounds = expandToGrid(image.Rect(minX, minY, maxX, maxY), w, h)
	}
	return res
}

// tileChanged sums per-channel absolute RGB differences across the tile; if
// prev is nil (no previous full frame retained) every tile is changed.
func tileChanged(prev, curr *image.RGBA, x0, y0, x1, y1 int) bool {
	if prev == nil {
		return true
	}
	pb, cb := prev.Bounds(), curr.Bounds()
	if !pb.Eq(cb) {
		return true
	}

	var sum int
	for y := y0; y < y1; y++ {
		pRow := (y - pb.Min.Y) * prev.Stride
		cRow := (y - cb.Min.Y) * curr.Stride
		for x := x0; x < x1; x++ {
			pi := pRow + (x-pb.Min.X)*4
			ci := cRow + (x-cb.Min.X)*4
			sum += absDiff(prev.Pix[pi], curr.Pix[ci])
			sum += absDiff(prev.Pix[pi+1], curr.Pix[ci+1])
			sum += absDiff(prev.Pix[pi+2], curr.Pix[ci+2])
			if sum > tileDiffThresh {
				return true
			}
		}
	}
	return false
}

func absDiff(a, b byte) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}

// expandToGrid expands r to the nearest enclosing 16px grid, clamped to
// [0,w)x[0,h).
func expandToGrid(r image.Rectangle, w, h int) image.Rectangle {
	minX := (r.Min.X / tileSize) * tileSize
	minY := (r.Min.Y / tileSize) * tileSize
	maxX := ((r.Max.X + tileSize - 1) / tileSize) * tileSize
	maxY := ((r.Max.Y + tileSize - 1) / tileSize) * tileSize
	if maxX > w {
		maxX = w
	}
	if maxY > h {
		maxY = h
	}
	return image.Rect(minX, minY, maxX, maxY)
}

// frameChecksum computes a whole-frame CRC32, matching the teacher's
// frameDiffer.HasChanged technique; used as a cheap prefilter before the
// more expensive tile-by-tile comparison (identical checksums imply zero
// changed tiles without touching every pixel).
func frameChecksum(f *image.RGBA) uint32 {
	return crc32.ChecksumIEEE(f.Pix)
}
