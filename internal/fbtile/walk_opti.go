package fbtile

import (
	"fmt"

	"github.com/rcarmo/go-fbtile/internal/logging"
)

// maxParallel caps how many same-row tiles the optimized walker advances
// together.
const maxParallel = 8

// parallelFactor returns the largest divisor of tilesInRow not above
// maxParallel.
func parallelFactor(tilesInRow int) int {
	for p := maxParallel; p > 1; p-- {
		if tilesInRow%p == 0 {
			return p
		}
	}
	return 1
}

// tileOpti is the optimized walker. It walks up to parallelFactor tiles of a
// tile row in lock step and jumps over the batch at every tile boundary.
// All preconditions are checked before anything is written. Rows below the
// last whole tile row are not touched.
func tileOpti(op Op, w, h int, dst []byte, dstStride int, src []byte, srcStride int, tw *TileWalk) (walkResult, error) {
	bpp := tw.BytesPerPixel
	run := tw.SubTileBytes()
	rowBytes := w * bpp
	c, tldStride := newRunCopier(op, dst, dstStride, src, srcStride, run)

	if tldStride != rowBytes {
		logging.Error("fbtile:genericopti: w%dxh%d, linLineSize%d, tldLineSize%d", w, h, c.linStride, tldStride)
		return walkResult{}, fmt.Errorf("%w: tiled stride %d, want %d (no pitch beyond width)",
			ErrInvalidGeometry, tldStride, rowBytes)
	}
	if w%tw.TileWidth != 0 {
		logging.Error("fbtile:genericopti:NotSupported:Width being non-mult Of TileWidth: width%d, tileWidth%d", w, tw.TileWidth)
		return walkResult{}, fmt.Errorf("%w: width %d not a multiple of tile width %d",
			ErrInvalidGeometry, w, tw.TileWidth)
	}
	if c.linStride < rowBytes {
		logging.Error("fbtile:genericopti: linLineSize%d narrower than width %d x bpp %d", c.linStride, w, bpp)
		return walkResult{}, fmt.Errorf("%w: linear stride %d narrower than %d",
			ErrInvalidGeometry, c.linStride, rowBytes)
	}

	tH := h
	if h%tw.TileHeight != 0 {
		tH = (h / tw.TileHeight) * tw.TileHeight
		logging.Info("fbtile:genericopti:Limiting height [%d] to be a multiple of tileHeight [%d], new height[%d]",
			h, tw.TileHeight, tH)
	}
	if tH > 0 {
		if need := tH * rowBytes; len(c.tld) < need {
			return walkResult{}, fmt.Errorf("%w: tiled buffer %d bytes, need %d", ErrInvalidGeometry, len(c.tld), need)
		}
		if need := (tH-1)*c.linStride + rowBytes; len(c.lin) < need {
			return walkResult{}, fmt.Errorf("%w: linear buffer %d bytes, need %d", ErrInvalidGeometry, len(c.lin), need)
		}
	}

	parallel := parallelFactor(w / tw.TileWidth)
	tileBytes := tw.TileBytes()
	tileRowBytes := tw.TileWidth * bpp
	rowsPerTile := tw.SubTileRowsPerTile()
	last := len(tw.DirChanges) - 1

	res := walkResult{parallel: parallel, height: tH}
	nSTLines := (w * tH) / tw.SubTileWidth
	tO, tOPrev := 0, 0
	lX, lY := 0, 0
	cSTL, cSTLPrev := 0, 0
	curTileInRow := 0
	for cSTL < nSTLines {
		lO := lY*c.linStride + lX*bpp
		c.batch(tO, lO, tw.SubTileHeight, parallel, tileBytes, tileRowBytes)
		res.rows += tw.SubTileHeight * parallel

		tO += tw.SubTileHeight * run
		cSTL += tw.SubTileHeight
		for i := last; i >= 0; i-- {
			dc := tw.DirChanges[i]
			if cSTL%dc.PosOffset != 0 {
				continue
			}
			if i == last {
				curTileInRow += parallel
				lX = curTileInRow * tw.TileWidth
				tO = tOPrev + tileBytes*parallel
				cSTL = cSTLPrev + rowsPerTile*parallel
				tOPrev = tO
				cSTLPrev = cSTL
			} else {
				lX += dc.XDelta
			}
			lY += dc.YDelta
			break
		}
		if lX >= w {
			lX = 0
			curTileInRow = 0
			lY += tw.TileHeight
			if lY >= tH {
				break
			}
		}
	}

	res.bytes = res.rows * run
	return res, nil
}

// batchRolled copies sth sub-tile rows for each of parallel tiles.
func (c *runCopier) batchRolled(tO, lO, sth, parallel, tileBytes, tileRowBytes int) {
	for k := 0; k < sth; k++ {
		tk := tO + k*c.run
		lk := lO + k*c.linStride
		for p := 0; p < parallel; p++ {
			c.copy(tk+p*tileBytes, lk+p*tileRowBytes)
		}
	}
}
