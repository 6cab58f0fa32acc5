package fbtile

import "github.com/rcarmo/go-fbtile/internal/logging"

// walkResult summarises one walker call.
type walkResult struct {
	rows     int // sub-tile rows copied
	bytes    int
	skipped  int // sub-tile rows dropped for falling outside a buffer
	parallel int
	height   int // rows actually processed
}

// runCopier moves sub-tile rows between the tiled and the linear buffer in
// the direction selected by the operation.
type runCopier struct {
	tile      bool
	tld, lin  []byte
	linStride int
	run       int
}

// newRunCopier assigns the tiled and linear roles: tiling reads the linear
// src and writes the tiled dst, detiling the reverse. It also returns the
// stride of the tiled side.
func newRunCopier(op Op, dst []byte, dstStride int, src []byte, srcStride int, run int) (*runCopier, int) {
	if op == OpTile {
		return &runCopier{tile: true, tld: dst, lin: src, linStride: srcStride, run: run}, dstStride
	}
	return &runCopier{tile: false, tld: src, lin: dst, linStride: dstStride, run: run}, srcStride
}

func (c *runCopier) copy(tO, lO int) {
	if c.tile {
		copy(c.tld[tO:tO+c.run], c.lin[lO:lO+c.run])
	} else {
		copy(c.lin[lO:lO+c.run], c.tld[tO:tO+c.run])
	}
}

// copyChecked copies one run if both ends lie inside their buffers.
func (c *runCopier) copyChecked(tO, lO int) bool {
	if tO < 0 || lO < 0 || tO+c.run > len(c.tld) || lO+c.run > len(c.lin) {
		return false
	}
	c.copy(tO, lO)
	return true
}

var logSimpleSkip logging.OnceState

// tileSimple is the reference walker. It follows the walk one sub-tile at a
// time and never refuses: geometry problems are logged and the walk carries on,
// dropping any run that would fall outside a buffer.
func tileSimple(op Op, w, h int, dst []byte, dstStride int, src []byte, srcStride int, tw *TileWalk) walkResult {
	bpp := tw.BytesPerPixel
	run := tw.SubTileBytes()
	c, tldStride := newRunCopier(op, dst, dstStride, src, srcStride, run)

	if w*bpp != tldStride {
		logging.Error("fbtile:genericsimp: w%dxh%d, tldLineSize%d, linLineSize%d", w, h, tldStride, c.linStride)
		logging.Error("fbtile:genericsimp: dont support tldLineSize | Pitch going beyond width")
	}
	if c.linStride < w*bpp {
		logging.Error("fbtile:genericsimp: linLineSize%d narrower than width %d x bpp %d", c.linStride, w, bpp)
	}
	if w%tw.TileWidth != 0 {
		logging.Warn("fbtile:genericsimp: width%d not a multiple of tileWidth%d", w, tw.TileWidth)
	}
	if (w*h)%tw.SubTileWidth != 0 {
		logging.Warn("fbtile:genericsimp: w%dxh%d not a whole number of %d pixel sub-tile lines", w, h, tw.SubTileWidth)
	}

	res := walkResult{parallel: 1, height: h}
	last := len(tw.DirChanges) - 1
	nSTLines := (w * h) / tw.SubTileWidth
	tO, lX, lY, cSTL := 0, 0, 0, 0
	for cSTL < nSTLines {
		lO := lY*c.linStride + lX*bpp
		for k := 0; k < tw.SubTileHeight; k++ {
			if c.copyChecked(tO+k*run, lO+k*c.linStride) {
				res.rows++
			} else {
				res.skipped++
			}
		}
		tO += tw.SubTileHeight * run

		cSTL += tw.SubTileHeight
		for i := last; i >= 0; i-- {
			if cSTL%tw.DirChanges[i].PosOffset == 0 {
				lX += tw.DirChanges[i].XDelta
				lY += tw.DirChanges[i].YDelta
				break
			}
		}
		if lX >= w {
			lX = 0
			lY += tw.TileHeight
		}
	}

	if res.skipped > 0 {
		logging.Once(&logSimpleSkip, logging.LevelWarn, logging.LevelDebug,
			"fbtile:genericsimp: w%dxh%d: %d sub-tile rows fell outside the buffers and were skipped", w, h, res.skipped)
	}
	res.bytes = res.rows * run
	return res
}
