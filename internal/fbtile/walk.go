package fbtile

import "fmt"

// DirChange moves the linear cursor by (XDelta, YDelta) pixels once the
// number of sub-tile rows consumed since the start of the walk is a multiple
// of PosOffset.
type DirChange struct {
	PosOffset int
	XDelta    int
	YDelta    int
}

// TileWalk describes one tiled layout.
//
// Sub-tile rows are SubTileWidth pixels wide and stored contiguously. A
// sub-tile is SubTileHeight such rows, each taken from consecutive linear
// lines. After every sub-tile the walker applies the last DirChange (scanning
// from the end) whose PosOffset divides the consumed row count. The final
// DirChange always has PosOffset equal to the sub-tile rows in a full tile and
// marks the tile boundary.
type TileWalk struct {
	BytesPerPixel int
	SubTileWidth  int
	SubTileHeight int
	TileWidth     int
	TileHeight    int
	DirChanges    []DirChange
}

// Intel Tile-Yf. The 4 pixel wide sub-tile order may still need checking
// against hardware docs.
var intelYfWalk = TileWalk{
	BytesPerPixel: 4,
	SubTileWidth:  4,
	SubTileHeight: 8,
	TileWidth:     32,
	TileHeight:    32,
	DirChanges: []DirChange{
		{8, 4, 0}, {16, -4, 8}, {32, 4, -8}, {64, -12, 8}, {128, 4, -24}, {256, 4, -24},
	},
}

// Intel Tile-X.
var intelXWalk = TileWalk{
	BytesPerPixel: 4,
	SubTileWidth:  128,
	SubTileHeight: 8,
	TileWidth:     128,
	TileHeight:    8,
	DirChanges: []DirChange{{8, 128, 0}},
}

// Intel Tile-Y. The reference walker alone would not need the 256 entry,
// the optimized walker uses it to find the tile boundary.
var intelYWalk = TileWalk{
	BytesPerPixel: 4,
	SubTileWidth:  4,
	SubTileHeight: 32,
	TileWidth:     32,
	TileHeight:    32,
	DirChanges: []DirChange{{32, 4, 0}, {256, 4, 0}},
}

// SubTileBytes is the size of one contiguous sub-tile row.
func (tw TileWalk) SubTileBytes() int {
	return tw.SubTileWidth * tw.BytesPerPixel
}

// TileBytes is the size of one full tile.
func (tw TileWalk) TileBytes() int {
	return tw.TileWidth * tw.TileHeight * tw.BytesPerPixel
}

// SubTilesPerTile is the number of sub-tiles in one tile.
func (tw TileWalk) SubTilesPerTile() int {
	return (tw.TileWidth * tw.TileHeight) / (tw.SubTileWidth * tw.SubTileHeight)
}

// SubTileRowsPerTile is the number of sub-tile rows in one tile, which is
// the PosOffset of the tile boundary entry.
func (tw TileWalk) SubTileRowsPerTile() int {
	return tw.SubTilesPerTile() * tw.SubTileHeight
}

// Validate checks the geometry and the direction change program.
func (tw TileWalk) Validate() error {
	if tw.BytesPerPixel <= 0 || tw.SubTileWidth <= 0 || tw.SubTileHeight <= 0 ||
		tw.TileWidth <= 0 || tw.TileHeight <= 0 {
		return fmt.Errorf("%w: non-positive geometry %+v", ErrInvalidWalk, tw)
	}
	if tw.TileWidth%tw.SubTileWidth != 0 || tw.TileHeight%tw.SubTileHeight != 0 {
		return fmt.Errorf("%w: tile %dx%d is not a whole number of %dx%d sub-tiles",
			ErrInvalidWalk, tw.TileWidth, tw.TileHeight, tw.SubTileWidth, tw.SubTileHeight)
	}
	if len(tw.DirChanges) == 0 {
		return fmt.Errorf("%w: no direction changes", ErrInvalidWalk)
	}

	last := tw.DirChanges[len(tw.DirChanges)-1].PosOffset
	if last != tw.SubTileRowsPerTile() {
		return fmt.Errorf("%w: last direction change at %d, tile has %d sub-tile rows",
			ErrInvalidWalk, last, tw.SubTileRowsPerTile())
	}

	prev := 0
	for i, dc := range tw.DirChanges {
		if dc.PosOffset <= prev {
			return fmt.Errorf("%w: direction change %d offset %d not increasing", ErrInvalidWalk, i, dc.PosOffset)
		}
		if dc.PosOffset%tw.SubTileHeight != 0 {
			return fmt.Errorf("%w: direction change %d offset %d not a multiple of sub-tile height %d",
				ErrInvalidWalk, i, dc.PosOffset, tw.SubTileHeight)
		}
		if last%dc.PosOffset != 0 {
			return fmt.Errorf("%w: direction change %d offset %d does not divide tile boundary %d",
				ErrInvalidWalk, i, dc.PosOffset, last)
		}
		prev = dc.PosOffset
	}
	return tw.checkCoverage()
}

// checkCoverage walks a single tile and verifies every pixel is visited
// exactly once and that the boundary entry leaves the cursor at the origin of
// the next tile in the row.
func (tw TileWalk) checkCoverage() error {
	seen := make([]bool, tw.TileWidth*tw.TileHeight)
	rows := tw.SubTileRowsPerTile()
	lX, lY := 0, 0
	for cSTL := 0; cSTL < rows; {
		if lX < 0 || lY < 0 || lX+tw.SubTileWidth > tw.TileWidth || lY+tw.SubTileHeight > tw.TileHeight {
			return fmt.Errorf("%w: sub-tile at (%d,%d) leaves the %dx%d tile",
				ErrInvalidWalk, lX, lY, tw.TileWidth, tw.TileHeight)
		}
		for y := lY; y < lY+tw.SubTileHeight; y++ {
			for x := lX; x < lX+tw.SubTileWidth; x++ {
				if seen[y*tw.TileWidth+x] {
					return fmt.Errorf("%w: pixel (%d,%d) visited twice", ErrInvalidWalk, x, y)
				}
				seen[y*tw.TileWidth+x] = true
			}
		}
		cSTL += tw.SubTileHeight
		for i := len(tw.DirChanges) - 1; i >= 0; i-- {
			if cSTL%tw.DirChanges[i].PosOffset == 0 {
				lX += tw.DirChanges[i].XDelta
				lY += tw.DirChanges[i].YDelta
				break
			}
		}
	}
	if lX != tw.TileWidth || lY != 0 {
		return fmt.Errorf("%w: tile ends with cursor at (%d,%d), want (%d,0)",
			ErrInvalidWalk, lX, lY, tw.TileWidth)
	}
	return nil
}

// ForBytesPerPixel returns the walk rescaled for images with bpp bytes per
// pixel, keeping every byte extent of the layout unchanged. It reports false
// when a horizontal extent is not a whole number of pixels at bpp.
func (tw TileWalk) ForBytesPerPixel(bpp int) (TileWalk, bool) {
	if bpp <= 0 {
		return TileWalk{}, false
	}
	if bpp == tw.BytesPerPixel {
		return tw, true
	}

	ok := true
	scale := func(x int) int {
		b := x * tw.BytesPerPixel
		if b%bpp != 0 {
			ok = false
			return 0
		}
		return b / bpp
	}

	out := TileWalk{
		BytesPerPixel: bpp,
		SubTileWidth:  scale(tw.SubTileWidth),
		SubTileHeight: tw.SubTileHeight,
		TileWidth:     scale(tw.TileWidth),
		TileHeight:    tw.TileHeight,
		DirChanges:    make([]DirChange, len(tw.DirChanges)),
	}
	for i, dc := range tw.DirChanges {
		out.DirChanges[i] = DirChange{PosOffset: dc.PosOffset, XDelta: scale(dc.XDelta), YDelta: dc.YDelta}
	}
	if !ok || out.Validate() != nil {
		return TileWalk{}, false
	}
	return out, true
}

func (tw TileWalk) clone() TileWalk {
	out := tw
	out.DirChanges = append([]DirChange(nil), tw.DirChanges...)
	return out
}
