package fbtile

import (
	"encoding/binary"
	"math/rand"
)

// geometry is an image size valid for the optimized walker of a layout.
type geometry struct {
	w, h int
}

var walkSizes = map[Layout][]geometry{
	LayoutIntelX:  {{128, 8}, {256, 16}, {384, 24}, {1024, 16}},
	LayoutIntelY:  {{32, 32}, {64, 64}, {96, 32}, {256, 64}},
	LayoutIntelYf: {{32, 32}, {64, 64}, {96, 32}, {256, 64}},
}

func randomBytes(n int, seed int64) []byte {
	r := rand.New(rand.NewSource(seed))
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(r.Intn(256))
	}
	return b
}

func filled(n int, v byte) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = v
	}
	return b
}

// indexImage returns a 4 byte per pixel image whose pixels hold their own
// index y*w+x, with stride bytes per row.
func indexImage(w, h, stride int) []byte {
	b := make([]byte, stride*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			binary.LittleEndian.PutUint32(b[y*stride+x*4:], uint32(y*w+x))
		}
	}
	return b
}

func pixelAt(b []byte, i int) uint32 {
	return binary.LittleEndian.Uint32(b[i*4:])
}

// blockWalk tiles 4x4 pixel tiles as four 2x2 blocks in Z order. Its sub-tile
// height is not a multiple of four.
func blockWalk() TileWalk {
	return TileWalk{
		BytesPerPixel: 4,
		SubTileWidth:  2,
		SubTileHeight: 2,
		TileWidth:     4,
		TileHeight:    4,
		DirChanges: []DirChange{
			{PosOffset: 2, XDelta: 2, YDelta: 0},
			{PosOffset: 4, XDelta: -2, YDelta: 2},
			{PosOffset: 8, XDelta: 2, YDelta: -2},
		},
	}
}
