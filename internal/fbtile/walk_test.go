package fbtile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltinWalksValid(t *testing.T) {
	for _, l := range Layouts() {
		tw, ok := WalkFor(l)
		require.True(t, ok, l.String())
		assert.NoError(t, tw.Validate(), l.String())
		assert.Equal(t, tw.DirChanges[len(tw.DirChanges)-1].PosOffset, tw.SubTileRowsPerTile(), l.String())
	}
}

func TestWalkGeometry(t *testing.T) {
	x, _ := WalkFor(LayoutIntelX)
	assert.Equal(t, 512, x.SubTileBytes())
	assert.Equal(t, 4096, x.TileBytes())
	assert.Equal(t, 1, x.SubTilesPerTile())
	assert.Equal(t, 8, x.SubTileRowsPerTile())

	y, _ := WalkFor(LayoutIntelY)
	assert.Equal(t, 16, y.SubTileBytes())
	assert.Equal(t, 4096, y.TileBytes())
	assert.Equal(t, 8, y.SubTilesPerTile())
	assert.Equal(t, 256, y.SubTileRowsPerTile())

	yf, _ := WalkFor(LayoutIntelYf)
	assert.Equal(t, 32, yf.SubTilesPerTile())
	assert.Equal(t, 256, yf.SubTileRowsPerTile())
}

func TestTileWalkValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*TileWalk)
	}{
		{"zero bpp", func(tw *TileWalk) { tw.BytesPerPixel = 0 }},
		{"negative tile", func(tw *TileWalk) { tw.TileHeight = -4 }},
		{"tile not whole sub-tiles", func(tw *TileWalk) { tw.TileWidth = 5 }},
		{"no direction changes", func(tw *TileWalk) { tw.DirChanges = nil }},
		{"last offset not tile rows", func(tw *TileWalk) { tw.DirChanges[2].PosOffset = 16 }},
		{"offsets not increasing", func(tw *TileWalk) { tw.DirChanges[1].PosOffset = 2 }},
		{"offset not multiple of sub-tile height", func(tw *TileWalk) { tw.DirChanges[0].PosOffset = 3 }},
		{"overlapping sub-tiles", func(tw *TileWalk) { tw.DirChanges[0].XDelta = 0 }},
		{"sub-tile leaves tile", func(tw *TileWalk) { tw.DirChanges[1].YDelta = 4 }},
		{"cursor not at next tile", func(tw *TileWalk) { tw.DirChanges[2].YDelta = 0 }},
	}

	require.NoError(t, blockWalk().Validate())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tw := blockWalk()
			tt.mutate(&tw)
			assert.ErrorIs(t, tw.Validate(), ErrInvalidWalk)
		})
	}
}

func TestForBytesPerPixel(t *testing.T) {
	y, _ := WalkFor(LayoutIntelY)

	same, ok := y.ForBytesPerPixel(4)
	require.True(t, ok)
	assert.Equal(t, y, same)

	half, ok := y.ForBytesPerPixel(2)
	require.True(t, ok)
	assert.Equal(t, 8, half.SubTileWidth)
	assert.Equal(t, 32, half.SubTileHeight)
	assert.Equal(t, 64, half.TileWidth)
	assert.Equal(t, 32, half.TileHeight)
	assert.Equal(t, []DirChange{{32, 8, 0}, {256, 8, 0}}, half.DirChanges)
	assert.Equal(t, y.SubTileBytes(), half.SubTileBytes())
	assert.Equal(t, y.TileBytes(), half.TileBytes())

	yf, _ := WalkFor(LayoutIntelYf)
	byteWalk, ok := yf.ForBytesPerPixel(1)
	require.True(t, ok)
	assert.Equal(t, DirChange{64, -48, 8}, byteWalk.DirChanges[3])

	_, ok = y.ForBytesPerPixel(3)
	assert.False(t, ok)
	_, ok = y.ForBytesPerPixel(0)
	assert.False(t, ok)
}

func TestWalkForReturnsCopy(t *testing.T) {
	tw, ok := WalkFor(LayoutIntelYf)
	require.True(t, ok)
	tw.DirChanges[0].XDelta = 100

	again, _ := WalkFor(LayoutIntelYf)
	assert.Equal(t, 4, again.DirChanges[0].XDelta)
	assert.NoError(t, again.Validate())
}

func TestParallelFactor(t *testing.T) {
	tests := []struct{ tiles, want int }{
		{1, 1}, {2, 2}, {3, 3}, {7, 7}, {8, 8}, {9, 3}, {10, 5}, {11, 1}, {15, 5}, {16, 8}, {60, 6},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parallelFactor(tt.tiles), "tiles %d", tt.tiles)
	}
}
