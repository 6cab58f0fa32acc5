package fbtile

import (
	"bytes"
	"fmt"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var walkers = []Walker{WalkerOpti, WalkerSimple}

func TestRoundTrip(t *testing.T) {
	fills := map[string]func(n int) []byte{
		"zeros":  func(n int) []byte { return make([]byte, n) },
		"ones":   func(n int) []byte { return filled(n, 0xff) },
		"random": func(n int) []byte { return randomBytes(n, int64(n)) },
	}

	for _, layout := range Layouts() {
		for _, g := range walkSizes[layout] {
			for _, walker := range walkers {
				for name, fill := range fills {
					t.Run(fmt.Sprintf("%s/%dx%d/%s/%s", layout, g.w, g.h, walker, name), func(t *testing.T) {
						conv := NewConverter(walker)
						stride := g.w * 4
						linear := fill(stride * g.h)
						tiled := make([]byte, len(linear))
						back := make([]byte, len(linear))

						require.NoError(t, conv.Convert(OpTile, layout, g.w, g.h, tiled, stride, linear, stride, 4))
						require.NoError(t, conv.Convert(OpDetile, layout, g.w, g.h, back, stride, tiled, stride, 4))
						assert.True(t, bytes.Equal(linear, back))
					})
				}
			}
		}
	}
}

func TestDetileIsBijection(t *testing.T) {
	for _, layout := range Layouts() {
		for _, g := range walkSizes[layout] {
			for _, walker := range walkers {
				t.Run(fmt.Sprintf("%s/%dx%d/%s", layout, g.w, g.h, walker), func(t *testing.T) {
					stride := g.w * 4
					tiled := indexImage(g.w, g.h, stride)
					linear := filled(len(tiled), 0xee)

					require.NoError(t, NewConverter(walker).Convert(OpDetile, layout, g.w, g.h, linear, stride, tiled, stride, 4))

					n := g.w * g.h
					got := make([]int, n)
					for i := 0; i < n; i++ {
						got[i] = int(pixelAt(linear, i))
					}
					sort.Ints(got)
					for i := 0; i < n; i++ {
						if got[i] != i {
							t.Fatalf("tiled pixel %d missing or duplicated in linear image", i)
						}
					}
				})
			}
		}
	}
}

func TestWalkersAgree(t *testing.T) {
	for _, layout := range Layouts() {
		for _, g := range walkSizes[layout] {
			for _, pad := range []int{0, 64} {
				for _, op := range []Op{OpTile, OpDetile} {
					t.Run(fmt.Sprintf("%s/%dx%d/pad%d/%s", layout, g.w, g.h, pad, op), func(t *testing.T) {
						tldStride := g.w * 4
						linStride := tldStride + pad
						dstStride, srcStride := tldStride, linStride
						if op == OpDetile {
							dstStride, srcStride = linStride, tldStride
						}
						src := randomBytes(srcStride*g.h, 7)
						simple := filled(dstStride*g.h, 0x5a)
						opti := filled(dstStride*g.h, 0x5a)

						require.NoError(t, NewConverter(WalkerSimple).Convert(op, layout, g.w, g.h, simple, dstStride, src, srcStride, 4))
						require.NoError(t, NewConverter(WalkerOpti).Convert(op, layout, g.w, g.h, opti, dstStride, src, srcStride, 4))
						assert.True(t, bytes.Equal(simple, opti))
					})
				}
			}
		}
	}
}

func TestTileXScenario(t *testing.T) {
	const w, h = 256, 16
	stride := w * 4
	linear := make([]byte, stride*h)
	for i := range linear {
		linear[i] = byte(i*7 + i/251)
	}
	tiled := make([]byte, w*h*4)

	require.NoError(t, Convert(OpTile, LayoutIntelX, w, h, tiled, stride, linear, stride, 4))
	assert.Len(t, tiled, 256*16*4)

	// First tile holds the left 128 pixels of rows 0..7, the second the
	// right half of the same rows.
	assert.Equal(t, linear[0:512], tiled[0:512])
	assert.Equal(t, linear[stride:stride+512], tiled[512:1024])
	assert.Equal(t, linear[512:1024], tiled[4096:4608])
	assert.Equal(t, linear[8*stride:8*stride+512], tiled[8192:8704])

	back := make([]byte, len(linear))
	require.NoError(t, Convert(OpDetile, LayoutIntelX, w, h, back, stride, tiled, stride, 4))
	assert.Equal(t, linear, back)
}

func TestTileYfScenario(t *testing.T) {
	const w, h = 32, 32
	stride := w * 4
	linear := make([]byte, stride*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			o := y*stride + x*4
			linear[o], linear[o+1], linear[o+2], linear[o+3] = byte(x), byte(y), 0, 0xff
		}
	}

	for _, walker := range walkers {
		t.Run(walker.String(), func(t *testing.T) {
			conv := NewConverter(walker)
			tiled := make([]byte, len(linear))
			require.NoError(t, conv.Convert(OpTile, LayoutIntelYf, w, h, tiled, stride, linear, stride, 4))
			assert.NotEqual(t, linear, tiled)

			// Sub-tile rows are 4 pixels; the second sub-tile starts at (4,0)
			// and the third at (0,8).
			assert.Equal(t, []byte{0, 1, 0, 0xff}, tiled[16:20])
			assert.Equal(t, []byte{4, 0, 0, 0xff}, tiled[128:132])
			assert.Equal(t, []byte{0, 8, 0, 0xff}, tiled[256:260])

			back := make([]byte, len(linear))
			require.NoError(t, conv.Convert(OpDetile, LayoutIntelYf, w, h, back, stride, tiled, stride, 4))
			for y := 0; y < h; y++ {
				for x := 0; x < w; x++ {
					o := y*stride + x*4
					if back[o] != byte(x) || back[o+1] != byte(y) {
						t.Fatalf("pixel (%d,%d) decoded as (%d,%d)", x, y, back[o], back[o+1])
					}
				}
			}
		})
	}
}

func TestOptiRejectsPartialTileWidth(t *testing.T) {
	const w, h = 100, 32
	stride := w * 4
	src := randomBytes(stride*h, 3)
	dst := filled(stride*h, 0xaa)

	err := NewConverter(WalkerOpti).Convert(OpTile, LayoutIntelY, w, h, dst, stride, src, stride, 4)
	require.ErrorIs(t, err, ErrInvalidGeometry)
	assert.Equal(t, StatusInvalidGeometry, StatusOf(err))
	assert.Equal(t, filled(stride*h, 0xaa), dst)

	err = NewConverter(WalkerOpti).Convert(OpDetile, LayoutIntelY, w, h, dst, stride, src, stride, 4)
	require.ErrorIs(t, err, ErrInvalidGeometry)
	assert.Equal(t, filled(stride*h, 0xaa), dst)
}

func TestOptiRejectsBadStrides(t *testing.T) {
	const w, h = 64, 32
	conv := NewConverter(WalkerOpti)
	buf := make([]byte, 512*h)

	// tiled side with padding
	err := conv.Convert(OpTile, LayoutIntelY, w, h, buf, 512, buf, 256, 4)
	assert.ErrorIs(t, err, ErrInvalidGeometry)

	// linear side narrower than a row
	err = conv.Convert(OpDetile, LayoutIntelY, w, h, buf, 128, buf, 256, 4)
	assert.ErrorIs(t, err, ErrInvalidGeometry)

	// buffers too small
	err = conv.Convert(OpDetile, LayoutIntelY, w, h, make([]byte, 256*h), 256, make([]byte, 100), 256, 4)
	assert.ErrorIs(t, err, ErrInvalidGeometry)
	err = conv.Convert(OpDetile, LayoutIntelY, w, h, make([]byte, 100), 256, make([]byte, 256*h), 256, 4)
	assert.ErrorIs(t, err, ErrInvalidGeometry)
}

func TestSimpleToleratesBadGeometry(t *testing.T) {
	const w, h = 100, 30
	stride := w * 4
	src := randomBytes(stride*h, 5)
	dst := make([]byte, stride*h)

	var got Stats
	conv := NewConverter(WalkerSimple)
	conv.Observe = func(s Stats) { got = s }

	assert.NotPanics(t, func() {
		require.NoError(t, conv.Convert(OpDetile, LayoutIntelY, w, h, dst, stride, src, stride, 4))
	})
	assert.Positive(t, got.Skipped)

	// A too short destination is never written out of range either.
	assert.NotPanics(t, func() {
		require.NoError(t, conv.Convert(OpDetile, LayoutIntelX, 128, 8, make([]byte, 10), 512, src, 512, 4))
	})
}

func TestOptiClampsHeight(t *testing.T) {
	const w, h = 64, 40
	stride := w * 4
	tiled := randomBytes(stride*h, 11)

	for _, layout := range []Layout{LayoutIntelY, LayoutIntelYf} {
		t.Run(layout.String(), func(t *testing.T) {
			linear := filled(stride*h, 0xaa)
			var got Stats
			conv := NewConverter(WalkerOpti)
			conv.Observe = func(s Stats) { got = s }

			require.NoError(t, conv.Convert(OpDetile, layout, w, h, linear, stride, tiled, stride, 4))
			assert.Equal(t, 32, got.Height)
			assert.Equal(t, filled(8*stride, 0xaa), linear[32*stride:])

			// The processed rows match a conversion of the clamped image.
			want := make([]byte, 32*stride)
			require.NoError(t, conv.Convert(OpDetile, layout, w, 32, want, stride, tiled[:32*stride], stride, 4))
			assert.Equal(t, want, linear[:32*stride])
		})
	}
}

func TestConvertRejectsNonTiledLayouts(t *testing.T) {
	buf := make([]byte, 128*8*4)

	err := Convert(OpTile, LayoutNone, 128, 8, buf, 512, buf, 512, 4)
	assert.ErrorIs(t, err, ErrAlreadyLinear)
	assert.ErrorIs(t, err, ErrUnsupported)
	assert.Equal(t, StatusUnsupported, StatusOf(err))

	err = Convert(OpTile, LayoutUnknown, 128, 8, buf, 512, buf, 512, 4)
	assert.ErrorIs(t, err, ErrUnsupported)
	assert.NotErrorIs(t, err, ErrAlreadyLinear)

	err = Convert(OpTile, Layout(42), 128, 8, buf, 512, buf, 512, 4)
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestConvertRejectsBadArguments(t *testing.T) {
	buf := make([]byte, 128*8*4)

	assert.ErrorIs(t, Convert(OpNone, LayoutIntelX, 128, 8, buf, 512, buf, 512, 4), ErrUnsupported)
	assert.ErrorIs(t, Convert(OpTile, LayoutIntelX, 128, 8, buf, 384, buf, 384, 3), ErrUnsupported)
	assert.ErrorIs(t, Convert(OpTile, LayoutIntelX, 0, 8, buf, 512, buf, 512, 4), ErrInvalidGeometry)
	assert.ErrorIs(t, Convert(OpTile, LayoutIntelX, 128, -1, buf, 512, buf, 512, 4), ErrInvalidGeometry)
}

func TestConvertSixteenBit(t *testing.T) {
	// At 2 bytes per pixel Tile-Y tiles are 64 pixels wide.
	const w, h = 128, 64
	stride := w * 2
	linear := randomBytes(stride*h, 13)

	for _, walker := range walkers {
		conv := NewConverter(walker)
		tiled := make([]byte, len(linear))
		back := make([]byte, len(linear))
		require.NoError(t, conv.Convert(OpTile, LayoutIntelY, w, h, tiled, stride, linear, stride, 2))
		require.NoError(t, conv.Convert(OpDetile, LayoutIntelY, w, h, back, stride, tiled, stride, 2))
		assert.Equal(t, linear, back, walker.String())

		// Byte placement matches the 4 byte walk over half as many pixels.
		tiled4 := make([]byte, len(linear))
		require.NoError(t, conv.Convert(OpTile, LayoutIntelY, w/2, h, tiled4, stride, linear, stride, 4))
		assert.Equal(t, tiled4, tiled, walker.String())
	}
}

func TestConvertWalk(t *testing.T) {
	const w, h = 8, 8
	stride := w * 4
	linear := indexImage(w, h, stride)

	for _, walker := range walkers {
		t.Run(walker.String(), func(t *testing.T) {
			conv := NewConverter(walker)
			tiled := make([]byte, len(linear))
			require.NoError(t, conv.ConvertWalk(OpTile, blockWalk(), w, h, tiled, stride, linear, stride, 4))

			// 2x2 blocks in Z order inside each 4x4 tile.
			want := []uint32{0, 1, 8, 9, 2, 3, 10, 11, 16, 17, 24, 25, 18, 19, 26, 27, 4, 5, 12, 13}
			for i, v := range want {
				assert.Equal(t, v, pixelAt(tiled, i), "tiled pixel %d", i)
			}

			back := make([]byte, len(linear))
			require.NoError(t, conv.ConvertWalk(OpDetile, blockWalk(), w, h, back, stride, tiled, stride, 4))
			assert.Equal(t, linear, back)
		})
	}

	broken := blockWalk()
	broken.DirChanges[0].XDelta = 0
	err := ConvertWalk(OpTile, broken, w, h, make([]byte, len(linear)), stride, linear, stride, 4)
	assert.ErrorIs(t, err, ErrInvalidWalk)
}

func TestObserveStats(t *testing.T) {
	const w, h = 64, 64
	stride := w * 4
	src := randomBytes(stride*h, 17)
	dst := make([]byte, len(src))

	var got []Stats
	conv := NewConverter(WalkerOpti)
	conv.Observe = func(s Stats) { got = append(got, s) }

	require.NoError(t, conv.Convert(OpTile, LayoutIntelY, w, h, dst, stride, src, stride, 4))
	require.Len(t, got, 1)
	s := got[0]
	assert.Equal(t, OpTile, s.Op)
	assert.Equal(t, LayoutIntelY, s.Layout)
	assert.Equal(t, WalkerOpti, s.Walker)
	assert.Equal(t, unrolled, s.Unrolled)
	assert.Equal(t, w*h*4, s.Bytes)
	assert.Equal(t, w*h*4/16, s.Rows)
	assert.Equal(t, 2, s.Parallel)
	assert.Equal(t, h, s.Height)
	assert.Zero(t, s.Skipped)

	// Refused calls are not observed.
	_ = conv.Convert(OpTile, LayoutIntelY, 100, h, dst, 400, src, 400, 4)
	assert.Len(t, got, 1)
}

func TestDefaultWalker(t *testing.T) {
	defer SetDefaultWalker(WalkerOpti)

	assert.Equal(t, WalkerOpti, DefaultConverter().Walker)
	SetDefaultWalker(WalkerSimple)
	assert.Equal(t, WalkerSimple, DefaultConverter().Walker)

	// The reference walker accepts what the optimized one refuses.
	buf := make([]byte, 100*32*4)
	assert.NoError(t, Convert(OpTile, LayoutIntelY, 100, 32, make([]byte, len(buf)), 400, buf, 400, 4))
}

func TestStatusOf(t *testing.T) {
	assert.Equal(t, StatusOK, StatusOf(nil))
	assert.Equal(t, StatusUnsupported, StatusOf(ErrAlreadyLinear))
	assert.Equal(t, StatusUnsupported, StatusOf(fmt.Errorf("wrapped: %w", ErrUnsupported)))
	assert.Equal(t, StatusInvalidGeometry, StatusOf(ErrInvalidGeometry))
	assert.Equal(t, "INVALID_GEOMETRY", StatusInvalidGeometry.String())
	assert.Equal(t, "Status(9)", Status(9).String())
}
