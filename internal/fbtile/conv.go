package fbtile

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rcarmo/go-fbtile/internal/logging"
)

// Converter dispatches tile and detile calls to a walker. The zero value uses
// the optimized walker. A Converter must not be copied after first use.
type Converter struct {
	// Walker selects the walker used by Convert.
	Walker Walker

	// Observe, when set, receives the Stats of every successful call. It
	// must be safe for concurrent use if the Converter is shared.
	Observe func(Stats)

	logNone    logging.OnceState
	logUnknown logging.OnceState
	logFormats logging.OnceState
}

// NewConverter returns a Converter using walker w.
func NewConverter(w Walker) *Converter {
	return &Converter{Walker: w}
}

var defaultConverter atomic.Pointer[Converter]

func init() {
	defaultConverter.Store(NewConverter(WalkerOpti))
}

// DefaultConverter returns the Converter behind the package level functions.
func DefaultConverter() *Converter {
	return defaultConverter.Load()
}

// SetDefaultWalker replaces the default Converter with one using walker w.
// It is meant to be called once while the program is configured.
func SetDefaultWalker(w Walker) {
	defaultConverter.Store(NewConverter(w))
	logging.Debug("fbtile: default walker set to %s (unrolled=%t)", w, unrolled)
}

// scaledWalks holds the built in walks rescaled to the pixel sizes the
// supported formats and their 8 and 16 bit cousins use.
var scaledWalks = func() map[Layout]map[int]TileWalk {
	out := make(map[Layout]map[int]TileWalk)
	for _, l := range Layouts() {
		tw, _ := walkFor(l)
		out[l] = make(map[int]TileWalk)
		for _, bpp := range []int{1, 2, 4} {
			if s, ok := tw.ForBytesPerPixel(bpp); ok {
				out[l][bpp] = s
			}
		}
	}
	return out
}()

// Convert tiles or detiles a w x h image between dst and src using the walk
// of layout. The tiled side must be tightly packed; the linear side may have
// a wider stride.
//
// LayoutNone returns ErrAlreadyLinear and an unknown layout ErrUnsupported;
// both are logged once at warning level and afterwards at debug level.
// The optimized walker refuses geometry it cannot handle with
// ErrInvalidGeometry before writing anything.
func (c *Converter) Convert(op Op, layout Layout, w, h int, dst []byte, dstStride int, src []byte, srcStride int, bpp int) error {
	if layout == LayoutNone {
		logging.Once(&c.logNone, logging.LevelWarn, logging.LevelDebug, "fbtile:conv:FBTILE_NONE: not (de)tiling")
		return ErrAlreadyLinear
	}
	walks, ok := scaledWalks[layout]
	if !ok {
		logging.Once(&c.logUnknown, logging.LevelWarn, logging.LevelDebug,
			"fbtile:conv: unknown layout [%s] specified, not (de)tiling", layout)
		return fmt.Errorf("%w: layout %s", ErrUnsupported, layout)
	}
	tw, ok := walks[bpp]
	if !ok {
		return fmt.Errorf("%w: %s walk has no form for %d bytes per pixel", ErrUnsupported, layout, bpp)
	}
	return c.run(op, layout, w, h, dst, dstStride, src, srcStride, &tw)
}

// ConvertWalk is Convert for a caller supplied walk. The walk is validated
// and rescaled to bpp on every call.
func (c *Converter) ConvertWalk(op Op, tw TileWalk, w, h int, dst []byte, dstStride int, src []byte, srcStride int, bpp int) error {
	if err := tw.Validate(); err != nil {
		return err
	}
	scaled, ok := tw.ForBytesPerPixel(bpp)
	if !ok {
		return fmt.Errorf("%w: walk has no form for %d bytes per pixel", ErrUnsupported, bpp)
	}
	return c.run(op, LayoutUnknown, w, h, dst, dstStride, src, srcStride, &scaled)
}

func (c *Converter) run(op Op, layout Layout, w, h int, dst []byte, dstStride int, src []byte, srcStride int, tw *TileWalk) error {
	if op != OpTile && op != OpDetile {
		return fmt.Errorf("%w: operation %s", ErrUnsupported, op)
	}
	if w <= 0 || h <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidGeometry, w, h)
	}

	start := time.Now()
	var (
		res walkResult
		err error
	)
	switch c.Walker {
	case WalkerSimple:
		res = tileSimple(op, w, h, dst, dstStride, src, srcStride, tw)
	default:
		res, err = tileOpti(op, w, h, dst, dstStride, src, srcStride, tw)
	}
	if err != nil {
		return err
	}

	if c.Observe != nil {
		c.Observe(Stats{
			Op:       op,
			Layout:   layout,
			Walker:   c.Walker,
			Unrolled: unrolled && c.Walker == WalkerOpti,
			Width:    w,
			Height:   res.height,
			Rows:     res.rows,
			Bytes:    res.bytes,
			Skipped:  res.skipped,
			Parallel: res.parallel,
			Elapsed:  time.Since(start),
		})
	}
	return nil
}

// Convert runs Convert on the default Converter.
func Convert(op Op, layout Layout, w, h int, dst []byte, dstStride int, src []byte, srcStride int, bpp int) error {
	return DefaultConverter().Convert(op, layout, w, h, dst, dstStride, src, srcStride, bpp)
}

// ConvertWalk runs ConvertWalk on the default Converter.
func ConvertWalk(op Op, tw TileWalk, w, h int, dst []byte, dstStride int, src []byte, srcStride int, bpp int) error {
	return DefaultConverter().ConvertWalk(op, tw, w, h, dst, dstStride, src, srcStride, bpp)
}
