// Package filter provides the tile and detile frame processing node used by
// the conversion service and the command line tools.
package filter

import (
	"context"
	"errors"
	"fmt"

	"github.com/rcarmo/go-fbtile/internal/drm"
	"github.com/rcarmo/go-fbtile/internal/fbtile"
	"github.com/rcarmo/go-fbtile/internal/logging"
)

// Errors
var (
	ErrInvalidOptions = errors.New("filter: invalid options")
	ErrClosed         = errors.New("filter: closed")
)

// Default link size used until Configure is called or the first frame
// arrives.
const (
	DefaultWidth  = 1920
	DefaultHeight = 1080
)

// Options selects what a Tiler does with each frame.
type Options struct {
	Layout fbtile.Layout
	Op     fbtile.Op
	// Auto takes the tiled layout of each input frame from its DRM format
	// modifier. Only valid for detiling.
	Auto    bool
	Walker  fbtile.Walker
	Workers int
}

// Tiler converts frames between a tiled layout and linear layout.
type Tiler struct {
	opts       Options
	conv       *fbtile.Converter
	perf       fbtile.Perf
	width      int
	height     int
	configured bool
	closed     bool
}

// New validates opts and returns a Tiler.
func New(opts Options) (*Tiler, error) {
	switch opts.Op {
	case fbtile.OpNone, fbtile.OpTile, fbtile.OpDetile:
	default:
		return nil, fmt.Errorf("%w: operation %s", ErrInvalidOptions, opts.Op)
	}
	if opts.Auto && opts.Op != fbtile.OpDetile {
		return nil, fmt.Errorf("%w: auto layout only applies to detiling", ErrInvalidOptions)
	}
	if !opts.Auto && (opts.Layout < fbtile.LayoutNone || opts.Layout >= fbtile.LayoutUnknown) {
		return nil, fmt.Errorf("%w: layout %s", ErrInvalidOptions, opts.Layout)
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}

	t := &Tiler{
		opts:   opts,
		conv:   fbtile.NewConverter(opts.Walker),
		width:  DefaultWidth,
		height: DefaultHeight,
	}
	t.conv.Observe = t.perf.Observe

	switch {
	case opts.Op == fbtile.OpNone || (!opts.Auto && opts.Layout == fbtile.LayoutNone):
		logging.Info("filter:init: wont %s, pass through", t.verb())
	case opts.Auto:
		logging.Info("filter:init: layout from format modifier to linear")
	case opts.Op == fbtile.OpDetile:
		logging.Info("filter:init: %s to linear", opts.Layout.Description())
	default:
		logging.Info("filter:init: linear to %s", opts.Layout.Description())
	}
	return t, nil
}

func (t *Tiler) verb() string {
	if t.opts.Op == fbtile.OpTile {
		return "tile"
	}
	return "detile"
}

// Options returns the options the Tiler was created with.
func (t *Tiler) Options() Options {
	return t.opts
}

// Formats lists the pixel formats the Tiler converts. Other formats are
// copied through unchanged.
func (t *Tiler) Formats() []fbtile.PixelFormat {
	return fbtile.SupportedPixelFormats()
}

// Configure sets the frame size of the link.
func (t *Tiler) Configure(w, h int) error {
	if w <= 0 || h <= 0 {
		return fmt.Errorf("%w: frame size %dx%d", ErrInvalidOptions, w, h)
	}
	t.width, t.height = w, h
	t.configured = true
	logging.Info("filter:config_props: %d x %d", w, h)
	return nil
}

// Size returns the frame size of the link and whether it was configured.
func (t *Tiler) Size() (w, h int, configured bool) {
	return t.width, t.height, t.configured
}

// Process converts one frame. Pass-through configurations return in itself.
// Otherwise a new frame of the configured size is returned; if the link was
// never configured, the first frame's size is used.
func (t *Tiler) Process(ctx context.Context, in *fbtile.Frame) (*fbtile.Frame, fbtile.FrameCopyStatus, error) {
	if t.closed {
		return nil, fbtile.FrameCopyPlain, ErrClosed
	}
	if in == nil {
		return nil, fbtile.FrameCopyPlain, fmt.Errorf("%w: nil frame", fbtile.ErrFrameMismatch)
	}
	if !t.configured {
		if err := t.Configure(in.Width, in.Height); err != nil {
			return nil, fbtile.FrameCopyPlain, err
		}
	}

	layout := t.opts.Layout
	if t.opts.Auto {
		layout = fbtile.LayoutFromFamily(fbtile.FamilyDRM, in.Modifier)
	}
	if t.opts.Op == fbtile.OpNone || layout == fbtile.LayoutNone {
		return in, fbtile.FrameCopyPlain, nil
	}

	out := fbtile.NewFrame(in.Format, t.width, t.height)
	if out.Stride == 0 {
		// formats without a known pixel size keep the input geometry
		out = &fbtile.Frame{Format: in.Format, Width: in.Width, Height: in.Height, Stride: in.Stride, Data: make([]byte, len(in.Data))}
	}

	var (
		status fbtile.FrameCopyStatus
		err    error
	)
	if t.opts.Op == fbtile.OpDetile {
		status, err = t.conv.FrameCopyParallel(ctx, t.opts.Workers, out, fbtile.LayoutNone, in, layout)
		out.Modifier = drm.ModLinear
		if status == fbtile.FrameCopyPlain {
			out.Modifier = in.Modifier
		}
	} else {
		status, err = t.conv.FrameCopyParallel(ctx, t.opts.Workers, out, layout, in, fbtile.LayoutNone)
		out.Modifier = layout.DRMModifier()
		if status == fbtile.FrameCopyPlain {
			out.Modifier = in.Modifier
		}
	}
	if err != nil {
		return nil, status, err
	}
	return out, status, nil
}

// Perf returns the accumulated conversion timings.
func (t *Tiler) Perf() fbtile.PerfSnapshot {
	return t.perf.Snapshot()
}

// Close logs the average conversion time. Further Process calls fail.
func (t *Tiler) Close() error {
	if t.closed {
		return nil
	}
	t.closed = true
	snap := t.perf.Snapshot()
	logging.Info("filter:uninit:perf: %d conversions, avg %s, total %s", snap.Count, snap.Average, snap.Total)
	return nil
}
