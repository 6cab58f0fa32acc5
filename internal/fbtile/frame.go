package fbtile

import (
	"context"
	"fmt"

	"github.com/rcarmo/go-fbtile/internal/logging"
)

// Frame is a single plane image buffer owned by the caller.
type Frame struct {
	Format   PixelFormat
	Width    int
	Height   int
	Stride   int // bytes per row
	Data     []byte
	Modifier uint64 // DRM format modifier describing Data, if known
}

// NewFrame allocates a tightly packed frame.
func NewFrame(format PixelFormat, w, h int) *Frame {
	stride := w * format.BytesPerPixel()
	return &Frame{
		Format: format,
		Width:  w,
		Height: h,
		Stride: stride,
		Data:   make([]byte, stride*h),
	}
}

// FrameCopyStatus tells whether FrameCopy converted the layout.
type FrameCopyStatus int

const (
	FrameCopyTiled FrameCopyStatus = iota // tiled or detiled
	FrameCopyPlain                        // copied as is
)

func (s FrameCopyStatus) String() string {
	switch s {
	case FrameCopyTiled:
		return "tilecopy"
	case FrameCopyPlain:
		return "copyonly"
	default:
		return fmt.Sprintf("FrameCopyStatus(%d)", int(s))
	}
}

// FrameCopy copies src into dst, tiling or detiling on the way when exactly
// one side is linear. A linear dst detiles src using dst's size; a linear
// src tiles it using src's size.
//
// When both sides are tiled, a pixel format is not supported, or the
// conversion is refused, the frame is copied unconverted and
// FrameCopyPlain is returned. Only a failing plain copy returns an error.
func (c *Converter) FrameCopy(dst *Frame, dstLayout Layout, src *Frame, srcLayout Layout) (FrameCopyStatus, error) {
	return c.frameCopy(dst, dstLayout, src, srcLayout, c.Convert)
}

// FrameCopyParallel is FrameCopy with the conversion split across workers
// goroutines by ConvertParallel.
func (c *Converter) FrameCopyParallel(ctx context.Context, workers int, dst *Frame, dstLayout Layout, src *Frame, srcLayout Layout) (FrameCopyStatus, error) {
	convert := func(op Op, layout Layout, w, h int, dst []byte, dstStride int, src []byte, srcStride int, bpp int) error {
		return c.ConvertParallel(ctx, workers, op, layout, w, h, dst, dstStride, src, srcStride, bpp)
	}
	return c.frameCopy(dst, dstLayout, src, srcLayout, convert)
}

type convertFunc func(op Op, layout Layout, w, h int, dst []byte, dstStride int, src []byte, srcStride int, bpp int) error

func (c *Converter) frameCopy(dst *Frame, dstLayout Layout, src *Frame, srcLayout Layout, convert convertFunc) (FrameCopyStatus, error) {
	if dst == nil || src == nil {
		return FrameCopyPlain, fmt.Errorf("%w: nil frame", ErrFrameMismatch)
	}

	var (
		op     Op
		layout Layout
		w, h   int
	)
	switch {
	case dstLayout == LayoutNone:
		op, layout, w, h = OpDetile, srcLayout, dst.Width, dst.Height
	case srcLayout == LayoutNone:
		op, layout, w, h = OpTile, dstLayout, src.Width, src.Height
	default:
		logging.Warn("fbtile:framecopy: both src [%s] and dst [%s] layouts cant be tiled", srcLayout, dstLayout)
	}

	if op != OpNone {
		if !CheckPixelFormats(src.Format, dst.Format) {
			logging.Once(&c.logFormats, logging.LevelWarn, logging.LevelDebug,
				"fbtile:framecopy: pixel formats %s -> %s not supported, copying as is", src.Format, dst.Format)
		} else {
			err := convert(op, layout, w, h, dst.Data, dst.Stride, src.Data, src.Stride, src.Format.BytesPerPixel())
			if err == nil {
				return FrameCopyTiled, nil
			}
			logging.Debug("fbtile:framecopy: %s %s: %v, copying as is", op, layout, err)
		}
	}
	return FrameCopyPlain, plainCopy(dst, src)
}

// FrameCopy runs FrameCopy on the default Converter.
func FrameCopy(dst *Frame, dstLayout Layout, src *Frame, srcLayout Layout) (FrameCopyStatus, error) {
	return DefaultConverter().FrameCopy(dst, dstLayout, src, srcLayout)
}

// plainCopy copies the pixel bytes of src into dst without changing their
// arrangement. Equal strides copy the buffer in one go, otherwise row by row.
func plainCopy(dst, src *Frame) error {
	if dst.Width != src.Width || dst.Height != src.Height {
		return fmt.Errorf("%w: dst %dx%d, src %dx%d", ErrFrameMismatch, dst.Width, dst.Height, src.Width, src.Height)
	}
	if dst.Stride == src.Stride {
		copy(dst.Data, src.Data)
		return nil
	}

	n := min(dst.Stride, src.Stride)
	if bpp := src.Format.BytesPerPixel(); bpp > 0 {
		n = min(n, src.Width*bpp)
	}
	if n <= 0 {
		return fmt.Errorf("%w: strides dst %d, src %d", ErrFrameMismatch, dst.Stride, src.Stride)
	}
	for y := 0; y < src.Height; y++ {
		d, s := y*dst.Stride, y*src.Stride
		if d+n > len(dst.Data) || s+n > len(src.Data) {
			return fmt.Errorf("%w: row %d outside the buffers", ErrFrameMismatch, y)
		}
		copy(dst.Data[d:d+n], src.Data[s:s+n])
	}
	return nil
}
