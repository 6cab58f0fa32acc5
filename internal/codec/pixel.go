// Package codec converts packed framebuffer pixels to and from
// non-premultiplied RGBA, the layout of image.NRGBA.
package codec

import (
	"errors"
	"fmt"

	"github.com/rcarmo/go-fbtile/internal/fbtile"
)

// ErrUnsupportedFormat is returned for formats without a packed RGB layout.
var ErrUnsupportedFormat = errors.New("codec: unsupported pixel format")

// order gives the byte offsets of red, green, blue and alpha inside a
// 32-bit pixel. A negative alpha offset marks a padding byte.
type order struct {
	r, g, b, a int
}

var orders = map[fbtile.PixelFormat]order{
	fbtile.PixFmtRGB0: {0, 1, 2, -1},
	fbtile.PixFmt0RGB: {1, 2, 3, -1},
	fbtile.PixFmtBGR0: {2, 1, 0, -1},
	fbtile.PixFmt0BGR: {3, 2, 1, -1},
	fbtile.PixFmtRGBA: {0, 1, 2, 3},
	fbtile.PixFmtARGB: {1, 2, 3, 0},
	fbtile.PixFmtBGRA: {2, 1, 0, 3},
	fbtile.PixFmtABGR: {3, 2, 1, 0},
}

// Formats lists the pixel formats ToRGBA and FromRGBA accept.
func Formats() []fbtile.PixelFormat {
	out := []fbtile.PixelFormat{fbtile.PixFmtRGB24, fbtile.PixFmtRGB565}
	for f := fbtile.PixFmtRGB0; f <= fbtile.PixFmtABGR; f++ {
		out = append(out, f)
	}
	return out
}

func pixels(dst, src []byte, dstBpp, srcBpp int) (int, error) {
	n := len(src) / srcBpp
	if len(src)%srcBpp != 0 {
		return 0, fmt.Errorf("codec: %d bytes is not a whole number of %d byte pixels", len(src), srcBpp)
	}
	if len(dst) < n*dstBpp {
		return 0, fmt.Errorf("codec: destination holds %d bytes, need %d", len(dst), n*dstBpp)
	}
	return n, nil
}

// ToRGBA converts the pixels in src, stored as f, into dst. Formats without
// alpha produce opaque pixels.
func ToRGBA(dst, src []byte, f fbtile.PixelFormat) error {
	bpp := f.BytesPerPixel()
	if bpp == 0 {
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, f)
	}
	n, err := pixels(dst, src, 4, bpp)
	if err != nil {
		return err
	}

	switch f {
	case fbtile.PixFmtRGB565:
		RGB565ToRGBA(src[:n*2], dst)
	case fbtile.PixFmtRGB24:
		RGB24ToRGBA(src[:n*3], dst)
	default:
		o, ok := orders[f]
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnsupportedFormat, f)
		}
		for i := 0; i < n*4; i += 4 {
			dst[i] = src[i+o.r]
			dst[i+1] = src[i+o.g]
			dst[i+2] = src[i+o.b]
			dst[i+3] = 255
			if o.a >= 0 {
				dst[i+3] = src[i+o.a]
			}
		}
	}
	return nil
}

// FromRGBA converts the RGBA pixels in src into dst stored as f. Padding
// bytes are written as zero.
func FromRGBA(dst, src []byte, f fbtile.PixelFormat) error {
	bpp := f.BytesPerPixel()
	if bpp == 0 {
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, f)
	}
	n, err := pixels(dst, src, bpp, 4)
	if err != nil {
		return err
	}

	switch f {
	case fbtile.PixFmtRGB565:
		for i, j := 0, 0; i < n*4; i, j = i+4, j+2 {
			pel := uint16(src[i]>>3)<<11 | uint16(src[i+1]>>2)<<5 | uint16(src[i+2]>>3)
			dst[j] = byte(pel)
			dst[j+1] = byte(pel >> 8)
		}
	case fbtile.PixFmtRGB24:
		for i, j := 0, 0; i < n*4; i, j = i+4, j+3 {
			dst[j], dst[j+1], dst[j+2] = src[i], src[i+1], src[i+2]
		}
	default:
		o, ok := orders[f]
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnsupportedFormat, f)
		}
		for i := 0; i < n*4; i += 4 {
			dst[i+o.r] = src[i]
			dst[i+o.g] = src[i+1]
			dst[i+o.b] = src[i+2]
			if o.a >= 0 {
				dst[i+o.a] = src[i+3]
			} else {
				dst[i+6-o.r-o.g-o.b] = 0
			}
		}
	}
	return nil
}

// RGB565ToRGBA converts 16-bit little-endian RGB565 to 32-bit RGBA
func RGB565ToRGBA(src []byte, dst []byte) {
	srcIdx := 0
	dstIdx := 0

	for srcIdx+1 < len(src) && dstIdx+3 < len(dst) {
		pel := uint16(src[srcIdx]) | (uint16(src[srcIdx+1]) << 8)

		r := (pel & 0xF800) >> 11
		g := (pel & 0x07E0) >> 5
		b := pel & 0x001F

		// Expand 5/6/5 to 8/8/8
		r = (r << 3) | (r >> 2)
		g = (g << 2) | (g >> 4)
		b = (b << 3) | (b >> 2)

		dst[dstIdx] = byte(r)
		dst[dstIdx+1] = byte(g)
		dst[dstIdx+2] = byte(b)
		dst[dstIdx+3] = 255

		srcIdx += 2
		dstIdx += 4
	}
}

// RGB24ToRGBA converts 24-bit R, G, B bytes to 32-bit RGBA
func RGB24ToRGBA(src []byte, dst []byte) {
	for srcIdx, dstIdx := 0, 0; srcIdx+2 < len(src) && dstIdx+3 < len(dst); srcIdx, dstIdx = srcIdx+3, dstIdx+4 {
		dst[dstIdx] = src[srcIdx]
		dst[dstIdx+1] = src[srcIdx+1]
		dst[dstIdx+2] = src[srcIdx+2]
		dst[dstIdx+3] = 255
	}
}
