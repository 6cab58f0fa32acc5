package fbtile

import (
	"fmt"
	"strings"

	"github.com/gogpu/gputypes"

	"github.com/rcarmo/go-fbtile/internal/drm"
)

// PixelFormat names a packed pixel layout by its channel order in memory.
type PixelFormat int

const (
	PixFmtNone PixelFormat = iota
	PixFmtRGB0
	PixFmt0RGB
	PixFmtBGR0
	PixFmt0BGR
	PixFmtRGBA
	PixFmtARGB
	PixFmtBGRA
	PixFmtABGR
	PixFmtRGB24
	PixFmtRGB565
	PixFmtNV12
)

type pixFmtInfo struct {
	name      string
	bpp       int // bytes per pixel of the first plane
	alpha     bool
	supported bool
	fourcc    uint32
	texture   gputypes.TextureFormat
}

var pixFmtInfos = [...]pixFmtInfo{
	PixFmtNone:   {name: "none"},
	PixFmtRGB0:   {name: "rgb0", bpp: 4, supported: true, fourcc: drm.FormatXBGR8888, texture: gputypes.TextureFormatRGBA8Unorm},
	PixFmt0RGB:   {name: "0rgb", bpp: 4, supported: true, fourcc: drm.FormatBGRX8888},
	PixFmtBGR0:   {name: "bgr0", bpp: 4, supported: true, fourcc: drm.FormatXRGB8888, texture: gputypes.TextureFormatBGRA8Unorm},
	PixFmt0BGR:   {name: "0bgr", bpp: 4, supported: true, fourcc: drm.FormatRGBX8888},
	PixFmtRGBA:   {name: "rgba", bpp: 4, alpha: true, supported: true, fourcc: drm.FormatABGR8888, texture: gputypes.TextureFormatRGBA8Unorm},
	PixFmtARGB:   {name: "argb", bpp: 4, alpha: true, supported: true, fourcc: drm.FormatBGRA8888},
	PixFmtBGRA:   {name: "bgra", bpp: 4, alpha: true, supported: true, fourcc: drm.FormatARGB8888, texture: gputypes.TextureFormatBGRA8Unorm},
	PixFmtABGR:   {name: "abgr", bpp: 4, alpha: true, supported: true, fourcc: drm.FormatRGBA8888},
	PixFmtRGB24:  {name: "rgb24", bpp: 3, fourcc: drm.FormatBGR888},
	PixFmtRGB565: {name: "rgb565", bpp: 2, fourcc: drm.FormatRGB565},
	PixFmtNV12:   {name: "nv12", bpp: 1, fourcc: drm.FormatNV12},
}

func (f PixelFormat) info() pixFmtInfo {
	if f < 0 || int(f) >= len(pixFmtInfos) {
		return pixFmtInfo{}
	}
	return pixFmtInfos[f]
}

func (f PixelFormat) String() string {
	if name := f.info().name; name != "" {
		return name
	}
	return fmt.Sprintf("PixelFormat(%d)", int(f))
}

// BytesPerPixel returns the size of one pixel, or of one luma sample for
// planar formats. PixFmtNone returns 0.
func (f PixelFormat) BytesPerPixel() int {
	return f.info().bpp
}

// HasAlpha reports whether the fourth byte carries alpha rather than padding.
func (f PixelFormat) HasAlpha() bool {
	return f.info().alpha
}

// Supported reports whether the format is one of the 32 bit RGB formats
// the tile walks are defined for.
func (f PixelFormat) Supported() bool {
	return f.info().supported
}

// SupportedPixelFormats lists the formats accepted for tiling and detiling.
func SupportedPixelFormats() []PixelFormat {
	var out []PixelFormat
	for f := range pixFmtInfos {
		if pixFmtInfos[f].supported {
			out = append(out, PixelFormat(f))
		}
	}
	return out
}

// CheckPixelFormats reports whether a frame can be converted from src to
// dst. Both formats must be supported; the converters do not swizzle, so a
// mismatched pair would still be copied byte for byte.
func CheckPixelFormats(src, dst PixelFormat) bool {
	return src.Supported() && dst.Supported()
}

// ParsePixelFormat looks a format up by its short name.
func ParsePixelFormat(s string) (PixelFormat, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for f := range pixFmtInfos {
		if f != int(PixFmtNone) && pixFmtInfos[f].name == name {
			return PixelFormat(f), nil
		}
	}
	return PixFmtNone, fmt.Errorf("%w: pixel format %q", ErrUnsupported, s)
}

// DRMFourCC returns the DRM format with the same memory layout, or 0.
func (f PixelFormat) DRMFourCC() uint32 {
	return f.info().fourcc
}

// PixelFormatFromDRM maps a DRM fourcc back to a PixelFormat. Unknown codes
// give PixFmtNone.
func PixelFormatFromDRM(fourcc uint32) PixelFormat {
	if fourcc == 0 {
		return PixFmtNone
	}
	for f := range pixFmtInfos {
		if pixFmtInfos[f].fourcc == fourcc {
			return PixelFormat(f)
		}
	}
	return PixFmtNone
}

// TextureFormat returns the GPU texture format able to hold the pixels
// unchanged. Formats with the pad or alpha byte first have no such format.
func (f PixelFormat) TextureFormat() (gputypes.TextureFormat, bool) {
	info := f.info()
	if info.texture == 0 {
		return info.texture, false
	}
	return info.texture, true
}
