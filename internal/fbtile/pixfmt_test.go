package fbtile

import (
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcarmo/go-fbtile/internal/drm"
)

func TestSupportedPixelFormats(t *testing.T) {
	got := SupportedPixelFormats()
	assert.Equal(t, []PixelFormat{
		PixFmtRGB0, PixFmt0RGB, PixFmtBGR0, PixFmt0BGR,
		PixFmtRGBA, PixFmtARGB, PixFmtBGRA, PixFmtABGR,
	}, got)
	for _, f := range got {
		assert.Equal(t, 4, f.BytesPerPixel(), f.String())
		assert.True(t, f.Supported(), f.String())
	}
}

func TestCheckPixelFormats(t *testing.T) {
	assert.True(t, CheckPixelFormats(PixFmtBGR0, PixFmtBGR0))
	assert.True(t, CheckPixelFormats(PixFmtRGBA, PixFmtBGRA))
	assert.False(t, CheckPixelFormats(PixFmtRGB24, PixFmtBGR0))
	assert.False(t, CheckPixelFormats(PixFmtBGR0, PixFmtNV12))
	assert.False(t, CheckPixelFormats(PixFmtNone, PixFmtNone))
	assert.False(t, CheckPixelFormats(PixelFormat(99), PixFmtRGBA))
}

func TestPixelFormatInfo(t *testing.T) {
	assert.True(t, PixFmtARGB.HasAlpha())
	assert.False(t, PixFmt0RGB.HasAlpha())
	assert.Equal(t, 3, PixFmtRGB24.BytesPerPixel())
	assert.Equal(t, 2, PixFmtRGB565.BytesPerPixel())
	assert.Equal(t, 0, PixFmtNone.BytesPerPixel())
	assert.Equal(t, "0bgr", PixFmt0BGR.String())
	assert.Equal(t, "PixelFormat(99)", PixelFormat(99).String())

	f, err := ParsePixelFormat("BGRA")
	require.NoError(t, err)
	assert.Equal(t, PixFmtBGRA, f)
	_, err = ParsePixelFormat("none")
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestPixelFormatDRM(t *testing.T) {
	// DRM names list channels from the top of a little-endian word.
	assert.Equal(t, drm.FormatXRGB8888, PixFmtBGR0.DRMFourCC())
	assert.Equal(t, drm.FormatABGR8888, PixFmtRGBA.DRMFourCC())
	assert.Equal(t, drm.FormatBGRA8888, PixFmtARGB.DRMFourCC())

	for _, f := range SupportedPixelFormats() {
		assert.Equal(t, f, PixelFormatFromDRM(f.DRMFourCC()), f.String())
	}
	assert.Equal(t, PixFmtNV12, PixelFormatFromDRM(drm.FormatNV12))
	assert.Equal(t, PixFmtNone, PixelFormatFromDRM(0))
	assert.Equal(t, PixFmtNone, PixelFormatFromDRM(drm.FourCC('Y', 'U', 'Y', 'V')))
}

func TestPixelFormatTextureFormat(t *testing.T) {
	tf, ok := PixFmtRGBA.TextureFormat()
	require.True(t, ok)
	assert.Equal(t, gputypes.TextureFormatRGBA8Unorm, tf)

	tf, ok = PixFmtBGR0.TextureFormat()
	require.True(t, ok)
	assert.Equal(t, gputypes.TextureFormatBGRA8Unorm, tf)

	_, ok = PixFmtARGB.TextureFormat()
	assert.False(t, ok)
	_, ok = PixFmtNV12.TextureFormat()
	assert.False(t, ok)
}
