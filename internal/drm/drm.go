// Package drm holds the Linux DRM pixel format and format modifier identifiers
// that capture layers attach to framebuffers.
//
// Values follow include/uapi/drm/drm_fourcc.h.
package drm

import "fmt"

// FourCC builds a little-endian four character code.
func FourCC(a, b, c, d byte) uint32 {
	return uint32(a) | uint32(b)<<8 | uint32(c)<<16 | uint32(d)<<24
}

// FourCCString renders a fourcc as its four characters, or as hex when
// any byte is not printable.
func FourCCString(code uint32) string {
	b := [4]byte{byte(code), byte(code >> 8), byte(code >> 16), byte(code >> 24)}
	for _, c := range b {
		if c < 0x20 || c > 0x7e {
			return fmt.Sprintf("0x%08x", code)
		}
	}
	return string(b[:])
}

// 32 bit RGB formats. The name lists channels from the most significant
// byte of a little-endian 32 bit word, so XRGB8888 is B,G,R,X in memory.
var (
	FormatXRGB8888 = FourCC('X', 'R', '2', '4')
	FormatXBGR8888 = FourCC('X', 'B', '2', '4')
	FormatRGBX8888 = FourCC('R', 'X', '2', '4')
	FormatBGRX8888 = FourCC('B', 'X', '2', '4')
	FormatARGB8888 = FourCC('A', 'R', '2', '4')
	FormatABGR8888 = FourCC('A', 'B', '2', '4')
	FormatRGBA8888 = FourCC('R', 'A', '2', '4')
	FormatBGRA8888 = FourCC('B', 'A', '2', '4')
)

// Other formats capture layers commonly hand over.
var (
	FormatBGR888 = FourCC('B', 'G', '2', '4')
	FormatRGB565 = FourCC('R', 'G', '1', '6')
	FormatNV12   = FourCC('N', 'V', '1', '2')
)

// Modifier vendors.
const (
	VendorNone    uint8 = 0x00
	VendorIntel   uint8 = 0x01
	VendorAMD     uint8 = 0x02
	VendorNVIDIA  uint8 = 0x03
	VendorSamsung uint8 = 0x04
	VendorARM     uint8 = 0x08
)

const modValueMask = 0x00ffffffffffffff

// ModCode composes a format modifier from a vendor and a vendor specific value.
func ModCode(vendor uint8, val uint64) uint64 {
	return uint64(vendor)<<56 | val&modValueMask
}

// ModVendor returns the vendor byte of a modifier.
func ModVendor(mod uint64) uint8 {
	return uint8(mod >> 56)
}

// ModValue returns the vendor specific part of a modifier.
func ModValue(mod uint64) uint64 {
	return mod & modValueMask
}

// Format modifiers.
var (
	ModLinear  = ModCode(VendorNone, 0)
	ModInvalid = ModCode(VendorNone, modValueMask)

	I915ModXTiled     = ModCode(VendorIntel, 1)
	I915ModYTiled     = ModCode(VendorIntel, 2)
	I915ModYfTiled    = ModCode(VendorIntel, 3)
	I915ModYTiledCCS  = ModCode(VendorIntel, 4)
	I915ModYfTiledCCS = ModCode(VendorIntel, 5)
)

// ModifierString returns a readable name for well known modifiers.
func ModifierString(mod uint64) string {
	switch mod {
	case ModLinear:
		return "LINEAR"
	case ModInvalid:
		return "INVALID"
	case I915ModXTiled:
		return "I915_X_TILED"
	case I915ModYTiled:
		return "I915_Y_TILED"
	case I915ModYfTiled:
		return "I915_Yf_TILED"
	case I915ModYTiledCCS:
		return "I915_Y_TILED_CCS"
	case I915ModYfTiledCCS:
		return "I915_Yf_TILED_CCS"
	default:
		return fmt.Sprintf("vendor 0x%02x value 0x%x", ModVendor(mod), ModValue(mod))
	}
}
