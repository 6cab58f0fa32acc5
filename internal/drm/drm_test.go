package drm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFourCC(t *testing.T) {
	assert.Equal(t, uint32(0x34325258), FormatXRGB8888)
	assert.Equal(t, uint32(0x34324241), FormatABGR8888)
	assert.Equal(t, "XR24", FourCCString(FormatXRGB8888))
	assert.Equal(t, "BA24", FourCCString(FormatBGRA8888))
	assert.Equal(t, "0x00000001", FourCCString(1))
}

func TestModifiers(t *testing.T) {
	assert.Equal(t, uint64(0), ModLinear)
	assert.Equal(t, uint64(0x00ffffffffffffff), ModInvalid)
	assert.Equal(t, uint64(0x0100000000000001), I915ModXTiled)
	assert.Equal(t, uint64(0x0100000000000002), I915ModYTiled)
	assert.Equal(t, uint64(0x0100000000000003), I915ModYfTiled)

	assert.Equal(t, VendorIntel, ModVendor(I915ModYfTiled))
	assert.Equal(t, uint64(3), ModValue(I915ModYfTiled))
	assert.Equal(t, VendorNone, ModVendor(ModInvalid))
}

func TestModCodeMasksValue(t *testing.T) {
	mod := ModCode(VendorAMD, 0xff00000000000007)
	assert.Equal(t, VendorAMD, ModVendor(mod))
	assert.Equal(t, uint64(7), ModValue(mod))
}

func TestModifierString(t *testing.T) {
	assert.Equal(t, "LINEAR", ModifierString(ModLinear))
	assert.Equal(t, "I915_Yf_TILED", ModifierString(I915ModYfTiled))
	assert.Equal(t, "vendor 0x02 value 0x9", ModifierString(ModCode(VendorAMD, 9)))
}
