package fbtile

import (
	"fmt"
	"strings"

	"github.com/rcarmo/go-fbtile/internal/drm"
	"github.com/rcarmo/go-fbtile/internal/logging"
)

// Layout identifies a framebuffer memory layout.
type Layout int

const (
	LayoutNone Layout = iota // linear
	LayoutIntelX
	LayoutIntelY
	LayoutIntelYf
	LayoutUnknown
)

var layoutNames = [...]string{
	LayoutNone:    "none",
	LayoutIntelX:  "intelx",
	LayoutIntelY:  "intely",
	LayoutIntelYf: "intelyf",
	LayoutUnknown: "unknown",
}

func (l Layout) String() string {
	if l >= 0 && int(l) < len(layoutNames) {
		return layoutNames[l]
	}
	return fmt.Sprintf("Layout(%d)", int(l))
}

// Description returns a human readable name of the layout.
func (l Layout) Description() string {
	switch l {
	case LayoutNone:
		return "Linear layout"
	case LayoutIntelX:
		return "Intel Tile-X layout"
	case LayoutIntelY:
		return "Intel Tile-Y layout"
	case LayoutIntelYf:
		return "Intel Tile-Yf layout"
	default:
		return "Unknown layout"
	}
}

// ParseLayout accepts the option names none, intelx, intely and intelyf
// (case insensitive). "linear" is an alias of none.
func ParseLayout(s string) (Layout, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "linear" {
		return LayoutNone, nil
	}
	for l := LayoutNone; l < LayoutUnknown; l++ {
		if layoutNames[l] == name {
			return l, nil
		}
	}
	return LayoutUnknown, fmt.Errorf("%w: layout %q", ErrUnsupported, s)
}

// Layouts returns the tiled layouts the walkers know about.
func Layouts() []Layout {
	return []Layout{LayoutIntelX, LayoutIntelY, LayoutIntelYf}
}

// walkFor returns the shared walk for a layout. Callers must not modify it.
func walkFor(l Layout) (TileWalk, bool) {
	switch l {
	case LayoutIntelX:
		return intelXWalk, true
	case LayoutIntelY:
		return intelYWalk, true
	case LayoutIntelYf:
		return intelYfWalk, true
	default:
		return TileWalk{}, false
	}
}

// WalkFor returns a copy of the walk describing a tiled layout.
func WalkFor(l Layout) (TileWalk, bool) {
	tw, ok := walkFor(l)
	if !ok {
		return TileWalk{}, false
	}
	return tw.clone(), true
}

// Family identifies an external subsystem naming tile layouts.
type Family int

const (
	FamilyDRM Family = iota
	FamilyUnknown
)

func (f Family) String() string {
	switch f {
	case FamilyDRM:
		return "drm"
	default:
		return "unknown"
	}
}

var drmLayouts = map[uint64]Layout{
	drm.ModLinear:      LayoutNone,
	drm.I915ModXTiled:  LayoutIntelX,
	drm.I915ModYTiled:  LayoutIntelY,
	drm.I915ModYfTiled: LayoutIntelYf,
}

// LayoutFromFamily maps a subsystem's tile layout id, such as a DRM format
// modifier, to a Layout. Values without a mapping give LayoutUnknown, which
// callers should treat as "pass through unconverted".
func LayoutFromFamily(family Family, familyTileType uint64) Layout {
	layout := LayoutUnknown

	switch family {
	case FamilyDRM:
		if l, ok := drmLayouts[familyTileType]; ok {
			layout = l
		}
	default:
		logging.Warn("fbtile:getlayoutid: unknown family[%d] familyTileType[0x%x]", family, familyTileType)
	}
	logging.Debug("fbtile:getlayoutid: family[%s] familyTileType[0x%x] maps to layout[%s]", family, familyTileType, layout)
	return layout
}

// DRMModifier returns the DRM format modifier of a layout. LayoutUnknown
// gives drm.ModInvalid.
func (l Layout) DRMModifier() uint64 {
	for mod, layout := range drmLayouts {
		if layout == l {
			return mod
		}
	}
	return drm.ModInvalid
}

// Op selects the conversion direction.
type Op int

const (
	OpNone Op = iota
	OpTile
	OpDetile
)

func (o Op) String() string {
	switch o {
	case OpNone:
		return "none"
	case OpTile:
		return "tile"
	case OpDetile:
		return "detile"
	default:
		return fmt.Sprintf("Op(%d)", int(o))
	}
}

// ParseOp accepts none, tile and detile.
func ParseOp(s string) (Op, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none", "":
		return OpNone, nil
	case "tile":
		return OpTile, nil
	case "detile":
		return OpDetile, nil
	default:
		return OpNone, fmt.Errorf("%w: operation %q", ErrUnsupported, s)
	}
}

// Walker selects the walker implementation.
type Walker int

const (
	WalkerOpti Walker = iota
	WalkerSimple
)

func (w Walker) String() string {
	switch w {
	case WalkerOpti:
		return "opti"
	case WalkerSimple:
		return "simple"
	default:
		return fmt.Sprintf("Walker(%d)", int(w))
	}
}

// ParseWalker accepts opti (or optimized) and simple (or reference).
func ParseWalker(s string) (Walker, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "opti", "optimized", "":
		return WalkerOpti, nil
	case "simple", "reference":
		return WalkerSimple, nil
	default:
		return WalkerOpti, fmt.Errorf("%w: walker %q", ErrUnsupported, s)
	}
}
