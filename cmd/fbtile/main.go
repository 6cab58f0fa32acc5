package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"hash/fnv"
	"image"
	"io"
	"math"
	"math/rand"
	"os"
	"runtime/pprof"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/rcarmo/go-fbtile/internal/codec"
	"github.com/rcarmo/go-fbtile/internal/drm"
	"github.com/rcarmo/go-fbtile/internal/fbtile"
	"github.com/rcarmo/go-fbtile/internal/logging"
)

// errUsage marks errors caused by bad arguments.
var errUsage = errors.New("usage")

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if errors.Is(err, errUsage) {
			usage(os.Stderr)
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer) error {
	if len(args) < 1 {
		return fmt.Errorf("%w: missing command", errUsage)
	}

	switch args[0] {
	case "tile":
		return tileCmd(args[1:], stdout)
	case "detile":
		return detileCmd(args[1:], stdout)
	case "pattern":
		return patternCmd(args[1:], stdout)
	case "bench":
		return benchCmd(args[1:], stdout)
	case "layouts":
		return layoutsCmd(stdout)
	case "help", "-h", "-help":
		usage(stdout)
		return nil
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, args[0])
	}
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "usage:")
	fmt.Fprintln(w, "  fbtile tile -in <image.png|bmp|tiff> -out <file.raw> -layout intelx|intely|intelyf [-walker opti|simple] [-format rgba|bgra|bgr0|rgb565|...]")
	fmt.Fprintln(w, "  fbtile detile -in <file.raw> -w W -h H -layout intelx|intely|intelyf -out <image.png|bmp|tiff> [-walker opti|simple] [-format rgba|bgra|bgr0|rgb565|...]")
	fmt.Fprintln(w, "  fbtile pattern -w W -h H -layout intelx|intely|intelyf -out <image.png|bmp|tiff>")
	fmt.Fprintln(w, "  fbtile bench -w W -h H [-layout L] [-op tile|detile] [-walker opti|simple] [-iters N] [-workers N] [-checksum fnv|none] [-cpuprofile file]")
	fmt.Fprintln(w, "  fbtile layouts")
}

// convFlags are the flags shared by the conversion commands.
type convFlags struct {
	layout   string
	walker   string
	format   string
	logLevel string
}

func (c *convFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&c.layout, "layout", "intely", "tiled layout: intelx|intely|intelyf")
	fs.StringVar(&c.walker, "walker", "opti", "walker: opti|simple")
	fs.StringVar(&c.format, "format", "rgba", "pixel format of the raw buffer")
	fs.StringVar(&c.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
}

func (c *convFlags) pixelFormat() (fbtile.PixelFormat, error) {
	f, err := fbtile.ParsePixelFormat(c.format)
	if err != nil {
		return f, fmt.Errorf("%w: %v", errUsage, err)
	}
	return f, nil
}

func (c *convFlags) converter() (fbtile.Layout, *fbtile.Converter, error) {
	logging.SetLevelFromString(c.logLevel)
	layout, err := fbtile.ParseLayout(c.layout)
	if err != nil {
		return layout, nil, fmt.Errorf("%w: %v", errUsage, err)
	}
	walker, err := fbtile.ParseWalker(c.walker)
	if err != nil {
		return layout, nil, fmt.Errorf("%w: %v", errUsage, err)
	}
	return layout, fbtile.NewConverter(walker), nil
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %s: %v", errUsage, fs.Name(), err)
	}
	return nil
}

func tileCmd(args []string, stdout io.Writer) error {
	fs := newFlagSet("tile")
	var (
		cf      convFlags
		inPath  string
		outPath string
	)
	cf.register(fs)
	fs.StringVar(&inPath, "in", "", "input image")
	fs.StringVar(&outPath, "out", "", "output raw tiled buffer")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if inPath == "" || outPath == "" {
		return fmt.Errorf("%w: tile needs -in and -out", errUsage)
	}
	layout, conv, err := cf.converter()
	if err != nil {
		return err
	}
	format, err := cf.pixelFormat()
	if err != nil {
		return err
	}

	im, err := readImage(inPath)
	if err != nil {
		return err
	}
	w, h, bpp := im.Rect.Dx(), im.Rect.Dy(), format.BytesPerPixel()
	linear := make([]byte, w*h*bpp)
	if err := codec.FromRGBA(linear, im.Pix, format); err != nil {
		return fmt.Errorf("tile %s: %w", inPath, err)
	}
	tiled := make([]byte, len(linear))
	if err := conv.Convert(fbtile.OpTile, layout, w, h, tiled, w*bpp, linear, w*bpp, bpp); err != nil {
		return fmt.Errorf("tile %s: %w", inPath, err)
	}
	if err := os.WriteFile(outPath, tiled, 0o644); err != nil {
		return err
	}

	fmt.Fprintf(stdout, "tiled %s (%dx%d %s) to %s as %s, modifier %s\n",
		inPath, w, h, format, outPath, layout, drm.ModifierString(layout.DRMModifier()))
	return nil
}

func detileCmd(args []string, stdout io.Writer) error {
	fs := newFlagSet("detile")
	var (
		cf      convFlags
		inPath  string
		outPath string
		w, h    int
	)
	cf.register(fs)
	fs.StringVar(&inPath, "in", "", "input raw tiled buffer")
	fs.StringVar(&outPath, "out", "", "output image")
	fs.IntVar(&w, "w", 0, "width in pixels")
	fs.IntVar(&h, "h", 0, "height in pixels")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if inPath == "" || outPath == "" || w <= 0 || h <= 0 {
		return fmt.Errorf("%w: detile needs -in, -out, -w and -h", errUsage)
	}
	layout, conv, err := cf.converter()
	if err != nil {
		return err
	}
	format, err := cf.pixelFormat()
	if err != nil {
		return err
	}

	tiled, err := os.ReadFile(inPath)
	if err != nil {
		return err
	}
	bpp := format.BytesPerPixel()
	if len(tiled) != w*h*bpp {
		return fmt.Errorf("%s: %d bytes, want %d for %dx%d %s", inPath, len(tiled), w*h*bpp, w, h, format)
	}

	linear := make([]byte, len(tiled))
	if err := conv.Convert(fbtile.OpDetile, layout, w, h, linear, w*bpp, tiled, w*bpp, bpp); err != nil {
		return fmt.Errorf("detile %s: %w", inPath, err)
	}
	im := image.NewNRGBA(image.Rect(0, 0, w, h))
	if err := codec.ToRGBA(im.Pix, linear, format); err != nil {
		return fmt.Errorf("detile %s: %w", inPath, err)
	}
	if err := writeImage(outPath, im); err != nil {
		return err
	}

	fmt.Fprintf(stdout, "detiled %s (%s, %dx%d) to %s\n", inPath, layout, w, h, outPath)
	return nil
}

// patternCmd fills a tiled buffer so that every sub-tile has one colour,
// then detiles it. The picture shows where the layout puts each sub-tile.
func patternCmd(args []string, stdout io.Writer) error {
	fs := newFlagSet("pattern")
	var (
		cf      convFlags
		outPath string
		w, h    int
	)
	cf.register(fs)
	fs.StringVar(&outPath, "out", "", "output image")
	fs.IntVar(&w, "w", 256, "width in pixels")
	fs.IntVar(&h, "h", 64, "height in pixels")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if outPath == "" || w <= 0 || h <= 0 {
		return fmt.Errorf("%w: pattern needs -out, -w and -h", errUsage)
	}
	layout, conv, err := cf.converter()
	if err != nil {
		return err
	}
	tw, ok := fbtile.WalkFor(layout)
	if !ok {
		return fmt.Errorf("%w: layout %s is not tiled", errUsage, layout)
	}

	tiled := patternBuffer(tw, w*h*4)
	im := image.NewNRGBA(image.Rect(0, 0, w, h))
	if err := conv.Convert(fbtile.OpDetile, layout, w, h, im.Pix, im.Stride, tiled, w*4, 4); err != nil {
		return fmt.Errorf("pattern: %w", err)
	}
	if err := writeImage(outPath, im); err != nil {
		return err
	}

	fmt.Fprintf(stdout, "wrote %s: %s, %d sub-tiles of %dx%d per %dx%d tile\n", outPath, layout.Description(),
		tw.SubTilesPerTile(), tw.SubTileWidth, tw.SubTileHeight, tw.TileWidth, tw.TileHeight)
	return nil
}

// patternBuffer returns size bytes of tiled rgba pixels. Sub-tiles are
// contiguous in tiled memory; each gets a hue stepping around the colour
// wheel, and alternate tiles are drawn darker.
func patternBuffer(tw fbtile.TileWalk, size int) []byte {
	const goldenAngle = 137.508

	buf := make([]byte, size)
	stBytes := tw.SubTileBytes() * tw.SubTileHeight
	perTile := tw.SubTilesPerTile()
	for off, i := 0, 0; off < size; off, i = off+stBytes, i+1 {
		value := 0.95
		if (i/perTile)%2 == 1 {
			value = 0.6
		}
		c := colorful.Hsv(math.Mod(float64(i%perTile)*goldenAngle, 360), 0.75, value).Clamped()
		r, g, b := c.RGB255()
		for p := off; p < min(off+stBytes, size); p += 4 {
			buf[p], buf[p+1], buf[p+2], buf[p+3] = r, g, b, 0xff
		}
	}
	return buf
}

func benchCmd(args []string, stdout io.Writer) error {
	fs := newFlagSet("bench")
	var (
		cf          convFlags
		opName      string
		w, h        int
		iters       int
		workers     int
		checksumOpt string
		cpuprofile  string
	)
	cf.register(fs)
	fs.StringVar(&opName, "op", "detile", "operation: tile|detile")
	fs.IntVar(&w, "w", 1920, "width in pixels")
	fs.IntVar(&h, "h", 1088, "height in pixels")
	fs.IntVar(&iters, "iters", 100, "iterations")
	fs.IntVar(&workers, "workers", 1, "goroutines per frame")
	fs.StringVar(&checksumOpt, "checksum", "fnv", "checksum: fnv|none (for benchmarking)")
	fs.StringVar(&cpuprofile, "cpuprofile", "", "optional CPU profile output path")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if iters <= 0 || workers <= 0 || w <= 0 || h <= 0 {
		return fmt.Errorf("%w: -w, -h, -iters and -workers must be > 0", errUsage)
	}
	op, err := fbtile.ParseOp(opName)
	if err != nil || op == fbtile.OpNone {
		return fmt.Errorf("%w: invalid -op %q (want tile|detile)", errUsage, opName)
	}
	layout, conv, err := cf.converter()
	if err != nil {
		return err
	}

	var perf fbtile.Perf
	conv.Observe = perf.Observe

	src := make([]byte, w*h*4)
	rand.New(rand.NewSource(1)).Read(src)
	dst := make([]byte, len(src))

	if cpuprofile != "" {
		f, err := os.Create(cpuprofile)
		if err != nil {
			return err
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			_ = f.Close()
			return err
		}
		defer func() {
			pprof.StopCPUProfile()
			_ = f.Close()
		}()
	}

	doChecksum := strings.ToLower(strings.TrimSpace(checksumOpt)) != "none"
	hash := fnv.New64a()
	ctx := context.Background()
	start := time.Now()
	for i := 0; i < iters; i++ {
		if err := conv.ConvertParallel(ctx, workers, op, layout, w, h, dst, w*4, src, w*4, 4); err != nil {
			return fmt.Errorf("bench: %w", err)
		}
		if doChecksum {
			_, _ = hash.Write(dst)
		}
	}
	elapsed := time.Since(start)

	checksum := "none"
	if doChecksum {
		checksum = fmt.Sprintf("%016x", hash.Sum64())
	}
	snap := perf.Snapshot()
	mbps := float64(len(src)) * float64(iters) / elapsed.Seconds() / (1 << 20)
	fmt.Fprintf(stdout, "RESULT op=%s layout=%s walker=%s size=%dx%d workers=%d iters=%d seconds=%.6f ns/frame=%d MB/s=%.1f conversions=%d checksum=%s\n",
		op, layout, cf.walker, w, h, workers, iters, elapsed.Seconds(), elapsed.Nanoseconds()/int64(iters), mbps, snap.Count, checksum)
	return nil
}

func layoutsCmd(stdout io.Writer) error {
	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tMODIFIER\tSUB-TILE\tTILE\tDIR CHANGES\tDESCRIPTION")
	for _, l := range fbtile.Layouts() {
		walk, ok := fbtile.WalkFor(l)
		if !ok {
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t%dx%d\t%dx%d\t%d\t%s\n", l, drm.ModifierString(l.DRMModifier()),
			walk.SubTileWidth, walk.SubTileHeight, walk.TileWidth, walk.TileHeight, len(walk.DirChanges), l.Description())
	}
	return tw.Flush()
}
