package main

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	"golang.org/x/image/tiff"
)

// readImage decodes a png, bmp or tiff file into non-premultiplied RGBA,
// which is the rgba pixel format with a tight stride.
func readImage(path string) (*image.NRGBA, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var im image.Image
	switch ext := imageExt(path); ext {
	case "png":
		im, err = png.Decode(f)
	case "bmp":
		im, err = bmp.Decode(f)
	case "tif", "tiff":
		im, err = tiff.Decode(f)
	default:
		return nil, fmt.Errorf("%s: unsupported image extension %q", path, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	if nrgba, ok := im.(*image.NRGBA); ok && nrgba.Rect.Min == (image.Point{}) && nrgba.Stride == 4*nrgba.Rect.Dx() {
		return nrgba, nil
	}
	b := im.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), im, b.Min, draw.Src)
	return out, nil
}

// writeImage encodes im by the extension of path.
func writeImage(path string, im image.Image) error {
	ext := imageExt(path)
	switch ext {
	case "png", "bmp", "tif", "tiff":
	default:
		return fmt.Errorf("%s: unsupported image extension %q", path, ext)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	switch ext {
	case "png":
		err = png.Encode(f, im)
	case "bmp":
		err = bmp.Encode(f, im)
	default:
		err = tiff.Encode(f, im, &tiff.Options{Compression: tiff.Deflate})
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return err
}

func imageExt(path string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
}
