package fbtile

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// band is a horizontal strip of whole tile rows.
type band struct {
	y0, rows int
}

// splitBands divides h rows into at most n bands of whole tile rows. The
// last band also takes the rows below the last whole tile row.
func splitBands(h, tileHeight, n int) []band {
	tileRows := h / tileHeight
	if n > tileRows {
		n = tileRows
	}
	if n <= 1 {
		return []band{{0, h}}
	}
	bands := make([]band, 0, n)
	y := 0
	for i := 0; i < n; i++ {
		rows := (tileRows / n) * tileHeight
		if i < tileRows%n {
			rows += tileHeight
		}
		if i == n-1 {
			rows = h - y
		}
		bands = append(bands, band{y, rows})
		y += rows
	}
	return bands
}

// ConvertParallel is Convert split into bands of whole tile rows, each
// converted on its own goroutine with at most workers running at once. Bands
// share the walk read-only and write disjoint parts of dst. The first error
// cancels the bands that have not started yet.
func (c *Converter) ConvertParallel(ctx context.Context, workers int, op Op, layout Layout, w, h int, dst []byte, dstStride int, src []byte, srcStride int, bpp int) error {
	tw, ok := walkFor(layout)
	if !ok || workers <= 1 {
		return c.Convert(op, layout, w, h, dst, dstStride, src, srcStride, bpp)
	}
	bands := splitBands(h, tw.TileHeight, workers)
	if len(bands) == 1 {
		return c.Convert(op, layout, w, h, dst, dstStride, src, srcStride, bpp)
	}

	tld, tldStride, lin, linStride := dst, dstStride, src, srcStride
	if op == OpDetile {
		tld, tldStride, lin, linStride = src, srcStride, dst, dstStride
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, b := range bands {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			bt := tail(tld, b.y0*tldStride)
			bl := tail(lin, b.y0*linStride)
			if op == OpDetile {
				return c.Convert(op, layout, w, b.rows, bl, linStride, bt, tldStride, bpp)
			}
			return c.Convert(op, layout, w, b.rows, bt, tldStride, bl, linStride, bpp)
		})
	}
	return g.Wait()
}

// ConvertParallel runs ConvertParallel on the default Converter.
func ConvertParallel(ctx context.Context, workers int, op Op, layout Layout, w, h int, dst []byte, dstStride int, src []byte, srcStride int, bpp int) error {
	return DefaultConverter().ConvertParallel(ctx, workers, op, layout, w, h, dst, dstStride, src, srcStride, bpp)
}

func tail(b []byte, off int) []byte {
	if off < 0 || off > len(b) {
		return nil
	}
	return b[off:]
}
