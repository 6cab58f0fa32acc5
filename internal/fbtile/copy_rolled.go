//go:build fbtile_nounroll

package fbtile

// unrolled reports whether the optimized walker copies four sub-tile rows per
// loop iteration.
const unrolled = false

func (c *runCopier) batch(tO, lO, sth, parallel, tileBytes, tileRowBytes int) {
	c.batchRolled(tO, lO, sth, parallel, tileBytes, tileRowBytes)
}
