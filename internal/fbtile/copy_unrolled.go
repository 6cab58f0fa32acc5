//go:build !fbtile_nounroll

package fbtile

// unrolled reports whether the optimized walker copies four sub-tile rows per
// loop iteration.
const unrolled = true

func (c *runCopier) batch(tO, lO, sth, parallel, tileBytes, tileRowBytes int) {
	if sth%4 != 0 {
		c.batchRolled(tO, lO, sth, parallel, tileBytes, tileRowBytes)
		return
	}
	run, ls := c.run, c.linStride
	for k := 0; k < sth; k += 4 {
		t0 := tO + k*run
		l0 := lO + k*ls
		for p := 0; p < parallel; p++ {
			t := t0 + p*tileBytes
			l := l0 + p*tileRowBytes
			c.copy(t, l)
			c.copy(t+run, l+ls)
			c.copy(t+2*run, l+2*ls)
			c.copy(t+3*run, l+3*ls)
		}
	}
}
