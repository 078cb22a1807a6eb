package neteq

// dwell suppresses direction flips between the accelerate family and
// PreemptiveExpand. A stretch opposite to the previous one is replaced by
// Normal until minFrames frames have passed since that stretch.
type dwell struct {
	minFrames int
	lastDir   int
	elapsed   int
}

func newDwell(minFrames int) *dwell {
	return &dwell{minFrames: minFrames}
}

func (d *dwell) apply(op Operation) Operation {
	d.elapsed++
	dir := op.direction()
	if dir == 0 {
		return op
	}
	if d.minFrames > 0 && d.lastDir != 0 && dir != d.lastDir && d.elapsed < d.minFrames {
		return Normal
	}
	d.lastDir = dir
	d.elapsed = 0
	return op
}

func (d *dwell) reset() {
	d.lastDir = 0
	d.elapsed = 0
}
