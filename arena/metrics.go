package arena

// SizeInUse returns the bytes handed out from blocks, alignment padding
// included. Large allocations are not counted.
func (a *Arena) SizeInUse() int {
	if a.blocks == nil {
		return 0
	}
	sum := 0
	for _, b := range a.blocks {
		sum += b.last - HeaderSize
	}
	return sum
}

// NumBlocks returns the number of blocks owned by the arena.
func (a *Arena) NumBlocks() int {
	return len(a.blocks)
}

// Capacity returns the bytes available for small allocations across all
// blocks, headers excluded.
func (a *Arena) Capacity() int {
	sum := 0
	for _, b := range a.blocks {
		sum += len(b.buf) - HeaderSize
	}
	return sum
}

// Utilization returns the ratio of bytes in use to capacity (0.0 to 1.0).
func (a *Arena) Utilization() float64 {
	capacity := a.Capacity()
	if capacity == 0 {
		return 0
	}
	return float64(a.SizeInUse()) / float64(capacity)
}

// BlockSize returns the footprint of every block.
func (a *Arena) BlockSize() int {
	return a.size
}

// NumLarge returns the number of live large allocations.
func (a *Arena) NumLarge() int {
	n := 0
	for l := a.large; l != nil; l = l.next {
		if l.alloc != nil {
			n++
		}
	}
	return n
}

// LargeBytes returns the bytes held by live large allocations.
func (a *Arena) LargeBytes() int {
	n := 0
	for l := a.large; l != nil; l = l.next {
		n += len(l.alloc)
	}
	return n
}

// Metrics returns a snapshot of arena statistics.
func (a *Arena) Metrics() Metrics {
	return Metrics{
		SizeInUse:   a.SizeInUse(),
		Capacity:    a.Capacity(),
		NumBlocks:   a.NumBlocks(),
		BlockSize:   a.BlockSize(),
		Max:         a.max,
		NumLarge:    a.NumLarge(),
		LargeBytes:  a.LargeBytes(),
		Utilization: a.Utilization(),
	}
}

// Metrics contains statistical information about an arena.
type Metrics struct {
	SizeInUse   int     // Bytes handed out from blocks
	Capacity    int     // Usable bytes across all blocks
	NumBlocks   int     // Number of blocks
	BlockSize   int     // Footprint of every block
	Max         int     // Small allocation ceiling
	NumLarge    int     // Live large allocations
	LargeBytes  int     // Bytes in live large allocations
	Utilization float64 // Ratio of SizeInUse to Capacity (0.0-1.0)
}
