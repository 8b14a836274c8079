// Package arena implements the per-connection memory pool of a network
// server.
//
// # Overview
//
// An Arena owns a sequence of equally sized blocks. Requests up to Max()
// bytes are served by bumping a cursor inside a block; bigger requests are
// acquired directly and kept on a large list so they can be released early
// with FreeLarge. Nothing else is freed individually: Reset rewinds every
// block for reuse and Destroy runs the registered cleanups and gives all
// memory back at once.
//
//	a, err := arena.New(arena.DefaultSize)
//	if err != nil {
//		return err
//	}
//	defer a.Destroy()
//
//	line, err := a.AllocUnaligned(len(requestLine))
//	hdr, err := arena.Alloc[myHeader](a)
//
// # Block search
//
// The small path starts at the current block, not the head. Every time a
// new block has to be added, each searched block gets its failure counter
// bumped, and blocks that failed more than the fail threshold (4 by
// default) are skipped from then on. This keeps the search short once early
// blocks are nearly full.
//
// # Typed values
//
// Alloc and AllocSlice place pointer-free types directly in arena bytes. Types
// that hold Go pointers are placed in per-type slabs owned by the arena so
// the garbage collector still sees them. Both kinds share the arena's
// lifetime. Recycle and Recycled give each type a recycling slot, used by
// the buf package for chain links.
//
// # Platform
//
// Page size, alignment and the backing Source are passed in through
// WithPlatform rather than read from globals. HeapSource uses the Go heap,
// MmapSource uses anonymous mappings, and LimitSource puts a byte budget on
// another source, which bounds per-connection memory and makes allocation
// failure observable.
//
// # Errors
//
// Allocation failure is reported as ErrNoMemory and fails only the request
// that asked. Partial work done before a failure is not unwound; it is
// reclaimed with the rest of the arena.
//
// # Thread Safety
//
// An Arena has exactly one owner. No method is safe for concurrent use.
package arena
