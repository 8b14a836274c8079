package arena

import (
	"log/slog"
	"reflect"
	"unsafe"

	"github.com/cockroachdb/errors"
)

const (
	// HeaderSize is the number of bytes reserved at the front of every block
	// for arena bookkeeping. Reset rewinds every block cursor to this offset.
	HeaderSize = 128

	// DefaultSize is a reasonable initial size for a per-connection arena (16 KiB).
	DefaultSize = 16 * 1024

	// DefaultFailThreshold is the number of failed fits after which a block
	// stops being searched by the small allocation path.
	DefaultFailThreshold = 4

	// DefaultLargeScanDepth is how many large-list entries are inspected for a
	// released slot before a new list node is allocated.
	DefaultLargeScanDepth = 4
)

// block is one contiguous piece of backing memory owned by the arena.
type block struct {
	buf    []byte
	base   uintptr // address of buf[0]
	last   int     // next free byte
	failed int     // times an allocation did not fit here
}

func newBlock(mem []byte) block {
	return block{
		buf:  mem,
		base: uintptr(unsafe.Pointer(unsafe.SliceData(mem))),
		last: HeaderSize,
	}
}

// alignOffset returns the smallest offset >= off whose address is a multiple
// of align. align must be a power of two.
func (b *block) alignOffset(off, align int) int {
	mask := uintptr(align - 1)
	addr := (b.base + uintptr(off) + mask) &^ mask
	return int(addr - b.base)
}

// large tracks one allocation served outside the blocks.
type large struct {
	next  *large
	alloc []byte // view handed to the caller, nil once released
	raw   []byte // slice returned by the Source
}

// Arena is a per-connection memory pool. Small requests are bump-allocated
// from a sequence of equally sized blocks, requests above Max() go to the
// large path and are tracked individually. All memory is reclaimed at once by
// Reset or Destroy.
//
// An Arena has a single owner and is not safe for concurrent use.
type Arena struct {
	blocks  []block
	current int // first block searched by the small path
	max     int // small allocation ceiling
	size    int // footprint of every block

	large       *large
	cleanup     *Cleanup
	cleanupTail *Cleanup

	slabs map[reflect.Type]slabber

	platform       Platform
	log            *slog.Logger
	failThreshold  int
	largeScanDepth int
}

// New creates an arena whose head block is size bytes. Every block acquired
// later has the same footprint. size must exceed HeaderSize.
func New(size int, opts ...Option) (*Arena, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if size <= HeaderSize {
		return nil, errors.Wrapf(ErrBadSize, "arena size %d does not exceed header size %d", size, HeaderSize)
	}
	if !isPowerOfTwo(o.platform.Alignment) {
		return nil, errors.Wrapf(ErrBadAlignment, "platform alignment %d", o.platform.Alignment)
	}

	mem, err := o.platform.Source.Acquire(size)
	if err != nil {
		return nil, noMemory(err, size)
	}

	a := &Arena{
		blocks:         []block{newBlock(mem)},
		size:           size,
		slabs:          make(map[reflect.Type]slabber),
		platform:       o.platform,
		log:            o.logger,
		failThreshold:  o.failThreshold,
		largeScanDepth: o.largeScanDepth,
	}
	a.max = min(size-HeaderSize, o.platform.PageSize-1)

	a.log.Debug("arena: create", "size", size, "max", a.max)
	return a, nil
}

// Alloc returns n bytes aligned to the platform alignment. The contents are
// not zeroed.
func (a *Arena) Alloc(n int) ([]byte, error) {
	a.panicIfDestroyed()
	if n < 0 {
		return nil, errors.Wrapf(ErrBadSize, "alloc %d bytes", n)
	}
	if n <= a.max {
		return a.allocSmall(n, a.platform.Alignment)
	}
	return a.allocLarge(n)
}

// AllocUnaligned is Alloc without alignment rounding, for byte strings.
func (a *Arena) AllocUnaligned(n int) ([]byte, error) {
	a.panicIfDestroyed()
	if n < 0 {
		return nil, errors.Wrapf(ErrBadSize, "alloc %d bytes", n)
	}
	if n <= a.max {
		return a.allocSmall(n, 1)
	}
	return a.allocLarge(n)
}

// Calloc is Alloc followed by zero-fill.
func (a *Arena) Calloc(n int) ([]byte, error) {
	b, err := a.Alloc(n)
	if err != nil {
		return nil, err
	}
	clear(b)
	return b, nil
}

// Memalign returns n bytes whose address is a multiple of alignment. The
// memory is acquired directly and tracked on the large list, so it can be
// released early with FreeLarge.
func (a *Arena) Memalign(n, alignment int) ([]byte, error) {
	a.panicIfDestroyed()
	if n < 0 {
		return nil, errors.Wrapf(ErrBadSize, "memalign %d bytes", n)
	}
	if !isPowerOfTwo(alignment) {
		return nil, errors.Wrapf(ErrBadAlignment, "memalign alignment %d", alignment)
	}

	raw, err := a.platform.Source.Acquire(n + alignment - 1)
	if err != nil {
		return nil, noMemory(err, n+alignment-1)
	}
	base := uintptr(unsafe.Pointer(unsafe.SliceData(raw)))
	off := int(((base + uintptr(alignment-1)) &^ uintptr(alignment-1)) - base)
	p := raw[off : off+n : off+n]

	l, err := Alloc[large](a)
	if err != nil {
		a.release(raw)
		return nil, err
	}
	l.alloc, l.raw = p, raw
	l.next = a.large
	a.large = l

	a.log.Debug("arena: memalign", "size", n, "alignment", alignment)
	return p, nil
}

// FreeLarge releases a large allocation before the arena is destroyed. p
// must be the slice returned by Alloc, Calloc or Memalign. It reports false
// when p is not a live large allocation of this arena.
func (a *Arena) FreeLarge(p []byte) bool {
	a.panicIfDestroyed()
	if cap(p) == 0 {
		return false
	}
	ptr := unsafe.SliceData(p)
	for l := a.large; l != nil; l = l.next {
		if l.alloc != nil && unsafe.SliceData(l.alloc) == ptr {
			a.log.Debug("arena: free large", "size", len(l.alloc))
			a.release(l.raw)
			l.alloc, l.raw = nil, nil
			return true
		}
	}
	return false
}

// Reset releases every large allocation and rewinds every block, keeping
// the blocks for reuse. Cleanup handlers are not run.
func (a *Arena) Reset() {
	a.panicIfDestroyed()

	for l := a.large; l != nil; l = l.next {
		if l.raw != nil {
			a.release(l.raw)
		}
	}
	a.large = nil

	for i := range a.blocks {
		a.blocks[i].last = HeaderSize
		a.blocks[i].failed = 0
	}
	a.current = 0

	for _, s := range a.slabs {
		s.reset()
	}
}

// Destroy runs every cleanup handler in registration order, then releases
// every large allocation and every block. A handler that panics is logged
// and the remaining handlers still run. The arena must not be used
// afterwards.
func (a *Arena) Destroy() {
	a.panicIfDestroyed()

	for c := a.cleanup; c != nil; c = c.next {
		if c.Handler != nil {
			a.runCleanup(c)
		}
	}
	a.cleanup, a.cleanupTail = nil, nil

	for l := a.large; l != nil; l = l.next {
		if l.raw != nil {
			a.release(l.raw)
		}
	}
	a.large = nil

	blocks := a.blocks
	a.blocks = nil
	for i := range blocks {
		a.log.Debug("arena: free block", "unused", len(blocks[i].buf)-blocks[i].last)
		a.release(blocks[i].buf)
	}

	for _, s := range a.slabs {
		s.release()
	}
	a.slabs = nil
}

// Max returns the small allocation ceiling.
func (a *Arena) Max() int {
	return a.max
}

// Logger returns the logger used for arena diagnostics.
func (a *Arena) Logger() *slog.Logger {
	return a.log
}

func (a *Arena) allocSmall(n, align int) ([]byte, error) {
	for i := a.current; i < len(a.blocks); i++ {
		b := &a.blocks[i]
		off := b.last
		if align > 1 {
			off = b.alignOffset(off, align)
		}
		if len(b.buf)-off >= n {
			b.last = off + n
			return b.buf[off : off+n : off+n], nil
		}
	}
	return a.allocBlock(n, align)
}

// allocBlock appends a new block sized like the head block and serves n
// bytes from it.
func (a *Arena) allocBlock(n, align int) ([]byte, error) {
	mem, err := a.platform.Source.Acquire(a.size)
	if err != nil {
		return nil, noMemory(err, a.size)
	}
	nb := newBlock(mem)
	off := nb.last
	if align > 1 {
		off = nb.alignOffset(off, align)
	}
	if off+n > len(nb.buf) {
		// alignment padding ate the room
		a.release(mem)
		return a.allocLarge(n)
	}
	nb.last = off + n

	current := a.current
	for i := a.current; i < len(a.blocks); i++ {
		if a.blocks[i].failed > a.failThreshold {
			current = i + 1
		}
		a.blocks[i].failed++
	}

	a.blocks = append(a.blocks, nb)
	a.current = current

	a.log.Debug("arena: new block", "blocks", len(a.blocks), "current", a.current)
	return nb.buf[off : off+n : off+n], nil
}

func (a *Arena) allocLarge(n int) ([]byte, error) {
	raw, err := a.platform.Source.Acquire(n)
	if err != nil {
		return nil, noMemory(err, n)
	}
	p := raw[:n:n]

	depth := 0
	for l := a.large; l != nil && depth < a.largeScanDepth; l = l.next {
		if l.alloc == nil {
			l.alloc, l.raw = p, raw
			a.log.Debug("arena: large reuse slot", "size", n)
			return p, nil
		}
		depth++
	}

	l, err := Alloc[large](a)
	if err != nil {
		a.release(raw)
		return nil, err
	}
	l.alloc, l.raw = p, raw
	l.next = a.large
	a.large = l

	a.log.Debug("arena: large", "size", n)
	return p, nil
}

// release hands memory back to the Source. Failures are logged and
// otherwise ignored.
func (a *Arena) release(b []byte) {
	if err := a.platform.Source.Release(b); err != nil {
		a.log.Error("arena: release failed", "size", len(b), "err", err)
	}
}

func (a *Arena) runCleanup(c *Cleanup) {
	defer func() {
		if r := recover(); r != nil {
			a.log.Error("arena: cleanup panicked", "panic", r)
		}
	}()
	a.log.Debug("arena: run cleanup")
	c.Handler(c.Data)
}

// panicIfDestroyed panics if the arena has been destroyed.
func (a *Arena) panicIfDestroyed() {
	if a.blocks == nil {
		panic("arena: use after Destroy()")
	}
}

func isPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}
